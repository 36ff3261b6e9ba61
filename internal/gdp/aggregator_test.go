package gdp

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"netgdp/internal/metrics"
	"netgdp/internal/models"
	"netgdp/internal/period"
	"netgdp/internal/sources"
	"netgdp/internal/timeseries"
)

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

// fakeSource returns a constant snapshot and a constant series on the grid.
type fakeSource struct {
	name     models.MetricName
	value    float64
	change   float64
	degraded bool
	panics   bool
	short    bool
}

func (f *fakeSource) Name() models.MetricName { return f.name }

func (f *fakeSource) Snapshot(context.Context) models.MetricSnapshot {
	if f.panics {
		panic("snapshot exploded")
	}
	return models.MetricSnapshot{Value: f.value, Change24h: f.change, Degraded: f.degraded}
}

func (f *fakeSource) Series(_ context.Context, w period.Window) models.MetricSeries {
	if f.panics {
		panic("series exploded")
	}
	raw := []models.Point{{Time: w.Start, Value: f.value}}
	s := timeseries.Normalize(raw, w.Start, w.End, w.Granularity)
	if f.short {
		s.Points = s.Points[:len(s.Points)-1]
	}
	s.Degraded = f.degraded
	return s
}

type fakeMarket struct{ md models.MarketData }

func (f fakeMarket) Market(context.Context) models.MarketData { return f.md }

func components() []sources.Source {
	return []sources.Source{
		&fakeSource{name: models.MonetaryBase, value: 400e9, change: 1},
		&fakeSource{name: models.TVL, value: 60e9, change: 9.09},
		&fakeSource{name: models.Fees, value: 3e9, change: -2},
		&fakeSource{name: models.Stablecoins, value: 80e9, change: 0.5},
		&fakeSource{name: models.Protocols, value: 20e9},
	}
}

func newAggregator(srcs []sources.Source) *Aggregator {
	market := fakeMarket{md: models.MarketData{Price: 3300, Change24h: 1, Volume24h: 12e9}}
	return New(srcs, market, WithClock(func() time.Time { return now }))
}

func TestComputeSnapshotSumsComponents(t *testing.T) {
	events := metrics.NewEventStore(10)
	defer events.Close()

	snap, err := newAggregator(components()).ComputeSnapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sum := 0.0
	for _, f := range snap.Components {
		sum += f.Value
	}
	if snap.Total != sum || snap.Total != 563e9 {
		t.Fatalf("expected total 563e9 equal to component sum %v, got %v", sum, snap.Total)
	}
	keys := snap.Components.Keys()
	want := []string{"monetary_base", "tvl", "fees", "stablecoins", "protocols"}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("component %d: expected %s, got %s", i, want[i], keys[i])
		}
	}
	if v, _ := snap.Metadata.Get(models.MetaTVL24hChange); v != 9.09 {
		t.Fatalf("expected tvl change relayed unmodified, got %v", v)
	}
	if v, _ := snap.Metadata.Get(models.MetaNativePrice); v != 3300 {
		t.Fatalf("expected native price 3300, got %v", v)
	}
	if len(snap.Degraded) != 0 {
		t.Fatalf("expected no degraded components, got %v", snap.Degraded)
	}
	recent := events.Recent(0)
	if len(recent) == 0 || recent[len(recent)-1].Name != "gdp_total" || recent[len(recent)-1].Value != 563e9 {
		t.Fatalf("expected gdp_total event, got %+v", recent)
	}
}

func TestComputeSnapshotIsolatesPanics(t *testing.T) {
	srcs := components()
	srcs[2] = &fakeSource{name: models.Fees, panics: true}

	snap, err := newAggregator(srcs).ComputeSnapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Total != 560e9 {
		t.Fatalf("expected other components to be summed, got %v", snap.Total)
	}
	if fees, _ := snap.Components.Get("fees"); fees != 0 {
		t.Fatalf("expected fees neutral default, got %v", fees)
	}
	if len(snap.Degraded) != 1 || snap.Degraded[0] != "fees" {
		t.Fatalf("expected fees degraded, got %v", snap.Degraded)
	}
}

func TestComputeSnapshotWithoutMarket(t *testing.T) {
	snap, err := New(components(), nil).ComputeSnapshot(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, ok := snap.Metadata.Get(models.MetaNativePrice); !ok || v != 0 {
		t.Fatalf("expected zero native price, got %v %v", v, ok)
	}
}

func TestComputeSeriesLengthsAndSums(t *testing.T) {
	agg := newAggregator(components())
	for _, token := range period.Tokens() {
		t.Run(token, func(t *testing.T) {
			w, _ := period.Resolve(token, now)
			series, err := agg.ComputeSeries(context.Background(), token)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			n := w.Len()
			if len(series.Labels) != n || len(series.Values) != n {
				t.Fatalf("expected %d labels and values, got %d and %d", n, len(series.Labels), len(series.Values))
			}
			for _, f := range series.Components {
				if len(f.Value) != n {
					t.Fatalf("%s has %d points, want %d", f.Key, len(f.Value), n)
				}
			}
			for i := 0; i < n; i++ {
				sum := 0.0
				for _, f := range series.Components {
					sum += f.Value[i]
				}
				if math.Abs(series.Values[i]-sum) > 1e-6 {
					t.Fatalf("point %d: value %v != component sum %v", i, series.Values[i], sum)
				}
			}
			if series.Period != token || series.Granularity != w.Granularity.String() {
				t.Fatalf("unexpected period/granularity %s/%s", series.Period, series.Granularity)
			}
			if series.Labels[0] != w.Label(w.Start) {
				t.Fatalf("unexpected first label %q", series.Labels[0])
			}
		})
	}
}

func TestComputeSeriesInvalidPeriod(t *testing.T) {
	_, err := newAggregator(components()).ComputeSeries(context.Background(), "2y")
	if !errors.Is(err, period.ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestComputeSeriesLengthMismatch(t *testing.T) {
	srcs := components()
	srcs[1] = &fakeSource{name: models.TVL, value: 1, short: true}

	series, err := newAggregator(srcs).ComputeSeries(context.Background(), "24h")
	if !errors.Is(err, ErrAggregation) {
		t.Fatalf("expected ErrAggregation, got %v", err)
	}
	if series.Values != nil || series.Labels != nil {
		t.Fatalf("expected no partial composite, got %+v", series)
	}
}

func TestComputeSeriesPanicBecomesZeros(t *testing.T) {
	srcs := components()
	srcs[0] = &fakeSource{name: models.MonetaryBase, panics: true}

	series, err := newAggregator(srcs).ComputeSeries(context.Background(), "1w")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mb, _ := series.Components.Get("monetary_base")
	for _, v := range mb {
		if v != 0 {
			t.Fatalf("expected zeros for the panicking source, got %v", v)
		}
	}
	if len(series.Degraded) != 1 || series.Degraded[0] != "monetary_base" {
		t.Fatalf("expected monetary_base degraded, got %v", series.Degraded)
	}
}

func TestComputeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newAggregator(components()).ComputeSnapshot(ctx); !errors.Is(err, ErrAggregation) {
		t.Fatalf("expected ErrAggregation, got %v", err)
	}
}

func TestSources(t *testing.T) {
	names := newAggregator(components()).Sources()
	if len(names) != 5 || names[0] != models.MonetaryBase || names[4] != models.Protocols {
		t.Fatalf("unexpected sources %v", names)
	}
}
