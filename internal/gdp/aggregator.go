// Package gdp combines the component sources into the composite index.
package gdp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"netgdp/internal/metrics"
	"netgdp/internal/models"
	"netgdp/internal/period"
	"netgdp/internal/sources"
	"netgdp/internal/timeseries"
	"netgdp/logger"
)

// ErrAggregation is returned when component series cannot be combined. No
// partial composite accompanies it.
var ErrAggregation = errors.New("aggregation failure")

// MarketSource supplies native asset metadata.
type MarketSource interface {
	Market(ctx context.Context) models.MarketData
}

type Aggregator struct {
	sources []sources.Source
	market  MarketSource
	now     func() time.Time
	log     *logger.Log
}

type Option func(*Aggregator)

func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

func WithLogger(log *logger.Log) Option {
	return func(a *Aggregator) { a.log = log }
}

// New builds an aggregator over srcs, summed in the given order.
func New(srcs []sources.Source, market MarketSource, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources: srcs,
		market:  market,
		now:     time.Now,
		log:     logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Sources returns the component names in summation order.
func (a *Aggregator) Sources() []models.MetricName {
	out := make([]models.MetricName, len(a.sources))
	for i, s := range a.sources {
		out[i] = s.Name()
	}
	return out
}

// ComputeSnapshot fetches every component concurrently and sums them.
func (a *Aggregator) ComputeSnapshot(ctx context.Context) (models.CompositeSnapshot, error) {
	started := time.Now()
	snaps := make([]models.MetricSnapshot, len(a.sources))
	var market models.MarketData

	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src sources.Source) {
			defer wg.Done()
			snaps[i] = a.safeSnapshot(ctx, src)
		}(i, src)
	}
	if a.market != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			market = a.safeMarket(ctx)
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return models.CompositeSnapshot{}, fmt.Errorf("%w: %w", ErrAggregation, err)
	}

	out := models.CompositeSnapshot{
		Components: make(models.OrderedMap[float64], 0, len(a.sources)),
		Degraded:   []string{},
	}
	changes := map[models.MetricName]float64{}
	for i, src := range a.sources {
		name := src.Name()
		out.Total += snaps[i].Value
		out.Components.Set(string(name), snaps[i].Value)
		changes[name] = snaps[i].Change24h
		if snaps[i].Degraded {
			out.Degraded = append(out.Degraded, string(name))
		}
	}

	out.Metadata = models.OrderedMap[float64]{}
	out.Metadata.Set(models.MetaNativePrice, market.Price)
	out.Metadata.Set(models.MetaNative24hChange, market.Change24h)
	out.Metadata.Set(models.MetaNative24hVolume, market.Volume24h)
	out.Metadata.Set(models.MetaTVL24hChange, changes[models.TVL])
	out.Metadata.Set(models.MetaFees24hChange, changes[models.Fees])
	out.Metadata.Set(models.MetaStables24hChange, changes[models.Stablecoins])

	a.publish(out)
	logger.LogDuration(a.log.WithComponent("gdp"), "compute_snapshot", started, logger.Fields{
		"gdp":      out.Total,
		"degraded": len(out.Degraded),
	})
	return out, nil
}

// ComputeSeries resolves token and sums every component series pointwise.
// A component whose length differs from the window grid fails the whole
// computation.
func (a *Aggregator) ComputeSeries(ctx context.Context, token string) (models.CompositeSeries, error) {
	w, err := period.Resolve(token, a.now())
	if err != nil {
		return models.CompositeSeries{}, err
	}
	started := time.Now()

	series := make([]models.MetricSeries, len(a.sources))
	var wg sync.WaitGroup
	for i, src := range a.sources {
		wg.Add(1)
		go func(i int, src sources.Source) {
			defer wg.Done()
			series[i] = a.safeSeries(ctx, src, w)
		}(i, src)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return models.CompositeSeries{}, fmt.Errorf("%w: %w", ErrAggregation, err)
	}

	n := w.Len()
	out := models.CompositeSeries{
		Labels:      w.Labels(),
		Values:      make([]float64, n),
		Components:  make(models.OrderedMap[[]float64], 0, len(a.sources)),
		Period:      w.Token,
		Granularity: w.Granularity.String(),
		Degraded:    []string{},
	}
	for i, src := range a.sources {
		name := src.Name()
		if got := series[i].Len(); got != n {
			a.log.WithComponent("gdp").WithFields(logger.Fields{
				"metric":   string(name),
				"period":   token,
				"expected": n,
				"got":      got,
			}).Error("series length mismatch")
			return models.CompositeSeries{}, fmt.Errorf("%w: %s has %d points, want %d", ErrAggregation, name, got, n)
		}
		values := series[i].Values()
		for j, v := range values {
			out.Values[j] += v
		}
		out.Components.Set(string(name), values)
		if series[i].Degraded {
			out.Degraded = append(out.Degraded, string(name))
		}
	}

	logger.LogDuration(a.log.WithComponent("gdp"), "compute_series", started, logger.Fields{
		"period": token,
		"points": n,
	})
	return out, nil
}

func (a *Aggregator) safeSnapshot(ctx context.Context, src sources.Source) (snap models.MetricSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			a.recovered(src.Name(), "snapshot", r)
			snap = models.MetricSnapshot{Degraded: true}
		}
	}()
	return src.Snapshot(ctx)
}

func (a *Aggregator) safeSeries(ctx context.Context, src sources.Source, w period.Window) (s models.MetricSeries) {
	defer func() {
		if r := recover(); r != nil {
			a.recovered(src.Name(), "series", r)
			s = timeseries.Zeros(w.Start, w.End, w.Granularity)
		}
	}()
	return src.Series(ctx, w)
}

func (a *Aggregator) safeMarket(ctx context.Context) (md models.MarketData) {
	defer func() {
		if r := recover(); r != nil {
			a.recovered("market", "snapshot", r)
			md = models.MarketData{Degraded: true}
		}
	}()
	return a.market.Market(ctx)
}

func (a *Aggregator) recovered(name models.MetricName, mode string, r interface{}) {
	metrics.IncrementDegraded(string(name), mode)
	a.log.WithComponent("gdp").WithFields(logger.Fields{
		"metric": string(name),
		"mode":   mode,
		"panic":  fmt.Sprint(r),
	}).Error("source panicked; using neutral default")
}

// publish exports the composite to Prometheus and the metric event stream.
func (a *Aggregator) publish(snap models.CompositeSnapshot) {
	for _, f := range snap.Components {
		metrics.SetComponent(f.Key, f.Value)
	}
	metrics.SetComposite(snap.Total)
	metrics.EmitMetric(a.log, "gdp", "gdp_total", snap.Total, "gauge", logger.Fields{"unit": "usd"})
}
