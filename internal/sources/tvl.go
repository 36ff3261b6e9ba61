package sources

import (
	"context"
	"sort"
	"time"

	"netgdp/internal/models"
	"netgdp/internal/period"
)

// LockedValue is the chain's total value locked.
type LockedValue struct {
	base
	llama DefiLlamaAPI
	chain string
}

func NewLockedValue(d Deps) *LockedValue {
	return &LockedValue{base: newBase(models.TVL, d), llama: d.DefiLlama, chain: d.Chain.Name}
}

// Snapshot takes the latest point. The change compares it with the nearest
// point at or before latest-24h, scanning backward; without one it is zero.
func (l *LockedValue) Snapshot(ctx context.Context) models.MetricSnapshot {
	return l.snapshot(ctx, func(ctx context.Context) (models.MetricSnapshot, error) {
		pts, err := l.llama.HistoricalChainTVL(ctx, l.chain)
		if err != nil {
			return models.MetricSnapshot{}, err
		}
		if len(pts) == 0 {
			return models.MetricSnapshot{}, errNoData(l.name)
		}
		return tvlSnapshot(pts), nil
	})
}

func tvlSnapshot(pts []models.Point) models.MetricSnapshot {
	sorted := append([]models.Point(nil), pts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	latest := sorted[len(sorted)-1]
	target := latest.Time.Add(-24 * time.Hour)
	change := 0.0
	for i := len(sorted) - 2; i >= 0; i-- {
		if !sorted[i].Time.After(target) {
			change = percentChange(latest.Value, sorted[i].Value)
			break
		}
	}
	return models.MetricSnapshot{Value: latest.Value, Change24h: change, Source: "defillama"}
}

func (l *LockedValue) Series(ctx context.Context, w period.Window) models.MetricSeries {
	return l.series(ctx, w, func(ctx context.Context) ([]models.Point, error) {
		return l.llama.HistoricalChainTVL(ctx, l.chain)
	})
}
