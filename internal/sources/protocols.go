package sources

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"netgdp/internal/models"
	"netgdp/internal/period"
	"netgdp/internal/timeseries"
	"netgdp/logger"
)

// ProtocolMarketCaps is the summed market cap of a fixed protocol basket.
type ProtocolMarketCaps struct {
	base
	gecko CoinGeckoAPI
	ids   []string
}

func NewProtocolMarketCaps(d Deps) *ProtocolMarketCaps {
	return &ProtocolMarketCaps{base: newBase(models.Protocols, d), gecko: d.CoinGecko, ids: d.Protocols}
}

// Snapshot sums the market caps present in one batched response.
func (p *ProtocolMarketCaps) Snapshot(ctx context.Context) models.MetricSnapshot {
	return p.snapshot(ctx, func(ctx context.Context) (models.MetricSnapshot, error) {
		caps, err := p.gecko.MarketCaps(ctx, p.ids)
		if err != nil {
			return models.MetricSnapshot{}, err
		}
		total := 0.0
		for _, id := range p.ids {
			total += caps[id]
		}
		return models.MetricSnapshot{Value: total, Source: "coingecko"}, nil
	})
}

// Series normalises each protocol's history and sums them pointwise. A
// protocol that fails to load is left out; if all fail the series is zeros.
func (p *ProtocolMarketCaps) Series(ctx context.Context, w period.Window) (out models.MetricSeries) {
	defer p.recoverSeries(w, &out)

	parts := make([]models.MetricSeries, len(p.ids))
	errs := make([]error, len(p.ids))
	var wg sync.WaitGroup
	for i, id := range p.ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("%s: panic: %v", id, r)
				}
			}()
			pts, err := p.raw(ctx, w, id, func(ctx context.Context) ([]models.Point, error) {
				return p.gecko.MarketChartRange(ctx, id, w.Start, w.End)
			})
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", id, err)
				return
			}
			parts[i] = timeseries.Normalize(pts, w.Start, w.End, w.Granularity)
		}(i, id)
	}
	wg.Wait()

	var ok []models.MetricSeries
	for i := range p.ids {
		if errs[i] != nil {
			p.log.WithComponent("sources").WithFields(logger.Fields{
				"metric":   string(p.name),
				"protocol": p.ids[i],
			}).WithError(errs[i]).Debug("protocol history unavailable")
			continue
		}
		ok = append(ok, parts[i])
	}
	if len(ok) == 0 {
		p.fail("series", errors.Join(append([]error{errNoData(p.name)}, errs...)...))
		return timeseries.Zeros(w.Start, w.End, w.Granularity)
	}
	return timeseries.Sum(ok...)
}
