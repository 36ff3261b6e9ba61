package sources

import (
	"context"
	"time"

	"netgdp/internal/models"
	"netgdp/internal/period"
	"netgdp/internal/timeseries"
)

const daysPerYear = 365

// ProtocolRevenue is the chain's annualised fee revenue.
type ProtocolRevenue struct {
	base
	llama  DefiLlamaAPI
	chain  string
	latest *Chain[models.MetricSnapshot]
}

func NewProtocolRevenue(d Deps) *ProtocolRevenue {
	p := &ProtocolRevenue{base: newBase(models.Fees, d), llama: d.DefiLlama, chain: d.Chain.Name}

	var chainProviders []Provider[models.MetricSnapshot]
	if d.CryptoStats != nil {
		name := d.Chain.CryptoStatsName
		if name == "" {
			name = d.Chain.Name
		}
		chainProviders = append(chainProviders, Provider[models.MetricSnapshot]{
			Name: "cryptostats",
			Fetch: func(ctx context.Context) (models.MetricSnapshot, error) {
				return p.fromCryptoStats(ctx, d.CryptoStats, name)
			},
		})
	}
	chainProviders = append(chainProviders, Provider[models.MetricSnapshot]{
		Name:  "defillama",
		Fetch: p.fromDefiLlama,
	})
	p.latest = NewChain("fees", chainProviders...)
	return p
}

// fromCryptoStats annualises today's fees. A failed lookup of yesterday's
// fees only zeroes the change.
func (p *ProtocolRevenue) fromCryptoStats(ctx context.Context, api CryptoStatsAPI, name string) (models.MetricSnapshot, error) {
	today := p.now().UTC()
	fees, err := api.OneDayFees(ctx, name, today)
	if err != nil {
		return models.MetricSnapshot{}, err
	}
	change := 0.0
	if prev, err := api.OneDayFees(ctx, name, today.Add(-24*time.Hour)); err == nil {
		change = percentChange(fees, prev)
	}
	return models.MetricSnapshot{Value: fees * daysPerYear, Change24h: change, Source: "cryptostats"}, nil
}

func (p *ProtocolRevenue) fromDefiLlama(ctx context.Context) (models.MetricSnapshot, error) {
	cur, prev, err := p.llama.FeesOverview(ctx, p.chain)
	if err != nil {
		return models.MetricSnapshot{}, err
	}
	return models.MetricSnapshot{Value: cur * daysPerYear, Change24h: percentChange(cur, prev), Source: "defillama"}, nil
}

func (p *ProtocolRevenue) Snapshot(ctx context.Context) models.MetricSnapshot {
	return p.snapshot(ctx, func(ctx context.Context) (models.MetricSnapshot, error) {
		snap, _, err := p.latest.Run(ctx)
		return snap, err
	})
}

// Series annualises the daily fee history.
func (p *ProtocolRevenue) Series(ctx context.Context, w period.Window) models.MetricSeries {
	return p.series(ctx, w, func(ctx context.Context) ([]models.Point, error) {
		pts, err := p.llama.FeesHistory(ctx, p.chain)
		if err != nil {
			return nil, err
		}
		return timeseries.Scale(pts, daysPerYear), nil
	})
}
