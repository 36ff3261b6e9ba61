package sources

import (
	"context"

	"netgdp/internal/models"
	"netgdp/internal/period"
)

// CulturalValue is NFT market cap plus annualised NFT volume on the chain.
type CulturalValue struct {
	base
	llama DefiLlamaAPI
	chain string
}

func NewCulturalValue(d Deps) *CulturalValue {
	return &CulturalValue{base: newBase(models.Cultural, d), llama: d.DefiLlama, chain: d.Chain.Name}
}

// Snapshot falls back to market cap alone when volume is unavailable.
func (c *CulturalValue) Snapshot(ctx context.Context) models.MetricSnapshot {
	return c.snapshot(ctx, func(ctx context.Context) (models.MetricSnapshot, error) {
		marketCap, err := c.llama.NFTMarketCap(ctx, c.chain)
		if err != nil {
			return models.MetricSnapshot{}, err
		}
		volume, err := c.llama.NFTDailyVolume(ctx, c.chain)
		if err != nil {
			c.log.WithComponent("sources").WithField("metric", string(c.name)).WithError(err).Debug("nft volume unavailable; using market cap only")
			volume = 0
		}
		return models.MetricSnapshot{Value: marketCap + volume*daysPerYear, Source: "defillama"}, nil
	})
}

func (c *CulturalValue) Series(ctx context.Context, w period.Window) models.MetricSeries {
	return c.series(ctx, w, func(ctx context.Context) ([]models.Point, error) {
		return c.llama.NFTHistory(ctx, c.chain)
	})
}
