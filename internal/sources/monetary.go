package sources

import (
	"context"
	"fmt"

	"netgdp/internal/cache"
	"netgdp/internal/models"
	"netgdp/internal/period"
)

// MonetaryBase is the native asset's market capitalisation. It also serves
// the native asset market metadata, falling back to the Binance ticker.
type MonetaryBase struct {
	base
	gecko  CoinGeckoAPI
	coinID string
	market *Chain[models.MarketData]
}

func NewMonetaryBase(d Deps) *MonetaryBase {
	m := &MonetaryBase{
		base:   newBase(models.MonetaryBase, d),
		gecko:  d.CoinGecko,
		coinID: d.Chain.CoinGeckoID,
	}
	// Each provider caches under its own key so a fallback result never
	// stands in for the primary once it recovers.
	providers := []Provider[models.MarketData]{{
		Name: "coingecko",
		Fetch: func(ctx context.Context) (models.MarketData, error) {
			return cache.Remember(ctx, m.cache, cache.Key("market", "coingecko", d.Chain.CoinGeckoID), m.ttl.Snapshot, func(ctx context.Context) (models.MarketData, error) {
				return d.CoinGecko.MarketData(ctx, d.Chain.CoinGeckoID)
			})
		},
	}}
	if d.Binance != nil && d.Chain.BinanceSymbol != "" {
		providers = append(providers, Provider[models.MarketData]{
			Name: "binance",
			Fetch: func(ctx context.Context) (models.MarketData, error) {
				return cache.Remember(ctx, m.cache, cache.Key("market", "binance", d.Chain.BinanceSymbol), m.ttl.Snapshot, func(ctx context.Context) (models.MarketData, error) {
					return d.Binance.Ticker(ctx, d.Chain.BinanceSymbol)
				})
			},
		})
	}
	m.market = NewChain("market", providers...)
	return m
}

// Market returns native price, change and volume. When every provider fails
// the result is zero and Degraded.
func (m *MonetaryBase) Market(ctx context.Context) (out models.MarketData) {
	defer func() {
		if r := recover(); r != nil {
			m.fail("market", fmt.Errorf("panic: %v", r))
			out = models.MarketData{Degraded: true}
		}
	}()

	md, source, err := m.market.Run(ctx)
	if err != nil {
		m.fail("market", err)
		return models.MarketData{Degraded: true}
	}
	md.Source = source
	return md
}

// Snapshot is the market cap with the 24h price change. A Binance-sourced
// market has no market cap, so the value degrades to zero.
func (m *MonetaryBase) Snapshot(ctx context.Context) (out models.MetricSnapshot) {
	defer m.recoverSnapshot(&out)

	md := m.Market(ctx)
	if md.Degraded || md.Source != "coingecko" {
		if !md.Degraded {
			m.fail("snapshot", fmt.Errorf("market cap unavailable from %s", md.Source))
		}
		return models.MetricSnapshot{Degraded: true, Source: md.Source}
	}
	return models.MetricSnapshot{Value: md.MarketCap, Change24h: md.Change24h, Source: md.Source}
}

func (m *MonetaryBase) Series(ctx context.Context, w period.Window) models.MetricSeries {
	return m.series(ctx, w, func(ctx context.Context) ([]models.Point, error) {
		return m.gecko.MarketChartRange(ctx, m.coinID, w.Start, w.End)
	})
}
