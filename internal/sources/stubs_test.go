package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"netgdp/config"
	"netgdp/internal/cache"
	"netgdp/internal/fetcher"
	"netgdp/internal/models"
	"netgdp/internal/providers"
)

var (
	errDown = fmt.Errorf("stub: %w", fetcher.ErrUpstreamUnavailable)
	now     = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
)

type stubGecko struct {
	market    models.MarketData
	marketErr error
	caps      map[string]float64
	capsErr   error
	charts    map[string][]models.Point
	panics    bool
}

func (s *stubGecko) MarketData(context.Context, string) (models.MarketData, error) {
	if s.panics {
		panic("gecko exploded")
	}
	return s.market, s.marketErr
}

func (s *stubGecko) MarketCaps(context.Context, []string) (map[string]float64, error) {
	return s.caps, s.capsErr
}

func (s *stubGecko) MarketChartRange(_ context.Context, id string, _, _ time.Time) ([]models.Point, error) {
	if s.panics {
		panic("gecko exploded")
	}
	pts, ok := s.charts[id]
	if !ok {
		return nil, errDown
	}
	return pts, nil
}

type stubLlama struct {
	tvl        []models.Point
	tvlErr     error
	stables    []providers.StablecoinAsset
	stablesErr error
	chart      []models.Point
	fees24     float64
	fees48     float64
	feesErr    error
	feesHist   []models.Point
	nftCap     float64
	nftCapErr  error
	nftVol     float64
	nftVolErr  error
	nftHist    []models.Point
	tvlCalls   int
}

func (s *stubLlama) HistoricalChainTVL(context.Context, string) ([]models.Point, error) {
	s.tvlCalls++
	return s.tvl, s.tvlErr
}

func (s *stubLlama) Stablecoins(context.Context, string) ([]providers.StablecoinAsset, error) {
	return s.stables, s.stablesErr
}

func (s *stubLlama) StablecoinChart(context.Context, string) ([]models.Point, error) {
	return s.chart, nil
}

func (s *stubLlama) FeesOverview(context.Context, string) (float64, float64, error) {
	return s.fees24, s.fees48, s.feesErr
}

func (s *stubLlama) FeesHistory(context.Context, string) ([]models.Point, error) {
	return s.feesHist, s.feesErr
}

func (s *stubLlama) NFTMarketCap(context.Context, string) (float64, error) {
	return s.nftCap, s.nftCapErr
}

func (s *stubLlama) NFTDailyVolume(context.Context, string) (float64, error) {
	return s.nftVol, s.nftVolErr
}

func (s *stubLlama) NFTHistory(context.Context, string) ([]models.Point, error) {
	return s.nftHist, nil
}

type stubStats struct {
	byDay map[string]float64
}

func (s *stubStats) OneDayFees(_ context.Context, _ string, day time.Time) (float64, error) {
	v, ok := s.byDay[day.Format("2006-01-02")]
	if !ok {
		return 0, errors.New("missing day")
	}
	return v, nil
}

type stubTicker struct {
	md  models.MarketData
	err error
}

func (s *stubTicker) Ticker(context.Context, string) (models.MarketData, error) {
	return s.md, s.err
}

func testDeps(gecko *stubGecko, llama *stubLlama, stats *stubStats, ticker *stubTicker) Deps {
	d := Deps{
		CoinGecko: gecko,
		DefiLlama: llama,
		Chain: config.ChainConfig{
			Name:            "Ethereum",
			CoinGeckoID:     "ethereum",
			CryptoStatsName: "ethereum",
			BinanceSymbol:   "ETHUSDT",
		},
		Protocols:   []string{"uniswap", "aave"},
		Stablecoins: []string{"USDT", "USDC", "DAI"},
		Cache:       cache.New(cache.NewMemoryStore(), nil),
		TTL:         TTLs{Snapshot: 5 * time.Minute, Series: time.Hour},
		Clock:       func() time.Time { return now },
	}
	if stats != nil {
		d.CryptoStats = stats
	}
	if ticker != nil {
		d.Binance = ticker
	}
	return d
}
