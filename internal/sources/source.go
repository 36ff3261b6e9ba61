// Package sources holds one fetch adapter per composite component. Adapters
// never fail: any upstream error becomes the component's neutral default.
package sources

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"netgdp/internal/cache"
	"netgdp/internal/fetcher"
	"netgdp/internal/metrics"
	"netgdp/internal/models"
	"netgdp/internal/period"
	"netgdp/internal/providers"
	"netgdp/internal/timeseries"
	"netgdp/logger"
)

// Source produces the current value and the aligned history of one component.
type Source interface {
	Name() models.MetricName
	Snapshot(ctx context.Context) models.MetricSnapshot
	Series(ctx context.Context, w period.Window) models.MetricSeries
}

type CoinGeckoAPI interface {
	MarketData(ctx context.Context, coinID string) (models.MarketData, error)
	MarketCaps(ctx context.Context, ids []string) (map[string]float64, error)
	MarketChartRange(ctx context.Context, coinID string, from, to time.Time) ([]models.Point, error)
}

type DefiLlamaAPI interface {
	HistoricalChainTVL(ctx context.Context, chain string) ([]models.Point, error)
	Stablecoins(ctx context.Context, chain string) ([]providers.StablecoinAsset, error)
	StablecoinChart(ctx context.Context, chain string) ([]models.Point, error)
	FeesOverview(ctx context.Context, chain string) (float64, float64, error)
	FeesHistory(ctx context.Context, chain string) ([]models.Point, error)
	NFTMarketCap(ctx context.Context, chain string) (float64, error)
	NFTDailyVolume(ctx context.Context, chain string) (float64, error)
	NFTHistory(ctx context.Context, chain string) ([]models.Point, error)
}

type CryptoStatsAPI interface {
	OneDayFees(ctx context.Context, name string, day time.Time) (float64, error)
}

type TickerAPI interface {
	Ticker(ctx context.Context, symbol string) (models.MarketData, error)
}

var (
	_ CoinGeckoAPI   = (*providers.CoinGecko)(nil)
	_ DefiLlamaAPI   = (*providers.DefiLlama)(nil)
	_ CryptoStatsAPI = (*providers.CryptoStats)(nil)
	_ TickerAPI      = (*providers.Binance)(nil)
)

// TTLs are the fetch-result cache lifetimes.
type TTLs struct {
	Snapshot time.Duration
	Series   time.Duration
}

// base carries what every adapter shares: caching, clock, logging and the
// conversion of failures into neutral defaults.
type base struct {
	name  models.MetricName
	cache *cache.Cache
	ttl   TTLs
	now   func() time.Time
	log   *logger.Log
}

func newBase(name models.MetricName, d Deps) base {
	now := d.Clock
	if now == nil {
		now = time.Now
	}
	log := d.Log
	if log == nil {
		log = logger.GetLogger()
	}
	return base{name: name, cache: d.Cache, ttl: d.TTL, now: now, log: log}
}

func (b *base) Name() models.MetricName {
	return b.name
}

func (b *base) fail(mode string, err error) {
	metrics.IncrementDegraded(string(b.name), mode)
	b.log.WithComponent("sources").WithFields(logger.Fields{
		"metric": string(b.name),
		"mode":   mode,
	}).WithError(err).Warn("fetch failed; using neutral default")
}

func (b *base) recoverSnapshot(out *models.MetricSnapshot) {
	if r := recover(); r != nil {
		b.fail("snapshot", fmt.Errorf("panic: %v", r))
		*out = models.MetricSnapshot{Degraded: true}
	}
}

// snapshot loads a snapshot through the cache. Failures yield {0, 0}.
func (b *base) snapshot(ctx context.Context, load func(context.Context) (models.MetricSnapshot, error)) (out models.MetricSnapshot) {
	defer b.recoverSnapshot(&out)

	snap, err := cache.Remember(ctx, b.cache, cache.Key(string(b.name), "snapshot"), b.ttl.Snapshot, load)
	if err != nil {
		b.fail("snapshot", err)
		return models.MetricSnapshot{Degraded: true}
	}
	return snap
}

// raw loads raw points for w through the cache. The key truncates the window
// to the hour so requests within one hour share an entry.
func (b *base) raw(ctx context.Context, w period.Window, part string, load func(context.Context) ([]models.Point, error)) ([]models.Point, error) {
	key := cache.Key(string(b.name), "series", part, string(w.Granularity),
		strconv.FormatInt(w.Start.Truncate(time.Hour).Unix(), 10),
		strconv.FormatInt(w.End.Truncate(time.Hour).Unix(), 10))
	return cache.Remember(ctx, b.cache, key, b.ttl.Series, load)
}

// series loads, caches and normalises raw points. Failures yield zeros on
// the window grid.
func (b *base) series(ctx context.Context, w period.Window, load func(context.Context) ([]models.Point, error)) (out models.MetricSeries) {
	defer b.recoverSeries(w, &out)

	pts, err := b.raw(ctx, w, "all", load)
	if err != nil {
		b.fail("series", err)
		return timeseries.Zeros(w.Start, w.End, w.Granularity)
	}
	return timeseries.Normalize(pts, w.Start, w.End, w.Granularity)
}

func (b *base) recoverSeries(w period.Window, out *models.MetricSeries) {
	if r := recover(); r != nil {
		b.fail("series", fmt.Errorf("panic: %v", r))
		*out = timeseries.Zeros(w.Start, w.End, w.Granularity)
	}
}

// percentChange returns (cur-prev)/prev*100, or 0 when prev is not positive.
func percentChange(cur, prev float64) float64 {
	if prev <= 0 {
		return 0
	}
	return (cur - prev) / prev * 100
}

func errNoData(name models.MetricName) error {
	return fmt.Errorf("%s: empty response: %w", name, fetcher.ErrUpstreamUnavailable)
}
