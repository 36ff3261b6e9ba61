package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"netgdp/config"
	"netgdp/internal/api"
	"netgdp/internal/cache"
	"netgdp/internal/ecosystem"
	"netgdp/internal/fetcher"
	"netgdp/internal/gdp"
	"netgdp/internal/metrics"
	"netgdp/internal/period"
	"netgdp/internal/providers"
	"netgdp/internal/refresh"
	"netgdp/internal/sources"
	"netgdp/logger"
)

func main() {
	log := logger.GetLogger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultPath, "Path to configuration file")
	once := flag.String("once", "", "Compute once and print JSON: 'snapshot' or a period token (24h, 1w, 1m, 1y)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	env := config.AppEnvironment()
	log.WithFields(logger.Fields{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
		"env":     env,
		"chain":   cfg.Chain.Name,
	}).Info("starting netgdp")
	if config.IsProductionLike(env) && cfg.Cache.Backend != "redis" {
		log.WithComponent("cache").WithField("env", env).Warn("in-memory cache is per process; replicas will not share fetch results")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics.Init()
	if cfg.Metrics.CloudWatch.Enabled {
		metrics.InitCloudWatch(ctx, cfg.Metrics.CloudWatch)
	}
	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, cfg.Logging.ReportInterval, metrics.PublishReport)
	}

	var wg sync.WaitGroup

	store, closeStore, err := buildStore(ctx, cfg.Cache, log, &wg)
	if err != nil {
		log.WithError(err).Error("Failed to initialise cache")
		os.Exit(1)
	}
	defer closeStore()
	fetchCache := cache.New(store, log)

	gecko := providers.NewCoinGecko(fetcher.New("coingecko", cfg.Providers.CoinGecko, log))
	llama := providers.NewDefiLlama(
		fetcher.New("defillama", cfg.Providers.DefiLlama, log),
		fetcher.New("defillama_stablecoins", cfg.Providers.Stablecoins, log),
		fetcher.New("defillama_yields", cfg.Providers.Yields, log),
	)

	deps := sources.Deps{
		CoinGecko:   gecko,
		DefiLlama:   llama,
		CryptoStats: providers.NewCryptoStats(fetcher.New("cryptostats", cfg.Providers.CryptoStats, log)),
		Binance:     providers.NewBinance(cfg.Providers.Binance),
		Chain:       cfg.Chain,
		Protocols:   cfg.Protocols,
		Stablecoins: cfg.Stablecoins.Tracked,
		Cache:       fetchCache,
		TTL:         sources.TTLs{Snapshot: cfg.Cache.SnapshotTTL, Series: cfg.Cache.SeriesTTL},
		Log:         log,
	}
	set := sources.Build(deps)
	agg := gdp.New(set.Ordered(cfg.Features.Cultural), set.MonetaryBase, gdp.WithLogger(log))
	views := ecosystem.New(llama, set.Stablecoins, ecosystem.Options{
		Chain:    cfg.Chain.Name,
		Cache:    fetchCache,
		TTL:      cfg.Cache.SnapshotTTL,
		Cultural: cfg.Features.Cultural,
		Log:      log,
	})

	log.WithComponent("gdp").WithField("components", agg.Sources()).Info("composite configured")

	if *once != "" {
		os.Exit(runOnce(ctx, agg, *once, log))
	}

	events := metrics.NewEventStore(cfg.Metrics.EventBuffer)
	defer events.Close()

	var refreshStatus api.RefreshStatus
	if cfg.Refresh.Enabled {
		tasks := append(refresh.CompositeTasks(agg, period.Tokens()), refresh.EcosystemTasks(views)...)
		warmer, err := refresh.New(cfg.Refresh.Schedule, 2*time.Minute, log, tasks...)
		if err != nil {
			log.WithError(err).Error("Failed to create cache warmer")
			os.Exit(1)
		}
		if err := warmer.Start(ctx); err != nil {
			log.WithError(err).Error("Failed to start cache warmer")
			os.Exit(1)
		}
		refreshStatus = warmer
	}

	server := api.NewServer(cfg.Server, cfg.Stream, cfg.Diagnostics, api.Deps{
		Composite: agg,
		Views:     views,
		Cache:     fetchCache,
		Events:    events,
		Refresh:   refreshStatus,
		Log:       log,
	})

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Run(ctx); err != nil {
			log.WithError(err).Error("http server stopped with error")
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown")
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("netgdp stopped")
}

// buildStore returns the configured cache backend and its closer. The memory
// store is swept in the background until ctx ends.
func buildStore(ctx context.Context, cfg config.CacheConfig, log *logger.Log, wg *sync.WaitGroup) (cache.Store, func(), error) {
	if cfg.Backend == "redis" {
		store, err := cache.DialRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		log.WithComponent("cache").WithField("addr", cfg.Redis.Addr).Info("using redis cache")
		return store, func() { _ = store.Close() }, nil
	}

	store := cache.NewMemoryStore()
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := store.Sweep(); n > 0 {
					log.WithComponent("cache").WithField("evicted", n).Debug("swept expired entries")
				}
			}
		}
	}()
	return store, func() {}, nil
}

// runOnce computes the snapshot or one period's series and prints it.
func runOnce(ctx context.Context, agg *gdp.Aggregator, what string, log *logger.Log) int {
	var (
		out interface{}
		err error
	)
	if what == "snapshot" {
		out, err = agg.ComputeSnapshot(ctx)
	} else {
		out, err = agg.ComputeSeries(ctx, what)
	}
	if err != nil {
		log.WithError(err).WithField("mode", what).Error("computation failed")
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.WithError(err).Error("failed to write output")
		return 1
	}
	return 0
}
