// Package api serves the composite index and its supporting views over HTTP.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"netgdp/config"
	"netgdp/internal/cache"
	"netgdp/internal/metrics"
	"netgdp/internal/models"
	"netgdp/logger"
)

// Composite computes the index.
type Composite interface {
	ComputeSnapshot(ctx context.Context) (models.CompositeSnapshot, error)
	ComputeSeries(ctx context.Context, token string) (models.CompositeSeries, error)
}

// Views serves the supporting ecosystem views.
type Views interface {
	TopProtocols(ctx context.Context) []models.ProtocolSummary
	CategoryDistribution(ctx context.Context) []models.CategoryTVL
	TopYields(ctx context.Context) []models.YieldPool
	Stablecoins(ctx context.Context) models.StablecoinSupply
	Methodology() []models.MethodologyEntry
}

// RefreshStatus reports the cache warmer's last run and its failed tasks.
type RefreshStatus interface {
	Status() (time.Time, map[string]string)
}

type Deps struct {
	Composite Composite
	Views     Views
	// Cache holds rendered responses. A nil cache disables response caching.
	Cache  *cache.Cache
	Events *metrics.EventStore
	// Refresh is optional; when set /health reports the warmer's last run.
	Refresh RefreshStatus
	Log     *logger.Log
}

// Server hosts the gin router for the public API, the live stream and the
// diagnostics endpoints.
type Server struct {
	cfg         config.ServerConfig
	stream      time.Duration
	diagnostics config.DiagnosticsConfig
	composite   Composite
	views       Views
	cache       *cache.Cache
	events      *metrics.EventStore
	refresh     RefreshStatus
	log         *logger.Log
	limiter     *ipLimiter
	logStore    *logStore
	sampler     *resourceSampler
	httpServer  *http.Server
}

// NewServer builds a server. The listen address is normalised so values such
// as ":8080" or "http://host:8080" are accepted.
func NewServer(cfg config.ServerConfig, stream config.StreamConfig, diag config.DiagnosticsConfig, deps Deps) *Server {
	cfg.Address = normalizeAddress(cfg.Address)
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	interval := stream.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	log := deps.Log
	if log == nil {
		log = logger.GetLogger()
	}

	s := &Server{
		cfg:         cfg,
		stream:      interval,
		diagnostics: diag,
		composite:   deps.Composite,
		views:       deps.Views,
		cache:       deps.Cache,
		events:      deps.Events,
		refresh:     deps.Refresh,
		log:         log,
		limiter:     newIPLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
	}
	if diag.Enabled {
		s.logStore = newLogStore(diag.LogHistory)
		log.AddHook(s.logStore)
		s.sampler = newResourceSampler(diag.ResourceHistory, diag.ResourceInterval, log)
	}
	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	defer s.cleanup()

	router, err := s.buildRouter()
	if err != nil {
		return err
	}

	if s.sampler != nil {
		s.sampler.start(ctx)
	}
	if s.limiter != nil {
		go s.limiter.sweepEvery(ctx, time.Minute, 10*time.Minute)
	}

	s.httpServer = &http.Server{
		Addr:         s.cfg.Address,
		Handler:      router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithComponent("api").WithField("address", s.cfg.Address).Info("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) cleanup() {
	if s.logStore != nil {
		s.logStore.close()
	}
	if s.sampler != nil {
		s.sampler.stop()
	}
}

// Address reports the normalised listen address.
func (s *Server) Address() string {
	return s.cfg.Address
}

func (s *Server) buildRouter() (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), accessLog(s.log))
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}

	router.GET("/health", s.handleHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := router.Group("/api")
	if s.limiter != nil {
		api.Use(s.limiter.middleware(s.log))
	}
	api.GET("/gdp", s.handleSnapshot)
	api.GET("/gdp/historical/:period", s.handleHistorical)
	api.GET("/protocols/top", s.handleTopProtocols)
	api.GET("/categories", s.handleCategories)
	api.GET("/yields/top", s.handleTopYields)
	api.GET("/stablecoins", s.handleStablecoins)
	api.GET("/methodology", s.handleMethodology)

	diag := api.Group("/diagnostics")
	diag.GET("/events", s.handleEvents)
	diag.GET("/logs", s.handleLogs)
	diag.GET("/resources", s.handleResources)

	router.GET("/ws/gdp", s.handleStream)

	return router, nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if parsed.Host != "" {
				addr = parsed.Host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") && len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
		return "0.0.0.0" + addr
	}

	if host, port, err := net.SplitHostPort(addr); err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil || !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8080")
	}
	return addr
}
