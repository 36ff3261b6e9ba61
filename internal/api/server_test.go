package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"netgdp/config"
	"netgdp/internal/cache"
	"netgdp/internal/gdp"
	"netgdp/internal/metrics"
	"netgdp/internal/models"
	"netgdp/internal/period"
	"netgdp/logger"
)

type fakeComposite struct {
	snapCalls   atomic.Int32
	seriesCalls atomic.Int32
	snapErr     error
	seriesErr   error
}

func (f *fakeComposite) ComputeSnapshot(context.Context) (models.CompositeSnapshot, error) {
	f.snapCalls.Add(1)
	if f.snapErr != nil {
		return models.CompositeSnapshot{}, f.snapErr
	}
	snap := models.CompositeSnapshot{Total: 3, Degraded: []string{}}
	snap.Components.Set("monetary_base", 1)
	snap.Components.Set("tvl", 2)
	snap.Metadata.Set(models.MetaNativePrice, 3000)
	return snap, nil
}

func (f *fakeComposite) ComputeSeries(_ context.Context, token string) (models.CompositeSeries, error) {
	f.seriesCalls.Add(1)
	if f.seriesErr != nil {
		return models.CompositeSeries{}, f.seriesErr
	}
	if _, err := period.Resolve(token, time.Now()); err != nil {
		return models.CompositeSeries{}, err
	}
	return models.CompositeSeries{Labels: []string{"a", "b"}, Values: []float64{1, 2}, Period: token, Degraded: []string{}}, nil
}

type fakeViews struct{}

func (fakeViews) TopProtocols(context.Context) []models.ProtocolSummary {
	return []models.ProtocolSummary{{Name: "Lido", Category: "Staking Entities"}}
}

func (fakeViews) CategoryDistribution(context.Context) []models.CategoryTVL {
	return []models.CategoryTVL{{Category: "Exchanges", TVL: 15, Count: 2}}
}

func (fakeViews) TopYields(context.Context) []models.YieldPool {
	return []models.YieldPool{{Pool: "p1", APY: 12}}
}

func (fakeViews) Stablecoins(context.Context) models.StablecoinSupply {
	var dist models.OrderedMap[float64]
	dist.Set("USDT", 7)
	dist.Set("Others", 3)
	return models.StablecoinSupply{Total: 10, Distribution: dist}
}

func (fakeViews) Methodology() []models.MethodologyEntry {
	return []models.MethodologyEntry{{Metric: models.MonetaryBase, Symbol: "M"}}
}

func testServer(t *testing.T, comp *fakeComposite, cfg config.ServerConfig) (*Server, *gin.Engine) {
	t.Helper()
	if cfg.SnapshotTTL == 0 {
		cfg.SnapshotTTL = time.Minute
	}
	if cfg.SeriesTTL == 0 {
		cfg.SeriesTTL = time.Minute
	}
	srv := NewServer(cfg, config.StreamConfig{Interval: 20 * time.Millisecond}, config.DiagnosticsConfig{}, Deps{
		Composite: comp,
		Views:     fakeViews{},
		Cache:     cache.New(cache.NewMemoryStore(), nil),
		Log:       logger.Logger(),
	})
	router, err := srv.buildRouter()
	if err != nil {
		t.Fatalf("buildRouter error: %v", err)
	}
	return srv, router
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestSnapshotEndpointIsCached(t *testing.T) {
	comp := &fakeComposite{}
	_, router := testServer(t, comp, config.ServerConfig{})

	for i := 0; i < 3; i++ {
		rec := get(router, "/api/gdp")
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status %d", rec.Code)
		}
		var body map[string]json.RawMessage
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if string(body["gdp"]) != "3" {
			t.Fatalf("unexpected gdp %s", body["gdp"])
		}
		if !strings.Contains(string(body["components"]), `"monetary_base":1,"tvl":2`) {
			t.Fatalf("components lost their order: %s", body["components"])
		}
	}
	if comp.snapCalls.Load() != 1 {
		t.Fatalf("expected one computation, got %d", comp.snapCalls.Load())
	}
}

func TestSnapshotEndpointFailure(t *testing.T) {
	comp := &fakeComposite{snapErr: errors.New("boom")}
	_, router := testServer(t, comp, config.ServerConfig{})

	rec := get(router, "/api/gdp")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "gdp\":") {
		t.Fatalf("500 must not carry a composite: %s", rec.Body.String())
	}
}

func TestHistoricalEndpoint(t *testing.T) {
	comp := &fakeComposite{}
	_, router := testServer(t, comp, config.ServerConfig{})

	rec := get(router, "/api/gdp/historical/1w")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	var series models.CompositeSeries
	if err := json.Unmarshal(rec.Body.Bytes(), &series); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if series.Period != "1w" || len(series.Values) != 2 {
		t.Fatalf("unexpected series %+v", series)
	}

	get(router, "/api/gdp/historical/1w")
	if comp.seriesCalls.Load() != 1 {
		t.Fatalf("expected cached series, got %d computations", comp.seriesCalls.Load())
	}
}

func TestHistoricalEndpointInvalidPeriod(t *testing.T) {
	comp := &fakeComposite{}
	_, router := testServer(t, comp, config.ServerConfig{})

	rec := get(router, "/api/gdp/historical/2y")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"error":"Invalid period"}` {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
	if comp.seriesCalls.Load() != 0 {
		t.Fatalf("invalid periods should not reach the aggregator")
	}
}

func TestHistoricalEndpointAggregationFailure(t *testing.T) {
	comp := &fakeComposite{seriesErr: fmt.Errorf("%w: tvl has 3 points, want 25", gdp.ErrAggregation)}
	_, router := testServer(t, comp, config.ServerConfig{})

	rec := get(router, "/api/gdp/historical/24h")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "values") || strings.Contains(rec.Body.String(), "tvl") {
		t.Fatalf("500 must be generic: %s", rec.Body.String())
	}

	get(router, "/api/gdp/historical/24h")
	if comp.seriesCalls.Load() != 2 {
		t.Fatalf("failures must not be cached, got %d computations", comp.seriesCalls.Load())
	}
}

func TestViewEndpoints(t *testing.T) {
	_, router := testServer(t, &fakeComposite{}, config.ServerConfig{})

	cases := map[string]string{
		"/api/protocols/top": `"protocols":[{"name":"Lido"`,
		"/api/categories":    `"categories":[{"category":"Exchanges","tvl":15,"protocols":2}]`,
		"/api/yields/top":    `"pools":[{"pool":"p1"`,
		"/api/stablecoins":   `"distribution":{"USDT":7,"Others":3}`,
		"/api/methodology":   `"components":[{"metric":"monetary_base","symbol":"M"`,
		"/health":            `{"status":"ok"}`,
	}
	for path, want := range cases {
		rec := get(router, path)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: unexpected status %d", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), want) {
			t.Fatalf("%s: expected %s in %s", path, want, rec.Body.String())
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, router := testServer(t, &fakeComposite{}, config.ServerConfig{})
	get(router, "/health")

	rec := get(router, "/metrics")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "netgdp_http_requests_total") {
		t.Fatalf("expected http metrics in exposition, got %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	_, router := testServer(t, &fakeComposite{}, config.ServerConfig{})

	rec := get(router, "/health")
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("expected propagated request id, got %q", got)
	}
}

func TestRateLimit(t *testing.T) {
	cfg := config.ServerConfig{RateLimit: config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}}
	_, router := testServer(t, &fakeComposite{}, cfg)

	for i := 0; i < 2; i++ {
		if rec := get(router, "/api/methodology"); rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}
	rec := get(router, "/api/methodology")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec := get(router, "/health"); rec.Code != http.StatusOK {
		t.Fatalf("health must not be rate limited, got %d", rec.Code)
	}
}

func TestIPLimiterSweep(t *testing.T) {
	l := newIPLimiter(1, 1)
	base := time.Now()
	l.now = func() time.Time { return base }
	l.allow("a")
	l.now = func() time.Time { return base.Add(time.Hour) }
	l.allow("b")

	if removed := l.sweep(10 * time.Minute); removed != 1 {
		t.Fatalf("expected one idle visitor removed, got %d", removed)
	}
	if newIPLimiter(0, 5) != nil {
		t.Fatalf("zero rate should disable the limiter")
	}
}

func TestEventsEndpoint(t *testing.T) {
	events := metrics.NewEventStore(5)
	defer events.Close()

	srv := NewServer(config.ServerConfig{}, config.StreamConfig{}, config.DiagnosticsConfig{}, Deps{
		Composite: &fakeComposite{},
		Views:     fakeViews{},
		Events:    events,
		Log:       logger.Logger(),
	})
	router, err := srv.buildRouter()
	if err != nil {
		t.Fatalf("buildRouter error: %v", err)
	}

	metrics.EmitMetric(logger.Logger(), "gdp", "gdp_total", 42.0, "gauge", logger.Fields{"unit": "usd"})
	rec := get(router, "/api/diagnostics/events?limit=1")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"name":"gdp_total"`) {
		t.Fatalf("unexpected events response %d %s", rec.Code, rec.Body.String())
	}

	for _, path := range []string{"/api/diagnostics/logs", "/api/diagnostics/resources"} {
		if rec := get(router, path); rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 with diagnostics disabled, got %d", path, rec.Code)
		}
	}
}

func TestStreamPushesSnapshots(t *testing.T) {
	comp := &fakeComposite{}
	cfg := config.ServerConfig{SnapshotTTL: -1}
	srv := NewServer(cfg, config.StreamConfig{Interval: 20 * time.Millisecond}, config.DiagnosticsConfig{}, Deps{
		Composite: comp,
		Views:     fakeViews{},
		Log:       logger.Logger(),
	})
	router, err := srv.buildRouter()
	if err != nil {
		t.Fatalf("buildRouter error: %v", err)
	}
	ts := httptest.NewServer(router)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/gdp", nil)
	if err != nil {
		t.Fatalf("dial error: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for i := 0; i < 2; i++ {
		var snap models.CompositeSnapshot
		if err := conn.ReadJSON(&snap); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if snap.Total != 3 {
			t.Fatalf("unexpected snapshot %+v", snap)
		}
	}
	if comp.snapCalls.Load() < 2 {
		t.Fatalf("expected repeated computations, got %d", comp.snapCalls.Load())
	}
}

func TestNormalizeAddress(t *testing.T) {
	cases := map[string]string{
		"":                         "0.0.0.0:8080",
		"  :9090  ":                "0.0.0.0:9090",
		"localhost":                "localhost:8080",
		"0.0.0.0:80":               "0.0.0.0:80",
		"[::1]:443":                "[::1]:443",
		"::1":                      "[::1]:8080",
		"*:8080":                   "0.0.0.0:8080",
		"http://10.0.0.5:8080":     "10.0.0.5:8080",
		"https://10.0.0.5":         "10.0.0.5:8080",
		"http://:7070":             "0.0.0.0:7070",
		"https://gdp.example.com/": "gdp.example.com:8080",
	}
	for input, want := range cases {
		if got := normalizeAddress(input); got != want {
			t.Fatalf("normalizeAddress(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNewServerNormalizesAddress(t *testing.T) {
	srv := NewServer(config.ServerConfig{Address: ":9000"}, config.StreamConfig{}, config.DiagnosticsConfig{}, Deps{Log: logger.Logger()})
	if got := srv.Address(); got != "0.0.0.0:9000" {
		t.Fatalf("server address = %q, want %q", got, "0.0.0.0:9000")
	}
}

type fakeRefresh struct {
	last     time.Time
	failures map[string]string
}

func (f fakeRefresh) Status() (time.Time, map[string]string) {
	return f.last, f.failures
}

func TestHealthReportsRefreshStatus(t *testing.T) {
	newRouter := func(r RefreshStatus) http.Handler {
		srv := NewServer(config.ServerConfig{}, config.StreamConfig{}, config.DiagnosticsConfig{}, Deps{
			Composite: &fakeComposite{},
			Views:     fakeViews{},
			Refresh:   r,
			Log:       logger.Logger(),
		})
		router, err := srv.buildRouter()
		if err != nil {
			t.Fatalf("buildRouter error: %v", err)
		}
		return router
	}

	rec := get(newRouter(fakeRefresh{}), "/health")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"last_run":null`) {
		t.Fatalf("expected a warmer that never ran, got %d %s", rec.Code, rec.Body.String())
	}

	last := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	rec = get(newRouter(fakeRefresh{last: last, failures: map[string]string{"top_yields": "upstream unavailable"}}), "/health")
	body := rec.Body.String()
	if rec.Code != http.StatusOK {
		t.Fatalf("failed warmer tasks must not fail health, got %d", rec.Code)
	}
	for _, want := range []string{`"status":"ok"`, `"last_run":"2024-03-15T12:00:00Z"`, `"top_yields":"upstream unavailable"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in %s", want, body)
		}
	}
}
