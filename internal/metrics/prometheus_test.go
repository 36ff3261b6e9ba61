package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorsRecord(t *testing.T) {
	Init()

	before := testutil.ToFloat64(sourceDegraded.WithLabelValues("tvl", "snapshot"))
	IncrementDegraded("tvl", "snapshot")
	if got := testutil.ToFloat64(sourceDegraded.WithLabelValues("tvl", "snapshot")); got != before+1 {
		t.Fatalf("expected degraded counter %v, got %v", before+1, got)
	}

	SetComposite(42)
	if got := testutil.ToFloat64(compositeValue); got != 42 {
		t.Fatalf("expected composite gauge 42, got %v", got)
	}

	SetComponent("fees", 7)
	if got := testutil.ToFloat64(componentValue.WithLabelValues("fees")); got != 7 {
		t.Fatalf("expected fees gauge 7, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	ObserveUpstream("coingecko", "ok", 10*time.Millisecond)
	ObserveHTTP("/api/gdp", http.MethodGet, http.StatusOK, time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{"netgdp_upstream_requests_total", "netgdp_http_requests_total", "go_goroutines"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in exposition", name)
		}
	}
}
