// Collectors registered on a private registry and exposed through Handler:
//
//	netgdp_upstream_requests_total{provider,outcome}
//	netgdp_upstream_request_duration_seconds{provider}
//	netgdp_upstream_rate_limited_total{provider,kind}
//	netgdp_upstream_quota{provider,kind}
//	netgdp_source_degraded_total{metric,mode}
//	netgdp_fallback_total{chain,provider}
//	netgdp_cache_requests_total{result}
//	netgdp_component_value{metric}
//	netgdp_composite_value
//	netgdp_http_requests_total{route,method,code}
//	netgdp_http_request_duration_seconds{route}
//	go_* and process_* runtime metrics
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "netgdp"

var (
	once     sync.Once
	registry *prometheus.Registry

	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	upstreamLimited  *prometheus.CounterVec
	upstreamQuota    *prometheus.GaugeVec
	sourceDegraded   *prometheus.CounterVec
	fallbackUsed     *prometheus.CounterVec
	cacheRequests    *prometheus.CounterVec
	componentValue   *prometheus.GaugeVec
	compositeValue   prometheus.Gauge
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
)

// Init creates and registers the collectors. It is safe to call repeatedly.
func Init() {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		upstreamRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Outbound upstream requests by provider and outcome",
		}, []string{"provider", "outcome"})
		upstreamDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Latency of outbound upstream requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"})
		upstreamLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_rate_limited_total",
			Help:      "Upstream responses signalling a rate limit or ban",
		}, []string{"provider", "kind"})
		upstreamQuota = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "upstream_quota",
			Help:      "Request quota advertised by upstream response headers",
		}, []string{"provider", "kind"})
		sourceDegraded = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_degraded_total",
			Help:      "Component fetches replaced by the neutral default",
		}, []string{"metric", "mode"})
		fallbackUsed = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_total",
			Help:      "Provider chosen by each fallback chain run",
		}, []string{"chain", "provider"})
		cacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Fetch-result cache lookups by result",
		}, []string{"result"})
		componentValue = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "component_value",
			Help:      "Latest value of each composite component in USD",
		}, []string{"metric"})
		compositeValue = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "composite_value",
			Help:      "Latest composite total in USD",
		})
		httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Inbound HTTP requests",
		}, []string{"route", "method", "code"})
		httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Latency of inbound HTTP requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"})

		registry.MustRegister(
			upstreamRequests, upstreamDuration, upstreamLimited, upstreamQuota,
			sourceDegraded, fallbackUsed, cacheRequests,
			componentValue, compositeValue,
			httpRequests, httpDuration,
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	Init()
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// Gatherer exposes the registry for tests and embedding.
func Gatherer() prometheus.Gatherer {
	Init()
	return registry
}

func ObserveUpstream(provider, outcome string, elapsed time.Duration) {
	Init()
	upstreamRequests.WithLabelValues(provider, outcome).Inc()
	upstreamDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// IncrementDegraded counts a neutral default substituted for metric. mode
// names the failed operation, e.g. "snapshot" or "series".
func IncrementDegraded(metric, mode string) {
	Init()
	sourceDegraded.WithLabelValues(metric, mode).Inc()
}

func IncrementFallback(chain, provider string) {
	Init()
	fallbackUsed.WithLabelValues(chain, provider).Inc()
}

// IncrementCache counts a cache lookup; result is hit, miss or error.
func IncrementCache(result string) {
	Init()
	cacheRequests.WithLabelValues(result).Inc()
}

func SetComponent(metric string, value float64) {
	Init()
	componentValue.WithLabelValues(metric).Set(value)
}

func SetComposite(value float64) {
	Init()
	compositeValue.Set(value)
}

func ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	Init()
	httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
