package metrics

import (
	"net/http"
	"strconv"
	"strings"

	"netgdp/logger"
)

// detectLimit inspects an upstream status and body and reports whether they
// signal a rate limit or an IP ban. Wording differs per provider.
func detectLimit(provider string, status int, body string) (rateLimit bool, ipBan bool) {
	lower := strings.ToLower(body)
	switch strings.ToLower(provider) {
	case "binance":
		ipBan = status == http.StatusTeapot || (strings.Contains(lower, "ip") && strings.Contains(lower, "ban"))
		rateLimit = !ipBan && (status == http.StatusTooManyRequests || strings.Contains(lower, "too many requests"))
	case "coingecko":
		rateLimit = status == http.StatusTooManyRequests || strings.Contains(lower, "exceeded the rate limit")
	default:
		rateLimit = status == http.StatusTooManyRequests || strings.Contains(lower, "rate limit") || strings.Contains(lower, "too many requests")
		ipBan = strings.Contains(lower, "ip") && strings.Contains(lower, "ban")
	}
	return
}

// ReportLimitFromResponse records rate-limit and ban signals found in an
// upstream response. It returns true when either was detected.
func ReportLimitFromResponse(log *logger.Log, provider string, status int, body string) bool {
	rateLimit, ipBan := detectLimit(provider, status, body)
	if !rateLimit && !ipBan {
		return false
	}
	Init()
	kind := "rate_limit"
	if ipBan {
		kind = "ip_ban"
	}
	upstreamLimited.WithLabelValues(provider, kind).Inc()

	fields := logger.Fields{"provider": provider, "status": status, "kind": kind}
	EmitMetric(log, "fetcher", "upstream_"+kind, int64(1), "counter", fields)
	if log == nil {
		log = logger.GetLogger()
	}
	if ipBan {
		log.WithComponent("fetcher").WithFields(fields).Error("upstream ip banned")
	} else {
		log.WithComponent("fetcher").WithFields(fields).Warn("upstream rate limit exceeded")
	}
	return true
}

// quotaHeaders lists remaining-quota headers in lookup order. Binance reports
// used weight instead, which is handled separately.
var quotaHeaders = []string{"X-RateLimit-Remaining", "RateLimit-Remaining", "X-Ratelimit-Requests-Left"}

// ReportQuotaHeaders emits the request quota an upstream advertises in its
// response headers. ok is false when no known header is present.
func ReportQuotaHeaders(log *logger.Log, provider string, header http.Header) (value int64, ok bool) {
	kind := "remaining"
	for _, name := range quotaHeaders {
		if v, err := strconv.ParseInt(strings.TrimSpace(header.Get(name)), 10, 64); err == nil {
			value, ok = v, true
			break
		}
	}
	if !ok {
		if v, err := strconv.ParseInt(strings.TrimSpace(header.Get("X-MBX-USED-WEIGHT-1m")), 10, 64); err == nil {
			value, ok, kind = v, true, "used_weight"
		}
	}
	if !ok {
		return 0, false
	}
	Init()
	upstreamQuota.WithLabelValues(provider, kind).Set(float64(value))
	EmitMetric(log, "fetcher", "upstream_quota_"+kind, value, "gauge", logger.Fields{"provider": provider})
	return value, true
}
