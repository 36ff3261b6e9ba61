// Package fetcher performs rate-limited, instrumented HTTP GETs against
// upstream data providers.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"netgdp/config"
	"netgdp/internal/metrics"
	"netgdp/logger"
)

const (
	userAgent       = "netgdp/1.0 (+https://github.com/netgdp)"
	maxBodySize     = 32 << 20
	defaultTimeout  = 10 * time.Second
	coingeckoKeyHdr = "x-cg-demo-api-key"
)

// ErrUpstreamUnavailable wraps every transport, status and decode failure.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Provider string
	Status   int
	URL      string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP error: %d %s", e.Provider, e.Status, http.StatusText(e.Status))
}

func (e *StatusError) Unwrap() error {
	return ErrUpstreamUnavailable
}

// Client talks to one upstream provider.
type Client struct {
	name    string
	baseURL string
	apiKey  string
	keyHdr  string
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Log
}

// New builds a client for the named provider from its configuration. A zero
// rate limit leaves requests unpaced.
func New(name string, cfg config.ProviderConfig, log *logger.Log) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if log == nil {
		log = logger.GetLogger()
	}

	c := &Client{
		name:    name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
	if name == "coingecko" {
		c.keyHdr = coingeckoKeyHdr
	}
	if rl := cfg.RateLimit; rl.RequestsPerSecond > 0 {
		burst := rl.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), burst)
	}
	return c
}

func (c *Client) Name() string {
	return c.name
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetJSON fetches path (relative to the base URL) with the given query and
// returns the raw body of a 2xx response.
func (c *Client) GetJSON(ctx context.Context, path string, params url.Values) ([]byte, error) {
	full := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		full += "?" + params.Encode()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate limiter: %w: %w", c.name, ErrUpstreamUnavailable, err)
		}
	}

	started := time.Now()
	body, err := c.do(ctx, full)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		var se *StatusError
		if errors.As(err, &se) {
			outcome = fmt.Sprintf("http_%d", se.Status)
		}
	}
	metrics.ObserveUpstream(c.name, outcome, time.Since(started))
	logger.LogDuration(c.log.WithComponent("fetcher"), "upstream_get", started, logger.Fields{
		"provider": c.name,
		"path":     path,
		"outcome":  outcome,
	})
	return body, err
}

func (c *Client) do(ctx context.Context, full string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w: %w", c.name, ErrUpstreamUnavailable, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" && c.keyHdr != "" {
		req.Header.Set(c.keyHdr, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w: %w", c.name, ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read response body: %w: %w", c.name, ErrUpstreamUnavailable, err)
	}
	logger.RecordUpstreamCall(c.name, len(body))
	metrics.ReportQuotaHeaders(c.log, c.name, resp.Header)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ReportLimitFromResponse(c.log, c.name, resp.StatusCode, string(body))
		return nil, &StatusError{Provider: c.name, Status: resp.StatusCode, URL: full}
	}
	return body, nil
}
