// Package providers holds typed clients for the upstream data APIs.
package providers

import (
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"

	"netgdp/internal/fetcher"
)

// parseBody validates body as JSON and returns its root.
func parseBody(provider string, body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%s: malformed response: %w", provider, fetcher.ErrUpstreamUnavailable)
	}
	return gjson.ParseBytes(body), nil
}

func missingField(provider, field string) error {
	return fmt.Errorf("%s: missing field %q: %w", provider, field, fetcher.ErrUpstreamUnavailable)
}

// number reads a JSON number or numeric string.
func number(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Num, true
	case gjson.String:
		v, err := strconv.ParseFloat(r.Str, 64)
		return v, err == nil
	default:
		return 0, false
	}
}
