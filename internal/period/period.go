// Package period maps period tokens such as "24h" to a time window and grid.
package period

import (
	"errors"
	"fmt"
	"time"

	"netgdp/internal/timeseries"
)

// ErrInvalidPeriod is returned for unrecognised period tokens.
var ErrInvalidPeriod = errors.New("invalid period")

// Window is a resolved period: the closed interval [Start, End] sampled at
// Granularity, labelled with Layout.
type Window struct {
	Token       string
	Start       time.Time
	End         time.Time
	Granularity timeseries.Granularity
	Layout      string
}

type spec struct {
	token  string
	span   time.Duration
	gran   timeseries.Granularity
	layout string
}

const day = 24 * time.Hour

var specs = []spec{
	{"24h", day, timeseries.Hourly, "15:04"},
	{"1w", 7 * day, timeseries.FourHourly, "Mon 15:04"},
	{"1m", 30 * day, timeseries.Daily, "2006-01-02"},
	{"1y", 365 * day, timeseries.Daily, "2006-01-02"},
}

// Resolve maps token to a window ending at now.
func Resolve(token string, now time.Time) (Window, error) {
	for _, s := range specs {
		if s.token == token {
			return Window{
				Token:       s.token,
				Start:       now.Add(-s.span),
				End:         now,
				Granularity: s.gran,
				Layout:      s.layout,
			}, nil
		}
	}
	return Window{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, token)
}

// Tokens lists the recognised period tokens, shortest first.
func Tokens() []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.token
	}
	return out
}

func (w Window) Grid() []time.Time {
	return timeseries.Grid(w.Start, w.End, w.Granularity)
}

func (w Window) Len() int {
	return len(w.Grid())
}

func (w Window) Label(t time.Time) string {
	return t.Format(w.Layout)
}

// Labels formats every grid point.
func (w Window) Labels() []string {
	grid := w.Grid()
	out := make([]string, len(grid))
	for i, t := range grid {
		out[i] = w.Label(t)
	}
	return out
}
