package period

import (
	"errors"
	"testing"
	"time"

	"netgdp/internal/timeseries"
)

var now = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func TestResolve(t *testing.T) {
	tests := []struct {
		token  string
		start  time.Time
		gran   timeseries.Granularity
		length int
		label  string
	}{
		{"24h", now.Add(-24 * time.Hour), timeseries.Hourly, 25, "12:00"},
		{"1w", now.Add(-7 * 24 * time.Hour), timeseries.FourHourly, 43, "Fri 12:00"},
		{"1m", now.Add(-30 * 24 * time.Hour), timeseries.Daily, 31, "2024-03-15"},
		{"1y", now.Add(-365 * 24 * time.Hour), timeseries.Daily, 366, "2024-03-15"},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			w, err := Resolve(tt.token, now)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if !w.Start.Equal(tt.start) || !w.End.Equal(now) {
				t.Fatalf("unexpected window %s..%s", w.Start, w.End)
			}
			if w.Granularity != tt.gran {
				t.Fatalf("expected granularity %s, got %s", tt.gran, w.Granularity)
			}
			if w.Len() != tt.length {
				t.Fatalf("expected %d points, got %d", tt.length, w.Len())
			}
			if got := w.Label(now); got != tt.label {
				t.Fatalf("expected label %q, got %q", tt.label, got)
			}
			if labels := w.Labels(); len(labels) != tt.length {
				t.Fatalf("expected %d labels, got %d", tt.length, len(labels))
			}
		})
	}
}

func TestResolveInvalid(t *testing.T) {
	for _, token := range []string{"2y", "", "24H", "7d"} {
		if _, err := Resolve(token, now); !errors.Is(err, ErrInvalidPeriod) {
			t.Fatalf("Resolve(%q): expected ErrInvalidPeriod, got %v", token, err)
		}
	}
}

func TestTokens(t *testing.T) {
	got := Tokens()
	want := []string{"24h", "1w", "1m", "1y"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
