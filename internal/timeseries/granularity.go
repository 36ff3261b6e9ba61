package timeseries

import "time"

// Granularity is the spacing of a normalised grid. Only the constants below
// are valid; any other value has a zero Duration and yields an empty grid.
type Granularity string

const (
	Hourly     Granularity = "1h"
	FourHourly Granularity = "4h"
	Daily      Granularity = "1d"
)

func (g Granularity) Duration() time.Duration {
	switch g {
	case Hourly:
		return time.Hour
	case FourHourly:
		return 4 * time.Hour
	case Daily:
		return 24 * time.Hour
	default:
		return 0
	}
}

func (g Granularity) String() string {
	return string(g)
}
