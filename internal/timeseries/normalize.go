package timeseries

import (
	"sort"
	"time"

	"netgdp/internal/models"
)

// millisecondThreshold separates millisecond epochs from second epochs.
const millisecondThreshold = 1e12

// EpochTime converts a unix epoch in seconds or milliseconds to UTC.
func EpochTime(v float64) time.Time {
	if v >= millisecondThreshold {
		return time.UnixMilli(int64(v)).UTC()
	}
	return time.Unix(int64(v), 0).UTC()
}

// Grid returns start, start+g, ... up to and including end.
func Grid(start, end time.Time, g Granularity) []time.Time {
	step := g.Duration()
	if step <= 0 || end.Before(start) {
		return nil
	}
	n := int(end.Sub(start)/step) + 1
	grid := make([]time.Time, 0, n)
	for t := start; !t.After(end); t = t.Add(step) {
		grid = append(grid, t)
	}
	return grid
}

// Normalize aligns raw observations to the grid of [start, end] at g.
// Each grid point takes the last observation at or before it; grid points
// before the first observation are zero. Observations outside the window are
// ignored.
func Normalize(raw []models.Point, start, end time.Time, g Granularity) models.MetricSeries {
	grid := Grid(start, end, g)

	inWindow := make([]models.Point, 0, len(raw))
	for _, p := range raw {
		if p.Time.Before(start) || p.Time.After(end) {
			continue
		}
		inWindow = append(inWindow, p)
	}
	sort.SliceStable(inWindow, func(i, j int) bool {
		return inWindow[i].Time.Before(inWindow[j].Time)
	})

	points := make([]models.Point, len(grid))
	idx := 0
	current := 0.0
	for i, t := range grid {
		for idx < len(inWindow) && !inWindow[idx].Time.After(t) {
			current = inWindow[idx].Value
			idx++
		}
		points[i] = models.Point{Time: t, Value: current}
	}

	return models.MetricSeries{Points: points, Granularity: g.String()}
}

// Zeros returns a series of zeros on the grid, flagged as degraded.
func Zeros(start, end time.Time, g Granularity) models.MetricSeries {
	s := Normalize(nil, start, end, g)
	s.Degraded = true
	return s
}

// Scale multiplies every value by factor, returning a new slice.
func Scale(points []models.Point, factor float64) []models.Point {
	out := make([]models.Point, len(points))
	for i, p := range points {
		out[i] = models.Point{Time: p.Time, Value: p.Value * factor}
	}
	return out
}

// Sum adds series pointwise. All series must share the first series' grid.
func Sum(series ...models.MetricSeries) models.MetricSeries {
	if len(series) == 0 {
		return models.MetricSeries{}
	}
	out := models.MetricSeries{
		Points:      make([]models.Point, len(series[0].Points)),
		Granularity: series[0].Granularity,
	}
	copy(out.Points, series[0].Points)
	for _, s := range series[1:] {
		for i := range out.Points {
			if i < len(s.Points) {
				out.Points[i].Value += s.Points[i].Value
			}
		}
	}
	return out
}
