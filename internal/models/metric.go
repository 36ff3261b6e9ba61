package models

import "time"

// MetricName identifies one component of the composite.
type MetricName string

const (
	MonetaryBase MetricName = "monetary_base"
	TVL          MetricName = "tvl"
	Fees         MetricName = "fees"
	Stablecoins  MetricName = "stablecoins"
	Protocols    MetricName = "protocols"
	Cultural     MetricName = "cultural"
)

// Point is one raw or normalised observation.
type Point struct {
	Time  time.Time `json:"timestamp"`
	Value float64   `json:"value"`
}

// MetricSnapshot is the current value of one component. Degraded marks a
// neutral default substituted for a failed fetch.
type MetricSnapshot struct {
	Value     float64 `json:"value"`
	Change24h float64 `json:"change_24h"`
	Degraded  bool    `json:"degraded"`
	Source    string  `json:"source,omitempty"`
}

// MetricSeries is a component aligned to a uniform grid.
type MetricSeries struct {
	Points      []Point `json:"points"`
	Granularity string  `json:"granularity"`
	Degraded    bool    `json:"degraded"`
}

// Values returns the series values in grid order.
func (s MetricSeries) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Value
	}
	return out
}

// Len returns the number of grid points.
func (s MetricSeries) Len() int {
	return len(s.Points)
}

// MarketData is auxiliary metadata about the native asset.
type MarketData struct {
	Price     float64 `json:"price"`
	Change24h float64 `json:"change_24h"`
	Volume24h float64 `json:"volume_24h"`
	MarketCap float64 `json:"market_cap"`
	Source    string  `json:"source,omitempty"`
	Degraded  bool    `json:"degraded"`
}

// StablecoinSupply is the chain's stablecoin float split into buckets.
// Distribution values always sum to Total.
type StablecoinSupply struct {
	Total        float64             `json:"total"`
	Change24h    float64             `json:"change_24h"`
	Distribution OrderedMap[float64] `json:"distribution"`
	Degraded     bool                `json:"degraded"`
}
