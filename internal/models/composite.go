package models

// Metadata keys relayed with every CompositeSnapshot.
const (
	MetaNativePrice      = "native_price"
	MetaNative24hChange  = "native_24h_change"
	MetaNative24hVolume  = "native_24h_volume"
	MetaTVL24hChange     = "tvl_24h_change"
	MetaFees24hChange    = "fees_24h_change"
	MetaStables24hChange = "stablecoins_24h_change"
)

// CompositeSnapshot is the current composite. Total equals the sum of
// Components in declaration order.
type CompositeSnapshot struct {
	Total      float64             `json:"gdp"`
	Components OrderedMap[float64] `json:"components"`
	Metadata   OrderedMap[float64] `json:"metadata"`
	Degraded   []string            `json:"degraded"`
}

// CompositeSeries is the composite over a period. Labels, Values and every
// component slice share one length.
type CompositeSeries struct {
	Labels      []string              `json:"labels"`
	Values      []float64             `json:"values"`
	Components  OrderedMap[[]float64] `json:"components"`
	Period      string                `json:"period"`
	Granularity string                `json:"granularity"`
	Degraded    []string              `json:"degraded"`
}
