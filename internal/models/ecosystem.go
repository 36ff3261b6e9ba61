package models

// ProtocolSummary is one entry of the top protocols view.
type ProtocolSummary struct {
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	TVL         float64 `json:"tvl"`
	Change1d    float64 `json:"change_1d"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Logo        string  `json:"logo,omitempty"`
}

// CategoryTVL is the locked value attributed to one category.
type CategoryTVL struct {
	Category string  `json:"category"`
	TVL      float64 `json:"tvl"`
	Count    int     `json:"protocols"`
}

// YieldPool is one entry of the top yields view.
type YieldPool struct {
	Pool    string  `json:"pool"`
	Project string  `json:"project"`
	Symbol  string  `json:"symbol"`
	Chain   string  `json:"chain"`
	APY     float64 `json:"apy"`
	TVLUSD  float64 `json:"tvl_usd"`
}

// MethodologyEntry describes how one component is computed.
type MethodologyEntry struct {
	Metric      MetricName `json:"metric"`
	Symbol      string     `json:"symbol"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Calculation string     `json:"calculation"`
	Sources     []string   `json:"sources"`
}
