package metrics

// Metric names stored in the ticker_metrics table. Values are keyed by
// (symbol, date, metric) so each calculation run writes one dated row
// per metric.
const (
	MetricPct52w            = "pct_52w"
	MetricWeek52High        = "week52_high"
	MetricWeek52Low         = "week52_low"
	MetricLatestClose       = "latest_close"
	MetricATRPct            = "atr_pct"
	MetricAvgDollarVolume   = "avg_dollar_volume_millions"
	MetricIsLateral         = "is_lateral"
	MetricRealizedVol       = "realized_vol"
	MetricBarCount          = "bar_count"
	MetricLowConfidence     = "low_confidence"
	MetricPERatio           = "pe_ratio"
	MetricMarketCapMillions = "market_cap_millions"
	MetricDaysToEarnings    = "days_to_earnings"
)

// TickerMetrics holds the most recent metric values for one symbol.
type TickerMetrics struct {
	Values map[string]float64 `json:"values"`
	Symbol string             `json:"symbol"`
	Date   string             `json:"date"`
}

// Get returns the named metric value, or nil when the metric was not
// computed for this symbol.
func (t *TickerMetrics) Get(name string) *float64 {
	if t == nil || t.Values == nil {
		return nil
	}
	if v, ok := t.Values[name]; ok {
		return &v
	}
	return nil
}

// IsLateral reports whether the symbol traded laterally as of the
// metric date.
func (t *TickerMetrics) IsLateral() bool {
	v := t.Get(MetricIsLateral)
	return v != nil && *v == 1
}

// CalcResult summarizes a calculation run over many symbols.
type CalcResult struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}
