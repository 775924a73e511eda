package screener

import "time"

// RunState identifies where a screening run is in its lifecycle.
type RunState string

// Run lifecycle states. A run moves forward through these in order;
// StateFailed is terminal and reachable from any point.
const (
	StateInit           RunState = "init"
	StateUniverseLoaded RunState = "universe_loaded"
	StateTickerLoop     RunState = "per_ticker_loop"
	StateAggregated     RunState = "aggregated"
	StatePersisted      RunState = "persisted"
	StateDone           RunState = "done"
	StateFailed         RunState = "failed"
)

// Stage names within the per-ticker loop, ordered cheapest first.
const (
	StageMetrics          = "metrics"
	StagePrefilter        = "prefilter"
	StageRelativeStrength = "relative_strength"
	StageValuation        = "valuation"
	StageOptions          = "options"
)

// Skip reasons counted per run. Every rejected ticker lands in exactly
// one bucket.
const (
	SkipNoMetrics        = "metrics_missing"
	SkipStaleMetrics     = "metrics_stale"
	SkipPercentile       = "52w_percentile_above_max"
	SkipMarketCap        = "market_cap_below_min"
	SkipVolume           = "volume_below_min"
	SkipRelativeStrength = "relative_strength"
	SkipPEMissing        = "pe_missing"
	SkipPEBand           = "pe_outside_band"
	SkipPEBenchmark      = "pe_above_benchmarks"
	SkipNoChain          = "no_options_chain"
	SkipNoExpiration     = "no_expiration_in_window"
	SkipNoStrike         = "no_strike_below_spot"
	SkipNoQuote          = "no_usable_quote"
	SkipWideSpread       = "spread_too_wide"
	SkipLowYield         = "yield_below_min"
)

// Run is the summary row of one screening run.
type Run struct {
	CreatedAt  time.Time `json:"created_at"`
	RunID      string    `json:"run_id"`
	Status     string    `json:"status"`
	Screened   int       `json:"screened"`
	Passed     int       `json:"passed"`
	Skipped    int       `json:"skipped"`
	DurationMS int64     `json:"duration_ms"`
}

// Run status values.
const (
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Progress is one fire-and-forget notification to the progress sink.
type Progress struct {
	State  RunState `json:"state"`
	Stage  string   `json:"stage,omitempty"`
	Symbol string   `json:"symbol,omitempty"`
	Index  int      `json:"index"`
	Total  int      `json:"total"`
}

// ProgressFunc receives progress notifications during a run. The run
// never blocks on or inspects the callback's behavior.
type ProgressFunc func(Progress)

// RunOptions configures one screening run.
type RunOptions struct {
	// Symbols restricts the run to a subset of the active universe.
	// Empty means every active stock.
	Symbols []string
	// Progress receives per-stage notifications. May be nil.
	Progress ProgressFunc
}

// RunReport is the in-memory outcome of a run: the summary row, the
// per-reason skip counts, and the ranked results.
type RunReport struct {
	Skips   map[string]int `json:"skips"`
	Run     Run            `json:"run"`
	Results []Opportunity  `json:"results"`
}

// Opportunity is one ticker that passed every gate, with the selected
// put contract and the context a reader needs to judge the trade.
// Distance percentages are fractions of the respective bound
// (dist_high_pct 0.35 means the price sits 35% below its 52-week high).
type Opportunity struct {
	Expiration        time.Time `json:"expiration"`
	CreatedAt         time.Time `json:"created_at"`
	RunID             string    `json:"run_id"`
	Symbol            string    `json:"symbol"`
	Sector            string    `json:"sector,omitempty"`
	SectorETF         string    `json:"sector_etf,omitempty"`
	Industry          string    `json:"industry,omitempty"`
	ChartURL          string    `json:"chart_url,omitempty"`
	OptionsURL        string    `json:"options_url,omitempty"`
	StockPrice        float64   `json:"stock_price"`
	Stock52wPct       float64   `json:"stock_52w_pct"`
	Sector52wPct      float64   `json:"sector_52w_pct"`
	Market52wPct      float64   `json:"market_52w_pct"`
	PERatio           float64   `json:"pe_ratio"`
	SectorPE          float64   `json:"sector_pe"`
	MarketPE          float64   `json:"market_pe"`
	MarketCapMillions float64   `json:"market_cap_millions"`
	AvgVolumeMillions float64   `json:"avg_volume_millions"`
	Week52High        *float64  `json:"week52_high,omitempty"`
	Week52Low         *float64  `json:"week52_low,omitempty"`
	DistHighPct       *float64  `json:"dist_high_pct,omitempty"`
	DistLowPct        *float64  `json:"dist_low_pct,omitempty"`
	ATRPct            *float64  `json:"atr_pct,omitempty"`
	Bid               *float64  `json:"bid,omitempty"`
	Ask               *float64  `json:"ask,omitempty"`
	Spread            *float64  `json:"spread,omitempty"`
	OpenInterest      *int64    `json:"open_interest,omitempty"`
	DaysToEarnings    *int      `json:"days_to_earnings,omitempty"`
	PutStrike         float64   `json:"put_strike"`
	Premium           float64   `json:"premium"`
	AnnualizedYield   float64   `json:"annualized_yield"`
	DTE               int       `json:"dte"`
	ContractsNeeded   int       `json:"contracts_needed"`
	ID                int64     `json:"id,omitempty"`
	IsLateral         bool      `json:"is_lateral"`
}
