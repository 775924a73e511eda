package settings

// SettingDefaults holds all default values for configurable settings
var SettingDefaults = map[string]interface{}{
	// Benchmarks
	"market_etf": "SPY", // Broad-market proxy for relative strength and P/E comparison

	// Price history sync
	"history_period":        "1y",  // Yahoo period string for full history sync
	"price_staleness_days":  5.0,   // Reject metrics older than this many days
	"universe_screen_limit": 500.0, // Maximum symbols pulled from the equity screener

	// Metrics calculation
	"metrics_min_bars":            20.0, // Minimum daily bars before metrics are computed
	"atr_period":                  14.0, // ATR lookback in trading days
	"lateral_trend_atr_threshold": 0.03, // ATR% below this marks the trend as lateral

	// Fundamentals prefilter
	"stock_52w_percentile_max":    0.20,   // Stock must sit in the bottom fifth of its 52w range
	"market_cap_min_millions":     1000.0, // Minimum market cap in millions USD
	"avg_volume_usd_min_millions": 10.0,   // Minimum 20-day average dollar volume in millions

	// Valuation gate
	"pe_ratio_min": 5.0,  // Below this P/E the stock looks distressed
	"pe_ratio_max": 20.0, // Above this P/E the stock is not cheap

	// Options selection
	"target_dte":                   30.0, // Target days to expiration
	"dte_tolerance":                7.0,  // Accept expirations within +/- this many days
	"put_strike_discount":          0.10, // Target strike at spot * (1 - discount)
	"min_annualized_premium_yield": 0.36, // Minimum annualized premium / strike
	"max_spread_ratio":             2.0,  // Reject when (ask - bid) > ratio * premium
	"target_premium_thousands":     10.0, // Capital base for the contracts-needed estimate
}

// StringSettings defines which settings should be treated as strings rather than floats
var StringSettings = map[string]bool{
	"market_etf":     true,
	"history_period": true,
}

// ValidHistoryPeriods are the Yahoo period strings accepted for history_period.
var ValidHistoryPeriods = map[string]bool{
	"1mo": true,
	"3mo": true,
	"6mo": true,
	"1y":  true,
	"2y":  true,
	"5y":  true,
	"max": true,
}

// DefaultFloat returns the default for a numeric setting, or 0 when the
// key is unknown or not numeric.
func DefaultFloat(key string) float64 {
	if v, ok := SettingDefaults[key].(float64); ok {
		return v
	}
	return 0
}

// DefaultInt returns the default for a numeric setting truncated to int.
func DefaultInt(key string) int {
	return int(DefaultFloat(key))
}

// DefaultString returns the default for a string setting, or "" when the
// key is unknown or not a string.
func DefaultString(key string) string {
	if v, ok := SettingDefaults[key].(string); ok {
		return v
	}
	return ""
}

// SettingUpdate represents a setting value update request
type SettingUpdate struct {
	Value interface{} `json:"value"`
}
