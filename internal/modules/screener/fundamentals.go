package screener

import "github.com/aristath/put-screener/internal/modules/metrics"

// FundamentalsFilter applies the metric and valuation gates. Each check
// short-circuits with its own skip reason; a value that cannot be
// verified fails the check that needs it.
type FundamentalsFilter struct {
	cfg *Config
}

// NewFundamentalsFilter creates a new fundamentals filter
func NewFundamentalsFilter(cfg *Config) *FundamentalsFilter {
	return &FundamentalsFilter{cfg: cfg}
}

// Prefilter runs the cheap metric-based gates: 52-week percentile at or
// below the maximum, market cap and average dollar volume above their
// floors. Returns the skip reason, or "" on pass.
func (f *FundamentalsFilter) Prefilter(m *metrics.TickerMetrics) string {
	pct := m.Get(metrics.MetricPct52w)
	if pct == nil || *pct > f.cfg.Stock52wPctMax {
		return SkipPercentile
	}

	marketCap := m.Get(metrics.MetricMarketCapMillions)
	if marketCap == nil || *marketCap < f.cfg.MarketCapMinMillions {
		return SkipMarketCap
	}

	volume := m.Get(metrics.MetricAvgDollarVolume)
	if volume == nil || *volume < f.cfg.AvgVolumeMinMillions {
		return SkipVolume
	}

	return ""
}

// Valuation runs the P/E gates: within the configured band AND strictly
// below both the sector and market P/E. A missing P/E at any level is a
// fail, not a pass-through. Returns the skip reason, or "" on pass.
func (f *FundamentalsFilter) Valuation(stockPE, sectorPE, marketPE *float64) string {
	if stockPE == nil || sectorPE == nil || marketPE == nil {
		return SkipPEMissing
	}
	if *stockPE < f.cfg.PERatioMin || *stockPE > f.cfg.PERatioMax {
		return SkipPEBand
	}
	if *stockPE >= *sectorPE || *stockPE >= *marketPE {
		return SkipPEBenchmark
	}
	return ""
}
