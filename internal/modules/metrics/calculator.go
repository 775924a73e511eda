package metrics

import (
	"fmt"

	"github.com/aristath/put-screener/internal/domain"
	"github.com/aristath/put-screener/pkg/formulas"
)

// AvgVolumeWindow is how many recent bars feed the average dollar
// volume metric.
const AvgVolumeWindow = 20

// CalcParams configures a metric calculation pass.
type CalcParams struct {
	// MinBars is the minimum bar count below which a symbol is treated
	// as having insufficient history.
	MinBars int
	// ATRPeriod is the lookback for the average true range.
	ATRPeriod int
	// LateralATRThreshold is the ATR fraction of price below which the
	// symbol is flagged as trading laterally.
	LateralATRThreshold float64
}

// Calculator derives per-ticker metrics from cached daily bars.
type Calculator struct {
	params CalcParams
}

// NewCalculator creates a new metrics calculator
func NewCalculator(params CalcParams) *Calculator {
	return &Calculator{params: params}
}

// Calculate computes all price-derived metrics for one symbol.
//
// Returns a DataUnavailableError when the series is too short or has a
// flat range; those symbols carry no usable position information.
func (c *Calculator) Calculate(symbol string, prices []domain.DailyPrice) (map[string]float64, error) {
	if len(prices) < c.params.MinBars {
		return nil, &domain.DataUnavailableError{
			Symbol: symbol,
			Reason: fmt.Sprintf("%d bars cached, need %d", len(prices), c.params.MinBars),
		}
	}

	closes := make([]float64, len(prices))
	highs := make([]float64, len(prices))
	lows := make([]float64, len(prices))
	volumes := make([]float64, len(prices))
	for i, p := range prices {
		closes[i] = p.Close
		highs[i] = p.High
		lows[i] = p.Low
		if p.Volume != nil {
			volumes[i] = float64(*p.Volume)
		}
	}

	pct := formulas.CalculateRangePercentile(closes)
	if pct == nil {
		return nil, &domain.DataUnavailableError{Symbol: symbol, Reason: "flat price range"}
	}
	low, high, _ := formulas.RangeBounds(closes)

	values := map[string]float64{
		MetricPct52w:      *pct,
		MetricWeek52High:  high,
		MetricWeek52Low:   low,
		MetricLatestClose: closes[len(closes)-1],
		MetricBarCount:    float64(len(prices)),
	}

	// Short histories still compute, over the reduced window, but are
	// flagged so readers can discount them
	values[MetricLowConfidence] = 0
	if len(prices) < BarWindow52w {
		values[MetricLowConfidence] = 1
	}

	if atrPct := formulas.CalculateATRPercent(highs, lows, closes, c.params.ATRPeriod); atrPct != nil {
		values[MetricATRPct] = *atrPct
		values[MetricIsLateral] = 0
		if *atrPct < c.params.LateralATRThreshold {
			values[MetricIsLateral] = 1
		}
	}

	window := AvgVolumeWindow
	if window > len(prices) {
		window = len(prices)
	}
	dollarVolumes := make([]float64, window)
	for i := 0; i < window; i++ {
		idx := len(prices) - window + i
		dollarVolumes[i] = closes[idx] * volumes[idx]
	}
	values[MetricAvgDollarVolume] = formulas.Mean(dollarVolumes) / 1e6

	returns := formulas.CalculateReturns(closes)
	if len(returns) > 0 {
		values[MetricRealizedVol] = formulas.AnnualizedVolatility(returns)
	}

	return values, nil
}
