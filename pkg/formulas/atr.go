package formulas

import (
	"math"

	"github.com/markcheno/go-talib"
)

// CalculateATR calculates the Average True Range over the given period
//
// True range per bar:
//
//	TR = max(high - low, |high - prevClose|, |low - prevClose|)
//
// ATR is the smoothed average of the true range. Requires at least
// period+1 bars because the first bar has no previous close.
//
// Returns nil if insufficient data.
func CalculateATR(highs, lows, closes []float64, period int) *float64 {
	if period < 1 || len(closes) < period+1 {
		return nil
	}
	if len(highs) != len(closes) || len(lows) != len(closes) {
		return nil
	}

	atr := talib.Atr(highs, lows, closes, period)
	if len(atr) > 0 && !isNaN(atr[len(atr)-1]) {
		result := atr[len(atr)-1]
		return &result
	}

	return nil
}

// CalculateATRPercent calculates ATR as a fraction of the latest close
// (0.03 means the average daily range is 3% of the price)
//
// Returns nil if insufficient data or the latest close is not positive.
func CalculateATRPercent(highs, lows, closes []float64, period int) *float64 {
	atr := CalculateATR(highs, lows, closes, period)
	if atr == nil {
		return nil
	}

	lastClose := closes[len(closes)-1]
	if lastClose <= 0 {
		return nil
	}

	pct := *atr / lastClose
	return &pct
}

func isNaN(f float64) bool {
	return math.IsNaN(f)
}
