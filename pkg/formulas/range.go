package formulas

import "gonum.org/v1/gonum/floats"

// CalculateRangePercentile returns the position of the latest close within
// the lowest/highest closing prices of the series, clamped to [0, 1]
//
// Formula: (close - min) / (max - min)
//
// Returns nil when the series is empty or the range is zero; a flat series
// has no meaningful position within its range.
func CalculateRangePercentile(closes []float64) *float64 {
	if len(closes) == 0 {
		return nil
	}

	low := floats.Min(closes)
	high := floats.Max(closes)
	if high == low {
		return nil
	}

	pct := (closes[len(closes)-1] - low) / (high - low)
	if pct < 0 {
		pct = 0
	}
	if pct > 1 {
		pct = 1
	}

	return &pct
}

// RangeBounds returns the lowest and highest closing prices of the series.
// ok is false when the series is empty.
func RangeBounds(closes []float64) (low, high float64, ok bool) {
	if len(closes) == 0 {
		return 0, 0, false
	}
	return floats.Min(closes), floats.Max(closes), true
}
