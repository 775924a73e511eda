package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/put-screener/internal/domain"
)

func testParams() CalcParams {
	return CalcParams{MinBars: 20, ATRPeriod: 14, LateralATRThreshold: 0.03}
}

// barsFromCloses builds a daily series where each bar trades spread
// above and below its close.
func barsFromCloses(spread float64, volume int64, closes ...float64) []domain.DailyPrice {
	start, _ := time.Parse("2006-01-02", "2026-01-05")
	bars := make([]domain.DailyPrice, len(closes))
	for i, c := range closes {
		v := volume
		bars[i] = domain.DailyPrice{
			Date:   start.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   c,
			High:   c + spread,
			Low:    c - spread,
			Close:  c,
			Volume: &v,
		}
	}
	return bars
}

func rampCloses(from, step float64, n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = from + step*float64(i)
	}
	return closes
}

func TestCalculate_InsufficientBars(t *testing.T) {
	calc := NewCalculator(testParams())

	_, err := calc.Calculate("AAPL", barsFromCloses(1, 1000, rampCloses(100, 1, 10)...))
	require.Error(t, err)

	var dataErr *domain.DataUnavailableError
	require.True(t, errors.As(err, &dataErr))
	assert.Equal(t, "AAPL", dataErr.Symbol)
}

func TestCalculate_FlatRangeFails(t *testing.T) {
	calc := NewCalculator(testParams())

	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 50.0
	}

	_, err := calc.Calculate("FLAT", barsFromCloses(0, 1000, flat...))
	require.Error(t, err)

	var dataErr *domain.DataUnavailableError
	require.True(t, errors.As(err, &dataErr))
	assert.Contains(t, dataErr.Reason, "flat")
}

func TestCalculate_RangePercentile(t *testing.T) {
	calc := NewCalculator(testParams())

	// Low 100, high 150, latest 125: midway through the range
	closes := rampCloses(100, 2, 26) // 100..150
	closes = append(closes, 125)

	values, err := calc.Calculate("AAPL", barsFromCloses(0.5, 1_000_000, closes...))
	require.NoError(t, err)

	assert.InDelta(t, 0.5, values[MetricPct52w], 1e-9)
	assert.Equal(t, 150.0, values[MetricWeek52High])
	assert.Equal(t, 100.0, values[MetricWeek52Low])
}

func TestCalculate_LateralFlag(t *testing.T) {
	calc := NewCalculator(testParams())

	// Tight daily ranges around a slow drift: ATR well under 3% of price
	quiet, err := calc.Calculate("QUIET", barsFromCloses(0.1, 1_000_000, rampCloses(100, 0.2, 30)...))
	require.NoError(t, err)
	assert.Equal(t, 1.0, quiet[MetricIsLateral])
	assert.Less(t, quiet[MetricATRPct], 0.03)

	// Wide swings: ATR far above the threshold
	swingCloses := make([]float64, 30)
	for i := range swingCloses {
		swingCloses[i] = 100
		if i%2 == 1 {
			swingCloses[i] = 110
		}
	}
	wild, err := calc.Calculate("WILD", barsFromCloses(5, 1_000_000, swingCloses...))
	require.NoError(t, err)
	assert.Equal(t, 0.0, wild[MetricIsLateral])
	assert.Greater(t, wild[MetricATRPct], 0.03)
}

func TestCalculate_AvgDollarVolume(t *testing.T) {
	calc := NewCalculator(testParams())

	// 25 bars at 1M shares; the window covers the last 20 closes 105..124
	values, err := calc.Calculate("AAPL", barsFromCloses(1, 1_000_000, rampCloses(100, 1, 25)...))
	require.NoError(t, err)

	assert.InDelta(t, 114.5, values[MetricAvgDollarVolume], 1e-9)
}

func TestCalculate_RealizedVolPresent(t *testing.T) {
	calc := NewCalculator(testParams())

	values, err := calc.Calculate("AAPL", barsFromCloses(1, 1_000_000, rampCloses(100, 1, 30)...))
	require.NoError(t, err)

	assert.Greater(t, values[MetricRealizedVol], 0.0)
}

func TestCalculate_MissingVolumeTreatedAsZero(t *testing.T) {
	calc := NewCalculator(testParams())

	bars := barsFromCloses(1, 1_000_000, rampCloses(100, 1, 25)...)
	for i := range bars {
		bars[i].Volume = nil
	}

	values, err := calc.Calculate("AAPL", bars)
	require.NoError(t, err)
	assert.Equal(t, 0.0, values[MetricAvgDollarVolume])
}

func TestTickerMetrics_Get(t *testing.T) {
	m := &TickerMetrics{
		Symbol: "AAPL",
		Date:   "2026-08-24",
		Values: map[string]float64{MetricPct52w: 0.15, MetricIsLateral: 1},
	}

	require.NotNil(t, m.Get(MetricPct52w))
	assert.Equal(t, 0.15, *m.Get(MetricPct52w))
	assert.Nil(t, m.Get(MetricPERatio))
	assert.True(t, m.IsLateral())

	var empty *TickerMetrics
	assert.Nil(t, empty.Get(MetricPct52w))
	assert.False(t, empty.IsLateral())
}
