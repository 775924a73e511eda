package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// MetricsCalcJob recomputes derived metrics for every synced security.
// Runs nightly after the price sync.
type MetricsCalcJob struct {
	log        zerolog.Logger
	calculator MetricsCalculator
}

// MetricsCalcConfig holds configuration for the metrics calculation job
type MetricsCalcConfig struct {
	Log        zerolog.Logger
	Calculator MetricsCalculator
}

// NewMetricsCalcJob creates a new metrics calculation job
func NewMetricsCalcJob(cfg MetricsCalcConfig) *MetricsCalcJob {
	return &MetricsCalcJob{
		log:        cfg.Log.With().Str("job", "metrics_calc").Logger(),
		calculator: cfg.Calculator,
	}
}

// Name returns the job name
func (j *MetricsCalcJob) Name() string {
	return "metrics_calc"
}

// Run executes the metrics calculation
func (j *MetricsCalcJob) Run() error {
	j.log.Info().Msg("Starting metrics calculation")
	startTime := time.Now()

	result, err := j.calculator.CalculateAll(context.Background())
	if err != nil {
		return fmt.Errorf("metrics calculation failed: %w", err)
	}

	j.log.Info().
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Dur("duration", time.Since(startTime)).
		Msg("Metrics calculation completed")

	return nil
}
