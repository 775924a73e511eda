package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aristath/put-screener/internal/modules/screener"
	"github.com/rs/zerolog"
)

// ScreenerJob runs the nightly screening pass over the whole universe.
// Runs after the metrics calculation so every gate sees fresh inputs.
type ScreenerJob struct {
	log    zerolog.Logger
	runner ScreenRunner
}

// ScreenerJobConfig holds configuration for the screener job
type ScreenerJobConfig struct {
	Log    zerolog.Logger
	Runner ScreenRunner
}

// NewScreenerJob creates a new screener job
func NewScreenerJob(cfg ScreenerJobConfig) *ScreenerJob {
	return &ScreenerJob{
		log:    cfg.Log.With().Str("job", "screener").Logger(),
		runner: cfg.Runner,
	}
}

// Name returns the job name
func (j *ScreenerJob) Name() string {
	return "screener"
}

// Run executes a screening run through the shared run guard
func (j *ScreenerJob) Run() error {
	j.log.Info().Msg("Starting scheduled screening run")
	startTime := time.Now()

	if err := j.runner.RunBlocking(context.Background()); err != nil {
		if errors.Is(err, screener.ErrRunInProgress) {
			j.log.Warn().Msg("Screening run already in progress, skipping")
			return nil // Don't fail, just skip this run
		}
		return fmt.Errorf("screening run failed: %w", err)
	}

	j.log.Info().
		Dur("duration", time.Since(startTime)).
		Msg("Scheduled screening run completed")

	return nil
}
