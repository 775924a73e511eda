package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// PriceSyncJob refreshes daily price history for every active security.
// Runs nightly after the US close so the screener sees complete bars.
type PriceSyncJob struct {
	log    zerolog.Logger
	syncer HistorySyncer
}

// PriceSyncConfig holds configuration for the price sync job
type PriceSyncConfig struct {
	Log    zerolog.Logger
	Syncer HistorySyncer
}

// NewPriceSyncJob creates a new price sync job
func NewPriceSyncJob(cfg PriceSyncConfig) *PriceSyncJob {
	return &PriceSyncJob{
		log:    cfg.Log.With().Str("job", "price_sync").Logger(),
		syncer: cfg.Syncer,
	}
}

// Name returns the job name
func (j *PriceSyncJob) Name() string {
	return "price_sync"
}

// Run executes the nightly price sync
// Note: Concurrent execution is prevented by the scheduler's SkipIfStillRunning wrapper
func (j *PriceSyncJob) Run() error {
	j.log.Info().Msg("Starting price sync")
	startTime := time.Now()

	result, err := j.syncer.SyncAll()
	if err != nil {
		return fmt.Errorf("price sync failed: %w", err)
	}

	j.log.Info().
		Int("processed", result.Processed).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Dur("duration", time.Since(startTime)).
		Msg("Price sync completed")

	return nil
}
