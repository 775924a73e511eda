package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// HistoryCleanupJob sweeps rows whose symbol is no longer active in the
// universe, then vacuums the databases to reclaim the freed space.
// Runs weekly.
type HistoryCleanupJob struct {
	log        zerolog.Logger
	cleaner    HistoryCleaner
	maintainer DatabaseMaintainer
}

// HistoryCleanupConfig holds configuration for the history cleanup job
type HistoryCleanupConfig struct {
	Log        zerolog.Logger
	Cleaner    HistoryCleaner
	Maintainer DatabaseMaintainer
}

// NewHistoryCleanupJob creates a new history cleanup job
func NewHistoryCleanupJob(cfg HistoryCleanupConfig) *HistoryCleanupJob {
	return &HistoryCleanupJob{
		log:        cfg.Log.With().Str("job", "history_cleanup").Logger(),
		cleaner:    cfg.Cleaner,
		maintainer: cfg.Maintainer,
	}
}

// Name returns the job name
func (j *HistoryCleanupJob) Name() string {
	return "history_cleanup"
}

// Run executes the cleanup sweep
func (j *HistoryCleanupJob) Run() error {
	j.log.Info().Msg("Starting history cleanup")
	startTime := time.Now()

	result, err := j.cleaner.Run()
	if err != nil && result == nil {
		return fmt.Errorf("history cleanup failed: %w", err)
	}
	if err != nil {
		j.log.Warn().Err(err).Msg("History cleanup finished with errors")
	}

	// Reclaim the space freed by the sweep
	if vacErr := j.maintainer.VacuumAll(); vacErr != nil {
		j.log.Warn().Err(vacErr).Msg("Vacuum after cleanup failed")
	}

	j.log.Info().
		Int("orphans", len(result.OrphanedSymbols)).
		Int64("rows_deleted", result.RowsDeleted).
		Int64("bars_pruned", result.BarsPruned).
		Int64("metrics_pruned", result.MetricsPruned).
		Dur("duration", time.Since(startTime)).
		Msg("History cleanup completed")

	return err
}
