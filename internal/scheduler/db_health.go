package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DBHealthJob verifies integrity of all databases and checkpoints their
// WAL files so they stay small between cleanups.
// Runs daily.
type DBHealthJob struct {
	log        zerolog.Logger
	maintainer DatabaseMaintainer
}

// DBHealthConfig holds configuration for the database health job
type DBHealthConfig struct {
	Log        zerolog.Logger
	Maintainer DatabaseMaintainer
}

// NewDBHealthJob creates a new database health job
func NewDBHealthJob(cfg DBHealthConfig) *DBHealthJob {
	return &DBHealthJob{
		log:        cfg.Log.With().Str("job", "db_health").Logger(),
		maintainer: cfg.Maintainer,
	}
}

// Name returns the job name
func (j *DBHealthJob) Name() string {
	return "db_health"
}

// Run executes the health check
func (j *DBHealthJob) Run() error {
	j.log.Info().Msg("Starting database health check")
	startTime := time.Now()

	if err := j.maintainer.CheckAll(context.Background()); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	if err := j.maintainer.CheckpointAll(); err != nil {
		j.log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	j.log.Info().
		Dur("duration", time.Since(startTime)).
		Msg("Database health check completed")

	return nil
}
