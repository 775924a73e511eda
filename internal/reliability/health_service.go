package reliability

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/put-screener/internal/database"
)

// DatabaseHealthService checks one database's integrity and attempts
// WAL checkpoint recovery when the check fails.
type DatabaseHealthService struct {
	db  *database.DB
	log zerolog.Logger
}

// NewDatabaseHealthService creates a new database health service
func NewDatabaseHealthService(db *database.DB, log zerolog.Logger) *DatabaseHealthService {
	return &DatabaseHealthService{
		db:  db,
		log: log.With().Str("service", "health").Str("database", db.Name()).Logger(),
	}
}

// CheckAndRecover runs an integrity check and, on failure, forces a WAL
// checkpoint restart before re-checking. A database that is still
// corrupt afterwards needs operator attention; the error says which one.
func (s *DatabaseHealthService) CheckAndRecover(ctx context.Context) error {
	err := s.db.HealthCheck(ctx)
	if err == nil {
		return nil
	}
	s.log.Error().Err(err).Msg("Integrity check failed")

	s.log.Warn().Msg("Attempting WAL checkpoint recovery")
	if cpErr := s.db.WALCheckpoint("RESTART"); cpErr != nil {
		return fmt.Errorf("recovery checkpoint failed: %w", cpErr)
	}

	if err := s.db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database %s unhealthy after checkpoint recovery: %w", s.db.Name(), err)
	}

	s.log.Info().Msg("Database recovered via WAL checkpoint")
	return nil
}

// GetMetrics reports the database's current size and integrity state.
func (s *DatabaseHealthService) GetMetrics(ctx context.Context) (*DatabaseMetrics, error) {
	stats, err := s.db.GetStats()
	if err != nil {
		return nil, fmt.Errorf("failed to get stats for %s: %w", s.db.Name(), err)
	}

	metrics := &DatabaseMetrics{
		Name:      s.db.Name(),
		SizeMB:    float64(stats.SizeBytes) / 1024 / 1024,
		WALSizeMB: float64(stats.WALSizeBytes) / 1024 / 1024,
	}

	if err := s.db.HealthCheck(ctx); err == nil {
		metrics.IntegrityCheckPassed = true
	}
	metrics.LastIntegrityCheck = time.Now().UTC()

	return metrics, nil
}

// DatabaseMetrics holds one database's health metrics.
type DatabaseMetrics struct {
	LastIntegrityCheck   time.Time `json:"last_integrity_check"`
	Name                 string    `json:"name"`
	SizeMB               float64   `json:"size_mb"`
	WALSizeMB            float64   `json:"wal_size_mb"`
	IntegrityCheckPassed bool      `json:"integrity_check_passed"`
}

// HealthChecker runs health operations across every application
// database. The daily health job checks and checkpoints; the weekly
// cleanup vacuums after its sweep.
type HealthChecker struct {
	services []*DatabaseHealthService
	log      zerolog.Logger
}

// NewHealthChecker creates a health checker over the given databases
func NewHealthChecker(log zerolog.Logger, dbs ...*database.DB) *HealthChecker {
	checker := &HealthChecker{
		log: log.With().Str("service", "health").Logger(),
	}
	for _, db := range dbs {
		checker.services = append(checker.services, NewDatabaseHealthService(db, log))
	}
	return checker
}

// CheckAll checks every database, attempting recovery where needed. One
// failing database does not stop the others from being checked.
func (c *HealthChecker) CheckAll(ctx context.Context) error {
	var failed []string
	for _, svc := range c.services {
		if err := svc.CheckAndRecover(ctx); err != nil {
			c.log.Error().Err(err).Str("database", svc.db.Name()).Msg("Health check failed")
			failed = append(failed, svc.db.Name())
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("health check failed for: %s", strings.Join(failed, ", "))
	}
	return nil
}

// CheckpointAll truncates every database's WAL to keep it from growing
// between runs.
func (c *HealthChecker) CheckpointAll() error {
	var failed []string
	for _, svc := range c.services {
		if err := svc.db.WALCheckpoint("TRUNCATE"); err != nil {
			c.log.Error().Err(err).Str("database", svc.db.Name()).Msg("WAL checkpoint failed")
			failed = append(failed, svc.db.Name())
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("checkpoint failed for: %s", strings.Join(failed, ", "))
	}
	return nil
}

// VacuumAll reclaims space in every database. Expensive on large files,
// so callers schedule it after bulk deletions rather than on a hot path.
func (c *HealthChecker) VacuumAll() error {
	var failed []string
	for _, svc := range c.services {
		if err := svc.db.Vacuum(); err != nil {
			c.log.Error().Err(err).Str("database", svc.db.Name()).Msg("Vacuum failed")
			failed = append(failed, svc.db.Name())
		}
	}

	if len(failed) > 0 {
		return fmt.Errorf("vacuum failed for: %s", strings.Join(failed, ", "))
	}
	return nil
}

// CollectMetrics gathers size and integrity metrics for every database.
// A database whose stats cannot be read is reported by name only.
func (c *HealthChecker) CollectMetrics(ctx context.Context) []*DatabaseMetrics {
	metrics := make([]*DatabaseMetrics, 0, len(c.services))
	for _, svc := range c.services {
		m, err := svc.GetMetrics(ctx)
		if err != nil {
			c.log.Warn().Err(err).Str("database", svc.db.Name()).Msg("Failed to collect metrics")
			m = &DatabaseMetrics{Name: svc.db.Name()}
		}
		metrics = append(metrics, m)
	}
	return metrics
}
