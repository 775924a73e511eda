package scheduler

import (
	"context"

	"github.com/aristath/put-screener/internal/modules/cleanup"
	"github.com/aristath/put-screener/internal/modules/history"
	"github.com/aristath/put-screener/internal/modules/metrics"
)

// HistorySyncer defines the contract for price history sync operations
// Used by scheduler to enable testing with mocks
type HistorySyncer interface {
	SyncAll() (*history.SyncResult, error)
}

// MetricsCalculator defines the contract for metrics calculation operations
// Used by scheduler to enable testing with mocks
type MetricsCalculator interface {
	CalculateAll(ctx context.Context) (*metrics.CalcResult, error)
}

// ScreenRunner defines the contract for starting a screening pass
// through the shared run guard
type ScreenRunner interface {
	RunBlocking(ctx context.Context) error
}

// HistoryCleaner defines the contract for the orphaned-row sweep
type HistoryCleaner interface {
	Run() (*cleanup.Result, error)
}

// DatabaseMaintainer defines the contract for database integrity
// checks and space reclamation
type DatabaseMaintainer interface {
	CheckAll(ctx context.Context) error
	CheckpointAll() error
	VacuumAll() error
}
