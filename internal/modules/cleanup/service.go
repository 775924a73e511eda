package cleanup

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/put-screener/internal/domain"
	"github.com/aristath/put-screener/internal/modules/history"
)

const (
	// Bars older than this can never feed a 52-week window again
	barRetentionDays = 730
	// Screens read only each symbol's latest metric date; older rows
	// are kept briefly for inspection, then dropped
	metricRetentionDays = 90
)

// UniverseReader lists the securities whose cached data must survive.
type UniverseReader interface {
	GetAllActive() ([]domain.Security, error)
}

// HistoryStore exposes the cached-history maintenance operations.
type HistoryStore interface {
	GetCachedSymbols() ([]string, error)
	GetAllSyncStatuses() ([]history.SyncStatus, error)
	DeleteSymbol(symbol string) (int64, error)
	DeleteBarsBefore(cutoff string) (int64, error)
}

// MetricsStore prunes aged metric rows.
type MetricsStore interface {
	PruneBefore(cutoff string) (int64, error)
}

// Service removes cached prices, metrics, and sync statuses for symbols
// that are no longer active in the universe, and prunes rows past their
// retention windows.
type Service struct {
	universe UniverseReader
	history  HistoryStore
	metrics  MetricsStore
	log      zerolog.Logger
}

// Result summarizes one cleanup pass.
type Result struct {
	OrphanedSymbols []string `json:"orphaned_symbols"`
	RowsDeleted     int64    `json:"rows_deleted"`
	BarsPruned      int64    `json:"bars_pruned"`
	MetricsPruned   int64    `json:"metrics_pruned"`
}

// NewService creates a new cleanup service
func NewService(universe UniverseReader, historyStore HistoryStore, metricsStore MetricsStore, log zerolog.Logger) *Service {
	return &Service{
		universe: universe,
		history:  historyStore,
		metrics:  metricsStore,
		log:      log.With().Str("service", "cleanup").Logger(),
	}
}

// Run executes one cleanup pass. A failure on one symbol does not stop
// the sweep; the pass reports an error when any deletion failed.
func (s *Service) Run() (*Result, error) {
	s.log.Info().Msg("Starting history cleanup")

	orphans, err := s.findOrphanedSymbols()
	if err != nil {
		return nil, err
	}

	result := &Result{OrphanedSymbols: orphans}
	failures := 0
	for _, symbol := range orphans {
		deleted, err := s.history.DeleteSymbol(symbol)
		if err != nil {
			s.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to delete cached data")
			failures++
			continue
		}
		result.RowsDeleted += deleted
	}

	now := time.Now().UTC()
	barCutoff := now.AddDate(0, 0, -barRetentionDays).Format("2006-01-02")
	if pruned, err := s.history.DeleteBarsBefore(barCutoff); err != nil {
		s.log.Error().Err(err).Msg("Failed to prune old bars")
		failures++
	} else {
		result.BarsPruned = pruned
	}

	metricCutoff := now.AddDate(0, 0, -metricRetentionDays).Format("2006-01-02")
	if pruned, err := s.metrics.PruneBefore(metricCutoff); err != nil {
		s.log.Error().Err(err).Msg("Failed to prune old metrics")
		failures++
	} else {
		result.MetricsPruned = pruned
	}

	s.log.Info().
		Int("orphans", len(orphans)).
		Int64("rows_deleted", result.RowsDeleted).
		Int64("bars_pruned", result.BarsPruned).
		Int64("metrics_pruned", result.MetricsPruned).
		Msg("History cleanup completed")

	if failures > 0 {
		return result, fmt.Errorf("cleanup completed with %d errors", failures)
	}
	return result, nil
}

// findOrphanedSymbols returns every symbol with cached bars or a sync
// status that is not an active security, sorted for stable processing.
func (s *Service) findOrphanedSymbols() ([]string, error) {
	securities, err := s.universe.GetAllActive()
	if err != nil {
		return nil, fmt.Errorf("failed to load active securities: %w", err)
	}
	active := make(map[string]bool, len(securities))
	for _, sec := range securities {
		active[sec.Symbol] = true
	}

	candidates := make(map[string]bool)
	cached, err := s.history.GetCachedSymbols()
	if err != nil {
		return nil, fmt.Errorf("failed to load cached symbols: %w", err)
	}
	for _, symbol := range cached {
		candidates[symbol] = true
	}

	statuses, err := s.history.GetAllSyncStatuses()
	if err != nil {
		return nil, fmt.Errorf("failed to load sync statuses: %w", err)
	}
	for _, status := range statuses {
		candidates[status.Symbol] = true
	}

	var orphans []string
	for symbol := range candidates {
		if !active[symbol] {
			orphans = append(orphans, symbol)
		}
	}
	sort.Strings(orphans)
	return orphans, nil
}
