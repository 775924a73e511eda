package history

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/put-screener/internal/domain"
	"github.com/aristath/put-screener/internal/modules/settings"
)

// PriceClient defines the Yahoo Finance history operations the sync
// service needs. Used to enable testing with mocks.
type PriceClient interface {
	GetDailyHistory(symbol, period string) ([]domain.DailyPrice, error)
	DownloadDailyHistories(symbols []string, period string) (map[string][]domain.DailyPrice, map[string]error, error)
}

// UniverseReader exposes the securities a sync run covers.
type UniverseReader interface {
	GetAllActive() ([]domain.Security, error)
}

// SettingsReader exposes the settings the sync service consults.
type SettingsReader interface {
	GetString(key string, defaultValue string) (string, error)
}

// SyncThresholdHours is how recent a successful sync must be to skip a
// symbol during a full run.
const SyncThresholdHours = 12

// SyncService keeps the daily price cache current. Symbols without
// cached bars get a full download over the configured period; symbols
// with bars get the shortest Yahoo period that covers the gap since
// their latest cached date. Per-symbol failures are recorded in
// sync_status and never abort the run.
type SyncService struct {
	repo     *Repository
	universe UniverseReader
	client   PriceClient
	setting  SettingsReader
	log      zerolog.Logger
}

// NewSyncService creates a new history sync service
func NewSyncService(repo *Repository, universe UniverseReader, client PriceClient, setting SettingsReader, log zerolog.Logger) *SyncService {
	return &SyncService{
		repo:     repo,
		universe: universe,
		client:   client,
		setting:  setting,
		log:      log.With().Str("service", "history_sync").Logger(),
	}
}

// SyncAll syncs price history for every active security, benchmark ETFs
// included. Symbols synced successfully inside the threshold window are
// skipped.
func (s *SyncService) SyncAll() (*SyncResult, error) {
	securities, err := s.universe.GetAllActive()
	if err != nil {
		return nil, fmt.Errorf("failed to get active securities: %w", err)
	}

	if len(securities) == 0 {
		s.log.Info().Msg("No securities to sync")
		return &SyncResult{}, nil
	}

	fullPeriod, _ := s.setting.GetString("history_period", settings.DefaultString("history_period"))

	result := &SyncResult{}
	threshold := time.Now().Add(-SyncThresholdHours * time.Hour)

	// Group symbols by the period they need so each group goes out as
	// one batch download.
	groups := make(map[string][]string)
	for _, security := range securities {
		symbol := security.Symbol

		status, err := s.repo.GetSyncStatus(symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to read sync status")
		}
		if status != nil && status.Status == SyncStatusOK && status.LastSyncedAt.After(threshold) {
			result.Skipped++
			continue
		}

		period, err := s.periodFor(symbol, fullPeriod)
		if err != nil {
			s.recordFailure(symbol, err)
			result.Failed++
			continue
		}
		groups[period] = append(groups[period], symbol)
	}

	s.log.Info().
		Int("securities", len(securities)).
		Int("skipped", result.Skipped).
		Int("period_groups", len(groups)).
		Msg("Starting price history sync")

	for period, symbols := range groups {
		prices, errs, err := s.client.DownloadDailyHistories(symbols, period)
		if err != nil {
			// The whole batch failed, record each symbol and move on
			s.log.Error().Err(err).Str("period", period).Int("symbols", len(symbols)).Msg("Batch download failed")
			for _, symbol := range symbols {
				s.recordFailure(symbol, err)
				result.Failed++
			}
			continue
		}

		for _, symbol := range symbols {
			if symErr, ok := errs[symbol]; ok {
				s.recordFailure(symbol, symErr)
				result.Failed++
				continue
			}
			if err := s.store(symbol, prices[symbol]); err != nil {
				s.recordFailure(symbol, err)
				result.Failed++
				continue
			}
			result.Processed++
		}
	}

	s.log.Info().
		Int("processed", result.Processed).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Msg("Price history sync complete")

	return result, nil
}

// SyncSymbol force-refreshes one symbol, bypassing the threshold check.
func (s *SyncService) SyncSymbol(symbol string) error {
	fullPeriod, _ := s.setting.GetString("history_period", settings.DefaultString("history_period"))

	period, err := s.periodFor(symbol, fullPeriod)
	if err != nil {
		s.recordFailure(symbol, err)
		return err
	}

	prices, err := s.client.GetDailyHistory(symbol, period)
	if err != nil {
		s.recordFailure(symbol, err)
		return err
	}

	if err := s.store(symbol, prices); err != nil {
		s.recordFailure(symbol, err)
		return err
	}

	s.log.Info().Str("symbol", symbol).Str("period", period).Msg("Symbol history refreshed")
	return nil
}

// periodFor picks the Yahoo period string for a symbol: the configured
// full period when nothing is cached, otherwise the shortest period
// covering the gap since the latest cached bar.
func (s *SyncService) periodFor(symbol, fullPeriod string) (string, error) {
	latest, err := s.repo.GetLatestDate(symbol)
	if err != nil {
		return "", err
	}
	if latest == nil {
		return fullPeriod, nil
	}

	latestDate, err := time.Parse("2006-01-02", *latest)
	if err != nil {
		// Unparseable date, resync from scratch
		return fullPeriod, nil
	}

	gapDays := int(time.Since(latestDate).Hours() / 24)
	return periodForGap(gapDays), nil
}

// periodForGap maps a gap in calendar days to the shortest Yahoo period
// string that covers it.
func periodForGap(days int) string {
	switch {
	case days <= 4:
		return "5d"
	case days <= 25:
		return "1mo"
	case days <= 80:
		return "3mo"
	case days <= 170:
		return "6mo"
	case days <= 355:
		return "1y"
	case days <= 700:
		return "2y"
	default:
		return "5y"
	}
}

func (s *SyncService) store(symbol string, prices []domain.DailyPrice) error {
	if len(prices) == 0 {
		return &domain.DataUnavailableError{Symbol: symbol, Reason: "no price history"}
	}

	if err := s.repo.UpsertDailyPrices(symbol, prices); err != nil {
		return err
	}

	bars, err := s.repo.CountBars(symbol)
	if err != nil {
		return err
	}

	return s.repo.UpsertSyncStatus(SyncStatus{
		Symbol:        symbol,
		LastSyncedAt:  time.Now().UTC(),
		LastPriceDate: prices[len(prices)-1].Date,
		Bars:          bars,
		Status:        SyncStatusOK,
	})
}

func (s *SyncService) recordFailure(symbol string, cause error) {
	s.log.Error().Err(cause).Str("symbol", symbol).Msg("Price sync failed for symbol")

	status := SyncStatus{
		Symbol:       symbol,
		LastSyncedAt: time.Now().UTC(),
		Status:       SyncStatusFailed,
		Error:        cause.Error(),
	}

	// Preserve what we knew from the last good sync
	if prev, err := s.repo.GetSyncStatus(symbol); err == nil && prev != nil {
		status.LastPriceDate = prev.LastPriceDate
		status.Bars = prev.Bars
	}

	if err := s.repo.UpsertSyncStatus(status); err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Failed to record sync failure")
	}
}
