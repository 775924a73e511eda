package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/put-screener/internal/domain"
	"github.com/aristath/put-screener/internal/modules/settings"
)

// BarWindow52w is how many recent bars feed the 52-week range metrics,
// roughly one year of trading days.
const BarWindow52w = 252

// UniverseReader exposes the securities a calculation run covers.
type UniverseReader interface {
	GetAllActive() ([]domain.Security, error)
	GetBySymbol(symbol string) (*domain.Security, error)
}

// PriceReader exposes cached daily bars.
type PriceReader interface {
	GetDailyPricesAsc(symbol string, limit int) ([]domain.DailyPrice, error)
}

// QuoteClient provides fundamental snapshots for the quote-derived
// metrics.
type QuoteClient interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]*domain.Quote, error)
}

// SettingsReader exposes the settings the calculator consults.
type SettingsReader interface {
	GetFloat(key string, defaultValue float64) (float64, error)
	GetInt(key string, defaultValue int) (int, error)
}

// Service computes and stores ticker metrics for the whole universe.
// Price-derived metrics come from cached bars; the P/E ratio and market
// cap come from a fresh quote snapshot so the valuation gates always
// compare against current fundamentals. Benchmark ETFs go through the
// same pass because relative strength compares their range position
// against the stocks'.
type Service struct {
	repo     *Repository
	universe UniverseReader
	history  PriceReader
	quotes   QuoteClient
	setting  SettingsReader
	log      zerolog.Logger
}

// NewService creates a new metrics service
func NewService(repo *Repository, universe UniverseReader, history PriceReader, quotes QuoteClient, setting SettingsReader, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		universe: universe,
		history:  history,
		quotes:   quotes,
		setting:  setting,
		log:      log.With().Str("service", "metrics").Logger(),
	}
}

// CalculateAll recomputes metrics for every active security. Per-symbol
// failures are counted and logged but never abort the run.
func (s *Service) CalculateAll(ctx context.Context) (*CalcResult, error) {
	securities, err := s.universe.GetAllActive()
	if err != nil {
		return nil, fmt.Errorf("failed to get active securities: %w", err)
	}

	if len(securities) == 0 {
		s.log.Info().Msg("No securities to calculate")
		return &CalcResult{}, nil
	}

	calc := s.newCalculator()

	symbols := make([]string, len(securities))
	for i, security := range securities {
		symbols[i] = security.Symbol
	}

	quotes, err := s.quotes.GetQuotes(ctx, symbols)
	if err != nil {
		// Price metrics can still be computed, fundamentals will be
		// missing until the next pass
		s.log.Warn().Err(err).Msg("Quote fetch failed, skipping fundamental metrics")
		quotes = map[string]*domain.Quote{}
	}

	s.log.Info().Int("securities", len(securities)).Msg("Starting metrics calculation")

	result := &CalcResult{}
	for _, security := range securities {
		if err := s.calculateOne(calc, security, quotes[security.Symbol]); err != nil {
			s.log.Debug().Err(err).Str("symbol", security.Symbol).Msg("Metrics calculation failed for symbol")
			result.Failed++
			continue
		}
		result.Processed++
	}

	s.log.Info().
		Int("processed", result.Processed).
		Int("failed", result.Failed).
		Msg("Metrics calculation complete")

	return result, nil
}

// CalculateSymbol recomputes metrics for one symbol and returns the
// stored values.
func (s *Service) CalculateSymbol(ctx context.Context, symbol string) (*TickerMetrics, error) {
	calc := s.newCalculator()

	security := domain.Security{Symbol: symbol}
	if known, err := s.universe.GetBySymbol(symbol); err == nil && known != nil {
		security = *known
	}

	quotes, err := s.quotes.GetQuotes(ctx, []string{symbol})
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("Quote fetch failed, skipping fundamental metrics")
		quotes = map[string]*domain.Quote{}
	}

	if err := s.calculateOne(calc, security, quotes[symbol]); err != nil {
		return nil, err
	}

	return s.repo.GetLatestMetrics(symbol)
}

func (s *Service) newCalculator() *Calculator {
	minBars, _ := s.setting.GetInt("metrics_min_bars", settings.DefaultInt("metrics_min_bars"))
	atrPeriod, _ := s.setting.GetInt("atr_period", settings.DefaultInt("atr_period"))
	threshold, _ := s.setting.GetFloat("lateral_trend_atr_threshold", settings.DefaultFloat("lateral_trend_atr_threshold"))

	return NewCalculator(CalcParams{
		MinBars:             minBars,
		ATRPeriod:           atrPeriod,
		LateralATRThreshold: threshold,
	})
}

func (s *Service) calculateOne(calc *Calculator, security domain.Security, quote *domain.Quote) error {
	symbol := security.Symbol

	prices, err := s.history.GetDailyPricesAsc(symbol, BarWindow52w)
	if err != nil {
		return err
	}

	values, err := calc.Calculate(symbol, prices)
	if err != nil {
		return err
	}

	if quote != nil {
		if quote.TrailingPE != nil {
			values[MetricPERatio] = *quote.TrailingPE
		}
		if quote.MarketCap != nil {
			values[MetricMarketCapMillions] = *quote.MarketCap / 1e6
		}
	}

	// The quote carries the freshest earnings date; the stored security
	// is the fallback
	earnings := security.NextEarnings
	if quote != nil && quote.EarningsTimestamp != nil {
		earnings = quote.EarningsTimestamp
	}
	if earnings != nil {
		if days := int(time.Until(*earnings).Hours() / 24); days >= 0 {
			values[MetricDaysToEarnings] = float64(days)
		}
	}

	asOf := prices[len(prices)-1].Date
	if err := s.repo.UpsertMetrics(symbol, asOf, values); err != nil {
		return &domain.PersistenceError{Op: "upsert metrics for " + symbol, Err: err}
	}

	return nil
}
