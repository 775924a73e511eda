package universe

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/put-screener/internal/domain"
	"github.com/aristath/put-screener/internal/modules/settings"
)

// Service handles universe population and maintenance. Stocks come in
// either manually or from the Yahoo equity screener; the benchmark ETFs
// are seeded alongside so relative-strength comparisons always have
// their proxies.
type Service struct {
	repo    *Repository
	client  QuoteClient
	setting SettingsReader
	log     zerolog.Logger
}

// NewService creates a new universe service
func NewService(repo *Repository, client QuoteClient, setting SettingsReader, log zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		client:  client,
		setting: setting,
		log:     log.With().Str("service", "universe").Logger(),
	}
}

// EnsureBenchmarks upserts the sector and market proxy ETFs. Names come
// from a quote fetch when available; a failed fetch still seeds the rows
// with the symbol as the name.
func (s *Service) EnsureBenchmarks(ctx context.Context) (int, error) {
	symbols := append(domain.AllSectorETFs(), domain.MarketETFs...)

	quotes, err := s.client.GetQuotes(ctx, symbols)
	if err != nil {
		s.log.Warn().Err(err).Msg("Benchmark quote fetch failed, seeding with symbols only")
		quotes = map[string]*domain.Quote{}
	}

	etfs := make([]domain.Security, 0, len(symbols))
	for _, symbol := range symbols {
		sec := domain.Security{
			Symbol:      symbol,
			Name:        symbol,
			IsSectorETF: !domain.IsMarketETF(symbol),
			IsMarketETF: domain.IsMarketETF(symbol),
			Active:      true,
		}
		if quote, ok := quotes[symbol]; ok && quote.Name != "" {
			sec.Name = quote.Name
		}
		etfs = append(etfs, sec)
	}

	if err := s.repo.UpsertBatch(etfs); err != nil {
		return 0, fmt.Errorf("failed to seed benchmark ETFs: %w", err)
	}

	s.log.Info().Int("count", len(etfs)).Msg("Benchmark ETFs ensured")
	return len(etfs), nil
}

// AddSymbols fetches quotes for the requested tickers and adds the ones
// Yahoo recognizes as equities. Unknown tickers and non-equity quote
// types are reported as skipped.
func (s *Service) AddSymbols(ctx context.Context, symbols []string) (*AddSymbolsResponse, error) {
	if len(symbols) == 0 {
		return &AddSymbolsResponse{Added: []string{}, Skipped: []string{}}, nil
	}

	normalized := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if n := normalizeSymbol(symbol); n != "" {
			normalized = append(normalized, n)
		}
	}

	quotes, err := s.client.GetQuotes(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quotes: %w", err)
	}

	resp := &AddSymbolsResponse{Added: []string{}, Skipped: []string{}}
	var toUpsert []domain.Security

	for _, symbol := range normalized {
		quote, ok := quotes[symbol]
		if !ok || quote.QuoteType != "EQUITY" {
			resp.Skipped = append(resp.Skipped, symbol)
			continue
		}

		toUpsert = append(toUpsert, securityFromQuote(quote))
		resp.Added = append(resp.Added, symbol)
	}

	if err := s.repo.UpsertBatch(toUpsert); err != nil {
		return nil, err
	}

	s.log.Info().
		Int("added", len(resp.Added)).
		Int("skipped", len(resp.Skipped)).
		Msg("Symbols added to universe")

	return resp, nil
}

// PopulateFromScreen seeds the universe from the Yahoo equity screener:
// US stocks above the configured market cap floor, largest first. The
// benchmark ETFs are ensured in the same pass.
func (s *Service) PopulateFromScreen(ctx context.Context, limit int) (*PopulateResponse, error) {
	if limit <= 0 {
		limit, _ = s.setting.GetInt("universe_screen_limit", settings.DefaultInt("universe_screen_limit"))
	}

	minCapMillions, _ := s.setting.GetFloat("market_cap_min_millions", settings.DefaultFloat("market_cap_min_millions"))

	benchmarks, err := s.EnsureBenchmarks(ctx)
	if err != nil {
		return nil, err
	}

	quotes, err := s.client.ScreenUSEquities(ctx, minCapMillions*1e6, limit)
	if err != nil {
		return nil, fmt.Errorf("equity screen failed: %w", err)
	}

	var toUpsert []domain.Security
	for i := range quotes {
		quote := &quotes[i]
		if quote.QuoteType != "" && quote.QuoteType != "EQUITY" {
			continue
		}
		toUpsert = append(toUpsert, securityFromQuote(quote))
	}

	if err := s.repo.UpsertBatch(toUpsert); err != nil {
		return nil, err
	}

	s.log.Info().
		Int("screened", len(quotes)).
		Int("upserted", len(toUpsert)).
		Msg("Universe populated from equity screen")

	return &PopulateResponse{
		Screened:   len(quotes),
		Upserted:   len(toUpsert),
		Benchmarks: benchmarks,
	}, nil
}

// RefreshQuotes re-fetches quote metadata for every active security so
// sector assignments, market caps, and earnings dates stay current.
func (s *Service) RefreshQuotes(ctx context.Context) (int, error) {
	securities, err := s.repo.GetAllActive()
	if err != nil {
		return 0, err
	}
	if len(securities) == 0 {
		return 0, nil
	}

	symbols := make([]string, len(securities))
	bySymbol := make(map[string]*domain.Security, len(securities))
	for i := range securities {
		symbols[i] = securities[i].Symbol
		bySymbol[securities[i].Symbol] = &securities[i]
	}

	quotes, err := s.client.GetQuotes(ctx, symbols)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch quotes: %w", err)
	}

	var toUpsert []domain.Security
	for symbol, quote := range quotes {
		existing, ok := bySymbol[symbol]
		if !ok {
			continue
		}

		updated := securityFromQuote(quote)
		// ETF flags never come from quote refresh
		updated.IsSectorETF = existing.IsSectorETF
		updated.IsMarketETF = existing.IsMarketETF
		if updated.IsSectorETF || updated.IsMarketETF {
			updated.SectorETF = ""
		}
		toUpsert = append(toUpsert, updated)
	}

	if err := s.repo.UpsertBatch(toUpsert); err != nil {
		return 0, err
	}

	s.log.Info().Int("refreshed", len(toUpsert)).Msg("Quote metadata refreshed")
	return len(toUpsert), nil
}

// Deactivate marks a security inactive so syncs and screens skip it.
func (s *Service) Deactivate(symbol string) error {
	return s.repo.SetActive(symbol, false)
}

// Reactivate brings a previously deactivated security back.
func (s *Service) Reactivate(symbol string) error {
	return s.repo.SetActive(symbol, true)
}

// securityFromQuote builds a securities row from a quote snapshot. The
// sector ETF assignment happens here; stocks in unmapped sectors keep an
// empty sector_etf and fail the relative-strength gate later.
func securityFromQuote(quote *domain.Quote) domain.Security {
	sec := domain.Security{
		Symbol:            quote.Symbol,
		Name:              quote.Name,
		Sector:            quote.Sector,
		Industry:          quote.Industry,
		MarketCap:         quote.MarketCap,
		SharesOutstanding: quote.SharesOutstanding,
		NextEarnings:      quote.EarningsTimestamp,
		Active:            true,
	}
	if sec.Name == "" {
		sec.Name = quote.Symbol
	}
	if etf, ok := domain.SectorETFFor(quote.Sector); ok {
		sec.SectorETF = etf
	}
	return sec
}
