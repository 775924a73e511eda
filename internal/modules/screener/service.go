package screener

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/put-screener/internal/domain"
	"github.com/aristath/put-screener/internal/modules/metrics"
)

// UniverseReader exposes the candidate stocks. Benchmark ETFs are not
// candidates; their metrics arrive through the metrics reader.
type UniverseReader interface {
	GetActiveStocks() ([]domain.Security, error)
}

// MetricsReader exposes each symbol's latest computed metrics.
type MetricsReader interface {
	GetAllLatestMetrics() (map[string]*metrics.TickerMetrics, error)
}

// OptionsClient fetches options chains. The nil expiration form returns
// all listed expirations with the nearest expiration's puts.
type OptionsClient interface {
	GetOptionsChain(ctx context.Context, symbol string, expiration *time.Time) (*domain.OptionChain, error)
}

// Service orchestrates a screening run: cheapest gates first per ticker,
// options selection last, results ranked by annualized yield. A run is
// single-threaded and blocking; callers serialize runs and put it on a
// background goroutine themselves.
type Service struct {
	repo     *Repository
	universe UniverseReader
	metrics  MetricsReader
	options  OptionsClient
	setting  SettingsReader
	log      zerolog.Logger
}

// NewService creates a new screener service
func NewService(repo *Repository, universe UniverseReader, metricsReader MetricsReader, options OptionsClient, setting SettingsReader, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		universe: universe,
		metrics:  metricsReader,
		options:  options,
		setting:  setting,
		log:      log.With().Str("service", "screener").Logger(),
	}
}

// runPass carries the per-run state threaded through the ticker loop.
type runPass struct {
	cfg      *Config
	filter   *FundamentalsFilter
	selector *OptionsSelector
	metrics  map[string]*metrics.TickerMetrics
	market   *metrics.TickerMetrics
	cutoff   string
	runID    string
	started  time.Time
	total    int
	emit     ProgressFunc
}

// Run executes one screening run to completion and persists the
// outcome. One ticker's failure never aborts the run; configuration and
// persistence failures do. On a persistence failure the in-memory
// report is returned alongside the error.
func (s *Service) Run(ctx context.Context, opts RunOptions) (*RunReport, error) {
	startedAt := time.Now().UTC()
	run := Run{RunID: uuid.NewString(), CreatedAt: startedAt, Status: RunFailed}

	emit := func(p Progress) {
		if opts.Progress != nil {
			opts.Progress(p)
		}
	}
	emit(Progress{State: StateInit})

	cfg, err := LoadConfig(s.setting)
	if err != nil {
		s.recordFailedRun(&run, startedAt)
		emit(Progress{State: StateFailed})
		return nil, err
	}

	stocks, err := s.universe.GetActiveStocks()
	if err != nil {
		s.recordFailedRun(&run, startedAt)
		emit(Progress{State: StateFailed})
		return nil, fmt.Errorf("failed to load universe: %w", err)
	}
	stocks = filterBySymbols(stocks, opts.Symbols)
	if len(stocks) == 0 {
		s.recordFailedRun(&run, startedAt)
		emit(Progress{State: StateFailed})
		return nil, &domain.DataUnavailableError{Reason: "no securities to screen"}
	}

	metricsBySymbol, err := s.metrics.GetAllLatestMetrics()
	if err != nil {
		s.recordFailedRun(&run, startedAt)
		emit(Progress{State: StateFailed})
		return nil, fmt.Errorf("failed to load metrics: %w", err)
	}
	emit(Progress{State: StateUniverseLoaded, Total: len(stocks)})

	s.log.Info().
		Str("run_id", run.RunID).
		Int("candidates", len(stocks)).
		Str("market_etf", cfg.MarketETF).
		Msg("Starting screening run")

	pass := &runPass{
		cfg:      cfg,
		filter:   NewFundamentalsFilter(cfg),
		selector: NewOptionsSelector(cfg),
		metrics:  metricsBySymbol,
		market:   metricsBySymbol[cfg.MarketETF],
		cutoff:   startedAt.AddDate(0, 0, -cfg.StalenessDays).Format("2006-01-02"),
		runID:    run.RunID,
		started:  startedAt,
		total:    len(stocks),
		emit:     emit,
	}

	skips := make(map[string]int)
	var results []Opportunity
	for i, stock := range stocks {
		opp, reason := s.screenTicker(ctx, pass, i, stock)
		if reason != "" {
			skips[reason]++
			continue
		}
		results = append(results, *opp)
	}

	emit(Progress{State: StateAggregated, Index: len(stocks), Total: len(stocks)})
	sort.Slice(results, func(i, j int) bool {
		return results[i].AnnualizedYield > results[j].AnnualizedYield
	})

	run.Status = RunCompleted
	run.Screened = len(stocks)
	run.Passed = len(results)
	for _, count := range skips {
		run.Skipped += count
	}
	run.DurationMS = time.Since(startedAt).Milliseconds()

	report := &RunReport{Run: run, Skips: skips, Results: results}

	if err := s.repo.SaveRun(&run, skips, results); err != nil {
		emit(Progress{State: StateFailed, Index: len(stocks), Total: len(stocks)})
		// The caller still gets the in-memory results to report or retry
		return report, &domain.PersistenceError{Op: "save screening run", Err: err}
	}
	emit(Progress{State: StatePersisted, Index: len(stocks), Total: len(stocks)})

	s.log.Info().
		Str("run_id", run.RunID).
		Int("passed", run.Passed).
		Int("skipped", run.Skipped).
		Int64("duration_ms", run.DurationMS).
		Msg("Screening run complete")

	emit(Progress{State: StateDone, Index: len(stocks), Total: len(stocks)})
	return report, nil
}

// screenTicker runs one stock through the gate chain. Returns the
// opportunity on a full pass, or the skip reason.
func (s *Service) screenTicker(ctx context.Context, pass *runPass, index int, stock domain.Security) (*Opportunity, string) {
	symbol := stock.Symbol
	progress := func(stage string) {
		pass.emit(Progress{State: StateTickerLoop, Stage: stage, Symbol: symbol, Index: index, Total: pass.total})
	}

	progress(StageMetrics)
	m := pass.metrics[symbol]
	if m == nil {
		return nil, SkipNoMetrics
	}
	if m.Date < pass.cutoff {
		return nil, SkipStaleMetrics
	}
	spot := m.Get(metrics.MetricLatestClose)
	if spot == nil || *spot <= 0 {
		return nil, SkipNoMetrics
	}

	progress(StagePrefilter)
	if reason := pass.filter.Prefilter(m); reason != "" {
		return nil, reason
	}

	progress(StageRelativeStrength)
	var sectorMetrics *metrics.TickerMetrics
	if stock.SectorETF != "" {
		sectorMetrics = pass.metrics[stock.SectorETF]
	}
	stockPct := m.Get(metrics.MetricPct52w)
	sectorPct := sectorMetrics.Get(metrics.MetricPct52w)
	marketPct := pass.market.Get(metrics.MetricPct52w)
	if !RelativeStrengthQualifies(stockPct, sectorPct, marketPct) {
		return nil, SkipRelativeStrength
	}

	progress(StageValuation)
	stockPE := m.Get(metrics.MetricPERatio)
	sectorPE := sectorMetrics.Get(metrics.MetricPERatio)
	marketPE := pass.market.Get(metrics.MetricPERatio)
	if reason := pass.filter.Valuation(stockPE, sectorPE, marketPE); reason != "" {
		return nil, reason
	}

	progress(StageOptions)
	chain, err := s.options.GetOptionsChain(ctx, symbol, nil)
	if err != nil {
		// External failures are a per-ticker skip, never a run abort
		s.log.Debug().Err(err).Str("symbol", symbol).Msg("Options chain fetch failed")
		return nil, SkipNoChain
	}

	expiration, dte := pass.selector.SelectExpiration(chain.Expirations, pass.started)
	if expiration == nil {
		return nil, SkipNoExpiration
	}

	puts := PutsForExpiration(chain.Puts, *expiration)
	if len(puts) == 0 {
		refetched, err := s.options.GetOptionsChain(ctx, symbol, expiration)
		if err != nil {
			s.log.Debug().Err(err).Str("symbol", symbol).Msg("Options chain fetch failed")
			return nil, SkipNoChain
		}
		puts = PutsForExpiration(refetched.Puts, *expiration)
	}

	spotPrice := *spot
	if chain.UnderlyingPrice != nil && *chain.UnderlyingPrice > 0 {
		spotPrice = *chain.UnderlyingPrice
	}

	candidate, reason := pass.selector.SelectContract(puts, *expiration, spotPrice, dte)
	if reason != "" {
		return nil, reason
	}

	return s.buildOpportunity(pass, stock, m, candidate, spotPrice, *stockPct, *sectorPct, *marketPct, *stockPE, *sectorPE, *marketPE), ""
}

func (s *Service) buildOpportunity(pass *runPass, stock domain.Security, m *metrics.TickerMetrics, candidate *PutCandidate, spot, stockPct, sectorPct, marketPct, stockPE, sectorPE, marketPE float64) *Opportunity {
	opp := &Opportunity{
		RunID:           pass.runID,
		CreatedAt:       pass.started,
		Symbol:          stock.Symbol,
		Sector:          stock.Sector,
		SectorETF:       stock.SectorETF,
		Industry:        stock.Industry,
		StockPrice:      spot,
		Stock52wPct:     stockPct,
		Sector52wPct:    sectorPct,
		Market52wPct:    marketPct,
		PERatio:         stockPE,
		SectorPE:        sectorPE,
		MarketPE:        marketPE,
		Week52High:      m.Get(metrics.MetricWeek52High),
		Week52Low:       m.Get(metrics.MetricWeek52Low),
		ATRPct:          m.Get(metrics.MetricATRPct),
		IsLateral:       m.IsLateral(),
		Expiration:      candidate.Expiration,
		PutStrike:       candidate.Contract.Strike,
		DTE:             candidate.DTE,
		Bid:             candidate.Contract.Bid,
		Ask:             candidate.Contract.Ask,
		OpenInterest:    candidate.Contract.OpenInterest,
		Premium:         candidate.Premium,
		AnnualizedYield: candidate.AnnualizedYield,
		ContractsNeeded: int(math.Floor(pass.cfg.TargetPremiumThousands * 1000 / (spot * 100))),
		ChartURL:        fmt.Sprintf("https://finance.yahoo.com/chart/%s", stock.Symbol),
		OptionsURL:      fmt.Sprintf("https://finance.yahoo.com/quote/%s/options?date=%d", stock.Symbol, candidate.Expiration.Unix()),
	}

	if mcap := m.Get(metrics.MetricMarketCapMillions); mcap != nil {
		opp.MarketCapMillions = *mcap
	}
	if volume := m.Get(metrics.MetricAvgDollarVolume); volume != nil {
		opp.AvgVolumeMillions = *volume
	}

	spread := candidate.Spread
	opp.Spread = &spread

	if high := opp.Week52High; high != nil && *high > 0 {
		dist := (*high - spot) / *high
		opp.DistHighPct = &dist
	}
	if low := opp.Week52Low; low != nil && *low > 0 {
		dist := (spot - *low) / *low
		opp.DistLowPct = &dist
	}
	if days := m.Get(metrics.MetricDaysToEarnings); days != nil {
		d := int(*days)
		opp.DaysToEarnings = &d
	}

	return opp
}

// recordFailedRun persists a failed run row so the run history shows
// the attempt. Best effort; the original failure is what gets surfaced.
func (s *Service) recordFailedRun(run *Run, startedAt time.Time) {
	run.DurationMS = time.Since(startedAt).Milliseconds()
	if err := s.repo.SaveRun(run, nil, nil); err != nil {
		s.log.Warn().Err(err).Str("run_id", run.RunID).Msg("Failed to record failed run")
	}
}

func filterBySymbols(stocks []domain.Security, symbols []string) []domain.Security {
	if len(symbols) == 0 {
		return stocks
	}

	wanted := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		wanted[normalizeSymbol(symbol)] = true
	}

	var filtered []domain.Security
	for _, stock := range stocks {
		if wanted[stock.Symbol] {
			filtered = append(filtered, stock)
		}
	}
	return filtered
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
