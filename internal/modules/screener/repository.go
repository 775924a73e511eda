package screener

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"
)

const resultColumns = `id, run_id, symbol, stock_price, sector, sector_etf, industry,
stock_52w_pct, week52_high, week52_low, dist_high_pct, dist_low_pct,
sector_52w_pct, market_52w_pct, pe_ratio, sector_pe, market_pe,
market_cap_millions, avg_volume_millions, atr_pct, is_lateral,
put_strike, expiration, dte, bid, ask, spread, premium, annualized_yield,
open_interest, contracts_needed, days_to_earnings, chart_url, options_url, created_at`

// Repository persists screening runs and their ranked results.
// Database: results.db (screening_runs, screening_skips, screening_results)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new screener repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "screener").Logger(),
	}
}

// SaveRun persists a run's summary row, its per-reason skip counts, and
// its ranked results as one batch. Result rows are insert-only; a run is
// written exactly once.
func (r *Repository) SaveRun(run *Run, skips map[string]int, results []Opportunity) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be no-op if Commit succeeds

	_, err = tx.Exec(`
		INSERT INTO screening_runs (run_id, created_at, screened, passed, skipped, status, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.RunID, run.CreatedAt.UTC().Format(time.RFC3339), run.Screened, run.Passed, run.Skipped, run.Status, run.DurationMS)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	reasons := make([]string, 0, len(skips))
	for reason := range skips {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		if _, err := tx.Exec(
			"INSERT INTO screening_skips (run_id, reason, count) VALUES (?, ?, ?)",
			run.RunID, reason, skips[reason],
		); err != nil {
			return fmt.Errorf("failed to insert skip count: %w", err)
		}
	}

	if len(results) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO screening_results (run_id, symbol, stock_price, sector, sector_etf, industry,
				stock_52w_pct, week52_high, week52_low, dist_high_pct, dist_low_pct,
				sector_52w_pct, market_52w_pct, pe_ratio, sector_pe, market_pe,
				market_cap_millions, avg_volume_millions, atr_pct, is_lateral,
				put_strike, expiration, dte, bid, ask, spread, premium, annualized_yield,
				open_interest, contracts_needed, days_to_earnings, chart_url, options_url, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, opp := range results {
			_, err := stmt.Exec(
				run.RunID, opp.Symbol, opp.StockPrice, opp.Sector, opp.SectorETF, opp.Industry,
				opp.Stock52wPct, nullFloat(opp.Week52High), nullFloat(opp.Week52Low),
				nullFloat(opp.DistHighPct), nullFloat(opp.DistLowPct),
				opp.Sector52wPct, opp.Market52wPct, opp.PERatio, opp.SectorPE, opp.MarketPE,
				opp.MarketCapMillions, opp.AvgVolumeMillions, nullFloat(opp.ATRPct), boolToInt(opp.IsLateral),
				opp.PutStrike, opp.Expiration.UTC().Format("2006-01-02"), opp.DTE,
				nullFloat(opp.Bid), nullFloat(opp.Ask), nullFloat(opp.Spread),
				opp.Premium, opp.AnnualizedYield,
				nullInt64(opp.OpenInterest), opp.ContractsNeeded, nullInt(opp.DaysToEarnings),
				opp.ChartURL, opp.OptionsURL, opp.CreatedAt.UTC().Format(time.RFC3339),
			)
			if err != nil {
				return fmt.Errorf("failed to insert result for %s: %w", opp.Symbol, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.log.Info().
		Str("run_id", run.RunID).
		Str("status", run.Status).
		Int("passed", run.Passed).
		Int("skipped", run.Skipped).
		Msg("Saved screening run")

	return nil
}

// GetRun returns one run's summary row, or nil when unknown.
func (r *Repository) GetRun(runID string) (*Run, error) {
	rows, err := r.db.Query(`
		SELECT run_id, created_at, screened, passed, skipped, status, duration_ms
		FROM screening_runs WHERE run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}

	run, err := scanRun(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	return &run, nil
}

// GetLatestRun returns the most recent completed run, or nil when no
// run has completed yet.
func (r *Repository) GetLatestRun() (*Run, error) {
	rows, err := r.db.Query(`
		SELECT run_id, created_at, screened, passed, skipped, status, duration_ms
		FROM screening_runs
		WHERE status = ?
		ORDER BY created_at DESC LIMIT 1
	`, RunCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}

	run, err := scanRun(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	return &run, nil
}

// ListRuns returns recent runs, newest first.
func (r *Repository) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(`
		SELECT run_id, created_at, screened, passed, skipped, status, duration_ms
		FROM screening_runs
		ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// GetResults returns a run's opportunities ranked by annualized yield
// descending.
func (r *Repository) GetResults(runID string) ([]Opportunity, error) {
	rows, err := r.db.Query(
		"SELECT "+resultColumns+" FROM screening_results WHERE run_id = ? ORDER BY annualized_yield DESC",
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []Opportunity
	for rows.Next() {
		opp, err := scanOpportunity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, opp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return results, nil
}

// GetSkips returns a run's per-reason skip counts.
func (r *Repository) GetSkips(runID string) (map[string]int, error) {
	rows, err := r.db.Query("SELECT reason, count FROM screening_skips WHERE run_id = ?", runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query skips: %w", err)
	}
	defer rows.Close()

	skips := make(map[string]int)
	for rows.Next() {
		var reason string
		var count int
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, fmt.Errorf("failed to scan skip count: %w", err)
		}
		skips[reason] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating skips: %w", err)
	}

	return skips, nil
}

func scanRun(rows *sql.Rows) (Run, error) {
	var run Run
	var createdAt string

	if err := rows.Scan(&run.RunID, &createdAt, &run.Screened, &run.Passed, &run.Skipped, &run.Status, &run.DurationMS); err != nil {
		return run, err
	}

	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		run.CreatedAt = t
	}
	return run, nil
}

func scanOpportunity(rows *sql.Rows) (Opportunity, error) {
	var opp Opportunity
	var sector, sectorETF, industry, chartURL, optionsURL sql.NullString
	var week52High, week52Low, distHigh, distLow, atrPct, bid, ask, spread sql.NullFloat64
	var openInterest, daysToEarnings sql.NullInt64
	var isLateral int
	var expiration, createdAt string

	err := rows.Scan(
		&opp.ID, &opp.RunID, &opp.Symbol, &opp.StockPrice, &sector, &sectorETF, &industry,
		&opp.Stock52wPct, &week52High, &week52Low, &distHigh, &distLow,
		&opp.Sector52wPct, &opp.Market52wPct, &opp.PERatio, &opp.SectorPE, &opp.MarketPE,
		&opp.MarketCapMillions, &opp.AvgVolumeMillions, &atrPct, &isLateral,
		&opp.PutStrike, &expiration, &opp.DTE, &bid, &ask, &spread,
		&opp.Premium, &opp.AnnualizedYield,
		&openInterest, &opp.ContractsNeeded, &daysToEarnings, &chartURL, &optionsURL, &createdAt,
	)
	if err != nil {
		return opp, err
	}

	opp.Sector = sector.String
	opp.SectorETF = sectorETF.String
	opp.Industry = industry.String
	opp.ChartURL = chartURL.String
	opp.OptionsURL = optionsURL.String
	opp.IsLateral = isLateral != 0

	opp.Week52High = floatPtrFromNull(week52High)
	opp.Week52Low = floatPtrFromNull(week52Low)
	opp.DistHighPct = floatPtrFromNull(distHigh)
	opp.DistLowPct = floatPtrFromNull(distLow)
	opp.ATRPct = floatPtrFromNull(atrPct)
	opp.Bid = floatPtrFromNull(bid)
	opp.Ask = floatPtrFromNull(ask)
	opp.Spread = floatPtrFromNull(spread)

	if openInterest.Valid {
		opp.OpenInterest = &openInterest.Int64
	}
	if daysToEarnings.Valid {
		days := int(daysToEarnings.Int64)
		opp.DaysToEarnings = &days
	}

	if t, err := time.Parse("2006-01-02", expiration); err == nil {
		opp.Expiration = t
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		opp.CreatedAt = t
	}

	return opp, nil
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func floatPtrFromNull(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return &n.Float64
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
