package universe

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/put-screener/internal/database"
	"github.com/aristath/put-screener/internal/domain"
)

// Repository handles security database operations
// Database: universe.db (securities table)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// securitiesColumns is the list of columns for the securities table
// Used to avoid SELECT * which can break when schema changes
const securitiesColumns = `symbol, name, sector, industry, sector_etf, market_cap,
shares_outstanding, next_earnings, is_sector_etf, is_market_etf, active, added_at, updated_at`

// NewRepository creates a new security repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "universe").Logger(),
	}
}

// GetBySymbol returns a security by symbol, or nil when unknown.
func (r *Repository) GetBySymbol(symbol string) (*domain.Security, error) {
	query := "SELECT " + securitiesColumns + " FROM securities WHERE symbol = ?"

	rows, err := r.db.Query(query, normalizeSymbol(symbol))
	if err != nil {
		return nil, fmt.Errorf("failed to query security by symbol: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}

	security, err := scanSecurity(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan security: %w", err)
	}

	return &security, nil
}

// GetAllActive returns all active securities including benchmark ETFs.
func (r *Repository) GetAllActive() ([]domain.Security, error) {
	return r.query("SELECT " + securitiesColumns + " FROM securities WHERE active = 1 ORDER BY symbol")
}

// GetActiveStocks returns active securities that are screen candidates,
// excluding the benchmark ETFs.
func (r *Repository) GetActiveStocks() ([]domain.Security, error) {
	return r.query("SELECT " + securitiesColumns + ` FROM securities
		WHERE active = 1 AND is_sector_etf = 0 AND is_market_etf = 0
		ORDER BY symbol`)
}

// GetBenchmarkETFs returns the sector and market proxy ETFs.
func (r *Repository) GetBenchmarkETFs() ([]domain.Security, error) {
	return r.query("SELECT " + securitiesColumns + ` FROM securities
		WHERE active = 1 AND (is_sector_etf = 1 OR is_market_etf = 1)
		ORDER BY symbol`)
}

// GetAll returns all securities (active and inactive)
func (r *Repository) GetAll() ([]domain.Security, error) {
	return r.query("SELECT " + securitiesColumns + " FROM securities ORDER BY symbol")
}

func (r *Repository) query(query string, args ...interface{}) ([]domain.Security, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query securities: %w", err)
	}
	defer rows.Close()

	var securities []domain.Security
	for rows.Next() {
		security, err := scanSecurity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan security: %w", err)
		}
		securities = append(securities, security)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating securities: %w", err)
	}

	return securities, nil
}

// Upsert inserts or updates a security by symbol. added_at survives
// updates; updated_at always moves forward.
func (r *Repository) Upsert(security domain.Security) error {
	return r.upsertTx(r.db, security)
}

// UpsertBatch writes many securities in a single transaction.
func (r *Repository) UpsertBatch(securities []domain.Security) error {
	if len(securities) == 0 {
		return nil
	}

	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		for _, security := range securities {
			if err := r.upsertTx(tx, security); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().Int("count", len(securities)).Msg("Upserted securities")
	return nil
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (r *Repository) upsertTx(ex execer, security domain.Security) error {
	symbol := normalizeSymbol(security.Symbol)
	if symbol == "" {
		return fmt.Errorf("symbol is required for security upsert")
	}

	now := time.Now().UTC().Format(time.RFC3339)

	var nextEarnings sql.NullString
	if security.NextEarnings != nil {
		nextEarnings = sql.NullString{String: security.NextEarnings.UTC().Format(time.RFC3339), Valid: true}
	}

	_, err := ex.Exec(`
		INSERT INTO securities
		(symbol, name, sector, industry, sector_etf, market_cap, shares_outstanding,
		 next_earnings, is_sector_etf, is_market_etf, active, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			name = excluded.name,
			sector = excluded.sector,
			industry = excluded.industry,
			sector_etf = excluded.sector_etf,
			market_cap = excluded.market_cap,
			shares_outstanding = excluded.shares_outstanding,
			next_earnings = excluded.next_earnings,
			is_sector_etf = excluded.is_sector_etf,
			is_market_etf = excluded.is_market_etf,
			active = excluded.active,
			updated_at = excluded.updated_at
	`,
		symbol,
		security.Name,
		nullString(security.Sector),
		nullString(security.Industry),
		nullString(security.SectorETF),
		nullFloat64Ptr(security.MarketCap),
		nullFloat64Ptr(security.SharesOutstanding),
		nextEarnings,
		boolToInt(security.IsSectorETF),
		boolToInt(security.IsMarketETF),
		boolToInt(security.Active),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert security %s: %w", symbol, err)
	}

	return nil
}

// SetActive flips the active flag without touching the rest of the row.
func (r *Repository) SetActive(symbol string, active bool) error {
	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.Exec(
		"UPDATE securities SET active = ?, updated_at = ? WHERE symbol = ?",
		boolToInt(active), now, normalizeSymbol(symbol),
	)
	if err != nil {
		return fmt.Errorf("failed to update security %s: %w", symbol, err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("security not found: %s", symbol)
	}

	r.log.Info().Str("symbol", symbol).Bool("active", active).Msg("Security active flag updated")
	return nil
}

// Stats returns counts by category plus a per-sector breakdown of stocks.
func (r *Repository) Stats() (*Stats, error) {
	stats := &Stats{Sectors: make(map[string]int)}

	err := r.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN active = 1 AND is_sector_etf = 0 AND is_market_etf = 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN active = 1 AND is_sector_etf = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN active = 1 AND is_market_etf = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN active = 0 THEN 1 ELSE 0 END), 0)
		FROM securities
	`).Scan(&stats.Total, &stats.ActiveStocks, &stats.SectorETFs, &stats.MarketETFs, &stats.Inactive)
	if err != nil {
		return nil, fmt.Errorf("failed to query universe stats: %w", err)
	}

	rows, err := r.db.Query(`
		SELECT sector, COUNT(*) FROM securities
		WHERE active = 1 AND is_sector_etf = 0 AND is_market_etf = 0 AND sector IS NOT NULL AND sector != ''
		GROUP BY sector
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sector breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sector string
		var count int
		if err := rows.Scan(&sector, &count); err != nil {
			return nil, fmt.Errorf("failed to scan sector count: %w", err)
		}
		stats.Sectors[sector] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sector counts: %w", err)
	}

	return stats, nil
}

func scanSecurity(rows *sql.Rows) (domain.Security, error) {
	var s domain.Security
	var sector, industry, sectorETF, nextEarnings, addedAt, updatedAt sql.NullString
	var marketCap, sharesOutstanding sql.NullFloat64
	var isSectorETF, isMarketETF, active int

	err := rows.Scan(
		&s.Symbol, &s.Name, &sector, &industry, &sectorETF,
		&marketCap, &sharesOutstanding, &nextEarnings,
		&isSectorETF, &isMarketETF, &active, &addedAt, &updatedAt,
	)
	if err != nil {
		return s, err
	}

	s.Sector = sector.String
	s.Industry = industry.String
	s.SectorETF = sectorETF.String
	if marketCap.Valid {
		s.MarketCap = &marketCap.Float64
	}
	if sharesOutstanding.Valid {
		s.SharesOutstanding = &sharesOutstanding.Float64
	}
	if nextEarnings.Valid && nextEarnings.String != "" {
		if t, err := time.Parse(time.RFC3339, nextEarnings.String); err == nil {
			s.NextEarnings = &t
		}
	}
	s.IsSectorETF = isSectorETF == 1
	s.IsMarketETF = isMarketETF == 1
	s.Active = active == 1
	if addedAt.Valid {
		if t, err := time.Parse(time.RFC3339, addedAt.String); err == nil {
			s.AddedAt = t
		}
	}
	if updatedAt.Valid {
		if t, err := time.Parse(time.RFC3339, updatedAt.String); err == nil {
			s.UpdatedAt = t
		}
	}

	return s, nil
}

// Helper functions

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullFloat64Ptr(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
