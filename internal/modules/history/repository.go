package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"

	"github.com/aristath/put-screener/internal/domain"
)

// Repository provides access to cached daily prices and sync status
// Database: history.db (daily_prices, sync_status tables)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new history repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "history").Logger(),
	}
}

// UpsertDailyPrices inserts or replaces daily bars for a symbol in a
// single transaction.
func (r *Repository) UpsertDailyPrices(symbol string, prices []domain.DailyPrice) error {
	if len(prices) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be no-op if Commit succeeds

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO daily_prices
		(symbol, date, open, high, low, close, adj_close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, price := range prices {
		adjClose := sql.NullFloat64{}
		if price.AdjClose != nil {
			adjClose = sql.NullFloat64{Float64: *price.AdjClose, Valid: true}
		}
		volume := sql.NullInt64{}
		if price.Volume != nil {
			volume = sql.NullInt64{Int64: *price.Volume, Valid: true}
		}

		_, err = stmt.Exec(symbol, price.Date, price.Open, price.High, price.Low, price.Close, adjClose, volume)
		if err != nil {
			return fmt.Errorf("failed to insert daily price for %s: %w", price.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.log.Debug().
		Str("symbol", symbol).
		Int("count", len(prices)).
		Msg("Upserted daily prices")

	return nil
}

// GetDailyPricesAsc fetches daily bars for a symbol in ascending date
// order. With limit > 0 only the most recent limit bars are returned,
// still ascending.
func (r *Repository) GetDailyPricesAsc(symbol string, limit int) ([]domain.DailyPrice, error) {
	query := `
		SELECT date, open, high, low, close, adj_close, volume
		FROM daily_prices
		WHERE symbol = ?
		ORDER BY date ASC
	`
	args := []interface{}{symbol}

	if limit > 0 {
		query = `
			SELECT date, open, high, low, close, adj_close, volume FROM (
				SELECT date, open, high, low, close, adj_close, volume
				FROM daily_prices
				WHERE symbol = ?
				ORDER BY date DESC
				LIMIT ?
			) ORDER BY date ASC
		`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily prices: %w", err)
	}
	defer rows.Close()

	var prices []domain.DailyPrice
	for rows.Next() {
		var p domain.DailyPrice
		var adjClose sql.NullFloat64
		var volume sql.NullInt64

		if err := rows.Scan(&p.Date, &p.Open, &p.High, &p.Low, &p.Close, &adjClose, &volume); err != nil {
			return nil, fmt.Errorf("failed to scan daily price: %w", err)
		}

		if adjClose.Valid {
			p.AdjClose = &adjClose.Float64
		}
		if volume.Valid {
			p.Volume = &volume.Int64
		}

		prices = append(prices, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily prices: %w", err)
	}

	return prices, nil
}

// GetLatestDate returns the most recent bar date for a symbol, or nil
// when no bars are cached.
func (r *Repository) GetLatestDate(symbol string) (*string, error) {
	var date sql.NullString
	err := r.db.QueryRow(
		"SELECT MAX(date) FROM daily_prices WHERE symbol = ?",
		symbol,
	).Scan(&date)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest date: %w", err)
	}

	if !date.Valid || date.String == "" {
		return nil, nil
	}
	return &date.String, nil
}

// CountBars returns the number of cached bars for a symbol.
func (r *Repository) CountBars(symbol string) (int, error) {
	var count int
	err := r.db.QueryRow(
		"SELECT COUNT(*) FROM daily_prices WHERE symbol = ?",
		symbol,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count bars: %w", err)
	}
	return count, nil
}

// GetCachedSymbols returns every symbol with at least one cached bar.
func (r *Repository) GetCachedSymbols() ([]string, error) {
	rows, err := r.db.Query("SELECT DISTINCT symbol FROM daily_prices ORDER BY symbol")
	if err != nil {
		return nil, fmt.Errorf("failed to query cached symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return symbols, nil
}

// DeleteSymbol removes all cached data for a symbol across daily prices,
// metrics, and sync status.
func (r *Repository) DeleteSymbol(symbol string) (int64, error) {
	var total int64
	for _, table := range []string{"daily_prices", "ticker_metrics", "sync_status"} {
		result, err := r.db.Exec("DELETE FROM "+table+" WHERE symbol = ?", symbol)
		if err != nil {
			return total, fmt.Errorf("failed to delete from %s: %w", table, err)
		}
		n, _ := result.RowsAffected()
		total += n
	}

	if total > 0 {
		r.log.Info().Str("symbol", symbol).Int64("rows", total).Msg("Deleted cached history")
	}
	return total, nil
}

// DeleteBarsBefore removes daily bars older than the cutoff date across
// all symbols. Used to keep the cache from growing without bound.
func (r *Repository) DeleteBarsBefore(cutoff string) (int64, error) {
	result, err := r.db.Exec("DELETE FROM daily_prices WHERE date < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old bars: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		r.log.Info().Str("cutoff", cutoff).Int64("rows", deleted).Msg("Pruned old daily bars")
	}
	return deleted, nil
}

// UpsertSyncStatus records the outcome of a symbol sync.
func (r *Repository) UpsertSyncStatus(status SyncStatus) error {
	_, err := r.db.Exec(`
		INSERT INTO sync_status (symbol, last_synced_at, last_price_date, bars, status, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			last_synced_at = excluded.last_synced_at,
			last_price_date = excluded.last_price_date,
			bars = excluded.bars,
			status = excluded.status,
			error = excluded.error
	`,
		status.Symbol,
		status.LastSyncedAt.UTC().Format(time.RFC3339),
		nullStr(status.LastPriceDate),
		status.Bars,
		status.Status,
		nullStr(status.Error),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert sync status for %s: %w", status.Symbol, err)
	}
	return nil
}

// GetSyncStatus returns the sync record for a symbol, or nil when the
// symbol has never been synced.
func (r *Repository) GetSyncStatus(symbol string) (*SyncStatus, error) {
	rows, err := r.db.Query(`
		SELECT symbol, last_synced_at, last_price_date, bars, status, error
		FROM sync_status WHERE symbol = ?
	`, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync status: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, nil
	}

	status, err := scanSyncStatus(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync status: %w", err)
	}
	return &status, nil
}

// GetAllSyncStatuses returns sync records for every known symbol.
func (r *Repository) GetAllSyncStatuses() ([]SyncStatus, error) {
	rows, err := r.db.Query(`
		SELECT symbol, last_synced_at, last_price_date, bars, status, error
		FROM sync_status ORDER BY symbol
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync statuses: %w", err)
	}
	defer rows.Close()

	var statuses []SyncStatus
	for rows.Next() {
		status, err := scanSyncStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync status: %w", err)
		}
		statuses = append(statuses, status)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync statuses: %w", err)
	}

	return statuses, nil
}

func scanSyncStatus(rows *sql.Rows) (SyncStatus, error) {
	var s SyncStatus
	var lastSyncedAt string
	var lastPriceDate, errMsg sql.NullString

	if err := rows.Scan(&s.Symbol, &lastSyncedAt, &lastPriceDate, &s.Bars, &s.Status, &errMsg); err != nil {
		return s, err
	}

	if t, err := time.Parse(time.RFC3339, lastSyncedAt); err == nil {
		s.LastSyncedAt = t
	}
	s.LastPriceDate = lastPriceDate.String
	s.Error = errMsg.String

	return s, nil
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
