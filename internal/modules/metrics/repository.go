package metrics

import (
	"database/sql"
	"fmt"
	"sort"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/rs/zerolog"
)

// Repository stores computed ticker metrics as dated entity/attribute/value
// rows.
// Database: history.db (ticker_metrics table)
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new metrics repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "metrics").Logger(),
	}
}

// UpsertMetrics writes all metric values for one symbol and date in a
// single transaction.
func (r *Repository) UpsertMetrics(symbol, date string, values map[string]float64) error {
	if len(values) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be no-op if Commit succeeds

	stmt, err := tx.Prepare(`
		INSERT INTO ticker_metrics (symbol, date, metric, value)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(symbol, date, metric) DO UPDATE SET value = excluded.value
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := stmt.Exec(symbol, date, name, values[name]); err != nil {
			return fmt.Errorf("failed to insert metric %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.log.Debug().
		Str("symbol", symbol).
		Str("date", date).
		Int("metrics", len(values)).
		Msg("Upserted ticker metrics")

	return nil
}

// GetLatestMetrics returns the metric values for a symbol's most recent
// calculation date, or nil when the symbol has no metrics.
func (r *Repository) GetLatestMetrics(symbol string) (*TickerMetrics, error) {
	rows, err := r.db.Query(`
		SELECT date, metric, value
		FROM ticker_metrics
		WHERE symbol = ? AND date = (
			SELECT MAX(date) FROM ticker_metrics WHERE symbol = ?
		)
	`, symbol, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	metrics := &TickerMetrics{Symbol: symbol, Values: make(map[string]float64)}
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&metrics.Date, &name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metrics.Values[name] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metrics: %w", err)
	}

	if len(metrics.Values) == 0 {
		return nil, nil
	}
	return metrics, nil
}

// GetAllLatestMetrics returns each symbol's most recent metric values,
// keyed by symbol.
func (r *Repository) GetAllLatestMetrics() (map[string]*TickerMetrics, error) {
	rows, err := r.db.Query(`
		SELECT tm.symbol, tm.date, tm.metric, tm.value
		FROM ticker_metrics tm
		JOIN (
			SELECT symbol, MAX(date) AS max_date
			FROM ticker_metrics
			GROUP BY symbol
		) latest ON tm.symbol = latest.symbol AND tm.date = latest.max_date
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query metrics: %w", err)
	}
	defer rows.Close()

	result := make(map[string]*TickerMetrics)
	for rows.Next() {
		var symbol, date, name string
		var value float64
		if err := rows.Scan(&symbol, &date, &name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}

		metrics, ok := result[symbol]
		if !ok {
			metrics = &TickerMetrics{Symbol: symbol, Date: date, Values: make(map[string]float64)}
			result[symbol] = metrics
		}
		metrics.Values[name] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metrics: %w", err)
	}

	return result, nil
}

// PruneBefore removes metric rows older than the cutoff date across all
// symbols.
func (r *Repository) PruneBefore(cutoff string) (int64, error) {
	result, err := r.db.Exec("DELETE FROM ticker_metrics WHERE date < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune metrics: %w", err)
	}

	deleted, _ := result.RowsAffected()
	if deleted > 0 {
		r.log.Info().Str("cutoff", cutoff).Int64("rows", deleted).Msg("Pruned old ticker metrics")
	}
	return deleted, nil
}
