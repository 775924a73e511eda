package database

import (
	"database/sql"
	"fmt"
	"strings"
)

// UniverseValidator validates universe data integrity before screening
type UniverseValidator struct {
	db *sql.DB
}

// ValidationResult contains the results of all validation checks
type ValidationResult struct {
	IsValid          bool
	MissingSectorETF []string // Active stocks without a sector ETF mapping
	MissingMarketCap []string // Active stocks without a market cap
	UnknownETFs      []string // Sector ETFs referenced by stocks but absent from the universe
}

// NewUniverseValidator creates a new universe validator
func NewUniverseValidator(db *sql.DB) *UniverseValidator {
	return &UniverseValidator{
		db: db,
	}
}

// ValidateStocksHaveSectorETF checks that all active stocks carry a sector ETF
// mapping. Stocks without one can never pass the relative-strength gate.
// Returns the list of symbols missing a mapping.
func (v *UniverseValidator) ValidateStocksHaveSectorETF() ([]string, error) {
	query := `
		SELECT symbol
		FROM securities
		WHERE active = 1
		  AND is_sector_etf = 0 AND is_market_etf = 0
		  AND (sector_etf IS NULL OR TRIM(sector_etf) = '')
		ORDER BY symbol
	`

	rows, err := v.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query securities: %w", err)
	}
	defer rows.Close()

	var missing []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		missing = append(missing, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return missing, nil
}

// ValidateStocksHaveMarketCap checks that all active stocks carry a positive
// market cap. Stocks without one can never pass the fundamentals prefilter.
// Returns the list of symbols missing one.
func (v *UniverseValidator) ValidateStocksHaveMarketCap() ([]string, error) {
	query := `
		SELECT symbol
		FROM securities
		WHERE active = 1
		  AND is_sector_etf = 0 AND is_market_etf = 0
		  AND (market_cap IS NULL OR market_cap <= 0)
		ORDER BY symbol
	`

	rows, err := v.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query securities: %w", err)
	}
	defer rows.Close()

	var missing []string
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		missing = append(missing, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return missing, nil
}

// ValidateSectorETFsExist checks that every sector ETF referenced by an
// active stock exists as a security row flagged is_sector_etf.
// Returns the list of referenced-but-missing ETF symbols.
func (v *UniverseValidator) ValidateSectorETFsExist() ([]string, error) {
	query := `
		SELECT DISTINCT s.sector_etf
		FROM securities s
		LEFT JOIN securities etf ON s.sector_etf = etf.symbol AND etf.is_sector_etf = 1
		WHERE s.active = 1
		  AND s.is_sector_etf = 0 AND s.is_market_etf = 0
		  AND s.sector_etf IS NOT NULL AND TRIM(s.sector_etf) != ''
		  AND etf.symbol IS NULL
		ORDER BY s.sector_etf
	`

	rows, err := v.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query referenced ETFs: %w", err)
	}
	defer rows.Close()

	var unknown []string
	for rows.Next() {
		var etf string
		if err := rows.Scan(&etf); err != nil {
			return nil, fmt.Errorf("failed to scan ETF symbol: %w", err)
		}
		unknown = append(unknown, etf)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return unknown, nil
}

// ValidateAll runs all validation checks and returns a comprehensive result
func (v *UniverseValidator) ValidateAll() (*ValidationResult, error) {
	result := &ValidationResult{
		IsValid:          true,
		MissingSectorETF: []string{},
		MissingMarketCap: []string{},
		UnknownETFs:      []string{},
	}

	missingETF, err := v.ValidateStocksHaveSectorETF()
	if err != nil {
		return nil, fmt.Errorf("failed to validate sector ETF mappings: %w", err)
	}
	result.MissingSectorETF = missingETF
	if len(missingETF) > 0 {
		result.IsValid = false
	}

	missingCap, err := v.ValidateStocksHaveMarketCap()
	if err != nil {
		return nil, fmt.Errorf("failed to validate market caps: %w", err)
	}
	result.MissingMarketCap = missingCap
	if len(missingCap) > 0 {
		result.IsValid = false
	}

	unknownETFs, err := v.ValidateSectorETFsExist()
	if err != nil {
		return nil, fmt.Errorf("failed to validate referenced ETFs: %w", err)
	}
	result.UnknownETFs = unknownETFs
	if len(unknownETFs) > 0 {
		result.IsValid = false
	}

	return result, nil
}

// FormatErrors formats validation errors for display
func (r *ValidationResult) FormatErrors() string {
	if r.IsValid {
		return "All validations passed"
	}

	var parts []string

	if len(r.MissingSectorETF) > 0 {
		parts = append(parts, fmt.Sprintf("Missing sector ETF (%d): %s", len(r.MissingSectorETF), strings.Join(r.MissingSectorETF, ", ")))
	}

	if len(r.MissingMarketCap) > 0 {
		parts = append(parts, fmt.Sprintf("Missing market cap (%d): %s", len(r.MissingMarketCap), strings.Join(r.MissingMarketCap, ", ")))
	}

	if len(r.UnknownETFs) > 0 {
		parts = append(parts, fmt.Sprintf("Unknown sector ETFs (%d): %s", len(r.UnknownETFs), strings.Join(r.UnknownETFs, ", ")))
	}

	return strings.Join(parts, "\n")
}
