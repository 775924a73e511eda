package database

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupTestDBForValidation(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE securities (
			symbol TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			sector TEXT NOT NULL DEFAULT '',
			industry TEXT NOT NULL DEFAULT '',
			sector_etf TEXT NOT NULL DEFAULT '',
			market_cap REAL,
			shares_outstanding REAL,
			next_earnings TEXT,
			is_sector_etf INTEGER NOT NULL DEFAULT 0,
			is_market_etf INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			added_at TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL DEFAULT ''
		)
	`)
	require.NoError(t, err)

	return db
}

func insertStock(t *testing.T, db *sql.DB, symbol, sectorETF string, marketCap interface{}) {
	_, err := db.Exec(`
		INSERT INTO securities (symbol, sector_etf, market_cap)
		VALUES (?, ?, ?)
	`, symbol, sectorETF, marketCap)
	require.NoError(t, err)
}

func insertSectorETF(t *testing.T, db *sql.DB, symbol string) {
	_, err := db.Exec(`
		INSERT INTO securities (symbol, is_sector_etf)
		VALUES (?, 1)
	`, symbol)
	require.NoError(t, err)
}

func TestValidateStocksHaveSectorETF_AllMapped(t *testing.T) {
	db := setupTestDBForValidation(t)
	defer db.Close()

	insertStock(t, db, "AAPL", "XLK", 3000000000000.0)
	insertStock(t, db, "JPM", "XLF", 500000000000.0)

	validator := NewUniverseValidator(db)
	missing, err := validator.ValidateStocksHaveSectorETF()

	require.NoError(t, err)
	assert.Empty(t, missing, "All stocks have sector ETF mappings")
}

func TestValidateStocksHaveSectorETF_MissingMapping(t *testing.T) {
	db := setupTestDBForValidation(t)
	defer db.Close()

	insertStock(t, db, "AAPL", "XLK", 3000000000000.0)
	insertStock(t, db, "NEWCO", "", 2000000000.0)

	validator := NewUniverseValidator(db)
	missing, err := validator.ValidateStocksHaveSectorETF()

	require.NoError(t, err)
	assert.Equal(t, []string{"NEWCO"}, missing)
}

func TestValidateStocksHaveSectorETF_IgnoresETFsAndInactive(t *testing.T) {
	db := setupTestDBForValidation(t)
	defer db.Close()

	// ETFs carry no sector mapping of their own; inactive stocks are skipped
	insertSectorETF(t, db, "XLK")
	insertStock(t, db, "DELISTED", "", 1000000000.0)
	_, err := db.Exec(`UPDATE securities SET active = 0 WHERE symbol = 'DELISTED'`)
	require.NoError(t, err)

	validator := NewUniverseValidator(db)
	missing, err := validator.ValidateStocksHaveSectorETF()

	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestValidateStocksHaveMarketCap_MissingAndZero(t *testing.T) {
	db := setupTestDBForValidation(t)
	defer db.Close()

	insertStock(t, db, "AAPL", "XLK", 3000000000000.0)
	insertStock(t, db, "NOCAP", "XLK", nil)
	insertStock(t, db, "ZEROCAP", "XLK", 0.0)

	validator := NewUniverseValidator(db)
	missing, err := validator.ValidateStocksHaveMarketCap()

	require.NoError(t, err)
	assert.Equal(t, []string{"NOCAP", "ZEROCAP"}, missing)
}

func TestValidateSectorETFsExist_AllPresent(t *testing.T) {
	db := setupTestDBForValidation(t)
	defer db.Close()

	insertSectorETF(t, db, "XLK")
	insertStock(t, db, "AAPL", "XLK", 3000000000000.0)

	validator := NewUniverseValidator(db)
	unknown, err := validator.ValidateSectorETFsExist()

	require.NoError(t, err)
	assert.Empty(t, unknown)
}

func TestValidateSectorETFsExist_ReferencedButMissing(t *testing.T) {
	db := setupTestDBForValidation(t)
	defer db.Close()

	// XLF referenced by a stock but never seeded as a security
	insertSectorETF(t, db, "XLK")
	insertStock(t, db, "AAPL", "XLK", 3000000000000.0)
	insertStock(t, db, "JPM", "XLF", 500000000000.0)

	validator := NewUniverseValidator(db)
	unknown, err := validator.ValidateSectorETFsExist()

	require.NoError(t, err)
	assert.Equal(t, []string{"XLF"}, unknown)
}

func TestValidateAll_Comprehensive(t *testing.T) {
	db := setupTestDBForValidation(t)
	defer db.Close()

	insertSectorETF(t, db, "XLK")
	insertStock(t, db, "AAPL", "XLK", 3000000000000.0)

	validator := NewUniverseValidator(db)
	result, err := validator.ValidateAll()

	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Empty(t, result.MissingSectorETF)
	assert.Empty(t, result.MissingMarketCap)
	assert.Empty(t, result.UnknownETFs)
	assert.Equal(t, "All validations passed", result.FormatErrors())
}

func TestValidateAll_CollectsAllProblems(t *testing.T) {
	db := setupTestDBForValidation(t)
	defer db.Close()

	insertStock(t, db, "NEWCO", "", nil)
	insertStock(t, db, "JPM", "XLF", 500000000000.0)

	validator := NewUniverseValidator(db)
	result, err := validator.ValidateAll()

	require.NoError(t, err)
	assert.False(t, result.IsValid)
	assert.Equal(t, []string{"NEWCO"}, result.MissingSectorETF)
	assert.Equal(t, []string{"NEWCO"}, result.MissingMarketCap)
	assert.Equal(t, []string{"XLF"}, result.UnknownETFs)
	assert.Contains(t, result.FormatErrors(), "Missing sector ETF")
	assert.Contains(t, result.FormatErrors(), "Missing market cap")
	assert.Contains(t, result.FormatErrors(), "Unknown sector ETFs")
}
