package universe

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/aristath/put-screener/internal/domain"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE securities (
			symbol TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			sector TEXT,
			industry TEXT,
			sector_etf TEXT,
			market_cap REAL,
			shares_outstanding REAL,
			next_earnings TEXT,
			is_sector_etf INTEGER NOT NULL DEFAULT 0,
			is_market_etf INTEGER NOT NULL DEFAULT 0,
			active INTEGER NOT NULL DEFAULT 1,
			added_at TEXT,
			updated_at TEXT
		)
	`)
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewRepository(db, log)
}

func testStock(symbol, sector, sectorETF string, marketCap float64) domain.Security {
	return domain.Security{
		Symbol:    symbol,
		Name:      symbol + " Inc.",
		Sector:    sector,
		SectorETF: sectorETF,
		MarketCap: &marketCap,
		Active:    true,
	}
}

func TestUpsert_InsertAndGet(t *testing.T) {
	repo := setupTestRepo(t)

	earnings := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	sec := testStock("AAPL", "Technology", "XLK", 3.5e12)
	sec.Industry = "Consumer Electronics"
	sec.NextEarnings = &earnings

	require.NoError(t, repo.Upsert(sec))

	got, err := repo.GetBySymbol("aapl")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, "Technology", got.Sector)
	assert.Equal(t, "XLK", got.SectorETF)
	require.NotNil(t, got.MarketCap)
	assert.InDelta(t, 3.5e12, *got.MarketCap, 1)
	require.NotNil(t, got.NextEarnings)
	assert.Equal(t, earnings, got.NextEarnings.UTC())
	assert.True(t, got.Active)
	assert.False(t, got.AddedAt.IsZero())
}

func TestUpsert_UpdatePreservesAddedAt(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.Upsert(testStock("MSFT", "Technology", "XLK", 3e12)))

	first, err := repo.GetBySymbol("MSFT")
	require.NoError(t, err)
	require.NotNil(t, first)

	updated := testStock("MSFT", "Technology", "XLK", 3.1e12)
	updated.Name = "Microsoft Corporation"
	require.NoError(t, repo.Upsert(updated))

	second, err := repo.GetBySymbol("MSFT")
	require.NoError(t, err)
	require.NotNil(t, second)

	assert.Equal(t, "Microsoft Corporation", second.Name)
	assert.InDelta(t, 3.1e12, *second.MarketCap, 1)
	assert.Equal(t, first.AddedAt, second.AddedAt)
}

func TestGetBySymbol_NotFound(t *testing.T) {
	repo := setupTestRepo(t)

	got, err := repo.GetBySymbol("NOPE")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetActiveStocks_ExcludesETFsAndInactive(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.Upsert(testStock("AAPL", "Technology", "XLK", 3e12)))
	require.NoError(t, repo.Upsert(testStock("JPM", "Financial Services", "XLF", 6e11)))

	inactive := testStock("DEAD", "Energy", "XLE", 1e10)
	inactive.Active = false
	require.NoError(t, repo.Upsert(inactive))

	etf := domain.Security{Symbol: "XLK", Name: "Tech Select", IsSectorETF: true, Active: true}
	require.NoError(t, repo.Upsert(etf))
	spy := domain.Security{Symbol: "SPY", Name: "S&P 500", IsMarketETF: true, Active: true}
	require.NoError(t, repo.Upsert(spy))

	stocks, err := repo.GetActiveStocks()
	require.NoError(t, err)

	symbols := make([]string, len(stocks))
	for i, s := range stocks {
		symbols[i] = s.Symbol
	}
	assert.Equal(t, []string{"AAPL", "JPM"}, symbols)

	etfs, err := repo.GetBenchmarkETFs()
	require.NoError(t, err)
	assert.Len(t, etfs, 2)
}

func TestUpsertBatch(t *testing.T) {
	repo := setupTestRepo(t)

	batch := []domain.Security{
		testStock("AAPL", "Technology", "XLK", 3e12),
		testStock("XOM", "Energy", "XLE", 5e11),
		testStock("PFE", "Healthcare", "XLV", 1.5e11),
	}
	require.NoError(t, repo.UpsertBatch(batch))

	all, err := repo.GetAllActive()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUpsertBatch_EmptySymbolRollsBack(t *testing.T) {
	repo := setupTestRepo(t)

	batch := []domain.Security{
		testStock("AAPL", "Technology", "XLK", 3e12),
		{Symbol: "", Name: "broken", Active: true},
	}
	require.Error(t, repo.UpsertBatch(batch))

	// Transaction rolled back, nothing persisted
	all, err := repo.GetAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSetActive(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.Upsert(testStock("AAPL", "Technology", "XLK", 3e12)))
	require.NoError(t, repo.SetActive("AAPL", false))

	got, err := repo.GetBySymbol("AAPL")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.Active)

	require.Error(t, repo.SetActive("MISSING", false))
}

func TestStats(t *testing.T) {
	repo := setupTestRepo(t)

	require.NoError(t, repo.Upsert(testStock("AAPL", "Technology", "XLK", 3e12)))
	require.NoError(t, repo.Upsert(testStock("MSFT", "Technology", "XLK", 3e12)))
	require.NoError(t, repo.Upsert(testStock("XOM", "Energy", "XLE", 5e11)))

	inactive := testStock("DEAD", "Energy", "XLE", 1e10)
	inactive.Active = false
	require.NoError(t, repo.Upsert(inactive))

	require.NoError(t, repo.Upsert(domain.Security{Symbol: "XLK", IsSectorETF: true, Active: true}))
	require.NoError(t, repo.Upsert(domain.Security{Symbol: "SPY", IsMarketETF: true, Active: true}))

	stats, err := repo.Stats()
	require.NoError(t, err)

	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 3, stats.ActiveStocks)
	assert.Equal(t, 1, stats.SectorETFs)
	assert.Equal(t, 1, stats.MarketETFs)
	assert.Equal(t, 1, stats.Inactive)
	assert.Equal(t, 2, stats.Sectors["Technology"])
	assert.Equal(t, 1, stats.Sectors["Energy"])
}
