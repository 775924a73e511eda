package screener

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupScreenerRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE screening_runs (
			run_id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			screened INTEGER NOT NULL DEFAULT 0,
			passed INTEGER NOT NULL DEFAULT 0,
			skipped INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'completed',
			duration_ms INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE screening_skips (
			run_id TEXT NOT NULL,
			reason TEXT NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (run_id, reason)
		);
		CREATE TABLE screening_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			stock_price REAL NOT NULL,
			sector TEXT,
			sector_etf TEXT,
			industry TEXT,
			stock_52w_pct REAL,
			week52_high REAL,
			week52_low REAL,
			dist_high_pct REAL,
			dist_low_pct REAL,
			sector_52w_pct REAL,
			market_52w_pct REAL,
			pe_ratio REAL,
			sector_pe REAL,
			market_pe REAL,
			market_cap_millions REAL,
			avg_volume_millions REAL,
			atr_pct REAL,
			is_lateral INTEGER NOT NULL DEFAULT 0,
			put_strike REAL NOT NULL,
			expiration TEXT NOT NULL,
			dte INTEGER NOT NULL,
			bid REAL,
			ask REAL,
			spread REAL,
			premium REAL NOT NULL,
			annualized_yield REAL NOT NULL,
			open_interest INTEGER,
			contracts_needed INTEGER,
			days_to_earnings INTEGER,
			chart_url TEXT,
			options_url TEXT,
			created_at TEXT NOT NULL
		);
	`)
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	return NewRepository(db, log)
}

func completedRun(runID string, createdAt time.Time) *Run {
	return &Run{
		RunID:      runID,
		CreatedAt:  createdAt,
		Status:     RunCompleted,
		Screened:   10,
		Passed:     2,
		Skipped:    8,
		DurationMS: 4200,
	}
}

func sampleOpportunity(runID, symbol string, yield float64, createdAt time.Time) Opportunity {
	oi := int64(340)
	earnings := 18
	return Opportunity{
		RunID:             runID,
		CreatedAt:         createdAt,
		Symbol:            symbol,
		Sector:            "Technology",
		SectorETF:         "XLK",
		Industry:          "Semiconductors",
		StockPrice:        100,
		Stock52wPct:       0.12,
		Sector52wPct:      0.40,
		Market52wPct:      0.55,
		PERatio:           14.5,
		SectorPE:          21.0,
		MarketPE:          23.5,
		MarketCapMillions: 52000,
		AvgVolumeMillions: 310,
		Week52High:        floatPtr(150),
		Week52Low:         floatPtr(95),
		DistHighPct:       floatPtr(1.0 / 3),
		DistLowPct:        floatPtr(5.0 / 95),
		ATRPct:            floatPtr(0.021),
		IsLateral:         true,
		Expiration:        time.Date(2026, 9, 25, 0, 0, 0, 0, time.UTC),
		PutStrike:         90,
		DTE:               31,
		Bid:               floatPtr(3.0),
		Ask:               floatPtr(3.2),
		Spread:            floatPtr(0.2),
		OpenInterest:      &oi,
		Premium:           3.1,
		AnnualizedYield:   yield,
		ContractsNeeded:   1,
		DaysToEarnings:    &earnings,
		ChartURL:          "https://finance.yahoo.com/chart/" + symbol,
		OptionsURL:        "https://finance.yahoo.com/quote/" + symbol + "/options?date=1790294400",
	}
}

func TestSaveRun_RoundTrip(t *testing.T) {
	repo := setupScreenerRepo(t)
	createdAt := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	run := completedRun("run-1", createdAt)
	skips := map[string]int{SkipLowYield: 5, SkipNoChain: 2, SkipStaleMetrics: 1}
	results := []Opportunity{
		sampleOpportunity("run-1", "AAPL", 0.42, createdAt),
		sampleOpportunity("run-1", "XOM", 0.55, createdAt),
	}

	require.NoError(t, repo.SaveRun(run, skips, results))

	got, err := repo.GetRun("run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, RunCompleted, got.Status)
	assert.Equal(t, 10, got.Screened)
	assert.Equal(t, 2, got.Passed)
	assert.Equal(t, 8, got.Skipped)
	assert.Equal(t, int64(4200), got.DurationMS)
	assert.True(t, got.CreatedAt.Equal(createdAt))

	gotSkips, err := repo.GetSkips("run-1")
	require.NoError(t, err)
	assert.Equal(t, skips, gotSkips)
}

func TestGetResults_RankedByYield(t *testing.T) {
	repo := setupScreenerRepo(t)
	createdAt := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	results := []Opportunity{
		sampleOpportunity("run-1", "AAPL", 0.40, createdAt),
		sampleOpportunity("run-1", "XOM", 0.90, createdAt),
		sampleOpportunity("run-1", "JPM", 0.60, createdAt),
	}
	require.NoError(t, repo.SaveRun(completedRun("run-1", createdAt), nil, results))

	got, err := repo.GetResults("run-1")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "XOM", got[0].Symbol)
	assert.Equal(t, "JPM", got[1].Symbol)
	assert.Equal(t, "AAPL", got[2].Symbol)
}

func TestGetResults_FieldRoundTrip(t *testing.T) {
	repo := setupScreenerRepo(t)
	createdAt := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	full := sampleOpportunity("run-1", "AAPL", 0.42, createdAt)
	sparse := Opportunity{
		RunID:           "run-1",
		CreatedAt:       createdAt,
		Symbol:          "NEWCO",
		StockPrice:      50,
		Stock52wPct:     0.05,
		Sector52wPct:    0.30,
		Market52wPct:    0.50,
		PERatio:         8,
		SectorPE:        15,
		MarketPE:        20,
		Expiration:      time.Date(2026, 9, 25, 0, 0, 0, 0, time.UTC),
		PutStrike:       45,
		DTE:             31,
		Premium:         1.8,
		AnnualizedYield: 0.47,
		ContractsNeeded: 2,
	}
	require.NoError(t, repo.SaveRun(completedRun("run-1", createdAt), nil, []Opportunity{sparse, full}))

	got, err := repo.GetResults("run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Ranked by yield: NEWCO 0.47 first, AAPL 0.42 second
	gotSparse, gotFull := got[0], got[1]

	assert.Equal(t, "AAPL", gotFull.Symbol)
	assert.Greater(t, gotFull.ID, int64(0))
	assert.Equal(t, "Technology", gotFull.Sector)
	assert.Equal(t, "XLK", gotFull.SectorETF)
	require.NotNil(t, gotFull.Week52High)
	assert.Equal(t, 150.0, *gotFull.Week52High)
	require.NotNil(t, gotFull.DistHighPct)
	assert.InDelta(t, 1.0/3, *gotFull.DistHighPct, 1e-9)
	require.NotNil(t, gotFull.Bid)
	assert.Equal(t, 3.0, *gotFull.Bid)
	require.NotNil(t, gotFull.OpenInterest)
	assert.Equal(t, int64(340), *gotFull.OpenInterest)
	require.NotNil(t, gotFull.DaysToEarnings)
	assert.Equal(t, 18, *gotFull.DaysToEarnings)
	assert.True(t, gotFull.IsLateral)
	assert.True(t, gotFull.Expiration.Equal(time.Date(2026, 9, 25, 0, 0, 0, 0, time.UTC)))
	assert.True(t, gotFull.CreatedAt.Equal(createdAt))

	assert.Equal(t, "NEWCO", gotSparse.Symbol)
	assert.Nil(t, gotSparse.Week52High)
	assert.Nil(t, gotSparse.ATRPct)
	assert.Nil(t, gotSparse.Bid)
	assert.Nil(t, gotSparse.Spread)
	assert.Nil(t, gotSparse.OpenInterest)
	assert.Nil(t, gotSparse.DaysToEarnings)
	assert.False(t, gotSparse.IsLateral)
	assert.Empty(t, gotSparse.Sector)
}

func TestGetRun_Unknown(t *testing.T) {
	repo := setupScreenerRepo(t)

	got, err := repo.GetRun("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetLatestRun_SkipsFailedRuns(t *testing.T) {
	repo := setupScreenerRepo(t)

	got, err := repo.GetLatestRun()
	require.NoError(t, err)
	assert.Nil(t, got)

	older := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	newer := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SaveRun(completedRun("run-ok", older), nil, nil))

	failed := completedRun("run-bad", newer)
	failed.Status = RunFailed
	require.NoError(t, repo.SaveRun(failed, nil, nil))

	got, err = repo.GetLatestRun()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "run-ok", got.RunID)
}

func TestListRuns_NewestFirst(t *testing.T) {
	repo := setupScreenerRepo(t)

	base := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, repo.SaveRun(completedRun(id, base.AddDate(0, 0, i)), nil, nil))
	}

	runs, err := repo.ListRuns(2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-c", runs[0].RunID)
	assert.Equal(t, "run-b", runs[1].RunID)
}
