package settings

import (
	"database/sql"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupTestService(t *testing.T) (*Service, *Repository) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			description TEXT,
			updated_at TEXT DEFAULT (datetime('now'))
		)
	`)
	require.NoError(t, err)

	log := zerolog.New(nil).Level(zerolog.Disabled)
	repo := NewRepository(db, log)
	return NewService(repo, log), repo
}

func TestGet_DefaultWhenUnset(t *testing.T) {
	svc, _ := setupTestService(t)

	value, err := svc.Get("target_dte")
	require.NoError(t, err)
	assert.Equal(t, 30.0, value)

	value, err = svc.Get("market_etf")
	require.NoError(t, err)
	assert.Equal(t, "SPY", value)
}

func TestGet_UnknownKey(t *testing.T) {
	svc, _ := setupTestService(t)

	_, err := svc.Get("no_such_setting")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown setting")
}

func TestSet_RoundTrip(t *testing.T) {
	svc, _ := setupTestService(t)

	require.NoError(t, svc.Set("target_dte", 45.0))

	value, err := svc.Get("target_dte")
	require.NoError(t, err)
	assert.Equal(t, 45.0, value)
}

func TestSet_IntCoercedToFloat(t *testing.T) {
	svc, _ := setupTestService(t)

	require.NoError(t, svc.Set("atr_period", 21))

	value, err := svc.Get("atr_period")
	require.NoError(t, err)
	assert.Equal(t, 21.0, value)
}

func TestSet_RejectsUnknownKey(t *testing.T) {
	svc, _ := setupTestService(t)

	err := svc.Set("no_such_setting", 1.0)
	require.Error(t, err)
}

func TestSet_ValidatesMarketETF(t *testing.T) {
	svc, _ := setupTestService(t)

	require.NoError(t, svc.Set("market_etf", "QQQ"))

	err := svc.Set("market_etf", "VTSAX")
	require.Error(t, err)

	err = svc.Set("market_etf", 42.0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a string")
}

func TestSet_ValidatesHistoryPeriod(t *testing.T) {
	svc, _ := setupTestService(t)

	require.NoError(t, svc.Set("history_period", "2y"))
	require.Error(t, svc.Set("history_period", "17d"))
}

func TestSet_ValidatesBounds(t *testing.T) {
	svc, _ := setupTestService(t)

	tests := []struct {
		key   string
		value float64
		ok    bool
	}{
		{"stock_52w_percentile_max", 0.25, true},
		{"stock_52w_percentile_max", 0.0, false},
		{"stock_52w_percentile_max", 1.5, false},
		{"put_strike_discount", 0.15, true},
		{"put_strike_discount", 0.6, false},
		{"min_annualized_premium_yield", -0.1, false},
		{"max_spread_ratio", 0.0, false},
		{"target_dte", 0.0, false},
		{"dte_tolerance", 0.0, true},
		{"atr_period", 0.0, false},
		{"metrics_min_bars", 1.0, false},
		{"price_staleness_days", 0.0, false},
		{"target_premium_thousands", 0.0, false},
		{"universe_screen_limit", 20000.0, false},
	}

	for _, tt := range tests {
		err := svc.Set(tt.key, tt.value)
		if tt.ok {
			assert.NoError(t, err, "%s = %g should be accepted", tt.key, tt.value)
		} else {
			assert.Error(t, err, "%s = %g should be rejected", tt.key, tt.value)
		}
	}
}

func TestSet_PERatioCrossValidation(t *testing.T) {
	svc, _ := setupTestService(t)

	// Defaults: min 5, max 20
	require.Error(t, svc.Set("pe_ratio_min", 25.0), "min above current max")
	require.Error(t, svc.Set("pe_ratio_max", 3.0), "max below current min")

	require.NoError(t, svc.Set("pe_ratio_max", 30.0))
	require.NoError(t, svc.Set("pe_ratio_min", 25.0), "min below raised max")
}

func TestGetAll_MergesDefaults(t *testing.T) {
	svc, _ := setupTestService(t)

	require.NoError(t, svc.Set("target_dte", 45.0))

	all, err := svc.GetAll()
	require.NoError(t, err)

	assert.Len(t, all, len(SettingDefaults))
	assert.Equal(t, 45.0, all["target_dte"])
	assert.Equal(t, 0.36, all["min_annualized_premium_yield"])
	assert.Equal(t, "SPY", all["market_etf"])
}

func TestReset_RestoresDefault(t *testing.T) {
	svc, _ := setupTestService(t)

	require.NoError(t, svc.Set("target_dte", 45.0))
	require.NoError(t, svc.Reset("target_dte"))

	value, err := svc.Get("target_dte")
	require.NoError(t, err)
	assert.Equal(t, 30.0, value)
}

func TestRepository_GetFloatParsesStoredString(t *testing.T) {
	_, repo := setupTestService(t)

	require.NoError(t, repo.Set("pe_ratio_max", "20.0", nil))

	value, err := repo.GetFloat("pe_ratio_max", 0)
	require.NoError(t, err)
	assert.Equal(t, 20.0, value)

	n, err := repo.GetInt("pe_ratio_max", 0)
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestRepository_GetMissingReturnsNil(t *testing.T) {
	_, repo := setupTestService(t)

	value, err := repo.Get("absent")
	require.NoError(t, err)
	assert.Nil(t, value)

	str, err := repo.GetString("absent", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", str)
}
