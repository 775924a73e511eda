package universe

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/put-screener/internal/domain"
)

// mockQuoteClient implements QuoteClient for tests.
type mockQuoteClient struct {
	quotes     map[string]*domain.Quote
	screened   []domain.Quote
	quoteErr   error
	screenErr  error
	lastMinCap float64
	lastLimit  int
}

func (m *mockQuoteClient) GetQuotes(_ context.Context, symbols []string) (map[string]*domain.Quote, error) {
	if m.quoteErr != nil {
		return nil, m.quoteErr
	}
	out := make(map[string]*domain.Quote)
	for _, s := range symbols {
		if q, ok := m.quotes[s]; ok {
			out[s] = q
		}
	}
	return out, nil
}

func (m *mockQuoteClient) ScreenUSEquities(_ context.Context, minMarketCap float64, limit int) ([]domain.Quote, error) {
	m.lastMinCap = minMarketCap
	m.lastLimit = limit
	if m.screenErr != nil {
		return nil, m.screenErr
	}
	return m.screened, nil
}

// mockSettings implements SettingsReader with fixed values.
type mockSettings struct {
	floats map[string]float64
	ints   map[string]int
}

func (m *mockSettings) GetFloat(key string, def float64) (float64, error) {
	if v, ok := m.floats[key]; ok {
		return v, nil
	}
	return def, nil
}

func (m *mockSettings) GetInt(key string, def int) (int, error) {
	if v, ok := m.ints[key]; ok {
		return v, nil
	}
	return def, nil
}

func floatPtr(f float64) *float64 { return &f }

func equityQuote(symbol, name, sector string, marketCap float64) *domain.Quote {
	return &domain.Quote{
		Symbol:    symbol,
		Name:      name,
		Sector:    sector,
		QuoteType: "EQUITY",
		MarketCap: floatPtr(marketCap),
	}
}

func setupTestService(t *testing.T, client *mockQuoteClient) (*Service, *Repository) {
	t.Helper()
	repo := setupTestRepo(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	svc := NewService(repo, client, &mockSettings{}, log)
	return svc, repo
}

func TestEnsureBenchmarks_SeedsAllProxies(t *testing.T) {
	client := &mockQuoteClient{quotes: map[string]*domain.Quote{
		"SPY": {Symbol: "SPY", Name: "SPDR S&P 500 ETF Trust", QuoteType: "ETF"},
	}}
	svc, repo := setupTestService(t, client)

	count, err := svc.EnsureBenchmarks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, len(domain.SectorETFs)+len(domain.MarketETFs), count)

	etfs, err := repo.GetBenchmarkETFs()
	require.NoError(t, err)
	assert.Len(t, etfs, count)

	spy, err := repo.GetBySymbol("SPY")
	require.NoError(t, err)
	require.NotNil(t, spy)
	assert.True(t, spy.IsMarketETF)
	assert.False(t, spy.IsSectorETF)
	assert.Equal(t, "SPDR S&P 500 ETF Trust", spy.Name)

	xlk, err := repo.GetBySymbol("XLK")
	require.NoError(t, err)
	require.NotNil(t, xlk)
	assert.True(t, xlk.IsSectorETF)
	// No quote for XLK, symbol used as name
	assert.Equal(t, "XLK", xlk.Name)
}

func TestAddSymbols_MapsSectorETF(t *testing.T) {
	client := &mockQuoteClient{quotes: map[string]*domain.Quote{
		"AAPL": equityQuote("AAPL", "Apple Inc.", "Technology", 3.5e12),
		"JPM":  equityQuote("JPM", "JPMorgan Chase", "Financial Services", 6e11),
	}}
	svc, repo := setupTestService(t, client)

	resp, err := svc.AddSymbols(context.Background(), []string{"aapl", "JPM", "UNKNOWN"})
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "JPM"}, resp.Added)
	assert.Equal(t, []string{"UNKNOWN"}, resp.Skipped)

	aapl, err := repo.GetBySymbol("AAPL")
	require.NoError(t, err)
	require.NotNil(t, aapl)
	assert.Equal(t, "XLK", aapl.SectorETF)

	jpm, err := repo.GetBySymbol("JPM")
	require.NoError(t, err)
	require.NotNil(t, jpm)
	assert.Equal(t, "XLF", jpm.SectorETF)
}

func TestAddSymbols_SkipsNonEquity(t *testing.T) {
	client := &mockQuoteClient{quotes: map[string]*domain.Quote{
		"SPY": {Symbol: "SPY", Name: "SPDR S&P 500", QuoteType: "ETF"},
	}}
	svc, _ := setupTestService(t, client)

	resp, err := svc.AddSymbols(context.Background(), []string{"SPY"})
	require.NoError(t, err)

	assert.Empty(t, resp.Added)
	assert.Equal(t, []string{"SPY"}, resp.Skipped)
}

func TestAddSymbols_UnmappedSectorLeavesETFEmpty(t *testing.T) {
	client := &mockQuoteClient{quotes: map[string]*domain.Quote{
		"ODD": equityQuote("ODD", "Oddity Corp", "Conglomerates", 2e9),
	}}
	svc, repo := setupTestService(t, client)

	_, err := svc.AddSymbols(context.Background(), []string{"ODD"})
	require.NoError(t, err)

	odd, err := repo.GetBySymbol("ODD")
	require.NoError(t, err)
	require.NotNil(t, odd)
	assert.Equal(t, "", odd.SectorETF)
}

func TestPopulateFromScreen(t *testing.T) {
	client := &mockQuoteClient{
		screened: []domain.Quote{
			*equityQuote("AAPL", "Apple Inc.", "Technology", 3.5e12),
			*equityQuote("XOM", "Exxon Mobil", "Energy", 5e11),
			{Symbol: "BTC-USD", Name: "Bitcoin", QuoteType: "CRYPTOCURRENCY"},
		},
	}
	svc, repo := setupTestService(t, client)

	resp, err := svc.PopulateFromScreen(context.Background(), 100)
	require.NoError(t, err)

	assert.Equal(t, 3, resp.Screened)
	assert.Equal(t, 2, resp.Upserted)
	assert.Equal(t, len(domain.SectorETFs)+len(domain.MarketETFs), resp.Benchmarks)
	assert.Equal(t, 100, client.lastLimit)
	// Default market cap floor of $1B converted to dollars
	assert.InDelta(t, 1e9, client.lastMinCap, 1)

	stocks, err := repo.GetActiveStocks()
	require.NoError(t, err)
	assert.Len(t, stocks, 2)
}

func TestRefreshQuotes_PreservesETFFlags(t *testing.T) {
	client := &mockQuoteClient{quotes: map[string]*domain.Quote{
		"AAPL": equityQuote("AAPL", "Apple Inc.", "Technology", 3.6e12),
		"SPY":  {Symbol: "SPY", Name: "SPDR S&P 500 ETF Trust", QuoteType: "ETF", MarketCap: floatPtr(5e11)},
	}}
	svc, repo := setupTestService(t, client)

	require.NoError(t, repo.Upsert(testStock("AAPL", "Technology", "XLK", 3.5e12)))
	require.NoError(t, repo.Upsert(domain.Security{Symbol: "SPY", Name: "SPY", IsMarketETF: true, Active: true}))

	refreshed, err := svc.RefreshQuotes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, refreshed)

	aapl, err := repo.GetBySymbol("AAPL")
	require.NoError(t, err)
	require.NotNil(t, aapl)
	require.NotNil(t, aapl.MarketCap)
	assert.InDelta(t, 3.6e12, *aapl.MarketCap, 1)

	spy, err := repo.GetBySymbol("SPY")
	require.NoError(t, err)
	require.NotNil(t, spy)
	assert.True(t, spy.IsMarketETF, "market ETF flag survives refresh")
	assert.Equal(t, "", spy.SectorETF)
}
