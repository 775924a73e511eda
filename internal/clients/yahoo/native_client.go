package yahoo

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wnjoon/go-yfinance/pkg/models"
	"github.com/wnjoon/go-yfinance/pkg/multi"
	"github.com/wnjoon/go-yfinance/pkg/ticker"

	"github.com/aristath/put-screener/internal/domain"
)

// NativeClient wraps the go-yfinance library for daily price history.
// The quote and options endpoints stay on the raw Client; this one exists
// because the library handles history pagination and adjustment for us.
type NativeClient struct {
	log zerolog.Logger
}

// NewNativeClient creates a new native Yahoo Finance client
func NewNativeClient(log zerolog.Logger) *NativeClient {
	return &NativeClient{
		log: log.With().Str("client", "yahoo-native").Logger(),
	}
}

// GetDailyHistory fetches daily OHLCV bars for a symbol over a period
// string such as "5d", "3mo", "1y", or "max".
func (c *NativeClient) GetDailyHistory(symbol, period string) ([]domain.DailyPrice, error) {
	t, err := ticker.New(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticker for %s: %w", symbol, err)
	}
	defer t.Close()

	history, err := t.History(models.HistoryParams{
		Period:     period,
		Interval:   "1d",
		AutoAdjust: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get history for %s: %w", symbol, err)
	}

	if len(history) == 0 {
		return nil, &domain.DataUnavailableError{Symbol: symbol, Reason: "no price history"}
	}

	prices := barsToDailyPrices(history)
	if len(prices) == 0 {
		return nil, &domain.DataUnavailableError{Symbol: symbol, Reason: "only empty bars in history"}
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("period", period).
		Int("bars", len(prices)).
		Msg("Fetched daily history")

	return prices, nil
}

// DownloadDailyHistories fetches daily bars for many symbols in one batch.
// Returns per-symbol prices and per-symbol errors; a symbol appears in
// exactly one of the two maps.
func (c *NativeClient) DownloadDailyHistories(symbols []string, period string) (map[string][]domain.DailyPrice, map[string]error, error) {
	if len(symbols) == 0 {
		return map[string][]domain.DailyPrice{}, map[string]error{}, nil
	}

	params := models.DefaultDownloadParams()
	params.Symbols = symbols
	params.Period = period
	params.Interval = "1d"

	result, err := multi.Download(symbols, &params)
	if err != nil {
		return nil, nil, &domain.ExternalServiceError{Service: "yahoo", Err: err}
	}

	prices := make(map[string][]domain.DailyPrice, len(symbols))
	errs := make(map[string]error)

	for symbol, symErr := range result.Errors {
		c.log.Warn().Err(symErr).Str("symbol", symbol).Msg("Batch history download failed for symbol")
		errs[symbol] = symErr
	}

	for symbol, bars := range result.Data {
		converted := barsToDailyPrices(bars)
		if len(converted) == 0 {
			errs[symbol] = &domain.DataUnavailableError{Symbol: symbol, Reason: "no price history"}
			continue
		}
		prices[symbol] = converted
	}

	c.log.Info().
		Int("requested", len(symbols)).
		Int("fetched", len(prices)).
		Int("failed", len(errs)).
		Str("period", period).
		Msg("Batch history download complete")

	return prices, errs, nil
}

// barsToDailyPrices converts library bars, skipping the empty placeholder
// bars Yahoo emits for halted or pre-listing days.
func barsToDailyPrices(bars []models.Bar) []domain.DailyPrice {
	prices := make([]domain.DailyPrice, 0, len(bars))
	for _, bar := range bars {
		if bar.Open == 0 && bar.High == 0 && bar.Low == 0 && bar.Close == 0 {
			continue
		}

		adjClose := bar.AdjClose
		volume := int64(bar.Volume)

		prices = append(prices, domain.DailyPrice{
			Date:     bar.Date.Format("2006-01-02"),
			Open:     bar.Open,
			High:     bar.High,
			Low:      bar.Low,
			Close:    bar.Close,
			AdjClose: &adjClose,
			Volume:   &volume,
		})
	}
	return prices
}
