package universe

import (
	"context"

	"github.com/aristath/put-screener/internal/domain"
)

// QuoteClient defines the Yahoo Finance operations the universe service
// needs. Used to enable testing with mocks.
type QuoteClient interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]*domain.Quote, error)
	ScreenUSEquities(ctx context.Context, minMarketCap float64, limit int) ([]domain.Quote, error)
}

// SettingsReader exposes the settings the universe service consults.
type SettingsReader interface {
	GetFloat(key string, defaultValue float64) (float64, error)
	GetInt(key string, defaultValue int) (int, error)
}
