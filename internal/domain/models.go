// Package domain contains the shared types used across modules.
package domain

import "time"

// Security represents a screened security: a stock, a sector ETF, or a
// market index ETF.
type Security struct {
	AddedAt           time.Time  `json:"added_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	NextEarnings      *time.Time `json:"next_earnings,omitempty"`
	Symbol            string     `json:"symbol"`
	Name              string     `json:"name"`
	Sector            string     `json:"sector"`
	Industry          string     `json:"industry"`
	SectorETF         string     `json:"sector_etf"`
	MarketCap         *float64   `json:"market_cap,omitempty"`
	SharesOutstanding *float64   `json:"shares_outstanding,omitempty"`
	IsSectorETF       bool       `json:"is_sector_etf"`
	IsMarketETF       bool       `json:"is_market_etf"`
	Active            bool       `json:"active"`
}

// IsStock reports whether the security is a regular stock rather than one
// of the benchmark ETFs.
func (s *Security) IsStock() bool {
	return !s.IsSectorETF && !s.IsMarketETF
}

// DailyPrice represents one daily OHLCV bar, adjusted for splits and
// dividends at ingestion. Date is formatted YYYY-MM-DD.
type DailyPrice struct {
	Date     string   `json:"date"`
	Open     float64  `json:"open"`
	High     float64  `json:"high"`
	Low      float64  `json:"low"`
	Close    float64  `json:"close"`
	AdjClose *float64 `json:"adj_close,omitempty"`
	Volume   *int64   `json:"volume,omitempty"`
}

// Quote is a point-in-time snapshot of a security from the quote provider,
// carrying the fundamental fields screening needs.
type Quote struct {
	EarningsTimestamp *time.Time `json:"earnings_timestamp,omitempty"`
	Symbol            string     `json:"symbol"`
	Name              string     `json:"name"`
	Sector            string     `json:"sector"`
	Industry          string     `json:"industry"`
	QuoteType         string     `json:"quote_type"`
	Price             *float64   `json:"price,omitempty"`
	MarketCap         *float64   `json:"market_cap,omitempty"`
	SharesOutstanding *float64   `json:"shares_outstanding,omitempty"`
	TrailingPE        *float64   `json:"trailing_pe,omitempty"`
}

// OptionContract is a single put contract from an options chain.
type OptionContract struct {
	Expiration     time.Time `json:"expiration"`
	ContractSymbol string    `json:"contract_symbol"`
	Strike         float64   `json:"strike"`
	Bid            *float64  `json:"bid,omitempty"`
	Ask            *float64  `json:"ask,omitempty"`
	LastPrice      *float64  `json:"last_price,omitempty"`
	OpenInterest   *int64    `json:"open_interest,omitempty"`
	Volume         *int64    `json:"volume,omitempty"`
}

// OptionChain is the puts side of a ticker's options chain for one
// expiration, along with all listed expirations.
type OptionChain struct {
	Symbol          string           `json:"symbol"`
	UnderlyingPrice *float64         `json:"underlying_price,omitempty"`
	Expirations     []time.Time      `json:"expirations"`
	Puts            []OptionContract `json:"puts"`
}
