package universe

// AddSymbolsRequest is the body for manually adding tickers.
type AddSymbolsRequest struct {
	Symbols []string `json:"symbols"`
}

// AddSymbolsResponse reports what happened to each requested ticker.
type AddSymbolsResponse struct {
	Added   []string `json:"added"`
	Skipped []string `json:"skipped"`
}

// PopulateRequest is the body for screener-driven population.
type PopulateRequest struct {
	Limit int `json:"limit,omitempty"` // 0 means use the universe_screen_limit setting
}

// PopulateResponse summarizes a population run.
type PopulateResponse struct {
	Screened   int `json:"screened"`
	Upserted   int `json:"upserted"`
	Benchmarks int `json:"benchmarks"`
}

// Stats describes the current universe composition.
type Stats struct {
	Sectors      map[string]int `json:"sectors"`
	Total        int            `json:"total"`
	ActiveStocks int            `json:"active_stocks"`
	SectorETFs   int            `json:"sector_etfs"`
	MarketETFs   int            `json:"market_etfs"`
	Inactive     int            `json:"inactive"`
}
