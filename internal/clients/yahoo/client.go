// Package yahoo provides the Yahoo Finance clients used for quotes,
// options chains, universe screening, and daily price history.
package yahoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/put-screener/internal/domain"
)

// Client is a Yahoo Finance API client for quote snapshots, options
// chains, and the equity screener endpoint.
type Client struct {
	client *http.Client
	log    zerolog.Logger
}

// NewClient creates a new Yahoo Finance client
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

// quoteFields are the quote endpoint fields screening needs.
const quoteFields = "symbol,longName,shortName,quoteType,sector,industry," +
	"regularMarketPrice,trailingPE,marketCap,sharesOutstanding,earningsTimestamp"

// yahooQuoteResponse represents the response from Yahoo Finance quote API
type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []map[string]interface{} `json:"result"`
		Error  interface{}              `json:"error"`
	} `json:"quoteResponse"`
}

// GetQuotes fetches quote snapshots for multiple symbols, chunked to the
// API's batch limit. Symbols Yahoo does not know are absent from the
// result map; a failed batch is logged and skipped so one bad batch does
// not lose the rest.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) (map[string]*domain.Quote, error) {
	if len(symbols) == 0 {
		return map[string]*domain.Quote{}, nil
	}

	// Yahoo API limit: ~100 symbols per request
	const batchSize = 100
	result := make(map[string]*domain.Quote)
	var lastErr error

	for i := 0; i < len(symbols); i += batchSize {
		end := i + batchSize
		if end > len(symbols) {
			end = len(symbols)
		}

		batch := symbols[i:end]
		quotes, err := c.getBatchQuoteInfo(ctx, batch)
		if err != nil {
			c.log.Warn().Err(err).Int("batch_size", len(batch)).Msg("Failed to fetch batch quotes")
			lastErr = err
			continue
		}

		for symbol, info := range quotes {
			result[symbol] = parseQuote(symbol, info)
		}
	}

	if len(result) == 0 && lastErr != nil {
		return nil, lastErr
	}

	c.log.Info().
		Int("requested", len(symbols)).
		Int("fetched", len(result)).
		Msg("Batch quote fetch complete")

	return result, nil
}

// getBatchQuoteInfo fetches quote information for multiple symbols
func (c *Client) getBatchQuoteInfo(ctx context.Context, symbols []string) (map[string]map[string]interface{}, error) {
	if len(symbols) == 0 {
		return map[string]map[string]interface{}{}, nil
	}

	baseURL := "https://query1.finance.yahoo.com/v7/finance/quote"

	params := url.Values{}
	params.Add("symbols", strings.Join(symbols, ","))
	params.Add("fields", quoteFields)

	body, err := c.doRequest(ctx, http.MethodGet, baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var result yahooQuoteResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.QuoteResponse.Error != nil {
		return nil, fmt.Errorf("Yahoo Finance API error: %v", result.QuoteResponse.Error)
	}

	// Build map of symbol -> quote info
	quotes := make(map[string]map[string]interface{})
	for _, quote := range result.QuoteResponse.Result {
		if symbol, ok := quote["symbol"].(string); ok {
			quotes[symbol] = quote
		}
	}

	return quotes, nil
}

// parseQuote extracts the screening fields from a raw quote map.
func parseQuote(symbol string, info map[string]interface{}) *domain.Quote {
	q := &domain.Quote{
		Symbol:            symbol,
		Sector:            getString(info, "sector", ""),
		Industry:          getString(info, "industry", ""),
		QuoteType:         getString(info, "quoteType", ""),
		Price:             getFloat64(info, "regularMarketPrice"),
		MarketCap:         getFloat64(info, "marketCap"),
		SharesOutstanding: getFloat64(info, "sharesOutstanding"),
		TrailingPE:        getFloat64(info, "trailingPE"),
	}

	// Try longName first, then shortName
	if name := getStringPtr(info, "longName"); name != nil {
		q.Name = *name
	} else if name := getStringPtr(info, "shortName"); name != nil {
		q.Name = *name
	}

	if ts := getInt64(info, "earningsTimestamp"); ts != nil {
		t := time.Unix(*ts, 0).UTC()
		q.EarningsTimestamp = &t
	}

	return q
}

// optionContractJSON mirrors one contract in the options response. Bid and
// ask are pointers because Yahoo omits them for unquoted contracts.
type optionContractJSON struct {
	ContractSymbol string   `json:"contractSymbol"`
	Strike         float64  `json:"strike"`
	Bid            *float64 `json:"bid"`
	Ask            *float64 `json:"ask"`
	LastPrice      *float64 `json:"lastPrice"`
	OpenInterest   *int64   `json:"openInterest"`
	Volume         *int64   `json:"volume"`
	Expiration     int64    `json:"expiration"`
}

// GetOptionsChain fetches the puts side of a ticker's options chain.
// Without an expiration it returns all listed expiration dates plus the
// nearest expiration's contracts; pass an expiration to fetch its
// contracts specifically.
func (c *Client) GetOptionsChain(ctx context.Context, symbol string, expiration *time.Time) (*domain.OptionChain, error) {
	reqURL := "https://query1.finance.yahoo.com/v7/finance/options/" + url.PathEscape(symbol)
	if expiration != nil {
		params := url.Values{}
		params.Add("date", fmt.Sprintf("%d", expiration.Unix()))
		reqURL += "?" + params.Encode()
	}

	body, err := c.doRequest(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		OptionChain struct {
			Result []struct {
				UnderlyingSymbol string  `json:"underlyingSymbol"`
				ExpirationDates  []int64 `json:"expirationDates"`
				Quote            struct {
					RegularMarketPrice *float64 `json:"regularMarketPrice"`
				} `json:"quote"`
				Options []struct {
					ExpirationDate int64                `json:"expirationDate"`
					Puts           []optionContractJSON `json:"puts"`
				} `json:"options"`
			} `json:"result"`
			Error interface{} `json:"error"`
		} `json:"optionChain"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.OptionChain.Error != nil {
		return nil, fmt.Errorf("Yahoo Finance API error: %v", result.OptionChain.Error)
	}

	if len(result.OptionChain.Result) == 0 {
		return nil, &domain.DataUnavailableError{Symbol: symbol, Reason: "no options chain"}
	}

	data := result.OptionChain.Result[0]
	chain := &domain.OptionChain{
		Symbol:          symbol,
		UnderlyingPrice: data.Quote.RegularMarketPrice,
	}

	for _, ts := range data.ExpirationDates {
		chain.Expirations = append(chain.Expirations, time.Unix(ts, 0).UTC())
	}

	if len(data.Options) > 0 {
		for _, p := range data.Options[0].Puts {
			chain.Puts = append(chain.Puts, domain.OptionContract{
				Expiration:     time.Unix(p.Expiration, 0).UTC(),
				ContractSymbol: p.ContractSymbol,
				Strike:         p.Strike,
				Bid:            p.Bid,
				Ask:            p.Ask,
				LastPrice:      p.LastPrice,
				OpenInterest:   p.OpenInterest,
				Volume:         p.Volume,
			})
		}
	}

	c.log.Debug().
		Str("symbol", symbol).
		Int("expirations", len(chain.Expirations)).
		Int("puts", len(chain.Puts)).
		Msg("Fetched options chain")

	return chain, nil
}

// screenQuery is one operator node in the screener query tree.
type screenQuery struct {
	Operator string        `json:"operator"`
	Operands []interface{} `json:"operands"`
}

// screenRequest is the JSON body for the equity screener endpoint.
type screenRequest struct {
	Size       int         `json:"size"`
	Offset     int         `json:"offset"`
	SortField  string      `json:"sortField"`
	SortType   string      `json:"sortType"`
	QuoteType  string      `json:"quoteType"`
	Query      screenQuery `json:"query"`
	UserID     string      `json:"userId"`
	UserIDType string      `json:"userIdType"`
}

// ScreenUSEquities fetches US stocks with market cap at or above
// minMarketCap, ordered by market cap descending. Pages through screener
// results until limit symbols are collected or the screener runs out.
func (c *Client) ScreenUSEquities(ctx context.Context, minMarketCap float64, limit int) ([]domain.Quote, error) {
	const pageSize = 250
	screenURL := "https://query1.finance.yahoo.com/v1/finance/screener"

	var out []domain.Quote
	for offset := 0; offset < limit; offset += pageSize {
		size := pageSize
		if remaining := limit - offset; remaining < size {
			size = remaining
		}

		reqBody := screenRequest{
			Size:      size,
			Offset:    offset,
			SortField: "intradaymarketcap",
			SortType:  "DESC",
			QuoteType: "EQUITY",
			Query: screenQuery{
				Operator: "and",
				Operands: []interface{}{
					screenQuery{Operator: "eq", Operands: []interface{}{"region", "us"}},
					screenQuery{Operator: "gte", Operands: []interface{}{"intradaymarketcap", minMarketCap}},
				},
			},
			UserIDType: "guid",
		}

		payload, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal screener request: %w", err)
		}

		body, err := c.doRequest(ctx, http.MethodPost, screenURL, payload)
		if err != nil {
			return nil, err
		}

		var result struct {
			Finance struct {
				Result []struct {
					Quotes []map[string]interface{} `json:"quotes"`
					Total  int                      `json:"total"`
				} `json:"result"`
				Error interface{} `json:"error"`
			} `json:"finance"`
		}

		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}

		if result.Finance.Error != nil {
			return nil, fmt.Errorf("Yahoo Finance API error: %v", result.Finance.Error)
		}

		if len(result.Finance.Result) == 0 {
			break
		}

		page := result.Finance.Result[0]
		for _, info := range page.Quotes {
			symbol, ok := info["symbol"].(string)
			if !ok || symbol == "" {
				continue
			}
			out = append(out, *parseQuote(symbol, info))
		}

		c.log.Debug().
			Int("offset", offset).
			Int("fetched", len(page.Quotes)).
			Int("total_available", page.Total).
			Msg("Screener page fetched")

		// Last page
		if len(page.Quotes) < size {
			break
		}
	}

	c.log.Info().
		Float64("min_market_cap", minMarketCap).
		Int("count", len(out)).
		Msg("Equity screen complete")

	return out, nil
}

// doRequest performs an HTTP request with browser headers and exponential
// backoff. Exhausted retries surface as an ExternalServiceError carrying
// the last status code.
func (c *Client) doRequest(ctx context.Context, method, reqURL string, payload []byte) ([]byte, error) {
	const maxRetries = 3
	var lastErr error
	lastStatus := 0

	for attempt := 0; attempt < maxRetries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		// Set headers to mimic browser
		req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err == nil && resp.StatusCode == http.StatusOK {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				return nil, fmt.Errorf("failed to read response body: %w", readErr)
			}
			return body, nil
		}

		// Close failed response bodies to prevent resource leaks
		if resp != nil {
			resp.Body.Close()
			lastStatus = resp.StatusCode
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
		} else {
			lastErr = err
		}

		if attempt < maxRetries-1 {
			waitTime := time.Duration(1<<uint(attempt)) * time.Second
			c.log.Warn().
				Err(lastErr).
				Int("attempt", attempt+1).
				Dur("wait", waitTime).
				Msg("Request failed, retrying")
			time.Sleep(waitTime)
		}
	}

	return nil, &domain.ExternalServiceError{Service: "yahoo", StatusCode: lastStatus, Err: lastErr}
}

// Helper functions to safely extract values from map

func getFloat64(m map[string]interface{}, key string) *float64 {
	if val, ok := m[key]; ok && val != nil {
		switch v := val.(type) {
		case float64:
			return &v
		case int:
			f := float64(v)
			return &f
		case int64:
			f := float64(v)
			return &f
		}
	}
	return nil
}

func getInt64(m map[string]interface{}, key string) *int64 {
	if val, ok := m[key]; ok && val != nil {
		switch v := val.(type) {
		case float64:
			i := int64(v)
			return &i
		case int:
			i := int64(v)
			return &i
		case int64:
			return &v
		}
	}
	return nil
}

func getString(m map[string]interface{}, key string, defaultVal string) string {
	if val, ok := m[key]; ok && val != nil {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return defaultVal
}

func getStringPtr(m map[string]interface{}, key string) *string {
	if val, ok := m[key]; ok && val != nil {
		if s, ok := val.(string); ok && s != "" {
			return &s
		}
	}
	return nil
}
