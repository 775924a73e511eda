package domain

import (
	"sort"
	"strings"
)

// SectorETFs maps normalized Yahoo sector names to their proxy ETFs.
// Relative-strength comparisons use these as the sector benchmark.
var SectorETFs = map[string]string{
	"technology":             "XLK",
	"financial-services":     "XLF",
	"healthcare":             "XLV",
	"energy":                 "XLE",
	"industrials":            "XLI",
	"consumer-cyclical":      "XLY",
	"consumer-defensive":     "XLP",
	"utilities":              "XLU",
	"real-estate":            "XLRE",
	"basic-materials":        "XLB",
	"communication-services": "XLC",
}

// MarketETFs are the broad-market proxies a screen can benchmark against.
var MarketETFs = []string{"SPY", "QQQ", "IWM"}

// DefaultMarketETF is the broad-market proxy used when none is configured.
const DefaultMarketETF = "SPY"

// NormalizeSector converts a Yahoo sector label to the map key form,
// e.g. "Financial Services" -> "financial-services".
func NormalizeSector(sector string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(sector)), " ", "-")
}

// SectorETFFor returns the proxy ETF for a Yahoo sector label.
func SectorETFFor(sector string) (string, bool) {
	etf, ok := SectorETFs[NormalizeSector(sector)]
	return etf, ok
}

// IsMarketETF reports whether symbol is one of the broad-market proxies.
func IsMarketETF(symbol string) bool {
	for _, etf := range MarketETFs {
		if etf == symbol {
			return true
		}
	}
	return false
}

// AllSectorETFs returns the sector proxy symbols in stable order.
func AllSectorETFs() []string {
	out := make([]string, 0, len(SectorETFs))
	for _, etf := range SectorETFs {
		out = append(out, etf)
	}
	sort.Strings(out)
	return out
}
