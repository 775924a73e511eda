package screener

// RelativeStrengthQualifies applies the three-level strength gate: the
// stock must sit strictly lower in its 52-week range than its sector
// ETF, which must sit strictly lower than the market ETF.
//
// A missing percentile at any level fails; a stock cannot qualify
// without both comparators. Equality at either boundary fails.
func RelativeStrengthQualifies(stock, sector, market *float64) bool {
	if stock == nil || sector == nil || market == nil {
		return false
	}
	return *stock < *sector && *sector < *market
}
