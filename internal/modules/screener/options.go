package screener

import (
	"math"
	"time"

	"github.com/aristath/put-screener/internal/domain"
)

// PutCandidate is the selected put contract with its derived economics.
type PutCandidate struct {
	Expiration      time.Time
	Contract        domain.OptionContract
	DTE             int
	Premium         float64
	Spread          float64
	AnnualizedYield float64
}

// OptionsSelector picks the best-fit put contract from a ticker's
// options chain.
type OptionsSelector struct {
	cfg *Config
}

// NewOptionsSelector creates a new options selector
func NewOptionsSelector(cfg *Config) *OptionsSelector {
	return &OptionsSelector{cfg: cfg}
}

// SelectExpiration picks the expiration whose days-to-expiration is
// closest to the target, considering only expirations within the
// tolerance window. Ties go to the earlier expiration. Returns nil when
// no expiration qualifies.
func (s *OptionsSelector) SelectExpiration(expirations []time.Time, now time.Time) (*time.Time, int) {
	var best *time.Time
	bestDTE := 0

	for _, exp := range expirations {
		exp := exp
		dte := daysUntil(now, exp)
		if dte < 1 {
			continue
		}
		if abs(dte-s.cfg.TargetDTE) > s.cfg.DTETolerance {
			continue
		}

		if best == nil {
			best, bestDTE = &exp, dte
			continue
		}

		distance := abs(dte - s.cfg.TargetDTE)
		bestDistance := abs(bestDTE - s.cfg.TargetDTE)
		if distance < bestDistance || (distance == bestDistance && exp.Before(*best)) {
			best, bestDTE = &exp, dte
		}
	}

	return best, bestDTE
}

// SelectContract picks the put whose strike is below spot and closest
// to the discount target, then checks its quote quality and yield.
// When two strikes are equidistant from the target the lower strike
// wins. Returns the candidate, or the skip reason on rejection.
func (s *OptionsSelector) SelectContract(puts []domain.OptionContract, expiration time.Time, spot float64, dte int) (*PutCandidate, string) {
	target := spot * (1 - s.cfg.PutStrikeDiscount)

	var best *domain.OptionContract
	for i := range puts {
		put := &puts[i]
		if put.Strike >= spot {
			continue
		}
		if best == nil {
			best = put
			continue
		}

		distance := math.Abs(put.Strike - target)
		bestDistance := math.Abs(best.Strike - target)
		if distance < bestDistance || (distance == bestDistance && put.Strike < best.Strike) {
			best = put
		}
	}
	if best == nil {
		return nil, SkipNoStrike
	}

	bid := floatValue(best.Bid)
	ask := floatValue(best.Ask)
	if bid == 0 && ask == 0 {
		return nil, SkipNoQuote
	}

	premium := bid
	if ask > 0 {
		premium = (bid + ask) / 2
	}
	if premium <= 0 {
		return nil, SkipNoQuote
	}

	spread := 0.0
	if ask > 0 {
		spread = ask - bid
	}
	if spread > s.cfg.MaxSpreadRatio*premium {
		return nil, SkipWideSpread
	}

	yield := premium / best.Strike * 365 / float64(dte)
	if yield < s.cfg.MinAnnualizedYield {
		return nil, SkipLowYield
	}

	return &PutCandidate{
		Expiration:      expiration,
		Contract:        *best,
		DTE:             dte,
		Premium:         premium,
		Spread:          spread,
		AnnualizedYield: yield,
	}, ""
}

// PutsForExpiration filters a chain's puts to one expiration.
func PutsForExpiration(puts []domain.OptionContract, expiration time.Time) []domain.OptionContract {
	var matched []domain.OptionContract
	for _, put := range puts {
		if put.Expiration.Equal(expiration) {
			matched = append(matched, put)
		}
	}
	return matched
}

// daysUntil counts calendar days from now to the expiration, rounding
// partial days up so a contract expiring tomorrow has one day left.
func daysUntil(now, expiration time.Time) int {
	return int(math.Ceil(expiration.Sub(now).Hours() / 24))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func floatValue(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
