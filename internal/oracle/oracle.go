// Package oracle computes the authoritative decayed price of a listing.
//
// The computation is a pure function of (listing, at): two calls with the
// same inputs always yield the identical price, which is what lets the
// intent validator re-verify a quoted price server-side. Callers must pass
// server wall-clock time, never a client-supplied timestamp.
package oracle

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mselser95/auction-engine/pkg/types"
)

// priceScale is the number of decimal places prices are rounded to.
const priceScale = 2

var thousand = decimal.NewFromInt(1000)

// Price returns the decayed price of the listing at the given instant.
//
// price = max(reserve, start - (start-reserve)/duration * elapsed)
//
// Fails with types.ErrListingNotActive for SOLD/CANCELLED listings, and with
// types.ErrAuctionEnded for ENDED listings or ACTIVE listings whose decay
// window has fully elapsed. In the latter case the caller is responsible for
// transitioning the listing to ENDED.
func Price(l *types.Listing, at time.Time) (decimal.Decimal, error) {
	switch l.Status {
	case types.ListingActive:
		// fall through to decay check
	case types.ListingEnded:
		return decimal.Zero, types.ErrAuctionEnded
	default:
		return decimal.Zero, types.ErrListingNotActive
	}

	if l.DecayedOut(at) {
		return decimal.Zero, types.ErrAuctionEnded
	}

	PriceComputationsTotal.Inc()

	return priceAt(l, at), nil
}

// priceAt computes the clamped linear decay without lifecycle checks.
func priceAt(l *types.Listing, at time.Time) decimal.Decimal {
	elapsedMs := l.Elapsed(at).Milliseconds()
	durationMs := l.DecayDuration.Milliseconds()
	if durationMs <= 0 {
		return l.ReservePrice.Round(priceScale)
	}

	spread := l.StartPrice.Sub(l.ReservePrice)
	decayRate := spread.Div(decimal.NewFromInt(durationMs).Div(thousand))
	elapsedSec := decimal.NewFromInt(elapsedMs).Div(thousand)

	price := l.StartPrice.Sub(decayRate.Mul(elapsedSec)).Round(priceScale)
	if price.LessThan(l.ReservePrice) {
		return l.ReservePrice.Round(priceScale)
	}

	return price
}

// DiscountDepth returns how far the price has fallen toward the reserve:
// 0 at auction start, 1 at the reserve floor. Listings with no spread
// (start == reserve) report depth 0.
func DiscountDepth(l *types.Listing, at time.Time) decimal.Decimal {
	spread := l.StartPrice.Sub(l.ReservePrice)
	if spread.IsZero() {
		return decimal.Zero
	}

	price := priceAt(l, at)
	return l.StartPrice.Sub(price).Div(spread).Round(4)
}
