package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// ListingStatus is the lifecycle state of an auction listing.
type ListingStatus string

const (
	ListingActive    ListingStatus = "ACTIVE"
	ListingSold      ListingStatus = "SOLD"
	ListingEnded     ListingStatus = "ENDED"
	ListingCancelled ListingStatus = "CANCELLED"
)

// Listing is a Dutch-auction listing: a falling price between StartPrice and
// ReservePrice over DecayDuration, starting at AuctionStartAt.
//
// AuctionStateVersion increments on every externally triggered state change
// (manual reset, forced breach, time-warp) so that in-flight quotes bound to
// an older version are invalidated.
type Listing struct {
	ID                  string          `json:"id"`
	Title               string          `json:"title,omitempty"`
	StartPrice          decimal.Decimal `json:"start_price"`
	ReservePrice        decimal.Decimal `json:"reserve_price"`
	AuctionStartAt      time.Time       `json:"auction_start_at"`
	DecayDuration       time.Duration   `json:"decay_duration_seconds"`
	Status              ListingStatus   `json:"status"`
	AuctionStateVersion int64           `json:"auction_state_version"`
	CreatedAt           time.Time       `json:"created_at"`
}

// Elapsed returns the decay time elapsed at the given instant, clamped to
// [0, DecayDuration].
func (l *Listing) Elapsed(at time.Time) time.Duration {
	elapsed := at.Sub(l.AuctionStartAt)
	if elapsed < 0 {
		return 0
	}
	if elapsed > l.DecayDuration {
		return l.DecayDuration
	}
	return elapsed
}

// DecayedOut reports whether the full decay window has elapsed at the given
// instant.
func (l *Listing) DecayedOut(at time.Time) bool {
	return !at.Before(l.AuctionStartAt.Add(l.DecayDuration))
}
