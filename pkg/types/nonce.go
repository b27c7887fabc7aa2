package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceNonce binds a computed price to a moment in time. A nonce is
// consumable exactly once and expires after a short TTL; consumed nonces are
// flagged rather than deleted so the quote trail stays auditable.
type PriceNonce struct {
	ID                  string          `json:"id"`
	Token               string          `json:"token"`
	ListingID           string          `json:"listing_id"`
	QuotedPrice         decimal.Decimal `json:"quoted_price"`
	AuctionStateVersion int64           `json:"auction_state_version_at_quote"`
	QuotedAt            time.Time       `json:"quoted_at"`
	ExpiresAt           time.Time       `json:"expires_at"`
	Consumed            bool            `json:"consumed"`
}

// Expired reports whether the nonce is past its TTL at the given instant.
func (n *PriceNonce) Expired(at time.Time) bool {
	return at.After(n.ExpiresAt)
}
