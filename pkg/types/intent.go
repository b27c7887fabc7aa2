package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// IntentStatus is the lifecycle state of a buy intent.
type IntentStatus string

const (
	IntentQueued    IntentStatus = "QUEUED"
	IntentSubmitted IntentStatus = "SUBMITTED"
	IntentConfirmed IntentStatus = "CONFIRMED"
	IntentFailed    IntentStatus = "FAILED"
)

// Terminal reports whether the status is final. Terminal intents are
// immutable and never retried.
func (s IntentStatus) Terminal() bool {
	return s == IntentConfirmed || s == IntentFailed
}

// BuyIntent is a buyer's validated commitment to settle a listing at a
// price bound by a consumed nonce. Exactly one intent per listing may reach
// CONFIRMED.
type BuyIntent struct {
	ID            string          `json:"id"`
	ListingID     string          `json:"listing_id"`
	WalletAddress string          `json:"wallet_address"`
	ClientPrice   decimal.Decimal `json:"client_price"`
	QuoteHash     string          `json:"quote_hash"`
	Status        IntentStatus    `json:"status"`
	ClaimedBy     string          `json:"claimed_by,omitempty"`
	FailureReason string          `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
}
