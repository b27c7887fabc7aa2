package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// SettlementStatus is the outcome of an adapter execution.
type SettlementStatus string

const (
	SettlementSettled SettlementStatus = "SETTLED"
	SettlementFailed  SettlementStatus = "FAILED"
)

// SettlementRecord is the immutable receipt of one adapter execution.
// At most one record exists per intent; records are written once and never
// updated.
type SettlementRecord struct {
	ID            string           `json:"id"`
	IntentID      string           `json:"intent_id"`
	ListingID     string           `json:"listing_id"`
	TxHash        string           `json:"tx_hash,omitempty"`
	FinalPrice    decimal.Decimal  `json:"final_price"`
	Currency      string           `json:"currency"`
	Status        SettlementStatus `json:"status"`
	FailureReason string           `json:"failure_reason,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// SettlementEvent is published once per terminal intent outcome.
type SettlementEvent struct {
	Type          string          `json:"type"`
	IntentID      string          `json:"intent_id"`
	ListingID     string          `json:"listing_id"`
	Status        IntentStatus    `json:"status"`
	TxHash        string          `json:"tx_hash,omitempty"`
	FinalPrice    decimal.Decimal `json:"final_price"`
	Currency      string          `json:"currency"`
	FailureReason string          `json:"failure_reason,omitempty"`
}

// EventTypeSettlement is the type tag carried by settlement events.
const EventTypeSettlement = "settlement.terminal"
