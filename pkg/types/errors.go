package types

import (
	"errors"
	"net/http"
)

// EngineError is a typed engine failure with a stable wire code and an HTTP
// status suggestion. Services return these (possibly wrapped); handlers map
// them to responses with errors.As.
type EngineError struct {
	Code    string
	Message string
	HTTP    int
}

func (e *EngineError) Error() string {
	return e.Code + ": " + e.Message
}

// Engine error taxonomy.
var (
	ErrListingNotFound = &EngineError{
		Code:    "LISTING_NOT_FOUND",
		Message: "listing does not exist",
		HTTP:    http.StatusNotFound,
	}
	ErrQuoteMismatch = &EngineError{
		Code:    "QUOTE_MISMATCH",
		Message: "price diverged from the bound quote beyond tolerance",
		HTTP:    http.StatusBadRequest,
	}
	ErrNonceExpired = &EngineError{
		Code:    "NONCE_EXPIRED",
		Message: "proof nonce is unknown, consumed, or past its TTL",
		HTTP:    http.StatusBadRequest,
	}
	ErrListingIDMismatch = &EngineError{
		Code:    "LISTING_ID_MISMATCH",
		Message: "proof nonce is bound to a different listing",
		HTTP:    http.StatusBadRequest,
	}
	ErrListingNotActive = &EngineError{
		Code:    "LISTING_NOT_ACTIVE",
		Message: "listing is not active",
		HTTP:    http.StatusConflict,
	}
	ErrAuctionEnded = &EngineError{
		Code:    "AUCTION_ENDED",
		Message: "auction decay window has elapsed",
		HTTP:    http.StatusBadRequest,
	}
	ErrRateLimited = &EngineError{
		Code:    "RATE_LIMITED",
		Message: "too many requests for this wallet or listing",
		HTTP:    http.StatusTooManyRequests,
	}
	ErrQueueUnavailable = &EngineError{
		Code:    "SETTLEMENT_QUEUE_UNAVAILABLE",
		Message: "settlement queue backend is unreachable",
		HTTP:    http.StatusServiceUnavailable,
	}
	ErrInvalidWallet = &EngineError{
		Code:    "INVALID_WALLET_ADDRESS",
		Message: "wallet address is not a valid hex address",
		HTTP:    http.StatusBadRequest,
	}
	ErrIntentNotFound = &EngineError{
		Code:    "INTENT_NOT_FOUND",
		Message: "buy intent does not exist",
		HTTP:    http.StatusNotFound,
	}
)

// SettlementFailedCode is recorded on settlement records and events for
// adapter-level failures. It is never returned on the synchronous path.
const SettlementFailedCode = "SETTLEMENT_FAILED"

// AsEngineError unwraps err to an *EngineError if one is in its chain.
func AsEngineError(err error) (*EngineError, bool) {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}
