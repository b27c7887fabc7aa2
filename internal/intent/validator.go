// Package intent implements the synchronous buy-intent path: an ordered
// validation pipeline ending in a persisted QUEUED intent.
//
// Every step is a hard failure point. Apart from the nonce consumption
// flip, a failed validation leaves no state behind.
package intent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/auction-engine/internal/listings"
	"github.com/mselser95/auction-engine/internal/nonce"
	"github.com/mselser95/auction-engine/internal/oracle"
	"github.com/mselser95/auction-engine/internal/ratelimit"
	"github.com/mselser95/auction-engine/internal/storage"
	"github.com/mselser95/auction-engine/pkg/types"
)

// Request is a buyer's intent submission.
type Request struct {
	ListingID     string
	WalletAddress string
	ClientPrice   decimal.Decimal
	ProofNonce    string
}

// Validator runs the intent validation pipeline.
type Validator struct {
	store     storage.Store
	listings  *listings.Service
	nonces    *nonce.Store
	limiter   *ratelimit.Limiter
	tolerance Tolerance
	intentTTL time.Duration
	logger    *zap.Logger
}

// Tolerance bounds acceptable price drift: the larger of an absolute floor
// and a relative share of the quoted price. A difference exactly at the
// bound is accepted.
type Tolerance struct {
	BasisPoints int64
	AbsMin      decimal.Decimal
}

// Bound returns the allowed absolute difference for a quoted price.
func (t Tolerance) Bound(quoted decimal.Decimal) decimal.Decimal {
	relative := quoted.Mul(decimal.NewFromInt(t.BasisPoints)).Div(decimal.NewFromInt(10_000))
	if relative.GreaterThan(t.AbsMin) {
		return relative
	}
	return t.AbsMin
}

// Within reports whether two prices agree within the tolerance.
func (t Tolerance) Within(quoted, other decimal.Decimal) bool {
	return quoted.Sub(other).Abs().LessThanOrEqual(t.Bound(quoted))
}

// Config holds validator configuration.
type Config struct {
	Store     storage.Store
	Listings  *listings.Service
	Nonces    *nonce.Store
	Limiter   *ratelimit.Limiter
	Tolerance Tolerance
	IntentTTL time.Duration
	Logger    *zap.Logger
}

// New creates an intent validator.
func New(cfg *Config) *Validator {
	return &Validator{
		store:     cfg.Store,
		listings:  cfg.Listings,
		nonces:    cfg.Nonces,
		limiter:   cfg.Limiter,
		tolerance: cfg.Tolerance,
		intentTTL: cfg.IntentTTL,
		logger:    cfg.Logger,
	}
}

// Validate runs the pipeline and persists a QUEUED intent on success.
func (v *Validator) Validate(ctx context.Context, req *Request) (*types.BuyIntent, error) {
	intent, err := v.validate(ctx, req)
	if err != nil {
		if ee, ok := types.AsEngineError(err); ok {
			RejectionsTotal.WithLabelValues(ee.Code).Inc()
		}
		return nil, err
	}

	AcceptedTotal.Inc()
	return intent, nil
}

func (v *Validator) validate(ctx context.Context, req *Request) (*types.BuyIntent, error) {
	// 1. Wallet format. Syntactic only; ownership is the settlement
	// adapter's problem.
	if !common.IsHexAddress(req.WalletAddress) {
		return nil, types.ErrInvalidWallet
	}

	// 2. Rate limits.
	err := v.limiter.Allow(req.WalletAddress, req.ListingID)
	if err != nil {
		return nil, err
	}

	// 3. Listing exists, and the nonce is bound to it. The binding fields
	// are immutable so this read does not race the consume below.
	_, err = v.listings.GetFresh(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}

	bound, err := v.nonces.Peek(ctx, req.ProofNonce)
	if err != nil {
		return nil, err
	}
	if bound.ListingID != req.ListingID {
		return nil, types.ErrListingIDMismatch
	}

	// 4. Consume the nonce. Exactly one submission per quote survives this.
	quote, err := v.nonces.Consume(ctx, req.ProofNonce)
	if err != nil {
		return nil, err
	}

	// 5. Re-verify against the freshest listing state. The oracle re-check
	// bounds drift inside the TTL window; the client price must match the
	// bound quote.
	listing, err := v.listings.GetFresh(ctx, req.ListingID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	current, err := oracle.Price(listing, now)
	if err != nil {
		return nil, err
	}

	if !v.tolerance.Within(quote.QuotedPrice, current) {
		v.logger.Info("quote-drift-rejected",
			zap.String("listing-id", req.ListingID),
			zap.String("quoted", quote.QuotedPrice.String()),
			zap.String("current", current.String()))
		return nil, types.ErrQuoteMismatch
	}

	if !v.tolerance.Within(quote.QuotedPrice, req.ClientPrice) {
		return nil, types.ErrQuoteMismatch
	}

	// 6. Listing still ACTIVE on the same auction state. An administrative
	// reset or time-warp invalidates every quote issued before it.
	if listing.Status != types.ListingActive {
		return nil, types.ErrListingNotActive
	}
	if listing.AuctionStateVersion != quote.AuctionStateVersion {
		return nil, types.ErrListingNotActive
	}

	// 7. Persist the intent.
	intent := &types.BuyIntent{
		ID:            uuid.NewString(),
		ListingID:     req.ListingID,
		WalletAddress: req.WalletAddress,
		ClientPrice:   req.ClientPrice,
		QuoteHash:     QuoteHash(req.ListingID, quote.QuotedPrice, quote.Token),
		Status:        types.IntentQueued,
		CreatedAt:     now,
		ExpiresAt:     now.Add(v.intentTTL),
	}

	err = v.store.InsertIntent(ctx, intent)
	if err != nil {
		v.logger.Error("intent-persist-failed",
			zap.String("listing-id", req.ListingID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %w", types.ErrQueueUnavailable, err)
	}

	v.logger.Info("intent-queued",
		zap.String("intent-id", intent.ID),
		zap.String("listing-id", intent.ListingID),
		zap.String("client-price", intent.ClientPrice.String()),
		zap.Time("expires-at", intent.ExpiresAt))

	return intent, nil
}

// Get returns an intent for buyer polling.
func (v *Validator) Get(ctx context.Context, id string) (*types.BuyIntent, error) {
	i, err := v.store.GetIntent(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.ErrIntentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get intent %s: %w", id, err)
	}

	return i, nil
}
