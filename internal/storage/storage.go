// Package storage persists listings, price nonces, buy intents, and
// settlement records.
//
// Every state transition the engine relies on for correctness (nonce
// consumption, intent claim, terminal transitions, listing SOLD/ENDED) is a
// conditional write: the backend applies it only if the row is still in the
// expected prior state, and reports ErrConflict otherwise. No caller holds a
// listing-wide lock across an operation.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/mselser95/auction-engine/pkg/types"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("storage: not found")

	// ErrNoClaimableIntent is returned by ClaimNextIntent when no queued
	// intent is ready for settlement.
	ErrNoClaimableIntent = errors.New("storage: no claimable intent")

	// ErrConflict is returned when a conditional write finds the row in a
	// different state than required.
	ErrConflict = errors.New("storage: conflicting state")
)

// Store is the persistence interface for the engine.
type Store interface {
	// Listings. The catalog collaborator owns listing creation; the engine
	// mutates listings only through the transitions below.

	CreateListing(ctx context.Context, l *types.Listing) error
	GetListing(ctx context.Context, id string) (*types.Listing, error)

	// MarkListingSold transitions ACTIVE -> SOLD. Marking an already SOLD
	// listing is a no-op, not an error; any other state is ErrConflict.
	MarkListingSold(ctx context.Context, id string) error

	// MarkListingEnded transitions ACTIVE -> ENDED. A listing that already
	// left ACTIVE is left untouched (no error: another caller won the race).
	MarkListingEnded(ctx context.Context, id string) error

	// ResetListingAuction rewrites the auction clock (admin/demo trigger):
	// sets AuctionStartAt, forces status back to ACTIVE, and bumps
	// AuctionStateVersion so in-flight quotes invalidate.
	ResetListingAuction(ctx context.Context, id string, startAt time.Time) (*types.Listing, error)

	// Nonces.

	InsertNonce(ctx context.Context, n *types.PriceNonce) error

	// GetNonceByToken reads a nonce without consuming it. The binding fields
	// are immutable, so validators may check them before the consume flip.
	GetNonceByToken(ctx context.Context, token string) (*types.PriceNonce, error)

	// ConsumeNonce atomically flips consumed=false to true for an unexpired
	// token and returns the stored quote. An unknown, consumed, or expired
	// token yields ErrNotFound; under concurrent consumption exactly one
	// caller succeeds.
	ConsumeNonce(ctx context.Context, token string, now time.Time) (*types.PriceNonce, error)

	// DeleteExpiredNonces garbage-collects unconsumed nonces past their TTL.
	// Consumed nonces are retained for audit.
	DeleteExpiredNonces(ctx context.Context, now time.Time) (int64, error)

	// Intents.

	InsertIntent(ctx context.Context, i *types.BuyIntent) error
	GetIntent(ctx context.Context, id string) (*types.BuyIntent, error)

	// ClaimNextIntent atomically claims the oldest QUEUED, unexpired intent
	// whose listing is still ACTIVE: QUEUED -> SUBMITTED with claimed_by set
	// to workerID. Exactly one claimant wins each intent.
	ClaimNextIntent(ctx context.Context, workerID string, now time.Time) (*types.BuyIntent, error)

	// FinalizeIntent transitions SUBMITTED -> CONFIRMED or FAILED. Terminal
	// intents are immutable; finalizing from any other state is ErrConflict.
	FinalizeIntent(ctx context.Context, id string, status types.IntentStatus, reason string) error

	// ExpireQueuedIntents fails every QUEUED intent past its expiry with
	// reason "expired before claim" and returns the terminated intents.
	ExpireQueuedIntents(ctx context.Context, now time.Time) ([]*types.BuyIntent, error)

	// CountStuckSubmitted counts intents sitting SUBMITTED since before the
	// cutoff. Such intents are surfaced for manual reconciliation, never
	// auto-retried.
	CountStuckSubmitted(ctx context.Context, cutoff time.Time) (int64, error)

	// Settlement records (append-only).

	InsertSettlementRecord(ctx context.Context, r *types.SettlementRecord) error
	GetSettlementRecordByIntent(ctx context.Context, intentID string) (*types.SettlementRecord, error)

	// Ping reports backend reachability.
	Ping(ctx context.Context) error

	// Close closes the backend.
	Close() error
}
