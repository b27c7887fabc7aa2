package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mselser95/auction-engine/pkg/types"
)

// MemoryStore implements Store with in-process maps. It backs demo mode and
// tests; a single mutex gives it the same conditional-write semantics the
// postgres backend gets from guarded UPDATEs.
type MemoryStore struct {
	mu       sync.Mutex
	listings map[string]*types.Listing
	nonces   map[string]*types.PriceNonce // keyed by token
	intents  map[string]*types.BuyIntent
	records  map[string]*types.SettlementRecord // keyed by intent ID
	logger   *zap.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	logger.Info("memory-store-initialized")
	return &MemoryStore{
		listings: make(map[string]*types.Listing),
		nonces:   make(map[string]*types.PriceNonce),
		intents:  make(map[string]*types.BuyIntent),
		records:  make(map[string]*types.SettlementRecord),
		logger:   logger,
	}
}

// CreateListing inserts a listing.
func (m *MemoryStore) CreateListing(ctx context.Context, l *types.Listing) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.listings[l.ID]; exists {
		return fmt.Errorf("listing %s already exists: %w", l.ID, ErrConflict)
	}

	cp := *l
	m.listings[l.ID] = &cp
	return nil
}

// GetListing fetches a listing by ID.
func (m *MemoryStore) GetListing(ctx context.Context, id string) (*types.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[id]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *l
	return &cp, nil
}

// MarkListingSold transitions ACTIVE -> SOLD idempotently.
func (m *MemoryStore) MarkListingSold(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[id]
	if !ok {
		return ErrNotFound
	}

	switch l.Status {
	case types.ListingSold:
		return nil // already sold, no-op
	case types.ListingActive:
		l.Status = types.ListingSold
		return nil
	default:
		return fmt.Errorf("mark listing sold %s from %s: %w", id, l.Status, ErrConflict)
	}
}

// MarkListingEnded transitions ACTIVE -> ENDED, silently losing the race to
// any other transition.
func (m *MemoryStore) MarkListingEnded(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[id]
	if !ok {
		return ErrNotFound
	}

	if l.Status == types.ListingActive {
		l.Status = types.ListingEnded
	}
	return nil
}

// ResetListingAuction rewinds the auction clock and bumps the state version.
func (m *MemoryStore) ResetListingAuction(ctx context.Context, id string, startAt time.Time) (*types.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[id]
	if !ok {
		return nil, ErrNotFound
	}

	l.AuctionStartAt = startAt
	l.Status = types.ListingActive
	l.AuctionStateVersion++

	cp := *l
	return &cp, nil
}

// InsertNonce persists a freshly issued price nonce.
func (m *MemoryStore) InsertNonce(ctx context.Context, n *types.PriceNonce) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.nonces[n.Token]; exists {
		return fmt.Errorf("nonce token collision: %w", ErrConflict)
	}

	cp := *n
	m.nonces[n.Token] = &cp
	return nil
}

// GetNonceByToken reads a nonce without consuming it.
func (m *MemoryStore) GetNonceByToken(ctx context.Context, token string) (*types.PriceNonce, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nonces[token]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *n
	return &cp, nil
}

// ConsumeNonce is the atomic check-and-flip over (consumed, expires_at).
func (m *MemoryStore) ConsumeNonce(ctx context.Context, token string, now time.Time) (*types.PriceNonce, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.nonces[token]
	if !ok || n.Consumed || now.After(n.ExpiresAt) {
		return nil, ErrNotFound
	}

	n.Consumed = true
	cp := *n
	return &cp, nil
}

// DeleteExpiredNonces removes unconsumed nonces past their TTL.
func (m *MemoryStore) DeleteExpiredNonces(ctx context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for token, n := range m.nonces {
		if !n.Consumed && now.After(n.ExpiresAt) {
			delete(m.nonces, token)
			deleted++
		}
	}

	return deleted, nil
}

// InsertIntent persists a freshly validated buy intent.
func (m *MemoryStore) InsertIntent(ctx context.Context, i *types.BuyIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.intents[i.ID]; exists {
		return fmt.Errorf("intent %s already exists: %w", i.ID, ErrConflict)
	}

	cp := *i
	m.intents[i.ID] = &cp
	return nil
}

// GetIntent fetches an intent by ID.
func (m *MemoryStore) GetIntent(ctx context.Context, id string) (*types.BuyIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.intents[id]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *i
	return &cp, nil
}

// ClaimNextIntent claims the oldest eligible QUEUED intent.
func (m *MemoryStore) ClaimNextIntent(ctx context.Context, workerID string, now time.Time) (*types.BuyIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var candidates []*types.BuyIntent
	for _, i := range m.intents {
		if i.Status != types.IntentQueued || !i.ExpiresAt.After(now) {
			continue
		}
		l, ok := m.listings[i.ListingID]
		if !ok || l.Status != types.ListingActive {
			continue
		}
		candidates = append(candidates, i)
	}

	if len(candidates) == 0 {
		return nil, ErrNoClaimableIntent
	}

	sort.Slice(candidates, func(a, b int) bool {
		return candidates[a].CreatedAt.Before(candidates[b].CreatedAt)
	})

	claimed := candidates[0]
	claimed.Status = types.IntentSubmitted
	claimed.ClaimedBy = workerID

	cp := *claimed
	return &cp, nil
}

// FinalizeIntent transitions SUBMITTED -> CONFIRMED/FAILED.
func (m *MemoryStore) FinalizeIntent(ctx context.Context, id string, status types.IntentStatus, reason string) error {
	if !status.Terminal() {
		return fmt.Errorf("finalize intent %s to non-terminal status %s: %w", id, status, ErrConflict)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i, ok := m.intents[id]
	if !ok {
		return ErrNotFound
	}
	if i.Status != types.IntentSubmitted {
		return fmt.Errorf("finalize intent %s from %s: %w", id, i.Status, ErrConflict)
	}

	i.Status = status
	i.FailureReason = reason
	return nil
}

// ExpireQueuedIntents sweeps expired QUEUED intents into FAILED.
func (m *MemoryStore) ExpireQueuedIntents(ctx context.Context, now time.Time) ([]*types.BuyIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []*types.BuyIntent
	for _, i := range m.intents {
		if i.Status == types.IntentQueued && !i.ExpiresAt.After(now) {
			i.Status = types.IntentFailed
			i.FailureReason = "expired before claim"
			cp := *i
			expired = append(expired, &cp)
		}
	}

	return expired, nil
}

// CountStuckSubmitted counts SUBMITTED intents older than the cutoff.
func (m *MemoryStore) CountStuckSubmitted(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, i := range m.intents {
		if i.Status == types.IntentSubmitted && i.CreatedAt.Before(cutoff) {
			count++
		}
	}

	return count, nil
}

// InsertSettlementRecord appends a settlement receipt, at most one per intent.
func (m *MemoryStore) InsertSettlementRecord(ctx context.Context, r *types.SettlementRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[r.IntentID]; exists {
		return fmt.Errorf("settlement record for intent %s already exists: %w", r.IntentID, ErrConflict)
	}

	cp := *r
	m.records[r.IntentID] = &cp
	return nil
}

// GetSettlementRecordByIntent fetches the receipt for an intent.
func (m *MemoryStore) GetSettlementRecordByIntent(ctx context.Context, intentID string) (*types.SettlementRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[intentID]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *r
	return &cp, nil
}

// Ping always succeeds for the in-memory backend.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory backend.
func (m *MemoryStore) Close() error {
	m.logger.Info("closing-memory-store")
	return nil
}
