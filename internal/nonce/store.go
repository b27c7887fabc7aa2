// Package nonce issues and consumes single-use price nonces: the binding
// between an oracle price and the moment it was quoted.
package nonce

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mselser95/auction-engine/internal/listings"
	"github.com/mselser95/auction-engine/internal/oracle"
	"github.com/mselser95/auction-engine/internal/storage"
	"github.com/mselser95/auction-engine/pkg/types"
)

// tokenBytes is the entropy of a nonce token. 32 bytes comfortably clears
// the 128-bit unguessability floor.
const tokenBytes = 32

// Store issues and consumes price nonces.
type Store struct {
	store      storage.Store
	listings   *listings.Service
	ttl        time.Duration
	gcInterval time.Duration
	logger     *zap.Logger
}

// Config holds nonce store configuration.
type Config struct {
	Store      storage.Store
	Listings   *listings.Service
	TTL        time.Duration
	GCInterval time.Duration
	Logger     *zap.Logger
}

// New creates a nonce store.
func New(cfg *Config) *Store {
	return &Store{
		store:      cfg.Store,
		listings:   cfg.Listings,
		ttl:        cfg.TTL,
		gcInterval: cfg.GCInterval,
		logger:     cfg.Logger,
	}
}

// Issue computes the current price of the listing and binds it to a fresh
// single-use token. A listing whose decay window has fully elapsed is
// transitioned to ENDED before the AUCTION_ENDED failure is returned.
func (s *Store) Issue(ctx context.Context, listingID string) (*types.PriceNonce, error) {
	listing, err := s.listings.Get(ctx, listingID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	price, err := oracle.Price(listing, now)
	if errors.Is(err, types.ErrAuctionEnded) && listing.Status == types.ListingActive {
		endErr := s.listings.MarkEnded(ctx, listingID)
		if endErr != nil {
			s.logger.Warn("listing-end-transition-failed",
				zap.String("listing-id", listingID),
				zap.Error(endErr))
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	n := &types.PriceNonce{
		ID:                  uuid.NewString(),
		Token:               token,
		ListingID:           listingID,
		QuotedPrice:         price,
		AuctionStateVersion: listing.AuctionStateVersion,
		QuotedAt:            now,
		ExpiresAt:           now.Add(s.ttl),
		Consumed:            false,
	}

	err = s.store.InsertNonce(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("persist nonce: %w", err)
	}

	IssuedTotal.Inc()
	s.logger.Debug("nonce-issued",
		zap.String("listing-id", listingID),
		zap.String("price", price.String()),
		zap.Time("expires-at", n.ExpiresAt))

	return n, nil
}

// Peek reads the quote bound to a token without consuming it. Unknown
// tokens fail with types.ErrNonceExpired, the same as a consume would, so
// callers cannot probe for token existence.
func (s *Store) Peek(ctx context.Context, token string) (*types.PriceNonce, error) {
	n, err := s.store.GetNonceByToken(ctx, token)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.ErrNonceExpired
	}
	if err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}

	return n, nil
}

// Consume atomically flips the token to consumed and returns the bound
// quote. Unknown, already consumed, or expired tokens all fail with
// types.ErrNonceExpired; exactly one of any set of concurrent consumers
// succeeds.
func (s *Store) Consume(ctx context.Context, token string) (*types.PriceNonce, error) {
	n, err := s.store.ConsumeNonce(ctx, token, time.Now())
	if errors.Is(err, storage.ErrNotFound) {
		ConsumeFailuresTotal.Inc()
		return nil, types.ErrNonceExpired
	}
	if err != nil {
		return nil, fmt.Errorf("consume nonce: %w", err)
	}

	ConsumedTotal.Inc()
	return n, nil
}

// RunGC deletes expired unconsumed nonces until the context is cancelled.
// Consumed nonces stay behind as the audit trail.
func (s *Store) RunGC(ctx context.Context) {
	ticker := time.NewTicker(s.gcInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("nonce-gc-stopping")
			return
		case <-ticker.C:
			deleted, err := s.store.DeleteExpiredNonces(ctx, time.Now())
			if err != nil {
				s.logger.Error("nonce-gc-error", zap.Error(err))
				continue
			}
			if deleted > 0 {
				GCDeletedTotal.Add(float64(deleted))
				s.logger.Debug("nonce-gc-swept", zap.Int64("deleted", deleted))
			}
		}
	}
}

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	_, err := rand.Read(buf)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
