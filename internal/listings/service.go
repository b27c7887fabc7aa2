// Package listings mediates listing access for the engine: cached reads on
// the hot quote path, the SOLD/ENDED transitions, and the administrative
// triggers that reset or warp an auction.
package listings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/auction-engine/internal/storage"
	"github.com/mselser95/auction-engine/pkg/types"
)

// cacheTTL bounds how stale a cached listing may be on the quote path.
// Mutations invalidate eagerly, so this only covers external writers.
const cacheTTL = 500 * time.Millisecond

// Service provides listing reads and engine-side mutations.
type Service struct {
	store  storage.Store
	cache  *ristretto.Cache
	logger *zap.Logger
}

// Config holds listing service configuration.
type Config struct {
	Store  storage.Store
	Logger *zap.Logger
}

// New creates a listing service with a ristretto-backed read cache.
func New(cfg *Config) (*Service, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("create listing cache: %w", err)
	}

	return &Service{
		store:  cfg.Store,
		cache:  cache,
		logger: cfg.Logger,
	}, nil
}

// Get returns a listing, serving recent reads from cache.
func (s *Service) Get(ctx context.Context, id string) (*types.Listing, error) {
	if cached, found := s.cache.Get(id); found {
		CacheHitsTotal.Inc()
		if l, ok := cached.(*types.Listing); ok {
			return l, nil
		}
	}
	CacheMissesTotal.Inc()

	l, err := s.store.GetListing(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get listing %s: %w", id, err)
	}

	s.cache.SetWithTTL(id, l, 1, cacheTTL)
	return l, nil
}

// GetFresh returns a listing straight from the store, bypassing the cache.
// The intent validator uses this for its post-consume re-check.
func (s *Service) GetFresh(ctx context.Context, id string) (*types.Listing, error) {
	l, err := s.store.GetListing(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get listing %s: %w", id, err)
	}

	return l, nil
}

// MarkSold transitions a listing to SOLD (idempotent).
func (s *Service) MarkSold(ctx context.Context, id string) error {
	err := s.store.MarkListingSold(ctx, id)
	if err != nil {
		return fmt.Errorf("mark sold %s: %w", id, err)
	}

	s.cache.Del(id)
	s.logger.Info("listing-sold", zap.String("listing-id", id))
	return nil
}

// MarkEnded transitions a listing to ENDED once its decay window elapses.
func (s *Service) MarkEnded(ctx context.Context, id string) error {
	err := s.store.MarkListingEnded(ctx, id)
	if err != nil {
		return fmt.Errorf("mark ended %s: %w", id, err)
	}

	s.cache.Del(id)
	s.logger.Info("listing-ended", zap.String("listing-id", id))
	return nil
}

// ResetAuction restarts the auction clock at now. The state version bump
// invalidates every in-flight quote for the listing.
func (s *Service) ResetAuction(ctx context.Context, id string) (*types.Listing, error) {
	return s.rewind(ctx, id, time.Now(), "reset")
}

// ForceBreach warps the auction deep into its decay window (95% elapsed) so
// the price sits near the reserve floor.
func (s *Service) ForceBreach(ctx context.Context, id string) (*types.Listing, error) {
	l, err := s.GetFresh(ctx, id)
	if err != nil {
		return nil, err
	}

	elapsed := time.Duration(float64(l.DecayDuration) * 0.95)
	return s.rewind(ctx, id, time.Now().Add(-elapsed), "force-breach")
}

// TimeWarp shifts the auction clock back by the given amount.
func (s *Service) TimeWarp(ctx context.Context, id string, warp time.Duration) (*types.Listing, error) {
	l, err := s.GetFresh(ctx, id)
	if err != nil {
		return nil, err
	}

	return s.rewind(ctx, id, l.AuctionStartAt.Add(-warp), "time-warp")
}

func (s *Service) rewind(ctx context.Context, id string, startAt time.Time, trigger string) (*types.Listing, error) {
	l, err := s.store.ResetListingAuction(ctx, id, startAt)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, types.ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s listing %s: %w", trigger, id, err)
	}

	s.cache.Del(id)
	AdminTriggersTotal.WithLabelValues(trigger).Inc()
	s.logger.Info("auction-state-rewritten",
		zap.String("listing-id", id),
		zap.String("trigger", trigger),
		zap.Int64("auction-state-version", l.AuctionStateVersion))

	return l, nil
}

// SeedParams describes a demo listing to create.
type SeedParams struct {
	Title         string
	StartPrice    decimal.Decimal
	ReservePrice  decimal.Decimal
	DecayDuration time.Duration
}

// Seed creates an ACTIVE listing starting now. Demo tooling only; real
// listings come from the catalog service.
func (s *Service) Seed(ctx context.Context, p SeedParams) (*types.Listing, error) {
	if p.ReservePrice.GreaterThan(p.StartPrice) {
		return nil, fmt.Errorf("reserve price %s exceeds start price %s", p.ReservePrice, p.StartPrice)
	}

	now := time.Now()
	l := &types.Listing{
		ID:                  uuid.NewString(),
		Title:               p.Title,
		StartPrice:          p.StartPrice,
		ReservePrice:        p.ReservePrice,
		AuctionStartAt:      now,
		DecayDuration:       p.DecayDuration,
		Status:              types.ListingActive,
		AuctionStateVersion: 1,
		CreatedAt:           now,
	}

	err := s.store.CreateListing(ctx, l)
	if err != nil {
		return nil, fmt.Errorf("seed listing: %w", err)
	}

	s.logger.Info("listing-seeded",
		zap.String("listing-id", l.ID),
		zap.String("start-price", l.StartPrice.String()),
		zap.String("reserve-price", l.ReservePrice.String()),
		zap.Duration("decay-duration", l.DecayDuration))

	return l, nil
}

// Close releases the cache.
func (s *Service) Close() {
	s.cache.Close()
}
