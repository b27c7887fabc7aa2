// Package ratelimit bounds quote and intent-creation frequency with
// in-memory token buckets keyed per wallet and per (wallet, listing).
//
// Counters are best-effort availability guards: losing them on restart is
// acceptable because settlement correctness is enforced by the storage
// layer's conditional writes, not here.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mselser95/auction-engine/pkg/types"
)

// idleEviction drops buckets not seen for this long.
const idleEviction = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter is a two-level token-bucket rate limiter.
type Limiter struct {
	mu      sync.Mutex
	wallets map[string]*bucket
	pairs   map[string]*bucket

	walletLimit  rate.Limit
	walletBurst  int
	listingLimit rate.Limit
	listingBurst int

	logger *zap.Logger
}

// Config holds rate limiter configuration.
type Config struct {
	WalletPerSec  float64
	WalletBurst   int
	ListingPerSec float64
	ListingBurst  int
	Logger        *zap.Logger
}

// New creates a rate limiter.
func New(cfg *Config) *Limiter {
	return &Limiter{
		wallets:      make(map[string]*bucket),
		pairs:        make(map[string]*bucket),
		walletLimit:  rate.Limit(cfg.WalletPerSec),
		walletBurst:  cfg.WalletBurst,
		listingLimit: rate.Limit(cfg.ListingPerSec),
		listingBurst: cfg.ListingBurst,
		logger:       cfg.Logger,
	}
}

// Allow consumes one token from both the wallet bucket and the
// (wallet, listing) bucket. Exceeding either fails with
// types.ErrRateLimited.
func (l *Limiter) Allow(wallet, listingID string) error {
	l.mu.Lock()
	walletBucket := l.take(l.wallets, wallet, l.walletLimit, l.walletBurst)
	pairBucket := l.take(l.pairs, wallet+"|"+listingID, l.listingLimit, l.listingBurst)
	l.mu.Unlock()

	if !walletBucket.Allow() {
		RejectionsTotal.WithLabelValues("wallet").Inc()
		return types.ErrRateLimited
	}

	if !pairBucket.Allow() {
		RejectionsTotal.WithLabelValues("wallet_listing").Inc()
		return types.ErrRateLimited
	}

	AllowedTotal.Inc()
	return nil
}

func (l *Limiter) take(buckets map[string]*bucket, key string, limit rate.Limit, burst int) *rate.Limiter {
	b, ok := buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(limit, burst)}
		buckets[key] = b
	}
	b.lastSeen = time.Now()
	return b.limiter
}

// Run evicts idle buckets until the context is cancelled.
func (l *Limiter) Run(ctx context.Context) {
	ticker := time.NewTicker(idleEviction)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("rate-limiter-stopping")
			return
		case <-ticker.C:
			l.evictIdle(time.Now())
		}
	}
}

func (l *Limiter) evictIdle(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-idleEviction)
	var evicted int
	for key, b := range l.wallets {
		if b.lastSeen.Before(cutoff) {
			delete(l.wallets, key)
			evicted++
		}
	}
	for key, b := range l.pairs {
		if b.lastSeen.Before(cutoff) {
			delete(l.pairs, key)
			evicted++
		}
	}

	if evicted > 0 {
		l.logger.Debug("rate-limiter-evicted-idle-buckets", zap.Int("count", evicted))
	}
}
