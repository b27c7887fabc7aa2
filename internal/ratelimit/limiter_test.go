package ratelimit

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/mselser95/auction-engine/pkg/types"
)

func newTestLimiter(walletPerSec float64, walletBurst int, listingPerSec float64, listingBurst int) *Limiter {
	logger, _ := zap.NewDevelopment()
	return New(&Config{
		WalletPerSec:  walletPerSec,
		WalletBurst:   walletBurst,
		ListingPerSec: listingPerSec,
		ListingBurst:  listingBurst,
		Logger:        logger,
	})
}

func TestAllow_WithinBurst(t *testing.T) {
	limiter := newTestLimiter(1, 5, 1, 5)

	for call := 0; call < 5; call++ {
		err := limiter.Allow("0xwallet", "l1")
		if err != nil {
			t.Fatalf("call %d: unexpected rejection: %v", call, err)
		}
	}
}

func TestAllow_ListingBucketExceeded(t *testing.T) {
	// Wallet bucket is generous; the (wallet, listing) bucket trips first.
	limiter := newTestLimiter(100, 100, 1, 2)

	if err := limiter.Allow("0xwallet", "l1"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if err := limiter.Allow("0xwallet", "l1"); err != nil {
		t.Fatalf("second call: %v", err)
	}

	err := limiter.Allow("0xwallet", "l1")
	if !errors.Is(err, types.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}

	// A different listing has its own bucket.
	if err := limiter.Allow("0xwallet", "l2"); err != nil {
		t.Errorf("other listing should have its own bucket: %v", err)
	}
}

func TestAllow_WalletBucketExceeded(t *testing.T) {
	// Wallet bucket trips before any per-listing bucket.
	limiter := newTestLimiter(1, 2, 100, 100)

	_ = limiter.Allow("0xwallet", "l1")
	_ = limiter.Allow("0xwallet", "l2")

	err := limiter.Allow("0xwallet", "l3")
	if !errors.Is(err, types.ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}

	// Other wallets are unaffected.
	if err := limiter.Allow("0xother", "l1"); err != nil {
		t.Errorf("other wallet should have its own bucket: %v", err)
	}
}

func TestEvictIdle(t *testing.T) {
	limiter := newTestLimiter(1, 2, 1, 2)

	_ = limiter.Allow("0xwallet", "l1")
	if len(limiter.wallets) != 1 || len(limiter.pairs) != 1 {
		t.Fatalf("expected 1 bucket each, got %d/%d", len(limiter.wallets), len(limiter.pairs))
	}

	limiter.evictIdle(limiter.wallets["0xwallet"].lastSeen.Add(2 * idleEviction))

	if len(limiter.wallets) != 0 || len(limiter.pairs) != 0 {
		t.Errorf("expected buckets evicted, got %d/%d", len(limiter.wallets), len(limiter.pairs))
	}
}
