package oracle

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mselser95/auction-engine/pkg/types"
)

func testListing(start, reserve string, duration time.Duration, startAt time.Time) *types.Listing {
	return &types.Listing{
		ID:             "listing-1",
		StartPrice:     decimal.RequireFromString(start),
		ReservePrice:   decimal.RequireFromString(reserve),
		AuctionStartAt: startAt,
		DecayDuration:  duration,
		Status:         types.ListingActive,
	}
}

func TestPrice_LinearDecay(t *testing.T) {
	startAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	listing := testListing("100", "20", 100*time.Second, startAt)

	tests := []struct {
		name      string
		at        time.Time
		wantPrice string
	}{
		{
			name:      "at-auction-start",
			at:        startAt,
			wantPrice: "100",
		},
		{
			name:      "before-auction-start-clamps-to-start-price",
			at:        startAt.Add(-30 * time.Second),
			wantPrice: "100",
		},
		{
			name:      "quarter-way",
			at:        startAt.Add(25 * time.Second),
			wantPrice: "80",
		},
		{
			name:      "half-way",
			at:        startAt.Add(50 * time.Second),
			wantPrice: "60",
		},
		{
			name:      "sub-second-precision",
			at:        startAt.Add(1500 * time.Millisecond),
			wantPrice: "98.8",
		},
		{
			name:      "one-second-before-end",
			at:        startAt.Add(99 * time.Second),
			wantPrice: "20.8",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			price, err := Price(listing, tt.at)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			want := decimal.RequireFromString(tt.wantPrice)
			if !price.Equal(want) {
				t.Errorf("price = %s, want %s", price, want)
			}
		})
	}
}

func TestPrice_Deterministic(t *testing.T) {
	startAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	listing := testListing("99.99", "33.33", 3600*time.Second, startAt)

	at := startAt.Add(1712*time.Second + 345*time.Millisecond)

	first, err := Price(listing, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, err := Price(listing, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !first.Equal(second) {
		t.Errorf("price not deterministic: %s vs %s", first, second)
	}
}

func TestPrice_MonotonicallyNonIncreasing(t *testing.T) {
	startAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	listing := testListing("250", "40", 500*time.Second, startAt)

	prev := listing.StartPrice.Add(decimal.NewFromInt(1))
	for sec := 0; sec < 500; sec += 7 {
		at := startAt.Add(time.Duration(sec) * time.Second)
		price, err := Price(listing, at)
		if err != nil {
			t.Fatalf("unexpected error at t=%ds: %v", sec, err)
		}

		if price.GreaterThan(prev) {
			t.Fatalf("price increased at t=%ds: %s > %s", sec, price, prev)
		}
		if price.LessThan(listing.ReservePrice) {
			t.Fatalf("price fell below reserve at t=%ds: %s", sec, price)
		}
		prev = price
	}
}

func TestPrice_AuctionEnded(t *testing.T) {
	startAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	listing := testListing("100", "20", 100*time.Second, startAt)

	// Exactly at the end of the window the auction is over.
	_, err := Price(listing, startAt.Add(100*time.Second))
	if !errors.Is(err, types.ErrAuctionEnded) {
		t.Errorf("expected ErrAuctionEnded at window end, got %v", err)
	}

	_, err = Price(listing, startAt.Add(150*time.Second))
	if !errors.Is(err, types.ErrAuctionEnded) {
		t.Errorf("expected ErrAuctionEnded past window, got %v", err)
	}
}

func TestPrice_NonActiveListing(t *testing.T) {
	startAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  types.ListingStatus
		wantErr *types.EngineError
	}{
		{name: "sold", status: types.ListingSold, wantErr: types.ErrListingNotActive},
		{name: "cancelled", status: types.ListingCancelled, wantErr: types.ErrListingNotActive},
		{name: "ended", status: types.ListingEnded, wantErr: types.ErrAuctionEnded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing := testListing("100", "20", 100*time.Second, startAt)
			listing.Status = tt.status

			_, err := Price(listing, startAt.Add(10*time.Second))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDiscountDepth(t *testing.T) {
	startAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	listing := testListing("100", "20", 100*time.Second, startAt)

	depth := DiscountDepth(listing, startAt)
	if !depth.Equal(decimal.Zero) {
		t.Errorf("depth at start = %s, want 0", depth)
	}

	depth = DiscountDepth(listing, startAt.Add(50*time.Second))
	if !depth.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("depth at half-way = %s, want 0.5", depth)
	}

	// Flat listing (start == reserve) never discounts.
	flat := testListing("50", "50", 100*time.Second, startAt)
	depth = DiscountDepth(flat, startAt.Add(50*time.Second))
	if !depth.Equal(decimal.Zero) {
		t.Errorf("depth for flat listing = %s, want 0", depth)
	}
}
