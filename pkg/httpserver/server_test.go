package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/auction-engine/internal/intent"
	"github.com/mselser95/auction-engine/internal/listings"
	"github.com/mselser95/auction-engine/internal/nonce"
	"github.com/mselser95/auction-engine/internal/ratelimit"
	"github.com/mselser95/auction-engine/internal/storage"
	"github.com/mselser95/auction-engine/pkg/healthprobe"
	"github.com/mselser95/auction-engine/pkg/types"
)

const testWallet = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"

func newTestServer(t *testing.T) (*Server, *storage.MemoryStore) {
	t.Helper()

	logger := zap.NewNop()
	memStore := storage.NewMemoryStore(logger)

	listingSvc, err := listings.New(&listings.Config{Store: memStore, Logger: logger})
	if err != nil {
		t.Fatalf("create listing service: %v", err)
	}
	t.Cleanup(listingSvc.Close)

	nonces := nonce.New(&nonce.Config{
		Store:      memStore,
		Listings:   listingSvc,
		TTL:        15 * time.Second,
		GCInterval: time.Minute,
		Logger:     logger,
	})

	limiter := ratelimit.New(&ratelimit.Config{
		WalletPerSec:  1000,
		WalletBurst:   1000,
		ListingPerSec: 1000,
		ListingBurst:  1000,
		Logger:        logger,
	})

	validator := intent.New(&intent.Config{
		Store:    memStore,
		Listings: listingSvc,
		Nonces:   nonces,
		Limiter:  limiter,
		Tolerance: intent.Tolerance{
			BasisPoints: 50,
			AbsMin:      decimal.RequireFromString("0.01"),
		},
		IntentTTL: 2 * time.Minute,
		Logger:    logger,
	})

	server := New(&Config{
		Port:          "0",
		Logger:        logger,
		HealthChecker: healthprobe.New(),
		Store:         memStore,
		Listings:      listingSvc,
		Nonces:        nonces,
		Validator:     validator,
		Limiter:       limiter,
	})

	return server, memStore
}

func seedListing(t *testing.T, store *storage.MemoryStore, id string) {
	t.Helper()

	now := time.Now()
	l := &types.Listing{
		ID:                  id,
		StartPrice:          decimal.RequireFromString("100"),
		ReservePrice:        decimal.RequireFromString("20"),
		AuctionStartAt:      now,
		DecayDuration:       time.Hour,
		Status:              types.ListingActive,
		AuctionStateVersion: 1,
		CreatedAt:           now,
	}
	if err := store.CreateListing(context.Background(), l); err != nil {
		t.Fatalf("create listing: %v", err)
	}
}

func do(t *testing.T, server *Server, method, path string, body any) *http.Response {
	t.Helper()

	var buf io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, buf)
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)
	return w.Result()
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestQuoteEndpoint(t *testing.T) {
	server, store := newTestServer(t)
	seedListing(t, store, "l1")

	resp := do(t, server, http.MethodGet, "/listings/l1/price?wallet="+testWallet, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	quote := decodeBody[QuoteResponse](t, resp)
	if quote.ListingID != "l1" {
		t.Errorf("listing_id = %s", quote.ListingID)
	}
	if quote.ProofNonce == "" {
		t.Error("quote missing proof nonce")
	}
	if quote.AuctionStateVersion != 1 {
		t.Errorf("auction_state_version = %d, want 1", quote.AuctionStateVersion)
	}
	if quote.Price.LessThanOrEqual(decimal.Zero) {
		t.Errorf("price = %s", quote.Price)
	}
	if !quote.ExpiresAt.After(quote.QuotedAt) {
		t.Error("quote expiry not after quote time")
	}
}

func TestQuoteEndpoint_UnknownListing(t *testing.T) {
	server, _ := newTestServer(t)

	resp := do(t, server, http.MethodGet, "/listings/missing/price", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}

	errResp := decodeBody[ErrorResponse](t, resp)
	if errResp.Code != types.ErrListingNotFound.Code {
		t.Errorf("code = %s, want %s", errResp.Code, types.ErrListingNotFound.Code)
	}
	if errResp.Message == "" {
		t.Error("error response missing message")
	}
}

func TestSubmitIntentEndpoint(t *testing.T) {
	server, store := newTestServer(t)
	seedListing(t, store, "l1")

	quoteResp := do(t, server, http.MethodGet, "/listings/l1/price", nil)
	quote := decodeBody[QuoteResponse](t, quoteResp)

	resp := do(t, server, http.MethodPost, "/listings/l1/buy_intents", SubmitIntentRequest{
		WalletAddress: testWallet,
		ClientPrice:   quote.Price.String(),
		ProofNonce:    quote.ProofNonce,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	created := decodeBody[IntentResponse](t, resp)
	if created.Status != types.IntentQueued {
		t.Errorf("status = %s, want QUEUED", created.Status)
	}
	if created.ID == "" {
		t.Error("intent missing id")
	}

	// Poll it back.
	pollResp := do(t, server, http.MethodGet, "/buy_intents/"+created.ID, nil)
	if pollResp.StatusCode != http.StatusOK {
		t.Fatalf("poll status = %d, want 200", pollResp.StatusCode)
	}
	polled := decodeBody[IntentResponse](t, pollResp)
	if polled.ID != created.ID {
		t.Errorf("polled id = %s, want %s", polled.ID, created.ID)
	}
	if polled.Settlement != nil {
		t.Error("queued intent carries a settlement record")
	}
}

func TestSubmitIntentEndpoint_ReplayRejected(t *testing.T) {
	server, store := newTestServer(t)
	seedListing(t, store, "l1")

	quoteResp := do(t, server, http.MethodGet, "/listings/l1/price", nil)
	quote := decodeBody[QuoteResponse](t, quoteResp)

	body := SubmitIntentRequest{
		WalletAddress: testWallet,
		ClientPrice:   quote.Price.String(),
		ProofNonce:    quote.ProofNonce,
	}

	first := do(t, server, http.MethodPost, "/listings/l1/buy_intents", body)
	if first.StatusCode != http.StatusCreated {
		t.Fatalf("first submission status = %d", first.StatusCode)
	}
	first.Body.Close()

	second := do(t, server, http.MethodPost, "/listings/l1/buy_intents", body)
	if second.StatusCode != http.StatusBadRequest {
		t.Fatalf("replay status = %d, want 400", second.StatusCode)
	}
	errResp := decodeBody[ErrorResponse](t, second)
	if errResp.Code != types.ErrNonceExpired.Code {
		t.Errorf("replay code = %s, want %s", errResp.Code, types.ErrNonceExpired.Code)
	}
}

func TestSubmitIntentEndpoint_MalformedBody(t *testing.T) {
	server, store := newTestServer(t)
	seedListing(t, store, "l1")

	req := httptest.NewRequest(http.MethodPost, "/listings/l1/buy_intents", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	server.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetIntentEndpoint_NotFound(t *testing.T) {
	server, _ := newTestServer(t)

	resp := do(t, server, http.MethodGet, "/buy_intents/missing", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	errResp := decodeBody[ErrorResponse](t, resp)
	if errResp.Code != types.ErrIntentNotFound.Code {
		t.Errorf("code = %s", errResp.Code)
	}
}

func TestAdminSeedAndForceBreach(t *testing.T) {
	server, _ := newTestServer(t)

	seedResp := do(t, server, http.MethodPost, "/admin/listings", SeedListingRequest{
		Title:             "demo rug",
		StartPrice:        "250",
		ReservePrice:      "50",
		DecayDurationSecs: 3600,
	})
	if seedResp.StatusCode != http.StatusCreated {
		t.Fatalf("seed status = %d, want 201", seedResp.StatusCode)
	}
	seeded := decodeBody[ListingResponse](t, seedResp)
	if seeded.Status != types.ListingActive {
		t.Errorf("seeded status = %s", seeded.Status)
	}

	breachResp := do(t, server, http.MethodPost, fmt.Sprintf("/admin/listings/%s/force-breach", seeded.ID), nil)
	if breachResp.StatusCode != http.StatusOK {
		t.Fatalf("force-breach status = %d, want 200", breachResp.StatusCode)
	}
	breached := decodeBody[ListingResponse](t, breachResp)
	if breached.AuctionStateVersion <= seeded.AuctionStateVersion {
		t.Errorf("version not bumped: %d -> %d", seeded.AuctionStateVersion, breached.AuctionStateVersion)
	}

	// A quote after the breach sits at the reserve floor.
	quoteResp := do(t, server, http.MethodGet, fmt.Sprintf("/listings/%s/price", seeded.ID), nil)
	quote := decodeBody[QuoteResponse](t, quoteResp)
	if !quote.Price.Equal(decimal.RequireFromString("50")) {
		t.Errorf("post-breach price = %s, want 50", quote.Price)
	}
}

func TestAdminSeed_InvalidPrices(t *testing.T) {
	server, _ := newTestServer(t)

	resp := do(t, server, http.MethodPost, "/admin/listings", SeedListingRequest{
		StartPrice:        "10",
		ReservePrice:      "20",
		DecayDurationSecs: 60,
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAdminTimeWarp(t *testing.T) {
	server, store := newTestServer(t)
	seedListing(t, store, "l1")

	// Warp 30 minutes into a 100 -> 20 decay over an hour: price lands at 60.
	resp := do(t, server, http.MethodPost, "/admin/listings/l1/time-warp", TimeWarpRequest{WarpSecs: 1800})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("time-warp status = %d, want 200", resp.StatusCode)
	}

	quoteResp := do(t, server, http.MethodGet, "/listings/l1/price", nil)
	quote := decodeBody[QuoteResponse](t, quoteResp)
	if quote.Price.GreaterThan(decimal.RequireFromString("60.01")) ||
		quote.Price.LessThan(decimal.RequireFromString("59")) {
		t.Errorf("post-warp price = %s, want about 60", quote.Price)
	}
}

func TestHealthEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	resp := do(t, server, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}

	// Not ready until the app flips the probe.
	resp = do(t, server, http.MethodGet, "/ready", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("ready status = %d, want 503", resp.StatusCode)
	}

	server.healthChecker.SetReady(true)
	resp = do(t, server, http.MethodGet, "/ready", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready-after-set status = %d, want 200", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	resp := do(t, server, http.MethodGet, "/metrics", nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics body: %v", err)
	}
	if len(body) == 0 {
		t.Error("metrics endpoint returned empty body")
	}
}

func TestServer_StartAndShutdown(t *testing.T) {
	server, _ := newTestServer(t)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start()
	}()

	time.Sleep(100 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	select {
	case err := <-serverDone:
		if err != nil {
			t.Errorf("Start() returned error after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not return after shutdown")
	}
}
