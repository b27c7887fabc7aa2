package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/mselser95/auction-engine/internal/listings"
	"github.com/mselser95/auction-engine/pkg/types"
)

// SeedListingRequest creates a demo listing.
type SeedListingRequest struct {
	Title             string `json:"title"`
	StartPrice        string `json:"start_price"`
	ReservePrice      string `json:"reserve_price"`
	DecayDurationSecs int64  `json:"decay_duration_secs"`
}

// TimeWarpRequest rewinds a listing's auction start.
type TimeWarpRequest struct {
	WarpSecs int64 `json:"warp_secs"`
}

// ListingResponse is the wire shape of a listing.
type ListingResponse struct {
	ID                  string              `json:"id"`
	Title               string              `json:"title,omitempty"`
	StartPrice          decimal.Decimal     `json:"start_price"`
	ReservePrice        decimal.Decimal     `json:"reserve_price"`
	AuctionStartAt      time.Time           `json:"auction_start_at"`
	DecayDurationSecs   int64               `json:"decay_duration_secs"`
	Status              types.ListingStatus `json:"status"`
	AuctionStateVersion int64               `json:"auction_state_version"`
}

func listingResponse(l *types.Listing) ListingResponse {
	return ListingResponse{
		ID:                  l.ID,
		Title:               l.Title,
		StartPrice:          l.StartPrice,
		ReservePrice:        l.ReservePrice,
		AuctionStartAt:      l.AuctionStartAt,
		DecayDurationSecs:   int64(l.DecayDuration / time.Second),
		Status:              l.Status,
		AuctionStateVersion: l.AuctionStateVersion,
	}
}

// HandleSeedListing handles POST /admin/listings requests.
func (h *EngineHandler) HandleSeedListing(w http.ResponseWriter, r *http.Request) {
	var body SeedListingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, "INVALID_REQUEST", "request body is not valid JSON", http.StatusBadRequest)
		return
	}

	start, err := decimal.NewFromString(body.StartPrice)
	if err != nil {
		h.writeError(w, "INVALID_REQUEST", "start_price is not a valid decimal", http.StatusBadRequest)
		return
	}
	reserve, err := decimal.NewFromString(body.ReservePrice)
	if err != nil {
		h.writeError(w, "INVALID_REQUEST", "reserve_price is not a valid decimal", http.StatusBadRequest)
		return
	}
	if reserve.GreaterThan(start) {
		h.writeError(w, "INVALID_REQUEST", "reserve_price exceeds start_price", http.StatusBadRequest)
		return
	}
	if body.DecayDurationSecs <= 0 {
		h.writeError(w, "INVALID_REQUEST", "decay_duration_secs must be positive", http.StatusBadRequest)
		return
	}

	l, err := h.listings.Seed(r.Context(), listings.SeedParams{
		Title:         body.Title,
		StartPrice:    start,
		ReservePrice:  reserve,
		DecayDuration: time.Duration(body.DecayDurationSecs) * time.Second,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, listingResponse(l))
}

// HandleResetAuction handles POST /admin/listings/{id}/reset requests. The
// listing restarts its decay from now; outstanding quotes become void.
func (h *EngineHandler) HandleResetAuction(w http.ResponseWriter, r *http.Request) {
	l, err := h.listings.ResetAuction(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, listingResponse(l))
}

// HandleForceBreach handles POST /admin/listings/{id}/force-breach requests.
// The listing's decay is rewound to near its end so the next quote lands on
// the reserve price.
func (h *EngineHandler) HandleForceBreach(w http.ResponseWriter, r *http.Request) {
	l, err := h.listings.ForceBreach(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, listingResponse(l))
}

// HandleTimeWarp handles POST /admin/listings/{id}/time-warp requests.
func (h *EngineHandler) HandleTimeWarp(w http.ResponseWriter, r *http.Request) {
	var body TimeWarpRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, "INVALID_REQUEST", "request body is not valid JSON", http.StatusBadRequest)
		return
	}
	if body.WarpSecs <= 0 {
		h.writeError(w, "INVALID_REQUEST", "warp_secs must be positive", http.StatusBadRequest)
		return
	}

	l, err := h.listings.TimeWarp(r.Context(), chi.URLParam(r, "id"), time.Duration(body.WarpSecs)*time.Second)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, listingResponse(l))
}
