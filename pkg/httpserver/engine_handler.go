package httpserver

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mselser95/auction-engine/internal/intent"
	"github.com/mselser95/auction-engine/internal/listings"
	"github.com/mselser95/auction-engine/internal/nonce"
	"github.com/mselser95/auction-engine/internal/ratelimit"
	"github.com/mselser95/auction-engine/internal/storage"
	"github.com/mselser95/auction-engine/pkg/types"
)

// EngineHandler handles the auction API endpoints.
type EngineHandler struct {
	store     storage.Store
	listings  *listings.Service
	nonces    *nonce.Store
	validator *intent.Validator
	limiter   *ratelimit.Limiter
	logger    *zap.Logger
}

// NewEngineHandler creates the auction API handler.
func NewEngineHandler(
	store storage.Store,
	listingSvc *listings.Service,
	nonces *nonce.Store,
	validator *intent.Validator,
	limiter *ratelimit.Limiter,
	logger *zap.Logger,
) *EngineHandler {
	return &EngineHandler{
		store:     store,
		listings:  listingSvc,
		nonces:    nonces,
		validator: validator,
		limiter:   limiter,
		logger:    logger,
	}
}

// QuoteResponse is the priced quote returned to a buyer.
type QuoteResponse struct {
	ListingID           string          `json:"listing_id"`
	Price               decimal.Decimal `json:"price"`
	ProofNonce          string          `json:"proof_nonce"`
	AuctionStateVersion int64           `json:"auction_state_version"`
	QuotedAt            time.Time       `json:"quoted_at"`
	ExpiresAt           time.Time       `json:"expires_at"`
}

// IntentResponse is the accepted buy intent returned on submission and
// polling.
type IntentResponse struct {
	ID            string                  `json:"id"`
	ListingID     string                  `json:"listing_id"`
	WalletAddress string                  `json:"wallet_address"`
	ClientPrice   decimal.Decimal         `json:"client_price"`
	QuoteHash     string                  `json:"quote_hash"`
	Status        types.IntentStatus      `json:"status"`
	FailureReason string                  `json:"failure_reason,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	ExpiresAt     time.Time               `json:"expires_at"`
	Settlement    *types.SettlementRecord `json:"settlement,omitempty"`
}

// ErrorResponse is the wire shape of every engine failure.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SubmitIntentRequest is the buy intent submission body.
type SubmitIntentRequest struct {
	WalletAddress string `json:"wallet_address"`
	ClientPrice   string `json:"client_price"`
	ProofNonce    string `json:"proof_nonce"`
}

// HandleQuote handles GET /listings/{id}/price requests.
//
// The quote path is rate limited by the wallet query parameter when the
// buyer sends one, and by client IP otherwise.
func (h *EngineHandler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "id")

	identity := r.URL.Query().Get("wallet")
	if identity == "" {
		identity = r.RemoteAddr
	}
	if err := h.limiter.Allow(identity, listingID); err != nil {
		h.writeEngineError(w, err)
		return
	}

	n, err := h.nonces.Issue(r.Context(), listingID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, QuoteResponse{
		ListingID:           n.ListingID,
		Price:               n.QuotedPrice,
		ProofNonce:          n.Token,
		AuctionStateVersion: n.AuctionStateVersion,
		QuotedAt:            n.QuotedAt,
		ExpiresAt:           n.ExpiresAt,
	})
}

// HandleSubmitIntent handles POST /listings/{id}/buy_intents requests.
func (h *EngineHandler) HandleSubmitIntent(w http.ResponseWriter, r *http.Request) {
	listingID := chi.URLParam(r, "id")

	var body SubmitIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, "INVALID_REQUEST", "request body is not valid JSON", http.StatusBadRequest)
		return
	}

	clientPrice, err := decimal.NewFromString(body.ClientPrice)
	if err != nil {
		h.writeError(w, "INVALID_REQUEST", "client_price is not a valid decimal", http.StatusBadRequest)
		return
	}

	accepted, err := h.validator.Validate(r.Context(), &intent.Request{
		ListingID:     listingID,
		WalletAddress: body.WalletAddress,
		ClientPrice:   clientPrice,
		ProofNonce:    body.ProofNonce,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, h.intentResponse(r, accepted))
}

// HandleGetIntent handles GET /buy_intents/{id} requests.
func (h *EngineHandler) HandleGetIntent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	i, err := h.validator.Get(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, h.intentResponse(r, i))
}

func (h *EngineHandler) intentResponse(r *http.Request, i *types.BuyIntent) IntentResponse {
	resp := IntentResponse{
		ID:            i.ID,
		ListingID:     i.ListingID,
		WalletAddress: i.WalletAddress,
		ClientPrice:   i.ClientPrice,
		QuoteHash:     i.QuoteHash,
		Status:        i.Status,
		FailureReason: i.FailureReason,
		CreatedAt:     i.CreatedAt,
		ExpiresAt:     i.ExpiresAt,
	}

	if i.Status.Terminal() {
		record, err := h.store.GetSettlementRecordByIntent(r.Context(), i.ID)
		if err == nil {
			resp.Settlement = record
		} else if !errors.Is(err, storage.ErrNotFound) {
			h.logger.Error("settlement-record-lookup-failed",
				zap.String("intent-id", i.ID),
				zap.Error(err))
		}
	}

	return resp
}

func (h *EngineHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("response-encode-failed", zap.Error(err))
	}
}

func (h *EngineHandler) writeError(w http.ResponseWriter, code, message string, status int) {
	h.writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func (h *EngineHandler) writeEngineError(w http.ResponseWriter, err error) {
	if ee, ok := types.AsEngineError(err); ok {
		h.writeError(w, ee.Code, ee.Message, ee.HTTP)
		return
	}

	h.logger.Error("request-failed", zap.Error(err))
	h.writeError(w, "INTERNAL", "internal error", http.StatusInternalServerError)
}
