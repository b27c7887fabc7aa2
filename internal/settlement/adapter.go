// Package settlement drains the intent queue: workers claim QUEUED intents,
// execute them through an adapter, and write immutable settlement records.
package settlement

import (
	"context"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// ExecuteRequest carries what an adapter needs to move funds.
type ExecuteRequest struct {
	IntentID      string
	ListingID     string
	WalletAddress string
	Price         decimal.Decimal
	Currency      string
}

// Adapter executes a settlement against an external system. Execute must
// respect ctx cancellation; a returned error means the settlement did not
// happen and the intent fails.
type Adapter interface {
	Name() string
	Execute(ctx context.Context, req *ExecuteRequest) (txHash string, err error)
}

// DemoAdapter settles every intent successfully with a deterministic
// pseudo transaction hash. It stands in for an on-chain escrow contract.
type DemoAdapter struct{}

// NewDemoAdapter creates a demo adapter.
func NewDemoAdapter() *DemoAdapter {
	return &DemoAdapter{}
}

func (a *DemoAdapter) Name() string { return "demo" }

// Execute derives the tx hash from the intent identity so reruns of the
// same intent produce the same hash.
func (a *DemoAdapter) Execute(_ context.Context, req *ExecuteRequest) (string, error) {
	sum := crypto.Keccak256(
		[]byte(req.IntentID),
		[]byte("|"),
		[]byte(req.WalletAddress),
		[]byte("|"),
		[]byte(req.Price.String()),
	)
	return hexutil.Encode(sum), nil
}
