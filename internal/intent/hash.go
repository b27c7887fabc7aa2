package intent

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

// QuoteHash fingerprints the quote an intent was accepted against. It binds
// the listing, the quoted price, and the single-use token so a settlement
// record can be traced back to one specific quote.
func QuoteHash(listingID string, quotedPrice decimal.Decimal, token string) string {
	sum := crypto.Keccak256(
		[]byte(listingID),
		[]byte("|"),
		[]byte(quotedPrice.String()),
		[]byte("|"),
		[]byte(token),
	)
	return hexutil.Encode(sum)
}
