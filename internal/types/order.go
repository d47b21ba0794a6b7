// Package types holds the data model shared across the relayer: swap
// orders, limit orders, and the wire shapes of the order/secret intake
// endpoints.
package types

import (
	"encoding/json"
	"math/big"
	"time"
)

// SwapState is one of the lifecycle states a SwapOrder moves through.
// Names are stable for external consumers — never rename.
type SwapState string

const (
	StateNew            SwapState = "NEW"
	StateAuctionStarted SwapState = "AUCTION_STARTED"
	StateEthLockPending SwapState = "ETH_LOCK_PENDING"
	StateEthLocked      SwapState = "ETH_LOCKED"
	StateSuiLockPending SwapState = "SUI_LOCK_PENDING"
	StateSuiLocked      SwapState = "SUI_LOCKED"
	StateReadyForSecret SwapState = "READY_FOR_SECRET"
	StateSecretReceived SwapState = "SECRET_RECEIVED"
	StateExecuted       SwapState = "EXECUTED"
	StateCancelledDst   SwapState = "CANCELLED_DST"
	StateCancelledSrc   SwapState = "CANCELLED_SRC"
	StateRefunded       SwapState = "REFUNDED"
	StateError          SwapState = "ERROR"
)

// IsTerminal reports whether no further transition is possible.
func (s SwapState) IsTerminal() bool {
	switch s {
	case StateExecuted, StateRefunded, StateCancelledSrc, StateError:
		return true
	default:
		return false
	}
}

// LimitOrder is a 1inch-style limit order signed by the maker on the
// source chain.
type LimitOrder struct {
	Salt         *big.Int `json:"salt"`
	Maker        string   `json:"maker"`
	Receiver     string   `json:"receiver"`
	MakerAsset   string   `json:"makerAsset"`
	TakerAsset   string   `json:"takerAsset"`
	MakingAmount *big.Int `json:"makingAmount"`
	TakingAmount *big.Int `json:"takingAmount"`
	MakerTraits  *big.Int `json:"makerTraits"`
}

// PriceCurvePoint is one point on a Dutch-auction piecewise curve. Rate
// is 1e18-scaled taker-per-maker rate — see internal/auction.
type PriceCurvePoint struct {
	TimeOffset uint64   `json:"timeOffset"` // seconds from auction start
	Rate       *big.Int `json:"rate"`
}

// AuctionConfig carries the Dutch-auction parameters of an order.
type AuctionConfig struct {
	AuctionStart uint64            `json:"auctionStart"` // unix seconds
	AuctionEnd   uint64            `json:"auctionEnd"`   // unix seconds
	StartRate    *big.Int          `json:"startRate"`
	EndRate      *big.Int          `json:"endRate"` // a.k.a. minimumReturnAmount
	Curve        []PriceCurvePoint `json:"curve,omitempty"`
}

// OrderRequest is the order-intake payload accepted from the HTTP
// boundary. SecretHash is supplied by the maker, who alone holds the
// preimage until reveal — the relayer never generates it.
type OrderRequest struct {
	Order           LimitOrder    `json:"order"`
	Signature       string        `json:"signature"`
	MakerDstAddress string        `json:"makerDstAddress"`
	SecretHash      string        `json:"secretHash"`
	Auction         AuctionConfig `json:"auction"`
	DeadlineSrc     uint64        `json:"deadlineSrc,omitempty"`
	DeadlineDst     uint64        `json:"deadlineDst,omitempty"`
	Extension       string        `json:"extension,omitempty"`
}

// SecretRequest is the secret-intake payload.
type SecretRequest struct {
	OrderHash string `json:"orderHash"`
	Secret    string `json:"secret"`
}

// SwapOrder is the durable record of one cross-chain swap intent.
type SwapOrder struct {
	ID        int64     `json:"id"`
	OrderHash string    `json:"orderHash"`
	State     SwapState `json:"state"`

	Maker           string `json:"maker"`
	MakerDstAddress string `json:"makerDstAddress"`
	Receiver        string `json:"receiver"`

	MakerAsset   string   `json:"makerAsset"`
	TakerAsset   string   `json:"takerAsset"`
	MakingAmount *big.Int `json:"makingAmount"`
	TakingAmount *big.Int `json:"takingAmount"`

	SecretHash string `json:"secretHash"`
	Secret     string `json:"secret,omitempty"`

	DeadlineSrc uint64 `json:"deadlineSrc"`
	DeadlineDst uint64 `json:"deadlineDst"`

	SrcEscrowAddress string `json:"srcEscrowAddress,omitempty"`
	SrcLockTxHash    string `json:"srcLockTxHash,omitempty"`
	SrcUnlockTxHash  string `json:"srcUnlockTxHash,omitempty"`
	SrcCancelTxHash  string `json:"srcCancelTxHash,omitempty"`

	DstEscrowID     string `json:"dstEscrowId,omitempty"`
	DstLockTxHash   string `json:"dstLockTxHash,omitempty"`
	DstUnlockTxHash string `json:"dstUnlockTxHash,omitempty"`
	DstCancelTxHash string `json:"dstCancelTxHash,omitempty"`

	AuctionStart uint64            `json:"auctionStart"`
	AuctionEnd   uint64            `json:"auctionEnd"`
	StartRate    *big.Int          `json:"startRate"`
	EndRate      *big.Int          `json:"endRate"`
	Curve        []PriceCurvePoint `json:"curve,omitempty"`

	OriginalOrderBytes json.RawMessage `json:"originalOrderBytes"`
	Signature          string          `json:"signature"`
	Extension          string          `json:"extension,omitempty"`

	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
}

// Redacted returns a copy of the order for query responses, with the
// secret stripped unless the order is in a terminal state (see
// IsTerminal).
func (o *SwapOrder) Redacted() *SwapOrder {
	cp := *o
	if cp.State != StateExecuted && !cp.State.IsTerminal() {
		cp.Secret = ""
	}
	return &cp
}

// OrderStatusResponse is the compact status view returned by
// GET /orders/{hash}/status.
type OrderStatusResponse struct {
	OrderHash string    `json:"orderHash"`
	State     SwapState `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// OrderListResponse wraps a list of orders with a count.
type OrderListResponse struct {
	Orders []*SwapOrder `json:"orders"`
	Count  int          `json:"count"`
}

// ResolverBid is a resolver's bid against an order's current Dutch
// auction rate.
type ResolverBid struct {
	OrderHash  string    `json:"orderHash"`
	ResolverID string    `json:"resolverId"`
	BidRate    *big.Int  `json:"bidRate"`
	Timestamp  time.Time `json:"timestamp"`
}

// ParseBigInt parses a base-10 string into a *big.Int, returning zero
// for an empty string.
func ParseBigInt(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, &InvalidAmountError{Value: s}
	}
	return v, nil
}

// InvalidAmountError reports a string that does not parse as a base-10
// integer.
type InvalidAmountError struct {
	Value string
}

func (e *InvalidAmountError) Error() string {
	return "invalid integer amount: " + e.Value
}
