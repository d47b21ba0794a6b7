// Package chainadapter defines the capability interface that both the
// EVM source-chain adapter and the object-chain destination adapter
// implement, plus the receipt and event shapes the coordinator depends
// on to stay chain-agnostic.
package chainadapter

import (
	"context"
	"math/big"
	"time"
)

// Adapter is the unified interface the coordinator uses to drive
// HTLC-style escrows on either side of a swap.
//
// Contract:
//   - Lock MUST be idempotent per idempotencyKey: calling it twice with
//     the same key returns the receipt of the first successful call
//     rather than submitting a second on-chain transaction. Unlock and
//     Cancel are not deduplicated; each call submits a transaction.
//   - All methods return a *chainerr.ChainError (or an error wrapping
//     one); callers decide retry behavior from its Classification.
//   - Watch respects context cancellation and closes no channel it did
//     not create.
type Adapter interface {
	// Connect establishes the underlying RPC client. Safe to call once
	// before Validate.
	Connect(ctx context.Context) error

	// Validate checks the connected node is reachable and on the
	// expected chain ID, failing fast before the relayer accepts
	// orders against it.
	Validate(ctx context.Context) error

	// Close releases the underlying client.
	Close() error

	// Address returns the relayer's own address on this chain.
	Address() string

	// Balance returns the relayer's native balance, for low-balance
	// alerting.
	Balance(ctx context.Context) (*big.Int, error)

	// Lock submits the HTLC escrow creation for order. idempotencyKey
	// is a deterministic identifier the adapter uses to detect and
	// short-circuit a duplicate submission. Both adapters keep the
	// key-to-receipt cache in memory only, so it does not survive a
	// process restart.
	Lock(ctx context.Context, order *LockOrder, idempotencyKey string) (*LockReceipt, error)

	// Unlock reveals secret on-chain, releasing the escrowed funds to
	// their destination.
	Unlock(ctx context.Context, orderHash, escrowRef, secret string) (*UnlockReceipt, error)

	// Cancel reclaims escrowed funds after the relevant deadline has
	// passed without a reveal.
	Cancel(ctx context.Context, orderHash, escrowRef string) (*CancelReceipt, error)

	// Watch streams finalized chain events onto events until ctx is
	// done or an unrecoverable error occurs.
	Watch(ctx context.Context, events chan<- *ChainEvent) error

	// ChainID returns this adapter's chain identifier (e.g. "1",
	// "object:2").
	ChainID() string

	// BlockTime is the adapter's expected block interval, used to size
	// poll intervals and finality waits.
	BlockTime() time.Duration

	// FinalityDepth is the number of confirmations/checkpoints the
	// adapter waits before reporting an event as finalized.
	FinalityDepth() uint64
}

// LockOrder is the chain-agnostic view of a SwapOrder an adapter needs
// to submit a Lock call.
type LockOrder struct {
	OrderHash    string
	Maker        string
	Counterparty string
	Asset        string
	Amount       *big.Int
	SecretHash   string
	Deadline     uint64
}

// LockReceipt is returned after an escrow lock is confirmed.
type LockReceipt struct {
	TxHash      string
	EscrowRef   string // contract address (EVM) or object ID (object chain)
	BlockNumber uint64
	GasUsed     uint64
}

// UnlockReceipt is returned after a secret reveal/unlock is confirmed.
type UnlockReceipt struct {
	TxHash      string
	BlockNumber uint64
}

// CancelReceipt is returned after a timed-out escrow is cancelled.
type CancelReceipt struct {
	TxHash      string
	BlockNumber uint64
}

// EventType enumerates the chain events the coordinator reacts to.
type EventType string

const (
	EventLocked    EventType = "LOCKED"
	EventUnlocked  EventType = "UNLOCKED"
	EventCancelled EventType = "CANCELLED"
)

// ChainEvent is a chain-agnostic notification emitted by Watch.
type ChainEvent struct {
	Type        EventType
	OrderHash   string
	EscrowRef   string
	TxHash      string
	BlockNumber uint64
	Secret      string // populated only for EventUnlocked
	IsFinalized bool
}
