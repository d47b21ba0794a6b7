// Package evm implements chainadapter.Adapter against an EVM-compatible
// source chain using go-ethereum, with cenkalti/backoff wrapping every
// RPC call so a transient node hiccup never surfaces as a permanent
// failure to the coordinator.
package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fusion-relay/relayer/internal/chainadapter"
	"github.com/fusion-relay/relayer/internal/chainerr"
	"github.com/fusion-relay/relayer/internal/config"
	"github.com/fusion-relay/relayer/internal/metrics"
)

// Adapter drives the EscrowFactory-style source-chain contract over
// JSON-RPC.
type Adapter struct {
	cfg config.Evm

	client     *ethclient.Client
	privateKey *ecdsa.PrivateKey
	address    common.Address

	mu     sync.Mutex
	cache  map[string]*chainadapter.LockReceipt // idempotency key -> receipt
	cursor uint64                               // last block number scanned by Watch
}

// New constructs an Adapter. Call Connect before any other method.
func New(cfg config.Evm) *Adapter {
	return &Adapter{
		cfg:   cfg,
		cache: make(map[string]*chainadapter.LockReceipt),
	}
}

func (a *Adapter) Connect(ctx context.Context) error {
	client, err := ethclient.DialContext(ctx, a.cfg.HTTPUrl)
	if err != nil {
		return chainerr.NewTransient(chainerr.CodeRPCUnavailable, "dial evm rpc", 2*time.Second, err)
	}
	a.client = client

	pk, err := crypto.HexToECDSA(strings.TrimPrefix(a.cfg.PrivateKey, "0x"))
	if err != nil {
		return chainerr.NewPermanent(chainerr.CodeInvalidSignature, "load evm private key", err)
	}
	a.privateKey = pk

	if a.cfg.Address != "" {
		a.address = common.HexToAddress(a.cfg.Address)
	} else {
		a.address = crypto.PubkeyToAddress(pk.PublicKey)
	}
	return nil
}

func (a *Adapter) Validate(ctx context.Context) error {
	return a.withRetry(ctx, func() error {
		chainID, err := a.client.ChainID(ctx)
		if err != nil {
			return chainerr.NewTransient(chainerr.CodeRPCTimeout, "fetch chain id", time.Second, err)
		}
		if chainID.Int64() != a.cfg.ChainID {
			return chainerr.NewPermanent(chainerr.CodeInvalidAddress,
				fmt.Sprintf("connected to chain %d, expected %d", chainID.Int64(), a.cfg.ChainID), nil)
		}
		return nil
	})
}

func (a *Adapter) Close() error {
	if a.client != nil {
		a.client.Close()
	}
	return nil
}

func (a *Adapter) Address() string { return a.address.Hex() }

func (a *Adapter) Balance(ctx context.Context) (*big.Int, error) {
	var balance *big.Int
	err := a.withRetry(ctx, func() error {
		b, err := a.client.BalanceAt(ctx, a.address, nil)
		if err != nil {
			return chainerr.NewTransient(chainerr.CodeRPCTimeout, "fetch balance", time.Second, err)
		}
		balance = b
		return nil
	})
	return balance, err
}

// Lock submits the escrow-creation transaction. idempotencyKey lets
// this process recognize a Lock it already completed rather than
// double-spending gas on a second transaction for the same order. The
// cache lives in memory only and starts empty after a restart.
func (a *Adapter) Lock(ctx context.Context, order *chainadapter.LockOrder, idempotencyKey string) (*chainadapter.LockReceipt, error) {
	a.mu.Lock()
	if cached, ok := a.cache[idempotencyKey]; ok {
		a.mu.Unlock()
		return cached, nil
	}
	a.mu.Unlock()

	if order.Amount == nil || order.Amount.Sign() <= 0 {
		return nil, chainerr.NewPermanent(chainerr.CodeInvalidAmount, "lock amount must be positive", nil)
	}

	var receipt *chainadapter.LockReceipt
	err := a.withRetry(ctx, func() error {
		nonce, err := a.client.PendingNonceAt(ctx, a.address)
		if err != nil {
			return chainerr.NewTransient(chainerr.CodeRPCTimeout, "fetch nonce", time.Second, err)
		}

		tx, err := a.buildAndSendLockTx(ctx, order, nonce)
		if err != nil {
			return err
		}

		rcpt, err := a.waitMined(ctx, tx.Hash())
		if err != nil {
			return err
		}
		if rcpt.Status != types.ReceiptStatusSuccessful {
			return chainerr.NewPermanent(chainerr.CodeTxReverted, "lock transaction reverted", nil)
		}

		receipt = &chainadapter.LockReceipt{
			TxHash:      tx.Hash().Hex(),
			EscrowRef:   a.cfg.EscrowFactoryAddress,
			BlockNumber: rcpt.BlockNumber.Uint64(),
			GasUsed:     rcpt.GasUsed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	a.cache[idempotencyKey] = receipt
	a.mu.Unlock()
	return receipt, nil
}

func (a *Adapter) Unlock(ctx context.Context, orderHash, escrowRef, secret string) (*chainadapter.UnlockReceipt, error) {
	var receipt *chainadapter.UnlockReceipt
	err := a.withRetry(ctx, func() error {
		nonce, err := a.client.PendingNonceAt(ctx, a.address)
		if err != nil {
			return chainerr.NewTransient(chainerr.CodeRPCTimeout, "fetch nonce", time.Second, err)
		}
		tx, err := a.sendEscrowCall(ctx, escrowRef, nonce, "withdraw", []byte(secret))
		if err != nil {
			return err
		}
		rcpt, err := a.waitMined(ctx, tx.Hash())
		if err != nil {
			return err
		}
		receipt = &chainadapter.UnlockReceipt{TxHash: tx.Hash().Hex(), BlockNumber: rcpt.BlockNumber.Uint64()}
		return nil
	})
	return receipt, err
}

func (a *Adapter) Cancel(ctx context.Context, orderHash, escrowRef string) (*chainadapter.CancelReceipt, error) {
	var receipt *chainadapter.CancelReceipt
	err := a.withRetry(ctx, func() error {
		nonce, err := a.client.PendingNonceAt(ctx, a.address)
		if err != nil {
			return chainerr.NewTransient(chainerr.CodeRPCTimeout, "fetch nonce", time.Second, err)
		}
		tx, err := a.sendEscrowCall(ctx, escrowRef, nonce, "cancel", nil)
		if err != nil {
			return err
		}
		rcpt, err := a.waitMined(ctx, tx.Hash())
		if err != nil {
			return err
		}
		receipt = &chainadapter.CancelReceipt{TxHash: tx.Hash().Hex(), BlockNumber: rcpt.BlockNumber.Uint64()}
		return nil
	})
	return receipt, err
}

// Watch polls for new blocks and advances an in-memory cursor to the
// newest block with FinalityDepth confirmations on top of it, handing
// each newly finalized range to scanLogs. scanLogs decodes no logs, so
// Watch emits no events; the cursor starts at zero on every restart.
func (a *Adapter) Watch(ctx context.Context, events chan<- *chainadapter.ChainEvent) error {
	ticker := time.NewTicker(time.Duration(a.cfg.BlockTime) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			head, err := a.client.BlockNumber(ctx)
			if err != nil {
				continue // transient RPC hiccup, retried on the next tick
			}
			if head <= a.cursor+a.cfg.FinalityDepth {
				continue
			}
			a.scanLogs(ctx, a.cursor+1, head-a.cfg.FinalityDepth, events)
			a.cursor = head - a.cfg.FinalityDepth
		}
	}
}

func (a *Adapter) ChainID() string          { return fmt.Sprintf("%d", a.cfg.ChainID) }
func (a *Adapter) BlockTime() time.Duration { return time.Duration(a.cfg.BlockTime) * time.Second }
func (a *Adapter) FinalityDepth() uint64    { return a.cfg.FinalityDepth }

// withRetry wraps op with an exponential backoff policy, stopping
// immediately on a Permanent chainerr.ChainError since retrying one
// can never succeed.
func (a *Adapter) withRetry(ctx context.Context, op func() error) error {
	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	return backoff.RetryNotify(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if chainerr.IsPermanent(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, wait time.Duration) {
		metrics.ChainAdapterRetriesTotal.WithLabelValues(a.ChainID()).Inc()
	})
}
