// Package sui implements chainadapter.Adapter against a Sui-style
// object chain: ed25519 signing plus a JSON-RPC client shaped after
// Sui's suix_queryEvents for checkpoint-cursor event polling.
package sui

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/fusion-relay/relayer/internal/chainadapter"
	"github.com/fusion-relay/relayer/internal/chainerr"
	"github.com/fusion-relay/relayer/internal/config"
	"github.com/fusion-relay/relayer/internal/metrics"
)

// Adapter drives a Move-based escrow package over JSON-RPC.
type Adapter struct {
	cfg config.Object

	rpc        *rpcClient
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	address    string

	mu     sync.Mutex
	cache  map[string]*chainadapter.LockReceipt
	cursor string
}

// New constructs an Adapter. Call Connect before any other method.
func New(cfg config.Object) *Adapter {
	return &Adapter{
		cfg:   cfg,
		cache: make(map[string]*chainadapter.LockReceipt),
	}
}

func (a *Adapter) Connect(ctx context.Context) error {
	keyHex := strings.TrimPrefix(a.cfg.PrivateKey, "0x")
	keyBytes, err := hex.DecodeString(keyHex)
	if err != nil {
		return chainerr.NewPermanent(chainerr.CodeInvalidSignature, "decode object-chain private key", err)
	}
	a.privateKey = ed25519.PrivateKey(keyBytes)
	a.publicKey = a.privateKey.Public().(ed25519.PublicKey)

	if a.cfg.Address != "" {
		a.address = a.cfg.Address
	} else {
		a.address = "0x" + hex.EncodeToString(a.publicKey)
	}

	a.rpc = newRPCClient(a.cfg.RPCUrl)
	return nil
}

func (a *Adapter) Validate(ctx context.Context) error {
	return a.withRetry(ctx, func() error {
		var chainIdentifier string
		if err := a.rpc.call(ctx, "sui_getChainIdentifier", nil, &chainIdentifier); err != nil {
			return chainerr.NewTransient(chainerr.CodeRPCTimeout, "fetch chain identifier", time.Second, err)
		}
		return nil
	})
}

func (a *Adapter) Close() error { return nil }

func (a *Adapter) Address() string { return a.address }

func (a *Adapter) Balance(ctx context.Context) (*big.Int, error) {
	var result struct {
		TotalBalance string `json:"totalBalance"`
	}
	err := a.withRetry(ctx, func() error {
		if err := a.rpc.call(ctx, "suix_getBalance", []interface{}{a.address}, &result); err != nil {
			return chainerr.NewTransient(chainerr.CodeRPCTimeout, "fetch object-chain balance", time.Second, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	balance, ok := new(big.Int).SetString(result.TotalBalance, 10)
	if !ok {
		return nil, chainerr.NewPermanent(chainerr.CodeInvalidAmount, "unparseable balance from rpc", nil)
	}
	return balance, nil
}

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
		var result moveCallResult
		params := []interface{}{
			a.address, a.cfg.PackageID, "fusion_escrow", "create_lock",
			[]string{order.Asset},
			[]interface{}{order.OrderHash, order.Counterparty, order.Amount.String(), order.SecretHash, order.Deadline},
			nil, fmt.Sprintf("%d", a.cfg.GasBudget),
		}
		if err := a.rpc.call(ctx, "unsafe_moveCall", params, &result); err != nil {
			return chainerr.NewTransient(chainerr.CodeRPCTimeout, "build lock move call", time.Second, err)
		}

		digest, err := a.signAndExecute(ctx, result.TxBytes)
		if err != nil {
			return err
		}

		receipt = &chainadapter.LockReceipt{
			TxHash:    digest,
			EscrowRef: deterministicObjectID(order.OrderHash),
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
		var result moveCallResult
		params := []interface{}{
			a.address, a.cfg.PackageID, "fusion_escrow", "withdraw",
			[]string{}, []interface{}{escrowRef, secret}, nil, fmt.Sprintf("%d", a.cfg.GasBudget),
		}
		if err := a.rpc.call(ctx, "unsafe_moveCall", params, &result); err != nil {
			return chainerr.NewTransient(chainerr.CodeRPCTimeout, "build withdraw move call", time.Second, err)
		}
		digest, err := a.signAndExecute(ctx, result.TxBytes)
		if err != nil {
			return err
		}
		receipt = &chainadapter.UnlockReceipt{TxHash: digest}
		return nil
	})
	return receipt, err
}

func (a *Adapter) Cancel(ctx context.Context, orderHash, escrowRef string) (*chainadapter.CancelReceipt, error) {
	var receipt *chainadapter.CancelReceipt
	err := a.withRetry(ctx, func() error {
		var result moveCallResult
		params := []interface{}{
			a.address, a.cfg.PackageID, "fusion_escrow", "cancel",
			[]string{}, []interface{}{escrowRef}, nil, fmt.Sprintf("%d", a.cfg.GasBudget),
		}
		if err := a.rpc.call(ctx, "unsafe_moveCall", params, &result); err != nil {
			return chainerr.NewTransient(chainerr.CodeRPCTimeout, "build cancel move call", time.Second, err)
		}
		digest, err := a.signAndExecute(ctx, result.TxBytes)
		if err != nil {
			return err
		}
		receipt = &chainadapter.CancelReceipt{TxHash: digest}
		return nil
	})
	return receipt, err
}

// Watch polls suix_queryEvents with an in-memory cursor, emitting a
// ChainEvent for each returned event. Every event is marked finalized
// as soon as it is returned; FinalityDepth is not consulted, and the
// cursor starts empty on every restart.
func (a *Adapter) Watch(ctx context.Context, events chan<- *chainadapter.ChainEvent) error {
	ticker := time.NewTicker(time.Duration(a.cfg.CheckpointTime) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			var page eventPage
			query := map[string]interface{}{"MoveModule": map[string]string{"package": a.cfg.PackageID, "module": "fusion_escrow"}}
			if err := a.rpc.call(ctx, "suix_queryEvents", []interface{}{query, a.cursor, 50, false}, &page); err != nil {
				continue // transient, retried on the next tick
			}
			for _, ev := range page.Data {
				events <- ev.toChainEvent()
			}
			if page.NextCursor != "" {
				a.cursor = page.NextCursor
			}
		}
	}
}

func (a *Adapter) ChainID() string { return fmt.Sprintf("object:%d", a.cfg.NetworkID) }
func (a *Adapter) BlockTime() time.Duration {
	return time.Duration(a.cfg.CheckpointTime) * time.Second
}
func (a *Adapter) FinalityDepth() uint64 { return a.cfg.FinalityDepth }

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

// signAndExecute signs a base64 transaction payload with the
// relayer's ed25519 key and submits it via sui_executeTransactionBlock,
// returning the transaction digest.
func (a *Adapter) signAndExecute(ctx context.Context, txBytesB64 string) (string, error) {
	sig := ed25519.Sign(a.privateKey, []byte(txBytesB64))
	sigB64 := hex.EncodeToString(sig)

	var result struct {
		Digest string `json:"digest"`
	}
	params := []interface{}{txBytesB64, []string{sigB64}, map[string]bool{"showEffects": true}, "WaitForLocalExecution"}
	if err := a.rpc.call(ctx, "sui_executeTransactionBlock", params, &result); err != nil {
		return "", chainerr.NewTransient(chainerr.CodeRPCTimeout, "execute move transaction", time.Second, err)
	}
	return result.Digest, nil
}

func deterministicObjectID(orderHash string) string {
	h := orderHash
	if len(h) > 16 {
		h = h[:16]
	}
	return "0x" + h + strings.Repeat("0", 48-len(h))
}
