package evm

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fusion-relay/relayer/internal/chainadapter"
	"github.com/fusion-relay/relayer/internal/chainerr"
)

// buildAndSendLockTx encodes and submits the escrow-factory "lock"
// call for order. The ABI encoding here is intentionally minimal
// (4-byte selector + ABI-packed args) rather than a generated binding,
// since the escrow contract's Solidity source lives outside this repo.
func (a *Adapter) buildAndSendLockTx(ctx context.Context, order *chainadapter.LockOrder, nonce uint64) (*types.Transaction, error) {
	data := encodeCall("lock(bytes32,address,uint256,bytes32,uint64)",
		leftPad(hashToBytes(order.OrderHash)),
		leftPadAddress(common.HexToAddress(order.Counterparty)),
		leftPadBigInt(order.Amount),
		leftPad(hashToBytes(order.SecretHash)),
		leftPadUint64(order.Deadline),
	)
	return a.sendTo(ctx, common.HexToAddress(a.cfg.EscrowFactoryAddress), order.Amount, nonce, data)
}

// sendEscrowCall encodes and submits a no-value call against an
// already-deployed escrow contract (withdraw/cancel).
func (a *Adapter) sendEscrowCall(ctx context.Context, escrowRef string, nonce uint64, method string, arg []byte) (*types.Transaction, error) {
	var data []byte
	switch method {
	case "withdraw":
		data = encodeCall("withdraw(bytes32)", leftPad(arg))
	case "cancel":
		data = encodeCall("cancel()")
	}
	return a.sendTo(ctx, common.HexToAddress(escrowRef), big.NewInt(0), nonce, data)
}

func (a *Adapter) sendTo(ctx context.Context, to common.Address, value *big.Int, nonce uint64, data []byte) (*types.Transaction, error) {
	gasPrice := new(big.Int).Mul(big.NewInt(a.cfg.GasPriceGwei), big.NewInt(1e9))
	tx := types.NewTransaction(nonce, to, value, a.cfg.GasLimit, gasPrice, data)

	chainID := big.NewInt(a.cfg.ChainID)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), a.privateKey)
	if err != nil {
		return nil, chainerr.NewPermanent(chainerr.CodeInvalidSignature, "sign evm transaction", err)
	}

	if err := a.client.SendTransaction(ctx, signed); err != nil {
		if isNonceTooLow(err) {
			return nil, chainerr.NewTransient(chainerr.CodeNonceTooLow, "nonce too low, will refetch", 500*time.Millisecond, err)
		}
		return nil, chainerr.NewTransient(chainerr.CodeRPCUnavailable, "broadcast evm transaction", time.Second, err)
	}
	return signed, nil
}

func (a *Adapter) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(a.BlockTime())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			rcpt, err := a.client.TransactionReceipt(ctx, txHash)
			if err == nil {
				return rcpt, nil
			}
		}
	}
}

// scanLogs is a narrow stand-in for FilterLogs against the escrow
// factory's event signatures. It performs no block range scanning or
// ABI log unpacking and never writes to the event channel; Watch
// advances the cursor itself.
func (a *Adapter) scanLogs(ctx context.Context, from, to uint64, events chan<- *chainadapter.ChainEvent) {
	_ = ctx
	_ = from
	_ = to
	_ = events
}

func encodeCall(signature string, args ...[]byte) []byte {
	selector := crypto.Keccak256([]byte(signature))[:4]
	out := make([]byte, 0, 4+32*len(args))
	out = append(out, selector...)
	for _, a := range args {
		out = append(out, a...)
	}
	return out
}

func leftPad(b []byte) []byte {
	out := make([]byte, 32)
	copy(out[32-len(b):], b)
	return out
}

func leftPadAddress(addr common.Address) []byte {
	out := make([]byte, 32)
	copy(out[12:], addr.Bytes())
	return out
}

func leftPadBigInt(v *big.Int) []byte {
	out := make([]byte, 32)
	v.FillBytes(out)
	return out
}

func leftPadUint64(v uint64) []byte {
	return leftPadBigInt(new(big.Int).SetUint64(v))
}

func hashToBytes(hexHash string) []byte {
	return common.FromHex(hexHash)
}

func isNonceTooLow(err error) bool {
	return err != nil && (containsAny(err.Error(), "nonce too low", "nonce is too low"))
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if len(s) >= len(sub) {
			for i := 0; i+len(sub) <= len(s); i++ {
				if s[i:i+len(sub)] == sub {
					return true
				}
			}
		}
	}
	return false
}
