package coordinator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fusion-relay/relayer/internal/relayerr"
	"github.com/fusion-relay/relayer/internal/types"
)

// CreateOrder validates and admits a new order-intake request: it
// computes the order hash, checks the maker's signature, defaults any
// timelock the request omitted, then hands the assembled order to
// SubmitOrder.
func (c *Coordinator) CreateOrder(ctx context.Context, req *types.OrderRequest) (*types.SwapOrder, error) {
	orderHash := computeOrderHash(&req.Order)

	if err := verifyOrderSignature(&req.Order, req.Signature); err != nil {
		return nil, err
	}
	if req.SecretHash == "" {
		return nil, &relayerr.ValidationError{Field: "secretHash", Reason: "required"}
	}

	originalOrderJSON, err := json.Marshal(req.Order)
	if err != nil {
		return nil, fmt.Errorf("encode original order: %w", err)
	}

	now := uint64(time.Now().Unix())
	deadlineDst := req.DeadlineDst
	if deadlineDst == 0 {
		deadlineDst = req.Auction.AuctionEnd + c.relayer.DefaultDstTimeoutOffset
	}
	deadlineSrc := req.DeadlineSrc
	if deadlineSrc == 0 {
		deadlineSrc = deadlineDst + c.relayer.DefaultSrcTimeoutOffset
	}
	if deadlineSrc <= deadlineDst {
		return nil, &relayerr.ValidationError{Field: "deadlineSrc", Reason: "must be after deadlineDst"}
	}
	if deadlineDst <= now {
		return nil, &relayerr.ValidationError{Field: "deadlineDst", Reason: "must be in the future"}
	}

	order := &types.SwapOrder{
		OrderHash:          orderHash,
		Maker:              req.Order.Maker,
		MakerDstAddress:    req.MakerDstAddress,
		Receiver:           req.Order.Receiver,
		MakerAsset:         req.Order.MakerAsset,
		TakerAsset:         req.Order.TakerAsset,
		MakingAmount:       req.Order.MakingAmount,
		TakingAmount:       req.Order.TakingAmount,
		SecretHash:         req.SecretHash,
		DeadlineSrc:        deadlineSrc,
		DeadlineDst:        deadlineDst,
		AuctionStart:       req.Auction.AuctionStart,
		AuctionEnd:         req.Auction.AuctionEnd,
		StartRate:          req.Auction.StartRate,
		EndRate:            req.Auction.EndRate,
		Curve:              req.Auction.Curve,
		OriginalOrderBytes: originalOrderJSON,
		Signature:          req.Signature,
		Extension:          req.Extension,
	}

	if err := c.SubmitOrder(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// GetByHash looks up a single order, for the HTTP query surface.
func (c *Coordinator) GetByHash(orderHash string) (*types.SwapOrder, error) {
	return c.store.GetByHash(orderHash)
}

// ListActive lists every non-terminal order, for the HTTP query surface.
func (c *Coordinator) ListActive() ([]*types.SwapOrder, error) {
	return c.store.ListActive()
}

// ListByMaker lists every order for a given maker address, for the
// HTTP query surface.
func (c *Coordinator) ListByMaker(maker string) ([]*types.SwapOrder, error) {
	return c.store.ListByMaker(maker)
}

// computeOrderHash derives a deterministic order hash from the limit
// order's economic terms. A production deployment would use the
// protocol's EIP-712 typed-data hash; lacking that contract's domain
// separator in this codebase, this hashes the same field set instead,
// and that same digest is what the maker's signature must cover.
func computeOrderHash(order *types.LimitOrder) string {
	return hex.EncodeToString(orderHashBytes(order)[:])
}

func orderHashBytes(order *types.LimitOrder) [32]byte {
	data := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s",
		order.Maker, order.Receiver, order.MakerAsset, order.TakerAsset,
		order.MakingAmount.String(), order.TakingAmount.String(), order.Salt.String())
	return sha256.Sum256([]byte(data))
}

// verifyOrderSignature recovers the signer of signature over the
// order hash and checks it matches order.Maker. signature is a hex
// string in the standard [R || S || V] 65-byte layout, with V as
// either {0,1} or the EIP-155-raw {27,28}.
func verifyOrderSignature(order *types.LimitOrder, signature string) error {
	if signature == "" {
		return &relayerr.ValidationError{Field: "signature", Reason: "required"}
	}
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return &relayerr.ValidationError{Field: "signature", Reason: "must be 0x-prefixed hex"}
	}
	if len(sig) != 65 {
		return &relayerr.ValidationError{Field: "signature", Reason: "must be 65 bytes (r || s || v)"}
	}
	sig = append([]byte{}, sig...)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	hash := orderHashBytes(order)
	pubKey, err := crypto.SigToPub(hash[:], sig)
	if err != nil {
		return &relayerr.ValidationError{Field: "signature", Reason: "does not recover to a valid public key"}
	}
	recovered := crypto.PubkeyToAddress(*pubKey)

	maker := common.HexToAddress(order.Maker)
	if !strings.EqualFold(recovered.Hex(), maker.Hex()) {
		return &relayerr.ValidationError{Field: "signature", Reason: "does not recover to the order's maker"}
	}
	return nil
}
