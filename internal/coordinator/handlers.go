package coordinator

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/fusion-relay/relayer/internal/chainadapter"
	"github.com/fusion-relay/relayer/internal/metrics"
	"github.com/fusion-relay/relayer/internal/relayerr"
	"github.com/fusion-relay/relayer/internal/store"
	"github.com/fusion-relay/relayer/internal/types"
)

// idempotencyNamespace seeds the deterministic UUIDv5 keys handed to
// chain adapters, so a repeated lock step for the same order and step
// regenerates the same key. The adapters match keys against an
// in-memory receipt cache, so a key from before a restart is not
// recognized.
var idempotencyNamespace = uuid.MustParse("6f9619ff-8b86-d011-b42d-00cf4fc964ff")

func idempotencyKey(orderHash, step string) string {
	return uuid.NewSHA1(idempotencyNamespace, []byte(orderHash+"|"+step)).String()
}

// SubmitOrder admits a new order for coordination: persists it in the
// NEW state, then dispatches its actor to begin the auction.
func (c *Coordinator) SubmitOrder(ctx context.Context, order *types.SwapOrder) error {
	order.State = types.StateNew
	order.CreatedAt = time.Now().UTC()
	order.UpdatedAt = order.CreatedAt

	if err := c.store.CreateOrder(order); err != nil {
		return err
	}
	metrics.OrdersCreatedTotal.Inc()
	metrics.OrdersByState.WithLabelValues(string(types.StateNew)).Inc()

	c.dispatch(ctx, order.OrderHash, func(ctx context.Context) {
		c.advance(ctx, order.OrderHash)
	})
	return nil
}

// SubmitBid hands a resolver bid to the order's actor. If the bid
// clears the current auction rate the order moves into the locking
// phase.
func (c *Coordinator) SubmitBid(ctx context.Context, orderHash string, bid *types.ResolverBid) error {
	errCh := make(chan error, 1)
	c.dispatch(ctx, orderHash, func(ctx context.Context) {
		errCh <- c.handleBid(ctx, orderHash, bid)
	})
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) handleBid(ctx context.Context, orderHash string, bid *types.ResolverBid) error {
	order, err := c.store.GetByHash(orderHash)
	if err != nil {
		return err
	}
	if order.State != types.StateAuctionStarted {
		metrics.AuctionBidsTotal.WithLabelValues("rejected_wrong_state").Inc()
		return &relayerr.IllegalTransition{OrderHash: orderHash, From: string(order.State), To: "bid-accept"}
	}

	cfg := &types.AuctionConfig{
		AuctionStart: order.AuctionStart, AuctionEnd: order.AuctionEnd,
		StartRate: order.StartRate, EndRate: order.EndRate, Curve: order.Curve,
	}
	winner := c.selector.Select(cfg, time.Now(), []*types.ResolverBid{bid})
	if winner == nil {
		metrics.AuctionBidsTotal.WithLabelValues("rejected_below_rate").Inc()
		return fmt.Errorf("bid %s does not clear the current auction rate", bid.ResolverID)
	}
	metrics.AuctionBidsTotal.WithLabelValues("accepted").Inc()

	if err := c.store.UpdateState(orderHash, types.StateAuctionStarted, types.StateEthLockPending); err != nil {
		return err
	}
	c.advance(ctx, orderHash)
	return nil
}

// SubmitSecret hands a maker-revealed secret to the order's actor.
// Constant-time comparison prevents a timing side-channel from leaking
// partial-match information about the committed hash.
func (c *Coordinator) SubmitSecret(ctx context.Context, orderHash, secret string) error {
	errCh := make(chan error, 1)
	c.dispatch(ctx, orderHash, func(ctx context.Context) {
		errCh <- c.handleSecret(ctx, orderHash, secret)
	})
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) handleSecret(ctx context.Context, orderHash, secret string) error {
	order, err := c.store.GetByHash(orderHash)
	if err != nil {
		return err
	}
	if order.State != types.StateReadyForSecret {
		return &relayerr.IllegalTransition{OrderHash: orderHash, From: string(order.State), To: "secret-reveal"}
	}

	matches := secretMatchesHash(secret, order.SecretHash)
	if err := c.store.RecordSecret(orderHash, secret, order.SecretHash, matches); err != nil {
		return err
	}
	if err := c.store.UpdateState(orderHash, types.StateReadyForSecret, types.StateSecretReceived); err != nil {
		return err
	}
	c.advance(ctx, orderHash)
	return nil
}

func secretMatchesHash(secret, expectedHash string) bool {
	sum := sha256.Sum256([]byte(secret))
	got := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(got), []byte(expectedHash)) == 1
}

// advance performs whatever chain action the order's current state
// calls for, then recurses once a transition succeeds, so a single
// dispatch can walk an order through several automatic steps (e.g.
// ETH_LOCKED straight through to SUI_LOCKED).
func (c *Coordinator) advance(ctx context.Context, orderHash string) {
	order, err := c.store.GetByHash(orderHash)
	if err != nil {
		log.Printf("coordinator: advance(%s): load failed: %v", orderHash, err)
		return
	}

	metrics.OrdersByState.WithLabelValues(string(order.State)).Inc()

	switch order.State {
	case types.StateNew:
		c.stepAuctionStart(ctx, order)
	case types.StateEthLockPending:
		c.stepLockSrc(ctx, order)
	case types.StateEthLocked:
		c.stepBeginLockDst(ctx, order)
	case types.StateSuiLockPending:
		c.stepLockDst(ctx, order)
	case types.StateSuiLocked:
		c.stepReadyForSecret(ctx, order)
	case types.StateSecretReceived:
		c.stepExecute(ctx, order)
	default:
		// AUCTION_STARTED, READY_FOR_SECRET, and every terminal state
		// wait on an external signal (a bid, a secret, nothing further).
	}
}

func (c *Coordinator) stepAuctionStart(ctx context.Context, order *types.SwapOrder) {
	if err := c.store.UpdateState(order.OrderHash, types.StateNew, types.StateAuctionStarted); err != nil {
		log.Printf("coordinator: %s: start auction: %v", order.OrderHash, err)
	}
}

func (c *Coordinator) stepLockSrc(ctx context.Context, order *types.SwapOrder) {
	lo := &chainadapter.LockOrder{
		OrderHash: order.OrderHash, Maker: order.Maker, Counterparty: c.src.Address(),
		Asset: order.MakerAsset, Amount: order.MakingAmount, SecretHash: order.SecretHash, Deadline: order.DeadlineSrc,
	}
	receipt, err := c.src.Lock(ctx, lo, idempotencyKey(order.OrderHash, "lock-src"))
	if err != nil {
		log.Printf("coordinator: %s: lock src: %v", order.OrderHash, err)
		return
	}
	if err := c.store.AttachSrcEscrow(order.OrderHash, receipt.TxHash, receipt.EscrowRef); err != nil {
		log.Printf("coordinator: %s: attach src escrow: %v", order.OrderHash, err)
		return
	}
	if err := c.store.UpdateState(order.OrderHash, types.StateEthLockPending, types.StateEthLocked); err != nil {
		log.Printf("coordinator: %s: transition to ETH_LOCKED: %v", order.OrderHash, err)
		return
	}
	if err := c.deadline.Arm(order.OrderHash, store.TimeoutSrc, time.Unix(int64(order.DeadlineSrc), 0)); err != nil {
		log.Printf("coordinator: %s: arm src timeout: %v", order.OrderHash, err)
	}
	c.advance(ctx, order.OrderHash)
}

func (c *Coordinator) stepBeginLockDst(ctx context.Context, order *types.SwapOrder) {
	if err := c.store.UpdateState(order.OrderHash, types.StateEthLocked, types.StateSuiLockPending); err != nil {
		log.Printf("coordinator: %s: begin dst lock: %v", order.OrderHash, err)
		return
	}
	c.advance(ctx, order.OrderHash)
}

func (c *Coordinator) stepLockDst(ctx context.Context, order *types.SwapOrder) {
	lo := &chainadapter.LockOrder{
		OrderHash: order.OrderHash, Maker: order.Maker, Counterparty: order.MakerDstAddress,
		Asset: order.TakerAsset, Amount: order.TakingAmount, SecretHash: order.SecretHash, Deadline: order.DeadlineDst,
	}
	receipt, err := c.dst.Lock(ctx, lo, idempotencyKey(order.OrderHash, "lock-dst"))
	if err != nil {
		log.Printf("coordinator: %s: lock dst: %v", order.OrderHash, err)
		return
	}
	if err := c.store.AttachDstEscrow(order.OrderHash, receipt.TxHash, receipt.EscrowRef); err != nil {
		log.Printf("coordinator: %s: attach dst escrow: %v", order.OrderHash, err)
		return
	}
	if err := c.store.UpdateState(order.OrderHash, types.StateSuiLockPending, types.StateSuiLocked); err != nil {
		log.Printf("coordinator: %s: transition to SUI_LOCKED: %v", order.OrderHash, err)
		return
	}
	if err := c.deadline.Arm(order.OrderHash, store.TimeoutDst, time.Unix(int64(order.DeadlineDst), 0)); err != nil {
		log.Printf("coordinator: %s: arm dst timeout: %v", order.OrderHash, err)
	}
	c.advance(ctx, order.OrderHash)
}

func (c *Coordinator) stepReadyForSecret(ctx context.Context, order *types.SwapOrder) {
	if err := c.store.UpdateState(order.OrderHash, types.StateSuiLocked, types.StateReadyForSecret); err != nil {
		log.Printf("coordinator: %s: ready for secret: %v", order.OrderHash, err)
	}
}

// stepExecute performs the atomicity-critical unlock: the destination
// escrow is released before the source escrow, so a relayer crash
// between the two calls leaves the maker able to self-unlock the
// source side with the now-public secret rather than stuck with both
// sides locked.
func (c *Coordinator) stepExecute(ctx context.Context, order *types.SwapOrder) {
	dstReceipt, err := c.dst.Unlock(ctx, order.OrderHash, order.DstEscrowID, order.Secret)
	if err != nil {
		log.Printf("coordinator: %s: unlock dst: %v", order.OrderHash, err)
		return
	}
	if err := c.store.RecordUnlockTx(order.OrderHash, false, dstReceipt.TxHash); err != nil {
		log.Printf("coordinator: %s: record dst unlock: %v", order.OrderHash, err)
	}
	if err := c.deadline.Cancel(order.OrderHash, store.TimeoutDst); err != nil {
		log.Printf("coordinator: %s: cancel dst timeout: %v", order.OrderHash, err)
	}

	srcReceipt, err := c.src.Unlock(ctx, order.OrderHash, order.SrcEscrowAddress, order.Secret)
	if err != nil {
		log.Printf("coordinator: %s: unlock src: %v", order.OrderHash, err)
		return
	}
	if err := c.store.RecordUnlockTx(order.OrderHash, true, srcReceipt.TxHash); err != nil {
		log.Printf("coordinator: %s: record src unlock: %v", order.OrderHash, err)
	}
	if err := c.deadline.Cancel(order.OrderHash, store.TimeoutSrc); err != nil {
		log.Printf("coordinator: %s: cancel src timeout: %v", order.OrderHash, err)
	}

	if err := c.store.UpdateState(order.OrderHash, types.StateSecretReceived, types.StateExecuted); err != nil {
		log.Printf("coordinator: %s: transition to EXECUTED: %v", order.OrderHash, err)
	}
}

// HandleTimeout implements deadline.Handler: it cancels whichever
// escrow the fired timeout guards. A Permanent chainerr.ChainError (or
// any other error) marks the timeout executed without retrying; a
// Transient one bubbles up so the scheduler re-arms it.
func (c *Coordinator) HandleTimeout(ctx context.Context, orderHash string, kind store.TimeoutKind) error {
	order, err := c.store.GetByHash(orderHash)
	if err != nil {
		return err
	}
	if order.State.IsTerminal() {
		return nil
	}

	if kind == store.TimeoutSrc {
		receipt, err := c.src.Cancel(ctx, orderHash, order.SrcEscrowAddress)
		if err != nil {
			return err
		}
		if err := c.store.RecordCancelTx(orderHash, true, receipt.TxHash); err != nil {
			return err
		}
		return c.store.ForceState(orderHash, types.StateCancelledSrc, "source timeout fired")
	}

	receipt, err := c.dst.Cancel(ctx, orderHash, order.DstEscrowID)
	if err != nil {
		return err
	}
	if err := c.store.RecordCancelTx(orderHash, false, receipt.TxHash); err != nil {
		return err
	}
	return c.store.ForceState(orderHash, types.StateCancelledDst, "destination timeout fired")
}
