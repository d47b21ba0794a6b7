// Package coordinator implements the per-order state machine (C5):
// one actor goroutine per active order serializes every mutation,
// bounded by a worker-pool semaphore, while the deadline scheduler and
// chain-watcher fan-out run as separate long-lived tasks feeding
// commands into each order's actor.
package coordinator

import (
	"context"
	"log"
	"sync"

	"github.com/fusion-relay/relayer/internal/auction"
	"github.com/fusion-relay/relayer/internal/chainadapter"
	"github.com/fusion-relay/relayer/internal/config"
	"github.com/fusion-relay/relayer/internal/deadline"
	"github.com/fusion-relay/relayer/internal/metrics"
	"github.com/fusion-relay/relayer/internal/store"
)

// Coordinator drives every active swap order through its lifecycle.
type Coordinator struct {
	store    *store.Store
	src      chainadapter.Adapter
	dst      chainadapter.Adapter
	deadline *deadline.Scheduler
	selector auction.BidSelector
	relayer  config.Relayer

	sem chan struct{} // bounds concurrently active order actors

	mu     sync.Mutex
	actors map[string]chan func(context.Context)
	wg     sync.WaitGroup
}

// New constructs a Coordinator. src is the EVM-style source-chain
// adapter, dst the object-chain destination adapter.
func New(st *store.Store, src, dst chainadapter.Adapter, sched *deadline.Scheduler, relayerCfg config.Relayer) *Coordinator {
	return &Coordinator{
		store:    st,
		src:      src,
		dst:      dst,
		deadline: sched,
		selector: auction.FirstAcceptableBid{},
		relayer:  relayerCfg,
		sem:      make(chan struct{}, relayerCfg.MaxConcurrentOrders),
		actors:   make(map[string]chan func(context.Context)),
	}
}

// Recover loads every non-terminal order from the store on startup and
// resumes its actor, so a crash mid-swap picks up exactly where it
// left off instead of losing track of in-flight escrows.
func (c *Coordinator) Recover(ctx context.Context) error {
	active, err := c.store.ListActive()
	if err != nil {
		return err
	}
	for _, order := range active {
		c.dispatch(ctx, order.OrderHash, func(ctx context.Context) {
			c.advance(ctx, order.OrderHash)
		})
	}
	log.Printf("coordinator: resumed %d active order(s)", len(active))
	return nil
}

// Shutdown waits for every in-flight actor command to finish, up to
// ctx's deadline.
func (c *Coordinator) Shutdown(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Printf("coordinator: shutdown grace period exceeded, %d actor(s) still draining", len(c.actors))
	}
}

// actorFor returns the command channel for orderHash, spinning up its
// goroutine on first use. The goroutine lives only while commands
// exist for it and exits once its channel is closed.
func (c *Coordinator) actorFor(orderHash string) chan func(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ch, ok := c.actors[orderHash]; ok {
		return ch
	}

	ch := make(chan func(context.Context), 16)
	c.actors[orderHash] = ch
	c.wg.Add(1)
	go c.runActor(orderHash, ch)
	return ch
}

func (c *Coordinator) runActor(orderHash string, ch chan func(context.Context)) {
	defer c.wg.Done()
	ctx := context.Background()
	for cmd := range ch {
		c.sem <- struct{}{}
		metrics.CoordinatorActiveOrders.Inc()
		cmd(ctx)
		metrics.CoordinatorActiveOrders.Dec()
		<-c.sem
	}
}

// dispatch enqueues fn onto orderHash's actor without blocking the
// caller (chain watchers, the deadline scheduler, and the HTTP
// boundary all call this).
func (c *Coordinator) dispatch(ctx context.Context, orderHash string, fn func(context.Context)) {
	select {
	case c.actorFor(orderHash) <- fn:
	case <-ctx.Done():
	}
}
