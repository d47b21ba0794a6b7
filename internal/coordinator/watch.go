package coordinator

import (
	"context"
	"log"
	"time"

	"github.com/fusion-relay/relayer/internal/chainadapter"
)

// WatchSrc and WatchDst run each chain adapter's event stream for the
// lifetime of ctx, restarting the underlying Watch call after a fixed
// 5-second pause if it returns. Call both from the process's top-level goroutine
// group alongside Recover.
func (c *Coordinator) WatchSrc(ctx context.Context) { c.watchLoop(ctx, c.src, "src") }
func (c *Coordinator) WatchDst(ctx context.Context) { c.watchLoop(ctx, c.dst, "dst") }

func (c *Coordinator) watchLoop(ctx context.Context, adapter chainadapter.Adapter, label string) {
	for {
		if ctx.Err() != nil {
			return
		}
		events := make(chan *chainadapter.ChainEvent, 64)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for ev := range events {
				c.handleChainEvent(ctx, label, ev)
			}
		}()

		if err := adapter.Watch(ctx, events); err != nil && ctx.Err() == nil {
			log.Printf("coordinator: %s watcher stopped: %v, restarting in 5s", label, err)
		}
		close(events)
		<-done

		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}

// handleChainEvent reacts to an event surfaced independently of this
// relayer's own Lock/Unlock calls — most importantly, a secret
// revealed by a counterparty unlocking the other leg directly on
// chain, which must be captured here so this order's actor can
// propagate it to the remaining leg instead of waiting forever.
func (c *Coordinator) handleChainEvent(ctx context.Context, label string, ev *chainadapter.ChainEvent) {
	if ev == nil || ev.OrderHash == "" || !ev.IsFinalized {
		return
	}

	switch ev.Type {
	case chainadapter.EventUnlocked:
		if ev.Secret == "" {
			return
		}
		c.dispatch(ctx, ev.OrderHash, func(ctx context.Context) {
			if err := c.handleSecret(ctx, ev.OrderHash, ev.Secret); err != nil {
				log.Printf("coordinator: %s: secret observed on %s unlock ignored: %v", ev.OrderHash, label, err)
			}
		})
	case chainadapter.EventLocked, chainadapter.EventCancelled:
		c.dispatch(ctx, ev.OrderHash, func(ctx context.Context) {
			c.advance(ctx, ev.OrderHash)
		})
	}
}
