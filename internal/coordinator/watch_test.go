package coordinator

import (
	"context"
	"testing"

	"github.com/fusion-relay/relayer/internal/chainadapter"
)

// These guard conditions must reject before handleChainEvent ever
// touches the store, so a zero-value Coordinator is enough to verify
// them without a live database.

func TestHandleChainEvent_NilEventIgnored(t *testing.T) {
	c := &Coordinator{}
	c.handleChainEvent(context.Background(), "src", nil)
}

func TestHandleChainEvent_EmptyOrderHashIgnored(t *testing.T) {
	c := &Coordinator{}
	c.handleChainEvent(context.Background(), "src", &chainadapter.ChainEvent{
		Type: chainadapter.EventLocked, IsFinalized: true,
	})
}

func TestHandleChainEvent_NotFinalizedIgnored(t *testing.T) {
	c := &Coordinator{}
	c.handleChainEvent(context.Background(), "src", &chainadapter.ChainEvent{
		Type: chainadapter.EventLocked, OrderHash: "0xorder1", IsFinalized: false,
	})
}

func TestHandleChainEvent_UnlockedWithoutSecretIgnored(t *testing.T) {
	c := &Coordinator{}
	c.handleChainEvent(context.Background(), "src", &chainadapter.ChainEvent{
		Type: chainadapter.EventUnlocked, OrderHash: "0xorder1", IsFinalized: true, Secret: "",
	})
}
