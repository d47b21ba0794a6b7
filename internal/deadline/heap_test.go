package deadline

import (
	"container/heap"
	"testing"
	"time"

	"github.com/fusion-relay/relayer/internal/store"
)

func TestTimeoutHeap_OrdersByFireAt(t *testing.T) {
	base := time.Now()
	h := &timeoutHeap{}
	heap.Init(h)

	heap.Push(h, &item{event: &store.TimeoutEvent{OrderHash: "c", FireAt: base.Add(3 * time.Minute)}})
	heap.Push(h, &item{event: &store.TimeoutEvent{OrderHash: "a", FireAt: base.Add(1 * time.Minute)}})
	heap.Push(h, &item{event: &store.TimeoutEvent{OrderHash: "b", FireAt: base.Add(2 * time.Minute)}})

	var order []string
	for h.Len() > 0 {
		it := heap.Pop(h).(*item)
		order = append(order, it.event.OrderHash)
	}

	want := []string{"a", "b", "c"}
	for i, w := range want {
		if order[i] != w {
			t.Fatalf("pop order = %v, want %v", order, want)
		}
	}
}

func TestTimeoutHeap_FixReorders(t *testing.T) {
	base := time.Now()
	h := &timeoutHeap{}
	heap.Init(h)

	early := &item{event: &store.TimeoutEvent{OrderHash: "early", FireAt: base.Add(1 * time.Minute)}}
	late := &item{event: &store.TimeoutEvent{OrderHash: "late", FireAt: base.Add(5 * time.Minute)}}
	heap.Push(h, early)
	heap.Push(h, late)

	late.event.FireAt = base.Add(-time.Minute)
	heap.Fix(h, late.index)

	top := heap.Pop(h).(*item)
	if top.event.OrderHash != "late" {
		t.Fatalf("expected late to sort first after Fix, got %s", top.event.OrderHash)
	}
}
