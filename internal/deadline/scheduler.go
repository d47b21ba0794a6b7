// Package deadline implements the durable deadline scheduler: a
// container/heap priority queue of armed timeouts, backed by the
// store so a crash-and-restart recovers every unfired deadline instead
// of losing it.
package deadline

import (
	"container/heap"
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/fusion-relay/relayer/internal/chainerr"
	"github.com/fusion-relay/relayer/internal/metrics"
	"github.com/fusion-relay/relayer/internal/store"
)

var errNoHandler = errors.New("deadline: Start called before SetHandler")

// Handler executes the action bound to a fired timeout (cancel an
// escrow on the appropriate chain). A Transient chainerr.ChainError
// causes the scheduler to re-arm it 30 seconds later; any other error marks
// the event executed and logs it, since retrying forever on a
// permanent failure would wedge the heap.
type Handler interface {
	HandleTimeout(ctx context.Context, orderHash string, kind store.TimeoutKind) error
}

// item is one entry in the scheduler's heap.
type item struct {
	event *store.TimeoutEvent
	index int
}

type timeoutHeap []*item

func (h timeoutHeap) Len() int { return len(h) }
func (h timeoutHeap) Less(i, j int) bool {
	return h[i].event.FireAt.Before(h[j].event.FireAt)
}
func (h timeoutHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *timeoutHeap) Push(x interface{}) {
	it := x.(*item)
	it.index = len(*h)
	*h = append(*h, it)
}
func (h *timeoutHeap) Pop() interface{} {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	it.index = -1
	*h = old[:n-1]
	return it
}

// Scheduler arms, cancels, and fires deadlines. One Scheduler backs
// both the source-chain and destination-chain timeout kinds.
type Scheduler struct {
	store   *store.Store
	handler Handler

	mu      sync.Mutex
	h       timeoutHeap
	byOrder map[string]*item // keyed by orderHash+kind

	wake chan struct{}
}

// New constructs a Scheduler with no handler bound yet. Call
// SetHandler before Start — the coordinator that implements Handler is
// itself constructed with a reference to this Scheduler, so the two
// are wired together after both exist.
func New(st *store.Store) *Scheduler {
	return &Scheduler{
		store:   st,
		byOrder: make(map[string]*item),
		wake:    make(chan struct{}, 1),
	}
}

// SetHandler binds the handler invoked when a timeout fires. Must be
// called before Start.
func (s *Scheduler) SetHandler(handler Handler) {
	s.handler = handler
}

func key(orderHash string, kind store.TimeoutKind) string {
	return orderHash + "|" + string(kind)
}

// Start loads every unexecuted timeout row and runs the fire loop
// until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.handler == nil {
		return errNoHandler
	}
	events, err := s.store.ListUnexecutedTimeouts()
	if err != nil {
		return err
	}

	s.mu.Lock()
	for _, ev := range events {
		it := &item{event: ev}
		heap.Push(&s.h, it)
		s.byOrder[key(ev.OrderHash, ev.Kind)] = it
	}
	s.mu.Unlock()

	log.Printf("deadline: recovered %d armed timeout(s) from store", len(events))
	s.run(ctx)
	return nil
}

// Arm persists and schedules a timeout for orderHash/kind at fireAt.
// Re-arming an already-armed (orderHash, kind) pair moves its fire
// time instead of creating a second entry.
func (s *Scheduler) Arm(orderHash string, kind store.TimeoutKind, fireAt time.Time) error {
	ev, err := s.store.ArmTimeout(orderHash, kind, fireAt)
	if err != nil {
		return err
	}

	s.mu.Lock()
	k := key(orderHash, kind)
	if existing, ok := s.byOrder[k]; ok {
		existing.event = ev
		heap.Fix(&s.h, existing.index)
	} else {
		it := &item{event: ev}
		heap.Push(&s.h, it)
		s.byOrder[k] = it
	}
	s.mu.Unlock()

	s.poke()
	return nil
}

// Cancel disarms a timeout before it fires, used when the guarded leg
// of the swap completes on time.
func (s *Scheduler) Cancel(orderHash string, kind store.TimeoutKind) error {
	if err := s.store.CancelTimeout(orderHash, kind); err != nil {
		return err
	}
	s.mu.Lock()
	k := key(orderHash, kind)
	if it, ok := s.byOrder[k]; ok && it.index >= 0 {
		heap.Remove(&s.h, it.index)
	}
	delete(s.byOrder, k)
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) poke() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run drives the fire loop: sleep until the next deadline (or until
// woken by an Arm call that moved the soonest deadline earlier), then
// pop and execute every event whose fire time has passed.
func (s *Scheduler) run(ctx context.Context) {
	for {
		s.mu.Lock()
		var wait time.Duration
		if s.h.Len() == 0 {
			wait = time.Hour
		} else {
			wait = time.Until(s.h[0].event.FireAt)
			if wait < 0 {
				wait = 0
			}
		}
		s.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}

		s.fireDue(ctx)
	}
}

func (s *Scheduler) fireDue(ctx context.Context) {
	for {
		s.mu.Lock()
		if s.h.Len() == 0 || s.h[0].event.FireAt.After(time.Now()) {
			s.mu.Unlock()
			return
		}
		it := heap.Pop(&s.h).(*item)
		delete(s.byOrder, key(it.event.OrderHash, it.event.Kind))
		s.mu.Unlock()

		s.fire(ctx, it.event)
	}
}

func (s *Scheduler) fire(ctx context.Context, ev *store.TimeoutEvent) {
	metrics.TimeoutsFiredTotal.WithLabelValues(string(ev.Kind)).Inc()
	err := s.handler.HandleTimeout(ctx, ev.OrderHash, ev.Kind)
	if err == nil {
		if markErr := s.store.MarkTimeoutExecuted(ev.ID); markErr != nil {
			log.Printf("deadline: mark executed failed for order %s: %v", ev.OrderHash, markErr)
		}
		return
	}

	if chainerr.IsTransient(err) {
		log.Printf("deadline: transient failure firing %s/%s, re-arming: %v", ev.OrderHash, ev.Kind, err)
		if armErr := s.Arm(ev.OrderHash, ev.Kind, time.Now().Add(30*time.Second)); armErr != nil {
			log.Printf("deadline: re-arm failed for order %s: %v", ev.OrderHash, armErr)
		}
		return
	}

	log.Printf("deadline: permanent failure firing %s/%s, marking executed: %v", ev.OrderHash, ev.Kind, err)
	if markErr := s.store.MarkTimeoutExecuted(ev.ID); markErr != nil {
		log.Printf("deadline: mark executed failed for order %s: %v", ev.OrderHash, markErr)
	}
}
