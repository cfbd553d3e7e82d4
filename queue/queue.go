package queue

import (
	"container/heap"
	"context"
	"sync"
	"time"

	hsm "github.com/goliatone/go-hsm"
)

// DefaultWait bounds how long Dequeue blocks before reporting absence
// so the caller can re-check shutdown state.
const DefaultWait = 100 * time.Millisecond

// EventQueue buffers inbound events for an event processing loop. The
// ordering mode is fixed at construction: FIFO, or priority order where
// higher event priority dequeues first and equal priorities preserve
// arrival order. Capacity is unbounded; Enqueue never fails.
//
// The queue is internally synchronized: any number of producers may
// enqueue concurrently with dequeue operations.
type EventQueue struct {
	mu       sync.Mutex
	priority bool
	fifo     []*hsm.Event
	ordered  eventHeap
	seq      uint64
	stopped  bool
	wait     time.Duration
	notify   chan struct{}
}

// Option customizes queue construction.
type Option func(*EventQueue)

// WithWait overrides the bounded dequeue wait interval.
func WithWait(wait time.Duration) Option {
	return func(q *EventQueue) {
		if wait > 0 {
			q.wait = wait
		}
	}
}

// New constructs a FIFO-ordered queue.
func New(opts ...Option) *EventQueue {
	return newQueue(false, opts...)
}

// NewPriority constructs a priority-ordered queue.
func NewPriority(opts ...Option) *EventQueue {
	return newQueue(true, opts...)
}

func newQueue(priority bool, opts ...Option) *EventQueue {
	q := &EventQueue{
		priority: priority,
		wait:     DefaultWait,
		notify:   make(chan struct{}, 1),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(q)
		}
	}
	return q
}

// Enqueue buffers an event. Enqueuing on a stopped queue is a no-op.
func (q *EventQueue) Enqueue(event *hsm.Event) {
	if event == nil {
		return
	}
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	if q.priority {
		heap.Push(&q.ordered, queuedEvent{event: event, seq: q.seq})
		q.seq++
	} else {
		q.fifo = append(q.fifo, event)
	}
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Dequeue removes and returns the next event. It blocks until an event
// is available, the bounded wait interval elapses, the context is
// cancelled, or the queue is stopped; all but the first return nil.
func (q *EventQueue) Dequeue(ctx context.Context) *hsm.Event {
	deadline := time.NewTimer(q.wait)
	defer deadline.Stop()

	for {
		q.mu.Lock()
		if q.stopped {
			q.mu.Unlock()
			return nil
		}
		if ev := q.popLocked(); ev != nil {
			q.mu.Unlock()
			return ev
		}
		q.mu.Unlock()

		if ctx == nil {
			ctx = context.Background()
		}
		select {
		case <-q.notify:
		case <-deadline.C:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (q *EventQueue) popLocked() *hsm.Event {
	if q.priority {
		if q.ordered.Len() == 0 {
			return nil
		}
		item := heap.Pop(&q.ordered).(queuedEvent)
		return item.event
	}
	if len(q.fifo) == 0 {
		return nil
	}
	ev := q.fifo[0]
	q.fifo[0] = nil
	q.fifo = q.fifo[1:]
	return ev
}

// IsEmpty reports whether the queue holds no events. Snapshot only; a
// concurrent producer may enqueue immediately after.
func (q *EventQueue) IsEmpty() bool {
	return q.Len() == 0
}

// Len returns the number of buffered events.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.priority {
		return q.ordered.Len()
	}
	return len(q.fifo)
}

// Clear drains all buffered events without processing them.
func (q *EventQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fifo = nil
	q.ordered = q.ordered[:0]
}

// Stop marks the queue stopped and clears it. After Stop, Dequeue
// returns nil immediately and Enqueue drops events.
func (q *EventQueue) Stop() {
	q.mu.Lock()
	q.stopped = true
	q.fifo = nil
	q.ordered = q.ordered[:0]
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Stopped reports whether Stop has been called.
func (q *EventQueue) Stopped() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stopped
}

// queuedEvent pairs an event with its enqueue sequence so equal
// priorities dequeue in arrival order.
type queuedEvent struct {
	event *hsm.Event
	seq   uint64
}

type eventHeap []queuedEvent

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].event.Priority() != h[j].event.Priority() {
		return h[i].event.Priority() > h[j].event.Priority()
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(queuedEvent))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = queuedEvent{}
	*h = old[:n-1]
	return item
}
