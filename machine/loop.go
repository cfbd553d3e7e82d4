package machine

import (
	"context"
	"sync/atomic"
	"time"

	hsm "github.com/goliatone/go-hsm"
	"github.com/goliatone/go-hsm/queue"
)

// DefaultYield is how long the loop pauses after an absent dequeue
// before retrying.
const DefaultYield = 10 * time.Millisecond

// Driver is the machine surface the processing loop drives. Both
// *Machine and *CompositeMachine satisfy it.
type Driver interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	ProcessEvent(ctx context.Context, event *hsm.Event) (bool, error)
}

// Loop is a cooperative driver that feeds queued events to a machine
// until stopped. It owns no state beyond the running flag; stop latency
// is bounded by the queue's dequeue wait interval.
type Loop struct {
	machine Driver
	queue   *queue.EventQueue
	logger  Logger
	yield   time.Duration
	running atomic.Bool
}

// LoopOption customizes loop construction.
type LoopOption func(*Loop)

// WithLoopLogger sets the loop logger.
func WithLoopLogger(logger Logger) LoopOption {
	return func(l *Loop) {
		l.logger = normalizeLogger(logger)
	}
}

// WithYield overrides the pause after an absent dequeue.
func WithYield(yield time.Duration) LoopOption {
	return func(l *Loop) {
		if yield > 0 {
			l.yield = yield
		}
	}
}

// NewLoop constructs a processing loop over a machine and a queue.
func NewLoop(machine Driver, q *queue.EventQueue, opts ...LoopOption) *Loop {
	l := &Loop{
		machine: machine,
		queue:   q,
		yield:   DefaultYield,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	l.logger = normalizeLogger(l.logger)
	return l
}

// Run starts the machine if needed and processes events until Stop is
// called or ctx is cancelled. Processing errors surfaced by the machine
// (the composite extension's re-raise policy) are logged and do not
// terminate the loop.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return nil
	}
	if err := l.machine.Start(ctx); err != nil {
		l.running.Store(false)
		return err
	}

	for l.running.Load() {
		if ctx.Err() != nil {
			l.running.Store(false)
			return ctx.Err()
		}
		event := l.queue.Dequeue(ctx)
		if event == nil {
			select {
			case <-time.After(l.yield):
			case <-ctx.Done():
			}
			continue
		}
		if _, err := l.machine.ProcessEvent(ctx, event); err != nil {
			l.logger.Error("event processing failed event=%s: %v", event.Name(), err)
		}
	}
	return nil
}

// Stop clears the running flag and stops the machine. An in-flight
// transition holding the machine lock completes before the stop takes
// effect.
func (l *Loop) Stop(ctx context.Context) error {
	l.running.Store(false)
	return l.machine.Stop(ctx)
}

// Running reports whether the loop is active.
func (l *Loop) Running() bool {
	return l.running.Load()
}
