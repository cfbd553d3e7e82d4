// Package scheduler emits events into a queue on cron schedules or
// after fixed delays, so time-driven transitions can be fed through the
// same processing loop as externally produced events.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	hsm "github.com/goliatone/go-hsm"

	rcron "github.com/robfig/cron/v3"
)

// Emitter receives scheduled events. *queue.EventQueue satisfies it.
type Emitter interface {
	Enqueue(event *hsm.Event)
}

// Logger is the minimal logging surface the scheduler needs.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Handle identifies one scheduled emission.
type Handle interface {
	// Unschedule cancels the emission. Safe to call more than once.
	Unschedule()
}

// Scheduler wraps cron scheduling around an event emitter.
type Scheduler struct {
	mu           sync.Mutex
	cron         *rcron.Cron
	emitter      Emitter
	location     *time.Location
	logger       Logger
	errorHandler func(error)

	nextID  int64
	handles map[int64]*handle
	started bool
}

// Option defines the functional option type for Scheduler.
type Option func(*Scheduler)

// WithLocation sets the timezone location for cron expressions.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithLogger sets a custom logger for the scheduler.
func WithLogger(logger Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithErrorHandler sets a custom handler for schedule errors.
func WithErrorHandler(handler func(error)) Option {
	return func(s *Scheduler) {
		if handler != nil {
			s.errorHandler = handler
		}
	}
}

// New creates a scheduler emitting into the given emitter.
func New(emitter Emitter, opts ...Option) (*Scheduler, error) {
	if emitter == nil {
		return nil, hsm.CloneError(hsm.ErrConfigInvalid, "scheduler requires an emitter", nil, nil)
	}
	s := &Scheduler{
		emitter:      emitter,
		location:     time.Local,
		errorHandler: func(error) {},
		handles:      make(map[int64]*handle),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.cron = rcron.New(rcron.WithLocation(s.location))
	return s, nil
}

// ScheduleCron emits event on every firing of the cron expression.
func (s *Scheduler) ScheduleCron(expr string, event *hsm.Event) (Handle, error) {
	if expr == "" {
		return nil, hsm.CloneError(hsm.ErrConfigInvalid, "cron expression cannot be empty", nil, nil)
	}
	if event == nil {
		return nil, hsm.CloneError(hsm.ErrConfigInvalid, "event is required", nil, nil)
	}

	h := s.newHandle()
	entryID, err := s.cron.AddFunc(expr, func() {
		if h.cancelled() {
			return
		}
		s.emit(event)
	})
	if err != nil {
		s.dropHandle(h)
		return nil, hsm.CloneError(hsm.ErrConfigInvalid, fmt.Sprintf("failed to schedule %q", expr), err, nil)
	}
	h.entryID = entryID
	return h, nil
}

// ScheduleAfter emits event once after delay.
func (s *Scheduler) ScheduleAfter(delay time.Duration, event *hsm.Event) (Handle, error) {
	if delay < 0 {
		delay = 0
	}
	return s.ScheduleAt(time.Now().Add(delay), event)
}

// ScheduleAt emits event once at a specific time.
func (s *Scheduler) ScheduleAt(at time.Time, event *hsm.Event) (Handle, error) {
	if event == nil {
		return nil, hsm.CloneError(hsm.ErrConfigInvalid, "event is required", nil, nil)
	}

	h := s.newHandle()
	h.timer = time.AfterFunc(time.Until(at), func() {
		if h.cancelled() {
			return
		}
		s.emit(event)
		s.dropHandle(h)
	})
	return h, nil
}

// Start begins cron processing. Delay-based emissions run regardless.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.cron.Start()
	s.started = true
}

// Stop halts cron processing and cancels all pending emissions.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	handles := make([]*handle, 0, len(s.handles))
	for _, h := range s.handles {
		handles = append(handles, h)
	}
	started := s.started
	s.started = false
	s.mu.Unlock()

	for _, h := range handles {
		h.Unschedule()
	}
	if started {
		<-s.cron.Stop().Done()
	}
}

func (s *Scheduler) emit(event *hsm.Event) {
	s.emitter.Enqueue(event)
	if s.logger != nil {
		s.logger.Info("scheduled event emitted event=%s priority=%d", event.Name(), event.Priority())
	}
}

func (s *Scheduler) newHandle() *handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	h := &handle{id: s.nextID, scheduler: s}
	s.handles[h.id] = h
	return h
}

func (s *Scheduler) dropHandle(h *handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.handles, h.id)
}

type handle struct {
	id        int64
	scheduler *Scheduler
	entryID   rcron.EntryID
	timer     *time.Timer

	mu   sync.Mutex
	done bool
}

// Unschedule cancels the emission.
func (h *handle) Unschedule() {
	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		return
	}
	h.done = true
	timer := h.timer
	entryID := h.entryID
	h.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if entryID != 0 {
		h.scheduler.cron.Remove(entryID)
	}
	h.scheduler.dropHandle(h)
}

func (h *handle) cancelled() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}
