package machine

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	hsm "github.com/goliatone/go-hsm"
	"github.com/goliatone/go-hsm/graph"
)

// Validator is an external collaborator that checks machine
// configuration during Start. It runs with the machine lock held, so
// implementations must inspect the machine through Graph and
// InitialState rather than calling back into locking methods.
type Validator interface {
	ValidateMachine(ctx context.Context, m *Machine) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(ctx context.Context, m *Machine) error

// ValidateMachine calls the underlying function.
func (f ValidatorFunc) ValidateMachine(ctx context.Context, m *Machine) error {
	return f(ctx, m)
}

// Machine is the asynchronous state machine core. It owns the
// current-state pointer and orchestrates guard evaluation, transition
// execution, and observer notification under a single mutex. Guards and
// actions run with the lock held: transition evaluation is atomic at
// the cost of throughput.
type Machine struct {
	mu      sync.Mutex
	graph   hsm.Graph
	initial *hsm.State
	current *hsm.State
	started atomic.Bool

	validator Validator
	logger    Logger

	enterObs      []hsm.EnterObserver
	exitObs       []hsm.ExitObserver
	transitionObs []hsm.TransitionObserver
	errorObs      []hsm.ErrorObserver
}

// New constructs a machine with the given initial state. A default
// in-memory graph is created unless WithGraph supplies one; the initial
// state is registered either way.
func New(initial *hsm.State, opts ...Option) *Machine {
	m := &Machine{initial: initial}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.graph == nil {
		m.graph = graph.New()
	}
	m.logger = normalizeLogger(m.logger)
	if initial != nil {
		// ignore: re-adding a known state is a no-op in every
		// conforming graph
		_ = m.graph.AddState(initial, nil)
	}
	return m
}

// Graph exposes the underlying graph collaborator.
func (m *Machine) Graph() hsm.Graph {
	return m.graph
}

// InitialState returns the configured initial state.
func (m *Machine) InitialState() *hsm.State {
	return m.initial
}

// CurrentState returns the current state, or nil when stopped.
func (m *Machine) CurrentState() *hsm.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Started reports whether the machine is running.
func (m *Machine) Started() bool {
	return m.started.Load()
}

// AddState registers a state on the underlying graph, optionally under
// a parent.
func (m *Machine) AddState(state, parent *hsm.State) error {
	return m.graph.AddState(state, parent)
}

// AddTransition registers a transition on the underlying graph.
func (m *Machine) AddTransition(t *hsm.Transition) error {
	return m.graph.AddTransition(t)
}

// Start resolves the effective initial state, validates the graph and
// the machine configuration, and enters the resolved state. Idempotent
// when already started. On validation failure the machine stays
// unstarted.
func (m *Machine) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started.Load() {
		return nil
	}

	resolved := m.graph.ResolveActiveState(m.initial)
	if resolved == nil {
		return hsm.CloneError(hsm.ErrConfigInvalid, "no initial state configured", nil, nil)
	}
	m.current = resolved

	if msgs := m.graph.Validate(); len(msgs) > 0 {
		return hsm.CloneError(hsm.ErrValidationFailed, strings.Join(msgs, "\n"), nil, map[string]any{
			"errors": len(msgs),
		})
	}
	if m.validator != nil {
		if err := m.validator.ValidateMachine(ctx, m); err != nil {
			return hsm.CloneError(hsm.ErrValidationFailed, "machine validation failed", err, nil)
		}
	}

	if err := m.notifyEnter(ctx, m.current); err != nil {
		return hsm.CloneError(hsm.ErrTransitionFailed, "entry notification failed on start", err, map[string]any{
			"state": m.current.Name(),
		})
	}

	m.started.Store(true)
	m.logger.Debug("machine started state=%s", m.current.Name())
	return nil
}

// Stop exits the current state and clears it. Idempotent when not
// started. An exit-notification failure is reported to error observers
// and returned, but the machine still stops.
func (m *Machine) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started.Load() {
		return nil
	}

	var exitErr error
	if m.current != nil {
		if err := m.notifyExit(ctx, m.current); err != nil {
			m.notifyError(ctx, err)
			exitErr = hsm.CloneError(hsm.ErrTransitionFailed, "exit notification failed on stop", err, map[string]any{
				"state": m.current.Name(),
			})
		}
		m.current = nil
	}

	m.started.Store(false)
	m.logger.Debug("machine stopped")
	return exitErr
}

// ProcessEvent evaluates the event against transitions out of the
// current state and fires the single best match. It reports whether a
// transition fired.
//
// Selection collects every candidate whose guards all pass and picks
// the highest priority, ties broken by first-found order. A failure
// while executing the chosen transition rolls the current state back,
// notifies error observers, and is swallowed: the error return is
// always nil at this layer and the event is reported as unhandled.
func (m *Machine) ProcessEvent(ctx context.Context, event *hsm.Event) (bool, error) {
	if event == nil || !m.started.Load() {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return false, nil
	}

	var chosen *hsm.Transition
	for _, t := range m.graph.ValidTransitions(m.current, event) {
		ok, err := t.EvaluateGuards(ctx, event)
		if err != nil {
			m.notifyError(ctx, hsm.CloneError(hsm.ErrTransitionFailed, "guard evaluation failed", err, map[string]any{
				"source": t.Source().Name(),
				"target": t.Target().Name(),
				"event":  event.Name(),
			}))
			continue
		}
		if !ok {
			continue
		}
		if chosen == nil || t.Priority() > chosen.Priority() {
			chosen = t
		}
	}
	if chosen == nil {
		return false, nil
	}

	if err := m.executeTransition(ctx, chosen, event); err != nil {
		// failure already rolled back and reported; swallowed here
		return false, nil
	}
	return true, nil
}

// executeTransition runs the fixed protocol: exit notification,
// actions in declared order, current-state swap, transition observer
// fan-out, entry notification. On any failure the pre-transition state
// is restored and error observers are notified before the error is
// returned to the caller for policy handling.
func (m *Machine) executeTransition(ctx context.Context, t *hsm.Transition, event *hsm.Event) error {
	previous := m.current
	logger := withLoggerFields(m.logger, map[string]any{
		"source": t.Source().Name(),
		"target": t.Target().Name(),
		"event":  event.Name(),
	})

	err := func() error {
		if err := m.notifyExit(ctx, m.current); err != nil {
			return err
		}
		for _, action := range t.Actions() {
			if action == nil {
				continue
			}
			if err := action(ctx, event); err != nil {
				return err
			}
		}
		m.current = t.Target()
		if err := m.notifyTransition(ctx, t.Source(), t.Target()); err != nil {
			return err
		}
		return m.notifyEnter(ctx, m.current)
	}()
	if err != nil {
		m.current = previous
		wrapped := hsm.CloneError(hsm.ErrTransitionFailed, "transition execution failed", err, map[string]any{
			"source": t.Source().Name(),
			"target": t.Target().Name(),
			"event":  event.Name(),
		})
		m.notifyError(ctx, wrapped)
		logger.Warn("transition failed: %v", err)
		return wrapped
	}

	logger.Debug("transition fired")
	return nil
}

func (m *Machine) notifyEnter(ctx context.Context, state *hsm.State) error {
	if err := state.Enter(ctx); err != nil {
		return err
	}
	for _, obs := range m.enterObs {
		if err := obs.OnEnter(ctx, state); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) notifyExit(ctx context.Context, state *hsm.State) error {
	if err := state.Exit(ctx); err != nil {
		return err
	}
	for _, obs := range m.exitObs {
		if err := obs.OnExit(ctx, state); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) notifyTransition(ctx context.Context, source, target *hsm.State) error {
	for _, obs := range m.transitionObs {
		if err := obs.OnTransition(ctx, source, target); err != nil {
			return err
		}
	}
	return nil
}

func (m *Machine) notifyError(ctx context.Context, err error) {
	for _, obs := range m.errorObs {
		obs.OnError(ctx, err)
	}
}
