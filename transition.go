package hsm

import (
	"context"
)

// Guard is a predicate gating whether a transition may fire for an
// event. Returning false vetoes the transition; returning an error is a
// transition-execution failure and is handled per the owning machine's
// failure policy.
type Guard func(ctx context.Context, event *Event) (bool, error)

// Action is a side effect executed while a transition fires. Actions
// run in declared order with the machine lock held.
type Action func(ctx context.Context, event *Event) error

// Transition connects a source state to a target state. All guards must
// pass for the transition to fire. Higher priority wins when several
// transitions are valid for the same event; ties break by declaration
// order.
type Transition struct {
	source   *State
	target   *State
	guards   []Guard
	actions  []Action
	priority int
}

// TransitionOption customizes transition construction.
type TransitionOption func(*Transition)

// WithGuards appends guard predicates in evaluation order.
func WithGuards(guards ...Guard) TransitionOption {
	return func(t *Transition) {
		t.guards = append(t.guards, guards...)
	}
}

// WithActions appends actions in execution order.
func WithActions(actions ...Action) TransitionOption {
	return func(t *Transition) {
		t.actions = append(t.actions, actions...)
	}
}

// WithTransitionPriority sets the transition priority. Default is 0.
func WithTransitionPriority(priority int) TransitionOption {
	return func(t *Transition) {
		t.priority = priority
	}
}

// NewTransition constructs a transition from source to target.
func NewTransition(source, target *State, opts ...TransitionOption) *Transition {
	t := &Transition{source: source, target: target}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

// Source returns the transition source state.
func (t *Transition) Source() *State {
	if t == nil {
		return nil
	}
	return t.source
}

// Target returns the transition target state.
func (t *Transition) Target() *State {
	if t == nil {
		return nil
	}
	return t.target
}

// Priority returns the transition priority.
func (t *Transition) Priority() int {
	if t == nil {
		return 0
	}
	return t.priority
}

// Actions returns the declared action sequence.
func (t *Transition) Actions() []Action {
	if t == nil {
		return nil
	}
	return t.actions
}

// EvaluateGuards runs every guard in declared order and reports whether
// all passed. Evaluation short-circuits on the first veto or error.
func (t *Transition) EvaluateGuards(ctx context.Context, event *Event) (bool, error) {
	if t == nil {
		return false, nil
	}
	for _, guard := range t.guards {
		if guard == nil {
			continue
		}
		ok, err := guard(ctx, event)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// EventNameGuard returns a guard that passes only for events with the
// given name.
func EventNameGuard(name string) Guard {
	return func(_ context.Context, event *Event) (bool, error) {
		return event.Name() == name, nil
	}
}

// AlwaysGuard returns a guard that passes for every event. Used for the
// synthetic transitions into composite initial substates.
func AlwaysGuard() Guard {
	return func(context.Context, *Event) (bool, error) {
		return true, nil
	}
}
