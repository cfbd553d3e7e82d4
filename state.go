package hsm

import (
	"context"
)

// Callback is a lifecycle notification attached to a state. Callbacks may
// block on I/O; the machine lock is held while they run.
type Callback func(ctx context.Context) error

// State is a node in the machine graph. States are built by setup code
// before the machine starts and are read-only to the engine, except for
// the composite initial-substate field which the engine records exactly
// once during submachine attachment.
type State struct {
	name    string
	parent  *State
	onEnter Callback
	onExit  Callback

	composite bool
	initial   *State
}

// StateOption customizes state construction.
type StateOption func(*State)

// OnEnter attaches an entry callback to the state.
func OnEnter(cb Callback) StateOption {
	return func(s *State) {
		s.onEnter = cb
	}
}

// OnExit attaches an exit callback to the state.
func OnExit(cb Callback) StateOption {
	return func(s *State) {
		s.onExit = cb
	}
}

// WithInitialSubstate presets the initial substate of a composite state.
// It has no effect on plain states.
func WithInitialSubstate(initial *State) StateOption {
	return func(s *State) {
		if s.composite {
			s.initial = initial
		}
	}
}

// NewState constructs a plain state.
func NewState(name string, opts ...StateOption) *State {
	s := &State{name: name}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// NewCompositeState constructs a state that may own an initial substate
// and delegate its interior behavior to an attached submachine.
func NewCompositeState(name string, opts ...StateOption) *State {
	s := &State{name: name, composite: true}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Name returns the state identifier.
func (s *State) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Parent returns the hierarchy back-reference, or nil for top-level
// states. The parent link is for lookup only; it does not imply
// ownership.
func (s *State) Parent() *State {
	if s == nil {
		return nil
	}
	return s.parent
}

// SetParent records the hierarchy back-reference. Called by graph
// implementations when a state is added under a parent.
func (s *State) SetParent(parent *State) {
	if s == nil {
		return
	}
	s.parent = parent
}

// IsComposite reports whether the state can own an initial substate.
func (s *State) IsComposite() bool {
	return s != nil && s.composite
}

// InitialSubstate returns the recorded initial substate of a composite
// state, or nil when none has been recorded.
func (s *State) InitialSubstate() *State {
	if s == nil {
		return nil
	}
	return s.initial
}

// RecordInitialSubstate writes the composite initial substate. The field
// is write-once: recording a different substate once one is set fails
// with a configuration error, as does recording on a non-composite state.
func (s *State) RecordInitialSubstate(initial *State) error {
	if s == nil || initial == nil {
		return CloneError(ErrConfigInvalid, "initial substate requires a composite state and a substate", nil, nil)
	}
	if !s.composite {
		return CloneError(ErrConfigInvalid, "state is not composite", nil, map[string]any{
			"state": s.name,
		})
	}
	if s.initial != nil && s.initial != initial {
		return CloneError(ErrConfigInvalid, "initial substate already recorded", nil, map[string]any{
			"state":   s.name,
			"initial": s.initial.name,
		})
	}
	s.initial = initial
	return nil
}

// Enter invokes the state's entry callback, if any.
func (s *State) Enter(ctx context.Context) error {
	if s == nil || s.onEnter == nil {
		return nil
	}
	return s.onEnter(ctx)
}

// Exit invokes the state's exit callback, if any.
func (s *State) Exit(ctx context.Context) error {
	if s == nil || s.onExit == nil {
		return nil
	}
	return s.onExit(ctx)
}
