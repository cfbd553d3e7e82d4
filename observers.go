package hsm

import (
	"context"
)

// Observers are external collaborators notified of machine lifecycle
// activity. Each capability is a separate interface; an observer
// implements whichever subset it cares about and the engine resolves
// the set once at registration, never by probing at call time.

// EnterObserver is notified after a state's own entry callback runs.
type EnterObserver interface {
	OnEnter(ctx context.Context, state *State) error
}

// ExitObserver is notified after a state's own exit callback runs.
type ExitObserver interface {
	OnExit(ctx context.Context, state *State) error
}

// TransitionObserver is notified once per fired transition, after the
// current-state swap and before the entry notification of the target.
type TransitionObserver interface {
	OnTransition(ctx context.Context, source, target *State) error
}

// ErrorObserver is notified of transition-execution failures before the
// owning machine swallows or returns them. Observation is best effort
// and cannot veto error handling.
type ErrorObserver interface {
	OnError(ctx context.Context, err error)
}
