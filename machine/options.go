package machine

import (
	hsm "github.com/goliatone/go-hsm"
)

// Option customizes machine construction.
type Option func(*Machine)

// WithGraph supplies the graph collaborator. Defaults to the in-memory
// implementation in the graph package.
func WithGraph(g hsm.Graph) Option {
	return func(m *Machine) {
		if g != nil {
			m.graph = g
		}
	}
}

// WithLogger sets the machine logger.
func WithLogger(logger Logger) Option {
	return func(m *Machine) {
		m.logger = normalizeLogger(logger)
	}
}

// WithValidator sets the configuration validator run during Start.
func WithValidator(v Validator) Option {
	return func(m *Machine) {
		m.validator = v
	}
}

// WithObservers registers lifecycle observers. Each observer is
// inspected once, here, for the capability interfaces it implements;
// notification calls are uniform afterwards.
func WithObservers(observers ...any) Option {
	return func(m *Machine) {
		for _, obs := range observers {
			if obs == nil {
				continue
			}
			if o, ok := obs.(hsm.EnterObserver); ok {
				m.enterObs = append(m.enterObs, o)
			}
			if o, ok := obs.(hsm.ExitObserver); ok {
				m.exitObs = append(m.exitObs, o)
			}
			if o, ok := obs.(hsm.TransitionObserver); ok {
				m.transitionObs = append(m.transitionObs, o)
			}
			if o, ok := obs.(hsm.ErrorObserver); ok {
				m.errorObs = append(m.errorObs, o)
			}
		}
	}
}
