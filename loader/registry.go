package loader

import (
	"strings"
	"sync"

	hsm "github.com/goliatone/go-hsm"
)

// Registry resolves guard and action references used by definitions.
type Registry struct {
	mu      sync.RWMutex
	guards  map[string]hsm.Guard
	actions map[string]hsm.Action
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		guards:  make(map[string]hsm.Guard),
		actions: make(map[string]hsm.Action),
	}
}

// RegisterGuard binds a guard to a name. Duplicate names fail.
func (r *Registry) RegisterGuard(name string, guard hsm.Guard) error {
	name = strings.TrimSpace(name)
	if name == "" || guard == nil {
		return hsm.CloneError(hsm.ErrConfigInvalid, "guard registration requires a name and a guard", nil, nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.guards[name]; exists {
		return hsm.CloneError(hsm.ErrConfigInvalid, "guard already registered", nil, map[string]any{"guard": name})
	}
	r.guards[name] = guard
	return nil
}

// RegisterAction binds an action to a name. Duplicate names fail.
func (r *Registry) RegisterAction(name string, action hsm.Action) error {
	name = strings.TrimSpace(name)
	if name == "" || action == nil {
		return hsm.CloneError(hsm.ErrConfigInvalid, "action registration requires a name and an action", nil, nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[name]; exists {
		return hsm.CloneError(hsm.ErrConfigInvalid, "action already registered", nil, map[string]any{"action": name})
	}
	r.actions[name] = action
	return nil
}

func (r *Registry) guard(name string) (hsm.Guard, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	guard, ok := r.guards[name]
	return guard, ok
}

func (r *Registry) action(name string) (hsm.Action, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	action, ok := r.actions[name]
	return action, ok
}
