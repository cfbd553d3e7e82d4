package graph

import (
	"fmt"
	"sync"

	hsm "github.com/goliatone/go-hsm"
)

// Graph is the default in-memory implementation of the hsm.Graph
// collaborator. It is safe for concurrent readers; the machine
// serializes writes under its own lock, but the graph guards itself as
// well so setup code can populate it from multiple goroutines.
type Graph struct {
	mu          sync.RWMutex
	members     map[*hsm.State]struct{}
	states      []*hsm.State
	transitions []*hsm.Transition
	bySource    map[*hsm.State][]*hsm.Transition
}

// New constructs an empty graph.
func New() *Graph {
	return &Graph{
		members:  make(map[*hsm.State]struct{}),
		bySource: make(map[*hsm.State][]*hsm.Transition),
	}
}

// AddState registers a state, recording parent as its hierarchy
// back-reference when given. Re-adding a known state is a no-op except
// that a newly supplied parent is recorded.
func (g *Graph) AddState(state, parent *hsm.State) error {
	if state == nil {
		return hsm.CloneError(hsm.ErrConfigInvalid, "state is required", nil, nil)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if parent != nil {
		if _, ok := g.members[parent]; !ok {
			return hsm.CloneError(hsm.ErrConfigInvalid, "parent state not in graph", nil, map[string]any{
				"state":  state.Name(),
				"parent": parent.Name(),
			})
		}
		state.SetParent(parent)
	}
	if _, ok := g.members[state]; ok {
		return nil
	}
	g.members[state] = struct{}{}
	g.states = append(g.states, state)
	return nil
}

// AddTransition registers a transition. Both endpoints must already be
// in the graph.
func (g *Graph) AddTransition(t *hsm.Transition) error {
	if t == nil || t.Source() == nil || t.Target() == nil {
		return hsm.CloneError(hsm.ErrConfigInvalid, "transition requires source and target", nil, nil)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.members[t.Source()]; !ok {
		return hsm.CloneError(hsm.ErrConfigInvalid, "transition source not in graph", nil, map[string]any{
			"source": t.Source().Name(),
		})
	}
	if _, ok := g.members[t.Target()]; !ok {
		return hsm.CloneError(hsm.ErrConfigInvalid, "transition target not in graph", nil, map[string]any{
			"target": t.Target().Name(),
		})
	}
	g.transitions = append(g.transitions, t)
	g.bySource[t.Source()] = append(g.bySource[t.Source()], t)
	return nil
}

// ValidTransitions returns transitions out of state in declaration
// order. Static applicability only; guards are left to the machine.
func (g *Graph) ValidTransitions(state *hsm.State, _ *hsm.Event) []*hsm.Transition {
	if state == nil {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	src := g.bySource[state]
	if len(src) == 0 {
		return nil
	}
	out := make([]*hsm.Transition, len(src))
	copy(out, src)
	return out
}

// ResolveActiveState descends through recorded composite initial
// substates so a machine configured to start on a composite state lands
// on its deepest initial leaf.
func (g *Graph) ResolveActiveState(initial *hsm.State) *hsm.State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	current := initial
	for current.IsComposite() && current.InitialSubstate() != nil {
		current = current.InitialSubstate()
	}
	return current
}

// Validate checks structural consistency and returns human-readable
// error messages; an empty slice means the graph is valid.
func (g *Graph) Validate() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var msgs []string
	for _, st := range g.states {
		if st.Name() == "" {
			msgs = append(msgs, "state with empty name")
		}
		if p := st.Parent(); p != nil {
			if _, ok := g.members[p]; !ok {
				msgs = append(msgs, fmt.Sprintf("state %q has parent %q outside the graph", st.Name(), p.Name()))
			}
		}
	}
	for _, t := range g.transitions {
		if _, ok := g.members[t.Source()]; !ok {
			msgs = append(msgs, fmt.Sprintf("transition references unknown source %q", t.Source().Name()))
		}
		if _, ok := g.members[t.Target()]; !ok {
			msgs = append(msgs, fmt.Sprintf("transition references unknown target %q", t.Target().Name()))
		}
	}
	return msgs
}

// Has reports membership.
func (g *Graph) Has(state *hsm.State) bool {
	if state == nil {
		return false
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.members[state]
	return ok
}

// States returns all registered states in insertion order.
func (g *Graph) States() []*hsm.State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*hsm.State, len(g.states))
	copy(out, g.states)
	return out
}

// Transitions returns all registered transitions in insertion order.
func (g *Graph) Transitions() []*hsm.Transition {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*hsm.Transition, len(g.transitions))
	copy(out, g.transitions)
	return out
}
