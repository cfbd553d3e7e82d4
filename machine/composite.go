package machine

import (
	"context"
	"math"
	"sort"

	hsm "github.com/goliatone/go-hsm"
)

// entryPriority keeps synthetic composite-entry transitions from
// shadowing user-declared transitions during boundary selection; entry
// into a composite's initial substate is driven by the explicit
// follow-up in ProcessEvent, not by graph selection.
const entryPriority = math.MinInt

// CompositeMachine extends the core with hierarchical precedence rules
// for composite states that delegate to submachines. Selection differs
// from the plain core; execution mechanics are shared.
type CompositeMachine struct {
	*Machine
	subs map[*hsm.State]*Machine
}

// NewComposite constructs a composite-aware machine.
func NewComposite(initial *hsm.State, opts ...Option) *CompositeMachine {
	return &CompositeMachine{
		Machine: New(initial, opts...),
		subs:    make(map[*hsm.State]*Machine),
	}
}

// AddSubmachine merges sub's states and transitions into the shared
// graph with composite recorded as their parent, records sub's initial
// state as the composite's initial substate, and adds a synthetic
// always-true transition from the composite to that initial state.
//
// Attaching to a non-composite state is a configuration error and
// leaves the graph unmodified.
func (m *CompositeMachine) AddSubmachine(composite *hsm.State, sub *Machine) error {
	if composite == nil || !composite.IsComposite() {
		return hsm.CloneError(hsm.ErrConfigInvalid, "submachine attachment requires a composite state", nil, map[string]any{
			"state": composite.Name(),
		})
	}
	if sub == nil {
		return hsm.CloneError(hsm.ErrConfigInvalid, "submachine is required", nil, map[string]any{
			"state": composite.Name(),
		})
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.graph.Has(composite) {
		if err := m.graph.AddState(composite, nil); err != nil {
			return err
		}
	}
	for _, st := range sub.Graph().States() {
		if err := m.graph.AddState(st, composite); err != nil {
			return err
		}
	}
	for _, t := range sub.Graph().Transitions() {
		if err := m.graph.AddTransition(t); err != nil {
			return err
		}
	}

	if initial := sub.InitialState(); initial != nil {
		if err := composite.RecordInitialSubstate(initial); err != nil {
			return err
		}
		entry := hsm.NewTransition(composite, initial,
			hsm.WithGuards(hsm.AlwaysGuard()),
			hsm.WithTransitionPriority(entryPriority))
		if err := m.graph.AddTransition(entry); err != nil {
			return err
		}
	}

	m.subs[composite] = sub
	return nil
}

// ProcessEvent selects a transition with hierarchical precedence:
// candidates interior to the current submachine come before candidates
// crossing its boundary, a stable sort orders the combined list by
// priority descending, and the first transition whose guards all pass
// fires. If the fired target is a composite state, a synthetic
// transition into its recorded initial substate follows immediately.
//
// Unlike the plain core, failures during guard evaluation or transition
// execution are returned to the caller after error observers are
// notified; the rollback guarantee is unchanged.
func (m *CompositeMachine) ProcessEvent(ctx context.Context, event *hsm.Event) (bool, error) {
	if event == nil || !m.started.Load() {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return false, nil
	}

	// Walk from the current state upward, collecting candidates until a
	// submachine root is reached; the root's own transitions belong to
	// the boundary pass below.
	var candidates []*hsm.Transition
	for st := m.current; st != nil; st = st.Parent() {
		if _, ok := m.subs[st]; ok {
			break
		}
		candidates = append(candidates, m.graph.ValidTransitions(st, event)...)
	}
	for st := m.current; st != nil; st = st.Parent() {
		parent := st.Parent()
		if parent == nil {
			continue
		}
		if _, ok := m.subs[parent]; ok {
			candidates = append(candidates, m.graph.ValidTransitions(parent, event)...)
		}
	}
	if len(candidates) == 0 {
		return false, nil
	}

	// Stable: equal priorities keep interior-before-boundary order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority() > candidates[j].Priority()
	})

	var chosen *hsm.Transition
	for _, t := range candidates {
		ok, err := t.EvaluateGuards(ctx, event)
		if err != nil {
			wrapped := hsm.CloneError(hsm.ErrTransitionFailed, "guard evaluation failed", err, map[string]any{
				"source": t.Source().Name(),
				"target": t.Target().Name(),
				"event":  event.Name(),
			})
			m.notifyError(ctx, wrapped)
			return false, wrapped
		}
		if ok {
			chosen = t
			break
		}
	}
	if chosen == nil {
		return false, nil
	}

	if err := m.executeTransition(ctx, chosen, event); err != nil {
		return false, err
	}

	if target := chosen.Target(); target.IsComposite() {
		initial := target.InitialSubstate()
		if sub, ok := m.subs[target]; ok {
			if si := sub.InitialState(); si != nil {
				initial = si
			}
		}
		if initial != nil {
			follow := hsm.NewTransition(target, initial, hsm.WithGuards(hsm.AlwaysGuard()))
			if err := m.executeTransition(ctx, follow, event); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

// Submachine returns the machine attached to a composite state, if any.
func (m *CompositeMachine) Submachine(composite *hsm.State) (*Machine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subs[composite]
	return sub, ok
}
