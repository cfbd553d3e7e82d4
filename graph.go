package hsm

// Graph is the directed-graph collaborator the engine evaluates
// transitions against. The engine only reads the graph during event
// processing; writes happen during setup and submachine attachment,
// both serialized by the machine lock.
type Graph interface {
	// AddState registers a state, optionally under a parent. The
	// implementation records the parent back-reference on the state.
	AddState(state, parent *State) error
	// AddTransition registers a transition between known states.
	AddTransition(t *Transition) error
	// ValidTransitions returns transitions whose source is state and
	// which are statically applicable to the event, in declaration
	// order. Guards are not evaluated.
	ValidTransitions(state *State, event *Event) []*Transition
	// ResolveActiveState maps a configured initial state to the state
	// the machine should actually occupy on start.
	ResolveActiveState(initial *State) *State
	// Validate returns structural error messages; empty means valid.
	Validate() []string
	// Has reports graph membership.
	Has(state *State) bool
	// States returns all registered states in insertion order.
	States() []*State
	// Transitions returns all registered transitions in insertion order.
	Transitions() []*Transition
}
