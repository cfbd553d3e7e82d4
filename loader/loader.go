// Package loader builds machines from declarative YAML or JSON
// definitions. Guards and actions are referenced by name and resolved
// against a Registry at build time.
package loader

import (
	"strings"

	"gopkg.in/yaml.v3"

	hsm "github.com/goliatone/go-hsm"
	"github.com/goliatone/go-hsm/machine"
)

// Definition is a declarative machine description.
type Definition struct {
	ID          string                 `yaml:"id" json:"id"`
	Initial     string                 `yaml:"initial" json:"initial"`
	States      []StateDefinition      `yaml:"states" json:"states"`
	Transitions []TransitionDefinition `yaml:"transitions" json:"transitions"`
}

// StateDefinition declares one state.
type StateDefinition struct {
	Name      string `yaml:"name" json:"name"`
	Composite bool   `yaml:"composite" json:"composite"`
	Parent    string `yaml:"parent" json:"parent"`
	// Initial names the initial substate of a composite state.
	Initial string `yaml:"initial" json:"initial"`
}

// TransitionDefinition declares one transition. Event is shorthand for
// a guard matching the event name; Guards reference registered guards
// evaluated after it.
type TransitionDefinition struct {
	From     string   `yaml:"from" json:"from"`
	To       string   `yaml:"to" json:"to"`
	Event    string   `yaml:"event" json:"event"`
	Priority int      `yaml:"priority" json:"priority"`
	Guards   []string `yaml:"guards" json:"guards"`
	Actions  []string `yaml:"actions" json:"actions"`
}

// Parse decodes a YAML (or JSON) definition and validates it.
func Parse(data []byte) (Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		// yaml handles JSON too, so a single attempt is fine
		return def, hsm.CloneError(hsm.ErrDefinitionInvalid, "failed to decode definition", err, nil)
	}
	return def, def.Validate()
}

// Validate checks internal consistency of the definition.
func (d Definition) Validate() error {
	if strings.TrimSpace(d.Initial) == "" {
		return definitionError("initial state is required", nil)
	}
	if len(d.States) == 0 {
		return definitionError("at least one state is required", nil)
	}

	names := make(map[string]StateDefinition, len(d.States))
	for _, sd := range d.States {
		name := strings.TrimSpace(sd.Name)
		if name == "" {
			return definitionError("state with empty name", nil)
		}
		if _, dup := names[name]; dup {
			return definitionError("duplicate state name", map[string]any{"state": name})
		}
		names[name] = sd
	}
	if _, ok := names[d.Initial]; !ok {
		return definitionError("initial references unknown state", map[string]any{"state": d.Initial})
	}

	for _, sd := range d.States {
		if sd.Parent != "" {
			if _, ok := names[sd.Parent]; !ok {
				return definitionError("parent references unknown state", map[string]any{
					"state": sd.Name, "parent": sd.Parent,
				})
			}
		}
		if sd.Initial != "" {
			if !sd.Composite {
				return definitionError("initial substate on non-composite state", map[string]any{"state": sd.Name})
			}
			if _, ok := names[sd.Initial]; !ok {
				return definitionError("initial substate references unknown state", map[string]any{
					"state": sd.Name, "initial": sd.Initial,
				})
			}
		}
	}

	for i, td := range d.Transitions {
		if _, ok := names[td.From]; !ok {
			return definitionError("transition references unknown source", map[string]any{
				"index": i, "from": td.From,
			})
		}
		if _, ok := names[td.To]; !ok {
			return definitionError("transition references unknown target", map[string]any{
				"index": i, "to": td.To,
			})
		}
		if td.Event == "" && len(td.Guards) == 0 {
			return definitionError("transition requires an event or at least one guard", map[string]any{
				"index": i, "from": td.From, "to": td.To,
			})
		}
	}
	return nil
}

// Build constructs a composite-aware machine from the definition,
// resolving named guards and actions against reg.
func Build(def Definition, reg *Registry, opts ...machine.Option) (*machine.CompositeMachine, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	states := make(map[string]*hsm.State, len(def.States))
	for _, sd := range def.States {
		if sd.Composite {
			states[sd.Name] = hsm.NewCompositeState(sd.Name)
		} else {
			states[sd.Name] = hsm.NewState(sd.Name)
		}
	}

	m := machine.NewComposite(states[def.Initial], opts...)

	// Parents must exist in the graph before their children; iterate
	// until the pending set stops shrinking so parent chains of any
	// depth resolve.
	pending := make([]StateDefinition, 0, len(def.States))
	for _, sd := range def.States {
		// the initial state is in the graph already; it only re-enters
		// the pass when it declares a parent that still needs recording
		if sd.Name == def.Initial && sd.Parent == "" {
			continue
		}
		pending = append(pending, sd)
	}
	for len(pending) > 0 {
		var next []StateDefinition
		for _, sd := range pending {
			var parent *hsm.State
			if sd.Parent != "" {
				parent = states[sd.Parent]
				if !m.Graph().Has(parent) {
					next = append(next, sd)
					continue
				}
			}
			if err := m.AddState(states[sd.Name], parent); err != nil {
				return nil, err
			}
		}
		if len(next) == len(pending) {
			return nil, definitionError("unresolvable parent chain", map[string]any{
				"state": next[0].Name,
			})
		}
		pending = next
	}

	for _, sd := range def.States {
		if sd.Initial == "" {
			continue
		}
		if err := states[sd.Name].RecordInitialSubstate(states[sd.Initial]); err != nil {
			return nil, err
		}
	}

	for i, td := range def.Transitions {
		var topts []hsm.TransitionOption
		if td.Priority != 0 {
			topts = append(topts, hsm.WithTransitionPriority(td.Priority))
		}
		var guards []hsm.Guard
		if td.Event != "" {
			guards = append(guards, hsm.EventNameGuard(td.Event))
		}
		for _, ref := range td.Guards {
			guard, ok := reg.guard(ref)
			if !ok {
				return nil, definitionError("unknown guard", map[string]any{"index": i, "guard": ref})
			}
			guards = append(guards, guard)
		}
		if len(guards) > 0 {
			topts = append(topts, hsm.WithGuards(guards...))
		}
		var actions []hsm.Action
		for _, ref := range td.Actions {
			action, ok := reg.action(ref)
			if !ok {
				return nil, definitionError("unknown action", map[string]any{"index": i, "action": ref})
			}
			actions = append(actions, action)
		}
		if len(actions) > 0 {
			topts = append(topts, hsm.WithActions(actions...))
		}

		t := hsm.NewTransition(states[td.From], states[td.To], topts...)
		if err := m.AddTransition(t); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func definitionError(message string, metadata map[string]any) error {
	return hsm.CloneError(hsm.ErrDefinitionInvalid, message, nil, metadata)
}
