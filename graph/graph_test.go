package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hsm "github.com/goliatone/go-hsm"
)

func TestAddStateRecordsParent(t *testing.T) {
	g := New()
	root := hsm.NewState("root")
	child := hsm.NewState("child")

	require.NoError(t, g.AddState(root, nil))
	require.NoError(t, g.AddState(child, root))

	assert.True(t, g.Has(root))
	assert.True(t, g.Has(child))
	assert.Equal(t, root, child.Parent())
}

func TestAddStateUnknownParentFails(t *testing.T) {
	g := New()
	err := g.AddState(hsm.NewState("child"), hsm.NewState("ghost"))
	require.Error(t, err)
	assert.True(t, hsm.IsConfigError(err))
}

func TestAddTransitionRequiresKnownEndpoints(t *testing.T) {
	g := New()
	a := hsm.NewState("a")
	b := hsm.NewState("b")
	require.NoError(t, g.AddState(a, nil))

	err := g.AddTransition(hsm.NewTransition(a, b))
	require.Error(t, err)
	assert.True(t, hsm.IsConfigError(err))

	require.NoError(t, g.AddState(b, nil))
	require.NoError(t, g.AddTransition(hsm.NewTransition(a, b)))
}

func TestValidTransitionsDeclarationOrder(t *testing.T) {
	g := New()
	a := hsm.NewState("a")
	b := hsm.NewState("b")
	c := hsm.NewState("c")
	for _, st := range []*hsm.State{a, b, c} {
		require.NoError(t, g.AddState(st, nil))
	}

	t1 := hsm.NewTransition(a, b)
	t2 := hsm.NewTransition(a, c, hsm.WithTransitionPriority(5))
	t3 := hsm.NewTransition(b, c)
	require.NoError(t, g.AddTransition(t1))
	require.NoError(t, g.AddTransition(t2))
	require.NoError(t, g.AddTransition(t3))

	out := g.ValidTransitions(a, hsm.NewEvent("x"))
	require.Len(t, out, 2)
	assert.Equal(t, t1, out[0])
	assert.Equal(t, t2, out[1])

	assert.Empty(t, g.ValidTransitions(c, hsm.NewEvent("x")))
}

func TestResolveActiveStateDescendsInitialSubstates(t *testing.T) {
	g := New()
	outer := hsm.NewCompositeState("outer")
	inner := hsm.NewCompositeState("inner")
	leaf := hsm.NewState("leaf")
	require.NoError(t, g.AddState(outer, nil))
	require.NoError(t, g.AddState(inner, outer))
	require.NoError(t, g.AddState(leaf, inner))
	require.NoError(t, outer.RecordInitialSubstate(inner))
	require.NoError(t, inner.RecordInitialSubstate(leaf))

	assert.Equal(t, leaf, g.ResolveActiveState(outer))

	plain := hsm.NewState("plain")
	require.NoError(t, g.AddState(plain, nil))
	assert.Equal(t, plain, g.ResolveActiveState(plain))
}

func TestValidateReportsStructuralProblems(t *testing.T) {
	g := New()
	a := hsm.NewState("a")
	require.NoError(t, g.AddState(a, nil))
	assert.Empty(t, g.Validate())

	// a parent attached out of band, bypassing AddState
	orphanParent := hsm.NewState("ghost")
	a.SetParent(orphanParent)
	msgs := g.Validate()
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[0], "ghost")
}

func TestStatesAndTransitionsAreCopies(t *testing.T) {
	g := New()
	a := hsm.NewState("a")
	b := hsm.NewState("b")
	require.NoError(t, g.AddState(a, nil))
	require.NoError(t, g.AddState(b, nil))
	require.NoError(t, g.AddTransition(hsm.NewTransition(a, b)))

	states := g.States()
	states[0] = nil
	assert.Equal(t, a, g.States()[0])

	transitions := g.Transitions()
	transitions[0] = nil
	assert.NotNil(t, g.Transitions()[0])
}
