package hsm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventConstruction(t *testing.T) {
	ev := NewEvent("begin", WithPriority(7), WithPayload("job-42"))
	assert.Equal(t, "begin", ev.Name())
	assert.Equal(t, 7, ev.Priority())
	assert.Equal(t, "job-42", ev.Payload())

	var nilEvent *Event
	assert.Equal(t, "", nilEvent.Name())
	assert.Equal(t, 0, nilEvent.Priority())
	assert.Nil(t, nilEvent.Payload())
}

func TestRecordInitialSubstateWriteOnce(t *testing.T) {
	composite := NewCompositeState("Processing")
	first := NewState("Validate")
	second := NewState("Transform")

	require.NoError(t, composite.RecordInitialSubstate(first))
	require.Equal(t, first, composite.InitialSubstate())

	// same substate is a no-op
	require.NoError(t, composite.RecordInitialSubstate(first))

	err := composite.RecordInitialSubstate(second)
	require.Error(t, err)
	assert.Equal(t, ErrCodeConfigInvalid, ErrorCode(err))
	assert.Equal(t, first, composite.InitialSubstate())
}

func TestRecordInitialSubstateOnPlainState(t *testing.T) {
	plain := NewState("Root")
	err := plain.RecordInitialSubstate(NewState("Sub"))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Nil(t, plain.InitialSubstate())
}

func TestWithInitialSubstateIgnoredOnPlainState(t *testing.T) {
	sub := NewState("Sub")
	plain := NewState("Root", WithInitialSubstate(sub))
	assert.Nil(t, plain.InitialSubstate())

	composite := NewCompositeState("C", WithInitialSubstate(sub))
	assert.Equal(t, sub, composite.InitialSubstate())
}

func TestEvaluateGuardsAllMustPass(t *testing.T) {
	src := NewState("a")
	dst := NewState("b")

	calls := 0
	pass := func(context.Context, *Event) (bool, error) { calls++; return true, nil }
	veto := func(context.Context, *Event) (bool, error) { calls++; return false, nil }

	tr := NewTransition(src, dst, WithGuards(pass, veto, pass))
	ok, err := tr.EvaluateGuards(context.Background(), NewEvent("x"))
	if err != nil {
		t.Fatalf("unexpected guard error: %v", err)
	}
	if ok {
		t.Fatal("expected guard veto")
	}
	if calls != 2 {
		t.Fatalf("expected evaluation to short-circuit after veto, got %d calls", calls)
	}
}

func TestEvaluateGuardsErrorShortCircuits(t *testing.T) {
	boom := errors.New("boom")
	fail := func(context.Context, *Event) (bool, error) { return false, boom }
	never := func(context.Context, *Event) (bool, error) {
		t.Fatal("guard after failure must not run")
		return true, nil
	}

	tr := NewTransition(NewState("a"), NewState("b"), WithGuards(fail, never))
	ok, err := tr.EvaluateGuards(context.Background(), NewEvent("x"))
	if ok || !errors.Is(err, boom) {
		t.Fatalf("expected guard error, got ok=%v err=%v", ok, err)
	}
}

func TestEventNameGuard(t *testing.T) {
	guard := EventNameGuard("begin")
	ok, err := guard(context.Background(), NewEvent("begin"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = guard(context.Background(), NewEvent("complete"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestErrorCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"validation", CloneError(ErrValidationFailed, "bad graph", nil, nil), ErrCodeValidationFailed},
		{"config", CloneError(ErrConfigInvalid, "bad setup", nil, nil), ErrCodeConfigInvalid},
		{"transition", CloneError(ErrTransitionFailed, "action failed", nil, nil), ErrCodeTransitionFailed},
		{"foreign", errors.New("plain"), ""},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, ErrorCode(tt.err))
		})
	}
}
