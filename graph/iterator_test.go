//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordingAction(name string) Action {
	return NewAction(name, func(_ context.Context, state *State, _ map[string]any) (Result, map[string]any, error) {
		return Result{"ran": name}, map[string]any{name: true}, nil
	}, WithWrites(name))
}

// buildChain assembles A -> B -> C where A skips straight to C when x == 0.
func buildChain(t *testing.T, initial map[string]any) *Application {
	t.Helper()
	app, err := NewBuilder().
		WithActions(recordingAction("A"), recordingAction("B"), recordingAction("C")).
		WithTransition("A", "C", When("x", 0)).
		WithTransition("A", "B").
		WithTransition("B", "C").
		WithEntrypoint("A").
		WithState(initial).
		Build(context.Background())
	require.NoError(t, err)
	return app
}

func drain(it *Iterator) []string {
	var names []string
	for it.Next() {
		names = append(names, it.Current().Action)
	}
	return names
}

func TestIterateHaltAfter(t *testing.T) {
	app := buildChain(t, map[string]any{"x": 1})
	it := app.Iterate(context.Background(), WithHaltAfter("C"))

	assert.Equal(t, []string{"A", "B", "C"}, drain(it))
	require.NoError(t, it.Err())
	require.NotNil(t, it.Final())
	assert.Equal(t, "C", it.Final().Action)
	assert.Equal(t, StatusHaltedAfter, app.Status())

	// The skip condition never fired, so x survives untouched.
	v, ok := app.State().Get("x")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	for _, name := range []string{"A", "B", "C"} {
		_, ok := app.State().Get(name)
		assert.True(t, ok, "action %s should have written its marker", name)
	}
}

func TestIterateSkipConditionFires(t *testing.T) {
	app := buildChain(t, map[string]any{"x": 0})
	it := app.Iterate(context.Background(), WithHaltAfter("C"))

	assert.Equal(t, []string{"A", "C"}, drain(it))
	require.NoError(t, it.Err())
	_, ran := app.State().Get("B")
	assert.False(t, ran)
}

func TestIterateHaltBefore(t *testing.T) {
	app := buildChain(t, map[string]any{"x": 1})
	it := app.Iterate(context.Background(), WithHaltBefore("C"))

	assert.Equal(t, []string{"A", "B"}, drain(it))
	require.NoError(t, it.Err())
	assert.Equal(t, StatusHaltedBefore, app.Status())
	// The halting action has not run.
	_, ran := app.State().Get("C")
	assert.False(t, ran)
	assert.Equal(t, "B", app.Cursor())

	// Resuming iterates again from the paused position; halt-before checks
	// the upcoming action, so a fresh iteration without the halt completes.
	final, err := app.Run(context.Background(), WithHaltAfter("C"))
	require.NoError(t, err)
	assert.Equal(t, "C", final.Action)
}

func TestIterateHaltBeforeEntrypoint(t *testing.T) {
	app := buildChain(t, map[string]any{"x": 1})
	it := app.Iterate(context.Background(), WithHaltBefore("A"))

	assert.False(t, it.Next())
	assert.Nil(t, it.Final())
	assert.NoError(t, it.Err())
	assert.Equal(t, StatusHaltedBefore, app.Status())
	assert.Equal(t, int64(0), app.State().SequenceID())
}

func TestIterateEndsAtTerminalAction(t *testing.T) {
	app := buildChain(t, map[string]any{"x": 1})
	// No halt set: the chain runs to C, which has no outgoing transitions.
	it := app.Iterate(context.Background())

	assert.Equal(t, []string{"A", "B", "C"}, drain(it))
	assert.NoError(t, it.Err())
	assert.Equal(t, StatusTerminal, app.Status())
}

func TestIterateStallsWithoutError(t *testing.T) {
	ctx := context.Background()
	app, err := NewBuilder().
		WithActions(recordingAction("A"), recordingAction("B")).
		WithTransition("A", "B", When("ready", true)).
		WithEntrypoint("A").
		WithState(map[string]any{"ready": false}).
		Build(ctx)
	require.NoError(t, err)

	// A's only transition never matches: the run stalls after A.
	it := app.Iterate(ctx)
	assert.Equal(t, []string{"A"}, drain(it))
	assert.NoError(t, it.Err())
	assert.Equal(t, StatusStalled, app.Status())
}

func TestIterateMaxSteps(t *testing.T) {
	ctx := context.Background()
	app, err := NewBuilder().
		WithActions(incrementAction("loop", "count")).
		WithTransition("loop", "loop").
		WithEntrypoint("loop").
		WithState(map[string]any{"count": 0}).
		Build(ctx)
	require.NoError(t, err)

	it := app.Iterate(ctx, WithMaxSteps(5))
	assert.Len(t, drain(it), 5)
	assert.NoError(t, it.Err())
	v, _ := app.State().Get("count")
	assert.Equal(t, 5, v)
}

func TestIterateInputsFirstStepOnly(t *testing.T) {
	ctx := context.Background()
	var seen []any
	capture := func(name string) Action {
		return NewAction(name, func(_ context.Context, _ *State, inputs map[string]any) (Result, map[string]any, error) {
			seen = append(seen, inputs["seed"])
			return Result{}, nil, nil
		})
	}
	app, err := NewBuilder().
		WithActions(capture("first"), capture("second")).
		WithTransition("first", "second").
		WithEntrypoint("first").
		Build(ctx)
	require.NoError(t, err)

	_, err = app.Run(ctx, WithInputs(map[string]any{"seed": 42}), WithHaltAfter("second"))
	require.NoError(t, err)
	assert.Equal(t, []any{42, nil}, seen)
}

func TestIterateRequiredInputMidSequenceFails(t *testing.T) {
	ctx := context.Background()
	needy := NewAction("needy", func(_ context.Context, _ *State, inputs map[string]any) (Result, map[string]any, error) {
		return Result{}, nil, nil
	}, WithInputNames("token"))
	app, err := NewBuilder().
		WithActions(noopAction("start"), needy).
		WithTransition("start", "needy").
		WithEntrypoint("start").
		Build(ctx)
	require.NoError(t, err)

	// Inputs reach only the first step, so the second action's requirement
	// cannot be met and iteration fails there.
	_, err = app.Run(ctx, WithInputs(map[string]any{"token": "t"}), WithHaltAfter("needy"))
	var missing *MissingInputError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "needy", missing.Action)
}

func TestIterateActionFailureStopsIteration(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("bad step")
	app, err := NewBuilder().
		WithActions(noopAction("ok"), NewAction("bad", func(_ context.Context, _ *State, _ map[string]any) (Result, map[string]any, error) {
			return nil, nil, boom
		})).
		WithTransition("ok", "bad").
		WithEntrypoint("ok").
		Build(ctx)
	require.NoError(t, err)

	it := app.Iterate(ctx)
	assert.Equal(t, []string{"ok"}, drain(it))
	assert.ErrorIs(t, it.Err(), boom)
	// Final still holds the last committed triple.
	assert.Equal(t, "ok", it.Final().Action)
}

func TestIterateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	app := buildChain(t, map[string]any{"x": 1})

	it := app.Iterate(ctx)
	require.True(t, it.Next())
	cancel()
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), context.Canceled)
	assert.Equal(t, StatusTerminal, app.Status())
}

func TestRunReturnsFinalTriple(t *testing.T) {
	app := buildChain(t, map[string]any{"x": 1})
	final, err := app.Run(context.Background(), WithHaltAfter("C"))
	require.NoError(t, err)
	require.NotNil(t, final)
	assert.Equal(t, "C", final.Action)
	assert.Equal(t, Result{"ran": "C"}, final.Result)
	assert.Equal(t, int64(3), final.State.SequenceID())
}
