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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCondition(t *testing.T) {
	d := Default()
	assert.True(t, d.IsDefault())
	assert.Equal(t, DefaultLabel, d.Label())
	assert.True(t, d.Evaluate(nil, nil))

	// Zero value behaves like Default.
	var zero Condition
	assert.True(t, zero.IsDefault())
	assert.True(t, zero.Evaluate(nil, nil))
}

func TestWhenMatchesStateKey(t *testing.T) {
	s, err := NewState(map[string]any{"mode": "fast", "retries": 3})
	require.NoError(t, err)

	assert.True(t, When("mode", "fast").Evaluate(s, nil))
	assert.False(t, When("mode", "slow").Evaluate(s, nil))
	assert.False(t, When("missing", "x").Evaluate(s, nil))
	assert.Equal(t, "mode==fast", When("mode", "fast").Label())
}

func TestWhenNumericWidening(t *testing.T) {
	s, err := NewState(map[string]any{"count": 3})
	require.NoError(t, err)

	// Deserialized states hold float64; conditions written against ints
	// must still match.
	assert.True(t, When("count", 3.0).Evaluate(s, nil))
	assert.True(t, When("count", int64(3)).Evaluate(s, nil))
	assert.False(t, When("count", 4).Evaluate(s, nil))
}

func TestWhenResult(t *testing.T) {
	res := Result{"decision": "approve"}
	assert.True(t, WhenResult("decision", "approve").Evaluate(nil, res))
	assert.False(t, WhenResult("decision", "reject").Evaluate(nil, res))
	assert.False(t, WhenResult("decision", "approve").Evaluate(nil, nil))
}

func TestNot(t *testing.T) {
	s, err := NewState(map[string]any{"done": true})
	require.NoError(t, err)

	c := Not(When("done", true))
	assert.False(t, c.Evaluate(s, nil))
	assert.False(t, c.IsDefault())
	assert.Equal(t, "!(done==true)", c.Label())

	other, err := NewState(map[string]any{"done": false})
	require.NoError(t, err)
	assert.True(t, c.Evaluate(other, nil))
}

func TestCondFunc(t *testing.T) {
	s, err := NewState(map[string]any{"score": 10})
	require.NoError(t, err)

	c := CondFunc("score>5", func(state *State, _ Result) bool {
		v, ok := state.Get("score")
		if !ok {
			return false
		}
		n, _ := v.(int)
		return n > 5
	})
	assert.True(t, c.Evaluate(s, nil))
	assert.Equal(t, "score>5", c.Label())
	assert.False(t, c.IsDefault())
}
