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
	"fmt"
	"reflect"
)

// DefaultLabel is the label of the always-true fallback condition.
const DefaultLabel = "default"

// Condition is a labeled predicate over the current state and the previous
// action's result, used to gate a transition. The zero value behaves like
// Default: always true. Conditions are evaluated fresh on every resolution
// attempt.
type Condition struct {
	label string
	eval  func(state *State, result Result) bool
}

// Label returns the human-readable form used in logs and graph exports.
func (c Condition) Label() string {
	if c.eval == nil {
		return DefaultLabel
	}
	return c.label
}

// Evaluate runs the predicate. A zero condition is unconditional.
func (c Condition) Evaluate(state *State, result Result) bool {
	if c.eval == nil {
		return true
	}
	return c.eval(state, result)
}

// IsDefault reports whether the condition is unconditional.
func (c Condition) IsDefault() bool {
	return c.eval == nil
}

// Default returns the always-true condition, used as the fallback edge.
func Default() Condition {
	return Condition{}
}

// When matches a state key against an expected value with deep equality.
// Numeric comparisons tolerate widening so snapshots restored through JSON
// still match.
func When(key string, expected any) Condition {
	return Condition{
		label: fmt.Sprintf("%s==%v", key, expected),
		eval: func(state *State, _ Result) bool {
			v, ok := state.Get(key)
			return ok && looselyEqual(v, expected)
		},
	}
}

// WhenResult matches a key in the previous action's result.
func WhenResult(key string, expected any) Condition {
	return Condition{
		label: fmt.Sprintf("result.%s==%v", key, expected),
		eval: func(_ *State, result Result) bool {
			v, ok := result[key]
			return ok && looselyEqual(v, expected)
		},
	}
}

// Not inverts a condition.
func Not(c Condition) Condition {
	return Condition{
		label: "!(" + c.Label() + ")",
		eval: func(state *State, result Result) bool {
			return !c.Evaluate(state, result)
		},
	}
}

// CondFunc wraps an arbitrary predicate with a label.
func CondFunc(label string, fn func(state *State, result Result) bool) Condition {
	return Condition{label: label, eval: fn}
}

// looselyEqual is reflect.DeepEqual with numeric widening, so int 1 matches
// float64 1 after a JSON round trip.
func looselyEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	return aok && bok && af == bf
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
