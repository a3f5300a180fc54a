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

	"trpc.group/trpc-go/trpc-flow-go/serde"
)

// State is the immutable, versioned key-value container that flows through
// an application. Every mutating operation returns a new State; unmodified
// entries are shared by reference, so aliasing of mutable values stored in
// the state is the caller's responsibility.
type State struct {
	data map[string]any
}

// NewState creates a State holding the given values with sequence id 0 and
// no prior action. Reserved bookkeeping keys are rejected.
func NewState(values map[string]any) (*State, error) {
	data := make(map[string]any, len(values)+2)
	for k, v := range values {
		if IsReservedKey(k) {
			return nil, &ReservedKeyError{Key: k}
		}
		data[k] = v
	}
	data[KeyPriorAction] = ""
	data[KeySequenceID] = int64(0)
	return &State{data: data}, nil
}

// Get returns the value stored under key. Unknown keys return (nil, false)
// rather than an error; read-set validation happens at build time.
func (s *State) Get(key string) (any, bool) {
	v, ok := s.data[key]
	return v, ok
}

// All returns a snapshot of all non-bookkeeping entries.
func (s *State) All() map[string]any {
	out := make(map[string]any, len(s.data))
	for k, v := range s.data {
		if !IsReservedKey(k) {
			out[k] = v
		}
	}
	return out
}

// Update returns a new State with the given keys overwritten or inserted.
// Writing a reserved key fails with ReservedKeyError.
func (s *State) Update(values map[string]any) (*State, error) {
	for k := range values {
		if IsReservedKey(k) {
			return nil, &ReservedKeyError{Key: k}
		}
	}
	return s.apply(values), nil
}

// Append returns a new State where key holds its previous sequence value
// with value appended. Any slice or array kind is accepted and widened to
// []any. An absent or nil key starts a fresh slice; a non-sequence value
// fails with NotAppendableError.
func (s *State) Append(key string, value any) (*State, error) {
	if IsReservedKey(key) {
		return nil, &ReservedKeyError{Key: key}
	}
	existing, ok := s.data[key]
	if !ok || existing == nil {
		return s.apply(map[string]any{key: []any{value}}), nil
	}
	rv := reflect.ValueOf(existing)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
	default:
		return nil, &NotAppendableError{Key: key, Type: fmt.Sprintf("%T", existing)}
	}
	next := make([]any, 0, rv.Len()+1)
	for i := 0; i < rv.Len(); i++ {
		next = append(next, rv.Index(i).Interface())
	}
	next = append(next, value)
	return s.apply(map[string]any{key: next}), nil
}

// Equal reports whether both states hold the same non-bookkeeping entries.
// Bookkeeping keys are deliberately excluded so that states reached through
// different paths still compare equal when their visible data matches.
func (s *State) Equal(other *State) bool {
	if other == nil {
		return false
	}
	return reflect.DeepEqual(s.All(), other.All())
}

// PriorAction returns the name of the last committed action, or "" on a
// fresh state.
func (s *State) PriorAction() string {
	v, _ := s.data[KeyPriorAction].(string)
	return v
}

// SequenceID returns the number of committed steps.
func (s *State) SequenceID() int64 {
	v, _ := s.data[KeySequenceID].(int64)
	return v
}

// apply copies the state with the given overwrites. Reserved keys are the
// caller's concern.
func (s *State) apply(values map[string]any) *State {
	data := make(map[string]any, len(s.data)+len(values))
	for k, v := range s.data {
		data[k] = v
	}
	for k, v := range values {
		data[k] = v
	}
	return &State{data: data}
}

// commit applies an action's updates and advances the bookkeeping keys.
// Only the executor calls this; a failed step never reaches it.
func (s *State) commit(action string, updates map[string]any) *State {
	next := s.apply(updates)
	next.data[KeyPriorAction] = action
	next.data[KeySequenceID] = s.SequenceID() + 1
	return next
}

// Serialize converts the state into a JSON-compatible mapping using the
// given registry. The two bookkeeping keys are always present: prior action
// (nil when no step has committed) and sequence id.
func (s *State) Serialize(reg *serde.Registry) (map[string]any, error) {
	out := make(map[string]any, len(s.data))
	for k, v := range s.data {
		if IsReservedKey(k) {
			continue
		}
		sv, err := reg.SerializeEntry(k, v)
		if err != nil {
			return nil, err
		}
		out[k] = sv
	}
	if prior := s.PriorAction(); prior != "" {
		out[KeyPriorAction] = prior
	} else {
		out[KeyPriorAction] = nil
	}
	out[KeySequenceID] = s.SequenceID()
	return out, nil
}

// DeserializeState reconstructs a State from a mapping produced by
// Serialize, using the same registry (or one with consistent registrations).
func DeserializeState(reg *serde.Registry, m map[string]any) (*State, error) {
	data := make(map[string]any, len(m))
	for k, v := range m {
		if IsReservedKey(k) {
			continue
		}
		dv, err := reg.DeserializeEntry(k, v)
		if err != nil {
			return nil, err
		}
		data[k] = dv
	}
	data[KeyPriorAction] = ""
	if prior, ok := m[KeyPriorAction].(string); ok {
		data[KeyPriorAction] = prior
	}
	data[KeySequenceID] = toSequenceID(m[KeySequenceID])
	return &State{data: data}, nil
}

// toSequenceID tolerates the numeric widening JSON codecs apply.
func toSequenceID(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
