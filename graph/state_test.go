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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-flow-go/serde"
)

func TestNewStateRejectsReservedKeys(t *testing.T) {
	_, err := NewState(map[string]any{KeySequenceID: int64(5)})
	var reserved *ReservedKeyError
	require.ErrorAs(t, err, &reserved)
	assert.Equal(t, KeySequenceID, reserved.Key)
}

func TestUpdateReturnsNewState(t *testing.T) {
	s, err := NewState(map[string]any{"a": 1})
	require.NoError(t, err)

	next, err := s.Update(map[string]any{"a": 2, "b": "x"})
	require.NoError(t, err)

	// The parent is untouched.
	v, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = s.Get("b")
	assert.False(t, ok)

	v, _ = next.Get("a")
	assert.Equal(t, 2, v)
	v, _ = next.Get("b")
	assert.Equal(t, "x", v)
}

func TestUpdateRejectsReservedKeys(t *testing.T) {
	s, err := NewState(nil)
	require.NoError(t, err)
	_, err = s.Update(map[string]any{KeyPriorAction: "sneaky"})
	var reserved *ReservedKeyError
	require.ErrorAs(t, err, &reserved)
}

func TestAppend(t *testing.T) {
	s, err := NewState(nil)
	require.NoError(t, err)

	s1, err := s.Append("history", "first")
	require.NoError(t, err)
	s2, err := s1.Append("history", "second")
	require.NoError(t, err)

	v, _ := s2.Get("history")
	assert.Equal(t, []any{"first", "second"}, v)
	// Parent unchanged.
	v, _ = s1.Get("history")
	assert.Equal(t, []any{"first"}, v)
}

func TestAppendToTypedSlice(t *testing.T) {
	s, err := NewState(map[string]any{"tags": []string{"a"}, "nums": []int{1, 2}})
	require.NoError(t, err)

	s1, err := s.Append("tags", "b")
	require.NoError(t, err)
	v, _ := s1.Get("tags")
	assert.Equal(t, []any{"a", "b"}, v)

	s2, err := s1.Append("nums", 3)
	require.NoError(t, err)
	v, _ = s2.Get("nums")
	assert.Equal(t, []any{1, 2, 3}, v)
}

func TestAppendToNonSlice(t *testing.T) {
	s, err := NewState(map[string]any{"n": 42})
	require.NoError(t, err)
	_, err = s.Append("n", 1)
	var notAppendable *NotAppendableError
	require.ErrorAs(t, err, &notAppendable)
	assert.Equal(t, "n", notAppendable.Key)
	assert.Contains(t, notAppendable.Error(), "int")
}

func TestEqualIgnoresBookkeeping(t *testing.T) {
	a, err := NewState(map[string]any{"x": 1})
	require.NoError(t, err)
	b, err := NewState(map[string]any{"x": 1})
	require.NoError(t, err)

	// Advance bookkeeping on one of them.
	committed := a.commit("step", nil)
	assert.True(t, committed.Equal(b))
	assert.False(t, committed.Equal(nil))

	c, err := b.Update(map[string]any{"x": 2})
	require.NoError(t, err)
	assert.False(t, a.Equal(c))
}

func TestCommitAdvancesBookkeeping(t *testing.T) {
	s, err := NewState(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), s.SequenceID())
	assert.Equal(t, "", s.PriorAction())

	s1 := s.commit("alpha", map[string]any{"k": true})
	assert.Equal(t, int64(1), s1.SequenceID())
	assert.Equal(t, "alpha", s1.PriorAction())

	s2 := s1.commit("beta", nil)
	assert.Equal(t, int64(2), s2.SequenceID())
	assert.Equal(t, "beta", s2.PriorAction())
	// Parent untouched.
	assert.Equal(t, int64(1), s1.SequenceID())
}

func TestSerializeCarriesBookkeeping(t *testing.T) {
	reg := serde.Default()
	s, err := NewState(map[string]any{"x": 1})
	require.NoError(t, err)

	m, err := s.Serialize(reg)
	require.NoError(t, err)
	assert.Nil(t, m[KeyPriorAction], "fresh state serializes prior action as null")
	assert.Equal(t, int64(0), m[KeySequenceID])

	committed := s.commit("alpha", nil)
	m, err = committed.Serialize(reg)
	require.NoError(t, err)
	assert.Equal(t, "alpha", m[KeyPriorAction])
	assert.Equal(t, int64(1), m[KeySequenceID])
}

func TestStateRoundTrip(t *testing.T) {
	reg := serde.Default()
	s, err := NewState(map[string]any{
		"count":  3,
		"name":   "run-7",
		"flags":  []any{true, false},
		"nested": map[string]any{"k": "v"},
	})
	require.NoError(t, err)
	s = s.commit("alpha", nil)

	m, err := s.Serialize(reg)
	require.NoError(t, err)

	back, err := DeserializeState(reg, m)
	require.NoError(t, err)
	assert.Equal(t, s.All(), back.All())
	assert.Equal(t, "alpha", back.PriorAction())
	assert.Equal(t, int64(1), back.SequenceID())
}

type coordinate struct {
	Lat float64
	Lon float64
}

func TestCustomTypeRoundTripThroughState(t *testing.T) {
	reg := serde.Default()
	err := reg.RegisterType(coordinate{}, "coordinate",
		func(v any) (map[string]any, error) {
			c := v.(coordinate)
			return map[string]any{"lat": c.Lat, "lon": c.Lon}, nil
		},
		func(m map[string]any) (any, error) {
			return coordinate{Lat: m["lat"].(float64), Lon: m["lon"].(float64)}, nil
		},
	)
	require.NoError(t, err)

	s, err := NewState(map[string]any{"position": coordinate{Lat: 52.1, Lon: 4.3}})
	require.NoError(t, err)

	m, err := s.Serialize(reg)
	require.NoError(t, err)

	back, err := DeserializeState(reg, m)
	require.NoError(t, err)
	v, ok := back.Get("position")
	require.True(t, ok)
	assert.Equal(t, coordinate{Lat: 52.1, Lon: 4.3}, v)
	assert.True(t, s.Equal(back))
}

func TestSerializeUnregisteredTypeFails(t *testing.T) {
	reg := serde.New()
	s, err := NewState(map[string]any{"callback": func() {}})
	require.NoError(t, err)

	_, err = s.Serialize(reg)
	var unser *serde.UnserializableTypeError
	require.ErrorAs(t, err, &unser)
	assert.Equal(t, "callback", unser.Key)
}

func TestDeserializeToleratesJSONNumbers(t *testing.T) {
	reg := serde.Default()
	// Sequence ids come back as float64 after a JSON round trip.
	back, err := DeserializeState(reg, map[string]any{
		"x":            float64(2),
		KeyPriorAction: "beta",
		KeySequenceID:  float64(5),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), back.SequenceID())
	assert.Equal(t, "beta", back.PriorAction())
}

func TestAllExcludesBookkeeping(t *testing.T) {
	s, err := NewState(map[string]any{"a": 1})
	require.NoError(t, err)
	s = s.commit("alpha", map[string]any{"b": 2})

	all := s.All()
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, all)
	// Mutating the snapshot does not touch the state.
	all["a"] = 99
	v, _ := s.Get("a")
	assert.Equal(t, 1, v)
}

func ExampleState_Append() {
	s, _ := NewState(nil)
	s, _ = s.Append("visited", "a")
	s, _ = s.Append("visited", "b")
	v, _ := s.Get("visited")
	fmt.Println(v)
	// Output: [a b]
}
