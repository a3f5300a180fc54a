//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package graph provides the execution engine for declarative,
// graph-structured applications: named actions connected by ordered
// conditional transitions over an immutable key-value state.
package graph

import (
	"trpc.group/trpc-go/trpc-flow-go/log"
)

// Transition is a directed edge between two actions, optionally gated by a
// condition. Transitions sharing a source are totally ordered and the first
// whose condition holds wins; an unconditional transition acts as the
// default and belongs last in that order.
type Transition struct {
	From string
	To   string
	Cond Condition
}

// Graph is the immutable, validated structure an application executes.
// Build it through a Builder; the zero value is not usable.
type Graph struct {
	actions     map[string]Action
	order       []string
	transitions []Transition
	bySource    map[string][]Transition
	entrypoint  string
}

// Action returns a registered action by name.
func (g *Graph) Action(name string) (Action, bool) {
	a, ok := g.actions[name]
	return a, ok
}

// Actions returns all actions in registration order.
func (g *Graph) Actions() []Action {
	out := make([]Action, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.actions[name])
	}
	return out
}

// Transitions returns all transitions in registration order.
func (g *Graph) Transitions() []Transition {
	return append([]Transition(nil), g.transitions...)
}

// TransitionsFrom returns the ordered outgoing transitions of an action.
func (g *Graph) TransitionsFrom(name string) []Transition {
	return append([]Transition(nil), g.bySource[name]...)
}

// Entrypoint returns the name of the action executed first.
func (g *Graph) Entrypoint() string {
	return g.entrypoint
}

// resolve picks the destination of the first outgoing transition of `from`
// whose condition holds. ok is false when nothing resolves, either because
// `from` has no outgoing transitions (a normal end) or because none of their
// conditions holds (a stall); both are statuses rather than errors.
func (g *Graph) resolve(from string, state *State, result Result) (string, bool) {
	for _, t := range g.bySource[from] {
		if t.Cond.Evaluate(state, result) {
			return t.To, true
		}
	}
	return "", false
}

// newGraph assembles and validates the structure. All construction errors
// are BuildError values.
func newGraph(actions []Action, transitions []Transition, entrypoint string) (*Graph, error) {
	g := &Graph{
		actions:  make(map[string]Action, len(actions)),
		bySource: make(map[string][]Transition),
	}
	for _, a := range actions {
		if a == nil || a.Name() == "" {
			return nil, buildErrorf("action name cannot be empty")
		}
		if _, exists := g.actions[a.Name()]; exists {
			return nil, buildErrorf("duplicate action name %q", a.Name())
		}
		g.actions[a.Name()] = a
		g.order = append(g.order, a.Name())
	}
	for _, t := range transitions {
		if _, ok := g.actions[t.From]; !ok {
			return nil, buildErrorf("transition source %q is not a registered action", t.From)
		}
		if _, ok := g.actions[t.To]; !ok {
			return nil, buildErrorf("transition target %q is not a registered action", t.To)
		}
		g.transitions = append(g.transitions, t)
		g.bySource[t.From] = append(g.bySource[t.From], t)
	}
	if entrypoint == "" {
		return nil, buildErrorf("graph must have an entrypoint")
	}
	if _, ok := g.actions[entrypoint]; !ok {
		return nil, buildErrorf("entrypoint %q is not a registered action", entrypoint)
	}
	g.entrypoint = entrypoint
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// validate runs structural checks beyond endpoint existence: reachability
// from the entrypoint, declared write keys, and fallback ordering. Missing
// terminal paths and misordered fallbacks are warnings, not errors, since
// halting through halt sets or deliberate stalling is legitimate.
func (g *Graph) validate() error {
	reachable := map[string]bool{g.entrypoint: true}
	frontier := []string{g.entrypoint}
	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]
		for _, t := range g.bySource[current] {
			if !reachable[t.To] {
				reachable[t.To] = true
				frontier = append(frontier, t.To)
			}
		}
	}
	for _, name := range g.order {
		if !reachable[name] {
			return buildErrorf("action %q is unreachable from entrypoint %q", name, g.entrypoint)
		}
	}
	for source, ts := range g.bySource {
		for i, t := range ts {
			if t.Cond.IsDefault() && i != len(ts)-1 {
				log.Warnf("graph: unconditional transition %s->%s is not last; later transitions from %s can never fire",
					source, t.To, source)
			}
		}
	}
	if !g.hasTerminalPath() {
		log.Warnf("graph: no action without outgoing transitions is reachable; execution only ends via halt sets, stalling, or cancellation")
	}
	return nil
}

// hasTerminalPath reports whether some action has no outgoing transitions.
func (g *Graph) hasTerminalPath() bool {
	for _, name := range g.order {
		if len(g.bySource[name]) == 0 {
			return true
		}
	}
	return false
}
