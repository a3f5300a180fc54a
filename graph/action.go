//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package graph

import "context"

// Result is the mapping an action returns alongside its state updates. It is
// visible to transition conditions resolving the next action.
type Result map[string]any

// Action is a named unit of computation. It declares the state keys it reads
// and writes; the declarations are validated against the graph at build
// time, not enforced on every call.
//
// Run receives the current state and any caller-supplied inputs and returns
// its result plus a state delta. The delta must only contain keys named in
// Writes; the executor applies it and owns the bookkeeping keys. Actions are
// stateless across invocations except through the state itself.
type Action interface {
	// Name uniquely identifies the action within a graph.
	Name() string
	// Reads lists the state keys the action may consume.
	Reads() []string
	// Writes lists the state keys the action may produce.
	Writes() []string
	// Inputs lists caller-supplied parameter names, distinct from state keys.
	Inputs() []string
	// Run executes the action. Errors propagate to the caller of
	// Step/Run/Iterate without committing the step.
	Run(ctx context.Context, state *State, inputs map[string]any) (Result, map[string]any, error)
}

// ActionFunc is the function signature executed by actions built with
// NewAction.
type ActionFunc func(ctx context.Context, state *State, inputs map[string]any) (Result, map[string]any, error)

// ActionOption configures an action built with NewAction.
type ActionOption func(*funcAction)

// WithReads declares the state keys the action may consume.
func WithReads(keys ...string) ActionOption {
	return func(a *funcAction) { a.reads = keys }
}

// WithWrites declares the state keys the action may produce.
func WithWrites(keys ...string) ActionOption {
	return func(a *funcAction) { a.writes = keys }
}

// WithInputNames declares caller-supplied parameter names the action
// requires.
func WithInputNames(names ...string) ActionOption {
	return func(a *funcAction) { a.inputs = names }
}

// NewAction builds an Action from a function, in the style of node
// registration: name plus function plus declarative options.
func NewAction(name string, fn ActionFunc, opts ...ActionOption) Action {
	a := &funcAction{name: name, fn: fn}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type funcAction struct {
	name   string
	reads  []string
	writes []string
	inputs []string
	fn     ActionFunc
}

func (a *funcAction) Name() string     { return a.name }
func (a *funcAction) Reads() []string  { return a.reads }
func (a *funcAction) Writes() []string { return a.writes }
func (a *funcAction) Inputs() []string { return a.inputs }

func (a *funcAction) Run(ctx context.Context, state *State, inputs map[string]any) (Result, map[string]any, error) {
	if a.fn == nil {
		return Result{}, nil, nil
	}
	return a.fn(ctx, state, inputs)
}
