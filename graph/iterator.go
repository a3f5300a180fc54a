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

// RunOption configures Run, Iterate, and their async counterparts.
type RunOption func(*runOptions)

type runOptions struct {
	haltBefore map[string]bool
	haltAfter  map[string]bool
	inputs     map[string]any
	maxSteps   int
}

func newRunOptions(opts []RunOption) runOptions {
	o := runOptions{
		haltBefore: make(map[string]bool),
		haltAfter:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithHaltBefore stops iteration when the about-to-run action is one of the
// given names; the action does not run.
func WithHaltBefore(names ...string) RunOption {
	return func(o *runOptions) {
		for _, n := range names {
			o.haltBefore[n] = true
		}
	}
}

// WithHaltAfter stops iteration immediately after one of the given actions
// runs; that action's triple is the final one yielded.
func WithHaltAfter(names ...string) RunOption {
	return func(o *runOptions) {
		for _, n := range names {
			o.haltAfter[n] = true
		}
	}
}

// WithInputs supplies caller inputs, injected only into the very first step
// of the sequence.
func WithInputs(inputs map[string]any) RunOption {
	return func(o *runOptions) { o.inputs = inputs }
}

// WithMaxSteps bounds the number of steps an iteration may take. Zero (the
// default) means unbounded: with empty halt sets the caller opts into
// potentially indefinite execution.
func WithMaxSteps(n int) RunOption {
	return func(o *runOptions) { o.maxSteps = n }
}

// Iterator walks an application step by step, yielding one (action, result,
// state) triple per committed step. It is an explicit iterator: Next
// advances, Current returns the triple for the current position, Err reports
// a terminal failure, and Final returns the last yielded triple after
// iteration ends.
type Iterator struct {
	app     *Application
	ctx     context.Context
	opts    runOptions
	current *StepResult
	err     error
	done    bool
	started bool
	steps   int
}

// Iterate returns an iterator over the application's execution. Iteration
// ends when the about-to-run action is in the halt-before set, the just-run
// action is in the halt-after set, the just-run action has no outgoing
// transitions, the application stalls, the context is cancelled between
// steps, or an action fails.
func (a *Application) Iterate(ctx context.Context, opts ...RunOption) *Iterator {
	return &Iterator{app: a, ctx: ctx, opts: newRunOptions(opts)}
}

// Next executes the next step. It returns false when iteration has ended;
// consult Err to distinguish failure from a halt or stall.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	if err := it.ctx.Err(); err != nil {
		it.app.setStatus(StatusTerminal)
		it.fail(err)
		return false
	}
	if it.opts.maxSteps > 0 && it.steps >= it.opts.maxSteps {
		it.done = true
		return false
	}
	upcoming, ok := it.app.peekNext()
	if !ok {
		it.app.settle()
		it.done = true
		return false
	}
	if it.opts.haltBefore[upcoming] {
		it.app.setStatus(StatusHaltedBefore)
		it.done = true
		return false
	}
	var inputs map[string]any
	if !it.started {
		inputs = it.opts.inputs
	}
	it.started = true

	res, err := it.app.Step(it.ctx, inputs)
	if err != nil {
		it.fail(err)
		return false
	}
	if res == nil {
		it.done = true
		return false
	}
	it.steps++
	it.current = res
	if it.opts.haltAfter[res.Action] {
		it.app.setStatus(StatusHaltedAfter)
		it.done = true
	}
	return true
}

// Current returns the triple produced by the most recent successful Next.
func (it *Iterator) Current() *StepResult { return it.current }

// Final returns the last yielded triple, or nil if nothing ran.
func (it *Iterator) Final() *StepResult { return it.current }

// Err returns the error that terminated iteration, if any. Stalling and
// halting are not errors.
func (it *Iterator) Err() error { return it.err }

func (it *Iterator) fail(err error) {
	it.err = err
	it.done = true
}

// Run drains the iteration and returns the final triple. With empty halt
// sets it returns when execution reaches an action with no outgoing
// transitions, the graph stalls, the context is cancelled, or an action
// fails.
func (a *Application) Run(ctx context.Context, opts ...RunOption) (*StepResult, error) {
	it := a.Iterate(ctx, opts...)
	for it.Next() {
	}
	return it.Final(), it.Err()
}
