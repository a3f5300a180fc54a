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
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"trpc.group/trpc-go/trpc-flow-go/log"
	"trpc.group/trpc-go/trpc-flow-go/serde"
	"trpc.group/trpc-go/trpc-flow-go/telemetry/trace"
)

// Status describes where an application is in its lifecycle.
type Status int

// Application lifecycle states.
const (
	// StatusIdle: built, no step has run yet.
	StatusIdle Status = iota
	// StatusRunning: between successfully committed steps.
	StatusRunning
	// StatusHaltedBefore: paused with the halting action not yet run.
	StatusHaltedBefore
	// StatusHaltedAfter: paused immediately after the halting action ran.
	StatusHaltedAfter
	// StatusStalled: transitions exist from the cursor but none of their
	// conditions holds. Not an error.
	StatusStalled
	// StatusTerminal: the cursor's action has no outgoing transitions, or
	// execution was cancelled externally.
	StatusTerminal
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusHaltedBefore:
		return "halted-before"
	case StatusHaltedAfter:
		return "halted-after"
	case StatusStalled:
		return "stalled"
	case StatusTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// StepResult is the (action, result, state) triple produced by one committed
// step.
type StepResult struct {
	Action string
	Result Result
	State  *State
}

// Application holds a graph, its current state, and a cursor pointing at the
// last executed action. Steps are strictly sequential within one
// application; separate applications share nothing and may run in parallel.
type Application struct {
	graph             *Graph
	registry          *serde.Registry
	tracker           Tracker
	appID             string
	partitionKey      string
	channelBufferSize int

	mu         sync.Mutex
	state      *State
	lastResult Result
	cursor     string
	status     Status
}

// Graph returns the application's graph for introspection.
func (a *Application) Graph() *Graph { return a.graph }

// Registry returns the serde registry the application serializes with.
func (a *Application) Registry() *serde.Registry { return a.registry }

// AppID returns the application identifier used for tracking.
func (a *Application) AppID() string { return a.appID }

// PartitionKey returns the tracking partition key.
func (a *Application) PartitionKey() string { return a.partitionKey }

// State returns the current state.
func (a *Application) State() *State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Cursor returns the name of the last executed action, or "" before the
// first step.
func (a *Application) Cursor() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.cursor
}

// Status returns the current lifecycle status.
func (a *Application) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Step executes exactly one action: the entrypoint on a fresh application,
// otherwise the destination resolved from the cursor's ordered transitions.
// On success it commits the cursor and sequence id and pushes a snapshot to
// the tracker. A finished or stalled application returns (nil, nil). Action
// errors propagate unmodified and commit nothing.
func (a *Application) Step(ctx context.Context, inputs map[string]any) (*StepResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.step(ctx, inputs)
}

func (a *Application) step(ctx context.Context, inputs map[string]any) (*StepResult, error) {
	if err := ctx.Err(); err != nil {
		a.status = StatusTerminal
		return nil, err
	}
	if a.status == StatusStalled || a.status == StatusTerminal {
		return nil, nil
	}
	name, ok := a.peek()
	if !ok {
		a.finish()
		return nil, nil
	}
	return a.execute(ctx, name, inputs)
}

// peek resolves the action the next step would run, without executing it.
func (a *Application) peek() (string, bool) {
	if a.cursor == "" {
		return a.graph.Entrypoint(), true
	}
	return a.graph.resolve(a.cursor, a.state, a.lastResult)
}

func (a *Application) execute(ctx context.Context, name string, inputs map[string]any) (*StepResult, error) {
	action, ok := a.graph.Action(name)
	if !ok {
		return nil, buildErrorf("resolved action %q is not registered", name)
	}
	for _, in := range action.Inputs() {
		if _, supplied := inputs[in]; !supplied {
			return nil, &MissingInputError{Action: name, Input: in}
		}
	}

	ctx, span := trace.Tracer.Start(ctx, "execute_action "+name)
	defer span.End()
	span.SetAttributes(
		attribute.String("trpc.go.flow.action", name),
		attribute.String("trpc.go.flow.app_id", a.appID),
		attribute.Int64("trpc.go.flow.sequence_id", a.state.SequenceID()),
	)

	result, updates, err := action.Run(ctx, a.state, inputs)
	if err != nil {
		span.SetAttributes(attribute.String("trpc.go.flow.error", err.Error()))
		return nil, err
	}
	for k := range updates {
		if IsReservedKey(k) {
			return nil, &ReservedKeyError{Key: k}
		}
	}

	a.state = a.state.commit(name, updates)
	a.cursor = name
	a.lastResult = result
	a.status = StatusRunning
	a.pushSnapshot(ctx)
	return &StepResult{Action: name, Result: result, State: a.state}, nil
}

// pushSnapshot forwards the committed state to the tracker. Tracking is a
// sink: failures are logged, never surfaced as step failures.
func (a *Application) pushSnapshot(ctx context.Context) {
	if a.tracker == nil {
		return
	}
	serialized, err := a.state.Serialize(a.registry)
	if err != nil {
		log.Errorf("graph: application %s: serializing snapshot at sequence %d: %v",
			a.appID, a.state.SequenceID(), err)
		return
	}
	snap := &Snapshot{
		AppID:        a.appID,
		PartitionKey: a.partitionKey,
		SequenceID:   a.state.SequenceID(),
		ActionName:   a.cursor,
		State:        serialized,
		CreatedAt:    time.Now(),
	}
	if err := a.tracker.Save(ctx, snap); err != nil {
		log.Errorf("graph: application %s: saving snapshot at sequence %d: %v",
			a.appID, snap.SequenceID, err)
	}
}

// finish records why no further action resolves. An action with no outgoing
// transitions ended the run normally; unmatched existing transitions mean a
// stall, which is logged since it usually signals a modeling gap.
func (a *Application) finish() {
	if a.cursor != "" && len(a.graph.bySource[a.cursor]) == 0 {
		a.status = StatusTerminal
		return
	}
	if a.status != StatusStalled {
		log.Warnf("graph: application %s: no transition resolves from action %q; execution stalled",
			a.appID, a.cursor)
	}
	a.status = StatusStalled
}

// peekNext is the locked variant of peek used by iterators.
func (a *Application) peekNext() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status == StatusStalled || a.status == StatusTerminal {
		return "", false
	}
	return a.peek()
}

// settle closes out an iteration that found no next action.
func (a *Application) settle() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.status == StatusStalled || a.status == StatusTerminal {
		return
	}
	a.finish()
}

func (a *Application) setStatus(s Status) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = s
}
