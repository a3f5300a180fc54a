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
	"fmt"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-flow-go/log"
	"trpc.group/trpc-go/trpc-flow-go/serde"
)

const defaultChannelBufferSize = 256

// Builder assembles an application from actions, transitions, and an initial
// state. Configuration calls chain; all validation happens in Build.
//
// Example usage:
//
//	app, err := graph.NewBuilder().
//	  WithActions(counter, printer).
//	  WithTransition("counter", "counter", graph.Not(graph.When("count", 10))).
//	  WithTransition("counter", "printer").
//	  WithEntrypoint("counter").
//	  WithState(map[string]any{"count": 0}).
//	  Build(ctx)
type Builder struct {
	actions      []Action
	transitions  []Transition
	entrypoint   string
	initial      map[string]any
	registry     *serde.Registry
	tracker      Tracker
	appID        string
	partitionKey string
	bufferSize   int
	errs         []error
}

// NewBuilder creates an empty application builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// WithActions registers actions. Names must be unique across all calls.
func (b *Builder) WithActions(actions ...Action) *Builder {
	b.actions = append(b.actions, actions...)
	return b
}

// WithTransition adds a directed edge. At most one condition may be given;
// none means the unconditional default, which belongs last among the
// transitions sharing a source.
func (b *Builder) WithTransition(from, to string, cond ...Condition) *Builder {
	if len(cond) > 1 {
		b.errs = append(b.errs, buildErrorf("transition %s->%s has %d conditions; at most one is allowed", from, to, len(cond)))
		return b
	}
	t := Transition{From: from, To: to}
	if len(cond) == 1 {
		t.Cond = cond[0]
	}
	b.transitions = append(b.transitions, t)
	return b
}

// WithEntrypoint names the action a fresh application executes first.
func (b *Builder) WithEntrypoint(name string) *Builder {
	b.entrypoint = name
	return b
}

// WithState sets the default initial state values, used when no tracker
// snapshot exists to resume from.
func (b *Builder) WithState(values map[string]any) *Builder {
	b.initial = values
	return b
}

// WithRegistry sets the serde registry the application serializes with.
// Defaults to serde.Default().
func (b *Builder) WithRegistry(reg *serde.Registry) *Builder {
	b.registry = reg
	return b
}

// WithTracker attaches the persistence collaborator. Build resumes from the
// tracker's latest snapshot when one exists for the configured identifiers.
func (b *Builder) WithTracker(t Tracker) *Builder {
	b.tracker = t
	return b
}

// WithIdentifiers sets the application id and tracking partition key. An
// empty appID gets a generated UUID, which also means tracker resumption
// will never find prior snapshots.
func (b *Builder) WithIdentifiers(appID, partitionKey string) *Builder {
	b.appID = appID
	b.partitionKey = partitionKey
	return b
}

// WithChannelBufferSize sets the buffer of channels returned by the async
// execution methods (default 256).
func (b *Builder) WithChannelBufferSize(n int) *Builder {
	b.bufferSize = n
	return b
}

// Build validates the graph and assembles the application. When a tracker is
// configured and holds a snapshot for the identifiers, the initial state and
// cursor come from that snapshot instead of WithState.
func (b *Builder) Build(ctx context.Context) (*Application, error) {
	if len(b.errs) > 0 {
		return nil, b.errs[0]
	}
	g, err := newGraph(b.actions, b.transitions, b.entrypoint)
	if err != nil {
		return nil, err
	}
	b.warnUnsatisfiedReads(g)

	registry := b.registry
	if registry == nil {
		registry = serde.Default()
	}
	appID := b.appID
	if appID == "" {
		appID = uuid.NewString()
	}
	bufferSize := b.bufferSize
	if bufferSize <= 0 {
		bufferSize = defaultChannelBufferSize
	}

	app := &Application{
		graph:             g,
		registry:          registry,
		tracker:           b.tracker,
		appID:             appID,
		partitionKey:      b.partitionKey,
		channelBufferSize: bufferSize,
		status:            StatusIdle,
	}

	if b.tracker != nil {
		snap, err := b.tracker.LoadLatest(ctx, appID, b.partitionKey)
		if err != nil {
			return nil, fmt.Errorf("graph: loading latest snapshot for %s/%s: %w", appID, b.partitionKey, err)
		}
		if snap != nil {
			state, err := DeserializeState(registry, snap.State)
			if err != nil {
				return nil, fmt.Errorf("graph: deserializing snapshot for %s/%s: %w", appID, b.partitionKey, err)
			}
			app.state = state
			app.cursor = snap.ActionName
			app.status = StatusRunning
			return app, nil
		}
	}

	state, err := NewState(b.initial)
	if err != nil {
		return nil, err
	}
	app.state = state
	return app, nil
}

// warnUnsatisfiedReads flags declared reads that neither the initial state
// nor any action's declared writes can supply. A warning, not an error:
// resumed snapshots and undeclared writes can still satisfy them at runtime.
func (b *Builder) warnUnsatisfiedReads(g *Graph) {
	available := make(map[string]bool, len(b.initial))
	for k := range b.initial {
		available[k] = true
	}
	for _, a := range g.Actions() {
		for _, w := range a.Writes() {
			available[w] = true
		}
	}
	for _, a := range g.Actions() {
		for _, r := range a.Reads() {
			if !available[r] {
				log.Warnf("graph: action %q reads key %q which no initial state or declared write supplies", a.Name(), r)
			}
		}
	}
}
