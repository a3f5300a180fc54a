//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides in-memory snapshot storage for application
// state tracking. It is suitable for testing and debugging but not for
// production use.
package inmemory

import (
	"context"
	"sort"
	"sync"

	"trpc.group/trpc-go/trpc-flow-go/graph"
)

// DefaultMaxSnapshotsPerApp limits retained snapshots per (app, partition).
const DefaultMaxSnapshotsPerApp = 100

// Tracker is an in-memory implementation of graph.Tracker.
type Tracker struct {
	mu sync.RWMutex
	// appID -> partitionKey -> snapshots ordered by sequence id.
	snaps map[string]map[string][]*graph.Snapshot

	maxPerApp int
}

// New creates an in-memory tracker.
func New() *Tracker {
	return &Tracker{
		snaps:     make(map[string]map[string][]*graph.Snapshot),
		maxPerApp: DefaultMaxSnapshotsPerApp,
	}
}

// WithMaxSnapshotsPerApp sets how many snapshots each (app, partition) pair
// retains; the oldest are dropped first.
func (t *Tracker) WithMaxSnapshotsPerApp(max int) *Tracker {
	t.maxPerApp = max
	return t
}

// Save stores a snapshot.
func (t *Tracker) Save(_ context.Context, snap *graph.Snapshot) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	partitions, ok := t.snaps[snap.AppID]
	if !ok {
		partitions = make(map[string][]*graph.Snapshot)
		t.snaps[snap.AppID] = partitions
	}
	stored := *snap
	list := append(partitions[snap.PartitionKey], &stored)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].SequenceID < list[j].SequenceID
	})
	if t.maxPerApp > 0 && len(list) > t.maxPerApp {
		list = list[len(list)-t.maxPerApp:]
	}
	partitions[snap.PartitionKey] = list
	return nil
}

// LoadLatest returns the snapshot with the highest sequence id, or nil when
// none exists.
func (t *Tracker) LoadLatest(_ context.Context, appID, partitionKey string) (*graph.Snapshot, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	list := t.snaps[appID][partitionKey]
	if len(list) == 0 {
		return nil, nil
	}
	snap := *list[len(list)-1]
	return &snap, nil
}

// List returns all retained snapshots for an (app, partition) pair in
// sequence order.
func (t *Tracker) List(_ context.Context, appID, partitionKey string) ([]*graph.Snapshot, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	list := t.snaps[appID][partitionKey]
	out := make([]*graph.Snapshot, len(list))
	for i, s := range list {
		snap := *s
		out[i] = &snap
	}
	return out, nil
}

// Delete drops every snapshot of an application across all partitions.
func (t *Tracker) Delete(_ context.Context, appID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.snaps, appID)
	return nil
}
