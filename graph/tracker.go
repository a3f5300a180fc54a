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
	"time"
)

// Snapshot is one persisted state record. State is the serialized,
// JSON-compatible form produced by State.Serialize, bookkeeping keys
// included.
type Snapshot struct {
	AppID        string         `json:"app_id"`
	PartitionKey string         `json:"partition_key"`
	SequenceID   int64          `json:"sequence_id"`
	ActionName   string         `json:"action_name"`
	State        map[string]any `json:"state"`
	CreatedAt    time.Time      `json:"created_at"`
}

// Tracker is the external persistence collaborator. The executor pushes a
// snapshot after every committed step, and the builder can resume an
// application from the latest snapshot of an (app, partition) pair.
//
// Save failures do not fail the step; they are logged and execution
// continues, since tracking is a sink rather than part of the execution
// contract.
type Tracker interface {
	// Save persists a post-step snapshot.
	Save(ctx context.Context, snap *Snapshot) error
	// LoadLatest returns the snapshot with the highest sequence id for the
	// given identifiers, or nil when none exists.
	LoadLatest(ctx context.Context, appID, partitionKey string) (*Snapshot, error)
}
