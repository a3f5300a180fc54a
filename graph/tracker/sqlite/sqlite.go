//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package sqlite provides SQLite-backed snapshot storage for application
// state tracking and resumption.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trpc.group/trpc-go/trpc-flow-go/graph"
)

const (
	sqliteCreateSnapshots = "CREATE TABLE IF NOT EXISTS flow_snapshots (" +
		"app_id TEXT NOT NULL, " +
		"partition_key TEXT NOT NULL, " +
		"sequence_id INTEGER NOT NULL, " +
		"action_name TEXT NOT NULL, " +
		"state_json BLOB NOT NULL, " +
		"created_at INTEGER NOT NULL, " +
		"PRIMARY KEY (app_id, partition_key, sequence_id)" +
		")"

	sqliteInsertSnapshot = "INSERT OR REPLACE INTO flow_snapshots (" +
		"app_id, partition_key, sequence_id, action_name, state_json, created_at) " +
		"VALUES (?, ?, ?, ?, ?, ?)"

	sqliteSelectLatest = "SELECT sequence_id, action_name, state_json, created_at " +
		"FROM flow_snapshots WHERE app_id = ? AND partition_key = ? " +
		"ORDER BY sequence_id DESC LIMIT 1"

	sqliteSelectAll = "SELECT sequence_id, action_name, state_json, created_at " +
		"FROM flow_snapshots WHERE app_id = ? AND partition_key = ? " +
		"ORDER BY sequence_id ASC"

	sqliteDeleteApp = "DELETE FROM flow_snapshots WHERE app_id = ?"
)

// Tracker is a SQLite-backed implementation of graph.Tracker. It expects an
// initialized *sql.DB using a SQLite driver and creates its schema on
// construction. State is stored as a JSON blob per committed step, which is
// suitable for production when paired with a persistent database file.
type Tracker struct {
	db *sql.DB
}

// New creates a tracker using the provided DB and creates tables if needed.
func New(db *sql.DB) (*Tracker, error) {
	if db == nil {
		return nil, errors.New("sqlite tracker: db is nil")
	}
	if _, err := db.Exec(sqliteCreateSnapshots); err != nil {
		return nil, fmt.Errorf("sqlite tracker: creating schema: %w", err)
	}
	return &Tracker{db: db}, nil
}

// Save persists one snapshot row.
func (t *Tracker) Save(ctx context.Context, snap *graph.Snapshot) error {
	stateJSON, err := json.Marshal(snap.State)
	if err != nil {
		return fmt.Errorf("sqlite tracker: marshaling state: %w", err)
	}
	createdAt := snap.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err = t.db.ExecContext(ctx, sqliteInsertSnapshot,
		snap.AppID, snap.PartitionKey, snap.SequenceID, snap.ActionName,
		stateJSON, createdAt.UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite tracker: inserting snapshot: %w", err)
	}
	return nil
}

// LoadLatest returns the highest-sequence snapshot, or nil when none exists.
func (t *Tracker) LoadLatest(ctx context.Context, appID, partitionKey string) (*graph.Snapshot, error) {
	row := t.db.QueryRowContext(ctx, sqliteSelectLatest, appID, partitionKey)
	snap, err := scanSnapshot(row, appID, partitionKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return snap, err
}

// List returns all snapshots of an (app, partition) pair in sequence order.
func (t *Tracker) List(ctx context.Context, appID, partitionKey string) ([]*graph.Snapshot, error) {
	rows, err := t.db.QueryContext(ctx, sqliteSelectAll, appID, partitionKey)
	if err != nil {
		return nil, fmt.Errorf("sqlite tracker: querying snapshots: %w", err)
	}
	defer rows.Close()
	var out []*graph.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows, appID, partitionKey)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Delete drops every snapshot of an application across all partitions.
func (t *Tracker) Delete(ctx context.Context, appID string) error {
	if _, err := t.db.ExecContext(ctx, sqliteDeleteApp, appID); err != nil {
		return fmt.Errorf("sqlite tracker: deleting snapshots: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner, appID, partitionKey string) (*graph.Snapshot, error) {
	var (
		seq        int64
		actionName string
		stateJSON  []byte
		createdAt  int64
	)
	if err := row.Scan(&seq, &actionName, &stateJSON, &createdAt); err != nil {
		return nil, err
	}
	var state map[string]any
	if err := json.Unmarshal(stateJSON, &state); err != nil {
		return nil, fmt.Errorf("sqlite tracker: unmarshaling state: %w", err)
	}
	return &graph.Snapshot{
		AppID:        appID,
		PartitionKey: partitionKey,
		SequenceID:   seq,
		ActionName:   actionName,
		State:        state,
		CreatedAt:    time.Unix(0, createdAt),
	}, nil
}
