//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package redis provides Redis-backed snapshot storage for application
// state tracking, suitable for sharing tracked state across processes.
package redis

import (
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"trpc.group/trpc-go/trpc-flow-go/graph"
	storage "trpc.group/trpc-go/trpc-flow-go/storage/redis"
)

// DefaultKeyPrefix namespaces all tracker keys in Redis.
const DefaultKeyPrefix = "flow:tracker:"

// Tracker is a Redis-backed implementation of graph.Tracker. Snapshots are
// stored in a sorted set per (app, partition) pair, scored by sequence id,
// so the latest snapshot is a single ZRange call away.
type Tracker struct {
	client redis.UniversalClient
	prefix string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithKeyPrefix overrides the key namespace (default "flow:tracker:").
func WithKeyPrefix(prefix string) Option {
	return func(t *Tracker) { t.prefix = prefix }
}

// New creates a tracker on top of an existing Redis client.
func New(client redis.UniversalClient, opts ...Option) *Tracker {
	t := &Tracker{client: client, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewFromURL creates a tracker with a client built through the installed
// storage client builder.
func NewFromURL(url string, opts ...Option) (*Tracker, error) {
	client, err := storage.NewClient(storage.WithClientBuilderURL(url))
	if err != nil {
		return nil, fmt.Errorf("redis tracker: building client: %w", err)
	}
	return New(client, opts...), nil
}

func (t *Tracker) key(appID, partitionKey string) string {
	return t.prefix + appID + ":" + partitionKey
}

// Save stores a snapshot, replacing any previous snapshot with the same
// sequence id.
func (t *Tracker) Save(ctx context.Context, snap *graph.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis tracker: marshaling snapshot: %w", err)
	}
	key := t.key(snap.AppID, snap.PartitionKey)
	score := float64(snap.SequenceID)
	pipe := t.client.TxPipeline()
	// One member per sequence id: clear the slot before writing so a re-run
	// of the same step does not leave two members at the same score.
	pipe.ZRemRangeByScore(ctx, key, formatScore(score), formatScore(score))
	pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: payload})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis tracker: saving snapshot: %w", err)
	}
	return nil
}

// LoadLatest returns the highest-sequence snapshot, or nil when none exists.
func (t *Tracker) LoadLatest(ctx context.Context, appID, partitionKey string) (*graph.Snapshot, error) {
	members, err := t.client.ZRevRange(ctx, t.key(appID, partitionKey), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("redis tracker: loading latest snapshot: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}
	var snap graph.Snapshot
	if err := json.Unmarshal([]byte(members[0]), &snap); err != nil {
		return nil, fmt.Errorf("redis tracker: unmarshaling snapshot: %w", err)
	}
	return &snap, nil
}

// List returns all snapshots of an (app, partition) pair in sequence order.
func (t *Tracker) List(ctx context.Context, appID, partitionKey string) ([]*graph.Snapshot, error) {
	members, err := t.client.ZRange(ctx, t.key(appID, partitionKey), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis tracker: listing snapshots: %w", err)
	}
	out := make([]*graph.Snapshot, 0, len(members))
	for _, m := range members {
		var snap graph.Snapshot
		if err := json.Unmarshal([]byte(m), &snap); err != nil {
			return nil, fmt.Errorf("redis tracker: unmarshaling snapshot: %w", err)
		}
		out = append(out, &snap)
	}
	return out, nil
}

// Delete drops every snapshot of an (app, partition) pair.
func (t *Tracker) Delete(ctx context.Context, appID, partitionKey string) error {
	if err := t.client.Del(ctx, t.key(appID, partitionKey)).Err(); err != nil {
		return fmt.Errorf("redis tracker: deleting snapshots: %w", err)
	}
	return nil
}

func formatScore(score float64) string {
	return fmt.Sprintf("%d", int64(score))
}
