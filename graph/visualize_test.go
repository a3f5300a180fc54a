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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDOT(t *testing.T) {
	app := buildChain(t, map[string]any{"x": 1})
	dot := app.Graph().DOT(WithGraphLabel("chain"))

	assert.True(t, strings.HasPrefix(dot, "digraph G {"))
	assert.Contains(t, dot, "rankdir=LR;")
	assert.Contains(t, dot, `label="chain";`)
	// The entrypoint renders as an oval, everything else as boxes.
	assert.Contains(t, dot, `"A" [shape=oval`)
	assert.Contains(t, dot, `"B" [shape=box`)
	// Conditional edges are dashed and labeled; defaults are plain.
	assert.Contains(t, dot, `"A" -> "C" [style=dashed, label="x==0"];`)
	assert.Contains(t, dot, `"A" -> "B";`)
	assert.Contains(t, dot, `"B" -> "C";`)
}

func TestDOTRankDir(t *testing.T) {
	app := buildChain(t, map[string]any{"x": 1})
	assert.Contains(t, app.Graph().DOT(WithRankDir(RankDirTB)), "rankdir=TB;")
	// Invalid directions fall back to the default.
	assert.Contains(t, app.Graph().DOT(WithRankDir("XX")), "rankdir=LR;")
}

func TestMermaid(t *testing.T) {
	app := buildChain(t, map[string]any{"x": 1})
	m := app.Graph().Mermaid()

	assert.True(t, strings.HasPrefix(m, "flowchart TB\n"))
	assert.Contains(t, m, "A([A])")
	assert.Contains(t, m, "B[B]")
	assert.Contains(t, m, "A -->|x==0| C")
	assert.Contains(t, m, "A --> B")
}

func TestMermaidSanitizesIDs(t *testing.T) {
	app, err := NewBuilder().
		WithActions(noopAction("fetch data"), noopAction("store.result")).
		WithTransition("fetch data", "store.result").
		WithEntrypoint("fetch data").
		Build(t.Context())
	require.NoError(t, err)

	m := app.Graph().Mermaid()
	assert.Contains(t, m, "fetch_data([fetch data])")
	assert.Contains(t, m, "fetch_data --> store_result")
}
