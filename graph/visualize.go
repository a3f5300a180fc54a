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
	"fmt"
	"strings"
)

// Graphviz layout directions.
const (
	RankDirLR = "LR"
	RankDirTB = "TB"
)

const (
	shapeBox    = "box"
	shapeOval   = "oval"
	colorEntry  = "#e8f5e9"
	colorAction = "#e3f2fd"
)

// VizOption configures graph exports.
type VizOption func(*vizOptions)

type vizOptions struct {
	rankDir    string
	graphLabel string
}

// WithRankDir sets DOT graph direction. Valid values: "LR", "TB".
func WithRankDir(dir string) VizOption {
	return func(o *vizOptions) {
		if dir == RankDirLR || dir == RankDirTB {
			o.rankDir = dir
		}
	}
}

// WithGraphLabel labels the whole graph in the export.
func WithGraphLabel(label string) VizOption {
	return func(o *vizOptions) { o.graphLabel = label }
}

// DOT returns a Graphviz representation of the graph: actions as boxes (the
// entrypoint as an oval), unconditional transitions as solid edges, and
// conditional transitions as dashed edges labeled with the condition.
func (g *Graph) DOT(opts ...VizOption) string {
	o := &vizOptions{rankDir: RankDirLR}
	for _, opt := range opts {
		opt(o)
	}
	var b strings.Builder
	b.WriteString("digraph G {\n")
	fmt.Fprintf(&b, "  rankdir=%s;\n", o.rankDir)
	if o.graphLabel != "" {
		fmt.Fprintf(&b, "  label=%q;\n", o.graphLabel)
	}
	b.WriteString("  node [fontname=\"Helvetica\"];\n")
	for _, a := range g.Actions() {
		shape, fill := shapeBox, colorAction
		if a.Name() == g.Entrypoint() {
			shape, fill = shapeOval, colorEntry
		}
		fmt.Fprintf(&b, "  %q [shape=%s, style=filled, fillcolor=%q];\n", a.Name(), shape, fill)
	}
	for _, t := range g.Transitions() {
		if t.Cond.IsDefault() {
			fmt.Fprintf(&b, "  %q -> %q;\n", t.From, t.To)
		} else {
			fmt.Fprintf(&b, "  %q -> %q [style=dashed, label=%q];\n", t.From, t.To, t.Cond.Label())
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// Mermaid returns a Mermaid flowchart of the graph, suitable for embedding
// in markdown documentation.
func (g *Graph) Mermaid(opts ...VizOption) string {
	o := &vizOptions{rankDir: RankDirTB}
	for _, opt := range opts {
		opt(o)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "flowchart %s\n", o.rankDir)
	for _, a := range g.Actions() {
		if a.Name() == g.Entrypoint() {
			fmt.Fprintf(&b, "  %s([%s])\n", mermaidID(a.Name()), a.Name())
		} else {
			fmt.Fprintf(&b, "  %s[%s]\n", mermaidID(a.Name()), a.Name())
		}
	}
	for _, t := range g.Transitions() {
		if t.Cond.IsDefault() {
			fmt.Fprintf(&b, "  %s --> %s\n", mermaidID(t.From), mermaidID(t.To))
		} else {
			fmt.Fprintf(&b, "  %s -->|%s| %s\n", mermaidID(t.From), t.Cond.Label(), mermaidID(t.To))
		}
	}
	return b.String()
}

// mermaidID strips characters Mermaid treats as syntax from node ids.
func mermaidID(name string) string {
	replacer := strings.NewReplacer(" ", "_", "-", "_", ".", "_", ":", "_")
	return replacer.Replace(name)
}
