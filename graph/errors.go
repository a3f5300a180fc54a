//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package graph

import "fmt"

// BuildError reports an invalid graph or application configuration detected
// at build time: unknown transition endpoints, duplicate action names, an
// unreachable or missing entrypoint. It is fatal to construction.
type BuildError struct {
	Reason string
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	return "graph: build failed: " + e.Reason
}

func buildErrorf(format string, args ...any) error {
	return &BuildError{Reason: fmt.Sprintf(format, args...)}
}

// ReservedKeyError reports an attempt to write executor bookkeeping keys
// from outside the executor.
type ReservedKeyError struct {
	Key string
}

// Error implements the error interface.
func (e *ReservedKeyError) Error() string {
	return fmt.Sprintf("graph: key %q is reserved for executor bookkeeping", e.Key)
}

// NotAppendableError reports an Append against a key whose current value is
// not a sequence container.
type NotAppendableError struct {
	Key  string
	Type string
}

// Error implements the error interface.
func (e *NotAppendableError) Error() string {
	return fmt.Sprintf("graph: cannot append to key %q holding non-sequence value of type %s", e.Key, e.Type)
}

// MissingInputError reports an action stepped without one of its declared
// inputs. Inputs are only injected on the first step of an iteration, so a
// mid-sequence action that declares inputs fails with this error instead of
// running on invented values.
type MissingInputError struct {
	Action string
	Input  string
}

// Error implements the error interface.
func (e *MissingInputError) Error() string {
	return fmt.Sprintf("graph: action %q requires input %q which was not supplied", e.Action, e.Input)
}
