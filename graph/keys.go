//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package graph

// Reserved state keys maintained by the executor. Actions and callers cannot
// write them directly.
const (
	// KeyPriorAction records the name of the last committed action.
	KeyPriorAction = "__prior_action__"
	// KeySequenceID records the number of committed steps, starting at 0.
	KeySequenceID = "__sequence_id__"
)

// IsReservedKey reports whether key is bookkeeping state owned by the
// executor.
func IsReservedKey(key string) bool {
	return key == KeyPriorAction || key == KeySequenceID
}
