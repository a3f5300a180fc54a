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
	"errors"
	"sync"

	"github.com/panjf2000/ants/v2"
)

// RunConcurrent drives several independent applications to completion on a
// bounded worker pool and returns their final triples, index-aligned with
// apps. Each application still executes its steps strictly sequentially;
// only whole applications run in parallel. The joined error aggregates
// per-application failures; results for failed applications are nil.
func RunConcurrent(ctx context.Context, apps []*Application, poolSize int, opts ...RunOption) ([]*StepResult, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	defer pool.Release()

	results := make([]*StepResult, len(apps))
	errs := make([]error, len(apps))
	var wg sync.WaitGroup
	for i, app := range apps {
		wg.Add(1)
		i, app := i, app
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i], errs[i] = app.Run(ctx, opts...)
		}); err != nil {
			errs[i] = err
			wg.Done()
		}
	}
	wg.Wait()
	return results, errors.Join(errs...)
}
