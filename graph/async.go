//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package graph

import "context"

// Event is one element of an asynchronous execution stream. Exactly one of
// Step and Err is set.
type Event struct {
	Step *StepResult
	Err  error
}

// StepAsync runs a single step without blocking the caller. The returned
// channel yields exactly one event unless the run has ended or stalled, in
// which case it closes without emitting.
func (a *Application) StepAsync(ctx context.Context, inputs map[string]any) <-chan *Event {
	ch := make(chan *Event, 1)
	go func() {
		defer close(ch)
		res, err := a.Step(ctx, inputs)
		if err != nil {
			ch <- &Event{Err: err}
			return
		}
		if res != nil {
			ch <- &Event{Step: res}
		}
	}()
	return ch
}

// IterateAsync streams the same sequence of triples Iterate produces over a
// buffered channel. The channel closes when iteration ends; a terminal error
// arrives as the last event. Asynchrony is purely a scheduling concern: for
// identical inputs and deterministic actions the yielded sequence matches
// the blocking iterator's exactly.
func (a *Application) IterateAsync(ctx context.Context, opts ...RunOption) <-chan *Event {
	ch := make(chan *Event, a.channelBufferSize)
	go func() {
		defer close(ch)
		it := a.Iterate(ctx, opts...)
		for it.Next() {
			select {
			case ch <- &Event{Step: it.Current()}:
			case <-ctx.Done():
				a.setStatus(StatusTerminal)
				return
			}
		}
		if err := it.Err(); err != nil {
			select {
			case ch <- &Event{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return ch
}

// RunAsync drains the iteration in the background and yields only the final
// triple (or the terminal error). The channel closes after that single
// event; it closes empty when nothing ran.
func (a *Application) RunAsync(ctx context.Context, opts ...RunOption) <-chan *Event {
	ch := make(chan *Event, 1)
	go func() {
		defer close(ch)
		final, err := a.Run(ctx, opts...)
		if err != nil {
			ch <- &Event{Err: err}
			return
		}
		if final != nil {
			ch <- &Event{Step: final}
		}
	}()
	return ch
}
