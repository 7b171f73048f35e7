// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package orchestrator owns the participant and lifecycle hook registries and
// runs them in their defined order, one at a time.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
)

// ErrPanicked wraps a panic recovered from a participant or hook.
var ErrPanicked = errors.New("reset callback panicked")

// Failure is one participant or hook call that returned an error.
type Failure struct {
	Stage string
	Name  string
	Order int
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s %s (order %d): %v", f.Stage, f.Name, f.Order, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// Report describes one ordered run.
type Report struct {
	Stage    string
	Ran      []string
	Failures []Failure
}

// Err joins all failures, or returns nil.
func (r Report) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, f)
	}
	return errors.Join(errs...)
}

// call runs fn and turns a panic into an error.
func call(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v\n%s", ErrPanicked, r, debug.Stack())
		}
	}()
	return fn(ctx)
}
