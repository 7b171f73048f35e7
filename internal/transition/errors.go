// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transition

import "errors"

var (
	// ErrTransitionLoad marks a failed load, unload or activation. The
	// transition ends in Failed and is not retried.
	ErrTransitionLoad = errors.New("transition: scene load failed")

	// ErrTransitionInFlight is returned when another context's transition
	// is still running.
	ErrTransitionInFlight = errors.New("transition: another transition is in flight")

	// ErrCompletionGate wraps a completion gate await that did not resolve.
	ErrCompletionGate = errors.New("transition: completion gate did not resolve")

	// ErrPreRevealSkipped may be returned by a pre-reveal step to skip it
	// explicitly.
	ErrPreRevealSkipped = errors.New("transition: pre-reveal skipped")

	ErrMissingLoader = errors.New("transition: scene loader is required")
)
