// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package reset

import "errors"

var (
	// ErrMissingDependency is returned by NewService in strict mode when a
	// required collaborator is absent.
	ErrMissingDependency = errors.New("reset: missing dependency")

	// ErrWorldRebuild wraps a failed World.Despawn or World.Spawn.
	ErrWorldRebuild = errors.New("reset: world rebuild failed")

	// ErrInterrupted is returned when the context ends mid-reset.
	ErrInterrupted = errors.New("reset: interrupted")
)
