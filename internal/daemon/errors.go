// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

var (
	// ErrMissingBus is returned when no notification bus is provided
	ErrMissingBus = errors.New("notification bus is required")

	// ErrMissingGate is returned when the simulation gate is not provided
	ErrMissingGate = errors.New("simulation gate is required")

	// ErrMissingMode is returned when no runtime mode provider is provided
	ErrMissingMode = errors.New("runtime mode is required")

	// ErrMissingReporter is returned when the degraded reporter is not provided
	ErrMissingReporter = errors.New("degraded reporter is required")

	// ErrMissingResetService is returned when the reset service is not provided
	ErrMissingResetService = errors.New("reset service is required")

	// ErrMissingTransitionService is returned when the transition service is not provided
	ErrMissingTransitionService = errors.New("transition service is required")

	// ErrManagerNotStarted is returned when trying to shutdown a manager that hasn't started
	ErrManagerNotStarted = errors.New("manager not started")

	// ErrManagerAlreadyStarted is returned by a second Start call
	ErrManagerAlreadyStarted = errors.New("manager already started")

	// ErrUnsupportedBus is returned for an unknown bus backend
	ErrUnsupportedBus = errors.New("unsupported bus backend")
)
