// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"github.com/ManuGH/worldflow/internal/bus"
	"github.com/ManuGH/worldflow/internal/config"
	"github.com/ManuGH/worldflow/internal/health"
	"github.com/ManuGH/worldflow/internal/reset"
	"github.com/ManuGH/worldflow/internal/reset/policy"
	"github.com/ManuGH/worldflow/internal/simgate"
	"github.com/ManuGH/worldflow/internal/transition"
	"github.com/redis/go-redis/v9"
)

// Deps is the explicit dependency container of the runtime. Every service
// that would otherwise be looked up globally is passed through here.
type Deps struct {
	// Config is the configuration the graph was built from
	Config config.AppConfig

	Mode     *policy.AtomicMode
	Reporter *policy.DegradedReporter
	Policy   policy.Policy

	Bus  bus.Bus
	Gate *simgate.Gate

	Resets      *reset.Service
	Transitions *transition.Service
	// CompletionGate is set when transitions wait for reset completions
	CompletionGate *transition.ResetAwareGate
	// Bridge is set when ScenesReady drives scene-flow resets
	Bridge *SceneResetBridge

	Health *health.Manager

	// Redis is the client behind a Redis bus, nil for the memory bus
	Redis *redis.Client

	closers []namedCloser
}

type namedCloser struct {
	name string
	fn   ShutdownHook
}

// Validate checks if the dependencies are valid.
func (d *Deps) Validate() error {
	if d.Mode == nil {
		return ErrMissingMode
	}
	if d.Reporter == nil {
		return ErrMissingReporter
	}
	if d.Bus == nil {
		return ErrMissingBus
	}
	if d.Gate == nil {
		return ErrMissingGate
	}
	if d.Resets == nil {
		return ErrMissingResetService
	}
	if d.Transitions == nil {
		return ErrMissingTransitionService
	}
	return nil
}

func (d *Deps) onClose(name string, fn ShutdownHook) {
	d.closers = append(d.closers, namedCloser{name: name, fn: fn})
}
