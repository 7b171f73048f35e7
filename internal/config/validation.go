// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"

	"github.com/ManuGH/worldflow/internal/validate"
	"github.com/rs/zerolog"
)

// Validate rejects unknown enum values, negative durations and unusable
// addresses.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("runtime.mode", cfg.Runtime.Mode, []string{ModeStrict, ModeRelease})
	v.PositiveDuration("runtime.tickRate", cfg.Runtime.TickRate)

	v.OneOf("reset.emptyScopePolicy", cfg.Reset.EmptyScopePolicy, []string{EmptyScopeRunAll, EmptyScopeRunNone})

	v.NonNegativeDuration("transition.preRevealTimeout", cfg.Transition.PreRevealTimeout)
	v.NonNegativeDuration("transition.gateTimeout", cfg.Transition.GateTimeout)

	if cfg.Degraded.RatePerSecond < 0 {
		v.AddError("degraded.ratePerSecond", "must not be negative", cfg.Degraded.RatePerSecond)
	}
	v.NonNegative("degraded.burst", cfg.Degraded.Burst)

	validateLevel(v, "log.level", cfg.Log.Level)
	for category, level := range cfg.Log.Categories {
		validateLevel(v, "log.categories."+category, level)
	}

	if cfg.QA.Enabled {
		v.HostPort("qa.listenAddr", cfg.QA.ListenAddr)
		v.Positive("qa.requestLimit", cfg.QA.RequestLimit)
		v.PositiveDuration("qa.window", cfg.QA.Window)
	}

	v.OneOf("bus.backend", cfg.Bus.Backend, []string{BusMemory, BusRedis})
	if cfg.Bus.Backend == BusRedis {
		v.HostPort("bus.redisAddr", cfg.Bus.RedisAddr)
	}

	if cfg.Telemetry.Enabled {
		v.OneOf("telemetry.exporter", cfg.Telemetry.Exporter, []string{ExporterGRPC, ExporterHTTP})
		v.NotEmpty("telemetry.endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("telemetry.samplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	if err := v.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func validateLevel(v *validate.Validator, field, level string) {
	if _, err := zerolog.ParseLevel(level); err != nil || level == "" {
		v.AddError(field, fmt.Sprintf("invalid log level %q", level), level)
	}
}
