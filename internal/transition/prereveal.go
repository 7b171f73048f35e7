// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transition

import (
	"context"
	"errors"
	"time"

	xglog "github.com/ManuGH/worldflow/internal/log"
	"github.com/ManuGH/worldflow/internal/metrics"
	"github.com/ManuGH/worldflow/internal/scene"
	"github.com/rs/zerolog"
)

// PreRevealFunc runs after the completion gate and before fade-out, e.g. to
// warm up the first gameplay frame.
type PreRevealFunc func(ctx context.Context, tc scene.TransitionContext) error

type PreRevealOutcome string

const (
	PreRevealCompleted PreRevealOutcome = "completed"
	PreRevealSkipped   PreRevealOutcome = "skipped"
	PreRevealTimeout   PreRevealOutcome = "timeout"
	PreRevealFailed    PreRevealOutcome = "failed"
)

const DefaultPreRevealTimeout = 5 * time.Second

// runPreReveal always resolves: a timeout or an error is logged and the
// transition proceeds to fade-out.
func runPreReveal(ctx context.Context, fn PreRevealFunc, timeout time.Duration, tc scene.TransitionContext, logger zerolog.Logger) PreRevealOutcome {
	outcome := preReveal(ctx, fn, timeout, tc, logger)
	metrics.RecordPreReveal(string(outcome))
	return outcome
}

func preReveal(ctx context.Context, fn PreRevealFunc, timeout time.Duration, tc scene.TransitionContext, logger zerolog.Logger) PreRevealOutcome {
	if fn == nil {
		logger.Info().Str(xglog.FieldReason, "not configured").Msg("[OBS][Phase] PreRevealSkipped")
		return PreRevealSkipped
	}
	if timeout <= 0 {
		timeout = DefaultPreRevealTimeout
	}

	logger.Info().Dur("timeout", timeout).Msg("[OBS][Phase] PreRevealStarted")
	start := time.Now()

	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(pctx, tc) }()

	var err error
	select {
	case err = <-done:
	case <-pctx.Done():
		err = pctx.Err()
	}

	switch {
	case err == nil:
		logger.Info().Dur("elapsed", time.Since(start)).Msg("[OBS][Phase] PreRevealCompleted")
		return PreRevealCompleted
	case errors.Is(err, ErrPreRevealSkipped):
		logger.Info().Str(xglog.FieldReason, "step skipped").Msg("[OBS][Phase] PreRevealSkipped")
		return PreRevealSkipped
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn().Dur("timeout", timeout).Msg("[OBS][Phase] PreRevealTimeout")
		return PreRevealTimeout
	default:
		logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("[OBS][Phase] PreRevealCompleted")
		return PreRevealFailed
	}
}
