// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package reset runs the end-to-end world reset pipeline: validation,
// advisory guards, the simulation gate token, the ordered despawn/spawn
// cycle and the completion notification.
package reset

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/worldflow/internal/bus"
	"github.com/ManuGH/worldflow/internal/events"
	xglog "github.com/ManuGH/worldflow/internal/log"
	"github.com/ManuGH/worldflow/internal/metrics"
	"github.com/ManuGH/worldflow/internal/reset/guard"
	"github.com/ManuGH/worldflow/internal/reset/model"
	"github.com/ManuGH/worldflow/internal/reset/orchestrator"
	"github.com/ManuGH/worldflow/internal/reset/policy"
	"github.com/ManuGH/worldflow/internal/reset/validation"
	"github.com/ManuGH/worldflow/internal/simgate"
	"github.com/ManuGH/worldflow/internal/telemetry"
	"github.com/rs/zerolog"
)

const publishTimeout = 2 * time.Second

// World tears down and rebuilds the actors of a full reset.
type World interface {
	Despawn(ctx context.Context, rc model.Context) error
	Spawn(ctx context.Context, rc model.Context) error
}

// Options carries the collaborators of a Service. Policy, Bus, Gate and
// Participants are required; the rest default.
type Options struct {
	Policy       policy.Policy
	Bus          bus.Bus
	Gate         *simgate.Gate
	Participants *orchestrator.Participants

	Hooks      *orchestrator.Hooks
	Validators *validation.Pipeline
	Guards     *guard.Set
	World      World
}

// Result is the outcome of one Execute call.
type Result struct {
	Decision model.Decision
	Findings []guard.Finding
	Failures []orchestrator.Failure
	Ran      []string
	Soft     bool
	Duration time.Duration
}

// Service is the reset pipeline.
type Service struct {
	policy       policy.Policy
	bus          bus.Bus
	gate         *simgate.Gate
	gateToken    string
	participants *orchestrator.Participants
	hooks        *orchestrator.Hooks
	validators   *validation.Pipeline
	guards       *guard.Set
	world        World
	logger       zerolog.Logger
}

// NewService wires a Service. A missing required collaborator fails fast in
// strict mode. In release mode it is reported as degraded and replaced by a
// no-op; a missing gate disables token acquisition and is flagged by the
// guard on every reset.
func NewService(opts Options) (*Service, error) {
	if opts.Policy == nil {
		return nil, fmt.Errorf("%w: policy", ErrMissingDependency)
	}
	s := &Service{
		policy:       opts.Policy,
		bus:          opts.Bus,
		gate:         opts.Gate,
		gateToken:    simgate.TokenWorldReset,
		participants: opts.Participants,
		hooks:        opts.Hooks,
		validators:   opts.Validators,
		guards:       opts.Guards,
		world:        opts.World,
		logger:       xglog.WithComponent("reset"),
	}

	var missing []string
	if s.bus == nil {
		missing = append(missing, "bus")
	}
	if s.gate == nil {
		missing = append(missing, "simgate")
	}
	if s.participants == nil {
		missing = append(missing, "participants")
	}
	for _, name := range missing {
		if s.policy.IsStrict() {
			return nil, fmt.Errorf("%w: %s", ErrMissingDependency, name)
		}
		s.policy.ReportDegraded(policy.Degraded{
			Feature: "ResetService",
			Reason:  "MissingDependency",
			Detail:  name,
		})
	}

	if s.bus == nil {
		s.bus = bus.Nop{}
	}
	if s.participants == nil {
		s.participants = orchestrator.NewParticipants(orchestrator.RunAll)
	}
	if s.hooks == nil {
		s.hooks = orchestrator.NewHooks()
	}
	if s.validators == nil {
		s.validators = validation.Default()
	}
	if s.guards == nil {
		var reader guard.TokenReader
		if s.gate != nil {
			reader = s.gate
		}
		s.guards = guard.NewSet(guard.NewSimulationGateGuard(reader))
	}
	return s, nil
}

func (s *Service) Policy() policy.Policy                    { return s.policy }
func (s *Service) Participants() *orchestrator.Participants { return s.participants }
func (s *Service) Hooks() *orchestrator.Hooks               { return s.hooks }

// Execute runs one reset. Skips and participant failures are data in the
// Result; the error is reserved for world rebuild failures and interruption.
// A completion notification is published on every path that requires one.
func (s *Service) Execute(ctx context.Context, req model.Request, rc model.Context) (res Result, err error) {
	start := time.Now()
	ctx = xglog.ContextWithSignature(ctx, req.ContextSignature)
	logger := xglog.WithContext(ctx, s.logger)

	ctx, span := telemetry.StartSpan(ctx, "reset.execute",
		telemetry.ResetAttributes(req.ContextSignature, req.Reason, string(req.Origin), rc.ScopeNames(), rc.IsSoft())...)
	defer func() { telemetry.EndSpan(span, err, "reset") }()

	logger.Info().
		Str(xglog.FieldEvent, "reset.requested").
		Str(xglog.FieldReason, req.Reason).
		Str(xglog.FieldOrigin, string(req.Origin)).
		Str(xglog.FieldProfile, req.ProfileName).
		Str(xglog.FieldTargetScene, req.TargetScene).
		Strs(xglog.FieldScopes, rc.ScopeNames()).
		Str("flags", rc.Flags().String()).
		Msg("[OBS][Phase] ResetRequested")

	res.Soft = rc.IsSoft()
	res.Decision = s.validators.Validate(req, s.policy)
	if skip, skipped := res.Decision.Skipped(); skipped {
		metrics.RecordResetDecision(res.Decision.Kind().String(), string(req.Origin), skip.IsViolation)
		logger.Warn().
			Str(xglog.FieldEvent, "reset.skipped").
			Str(xglog.FieldReason, skip.Reason).
			Str(xglog.FieldDetail, skip.Detail).
			Bool(xglog.FieldViolation, skip.IsViolation).
			Msg("reset skipped by validation")
		if skip.ShouldPublishCompletion {
			s.publishCompleted(ctx, events.WorldResetCompleted{
				ContextSignature: req.ContextSignature,
				Reason:           skip.Reason,
				Skipped:          true,
				Violation:        skip.IsViolation,
			})
		}
		res.Duration = time.Since(start)
		return res, nil
	}
	metrics.RecordResetDecision(res.Decision.Kind().String(), string(req.Origin), false)

	_, res.Findings = s.guards.Evaluate(req, s.policy)

	if s.gate != nil {
		handle, err := s.gate.Acquire(s.gateToken)
		if err != nil {
			err = fmt.Errorf("acquire %q token: %w", s.gateToken, err)
			s.publishCompleted(ctx, events.WorldResetCompleted{
				ContextSignature: req.ContextSignature,
				Reason:           req.Reason,
				Error:            err.Error(),
			})
			res.Duration = time.Since(start)
			logger.Error().Err(err).Str(xglog.FieldEvent, "reset.gate_failed").Msg("reset aborted")
			return res, err
		}
		defer handle.Release()
	}

	var runErr error
	if rc.IsSoft() {
		runErr = s.runStage(ctx, &res, func(ctx context.Context) (orchestrator.Report, error) {
			return s.participants.RunScopedReset(ctx, rc)
		})
	} else {
		runErr = s.runCycle(ctx, &res, rc)
	}

	completed := events.WorldResetCompleted{
		ContextSignature: req.ContextSignature,
		Reason:           req.Reason,
	}
	if runErr != nil {
		completed.Error = runErr.Error()
	}
	s.publishCompleted(ctx, completed)

	res.Duration = time.Since(start)
	flavour := "full"
	if res.Soft {
		flavour = "soft"
	}
	metrics.ObserveResetDuration(flavour, res.Duration.Seconds())

	ev := logger.Info()
	if runErr != nil {
		ev = logger.Error().Err(runErr)
	}
	ev.Str(xglog.FieldEvent, "reset.completed").
		Int("failures", len(res.Failures)).
		Dur("duration", res.Duration).
		Msg("reset finished")
	return res, runErr
}

// runCycle is the full despawn/spawn cycle. World failures do not stop the
// cycle; they are collected and returned wrapped in ErrWorldRebuild.
func (s *Service) runCycle(ctx context.Context, res *Result, rc model.Context) error {
	var worldErrs []error
	hook := func(point orchestrator.Point) func(context.Context) (orchestrator.Report, error) {
		return func(ctx context.Context) (orchestrator.Report, error) {
			return s.hooks.Run(ctx, point, rc)
		}
	}
	world := func(step string, fn func(context.Context, model.Context) error) {
		if s.world == nil {
			return
		}
		if err := fn(ctx, rc); err != nil {
			worldErrs = append(worldErrs, fmt.Errorf("%w: %s: %w", ErrWorldRebuild, step, err))
		}
	}

	steps := []func() error{
		func() error { return s.runStage(ctx, res, hook(orchestrator.BeforeDespawn)) },
		func() error { world("despawn", s.worldDespawn); return nil },
		func() error { return s.runStage(ctx, res, hook(orchestrator.AfterDespawn)) },
		func() error {
			return s.runStage(ctx, res, func(ctx context.Context) (orchestrator.Report, error) {
				return s.participants.RunScopedReset(ctx, rc)
			})
		},
		func() error { return s.runStage(ctx, res, hook(orchestrator.BeforeSpawn)) },
		func() error { world("spawn", s.worldSpawn); return nil },
		func() error { return s.runStage(ctx, res, hook(orchestrator.AfterSpawn)) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return errors.Join(append(worldErrs, err)...)
		}
	}
	return errors.Join(worldErrs...)
}

func (s *Service) worldDespawn(ctx context.Context, rc model.Context) error {
	return s.world.Despawn(ctx, rc)
}

func (s *Service) worldSpawn(ctx context.Context, rc model.Context) error {
	return s.world.Spawn(ctx, rc)
}

func (s *Service) runStage(ctx context.Context, res *Result, run func(context.Context) (orchestrator.Report, error)) error {
	rep, err := run(ctx)
	res.Ran = append(res.Ran, rep.Ran...)
	res.Failures = append(res.Failures, rep.Failures...)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	return nil
}

// publishCompleted detaches from ctx cancellation so awaiters are released
// even when the caller gave up.
func (s *Service) publishCompleted(ctx context.Context, ev events.WorldResetCompleted) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := events.TopicWorldResetCompleted.Publish(pctx, s.bus, ev); err != nil {
		logger := xglog.WithContext(ctx, s.logger)
		logger.Warn().
			Err(err).
			Str(xglog.FieldTopic, events.TopicWorldResetCompleted.Name()).
			Msg("failed to publish reset completion")
	}
}
