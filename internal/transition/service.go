// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package transition drives scene transitions through fade-in, scene loading,
// the completion gate, an optional pre-reveal step and fade-out.
package transition

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/worldflow/internal/bus"
	"github.com/ManuGH/worldflow/internal/events"
	"github.com/ManuGH/worldflow/internal/fsm"
	xglog "github.com/ManuGH/worldflow/internal/log"
	"github.com/ManuGH/worldflow/internal/metrics"
	"github.com/ManuGH/worldflow/internal/scene"
	"github.com/ManuGH/worldflow/internal/simgate"
	"github.com/ManuGH/worldflow/internal/telemetry"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const publishTimeout = 2 * time.Second

// Plan is one transition request.
type Plan struct {
	Context scene.TransitionContext
	// Load lists scenes to load, in order.
	Load []string
	// Unload lists obsolete scenes, unloaded after Load.
	Unload []string
	// Active becomes the active scene; empty keeps the current one.
	Active string
}

// Outcome describes a finished transition.
type Outcome struct {
	Context   scene.TransitionContext
	State     State
	History   []State
	PreReveal PreRevealOutcome
	Duration  time.Duration
}

type Options struct {
	Loader scene.Loader
	Fade   scene.FadeAdapter
	Gate   CompletionGate
	Bus    bus.Bus
	// SimGate receives the scene transition token while a transition runs.
	SimGate *simgate.Gate

	PreReveal        PreRevealFunc
	PreRevealTimeout time.Duration
	// GateTimeout bounds the completion gate await; zero waits until the
	// context is done.
	GateTimeout time.Duration
}

type Service struct {
	loader           scene.Loader
	fade             scene.FadeAdapter
	gate             CompletionGate
	bus              bus.Bus
	simgate          *simgate.Gate
	preReveal        PreRevealFunc
	preRevealTimeout time.Duration
	gateTimeout      time.Duration

	flight singleflight.Group
	mu     sync.Mutex
	active *run
	logger zerolog.Logger
}

type run struct {
	tc      scene.TransitionContext
	machine *fsm.Machine[State, Event]
}

func NewService(opts Options) (*Service, error) {
	if opts.Loader == nil {
		return nil, ErrMissingLoader
	}
	s := &Service{
		loader:           opts.Loader,
		fade:             opts.Fade,
		gate:             opts.Gate,
		bus:              opts.Bus,
		simgate:          opts.SimGate,
		preReveal:        opts.PreReveal,
		preRevealTimeout: opts.PreRevealTimeout,
		gateTimeout:      opts.GateTimeout,
		logger:           xglog.WithComponent("transition"),
	}
	if s.fade == nil {
		s.fade = scene.NoopFade{}
	}
	if s.gate == nil {
		s.gate = NoopGate{}
	}
	if s.bus == nil {
		s.bus = bus.Nop{}
	}
	return s, nil
}

// Current returns the in-flight transition, if any.
func (s *Service) Current() (scene.TransitionContext, State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return scene.TransitionContext{}, "", false
	}
	return s.active.tc, s.active.machine.State(), true
}

// Run executes plan. Concurrent calls for the same context signature share
// one execution; a call for another signature while one is running fails
// with ErrTransitionInFlight.
func (s *Service) Run(ctx context.Context, plan Plan) (Outcome, error) {
	sig := plan.Context.Signature
	v, err, shared := s.flight.Do(sig, func() (any, error) {
		return s.run(ctx, plan)
	})
	if shared {
		metrics.IncTransitionDuplicate()
		s.logger.Debug().
			Str(xglog.FieldContextSignature, sig).
			Msg("duplicate transition request joined in-flight run")
	}
	out, _ := v.(Outcome)
	return out, err
}

func (s *Service) begin(tc scene.TransitionContext) (*run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return nil, fmt.Errorf("%w: %s", ErrTransitionInFlight, s.active.tc.Signature)
	}
	r := &run{tc: tc, machine: newMachine()}
	s.active = r
	return r, nil
}

func (s *Service) end() {
	s.mu.Lock()
	s.active = nil
	s.mu.Unlock()
}

func (s *Service) run(ctx context.Context, plan Plan) (out Outcome, err error) {
	tc := plan.Context
	start := time.Now()
	ctx = xglog.ContextWithSignature(ctx, tc.Signature)
	logger := xglog.WithContext(ctx, s.logger).With().
		Str(xglog.FieldProfile, tc.ProfileID).
		Str(xglog.FieldFromRoute, tc.FromRoute).
		Str(xglog.FieldToRoute, tc.ToRoute).
		Logger()

	logger.Info().Str(xglog.FieldEvent, "transition.requested").Msg("[OBS][Phase] PhaseRequested")

	r, err := s.begin(tc)
	if err != nil {
		return Outcome{Context: tc}, err
	}
	defer s.end()

	ctx, span := telemetry.StartSpan(ctx, "transition.run",
		telemetry.TransitionAttributes(tc.Signature, tc.ProfileID, tc.FromRoute, tc.ToRoute)...)
	defer func() { telemetry.EndSpan(span, err, "transition") }()

	out = Outcome{Context: tc, History: []State{StateRequested}}
	r.machine.Observe(func(from, to State, ev Event) {
		out.History = append(out.History, to)
		logger.Debug().
			Str(xglog.FieldOldState, string(from)).
			Str(xglog.FieldNewState, string(to)).
			Str(xglog.FieldEvent, string(ev)).
			Msg("transition state changed")
	})

	if s.simgate != nil {
		h, err := s.simgate.Acquire(simgate.TokenSceneTransition)
		if err != nil {
			return out, err
		}
		defer h.Release()
	}

	s.publish(ctx, logger, events.TopicTransitionStarted.Name(), events.TransitionStarted{Context: tc})

	fail := func(cause error) (Outcome, error) {
		failedIn := r.machine.State()
		if _, ferr := r.machine.Fire(ctx, EventFailed); ferr != nil {
			logger.Error().Err(ferr).Msg("failed to enter Failed state")
		}
		out.State = r.machine.State()
		out.Duration = time.Since(start)
		metrics.RecordTransition("failed", tc.ProfileID)
		logger.Error().
			Err(cause).
			Str(xglog.FieldOldState, string(failedIn)).
			Str(xglog.FieldEvent, "transition.failed").
			Msg("scene transition failed")
		s.publish(ctx, logger, events.TopicTransitionFailed.Name(), events.TransitionFailed{
			Context: tc,
			State:   string(failedIn),
			Error:   cause.Error(),
		})
		return out, cause
	}
	fire := func(ev Event) error {
		_, err := r.machine.Fire(ctx, ev)
		return err
	}

	if err := fire(EventBegin); err != nil {
		return fail(err)
	}

	s.fade.Configure(tc.ProfileID)
	if s.fade.IsAvailable() {
		if err := s.fade.FadeIn(ctx, tc.Signature); err != nil {
			logger.Warn().Err(err).Msg("fade-in failed, continuing without fade")
		}
	}
	if err := fire(EventFadedIn); err != nil {
		return fail(err)
	}

	if err := s.loadScenes(ctx, plan, logger); err != nil {
		return fail(err)
	}
	if err := fire(EventScenesLoaded); err != nil {
		return fail(err)
	}
	s.publish(ctx, logger, events.TopicScenesReady.Name(), events.ScenesReady{Context: tc})

	if err := fire(EventAwaitGate); err != nil {
		return fail(err)
	}
	if err := s.awaitGate(ctx, tc); err != nil {
		return fail(err)
	}
	if err := fire(EventGateResolved); err != nil {
		return fail(err)
	}

	out.PreReveal = runPreReveal(ctx, s.preReveal, s.preRevealTimeout, tc, logger)

	if s.fade.IsAvailable() {
		if err := s.fade.FadeOut(ctx, tc.Signature); err != nil {
			logger.Warn().Err(err).Msg("fade-out failed, revealing without fade")
		}
	}
	if err := fire(EventFadedOut); err != nil {
		return fail(err)
	}

	out.State = r.machine.State()
	out.Duration = time.Since(start)
	metrics.RecordTransition("completed", tc.ProfileID)
	s.publish(ctx, logger, events.TopicTransitionCompleted.Name(), events.TransitionCompleted{Context: tc})
	logger.Info().
		Str(xglog.FieldEvent, "transition.completed").
		Dur("duration", out.Duration).
		Msg("scene transition completed")
	return out, nil
}

// loadScenes loads only what is missing and unloads only what is present, so
// additive engine loaders never hold a scene twice.
func (s *Service) loadScenes(ctx context.Context, plan Plan, logger zerolog.Logger) error {
	for _, name := range plan.Load {
		if s.loader.IsSceneLoaded(name) {
			logger.Debug().Str(xglog.FieldScene, name).Msg("scene already loaded, skipping load")
			continue
		}
		if err := s.loader.LoadScene(ctx, name); err != nil {
			return fmt.Errorf("%w: load %q: %w", ErrTransitionLoad, name, err)
		}
		logger.Debug().Str(xglog.FieldScene, name).Msg("scene loaded")
	}
	for _, name := range plan.Unload {
		if !s.loader.IsSceneLoaded(name) {
			logger.Debug().Str(xglog.FieldScene, name).Msg("scene not loaded, skipping unload")
			continue
		}
		if err := s.loader.UnloadScene(ctx, name); err != nil {
			return fmt.Errorf("%w: unload %q: %w", ErrTransitionLoad, name, err)
		}
		logger.Debug().Str(xglog.FieldScene, name).Msg("scene unloaded")
	}
	if plan.Active == "" {
		return nil
	}
	if !s.loader.SetActiveScene(plan.Active) {
		return fmt.Errorf("%w: cannot activate %q", ErrTransitionLoad, plan.Active)
	}
	if got := s.loader.ActiveSceneName(); got != plan.Active {
		return fmt.Errorf("%w: active scene is %q, want %q", ErrTransitionLoad, got, plan.Active)
	}
	return nil
}

func (s *Service) awaitGate(ctx context.Context, tc scene.TransitionContext) error {
	if s.gateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.gateTimeout)
		defer cancel()
	}
	start := time.Now()
	err := s.gate.AwaitBeforeFadeOut(ctx, tc)
	metrics.ObserveCompletionGateWait(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCompletionGate, err)
	}
	return nil
}

// publish detaches from ctx so a failing or canceled transition still
// announces its outcome.
func (s *Service) publish(ctx context.Context, logger zerolog.Logger, topic string, msg bus.Message) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.bus.Publish(pctx, topic, msg); err != nil {
		logger.Warn().Err(err).Str(xglog.FieldTopic, topic).Msg("failed to publish transition notification")
	}
}
