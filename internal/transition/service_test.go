// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transition

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ManuGH/worldflow/internal/bus"
	"github.com/ManuGH/worldflow/internal/events"
	"github.com/ManuGH/worldflow/internal/scene"
	"github.com/ManuGH/worldflow/internal/simgate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type harness struct {
	bus     *bus.MemoryBus
	loader  *scene.MemoryLoader
	simgate *simgate.Gate
	gate    *ResetAwareGate
}

// newHarness checks for leaked goroutines once the gate subscription it
// opens has been closed.
func newHarness(t *testing.T) *harness {
	t.Helper()
	ignore := goleak.IgnoreCurrent()
	t.Cleanup(func() { goleak.VerifyNone(t, ignore) })

	h := &harness{
		bus:     bus.NewMemoryBus(),
		loader:  scene.NewMemoryLoader("menu", "gameplay"),
		simgate: simgate.New(),
	}
	g, err := NewResetAwareGate(context.Background(), h.bus)
	require.NoError(t, err)
	t.Cleanup(g.Close)
	h.gate = g
	return h
}

func (h *harness) service(t *testing.T, mutate func(*Options)) *Service {
	t.Helper()
	opts := Options{
		Loader:  h.loader,
		Gate:    h.gate,
		Bus:     h.bus,
		SimGate: h.simgate,
	}
	if mutate != nil {
		mutate(&opts)
	}
	svc, err := NewService(opts)
	require.NoError(t, err)
	return svc
}

func gameplayPlan(sig string) Plan {
	return Plan{
		Context: scene.TransitionContext{Signature: sig, ProfileID: "startup", FromRoute: "menu", ToRoute: "gameplay"},
		Load:    []string{"gameplay"},
		Active:  "gameplay",
	}
}

type runResult struct {
	out Outcome
	err error
}

func TestRun_AwaitsMatchingResetCompletion(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, nil)

	done := make(chan runResult, 1)
	go func() {
		out, err := svc.Run(context.Background(), gameplayPlan("ctx-1"))
		done <- runResult{out, err}
	}()

	require.Eventually(t, func() bool {
		_, st, ok := svc.Current()
		return ok && st == StateAwaitingCompletionGate
	}, time.Second, 5*time.Millisecond)
	assert.False(t, h.simgate.IsOpen(), "transition token held while awaiting")
	assert.True(t, h.loader.IsSceneLoaded("gameplay"))

	publishCompleted(t, h.bus, "ctx-2")
	time.Sleep(30 * time.Millisecond)
	_, st, _ := svc.Current()
	assert.Equal(t, StateAwaitingCompletionGate, st, "ctx-2 must not release ctx-1")

	publishCompleted(t, h.bus, "ctx-1")

	var res runResult
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("transition did not complete")
	}
	require.NoError(t, res.err)
	assert.Equal(t, StateCompleted, res.out.State)
	assert.Equal(t, []State{
		StateRequested, StateFadeIn, StateLoading, StateScenesReady,
		StateAwaitingCompletionGate, StateFadeOut, StateCompleted,
	}, res.out.History)
	assert.Equal(t, PreRevealSkipped, res.out.PreReveal)
	assert.True(t, h.simgate.IsOpen())
	assert.Equal(t, "gameplay", h.loader.ActiveSceneName())

	_, _, inFlight := svc.Current()
	assert.False(t, inFlight)
}

func TestRun_NoopGateCompletesWithoutReset(t *testing.T) {
	svc, err := NewService(Options{Loader: scene.NewMemoryLoader()})
	require.NoError(t, err)

	out, err := svc.Run(context.Background(), gameplayPlan("ctx-1"))
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, out.State)
}

func TestRun_LoadFailureIsFatal(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("disk on fire")
	h.loader.FailOn("gameplay", boom)
	svc := h.service(t, nil)

	failed := make(chan events.TransitionFailed, 1)
	stopFailed, err := events.TopicTransitionFailed.Listen(context.Background(), h.bus, func(ev events.TransitionFailed) {
		failed <- ev
	})
	require.NoError(t, err)
	defer stopFailed()

	var ready atomic.Int32
	stopReady, err := events.TopicScenesReady.Listen(context.Background(), h.bus, func(events.ScenesReady) {
		ready.Add(1)
	})
	require.NoError(t, err)
	defer stopReady()

	out, err := svc.Run(context.Background(), gameplayPlan("ctx-1"))
	require.ErrorIs(t, err, ErrTransitionLoad)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StateFailed, out.State)
	assert.NotContains(t, out.History, StateScenesReady)
	assert.True(t, h.simgate.IsOpen(), "token released on failure")

	select {
	case ev := <-failed:
		assert.Equal(t, "ctx-1", ev.Context.Signature)
		assert.Equal(t, string(StateLoading), ev.State)
	case <-time.After(time.Second):
		t.Fatal("no failure notification")
	}
	assert.Equal(t, int32(0), ready.Load())
}

func TestRun_GateCanceledEndsFailed(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, func(o *Options) { o.GateTimeout = 20 * time.Millisecond })

	out, err := svc.Run(context.Background(), gameplayPlan("ctx-lonely"))
	require.ErrorIs(t, err, ErrCompletionGate)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateFailed, out.State)
	assert.Equal(t, 0, h.gate.Pending())
}

func TestRun_PreRevealOutcomes(t *testing.T) {
	tests := []struct {
		name string
		fn   PreRevealFunc
		want PreRevealOutcome
	}{
		{"completed", func(context.Context, scene.TransitionContext) error { return nil }, PreRevealCompleted},
		{"skipped", func(context.Context, scene.TransitionContext) error { return ErrPreRevealSkipped }, PreRevealSkipped},
		{"failed", func(context.Context, scene.TransitionContext) error { return errors.New("warmup broke") }, PreRevealFailed},
		{"timeout", func(ctx context.Context, _ scene.TransitionContext) error {
			<-ctx.Done()
			return ctx.Err()
		}, PreRevealTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(Options{
				Loader:           scene.NewMemoryLoader(),
				PreReveal:        tt.fn,
				PreRevealTimeout: 20 * time.Millisecond,
			})
			require.NoError(t, err)

			out, err := svc.Run(context.Background(), gameplayPlan("ctx-"+tt.name))
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.PreReveal)
			assert.Equal(t, StateCompleted, out.State, "pre-reveal never blocks fade-out")
		})
	}
}

func TestRun_DuplicateRequestsShareOneRun(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, nil)

	var ready atomic.Int32
	stop, err := events.TopicScenesReady.Listen(context.Background(), h.bus, func(events.ScenesReady) {
		ready.Add(1)
	})
	require.NoError(t, err)
	defer stop()

	results := make(chan runResult, 3)
	start := func() {
		go func() {
			out, err := svc.Run(context.Background(), gameplayPlan("ctx-dup"))
			results <- runResult{out, err}
		}()
	}
	start()
	require.Eventually(t, func() bool {
		_, st, ok := svc.Current()
		return ok && st == StateAwaitingCompletionGate
	}, time.Second, 5*time.Millisecond)

	// Joiners arrive while the first run is parked on the gate.
	start()
	start()
	time.Sleep(50 * time.Millisecond)
	publishCompleted(t, h.bus, "ctx-dup")

	for i := 0; i < 3; i++ {
		select {
		case r := <-results:
			require.NoError(t, r.err)
			assert.Equal(t, StateCompleted, r.out.State)
		case <-time.After(2 * time.Second):
			t.Fatal("duplicate run did not finish")
		}
	}
	require.Eventually(t, func() bool { return ready.Load() >= 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), ready.Load(), "scenes ready published once")
}

func TestRun_OtherSignatureWhileInFlight(t *testing.T) {
	h := newHarness(t)
	svc := h.service(t, nil)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Run(context.Background(), gameplayPlan("ctx-1"))
		done <- err
	}()
	require.Eventually(t, func() bool {
		_, st, ok := svc.Current()
		return ok && st == StateAwaitingCompletionGate
	}, time.Second, 5*time.Millisecond)

	_, err := svc.Run(context.Background(), gameplayPlan("ctx-2"))
	require.ErrorIs(t, err, ErrTransitionInFlight)

	publishCompleted(t, h.bus, "ctx-1")
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("first transition did not finish")
	}
}

// countingLoader records engine calls that reach the wrapped loader.
type countingLoader struct {
	*scene.MemoryLoader
	loads   atomic.Int32
	unloads atomic.Int32
	// activeOverride, when set, is what the engine reports as active.
	activeOverride string
}

func (c *countingLoader) LoadScene(ctx context.Context, name string) error {
	c.loads.Add(1)
	return c.MemoryLoader.LoadScene(ctx, name)
}

func (c *countingLoader) UnloadScene(ctx context.Context, name string) error {
	c.unloads.Add(1)
	return c.MemoryLoader.UnloadScene(ctx, name)
}

func (c *countingLoader) ActiveSceneName() string {
	if c.activeOverride != "" {
		return c.activeOverride
	}
	return c.MemoryLoader.ActiveSceneName()
}

func TestRun_SkipsLoadedScenesAndMissingUnloads(t *testing.T) {
	loader := &countingLoader{MemoryLoader: scene.NewMemoryLoader("menu", "gameplay", "hud")}
	require.NoError(t, loader.MemoryLoader.LoadScene(context.Background(), "gameplay"))

	svc, err := NewService(Options{Loader: loader})
	require.NoError(t, err)

	plan := gameplayPlan("ctx-reload")
	plan.Load = []string{"gameplay", "hud"}
	plan.Unload = []string{"menu"}

	out, err := svc.Run(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, out.State)
	assert.Equal(t, int32(1), loader.loads.Load(), "only hud is loaded")
	assert.Equal(t, int32(0), loader.unloads.Load(), "menu was never loaded")
	assert.Equal(t, []string{"gameplay", "hud"}, loader.LoadedScenes())
	assert.Equal(t, "gameplay", loader.ActiveSceneName())
}

func TestRun_UnloadsOnlyLoadedScenes(t *testing.T) {
	loader := &countingLoader{MemoryLoader: scene.NewMemoryLoader("menu", "gameplay")}
	require.NoError(t, loader.MemoryLoader.LoadScene(context.Background(), "menu"))

	svc, err := NewService(Options{Loader: loader})
	require.NoError(t, err)

	plan := gameplayPlan("ctx-swap")
	plan.Unload = []string{"menu"}

	_, err = svc.Run(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, int32(1), loader.unloads.Load())
	assert.False(t, loader.IsSceneLoaded("menu"))
}

func TestRun_ActiveSceneMismatchFails(t *testing.T) {
	loader := &countingLoader{
		MemoryLoader:   scene.NewMemoryLoader("menu", "gameplay"),
		activeOverride: "menu",
	}
	svc, err := NewService(Options{Loader: loader})
	require.NoError(t, err)

	out, err := svc.Run(context.Background(), gameplayPlan("ctx-stuck"))
	require.ErrorIs(t, err, ErrTransitionLoad)
	assert.Equal(t, StateFailed, out.State)
}

func TestNewService_RequiresLoader(t *testing.T) {
	_, err := NewService(Options{})
	require.ErrorIs(t, err, ErrMissingLoader)
}
