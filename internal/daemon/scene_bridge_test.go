// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ManuGH/worldflow/internal/config"
	"github.com/ManuGH/worldflow/internal/reset/model"
	"github.com/ManuGH/worldflow/internal/reset/orchestrator"
	"github.com/ManuGH/worldflow/internal/scene"
	"github.com/ManuGH/worldflow/internal/transition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// verifyNoLeaks checks goroutines after every later cleanup, including the
// Deps.Close registered by bootstrap, has run.
func verifyNoLeaks(t *testing.T) {
	t.Helper()
	ignore := goleak.IgnoreCurrent()
	t.Cleanup(func() { goleak.VerifyNone(t, ignore) })
}

func TestSceneResetBridge_DrivesTransitions(t *testing.T) {
	verifyNoLeaks(t)

	var (
		mu   sync.Mutex
		runs int
	)
	d := bootstrap(t, func(c *config.AppConfig) { c.Transition.GateTimeout = 2 * time.Second }, Options{
		Loader: scene.NewMemoryLoader("menu", "gameplay"),
		Participants: []orchestrator.Participant{
			orchestrator.ParticipantFunc{ID: "players", ScopeValue: model.ScopePlayers, Fn: func(context.Context, model.Context) error {
				mu.Lock()
				runs++
				mu.Unlock()
				return nil
			}},
		},
	})
	require.NotNil(t, d.Bridge)

	var results []BridgeResult
	stop, err := d.Bridge.Start(context.Background(), func(br BridgeResult) {
		mu.Lock()
		results = append(results, br)
		mu.Unlock()
	})
	require.NoError(t, err)

	plan := transition.Plan{
		Context: scene.TransitionContext{Signature: "menu->gameplay", FromRoute: "menu", ToRoute: "gameplay"},
		Load:    []string{"gameplay"},
		Unload:  []string{"menu"},
		Active:  "gameplay",
	}
	// The same route twice: each transition waits for its own reset.
	for i := 0; i < 2; i++ {
		out, err := d.Transitions.Run(context.Background(), plan)
		require.NoError(t, err, "run %d", i)
		assert.Equal(t, transition.StateCompleted, out.State)
	}
	stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, runs)
	require.Len(t, results, 2)
	for _, br := range results {
		require.NoError(t, br.Err)
		assert.True(t, br.Result.Decision.IsProceed())
		assert.Equal(t, "menu->gameplay", br.Ready.Context.Signature)
	}
	assert.False(t, d.CompletionGate.Seen("menu->gameplay"), "no completion left over for a later transition")
}
