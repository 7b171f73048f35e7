// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/worldflow/internal/config"
	"github.com/ManuGH/worldflow/internal/daemon"
	"github.com/ManuGH/worldflow/internal/reset/model"
	"github.com/ManuGH/worldflow/internal/reset/orchestrator"
	"github.com/ManuGH/worldflow/internal/scene"
	"github.com/ManuGH/worldflow/internal/transition"
	"github.com/ManuGH/worldflow/internal/version"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const defaultSimulateGateTimeout = 10 * time.Second

type simulateOptions struct {
	signature string
	scene     string
	loadDelay time.Duration
	asJSON    bool
}

// simulation is the printable result of one simulated transition.
type simulation struct {
	Signature     string   `json:"contextSignature"`
	Scene         string   `json:"scene"`
	State         string   `json:"state"`
	History       []string `json:"history"`
	PreReveal     string   `json:"preReveal"`
	ResetDecision string   `json:"resetDecision"`
	ResetRan      []string `json:"resetRan"`
	WorldSteps    []string `json:"worldSteps"`
	DurationMS    int64    `json:"durationMs"`
	Error         string   `json:"error,omitempty"`
}

func newSimulateCmd(opts *rootOptions) *cobra.Command {
	so := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one in-memory scene transition bridged to a world reset",
		Long: `simulate loads a scene with the in-memory loader, waits for the scenes to be
ready, runs the matching world reset and prints the transition state history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			sim, err := runSimulation(cmd.Context(), cfg, *so)
			if perr := printSimulation(cmd.OutOrStdout(), sim, so.asJSON); perr != nil {
				return perr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&so.signature, "signature", "", "context signature (default: random)")
	cmd.Flags().StringVar(&so.scene, "scene", "gameplay", "scene to load and activate")
	cmd.Flags().DurationVar(&so.loadDelay, "load-delay", 0, "simulated per-scene load time")
	cmd.Flags().BoolVar(&so.asJSON, "json", false, "print the result as JSON")
	return cmd
}

// recordingWorld records the world rebuild steps.
type recordingWorld struct {
	mu    sync.Mutex
	steps []string
}

func (w *recordingWorld) record(step string) {
	w.mu.Lock()
	w.steps = append(w.steps, step)
	w.mu.Unlock()
}

func (w *recordingWorld) Despawn(context.Context, model.Context) error {
	w.record("despawn")
	return nil
}

func (w *recordingWorld) Spawn(context.Context, model.Context) error {
	w.record("spawn")
	return nil
}

func (w *recordingWorld) Steps() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.steps...)
}

func runSimulation(ctx context.Context, cfg config.AppConfig, so simulateOptions) (simulation, error) {
	if so.signature == "" {
		so.signature = "sim-" + uuid.NewString()
	}
	if so.scene == "" {
		so.scene = "gameplay"
	}
	sim := simulation{Signature: so.signature, Scene: so.scene}

	// Simulations are self-contained.
	cfg.Bus.Backend = config.BusMemory
	cfg.QA.Enabled = false
	cfg.Telemetry.Enabled = false
	cfg.Transition.ResetOnReady = true
	if cfg.Transition.GateTimeout <= 0 {
		cfg.Transition.GateTimeout = defaultSimulateGateTimeout
	}

	world := &recordingWorld{}
	participant := func(name string, scope model.Scope, order int) orchestrator.Participant {
		return orchestrator.ParticipantFunc{ID: name, ScopeValue: scope, OrderValue: order, Fn: func(context.Context, model.Context) error {
			world.record("participant:" + name)
			return nil
		}}
	}
	deps, err := daemon.Bootstrap(ctx, cfg, daemon.Options{
		Version: version.Version,
		World:   world,
		Loader:  scene.NewMemoryLoader("menu", so.scene).WithDelay(so.loadDelay),
		Participants: []orchestrator.Participant{
			participant("players", model.ScopePlayers, 0),
			participant("boss", model.ScopeBoss, 10),
		},
	})
	if err != nil {
		return sim, err
	}
	defer func() { _ = deps.Close(context.WithoutCancel(ctx)) }()

	results := make(chan daemon.BridgeResult, 1)
	stop, err := deps.Bridge.Start(ctx, func(br daemon.BridgeResult) {
		select {
		case results <- br:
		default:
		}
	})
	if err != nil {
		return sim, err
	}
	defer stop()

	out, runErr := deps.Transitions.Run(ctx, transition.Plan{
		Context: scene.TransitionContext{Signature: so.signature, ToRoute: so.scene},
		Load:    []string{so.scene},
		Active:  so.scene,
	})
	// stop waits for a reset still running on the bridge.
	stop()

	select {
	case br := <-results:
		sim.ResetDecision = br.Result.Decision.Kind().String()
		sim.ResetRan = br.Result.Ran
		if br.Err != nil {
			runErr = errors.Join(runErr, br.Err)
		}
	default:
	}

	sim.State = string(out.State)
	for _, s := range out.History {
		sim.History = append(sim.History, string(s))
	}
	sim.PreReveal = string(out.PreReveal)
	sim.WorldSteps = world.Steps()
	sim.DurationMS = out.Duration.Milliseconds()
	if runErr != nil {
		sim.Error = runErr.Error()
	}
	return sim, runErr
}

func printSimulation(w io.Writer, sim simulation, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sim)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "signature:   %s\n", sim.Signature)
	fmt.Fprintf(&b, "scene:       %s\n", sim.Scene)
	fmt.Fprintf(&b, "reset:       %s %v\n", sim.ResetDecision, sim.ResetRan)
	fmt.Fprintf(&b, "world:       %s\n", strings.Join(sim.WorldSteps, ", "))
	fmt.Fprintf(&b, "history:     %s\n", strings.Join(sim.History, " -> "))
	fmt.Fprintf(&b, "pre-reveal:  %s\n", sim.PreReveal)
	fmt.Fprintf(&b, "final state: %s (%dms)\n", sim.State, sim.DurationMS)
	if sim.Error != "" {
		fmt.Fprintf(&b, "error:       %s\n", sim.Error)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
