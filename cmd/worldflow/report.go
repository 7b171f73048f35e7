// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"time"

	"github.com/ManuGH/worldflow/internal/config"
	"github.com/ManuGH/worldflow/internal/daemon"
	"github.com/ManuGH/worldflow/internal/events"
	"github.com/ManuGH/worldflow/internal/reset/orchestrator"
	"github.com/ManuGH/worldflow/internal/simgate"
	"github.com/ManuGH/worldflow/internal/version"
	"github.com/google/renameio/v2"
	"github.com/spf13/cobra"
)

// snapshot is the diagnostic report written by the report command.
type snapshot struct {
	Version      string                    `json:"version"`
	GoVersion    string                    `json:"go_version"`
	GeneratedAt  time.Time                 `json:"generated_at"`
	Mode         string                    `json:"mode"`
	Policy       string                    `json:"policy"`
	Gate         gateSnapshot              `json:"gate"`
	EmptyScope   string                    `json:"empty_scope_policy"`
	Participants []orchestrator.Descriptor `json:"participants"`
	Hooks        []orchestrator.Descriptor `json:"hooks"`
	Topics       []string                  `json:"topics"`
	Config       config.AppConfig          `json:"config"`
}

type gateSnapshot struct {
	Open   bool                 `json:"open"`
	Tokens []simgate.TokenCount `json:"tokens"`
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a diagnostic snapshot of the wired runtime",
		Long: `report builds the runtime from the configuration and writes a JSON snapshot
of the gate state, registered participants and hooks and the effective config.
With --out the file is replaced atomically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			snap, err := buildSnapshot(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(snap, "", "  ")
			if err != nil {
				return fmt.Errorf("encode report: %w", err)
			}
			data = append(data, '\n')
			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := writeReport(out, data); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written: %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output file (default: stdout)")
	return cmd
}

func buildSnapshot(ctx context.Context, cfg config.AppConfig) (snapshot, error) {
	// The snapshot never needs exporters.
	cfg.Telemetry.Enabled = false

	deps, err := daemon.Bootstrap(ctx, cfg, daemon.Options{Version: version.Version})
	if err != nil {
		return snapshot{}, fmt.Errorf("bootstrap: %w", err)
	}
	defer func() { _ = deps.Close(context.WithoutCancel(ctx)) }()

	participants := deps.Resets.Participants()
	return snapshot{
		Version:      version.Version,
		GoVersion:    runtime.Version(),
		GeneratedAt:  time.Now().UTC(),
		Mode:         deps.Mode.Current().String(),
		Policy:       deps.Policy.Name(),
		Gate:         gateSnapshot{Open: deps.Gate.IsOpen(), Tokens: deps.Gate.Snapshot()},
		EmptyScope:   participants.EmptyScopePolicy().String(),
		Participants: participants.Describe(),
		Hooks:        deps.Resets.Hooks().Describe(),
		Topics:       events.Topics(),
		Config:       cfg,
	}, nil
}

// writeReport replaces path atomically: fsync before rename.
func writeReport(path string, data []byte) error {
	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return fmt.Errorf("create pending report file: %w", err)
	}
	defer func() { _ = pendingFile.Cleanup() }()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write report data: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace report file: %w", err)
	}
	return nil
}
