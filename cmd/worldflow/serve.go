// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"

	"github.com/ManuGH/worldflow/internal/config"
	"github.com/ManuGH/worldflow/internal/daemon"
	xglog "github.com/ManuGH/worldflow/internal/log"
	"github.com/ManuGH/worldflow/internal/version"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the driver loop and the QA control surface",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return serve(cmd.Context(), opts.configPath, cfg)
		},
	}
}

func serve(ctx context.Context, configPath string, cfg config.AppConfig) error {
	logger := xglog.WithComponent("daemon")
	logger.Info().
		Str(xglog.FieldEvent, "config.loaded").
		Str("path", configPath).
		Str("mode", cfg.Runtime.Mode).
		Bool("qa_enabled", cfg.QA.Enabled).
		Msg("starting worldflow")

	deps, err := daemon.Bootstrap(ctx, cfg, daemon.Options{Version: version.Version})
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	var holder *config.Holder
	if configPath != "" {
		holder = config.NewHolder(cfg, config.NewLoader(configPath))
	}
	app, err := daemon.NewApp(deps, holder)
	if err != nil {
		_ = deps.Close(context.WithoutCancel(ctx))
		return err
	}
	return app.Run(ctx)
}
