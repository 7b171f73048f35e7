// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"fmt"
	"io"

	"github.com/ManuGH/worldflow/internal/config"
	xglog "github.com/ManuGH/worldflow/internal/log"
	"github.com/ManuGH/worldflow/internal/version"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "worldflow",
		Short: "Deterministic world resets and scene transition sync",
		Long: `worldflow drives world resets and scene transitions so that the
screen only fades back in after the world belonging to the new scene has
been rebuilt.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (YAML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level")

	cmd.AddCommand(
		newServeCmd(opts),
		newSimulateCmd(opts),
		newReportCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// loadConfig loads the configuration and configures logging to w.
func (o *rootOptions) loadConfig(w io.Writer) (config.AppConfig, error) {
	cfg, err := config.NewLoader(o.configPath).Load()
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	xglog.Configure(xglog.Config{
		Level:      cfg.Log.Level,
		Output:     w,
		Service:    "worldflow",
		Version:    version.Version,
		Categories: cfg.Log.Categories,
	})
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "worldflow %s\n", version.String())
		},
	}
}
