// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/worldflow/internal/config"
	"github.com/ManuGH/worldflow/internal/health"
	xglog "github.com/ManuGH/worldflow/internal/log"
	"github.com/ManuGH/worldflow/internal/qa"
	"github.com/ManuGH/worldflow/internal/reset/policy"
	"github.com/rs/zerolog"
)

// minStaleAfter is the floor for the driver liveness check.
const minStaleAfter = time.Second

// App owns the long-lived runtime lifecycle: driver loop, scene-flow reset
// bridge, config reload wiring and the QA server.
type App struct {
	logger       zerolog.Logger
	deps         *Deps
	cfgHolder    *config.Holder
	manager      Manager
	driver       *Driver
	reloadSignal os.Signal
}

// NewApp creates a new App. cfgHolder may be nil to disable reloading.
func NewApp(deps *Deps, cfgHolder *config.Holder) (*App, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config

	driver := NewDriver(deps.Reporter)
	if deps.Health != nil {
		staleAfter := 10 * cfg.Runtime.TickRate
		if staleAfter < minStaleAfter {
			staleAfter = minStaleAfter
		}
		deps.Health.RegisterChecker(health.NewTickChecker(driver.LastTick, staleAfter))
	}

	var mgr Manager
	if cfg.QA.Enabled {
		srv, err := qa.New(qa.Config{
			RequestLimit: cfg.QA.RequestLimit,
			Window:       cfg.QA.Window,
		}, deps.Gate, deps.Resets, deps.Transitions, deps.Health)
		if err != nil {
			return nil, err
		}
		mgr = NewManager(ServerConfig{ListenAddr: cfg.QA.ListenAddr}, srv.Handler())
	} else {
		mgr = NewManager(ServerConfig{}, nil)
	}
	mgr.RegisterShutdownHook("deps", deps.Close)

	return &App{
		logger:       xglog.WithComponent("app"),
		deps:         deps,
		cfgHolder:    cfgHolder,
		manager:      mgr,
		driver:       driver,
		reloadSignal: syscall.SIGHUP,
	}, nil
}

// Driver exposes the frame driver.
func (a *App) Driver() *Driver { return a.driver }

// Run starts all owned background subsystems and blocks until ctx is cancelled or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	// The bridge subscribes before the QA server listens so no ScenesReady
	// from an early transition request is missed.
	if a.deps.Bridge != nil {
		stopBridge, err := a.deps.Bridge.Start(ctx, nil)
		if err != nil {
			return errors.Join(fmt.Errorf("start scene reset bridge: %w", err), a.deps.Close(context.WithoutCancel(ctx)))
		}
		g.Go(func() error {
			<-ctx.Done()
			stopBridge()
			return nil
		})
	}

	g.Go(func() error {
		return a.driver.Run(ctx, a.deps.Config.Runtime.TickRate)
	})

	if a.cfgHolder != nil {
		// The watcher is best-effort: the runtime keeps its current config
		// when the file cannot be watched.
		g.Go(func() error {
			if err := a.cfgHolder.Watch(ctx); err != nil {
				a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_failed").Msg("config watcher stopped")
			}
			return nil
		})

		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.applyConfig(cfg)
				}
			}
		})

		if a.reloadSignal != nil {
			g.Go(func() error {
				hupChan := make(chan os.Signal, 1)
				signal.Notify(hupChan, a.reloadSignal)
				defer signal.Stop(hupChan)

				for {
					select {
					case <-ctx.Done():
						return nil
					case <-hupChan:
						a.logger.Info().
							Str(xglog.FieldEvent, "config.reload_signal").
							Str("signal", a.reloadSignal.String()).
							Msg("received reload signal, reloading config")
						if err := a.cfgHolder.Reload(ctx); err != nil {
							a.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.reload_failed").Msg("config reload failed")
						}
					}
				}
			})
		}
	}

	g.Go(func() error {
		return a.manager.Start(ctx)
	})

	return g.Wait()
}

// applyConfig applies the hot-reloadable subset of cfg: the runtime mode.
// Everything else takes effect on restart.
func (a *App) applyConfig(cfg config.AppConfig) {
	mode, err := policy.ParseMode(cfg.Runtime.Mode)
	if err != nil {
		a.logger.Warn().Err(err).Msg("ignoring invalid runtime mode from reload")
		return
	}
	prev := a.deps.Mode.Set(mode)
	if prev != mode {
		a.logger.Info().
			Str(xglog.FieldEvent, "runtime.mode_changed").
			Str(xglog.FieldOldState, prev.String()).
			Str(xglog.FieldNewState, mode.String()).
			Msg("runtime mode changed")
	}
}

// WaitForShutdown returns a context cancelled on interrupt/termination signals.
func WaitForShutdown() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
