// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon wires the worldflow runtime: dependency container, driver
// loop and the App lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/worldflow/internal/bus"
	"github.com/ManuGH/worldflow/internal/config"
	"github.com/ManuGH/worldflow/internal/events"
	"github.com/ManuGH/worldflow/internal/health"
	xglog "github.com/ManuGH/worldflow/internal/log"
	"github.com/ManuGH/worldflow/internal/reset"
	"github.com/ManuGH/worldflow/internal/reset/orchestrator"
	"github.com/ManuGH/worldflow/internal/reset/policy"
	"github.com/ManuGH/worldflow/internal/scene"
	"github.com/ManuGH/worldflow/internal/simgate"
	"github.com/ManuGH/worldflow/internal/telemetry"
	"github.com/ManuGH/worldflow/internal/transition"
	"github.com/redis/go-redis/v9"
)

// notifyTimeout bounds publishes issued from synchronous callbacks (gate
// flips, degraded reports) so a slow subscriber cannot stall the caller.
const notifyTimeout = 250 * time.Millisecond

// Options supplies the embedder's collaborators. All fields are optional.
type Options struct {
	Version string

	World        reset.World
	Participants []orchestrator.Participant
	Hooks        []orchestrator.Hook

	// Loader defaults to an empty in-memory loader.
	Loader    scene.Loader
	Fade      scene.FadeAdapter
	PreReveal transition.PreRevealFunc

	// RedisClient replaces the client built from Bus.RedisAddr.
	RedisClient *redis.Client
}

// Bootstrap builds the dependency graph from cfg. On error every resource
// opened so far is released.
func Bootstrap(ctx context.Context, cfg config.AppConfig, opts Options) (deps *Deps, err error) {
	logger := xglog.WithComponent("daemon")

	mode, err := policy.ParseMode(cfg.Runtime.Mode)
	if err != nil {
		return nil, err
	}
	emptyScope, err := orchestrator.ParseEmptyScopePolicy(cfg.Reset.EmptyScopePolicy)
	if err != nil {
		return nil, err
	}

	d := &Deps{Config: cfg, Mode: policy.NewAtomicMode(mode)}
	defer func() {
		if err != nil {
			_ = d.Close(context.Background())
		}
	}()

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    "worldflow",
		ServiceVersion: opts.Version,
		Environment:    mode.String(),
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	d.onClose("telemetry", tp.Shutdown)

	// The sink reads d.Bus lazily: reports raised while the bus is still
	// being built are only logged.
	d.Reporter = policy.NewDegradedReporter(policy.ReporterConfig{
		RatePerSecond: cfg.Degraded.RatePerSecond,
		Burst:         cfg.Degraded.Burst,
		Sink: func(rep policy.Degraded) {
			if d.Bus == nil {
				return
			}
			notify(func(ctx context.Context) error {
				return events.TopicDegraded.Publish(ctx, d.Bus, events.Degraded(rep))
			})
		},
	})
	d.Policy = policy.NewDefault(d.Mode, d.Reporter)

	if err := d.buildBus(ctx, cfg.Bus, opts.RedisClient); err != nil {
		return nil, err
	}

	d.Gate = simgate.New()
	unsubscribe := d.Gate.OnChange(func(c simgate.Change) {
		notify(func(ctx context.Context) error {
			return events.TopicGateChanged.Publish(ctx, d.Bus, events.GateChanged{
				Open:             c.Open,
				ActiveTokenCount: c.ActiveTokenCount,
				Token:            c.Token,
			})
		})
	})
	d.onClose("simgate.listener", func(context.Context) error {
		unsubscribe()
		return nil
	})

	participants := orchestrator.NewParticipants(emptyScope)
	for _, p := range opts.Participants {
		participants.Register(p)
	}
	hooks := orchestrator.NewHooks()
	for _, h := range opts.Hooks {
		hooks.Register(h)
	}

	d.Resets, err = reset.NewService(reset.Options{
		Policy:       d.Policy,
		Bus:          d.Bus,
		Gate:         d.Gate,
		Participants: participants,
		Hooks:        hooks,
		World:        opts.World,
	})
	if err != nil {
		return nil, fmt.Errorf("init reset service: %w", err)
	}

	d.CompletionGate, err = transition.NewResetAwareGate(context.WithoutCancel(ctx), d.Bus)
	if err != nil {
		return nil, fmt.Errorf("init completion gate: %w", err)
	}
	d.onClose("transition.gate", func(context.Context) error {
		d.CompletionGate.Close()
		return nil
	})

	loader := opts.Loader
	if loader == nil {
		loader = scene.NewMemoryLoader()
	}
	d.Transitions, err = transition.NewService(transition.Options{
		Loader:           loader,
		Fade:             opts.Fade,
		Gate:             d.CompletionGate,
		Bus:              d.Bus,
		SimGate:          d.Gate,
		PreReveal:        opts.PreReveal,
		PreRevealTimeout: cfg.Transition.PreRevealTimeout,
		GateTimeout:      cfg.Transition.GateTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("init transition service: %w", err)
	}

	if cfg.Transition.ResetOnReady {
		d.Bridge = NewSceneResetBridge(d.Resets, d.Bus)
	}

	d.Health = health.NewManager(opts.Version)
	d.Health.RegisterChecker(health.NewModeChecker(d.Mode.IsStrict))
	if d.Redis != nil {
		d.Health.RegisterChecker(health.NewRedisChecker(d.Redis))
	}

	logger.Info().
		Str(xglog.FieldEvent, "daemon.bootstrap").
		Str(xglog.FieldPolicy, d.Policy.Name()).
		Str("mode", mode.String()).
		Str("bus", cfg.Bus.Backend).
		Str("empty_scope_policy", emptyScope.String()).
		Int("participants", participants.Len()).
		Int("hooks", hooks.Len()).
		Bool("reset_on_ready", d.Bridge != nil).
		Msg("runtime wired")

	return d, nil
}

// buildBus selects the bus backend. An unreachable Redis fails in strict
// mode; release mode reports it degraded and falls back to the memory bus.
func (d *Deps) buildBus(ctx context.Context, cfg config.BusConfig, client *redis.Client) error {
	switch cfg.Backend {
	case "", config.BusMemory:
		d.Bus = bus.NewMemoryBus()
		return nil
	case config.BusRedis:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedBus, cfg.Backend)
	}

	owned := client == nil
	if owned {
		client = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		if owned {
			_ = client.Close()
		}
		if d.Mode.IsStrict() {
			return fmt.Errorf("connect redis bus %s: %w", cfg.RedisAddr, err)
		}
		d.Policy.ReportDegraded(policy.Degraded{
			Feature: "Bus",
			Reason:  "RedisUnavailable",
			Detail:  err.Error(),
		})
		d.Bus = bus.NewMemoryBus()
		return nil
	}

	d.Redis = client
	if owned {
		d.onClose("redis", func(context.Context) error { return client.Close() })
	}
	d.Bus = bus.NewRedisBus(client, cfg.ChannelPrefix, events.Decode)
	return nil
}

// Close releases everything Bootstrap opened, in reverse order.
func (d *Deps) Close(ctx context.Context) error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		c := d.closers[i]
		if err := c.fn(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

func notify(publish func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := publish(ctx); err != nil {
		logger := xglog.WithComponent("daemon")
		logger.Debug().Err(err).Msg("notification dropped")
	}
}
