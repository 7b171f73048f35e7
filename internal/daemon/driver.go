// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"sync/atomic"
	"time"

	xglog "github.com/ManuGH/worldflow/internal/log"
	"github.com/ManuGH/worldflow/internal/reset/policy"
	"github.com/rs/zerolog"
)

// Driver advances frames. Each frame is one degraded-report dedupe window.
type Driver struct {
	reporter *policy.DegradedReporter
	frame    atomic.Uint64
	lastTick atomic.Int64
	logger   zerolog.Logger
}

func NewDriver(reporter *policy.DegradedReporter) *Driver {
	return &Driver{reporter: reporter, logger: xglog.WithComponent("driver")}
}

// Tick advances the frame counter and opens a new dedupe frame.
func (d *Driver) Tick() uint64 {
	f := d.frame.Add(1)
	d.lastTick.Store(time.Now().UnixNano())
	if d.reporter != nil {
		d.reporter.BeginFrame(f)
	}
	return f
}

func (d *Driver) Frame() uint64 { return d.frame.Load() }

// LastTick returns the time of the latest Tick, zero before the first.
func (d *Driver) LastTick() time.Time {
	n := d.lastTick.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Run ticks every period until ctx is done.
func (d *Driver) Run(ctx context.Context, period time.Duration) error {
	if period <= 0 {
		period = 50 * time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	d.logger.Info().
		Str(xglog.FieldEvent, "driver.start").
		Dur("tick_rate", period).
		Msg("driver loop started")
	d.Tick()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info().
				Str(xglog.FieldEvent, "driver.stop").
				Uint64(xglog.FieldFrame, d.Frame()).
				Msg("driver loop stopped")
			return nil
		case <-ticker.C:
			d.Tick()
		}
	}
}
