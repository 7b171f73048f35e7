// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// FuncChecker adapts a function into a Checker.
type FuncChecker struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

func NewFuncChecker(name string, fn func(ctx context.Context) CheckResult) *FuncChecker {
	return &FuncChecker{name: name, fn: fn}
}

func (c *FuncChecker) Name() string { return c.name }

func (c *FuncChecker) Check(ctx context.Context) CheckResult { return c.fn(ctx) }

// TickChecker reports whether the driver loop is still advancing frames.
type TickChecker struct {
	lastTick func() time.Time
	maxAge   time.Duration
}

// NewTickChecker flags the loop unhealthy once no tick happened for maxAge.
func NewTickChecker(lastTick func() time.Time, maxAge time.Duration) *TickChecker {
	return &TickChecker{lastTick: lastTick, maxAge: maxAge}
}

func (c *TickChecker) Name() string { return "driver_loop" }

func (c *TickChecker) Check(_ context.Context) CheckResult {
	last := c.lastTick()
	if last.IsZero() {
		return CheckResult{Status: StatusUnhealthy, Message: "no tick yet"}
	}
	age := time.Since(last)
	if age > c.maxAge {
		return CheckResult{
			Status:  StatusUnhealthy,
			Message: fmt.Sprintf("last tick %s ago", age.Round(time.Millisecond)),
		}
	}
	return CheckResult{Status: StatusHealthy, Message: "ticking"}
}

// RedisChecker pings the Redis notification bridge.
type RedisChecker struct {
	client  *redis.Client
	timeout time.Duration
}

func NewRedisChecker(client *redis.Client) *RedisChecker {
	return &RedisChecker{client: client, timeout: 2 * time.Second}
}

func (c *RedisChecker) Name() string { return "bus_redis" }

func (c *RedisChecker) Check(ctx context.Context) CheckResult {
	if c.client == nil {
		return CheckResult{Status: StatusHealthy, Message: "not configured (optional)"}
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.client.Ping(ctx).Err(); err != nil {
		return CheckResult{Status: StatusUnhealthy, Error: err.Error(), Message: "redis unreachable"}
	}
	return CheckResult{Status: StatusHealthy, Message: "redis reachable"}
}

// ModeChecker reports release mode as degraded: failures there are
// reported and absorbed instead of surfacing.
type ModeChecker struct {
	isStrict func() bool
}

func NewModeChecker(isStrict func() bool) *ModeChecker {
	return &ModeChecker{isStrict: isStrict}
}

func (c *ModeChecker) Name() string { return "runtime_mode" }

func (c *ModeChecker) Check(_ context.Context) CheckResult {
	if c.isStrict() {
		return CheckResult{Status: StatusHealthy, Message: "strict"}
	}
	return CheckResult{Status: StatusDegraded, Message: "release: degraded reporting active"}
}
