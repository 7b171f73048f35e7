// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"

	xglog "github.com/ManuGH/worldflow/internal/log"
	"github.com/ManuGH/worldflow/internal/metrics"
	"github.com/ManuGH/worldflow/internal/reset/model"
	"github.com/rs/zerolog"
)

// OrderLast is the conventional order for hooks that must run after all others.
const OrderLast = 10000

// Point is a broadcast point around the despawn/spawn boundary.
type Point string

const (
	BeforeDespawn Point = "before_despawn"
	AfterDespawn  Point = "after_despawn"
	BeforeSpawn   Point = "before_spawn"
	AfterSpawn    Point = "after_spawn"
)

// Points lists the broadcast points in cycle order.
var Points = []Point{BeforeDespawn, AfterDespawn, BeforeSpawn, AfterSpawn}

// Hook observes the despawn/spawn cycle independent of scope.
type Hook interface {
	Order() int
	BeforeDespawn(ctx context.Context, rc model.Context) error
	AfterDespawn(ctx context.Context, rc model.Context) error
	BeforeSpawn(ctx context.Context, rc model.Context) error
	AfterSpawn(ctx context.Context, rc model.Context) error
}

// HookFuncs is a Hook whose callbacks are each optional.
type HookFuncs struct {
	ID              string
	OrderValue      int
	OnBeforeDespawn func(ctx context.Context, rc model.Context) error
	OnAfterDespawn  func(ctx context.Context, rc model.Context) error
	OnBeforeSpawn   func(ctx context.Context, rc model.Context) error
	OnAfterSpawn    func(ctx context.Context, rc model.Context) error
}

func (h HookFuncs) Name() string { return h.ID }
func (h HookFuncs) Order() int   { return h.OrderValue }

func (h HookFuncs) BeforeDespawn(ctx context.Context, rc model.Context) error {
	return invoke(ctx, rc, h.OnBeforeDespawn)
}

func (h HookFuncs) AfterDespawn(ctx context.Context, rc model.Context) error {
	return invoke(ctx, rc, h.OnAfterDespawn)
}

func (h HookFuncs) BeforeSpawn(ctx context.Context, rc model.Context) error {
	return invoke(ctx, rc, h.OnBeforeSpawn)
}

func (h HookFuncs) AfterSpawn(ctx context.Context, rc model.Context) error {
	return invoke(ctx, rc, h.OnAfterSpawn)
}

func invoke(ctx context.Context, rc model.Context, fn func(context.Context, model.Context) error) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, rc)
}

type hookEntry struct {
	h   Hook
	seq uint64
}

// Hooks is the lifecycle hook registry.
type Hooks struct {
	mu      sync.RWMutex
	entries []hookEntry
	nextSeq uint64
	logger  zerolog.Logger
}

// NewHooks returns an empty hook registry.
func NewHooks() *Hooks {
	return &Hooks{logger: xglog.WithComponent("reset.hooks")}
}

// Register adds h and returns a function that removes it.
func (r *Hooks) Register(h Hook) (unregister func()) {
	if h == nil {
		return func() {}
	}
	r.mu.Lock()
	seq := r.nextSeq
	r.nextSeq++
	r.entries = append(r.entries, hookEntry{h: h, seq: seq})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, e := range r.entries {
				if e.seq == seq {
					r.entries = append(r.entries[:i], r.entries[i+1:]...)
					return
				}
			}
		})
	}
}

// Len returns the number of registered hooks.
func (r *Hooks) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Describe lists the registered hooks in execution order.
func (r *Hooks) Describe() []Descriptor {
	ordered := r.ordered()
	out := make([]Descriptor, 0, len(ordered))
	for _, h := range ordered {
		out = append(out, Descriptor{Name: nameOf(h), Order: h.Order()})
	}
	return out
}

func (r *Hooks) ordered() []Hook {
	r.mu.RLock()
	entries := append([]hookEntry(nil), r.entries...)
	r.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool {
		oi, oj := entries[i].h.Order(), entries[j].h.Order()
		if oi != oj {
			return oi < oj
		}
		return entries[i].seq < entries[j].seq
	})
	out := make([]Hook, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.h)
	}
	return out
}

// Run awaits every hook's callback for point in ascending order. Failures are
// reported and do not stop the remaining hooks.
func (r *Hooks) Run(ctx context.Context, point Point, rc model.Context) (Report, error) {
	rep := Report{Stage: string(point)}
	logger := xglog.WithContext(ctx, r.logger)

	for _, h := range r.ordered() {
		if err := ctx.Err(); err != nil {
			return rep, fmt.Errorf("hook point %s interrupted: %w", point, err)
		}
		fn, err := callbackFor(h, point)
		if err != nil {
			return rep, err
		}
		name := nameOf(h)
		err = call(ctx, func(ctx context.Context) error { return fn(ctx, rc) })
		rep.Ran = append(rep.Ran, name)
		if err != nil {
			rep.Failures = append(rep.Failures, Failure{Stage: rep.Stage, Name: name, Order: h.Order(), Err: err})
			metrics.RecordHookFailure(string(point))
			logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "reset.hook.failed").
				Str("hook", name).
				Str("point", string(point)).
				Int(xglog.FieldOrder, h.Order()).
				Msg("lifecycle hook failed, continuing")
		}
	}
	return rep, nil
}

func callbackFor(h Hook, point Point) (func(context.Context, model.Context) error, error) {
	switch point {
	case BeforeDespawn:
		return h.BeforeDespawn, nil
	case AfterDespawn:
		return h.AfterDespawn, nil
	case BeforeSpawn:
		return h.BeforeSpawn, nil
	case AfterSpawn:
		return h.AfterSpawn, nil
	default:
		return nil, fmt.Errorf("unknown hook point %q", point)
	}
}
