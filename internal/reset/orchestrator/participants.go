// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	xglog "github.com/ManuGH/worldflow/internal/log"
	"github.com/ManuGH/worldflow/internal/metrics"
	"github.com/ManuGH/worldflow/internal/reset/model"
	"github.com/rs/zerolog"
)

// Participant resets one scope of the world.
type Participant interface {
	Scope() model.Scope
	Order() int
	Reset(ctx context.Context, rc model.Context) error
}

// Named is implemented by participants and hooks that want a log name.
type Named interface {
	Name() string
}

// ParticipantFunc adapts a function into a Participant.
type ParticipantFunc struct {
	ID         string
	ScopeValue model.Scope
	OrderValue int
	Fn         func(ctx context.Context, rc model.Context) error
}

func (p ParticipantFunc) Name() string       { return p.ID }
func (p ParticipantFunc) Scope() model.Scope { return p.ScopeValue }
func (p ParticipantFunc) Order() int         { return p.OrderValue }

func (p ParticipantFunc) Reset(ctx context.Context, rc model.Context) error {
	if p.Fn == nil {
		return nil
	}
	return p.Fn(ctx, rc)
}

// EmptyScopePolicy decides what an empty scope set selects.
type EmptyScopePolicy int

const (
	// RunAll treats an empty scope set as "no filter".
	RunAll EmptyScopePolicy = iota
	// RunNone treats an empty scope set as "nothing requested".
	RunNone
)

func (p EmptyScopePolicy) String() string {
	if p == RunNone {
		return "run_none"
	}
	return "run_all"
}

// ParseEmptyScopePolicy accepts "run_all" or "run_none".
func ParseEmptyScopePolicy(s string) (EmptyScopePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "run_all", "all":
		return RunAll, nil
	case "run_none", "none":
		return RunNone, nil
	default:
		return RunAll, fmt.Errorf("unknown empty scope policy %q", s)
	}
}

type participantEntry struct {
	p   Participant
	seq uint64
}

// Participants is the scope participant registry. Registration order breaks
// ties between equal orders.
type Participants struct {
	mu      sync.RWMutex
	entries []participantEntry
	nextSeq uint64
	empty   EmptyScopePolicy
	logger  zerolog.Logger
}

// NewParticipants returns an empty registry using the given empty-scope policy.
func NewParticipants(empty EmptyScopePolicy) *Participants {
	return &Participants{empty: empty, logger: xglog.WithComponent("reset.participants")}
}

// Register adds p and returns a function that removes it.
func (r *Participants) Register(p Participant) (unregister func()) {
	if p == nil {
		return func() {}
	}
	r.mu.Lock()
	seq := r.nextSeq
	r.nextSeq++
	r.entries = append(r.entries, participantEntry{p: p, seq: seq})
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

// Len returns the number of registered participants.
func (r *Participants) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// EmptyScopePolicy returns the configured empty-scope policy.
func (r *Participants) EmptyScopePolicy() EmptyScopePolicy { return r.empty }

// Describe lists the registered participants in execution order.
func (r *Participants) Describe() []Descriptor {
	entries := r.sorted(func(Participant) bool { return true })
	out := make([]Descriptor, 0, len(entries))
	for _, e := range entries {
		out = append(out, Descriptor{Name: nameOf(e.p), Scope: e.p.Scope().String(), Order: e.p.Order()})
	}
	return out
}

// Descriptor is a read-only view of a registration.
type Descriptor struct {
	Name  string `json:"name"`
	Scope string `json:"scope,omitempty"`
	Order int    `json:"order"`
}

// Select returns the participants rc selects, in execution order.
func (r *Participants) Select(rc model.Context) []Participant {
	var match func(Participant) bool
	switch {
	case rc.HasScopeFilter():
		match = func(p Participant) bool { return rc.ContainsScope(p.Scope()) }
	case r.empty == RunNone:
		match = func(Participant) bool { return false }
	default:
		match = func(Participant) bool { return true }
	}
	entries := r.sorted(match)
	out := make([]Participant, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.p)
	}
	return out
}

func (r *Participants) sorted(match func(Participant) bool) []participantEntry {
	r.mu.RLock()
	selected := make([]participantEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if match(e.p) {
			selected = append(selected, e)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(selected, func(i, j int) bool {
		oi, oj := selected[i].p.Order(), selected[j].p.Order()
		if oi != oj {
			return oi < oj
		}
		return selected[i].seq < selected[j].seq
	})
	return selected
}

// RunScopedReset awaits each selected participant in turn. A failing
// participant is reported and the rest still run; only a done context stops
// the run early.
func (r *Participants) RunScopedReset(ctx context.Context, rc model.Context) (Report, error) {
	rep := Report{Stage: "participants"}
	logger := xglog.WithContext(ctx, r.logger)

	for _, p := range r.Select(rc) {
		if err := ctx.Err(); err != nil {
			return rep, fmt.Errorf("scoped reset interrupted: %w", err)
		}
		name := nameOf(p)
		err := call(ctx, func(ctx context.Context) error { return p.Reset(ctx, rc) })
		rep.Ran = append(rep.Ran, name)
		if err != nil {
			rep.Failures = append(rep.Failures, Failure{Stage: rep.Stage, Name: name, Order: p.Order(), Err: err})
			metrics.RecordParticipantFailure(p.Scope().String())
			logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "reset.participant.failed").
				Str("participant", name).
				Str(xglog.FieldScope, p.Scope().String()).
				Int(xglog.FieldOrder, p.Order()).
				Msg("scope participant failed, continuing")
			continue
		}
		logger.Debug().
			Str("participant", name).
			Str(xglog.FieldScope, p.Scope().String()).
			Int(xglog.FieldOrder, p.Order()).
			Msg("scope participant reset")
	}
	return rep, nil
}

func nameOf(v any) string {
	if n, ok := v.(Named); ok && n.Name() != "" {
		return n.Name()
	}
	return fmt.Sprintf("%T", v)
}
