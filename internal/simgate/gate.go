// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package simgate implements the simulation gate: a reference-counted token
// set that decides whether gameplay simulation may run. The gate is open
// exactly when no token is held.
package simgate

import (
	"errors"
	"sort"
	"strings"
	"sync"

	xglog "github.com/ManuGH/worldflow/internal/log"
	"github.com/ManuGH/worldflow/internal/metrics"
	"github.com/rs/zerolog"
)

// Well-known tokens.
const (
	TokenSceneTransition    = "flow.scene_transition"
	TokenGameplaySimulation = "flow.gameplay_simulation"
	TokenWorldReset         = "flow.world_reset"
)

// ErrEmptyToken is returned when acquiring a blank token.
var ErrEmptyToken = errors.New("simulation gate token is empty")

// Change is delivered to listeners when the gate flips.
type Change struct {
	Open             bool
	ActiveTokenCount int
	Token            string // token whose acquire/release caused the flip
}

// Listener observes gate flips. Listeners run synchronously on the mutating
// goroutine and must not acquire or release tokens themselves.
type Listener func(Change)

// TokenCount is one entry of a gate snapshot.
type TokenCount struct {
	Token string `json:"token"`
	Count int    `json:"count"`
}

// Gate is safe for concurrent use.
type Gate struct {
	// opMu serializes mutations together with their notifications so
	// listeners observe flips in the order they happened.
	opMu sync.Mutex

	mu        sync.RWMutex
	tokens    map[string]int
	listeners map[uint64]Listener
	nextID    uint64

	logger zerolog.Logger
}

// New returns an open gate.
func New() *Gate {
	g := &Gate{
		tokens:    make(map[string]int),
		listeners: make(map[uint64]Listener),
		logger:    xglog.WithComponent("simgate"),
	}
	metrics.SetSimGateState(true, 0)
	return g
}

// IsOpen reports whether simulation may run.
func (g *Gate) IsOpen() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.tokens) == 0
}

// ActiveTokenCount returns the number of distinct held tokens.
func (g *Gate) ActiveTokenCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.tokens)
}

// IsTokenActive reports whether token is held at least once.
func (g *Gate) IsTokenActive(token string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tokens[token] > 0
}

// TokenCount returns how many times token is currently held.
func (g *Gate) TokenCount(token string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.tokens[token]
}

// Snapshot returns the held tokens sorted by name.
func (g *Gate) Snapshot() []TokenCount {
	g.mu.RLock()
	out := make([]TokenCount, 0, len(g.tokens))
	for tok, n := range g.tokens {
		out = append(out, TokenCount{Token: tok, Count: n})
	}
	g.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out
}

// OnChange registers l and returns a function that unregisters it.
func (g *Gate) OnChange(l Listener) (unsubscribe func()) {
	if l == nil {
		return func() {}
	}
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = l
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.listeners, id)
			g.mu.Unlock()
		})
	}
}

// Acquire increments token's count and returns a handle whose Release undoes
// exactly this acquisition. Callers should defer the release.
func (g *Gate) Acquire(token string) (*Handle, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrEmptyToken
	}
	g.mutate(token, func(count int) int { return count + 1 })
	return &Handle{gate: g, token: token}, nil
}

// Release decrements token by one. Releasing an unheld token is a no-op and
// returns false.
func (g *Gate) Release(token string) bool {
	released := false
	g.mutate(token, func(count int) int {
		if count == 0 {
			return 0
		}
		released = true
		return count - 1
	})
	return released
}

// ReleaseAll forcibly zeroes token's count and returns the count it had.
// It is meant for emergencies and QA: it hides leaked handles.
func (g *Gate) ReleaseAll(token string) int {
	prev := 0
	g.mutate(token, func(count int) int {
		prev = count
		return 0
	})
	if prev > 0 {
		metrics.IncSimGateForcedRelease(token)
		g.logger.Warn().
			Str(xglog.FieldEvent, "simgate.release_all").
			Str(xglog.FieldToken, token).
			Int(xglog.FieldTokenCount, prev).
			Msg("simulation gate token forcibly released")
	}
	return prev
}

func (g *Gate) mutate(token string, next func(count int) int) {
	g.opMu.Lock()
	defer g.opMu.Unlock()

	g.mu.Lock()
	wasOpen := len(g.tokens) == 0
	n := next(g.tokens[token])
	if n <= 0 {
		delete(g.tokens, token)
	} else {
		g.tokens[token] = n
	}
	isOpen := len(g.tokens) == 0
	active := len(g.tokens)
	var listeners []Listener
	if wasOpen != isOpen {
		listeners = make([]Listener, 0, len(g.listeners))
		ids := make([]uint64, 0, len(g.listeners))
		for id := range g.listeners {
			ids = append(ids, id)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			listeners = append(listeners, g.listeners[id])
		}
	}
	g.mu.Unlock()

	metrics.SetSimGateState(isOpen, active)
	g.logger.Debug().
		Str(xglog.FieldToken, token).
		Int(xglog.FieldTokenCount, n).
		Int(xglog.FieldActiveTokens, active).
		Bool(xglog.FieldGateOpen, isOpen).
		Msg("simulation gate token updated")

	if wasOpen == isOpen {
		return
	}
	if isOpen {
		metrics.IncSimGateFlip("opened")
	} else {
		metrics.IncSimGateFlip("closed")
	}
	change := Change{Open: isOpen, ActiveTokenCount: active, Token: token}
	for _, l := range listeners {
		l(change)
	}
}

// Handle is one acquisition of a token. Release is idempotent.
type Handle struct {
	gate  *Gate
	token string
	once  sync.Once
}

// Token returns the token this handle holds.
func (h *Handle) Token() string {
	if h == nil {
		return ""
	}
	return h.token
}

// Release gives the acquisition back. Calls after the first are no-ops.
func (h *Handle) Release() {
	if h == nil || h.gate == nil {
		return
	}
	h.once.Do(func() {
		h.gate.Release(h.token)
	})
}
