// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transition

import (
	"context"
	"sync"

	"github.com/ManuGH/worldflow/internal/bus"
	"github.com/ManuGH/worldflow/internal/events"
	xglog "github.com/ManuGH/worldflow/internal/log"
	"github.com/ManuGH/worldflow/internal/scene"
	"github.com/rs/zerolog"
)

// CompletionGate lets a transition wait for an external operation before
// fade-out.
type CompletionGate interface {
	AwaitBeforeFadeOut(ctx context.Context, tc scene.TransitionContext) error
}

// NoopGate resolves immediately.
type NoopGate struct{}

func (NoopGate) AwaitBeforeFadeOut(context.Context, scene.TransitionContext) error { return nil }

const maxRememberedCompletions = 256

// ResetAwareGate resolves an await once a world reset completion with the
// same context signature has been published. A completion that arrives
// before the await is remembered and consumed by the first matching await,
// so a reused signature always waits for its own reset. Repeats of a
// completion that is still remembered are ignored.
type ResetAwareGate struct {
	mu sync.Mutex
	// completed holds early completions not yet consumed, oldest first in order.
	completed map[string]struct{}
	order     []string
	waiters   map[string][]chan struct{}
	stop      func()
	logger    zerolog.Logger
}

// NewResetAwareGate subscribes to reset completions on b. Close releases the
// subscription.
func NewResetAwareGate(ctx context.Context, b bus.Bus) (*ResetAwareGate, error) {
	g := &ResetAwareGate{
		completed: make(map[string]struct{}),
		waiters:   make(map[string][]chan struct{}),
		logger:    xglog.WithComponent("transition.gate"),
	}
	stop, err := events.TopicWorldResetCompleted.Listen(ctx, b, g.onCompleted)
	if err != nil {
		return nil, err
	}
	g.stop = stop
	return g, nil
}

func (g *ResetAwareGate) onCompleted(ev events.WorldResetCompleted) {
	sig := ev.ContextSignature

	g.mu.Lock()
	waiters := g.waiters[sig]
	if len(waiters) == 0 {
		if _, dup := g.completed[sig]; dup {
			g.mu.Unlock()
			g.logger.Debug().
				Str(xglog.FieldContextSignature, sig).
				Msg("duplicate reset completion ignored")
			return
		}
		g.completed[sig] = struct{}{}
		g.order = append(g.order, sig)
		if len(g.order) > maxRememberedCompletions {
			delete(g.completed, g.order[0])
			g.order = g.order[1:]
		}
	}
	delete(g.waiters, sig)
	g.mu.Unlock()

	for _, ch := range waiters {
		close(ch)
	}
	g.logger.Debug().
		Str(xglog.FieldContextSignature, sig).
		Int("waiters", len(waiters)).
		Str(xglog.FieldReason, ev.Reason).
		Msg("reset completion received")
}

// AwaitBeforeFadeOut blocks until the completion for tc.Signature is seen or
// ctx is done. A remembered early completion is consumed.
func (g *ResetAwareGate) AwaitBeforeFadeOut(ctx context.Context, tc scene.TransitionContext) error {
	sig := tc.Signature

	g.mu.Lock()
	if _, ok := g.completed[sig]; ok {
		g.forgetLocked(sig)
		g.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	g.waiters[sig] = append(g.waiters[sig], ch)
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		g.dropWaiter(sig, ch)
		return ctx.Err()
	}
}

func (g *ResetAwareGate) forgetLocked(sig string) {
	delete(g.completed, sig)
	for i, s := range g.order {
		if s == sig {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}

func (g *ResetAwareGate) dropWaiter(sig string, ch chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	list := g.waiters[sig]
	for i, c := range list {
		if c == ch {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(g.waiters, sig)
	} else {
		g.waiters[sig] = list
	}
}

// Seen reports whether an unconsumed completion for sig is remembered.
func (g *ResetAwareGate) Seen(sig string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.completed[sig]
	return ok
}

// Pending returns the number of blocked awaits.
func (g *ResetAwareGate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, l := range g.waiters {
		n += len(l)
	}
	return n
}

func (g *ResetAwareGate) Close() {
	if g.stop != nil {
		g.stop()
	}
}

var (
	_ CompletionGate = NoopGate{}
	_ CompletionGate = (*ResetAwareGate)(nil)
)
