// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package scene

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrSceneNotFound is returned by MemoryLoader for scenes outside its catalog.
var ErrSceneNotFound = errors.New("scene not found")

// MemoryLoader is an in-process Loader over a fixed scene catalog. It backs
// the simulate command and tests.
type MemoryLoader struct {
	mu      sync.RWMutex
	catalog map[string]struct{}
	loaded  map[string]struct{}
	active  string
	delay   time.Duration
	fail    map[string]error
}

// NewMemoryLoader returns a loader that knows the given scenes. An empty
// catalog accepts any scene name.
func NewMemoryLoader(scenes ...string) *MemoryLoader {
	m := &MemoryLoader{
		catalog: make(map[string]struct{}, len(scenes)),
		loaded:  make(map[string]struct{}),
		fail:    make(map[string]error),
	}
	for _, s := range scenes {
		m.catalog[s] = struct{}{}
	}
	return m
}

// WithDelay makes every load/unload suspend for d.
func (m *MemoryLoader) WithDelay(d time.Duration) *MemoryLoader {
	m.delay = d
	return m
}

// FailOn makes loading name return err.
func (m *MemoryLoader) FailOn(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[name] = err
}

func (m *MemoryLoader) wait(ctx context.Context) error {
	if m.delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MemoryLoader) known(name string) bool {
	if len(m.catalog) == 0 {
		return true
	}
	_, ok := m.catalog[name]
	return ok
}

func (m *MemoryLoader) LoadScene(ctx context.Context, name string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail[name]; err != nil {
		return err
	}
	if !m.known(name) {
		return fmt.Errorf("load %q: %w", name, ErrSceneNotFound)
	}
	m.loaded[name] = struct{}{}
	return nil
}

func (m *MemoryLoader) UnloadScene(ctx context.Context, name string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.loaded, name)
	if m.active == name {
		m.active = ""
	}
	return nil
}

func (m *MemoryLoader) IsSceneLoaded(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.loaded[name]
	return ok
}

func (m *MemoryLoader) SetActiveScene(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.loaded[name]; !ok {
		return false
	}
	m.active = name
	return true
}

func (m *MemoryLoader) ActiveSceneName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// LoadedScenes returns the loaded scene names sorted.
func (m *MemoryLoader) LoadedScenes() []string {
	m.mu.RLock()
	out := make([]string, 0, len(m.loaded))
	for s := range m.loaded {
		out = append(out, s)
	}
	m.mu.RUnlock()
	sort.Strings(out)
	return out
}

var _ Loader = (*MemoryLoader)(nil)
