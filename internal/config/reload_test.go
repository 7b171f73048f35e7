// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHolder_ReloadNotifiesListeners(t *testing.T) {
	path := writeConfig(t, "runtime:\n  mode: strict\n")
	loader := NewLoader(path).WithEnvironment(noEnv())
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader)
	ch := make(chan AppConfig, 1)
	h.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte("runtime:\n  mode: release\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))

	assert.Equal(t, ModeRelease, h.Get().Runtime.Mode)
	select {
	case got := <-ch:
		assert.Equal(t, ModeRelease, got.Runtime.Mode)
	default:
		t.Fatal("listener not notified")
	}
}

func TestHolder_FailedReloadKeepsOldConfig(t *testing.T) {
	path := writeConfig(t, "runtime:\n  mode: release\n")
	loader := NewLoader(path).WithEnvironment(noEnv())
	initial, err := loader.Load()
	require.NoError(t, err)
	h := NewHolder(initial, loader)

	require.NoError(t, os.WriteFile(path, []byte("runtime:\n  mode: warp\n"), 0o600))
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, ModeRelease, h.Get().Runtime.Mode)
}

func TestHolder_WatchReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "runtime:\n  mode: strict\n")
	loader := NewLoader(path).WithEnvironment(noEnv())
	initial, err := loader.Load()
	require.NoError(t, err)

	h := NewHolder(initial, loader).WithDebounce(10 * time.Millisecond)
	ch := make(chan AppConfig, 4)
	h.RegisterListener(ch)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Watch(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// Give the watcher time to register before writing.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("runtime:\n  mode: release\n"), 0o600))

	select {
	case got := <-ch:
		assert.Equal(t, ModeRelease, got.Runtime.Mode)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not reload")
	}
}

func TestHolder_WatchWithoutFileWaitsForContext(t *testing.T) {
	h := NewHolder(Defaults(), NewLoader("").WithEnvironment(noEnv()))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, h.Watch(ctx))
}
