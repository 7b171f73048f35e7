// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/worldflow/internal/config"
	"github.com/ManuGH/worldflow/internal/reset/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestApp_RunWithoutQA(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := config.Defaults()
	cfg.Runtime.TickRate = time.Millisecond
	d, err := Bootstrap(context.Background(), cfg, Options{})
	require.NoError(t, err)

	app, err := NewApp(d, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	require.Eventually(t, func() bool { return app.Driver().Frame() >= 2 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestApp_QAServer(t *testing.T) {
	addr := reserveListenAddr(t)
	cfg := config.Defaults()
	cfg.QA.Enabled = true
	cfg.QA.ListenAddr = addr
	cfg.Transition.GateTimeout = 2 * time.Second
	d, err := Bootstrap(context.Background(), cfg, Options{Version: "test"})
	require.NoError(t, err)

	app, err := NewApp(d, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	client := &http.Client{Transport: &http.Transport{}, Timeout: 5 * time.Second}
	defer client.CloseIdleConnections()

	require.NoError(t, waitForListen(addr, 2*time.Second))

	resp, err := client.Get("http://" + addr + "/v1/gate")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Open bool `json:"open"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Open)

	// The running bridge resets the world on ScenesReady, which releases the
	// transition's completion gate.
	tr, err := client.Post("http://"+addr+"/v1/transition", "application/json",
		strings.NewReader(`{"contextSignature":"qa-1","toRoute":"gameplay","load":["gameplay"],"active":"gameplay"}`))
	require.NoError(t, err)
	defer func() { _ = tr.Body.Close() }()
	require.Equal(t, http.StatusOK, tr.StatusCode)

	var outcome struct {
		State string `json:"state"`
	}
	require.NoError(t, json.NewDecoder(tr.Body).Decode(&outcome))
	assert.Equal(t, "Completed", outcome.State)

	require.Eventually(t, func() bool {
		r, err := client.Get("http://" + addr + "/readyz")
		if err != nil {
			return false
		}
		_ = r.Body.Close()
		return r.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)
}

func TestApp_ReloadFlipsMode(t *testing.T) {
	d, err := Bootstrap(context.Background(), config.Defaults(), Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close(context.Background()) })

	app, err := NewApp(d, nil)
	require.NoError(t, err)

	next := config.Defaults()
	next.Runtime.Mode = config.ModeRelease
	app.applyConfig(next)
	assert.Equal(t, policy.ModeRelease, d.Mode.Current())
	assert.False(t, d.Policy.IsStrict())

	next.Runtime.Mode = "bogus"
	app.applyConfig(next)
	assert.Equal(t, policy.ModeRelease, d.Mode.Current())
}

func TestNewApp_InvalidDeps(t *testing.T) {
	_, err := NewApp(&Deps{}, nil)
	assert.ErrorIs(t, err, ErrMissingMode)
}
