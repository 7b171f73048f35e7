// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package qa

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/ManuGH/worldflow/internal/scene"
	"github.com/ManuGH/worldflow/internal/transition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransitioner struct {
	gotPlan transition.Plan
	out     transition.Outcome
	err     error
}

func (f *fakeTransitioner) Run(_ context.Context, plan transition.Plan) (transition.Outcome, error) {
	f.gotPlan = plan
	return f.out, f.err
}

func newTransitionServer(t *testing.T, tr Transitioner) http.Handler {
	t.Helper()
	srv, err := New(Config{RequestLimit: 100, Window: time.Minute}, nil, &fakeResetter{}, tr, nil)
	require.NoError(t, err)
	return srv.Handler()
}

func TestTransition_RunsPlan(t *testing.T) {
	svc, err := transition.NewService(transition.Options{Loader: scene.NewMemoryLoader("menu", "gameplay")})
	require.NoError(t, err)

	rec := do(t, newTransitionServer(t, svc), http.MethodPost, "/v1/transition",
		`{"contextSignature":"ctx-qa","profile":"startup","fromRoute":"menu","toRoute":"gameplay","load":["gameplay"],"active":"gameplay"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp TransitionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ctx-qa", resp.ContextSignature)
	assert.Equal(t, string(transition.StateCompleted), resp.State)
	assert.Equal(t, []string{
		string(transition.StateRequested), string(transition.StateFadeIn), string(transition.StateLoading),
		string(transition.StateScenesReady), string(transition.StateAwaitingCompletionGate),
		string(transition.StateFadeOut), string(transition.StateCompleted),
	}, resp.History)
}

func TestTransition_MapsPlanFields(t *testing.T) {
	ft := &fakeTransitioner{out: transition.Outcome{State: transition.StateCompleted}}
	rec := do(t, newTransitionServer(t, ft), http.MethodPost, "/v1/transition",
		`{"contextSignature":" ctx-1 ","profile":"p","fromRoute":"a","toRoute":"b","load":["b"],"unload":["a"],"active":"b"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, transition.Plan{
		Context: scene.TransitionContext{Signature: "ctx-1", ProfileID: "p", FromRoute: "a", ToRoute: "b"},
		Load:    []string{"b"},
		Unload:  []string{"a"},
		Active:  "b",
	}, ft.gotPlan)
}

func TestTransition_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"in flight", fmt.Errorf("%w: ctx-0", transition.ErrTransitionInFlight), http.StatusConflict},
		{"load failure", fmt.Errorf("%w: load %q: %w", transition.ErrTransitionLoad, "b", errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ft := &fakeTransitioner{out: transition.Outcome{State: transition.StateFailed}, err: tt.err}
			rec := do(t, newTransitionServer(t, ft), http.MethodPost, "/v1/transition", `{"contextSignature":"ctx-1"}`)
			require.Equal(t, tt.want, rec.Code)

			var resp TransitionResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.err.Error(), resp.Error)
		})
	}
}

func TestTransition_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{`},
		{"unknown field", `{"contextSignature":"a","scene":"x"}`},
		{"missing signature", `{"load":["gameplay"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTransitionServer(t, &fakeTransitioner{}), http.MethodPost, "/v1/transition", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestTransition_Unavailable(t *testing.T) {
	rec := do(t, newTransitionServer(t, nil), http.MethodPost, "/v1/transition", `{"contextSignature":"ctx-1"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
