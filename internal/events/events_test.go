// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package events

import (
	"encoding/json"
	"testing"

	"github.com/ManuGH/worldflow/internal/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_KnownTopics(t *testing.T) {
	tests := []struct {
		topic string
		in    any
	}{
		{TopicWorldResetCompleted.Name(), WorldResetCompleted{ContextSignature: "ctx-1", Reason: "x", Skipped: true, Violation: true}},
		{TopicScenesReady.Name(), ScenesReady{Context: scene.TransitionContext{Signature: "ctx-1", ToRoute: "gameplay"}}},
		{TopicTransitionFailed.Name(), TransitionFailed{Context: scene.TransitionContext{Signature: "ctx-2"}, State: "Loading", Error: "boom"}},
		{TopicGateChanged.Name(), GateChanged{Open: false, ActiveTokenCount: 1, Token: "flow.scene_transition"}},
		{TopicDegraded.Name(), Degraded{Feature: "ResetGuard", Reason: "DEGRADED_MODE"}},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			data, err := json.Marshal(tt.in)
			require.NoError(t, err)
			got, err := Decode(tt.topic, data)
			require.NoError(t, err)
			assert.Equal(t, tt.in, got)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode("nope", []byte(`{}`))
	require.ErrorIs(t, err, ErrUnknownTopic)

	_, err = Decode(TopicScenesReady.Name(), []byte(`{`))
	require.Error(t, err)
}

func TestTopics_Unique(t *testing.T) {
	seen := map[string]bool{}
	for _, name := range Topics() {
		assert.False(t, seen[name], name)
		seen[name] = true
	}
	assert.Len(t, seen, 7)
}
