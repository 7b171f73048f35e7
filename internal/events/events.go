// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package events defines the notifications exchanged between the reset
// pipeline, scene transitions and external drivers.
package events

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ManuGH/worldflow/internal/bus"
	"github.com/ManuGH/worldflow/internal/scene"
)

var ErrUnknownTopic = errors.New("unknown topic")

// WorldResetCompleted is published after every reset attempt that must
// release completion-gate awaiters, including validation skips.
type WorldResetCompleted struct {
	ContextSignature string `json:"contextSignature"`
	Reason           string `json:"reason"`
	Skipped          bool   `json:"skipped,omitempty"`
	Violation        bool   `json:"violation,omitempty"`
	Error            string `json:"error,omitempty"`
}

type ScenesReady struct {
	Context scene.TransitionContext `json:"context"`
}

type TransitionStarted struct {
	Context scene.TransitionContext `json:"context"`
}

type TransitionCompleted struct {
	Context scene.TransitionContext `json:"context"`
}

type TransitionFailed struct {
	Context scene.TransitionContext `json:"context"`
	State   string                  `json:"state"`
	Error   string                  `json:"error"`
}

type GateChanged struct {
	Open             bool   `json:"open"`
	ActiveTokenCount int    `json:"activeTokenCount"`
	Token            string `json:"token,omitempty"`
}

type Degraded struct {
	Feature   string `json:"feature"`
	Reason    string `json:"reason"`
	Detail    string `json:"detail,omitempty"`
	Signature string `json:"contextSignature,omitempty"`
	Profile   string `json:"profile,omitempty"`
}

var (
	TopicWorldResetCompleted bus.Topic[WorldResetCompleted] = "world.reset.completed"
	TopicScenesReady         bus.Topic[ScenesReady]         = "scene.ready"
	TopicTransitionStarted   bus.Topic[TransitionStarted]   = "scene.transition.started"
	TopicTransitionCompleted bus.Topic[TransitionCompleted] = "scene.transition.completed"
	TopicTransitionFailed    bus.Topic[TransitionFailed]    = "scene.transition.failed"
	TopicGateChanged         bus.Topic[GateChanged]         = "simgate.changed"
	TopicDegraded            bus.Topic[Degraded]            = "reset.degraded"
)

// Topics lists every known topic name.
func Topics() []string {
	return []string{
		TopicWorldResetCompleted.Name(),
		TopicScenesReady.Name(),
		TopicTransitionStarted.Name(),
		TopicTransitionCompleted.Name(),
		TopicTransitionFailed.Name(),
		TopicGateChanged.Name(),
		TopicDegraded.Name(),
	}
}

// Decode turns a JSON payload into the typed notification for topic. It is
// the decoder handed to bus.NewRedisBus.
func Decode(topic string, data []byte) (bus.Message, error) {
	switch topic {
	case TopicWorldResetCompleted.Name():
		return decodeAs[WorldResetCompleted](topic, data)
	case TopicScenesReady.Name():
		return decodeAs[ScenesReady](topic, data)
	case TopicTransitionStarted.Name():
		return decodeAs[TransitionStarted](topic, data)
	case TopicTransitionCompleted.Name():
		return decodeAs[TransitionCompleted](topic, data)
	case TopicTransitionFailed.Name():
		return decodeAs[TransitionFailed](topic, data)
	case TopicGateChanged.Name():
		return decodeAs[GateChanged](topic, data)
	case TopicDegraded.Name():
		return decodeAs[Degraded](topic, data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}
}

func decodeAs[T any](topic string, data []byte) (bus.Message, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", topic, err)
	}
	return v, nil
}
