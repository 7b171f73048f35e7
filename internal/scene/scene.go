// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package scene declares the engine capabilities a scene transition consumes:
// loading/unloading scenes and fading the screen. Implementations live in the
// host engine; this package only ships the no-op fade and an in-memory loader.
package scene

import "context"

// TransitionContext identifies one scene transition. Signature correlates the
// transition with its completion gate and with reset-completion notifications.
type TransitionContext struct {
	Signature string `json:"contextSignature"`
	ProfileID string `json:"profileId,omitempty"`
	FromRoute string `json:"fromRoute,omitempty"`
	ToRoute   string `json:"toRoute,omitempty"`
}

// Loader is the engine's scene-loading primitive.
type Loader interface {
	LoadScene(ctx context.Context, name string) error
	UnloadScene(ctx context.Context, name string) error
	IsSceneLoaded(name string) bool
	SetActiveScene(name string) bool
	ActiveSceneName() string
}

// FadeAdapter drives the screen fade. Signature is optional.
type FadeAdapter interface {
	IsAvailable() bool
	Configure(profileID string)
	FadeIn(ctx context.Context, signature string) error
	FadeOut(ctx context.Context, signature string) error
}

// NoopFade is a valid FadeAdapter that never suspends.
type NoopFade struct{}

func (NoopFade) IsAvailable() bool                     { return false }
func (NoopFade) Configure(string)                      {}
func (NoopFade) FadeIn(context.Context, string) error  { return nil }
func (NoopFade) FadeOut(context.Context, string) error { return nil }

var _ FadeAdapter = NoopFade{}
