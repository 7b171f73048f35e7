// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package policy

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Mode is the runtime mode: strict for development/diagnostic builds,
// release for shipped builds.
type Mode int32

const (
	ModeStrict Mode = iota
	ModeRelease
)

func (m Mode) String() string {
	if m == ModeRelease {
		return "release"
	}
	return "strict"
}

// ParseMode accepts "strict" or "release" (case-insensitive).
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict", "development", "dev":
		return ModeStrict, nil
	case "release", "production", "prod":
		return ModeRelease, nil
	default:
		return ModeStrict, fmt.Errorf("unknown runtime mode %q", s)
	}
}

// ModeProvider exposes the current runtime mode.
type ModeProvider interface {
	Current() Mode
	IsStrict() bool
}

// AtomicMode is a ModeProvider that can be flipped at runtime, e.g. on
// config reload.
type AtomicMode struct {
	v atomic.Int32
}

// NewAtomicMode returns a provider starting at m.
func NewAtomicMode(m Mode) *AtomicMode {
	a := &AtomicMode{}
	a.v.Store(int32(m))
	return a
}

func (a *AtomicMode) Current() Mode { return Mode(a.v.Load()) }

func (a *AtomicMode) IsStrict() bool { return a.Current() == ModeStrict }

// Set swaps the mode and returns the previous one.
func (a *AtomicMode) Set(m Mode) Mode {
	return Mode(a.v.Swap(int32(m)))
}
