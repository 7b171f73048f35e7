// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Origin identifies who asked for a reset.
type Origin string

const (
	OriginSceneFlow         Origin = "SceneFlow"
	OriginManual            Origin = "Manual"
	OriginProductionTrigger Origin = "ProductionTrigger"
	OriginQA                Origin = "Qa"
)

// Valid reports whether o is one of the known origins.
func (o Origin) Valid() bool {
	switch o {
	case OriginSceneFlow, OriginManual, OriginProductionTrigger, OriginQA:
		return true
	}
	return false
}

// Scope is a named subset of world state a reset can target.
// The numeric value only orders display and logs; execution order comes
// from participant order.
type Scope int

const (
	ScopeWorld   Scope = 0
	ScopePlayers Scope = 1
	ScopeBoss    Scope = 2
	ScopeStage   Scope = 3
	ScopeCustom  Scope = 99
)

var scopeNames = map[Scope]string{
	ScopeWorld:   "World",
	ScopePlayers: "Players",
	ScopeBoss:    "Boss",
	ScopeStage:   "Stage",
	ScopeCustom:  "Custom",
}

func (s Scope) String() string {
	if name, ok := scopeNames[s]; ok {
		return name
	}
	return "Scope(" + strconv.Itoa(int(s)) + ")"
}

// Valid reports whether s is a member of the closed scope set.
func (s Scope) Valid() bool {
	_, ok := scopeNames[s]
	return ok
}

// ParseScope resolves a scope by name (case-insensitive).
func ParseScope(name string) (Scope, error) {
	trimmed := strings.TrimSpace(name)
	for s, n := range scopeNames {
		if strings.EqualFold(n, trimmed) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownScope, name)
}

// Flags selects the reset flavour. Neither bit set is a plain reset.
type Flags uint8

const (
	FlagSoftReset Flags = 1 << iota
	FlagHardReset
)

// Has reports whether every bit of f2 is set in f.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2 && f2 != 0
}

func (f Flags) String() string {
	switch {
	case f.Has(FlagSoftReset | FlagHardReset):
		return "Soft|Hard"
	case f.Has(FlagSoftReset):
		return "Soft"
	case f.Has(FlagHardReset):
		return "Hard"
	default:
		return "Plain"
	}
}
