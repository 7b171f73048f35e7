// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"strings"
)

// Context describes what a reset should touch. An empty scope set means
// "no scope filter"; how the orchestrator treats that is configurable.
type Context struct {
	reason string
	scopes []Scope
	flags  Flags
}

// NewContext builds a reset context. Duplicate scopes are dropped while the
// first-seen order is kept.
func NewContext(reason string, flags Flags, scopes ...Scope) Context {
	if strings.TrimSpace(reason) == "" {
		reason = DefaultReason
	}
	var set []Scope
	for _, s := range scopes {
		dup := false
		for _, existing := range set {
			if existing == s {
				dup = true
				break
			}
		}
		if !dup {
			set = append(set, s)
		}
	}
	return Context{reason: reason, scopes: set, flags: flags}
}

func (c Context) Reason() string {
	if c.reason == "" {
		return DefaultReason
	}
	return c.reason
}

func (c Context) Flags() Flags { return c.flags }

// Scopes returns a copy of the requested scopes in insertion order.
func (c Context) Scopes() []Scope {
	if len(c.scopes) == 0 {
		return nil
	}
	out := make([]Scope, len(c.scopes))
	copy(out, c.scopes)
	return out
}

// HasScopeFilter reports whether at least one scope was requested.
func (c Context) HasScopeFilter() bool {
	return len(c.scopes) > 0
}

// ContainsScope is false whenever no scope was requested.
func (c Context) ContainsScope(s Scope) bool {
	for _, existing := range c.scopes {
		if existing == s {
			return true
		}
	}
	return false
}

// IsSoft reports a scoped soft reset (participants only, no despawn/spawn cycle).
func (c Context) IsSoft() bool {
	return c.flags.Has(FlagSoftReset)
}

// ScopeNames renders the scopes for logs.
func (c Context) ScopeNames() []string {
	out := make([]string, 0, len(c.scopes))
	for _, s := range c.scopes {
		out = append(out, s.String())
	}
	return out
}
