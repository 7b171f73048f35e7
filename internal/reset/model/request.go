// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"strings"
	"time"
)

// DefaultReason replaces a blank reason on requests and contexts.
const DefaultReason = "Unspecified"

// Request is an immutable reset request. It is passed by value; nothing in
// the pipeline mutates a request after NewRequest returns it.
type Request struct {
	ContextSignature  string
	Reason            string
	ProfileName       string
	TargetScene       string
	Origin            Origin
	SourceSignature   string
	IsGameplayProfile bool
	CreatedAt         time.Time
}

// NewRequest normalizes the blank reason and stamps CreatedAt when unset.
// An empty ContextSignature is kept as-is: validators treat it as a violation.
func NewRequest(r Request) Request {
	if strings.TrimSpace(r.Reason) == "" {
		r.Reason = DefaultReason
	}
	if r.Origin == "" {
		r.Origin = OriginManual
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	return r
}

// HasSignature reports whether the request carries a non-blank context signature.
func (r Request) HasSignature() bool {
	return strings.TrimSpace(r.ContextSignature) != ""
}
