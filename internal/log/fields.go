// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService          = "service"
	FieldVersion          = "version"
	FieldComponent        = "component"
	FieldEvent            = "event"
	FieldRequestID        = "request_id"
	FieldContextSignature = "context_signature"
	FieldSourceSignature  = "source_signature"
	FieldProfile          = "profile"

	// Reset fields
	FieldReason    = "reason"
	FieldDetail    = "detail"
	FieldOrigin    = "origin"
	FieldScope     = "scope"
	FieldScopes    = "scopes"
	FieldOrder     = "order"
	FieldDecision  = "decision"
	FieldViolation = "violation"
	FieldFeature   = "feature"
	FieldPolicy    = "policy"

	// Gate fields
	FieldToken        = "token"
	FieldTokenCount   = "token_count"
	FieldActiveTokens = "active_tokens"
	FieldGateOpen     = "gate_open"

	// Transition fields
	FieldOldState    = "old_state"
	FieldNewState    = "new_state"
	FieldScene       = "scene"
	FieldTargetScene = "target_scene"
	FieldFromRoute   = "from_route"
	FieldToRoute     = "to_route"

	// Loop fields
	FieldFrame = "frame"
	FieldTopic = "topic"
)
