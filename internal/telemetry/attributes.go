// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by reset and transition spans.
const (
	ContextSignatureKey = "worldflow.context_signature"

	ResetReasonKey   = "reset.reason"
	ResetOriginKey   = "reset.origin"
	ResetScopesKey   = "reset.scopes"
	ResetSoftKey     = "reset.soft"
	ResetDecisionKey = "reset.decision"
	ResetFailuresKey = "reset.failures"

	TransitionProfileKey = "transition.profile"
	TransitionFromKey    = "transition.from_route"
	TransitionToKey      = "transition.to_route"
	TransitionStateKey   = "transition.state"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// ResetAttributes creates reset span attributes.
func ResetAttributes(signature, reason, origin string, scopes []string, soft bool) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(ContextSignatureKey, signature),
		attribute.String(ResetReasonKey, reason),
		attribute.String(ResetOriginKey, origin),
		attribute.Bool(ResetSoftKey, soft),
	}
	if len(scopes) > 0 {
		attrs = append(attrs, attribute.StringSlice(ResetScopesKey, scopes))
	}
	return attrs
}

// TransitionAttributes creates scene transition span attributes. Empty
// routes and profile are omitted.
func TransitionAttributes(signature, profile, from, to string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	attrs = append(attrs, attribute.String(ContextSignatureKey, signature))
	if profile != "" {
		attrs = append(attrs, attribute.String(TransitionProfileKey, profile))
	}
	if from != "" {
		attrs = append(attrs, attribute.String(TransitionFromKey, from))
	}
	if to != "" {
		attrs = append(attrs, attribute.String(TransitionToKey, to))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}

// StartSpan starts a span on the worldflow tracer.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer(InstrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err (if any) and ends span.
func EndSpan(span trace.Span, err error, errorType string) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(ErrorAttributes(errorType)...)
	}
	span.End()
}
