// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func attrMap(attrs []attribute.KeyValue) map[string]attribute.Value {
	out := make(map[string]attribute.Value, len(attrs))
	for _, kv := range attrs {
		out[string(kv.Key)] = kv.Value
	}
	return out
}

func TestResetAttributes(t *testing.T) {
	m := attrMap(ResetAttributes("ctx-1", "Boss", "Qa", []string{"Boss"}, true))
	assert.Equal(t, "ctx-1", m[ContextSignatureKey].AsString())
	assert.Equal(t, "Qa", m[ResetOriginKey].AsString())
	assert.True(t, m[ResetSoftKey].AsBool())
	assert.Equal(t, []string{"Boss"}, m[ResetScopesKey].AsStringSlice())

	m = attrMap(ResetAttributes("", "x", "Manual", nil, false))
	_, ok := m[ResetScopesKey]
	assert.False(t, ok)
}

func TestTransitionAttributes(t *testing.T) {
	tests := []struct {
		name              string
		profile, from, to string
		wantLen           int
	}{
		{"all fields", "startup", "menu", "gameplay", 4},
		{"only target", "", "", "gameplay", 2},
		{"signature only", "", "", "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attrs := TransitionAttributes("ctx-1", tt.profile, tt.from, tt.to)
			assert.Len(t, attrs, tt.wantLen)
		})
	}
}

func TestStartAndEndSpan_RecordsError(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	Install(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, ok := StartSpan(context.Background(), "reset.execute", ResetAttributes("ctx-1", "x", "Manual", nil, false)...)
	EndSpan(ok, nil, "")

	_, bad := StartSpan(context.Background(), "transition.run")
	EndSpan(bad, errors.New("load failed"), "transition_load")

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "reset.execute", spans[0].Name())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)

	assert.Equal(t, "transition.run", spans[1].Name())
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.Equal(t, "transition_load", attrMap(spans[1].Attributes())[ErrorTypeKey].AsString())
	require.Len(t, spans[1].Events(), 1)
}
