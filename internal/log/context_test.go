// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextWithSignature(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		sig  string
		want string
	}{
		{name: "nil context", ctx: nil, sig: "ctx-1", want: "ctx-1"},
		{name: "background context", ctx: context.Background(), sig: "ctx-2", want: "ctx-2"},
		{name: "empty signature", ctx: context.Background(), sig: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithSignature(tt.ctx, tt.sig)
			assert.Equal(t, tt.want, SignatureFromContext(ctx))
		})
	}
}

func TestFromContext_MissingValues(t *testing.T) {
	assert.Equal(t, "", RequestIDFromContext(nil))
	assert.Equal(t, "", SignatureFromContext(nil))
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
}

func TestWithContext_AddsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithSignature(ctx, "ctx-1")

	l := WithContext(ctx, logger)
	l.Info().Msg("x")

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "req-1", m[FieldRequestID])
	assert.Equal(t, "ctx-1", m[FieldContextSignature])
}

func TestWithContext_NoFieldsReturnsSameLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	l := WithContext(context.Background(), logger)
	l.Info().Msg("x")

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	_, has := m[FieldContextSignature]
	assert.False(t, has)
}
