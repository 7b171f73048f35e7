// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package validation

import (
	"testing"

	"github.com/ManuGH/worldflow/internal/reset/model"
	"github.com/ManuGH/worldflow/internal/reset/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strictPolicy() policy.Policy {
	return policy.NewDefault(policy.NewAtomicMode(policy.ModeStrict), nil)
}

func TestSignatureValidator_BlankSignatureIsViolation(t *testing.T) {
	for _, sig := range []string{"", " ", "\t\n"} {
		req := model.Request{ContextSignature: sig, Reason: "x"}
		d := SignatureValidator{}.Validate(req, strictPolicy())

		skip, ok := d.Skipped()
		require.True(t, ok, "signature %q", sig)
		assert.True(t, skip.IsViolation)
		assert.True(t, skip.ShouldPublishCompletion)
		assert.Equal(t, "x", skip.Reason)
		assert.Equal(t, DetailMissingSignature, skip.Detail)
	}
}

func TestSignatureValidator_BlankReasonFallsBack(t *testing.T) {
	d := SignatureValidator{}.Validate(model.Request{}, strictPolicy())
	skip, ok := d.Skipped()
	require.True(t, ok)
	assert.Equal(t, ReasonMissingSignature, skip.Reason)
}

func TestSignatureValidator_Proceeds(t *testing.T) {
	d := SignatureValidator{}.Validate(model.NewRequest(model.Request{ContextSignature: "ctx-1"}), strictPolicy())
	assert.True(t, d.IsProceed())
}

func TestPipeline_FirstFailureShortCircuits(t *testing.T) {
	var calls []string
	record := func(name string, d model.Decision) Validator {
		return Func{ID: name, Fn: func(model.Request, policy.Policy) model.Decision {
			calls = append(calls, name)
			return d
		}}
	}

	p := NewPipeline(
		record("a", model.Proceed()),
		nil,
		record("b", model.SkipWith(model.Skip{Reason: "b"})),
		record("c", model.SkipWith(model.Skip{Reason: "c"})),
	)
	assert.Equal(t, 3, p.Len())

	d := p.Validate(model.Request{ContextSignature: "s"}, strictPolicy())
	skip, ok := d.Skipped()
	require.True(t, ok)
	assert.Equal(t, "b", skip.Reason)
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestPipeline_AllProceed(t *testing.T) {
	p := NewPipeline(Func{ID: "noop"}, SignatureValidator{})
	assert.True(t, p.Validate(model.Request{ContextSignature: "s"}, strictPolicy()).IsProceed())
	assert.True(t, NewPipeline().Validate(model.Request{}, strictPolicy()).IsProceed())
}

func TestPipeline_DoesNotMutateRequest(t *testing.T) {
	req := model.NewRequest(model.Request{ContextSignature: "", Reason: "keep"})
	before := req
	Default().Validate(req, strictPolicy())
	assert.Equal(t, before, req)
}
