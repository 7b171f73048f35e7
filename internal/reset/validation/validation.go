// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package validation runs the ordered checks that decide whether a reset
// request proceeds. Outcomes are decisions, never errors.
package validation

import (
	"strings"

	xglog "github.com/ManuGH/worldflow/internal/log"
	"github.com/ManuGH/worldflow/internal/reset/model"
	"github.com/ManuGH/worldflow/internal/reset/policy"
	"github.com/rs/zerolog"
)

// Validator inspects a request. It may log but must not mutate anything.
type Validator interface {
	Name() string
	Validate(req model.Request, p policy.Policy) model.Decision
}

// Func adapts a function into a Validator.
type Func struct {
	ID string
	Fn func(req model.Request, p policy.Policy) model.Decision
}

func (f Func) Name() string { return f.ID }

func (f Func) Validate(req model.Request, p policy.Policy) model.Decision {
	if f.Fn == nil {
		return model.Proceed()
	}
	return f.Fn(req, p)
}

// Pipeline runs validators in order and stops at the first non-Proceed decision.
type Pipeline struct {
	validators []Validator
	logger     zerolog.Logger
}

// NewPipeline returns a pipeline over validators in the given order. Nil
// entries are dropped.
func NewPipeline(validators ...Validator) *Pipeline {
	p := &Pipeline{logger: xglog.WithComponent("reset.validation")}
	for _, v := range validators {
		if v != nil {
			p.validators = append(p.validators, v)
		}
	}
	return p
}

// Default returns the canonical pipeline: the signature requirement only.
func Default() *Pipeline {
	return NewPipeline(SignatureValidator{})
}

// Len returns the number of validators.
func (p *Pipeline) Len() int { return len(p.validators) }

// Validate returns the first non-Proceed decision, or Proceed.
func (p *Pipeline) Validate(req model.Request, pol policy.Policy) model.Decision {
	for _, v := range p.validators {
		d := v.Validate(req, pol)
		if d.IsProceed() {
			continue
		}
		skip, _ := d.Skipped()
		p.logger.Info().
			Str(xglog.FieldEvent, "reset.validation.skip").
			Str("validator", v.Name()).
			Str(xglog.FieldContextSignature, req.ContextSignature).
			Str(xglog.FieldReason, skip.Reason).
			Str(xglog.FieldDetail, skip.Detail).
			Bool(xglog.FieldViolation, skip.IsViolation).
			Msg("reset request skipped by validator")
		return d
	}
	return model.Proceed()
}

// Reason and detail used by SignatureValidator.
const (
	ReasonMissingSignature = "Validation_MissingSignature"
	DetailMissingSignature = "ContextSignature vazia"
)

// SignatureValidator requires a non-blank context signature. The skip still
// asks for a completion notification so transition gates waiting on the
// reset are released.
type SignatureValidator struct{}

func (SignatureValidator) Name() string { return "signature" }

func (SignatureValidator) Validate(req model.Request, _ policy.Policy) model.Decision {
	if req.HasSignature() {
		return model.Proceed()
	}
	reason := req.Reason
	if strings.TrimSpace(reason) == "" {
		reason = ReasonMissingSignature
	}
	return model.SkipWith(model.Skip{
		Reason:                  reason,
		Detail:                  DetailMissingSignature,
		ShouldPublishCompletion: true,
		IsViolation:             true,
	})
}
