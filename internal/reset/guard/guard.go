// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package guard holds advisory reset checks. Guards classify and report
// deviations; they always let the reset proceed.
package guard

import (
	xglog "github.com/ManuGH/worldflow/internal/log"
	"github.com/ManuGH/worldflow/internal/metrics"
	"github.com/ManuGH/worldflow/internal/reset/model"
	"github.com/ManuGH/worldflow/internal/reset/policy"
	"github.com/ManuGH/worldflow/internal/simgate"
	"github.com/rs/zerolog"
)

// Kind classifies a guard finding.
type Kind string

const (
	KindStrictViolation Kind = "STRICT_VIOLATION"
	KindDegradedMode    Kind = "DEGRADED_MODE"
)

// Finding is one advisory observation.
type Finding struct {
	Kind   Kind
	Check  string
	Detail string
}

// Guard evaluates a request. Implementations must return Proceed.
type Guard interface {
	Name() string
	Evaluate(req model.Request, p policy.Policy) (model.Decision, []Finding)
}

// TokenReader is the read side of the simulation gate.
type TokenReader interface {
	IsTokenActive(token string) bool
}

// Check names used by SimulationGateGuard.
const (
	CheckGateUnavailable        = "gate_unavailable"
	CheckSceneFlowWithoutToken  = "sceneflow_without_transition_token"
	CheckManualDuringTransition = "reset_during_transition"
	CheckGameplayTokenActive    = "gameplay_token_active"
)

// SimulationGateGuard inspects simulation gate tokens at reset time.
type SimulationGateGuard struct {
	gate   TokenReader
	logger zerolog.Logger
}

// NewSimulationGateGuard returns a guard over gate. A nil gate is reported as
// unavailable on every evaluation.
func NewSimulationGateGuard(gate TokenReader) *SimulationGateGuard {
	return &SimulationGateGuard{gate: gate, logger: xglog.WithComponent("reset.guard")}
}

func (g *SimulationGateGuard) Name() string { return "simgate" }

func (g *SimulationGateGuard) Evaluate(req model.Request, p policy.Policy) (model.Decision, []Finding) {
	var findings []Finding

	if g.gate == nil {
		kind := KindDegradedMode
		if p != nil && p.IsStrict() {
			kind = KindStrictViolation
		}
		findings = append(findings, Finding{Kind: kind, Check: CheckGateUnavailable, Detail: "simulation gate service unavailable"})
		return model.Proceed(), findings
	}

	transitionActive := g.gate.IsTokenActive(simgate.TokenSceneTransition)
	switch {
	case req.Origin == model.OriginSceneFlow && !transitionActive:
		findings = append(findings, Finding{
			Kind:   KindStrictViolation,
			Check:  CheckSceneFlowWithoutToken,
			Detail: "scene-flow reset without active " + simgate.TokenSceneTransition,
		})
	case req.Origin != model.OriginSceneFlow && transitionActive:
		findings = append(findings, Finding{
			Kind:   KindDegradedMode,
			Check:  CheckManualDuringTransition,
			Detail: string(req.Origin) + " reset while " + simgate.TokenSceneTransition + " is active",
		})
	}

	if g.gate.IsTokenActive(simgate.TokenGameplaySimulation) {
		findings = append(findings, Finding{
			Kind:   KindDegradedMode,
			Check:  CheckGameplayTokenActive,
			Detail: simgate.TokenGameplaySimulation + " active at reset time",
		})
	}
	return model.Proceed(), findings
}

// Set runs guards in order and reports every finding. It never blocks.
type Set struct {
	guards []Guard
	logger zerolog.Logger
}

// NewSet returns a guard set; nil entries are dropped.
func NewSet(guards ...Guard) *Set {
	s := &Set{logger: xglog.WithComponent("reset.guard")}
	for _, g := range guards {
		if g != nil {
			s.guards = append(s.guards, g)
		}
	}
	return s
}

// Evaluate runs every guard, reports findings through the log, metrics and
// the policy's degraded reporter, and returns them. The decision is always
// Proceed.
func (s *Set) Evaluate(req model.Request, p policy.Policy) (model.Decision, []Finding) {
	var all []Finding
	for _, g := range s.guards {
		_, findings := g.Evaluate(req, p)
		for _, f := range findings {
			s.report(req, p, f)
		}
		all = append(all, findings...)
	}
	return model.Proceed(), all
}

func (s *Set) report(req model.Request, p policy.Policy, f Finding) {
	metrics.RecordGuardViolation(string(f.Kind), f.Check)

	ev := s.logger.Warn()
	if f.Kind == KindStrictViolation {
		ev = s.logger.Error()
	}
	ev.Str(xglog.FieldEvent, "reset.guard."+string(f.Kind)).
		Str("check", f.Check).
		Str(xglog.FieldOrigin, string(req.Origin)).
		Str(xglog.FieldContextSignature, req.ContextSignature).
		Str(xglog.FieldDetail, f.Detail).
		Msg("[" + string(f.Kind) + "] reset guard finding")

	if f.Kind == KindDegradedMode && p != nil {
		p.ReportDegraded(policy.Degraded{
			Feature:   "ResetGuard",
			Reason:    f.Check,
			Detail:    f.Detail,
			Signature: req.ContextSignature,
			Profile:   req.ProfileName,
		})
	}
}
