// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package policy decides how strictly the reset pipeline treats deviations:
// strict mode fails fast, release mode reports and continues.
package policy

// Policy is the decision surface consulted by validators, guards and the
// reset service.
type Policy interface {
	Name() string
	IsStrict() bool
	AllowSceneScan() bool
	AllowLegacyFallback() bool
	ReportDegraded(d Degraded)
}

// Default is the canonical policy: strict follows the runtime mode, scene
// scanning is only allowed when strict, the legacy actor-kind fallback is
// always allowed.
type Default struct {
	mode     ModeProvider
	reporter Reporter
}

// NewDefault returns the canonical policy. A nil reporter drops reports.
func NewDefault(mode ModeProvider, reporter Reporter) *Default {
	if mode == nil {
		mode = NewAtomicMode(ModeStrict)
	}
	return &Default{mode: mode, reporter: reporter}
}

func (p *Default) Name() string {
	return "default/" + p.mode.Current().String()
}

func (p *Default) IsStrict() bool { return p.mode.IsStrict() }

func (p *Default) AllowSceneScan() bool { return p.mode.IsStrict() }

func (p *Default) AllowLegacyFallback() bool { return true }

func (p *Default) ReportDegraded(d Degraded) {
	if p.reporter == nil {
		return
	}
	p.reporter.Report(d)
}

var _ Policy = (*Default)(nil)
