// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

// DecisionKind is the variant tag of a Decision.
type DecisionKind int

const (
	DecisionProceed DecisionKind = iota
	DecisionSkip
)

func (k DecisionKind) String() string {
	if k == DecisionSkip {
		return "Skip"
	}
	return "Proceed"
}

// Skip carries the data of a skip outcome.
type Skip struct {
	Reason                  string
	Detail                  string
	ShouldPublishCompletion bool
	IsViolation             bool
}

// Decision is either Proceed or Skip. The zero value is Proceed, and a
// Proceed decision never carries skip data.
type Decision struct {
	kind DecisionKind
	skip Skip
}

// Proceed returns the terminal success decision.
func Proceed() Decision {
	return Decision{kind: DecisionProceed}
}

// SkipWith returns a skip decision carrying s.
func SkipWith(s Skip) Decision {
	return Decision{kind: DecisionSkip, skip: s}
}

func (d Decision) Kind() DecisionKind { return d.kind }

func (d Decision) IsProceed() bool { return d.kind == DecisionProceed }

// Skipped returns the skip data and true for a Skip decision.
func (d Decision) Skipped() (Skip, bool) {
	if d.kind != DecisionSkip {
		return Skip{}, false
	}
	return d.skip, true
}

// IsViolation is false for Proceed.
func (d Decision) IsViolation() bool {
	return d.kind == DecisionSkip && d.skip.IsViolation
}

// ShouldPublishCompletion reports whether a completion notification must be
// published despite the reset not running. Proceed always publishes.
func (d Decision) ShouldPublishCompletion() bool {
	if d.kind == DecisionProceed {
		return true
	}
	return d.skip.ShouldPublishCompletion
}
