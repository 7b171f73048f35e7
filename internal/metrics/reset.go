// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ResetDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worldflow_reset_decisions_total",
		Help: "Reset pipeline outcomes by decision, origin and violation flag",
	}, []string{"decision", "origin", "violation"})

	GuardViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worldflow_reset_guard_violations_total",
		Help: "Advisory guard findings by kind (strict_violation, degraded_mode) and check",
	}, []string{"kind", "check"})

	ParticipantFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worldflow_reset_participant_failures_total",
		Help: "Scope participant failures by scope",
	}, []string{"stage"})

	HookFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worldflow_reset_hook_failures_total",
		Help: "Lifecycle hook failures by hook point",
	}, []string{"point"})

	DegradedReportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worldflow_degraded_reports_total",
		Help: "Degraded-mode reports by feature and outcome (emitted, deduplicated, rate_limited)",
	}, []string{"feature", "outcome"})

	ResetDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "worldflow_reset_duration_seconds",
		Help:    "Duration of executed resets by flavour",
		Buckets: prometheus.DefBuckets,
	}, []string{"flavour"})
)

// RecordResetDecision records one pipeline outcome.
func RecordResetDecision(decision, origin string, violation bool) {
	v := "false"
	if violation {
		v = "true"
	}
	ResetDecisionsTotal.WithLabelValues(strings.ToLower(decision), normalizeLabel(origin), v).Inc()
}

// RecordGuardViolation records one advisory finding.
func RecordGuardViolation(kind, check string) {
	GuardViolationsTotal.WithLabelValues(strings.ToLower(kind), normalizeLabel(check)).Inc()
}

// RecordParticipantFailure records a failed participant call.
func RecordParticipantFailure(stage string) {
	ParticipantFailuresTotal.WithLabelValues(normalizeLabel(stage)).Inc()
}

// RecordHookFailure records a failed lifecycle hook callback.
func RecordHookFailure(point string) {
	HookFailuresTotal.WithLabelValues(normalizeLabel(point)).Inc()
}

// RecordDegradedReport records what happened to a degraded-mode report.
func RecordDegradedReport(feature, outcome string) {
	DegradedReportsTotal.WithLabelValues(normalizeLabel(feature), outcome).Inc()
}

// ObserveResetDuration records the wall time of an executed reset.
func ObserveResetDuration(flavour string, seconds float64) {
	ResetDuration.WithLabelValues(strings.ToLower(flavour)).Observe(seconds)
}
