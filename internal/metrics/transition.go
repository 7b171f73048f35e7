// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worldflow_transitions_total",
		Help: "Scene transitions by final state (completed, failed) and profile",
	}, []string{"result", "profile"})

	TransitionDuplicatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "worldflow_transition_duplicates_total",
		Help: "Concurrent transition requests collapsed onto an in-flight transition",
	})

	PreRevealOutcomesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worldflow_prereveal_outcomes_total",
		Help: "Pre-reveal stage outcomes (completed, skipped, timeout)",
	}, []string{"outcome"})

	CompletionGateWait = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "worldflow_completion_gate_wait_seconds",
		Help:    "Time spent awaiting the completion gate before fade-out",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
)

// RecordTransition records a finished transition.
func RecordTransition(result, profile string) {
	TransitionsTotal.WithLabelValues(result, normalizeLabel(profile)).Inc()
}

// IncTransitionDuplicate records a collapsed duplicate request.
func IncTransitionDuplicate() {
	TransitionDuplicatesTotal.Inc()
}

// RecordPreReveal records a pre-reveal stage outcome.
func RecordPreReveal(outcome string) {
	PreRevealOutcomesTotal.WithLabelValues(outcome).Inc()
}

// ObserveCompletionGateWait records how long a transition waited on its gate.
func ObserveCompletionGateWait(seconds float64) {
	CompletionGateWait.Observe(seconds)
}
