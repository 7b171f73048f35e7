// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SimGateOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "worldflow_simgate_open",
		Help: "1 when gameplay simulation is allowed to run, 0 while any token is held",
	})

	SimGateActiveTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "worldflow_simgate_active_tokens",
		Help: "Number of distinct tokens currently holding the simulation gate closed",
	})

	SimGateFlipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worldflow_simgate_flips_total",
		Help: "Simulation gate open/closed flips by direction",
	}, []string{"direction"})

	SimGateForcedReleasesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worldflow_simgate_forced_releases_total",
		Help: "Emergency release_all calls by token",
	}, []string{"token"})
)

// SetSimGateState publishes the current gate snapshot.
func SetSimGateState(open bool, activeTokens int) {
	if open {
		SimGateOpen.Set(1)
	} else {
		SimGateOpen.Set(0)
	}
	SimGateActiveTokens.Set(float64(activeTokens))
}

// IncSimGateFlip records a flip; direction is "opened" or "closed".
func IncSimGateFlip(direction string) {
	SimGateFlipsTotal.WithLabelValues(direction).Inc()
}

// IncSimGateForcedRelease records a release_all call.
func IncSimGateForcedRelease(token string) {
	SimGateForcedReleasesTotal.WithLabelValues(normalizeLabel(token)).Inc()
}
