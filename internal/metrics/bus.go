// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BusPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worldflow_bus_published_total",
		Help: "Total number of notifications published by topic",
	}, []string{"topic"})

	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worldflow_bus_dropped_total",
		Help: "Total number of notification drops by topic and reason",
	}, []string{"topic", "reason"})
)

// IncBusPublished records one published notification.
func IncBusPublished(topic string) {
	BusPublishedTotal.WithLabelValues(normalizeLabel(topic)).Inc()
}

// IncBusDropReason records a dropped notification with a concrete reason.
func IncBusDropReason(topic, reason string) {
	BusDroppedTotal.WithLabelValues(normalizeLabel(topic), normalizeLabel(reason)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
