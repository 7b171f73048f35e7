// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ManuGH/worldflow/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

func scrape(t *testing.T) string {
	t.Helper()
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	promhttp.Handler().ServeHTTP(recorder, req)
	return recorder.Body.String()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRecordResetDecision(t *testing.T) {
	c := metrics.ResetDecisionsTotal.WithLabelValues("skip", "Qa", "true")
	before := counterValue(t, c)

	metrics.RecordResetDecision("Skip", "Qa", true)

	if got := counterValue(t, c) - before; got != 1 {
		t.Errorf("skip counter delta = %v, want 1", got)
	}
	body := scrape(t)
	if !strings.Contains(body, "worldflow_reset_decisions_total") {
		t.Error("expected worldflow_reset_decisions_total in metrics output")
	}
}

func TestEmptyLabelsAreNormalized(t *testing.T) {
	c := metrics.BusPublishedTotal.WithLabelValues("unknown")
	before := counterValue(t, c)

	metrics.IncBusPublished("")

	if got := counterValue(t, c) - before; got != 1 {
		t.Errorf("unknown topic delta = %v, want 1", got)
	}
}

func TestSimGateState(t *testing.T) {
	metrics.SetSimGateState(false, 2)
	body := scrape(t)
	if !strings.Contains(body, "worldflow_simgate_open 0") {
		t.Error("expected closed gate gauge")
	}
	if !strings.Contains(body, "worldflow_simgate_active_tokens 2") {
		t.Error("expected two active tokens")
	}
	metrics.SetSimGateState(true, 0)
}

func TestTransitionMetricsExposed(t *testing.T) {
	metrics.RecordTransition("completed", "gameplay")
	metrics.IncTransitionDuplicate()
	metrics.RecordPreReveal("timeout")
	metrics.ObserveCompletionGateWait(0.25)

	body := scrape(t)
	for _, name := range []string{
		"worldflow_transitions_total",
		"worldflow_transition_duplicates_total",
		"worldflow_prereveal_outcomes_total",
		"worldflow_completion_gate_wait_seconds",
	} {
		if !strings.Contains(body, name) {
			t.Errorf("expected %s in metrics output", name)
		}
	}
}
