package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersAllMetrics(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordTurn("direct", "success", 0.002)
	m.RecordConfidence(0.91)
	m.RecordNoMatch()
	m.RecordCollaborator("translator", "success", 0.3)
	m.RecordHTTPError("bad_request", "/chat")
	m.RecordTraining(1.2)
	m.SessionOpened()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("no metric families registered")
	}

	want := map[string]bool{
		"campusbot_turns_total":                   false,
		"campusbot_classifier_confidence":         false,
		"campusbot_classifier_no_match_total":     false,
		"campusbot_collaborator_requests_total":   false,
		"campusbot_http_errors_total":             false,
		"campusbot_training_duration_seconds":     false,
		"campusbot_active_sessions":               false,
		"campusbot_turn_duration_seconds":         false,
		"campusbot_collaborator_duration_seconds": false,
	}
	for _, f := range families {
		if _, ok := want[f.GetName()]; ok {
			want[f.GetName()] = true
		}
	}
	for name, seen := range want {
		if !seen {
			t.Errorf("metric %s not gathered", name)
		}
	}
}

func TestCounterValues(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m := New(registry)

	m.RecordTurn("single_shot", "success", 0.001)
	m.RecordTurn("single_shot", "success", 0.001)
	m.RecordTurn("fallback", "error", 2.0)

	if got := testutil.ToFloat64(m.TurnsTotal.WithLabelValues("single_shot", "success")); got != 2 {
		t.Errorf("single_shot success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.TurnsTotal.WithLabelValues("fallback", "error")); got != 1 {
		t.Errorf("fallback error = %v, want 1", got)
	}
}

func TestSessionGauge(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m := New(registry)

	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	if got := testutil.ToFloat64(m.ActiveSessions); got != 1 {
		t.Errorf("ActiveSessions = %v, want 1", got)
	}
}
