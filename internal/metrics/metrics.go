package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Dialogue metrics
	TurnsTotal          *prometheus.CounterVec
	TurnDurationSeconds *prometheus.HistogramVec
	ActiveSessions      prometheus.Gauge

	// Classifier metrics
	ClassifierConfidence prometheus.Histogram
	ClassifierNoMatch    prometheus.Counter

	// Collaborator metrics
	CollaboratorRequestsTotal   *prometheus.CounterVec
	CollaboratorDurationSeconds *prometheus.HistogramVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Training metrics
	TrainingDuration prometheus.Histogram
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		TurnsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusbot_turns_total",
				Help: "Total dialogue turns by resolution path and status",
			},
			[]string{"path", "status"}, // path: single_shot, direct, classifier, flow, fallback, canned; status: success, error
		),

		TurnDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campusbot_turn_duration_seconds",
				Help:    "Dialogue turn resolution duration in seconds by path",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
			},
			[]string{"path"},
		),

		ActiveSessions: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "campusbot_active_sessions",
				Help: "Number of dialogue sessions currently held in memory",
			},
		),

		ClassifierConfidence: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "campusbot_classifier_confidence",
				Help:    "Top-class probability reported by the intent classifier",
				Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
			},
		),

		ClassifierNoMatch: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "campusbot_classifier_no_match_total",
				Help: "Total classifications below the confidence threshold",
			},
		),

		CollaboratorRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusbot_collaborator_requests_total",
				Help: "Total collaborator calls by collaborator and status",
			},
			[]string{"collaborator", "status"}, // collaborator: translator, fallback, ticketing, feedback, tts
		),

		CollaboratorDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "campusbot_collaborator_duration_seconds",
				Help:    "Collaborator call duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
			},
			[]string{"collaborator"},
		),

		HTTPErrorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "campusbot_http_errors_total",
				Help: "Total HTTP errors by type and endpoint",
			},
			[]string{"error_type", "endpoint"},
		),

		TrainingDuration: promauto.With(registry).NewHistogram(
			prometheus.HistogramOpts{
				Name:    "campusbot_training_duration_seconds",
				Help:    "Classifier training duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			},
		),
	}

	return m
}

// RecordTurn records a resolved dialogue turn
func (m *Metrics) RecordTurn(path, status string, duration float64) {
	m.TurnsTotal.WithLabelValues(path, status).Inc()
	m.TurnDurationSeconds.WithLabelValues(path).Observe(duration)
}

// RecordConfidence records the classifier's top-class probability
func (m *Metrics) RecordConfidence(confidence float64) {
	m.ClassifierConfidence.Observe(confidence)
}

// RecordNoMatch records a below-threshold classification
func (m *Metrics) RecordNoMatch() {
	m.ClassifierNoMatch.Inc()
}

// RecordCollaborator records a collaborator call
func (m *Metrics) RecordCollaborator(collaborator, status string, duration float64) {
	m.CollaboratorRequestsTotal.WithLabelValues(collaborator, status).Inc()
	m.CollaboratorDurationSeconds.WithLabelValues(collaborator).Observe(duration)
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, endpoint string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, endpoint).Inc()
}

// RecordTraining records a classifier training run
func (m *Metrics) RecordTraining(duration float64) {
	m.TrainingDuration.Observe(duration)
}

// SessionOpened increments the active session gauge
func (m *Metrics) SessionOpened() {
	m.ActiveSessions.Inc()
}

// SessionClosed decrements the active session gauge
func (m *Metrics) SessionClosed() {
	m.ActiveSessions.Dec()
}
