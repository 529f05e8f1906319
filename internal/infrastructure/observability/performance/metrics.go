// Package performance provides operation timing and Prometheus metrics for
// tracker operations.
package performance

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/session"
)

// CustomEventLabel is the action label for every client-defined action.
const CustomEventLabel = "custom"

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the tracker.
type Metrics struct {
	OperationDuration *prometheus.HistogramVec
	EventsTotal       *prometheus.CounterVec
	LeadsTotal        *prometheus.CounterVec
	SessionsStarted   prometheus.Counter
	ActiveTrackers    prometheus.Gauge
}

// NewMetrics creates and registers the tracker metrics once per process.
//
// Metrics:
//   - leadtrack_operation_duration_seconds{operation,success}
//   - leadtrack_events_total{action}
//   - leadtrack_leads_total{trigger,outcome}
//   - leadtrack_sessions_started_total
//   - leadtrack_active_trackers
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			OperationDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "leadtrack_operation_duration_seconds",
					Help:    "Duration of tracker operations in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"operation", "success"},
			),
			EventsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "leadtrack_events_total",
					Help: "Total number of timeline events recorded",
				},
				[]string{"action"},
			),
			LeadsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "leadtrack_leads_total",
					Help: "Total number of lead persistence attempts",
				},
				[]string{"trigger", "outcome"}, // outcome: "persisted" or "failed"
			),
			SessionsStarted: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "leadtrack_sessions_started_total",
					Help: "Total number of fresh sessions bootstrapped",
				},
			),
			ActiveTrackers: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "leadtrack_active_trackers",
					Help: "Number of browsers with a live tracker in memory",
				},
			),
		}
	})
	return globalMetrics
}

// EventLabel maps an action to its metric label. Only the tracker's own
// actions get their own series.
func EventLabel(action string) string {
	for _, known := range session.KnownActions {
		if action == known {
			return action
		}
	}
	return CustomEventLabel
}

// RecordEvent counts one timeline event.
func (m *Metrics) RecordEvent(action string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(EventLabel(action)).Inc()
}

// RecordLead counts one lead persistence attempt.
func (m *Metrics) RecordLead(trigger string, persisted bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if persisted {
		outcome = "persisted"
	}
	m.LeadsTotal.WithLabelValues(trigger, outcome).Inc()
}

// RecordSessionStart counts one fresh session.
func (m *Metrics) RecordSessionStart() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
}

// SetActiveTrackers publishes the live tracker count.
func (m *Metrics) SetActiveTrackers(n int) {
	if m == nil {
		return
	}
	m.ActiveTrackers.Set(float64(n))
}
