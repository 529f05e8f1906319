package services

import (
	"context"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/session"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/performance"
)

// TimelineRecorder appends interaction events to the session timeline,
// keeping only the most recent entries.
type TimelineRecorder struct {
	sessions *SessionManager
	clock    Clock
	capacity int
	metrics  *performance.Metrics
}

// NewTimelineRecorder creates a recorder bounded to capacity entries.
func NewTimelineRecorder(sessions *SessionManager, clock Clock, capacity int, metrics *performance.Metrics) *TimelineRecorder {
	if capacity <= 0 {
		capacity = session.DefaultTimelineCapacity
	}
	return &TimelineRecorder{sessions: sessions, clock: clock, capacity: capacity, metrics: metrics}
}

// Record appends {now, action, details, section} to the timeline.
func (r *TimelineRecorder) Record(ctx context.Context, action, details, section string) error {
	evt := session.TimelineEvent{
		Timestamp: r.clock.Now(),
		Action:    action,
		Details:   details,
		Section:   section,
	}
	_, err := r.sessions.UpdateSession(ctx, func(s *session.Session) {
		s.AppendTimeline(evt, r.capacity)
	})
	r.metrics.RecordEvent(action)
	return err
}
