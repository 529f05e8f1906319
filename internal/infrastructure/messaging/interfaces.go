// Package messaging defines interfaces for real-time communication.
package messaging

import "github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/lead"

// LeadPublisher fans persisted leads out to live admin clients.
type LeadPublisher interface {
	PublishLead(snapshot *lead.Snapshot)
}

// ActivitySource reports how many browsers currently have a live tracker.
type ActivitySource interface {
	ActiveTrackers() int
}
