// Package analytics defines the best-effort telemetry side channel invoked
// alongside tracker actions.
package analytics

import (
	"context"
	"time"
)

// Event names sent to the analytics sink.
const (
	EventPageView         = "page_view"
	EventContactWhatsApp  = "contact_whatsapp"
	EventFormSubmit       = "form_submit"
	EventViewFloorPlan    = "view_floor_plan"
	EventViewGalleryImage = "view_gallery_image"
	EventViewFacadeImage  = "view_facade_image"
	EventClickLeisureItem = "click_leisure_item"
	EventClickNavigation  = "click_navigation"
)

// EventLogger receives tracker telemetry. Callers ignore its outcome.
type EventLogger interface {
	LogEvent(ctx context.Context, name string, params map[string]any)
}

// ActionEvent is one logged analytics event.
type ActionEvent struct {
	ID        string
	Name      string
	VisitorID string
	SessionID string
	Params    map[string]any
	CreatedAt time.Time
}

// EventRepository defines the contract for storing and retrieving analytics events.
type EventRepository interface {
	// StoreActionEvent saves an analytics event to the persistence layer.
	StoreActionEvent(ctx context.Context, event *ActionEvent) error

	// FindActionEventsInRange retrieves all events within a given time range.
	FindActionEventsInRange(ctx context.Context, start, end time.Time) ([]*ActionEvent, error)

	// CountByName aggregates stored events per name since the given time.
	CountByName(ctx context.Context, since time.Time) (map[string]int, error)
}

// NopLogger discards every event.
type NopLogger struct{}

func (NopLogger) LogEvent(context.Context, string, map[string]any) {}
