package session

import (
	"time"
	"unicode/utf8"
)

// Timeline actions recorded by the tracker.
const (
	ActionSessionStart    = "session_start"
	ActionPageView        = "page_view"
	ActionNavigationClick = "navigation_click"
	ActionLeisureClick    = "leisure_click"
	ActionFloorPlanView   = "floor_plan_view"
	ActionFloorPlanClose  = "floor_plan_close"
	ActionGalleryView     = "gallery_view"
	ActionGalleryClose    = "gallery_close"
	ActionFacadeView      = "facade_view"
	ActionFacadeClose     = "facade_close"
	ActionWhatsAppClick   = "whatsapp_click"
	ActionFormSubmit      = "form_submit"
)

// DefaultTimelineCapacity bounds the timeline when no capacity is configured.
const DefaultTimelineCapacity = 100

// Length limits applied to every timeline entry, in runes.
const (
	MaxActionLength  = 64
	MaxDetailsLength = 256
	MaxSectionLength = 64
)

// KnownActions lists the actions the tracker itself records.
var KnownActions = []string{
	ActionSessionStart,
	ActionPageView,
	ActionNavigationClick,
	ActionLeisureClick,
	ActionFloorPlanView,
	ActionFloorPlanClose,
	ActionGalleryView,
	ActionGalleryClose,
	ActionFacadeView,
	ActionFacadeClose,
	ActionWhatsAppClick,
	ActionFormSubmit,
}

// TimelineEvent is one entry in the session's interaction log.
type TimelineEvent struct {
	Timestamp time.Time `json:"timestamp" dynamodbav:"timestamp"`
	Action    string    `json:"action" dynamodbav:"action"`
	Details   string    `json:"details,omitempty" dynamodbav:"details,omitempty"`
	Section   string    `json:"section,omitempty" dynamodbav:"section,omitempty"`
}

// AppendTimeline adds evt, truncated to the entry length limits, and evicts
// the oldest entries beyond capacity. A non-positive capacity falls back to
// the default of 100.
func (s *Session) AppendTimeline(evt TimelineEvent, capacity int) {
	if capacity <= 0 {
		capacity = DefaultTimelineCapacity
	}
	evt.Action = truncateRunes(evt.Action, MaxActionLength)
	evt.Details = truncateRunes(evt.Details, MaxDetailsLength)
	evt.Section = truncateRunes(evt.Section, MaxSectionLength)
	s.Timeline = append(s.Timeline, evt)
	if over := len(s.Timeline) - capacity; over > 0 {
		trimmed := make([]TimelineEvent, capacity)
		copy(trimmed, s.Timeline[over:])
		s.Timeline = trimmed
	}
}

func truncateRunes(v string, limit int) string {
	if utf8.RuneCountInString(v) <= limit {
		return v
	}
	n := 0
	for i := range v {
		if n == limit {
			return v[:i]
		}
		n++
	}
	return v
}
