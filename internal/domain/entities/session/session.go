// Package session provides domain entities for a visitor's browsing session:
// set-like interaction fields, per-item dwell timers and the capped timeline.
package session

import (
	"fmt"
	"slices"
	"time"
)

// ArrayField names one of the insertion-ordered, deduplicated session fields.
type ArrayField string

const (
	FieldPagesViewed         ArrayField = "pagesViewed"
	FieldNavigationClicks    ArrayField = "navigationClicks"
	FieldLeisureItemsClicked ArrayField = "leisureItemsClicked"
)

// Environment is captured once when a session is created.
type Environment struct {
	Referrer         string `json:"referrer,omitempty" dynamodbav:"referrer,omitempty"`
	UTMSource        string `json:"utmSource,omitempty" dynamodbav:"utmSource,omitempty"`
	UTMMedium        string `json:"utmMedium,omitempty" dynamodbav:"utmMedium,omitempty"`
	UTMCampaign      string `json:"utmCampaign,omitempty" dynamodbav:"utmCampaign,omitempty"`
	UTMTerm          string `json:"utmTerm,omitempty" dynamodbav:"utmTerm,omitempty"`
	UTMContent       string `json:"utmContent,omitempty" dynamodbav:"utmContent,omitempty"`
	UserAgent        string `json:"userAgent,omitempty" dynamodbav:"userAgent,omitempty"`
	DeviceType       string `json:"deviceType,omitempty" dynamodbav:"deviceType,omitempty"`
	Browser          string `json:"browser,omitempty" dynamodbav:"browser,omitempty"`
	ScreenResolution string `json:"screenResolution,omitempty" dynamodbav:"screenResolution,omitempty"`
	Language         string `json:"language,omitempty" dynamodbav:"language,omitempty"`
}

// Session is the single active browsing episode persisted for a browser.
type Session struct {
	SessionID    string    `json:"sessionId"`
	VisitorID    string    `json:"visitorId"`
	LeadCode     string    `json:"leadCode"`
	StartTime    time.Time `json:"startTime"`
	LastActivity time.Time `json:"lastActivity"`

	PagesViewed         []string `json:"pagesViewed"`
	NavigationClicks    []string `json:"navigationClicks"`
	LeisureItemsClicked []string `json:"leisureItemsClicked"`

	FloorPlans    DwellState `json:"floorPlans"`
	GalleryImages DwellState `json:"galleryImages"`
	FacadeImages  DwellState `json:"facadeImages"`

	TotalTimeOnSite int `json:"totalTimeOnSite"` // seconds since StartTime
	WhatsAppClicks  int `json:"whatsappClicks"`

	Environment Environment     `json:"environment"`
	Timeline    []TimelineEvent `json:"timeline"`
}

// New creates a fresh session starting at now.
func New(sessionID, visitorID, leadCode string, env Environment, now time.Time) *Session {
	return &Session{
		SessionID:           sessionID,
		VisitorID:           visitorID,
		LeadCode:            leadCode,
		StartTime:           now,
		LastActivity:        now,
		PagesViewed:         []string{},
		NavigationClicks:    []string{},
		LeisureItemsClicked: []string{},
		FloorPlans:          NewDwellState(),
		GalleryImages:       NewDwellState(),
		FacadeImages:        NewDwellState(),
		Environment:         env,
		Timeline:            []TimelineEvent{},
	}
}

// Expired reports whether the session is older than timeout, measured from
// StartTime regardless of activity.
func (s *Session) Expired(now time.Time, timeout time.Duration) bool {
	if s.StartTime.IsZero() {
		return true
	}
	return now.Sub(s.StartTime) > timeout
}

// Touch recomputes the derived time on site and the last activity stamp.
func (s *Session) Touch(now time.Time) {
	s.TotalTimeOnSite = ElapsedSeconds(s.StartTime, now)
	s.LastActivity = now
}

// Repair backfills fields missing from a session persisted by an older
// schema. It returns the names of the fields it had to fill.
func (s *Session) Repair(visitorID, leadCode string) []string {
	var repaired []string
	if s.LeadCode == "" && leadCode != "" {
		s.LeadCode = leadCode
		repaired = append(repaired, "leadCode")
	}
	if s.VisitorID == "" && visitorID != "" {
		s.VisitorID = visitorID
		repaired = append(repaired, "visitorId")
	}
	if s.Timeline == nil {
		s.Timeline = []TimelineEvent{}
		repaired = append(repaired, "timeline")
	}
	if s.PagesViewed == nil {
		s.PagesViewed = []string{}
		repaired = append(repaired, string(FieldPagesViewed))
	}
	if s.NavigationClicks == nil {
		s.NavigationClicks = []string{}
		repaired = append(repaired, string(FieldNavigationClicks))
	}
	if s.LeisureItemsClicked == nil {
		s.LeisureItemsClicked = []string{}
		repaired = append(repaired, string(FieldLeisureItemsClicked))
	}
	if s.FloorPlans.normalize() {
		repaired = append(repaired, "floorPlans")
	}
	if s.GalleryImages.normalize() {
		repaired = append(repaired, "galleryImages")
	}
	if s.FacadeImages.normalize() {
		repaired = append(repaired, "facadeImages")
	}
	if s.LastActivity.IsZero() {
		s.LastActivity = s.StartTime
	}
	return repaired
}

// NeedsRepair reports whether any required field is missing.
func (s *Session) NeedsRepair() bool {
	return s.LeadCode == "" || s.VisitorID == "" || s.Timeline == nil ||
		s.PagesViewed == nil || s.NavigationClicks == nil || s.LeisureItemsClicked == nil ||
		s.FloorPlans.TimeSpent == nil || s.GalleryImages.TimeSpent == nil || s.FacadeImages.TimeSpent == nil
}

// AddUnique appends value to the named set-like field unless already present.
func (s *Session) AddUnique(field ArrayField, value string) (bool, error) {
	target, err := s.arrayField(field)
	if err != nil {
		return false, err
	}
	if slices.Contains(*target, value) {
		return false, nil
	}
	*target = append(*target, value)
	return true, nil
}

func (s *Session) arrayField(field ArrayField) (*[]string, error) {
	switch field {
	case FieldPagesViewed:
		return &s.PagesViewed, nil
	case FieldNavigationClicks:
		return &s.NavigationClicks, nil
	case FieldLeisureItemsClicked:
		return &s.LeisureItemsClicked, nil
	default:
		return nil, fmt.Errorf("unknown session array field %q", field)
	}
}

// Clone returns a deep copy so callers can hold a snapshot while the live
// session keeps changing.
func (s *Session) Clone() *Session {
	c := *s
	c.PagesViewed = slices.Clone(s.PagesViewed)
	c.NavigationClicks = slices.Clone(s.NavigationClicks)
	c.LeisureItemsClicked = slices.Clone(s.LeisureItemsClicked)
	c.FloorPlans = s.FloorPlans.clone()
	c.GalleryImages = s.GalleryImages.clone()
	c.FacadeImages = s.FacadeImages.clone()
	c.Timeline = slices.Clone(s.Timeline)
	return &c
}
