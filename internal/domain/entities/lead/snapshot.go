// Package lead defines the write-once engagement snapshot persisted to the
// document store whenever a visitor shows contact intent.
package lead

import (
	"fmt"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/session"
)

// Trigger names what caused a snapshot to be written.
type Trigger string

const (
	TriggerWhatsApp   Trigger = "whatsapp_click"
	TriggerFormSubmit Trigger = "form_submit"
)

// ContactFields are the optional values captured by the contact form.
type ContactFields struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Empty reports whether no contact data was supplied.
func (c *ContactFields) Empty() bool {
	return c == nil || (c.Name == "" && c.Phone == "")
}

// TrackerSummary is the denormalized view of one dwell tracker.
type TrackerSummary struct {
	TimeSpent         map[string]int    `json:"timeSpent" dynamodbav:"timeSpent"`
	Formatted         map[string]string `json:"formatted" dynamodbav:"formatted"`
	MostViewed        string            `json:"mostViewed,omitempty" dynamodbav:"mostViewed,omitempty"`
	MostViewedSeconds int               `json:"mostViewedSeconds" dynamodbav:"mostViewedSeconds"`
	TotalSeconds      int               `json:"totalSeconds" dynamodbav:"totalSeconds"`
	TotalFormatted    string            `json:"totalFormatted" dynamodbav:"totalFormatted"`
}

// Snapshot is a full point-in-time copy of a session plus derived fields.
// It is never mutated after construction, apart from ID being assigned by
// the store on insert.
type Snapshot struct {
	ID        string    `json:"id" dynamodbav:"id"`
	LeadCode  string    `json:"leadCode" dynamodbav:"leadCode"`
	SessionID string    `json:"sessionId" dynamodbav:"sessionId"`
	VisitorID string    `json:"visitorId" dynamodbav:"visitorId"`
	Trigger   Trigger   `json:"trigger" dynamodbav:"trigger"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`

	SessionStart       time.Time `json:"sessionStart" dynamodbav:"sessionStart"`
	TotalTimeOnSite    int       `json:"totalTimeOnSite" dynamodbav:"totalTimeOnSite"`
	TotalTimeFormatted string    `json:"totalTimeFormatted" dynamodbav:"totalTimeFormatted"`

	PagesViewed         []string `json:"pagesViewed" dynamodbav:"pagesViewed"`
	NavigationClicks    []string `json:"navigationClicks" dynamodbav:"navigationClicks"`
	LeisureItemsClicked []string `json:"leisureItemsClicked" dynamodbav:"leisureItemsClicked"`

	FloorPlans    TrackerSummary `json:"floorPlans" dynamodbav:"floorPlans"`
	GalleryImages TrackerSummary `json:"galleryImages" dynamodbav:"galleryImages"`
	FacadeImages  TrackerSummary `json:"facadeImages" dynamodbav:"facadeImages"`

	WhatsAppClicks   int       `json:"whatsappClicks" dynamodbav:"whatsappClicks"`
	InterestScore    int       `json:"interestScore" dynamodbav:"interestScore"`
	VisitCount       int       `json:"visitCount" dynamodbav:"visitCount"`
	ReturningVisitor bool      `json:"isReturningVisitor" dynamodbav:"isReturningVisitor"`
	FirstVisit       time.Time `json:"firstVisit" dynamodbav:"firstVisit"`

	Environment session.Environment     `json:"environment" dynamodbav:"environment"`
	Timeline    []session.TimelineEvent `json:"timeline" dynamodbav:"timeline"`

	Name  string `json:"name,omitempty" dynamodbav:"name,omitempty"`
	Phone string `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
}

// Query filters QueryDocuments. An empty LeadCode lists the most recent
// snapshots, newest first.
type Query struct {
	LeadCode string
	Limit    int
}

// DefaultQueryLimit caps listings when the caller asks for none.
const DefaultQueryLimit = 50

// EffectiveLimit returns the limit to apply, defaulting and capping it.
func (q Query) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultQueryLimit
	}
	if q.Limit > 500 {
		return 500
	}
	return q.Limit
}

// FormatDuration renders seconds the way the sales team reads them:
// "2min 5s" from one minute up, "45 segundos" below that.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	if seconds < 60 {
		return fmt.Sprintf("%d segundos", seconds)
	}
	return fmt.Sprintf("%dmin %ds", seconds/60, seconds%60)
}

// Summarize builds the denormalized view of a dwell tracker.
func Summarize(d session.DwellState) TrackerSummary {
	summary := TrackerSummary{
		TimeSpent: make(map[string]int, len(d.TimeSpent)),
		Formatted: make(map[string]string, len(d.TimeSpent)),
	}
	for item, secs := range d.TimeSpent {
		summary.TimeSpent[item] = secs
		summary.Formatted[item] = FormatDuration(secs)
	}
	if item, secs, ok := d.MostViewed(); ok {
		summary.MostViewed = item
		summary.MostViewedSeconds = secs
	}
	summary.TotalSeconds = d.Total()
	summary.TotalFormatted = FormatDuration(summary.TotalSeconds)
	return summary
}
