package services

import (
	"context"
	"strings"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/analytics"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/session"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/visitor"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/repositories"
	domainservices "github.com/AtRiskMedia/leadtrack-go/internal/domain/services"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/performance"
)

// Page sections used as timeline section labels.
const (
	SectionLeisure    = "leisure"
	SectionFloorPlans = "floorplans"
	SectionGallery    = "gallery"
	SectionFacade     = "facade"
	SectionContact    = "contact"
)

// TrackerConfig holds the tracker semantics shared by every browser.
type TrackerConfig struct {
	SessionTimeout    time.Duration
	ReturnVisitWindow time.Duration
	TimelineCapacity  int
	LeadsCollection   string
}

// TrackerDeps are the process-wide collaborators handed to each tracker.
type TrackerDeps struct {
	Config    TrackerConfig
	Leads     repositories.LeadRepository
	Analytics analytics.EventLogger
	Notifier  LeadNotifier
	Publisher messaging.LeadPublisher
	Clock     Clock
	Logger    *logging.ChanneledLogger
	Metrics   *performance.Metrics
}

// Tracker is the engagement tracker of one browser. It is not safe for
// concurrent use; TrackerRegistry serializes access per browser.
type Tracker struct {
	key        string
	visitors   *VisitorService
	sessions   *SessionManager
	timeline   *TimelineRecorder
	floorPlans *FloorPlanTracker
	gallery    *GalleryTracker
	facade     *FacadeTracker
	leads      *LeadService
	analytics  analytics.EventLogger
	logger     *logging.ChanneledLogger
	clock      Clock
}

// BootstrapResult is returned when a page load starts or resumes a session.
type BootstrapResult struct {
	SessionID  string    `json:"sessionId"`
	LeadCode   string    `json:"leadCode"`
	VisitorID  string    `json:"visitorId"`
	VisitCount int       `json:"visitCount"`
	Returning  bool      `json:"isReturningVisitor"`
	StartTime  time.Time `json:"startTime"`
}

// TrackerSnapshot is a read-only view of the tracker state.
type TrackerSnapshot struct {
	Session       *session.Session              `json:"session"`
	InterestScore int                           `json:"interestScore"`
	Breakdown     domainservices.ScoreBreakdown `json:"breakdown"`
	Visitor       visitor.Info                  `json:"visitor"`
}

// NewTracker wires the tracker modules for one browser over its state store.
func NewTracker(key string, store repositories.StateStore, deps TrackerDeps) *Tracker {
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	events := deps.Analytics
	if events == nil {
		events = analytics.NopLogger{}
	}
	cfg := deps.Config

	visitors := NewVisitorService(store, clock, cfg.ReturnVisitWindow, deps.Logger)
	sessions := NewSessionManager(store, visitors, clock, SessionConfig{
		Timeout:          cfg.SessionTimeout,
		TimelineCapacity: cfg.TimelineCapacity,
	}, deps.Logger, deps.Metrics)

	t := &Tracker{
		key:        key,
		visitors:   visitors,
		sessions:   sessions,
		timeline:   NewTimelineRecorder(sessions, clock, cfg.TimelineCapacity, deps.Metrics),
		floorPlans: NewFloorPlanTracker(sessions, clock, deps.Logger),
		gallery:    NewGalleryTracker(sessions, clock, deps.Logger),
		facade:     NewFacadeTracker(sessions, clock, deps.Logger),
		analytics:  events,
		logger:     deps.Logger,
		clock:      clock,
	}
	t.leads = NewLeadService(sessions, visitors, []DwellTracker{t.floorPlans, t.gallery, t.facade}, clock, deps.Logger, LeadServiceDeps{
		Repo:       deps.Leads,
		Collection: cfg.LeadsCollection,
		Notifier:   deps.Notifier,
		Publisher:  deps.Publisher,
		Metrics:    deps.Metrics,
	})
	return t
}

// Key returns the browser key the tracker is bound to.
func (t *Tracker) Key() string { return t.key }

// Visitors exposes the visitor identity store.
func (t *Tracker) Visitors() *VisitorService { return t.visitors }

// Sessions exposes the session store.
func (t *Tracker) Sessions() *SessionManager { return t.sessions }

// Dwell returns the timed-activity tracker of the given kind.
func (t *Tracker) Dwell(kind DwellKind) DwellTracker {
	switch kind {
	case DwellFloorPlan:
		return t.floorPlans
	case DwellGallery:
		return t.gallery
	case DwellFacade:
		return t.facade
	default:
		return nil
	}
}

// Bootstrap starts or resumes the session for a page load. The environment
// is only captured when a fresh session is created.
func (t *Tracker) Bootstrap(ctx context.Context, env session.Environment) BootstrapResult {
	t.sessions.SetEnvironment(env)
	s := t.sessions.GetSession(ctx)
	info := t.visitors.GetVisitorInfo(ctx)
	return BootstrapResult{
		SessionID:  s.SessionID,
		LeadCode:   s.LeadCode,
		VisitorID:  s.VisitorID,
		VisitCount: info.VisitCount,
		Returning:  info.Returning,
		StartTime:  s.StartTime,
	}
}

// TrackPageView records a section becoming visible.
func (t *Tracker) TrackPageView(ctx context.Context, page string) error {
	if _, err := t.sessions.AddToSessionArray(ctx, session.FieldPagesViewed, page); err != nil {
		return err
	}
	if err := t.timeline.Record(ctx, session.ActionPageView, page, page); err != nil {
		return err
	}
	t.logEvent(ctx, analytics.EventPageView, map[string]any{"page_title": page})
	return nil
}

// TrackNavigationClick records a menu click.
func (t *Tracker) TrackNavigationClick(ctx context.Context, section string) error {
	if _, err := t.sessions.AddToSessionArray(ctx, session.FieldNavigationClicks, section); err != nil {
		return err
	}
	if err := t.timeline.Record(ctx, session.ActionNavigationClick, section, section); err != nil {
		return err
	}
	t.logEvent(ctx, analytics.EventClickNavigation, map[string]any{"section": section})
	return nil
}

// TrackLeisureClick records a click on a leisure amenity.
func (t *Tracker) TrackLeisureClick(ctx context.Context, item string) error {
	if _, err := t.sessions.AddToSessionArray(ctx, session.FieldLeisureItemsClicked, item); err != nil {
		return err
	}
	if err := t.timeline.Record(ctx, session.ActionLeisureClick, item, SectionLeisure); err != nil {
		return err
	}
	t.logEvent(ctx, analytics.EventClickLeisureItem, map[string]any{"item_name": item})
	return nil
}

// SelectFloorPlan starts timing a floor plan, closing any other open plan.
func (t *Tracker) SelectFloorPlan(ctx context.Context, plan string) error {
	if err := t.floorPlans.Start(ctx, plan); err != nil {
		return err
	}
	if err := t.timeline.Record(ctx, session.ActionFloorPlanView, plan, SectionFloorPlans); err != nil {
		return err
	}
	t.logEvent(ctx, analytics.EventViewFloorPlan, map[string]any{"plan_name": plan})
	return nil
}

// CloseFloorPlan stops the floor plan timer.
func (t *Tracker) CloseFloorPlan(ctx context.Context) error {
	return t.closeDwell(ctx, t.floorPlans, session.ActionFloorPlanClose, SectionFloorPlans)
}

// ViewGalleryImage starts timing a gallery image.
func (t *Tracker) ViewGalleryImage(ctx context.Context, image string) error {
	if err := t.gallery.Start(ctx, image); err != nil {
		return err
	}
	if err := t.timeline.Record(ctx, session.ActionGalleryView, image, SectionGallery); err != nil {
		return err
	}
	t.logEvent(ctx, analytics.EventViewGalleryImage, map[string]any{"image_name": image})
	return nil
}

// CloseGallery stops the gallery timer.
func (t *Tracker) CloseGallery(ctx context.Context) error {
	return t.closeDwell(ctx, t.gallery, session.ActionGalleryClose, SectionGallery)
}

// ViewFacadeImage starts timing a facade image.
func (t *Tracker) ViewFacadeImage(ctx context.Context, image string) error {
	if err := t.facade.Start(ctx, image); err != nil {
		return err
	}
	if err := t.timeline.Record(ctx, session.ActionFacadeView, image, SectionFacade); err != nil {
		return err
	}
	t.logEvent(ctx, analytics.EventViewFacadeImage, map[string]any{"image_name": image})
	return nil
}

// CloseFacade stops the facade timer.
func (t *Tracker) CloseFacade(ctx context.Context) error {
	return t.closeDwell(ctx, t.facade, session.ActionFacadeClose, SectionFacade)
}

func (t *Tracker) closeDwell(ctx context.Context, d DwellTracker, action, section string) error {
	open := t.currentItem(ctx, d.Kind())
	if open == "" {
		return nil
	}
	if err := d.Stop(ctx); err != nil {
		return err
	}
	return t.timeline.Record(ctx, action, open, section)
}

func (t *Tracker) currentItem(ctx context.Context, kind DwellKind) string {
	s := t.sessions.GetSession(ctx)
	switch kind {
	case DwellFloorPlan:
		return s.FloorPlans.CurrentItem
	case DwellGallery:
		return s.GalleryImages.CurrentItem
	case DwellFacade:
		return s.FacadeImages.CurrentItem
	}
	return ""
}

// TrackWhatsAppClick counts the click and persists an anonymous lead. The
// caller opens the WhatsApp link regardless of the outcome.
func (t *Tracker) TrackWhatsAppClick(ctx context.Context) PersistOutcome {
	if _, err := t.sessions.UpdateSession(ctx, func(s *session.Session) {
		s.WhatsAppClicks++
	}); err != nil {
		t.logger.Tracker().Warn("Failed to persist WhatsApp click", "error", err.Error())
	}
	if err := t.timeline.Record(ctx, session.ActionWhatsAppClick, "", SectionContact); err != nil {
		t.logger.Tracker().Warn("Failed to record WhatsApp click", "error", err.Error())
	}
	t.logEvent(ctx, analytics.EventContactWhatsApp, map[string]any{"method": "whatsapp_button"})
	return t.leads.Persist(ctx, lead.TriggerWhatsApp, nil)
}

// SubmitContactForm persists a form-backed lead carrying the contact fields.
func (t *Tracker) SubmitContactForm(ctx context.Context, contact lead.ContactFields) PersistOutcome {
	contact.Name = strings.TrimSpace(contact.Name)
	contact.Phone = strings.TrimSpace(contact.Phone)
	if err := t.timeline.Record(ctx, session.ActionFormSubmit, contact.Name, SectionContact); err != nil {
		t.logger.Tracker().Warn("Failed to record form submit", "error", err.Error())
	}
	t.logEvent(ctx, analytics.EventFormSubmit, map[string]any{"form_name": "contact"})
	return t.leads.Persist(ctx, lead.TriggerFormSubmit, &contact)
}

// RecordEvent appends a free-form timeline event.
func (t *Tracker) RecordEvent(ctx context.Context, action, details, section string) error {
	return t.timeline.Record(ctx, action, details, section)
}

// Snapshot returns a copy of the session with its current score.
func (t *Tracker) Snapshot(ctx context.Context) TrackerSnapshot {
	s := t.sessions.GetSession(ctx).Clone()
	s.TotalTimeOnSite = session.ElapsedSeconds(s.StartTime, t.clock.Now())
	breakdown := domainservices.ScoreInterest(s)
	return TrackerSnapshot{
		Session:       s,
		InterestScore: breakdown.Total,
		Breakdown:     breakdown,
		Visitor:       t.visitors.GetVisitorInfo(ctx),
	}
}

func (t *Tracker) logEvent(ctx context.Context, name string, params map[string]any) {
	s := t.sessions.GetSession(ctx)
	params[ParamSessionID] = s.SessionID
	params[ParamVisitorID] = s.VisitorID
	t.analytics.LogEvent(ctx, name, params)
}
