package services

import (
	"context"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/session"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/visitor"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/repositories"
	domainservices "github.com/AtRiskMedia/leadtrack-go/internal/domain/services"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/performance"
)

// Failure reasons reported in PersistOutcome.
const (
	ReasonStoreUnavailable = "store unavailable"
	ReasonWriteFailed      = "write failed"
)

// PersistOutcome is the explicit result of a lead persistence attempt. On
// failure FallbackCode still carries the visitor's lead code so the caller's
// flow can continue.
type PersistOutcome struct {
	Persisted    bool   `json:"persisted"`
	LeadCode     string `json:"leadCode,omitempty"`
	FallbackCode string `json:"fallbackCode,omitempty"`
	DocumentID   string `json:"documentId,omitempty"`
	Reason       string `json:"reason,omitempty"`
	Error        string `json:"-"`
}

// Code returns the code to show the visitor and whether it was persisted.
func (o PersistOutcome) Code() (string, bool) {
	if o.Persisted {
		return o.LeadCode, true
	}
	return o.FallbackCode, false
}

// LeadNotifier is told about successfully persisted form leads.
type LeadNotifier interface {
	SendLeadNotification(snapshot *lead.Snapshot) error
}

// LeadService snapshots the session and submits it to the document store.
type LeadService struct {
	sessions   *SessionManager
	visitors   *VisitorService
	trackers   []DwellTracker
	repo       repositories.LeadRepository
	collection string
	clock      Clock
	logger     *logging.ChanneledLogger
	metrics    *performance.Metrics
	notifier   LeadNotifier
	publisher  messaging.LeadPublisher
}

// LeadServiceDeps groups the optional collaborators of LeadService.
type LeadServiceDeps struct {
	Repo       repositories.LeadRepository
	Collection string
	Notifier   LeadNotifier
	Publisher  messaging.LeadPublisher
	Metrics    *performance.Metrics
}

// NewLeadService creates a lead persister. The trackers are stopped before
// every snapshot.
func NewLeadService(sessions *SessionManager, visitors *VisitorService, trackers []DwellTracker, clock Clock, logger *logging.ChanneledLogger, deps LeadServiceDeps) *LeadService {
	collection := deps.Collection
	if collection == "" {
		collection = "leads"
	}
	return &LeadService{
		sessions:   sessions,
		visitors:   visitors,
		trackers:   trackers,
		repo:       deps.Repo,
		collection: collection,
		clock:      clock,
		logger:     logger,
		metrics:    deps.Metrics,
		notifier:   deps.Notifier,
		publisher:  deps.Publisher,
	}
}

// Persist flushes all open dwell timers, snapshots the session and performs
// exactly one insert. Failures are logged and reported in the outcome.
func (s *LeadService) Persist(ctx context.Context, trigger lead.Trigger, contact *lead.ContactFields) PersistOutcome {
	marker := performance.StartOperation(s.metrics, "lead:persist")
	defer marker.Complete()

	for _, t := range s.trackers {
		if err := t.Stop(ctx); err != nil {
			s.logger.Lead().Warn("Failed to flush dwell timer before snapshot", "tracker", t.Kind(), "error", err.Error())
		}
	}

	current, err := s.sessions.UpdateSession(ctx, nil)
	if err != nil {
		s.logger.Lead().Warn("Failed to persist session before snapshot", "error", err.Error())
	}
	now := s.clock.Now()
	identity := s.visitors.GetVisitorInfo(ctx)
	snapshot := BuildSnapshot(current, identity, trigger, contact, now)

	outcome := PersistOutcome{FallbackCode: snapshot.LeadCode}
	if s.repo == nil {
		outcome.Reason = ReasonStoreUnavailable
		marker.SetSuccess(false)
		s.metrics.RecordLead(string(trigger), false)
		s.logger.Lead().Warn("Lead not persisted", "reason", outcome.Reason, "leadCode", snapshot.LeadCode, "trigger", trigger)
		return outcome
	}

	start := time.Now()
	id, err := s.repo.InsertDocument(ctx, s.collection, snapshot)
	if err != nil {
		outcome.Reason = ReasonWriteFailed
		outcome.Error = err.Error()
		marker.SetError(err)
		s.metrics.RecordLead(string(trigger), false)
		s.logger.LogError(logging.ChannelLead, "persist_lead", err, map[string]any{
			"leadCode": snapshot.LeadCode,
			"trigger":  string(trigger),
			"duration": time.Since(start),
		})
		return outcome
	}

	snapshot.ID = id
	outcome.Persisted = true
	outcome.LeadCode = snapshot.LeadCode
	outcome.DocumentID = id
	s.metrics.RecordLead(string(trigger), true)
	s.logger.Lead().Info("Lead persisted",
		"leadCode", snapshot.LeadCode,
		"documentId", id,
		"trigger", trigger,
		"interestScore", snapshot.InterestScore,
		"duration", time.Since(start))

	if s.publisher != nil {
		s.publisher.PublishLead(snapshot)
	}
	if s.notifier != nil && trigger == lead.TriggerFormSubmit {
		go s.notify(snapshot)
	}
	return outcome
}

func (s *LeadService) notify(snapshot *lead.Snapshot) {
	if err := s.notifier.SendLeadNotification(snapshot); err != nil {
		s.logger.Lead().Error("Lead notification failed", "leadCode", snapshot.LeadCode, "error", err.Error())
		return
	}
	s.logger.Lead().Info("Lead notification sent", "leadCode", snapshot.LeadCode)
}

// BuildSnapshot assembles a denormalized, point-in-time lead snapshot from a
// deep copy of the session.
func BuildSnapshot(s *session.Session, info visitor.Info, trigger lead.Trigger, contact *lead.ContactFields, now time.Time) *lead.Snapshot {
	c := s.Clone()
	c.TotalTimeOnSite = session.ElapsedSeconds(c.StartTime, now)

	snapshot := &lead.Snapshot{
		LeadCode:            c.LeadCode,
		SessionID:           c.SessionID,
		VisitorID:           c.VisitorID,
		Trigger:             trigger,
		CreatedAt:           now,
		SessionStart:        c.StartTime,
		TotalTimeOnSite:     c.TotalTimeOnSite,
		TotalTimeFormatted:  lead.FormatDuration(c.TotalTimeOnSite),
		PagesViewed:         c.PagesViewed,
		NavigationClicks:    c.NavigationClicks,
		LeisureItemsClicked: c.LeisureItemsClicked,
		FloorPlans:          lead.Summarize(c.FloorPlans),
		GalleryImages:       lead.Summarize(c.GalleryImages),
		FacadeImages:        lead.Summarize(c.FacadeImages),
		WhatsAppClicks:      c.WhatsAppClicks,
		InterestScore:       domainservices.InterestScore(c),
		VisitCount:          info.VisitCount,
		ReturningVisitor:    info.Returning,
		FirstVisit:          info.FirstVisit,
		Environment:         c.Environment,
		Timeline:            c.Timeline,
	}
	if !contact.Empty() {
		snapshot.Name = contact.Name
		snapshot.Phone = contact.Phone
	}
	return snapshot
}
