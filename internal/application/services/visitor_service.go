package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/visitor"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/repositories"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/security"
)

// VisitorService owns the persisted visitor identity for one browser.
// Storage failures are logged and treated as a first-ever visit.
type VisitorService struct {
	store        repositories.StateStore
	clock        Clock
	window       time.Duration
	logger       *logging.ChanneledLogger
	newVisitorID func() string
	newLeadCode  func() string
}

// NewVisitorService creates a visitor identity service over store.
func NewVisitorService(store repositories.StateStore, clock Clock, returnWindow time.Duration, logger *logging.ChanneledLogger) *VisitorService {
	return &VisitorService{
		store:        store,
		clock:        clock,
		window:       returnWindow,
		logger:       logger,
		newVisitorID: security.GenerateVisitorID,
		newLeadCode:  security.GenerateLeadCode,
	}
}

// GetOrCreateVisitorID returns the stable visitor id, creating and persisting
// an identity on first call.
func (s *VisitorService) GetOrCreateVisitorID(ctx context.Context) string {
	return s.Identity(ctx).VisitorID
}

// Identity returns the persisted identity, creating or repairing it first
// when needed. It never counts a visit.
func (s *VisitorService) Identity(ctx context.Context) *visitor.Identity {
	now := s.clock.Now()
	identity, ok := s.load(ctx)
	if !ok {
		identity = visitor.NewIdentity(s.newVisitorID(), s.newLeadCode(), now)
		s.logger.Session().Info("Visitor identity created", "visitorId", identity.VisitorID)
		s.save(ctx, identity)
		return identity
	}
	if repaired := identity.Repair(s.newVisitorID, s.newLeadCode, now); len(repaired) > 0 {
		s.logger.Session().Warn("Visitor identity repaired", "fields", repaired)
		s.save(ctx, identity)
	}
	return identity
}

// UpdateVisitorData is called on every session bootstrap. A first-ever visit
// initializes the record; otherwise the visit is counted when more than the
// return window has passed since the last one.
func (s *VisitorService) UpdateVisitorData(ctx context.Context) *visitor.Identity {
	now := s.clock.Now()
	identity, ok := s.load(ctx)
	if !ok {
		identity = visitor.NewIdentity(s.newVisitorID(), s.newLeadCode(), now)
		s.logger.Session().Info("First visit recorded", "visitorId", identity.VisitorID)
		s.save(ctx, identity)
		return identity
	}

	if repaired := identity.Repair(s.newVisitorID, s.newLeadCode, now); len(repaired) > 0 {
		s.logger.Session().Warn("Visitor identity repaired", "fields", repaired)
	}
	previous := identity.LastVisit
	if identity.RegisterVisit(now, s.window) {
		s.logger.Session().Info("Returning visit counted",
			"visitorId", identity.VisitorID,
			"visitCount", identity.VisitCount,
			"sinceLastVisit", now.Sub(previous))
	}
	s.save(ctx, identity)
	return identity
}

// GetVisitCount returns the persisted visit count, 1 when nothing is stored.
func (s *VisitorService) GetVisitCount(ctx context.Context) int {
	return s.GetVisitorInfo(ctx).VisitCount
}

// IsReturningVisitor reports whether the browser has visited more than once.
func (s *VisitorService) IsReturningVisitor(ctx context.Context) bool {
	return s.GetVisitorInfo(ctx).Returning
}

// GetVisitorInfo is a pure read over the persisted identity.
func (s *VisitorService) GetVisitorInfo(ctx context.Context) visitor.Info {
	identity, ok := s.load(ctx)
	if !ok {
		return visitor.Info{VisitCount: 1, FirstVisit: s.clock.Now()}
	}
	if identity.VisitCount < 1 {
		identity.VisitCount = 1
	}
	return identity.Info()
}

func (s *VisitorService) load(ctx context.Context) (*visitor.Identity, bool) {
	raw, err := s.store.Load(ctx, repositories.KeyVisitorData)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.logger.Session().Warn("Visitor data unreadable, treating as first visit", "error", err.Error())
		}
		return nil, false
	}
	var identity visitor.Identity
	if err := json.Unmarshal(raw, &identity); err != nil {
		s.logger.Session().Warn("Visitor data malformed, treating as first visit", "error", err.Error())
		return nil, false
	}
	return &identity, true
}

func (s *VisitorService) save(ctx context.Context, identity *visitor.Identity) {
	raw, err := json.Marshal(identity)
	if err != nil {
		s.logger.Session().Error("Failed to encode visitor data", "error", err.Error())
		return
	}
	if err := s.store.Save(ctx, repositories.KeyVisitorData, raw); err != nil {
		s.logger.Session().Error("Failed to persist visitor data", "error", err.Error())
	}
}
