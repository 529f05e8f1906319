package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/session"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/repositories"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/security"
)

// SessionConfig holds the session lifecycle settings.
type SessionConfig struct {
	Timeout          time.Duration
	TimelineCapacity int
}

// SessionManager owns the single active session of one browser. It caches
// the current session in memory and writes every change through to store.
type SessionManager struct {
	store    repositories.StateStore
	visitors *VisitorService
	clock    Clock
	cfg      SessionConfig
	logger   *logging.ChanneledLogger
	metrics  *performance.Metrics

	env     session.Environment
	current *session.Session
}

// NewSessionManager creates a session manager over store.
func NewSessionManager(store repositories.StateStore, visitors *VisitorService, clock Clock, cfg SessionConfig, logger *logging.ChanneledLogger, metrics *performance.Metrics) *SessionManager {
	return &SessionManager{
		store:    store,
		visitors: visitors,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// SetEnvironment records the metadata captured into the next fresh session.
// An active session keeps the environment it started with.
func (m *SessionManager) SetEnvironment(env session.Environment) {
	m.env = env
}

// GetSession returns the current session, loading, repairing or replacing
// it as needed. The result is the live session; callers mutate it only
// through UpdateSession.
func (m *SessionManager) GetSession(ctx context.Context) *session.Session {
	now := m.clock.Now()

	if m.current != nil {
		if !m.current.Expired(now, m.cfg.Timeout) {
			return m.current
		}
		m.logger.Session().Info("Session expired, replacing",
			"sessionId", logging.MaskID(m.current.SessionID),
			"age", now.Sub(m.current.StartTime))
		m.current = m.startFresh(ctx, now)
		return m.current
	}

	loaded, err := m.load(ctx)
	switch {
	case err != nil:
		if !errors.Is(err, repositories.ErrNotFound) {
			m.logger.Session().Warn("Persisted session unusable, starting fresh", "error", err.Error())
		}
		m.current = m.startFresh(ctx, now)
	case loaded.Expired(now, m.cfg.Timeout):
		m.logger.Session().Info("Persisted session expired, replacing",
			"sessionId", logging.MaskID(loaded.SessionID),
			"age", now.Sub(loaded.StartTime))
		m.current = m.startFresh(ctx, now)
	default:
		if loaded.NeedsRepair() {
			identity := m.visitors.Identity(ctx)
			repaired := loaded.Repair(identity.VisitorID, identity.LeadCode)
			m.logger.Session().Warn("Persisted session repaired",
				"sessionId", logging.MaskID(loaded.SessionID),
				"fields", repaired)
			if err := m.save(ctx, loaded); err != nil {
				m.logger.Session().Error("Failed to persist repaired session", "error", err.Error())
			}
		}
		m.current = loaded
	}
	return m.current
}

// UpdateSession applies mutate to the current session, recomputes the time
// on site and persists the whole session. The last writer wins.
func (m *SessionManager) UpdateSession(ctx context.Context, mutate func(*session.Session)) (*session.Session, error) {
	s := m.GetSession(ctx)
	if mutate != nil {
		mutate(s)
	}
	s.Touch(m.clock.Now())
	if err := m.save(ctx, s); err != nil {
		return s, err
	}
	return s, nil
}

// AddToSessionArray appends value to a set-like field unless already present.
// It reports whether the value was added.
func (m *SessionManager) AddToSessionArray(ctx context.Context, field session.ArrayField, value string) (bool, error) {
	var (
		added  bool
		addErr error
	)
	_, err := m.UpdateSession(ctx, func(s *session.Session) {
		added, addErr = s.AddUnique(field, value)
	})
	if addErr != nil {
		return false, addErr
	}
	return added, err
}

func (m *SessionManager) startFresh(ctx context.Context, now time.Time) *session.Session {
	identity := m.visitors.UpdateVisitorData(ctx)
	s := session.New(security.GenerateULID(), identity.VisitorID, identity.LeadCode, m.env, now)
	s.AppendTimeline(session.TimelineEvent{
		Timestamp: now,
		Action:    session.ActionSessionStart,
		Details:   s.Environment.Referrer,
	}, m.cfg.TimelineCapacity)

	if err := m.save(ctx, s); err != nil {
		m.logger.Session().Error("Failed to persist new session", "error", err.Error())
	}
	m.metrics.RecordSessionStart()
	m.metrics.RecordEvent(session.ActionSessionStart)
	m.logger.Session().Info("Session started",
		"sessionId", logging.MaskID(s.SessionID),
		"leadCode", s.LeadCode,
		"visitCount", identity.VisitCount)
	return s
}

func (m *SessionManager) load(ctx context.Context) (*session.Session, error) {
	raw, err := m.store.Load(ctx, repositories.KeyLeadSession)
	if err != nil {
		return nil, err
	}
	var s session.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if s.SessionID == "" || s.StartTime.IsZero() {
		return nil, fmt.Errorf("session record incomplete")
	}
	return &s, nil
}

func (m *SessionManager) save(ctx context.Context, s *session.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := m.store.Save(ctx, repositories.KeyLeadSession, raw); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	return nil
}
