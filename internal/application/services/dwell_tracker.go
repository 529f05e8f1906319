package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/session"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
)

// ErrEmptyItem is returned when a timer is started without an item.
var ErrEmptyItem = errors.New("item is required")

// DwellKind names one of the three timed-activity trackers.
type DwellKind string

const (
	DwellFloorPlan DwellKind = "floor-plan"
	DwellGallery   DwellKind = "gallery"
	DwellFacade    DwellKind = "facade"
)

// ParseDwellKind validates a kind taken from a request path.
func ParseDwellKind(s string) (DwellKind, error) {
	switch k := DwellKind(s); k {
	case DwellFloorPlan, DwellGallery, DwellFacade:
		return k, nil
	default:
		return "", fmt.Errorf("unknown dwell tracker %q", s)
	}
}

// DwellTracker accumulates whole seconds spent with each item active. At most
// one item is open at a time; starting another item closes the current one.
type DwellTracker interface {
	Kind() DwellKind
	Start(ctx context.Context, item string) error
	Stop(ctx context.Context) error
	TimeSpent(ctx context.Context, item string) int
}

type dwellTracker struct {
	kind     DwellKind
	sessions *SessionManager
	clock    Clock
	logger   *logging.ChanneledLogger
	state    func(*session.Session) *session.DwellState
}

func (t *dwellTracker) Kind() DwellKind { return t.kind }

func (t *dwellTracker) Start(ctx context.Context, item string) error {
	if item == "" {
		return fmt.Errorf("%s tracker: %w", t.kind, ErrEmptyItem)
	}
	now := t.clock.Now()
	var (
		closed string
		secs   int
	)
	_, err := t.sessions.UpdateSession(ctx, func(s *session.Session) {
		closed, secs = t.state(s).Open(item, now)
	})
	if closed != "" {
		t.logger.Tracker().Debug("Dwell timer switched",
			"tracker", t.kind,
			"closed", closed,
			"seconds", secs,
			"opened", item)
	}
	return err
}

func (t *dwellTracker) Stop(ctx context.Context) error {
	if !t.state(t.sessions.GetSession(ctx)).IsOpen() {
		return nil
	}
	now := t.clock.Now()
	var (
		closed string
		secs   int
	)
	_, err := t.sessions.UpdateSession(ctx, func(s *session.Session) {
		closed, secs = t.state(s).Close(now)
	})
	t.logger.Tracker().Debug("Dwell timer stopped", "tracker", t.kind, "item", closed, "seconds", secs)
	return err
}

func (t *dwellTracker) TimeSpent(ctx context.Context, item string) int {
	state := t.state(t.sessions.GetSession(ctx))
	return state.Seconds(item)
}

// FloorPlanTracker times how long each floor plan stays selected.
type FloorPlanTracker struct{ dwellTracker }

// GalleryTracker times how long each gallery image stays open.
type GalleryTracker struct{ dwellTracker }

// FacadeTracker times how long each facade image stays open.
type FacadeTracker struct{ dwellTracker }

func NewFloorPlanTracker(sessions *SessionManager, clock Clock, logger *logging.ChanneledLogger) *FloorPlanTracker {
	return &FloorPlanTracker{dwellTracker{
		kind: DwellFloorPlan, sessions: sessions, clock: clock, logger: logger,
		state: func(s *session.Session) *session.DwellState { return &s.FloorPlans },
	}}
}

func NewGalleryTracker(sessions *SessionManager, clock Clock, logger *logging.ChanneledLogger) *GalleryTracker {
	return &GalleryTracker{dwellTracker{
		kind: DwellGallery, sessions: sessions, clock: clock, logger: logger,
		state: func(s *session.Session) *session.DwellState { return &s.GalleryImages },
	}}
}

func NewFacadeTracker(sessions *SessionManager, clock Clock, logger *logging.ChanneledLogger) *FacadeTracker {
	return &FacadeTracker{dwellTracker{
		kind: DwellFacade, sessions: sessions, clock: clock, logger: logger,
		state: func(s *session.Session) *session.DwellState { return &s.FacadeImages },
	}}
}
