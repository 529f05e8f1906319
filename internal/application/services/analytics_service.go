package services

import (
	"context"
	"maps"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/analytics"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/security"
)

// Params keys the tracker attaches to every analytics event.
const (
	ParamSessionID = "session_id"
	ParamVisitorID = "visitor_id"
)

// AnalyticsService is the best-effort analytics sink. Events are logged
// immediately and stored by a background worker; a full queue drops events.
type AnalyticsService struct {
	repo   analytics.EventRepository
	queue  chan *analytics.ActionEvent
	clock  Clock
	logger *logging.ChanneledLogger
}

// NewAnalyticsService creates the sink. repo may be nil, in which case events
// are only logged.
func NewAnalyticsService(repo analytics.EventRepository, queueSize int, clock Clock, logger *logging.ChanneledLogger) *AnalyticsService {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &AnalyticsService{
		repo:   repo,
		queue:  make(chan *analytics.ActionEvent, queueSize),
		clock:  clock,
		logger: logger,
	}
}

// LogEvent implements analytics.EventLogger. It never blocks.
func (s *AnalyticsService) LogEvent(_ context.Context, name string, params map[string]any) {
	event := &analytics.ActionEvent{
		ID:        security.GenerateULID(),
		Name:      name,
		Params:    maps.Clone(params),
		CreatedAt: s.clock.Now(),
	}
	if v, ok := params[ParamSessionID].(string); ok {
		event.SessionID = v
	}
	if v, ok := params[ParamVisitorID].(string); ok {
		event.VisitorID = v
	}

	s.logger.Analytics().Debug("Analytics event", "name", name, "sessionId", logging.MaskID(event.SessionID))

	if s.repo == nil {
		return
	}
	select {
	case s.queue <- event:
	default:
		s.logger.Analytics().Warn("Analytics queue full, dropping event", "name", name)
	}
}

// Run stores queued events until ctx is cancelled, then drains what is left.
func (s *AnalyticsService) Run(ctx context.Context) {
	if s.repo == nil {
		return
	}
	for {
		select {
		case event := <-s.queue:
			s.store(ctx, event)
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			for {
				select {
				case event := <-s.queue:
					s.store(drainCtx, event)
				default:
					cancel()
					return
				}
			}
		}
	}
}

// CountSince aggregates stored events per name.
func (s *AnalyticsService) CountSince(ctx context.Context, since time.Time) (map[string]int, error) {
	if s.repo == nil {
		return map[string]int{}, nil
	}
	return s.repo.CountByName(ctx, since)
}

func (s *AnalyticsService) store(ctx context.Context, event *analytics.ActionEvent) {
	if err := s.repo.StoreActionEvent(ctx, event); err != nil {
		s.logger.Analytics().Warn("Failed to store analytics event", "name", event.Name, "error", err.Error())
	}
}
