package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/analytics"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
)

type fakeEventRepo struct {
	mu     sync.Mutex
	stored []*analytics.ActionEvent
}

func (r *fakeEventRepo) StoreActionEvent(_ context.Context, event *analytics.ActionEvent) error {
	r.mu.Lock()
	r.stored = append(r.stored, event)
	r.mu.Unlock()
	return nil
}

func (r *fakeEventRepo) FindActionEventsInRange(context.Context, time.Time, time.Time) ([]*analytics.ActionEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*analytics.ActionEvent(nil), r.stored...), nil
}

func (r *fakeEventRepo) CountByName(_ context.Context, since time.Time) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[string]int{}
	for _, e := range r.stored {
		if !e.CreatedAt.Before(since) {
			counts[e.Name]++
		}
	}
	return counts, nil
}

func (r *fakeEventRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stored)
}

func TestAnalyticsService_WithoutRepository(t *testing.T) {
	ctx := context.Background()
	svc := NewAnalyticsService(nil, 1, newFakeClock(), logging.NewDiscardLogger())

	for i := 0; i < 10; i++ {
		svc.LogEvent(ctx, analytics.EventPageView, map[string]any{"page_title": "home"})
	}

	counts, err := svc.CountSince(ctx, t0)
	require.NoError(t, err)
	assert.Empty(t, counts)

	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return immediately without a repository")
	}
}

func TestAnalyticsService_RunStoresEvents(t *testing.T) {
	repo := &fakeEventRepo{}
	svc := NewAnalyticsService(repo, 16, newFakeClock(), logging.NewDiscardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	params := map[string]any{ParamSessionID: "session-1", ParamVisitorID: "visitor-1", "page_title": "home"}
	svc.LogEvent(ctx, analytics.EventPageView, params)
	params["page_title"] = "changed"

	require.Eventually(t, func() bool { return repo.count() == 1 }, time.Second, 5*time.Millisecond)

	repo.mu.Lock()
	event := repo.stored[0]
	repo.mu.Unlock()
	assert.Equal(t, analytics.EventPageView, event.Name)
	assert.Equal(t, "session-1", event.SessionID)
	assert.Equal(t, "visitor-1", event.VisitorID)
	assert.Equal(t, "home", event.Params["page_title"])
	assert.Equal(t, t0, event.CreatedAt)
	assert.NotEmpty(t, event.ID)

	counts, err := svc.CountSince(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{analytics.EventPageView: 1}, counts)
}

func TestAnalyticsService_DrainsOnShutdown(t *testing.T) {
	repo := &fakeEventRepo{}
	svc := NewAnalyticsService(repo, 8, newFakeClock(), logging.NewDiscardLogger())
	ctx, cancel := context.WithCancel(context.Background())

	for i := 0; i < 3; i++ {
		svc.LogEvent(ctx, analytics.EventFormSubmit, map[string]any{})
	}
	cancel()
	svc.Run(ctx)

	assert.Equal(t, 3, repo.count())
}

func TestAnalyticsService_FullQueueDrops(t *testing.T) {
	repo := &fakeEventRepo{}
	svc := NewAnalyticsService(repo, 1, newFakeClock(), logging.NewDiscardLogger())
	ctx, cancel := context.WithCancel(context.Background())

	svc.LogEvent(ctx, analytics.EventPageView, map[string]any{})
	svc.LogEvent(ctx, analytics.EventPageView, map[string]any{})
	cancel()
	svc.Run(ctx)

	assert.Equal(t, 1, repo.count())
}
