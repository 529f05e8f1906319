package analytics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/analytics"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/persistence/database"
)

func newRepo(t *testing.T) *SQLEventRepository {
	t.Helper()
	logger := logging.NewDiscardLogger()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "events.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLEventRepository(db, logger)
}

func TestSQLEventRepository_StoreAndRange(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	t0 := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	require.NoError(t, repo.StoreActionEvent(ctx, &analytics.ActionEvent{
		Name:      analytics.EventViewFloorPlan,
		VisitorID: "visitor_1",
		SessionID: "01HSESSION",
		Params:    map[string]any{"plan_name": "Garden 01"},
		CreatedAt: t0,
	}))
	require.NoError(t, repo.StoreActionEvent(ctx, &analytics.ActionEvent{
		Name:      analytics.EventPageView,
		CreatedAt: t0.Add(time.Hour),
	}))

	events, err := repo.FindActionEventsInRange(ctx, t0.Add(-time.Minute), t0.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotEmpty(t, events[0].ID)
	assert.Equal(t, analytics.EventViewFloorPlan, events[0].Name)
	assert.Equal(t, "Garden 01", events[0].Params["plan_name"])
	assert.True(t, events[0].CreatedAt.Equal(t0))
}

func TestSQLEventRepository_CountByName(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	t0 := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

	for i, name := range []string{
		analytics.EventPageView,
		analytics.EventPageView,
		analytics.EventContactWhatsApp,
	} {
		require.NoError(t, repo.StoreActionEvent(ctx, &analytics.ActionEvent{
			Name:      name,
			CreatedAt: t0.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, repo.StoreActionEvent(ctx, &analytics.ActionEvent{
		Name:      analytics.EventFormSubmit,
		CreatedAt: t0.Add(-time.Hour),
	}))

	counts, err := repo.CountByName(ctx, t0)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		analytics.EventPageView:        2,
		analytics.EventContactWhatsApp: 1,
	}, counts)
}
