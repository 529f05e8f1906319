package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/analytics"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/session"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/repositories"
	domainservices "github.com/AtRiskMedia/leadtrack-go/internal/domain/services"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/persistence/state"
)

func TestTracker_Bootstrap(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture()

	first := f.tracker.Bootstrap(ctx, session.Environment{Referrer: "https://instagram.com"})
	assert.NotEmpty(t, first.SessionID)
	assert.NotEmpty(t, first.LeadCode)
	assert.NotEmpty(t, first.VisitorID)
	assert.Equal(t, 1, first.VisitCount)
	assert.False(t, first.Returning)
	assert.Equal(t, t0, first.StartTime)

	f.clock.Advance(5 * time.Minute)
	again := f.tracker.Bootstrap(ctx, session.Environment{Referrer: "https://other.example"})
	assert.Equal(t, first.SessionID, again.SessionID)
	assert.Equal(t, "https://instagram.com", f.tracker.Sessions().GetSession(ctx).Environment.Referrer)
}

func TestTracker_PageViewsDeduplicate(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture()
	boot := f.tracker.Bootstrap(ctx, session.Environment{})

	require.NoError(t, f.tracker.TrackPageView(ctx, "home"))
	require.NoError(t, f.tracker.TrackPageView(ctx, "home"))
	require.NoError(t, f.tracker.TrackNavigationClick(ctx, "amenities"))
	require.NoError(t, f.tracker.TrackLeisureClick(ctx, "PISCINA"))

	s := f.tracker.Sessions().GetSession(ctx)
	assert.Equal(t, []string{"home"}, s.PagesViewed)
	assert.Equal(t, []string{"amenities"}, s.NavigationClicks)
	assert.Equal(t, []string{"PISCINA"}, s.LeisureItemsClicked)

	var actions []string
	for _, evt := range s.Timeline {
		actions = append(actions, evt.Action)
	}
	assert.Equal(t, []string{
		session.ActionSessionStart,
		session.ActionPageView,
		session.ActionPageView,
		session.ActionNavigationClick,
		session.ActionLeisureClick,
	}, actions)
	assert.Equal(t, SectionLeisure, s.Timeline[4].Section)

	assert.Equal(t, []string{
		analytics.EventPageView,
		analytics.EventPageView,
		analytics.EventClickNavigation,
		analytics.EventClickLeisureItem,
	}, f.events.names())
	for _, evt := range f.events.all() {
		assert.Equal(t, boot.SessionID, evt.params[ParamSessionID])
		assert.Equal(t, boot.VisitorID, evt.params[ParamVisitorID])
	}
}

func TestTracker_DwellTimeline(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture()
	f.tracker.Bootstrap(ctx, session.Environment{})

	require.NoError(t, f.tracker.CloseFloorPlan(ctx))
	assert.Len(t, f.tracker.Sessions().GetSession(ctx).Timeline, 1)

	require.NoError(t, f.tracker.ViewGalleryImage(ctx, "lobby.jpg"))
	f.clock.Advance(12 * time.Second)
	require.NoError(t, f.tracker.CloseGallery(ctx))
	require.NoError(t, f.tracker.ViewFacadeImage(ctx, "north.jpg"))
	f.clock.Advance(3 * time.Second)
	require.NoError(t, f.tracker.CloseFacade(ctx))

	s := f.tracker.Sessions().GetSession(ctx)
	require.Len(t, s.Timeline, 5)
	assert.Equal(t, session.ActionGalleryClose, s.Timeline[2].Action)
	assert.Equal(t, "lobby.jpg", s.Timeline[2].Details)
	assert.Equal(t, session.ActionFacadeClose, s.Timeline[4].Action)
	assert.Equal(t, 12, f.tracker.Dwell(DwellGallery).TimeSpent(ctx, "lobby.jpg"))
	assert.Equal(t, 3, f.tracker.Dwell(DwellFacade).TimeSpent(ctx, "north.jpg"))
	assert.Nil(t, f.tracker.Dwell(DwellKind("lobby")))
}

func TestTracker_TimelineCapacity(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture()
	f.tracker.Bootstrap(ctx, session.Environment{})

	for i := 0; i <= 100; i++ {
		require.NoError(t, f.tracker.RecordEvent(ctx, "custom", fmt.Sprintf("event-%d", i), ""))
	}

	timeline := f.tracker.Sessions().GetSession(ctx).Timeline
	require.Len(t, timeline, 100)
	assert.Equal(t, "event-1", timeline[0].Details)
	assert.Equal(t, "event-100", timeline[99].Details)
}

func TestTracker_Snapshot(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture()
	f.tracker.Bootstrap(ctx, session.Environment{})

	require.NoError(t, f.tracker.SelectFloorPlan(ctx, "Garden 01"))
	f.clock.Advance(2 * time.Minute)
	require.NoError(t, f.tracker.CloseFloorPlan(ctx))
	f.clock.Advance(time.Minute)

	snap := f.tracker.Snapshot(ctx)
	assert.Equal(t, 180, snap.Session.TotalTimeOnSite)
	assert.Equal(t, domainservices.InterestScore(snap.Session), snap.InterestScore)
	assert.Equal(t, snap.InterestScore, snap.Breakdown.Total)
	assert.Equal(t, 1, snap.Visitor.VisitCount)

	snap.Session.PagesViewed = append(snap.Session.PagesViewed, "mutated")
	assert.NotContains(t, f.tracker.Sessions().GetSession(ctx).PagesViewed, "mutated")
}

func TestTracker_SnapshotWithSystemClock(t *testing.T) {
	ctx := context.Background()
	store := repositories.Scope(state.NewMemoryStore(), "browser-system-clock")
	tracker := NewTracker("browser-system-clock", store, TrackerDeps{
		Config: TrackerConfig{SessionTimeout: 30 * time.Minute, TimelineCapacity: 100},
		Logger: logging.NewDiscardLogger(),
	})

	tracker.Bootstrap(ctx, session.Environment{})
	snap := tracker.Snapshot(ctx)
	assert.GreaterOrEqual(t, snap.Session.TotalTimeOnSite, 0)
	assert.Less(t, snap.Session.TotalTimeOnSite, 60)
}

func TestTracker_RecordEventTruncatesFields(t *testing.T) {
	ctx := context.Background()
	f := newTrackerFixture()
	f.tracker.Bootstrap(ctx, session.Environment{})

	require.NoError(t, f.tracker.RecordEvent(ctx, strings.Repeat("a", 500), strings.Repeat("d", 5000), strings.Repeat("s", 500)))

	timeline := f.tracker.Sessions().GetSession(ctx).Timeline
	last := timeline[len(timeline)-1]
	assert.Len(t, last.Action, session.MaxActionLength)
	assert.Len(t, last.Details, session.MaxDetailsLength)
	assert.Len(t, last.Section, session.MaxSectionLength)
}
