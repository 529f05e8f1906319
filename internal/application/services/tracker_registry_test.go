package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/session"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/persistence/state"
)

func newTestRegistry(clock *fakeClock) *TrackerRegistry {
	return NewTrackerRegistry(state.NewMemoryStore(), testDeps(clock, &fakeLeadRepo{}, nil, nil, &fakeEvents{}), 10*time.Minute)
}

func TestTrackerRegistry_IsolatesBrowsers(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(newFakeClock())

	var a1, a2, b BootstrapResult
	require.NoError(t, registry.With(ctx, "a", func(tr *Tracker) error {
		a1 = tr.Bootstrap(ctx, session.Environment{})
		return nil
	}))
	require.NoError(t, registry.With(ctx, "a", func(tr *Tracker) error {
		a2 = tr.Bootstrap(ctx, session.Environment{})
		assert.Equal(t, "a", tr.Key())
		return nil
	}))
	require.NoError(t, registry.With(ctx, "b", func(tr *Tracker) error {
		b = tr.Bootstrap(ctx, session.Environment{})
		return nil
	}))

	assert.Equal(t, a1.SessionID, a2.SessionID)
	assert.NotEqual(t, a1.SessionID, b.SessionID)
	assert.NotEqual(t, a1.VisitorID, b.VisitorID)
	assert.Equal(t, 2, registry.ActiveTrackers())
}

func TestTrackerRegistry_SerializesSameBrowser(t *testing.T) {
	ctx := context.Background()
	registry := newTestRegistry(newFakeClock())

	const clicks = 50
	var wg sync.WaitGroup
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = registry.With(ctx, "shared", func(tr *Tracker) error {
				_, err := tr.Sessions().UpdateSession(ctx, func(s *session.Session) { s.WhatsAppClicks++ })
				return err
			})
		}()
	}
	wg.Wait()

	require.NoError(t, registry.With(ctx, "shared", func(tr *Tracker) error {
		assert.Equal(t, clicks, tr.Sessions().GetSession(ctx).WhatsAppClicks)
		return nil
	}))
}

func TestTrackerRegistry_EvictIdleKeepsState(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	registry := newTestRegistry(clock)

	var before BootstrapResult
	require.NoError(t, registry.With(ctx, "a", func(tr *Tracker) error {
		before = tr.Bootstrap(ctx, session.Environment{})
		return nil
	}))

	clock.Advance(11 * time.Minute)
	require.NoError(t, registry.With(ctx, "b", func(*Tracker) error { return nil }))

	assert.Equal(t, 1, registry.EvictIdle())
	assert.Equal(t, 1, registry.ActiveTrackers())

	require.NoError(t, registry.With(ctx, "a", func(tr *Tracker) error {
		after := tr.Bootstrap(ctx, session.Environment{})
		assert.Equal(t, before.SessionID, after.SessionID)
		assert.Equal(t, before.LeadCode, after.LeadCode)
		return nil
	}))
}

func TestTrackerRegistry_CancelledContext(t *testing.T) {
	registry := newTestRegistry(newFakeClock())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := registry.With(ctx, "a", func(*Tracker) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestTrackerRegistry_CleanupWorker(t *testing.T) {
	clock := newFakeClock()
	registry := newTestRegistry(clock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, registry.With(ctx, "a", func(*Tracker) error { return nil }))
	clock.Advance(time.Hour)

	done := make(chan struct{})
	go func() {
		registry.StartCleanup(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return registry.ActiveTrackers() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup worker did not stop")
	}
}
