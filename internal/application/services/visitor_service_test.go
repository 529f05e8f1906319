package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/repositories"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/persistence/state"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/security"
)

func newVisitorService(store repositories.StateStore, clock *fakeClock) *VisitorService {
	return NewVisitorService(store, clock, 30*time.Minute, logging.NewDiscardLogger())
}

func TestVisitorService_FirstVisitCreatesIdentity(t *testing.T) {
	ctx := context.Background()
	store := repositories.Scope(state.NewMemoryStore(), "b1")
	svc := newVisitorService(store, newFakeClock())

	info := svc.GetVisitorInfo(ctx)
	assert.Equal(t, 1, info.VisitCount)
	assert.False(t, info.Returning)

	identity := svc.UpdateVisitorData(ctx)
	require.NotNil(t, identity)
	assert.Equal(t, 1, identity.VisitCount)
	assert.True(t, security.IsLeadCode(identity.LeadCode))
	assert.NotEmpty(t, identity.VisitorID)
	assert.Equal(t, t0, identity.FirstVisit)

	assert.Equal(t, identity.VisitorID, svc.GetOrCreateVisitorID(ctx))
	assert.Equal(t, identity.VisitorID, svc.GetOrCreateVisitorID(ctx))
}

func TestVisitorService_ReturnWindow(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	svc := newVisitorService(repositories.Scope(state.NewMemoryStore(), "b1"), clock)

	first := svc.UpdateVisitorData(ctx)

	clock.Advance(10 * time.Minute)
	within := svc.UpdateVisitorData(ctx)
	assert.Equal(t, 1, within.VisitCount)
	assert.False(t, svc.IsReturningVisitor(ctx))

	clock.Advance(31 * time.Minute)
	after := svc.UpdateVisitorData(ctx)
	assert.Equal(t, 2, after.VisitCount)
	assert.True(t, svc.IsReturningVisitor(ctx))
	assert.Equal(t, 2, svc.GetVisitCount(ctx))

	assert.Equal(t, first.VisitorID, after.VisitorID)
	assert.Equal(t, first.LeadCode, after.LeadCode)
	assert.Equal(t, t0, after.FirstVisit)
}

func TestVisitorService_ExactWindowDoesNotCount(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	svc := newVisitorService(repositories.Scope(state.NewMemoryStore(), "b1"), clock)

	svc.UpdateVisitorData(ctx)
	clock.Advance(30 * time.Minute)
	assert.Equal(t, 1, svc.UpdateVisitorData(ctx).VisitCount)
}

func TestVisitorService_CorruptDataIsFirstVisit(t *testing.T) {
	ctx := context.Background()
	store := repositories.Scope(state.NewMemoryStore(), "b1")
	require.NoError(t, store.Save(ctx, repositories.KeyVisitorData, []byte("{not json")))

	svc := newVisitorService(store, newFakeClock())
	identity := svc.UpdateVisitorData(ctx)

	assert.Equal(t, 1, identity.VisitCount)
	assert.True(t, identity.Valid())

	raw, err := store.Load(ctx, repositories.KeyVisitorData)
	require.NoError(t, err)
	assert.Contains(t, string(raw), identity.LeadCode)
}

func TestVisitorService_RepairsMissingLeadCode(t *testing.T) {
	ctx := context.Background()
	store := repositories.Scope(state.NewMemoryStore(), "b1")
	legacy := `{"visitorId":"visitor-legacy","firstVisit":"2025-03-01T09:00:00Z","lastVisit":"2025-03-01T09:00:00Z","visitCount":3}`
	require.NoError(t, store.Save(ctx, repositories.KeyVisitorData, []byte(legacy)))

	svc := newVisitorService(store, newFakeClock())
	identity := svc.Identity(ctx)

	assert.Equal(t, "visitor-legacy", identity.VisitorID)
	assert.True(t, security.IsLeadCode(identity.LeadCode))
	assert.Equal(t, 3, identity.VisitCount)

	again := svc.Identity(ctx)
	assert.Equal(t, identity.LeadCode, again.LeadCode)
}

func TestVisitorService_StorageFailureStillReturnsIdentity(t *testing.T) {
	ctx := context.Background()
	svc := newVisitorService(brokenStore{}, newFakeClock())

	identity := svc.UpdateVisitorData(ctx)
	require.NotNil(t, identity)
	assert.Equal(t, 1, identity.VisitCount)
	assert.True(t, identity.Valid())

	info := svc.GetVisitorInfo(ctx)
	assert.Equal(t, 1, info.VisitCount)
}
