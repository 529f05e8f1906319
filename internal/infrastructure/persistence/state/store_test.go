package state

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/repositories"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/leadtrack-go/pkg/config"
)

func backends(t *testing.T) map[string]repositories.KeyedStateStore {
	t.Helper()
	logger := logging.NewDiscardLogger()

	badgerStore, err := NewBadgerStore(filepath.Join(t.TempDir(), "state"), logger)
	require.NoError(t, err)

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "state.db"), logger)
	require.NoError(t, err)

	t.Cleanup(func() {
		badgerStore.Close()
		db.Close()
	})

	return map[string]repositories.KeyedStateStore{
		"memory": NewMemoryStore(),
		"badger": badgerStore,
		"sqlite": NewSQLStore(db, logger),
	}
}

func TestStateStores_RoundTripAndNamespaces(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.LoadKey(ctx, "browser-a", repositories.KeyLeadSession)
			assert.ErrorIs(t, err, repositories.ErrNotFound)

			require.NoError(t, store.SaveKey(ctx, "browser-a", repositories.KeyLeadSession, []byte(`{"v":1}`)))
			require.NoError(t, store.SaveKey(ctx, "browser-b", repositories.KeyLeadSession, []byte(`{"v":2}`)))

			got, err := store.LoadKey(ctx, "browser-a", repositories.KeyLeadSession)
			require.NoError(t, err)
			assert.JSONEq(t, `{"v":1}`, string(got))

			require.NoError(t, store.SaveKey(ctx, "browser-a", repositories.KeyLeadSession, []byte(`{"v":3}`)))
			got, err = store.LoadKey(ctx, "browser-a", repositories.KeyLeadSession)
			require.NoError(t, err)
			assert.JSONEq(t, `{"v":3}`, string(got))

			got, err = store.LoadKey(ctx, "browser-b", repositories.KeyLeadSession)
			require.NoError(t, err)
			assert.JSONEq(t, `{"v":2}`, string(got))

			_, err = store.LoadKey(ctx, "browser-a", repositories.KeyVisitorData)
			assert.ErrorIs(t, err, repositories.ErrNotFound)
		})
	}
}

func TestSQLStore_LogsSlowQueries(t *testing.T) {
	previous := config.SlowQueryThreshold
	config.SlowQueryThreshold = -time.Nanosecond
	t.Cleanup(func() { config.SlowQueryThreshold = previous })

	var buf bytes.Buffer
	cfg := logging.DefaultLoggerConfig()
	cfg.Writer = &buf
	cfg.DefaultLevel = slog.LevelInfo
	logger, err := logging.NewChanneledLogger(cfg)
	require.NoError(t, err)

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "state.db"), logging.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	store := NewSQLStore(db, logger)
	require.NoError(t, store.SaveKey(ctx, "browser-1", "session", []byte(`{}`)))
	_, err = store.LoadKey(ctx, "browser-1", "session")
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"channel":"slow-query"`)
	assert.Contains(t, out, "SQL_STATE_SET session")
	assert.Contains(t, out, "SQL_STATE_GET session")
}

func TestScope_BindsNamespace(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryStore()
	a := repositories.Scope(backend, "a")
	b := repositories.Scope(backend, "b")

	require.NoError(t, a.Save(ctx, repositories.KeyVisitorData, []byte("one")))
	_, err := b.Load(ctx, repositories.KeyVisitorData)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	got, err := backend.LoadKey(ctx, "a", repositories.KeyVisitorData)
	require.NoError(t, err)
	assert.Equal(t, "one", string(got))
}

func TestBadgerStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "state")
	logger := logging.NewDiscardLogger()

	store, err := NewBadgerStore(dir, logger)
	require.NoError(t, err)
	require.NoError(t, store.SaveKey(ctx, "browser-a", repositories.KeyVisitorData, []byte("persisted")))
	require.NoError(t, store.Close())

	reopened, err := NewBadgerStore(dir, logger)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.LoadKey(ctx, "browser-a", repositories.KeyVisitorData)
	require.NoError(t, err)
	assert.Equal(t, "persisted", string(got))
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	value := []byte("abc")
	require.NoError(t, store.SaveKey(ctx, "n", "k", value))
	value[0] = 'z'

	got, err := store.LoadKey(ctx, "n", "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}
