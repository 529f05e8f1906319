package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/repositories"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/persistence/database"
)

// SQLStore keeps browser state in the browser_state table.
type SQLStore struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLStore creates a state store over an open, migrated database.
func NewSQLStore(db *database.DB, logger *logging.ChanneledLogger) *SQLStore {
	return &SQLStore{db: db, logger: logger}
}

// LoadKey reads one value, returning repositories.ErrNotFound when absent.
func (s *SQLStore) LoadKey(ctx context.Context, namespace, key string) ([]byte, error) {
	const query = `SELECT value FROM browser_state WHERE namespace = ? AND state_key = ?`

	start := time.Now()
	var value []byte
	err := s.db.QueryRowContext(ctx, query, namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		s.logger.Database().Error("State load failed", "error", err.Error(), "key", key)
		return nil, fmt.Errorf("failed to load state %s: %w", key, err)
	}

	database.CheckAndLogSlowQuery(s.logger, "SQL_STATE_GET "+key, time.Since(start), s.db.Driver)
	return value, nil
}

// SaveKey upserts one value.
func (s *SQLStore) SaveKey(ctx context.Context, namespace, key string, value []byte) error {
	const query = `
		INSERT INTO browser_state (namespace, state_key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, state_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	start := time.Now()
	_, err := s.db.ExecContext(ctx, query, namespace, key, value, database.FormatTime(time.Now()))
	if err != nil {
		s.logger.Database().Error("State save failed", "error", err.Error(), "key", key)
		return fmt.Errorf("failed to save state %s: %w", key, err)
	}

	database.CheckAndLogSlowQuery(s.logger, "SQL_STATE_SET "+key, time.Since(start), s.db.Driver)
	return nil
}

// Close is a no-op; the database is owned by the container.
func (s *SQLStore) Close() error {
	return nil
}
