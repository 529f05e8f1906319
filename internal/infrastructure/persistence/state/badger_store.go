// Package state provides the durable per-browser key-value backends that hold
// visitor identity and the active session.
package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/repositories"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/persistence/database"
)

// BadgerStore keeps browser state in an embedded BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	logger *logging.ChanneledLogger
}

// NewBadgerStore opens (or creates) a BadgerDB under dir.
func NewBadgerStore(dir string, logger *logging.ChanneledLogger) (*BadgerStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger state store: %w", err)
	}
	logger.Database().Info("Badger state store opened", "dir", dir)
	return &BadgerStore{db: db, logger: logger}, nil
}

func compositeKey(namespace, key string) []byte {
	return []byte(namespace + "/" + key)
}

// LoadKey reads one value, returning repositories.ErrNotFound when absent.
func (s *BadgerStore) LoadKey(ctx context.Context, namespace, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	var result []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(compositeKey(namespace, key))
		if err != nil {
			return err
		}
		result, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, repositories.ErrNotFound
	}
	if err != nil {
		s.logger.Database().Error("Badger state load failed", "error", err.Error(), "key", key)
		return nil, fmt.Errorf("failed to load state %s: %w", key, err)
	}
	database.CheckAndLogSlowQuery(s.logger, "BADGER_GET "+key, time.Since(start), "badger")
	return result, nil
}

// SaveKey overwrites one value.
func (s *BadgerStore) SaveKey(ctx context.Context, namespace, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(compositeKey(namespace, key), value)
	})
	if err != nil {
		s.logger.Database().Error("Badger state save failed", "error", err.Error(), "key", key)
		return fmt.Errorf("failed to save state %s: %w", key, err)
	}
	database.CheckAndLogSlowQuery(s.logger, "BADGER_SET "+key, time.Since(start), "badger")
	return nil
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
