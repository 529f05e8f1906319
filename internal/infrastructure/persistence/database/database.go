// Package database provides the core functionality for creating and managing
// database connections in a clean, isolated manner.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/pkg/config"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// Driver names registered by the imported SQL drivers.
const (
	DriverSQLite = "sqlite3"
	DriverLibSQL = "libsql"
)

// DB represents a wrapper around the standard SQL database connection.
type DB struct {
	*sql.DB
	Driver string
}

// NewConnectionWithLogger establishes a new database connection for the specified driver with logging.
func NewConnectionWithLogger(driverName, dataSourceName string, logger *logging.ChanneledLogger) (*DB, error) {
	start := time.Now()
	logger.Database().Debug("Creating new database connection", "driverName", driverName)

	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		logger.Database().Error("Failed to open database connection", "error", err.Error(), "driverName", driverName)
		return nil, err
	}

	if err = db.Ping(); err != nil {
		logger.Database().Error("Database ping failed", "error", err.Error(), "driverName", driverName)
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(config.DBMaxOpenConns)
	db.SetMaxIdleConns(config.DBMaxIdleConns)

	duration := time.Since(start)
	logger.Database().Info("Database connection established", "driverName", driverName, "duration", duration)
	if duration > GetSlowQueryThreshold() {
		logger.LogSlowQuery("DATABASE_CONNECTION", duration, driverName)
	}

	return &DB{DB: db, Driver: driverName}, nil
}

// OpenSQLite opens (creating if needed) a local SQLite file and applies the schema.
func OpenSQLite(path string, logger *logging.ChanneledLogger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := NewConnectionWithLogger(DriverSQLite, dsn, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := NewTableCreator().CreateSchema(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// OpenTurso connects to a hosted libSQL database and applies the schema.
func OpenTurso(databaseURL, authToken string, logger *logging.ChanneledLogger) (*DB, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("TURSO_DATABASE_URL is not set")
	}
	db, err := NewConnectionWithLogger(DriverLibSQL, TursoDSN(databaseURL, authToken), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to turso: %w", err)
	}
	if err := NewTableCreator().CreateSchema(db.DB); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// TimeLayout is a fixed-width UTC layout so stored timestamps sort as text.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders t for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads a stored timestamp.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

// TursoDSN appends the auth token to a libSQL URL.
func TursoDSN(databaseURL, authToken string) string {
	if authToken == "" {
		return databaseURL
	}
	return fmt.Sprintf("%s?authToken=%s", databaseURL, authToken)
}
