package database

import (
	"database/sql"
	"fmt"
)

// TableCreator handles the creation of the database schema.
type TableCreator struct{}

// NewTableCreator creates a new TableCreator.
func NewTableCreator() *TableCreator {
	return &TableCreator{}
}

// CreateSchema executes all necessary queries to build the tables and indexes.
func (tc *TableCreator) CreateSchema(db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.Exec(tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}

	for _, indexSQL := range indexes {
		if _, err := db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS browser_state (
		namespace TEXT NOT NULL,
		state_key TEXT NOT NULL,
		value BLOB NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (namespace, state_key)
	)`,
	`CREATE TABLE IF NOT EXISTS lead_documents (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		lead_code TEXT NOT NULL,
		lead_trigger TEXT NOT NULL,
		interest_score INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		body TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS actions (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		visitor_id TEXT,
		session_id TEXT,
		params TEXT,
		created_at TEXT NOT NULL
	)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_lead_documents_code ON lead_documents(collection, lead_code, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_lead_documents_created ON lead_documents(collection, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_actions_created ON actions(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_actions_name ON actions(name)`,
}
