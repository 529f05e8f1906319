// Package leads provides the document-store implementations backing lead
// snapshots: SQL (SQLite or libSQL/Turso) and DynamoDB.
package leads

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/leadtrack-go/pkg/config"
)

// SQLLeadRepository stores each snapshot as a JSON document row.
type SQLLeadRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLLeadRepository creates a new instance of the repository.
func NewSQLLeadRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLLeadRepository {
	return &SQLLeadRepository{
		db:     db,
		logger: logger,
	}
}

// InsertDocument appends a snapshot and returns its generated id.
func (r *SQLLeadRepository) InsertDocument(ctx context.Context, collection string, snapshot *lead.Snapshot) (string, error) {
	if snapshot == nil {
		return "", fmt.Errorf("nil snapshot")
	}
	id := security.GenerateULID()
	doc := *snapshot
	doc.ID = id

	body, err := json.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode lead snapshot: %w", err)
	}

	const query = `
		INSERT INTO lead_documents (id, collection, lead_code, lead_trigger, interest_score, created_at, body)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing lead document insert",
		"id", id,
		"collection", collection,
		"leadCode", doc.LeadCode,
		"trigger", doc.Trigger)

	_, err = r.db.ExecContext(ctx, query,
		id,
		collection,
		doc.LeadCode,
		string(doc.Trigger),
		doc.InterestScore,
		database.FormatTime(doc.CreatedAt),
		string(body),
	)
	if err != nil {
		r.logger.Database().Error("Lead document insert failed",
			"error", err.Error(),
			"id", id,
			"leadCode", doc.LeadCode)
		return "", fmt.Errorf("failed to insert lead document: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Lead document insert completed",
		"id", id,
		"leadCode", doc.LeadCode,
		"duration", duration)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, r.db.Driver)
	}
	return id, nil
}

// QueryDocuments returns snapshots newest first, filtered by lead code when set.
func (r *SQLLeadRepository) QueryDocuments(ctx context.Context, collection string, q lead.Query) ([]*lead.Snapshot, error) {
	var (
		query string
		args  []any
		label string
	)
	if q.LeadCode != "" {
		query = `
			SELECT body FROM lead_documents
			WHERE collection = ? AND lead_code = ?
			ORDER BY created_at DESC
			LIMIT ?`
		args = []any{collection, q.LeadCode, q.EffectiveLimit()}
		label = "FIND_LEADS_BY_CODE"
	} else {
		query = `
			SELECT body FROM lead_documents
			WHERE collection = ?
			ORDER BY created_at DESC
			LIMIT ?`
		args = []any{collection, q.EffectiveLimit()}
		label = "LIST_RECENT_LEADS"
	}

	start := time.Now()
	r.logger.Database().Debug("Querying lead documents", "collection", collection, "leadCode", q.LeadCode)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Database().Error("Lead document query failed", "error", err.Error(), "collection", collection)
		return nil, fmt.Errorf("failed to query lead documents: %w", err)
	}
	defer rows.Close()

	snapshots := []*lead.Snapshot{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("failed to scan lead document: %w", err)
		}
		var snapshot lead.Snapshot
		if err := json.Unmarshal([]byte(body), &snapshot); err != nil {
			r.logger.Database().Warn("Skipping malformed lead document", "error", err.Error())
			continue
		}
		snapshots = append(snapshots, &snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate lead documents: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Lead document query completed",
		"collection", collection,
		"count", len(snapshots),
		"duration", duration)
	database.CheckAndLogSlowQuery(r.logger, label, duration, r.db.Driver)
	return snapshots, nil
}
