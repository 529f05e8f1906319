// Package analytics provides the concrete SQL-based implementations
// for analytics event persistence.
//
// Every tracker telemetry event is stored to the actions table as it happens.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/analytics"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/security"
	"github.com/AtRiskMedia/leadtrack-go/pkg/config"
)

// SQLEventRepository handles real-time event persistence to database.
type SQLEventRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLEventRepository creates a new instance of the repository.
func NewSQLEventRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLEventRepository {
	return &SQLEventRepository{
		db:     db,
		logger: logger,
	}
}

// StoreActionEvent saves an analytics event to the database.
func (r *SQLEventRepository) StoreActionEvent(ctx context.Context, event *analytics.ActionEvent) error {
	if event.ID == "" {
		event.ID = security.GenerateULID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	params, err := json.Marshal(event.Params)
	if err != nil {
		return fmt.Errorf("failed to encode event params: %w", err)
	}

	const query = `
		INSERT INTO actions (id, name, visitor_id, session_id, params, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	start := time.Now()
	r.logger.Database().Debug("Executing action event insert",
		"actionId", event.ID,
		"name", event.Name,
		"sessionId", logging.MaskID(event.SessionID))

	_, err = r.db.ExecContext(ctx, query,
		event.ID,
		event.Name,
		event.VisitorID,
		event.SessionID,
		string(params),
		database.FormatTime(event.CreatedAt),
	)
	if err != nil {
		r.logger.Database().Error("Action event insert failed",
			"error", err.Error(),
			"actionId", event.ID,
			"name", event.Name)
		return fmt.Errorf("failed to store action event: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Action event insert completed",
		"actionId", event.ID,
		"name", event.Name,
		"duration", duration)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, r.db.Driver)
	}
	return nil
}

// FindActionEventsInRange retrieves all events within a given time range.
func (r *SQLEventRepository) FindActionEventsInRange(ctx context.Context, startTime, endTime time.Time) ([]*analytics.ActionEvent, error) {
	const query = `
		SELECT id, name, visitor_id, session_id, params, created_at
		FROM actions
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at ASC`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, database.FormatTime(startTime), database.FormatTime(endTime))
	if err != nil {
		r.logger.Database().Error("Action event range query failed", "error", err.Error())
		return nil, fmt.Errorf("failed to query action events: %w", err)
	}
	defer rows.Close()

	var events []*analytics.ActionEvent
	for rows.Next() {
		var (
			event     analytics.ActionEvent
			params    string
			createdAt string
		)
		if err := rows.Scan(&event.ID, &event.Name, &event.VisitorID, &event.SessionID, &params, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan action event: %w", err)
		}
		if params != "" && params != "null" {
			if err := json.Unmarshal([]byte(params), &event.Params); err != nil {
				r.logger.Database().Warn("Skipping malformed event params", "actionId", event.ID, "error", err.Error())
			}
		}
		if event.CreatedAt, err = database.ParseTime(createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse action event time: %w", err)
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate action events: %w", err)
	}

	duration := time.Since(start)
	r.logger.Database().Debug("Action event range query completed", "count", len(events), "duration", duration)
	database.CheckAndLogSlowQuery(r.logger, "LIST_ACTIONS", duration, r.db.Driver)
	return events, nil
}

// CountByName aggregates stored events per name since the given time.
func (r *SQLEventRepository) CountByName(ctx context.Context, since time.Time) (map[string]int, error) {
	const query = `SELECT name, COUNT(*) FROM actions WHERE created_at >= ? GROUP BY name`

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, database.FormatTime(since))
	if err != nil {
		return nil, fmt.Errorf("failed to count action events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			name  string
			count int
		)
		if err := rows.Scan(&name, &count); err != nil {
			return nil, fmt.Errorf("failed to scan action count: %w", err)
		}
		counts[name] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate action counts: %w", err)
	}

	database.CheckAndLogSlowQuery(r.logger, "LIST_ACTION_COUNTS", time.Since(start), r.db.Driver)
	return counts, nil
}
