package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/repositories"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/security"
)

// ErrInvalidLeadCode is returned for codes outside the lead code alphabet.
var ErrInvalidLeadCode = errors.New("invalid lead code")

// LeadReportService answers admin queries over persisted lead snapshots.
type LeadReportService struct {
	repo       repositories.LeadRepository
	collection string
	logger     *logging.ChanneledLogger
}

// NewLeadReportService creates a report service. repo may be nil.
func NewLeadReportService(repo repositories.LeadRepository, collection string, logger *logging.ChanneledLogger) *LeadReportService {
	if collection == "" {
		collection = "leads"
	}
	return &LeadReportService{repo: repo, collection: collection, logger: logger}
}

// FindByLeadCode returns every snapshot written for a lead code, newest first.
func (s *LeadReportService) FindByLeadCode(ctx context.Context, code string) ([]*lead.Snapshot, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !security.IsLeadCode(code) {
		return nil, fmt.Errorf("%w %q", ErrInvalidLeadCode, code)
	}
	return s.query(ctx, lead.Query{LeadCode: code, Limit: 500})
}

// ListRecent returns the most recent snapshots across all visitors.
func (s *LeadReportService) ListRecent(ctx context.Context, limit int) ([]*lead.Snapshot, error) {
	return s.query(ctx, lead.Query{Limit: limit})
}

func (s *LeadReportService) query(ctx context.Context, q lead.Query) ([]*lead.Snapshot, error) {
	if s.repo == nil {
		return nil, repositories.ErrStoreUnavailable
	}
	start := time.Now()
	snapshots, err := s.repo.QueryDocuments(ctx, s.collection, q)
	if err != nil {
		s.logger.Lead().Error("Lead query failed", "error", err.Error(), "leadCode", q.LeadCode)
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	s.logger.Lead().Debug("Lead query completed",
		"leadCode", q.LeadCode,
		"count", len(snapshots),
		"duration", time.Since(start))
	return snapshots, nil
}
