package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/leadtrack-go/internal/application/services"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/repositories"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/performance"
)

// LeadHandlers contains the admin lead report endpoints
type LeadHandlers struct {
	reports   *services.LeadReportService
	analytics *services.AnalyticsService
	logger    *logging.ChanneledLogger
	metrics   *performance.Metrics
}

// NewLeadHandlers creates lead handlers with injected dependencies
func NewLeadHandlers(reports *services.LeadReportService, analytics *services.AnalyticsService, logger *logging.ChanneledLogger, metrics *performance.Metrics) *LeadHandlers {
	return &LeadHandlers{
		reports:   reports,
		analytics: analytics,
		logger:    logger,
		metrics:   metrics,
	}
}

// GetLeadsByCode handles GET /api/v1/leads?code= - every snapshot for a lead code
func (h *LeadHandlers) GetLeadsByCode(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code query parameter is required"})
		return
	}

	marker := performance.StartOperation(h.metrics, "leads:by_code")
	defer marker.Complete()

	snapshots, err := h.reports.FindByLeadCode(c.Request.Context(), code)
	if err != nil {
		marker.SetError(err)
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": nonNil(snapshots), "count": len(snapshots)})
}

// GetRecentLeads handles GET /api/v1/leads/recent?limit=
func (h *LeadHandlers) GetRecentLeads(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	marker := performance.StartOperation(h.metrics, "leads:recent")
	defer marker.Complete()

	snapshots, err := h.reports.ListRecent(c.Request.Context(), limit)
	if err != nil {
		marker.SetError(err)
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leads": nonNil(snapshots), "count": len(snapshots)})
}

// GetEventCounts handles GET /api/v1/leads/events?hours= - telemetry counts per event name
func (h *LeadHandlers) GetEventCounts(c *gin.Context) {
	hours := 24
	if raw := c.Query("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "hours must be a positive integer"})
			return
		}
		hours = n
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	counts, err := h.analytics.CountSince(c.Request.Context(), since)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"since": since, "counts": counts})
}

func (h *LeadHandlers) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repositories.ErrStoreUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidLeadCode):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Lead().Error("Lead report request failed", "path", c.Request.URL.Path, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lead query failed"})
	}
}

func nonNil(snapshots []*lead.Snapshot) []*lead.Snapshot {
	if snapshots == nil {
		return []*lead.Snapshot{}
	}
	return snapshots
}
