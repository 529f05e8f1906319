// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/leadtrack-go/internal/application/services"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/lead"
	"github.com/AtRiskMedia/leadtrack-go/internal/domain/entities/session"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/performance"
	"github.com/AtRiskMedia/leadtrack-go/internal/presentation/http/middleware"
)

// TrackHandlers contains the browser-facing tracking endpoints
type TrackHandlers struct {
	registry *services.TrackerRegistry
	logger   *logging.ChanneledLogger
	metrics  *performance.Metrics
}

// SessionRequest carries the environment captured on page load
type SessionRequest struct {
	Referrer         string `json:"referrer" binding:"max=2048"`
	UTMSource        string `json:"utmSource" binding:"max=256"`
	UTMMedium        string `json:"utmMedium" binding:"max=256"`
	UTMCampaign      string `json:"utmCampaign" binding:"max=256"`
	UTMTerm          string `json:"utmTerm" binding:"max=256"`
	UTMContent       string `json:"utmContent" binding:"max=256"`
	UserAgent        string `json:"userAgent" binding:"max=512"`
	DeviceType       string `json:"deviceType" binding:"max=32"`
	Browser          string `json:"browser" binding:"max=64"`
	ScreenResolution string `json:"screenResolution" binding:"max=32"`
	Language         string `json:"language" binding:"max=64"`
}

// ItemRequest names the page, section or item an interaction refers to
type ItemRequest struct {
	Page    string `json:"page" binding:"max=128"`
	Section string `json:"section" binding:"max=128"`
	Item    string `json:"item" binding:"max=128"`
}

// EventRequest is a free-form timeline entry
type EventRequest struct {
	Action  string `json:"action" binding:"required,max=64"`
	Details string `json:"details" binding:"max=256"`
	Section string `json:"section" binding:"max=64"`
}

// ContactRequest is the contact form payload
type ContactRequest struct {
	Name  string `json:"name" binding:"max=128"`
	Phone string `json:"phone" binding:"max=32"`
}

// LeadResponse is returned by the lead-producing endpoints. LeadCode is
// always set so the page can show it even when persistence failed.
type LeadResponse struct {
	LeadCode  string `json:"leadCode"`
	Persisted bool   `json:"persisted"`
	Reason    string `json:"reason,omitempty"`
}

// NewTrackHandlers creates tracking handlers with injected dependencies
func NewTrackHandlers(registry *services.TrackerRegistry, logger *logging.ChanneledLogger, metrics *performance.Metrics) *TrackHandlers {
	return &TrackHandlers{
		registry: registry,
		logger:   logger,
		metrics:  metrics,
	}
}

// PostSession handles POST /api/v1/track/session - starts or resumes a session
func (h *TrackHandlers) PostSession(c *gin.Context) {
	var req SessionRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
			return
		}
	}
	if req.UserAgent == "" {
		req.UserAgent = c.Request.UserAgent()
	}
	if req.Language == "" {
		req.Language = primaryLanguage(c.GetHeader("Accept-Language"))
	}
	if req.Referrer == "" {
		req.Referrer = c.Request.Referer()
	}
	env := session.Environment{
		Referrer:         req.Referrer,
		UTMSource:        req.UTMSource,
		UTMMedium:        req.UTMMedium,
		UTMCampaign:      req.UTMCampaign,
		UTMTerm:          req.UTMTerm,
		UTMContent:       req.UTMContent,
		UserAgent:        req.UserAgent,
		DeviceType:       req.DeviceType,
		Browser:          req.Browser,
		ScreenResolution: req.ScreenResolution,
		Language:         req.Language,
	}

	var result services.BootstrapResult
	h.run(c, "session:bootstrap", func(t *services.Tracker) error {
		result = t.Bootstrap(c.Request.Context(), env)
		return nil
	}, func() { c.JSON(http.StatusOK, result) })
}

// GetSession handles GET /api/v1/track/session - returns the live session and score
func (h *TrackHandlers) GetSession(c *gin.Context) {
	var snapshot services.TrackerSnapshot
	h.run(c, "session:snapshot", func(t *services.Tracker) error {
		snapshot = t.Snapshot(c.Request.Context())
		return nil
	}, func() { c.JSON(http.StatusOK, snapshot) })
}

// PostPage handles POST /api/v1/track/page
func (h *TrackHandlers) PostPage(c *gin.Context) {
	var req ItemRequest
	if !h.bindItem(c, &req, ItemRequest.pageValue) {
		return
	}
	h.run(c, "track:page", func(t *services.Tracker) error {
		return t.TrackPageView(c.Request.Context(), req.Page)
	}, h.ok(c))
}

// PostNavigation handles POST /api/v1/track/navigation
func (h *TrackHandlers) PostNavigation(c *gin.Context) {
	var req ItemRequest
	if !h.bindItem(c, &req, ItemRequest.sectionValue) {
		return
	}
	h.run(c, "track:navigation", func(t *services.Tracker) error {
		return t.TrackNavigationClick(c.Request.Context(), req.Section)
	}, h.ok(c))
}

// PostLeisure handles POST /api/v1/track/leisure
func (h *TrackHandlers) PostLeisure(c *gin.Context) {
	var req ItemRequest
	if !h.bindItem(c, &req, ItemRequest.itemValue) {
		return
	}
	h.run(c, "track:leisure", func(t *services.Tracker) error {
		return t.TrackLeisureClick(c.Request.Context(), req.Item)
	}, h.ok(c))
}

// PostEvent handles POST /api/v1/track/event
func (h *TrackHandlers) PostEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action is required and fields must fit their length limits"})
		return
	}
	h.run(c, "track:event", func(t *services.Tracker) error {
		return t.RecordEvent(c.Request.Context(), req.Action, req.Details, req.Section)
	}, h.ok(c))
}

// PostDwellStart handles POST /api/v1/track/dwell/:kind/start
func (h *TrackHandlers) PostDwellStart(c *gin.Context) {
	kind, err := services.ParseDwellKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	var req ItemRequest
	if !h.bindItem(c, &req, ItemRequest.itemValue) {
		return
	}
	h.run(c, "dwell:start", func(t *services.Tracker) error {
		ctx := c.Request.Context()
		switch kind {
		case services.DwellFloorPlan:
			return t.SelectFloorPlan(ctx, req.Item)
		case services.DwellGallery:
			return t.ViewGalleryImage(ctx, req.Item)
		default:
			return t.ViewFacadeImage(ctx, req.Item)
		}
	}, h.ok(c))
}

// PostDwellStop handles POST /api/v1/track/dwell/:kind/stop
func (h *TrackHandlers) PostDwellStop(c *gin.Context) {
	kind, err := services.ParseDwellKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.run(c, "dwell:stop", func(t *services.Tracker) error {
		ctx := c.Request.Context()
		switch kind {
		case services.DwellFloorPlan:
			return t.CloseFloorPlan(ctx)
		case services.DwellGallery:
			return t.CloseGallery(ctx)
		default:
			return t.CloseFacade(ctx)
		}
	}, h.ok(c))
}

// PostWhatsApp handles POST /api/v1/track/whatsapp - persists an anonymous lead
func (h *TrackHandlers) PostWhatsApp(c *gin.Context) {
	var outcome services.PersistOutcome
	h.run(c, "lead:whatsapp", func(t *services.Tracker) error {
		outcome = t.TrackWhatsAppClick(c.Request.Context())
		return nil
	}, func() { c.JSON(http.StatusOK, leadResponse(outcome)) })
}

// PostContact handles POST /api/v1/track/contact - persists a form-backed lead
func (h *TrackHandlers) PostContact(c *gin.Context) {
	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return
	}
	var outcome services.PersistOutcome
	h.run(c, "lead:contact", func(t *services.Tracker) error {
		outcome = t.SubmitContactForm(c.Request.Context(), lead.ContactFields{Name: req.Name, Phone: req.Phone})
		return nil
	}, func() { c.JSON(http.StatusOK, leadResponse(outcome)) })
}

// run executes fn against the caller's tracker, timing the operation and
// mapping errors to responses. respond is only called on success.
func (h *TrackHandlers) run(c *gin.Context, operation string, fn func(*services.Tracker) error, respond func()) {
	key, ok := middleware.GetVisitorKey(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "visitor key not resolved"})
		return
	}

	marker := performance.StartOperation(h.metrics, operation)
	marker.AddMetadata("visitorKey", logging.MaskID(key))

	err := h.registry.With(c.Request.Context(), key, fn)
	if err != nil {
		marker.SetError(err)
	}
	marker.Complete()
	h.logger.Perf().Debug("Tracking operation completed",
		"operation", operation,
		"duration", marker.Duration,
		"success", marker.Success,
		"metadata", marker.Metadata)

	if err != nil {
		h.logger.WithVisitor(logging.ChannelTracker, key).Warn("Tracking request failed",
			"operation", operation,
			"error", err.Error())
		if errors.Is(err, services.ErrEmptyItem) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "tracking failed"})
		return
	}
	respond()
}

func (h *TrackHandlers) ok(c *gin.Context) func() {
	return func() { c.JSON(http.StatusOK, gin.H{"success": true}) }
}

// bindItem decodes an ItemRequest and checks that the field selected by
// value is present.
func (h *TrackHandlers) bindItem(c *gin.Context, req *ItemRequest, value func(ItemRequest) string) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request format"})
		return false
	}
	if strings.TrimSpace(value(*req)) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value is required"})
		return false
	}
	return true
}

func (r ItemRequest) pageValue() string    { return r.Page }
func (r ItemRequest) sectionValue() string { return r.Section }
func (r ItemRequest) itemValue() string    { return r.Item }

func leadResponse(outcome services.PersistOutcome) LeadResponse {
	code, _ := outcome.Code()
	return LeadResponse{
		LeadCode:  code,
		Persisted: outcome.Persisted,
		Reason:    outcome.Reason,
	}
}

// primaryLanguage returns the first tag of an Accept-Language header.
func primaryLanguage(header string) string {
	first, _, _ := strings.Cut(header, ",")
	first, _, _ = strings.Cut(first, ";")
	return strings.TrimSpace(first)
}
