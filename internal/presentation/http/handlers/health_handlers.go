package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/leadtrack-go/internal/application/services"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/leadtrack-go/pkg/config"
)

// HealthHandlers reports liveness and backend configuration
type HealthHandlers struct {
	registry  *services.TrackerRegistry
	feed      *messaging.LeadFeed
	leadStore bool
	started   time.Time
}

// NewHealthHandlers creates health handlers.
func NewHealthHandlers(registry *services.TrackerRegistry, feed *messaging.LeadFeed, leadStore bool) *HealthHandlers {
	return &HealthHandlers{
		registry:  registry,
		feed:      feed,
		leadStore: leadStore,
		started:   time.Now(),
	}
}

// GetHealth handles GET /health
func (h *HealthHandlers) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "ok",
		"uptime":         time.Since(h.started).Round(time.Second).String(),
		"activeTrackers": h.registry.ActiveTrackers(),
		"feedClients":    h.feed.ClientCount(),
		"stateBackend":   config.StateBackend,
		"leadStore":      config.LeadStoreBackend,
		"leadStoreReady": h.leadStore,
	})
}
