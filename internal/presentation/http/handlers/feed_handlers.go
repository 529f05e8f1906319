package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/messaging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
)

// FeedHandlers upgrades admin dashboards onto the live lead feed
type FeedHandlers struct {
	feed     *messaging.LeadFeed
	upgrader websocket.Upgrader
	logger   *logging.ChanneledLogger
}

// NewFeedHandlers creates feed handlers. The origin check is left to the
// CORS configuration and admin token.
func NewFeedHandlers(feed *messaging.LeadFeed, logger *logging.ChanneledLogger) *FeedHandlers {
	return &FeedHandlers{
		feed: feed,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// GetFeed handles GET /api/v1/leads/feed
func (h *FeedHandlers) GetFeed(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Feed().Warn("Feed upgrade failed", "error", err.Error())
		return
	}

	client := messaging.NewFeedClient(conn)
	h.feed.Register(client)
	h.logger.Feed().Info("Feed client connected", "ip", c.ClientIP())

	go client.WritePump()
	client.ReadPump(h.feed)
}
