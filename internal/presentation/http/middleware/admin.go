package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
)

// AdminTokenHeader carries the static admin token.
const AdminTokenHeader = "X-Admin-Token"

// AdminMiddleware guards the lead report endpoints. With an empty token the
// routes are open. Browsers cannot set headers on websocket upgrades, so the
// token is also accepted as the "token" query parameter.
func AdminMiddleware(token string, logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		supplied := c.GetHeader(AdminTokenHeader)
		if supplied == "" {
			supplied = c.Query("token")
		}
		if subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
			logger.HTTP().Warn("Admin request rejected", "path", c.Request.URL.Path, "ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin token required"})
			return
		}
		c.Next()
	}
}
