package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/security"
)

const (
	// VisitorKeyHeader carries the browser key for clients that cannot keep cookies.
	VisitorKeyHeader = "X-Visitor-Key"
	// VisitorCookie persists the browser key.
	VisitorCookie = "lt_visitor"

	visitorKeyContext = "visitorKey"
	visitorCookieAge  = 400 * 24 * time.Hour
	maxVisitorKeyLen  = 128
)

// VisitorMiddleware resolves the browser key for the request, minting and
// setting a cookie when the browser has none.
func VisitorMiddleware(logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(VisitorKeyHeader)
		if key == "" {
			if cookie, err := c.Cookie(VisitorCookie); err == nil {
				key = cookie
			}
		}
		if len(key) > maxVisitorKeyLen {
			logger.HTTP().Warn("Rejecting oversized visitor key", "length", len(key))
			key = ""
		}
		if key == "" {
			key = security.GenerateBrowserKey()
			logger.HTTP().Debug("Minted browser key", "visitorKey", logging.MaskID(key))
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(VisitorCookie, key, int(visitorCookieAge.Seconds()), "/", "", c.Request.TLS != nil, true)
		c.Header(VisitorKeyHeader, key)
		c.Set(visitorKeyContext, key)
		c.Next()
	}
}

// GetVisitorKey returns the browser key resolved by VisitorMiddleware.
func GetVisitorKey(c *gin.Context) (string, bool) {
	value, exists := c.Get(visitorKeyContext)
	if !exists {
		return "", false
	}
	key, ok := value.(string)
	return key, ok && key != ""
}
