package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtRiskMedia/leadtrack-go/internal/infrastructure/observability/logging"
)

func newVisitorRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(VisitorMiddleware(logging.NewDiscardLogger()))
	r.GET("/key", func(c *gin.Context) {
		key, ok := GetVisitorKey(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, key)
	})
	return r
}

func TestVisitorMiddleware_HeaderWins(t *testing.T) {
	r := newVisitorRouter()
	req := httptest.NewRequest(http.MethodGet, "/key", nil)
	req.Header.Set(VisitorKeyHeader, "from-header")
	req.AddCookie(&http.Cookie{Name: VisitorCookie, Value: "from-cookie"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "from-header", w.Body.String())
	assert.Equal(t, "from-header", w.Header().Get(VisitorKeyHeader))
}

func TestVisitorMiddleware_CookieFallback(t *testing.T) {
	r := newVisitorRouter()
	req := httptest.NewRequest(http.MethodGet, "/key", nil)
	req.AddCookie(&http.Cookie{Name: VisitorCookie, Value: "from-cookie"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "from-cookie", w.Body.String())
}

func TestVisitorMiddleware_MintsKey(t *testing.T) {
	r := newVisitorRouter()

	keys := map[string]bool{}
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/key", nil))
		require.Equal(t, http.StatusOK, w.Code)
		key := w.Body.String()
		assert.NotEmpty(t, key)
		assert.Contains(t, w.Header().Get("Set-Cookie"), VisitorCookie+"="+key)
		keys[key] = true
	}
	assert.Len(t, keys, 2)
}

func TestVisitorMiddleware_RejectsOversizedKey(t *testing.T) {
	r := newVisitorRouter()
	oversized := strings.Repeat("k", maxVisitorKeyLen+1)
	req := httptest.NewRequest(http.MethodGet, "/key", nil)
	req.Header.Set(VisitorKeyHeader, oversized)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, oversized, w.Body.String())
	assert.LessOrEqual(t, len(w.Body.String()), maxVisitorKeyLen)
}

func TestGetVisitorKey_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := GetVisitorKey(c)
	assert.False(t, ok)
}

func newAdminRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AdminMiddleware(token, logging.NewDiscardLogger()))
	r.GET("/admin", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestAdminMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		header string
		query  string
		want   int
	}{
		{name: "open without token", token: "", want: http.StatusNoContent},
		{name: "missing token", token: "s3cret", want: http.StatusUnauthorized},
		{name: "wrong token", token: "s3cret", header: "nope", want: http.StatusUnauthorized},
		{name: "header token", token: "s3cret", header: "s3cret", want: http.StatusNoContent},
		{name: "query token", token: "s3cret", query: "?token=s3cret", want: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set(AdminTokenHeader, tt.header)
			}
			w := httptest.NewRecorder()
			newAdminRouter(tt.token).ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware([]string{"https://landing.example"}))
	r.POST("/track", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/track", nil)
	req.Header.Set("Origin", "https://landing.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", VisitorKeyHeader)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "https://landing.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodPost, "/track", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
