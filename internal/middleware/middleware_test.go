package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(h ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(h...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func get(r http.Handler, clientID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if clientID != "" {
		req.Header.Set(ClientIDHeader, clientID)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_RequiresClientID(t *testing.T) {
	r := newRouter(NewRateLimiter(1, 1).Middleware())
	w := get(r, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "X-Client-ID")
}

func TestRateLimiter_PerClientBuckets(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }
	r := newRouter(rl.Middleware())

	assert.Equal(t, http.StatusOK, get(r, "a").Code)
	assert.Equal(t, http.StatusOK, get(r, "a").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(r, "a").Code)
	assert.Equal(t, http.StatusOK, get(r, "b").Code, "other clients keep their own bucket")

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusOK, get(r, "a").Code)
}

func TestRateLimiter_DropsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	now := time.Unix(1_700_000_000, 0)
	rl.now = func() time.Time { return now }

	require.True(t, rl.allow("a"))
	now = now.Add(rl.idle + time.Second)
	require.True(t, rl.allow("b"))
	assert.NotContains(t, rl.clients, "a")
	assert.Contains(t, rl.clients, "b")
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newRouter(RequestLogger(zap.New(core)))

	w := get(r, "c1")
	require.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(RequestIDHeader)
	assert.NotEmpty(t, id)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, id, fields["request_id"])
	assert.Equal(t, "/ping", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "given")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "given", w.Header().Get(RequestIDHeader))
}
