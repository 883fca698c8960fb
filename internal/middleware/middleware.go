package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	ClientIDHeader  = "X-Client-ID"
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per X-Client-ID. Buckets idle for
// longer than idle are dropped.
type RateLimiter struct {
	clients map[string]*client
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	idle    time.Duration
	sweep   time.Time
	now     func() time.Time
}

func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		clients: make(map[string]*client),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idle:    10 * time.Minute,
		now:     time.Now,
	}
}

func (r *RateLimiter) allow(clientID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.sweep) > r.idle {
		for id, c := range r.clients {
			if now.Sub(c.lastSeen) > r.idle {
				delete(r.clients, id)
			}
		}
		r.sweep = now
	}

	c, ok := r.clients[clientID]
	if !ok {
		c = &client{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.clients[clientID] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetHeader(ClientIDHeader)
		if clientID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-Client-ID header required"})
			return
		}
		if !r.allow(clientID) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// RequestLogger tags each request with a request id (reusing the caller's
// X-Request-ID when present) and logs it on completion.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("request_id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_id", c.GetHeader(ClientIDHeader)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warn("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// RequestID returns the id set by RequestLogger.
func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
