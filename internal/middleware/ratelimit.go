package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xxxsen/mdocs/internal/metrics"
	"github.com/xxxsen/mdocs/internal/pkg/response"
)

// rateLimiter keeps one token bucket per client key. Idle buckets fall out of
// the LRU after ttl, so the table stays bounded under many distinct clients.
type rateLimiter struct {
	mu      sync.Mutex
	rps     float64
	burst   int
	buckets *expirable.LRU[string, *rate.Limiter]
}

func newRateLimiter(rps float64, burst, size int, ttl time.Duration) *rateLimiter {
	return &rateLimiter{
		rps:     rps,
		burst:   burst,
		buckets: expirable.NewLRU[string, *rate.Limiter](size, nil, ttl),
	}
}

func RateLimit(rps float64, burst, size int, ttl time.Duration) gin.HandlerFunc {
	return newRateLimiter(rps, burst, size, ttl).handle
}

func (l *rateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.buckets.Get(key); ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Limit(l.rps), l.burst)
	l.buckets.Add(key, lim)
	return lim
}

func (l *rateLimiter) handle(c *gin.Context) {
	key := rateLimitKey(c)
	if !l.limiter(key).Allow() {
		logutil.GetLogger(c.Request.Context()).Warn("rate limit hit",
			zap.String("key", key),
			zap.String("path", c.Request.URL.Path),
		)
		metrics.RateLimitRejected.WithLabelValues("memory").Inc()
		c.Header("Retry-After", "1")
		response.Error(c, http.StatusTooManyRequests, response.CodeTooMany, http.StatusText(http.StatusTooManyRequests))
		c.Abort()
		return
	}
	metrics.RateLimitAllowed.WithLabelValues("memory").Inc()
	c.Next()
}

// rateLimitKey prefers the authenticated user and falls back to the client ip.
func rateLimitKey(c *gin.Context) string {
	if v, ok := c.Get(ContextUserIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return "user:" + id
		}
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
