package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mdocs/internal/metrics"
	"github.com/xxxsen/mdocs/internal/pkg/response"
)

// RedisRateLimit is a fixed-window limiter shared by every instance that
// points at the same redis. Each window admits rps*window+burst requests.
func RedisRateLimit(client *redis.Client, rps float64, burst int, window time.Duration) gin.HandlerFunc {
	return redisRateLimit(client, rps, burst, window, time.Now)
}

func redisRateLimit(client *redis.Client, rps float64, burst int, window time.Duration, now func() time.Time) gin.HandlerFunc {
	windowSeconds := int64(window.Seconds())
	if windowSeconds <= 0 {
		windowSeconds = 1
	}
	allowed := int64(rps*float64(windowSeconds)) + int64(burst)
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		bucket := now().Unix() / windowSeconds
		redisKey := fmt.Sprintf("mdocs:rl:%s:%d", rateLimitKey(c), bucket)

		cnt, err := client.Incr(ctx, redisKey).Result()
		if err != nil {
			logutil.GetLogger(ctx).Error("rate limit check failed", zap.Error(err))
			response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable, "rate limit check failed")
			c.Abort()
			return
		}
		if cnt == 1 {
			_ = client.Expire(ctx, redisKey, time.Duration(windowSeconds+1)*time.Second).Err()
		}
		if cnt > allowed {
			metrics.RateLimitRejected.WithLabelValues("redis").Inc()
			c.Header("Retry-After", fmt.Sprintf("%d", windowSeconds))
			response.Error(c, http.StatusTooManyRequests, response.CodeTooMany, http.StatusText(http.StatusTooManyRequests))
			c.Abort()
			return
		}
		metrics.RateLimitAllowed.WithLabelValues("redis").Inc()
		c.Next()
	}
}
