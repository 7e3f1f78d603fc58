package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimit caps webhook calls per tenant with a fixed one-minute window in
// Redis. It must run after RequireToken so the tenant identity is known.
//
// The limiter fails open: if Redis is down the relay keeps serving. Losing
// rate limiting for a while is cheaper than refusing every tenant.
func RateLimit(rdb *redis.Client, perMinute int, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID := GetTenantID(c)
		if tenantID == "" {
			c.Next()
			return
		}

		window := time.Now().Unix() / 60
		key := fmt.Sprintf("ratelimit:%s:%d", tenantID, window)

		pipe := rdb.TxPipeline()
		count := pipe.Incr(c.Request.Context(), key)
		pipe.Expire(c.Request.Context(), key, time.Minute)
		if _, err := pipe.Exec(c.Request.Context()); err != nil {
			logger.Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		if count.Val() > int64(perMinute) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
