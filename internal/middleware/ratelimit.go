package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Kosench/go-url-tracker/internal/cache"
)

func tooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":   "rate_limit_exceeded",
		"message": "Too many requests. Please try again later.",
	})
}

// RedisRateLimit counts requests per client IP in Redis so every instance
// shares the budget. Redis errors let the request through.
func RedisRateLimit(limiter cache.RateLimiter, maxRequests int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		count, err := limiter.IncrementRateLimit(c.Request.Context(), clientIP, window)
		if err != nil {
			log.Warn("rate limit check failed", zap.String("client_ip", clientIP), zap.Error(err))
			c.Next()
			return
		}

		if count > int64(maxRequests) {
			tooManyRequests(c)
			return
		}

		c.Next()
	}
}

// InMemoryRateLimit is the single-instance fallback used when Redis is off.
func InMemoryRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	var mu sync.Mutex
	requests := make(map[string][]time.Time)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		now := time.Now()

		mu.Lock()
		valid := requests[clientIP][:0]
		for _, t := range requests[clientIP] {
			if now.Sub(t) < window {
				valid = append(valid, t)
			}
		}

		if len(valid) >= maxRequests {
			requests[clientIP] = valid
			mu.Unlock()
			tooManyRequests(c)
			return
		}

		requests[clientIP] = append(valid, now)
		mu.Unlock()

		c.Next()
	}
}
