package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"telegram_miniapp/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis for rate limiting. It returns nil when
// addr is empty or the server does not answer, and callers fall back to the
// in-memory limiter.
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-memory rate limiting", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}
	logger.Info("redis rate limiter connected", "addr", addr)
	return client
}

// RedisRateLimit implements a fixed-window rate limiter using Redis INCR/EXPIRE.
// key format: rl:<scope>:<window_seconds>:<client_ip>
// A nil client selects SimpleRateLimit.
func RedisRateLimit(client *redis.Client, scope string, maxRequests int, window time.Duration) gin.HandlerFunc {
	if client == nil {
		return SimpleRateLimit(maxRequests, window)
	}
	return func(c *gin.Context) {
		key := "rl:" + scope + ":" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + c.ClientIP()
		if !allow(c, client, key, maxRequests, window, c.FullPath()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// UserRateLimit limits requests per identified Telegram user. Requests with
// no identity are left to the IP limiter.
func UserRateLimit(client *redis.Client, maxRequests int, window time.Duration) gin.HandlerFunc {
	var mem *memoryLimiter
	if client == nil {
		mem = newMemoryLimiter()
	}
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.Next()
			return
		}

		key := "user_rl:" + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		endpoint := "user:" + c.FullPath()

		var allowed bool
		if mem != nil {
			allowed = mem.hit(key, window) <= maxRequests
			if allowed {
				RLRequests.WithLabelValues(endpoint).Inc()
			} else {
				RLBlocked.WithLabelValues(endpoint).Inc()
			}
		} else {
			allowed = allow(c, client, key, maxRequests, window, endpoint)
		}

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}
		c.Next()
	}
}

// allow counts the request in Redis. Redis errors fail open.
func allow(c *gin.Context, client *redis.Client, key string, maxRequests int, window time.Duration, endpoint string) bool {
	ctx := c.Request.Context()

	val, err := client.Incr(ctx, key).Result()
	if err != nil {
		c.Header("X-RateLimit-Error", "redis-error")
		logger.WithContext(ctx).Warn("rate limiter redis error", "error", err)
		return true
	}
	if val == 1 {
		client.Expire(ctx, key, window)
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(maxRequests)-val), 10))

	if val > int64(maxRequests) {
		RLBlocked.WithLabelValues(endpoint).Inc()
		return false
	}
	RLRequests.WithLabelValues(endpoint).Inc()
	return true
}
