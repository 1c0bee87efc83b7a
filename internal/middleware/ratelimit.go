package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RateLimit is a fixed-window per-client limit backed by Redis. With no
// Redis client configured it is a no-op, and any Redis failure fails
// open: the relay's upstream has its own quota as the real backstop.
func RateLimit(client *redis.Client, perMinute int, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || perMinute <= 0 {
			c.Next()
			return
		}

		key := fmt.Sprintf("rl:chat:%s", c.ClientIP())
		count, err := client.Incr(c, key).Result()
		if err != nil {
			log.Warn().Err(err).Msg("rate limit check failed, allowing request")
			c.Next()
			return
		}
		if count == 1 {
			client.Expire(c, key, time.Minute)
		}

		if count > int64(perMinute) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
			return
		}

		c.Next()
	}
}
