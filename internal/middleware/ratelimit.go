package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/himlearning/storyhub/internal/pkg/apperr"
	redispkg "github.com/himlearning/storyhub/internal/pkg/redis"
	"github.com/himlearning/storyhub/internal/pkg/response"
	"go.uber.org/zap"
)

const rateLimitPrefix = "storyhub:rate_limit:"

// RateLimit allows max requests per client IP in each fixed window.
// Redis failures let the request through.
func RateLimit(rdb *redispkg.Client, max int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" || max <= 0 || window <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		slot := time.Now().UnixNano() / int64(window)
		key := fmt.Sprintf("%s%s:%d", rateLimitPrefix, ip, slot)

		count, err := rdb.Hit(ctx, key, window)
		if err != nil {
			log.Warn("rate limit unavailable", zap.Error(err))
			c.Next()
			return
		}

		if count > int64(max) {
			response.Error(c, apperr.RateLimited("Too many requests, please slow down.", window))
			return
		}

		c.Next()
	}
}
