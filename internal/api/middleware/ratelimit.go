// server/internal/api/middleware/ratelimit.go
package middleware

import (
	"net/http"

	"mediradar-api-server/internal/metrics"
	"mediradar-api-server/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit applies the limiter per client IP to the named route. Counter failures let the
// request through.
func RateLimit(limiter *ratelimit.Limiter, route string, m *metrics.Metrics, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		allowed, err := limiter.Allow(c.Request.Context(), route+":"+c.ClientIP())
		if err != nil {
			log.Warn("rate limiter unavailable", zap.String("route", route), zap.Error(err))
		}
		if !allowed {
			if m != nil {
				m.RateLimited(route)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
			return
		}
		c.Next()
	}
}

// BodyLimit caps request bodies at n bytes.
func BodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if n > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
