// File: backend/services/session-service/internal/handler/http/middleware/rate_limit_middleware.go

package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/config"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/infrastructure/ratelimit"
)

// RateLimiterInterface определяет контракт лимитера для HTTP-прослойки.
type RateLimiterInterface interface {
	Check(ctx context.Context, rule config.RateLimitRule, key string) ratelimit.Result
}

// RateLimitMiddleware ограничивает частоту запросов по IP клиента.
// Выставляет заголовки X-RateLimit-Limit и X-RateLimit-Remaining;
// при недоступности хранилища запрос пропускается (fail-open).
func RateLimitMiddleware(limiter RateLimiterInterface, rule config.RateLimitRule, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rule.Enabled {
			c.Next()
			return
		}

		key := "http:" + c.ClientIP()
		result := limiter.Check(c.Request.Context(), rule, key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			logger.Warn("Rate limit exceeded",
				zap.String("key", key),
				zap.Int("limit", rule.Limit),
				zap.Duration("window", rule.Window),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests", "code": "rate_limit_exceeded"})
			return
		}

		c.Next()
	}
}
