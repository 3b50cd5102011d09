// File: backend/services/session-service/internal/handler/http/middleware/auth_middleware.go

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	jwtutil "github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/utils/jwt"
)

const (
	AuthHeaderKey       = "Authorization"
	AuthTypeBearer      = "Bearer"
	GinContextUserIDKey = "userID"
	GinContextEmailKey  = "email"
	GinContextJTIKey    = "jti"
	GinContextClaimsKey = "claims"
)

// TokenVerifier проверяет токен доступа и возвращает его claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*jwtutil.AccessTokenClaims, error)
}

// AuthMiddleware проверяет JWT токен в заголовке Authorization.
// Любая причина отказа (подпись, срок действия, отзыв, недоступность
// хранилища) отдается клиенту одинаковым ответом 401.
func AuthMiddleware(tokens TokenVerifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], AuthTypeBearer) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer <token>"})
			return
		}

		claims, err := tokens.Verify(c.Request.Context(), parts[1])
		if err != nil {
			logger.Warn("AuthMiddleware: token verification failed",
				zap.Error(err),
				zap.String("client_ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(GinContextClaimsKey, claims)
		c.Set(GinContextUserIDKey, claims.UserID)
		c.Set(GinContextEmailKey, claims.Email)
		c.Set(GinContextJTIKey, claims.ID)

		c.Next()
	}
}
