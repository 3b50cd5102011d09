// File: backend/services/session-service/internal/handler/http/middleware/auth_middleware_test.go
package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	domainErrors "github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/domain/errors"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/handler/http/middleware"
	jwtutil "github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/utils/jwt"
)

// MockTokenVerifier is a mock implementation of middleware.TokenVerifier
type MockTokenVerifier struct {
	mock.Mock
}

func (m *MockTokenVerifier) Verify(ctx context.Context, token string) (*jwtutil.AccessTokenClaims, error) {
	args := m.Called(ctx, token)
	var claims *jwtutil.AccessTokenClaims
	if args.Get(0) != nil {
		claims = args.Get(0).(*jwtutil.AccessTokenClaims)
	}
	return claims, args.Error(1)
}

func setupAuthRouter(verifier *MockTokenVerifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.AuthMiddleware(verifier, zap.NewNop()))
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(middleware.GinContextUserIDKey),
			"email":   c.GetString(middleware.GinContextEmailKey),
			"jti":     c.GetString(middleware.GinContextJTIKey),
		})
	})
	return router
}

func TestAuthMiddleware_NoAuthHeader(t *testing.T) {
	verifier := new(MockTokenVerifier)
	router := setupAuthRouter(verifier)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	verifier.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	verifier := new(MockTokenVerifier)
	router := setupAuthRouter(verifier)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Token abc")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	verifier := new(MockTokenVerifier)
	verifier.On("Verify", mock.Anything, "bad-token").Return(nil, domainErrors.ErrInvalidToken)
	router := setupAuthRouter(verifier)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	verifier := new(MockTokenVerifier)
	verifier.On("Verify", mock.Anything, "good-token").Return(&jwtutil.AccessTokenClaims{
		RegisteredClaims: gojwt.RegisteredClaims{ID: "jti-1"},
		UserID:           "user-1",
		Email:            "user@example.com",
	}, nil)
	router := setupAuthRouter(verifier)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user-1")
	assert.Contains(t, w.Body.String(), "jti-1")
}
