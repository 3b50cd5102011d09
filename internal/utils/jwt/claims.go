// File: backend/services/session-service/internal/utils/jwt/claims.go
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims представляет claims access токена.
// Поле ID (jti) связывает токен с его записью в хранилище.
type AccessTokenClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}
