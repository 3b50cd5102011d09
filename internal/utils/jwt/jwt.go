// File: backend/services/session-service/internal/utils/jwt/jwt.go

package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/config"
)

var (
	// ErrInvalidToken возвращается, когда токен недействителен
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken возвращается, когда токен истек
	ErrExpiredToken = errors.New("token has expired")
	// ErrInvalidSigningMethod возвращается, когда метод подписи токена недействителен
	ErrInvalidSigningMethod = errors.New("invalid signing method")
	// ErrMissingJTI возвращается, когда в токене отсутствует jti
	ErrMissingJTI = errors.New("token missing jti")
)

// TokenManager управляет подписью и проверкой JWT токенов
type TokenManager struct {
	config *config.JWTConfig
	secret []byte
}

// NewTokenManager создает новый менеджер токенов
func NewTokenManager(cfg *config.JWTConfig) (*TokenManager, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is empty")
	}
	return &TokenManager{
		config: cfg,
		secret: []byte(cfg.Secret),
	}, nil
}

// GenerateAccessToken генерирует новый access токен с указанным jti и TTL
func (tm *TokenManager) GenerateAccessToken(userID, email, jti string, ttl time.Duration) (string, error) {
	now := time.Now()
	if ttl <= 0 {
		ttl = tm.config.AccessTokenTTL
	}

	claims := &AccessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tm.config.Issuer,
			ID:        jti,
		},
		UserID: userID,
		Email:  email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// getKeyFunc is a helper for ParseAccessToken
func (tm *TokenManager) getKeyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ErrInvalidSigningMethod
	}
	return tm.secret, nil
}

// ParseAccessToken парсит и проверяет access токен.
// Проверяется только подпись и срок действия; состояние отзыва
// хранится на стороне сервера и проверяется сервисом токенов.
func (tm *TokenManager) ParseAccessToken(tokenString string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, tm.getKeyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.ID == "" {
		return nil, ErrMissingJTI
	}

	return claims, nil
}
