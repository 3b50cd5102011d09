// File: backend/services/session-service/internal/domain/models/token.go
package models

import (
	"time"
)

// TokenRecord представляет метаданные выпущенного токена.
// Запись существует в хранилище ровно столько, сколько действителен
// сам токен: отсутствие записи означает недействительный токен.
type TokenRecord struct {
	JTI       string    `json:"jti"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	UserAgent string    `json:"user_agent,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
}

// RemainingTTL возвращает оставшееся время действия токена.
func (r *TokenRecord) RemainingTTL() time.Duration {
	return time.Until(r.ExpiresAt)
}

// RevocationMarker представляет отметку об отзыве токена.
// Маркер никогда не переживает токен, который он отзывает.
type RevocationMarker struct {
	JTI       string    `json:"jti"`
	UserID    string    `json:"user_id"`
	RevokedAt time.Time `json:"revoked_at"`
	Reason    string    `json:"reason"`
}
