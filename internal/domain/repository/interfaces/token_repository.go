// File: backend/services/session-service/internal/domain/repository/interfaces/token_repository.go
package interfaces

import (
	"context"

	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/domain/models"
)

// TokenRepository определяет контракт для серверного состояния токенов:
// записи метаданных, маркеры отзыва и индекс токенов пользователя.
// Любое key-value хранилище с атомарными операциями и TTL подходит
// в качестве реализации.
type TokenRepository interface {
	// CreateRecord сохраняет запись токена с TTL до истечения срока
	// действия и добавляет jti в индекс пользователя. Обе записи
	// выполняются в одной транзакции: либо токен учтен полностью,
	// либо не учтен вовсе.
	CreateRecord(ctx context.Context, record *models.TokenRecord) error

	// GetRecord возвращает запись токена по jti.
	// Возвращает errors.ErrTokenNotFound, если записи нет или она истекла.
	GetRecord(ctx context.Context, jti string) (*models.TokenRecord, error)

	// IsRevoked проверяет наличие маркера отзыва для jti.
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// Revoke атомарно записывает маркер отзыва, удаляет запись токена
	// и убирает jti из индекса пользователя.
	Revoke(ctx context.Context, record *models.TokenRecord, reason string) error

	// ListUserTokenIDs возвращает jti всех токенов из индекса пользователя.
	// Индекс может содержать висячие записи: вызывающая сторона обязана
	// сверять их с GetRecord.
	ListUserTokenIDs(ctx context.Context, userID string) ([]string, error)

	// CleanupExpired удаляет записи с истекшим TTL. Хранилище и само
	// освобождает место по TTL, поэтому операция служит лишь аудитом.
	CleanupExpired(ctx context.Context) (int, error)

	// CountRecords возвращает текущее количество записей токенов
	// и маркеров отзыва.
	CountRecords(ctx context.Context) (active int, revoked int, err error)
}
