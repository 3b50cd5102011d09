// File: backend/services/session-service/internal/domain/repository/redis/token_repository.go

package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	domainErrors "github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/domain/errors"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/domain/models"
)

const (
	tokenKeyPrefix   = "jwt:token:"
	userKeyPrefix    = "jwt:user:"
	revokedKeyPrefix = "jwt:revoked:"
)

// TokenRepository хранит состояние токенов в Redis
type TokenRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewTokenRepository создает новый экземпляр TokenRepository
func NewTokenRepository(client *redis.Client, logger *zap.Logger) *TokenRepository {
	return &TokenRepository{
		client: client,
		logger: logger,
	}
}

func tokenKey(jti string) string   { return tokenKeyPrefix + jti }
func userKey(userID string) string { return userKeyPrefix + userID }
func revokedKey(jti string) string { return revokedKeyPrefix + jti }

// CreateRecord сохраняет запись токена и обновляет индекс пользователя
func (r *TokenRepository) CreateRecord(ctx context.Context, record *models.TokenRecord) error {
	ttl := record.RemainingTTL()
	if ttl <= 0 {
		return fmt.Errorf("token already expired")
	}

	data, err := json.Marshal(record)
	if err != nil {
		r.logger.Error("Failed to marshal token record", zap.Error(err), zap.String("jti", record.JTI))
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tokenKey(record.JTI), data, ttl)
		pipe.SAdd(ctx, userKey(record.UserID), record.JTI)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to store token record",
			zap.Error(err),
			zap.String("jti", record.JTI),
			zap.String("user_id", record.UserID),
		)
		return err
	}

	// Продлеваем TTL индекса так, чтобы он пережил самый долгоживущий
	// токен пользователя. Укорачивать существующий TTL нельзя.
	current, err := r.client.TTL(ctx, userKey(record.UserID)).Result()
	if err != nil || current < ttl {
		if err := r.client.Expire(ctx, userKey(record.UserID), ttl).Err(); err != nil {
			r.logger.Error("Failed to refresh user index TTL",
				zap.Error(err),
				zap.String("user_id", record.UserID),
			)
		}
	}

	return nil
}

// GetRecord получает запись токена по jti
func (r *TokenRepository) GetRecord(ctx context.Context, jti string) (*models.TokenRecord, error) {
	data, err := r.client.Get(ctx, tokenKey(jti)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domainErrors.ErrTokenNotFound
		}
		r.logger.Error("Failed to get token record", zap.Error(err), zap.String("jti", jti))
		return nil, err
	}

	var record models.TokenRecord
	if err := json.Unmarshal(data, &record); err != nil {
		r.logger.Error("Failed to unmarshal token record", zap.Error(err), zap.String("jti", jti))
		return nil, err
	}

	return &record, nil
}

// IsRevoked проверяет, отозван ли токен
func (r *TokenRepository) IsRevoked(ctx context.Context, jti string) (bool, error) {
	exists, err := r.client.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		r.logger.Error("Failed to check revocation marker", zap.Error(err), zap.String("jti", jti))
		return false, err
	}
	return exists > 0, nil
}

// Revoke отзывает токен: записывает маркер отзыва, удаляет запись
// и убирает jti из индекса пользователя
func (r *TokenRepository) Revoke(ctx context.Context, record *models.TokenRecord, reason string) error {
	marker := models.RevocationMarker{
		JTI:       record.JTI,
		UserID:    record.UserID,
		RevokedAt: time.Now(),
		Reason:    reason,
	}
	data, err := json.Marshal(marker)
	if err != nil {
		r.logger.Error("Failed to marshal revocation marker", zap.Error(err), zap.String("jti", record.JTI))
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		// Маркер живет не дольше, чем жил бы сам токен.
		if ttl := record.RemainingTTL(); ttl > 0 {
			pipe.Set(ctx, revokedKey(record.JTI), data, ttl)
		}
		pipe.Del(ctx, tokenKey(record.JTI))
		pipe.SRem(ctx, userKey(record.UserID), record.JTI)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to revoke token",
			zap.Error(err),
			zap.String("jti", record.JTI),
			zap.String("user_id", record.UserID),
		)
		return err
	}

	return nil
}

// ListUserTokenIDs возвращает все jti из индекса пользователя
func (r *TokenRepository) ListUserTokenIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := r.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		r.logger.Error("Failed to get user token index", zap.Error(err), zap.String("user_id", userID))
		return nil, err
	}
	return ids, nil
}

// CleanupExpired сканирует записи токенов и удаляет истекшие.
// Redis сам освобождает ключи по TTL, поэтому это только аудит.
func (r *TokenRepository) CleanupExpired(ctx context.Context) (int, error) {
	var cursor uint64
	cleaned := 0

	for {
		keys, next, err := r.client.Scan(ctx, cursor, tokenKeyPrefix+"*", 100).Result()
		if err != nil {
			r.logger.Error("Failed to scan token records", zap.Error(err))
			return cleaned, err
		}

		for _, key := range keys {
			ttl, err := r.client.TTL(ctx, key).Result()
			if err != nil {
				continue
			}
			if ttl <= 0 {
				if err := r.client.Del(ctx, key).Err(); err == nil {
					cleaned++
				}
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	if cleaned > 0 {
		r.logger.Info("Cleaned up expired token records", zap.Int("count", cleaned))
	}
	return cleaned, nil
}

// CountRecords подсчитывает записи токенов и маркеры отзыва.
// Подсчет идет инкрементальным SCAN, без блокирующего KEYS.
func (r *TokenRepository) CountRecords(ctx context.Context) (int, int, error) {
	active, err := r.countKeys(ctx, tokenKeyPrefix+"*")
	if err != nil {
		return 0, 0, err
	}
	revoked, err := r.countKeys(ctx, revokedKeyPrefix+"*")
	if err != nil {
		return 0, 0, err
	}
	return active, revoked, nil
}

func (r *TokenRepository) countKeys(ctx context.Context, pattern string) (int, error) {
	var cursor uint64
	total := 0

	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			r.logger.Error("Failed to scan keys", zap.Error(err), zap.String("pattern", pattern))
			return 0, err
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return total, nil
}
