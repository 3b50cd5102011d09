// File: backend/services/session-service/internal/infrastructure/lock/redis_lock.go
package lock

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const lockKeyPrefix = "lock:"

// Locker реализует распределенную взаимную блокировку на одном ключе.
// Блокировка снимается явно или по TTL, если держатель упал.
// Очереди ожидания нет: вызывающая сторона опрашивает повторно или
// завершается с отказом.
type Locker struct {
	client *redis.Client
	logger *zap.Logger
}

// NewLocker создает новый экземпляр Locker
func NewLocker(client *redis.Client, logger *zap.Logger) *Locker {
	return &Locker{
		client: client,
		logger: logger,
	}
}

// Acquire пытается захватить блокировку атомарной операцией
// создать-если-отсутствует. true означает, что вызывающая сторона
// держит блокировку до TTL или явного Release.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, lockKeyPrefix+key, "locked", ttl).Result()
	if err != nil {
		l.logger.Error("Lock acquire failed", zap.Error(err), zap.String("key", key))
		return false, err
	}
	l.logger.Debug("Lock acquire attempt", zap.String("key", key), zap.Bool("acquired", ok))
	return ok, nil
}

// Release снимает блокировку безусловным удалением ключа.
// Личность держателя не проверяется: снять блокировку может любой
// вызывающий. Это известное ограничение, а не гарантия безопасности.
func (l *Locker) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, lockKeyPrefix+key).Err(); err != nil {
		l.logger.Error("Lock release failed", zap.Error(err), zap.String("key", key))
		return err
	}
	l.logger.Debug("Lock released", zap.String("key", key))
	return nil
}
