// File: backend/services/session-service/internal/infrastructure/database/redis/client.go

package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/config"
)

// NewRedisClient создает клиент Redis по конфигурации и проверяет
// соединение через Ping.
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return client, client.Ping(ctx).Err()
}
