// File: backend/services/session-service/cmd/session-service/main.go

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/config"
	repoRedis "github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/domain/repository/redis"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/domain/service"
	httpHandler "github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/handler/http"
	infraRedis "github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/infrastructure/database/redis"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/infrastructure/lock"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/infrastructure/pubsub"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/infrastructure/ratelimit"
	jwtutil "github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/utils/jwt"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/utils/logger"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/utils/shutdown"
	ws "github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/websocket"
)

const cleanupLockKey = "session:token-cleanup"

func main() {
	// Загрузка переменных окружения из .env (если присутствует)
	_ = godotenv.Load()

	// Инициализация конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Инициализация логгера
	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	// Инициализация подключения к Redis
	redisClient, err := infraRedis.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to initialize Redis client", zap.Error(err))
	}
	defer redisClient.Close()

	// Инициализация менеджера токенов
	tokenManager, err := jwtutil.NewTokenManager(&cfg.JWT)
	if err != nil {
		log.Fatal("Failed to initialize token manager", zap.Error(err))
	}

	// Инициализация репозиториев и сервисов
	tokenRepo := repoRedis.NewTokenRepository(redisClient, log)
	tokenService := service.NewTokenService(tokenManager, tokenRepo, log, cfg.Redis.OpTimeout, cfg.JWT.AccessTokenTTL)

	limiter := ratelimit.NewLimiter(redisClient, cfg.RateLimiting, log, cfg.Redis.OpTimeout)
	locker := lock.NewLocker(redisClient, log)
	bridge := pubsub.NewRedisBridge(redisClient, log)
	defer bridge.Close()

	// Инициализация WebSocket-шлюза
	gateway := ws.NewGateway(bridge, tokenService, limiter, cfg.WebSocket, cfg.RateLimiting.SocketEvents, log)
	if err := gateway.Start(); err != nil {
		log.Fatal("Failed to start realtime gateway", zap.Error(err))
	}

	// Периодическая очистка сиротских записей токенов. Лок гарантирует,
	// что при горизонтальном масштабировании очистку выполняет только
	// один экземпляр сервиса.
	cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
	defer cancelCleanup()
	go runTokenCleanup(cleanupCtx, locker, tokenService, log)
	go runTokenStats(cleanupCtx, tokenService, log)

	// Инициализация HTTP сервера
	router := httpHandler.SetupRouter(tokenService, limiter, gateway, redisClient, cfg, log)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Запуск HTTP сервера в отдельной горутине
	go func() {
		log.Info("Starting HTTP server", zap.Int("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	// Ожидание сигнала для graceful shutdown
	shutdown.Wait(httpServer, cfg.Server.ShutdownTimeout, log)
}

// runTokenCleanup периодически удаляет просроченные записи токенов
// под распределенным локом.
func runTokenCleanup(ctx context.Context, locker *lock.Locker, tokens *service.TokenService, log *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		acquired, err := locker.Acquire(ctx, cleanupLockKey, 10*time.Minute)
		if err != nil {
			log.Warn("Cleanup lock acquisition failed", zap.Error(err))
			continue
		}
		if !acquired {
			continue
		}

		removed, err := tokens.CleanupExpired(ctx)
		if err != nil {
			log.Warn("Token cleanup failed", zap.Error(err))
		} else if removed > 0 {
			log.Info("Token cleanup completed", zap.Int("removed", removed))
		}

		if err := locker.Release(ctx, cleanupLockKey); err != nil {
			log.Warn("Cleanup lock release failed", zap.Error(err))
		}
	}
}

// runTokenStats периодически публикует количество активных записей
// токенов и маркеров отзыва в метрики. Каждый экземпляр считает сам:
// значения идемпотентны, лок не нужен.
func runTokenStats(ctx context.Context, tokens *service.TokenService, log *zap.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := tokens.Stats(ctx); err != nil {
			log.Warn("Token stats collection failed", zap.Error(err))
		}
	}
}
