// File: backend/services/session-service/internal/handler/http/router.go

package http

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/config"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/domain/service"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/handler/http/middleware"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/infrastructure/ratelimit"
	ws "github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/websocket"
)

// SetupRouter настраивает маршрутизацию HTTP
func SetupRouter(
	tokenService *service.TokenService,
	limiter *ratelimit.Limiter,
	gateway *ws.Gateway,
	redisClient *redis.Client,
	cfg *config.Config,
	logger *zap.Logger,
) *gin.Engine {
	if cfg.Logging.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Создание роутера
	router := gin.New()

	// Применение middleware
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.CorsMiddleware())
	if cfg.RateLimiting.Enabled {
		router.Use(middleware.RateLimitMiddleware(limiter, cfg.RateLimiting.GlobalIP, logger))
	}

	// Создание обработчиков
	sessionHandler := NewSessionHandler(tokenService, logger)

	// Маршруты метрик и проверки работоспособности
	if cfg.Metrics.Enabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/readiness", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			c.JSON(503, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	// WebSocket-шлюз (токен проверяется внутри обработчика)
	router.GET("/ws", gateway.HandleWebSocket)

	// Группа маршрутов API
	api := router.Group("/api/v1")
	{
		sessions := api.Group("/sessions")
		{
			// Публичные маршруты: выпуск и проверка токена
			issue := sessions.Group("")
			if cfg.RateLimiting.Enabled {
				issue.Use(middleware.RateLimitMiddleware(limiter, cfg.RateLimiting.IssuePerIP, logger))
			}
			issue.POST("", sessionHandler.IssueSession)
			sessions.POST("/verify", sessionHandler.VerifySession)

			// Защищенные маршруты: управление собственными сессиями
			protected := sessions.Group("")
			protected.Use(middleware.AuthMiddleware(tokenService, logger))
			{
				protected.GET("", sessionHandler.ListSessions)
				protected.DELETE("", sessionHandler.RevokeAllSessions)
				protected.DELETE("/:jti", sessionHandler.RevokeSession)
			}
		}
	}

	return router
}
