// File: backend/services/session-service/internal/utils/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики для мониторинга сервиса
var (
	// TokensIssuedTotal счетчик выпущенных токенов
	TokensIssuedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_service_tokens_issued_total",
		Help: "The total number of issued tokens",
	})

	// TokensRevokedTotal счетчик отозванных токенов
	TokensRevokedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_service_tokens_revoked_total",
		Help: "The total number of revoked tokens",
	})

	// TokenVerificationsTotal счетчик проверок токенов по результату
	TokenVerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_service_token_verifications_total",
		Help: "The total number of token verifications by result",
	}, []string{"result"})

	// RateLimitChecksTotal счетчик проверок лимитов по алгоритму и результату
	RateLimitChecksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_service_rate_limit_checks_total",
		Help: "The total number of rate limit checks by algorithm and result",
	}, []string{"algorithm", "result"})

	// RateLimitDegradedTotal счетчик проверок, пропущенных из-за сбоя хранилища
	RateLimitDegradedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_service_rate_limit_degraded_total",
		Help: "The total number of rate limit checks allowed due to store failure",
	})

	// ActiveTokens текущее количество записей активных токенов
	ActiveTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "session_service_active_tokens",
		Help: "The current number of active token records",
	})

	// RevokedTokens текущее количество маркеров отзыва
	RevokedTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "session_service_revoked_tokens",
		Help: "The current number of revocation markers",
	})

	// ActiveConnections счетчик активных WebSocket соединений
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "session_service_active_connections",
		Help: "The number of active WebSocket connections",
	})

	// NotificationsPublishedTotal счетчик опубликованных уведомлений
	NotificationsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "session_service_notifications_published_total",
		Help: "The total number of published notifications by topic",
	}, []string{"topic"})

	// NotificationsDeliveredTotal счетчик доставленных локальным клиентам уведомлений
	NotificationsDeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_service_notifications_delivered_total",
		Help: "The total number of notifications delivered to local clients",
	})
)
