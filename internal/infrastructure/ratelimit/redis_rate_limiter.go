// File: backend/services/session-service/internal/infrastructure/ratelimit/redis_rate_limiter.go
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/config"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/utils/metrics"
)

// Result представляет исход проверки лимита. Degraded означает, что
// запрос пропущен из-за сбоя хранилища, а не потому что лимит позволял:
// доступность сервиса важнее строгого соблюдения квоты (fail open).
type Result struct {
	Allowed   bool
	Remaining int
	Degraded  bool
}

// Limiter реализует три алгоритма ограничения скорости поверх Redis.
// Вся координация между процессами делегирована атомарным операциям
// хранилища: в процессе никакое состояние не кэшируется.
type Limiter struct {
	client    *redis.Client
	cfg       config.RateLimitConfig
	logger    *zap.Logger
	opTimeout time.Duration
}

// NewLimiter создает новый ограничитель скорости запросов
func NewLimiter(client *redis.Client, cfg config.RateLimitConfig, logger *zap.Logger, opTimeout time.Duration) *Limiter {
	if opTimeout <= 0 {
		opTimeout = 200 * time.Millisecond
	}
	return &Limiter{
		client:    client,
		cfg:       cfg,
		logger:    logger,
		opTimeout: opTimeout,
	}
}

// tokenBucketScript атомарно пополняет корзину и потребляет один токен.
// Разнесение чтения и записи на два обращения вернуло бы гонку между
// конкурентными вызовами на одном ключе, поэтому только script.
var tokenBucketScript = redis.NewScript(`
local tokens = redis.call('get', KEYS[1])
if tokens == false then tokens = tonumber(ARGV[1]) else tokens = tonumber(tokens) end
local last = redis.call('get', KEYS[2])
if last == false then last = tonumber(ARGV[2]) else last = tonumber(last) end
local now = tonumber(ARGV[2])
local rate = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])
local delta = math.max(0, now - last)
tokens = math.min(tokens + delta * rate, tonumber(ARGV[1]))
local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end
redis.call('set', KEYS[1], tokens, 'PX', ttl)
redis.call('set', KEYS[2], now, 'PX', ttl)
return {allowed, tostring(tokens)}
`)

// Check выполняет проверку по правилу, выбирая алгоритм по конфигурации.
func (l *Limiter) Check(ctx context.Context, rule config.RateLimitRule, key string) Result {
	if !l.cfg.Enabled || !rule.Enabled || rule.Limit <= 0 {
		return Result{Allowed: true, Remaining: rule.Limit}
	}

	switch rule.Strategy {
	case "token_bucket":
		return l.TokenBucket(ctx, key, rule.Window, rule.Limit)
	case "sliding":
		return l.SlidingWindow(ctx, key, rule.Window, rule.Limit)
	default:
		return l.FixedWindow(ctx, key, rule.Window, rule.Limit)
	}
}

// FixedWindow реализует ограничение с фиксированным окном.
// На границе окна возможен всплеск до 2×max за короткий интервал:
// это документированное поведение алгоритма, а не дефект.
func (l *Limiter) FixedWindow(ctx context.Context, key string, window time.Duration, max int) Result {
	ctx, cancel := context.WithTimeout(ctx, l.opTimeout)
	defer cancel()

	bucket := time.Now().UnixMilli() / window.Milliseconds()
	windowKey := fmt.Sprintf("fw:%s:%d", key, bucket)

	count, err := l.client.Incr(ctx, windowKey).Result()
	if err != nil {
		return l.failOpen("fixed", key, max, err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, windowKey, window).Err(); err != nil {
			l.logger.Error("Failed to set window expiration", zap.Error(err), zap.String("key", key))
		}
	}

	allowed := count <= int64(max)
	l.observe("fixed", allowed)
	return Result{Allowed: allowed, Remaining: remaining(max, int(count))}
}

// SlidingWindow реализует ограничение со скользящим окном на основе
// журнала временных меток. Дает точный подсчет в окне ценой удаления
// диапазона, вставки и подсчета на каждый вызов.
func (l *Limiter) SlidingWindow(ctx context.Context, key string, window time.Duration, max int) Result {
	ctx, cancel := context.WithTimeout(ctx, l.opTimeout)
	defer cancel()

	now := time.Now().UnixMilli()
	windowStart := now - window.Milliseconds()
	listKey := "sw:" + key

	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, listKey, "0", strconv.FormatInt(windowStart, 10))
	pipe.ZAdd(ctx, listKey, &redis.Z{
		Score: float64(now),
		// Уникальный member: совпадение меток у конкурентных вызовов
		// не должно схлопывать записи журнала.
		Member: fmt.Sprintf("%d-%s", now, uuid.New().String()),
	})
	pipe.Expire(ctx, listKey, window)
	count := pipe.ZCount(ctx, listKey, strconv.FormatInt(windowStart, 10), "+inf")
	if _, err := pipe.Exec(ctx); err != nil {
		return l.failOpen("sliding", key, max, err)
	}

	allowed := count.Val() <= int64(max)
	l.observe("sliding", allowed)
	return Result{Allowed: allowed, Remaining: remaining(max, int(count.Val()))}
}

// TokenBucket реализует ограничение по принципу корзины токенов
// с непрерывным пополнением со скоростью max за window.
func (l *Limiter) TokenBucket(ctx context.Context, key string, window time.Duration, max int) Result {
	ctx, cancel := context.WithTimeout(ctx, l.opTimeout)
	defer cancel()

	bucketKey := "tb:" + key
	lastKey := bucketKey + ":last"
	now := time.Now().UnixMilli()
	ratePerMs := float64(max) / float64(window.Milliseconds())
	ttlMs := 2 * window.Milliseconds()

	res, err := tokenBucketScript.Run(ctx, l.client,
		[]string{bucketKey, lastKey},
		max, now, ratePerMs, ttlMs,
	).Result()
	if err != nil {
		return l.failOpen("token_bucket", key, max, err)
	}

	values, ok := res.([]interface{})
	if !ok || len(values) != 2 {
		return l.failOpen("token_bucket", key, max, fmt.Errorf("unexpected script reply: %v", res))
	}

	allowed := values[0].(int64) == 1
	tokens := 0.0
	if s, ok := values[1].(string); ok {
		tokens, _ = strconv.ParseFloat(s, 64)
	}

	l.observe("token_bucket", allowed)
	return Result{Allowed: allowed, Remaining: int(tokens)}
}

func (l *Limiter) failOpen(algorithm, key string, max int, err error) Result {
	l.logger.Error("Rate limit check failed, allowing request",
		zap.Error(err),
		zap.String("algorithm", algorithm),
		zap.String("key", key),
	)
	metrics.RateLimitChecksTotal.WithLabelValues(algorithm, "degraded").Inc()
	metrics.RateLimitDegradedTotal.Inc()
	return Result{Allowed: true, Remaining: max, Degraded: true}
}

func (l *Limiter) observe(algorithm string, allowed bool) {
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	metrics.RateLimitChecksTotal.WithLabelValues(algorithm, result).Inc()
}

func remaining(max, count int) int {
	if r := max - count; r > 0 {
		return r
	}
	return 0
}
