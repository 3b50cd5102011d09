// File: backend/services/session-service/internal/infrastructure/pubsub/redis_pubsub.go
package pubsub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Handler обрабатывает сообщение, полученное из канала.
// Вызывается по одному разу на каждое опубликованное сообщение;
// доставка не более одного раза на процесс-подписчик, порядок между
// каналами не гарантируется.
type Handler func(message []byte)

// Bridge определяет контракт моста publish/subscribe между процессами.
// Сообщения не сохраняются: подписчик, подключившийся после публикации,
// ее не получит.
type Bridge interface {
	Publish(ctx context.Context, topic string, message interface{}) error
	Subscribe(topic string, handler Handler) error
	Close() error
}

// RedisBridge реализует Bridge поверх Redis pub/sub.
// Для подписки используется отдельное соединение: соединение в режиме
// подписки не может выполнять другие команды.
type RedisBridge struct {
	client *redis.Client
	logger *zap.Logger

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	pubsubs  []*redis.PubSub
	handlers map[string]Handler
}

// NewRedisBridge создает новый экземпляр RedisBridge
func NewRedisBridge(client *redis.Client, logger *zap.Logger) *RedisBridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &RedisBridge{
		client:   client,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		handlers: make(map[string]Handler),
	}
}

// Publish публикует сообщение в канал. Строки и байтовые срезы
// отправляются как есть, остальное сериализуется в JSON.
func (b *RedisBridge) Publish(ctx context.Context, topic string, message interface{}) error {
	var payload interface{}
	switch m := message.(type) {
	case string:
		payload = m
	case []byte:
		payload = m
	default:
		data, err := json.Marshal(m)
		if err != nil {
			b.logger.Error("Failed to marshal pubsub message", zap.Error(err), zap.String("topic", topic))
			return err
		}
		payload = data
	}

	if err := b.client.Publish(ctx, topic, payload).Err(); err != nil {
		b.logger.Error("Publish failed", zap.Error(err), zap.String("topic", topic))
		return err
	}
	b.logger.Debug("Published message", zap.String("topic", topic))
	return nil
}

// Subscribe регистрирует обработчик канала и запускает горутину
// доставки. Повторная подписка на тот же канал заменяет обработчик.
func (b *RedisBridge) Subscribe(topic string, handler Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.handlers[topic]; exists {
		b.handlers[topic] = handler
		return nil
	}
	b.handlers[topic] = handler

	pubsub := b.client.Subscribe(b.ctx, topic)
	// Дожидаемся подтверждения подписки, чтобы после возврата из
	// Subscribe публикации уже доставлялись.
	if _, err := pubsub.Receive(b.ctx); err != nil {
		delete(b.handlers, topic)
		b.logger.Error("Subscribe failed", zap.Error(err), zap.String("topic", topic))
		return err
	}
	b.pubsubs = append(b.pubsubs, pubsub)

	b.wg.Add(1)
	go b.deliver(topic, pubsub)

	b.logger.Info("Subscribed to topic", zap.String("topic", topic))
	return nil
}

func (b *RedisBridge) deliver(topic string, pubsub *redis.PubSub) {
	defer b.wg.Done()
	ch := pubsub.Channel()
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			b.mu.Lock()
			handler := b.handlers[topic]
			b.mu.Unlock()
			if handler != nil {
				handler([]byte(msg.Payload))
			}
		}
	}
}

// Close останавливает доставку и закрывает подписки
func (b *RedisBridge) Close() error {
	b.cancel()
	b.mu.Lock()
	for _, ps := range b.pubsubs {
		if err := ps.Close(); err != nil {
			b.logger.Error("Failed to close subscription", zap.Error(err))
		}
	}
	b.pubsubs = nil
	b.mu.Unlock()
	b.wg.Wait()
	return nil
}
