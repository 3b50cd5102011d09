// File: backend/services/session-service/internal/infrastructure/pubsub/redis_pubsub_test.go
package pubsub_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/infrastructure/pubsub"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("Skipping pubsub tests: TEST_REDIS_ADDR not set.")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Skipping pubsub tests: Redis at %s not reachable: %v", addr, err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

type testPayload struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func TestBridge_PublishSubscribeRoundtrip(t *testing.T) {
	client := newTestRedis(t)
	bridge := pubsub.NewRedisBridge(client, zap.NewNop())
	defer bridge.Close()

	topic := "test:" + uuid.New().String()
	received := make(chan []byte, 1)

	require.NoError(t, bridge.Subscribe(topic, func(message []byte) {
		received <- message
	}))

	sent := testPayload{ID: "p-1", Text: "hello"}
	require.NoError(t, bridge.Publish(context.Background(), topic, sent))

	select {
	case raw := <-received:
		var got testPayload
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, sent, got)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

// Каждый процесс-подписчик получает сообщение по одному разу.
func TestBridge_FanOutAcrossBridges(t *testing.T) {
	client := newTestRedis(t)

	publisher := pubsub.NewRedisBridge(client, zap.NewNop())
	defer publisher.Close()
	subscriberA := pubsub.NewRedisBridge(client, zap.NewNop())
	defer subscriberA.Close()
	subscriberB := pubsub.NewRedisBridge(client, zap.NewNop())
	defer subscriberB.Close()

	topic := "test:" + uuid.New().String()
	gotA := make(chan []byte, 1)
	gotB := make(chan []byte, 1)

	require.NoError(t, subscriberA.Subscribe(topic, func(m []byte) { gotA <- m }))
	require.NoError(t, subscriberB.Subscribe(topic, func(m []byte) { gotB <- m }))

	require.NoError(t, publisher.Publish(context.Background(), topic, "payload"))

	for name, ch := range map[string]chan []byte{"A": gotA, "B": gotB} {
		select {
		case raw := <-ch:
			assert.Equal(t, "payload", string(raw))
		case <-time.After(2 * time.Second):
			t.Fatalf("subscriber %s did not receive the message", name)
		}
	}
}

// Сообщения не сохраняются: поздний подписчик ничего не получает.
func TestBridge_NoReplayForLateSubscriber(t *testing.T) {
	client := newTestRedis(t)

	publisher := pubsub.NewRedisBridge(client, zap.NewNop())
	defer publisher.Close()

	topic := "test:" + uuid.New().String()
	require.NoError(t, publisher.Publish(context.Background(), topic, "early"))

	late := pubsub.NewRedisBridge(client, zap.NewNop())
	defer late.Close()
	received := make(chan []byte, 1)
	require.NoError(t, late.Subscribe(topic, func(m []byte) { received <- m }))

	select {
	case raw := <-received:
		t.Fatalf("unexpected replayed message: %s", raw)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestBridge_CloseStopsDelivery(t *testing.T) {
	client := newTestRedis(t)

	publisher := pubsub.NewRedisBridge(client, zap.NewNop())
	defer publisher.Close()

	subscriber := pubsub.NewRedisBridge(client, zap.NewNop())
	topic := "test:" + uuid.New().String()
	received := make(chan []byte, 1)
	require.NoError(t, subscriber.Subscribe(topic, func(m []byte) { received <- m }))

	require.NoError(t, subscriber.Close())
	require.NoError(t, publisher.Publish(context.Background(), topic, "after-close"))

	select {
	case raw := <-received:
		t.Fatalf("unexpected message after close: %s", raw)
	case <-time.After(300 * time.Millisecond):
	}
}
