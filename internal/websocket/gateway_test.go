// File: backend/services/session-service/internal/websocket/gateway_test.go
package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/config"
	domainErrors "github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/domain/errors"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/domain/models"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/infrastructure/pubsub"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/infrastructure/ratelimit"
	jwtutil "github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/utils/jwt"
)

// fakeBridge записывает публикации и позволяет вручную доставлять
// сообщения подписчикам, имитируя второй процесс.
type fakeBridge struct {
	mu       sync.Mutex
	handlers map[string]pubsub.Handler
	messages map[string][][]byte
}

func newFakeBridge() *fakeBridge {
	return &fakeBridge{
		handlers: make(map[string]pubsub.Handler),
		messages: make(map[string][][]byte),
	}
}

func (b *fakeBridge) Publish(ctx context.Context, topic string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.messages[topic] = append(b.messages[topic], payload)
	b.mu.Unlock()
	return nil
}

func (b *fakeBridge) Subscribe(topic string, handler pubsub.Handler) error {
	b.mu.Lock()
	b.handlers[topic] = handler
	b.mu.Unlock()
	return nil
}

func (b *fakeBridge) Close() error { return nil }

func (b *fakeBridge) published(topic string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.messages[topic]
}

// deliver имитирует получение сообщения из pub/sub канала
func (b *fakeBridge) deliver(topic string, payload []byte) {
	b.mu.Lock()
	handler := b.handlers[topic]
	b.mu.Unlock()
	if handler != nil {
		handler(payload)
	}
}

type fakeVerifier struct {
	claims *jwtutil.AccessTokenClaims
	err    error
}

func (v *fakeVerifier) Verify(ctx context.Context, token string) (*jwtutil.AccessTokenClaims, error) {
	return v.claims, v.err
}

type fakeLimiter struct {
	allowed bool
}

func (l *fakeLimiter) Check(ctx context.Context, rule config.RateLimitRule, key string) ratelimit.Result {
	return ratelimit.Result{Allowed: l.allowed, Remaining: 1}
}

func newTestGateway(t *testing.T, bridge *fakeBridge, limiterAllows bool) *Gateway {
	t.Helper()
	g := NewGateway(
		bridge,
		&fakeVerifier{err: domainErrors.ErrInvalidToken},
		&fakeLimiter{allowed: limiterAllows},
		config.WebSocketConfig{
			WriteWait:      time.Second,
			PingPeriod:     time.Minute,
			MaxMessageSize: 1024,
			SendBufferSize: 8,
		},
		config.RateLimitRule{Enabled: true, Limit: 30, Window: time.Minute},
		zap.NewNop(),
	)
	require.NoError(t, g.Start())
	return g
}

func connectTestClient(t *testing.T, g *Gateway, userID string) *Client {
	t.Helper()
	c := &Client{gateway: g, send: make(chan []byte, 8), userID: userID}
	registerClient(t, g.hub, c)
	g.hub.Join(c, UserRoom(userID))
	return c
}

func TestGateway_NotifyUser_LocalDelivery(t *testing.T) {
	bridge := newFakeBridge()
	g := newTestGateway(t, bridge, true)
	c := connectTestClient(t, g, "user-1")

	err := g.NotifyUser(context.Background(), "user-1", models.Notification{
		Type:    "mention",
		Title:   "You were mentioned",
		Message: "in ws-1",
	})
	require.NoError(t, err)

	msg := receiveMessage(t, c)
	assert.Equal(t, "notification", msg.Event)

	// Конверт опубликован для остальных процессов
	payloads := bridge.published(TopicUserNotifications)
	require.Len(t, payloads, 1)
	var envelope models.NotificationEnvelope
	require.NoError(t, json.Unmarshal(payloads[0], &envelope))
	assert.Equal(t, g.instanceID, envelope.Origin)
	assert.Equal(t, "user-1", envelope.UserID)
	assert.NotEmpty(t, envelope.Notification.ID)
}

// Конверт, опубликованный этим же процессом, не доставляется второй раз.
func TestGateway_OwnEnvelopeSkipped(t *testing.T) {
	bridge := newFakeBridge()
	g := newTestGateway(t, bridge, true)
	c := connectTestClient(t, g, "user-1")

	require.NoError(t, g.NotifyUser(context.Background(), "user-1", models.Notification{Type: "test"}))
	receiveMessage(t, c)

	// Мост возвращает конверт обратно, как сделал бы реальный pub/sub
	payloads := bridge.published(TopicUserNotifications)
	require.Len(t, payloads, 1)
	bridge.deliver(TopicUserNotifications, payloads[0])

	assertNoMessage(t, c)
}

func TestGateway_ForeignEnvelopeDelivered(t *testing.T) {
	bridge := newFakeBridge()
	g := newTestGateway(t, bridge, true)
	c := connectTestClient(t, g, "user-1")

	envelope := models.NotificationEnvelope{
		Origin: "other-instance",
		UserID: "user-1",
		Notification: models.Notification{
			ID:   "n-1",
			Type: "mention",
		},
	}
	payload, err := json.Marshal(&envelope)
	require.NoError(t, err)
	bridge.deliver(TopicUserNotifications, payload)

	msg := receiveMessage(t, c)
	assert.Equal(t, "notification", msg.Event)
}

func TestGateway_NotifyWorkspace_ExcludesUser(t *testing.T) {
	bridge := newFakeBridge()
	g := newTestGateway(t, bridge, true)

	author := connectTestClient(t, g, "user-author")
	reader := connectTestClient(t, g, "user-reader")
	g.hub.Join(author, WorkspaceRoom("ws-1"))
	g.hub.Join(reader, WorkspaceRoom("ws-1"))

	err := g.NotifyWorkspace(context.Background(), "ws-1", models.Notification{Type: "comment"}, "user-author")
	require.NoError(t, err)

	msg := receiveMessage(t, reader)
	assert.Equal(t, "workspace_notification", msg.Event)
	assertNoMessage(t, author)

	var envelope models.NotificationEnvelope
	payloads := bridge.published(TopicWorkspaceNotifications)
	require.Len(t, payloads, 1)
	require.NoError(t, json.Unmarshal(payloads[0], &envelope))
	assert.Equal(t, "user-author", envelope.ExcludeUserID)
	assert.Equal(t, "ws-1", envelope.WorkspaceID)
}

func TestGateway_JoinWorkspaceCommand(t *testing.T) {
	bridge := newFakeBridge()
	g := newTestGateway(t, bridge, true)
	c := connectTestClient(t, g, "user-1")

	g.handleClientMessage(c, &ClientMessage{Action: "join_workspace", WorkspaceID: "ws-1"})

	msg := receiveMessage(t, c)
	assert.Equal(t, "workspace_joined", msg.Event)
	assert.Equal(t, 1, g.hub.RoomSize(WorkspaceRoom("ws-1")))
}

func TestGateway_JoinWorkspaceRequiresID(t *testing.T) {
	bridge := newFakeBridge()
	g := newTestGateway(t, bridge, true)
	c := connectTestClient(t, g, "user-1")

	g.handleClientMessage(c, &ClientMessage{Action: "join_workspace"})

	msg := receiveMessage(t, c)
	assert.Equal(t, "error", msg.Event)
}

func TestGateway_UnknownAction(t *testing.T) {
	bridge := newFakeBridge()
	g := newTestGateway(t, bridge, true)
	c := connectTestClient(t, g, "user-1")

	g.handleClientMessage(c, &ClientMessage{Action: "shout"})

	msg := receiveMessage(t, c)
	assert.Equal(t, "error", msg.Event)
}

func TestGateway_SocketEventRateLimited(t *testing.T) {
	bridge := newFakeBridge()
	g := newTestGateway(t, bridge, false)
	c := connectTestClient(t, g, "user-1")

	g.handleClientMessage(c, &ClientMessage{Action: "ping"})

	msg := receiveMessage(t, c)
	assert.Equal(t, "error", msg.Event)
	assert.Equal(t, 0, g.hub.RoomSize(WorkspaceRoom("ws-1")))
}

func TestGateway_PingPong(t *testing.T) {
	bridge := newFakeBridge()
	g := newTestGateway(t, bridge, true)
	c := connectTestClient(t, g, "user-1")

	g.handleClientMessage(c, &ClientMessage{Action: "ping"})

	msg := receiveMessage(t, c)
	assert.Equal(t, "pong", msg.Event)
}
