// File: backend/services/session-service/internal/websocket/hub_test.go
package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient() *Client {
	return &Client{send: make(chan []byte, 8)}
}

func registerClient(t *testing.T, h *Hub, c *Client) {
	t.Helper()
	select {
	case h.register <- c:
	case <-time.After(time.Second):
		t.Fatal("hub did not accept registration")
	}
}

func receiveMessage(t *testing.T, c *Client) ServerMessage {
	t.Helper()
	select {
	case raw := <-c.send:
		var msg ServerMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return ServerMessage{}
	}
}

func assertNoMessage(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected message: %s", raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_EmitToRoom(t *testing.T) {
	h := NewHub(zap.NewNop())
	go h.Run()

	member := newTestClient()
	outsider := newTestClient()
	registerClient(t, h, member)
	registerClient(t, h, outsider)

	h.Join(member, WorkspaceRoom("ws-1"))

	h.Emit(WorkspaceRoom("ws-1"), "", "workspace_notification", map[string]string{"title": "hello"})

	msg := receiveMessage(t, member)
	assert.Equal(t, "workspace_notification", msg.Event)
	assertNoMessage(t, outsider)
}

func TestHub_EmitExcludesRoomMembers(t *testing.T) {
	h := NewHub(zap.NewNop())
	go h.Run()

	sender := newTestClient()
	receiver := newTestClient()
	registerClient(t, h, sender)
	registerClient(t, h, receiver)

	h.Join(sender, WorkspaceRoom("ws-1"))
	h.Join(sender, UserRoom("user-sender"))
	h.Join(receiver, WorkspaceRoom("ws-1"))

	h.Emit(WorkspaceRoom("ws-1"), UserRoom("user-sender"), "user_joined_workspace", nil)

	msg := receiveMessage(t, receiver)
	assert.Equal(t, "user_joined_workspace", msg.Event)
	assertNoMessage(t, sender)
}

func TestHub_EmitToEmptyRoomIsNoop(t *testing.T) {
	h := NewHub(zap.NewNop())
	go h.Run()

	c := newTestClient()
	registerClient(t, h, c)

	h.Emit(WorkspaceRoom("ws-empty"), "", "notification", nil)
	assertNoMessage(t, c)
}

func TestHub_UnregisterRemovesRoomMemberships(t *testing.T) {
	h := NewHub(zap.NewNop())
	go h.Run()

	c := newTestClient()
	registerClient(t, h, c)
	h.Join(c, WorkspaceRoom("ws-1"))
	h.Join(c, UserRoom("user-1"))

	select {
	case h.unregister <- c:
	case <-time.After(time.Second):
		t.Fatal("hub did not accept unregistration")
	}

	require.Eventually(t, func() bool {
		return h.ConnectionCount() == 0
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, h.RoomSize(WorkspaceRoom("ws-1")))
	assert.Equal(t, 0, h.RoomSize(UserRoom("user-1")))

	// Канал закрыт хабом
	_, ok := <-c.send
	assert.False(t, ok)
}

func TestHub_JoinIsIdempotent(t *testing.T) {
	h := NewHub(zap.NewNop())
	go h.Run()

	c := newTestClient()
	registerClient(t, h, c)

	h.Join(c, WorkspaceRoom("ws-1"))
	h.Join(c, WorkspaceRoom("ws-1"))
	assert.Equal(t, 1, h.RoomSize(WorkspaceRoom("ws-1")))

	h.Emit(WorkspaceRoom("ws-1"), "", "notification", nil)
	receiveMessage(t, c)
	assertNoMessage(t, c)
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	h := NewHub(zap.NewNop())
	go h.Run()

	slow := &Client{send: make(chan []byte)} // небуферизованный, ничего не читает
	registerClient(t, h, slow)
	h.Join(slow, UserRoom("user-slow"))

	h.Emit(UserRoom("user-slow"), "", "notification", nil)

	require.Eventually(t, func() bool {
		return h.ConnectionCount() == 0
	}, time.Second, 10*time.Millisecond)
}

// Читающая горутина выброшенного клиента может еще обрабатывать
// сообщение и ответить через emit. Отправка в закрытый хабом канал
// уронила бы весь процесс.
func TestHub_EmitAfterDropDoesNotPanic(t *testing.T) {
	h := NewHub(zap.NewNop())
	go h.Run()

	slow := &Client{send: make(chan []byte)}
	registerClient(t, h, slow)
	h.Join(slow, UserRoom("user-late"))

	h.Emit(UserRoom("user-late"), "", "notification", nil)
	require.Eventually(t, func() bool {
		return h.ConnectionCount() == 0
	}, time.Second, 10*time.Millisecond)

	// Так readPump ответил бы на ping, пришедший до разрыва
	assert.NotPanics(t, func() { slow.emit("pong", nil) })
	assert.False(t, slow.trySend([]byte(`{}`)))
}
