// File: backend/services/session-service/internal/websocket/client.go

package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ClientMessage представляет сообщение от клиента
type ClientMessage struct {
	Action      string          `json:"action"`
	WorkspaceID string          `json:"workspace_id,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
}

// Client представляет аутентифицированное WebSocket соединение.
// Личность пользователя фиксируется при рукопожатии и не меняется
// на протяжении жизни соединения.
type Client struct {
	gateway *Gateway
	conn    *websocket.Conn
	userID  string
	email   string

	// sendMu упорядочивает отправку в send и его закрытие: хаб закрывает
	// канал из своей горутины, пока readPump еще может вызывать emit.
	sendMu sync.Mutex
	closed bool
	send   chan []byte
}

// writePump отправляет сообщения клиенту
func (c *Client) writePump() {
	ticker := time.NewTicker(c.gateway.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.gateway.cfg.WriteWait))
			if !ok {
				// Хаб закрыл канал
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.gateway.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump читает сообщения от клиента
func (c *Client) readPump() {
	defer func() {
		c.gateway.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.gateway.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.gateway.cfg.PingPeriod + c.gateway.cfg.WriteWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.gateway.cfg.PingPeriod + c.gateway.cfg.WriteWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.gateway.logger.Debug("Unexpected connection close",
					zap.Error(err),
					zap.String("user_id", c.userID),
				)
			}
			break
		}

		var clientMsg ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			c.gateway.logger.Debug("Failed to parse client message",
				zap.Error(err),
				zap.String("user_id", c.userID),
			)
			continue
		}

		c.gateway.handleClientMessage(c, &clientMsg)
	}
}

// emit отправляет событие этому клиенту, не блокируя читающую горутину
func (c *Client) emit(event string, data interface{}) {
	message, err := serializeMessage(event, data)
	if err != nil {
		c.gateway.logger.Error("Failed to serialize message", zap.Error(err), zap.String("event", event))
		return
	}
	c.trySend(message)
}

// trySend ставит сообщение в очередь отправки без блокировки.
// Возвращает false, если буфер полон или канал уже закрыт хабом.
func (c *Client) trySend(message []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// closeSend закрывает канал отправки не более одного раза.
// Вызывается только хабом при снятии клиента с учета.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
