// File: backend/services/session-service/internal/websocket/hub.go

package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/utils/metrics"
)

// UserRoom возвращает имя комнаты пользователя
func UserRoom(userID string) string { return "user:" + userID }

// WorkspaceRoom возвращает имя комнаты рабочего пространства
func WorkspaceRoom(workspaceID string) string { return "workspace:" + workspaceID }

// ServerMessage представляет сообщение сервера клиенту
type ServerMessage struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// delivery представляет одну рассылку по комнате.
// excludeRoom исключает получателей, состоящих в указанной комнате:
// исключение применяется в момент доставки, а не при публикации.
type delivery struct {
	room        string
	excludeRoom string
	message     []byte
}

// Hub управляет всеми активными WebSocket соединениями процесса
// и их членством в комнатах
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Клиенты по комнатам
	rooms map[string]map[*Client]bool

	// Канал для регистрации новых клиентов
	register chan *Client

	// Канал для отмены регистрации клиентов
	unregister chan *Client

	// Канал для рассылок по комнатам
	broadcast chan *delivery

	// Мьютекс для синхронизации доступа к картам
	mu sync.RWMutex

	logger *zap.Logger
}

// NewHub создает новый хаб соединений
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *delivery, 64),
		logger:     logger,
	}
}

// Run запускает цикл обработки сообщений хаба
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			metrics.ActiveConnections.Inc()

		case client := <-h.unregister:
			h.removeClient(client)

		case d := <-h.broadcast:
			h.deliverLocked(d)
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	client.closeSend()
	metrics.ActiveConnections.Dec()

	// Разрыв соединения снимает все членства в комнатах:
	// переподключившийся клиент проходит рукопожатие заново.
	for room, members := range h.rooms {
		if members[client] {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
	}
}

// Join добавляет клиента в комнату
func (h *Hub) Join(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[room] = members
	}
	members[client] = true
}

// Leave убирает клиента из комнаты
func (h *Hub) Leave(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// Emit отправляет событие всем участникам комнаты.
// Клиенты, состоящие в excludeRoom, исключаются из рассылки.
func (h *Hub) Emit(room, excludeRoom, event string, data interface{}) {
	message, err := serializeMessage(event, data)
	if err != nil {
		h.logger.Error("Failed to serialize message", zap.Error(err), zap.String("event", event))
		return
	}
	h.broadcast <- &delivery{room: room, excludeRoom: excludeRoom, message: message}
}

func (h *Hub) deliverLocked(d *delivery) {
	h.mu.RLock()
	members := h.rooms[d.room]
	excluded := h.rooms[d.excludeRoom]

	targets := make([]*Client, 0, len(members))
	for client := range members {
		if d.excludeRoom != "" && excluded[client] {
			continue
		}
		targets = append(targets, client)
	}
	h.mu.RUnlock()

	for _, client := range targets {
		if client.trySend(d.message) {
			metrics.NotificationsDeliveredTotal.Inc()
		} else {
			// Медленный клиент не должен блокировать остальных.
			h.removeClient(client)
		}
	}
}

// RoomSize возвращает количество клиентов в комнате
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ConnectionCount возвращает количество активных соединений
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func serializeMessage(event string, data interface{}) ([]byte, error) {
	return json.Marshal(&ServerMessage{
		Event:     event,
		Data:      data,
		Timestamp: time.Now(),
	})
}
