// File: backend/services/session-service/internal/websocket/gateway.go

package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/config"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/domain/models"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/infrastructure/pubsub"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/infrastructure/ratelimit"
	jwtutil "github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/utils/jwt"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/utils/metrics"
)

// Топики моста уведомлений. Каждый процесс подписывается на оба
// при старте, независимо от того, какие клиенты к нему подключены.
const (
	TopicUserNotifications      = "notifications:user"
	TopicWorkspaceNotifications = "notifications:workspace"
)

// TokenVerifier проверяет токен при рукопожатии
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*jwtutil.AccessTokenClaims, error)
}

// EventLimiter ограничивает частоту событий от одного клиента
type EventLimiter interface {
	Check(ctx context.Context, rule config.RateLimitRule, key string) ratelimit.Result
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене здесь должна быть проверка источника запроса
		return true
	},
}

// Gateway владеет WebSocket соединениями процесса и связывает их
// с мостом pub/sub. Каждый процесс видит только свои соединения;
// события публикуются в мост, чтобы остальные процессы доставили их
// своим клиентам.
type Gateway struct {
	hub        *Hub
	bridge     pubsub.Bridge
	tokens     TokenVerifier
	limiter    EventLimiter
	cfg        config.WebSocketConfig
	eventRule  config.RateLimitRule
	logger     *zap.Logger
	instanceID string
}

// NewGateway создает новый экземпляр Gateway
func NewGateway(
	bridge pubsub.Bridge,
	tokens TokenVerifier,
	limiter EventLimiter,
	cfg config.WebSocketConfig,
	eventRule config.RateLimitRule,
	logger *zap.Logger,
) *Gateway {
	return &Gateway{
		hub:        NewHub(logger),
		bridge:     bridge,
		tokens:     tokens,
		limiter:    limiter,
		cfg:        cfg,
		eventRule:  eventRule,
		logger:     logger,
		instanceID: uuid.New().String(),
	}
}

// Start запускает хаб и подписывается на топики уведомлений
func (g *Gateway) Start() error {
	go g.hub.Run()

	if err := g.bridge.Subscribe(TopicUserNotifications, g.handleUserEnvelope); err != nil {
		return err
	}
	if err := g.bridge.Subscribe(TopicWorkspaceNotifications, g.handleWorkspaceEnvelope); err != nil {
		return err
	}

	g.logger.Info("Realtime gateway started", zap.String("instance_id", g.instanceID))
	return nil
}

// HandleWebSocket обрабатывает WebSocket запросы от клиентов.
// Токен проверяется до апгрейда соединения: неаутентифицированный
// клиент получает 401 и до хаба не доходит.
func (g *Gateway) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = extractBearer(c.GetHeader("Authorization"))
	}
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication token required"})
		return
	}

	claims, err := g.tokens.Verify(c.Request.Context(), token)
	if err != nil {
		g.logger.Warn("Socket connection rejected: invalid token", zap.String("ip", c.ClientIP()))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		g.logger.Error("Failed to upgrade connection", zap.Error(err))
		return
	}

	client := &Client{
		gateway: g,
		conn:    conn,
		send:    make(chan []byte, g.cfg.SendBufferSize),
		userID:  claims.UserID,
		email:   claims.Email,
	}

	// Регистрируем клиента и сразу помещаем его в личную комнату
	g.hub.register <- client
	g.hub.Join(client, UserRoom(client.userID))

	go client.writePump()
	go client.readPump()

	g.logger.Info("Socket connected",
		zap.String("user_id", client.userID),
		zap.String("instance_id", g.instanceID),
	)
}

// handleClientMessage обрабатывает команду клиента
func (g *Gateway) handleClientMessage(client *Client, msg *ClientMessage) {
	res := g.limiter.Check(context.Background(), g.eventRule, "socket:"+client.userID)
	if !res.Allowed {
		client.emit("error", gin.H{"message": "rate limit exceeded"})
		return
	}

	switch msg.Action {
	case "join_workspace":
		g.handleJoinWorkspace(client, msg.WorkspaceID)
	case "leave_workspace":
		g.handleLeaveWorkspace(client, msg.WorkspaceID)
	case "ping":
		client.emit("pong", gin.H{"timestamp": time.Now().Format(time.RFC3339)})
	default:
		client.emit("error", gin.H{"message": "unknown action"})
	}
}

func (g *Gateway) handleJoinWorkspace(client *Client, workspaceID string) {
	if workspaceID == "" {
		client.emit("error", gin.H{"message": "workspace ID is required"})
		return
	}

	room := WorkspaceRoom(workspaceID)
	g.hub.Join(client, room)

	// Уведомляем остальных участников комнаты
	g.hub.Emit(room, UserRoom(client.userID), "user_joined_workspace", gin.H{
		"user_id":      client.userID,
		"workspace_id": workspaceID,
	})

	client.emit("workspace_joined", gin.H{"workspace_id": workspaceID})
	g.logger.Info("User joined workspace",
		zap.String("user_id", client.userID),
		zap.String("workspace_id", workspaceID),
	)
}

func (g *Gateway) handleLeaveWorkspace(client *Client, workspaceID string) {
	if workspaceID == "" {
		client.emit("error", gin.H{"message": "workspace ID is required"})
		return
	}

	room := WorkspaceRoom(workspaceID)
	g.hub.Leave(client, room)

	g.hub.Emit(room, UserRoom(client.userID), "user_left_workspace", gin.H{
		"user_id":      client.userID,
		"workspace_id": workspaceID,
	})

	client.emit("workspace_left", gin.H{"workspace_id": workspaceID})
	g.logger.Info("User left workspace",
		zap.String("user_id", client.userID),
		zap.String("workspace_id", workspaceID),
	)
}

// NotifyUser доставляет уведомление пользователю на всех процессах:
// локальным соединениям напрямую, остальным через мост.
// Доставка best-effort, не более одного раза на подписчика.
func (g *Gateway) NotifyUser(ctx context.Context, userID string, n models.Notification) error {
	g.prepare(&n)
	g.hub.Emit(UserRoom(userID), "", "notification", n)

	envelope := &models.NotificationEnvelope{
		Origin:       g.instanceID,
		UserID:       userID,
		Notification: n,
	}
	metrics.NotificationsPublishedTotal.WithLabelValues(TopicUserNotifications).Inc()
	return g.bridge.Publish(ctx, TopicUserNotifications, envelope)
}

// NotifyWorkspace доставляет уведомление всем участникам рабочего
// пространства. excludeUserID исключает одного пользователя из
// рассылки; исключение применяется на каждом процессе при доставке.
func (g *Gateway) NotifyWorkspace(ctx context.Context, workspaceID string, n models.Notification, excludeUserID string) error {
	g.prepare(&n)
	g.emitWorkspace(workspaceID, excludeUserID, n)

	envelope := &models.NotificationEnvelope{
		Origin:        g.instanceID,
		WorkspaceID:   workspaceID,
		ExcludeUserID: excludeUserID,
		Notification:  n,
	}
	metrics.NotificationsPublishedTotal.WithLabelValues(TopicWorkspaceNotifications).Inc()
	return g.bridge.Publish(ctx, TopicWorkspaceNotifications, envelope)
}

func (g *Gateway) emitWorkspace(workspaceID, excludeUserID string, n models.Notification) {
	excludeRoom := ""
	if excludeUserID != "" {
		excludeRoom = UserRoom(excludeUserID)
	}
	g.hub.Emit(WorkspaceRoom(workspaceID), excludeRoom, "workspace_notification", n)
}

// handleUserEnvelope доставляет конверт из моста локальным клиентам.
// Конверт собственного процесса пропускается: локальная доставка уже
// произошла в момент публикации.
func (g *Gateway) handleUserEnvelope(message []byte) {
	var envelope models.NotificationEnvelope
	if err := json.Unmarshal(message, &envelope); err != nil {
		g.logger.Error("Failed to parse notification envelope", zap.Error(err))
		return
	}
	if envelope.Origin == g.instanceID {
		return
	}
	g.hub.Emit(UserRoom(envelope.UserID), "", "notification", envelope.Notification)
}

func (g *Gateway) handleWorkspaceEnvelope(message []byte) {
	var envelope models.NotificationEnvelope
	if err := json.Unmarshal(message, &envelope); err != nil {
		g.logger.Error("Failed to parse workspace notification envelope", zap.Error(err))
		return
	}
	if envelope.Origin == g.instanceID {
		return
	}
	g.emitWorkspace(envelope.WorkspaceID, envelope.ExcludeUserID, envelope.Notification)
}

// prepare заполняет служебные поля уведомления перед доставкой
func (g *Gateway) prepare(n *models.Notification) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}
	n.Read = false
}

// ConnectionCount возвращает количество локальных соединений
func (g *Gateway) ConnectionCount() int {
	return g.hub.ConnectionCount()
}

func extractBearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return ""
}
