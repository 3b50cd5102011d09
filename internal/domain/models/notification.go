// File: backend/services/session-service/internal/domain/models/notification.go
package models

import (
	"encoding/json"
	"time"
)

// Notification представляет содержимое уведомления для клиента.
type Notification struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Read      bool            `json:"read"`
}

// NotificationEnvelope представляет конверт уведомления, передаваемый
// между процессами через pub/sub. Конверт не сохраняется: подписчики,
// подключившиеся после публикации, его не получат.
type NotificationEnvelope struct {
	// Origin — идентификатор процесса-отправителя. Процесс, который
	// уже доставил уведомление своим локальным соединениям, пропускает
	// собственный конверт при получении его из pub/sub.
	Origin string `json:"origin"`

	// UserID задан для адресных уведомлений пользователю.
	UserID string `json:"user_id,omitempty"`

	// WorkspaceID задан для уведомлений рабочему пространству.
	WorkspaceID string `json:"workspace_id,omitempty"`

	// ExcludeUserID исключает одного пользователя из рассылки по
	// рабочему пространству (например, автора изменения).
	ExcludeUserID string `json:"exclude_user_id,omitempty"`

	Notification Notification `json:"notification"`
}
