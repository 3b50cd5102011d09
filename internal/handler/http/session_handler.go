// File: backend/services/session-service/internal/handler/http/session_handler.go

package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/domain/errors"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/domain/service"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/handler/http/middleware"
)

// SessionHandler обрабатывает запросы управления сессиями
type SessionHandler struct {
	tokenService *service.TokenService
	logger       *zap.Logger
}

// NewSessionHandler создает новый экземпляр SessionHandler
func NewSessionHandler(tokenService *service.TokenService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		tokenService: tokenService,
		logger:       logger.Named("session_handler"),
	}
}

// IssueSessionRequest представляет запрос на выпуск токена
type IssueSessionRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Email  string `json:"email" binding:"required,email"`
	TTL    int64  `json:"ttl_seconds,omitempty"`
}

// IssueSessionResponse представляет ответ с выпущенным токеном
type IssueSessionResponse struct {
	AccessToken string    `json:"access_token"`
	JTI         string    `json:"jti"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// SessionInfo представляет активную сессию в ответе API
type SessionInfo struct {
	JTI       string    `json:"jti"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	UserAgent string    `json:"user_agent,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
}

// IssueSession выпускает новый токен доступа для пользователя.
// POST /api/v1/sessions
func (h *SessionHandler) IssueSession(c *gin.Context) {
	var req IssueSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid request body", "invalid_request", h.logger)
		return
	}

	opts := service.IssueOptions{
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	}
	if req.TTL > 0 {
		opts.TTL = time.Duration(req.TTL) * time.Second
	}

	token, record, err := h.tokenService.Issue(c.Request.Context(), req.UserID, req.Email, opts)
	if err != nil {
		if errors.Is(err, domainErrors.ErrStoreUnavailable) {
			RespondWithError(c, http.StatusServiceUnavailable, "Session store unavailable", "store_unavailable", h.logger)
			return
		}
		RespondWithError(c, http.StatusInternalServerError, "Failed to issue token", "internal_error", h.logger)
		return
	}

	RespondWithCreated(c, IssueSessionResponse{
		AccessToken: token,
		JTI:         record.JTI,
		ExpiresAt:   record.ExpiresAt,
	})
}

// VerifySession проверяет переданный токен и возвращает его claims.
// POST /api/v1/sessions/verify
func (h *SessionHandler) VerifySession(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithError(c, http.StatusBadRequest, "Invalid request body", "invalid_request", h.logger)
		return
	}

	claims, err := h.tokenService.Verify(c.Request.Context(), req.Token)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":   true,
		"user_id": claims.UserID,
		"email":   claims.Email,
		"jti":     claims.ID,
	})
}

// ListSessions возвращает активные сессии аутентифицированного пользователя.
// GET /api/v1/sessions
func (h *SessionHandler) ListSessions(c *gin.Context) {
	userID := c.GetString(middleware.GinContextUserIDKey)

	records, err := h.tokenService.ListActiveForUser(c.Request.Context(), userID)
	if err != nil {
		RespondWithError(c, http.StatusServiceUnavailable, "Session store unavailable", "store_unavailable", h.logger)
		return
	}

	sessions := make([]SessionInfo, 0, len(records))
	for _, r := range records {
		sessions = append(sessions, SessionInfo{
			JTI:       r.JTI,
			IssuedAt:  r.IssuedAt,
			ExpiresAt: r.ExpiresAt,
			UserAgent: r.UserAgent,
			IPAddress: r.IPAddress,
		})
	}

	RespondWithData(c, http.StatusOK, gin.H{"sessions": sessions})
}

// RevokeSession отзывает одну сессию по ее идентификатору.
// Отзыв чужой сессии запрещен.
// DELETE /api/v1/sessions/:jti
func (h *SessionHandler) RevokeSession(c *gin.Context) {
	userID := c.GetString(middleware.GinContextUserIDKey)
	jti := c.Param("jti")

	records, err := h.tokenService.ListActiveForUser(c.Request.Context(), userID)
	if err != nil {
		RespondWithError(c, http.StatusServiceUnavailable, "Session store unavailable", "store_unavailable", h.logger)
		return
	}
	owned := false
	for _, r := range records {
		if r.JTI == jti {
			owned = true
			break
		}
	}
	if !owned {
		RespondWithError(c, http.StatusNotFound, "Session not found", "session_not_found", h.logger)
		return
	}

	revoked, err := h.tokenService.Revoke(c.Request.Context(), jti, "user_request")
	if err != nil {
		RespondWithError(c, http.StatusServiceUnavailable, "Session store unavailable", "store_unavailable", h.logger)
		return
	}
	if !revoked {
		RespondWithError(c, http.StatusNotFound, "Session not found", "session_not_found", h.logger)
		return
	}

	RespondWithMessage(c, http.StatusOK, "Session revoked")
}

// RevokeAllSessions отзывает все активные сессии пользователя.
// DELETE /api/v1/sessions
func (h *SessionHandler) RevokeAllSessions(c *gin.Context) {
	userID := c.GetString(middleware.GinContextUserIDKey)

	count, err := h.tokenService.RevokeAllForUser(c.Request.Context(), userID, "user_request")
	if err != nil {
		RespondWithError(c, http.StatusServiceUnavailable, "Session store unavailable", "store_unavailable", h.logger)
		return
	}

	RespondWithData(c, http.StatusOK, gin.H{"revoked": count})
}
