// File: backend/services/session-service/internal/domain/service/token_service.go

package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/domain/errors"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/domain/models"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/domain/repository/interfaces"
	jwtutil "github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/utils/jwt"
	"github.com/wizarding-anonymous/collab_platform/backend/services/session-service/internal/utils/metrics"
)

// IssueOptions содержит необязательные параметры выпуска токена
type IssueOptions struct {
	TTL       time.Duration
	UserAgent string
	IPAddress string
}

// TokenService управляет жизненным циклом токенов: выпуск, проверка,
// отзыв. Состояние хранится на стороне сервера; сервис не кэширует
// его в процессе, каждая проверка перечитывает хранилище.
type TokenService struct {
	tokenManager *jwtutil.TokenManager
	repo         interfaces.TokenRepository
	logger       *zap.Logger
	opTimeout    time.Duration
	defaultTTL   time.Duration
}

// NewTokenService создает новый экземпляр TokenService
func NewTokenService(
	tokenManager *jwtutil.TokenManager,
	repo interfaces.TokenRepository,
	logger *zap.Logger,
	opTimeout time.Duration,
	defaultTTL time.Duration,
) *TokenService {
	if opTimeout <= 0 {
		opTimeout = 200 * time.Millisecond
	}
	return &TokenService{
		tokenManager: tokenManager,
		repo:         repo,
		logger:       logger,
		opTimeout:    opTimeout,
		defaultTTL:   defaultTTL,
	}
}

func (s *TokenService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

// Issue выпускает новый токен и регистрирует его в хранилище.
// Если запись метаданных не удалась, подписанный токен не возвращается:
// токен без записи в хранилище недействителен.
func (s *TokenService) Issue(ctx context.Context, userID, email string, opts IssueOptions) (string, *models.TokenRecord, error) {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	jti := uuid.New().String()
	now := time.Now()

	token, err := s.tokenManager.GenerateAccessToken(userID, email, jti, ttl)
	if err != nil {
		s.logger.Error("Failed to sign token", zap.Error(err), zap.String("user_id", userID))
		return "", nil, domainErrors.ErrInternal
	}

	record := &models.TokenRecord{
		JTI:       jti,
		UserID:    userID,
		Email:     email,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		UserAgent: opts.UserAgent,
		IPAddress: opts.IPAddress,
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.repo.CreateRecord(opCtx, record); err != nil {
		s.logger.Error("Failed to store token record",
			zap.Error(err),
			zap.String("user_id", userID),
			zap.String("jti", jti),
		)
		return "", nil, domainErrors.ErrStoreUnavailable
	}

	metrics.TokensIssuedTotal.Inc()
	s.logger.Info("Token issued",
		zap.String("user_id", userID),
		zap.String("jti", jti),
		zap.Time("expires_at", record.ExpiresAt),
	)
	return token, record, nil
}

// Verify проверяет токен: подпись и срок действия локально, затем
// маркер отзыва и наличие записи в хранилище. Недоступность хранилища
// трактуется как недействительный токен (fail closed). Все причины
// отказа сводятся к domainErrors.ErrInvalidToken.
func (s *TokenService) Verify(ctx context.Context, token string) (*jwtutil.AccessTokenClaims, error) {
	claims, err := s.tokenManager.ParseAccessToken(token)
	if err != nil {
		metrics.TokenVerificationsTotal.WithLabelValues("invalid").Inc()
		s.logger.Debug("Token signature verification failed", zap.Error(err))
		return nil, domainErrors.ErrInvalidToken
	}

	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	revoked, err := s.repo.IsRevoked(opCtx, claims.ID)
	if err != nil {
		metrics.TokenVerificationsTotal.WithLabelValues("store_error").Inc()
		s.logger.Warn("Revocation check failed, rejecting token",
			zap.Error(err),
			zap.String("jti", claims.ID),
		)
		return nil, domainErrors.ErrInvalidToken
	}
	if revoked {
		metrics.TokenVerificationsTotal.WithLabelValues("revoked").Inc()
		s.logger.Info("Attempted use of revoked token",
			zap.String("user_id", claims.UserID),
			zap.String("jti", claims.ID),
		)
		return nil, domainErrors.ErrInvalidToken
	}

	if _, err := s.repo.GetRecord(opCtx, claims.ID); err != nil {
		if err == domainErrors.ErrTokenNotFound {
			metrics.TokenVerificationsTotal.WithLabelValues("not_found").Inc()
			s.logger.Debug("Token record not found", zap.String("jti", claims.ID))
		} else {
			metrics.TokenVerificationsTotal.WithLabelValues("store_error").Inc()
			s.logger.Warn("Record check failed, rejecting token",
				zap.Error(err),
				zap.String("jti", claims.ID),
			)
		}
		return nil, domainErrors.ErrInvalidToken
	}

	metrics.TokenVerificationsTotal.WithLabelValues("ok").Inc()
	return claims, nil
}

// Revoke отзывает токен по jti. Возвращает false, если записи нет:
// отзывать нечего, это не ошибка.
func (s *TokenService) Revoke(ctx context.Context, jti, reason string) (bool, error) {
	opCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	record, err := s.repo.GetRecord(opCtx, jti)
	if err != nil {
		if err == domainErrors.ErrTokenNotFound {
			return false, nil
		}
		return false, domainErrors.ErrStoreUnavailable
	}

	if err := s.repo.Revoke(opCtx, record, reason); err != nil {
		return false, domainErrors.ErrStoreUnavailable
	}

	metrics.TokensRevokedTotal.Inc()
	s.logger.Info("Token revoked",
		zap.String("jti", jti),
		zap.String("user_id", record.UserID),
		zap.String("reason", reason),
	)
	return true, nil
}

// RevokeAllForUser отзывает все токены пользователя. Частичные сбои
// допустимы: возвращается число успешных отзывов, а не транзакция.
func (s *TokenService) RevokeAllForUser(ctx context.Context, userID, reason string) (int, error) {
	opCtx, cancel := s.withTimeout(ctx)
	ids, err := s.repo.ListUserTokenIDs(opCtx, userID)
	cancel()
	if err != nil {
		return 0, domainErrors.ErrStoreUnavailable
	}

	revoked := 0
	for _, jti := range ids {
		ok, err := s.Revoke(ctx, jti, reason)
		if err != nil {
			s.logger.Warn("Failed to revoke token during bulk revocation",
				zap.Error(err),
				zap.String("jti", jti),
				zap.String("user_id", userID),
			)
			continue
		}
		if ok {
			revoked++
		}
	}

	s.logger.Info("Revoked all user tokens",
		zap.String("user_id", userID),
		zap.Int("revoked", revoked),
		zap.Int("total", len(ids)),
	)
	return revoked, nil
}

// ListActiveForUser возвращает метаданные живых токенов пользователя.
// Висячие записи индекса без записи токена молча пропускаются.
func (s *TokenService) ListActiveForUser(ctx context.Context, userID string) ([]*models.TokenRecord, error) {
	opCtx, cancel := s.withTimeout(ctx)
	ids, err := s.repo.ListUserTokenIDs(opCtx, userID)
	cancel()
	if err != nil {
		return nil, domainErrors.ErrStoreUnavailable
	}

	records := make([]*models.TokenRecord, 0, len(ids))
	for _, jti := range ids {
		opCtx, cancel := s.withTimeout(ctx)
		record, err := s.repo.GetRecord(opCtx, jti)
		cancel()
		if err != nil {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// CleanupExpired запускает аудит истекших записей.
// Корректность от него не зависит: TTL хранилища делает ту же работу.
func (s *TokenService) CleanupExpired(ctx context.Context) (int, error) {
	return s.repo.CleanupExpired(ctx)
}

// TokenStats представляет текущее состояние хранилища токенов
type TokenStats struct {
	Active  int `json:"active_tokens"`
	Revoked int `json:"revoked_tokens"`
}

// Stats подсчитывает записи токенов и маркеры отзыва и публикует
// значения в метрики. Значения мгновенные: между подсчетом и
// чтением метрик хранилище могло измениться.
func (s *TokenService) Stats(ctx context.Context) (*TokenStats, error) {
	active, revoked, err := s.repo.CountRecords(ctx)
	if err != nil {
		s.logger.Warn("Failed to count token records", zap.Error(err))
		return nil, domainErrors.ErrStoreUnavailable
	}

	metrics.ActiveTokens.Set(float64(active))
	metrics.RevokedTokens.Set(float64(revoked))
	return &TokenStats{Active: active, Revoked: revoked}, nil
}
