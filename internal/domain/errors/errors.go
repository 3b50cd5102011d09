// File: backend/services/session-service/internal/domain/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// Определение типов ошибок
var (
	// Общие ошибки
	ErrInternal       = errors.New("внутренняя ошибка сервера")
	ErrInvalidRequest = errors.New("некорректный запрос")
	ErrNotFound       = errors.New("ресурс не найден")
	ErrUnauthorized   = errors.New("не авторизован")

	// Ошибки аутентификации.
	// Наружу все они сводятся к одному ответу, чтобы по коду ошибки
	// нельзя было отличить отозванный токен от истекшего.
	ErrInvalidToken  = errors.New("недействительный токен")
	ErrExpiredToken  = errors.New("истекший токен")
	ErrRevokedToken  = errors.New("отозванный токен")
	ErrTokenNotFound = errors.New("токен не найден")

	// Ошибки инфраструктуры
	ErrStoreUnavailable = errors.New("хранилище недоступно")

	// Ошибки ограничения скорости
	ErrRateLimitExceeded = errors.New("превышен лимит запросов")

	// Ошибки блокировок
	ErrLockContention = errors.New("блокировка уже занята")
)

// AppError представляет ошибку приложения с дополнительной информацией
type AppError struct {
	Err        error  // Оригинальная ошибка
	Message    string // Сообщение для пользователя
	StatusCode int    // HTTP статус-код
	Code       string // Код ошибки для API
}

// Error возвращает строковое представление ошибки
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap возвращает оригинальную ошибку
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError создает новую ошибку приложения
func NewAppError(err error, message string, statusCode int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Code:       code,
	}
}

// IsUnauthorized проверяет, является ли ошибка ошибкой "не авторизован"
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrRevokedToken) ||
		errors.Is(err, ErrTokenNotFound)
}

// IsNotFound проверяет, является ли ошибка ошибкой "не найдено"
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTokenNotFound)
}

// IsStoreUnavailable проверяет, является ли ошибка сбоем хранилища
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
