package services

import (
	"errors"
	"fmt"
)

var (
	// ErrIllegalTransition запрошенный переход статуса не разрешен жизненным циклом рейса
	ErrIllegalTransition = errors.New("недопустимый переход статуса рейса")

	// ErrTripConflict при редактировании рейса его новое окно пересекается с другим рейсом.
	// В отличие от создания, редактирование при пересечении блокируется.
	ErrTripConflict = errors.New("временное окно пересекается с другим рейсом этого сейфа")

	// ErrNotFound запись не найдена
	ErrNotFound = errors.New("запись не найдена")
)

// ValidationError ошибка, которую может исправить вызывающая сторона.
// Показывается пользователю как есть и не считается сбоем системы.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError создает ошибку валидации для поля
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError проверяет, является ли ошибка ошибкой валидации
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
