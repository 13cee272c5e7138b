package errors

import (
	"errors"
	"fmt"
)

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись или ресурс не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, неверные учетные данные).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrExpiredToken используется, когда срок действия токена истек.
	ErrExpiredToken = errors.New("token is expired")

	// ErrConflict используется для конфликтов состояния.
	ErrConflict = errors.New("resource state conflict")
)

// Ошибки предметной области опросов
var (
	// ErrAlreadyCompleted - пользователь уже отправил ответ на этот опрос.
	ErrAlreadyCompleted = errors.New("you have already completed this survey")

	// ErrIncompleteAnswers - в ответе отсутствуют обязательные вопросы.
	ErrIncompleteAnswers = errors.New("all questions must be answered")

	// ErrEmailTaken - email уже занят другим пользователем.
	ErrEmailTaken = errors.New("email already registered")
)

// FieldError описывает ошибку валидации конкретного поля запроса
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError - ошибка валидации с перечнем полей. errors.Is(err, ErrValidation) == true.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError создает ошибку валидации для одного поля
func NewValidationError(path, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Path: path, Message: message}}}
}

// Add добавляет ошибку поля
func (e *ValidationError) Add(path, message string) {
	e.Fields = append(e.Fields, FieldError{Path: path, Message: message})
}

// HasErrors возвращает true, если есть хотя бы одна ошибка поля
func (e *ValidationError) HasErrors() bool {
	return e != nil && len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	msg := ErrValidation.Error() + ": " + e.Fields[0].Path + ": " + e.Fields[0].Message
	if len(e.Fields) > 1 {
		msg += fmt.Sprintf(" (and %d more)", len(e.Fields)-1)
	}
	return msg
}

// Unwrap позволяет сравнивать ошибку с ErrValidation
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
