package service

import (
	"fmt"

	apperrors "github.com/yourusername/survey-rewards-api/internal/pkg/errors"
)

// Ошибки сервисов с текстом для клиента. Все оборачивают общие ошибки из apperrors.
var (
	ErrSurveyNotFound     = fmt.Errorf("%w: survey not found", apperrors.ErrNotFound)
	ErrUserNotFound       = fmt.Errorf("%w: user not found", apperrors.ErrNotFound)
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", apperrors.ErrUnauthorized)
	ErrWrongPassword      = fmt.Errorf("%w: current password is incorrect", apperrors.ErrUnauthorized)
)
