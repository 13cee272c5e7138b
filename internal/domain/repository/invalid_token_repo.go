package repository

import (
	"context"
	"time"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
)

// InvalidTokenRepository хранит моменты отзыва токенов пользователей
type InvalidTokenRepository interface {
	// AddInvalidToken сохраняет (или сдвигает) момент отзыва для пользователя
	AddInvalidToken(ctx context.Context, userID uint, invalidationTime time.Time) error

	// IsTokenInvalid проверяет, выпущен ли токен до момента отзыва
	IsTokenInvalid(ctx context.Context, userID uint, tokenIssuedAt time.Time) (bool, error)

	// GetAllInvalidTokens возвращает все записи (для прогрева кеша при старте)
	GetAllInvalidTokens(ctx context.Context) ([]entity.InvalidToken, error)

	// CleanupOldInvalidTokens удаляет записи старше cutoffTime
	CleanupOldInvalidTokens(ctx context.Context, cutoffTime time.Time) error
}
