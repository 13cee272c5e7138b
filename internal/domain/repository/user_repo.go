package repository

import (
	"context"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
)

// UserRepository определяет методы для работы с пользователями
type UserRepository interface {
	// Create создает пользователя; занятый email возвращает apperrors.ErrEmailTaken
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id uint) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// UpdateProfile обновляет только переданные поля, пароль этим методом не меняется
	UpdateProfile(ctx context.Context, userID uint, updates map[string]interface{}) error
	// UpdatePassword сохраняет уже готовый bcrypt-хеш
	UpdatePassword(ctx context.Context, userID uint, passwordHash string) error
	// GetLeaderboard возвращает пользователей по убыванию баллов и общее количество
	GetLeaderboard(ctx context.Context, limit, offset int) ([]entity.User, int64, error)
}
