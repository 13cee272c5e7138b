package repository

import (
	"context"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
)

// SurveyRepository определяет методы для работы с опросами и их вопросами
type SurveyRepository interface {
	// Create сохраняет опрос вместе с вопросами в одной транзакции
	Create(ctx context.Context, survey *entity.Survey) error
	// GetByID возвращает опрос с вопросами
	GetByID(ctx context.Context, id uint) (*entity.Survey, error)
	// ListAvailable возвращает опросы, на которые пользователь еще не отвечал, от новых к старым.
	// Пустая category отключает фильтр.
	ListAvailable(ctx context.Context, userID uint, category string) ([]entity.Survey, error)
}
