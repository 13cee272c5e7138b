package repository

import (
	"context"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
)

// ResponseRepository определяет методы для работы с ответами на опросы
type ResponseRepository interface {
	// Exists проверяет, отвечал ли пользователь на опрос
	Exists(ctx context.Context, userID, surveyID uint) (bool, error)

	// Submit атомарно сохраняет ответ, начисляет баллы и пишет запись в журнал.
	// Возвращает новый баланс пользователя. Повторный ответ возвращает apperrors.ErrAlreadyCompleted.
	Submit(ctx context.Context, response *entity.SurveyResponse) (int64, error)

	// ListByUser возвращает ответы пользователя от новых к старым вместе с опросом.
	// withQuestions дополнительно подгружает вопросы опроса.
	ListByUser(ctx context.Context, userID uint, withQuestions bool) ([]entity.SurveyResponse, error)

	// ListBySurvey возвращает все ответы на опрос вместе с пользователями (для экспорта)
	ListBySurvey(ctx context.Context, surveyID uint) ([]entity.SurveyResponse, error)

	// CountByUser возвращает количество пройденных пользователем опросов
	CountByUser(ctx context.Context, userID uint) (int64, error)

	// PointsByCategory группирует заработанные баллы по категориям опросов
	PointsByCategory(ctx context.Context, userID uint) ([]entity.CategoryPoints, error)
}
