package postgres

import (
	"context"
	"fmt"
	"log"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
	apperrors "github.com/yourusername/survey-rewards-api/internal/pkg/errors"
)

// ResponseRepo реализует repository.ResponseRepository
type ResponseRepo struct {
	db *gorm.DB
}

// NewResponseRepo создает новый репозиторий ответов
func NewResponseRepo(db *gorm.DB) *ResponseRepo {
	return &ResponseRepo{db: db}
}

// Exists проверяет наличие ответа пользователя на опрос
func (r *ResponseRepo) Exists(ctx context.Context, userID, surveyID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.SurveyResponse{}).
		Where("user_id = ? AND survey_id = ?", userID, surveyID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Submit сохраняет ответ и начисляет баллы в одной транзакции.
// Уникальный индекс (user_id, survey_id) гарантирует единственный ответ даже при гонке запросов.
func (r *ResponseRepo) Submit(ctx context.Context, response *entity.SurveyResponse) (int64, error) {
	var balance int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(response).Error; err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: user #%d, survey #%d", apperrors.ErrAlreadyCompleted, response.UserID, response.SurveyID)
			}
			return fmt.Errorf("insert survey response: %w", err)
		}

		result := tx.Model(&entity.User{}).
			Where("id = ?", response.UserID).
			UpdateColumn("points", gorm.Expr("points + ?", response.PointsEarned))
		if result.Error != nil {
			return fmt.Errorf("increment points for user #%d: %w", response.UserID, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%w: user #%d", apperrors.ErrNotFound, response.UserID)
		}

		responseID := response.ID
		entry := &entity.PointsTransaction{
			UserID:           response.UserID,
			SurveyResponseID: &responseID,
			Amount:           int64(response.PointsEarned),
			Reason:           entity.PointsReasonSurveyCompleted,
		}
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("append points transaction: %w", err)
		}

		return tx.Model(&entity.User{}).
			Select("points").
			Where("id = ?", response.UserID).
			Scan(&balance).Error
	})
	if err != nil {
		return 0, err
	}

	log.Printf("[ResponseRepo] Пользователь ID=%d прошёл опрос ID=%d, начислено %d, баланс %d",
		response.UserID, response.SurveyID, response.PointsEarned, balance)
	return balance, nil
}

// ListByUser возвращает ответы пользователя от новых к старым
func (r *ResponseRepo) ListByUser(ctx context.Context, userID uint, withQuestions bool) ([]entity.SurveyResponse, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if withQuestions {
		query = query.Preload("Survey.Questions", orderedQuestions)
	} else {
		query = query.Preload("Survey")
	}

	responses := make([]entity.SurveyResponse, 0)
	if err := query.Order("created_at DESC, id DESC").Find(&responses).Error; err != nil {
		return nil, err
	}
	return responses, nil
}

// ListBySurvey возвращает ответы на опрос вместе с авторами
func (r *ResponseRepo) ListBySurvey(ctx context.Context, surveyID uint) ([]entity.SurveyResponse, error) {
	responses := make([]entity.SurveyResponse, 0)
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("survey_id = ?", surveyID).
		Order("id ASC").
		Find(&responses).Error
	if err != nil {
		return nil, err
	}
	return responses, nil
}

// CountByUser возвращает количество ответов пользователя
func (r *ResponseRepo) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.SurveyResponse{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// PointsByCategory суммирует заработанные баллы по категориям опросов
func (r *ResponseRepo) PointsByCategory(ctx context.Context, userID uint) ([]entity.CategoryPoints, error) {
	rows := make([]entity.CategoryPoints, 0)
	err := r.db.WithContext(ctx).
		Table("survey_responses AS sr").
		Select("s.category AS category, COALESCE(SUM(sr.points_earned), 0) AS total, COUNT(sr.id) AS survey_count").
		Joins("JOIN surveys AS s ON s.id = sr.survey_id").
		Where("sr.user_id = ?", userID).
		Group("s.category").
		Order("total DESC, category ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
