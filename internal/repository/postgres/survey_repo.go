package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
	apperrors "github.com/yourusername/survey-rewards-api/internal/pkg/errors"
)

// SurveyRepo реализует repository.SurveyRepository
type SurveyRepo struct {
	db *gorm.DB
}

// NewSurveyRepo создает новый репозиторий опросов
func NewSurveyRepo(db *gorm.DB) *SurveyRepo {
	return &SurveyRepo{db: db}
}

// orderedQuestions сохраняет порядок вопросов, заданный при создании опроса
func orderedQuestions(db *gorm.DB) *gorm.DB {
	return db.Order("questions.position ASC, questions.id ASC")
}

// Create сохраняет опрос и вставляет все вопросы одним запросом
func (r *SurveyRepo) Create(ctx context.Context, survey *entity.Survey) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		questions := survey.Questions
		survey.Questions = nil

		if err := tx.Create(survey).Error; err != nil {
			survey.Questions = questions
			return fmt.Errorf("create survey: %w", err)
		}

		for i := range questions {
			questions[i].SurveyID = survey.ID
			questions[i].Position = i + 1
		}
		if len(questions) > 0 {
			if err := tx.Create(&questions).Error; err != nil {
				survey.Questions = questions
				return fmt.Errorf("create questions for survey #%d: %w", survey.ID, err)
			}
		}

		survey.Questions = questions
		return nil
	})
}

// GetByID возвращает опрос с вопросами
func (r *SurveyRepo) GetByID(ctx context.Context, id uint) (*entity.Survey, error) {
	var survey entity.Survey
	err := r.db.WithContext(ctx).
		Preload("Questions", orderedQuestions).
		First(&survey, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: survey #%d", apperrors.ErrNotFound, id)
		}
		return nil, err
	}
	return &survey, nil
}

// ListAvailable возвращает опросы без ответа пользователя, от новых к старым
func (r *SurveyRepo) ListAvailable(ctx context.Context, userID uint, category string) ([]entity.Survey, error) {
	query := r.db.WithContext(ctx).Model(&entity.Survey{}).
		Where("NOT EXISTS (SELECT 1 FROM survey_responses sr WHERE sr.survey_id = surveys.id AND sr.user_id = ?)", userID)
	if category != "" {
		query = query.Where("surveys.category = ?", category)
	}

	surveys := make([]entity.Survey, 0)
	err := query.
		Preload("Questions", orderedQuestions).
		Order("surveys.created_at DESC, surveys.id DESC").
		Find(&surveys).Error
	if err != nil {
		return nil, err
	}
	return surveys, nil
}
