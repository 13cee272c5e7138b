package dto

import (
	"time"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
)

// CreateQuestionRequest - вопрос в запросе создания опроса
type CreateQuestionRequest struct {
	Text    string   `json:"text" binding:"required,max=500"`
	Type    string   `json:"type" binding:"required,oneof=text single_choice multiple_choice"`
	Options []string `json:"options" binding:"omitempty,max=20,dive,required,max=200"`
}

// CreateSurveyRequest - тело запроса создания опроса
type CreateSurveyRequest struct {
	Title       string                  `json:"title" binding:"required,min=3,max=200"`
	Description string                  `json:"description" binding:"required,min=10"`
	Category    string                  `json:"category" binding:"required,survey_category"`
	Points      *int                    `json:"points" binding:"omitempty,min=1,max=100000"`
	Questions   []CreateQuestionRequest `json:"questions" binding:"required,min=1,max=100,dive"`
}

// SubmitResponseRequest - тело запроса ответа на опрос
type SubmitResponseRequest struct {
	Answers entity.Answers `json:"answers" binding:"required,min=1"`
}

// SubmitResponseResult возвращается после успешного прохождения опроса
type SubmitResponseResult struct {
	Message      string `json:"message"`
	ResponseID   uint   `json:"response_id"`
	PointsEarned int    `json:"points_earned"`
	TotalPoints  int64  `json:"total_points"`
}

// SurveySummary - краткие данные опроса для истории
type SurveySummary struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Points      int    `json:"points"`
}

// SurveyHistoryItem - элемент истории прохождения опросов
type SurveyHistoryItem struct {
	ID           uint           `json:"id"`
	SurveyID     uint           `json:"survey_id"`
	PointsEarned int            `json:"points_earned"`
	Answers      entity.Answers `json:"answers"`
	CreatedAt    time.Time      `json:"created_at"`
	Survey       *SurveySummary `json:"survey"`
}

// NewSurveyHistoryItem преобразует ответ с подгруженным опросом в элемент истории
func NewSurveyHistoryItem(response *entity.SurveyResponse) *SurveyHistoryItem {
	item := &SurveyHistoryItem{
		ID:           response.ID,
		SurveyID:     response.SurveyID,
		PointsEarned: response.PointsEarned,
		Answers:      response.Answers,
		CreatedAt:    response.CreatedAt,
	}
	if response.Survey != nil {
		item.Survey = &SurveySummary{
			ID:          response.Survey.ID,
			Title:       response.Survey.Title,
			Description: response.Survey.Description,
			Category:    response.Survey.Category,
			Points:      response.Survey.Points,
		}
	}
	return item
}
