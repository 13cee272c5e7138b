package entity

import (
	"time"
)

// Причины начисления баллов
const (
	PointsReasonSurveyCompleted = "survey_completed"
)

// PointsTransaction - запись журнала начислений. Записи только добавляются,
// сумма по пользователю совпадает с users.points.
type PointsTransaction struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"user_id"`
	SurveyResponseID *uint     `gorm:"uniqueIndex" json:"survey_response_id,omitempty"`
	Amount           int64     `gorm:"not null" json:"amount"`
	Reason           string    `gorm:"size:50;not null" json:"reason"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName определяет имя таблицы для GORM
func (PointsTransaction) TableName() string {
	return "points_transactions"
}

// CategoryPoints - агрегат баллов пользователя по категории опросов
type CategoryPoints struct {
	Category    string `gorm:"column:category" json:"category"`
	Total       int64  `gorm:"column:total" json:"total"`
	SurveyCount int64  `gorm:"column:survey_count" json:"count"`
}
