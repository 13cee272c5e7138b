package entity

import (
	"time"
)

// Survey представляет опрос с наградой за прохождение.
// После создания опрос не изменяется.
type Survey struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:200;not null" json:"title"`
	Description string     `gorm:"type:text;not null" json:"description"`
	Category    string     `gorm:"size:50;not null;index" json:"category"`
	Points      int        `gorm:"not null;default:10" json:"points"`
	Questions   []Question `gorm:"foreignKey:SurveyID;constraint:OnDelete:CASCADE" json:"questions,omitempty"`
	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Survey) TableName() string {
	return "surveys"
}

// QuestionIDs возвращает ID всех вопросов опроса; ответ должен покрывать каждый из них
func (s *Survey) QuestionIDs() []uint {
	ids := make([]uint, 0, len(s.Questions))
	for _, q := range s.Questions {
		ids = append(ids, q.ID)
	}
	return ids
}

// QuestionByID ищет вопрос опроса по ID
func (s *Survey) QuestionByID(id uint) (*Question, bool) {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i], true
		}
	}
	return nil, false
}
