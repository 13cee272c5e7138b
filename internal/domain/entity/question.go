package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// QuestionType определяет формат ответа на вопрос
type QuestionType string

const (
	QuestionTypeText           QuestionType = "text"
	QuestionTypeSingleChoice   QuestionType = "single_choice"
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
)

// IsValid проверяет, что тип вопроса известен
func (t QuestionType) IsValid() bool {
	switch t {
	case QuestionTypeText, QuestionTypeSingleChoice, QuestionTypeMultipleChoice:
		return true
	}
	return false
}

// IsChoice возвращает true для вопросов с вариантами ответа
func (t QuestionType) IsChoice() bool {
	return t == QuestionTypeSingleChoice || t == QuestionTypeMultipleChoice
}

// StringArray - пользовательский тип для хранения списка строк в JSONB
type StringArray []string

// Scan реализует интерфейс sql.Scanner для StringArray
func (o *StringArray) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*o = StringArray{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal JSONB value: unsupported type %T", value)
	}

	if len(data) == 0 {
		*o = StringArray{}
		return nil
	}
	return json.Unmarshal(data, o)
}

// Value реализует интерфейс driver.Valuer для StringArray
func (o StringArray) Value() (driver.Value, error) {
	if len(o) == 0 {
		return []byte("[]"), nil // пустой JSON массив вместо null
	}
	return json.Marshal(o)
}

// Question представляет вопрос опроса
type Question struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	SurveyID  uint         `gorm:"not null;index" json:"survey_id"`
	Text      string       `gorm:"size:500;not null" json:"text"`
	Type      QuestionType `gorm:"size:20;not null" json:"type"`
	Options   StringArray  `gorm:"type:jsonb;not null" json:"options"`
	Position  int          `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (Question) TableName() string {
	return "questions"
}

// HasOption проверяет, что значение входит в список вариантов
func (q *Question) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}
