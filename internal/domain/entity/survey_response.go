package entity

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidAnswer возвращается при разборе ответа, который не является строкой или массивом строк
var ErrInvalidAnswer = errors.New("answer must be a string or an array of strings")

// AnswerKind различает варианты AnswerValue
type AnswerKind int

const (
	AnswerKindNone AnswerKind = iota
	AnswerKindSingle
	AnswerKindMultiple
)

// AnswerValue - ответ на один вопрос: либо одна строка, либо список строк.
// Нулевое значение означает отсутствие ответа.
type AnswerValue struct {
	kind     AnswerKind
	single   string
	multiple []string
}

// SingleAnswer создает ответ из одной строки
func SingleAnswer(value string) AnswerValue {
	return AnswerValue{kind: AnswerKindSingle, single: value}
}

// MultipleAnswer создает ответ из списка строк
func MultipleAnswer(values ...string) AnswerValue {
	list := make([]string, len(values))
	copy(list, values)
	return AnswerValue{kind: AnswerKindMultiple, multiple: list}
}

// Kind возвращает вариант ответа
func (a AnswerValue) Kind() AnswerKind {
	return a.kind
}

// IsZero возвращает true, если ответ не задан
func (a AnswerValue) IsZero() bool {
	return a.kind == AnswerKindNone
}

// Single возвращает строковый ответ
func (a AnswerValue) Single() (string, bool) {
	return a.single, a.kind == AnswerKindSingle
}

// Multiple возвращает список выбранных значений
func (a AnswerValue) Multiple() ([]string, bool) {
	if a.kind != AnswerKindMultiple {
		return nil, false
	}
	list := make([]string, len(a.multiple))
	copy(list, a.multiple)
	return list, true
}

// Values возвращает ответ в виде списка независимо от варианта
func (a AnswerValue) Values() []string {
	switch a.kind {
	case AnswerKindSingle:
		return []string{a.single}
	case AnswerKindMultiple:
		list, _ := a.Multiple()
		return list
	}
	return nil
}

// MarshalJSON сериализует ответ как строку или массив строк
func (a AnswerValue) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case AnswerKindSingle:
		return json.Marshal(a.single)
	case AnswerKindMultiple:
		if a.multiple == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(a.multiple)
	}
	return []byte("null"), nil
}

// UnmarshalJSON принимает только строку или массив строк
func (a *AnswerValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ErrInvalidAnswer
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAnswer, err)
		}
		*a = SingleAnswer(s)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return ErrInvalidAnswer
		}
		list := make([]string, 0, len(raw))
		for _, item := range raw {
			// null, числа и вложенные массивы внутри списка не допускаются
			item = bytes.TrimSpace(item)
			if len(item) == 0 || item[0] != '"' {
				return ErrInvalidAnswer
			}
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				return ErrInvalidAnswer
			}
			list = append(list, s)
		}
		*a = MultipleAnswer(list...)
	default:
		return ErrInvalidAnswer
	}
	return nil
}

// QuestionAnswer связывает ответ с вопросом
type QuestionAnswer struct {
	QuestionID uint        `json:"question_id"`
	Answer     AnswerValue `json:"answer"`
}

// Answers - набор ответов, хранится в JSONB
type Answers []QuestionAnswer

// Scan реализует интерфейс sql.Scanner для Answers
func (a *Answers) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*a = Answers{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal answers: unsupported type %T", value)
	}

	if len(data) == 0 {
		*a = Answers{}
		return nil
	}
	return json.Unmarshal(data, a)
}

// Value реализует интерфейс driver.Valuer для Answers
func (a Answers) Value() (driver.Value, error) {
	if len(a) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

// ByQuestion возвращает ответы, индексированные по ID вопроса
func (a Answers) ByQuestion() map[uint]AnswerValue {
	result := make(map[uint]AnswerValue, len(a))
	for _, qa := range a {
		result[qa.QuestionID] = qa.Answer
	}
	return result
}

// SurveyResponse - ответ пользователя на опрос. Для пары (user_id, survey_id) существует не более одной записи.
type SurveyResponse struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex:uq_survey_responses_user_survey" json:"user_id"`
	SurveyID     uint      `gorm:"not null;uniqueIndex:uq_survey_responses_user_survey;index" json:"survey_id"`
	Answers      Answers   `gorm:"type:jsonb;not null" json:"answers"`
	PointsEarned int       `gorm:"not null" json:"points_earned"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`

	Survey *Survey `gorm:"foreignKey:SurveyID;constraint:OnDelete:CASCADE" json:"survey,omitempty"`
	User   *User   `gorm:"foreignKey:UserID" json:"-"`
}

// TableName определяет имя таблицы для GORM
func (SurveyResponse) TableName() string {
	return "survey_responses"
}
