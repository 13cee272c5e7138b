package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerValue_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind AnswerKind
		wantVals []string
		wantErr  bool
	}{
		{"строка", `"A"`, AnswerKindSingle, []string{"A"}, false},
		{"пустая строка", `""`, AnswerKindSingle, []string{""}, false},
		{"массив строк", `["X","Y"]`, AnswerKindMultiple, []string{"X", "Y"}, false},
		{"пустой массив", `[]`, AnswerKindMultiple, []string{}, false},
		{"число", `42`, AnswerKindNone, nil, true},
		{"null", `null`, AnswerKindNone, nil, true},
		{"объект", `{"a":"b"}`, AnswerKindNone, nil, true},
		{"массив с числом", `["X", 1]`, AnswerKindNone, nil, true},
		{"массив с null", `["a", null]`, AnswerKindNone, nil, true},
		{"только null в массиве", `[null]`, AnswerKindNone, nil, true},
		{"вложенный массив", `["a", ["b"]]`, AnswerKindNone, nil, true},
		{"объект в массиве", `[{"v":"a"}]`, AnswerKindNone, nil, true},
		{"bool в массиве", `[false]`, AnswerKindNone, nil, true},
		{"экранированные строки", `["a\"b", " c "]`, AnswerKindMultiple, []string{"a\"b", " c "}, false},
		{"bool", `true`, AnswerKindNone, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var qa QuestionAnswer
			err := json.Unmarshal([]byte(`{"question_id":1,"answer":`+tt.input+`}`), &qa)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidAnswer)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint(1), qa.QuestionID)
			assert.Equal(t, tt.wantKind, qa.Answer.Kind())
			assert.Equal(t, tt.wantVals, qa.Answer.Values())
		})
	}
}

func TestAnswerValue_MissingAnswerIsZero(t *testing.T) {
	var qa QuestionAnswer
	require.NoError(t, json.Unmarshal([]byte(`{"question_id":3}`), &qa))
	assert.True(t, qa.Answer.IsZero(), "Отсутствующий ответ должен давать нулевое значение")
}

func TestAnswerValue_MarshalJSON(t *testing.T) {
	answers := Answers{
		{QuestionID: 1, Answer: SingleAnswer("A")},
		{QuestionID: 2, Answer: MultipleAnswer("X", "Y")},
		{QuestionID: 3, Answer: MultipleAnswer()},
	}

	data, err := json.Marshal(answers)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"question_id":1,"answer":"A"},
		{"question_id":2,"answer":["X","Y"]},
		{"question_id":3,"answer":[]}
	]`, string(data))
}

func TestAnswerValue_Accessors(t *testing.T) {
	single := SingleAnswer("A")
	s, ok := single.Single()
	assert.True(t, ok)
	assert.Equal(t, "A", s)
	_, ok = single.Multiple()
	assert.False(t, ok)

	multiple := MultipleAnswer("X", "Y")
	list, ok := multiple.Multiple()
	require.True(t, ok)
	list[0] = "changed"
	again, _ := multiple.Multiple()
	assert.Equal(t, []string{"X", "Y"}, again, "Multiple должен возвращать копию")
}

func TestAnswers_ScanValue(t *testing.T) {
	original := Answers{
		{QuestionID: 1, Answer: SingleAnswer("A")},
		{QuestionID: 2, Answer: MultipleAnswer("X", "Y")},
	}

	raw, err := original.Value()
	require.NoError(t, err)

	var fromBytes Answers
	require.NoError(t, fromBytes.Scan(raw))
	assert.Equal(t, original, fromBytes)

	var fromString Answers
	require.NoError(t, fromString.Scan(string(raw.([]byte))))
	assert.Equal(t, original, fromString)

	byQuestion := fromBytes.ByQuestion()
	assert.Equal(t, SingleAnswer("A"), byQuestion[1])
	assert.Equal(t, MultipleAnswer("X", "Y"), byQuestion[2])

	var empty Answers
	require.NoError(t, empty.Scan(nil))
	assert.Empty(t, empty)
}
