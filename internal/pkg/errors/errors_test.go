package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	verr := NewValidationError("answers.0.question_id", "must be a positive integer")
	verr.Add("answers.1.question_id", "duplicate question_id")

	var err error = fmt.Errorf("submit: %w", verr)
	assert.True(t, errors.Is(err, ErrValidation), "ValidationError должна распознаваться как ErrValidation")

	var target *ValidationError
	assert.True(t, errors.As(err, &target))
	assert.Len(t, target.Fields, 2)
	assert.Equal(t, "validation failed: answers.0.question_id: must be a positive integer (and 1 more)", verr.Error())

	empty := &ValidationError{}
	assert.False(t, empty.HasErrors())
	assert.Equal(t, "validation failed", empty.Error())

	var nilErr *ValidationError
	assert.False(t, nilErr.HasErrors())
}
