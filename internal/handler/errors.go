package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
	apperrors "github.com/yourusername/survey-rewards-api/internal/pkg/errors"
	"github.com/yourusername/survey-rewards-api/internal/service"
)

func init() {
	registerValidators()
}

// registerValidators настраивает валидатор gin: имена полей из json-тегов и тег survey_category
func registerValidators() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		log.Println("[Handler] Валидатор gin не является go-playground/validator, пользовательские теги не зарегистрированы")
		return
	}

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return field.Name
		}
		return name
	})

	if err := v.RegisterValidation("survey_category", func(fl validator.FieldLevel) bool {
		return entity.IsValidCategory(fl.Field().String())
	}); err != nil {
		log.Printf("[Handler] Ошибка регистрации валидатора survey_category: %v", err)
	}
}

// errorBody - единый формат ответа с ошибкой
type errorBody struct {
	Status    string                 `json:"status"`
	ErrorType string                 `json:"error_type"`
	Message   string                 `json:"message"`
	Errors    []apperrors.FieldError `json:"errors,omitempty"`
}

func respondFail(c *gin.Context, status int, errorType, message string, fields ...apperrors.FieldError) {
	c.JSON(status, errorBody{
		Status:    "fail",
		ErrorType: errorType,
		Message:   message,
		Errors:    fields,
	})
}

// respondError переводит ошибку сервиса в HTTP-ответ
func respondError(c *gin.Context, err error) {
	var verr *apperrors.ValidationError
	switch {
	case errors.As(err, &verr):
		respondFail(c, http.StatusBadRequest, "validation_error", "Validation failed", verr.Fields...)
	case errors.Is(err, service.ErrSurveyNotFound):
		respondFail(c, http.StatusNotFound, "not_found", "Survey not found")
	case errors.Is(err, service.ErrUserNotFound):
		respondFail(c, http.StatusNotFound, "not_found", "User not found")
	case errors.Is(err, apperrors.ErrNotFound):
		respondFail(c, http.StatusNotFound, "not_found", "Resource not found")
	case errors.Is(err, apperrors.ErrAlreadyCompleted):
		respondFail(c, http.StatusBadRequest, "already_completed", "You have already completed this survey")
	case errors.Is(err, apperrors.ErrIncompleteAnswers):
		respondFail(c, http.StatusBadRequest, "incomplete_answers", "All questions must be answered")
	case errors.Is(err, apperrors.ErrEmailTaken):
		respondFail(c, http.StatusBadRequest, "email_taken", "Email already registered")
	case errors.Is(err, apperrors.ErrValidation):
		respondFail(c, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, apperrors.ErrConflict):
		respondFail(c, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		respondFail(c, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password")
	case errors.Is(err, service.ErrWrongPassword):
		respondFail(c, http.StatusUnauthorized, "wrong_password", "Current password is incorrect")
	case errors.Is(err, apperrors.ErrExpiredToken):
		respondFail(c, http.StatusUnauthorized, "token_expired", "Token has expired")
	case errors.Is(err, apperrors.ErrUnauthorized):
		respondFail(c, http.StatusUnauthorized, "unauthorized", "Invalid token")
	case errors.Is(err, apperrors.ErrForbidden):
		respondFail(c, http.StatusForbidden, "forbidden", "Forbidden")
	default:
		log.Printf("[Handler] Внутренняя ошибка %s %s: %v", c.Request.Method, c.FullPath(), err)
		message := "Internal server error"
		if gin.Mode() != gin.ReleaseMode {
			message = err.Error()
		}
		c.JSON(http.StatusInternalServerError, errorBody{
			Status:    "error",
			ErrorType: "internal_error",
			Message:   message,
		})
	}
}

// respondBindError переводит ошибку разбора тела запроса в ответ 400 с перечнем полей
func respondBindError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError

	switch {
	case errors.As(err, &validationErrs):
		fields := make([]apperrors.FieldError, 0, len(validationErrs))
		for _, fe := range validationErrs {
			fields = append(fields, apperrors.FieldError{Path: fieldPath(fe), Message: fieldMessage(fe)})
		}
		respondFail(c, http.StatusBadRequest, "validation_error", "Validation failed", fields...)
	case errors.Is(err, entity.ErrInvalidAnswer):
		respondFail(c, http.StatusBadRequest, "validation_error", "Validation failed",
			apperrors.FieldError{Path: "answers", Message: entity.ErrInvalidAnswer.Error()})
	case errors.As(err, &typeErr):
		respondFail(c, http.StatusBadRequest, "validation_error", "Validation failed",
			apperrors.FieldError{Path: typeErr.Field, Message: fmt.Sprintf("must be of type %s", typeErr.Type)})
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		respondFail(c, http.StatusBadRequest, "invalid_json", "Malformed JSON body")
	case errors.Is(err, io.EOF):
		respondFail(c, http.StatusBadRequest, "invalid_json", "Request body is required")
	default:
		respondFail(c, http.StatusBadRequest, "invalid_request", err.Error())
	}
}

// fieldPath превращает "CreateSurveyRequest.questions[0].text" в "questions.0.text"
func fieldPath(fe validator.FieldError) string {
	namespace := fe.Namespace()
	if idx := strings.Index(namespace, "."); idx >= 0 {
		namespace = namespace[idx+1:]
	}
	namespace = strings.ReplaceAll(namespace, "[", ".")
	return strings.ReplaceAll(namespace, "]", "")
}

func fieldMessage(fe validator.FieldError) string {
	kind := fe.Kind()
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		switch kind {
		case reflect.String:
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		switch kind {
		case reflect.String:
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		case reflect.Slice, reflect.Array, reflect.Map:
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "survey_category":
		return "must be one of: " + strings.Join(entity.Categories(), ", ")
	}
	return "is invalid"
}
