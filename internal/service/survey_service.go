package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
	"github.com/yourusername/survey-rewards-api/internal/domain/repository"
	"github.com/yourusername/survey-rewards-api/internal/handler/dto"
	apperrors "github.com/yourusername/survey-rewards-api/internal/pkg/errors"
)

const (
	defaultSurveyPoints = 10
	minChoiceOptions    = 2
	cacheTimeout        = 500 * time.Millisecond
)

func surveyCacheKey(surveyID uint) string {
	return fmt.Sprintf("survey:%d", surveyID)
}

func pointsSummaryCacheKey(userID uint) string {
	return fmt.Sprintf("user:%d:points_summary", userID)
}

// PointsNotifier доставляет пользователю событие о начислении баллов (реализуется websocket.Manager)
type PointsNotifier interface {
	NotifyPointsAwarded(userID, surveyID uint, pointsEarned int, totalPoints int64)
}

// SurveyService предоставляет методы для работы с опросами и ответами
type SurveyService struct {
	surveyRepo   repository.SurveyRepository
	responseRepo repository.ResponseRepository
	cacheRepo    repository.CacheRepository
	notifier     PointsNotifier
	emailService EmailService
	surveyTTL    time.Duration
}

// NewSurveyService создает сервис опросов. cacheRepo и notifier могут быть nil.
func NewSurveyService(
	surveyRepo repository.SurveyRepository,
	responseRepo repository.ResponseRepository,
	cacheRepo repository.CacheRepository,
	notifier PointsNotifier,
	emailService EmailService,
	surveyTTL time.Duration,
) *SurveyService {
	if emailService == nil {
		emailService = &NoopEmailService{}
	}
	return &SurveyService{
		surveyRepo:   surveyRepo,
		responseRepo: responseRepo,
		cacheRepo:    cacheRepo,
		notifier:     notifier,
		emailService: emailService,
		surveyTTL:    surveyTTL,
	}
}

// SubmitInput содержит данные ответа на опрос
type SubmitInput struct {
	SurveyID  uint
	UserID    uint
	UserEmail string
	Answers   entity.Answers
}

// CreateSurvey проверяет и сохраняет опрос вместе с вопросами
func (s *SurveyService) CreateSurvey(ctx context.Context, req *dto.CreateSurveyRequest) (*entity.Survey, error) {
	verr := &apperrors.ValidationError{}

	if !entity.IsValidCategory(req.Category) {
		verr.Add("category", "must be one of: "+strings.Join(entity.Categories(), ", "))
	}
	points := defaultSurveyPoints
	if req.Points != nil {
		points = *req.Points
	}
	if points <= 0 {
		verr.Add("points", "must be greater than 0")
	}
	if len(req.Questions) == 0 {
		verr.Add("questions", "at least one question is required")
	}

	questions := make([]entity.Question, 0, len(req.Questions))
	for i, q := range req.Questions {
		path := fmt.Sprintf("questions.%d", i)
		qType := entity.QuestionType(q.Type)
		if strings.TrimSpace(q.Text) == "" {
			verr.Add(path+".text", "is required")
		}
		if !qType.IsValid() {
			verr.Add(path+".type", "must be one of: text, single_choice, multiple_choice")
		}

		options := entity.StringArray{}
		if qType.IsChoice() {
			if len(q.Options) < minChoiceOptions {
				verr.Add(path+".options", fmt.Sprintf("choice questions need at least %d options", minChoiceOptions))
			}
			seen := make(map[string]bool, len(q.Options))
			for j, opt := range q.Options {
				opt = strings.TrimSpace(opt)
				if seen[opt] {
					verr.Add(fmt.Sprintf("%s.options.%d", path, j), "duplicate option")
				}
				seen[opt] = true
				options = append(options, opt)
			}
		}

		questions = append(questions, entity.Question{
			Text:    strings.TrimSpace(q.Text),
			Type:    qType,
			Options: options,
		})
	}

	if verr.HasErrors() {
		return nil, verr
	}

	survey := &entity.Survey{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Category:    req.Category,
		Points:      points,
		Questions:   questions,
	}
	if err := s.surveyRepo.Create(ctx, survey); err != nil {
		return nil, fmt.Errorf("failed to create survey: %w", err)
	}

	log.Printf("[SurveyService] Создан опрос ID=%d (%s), вопросов: %d", survey.ID, survey.Title, len(survey.Questions))
	return survey, nil
}

// GetSurveyByID возвращает опрос с вопросами. Опросы неизменяемы, поэтому результат кешируется.
func (s *SurveyService) GetSurveyByID(ctx context.Context, surveyID uint) (*entity.Survey, error) {
	cacheKey := surveyCacheKey(surveyID)

	if s.cacheRepo != nil {
		var cached entity.Survey
		cacheCtx, cancel := context.WithTimeout(ctx, cacheTimeout)
		err := s.cacheRepo.GetJSON(cacheCtx, cacheKey, &cached)
		cancel()
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[SurveyService] Ошибка чтения кеша %s: %v", cacheKey, err)
		}
	}

	survey, err := s.surveyRepo.GetByID(ctx, surveyID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrSurveyNotFound
		}
		return nil, err
	}

	if s.cacheRepo != nil {
		cacheCtx, cancel := context.WithTimeout(ctx, cacheTimeout)
		if err := s.cacheRepo.SetJSON(cacheCtx, cacheKey, survey, s.surveyTTL); err != nil {
			log.Printf("[SurveyService] Ошибка записи кеша %s: %v", cacheKey, err)
		}
		cancel()
	}
	return survey, nil
}

// ListAvailableSurveys возвращает опросы, которые пользователь еще не проходил
func (s *SurveyService) ListAvailableSurveys(ctx context.Context, userID uint, category string) ([]entity.Survey, error) {
	category = strings.TrimSpace(category)
	if category != "" && !entity.IsValidCategory(category) {
		return nil, apperrors.NewValidationError("category", "must be one of: "+strings.Join(entity.Categories(), ", "))
	}
	return s.surveyRepo.ListAvailable(ctx, userID, category)
}

// validateAnswers проверяет структуру ответов: непустой список, положительный question_id, заданный ответ, без повторов
func validateAnswers(answers entity.Answers) error {
	verr := &apperrors.ValidationError{}
	seen := make(map[uint]int, len(answers))

	if len(answers) == 0 {
		verr.Add("answers", "must contain at least one answer")
		return verr
	}

	for i, qa := range answers {
		path := fmt.Sprintf("answers.%d", i)
		if qa.QuestionID == 0 {
			verr.Add(path+".question_id", "must be a positive integer")
			continue
		}
		if qa.Answer.IsZero() {
			verr.Add(path+".answer", entity.ErrInvalidAnswer.Error())
		}
		if first, ok := seen[qa.QuestionID]; ok {
			verr.Add(path+".question_id", fmt.Sprintf("duplicate question_id, already answered at answers.%d", first))
			continue
		}
		seen[qa.QuestionID] = i
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

// SubmitResponse проверяет ответы, сохраняет их и начисляет баллы за опрос
func (s *SurveyService) SubmitResponse(ctx context.Context, input SubmitInput) (*dto.SubmitResponseResult, error) {
	if err := validateAnswers(input.Answers); err != nil {
		return nil, err
	}

	survey, err := s.GetSurveyByID(ctx, input.SurveyID)
	if err != nil {
		return nil, err
	}

	exists, err := s.responseRepo.Exists(ctx, input.UserID, input.SurveyID)
	if err != nil {
		return nil, fmt.Errorf("failed to check previous response: %w", err)
	}
	if exists {
		return nil, fmt.Errorf("%w: survey #%d", apperrors.ErrAlreadyCompleted, input.SurveyID)
	}

	// ответы на чужие вопросы не сохраняются
	answered := make(map[uint]bool, len(input.Answers))
	kept := make(entity.Answers, 0, len(input.Answers))
	for _, qa := range input.Answers {
		if _, ok := survey.QuestionByID(qa.QuestionID); !ok {
			continue
		}
		answered[qa.QuestionID] = true
		kept = append(kept, qa)
	}

	var missing []uint
	for _, id := range survey.QuestionIDs() {
		if !answered[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing question ids %v", apperrors.ErrIncompleteAnswers, missing)
	}

	response := &entity.SurveyResponse{
		UserID:       input.UserID,
		SurveyID:     survey.ID,
		Answers:      kept,
		PointsEarned: survey.Points,
	}
	totalPoints, err := s.responseRepo.Submit(ctx, response)
	if err != nil {
		return nil, err
	}

	s.afterSubmit(ctx, input, survey, response, totalPoints)

	return &dto.SubmitResponseResult{
		Message:      "Response saved successfully",
		ResponseID:   response.ID,
		PointsEarned: response.PointsEarned,
		TotalPoints:  totalPoints,
	}, nil
}

// afterSubmit выполняет побочные действия после фиксации транзакции; ошибки только логируются
func (s *SurveyService) afterSubmit(ctx context.Context, input SubmitInput, survey *entity.Survey, response *entity.SurveyResponse, totalPoints int64) {
	if s.cacheRepo != nil {
		cacheCtx, cancel := context.WithTimeout(ctx, cacheTimeout)
		if err := s.cacheRepo.Delete(cacheCtx, pointsSummaryCacheKey(input.UserID)); err != nil {
			log.Printf("[SurveyService] Ошибка инвалидации сводки баллов пользователя ID=%d: %v", input.UserID, err)
		}
		cancel()
	}

	if s.notifier != nil {
		s.notifier.NotifyPointsAwarded(input.UserID, survey.ID, response.PointsEarned, totalPoints)
	}

	if input.UserEmail != "" {
		receipt := PointsReceipt{
			SurveyTitle:  survey.Title,
			PointsEarned: response.PointsEarned,
			TotalPoints:  totalPoints,
		}
		email, key := input.UserEmail, fmt.Sprintf("survey-response-%d", response.ID)
		sendAsync("points receipt", func(ctx context.Context) error {
			return s.emailService.SendPointsReceipt(ctx, email, receipt, key)
		})
	}
}

// GetUserResponses возвращает ответы пользователя вместе с опросами и вопросами
func (s *SurveyService) GetUserResponses(ctx context.Context, userID uint) ([]entity.SurveyResponse, error) {
	return s.responseRepo.ListByUser(ctx, userID, true)
}

// GetExportData возвращает опрос и все ответы на него для выгрузки
func (s *SurveyService) GetExportData(ctx context.Context, surveyID uint) (*entity.Survey, []entity.SurveyResponse, error) {
	survey, err := s.GetSurveyByID(ctx, surveyID)
	if err != nil {
		return nil, nil, err
	}
	responses, err := s.responseRepo.ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load responses for survey #%d: %w", surveyID, err)
	}
	return survey, responses, nil
}
