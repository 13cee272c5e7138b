package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
)

// ============================================================================
// Моки репозиториев и зависимостей сервисов
// ============================================================================

// MockUserRepository реализует repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *entity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*entity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, userID uint, updates map[string]interface{}) error {
	args := m.Called(ctx, userID, updates)
	return args.Error(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, userID uint, passwordHash string) error {
	args := m.Called(ctx, userID, passwordHash)
	return args.Error(0)
}

func (m *MockUserRepository) GetLeaderboard(ctx context.Context, limit, offset int) ([]entity.User, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.User), args.Get(1).(int64), args.Error(2)
}

// MockSurveyRepository реализует repository.SurveyRepository
type MockSurveyRepository struct {
	mock.Mock
}

func (m *MockSurveyRepository) Create(ctx context.Context, survey *entity.Survey) error {
	args := m.Called(ctx, survey)
	return args.Error(0)
}

func (m *MockSurveyRepository) GetByID(ctx context.Context, id uint) (*entity.Survey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Survey), args.Error(1)
}

func (m *MockSurveyRepository) ListAvailable(ctx context.Context, userID uint, category string) ([]entity.Survey, error) {
	args := m.Called(ctx, userID, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Survey), args.Error(1)
}

// MockResponseRepository реализует repository.ResponseRepository
type MockResponseRepository struct {
	mock.Mock
}

func (m *MockResponseRepository) Exists(ctx context.Context, userID, surveyID uint) (bool, error) {
	args := m.Called(ctx, userID, surveyID)
	return args.Bool(0), args.Error(1)
}

func (m *MockResponseRepository) Submit(ctx context.Context, response *entity.SurveyResponse) (int64, error) {
	args := m.Called(ctx, response)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockResponseRepository) ListByUser(ctx context.Context, userID uint, withQuestions bool) ([]entity.SurveyResponse, error) {
	args := m.Called(ctx, userID, withQuestions)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.SurveyResponse), args.Error(1)
}

func (m *MockResponseRepository) ListBySurvey(ctx context.Context, surveyID uint) ([]entity.SurveyResponse, error) {
	args := m.Called(ctx, surveyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.SurveyResponse), args.Error(1)
}

func (m *MockResponseRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockResponseRepository) PointsByCategory(ctx context.Context, userID uint) ([]entity.CategoryPoints, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.CategoryPoints), args.Error(1)
}

// MockPointsRepository реализует repository.PointsRepository
type MockPointsRepository struct {
	mock.Mock
}

func (m *MockPointsRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]entity.PointsTransaction, int64, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.PointsTransaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockPointsRepository) SumByUser(ctx context.Context, userID uint) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// MockCacheRepository реализует repository.CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

// MockTokenService реализует TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) GenerateToken(user *entity.User) (string, error) {
	args := m.Called(user)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) InvalidateTokensForUser(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// recordingNotifier запоминает отправленные уведомления о баллах
type recordingNotifier struct {
	mu     sync.Mutex
	events []notifiedPoints
}

type notifiedPoints struct {
	UserID, SurveyID uint
	PointsEarned     int
	TotalPoints      int64
}

func (n *recordingNotifier) NotifyPointsAwarded(userID, surveyID uint, pointsEarned int, totalPoints int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notifiedPoints{userID, surveyID, pointsEarned, totalPoints})
}

// recordingEmailService запоминает отправленные письма
type recordingEmailService struct {
	receipts chan string
}

func newRecordingEmailService() *recordingEmailService {
	return &recordingEmailService{receipts: make(chan string, 10)}
}

func (e *recordingEmailService) SendWelcome(ctx context.Context, toEmail, name, idempotencyKey string) error {
	return nil
}

func (e *recordingEmailService) SendPointsReceipt(ctx context.Context, toEmail string, receipt PointsReceipt, idempotencyKey string) error {
	e.receipts <- idempotencyKey
	return nil
}
