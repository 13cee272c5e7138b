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

// UserService предоставляет методы для работы с профилем, историей и баллами пользователя
type UserService struct {
	userRepo     repository.UserRepository
	responseRepo repository.ResponseRepository
	pointsRepo   repository.PointsRepository
	cacheRepo    repository.CacheRepository
	summaryTTL   time.Duration
}

// NewUserService создает новый сервис пользователей. cacheRepo может быть nil.
func NewUserService(
	userRepo repository.UserRepository,
	responseRepo repository.ResponseRepository,
	pointsRepo repository.PointsRepository,
	cacheRepo repository.CacheRepository,
	summaryTTL time.Duration,
) *UserService {
	return &UserService{
		userRepo:     userRepo,
		responseRepo: responseRepo,
		pointsRepo:   pointsRepo,
		cacheRepo:    cacheRepo,
		summaryTTL:   summaryTTL,
	}
}

// ProfileUpdate - изменяемые поля профиля, nil означает "не менять"
type ProfileUpdate struct {
	Name     *string
	Category *string
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	} else if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// GetProfile возвращает профиль пользователя
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile обновляет имя и/или категорию интересов
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, update ProfileUpdate) (*entity.User, error) {
	updates := make(map[string]interface{})
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if len(name) < 2 {
			return nil, apperrors.NewValidationError("name", "must be at least 2 characters")
		}
		updates["name"] = name
	}
	if update.Category != nil {
		if !entity.IsValidCategory(*update.Category) {
			return nil, apperrors.NewValidationError("category", "must be one of: "+strings.Join(entity.Categories(), ", "))
		}
		updates["category"] = *update.Category
	}

	if len(updates) > 0 {
		if err := s.userRepo.UpdateProfile(ctx, userID, updates); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}
	return s.GetProfile(ctx, userID)
}

// GetSurveyHistory возвращает пройденные опросы пользователя, новые первыми
func (s *UserService) GetSurveyHistory(ctx context.Context, userID uint) ([]*dto.SurveyHistoryItem, error) {
	responses, err := s.responseRepo.ListByUser(ctx, userID, false)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.SurveyHistoryItem, len(responses))
	for i := range responses {
		items[i] = dto.NewSurveyHistoryItem(&responses[i])
	}
	return items, nil
}

// GetPointsSummary возвращает баланс, число пройденных опросов и баллы по категориям
func (s *UserService) GetPointsSummary(ctx context.Context, userID uint) (*dto.PointsSummaryResponse, error) {
	cacheKey := pointsSummaryCacheKey(userID)

	if s.cacheRepo != nil {
		var cached dto.PointsSummaryResponse
		cacheCtx, cancel := context.WithTimeout(ctx, cacheTimeout)
		err := s.cacheRepo.GetJSON(cacheCtx, cacheKey, &cached)
		cancel()
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[UserService] Ошибка чтения кеша %s: %v", cacheKey, err)
		}
	}

	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	count, err := s.responseRepo.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count responses: %w", err)
	}
	byCategory, err := s.responseRepo.PointsByCategory(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate points by category: %w", err)
	}

	summary := &dto.PointsSummaryResponse{
		TotalPoints:      user.Points,
		SurveyCount:      count,
		PointsByCategory: byCategory,
	}

	if s.cacheRepo != nil {
		cacheCtx, cancel := context.WithTimeout(ctx, cacheTimeout)
		if err := s.cacheRepo.SetJSON(cacheCtx, cacheKey, summary, s.summaryTTL); err != nil {
			log.Printf("[UserService] Ошибка записи кеша %s: %v", cacheKey, err)
		}
		cancel()
	}
	return summary, nil
}

// GetPointsLedger возвращает страницу журнала начислений пользователя
func (s *UserService) GetPointsLedger(ctx context.Context, userID uint, page, pageSize int) (*dto.PointsLedgerResponse, error) {
	page, pageSize = normalizePage(page, pageSize)

	entries, total, err := s.pointsRepo.ListByUser(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	balance, err := s.pointsRepo.SumByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum points ledger: %w", err)
	}
	return &dto.PointsLedgerResponse{
		Entries: entries,
		Balance: balance,
		Total:   total,
		Page:    page,
		PerPage: pageSize,
	}, nil
}

// GetLeaderboard возвращает пагинированный список пользователей по убыванию баллов
func (s *UserService) GetLeaderboard(ctx context.Context, page, pageSize int) (*dto.PaginatedLeaderboardResponse, error) {
	page, pageSize = normalizePage(page, pageSize)
	offset := (page - 1) * pageSize

	users, total, err := s.userRepo.GetLeaderboard(ctx, pageSize, offset)
	if err != nil {
		log.Printf("[UserService] Ошибка при получении лидерборда из репозитория: %v", err)
		return nil, err
	}

	userDTOs := make([]*dto.LeaderboardUserDTO, len(users))
	for i, user := range users {
		userDTOs[i] = &dto.LeaderboardUserDTO{
			Rank:     offset + i + 1,
			UserID:   user.ID,
			Name:     user.Name,
			Category: user.Category,
			Points:   user.Points,
		}
	}

	return &dto.PaginatedLeaderboardResponse{
		Users:   userDTOs,
		Total:   total,
		Page:    page,
		PerPage: pageSize,
	}, nil
}
