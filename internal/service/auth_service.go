package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
	"github.com/yourusername/survey-rewards-api/internal/domain/repository"
	apperrors "github.com/yourusername/survey-rewards-api/internal/pkg/errors"
)

// TokenService выпускает и отзывает токены доступа (реализуется auth.JWTService)
type TokenService interface {
	GenerateToken(user *entity.User) (string, error)
	InvalidateTokensForUser(ctx context.Context, userID uint) error
}

// AuthService предоставляет методы для регистрации, входа и смены пароля
type AuthService struct {
	userRepo     repository.UserRepository
	tokenService TokenService
	emailService EmailService
	bcryptCost   int
}

// RegisterInput содержит данные для регистрации
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Category string
}

// NewAuthService создает новый сервис аутентификации и возвращает ошибку при проблемах
func NewAuthService(
	userRepo repository.UserRepository,
	tokenService TokenService,
	emailService EmailService,
	bcryptCost int,
) (*AuthService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for AuthService")
	}
	if tokenService == nil {
		return nil, fmt.Errorf("TokenService is required for AuthService")
	}
	if emailService == nil {
		emailService = &NoopEmailService{}
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}

	return &AuthService{
		userRepo:     userRepo,
		tokenService: tokenService,
		emailService: emailService,
		bcryptCost:   bcryptCost,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register создает пользователя и выпускает для него токен
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*entity.User, string, error) {
	input.Email = normalizeEmail(input.Email)
	input.Name = strings.TrimSpace(input.Name)

	if !entity.IsValidCategory(input.Category) {
		return nil, "", apperrors.NewValidationError("category", "must be one of: "+strings.Join(entity.Categories(), ", "))
	}

	// быстрая проверка, гонку закрывает уникальный индекс в Create
	_, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err == nil {
		return nil, "", fmt.Errorf("%w: %s", apperrors.ErrEmailTaken, input.Email)
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, "", fmt.Errorf("failed to check email existence: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		Name:     input.Name,
		Email:    input.Email,
		Password: string(hash),
		Category: input.Category,
		Role:     entity.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokenService.GenerateToken(user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	log.Printf("[AuthService] Зарегистрирован пользователь ID=%d", user.ID)
	email, name, key := user.Email, user.Name, fmt.Sprintf("welcome-user-%d", user.ID)
	sendAsync("welcome", func(ctx context.Context) error {
		return s.emailService.SendWelcome(ctx, email, name, key)
	})

	return user, token, nil
}

// Login проверяет учетные данные и выпускает токен
func (s *AuthService) Login(ctx context.Context, email, password string) (*entity.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to load user: %w", err)
	}

	if !user.CheckPassword(password) {
		log.Printf("[AuthService] Неверный пароль для пользователя ID=%d", user.ID)
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokenService.GenerateToken(user)
	if err != nil {
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}
	return user, token, nil
}

// GetUserByID возвращает пользователя по ID
func (s *AuthService) GetUserByID(ctx context.Context, userID uint) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// ChangePassword меняет пароль, отзывает все выданные ранее токены и возвращает новый токен
func (s *AuthService) ChangePassword(ctx context.Context, userID uint, currentPassword, newPassword string) (string, error) {
	user, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return "", err
	}

	if !user.CheckPassword(currentPassword) {
		return "", ErrWrongPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return "", fmt.Errorf("failed to update password: %w", err)
	}

	if err := s.tokenService.InvalidateTokensForUser(ctx, userID); err != nil {
		return "", fmt.Errorf("failed to invalidate tokens: %w", err)
	}

	token, err := s.tokenService.GenerateToken(user)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	log.Printf("[AuthService] Пароль изменен для пользователя ID=%d, старые токены отозваны", userID)
	return token, nil
}
