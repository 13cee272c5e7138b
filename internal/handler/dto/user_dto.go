package dto

import (
	"time"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
)

// RegisterRequest - тело запроса регистрации
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email,max=100"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Category string `json:"category" binding:"required,survey_category"`
}

// LoginRequest - тело запроса входа
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest - частичное обновление профиля, nil означает "не менять"
type UpdateProfileRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=2,max=100"`
	Category *string `json:"category" binding:"omitempty,survey_category"`
}

// ChangePasswordRequest - тело запроса смены пароля
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=6,max=72"`
}

// UserResponse - публичное представление пользователя
type UserResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Category  string    `json:"category"`
	Role      string    `json:"role"`
	Points    int64     `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUserResponse преобразует сущность пользователя в ответ API
func NewUserResponse(user *entity.User) *UserResponse {
	if user == nil {
		return nil
	}
	return &UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Category:  user.Category,
		Role:      user.Role,
		Points:    user.Points,
		CreatedAt: user.CreatedAt,
	}
}

// AuthResponse возвращается после регистрации и входа
type AuthResponse struct {
	Token string        `json:"token"`
	User  *UserResponse `json:"user"`
}

// LeaderboardUserDTO - строка лидерборда
type LeaderboardUserDTO struct {
	Rank     int    `json:"rank"`
	UserID   uint   `json:"user_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Points   int64  `json:"points"`
}

// PaginatedLeaderboardResponse - страница лидерборда
type PaginatedLeaderboardResponse struct {
	Users   []*LeaderboardUserDTO `json:"users"`
	Total   int64                 `json:"total"`
	Page    int                   `json:"page"`
	PerPage int                   `json:"per_page"`
}

// PointsSummaryResponse - сводка баллов пользователя
type PointsSummaryResponse struct {
	TotalPoints      int64                   `json:"totalPoints"`
	SurveyCount      int64                   `json:"surveyCount"`
	PointsByCategory []entity.CategoryPoints `json:"pointsByCategory"`
}

// PointsLedgerResponse - страница журнала начислений
type PointsLedgerResponse struct {
	Entries []entity.PointsTransaction `json:"entries"`
	Balance int64                      `json:"balance"`
	Total   int64                      `json:"total"`
	Page    int                        `json:"page"`
	PerPage int                        `json:"per_page"`
}
