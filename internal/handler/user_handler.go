package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
	"github.com/yourusername/survey-rewards-api/internal/handler/dto"
	"github.com/yourusername/survey-rewards-api/internal/handler/helper"
	"github.com/yourusername/survey-rewards-api/internal/service"
)

// UserHandler обрабатывает запросы, связанные с пользователями
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler создает новый обработчик пользователей
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GetProfile возвращает профиль текущего пользователя
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := helper.CurrentUserID(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	user, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// UpdateProfile частично обновляет имя и категорию пользователя
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := helper.CurrentUserID(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	var req dto.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, service.ProfileUpdate{
		Name:     req.Name,
		Category: req.Category,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewUserResponse(user))
}

// GetSurveyHistory возвращает пройденные опросы пользователя
func (h *UserHandler) GetSurveyHistory(c *gin.Context) {
	userID, ok := helper.CurrentUserID(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	history, err := h.userService.GetSurveyHistory(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// GetPointsSummary возвращает сумму баллов, число опросов и разбивку по категориям
func (h *UserHandler) GetPointsSummary(c *gin.Context) {
	userID, ok := helper.CurrentUserID(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}

	summary, err := h.userService.GetPointsSummary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GetPointsLedger возвращает страницу журнала начислений
func (h *UserHandler) GetPointsLedger(c *gin.Context) {
	userID, ok := helper.CurrentUserID(c)
	if !ok {
		respondFail(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}
	page, pageSize := helper.Pagination(c)

	ledger, err := h.userService.GetPointsLedger(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ledger)
}

// GetLeaderboard обрабатывает запрос на получение лидерборда
func (h *UserHandler) GetLeaderboard(c *gin.Context) {
	page, pageSize := helper.Pagination(c)

	leaderboard, err := h.userService.GetLeaderboard(c.Request.Context(), page, pageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, leaderboard)
}

// ListCategories возвращает допустимые категории
func (h *UserHandler) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": entity.Categories()})
}
