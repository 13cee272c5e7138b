package helper

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/survey-rewards-api/internal/middleware"
)

// Значения пагинации по умолчанию
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// CurrentUserID возвращает ID пользователя, выставленный RequireAuth
func CurrentUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get(middleware.ContextUserID)
	if !exists {
		return 0, false
	}
	userID, ok := value.(uint)
	return userID, ok && userID > 0
}

// CurrentUserEmail возвращает email из токена
func CurrentUserEmail(c *gin.Context) string {
	return c.GetString(middleware.ContextEmail)
}

// Pagination читает page и page_size из query. Некорректные значения заменяются значениями по умолчанию.
func Pagination(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	if err != nil || page < 1 {
		page = DefaultPage
	}

	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(DefaultPageSize)))
	if err != nil || pageSize < 1 {
		pageSize = DefaultPageSize
	} else if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}
