package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yourusername/survey-rewards-api/internal/websocket"
)

// HealthHandler отвечает на проверки живости сервиса
type HealthHandler struct {
	db  *gorm.DB
	hub *websocket.Hub
}

// NewHealthHandler создает обработчик проверки здоровья
func NewHealthHandler(db *gorm.DB, hub *websocket.Hub) *HealthHandler {
	return &HealthHandler{db: db, hub: hub}
}

// Health проверяет соединение с базой данных и возвращает метрики WebSocket
func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	}
	if h.hub != nil {
		body["websocket"] = h.hub.GetMetrics()
	}

	sqlDB, err := h.db.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		log.Printf("[HealthHandler] База данных недоступна: %v", err)
		body["status"] = "degraded"
		body["database"] = "unavailable"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	body["database"] = "ok"
	c.JSON(http.StatusOK, body)
}
