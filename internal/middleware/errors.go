package middleware

import (
	"github.com/gin-gonic/gin"
)

// Ключи контекста Gin, которые выставляет RequireAuth
const (
	ContextUserID   = "user_id"
	ContextEmail    = "email"
	ContextRole     = "role"
	ContextCategory = "category"
)

// abortWithError прерывает цепочку и отвечает в общем формате ошибок API
func abortWithError(c *gin.Context, status int, errorType, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"status":     "fail",
		"error_type": errorType,
		"message":    message,
	})
}
