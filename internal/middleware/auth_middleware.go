package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
	apperrors "github.com/yourusername/survey-rewards-api/internal/pkg/errors"
	"github.com/yourusername/survey-rewards-api/pkg/auth"
)

// TokenParser проверяет JWT и возвращает его claims (реализуется auth.JWTService)
type TokenParser interface {
	ParseToken(tokenString string) (*auth.JWTCustomClaims, error)
}

// AuthMiddleware обеспечивает аутентификацию для защищенных маршрутов
type AuthMiddleware struct {
	tokens TokenParser
}

// NewAuthMiddleware создает новый middleware аутентификации
func NewAuthMiddleware(tokens TokenParser) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens}
}

// RequireAuth проверяет заголовок Authorization: Bearer {token}
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "token_missing", "Authorization header is required")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			abortWithError(c, http.StatusUnauthorized, "token_format", "Authorization header format must be Bearer {token}")
			return
		}

		claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, apperrors.ErrExpiredToken) {
				abortWithError(c, http.StatusUnauthorized, "token_expired", "Token has expired")
				return
			}
			abortWithError(c, http.StatusUnauthorized, "token_invalid", "Invalid token")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextCategory, claims.Category)

		c.Next()
	}
}

// AdminOnly пропускает только администраторов. Применяется после RequireAuth.
func (m *AuthMiddleware) AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(ContextUserID); !exists {
			abortWithError(c, http.StatusUnauthorized, "token_missing", "Unauthorized")
			return
		}

		if c.GetString(ContextRole) != entity.RoleAdmin {
			abortWithError(c, http.StatusForbidden, "forbidden", "Admin rights required")
			return
		}

		c.Next()
	}
}
