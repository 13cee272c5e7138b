package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/survey-rewards-api/internal/config"
	"github.com/yourusername/survey-rewards-api/internal/middleware"
)

// Handlers - набор обработчиков, из которых собираются маршруты API
type Handlers struct {
	Auth   *AuthHandler
	Survey *SurveyHandler
	User   *UserHandler
	WS     *WSHandler
	Health *HealthHandler
}

// RegisterRoutes настраивает маршруты API под contextPath.
// limiter может быть nil, тогда ограничение частоты запросов не применяется.
func RegisterRoutes(
	router *gin.Engine,
	contextPath string,
	h Handlers,
	authMiddleware *middleware.AuthMiddleware,
	limiter *middleware.RateLimiter,
	rateCfg config.RateLimitConfig,
) {
	window := rateCfg.Window
	if window <= 0 {
		window = time.Minute
	}
	if !rateCfg.Enabled {
		limiter = nil
	}
	authLimit := limiter.Limit(middleware.AuthRateLimitConfig(rateCfg.AuthLimit, window))
	submitLimit := limiter.Limit(middleware.SubmitRateLimitConfig(rateCfg.SubmitLimit, window))

	api := router.Group(contextPath)
	{
		api.GET("/health", h.Health.Health)

		// Аутентификация
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", authLimit, h.Auth.Register)
			authGroup.POST("/login", authLimit, h.Auth.Login)
			authGroup.GET("/me", authMiddleware.RequireAuth(), h.Auth.Me)
		}

		// Публичные справочники
		api.GET("/categories", h.User.ListCategories)
		api.GET("/leaderboard", h.User.GetLeaderboard)

		// Опросы
		surveys := api.Group("/surveys")
		surveys.Use(authMiddleware.RequireAuth())
		{
			surveys.GET("", h.Survey.ListAvailable)
			// регистрируется до /:id
			surveys.GET("/responses", h.Survey.MyResponses)
			surveys.POST("", authMiddleware.AdminOnly(), h.Survey.CreateSurvey)

			surveyWithID := surveys.Group("/:id")
			surveyWithID.Use(middleware.ExtractUintParam("id", "surveyID"))
			{
				surveyWithID.GET("", h.Survey.GetSurvey)
				surveyWithID.POST("/respond", submitLimit, h.Survey.SubmitResponse)
				surveyWithID.GET("/responses/export", authMiddleware.AdminOnly(), h.Survey.ExportResponses)
			}
		}

		// Пользователи
		users := api.Group("/users")
		users.Use(authMiddleware.RequireAuth())
		{
			users.GET("/profile", h.User.GetProfile)
			users.PATCH("/profile", h.User.UpdateProfile)
			users.POST("/change-password", authLimit, h.Auth.ChangePassword)
			users.GET("/surveys/history", h.User.GetSurveyHistory)
			users.GET("/points/summary", h.User.GetPointsSummary)
			users.GET("/points/ledger", h.User.GetPointsLedger)
		}

		// WebSocket: токен передается в query
		api.GET("/ws", h.WS.HandleConnection)
	}
}
