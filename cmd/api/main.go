package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"

	"github.com/yourusername/survey-rewards-api/internal/config"
	"github.com/yourusername/survey-rewards-api/internal/domain/repository"
	"github.com/yourusername/survey-rewards-api/internal/handler"
	"github.com/yourusername/survey-rewards-api/internal/middleware"
	pgRepo "github.com/yourusername/survey-rewards-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/survey-rewards-api/internal/repository/redis"
	"github.com/yourusername/survey-rewards-api/internal/service"
	ws "github.com/yourusername/survey-rewards-api/internal/websocket"
	"github.com/yourusername/survey-rewards-api/pkg/auth"
	"github.com/yourusername/survey-rewards-api/pkg/database"
)

func main() {
	// .env необязателен, переменные окружения имеют приоритет
	if err := godotenv.Load(); err != nil {
		log.Println("Файл .env не найден, используются переменные окружения")
	}

	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	isProduction := gin.Mode() == gin.ReleaseMode

	// Подключаемся к базе данных и применяем миграции
	db, err := database.Open(cfg.Database, !isProduction)
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Redis необязателен: без него кеш и rate limiting отключены
	var redisClient redis.UniversalClient
	var cacheRepo repository.CacheRepository
	if cfg.Redis.Enabled {
		client, err := database.NewUniversalRedisClient(cfg.Redis)
		if err != nil {
			log.Printf("Redis недоступен, кеш и rate limiting отключены: %v", err)
		} else {
			redisClient = client
			repo, err := redisRepo.NewCacheRepo(client)
			if err != nil {
				log.Printf("Failed to initialize CacheRepo: %v", err)
				os.Exit(1)
			}
			cacheRepo = repo
			log.Println("Successfully connected to Redis")
		}
	}

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	surveyRepo := pgRepo.NewSurveyRepo(db)
	responseRepo := pgRepo.NewResponseRepo(db)
	pointsRepo := pgRepo.NewPointsRepo(db)
	invalidTokenRepo := pgRepo.NewInvalidTokenRepo(db)

	// Контекст приложения для фоновых горутин
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jwtService, err := auth.NewJWTService(
		cfg.JWT.Secret,
		cfg.JWT.ExpirationHrs,
		invalidTokenRepo,
		cfg.JWT.CleanupInterval,
		ctx,
	)
	if err != nil {
		log.Printf("Failed to initialize JWTService: %v", err)
		os.Exit(1)
	}

	var emailService service.EmailService = &service.NoopEmailService{}
	if cfg.Email.Enabled {
		resendService, err := service.NewResendEmailService(cfg.Email.ResendAPIKey, cfg.Email.From, cfg.Email.MaxRetries)
		if err != nil {
			log.Printf("Failed to initialize email service: %v", err)
			os.Exit(1)
		}
		emailService = resendService
	}

	// WebSocket: хаб живет до отмены контекста приложения
	wsHub := ws.NewHub()
	go wsHub.Run(ctx)
	wsManager := ws.NewManager(wsHub)

	// Инициализируем сервисы
	authService, err := service.NewAuthService(userRepo, jwtService, emailService, cfg.Auth.BcryptCost)
	if err != nil {
		log.Printf("Failed to initialize AuthService: %v", err)
		os.Exit(1)
	}
	surveyService := service.NewSurveyService(surveyRepo, responseRepo, cacheRepo, wsManager, emailService, cfg.Cache.SurveyTTL)
	userService := service.NewUserService(userRepo, responseRepo, pointsRepo, cacheRepo, cfg.Cache.SummaryTTL)

	// Инициализируем обработчики
	handlers := handler.Handlers{
		Auth:   handler.NewAuthHandler(authService),
		Survey: handler.NewSurveyHandler(surveyService),
		User:   handler.NewUserHandler(userService),
		WS:     handler.NewWSHandler(wsHub, wsManager, jwtService, cfg.WebSocket, cfg.Server.AllowedOrigins),
		Health: handler.NewHealthHandler(db, wsHub),
	}

	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	var rateLimiter *middleware.RateLimiter
	if redisClient != nil {
		rateLimiter = middleware.NewRateLimiter(redisClient)
	}

	router := gin.New()
	router.Use(middleware.RequestID(), gin.Logger(), gin.Recovery())

	// В production не доверяем прокси-заголовкам (защита от IP spoofing)
	trustedProxies := []string{"127.0.0.1", "::1"}
	if isProduction {
		trustedProxies = nil
	}
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		log.Printf("Warning: failed to set trusted proxies: %v", err)
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	handler.RegisterRoutes(router, cfg.Server.ContextPath, handlers, authMiddleware, rateLimiter, cfg.RateLimit)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
			os.Exit(1)
		}
	}()

	// После SIGINT или SIGTERM отменяем контекст приложения и останавливаем сервер
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancel()

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Printf("Error closing Redis client: %v", err)
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}

	log.Println("Server exited properly")
}
