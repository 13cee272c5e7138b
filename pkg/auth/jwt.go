package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
	"github.com/yourusername/survey-rewards-api/internal/domain/repository"
	apperrors "github.com/yourusername/survey-rewards-api/internal/pkg/errors"
)

const tokenIssuer = "survey-rewards-api"

// JWTCustomClaims содержит пользовательские поля токена
type JWTCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Category string `json:"category"`
	jwt.RegisteredClaims
}

// JWTService выпускает и проверяет токены доступа (HS256)
type JWTService struct {
	secret        []byte
	expirationHrs int
	// момент отзыва токенов по пользователю (кеш таблицы invalid_tokens)
	invalidatedUsers map[uint]time.Time
	mu               sync.RWMutex
	invalidTokenRepo repository.InvalidTokenRepository
	cleanupInterval  time.Duration
	appCtx           context.Context
	now              func() time.Time
}

// NewJWTService создает сервис JWT, загружает отозванные токены и запускает фоновую очистку
func NewJWTService(
	secret string,
	expirationHrs int,
	invalidTokenRepo repository.InvalidTokenRepository,
	cleanupInterval time.Duration,
	appCtx context.Context,
) (*JWTService, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT secret is required for JWTService")
	}
	if invalidTokenRepo == nil {
		return nil, fmt.Errorf("InvalidTokenRepository is required for JWTService")
	}
	if appCtx == nil {
		return nil, fmt.Errorf("appCtx is required for JWTService")
	}
	if expirationHrs <= 0 {
		expirationHrs = 24
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Hour
	}

	service := &JWTService{
		secret:           []byte(secret),
		expirationHrs:    expirationHrs,
		invalidatedUsers: make(map[uint]time.Time),
		invalidTokenRepo: invalidTokenRepo,
		cleanupInterval:  cleanupInterval,
		appCtx:           appCtx,
		now:              time.Now,
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	service.loadInvalidatedTokensFromDB(startupCtx)

	go service.runCleanupRoutine()

	return service, nil
}

// loadInvalidatedTokensFromDB заполняет кеш отозванных токенов из БД
func (s *JWTService) loadInvalidatedTokensFromDB(ctx context.Context) {
	tokens, err := s.invalidTokenRepo.GetAllInvalidTokens(ctx)
	if err != nil {
		log.Printf("[JWT] Ошибка загрузки отозванных токенов из БД: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, token := range tokens {
		s.invalidatedUsers[token.UserID] = token.InvalidationTime
	}
	log.Printf("[JWT] Загружено %d записей об отозванных токенах", len(tokens))
}

// GenerateToken выпускает токен доступа для пользователя
func (s *JWTService) GenerateToken(user *entity.User) (string, error) {
	return s.generateToken(user, s.now())
}

func (s *JWTService) generateToken(user *entity.User, issuedAt time.Time) (string, error) {
	claims := &JWTCustomClaims{
		UserID:   user.ID,
		Email:    user.Email,
		Role:     user.Role,
		Category: user.Category,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Hour * time.Duration(s.expirationHrs))),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			Issuer:    tokenIssuer,
			Subject:   fmt.Sprintf("%d", user.ID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		log.Printf("[JWT] Ошибка генерации токена для пользователя ID=%d: %v", user.ID, err)
		return "", err
	}
	return tokenString, nil
}

// ParseToken проверяет подпись, срок действия и отзыв токена.
// Ошибки оборачивают apperrors.ErrExpiredToken или apperrors.ErrUnauthorized.
func (s *JWTService) ParseToken(tokenString string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, fmt.Errorf("%w: token has expired", apperrors.ErrExpiredToken)
		}
		log.Printf("[JWT] Ошибка при разборе токена: %v", err)
		return nil, fmt.Errorf("%w: invalid token", apperrors.ErrUnauthorized)
	}
	if !token.Valid || claims.UserID == 0 || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%w: invalid token", apperrors.ErrUnauthorized)
	}

	if s.isInvalidated(claims.UserID, claims.IssuedAt.Time) {
		log.Printf("[JWT] Токен пользователя ID=%d отозван (выдан %v)", claims.UserID, claims.IssuedAt.Time)
		return nil, fmt.Errorf("%w: token has been revoked", apperrors.ErrUnauthorized)
	}
	return claims, nil
}

func (s *JWTService) isInvalidated(userID uint, issuedAt time.Time) bool {
	s.mu.RLock()
	invalidationTime, exists := s.invalidatedUsers[userID]
	s.mu.RUnlock()
	if exists {
		return issuedAt.Before(invalidationTime)
	}
	return false
}

// InvalidateTokensForUser отзывает все токены пользователя, выпущенные раньше текущей секунды.
// iat в JWT хранится с точностью до секунды, поэтому момент отзыва округляется вниз.
func (s *JWTService) InvalidateTokensForUser(ctx context.Context, userID uint) error {
	invalidationTime := s.now().Truncate(time.Second)

	if err := s.invalidTokenRepo.AddInvalidToken(ctx, userID, invalidationTime); err != nil {
		log.Printf("[JWT] Ошибка при записи отзыва токенов пользователя ID=%d: %v", userID, err)
		return err
	}

	s.mu.Lock()
	s.invalidatedUsers[userID] = invalidationTime
	s.mu.Unlock()

	log.Printf("[JWT] Токены пользователя ID=%d отозваны на момент %v", userID, invalidationTime)
	return nil
}

// CleanupInvalidatedUsers удаляет записи об отзыве, которые старше срока жизни любого токена
func (s *JWTService) CleanupInvalidatedUsers(ctx context.Context) error {
	cutoffTime := s.now().Add(-time.Hour * time.Duration(s.expirationHrs))

	if err := s.invalidTokenRepo.CleanupOldInvalidTokens(ctx, cutoffTime); err != nil {
		log.Printf("[JWT] Ошибка очистки отозванных токенов в БД: %v", err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for userID, invalidationTime := range s.invalidatedUsers {
		if invalidationTime.Before(cutoffTime) {
			delete(s.invalidatedUsers, userID)
		}
	}
	return nil
}

// runCleanupRoutine периодически чистит отозванные токены до отмены appCtx
func (s *JWTService) runCleanupRoutine() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cleanupCtx, cancel := context.WithTimeout(s.appCtx, s.cleanupInterval/2)
			if err := s.CleanupInvalidatedUsers(cleanupCtx); err != nil {
				log.Printf("[JWT] Ошибка периодической очистки: %v", err)
			}
			cancel()
		case <-s.appCtx.Done():
			log.Printf("[JWT] Фоновая очистка остановлена")
			return
		}
	}
}
