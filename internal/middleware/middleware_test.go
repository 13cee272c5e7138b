package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
	apperrors "github.com/yourusername/survey-rewards-api/internal/pkg/errors"
	"github.com/yourusername/survey-rewards-api/pkg/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubTokenParser struct {
	claims *auth.JWTCustomClaims
	err    error
	got    string
}

func (p *stubTokenParser) ParseToken(tokenString string) (*auth.JWTCustomClaims, error) {
	p.got = tokenString
	return p.claims, p.err
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		parser     *stubTokenParser
		wantStatus int
		wantType   string
	}{
		{
			name:       "без заголовка",
			parser:     &stubTokenParser{},
			wantStatus: http.StatusUnauthorized,
			wantType:   "token_missing",
		},
		{
			name:       "неверный формат",
			header:     "Token abc",
			parser:     &stubTokenParser{},
			wantStatus: http.StatusUnauthorized,
			wantType:   "token_format",
		},
		{
			name:       "истекший токен",
			header:     "Bearer expired",
			parser:     &stubTokenParser{err: fmt.Errorf("%w: exp", apperrors.ErrExpiredToken)},
			wantStatus: http.StatusUnauthorized,
			wantType:   "token_expired",
		},
		{
			name:       "невалидный токен",
			header:     "Bearer broken",
			parser:     &stubTokenParser{err: apperrors.ErrUnauthorized},
			wantStatus: http.StatusUnauthorized,
			wantType:   "token_invalid",
		},
		{
			name:   "валидный токен",
			header: "Bearer good",
			parser: &stubTokenParser{claims: &auth.JWTCustomClaims{
				UserID: 7, Email: "anna@example.com", Role: entity.RoleUser, Category: entity.CategorySports,
			}},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAuthMiddleware(tt.parser)
			router := gin.New()
			router.GET("/me", m.RequireAuth(), func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{
					"user_id":  c.MustGet(ContextUserID).(uint),
					"category": c.GetString(ContextCategory),
				})
			})

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decodeBody(t, w)
			if tt.wantType != "" {
				assert.Equal(t, "fail", body["status"])
				assert.Equal(t, tt.wantType, body["error_type"])
				return
			}
			assert.Equal(t, "good", tt.parser.got)
			assert.Equal(t, float64(7), body["user_id"])
			assert.Equal(t, entity.CategorySports, body["category"])
		})
	}
}

func TestAdminOnly(t *testing.T) {
	tests := []struct {
		name       string
		role       string
		wantStatus int
	}{
		{"администратор", entity.RoleAdmin, http.StatusOK},
		{"обычный пользователь", entity.RoleUser, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := &stubTokenParser{claims: &auth.JWTCustomClaims{UserID: 1, Role: tt.role}}
			m := NewAuthMiddleware(parser)
			router := gin.New()
			router.POST("/surveys", m.RequireAuth(), m.AdminOnly(), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/surveys", nil)
			req.Header.Set("Authorization", "Bearer token")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestAdminOnly_WithoutAuth(t *testing.T) {
	m := NewAuthMiddleware(&stubTokenParser{})
	router := gin.New()
	router.GET("/admin", m.AdminOnly(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExtractUintParam(t *testing.T) {
	router := gin.New()
	router.GET("/surveys/:id", ExtractUintParam("id", "surveyID"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.MustGet("surveyID").(uint)})
	})

	tests := []struct {
		path       string
		wantStatus int
	}{
		{"/surveys/42", http.StatusOK},
		{"/surveys/abc", http.StatusBadRequest},
		{"/surveys/0", http.StatusBadRequest},
		{"/surveys/-1", http.StatusBadRequest},
		{"/surveys/99999999999", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString("request_id"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36, "Генерируется UUID")
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "client-trace-1")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "client-trace-1", w.Header().Get(RequestIDHeader), "Идентификатор клиента сохраняется")
}

// memoryCounter - счетчик в памяти с интерфейсом команд Redis
type memoryCounter struct {
	mu      sync.Mutex
	counts  map[string]int64
	ttls    map[string]time.Duration
	failErr error
}

func newMemoryCounter() *memoryCounter {
	return &memoryCounter{counts: map[string]int64{}, ttls: map[string]time.Duration{}}
}

func (m *memoryCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return redis.NewIntResult(0, m.failErr)
	}
	m.counts[key]++
	return redis.NewIntResult(m.counts[key], nil)
}

func (m *memoryCounter) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ttls[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *memoryCounter) TTL(ctx context.Context, key string) *redis.DurationCmd {
	m.mu.Lock()
	defer m.mu.Unlock()
	return redis.NewDurationResult(m.ttls[key], nil)
}

func newLimitedRouter(counter rateCounter, limit int) *gin.Engine {
	rl := NewRateLimiter(counter)
	router := gin.New()
	router.POST("/auth/login", rl.Limit(AuthRateLimitConfig(limit, time.Minute)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return router
}

func TestRateLimiter_Limit(t *testing.T) {
	counter := newMemoryCounter()
	router := newLimitedRouter(counter, 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", w.Header().Get("Retry-After"))
			assert.Equal(t, "rate_limited", decodeBody(t, w)["error_type"])
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Len(t, counter.ttls, 1, "TTL выставляется один раз на окно")
}

func TestRateLimiter_FailOpen(t *testing.T) {
	counter := newMemoryCounter()
	counter.failErr = errors.New("connection refused")
	router := newLimitedRouter(counter, 1)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
		assert.Equal(t, http.StatusOK, w.Code, "Ошибка Redis не блокирует запрос")
	}
}

func TestRateLimiter_WithoutRedis(t *testing.T) {
	router := newLimitedRouter(nil, 1)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}
