package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/survey-rewards-api/internal/config"
	"github.com/yourusername/survey-rewards-api/internal/domain/entity"
	"github.com/yourusername/survey-rewards-api/internal/middleware"
	pgRepo "github.com/yourusername/survey-rewards-api/internal/repository/postgres"
	"github.com/yourusername/survey-rewards-api/internal/service"
	ws "github.com/yourusername/survey-rewards-api/internal/websocket"
	"github.com/yourusername/survey-rewards-api/pkg/auth"
	"github.com/yourusername/survey-rewards-api/pkg/database"
)

const testContextPath = "/api/v1"

type testApp struct {
	router *gin.Engine
	db     *gorm.DB
}

// newTestApp собирает приложение целиком на SQLite в памяти, без Redis
func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := database.NewSQLiteDB(":memory:", logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	userRepo := pgRepo.NewUserRepo(db)
	surveyRepo := pgRepo.NewSurveyRepo(db)
	responseRepo := pgRepo.NewResponseRepo(db)
	pointsRepo := pgRepo.NewPointsRepo(db)

	jwtService, err := auth.NewJWTService("integration-secret", 24, pgRepo.NewInvalidTokenRepo(db), time.Hour, ctx)
	require.NoError(t, err)

	hub := ws.NewHub()
	go hub.Run(ctx)
	manager := ws.NewManager(hub)

	authService, err := service.NewAuthService(userRepo, jwtService, nil, 4)
	require.NoError(t, err)
	surveyService := service.NewSurveyService(surveyRepo, responseRepo, nil, manager, nil, time.Minute)
	userService := service.NewUserService(userRepo, responseRepo, pointsRepo, nil, time.Minute)

	router := gin.New()
	RegisterRoutes(router, testContextPath, Handlers{
		Auth:   NewAuthHandler(authService),
		Survey: NewSurveyHandler(surveyService),
		User:   NewUserHandler(userService),
		WS:     NewWSHandler(hub, manager, jwtService, config.WebSocketConfig{}, nil),
		Health: NewHealthHandler(db, hub),
	}, middleware.NewAuthMiddleware(jwtService), nil, config.RateLimitConfig{})

	return &testApp{router: router, db: db}
}

func (a *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, testContextPath+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), "тело ответа: %s", w.Body.String())
	return v
}

type authBody struct {
	Token string `json:"token"`
	User  struct {
		ID       uint   `json:"id"`
		Email    string `json:"email"`
		Role     string `json:"role"`
		Points   int64  `json:"points"`
		Category string `json:"category"`
	} `json:"user"`
}

func (a *testApp) register(t *testing.T, name, email string) authBody {
	t.Helper()
	w := a.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "secret1", "category": entity.CategoryTechnology,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[authBody](t, w)
}

// adminToken регистрирует пользователя, выдает ему роль admin и входит заново
func (a *testApp) adminToken(t *testing.T) string {
	t.Helper()
	a.register(t, "Admin", "admin@example.com")
	require.NoError(t, a.db.Model(&entity.User{}).Where("email = ?", "admin@example.com").
		Update("role", entity.RoleAdmin).Error)

	w := a.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[authBody](t, w)
	require.Equal(t, entity.RoleAdmin, body.User.Role)
	return body.Token
}

func (a *testApp) createSurvey(t *testing.T, adminToken, title, category string, points int) entity.Survey {
	t.Helper()
	w := a.do(t, http.MethodPost, "/surveys", adminToken, map[string]interface{}{
		"title":       title,
		"description": "Короткий опрос для проверки начисления баллов",
		"category":    category,
		"points":      points,
		"questions": []map[string]interface{}{
			{"text": "Любимый цвет?", "type": "single_choice", "options": []string{"Красный", "Синий"}},
			{"text": "Что добавить?", "type": "text"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	survey := decode[entity.Survey](t, w)
	require.Len(t, survey.Questions, 2)
	return survey
}

// answerAll отвечает на оба вопроса опроса из createSurvey
func answerAll(survey entity.Survey) map[string]interface{} {
	return map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": survey.Questions[0].ID, "answer": "Синий"},
			{"question_id": survey.Questions[1].ID, "answer": "Больше вопросов"},
		},
	}
}

func TestIntegration_SubmitFlow(t *testing.T) {
	app := newTestApp(t)
	admin := app.adminToken(t)
	tech := app.createSurvey(t, admin, "Технологии", entity.CategoryTechnology, 100)
	sports := app.createSurvey(t, admin, "Спорт", entity.CategorySports, 150)

	user := app.register(t, "Anna", "anna@example.com")
	assert.Equal(t, int64(0), user.User.Points, "новый пользователь начинает с нуля")

	// доступны оба опроса, новые первыми
	w := app.do(t, http.MethodGet, "/surveys", user.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	available := decode[[]entity.Survey](t, w)
	require.Len(t, available, 2)
	assert.Equal(t, sports.ID, available[0].ID)

	// фильтр по категории
	w = app.do(t, http.MethodGet, "/surveys?category=Sports", user.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]entity.Survey](t, w), 1)

	// прохождение опроса
	w = app.do(t, http.MethodPost, fmt.Sprintf("/surveys/%d/respond", tech.ID), user.Token, answerAll(tech))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	result := decode[map[string]interface{}](t, w)
	assert.Equal(t, "Response saved successfully", result["message"])
	assert.EqualValues(t, 100, result["points_earned"])
	assert.EqualValues(t, 100, result["total_points"])

	// повторное прохождение отклоняется, баллы не меняются
	w = app.do(t, http.MethodPost, fmt.Sprintf("/surveys/%d/respond", tech.ID), user.Token, answerAll(tech))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "already_completed", decode[map[string]interface{}](t, w)["error_type"])

	// ответ только на один из двух вопросов
	w = app.do(t, http.MethodPost, fmt.Sprintf("/surveys/%d/respond", sports.ID), user.Token, map[string]interface{}{
		"answers": []map[string]interface{}{{"question_id": sports.Questions[1].ID, "answer": "Больше видео"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "incomplete_answers", decode[map[string]interface{}](t, w)["error_type"])

	// пройденный опрос исчезает из списка
	w = app.do(t, http.MethodGet, "/surveys", user.Token, nil)
	available = decode[[]entity.Survey](t, w)
	require.Len(t, available, 1)
	assert.Equal(t, sports.ID, available[0].ID)

	w = app.do(t, http.MethodPost, fmt.Sprintf("/surveys/%d/respond", sports.ID), user.Token, answerAll(sports))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// сводка баллов
	w = app.do(t, http.MethodGet, "/users/points/summary", user.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[struct {
		TotalPoints      int64                   `json:"totalPoints"`
		SurveyCount      int64                   `json:"surveyCount"`
		PointsByCategory []entity.CategoryPoints `json:"pointsByCategory"`
	}](t, w)
	assert.Equal(t, int64(250), summary.TotalPoints)
	assert.Equal(t, int64(2), summary.SurveyCount)
	var sum int64
	for _, cp := range summary.PointsByCategory {
		sum += cp.Total
	}
	assert.Equal(t, summary.TotalPoints, sum, "сумма по категориям совпадает с балансом")

	// профиль отражает баланс
	w = app.do(t, http.MethodGet, "/users/profile", user.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 250, decode[map[string]interface{}](t, w)["points"])

	// журнал начислений
	w = app.do(t, http.MethodGet, "/users/points/ledger?page=1&page_size=1", user.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	ledger := decode[map[string]interface{}](t, w)
	assert.EqualValues(t, 2, ledger["total"])
	assert.EqualValues(t, 250, ledger["balance"])
	assert.Len(t, ledger["entries"], 1)

	// история и мои ответы
	w = app.do(t, http.MethodGet, "/users/surveys/history", user.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]interface{}](t, w), 2)

	w = app.do(t, http.MethodGet, "/surveys/responses", user.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	responses := decode[[]map[string]interface{}](t, w)
	require.Len(t, responses, 2)
	assert.NotNil(t, responses[0]["survey"], "ответ содержит опрос")

	// лидерборд публичный
	w = app.do(t, http.MethodGet, "/leaderboard", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	board := decode[struct {
		Users []struct {
			Rank   int   `json:"rank"`
			UserID uint  `json:"user_id"`
			Points int64 `json:"points"`
		} `json:"users"`
	}](t, w)
	require.NotEmpty(t, board.Users)
	assert.Equal(t, user.User.ID, board.Users[0].UserID)
	assert.Equal(t, 1, board.Users[0].Rank)
}

func TestIntegration_PartialAnswersRejected(t *testing.T) {
	app := newTestApp(t)
	admin := app.adminToken(t)
	survey := app.createSurvey(t, admin, "Неполный ответ", entity.CategoryFinance, 100)
	user := app.register(t, "Anna", "anna@example.com")
	path := fmt.Sprintf("/surveys/%d/respond", survey.ID)

	countRows := func(model interface{}) int64 {
		var n int64
		require.NoError(t, app.db.Model(model).Count(&n).Error)
		return n
	}
	assertNothingWritten := func() {
		t.Helper()
		assert.Equal(t, int64(0), countRows(&entity.SurveyResponse{}), "ответ не сохранен")
		assert.Equal(t, int64(0), countRows(&entity.PointsTransaction{}), "начислений нет")
		var stored entity.User
		require.NoError(t, app.db.First(&stored, user.User.ID).Error)
		assert.Equal(t, int64(0), stored.Points, "баланс не изменился")
	}

	// вопросы {1,2}, ответ покрывает только первый
	w := app.do(t, http.MethodPost, path, user.Token, map[string]interface{}{
		"answers": []map[string]interface{}{{"question_id": survey.Questions[0].ID, "answer": "Синий"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	resp := decode[map[string]interface{}](t, w)
	assert.Equal(t, "incomplete_answers", resp["error_type"])
	assert.Equal(t, "All questions must be answered", resp["message"])
	assertNothingWritten()

	// пустой список ответов
	w = app.do(t, http.MethodPost, path, user.Token, map[string]interface{}{"answers": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decode[map[string]interface{}](t, w)["error_type"])
	assertNothingWritten()

	// null внутри массива не превращается в пустую строку
	w = app.do(t, http.MethodPost, path, user.Token, map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": survey.Questions[0].ID, "answer": []interface{}{"Синий", nil}},
			{"question_id": survey.Questions[1].ID, "answer": "Больше вопросов"},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decode[map[string]interface{}](t, w)["error_type"])
	assertNothingWritten()

	// после полного ответа опрос засчитывается
	w = app.do(t, http.MethodPost, path, user.Token, answerAll(survey))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, int64(1), countRows(&entity.SurveyResponse{}))
}

func TestIntegration_AuthAndAccess(t *testing.T) {
	app := newTestApp(t)
	user := app.register(t, "Anna", "anna@example.com")

	// повторная регистрация с тем же email (регистр не важен)
	w := app.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Anna 2", "email": "ANNA@example.com", "password": "secret1", "category": entity.CategorySports,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "email_taken", decode[map[string]interface{}](t, w)["error_type"])

	// неверный пароль
	w = app.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "anna@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// без токена
	w = app.do(t, http.MethodGet, "/surveys", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// обычный пользователь не может создавать опросы
	w = app.do(t, http.MethodPost, "/surveys", user.Token, map[string]interface{}{
		"title": "Опрос", "description": "Достаточно длинное описание", "category": "Sports",
		"questions": []map[string]interface{}{{"text": "Почему?", "type": "text"}},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// несуществующий опрос и некорректный id
	w = app.do(t, http.MethodGet, "/surveys/9999", user.Token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = app.do(t, http.MethodGet, "/surveys/abc", user.Token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// /auth/me
	w = app.do(t, http.MethodGet, "/auth/me", user.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[map[string]map[string]interface{}](t, w)
	assert.Equal(t, "anna@example.com", me["user"]["email"])
	assert.NotContains(t, me["user"], "password")

	// обновление профиля
	w = app.do(t, http.MethodPatch, "/users/profile", user.Token, map[string]string{"category": "Finance"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Finance", decode[map[string]interface{}](t, w)["category"])

	w = app.do(t, http.MethodPatch, "/users/profile", user.Token, map[string]string{"category": "Cooking"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// смена пароля отзывает старый токен и выдает новый
	time.Sleep(1100 * time.Millisecond) // iat хранится с точностью до секунды
	w = app.do(t, http.MethodPost, "/users/change-password", user.Token, map[string]string{
		"currentPassword": "secret1", "newPassword": "secret2",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	changed := decode[map[string]string](t, w)
	assert.Equal(t, "Password updated successfully", changed["message"])
	require.NotEmpty(t, changed["token"])

	w = app.do(t, http.MethodGet, "/auth/me", user.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "старый токен отозван")
	w = app.do(t, http.MethodGet, "/auth/me", changed["token"], nil)
	assert.Equal(t, http.StatusOK, w.Code, "новый токен действует")

	// справочник категорий и health
	w = app.do(t, http.MethodGet, "/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.Categories(), decode[map[string][]string](t, w)["categories"])

	w = app.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]interface{}](t, w)["database"])
}

func TestIntegration_Export(t *testing.T) {
	app := newTestApp(t)
	admin := app.adminToken(t)
	survey := app.createSurvey(t, admin, "=Экспорт", entity.CategoryEducation, 20)

	user := app.register(t, "Anna", "anna@example.com")
	w := app.do(t, http.MethodPost, fmt.Sprintf("/surveys/%d/respond", survey.ID), user.Token, map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": survey.Questions[0].ID, "answer": "Красный"},
			{"question_id": survey.Questions[1].ID, "answer": "=HYPERLINK(\"x\")"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	path := fmt.Sprintf("/surveys/%d/responses/export", survey.ID)

	w = app.do(t, http.MethodGet, path, user.Token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code, "выгрузка доступна только администратору")

	w = app.do(t, http.MethodGet, path+"?format=pdf", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// CSV
	w = app.do(t, http.MethodGet, path+"?format=csv", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	body := strings.TrimPrefix(w.Body.String(), "\xEF\xBB\xBF")
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 2, "заголовок и одна строка ответа")
	assert.True(t, strings.HasPrefix(lines[0], "Response ID,User ID,User Name,Email,Submitted At,Points Earned"))
	assert.Contains(t, lines[1], "anna@example.com")
	assert.Contains(t, lines[1], "'=HYPERLINK", "формулы экранируются")

	// XLSX
	w = app.do(t, http.MethodGet, path+"?format=xlsx", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Responses")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Любимый цвет?", rows[0][6])
	assert.Equal(t, "Красный", rows[1][6])
	assert.Equal(t, "20", rows[1][5])
}

func TestIntegration_WebSocketPointsAwarded(t *testing.T) {
	app := newTestApp(t)
	admin := app.adminToken(t)
	survey := app.createSurvey(t, admin, "Уведомления", entity.CategoryOther, 40)
	user := app.register(t, "Anna", "anna@example.com")

	server := httptest.NewServer(app.router)
	defer server.Close()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + testContextPath + "/ws"

	// без токена соединение не устанавливается
	_, resp, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL+"?token="+user.Token, nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// pong подтверждает, что клиент зарегистрирован в хабе
	require.NoError(t, conn.WriteJSON(map[string]string{"type": ws.PING}))
	var event struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, ws.PONG, event.Type)

	w := app.do(t, http.MethodPost, fmt.Sprintf("/surveys/%d/respond", survey.ID), user.Token, answerAll(survey))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, ws.POINTS_AWARDED, event.Type)
	var data ws.PointsAwardedData
	require.NoError(t, json.Unmarshal(event.Data, &data))
	assert.Equal(t, survey.ID, data.SurveyID)
	assert.Equal(t, 40, data.PointsEarned)
	assert.Equal(t, int64(40), data.TotalPoints)
}
