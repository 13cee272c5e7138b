package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/survey-rewards-api/internal/config"
	"github.com/yourusername/survey-rewards-api/internal/middleware"
	apperrors "github.com/yourusername/survey-rewards-api/internal/pkg/errors"
	"github.com/yourusername/survey-rewards-api/internal/websocket"
)

// WSHandler обрабатывает WebSocket соединения
type WSHandler struct {
	hub      *websocket.Hub
	manager  *websocket.Manager
	tokens   middleware.TokenParser
	clientCf websocket.ClientConfig
	upgrader gorillaws.Upgrader
}

// NewWSHandler создает новый обработчик WebSocket
func NewWSHandler(
	hub *websocket.Hub,
	manager *websocket.Manager,
	tokens middleware.TokenParser,
	wsCfg config.WebSocketConfig,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		hub:      hub,
		manager:  manager,
		tokens:   tokens,
		clientCf: websocket.NewClientConfig(wsCfg),
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker разрешает клиентов без Origin (мобильные приложения, curl) и origin из списка CORS
func originChecker(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := allowed["*"]; ok {
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		log.Printf("[WSHandler] Отклонен неразрешенный origin: %s", origin)
		return false
	}
}

// HandleConnection обрабатывает входящее WebSocket соединение.
// Токен передается в query-параметре ?token=, так как браузеры не позволяют задать заголовок Authorization.
func (h *WSHandler) HandleConnection(c *gin.Context) {
	// НЕ логируем токен
	token := c.Query("token")
	if token == "" {
		respondFail(c, http.StatusUnauthorized, "token_missing", "Missing token parameter")
		return
	}

	claims, err := h.tokens.ParseToken(token)
	if err != nil {
		if errors.Is(err, apperrors.ErrExpiredToken) {
			respondFail(c, http.StatusUnauthorized, "token_expired", "Token has expired")
			return
		}
		respondFail(c, http.StatusUnauthorized, "token_invalid", "Invalid token")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту
		log.Printf("[WSHandler] Ошибка upgrade для UserID=%d: %v", claims.UserID, err)
		return
	}

	client := websocket.NewClient(h.hub, conn, claims.UserID, h.clientCf)
	client.StartPumps(h.manager.HandleMessage)
	log.Printf("[WSHandler] Соединение установлено UserID=%d ConnectionID=%s", claims.UserID, client.ConnectionID)
}
