package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"
)

// Максимальное количество предупреждений о переполнении буфера до отключения
const maxBufferWarnings = 3

// registerTimeout - сколько клиент ждет регистрации в хабе
const registerTimeout = 5 * time.Second

type registration struct {
	client *Client
	done   chan struct{}
}

// Hub хранит активные соединения по ID пользователя.
// У одного пользователя может быть несколько соединений (вкладки, устройства).
type Hub struct {
	clients map[uint]map[*Client]struct{}
	mu      sync.RWMutex

	register   chan registration
	unregister chan *Client
	done       chan struct{}

	metrics *HubMetrics
}

// NewHub создает хаб. Обработка регистраций начинается после Run.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint]map[*Client]struct{}),
		register:   make(chan registration),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
		metrics:    NewHubMetrics(),
	}
}

// Run обрабатывает регистрацию и отключение клиентов до отмены ctx
func (h *Hub) Run(ctx context.Context) {
	log.Println("[WebSocketHub] Хаб запущен")
	defer close(h.done)

	for {
		select {
		case reg := <-h.register:
			h.handleRegister(reg.client)
			close(reg.done)
		case client := <-h.unregister:
			h.handleUnregister(client)
		case <-ctx.Done():
			log.Println("[WebSocketHub] Получен сигнал завершения, закрываем все соединения")
			h.closeAll()
			return
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[client.UserID]
	if !ok {
		conns = make(map[*Client]struct{})
		h.clients[client.UserID] = conns
	}
	conns[client] = struct{}{}
	h.metrics.IncrementConnections()

	log.Printf("[WebSocketHub] Клиент зарегистрирован: UserID=%d, ConnID=%s, соединений пользователя: %d",
		client.UserID, client.ConnectionID, len(conns))
}

func (h *Hub) handleUnregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := conns[client]; !ok {
		return
	}
	delete(conns, client)
	if len(conns) == 0 {
		delete(h.clients, client.UserID)
	}

	// канал закрывается под блокировкой, поэтому SendToUser не пишет в закрытый канал
	client.CloseSend()
	if client.conn != nil {
		client.conn.Close()
	}
	h.metrics.DecrementActiveConnections()

	log.Printf("[WebSocketHub] Клиент отключен: UserID=%d, ConnID=%s", client.UserID, client.ConnectionID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, conns := range h.clients {
		for client := range conns {
			client.CloseSend()
			if client.conn != nil {
				client.conn.Close()
			}
			h.metrics.DecrementActiveConnections()
		}
		delete(h.clients, userID)
	}
}

// Register синхронно регистрирует клиента. Возвращает false, если хаб остановлен.
func (h *Hub) Register(client *Client) bool {
	done := make(chan struct{})
	select {
	case h.register <- registration{client: client, done: done}:
	case <-h.done:
		return false
	case <-time.After(registerTimeout):
		log.Printf("[WebSocketHub] Таймаут регистрации клиента UserID=%d", client.UserID)
		return false
	}
	<-done
	return true
}

// Unregister отключает клиента. Повторный вызов безопасен.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// SendToUser отправляет сообщение во все соединения пользователя.
// Возвращает число соединений, принявших сообщение.
func (h *Hub) SendToUser(userID uint, message []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.clients[userID] {
		if h.trySend(client, message) {
			delivered++
		}
	}
	return delivered
}

// SendJSONToUser сериализует v и отправляет пользователю
func (h *Hub) SendJSONToUser(userID uint, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal websocket event: %w", err)
	}
	h.SendToUser(userID, data)
	return nil
}

// SendToClient отправляет сообщение в одно соединение
func (h *Hub) SendToClient(client *Client, message []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[client.UserID][client]; !ok {
		return false
	}
	return h.trySend(client, message)
}

// trySend вызывается под h.mu.RLock
func (h *Hub) trySend(client *Client, message []byte) bool {
	if client.IsSendClosed() {
		return false
	}
	select {
	case client.send <- message:
		client.resetBufferWarnings()
		h.metrics.AddMessageSent()
		return true
	default:
	}

	h.metrics.AddMessageDropped()
	warnings := client.incrementBufferWarnings()
	log.Printf("[WebSocketHub] Буфер клиента UserID=%d ConnID=%s переполнен (%d/%d)",
		client.UserID, client.ConnectionID, warnings, maxBufferWarnings)
	if warnings >= maxBufferWarnings {
		h.metrics.AddConnectionError()
		go h.Unregister(client)
	}
	return false
}

// ClientCount возвращает количество активных соединений
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for _, conns := range h.clients {
		count += len(conns)
	}
	return count
}

// IsOnline проверяет, есть ли у пользователя хотя бы одно соединение
func (h *Hub) IsOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// GetMetrics возвращает метрики хаба
func (h *Hub) GetMetrics() map[string]interface{} {
	metrics := h.metrics.Snapshot()
	metrics["online_users"] = h.onlineUsers()
	return metrics
}

func (h *Hub) onlineUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
