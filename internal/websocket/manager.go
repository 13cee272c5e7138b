package websocket

import (
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// EventHandler обрабатывает событие определенного типа
type EventHandler func(data json.RawMessage, client *Client) error

// Manager маршрутизирует входящие события и отправляет серверные события пользователям
type Manager struct {
	hub      *Hub
	handlers map[string]EventHandler
}

// NewManager создает новый менеджер WebSocket со встроенным обработчиком ping
func NewManager(hub *Hub) *Manager {
	m := &Manager{
		hub:      hub,
		handlers: make(map[string]EventHandler),
	}
	m.RegisterHandler(PING, m.handlePing)
	return m
}

// RegisterHandler регистрирует обработчик для определенного типа сообщений.
// Вызывается до приема соединений.
func (m *Manager) RegisterHandler(eventType string, handler EventHandler) {
	m.handlers[eventType] = handler
	log.Printf("[WebSocketManager] Зарегистрирован обработчик для сообщений типа: %s", eventType)
}

// HandleMessage обрабатывает входящее сообщение от клиента.
// Некорректный JSON и неизвестные типы не закрывают соединение, клиент получает server:error.
func (m *Manager) HandleMessage(message []byte, client *Client) error {
	var event struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(message, &event); err != nil {
		log.Printf("[WebSocketManager] Некорректное сообщение от UserID=%d: %v", client.UserID, err)
		m.SendErrorToClient(client, "invalid_message_format", "Invalid JSON format")
		return nil
	}

	handler, ok := m.handlers[event.Type]
	if !ok {
		m.SendErrorToClient(client, "unknown_message_type", fmt.Sprintf("Unknown message type: %s", event.Type))
		return nil
	}

	if err := handler(event.Data, client); err != nil {
		log.Printf("[WebSocketManager] Обработчик '%s' вернул ошибку для UserID=%d: %v", event.Type, client.UserID, err)
		return err
	}
	return nil
}

func (m *Manager) handlePing(_ json.RawMessage, client *Client) error {
	m.sendToClient(client, Event{
		Type: PONG,
		Data: map[string]int64{"timestamp": time.Now().UnixMilli()},
	})
	return nil
}

// SendErrorToClient отправляет событие server:error в конкретное соединение
func (m *Manager) SendErrorToClient(client *Client, code string, message string) {
	m.sendToClient(client, Event{
		Type: SERVER_ERROR,
		Data: map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

func (m *Manager) sendToClient(client *Client, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[WebSocketManager] Ошибка сериализации события %s: %v", event.Type, err)
		return
	}
	m.hub.SendToClient(client, data)
}

// SendEventToUser отправляет событие во все соединения пользователя
func (m *Manager) SendEventToUser(userID uint, eventType string, data interface{}) error {
	return m.hub.SendJSONToUser(userID, Event{Type: eventType, Data: data})
}

// NotifyPointsAwarded сообщает пользователю о начисленных баллах.
// Пользователь без активных соединений событие не получает.
func (m *Manager) NotifyPointsAwarded(userID, surveyID uint, pointsEarned int, totalPoints int64) {
	err := m.SendEventToUser(userID, POINTS_AWARDED, PointsAwardedData{
		SurveyID:     surveyID,
		PointsEarned: pointsEarned,
		TotalPoints:  totalPoints,
	})
	if err != nil {
		log.Printf("[WebSocketManager] Ошибка отправки %s пользователю ID=%d: %v", POINTS_AWARDED, userID, err)
	}
}
