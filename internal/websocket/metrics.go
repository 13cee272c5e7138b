package websocket

import (
	"sync"
	"time"
)

// HubMetrics - счетчики WebSocket-хаба
type HubMetrics struct {
	totalConnections  int64
	activeConnections int64
	messagesSent      int64
	messagesReceived  int64
	messagesDropped   int64
	connectionErrors  int64
	startTime         time.Time

	mu sync.RWMutex
}

// NewHubMetrics создает новый экземпляр метрик хаба
func NewHubMetrics() *HubMetrics {
	return &HubMetrics{startTime: time.Now()}
}

// IncrementConnections учитывает новое подключение
func (m *HubMetrics) IncrementConnections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totalConnections++
	m.activeConnections++
}

// DecrementActiveConnections уменьшает счетчик активных подключений
func (m *HubMetrics) DecrementActiveConnections() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.activeConnections > 0 {
		m.activeConnections--
	}
}

// AddMessageSent увеличивает счетчик отправленных сообщений
func (m *HubMetrics) AddMessageSent() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesSent++
}

// AddMessageReceived увеличивает счетчик полученных сообщений
func (m *HubMetrics) AddMessageReceived() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesReceived++
}

// AddMessageDropped учитывает сообщение, не поместившееся в буфер клиента
func (m *HubMetrics) AddMessageDropped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messagesDropped++
}

// AddConnectionError увеличивает счетчик ошибок соединений
func (m *HubMetrics) AddConnectionError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectionErrors++
}

// Snapshot возвращает копию метрик для health-эндпоинта
func (m *HubMetrics) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]interface{}{
		"total_connections":  m.totalConnections,
		"active_connections": m.activeConnections,
		"messages_sent":      m.messagesSent,
		"messages_received":  m.messagesReceived,
		"messages_dropped":   m.messagesDropped,
		"connection_errors":  m.connectionErrors,
		"uptime_seconds":     int64(time.Since(m.startTime).Seconds()),
	}
}
