package websocket

// Типы событий от сервера
const (
	// POINTS_AWARDED сообщает о начислении баллов за пройденный опрос
	POINTS_AWARDED = "points_awarded"

	// PONG - ответ на ping клиента
	PONG = "pong"

	// SERVER_ERROR сообщает клиенту об ошибке обработки его сообщения
	SERVER_ERROR = "server:error"

	// SERVER_BUFFER_WARNING предупреждает о переполнении буфера отправки
	SERVER_BUFFER_WARNING = "server:buffer_warning"
)

// Типы событий от клиента
const (
	// PING проверяет, что соединение живо
	PING = "ping"
)

// Event представляет структуру WebSocket-сообщения
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// PointsAwardedData - данные события POINTS_AWARDED
type PointsAwardedData struct {
	SurveyID     uint  `json:"survey_id"`
	PointsEarned int   `json:"points_earned"`
	TotalPoints  int64 `json:"total_points"`
}
