package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"guardian-backend/internal/models"
)

// Константы для типов сообщений WebSocket
const (
	SafeLocationUpdateType = "SAFE_LOCATION_UPDATE"
	SafeStateUpdateType    = "SAFE_STATE_UPDATE"
	TripStatusUpdateType   = "TRIP_STATUS_UPDATE"
	SystemNotificationType = "SYSTEM_NOTIFICATION"
	AlertType              = "ALERT"
)

// WebSocketMessage представляет формат сообщения WebSocket
type WebSocketMessage struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// wsClient одно подключение панели. В соединение пишут две горутины:
// менеджер при рассылке и читатель при ответе на ping, а gorilla/websocket
// допускает только одного пишущего — все записи идут через write под мьютексом.
type wsClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (client *wsClient) write(messageType int, data []byte) error {
	client.writeMu.Lock()
	defer client.writeMu.Unlock()
	return client.conn.WriteMessage(messageType, data)
}

// WebSocketManager управляет подключениями диспетчерской панели.
// Все события рассылаются всем подключенным клиентам: панель сама
// фильтрует, что показывать.
type WebSocketManager struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	broadcast  chan *WebSocketMessage
	mutex      sync.RWMutex
}

// Глобальный менеджер WebSocket
var wsManager = NewWebSocketManager()

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Разрешаем подключения с любых источников
	},
}

func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		broadcast:  make(chan *WebSocketMessage, 64),
	}
}

// Start запускает обработку подключений и рассылку сообщений
func (manager *WebSocketManager) Start() {
	go func() {
		for {
			select {
			case client := <-manager.register:
				manager.mutex.Lock()
				manager.clients[client] = true
				manager.mutex.Unlock()
				log.Printf("WebSocket: клиент подключен, всего %d", manager.clientCount())

			case client := <-manager.unregister:
				manager.mutex.Lock()
				if _, ok := manager.clients[client]; ok {
					delete(manager.clients, client)
					client.conn.Close()
				}
				manager.mutex.Unlock()
				log.Printf("WebSocket: клиент отключен, всего %d", manager.clientCount())

			case message := <-manager.broadcast:
				manager.sendToAll(message)
			}
		}
	}()
}

func (manager *WebSocketManager) clientCount() int {
	manager.mutex.RLock()
	defer manager.mutex.RUnlock()
	return len(manager.clients)
}

func (manager *WebSocketManager) sendToAll(message *WebSocketMessage) {
	jsonMessage, err := json.Marshal(message)
	if err != nil {
		log.Printf("WebSocket: ошибка при кодировании сообщения: %v", err)
		return
	}

	manager.mutex.RLock()
	defer manager.mutex.RUnlock()

	for client := range manager.clients {
		if err := client.write(websocket.TextMessage, jsonMessage); err != nil {
			log.Printf("WebSocket: ошибка при отправке сообщения: %v", err)
			// Отключаем клиента при ошибке отправки
			go func(c *wsClient) { manager.unregister <- c }(client)
		}
	}
}

// Broadcast ставит сообщение в очередь рассылки. Если очередь полна,
// сообщение отбрасывается: это снимки состояния, следующий цикл
// пришлет свежие.
func (manager *WebSocketManager) Broadcast(messageType string, payload interface{}) {
	message := &WebSocketMessage{
		Type:      messageType,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	select {
	case manager.broadcast <- message:
	default:
		log.Printf("WebSocket: очередь рассылки переполнена, сообщение %s отброшено", messageType)
	}
}

// Handler обрабатывает подключения WebSocket
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Upgrade") != "websocket" {
			c.String(http.StatusBadRequest, "Требуется WebSocket соединение")
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("Ошибка обновления соединения до WebSocket: %v", err)
			return
		}

		client := &wsClient{conn: conn}
		wsManager.register <- client

		go handleMessages(client)
	}
}

// handleMessages читает сообщения клиента и отвечает на ping
func handleMessages(client *wsClient) {
	defer func() {
		wsManager.unregister <- client
	}()

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			break
		}

		var data map[string]interface{}
		if err := json.Unmarshal(message, &data); err != nil {
			continue
		}

		if msgType, ok := data["type"].(string); ok && msgType == "ping" {
			pongMsg := map[string]interface{}{
				"type": "pong",
				"time": time.Now().Unix(),
			}
			pongJSON, _ := json.Marshal(pongMsg)
			if err := client.write(websocket.TextMessage, pongJSON); err != nil {
				log.Printf("WebSocket: ошибка при отправке pong: %v", err)
			}
		}
	}
}

// SendSafeLocationUpdate рассылает свежий снимок позиции сейфа
func SendSafeLocationUpdate(record models.LocationRecord) {
	wsManager.Broadcast(SafeLocationUpdateType, record)
}

// SendSafeStateUpdate рассылает изменение состояния сейфа
func SendSafeStateUpdate(safe *models.Safe) {
	wsManager.Broadcast(SafeStateUpdateType, safe)
}

// SendTripStatusUpdate рассылает изменение статуса рейса
func SendTripStatusUpdate(trip *models.Trip) {
	payload := map[string]interface{}{
		"tripId": trip.ID,
		"safeId": trip.SafeID,
		"status": trip.Status,
	}
	wsManager.Broadcast(TripStatusUpdateType, payload)
}

// SendSystemNotification рассылает системное уведомление панели
func SendSystemNotification(title, message, severity string) {
	payload := map[string]interface{}{
		"title":    title,
		"message":  message,
		"severity": severity,
	}
	wsManager.Broadcast(SystemNotificationType, payload)
}

// SendAlert рассылает тревогу по сейфу
func SendAlert(alert *models.Alert) {
	wsManager.Broadcast(AlertType, alert)
}

// StartManager запускает глобальный менеджер WebSocket
func StartManager() {
	wsManager.Start()
}
