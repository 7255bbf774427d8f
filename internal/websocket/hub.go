package websocket

import (
	"bytes"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"riskengine/internal/models"
)

var wsJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonBufferPool убирает аллокации буфера при каждом Broadcast
var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

// Hub управляет всеми активными WebSocket соединениями
//
// Назначение:
// Центральный менеджер broadcast сообщений подключенным клиентам
// дашборда: события движка, периодическая сводка риска и изменения
// позиций уходят без polling.
//
// Использование:
// 1. Создать hub: hub := NewHub(logger)
// 2. Запустить в горутине: go hub.Run()
// 3. Отправлять сообщения: hub.BroadcastNotification(notif)
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Broadcast канал для отправки сообщений всем клиентам
	broadcast chan []byte

	// Регистрация нового клиента
	register chan *Client

	// Отмена регистрации клиента
	unregister chan *Client

	logger *zap.Logger

	mu sync.RWMutex
}

// NewHub создает новый Hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger,
	}
}

// Run запускает главный цикл Hub
//
// Должен запускаться в отдельной горутине: go hub.Run()
//
// При broadcast список клиентов копируется под коротким RLock,
// отправка идёт без блокировки, медленные клиенты удаляются
// под Write Lock. Register/unregister не ждут отправку.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("websocket client connected", zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("websocket client disconnected", zap.Int("total", total))

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					// Клиент не успевает - помечаем для удаления
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				total := len(h.clients)
				h.mu.Unlock()
				h.logger.Warn("removed slow websocket clients",
					zap.Int("removed", len(toRemove)),
					zap.Int("total", total))
			}
		}
	}
}

// Broadcast сериализует сообщение и отправляет его всем клиентам
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	if err := wsJSON.NewEncoder(buf).Encode(message); err != nil {
		h.logger.Error("broadcast marshal failed", zap.Error(err))
		jsonBufferPool.Put(buf)
		return
	}

	// Убираем trailing newline от Encode
	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}

	// Копируем данные: буфер вернётся в пул
	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)

	jsonBufferPool.Put(buf)

	h.broadcast <- msgCopy
}

// BroadcastNotification отправляет событие движка
func (h *Hub) BroadcastNotification(notif *models.Notification) {
	h.Broadcast(NewNotificationMessage(notif))
}

// BroadcastSummary отправляет сводку состояния риск-движка
func (h *Hub) BroadcastSummary(summary models.RiskSummary) {
	h.Broadcast(NewSummaryUpdateMessage(summary))
}

// BroadcastPositionUpdate отправляет изменение позиции
func (h *Hub) BroadcastPositionUpdate(p models.Position) {
	h.Broadcast(NewPositionUpdateMessage(p))
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
