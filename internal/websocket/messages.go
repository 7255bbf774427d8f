package websocket

import (
	"time"

	"riskengine/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeNotification - событие движка
	// Отправляется при открытии/закрытии позиций, исполнении ордеров,
	// лимитах потерь и аварийном стопе
	MessageTypeNotification MessageType = "notification"

	// MessageTypeSummaryUpdate - сводка состояния риск-движка
	// Рассылается периодически (SUMMARY_BROADCAST_FREQ)
	MessageTypeSummaryUpdate MessageType = "summaryUpdate"

	// MessageTypePositionUpdate - изменение позиции
	// Отправляется при открытии и закрытии позиций
	MessageTypePositionUpdate MessageType = "positionUpdate"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// NotificationMessage - сообщение о событии движка
type NotificationMessage struct {
	BaseMessage
	Data *models.Notification `json:"data"`
}

// SummaryUpdateMessage - сообщение со сводкой риска
type SummaryUpdateMessage struct {
	BaseMessage
	Data models.RiskSummary `json:"data"`
}

// PositionUpdateMessage - сообщение об изменении позиции
type PositionUpdateMessage struct {
	BaseMessage
	Data models.Position `json:"data"`
}

// NewNotificationMessage создает сообщение о событии движка
func NewNotificationMessage(notif *models.Notification) *NotificationMessage {
	return &NotificationMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeNotification,
			Timestamp: time.Now(),
		},
		Data: notif,
	}
}

// NewSummaryUpdateMessage создает сообщение со сводкой риска
func NewSummaryUpdateMessage(summary models.RiskSummary) *SummaryUpdateMessage {
	return &SummaryUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeSummaryUpdate,
			Timestamp: time.Now(),
		},
		Data: summary,
	}
}

// NewPositionUpdateMessage создает сообщение об изменении позиции
func NewPositionUpdateMessage(p models.Position) *PositionUpdateMessage {
	return &PositionUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypePositionUpdate,
			Timestamp: time.Now(),
		},
		Data: p,
	}
}
