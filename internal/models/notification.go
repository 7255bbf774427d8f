package models

import "time"

// Notification представляет структурированное событие движка
//
// Движок только формирует события; доставка (чат, email, webhook)
// принадлежит внешнему коллаборатору.
type Notification struct {
	ID         int                    `json:"id" db:"id"`
	Timestamp  time.Time              `json:"timestamp" db:"timestamp"`
	Type       string                 `json:"type" db:"type"`         // TRADE_OPENED, TRADE_CLOSED, EMERGENCY_STOP, DAILY_LIMIT, ERROR
	Severity   string                 `json:"severity" db:"severity"` // info, warn, error
	PositionID string                 `json:"position_id,omitempty" db:"position_id"`
	Message    string                 `json:"message" db:"message"`
	Meta       map[string]interface{} `json:"meta,omitempty" db:"meta"` // дополнительные данные (JSON в БД)
}

// Типы событий
const (
	NotificationTypeTradeOpened   = "TRADE_OPENED"   // позиция открыта
	NotificationTypeTradeClosed   = "TRADE_CLOSED"   // позиция закрыта
	NotificationTypeEmergencyStop = "EMERGENCY_STOP" // сработал аварийный стоп
	NotificationTypeDailyLimit    = "DAILY_LIMIT"    // достигнут дневной лимит потерь
	NotificationTypeOrderFilled   = "ORDER_FILLED"   // исполнен ордер выхода
	NotificationTypeError         = "ERROR"          // нарушение инварианта / ошибка
)

// Уровни важности
const (
	SeverityInfo  = "info"
	SeverityWarn  = "warn"
	SeverityError = "error"
)
