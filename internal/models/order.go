package models

import "time"

// ExitOrder представляет отложенный ордер выхода (часть OCO-пары,
// одиночный стоп или трейлинг-стоп)
//
// Ордера OCO-пары разделяют общий ParentID: исполнение одного из них
// атомарно отменяет второй. Пара уничтожается, когда оба ордера
// достигают терминального статуса.
type ExitOrder struct {
	ID           string     `json:"id" db:"id"`
	ParentID     string     `json:"parent_id,omitempty" db:"parent_id"`
	Symbol       string     `json:"symbol" db:"symbol"`
	Side         string     `json:"side" db:"side"` // buy, sell
	Kind         string     `json:"kind" db:"kind"` // take_profit, stop_loss, trailing_stop
	Quantity     float64    `json:"quantity" db:"quantity"`
	TriggerPrice float64    `json:"trigger_price" db:"trigger_price"`
	Status       string     `json:"status" db:"status"` // pending, filled, cancelled
	FillPrice    float64    `json:"fill_price,omitempty" db:"fill_price"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	FilledAt     *time.Time `json:"filled_at,omitempty" db:"filled_at"`
}

// Типы ордеров выхода
const (
	OrderKindTakeProfit   = "take_profit"
	OrderKindStopLoss     = "stop_loss"
	OrderKindTrailingStop = "trailing_stop"
)

// Статусы ордера
const (
	OrderStatusPending   = "pending"
	OrderStatusFilled    = "filled"
	OrderStatusCancelled = "cancelled"
)

// Стороны ордера
const (
	OrderSideBuy  = "buy"
	OrderSideSell = "sell"
)

// IsTerminal возвращает true если ордер в терминальном статусе
func (o *ExitOrder) IsTerminal() bool {
	return o.Status == OrderStatusFilled || o.Status == OrderStatusCancelled
}

// TrailingStopOrder представляет состояние трейлинг-стопа
//
// Watermark - лучшая цена с момента создания: максимум для long,
// минимум для short. StopPrice пересчитывается только когда watermark
// улучшается, поэтому стоп двигается строго в одну сторону
// (вверх для long, вниз для short).
type TrailingStopOrder struct {
	OrderID      string  `json:"order_id"`
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"` // long, short
	Quantity     float64 `json:"quantity"`
	TrailPercent float64 `json:"trail_percent"`
	Watermark    float64 `json:"watermark"`
	StopPrice    float64 `json:"stop_price"`
}
