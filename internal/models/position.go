package models

import (
	"math"
	"time"
)

// Position представляет торговую позицию под управлением риск-движка
//
// Позиция принадлежит леджеру и мутируется только через его операции
// (открытие, обновление цены, закрытие). После закрытия запись становится
// неизменяемой и переносится в историю.
type Position struct {
	ID         string  `json:"id" db:"id"`
	Symbol     string  `json:"symbol" db:"symbol"`
	Venue      string  `json:"venue" db:"venue"`
	Side       string  `json:"side" db:"side"` // long, short
	EntryPrice float64 `json:"entry_price" db:"entry_price"`
	Quantity   float64 `json:"quantity" db:"quantity"`
	StopLoss   float64 `json:"stop_loss" db:"stop_loss"`
	TakeProfit float64 `json:"take_profit" db:"take_profit"`

	// Рассчитываются один раз при открытии
	RiskAmount      float64 `json:"risk_amount" db:"risk_amount"`             // |entry - stopLoss| * quantity
	RewardAmount    float64 `json:"reward_amount" db:"reward_amount"`         // |takeProfit - entry| * quantity
	RiskRewardRatio float64 `json:"risk_reward_ratio" db:"risk_reward_ratio"` // reward / risk

	Status                string  `json:"status" db:"status"` // active, closed
	CurrentPrice          float64 `json:"current_price" db:"current_price"`
	UnrealizedPnl         float64 `json:"unrealized_pnl" db:"unrealized_pnl"`
	MaxFavorableExcursion float64 `json:"max_favorable_excursion" db:"max_favorable_excursion"`
	MaxAdverseExcursion   float64 `json:"max_adverse_excursion" db:"max_adverse_excursion"`

	OpenedAt    time.Time  `json:"opened_at" db:"opened_at"`
	ClosedAt    *time.Time `json:"closed_at,omitempty" db:"closed_at"`
	ExitPrice   float64    `json:"exit_price,omitempty" db:"exit_price"`
	ExitReason  string     `json:"exit_reason,omitempty" db:"exit_reason"`
	RealizedPnl float64    `json:"realized_pnl,omitempty" db:"realized_pnl"`
}

// Стороны позиции
const (
	SideLong  = "long"
	SideShort = "short"
)

// Статусы позиции
const (
	PositionStatusActive = "active"
	PositionStatusClosed = "closed"
)

// Причины закрытия позиции
const (
	ExitReasonStopLoss      = "stop_loss"
	ExitReasonTakeProfit    = "take_profit"
	ExitReasonManual        = "manual"
	ExitReasonEmergencyStop = "emergency_stop"
)

// PnlAt возвращает PNL позиции при указанной цене
//
// Формула зависит от стороны:
//   - long:  (price - entry) * quantity
//   - short: (entry - price) * quantity
func (p *Position) PnlAt(price float64) float64 {
	if p.Side == SideShort {
		return (p.EntryPrice - price) * p.Quantity
	}
	return (price - p.EntryPrice) * p.Quantity
}

// IsOpen возвращает true если позиция ещё активна
func (p *Position) IsOpen() bool {
	return p.Status == PositionStatusActive
}

// TradeProposal представляет предложение сделки для валидации
type TradeProposal struct {
	Symbol     string  `json:"symbol"`
	Venue      string  `json:"venue"`
	Side       string  `json:"side"` // long, short
	EntryPrice float64 `json:"entry_price"`
	Quantity   float64 `json:"quantity"`
	StopLoss   float64 `json:"stop_loss"`
	TakeProfit float64 `json:"take_profit"`
}

// RiskAmount возвращает сумму под риском для предложения
func (tp *TradeProposal) RiskAmount() float64 {
	return math.Abs(tp.EntryPrice-tp.StopLoss) * tp.Quantity
}

// RewardAmount возвращает потенциальную прибыль для предложения
func (tp *TradeProposal) RewardAmount() float64 {
	return math.Abs(tp.TakeProfit-tp.EntryPrice) * tp.Quantity
}

// RiskRewardRatio возвращает соотношение прибыли к риску
//
// Нулевой риск трактуется как 0 (предложение отклоняется валидатором).
func (tp *TradeProposal) RiskRewardRatio() float64 {
	risk := tp.RiskAmount()
	if risk == 0 {
		return 0
	}
	return tp.RewardAmount() / risk
}

// TradeResult представляет результат обработки предложения сделки
//
// Отклонения - это ожидаемый бизнес-результат, а не ошибка:
// вызывающий код ветвится по флагу Accepted.
type TradeResult struct {
	Accepted bool      `json:"accepted"`
	Reason   string    `json:"reason"`
	Position *Position `json:"position,omitempty"`
}
