package engine

import (
	"errors"

	"riskengine/internal/models"
)

var ErrInvalidTransition = errors.New("invalid state transition")

// PositionTransitions определяет допустимые переходы статусов позиции
//
// closed - терминальный статус: закрытая позиция неизменяема
var PositionTransitions = map[string][]string{
	models.PositionStatusActive: {models.PositionStatusClosed},
	models.PositionStatusClosed: {},
}

// OrderTransitions определяет допустимые переходы статусов ордера
//
// filled и cancelled - терминальные статусы; отмена OCO-сиблинга
// возможна только из pending
var OrderTransitions = map[string][]string{
	models.OrderStatusPending:   {models.OrderStatusFilled, models.OrderStatusCancelled},
	models.OrderStatusFilled:    {},
	models.OrderStatusCancelled: {},
}

// CanTransitionPosition проверяет допустимость перехода статуса позиции
func CanTransitionPosition(from, to string) bool {
	return canTransition(PositionTransitions, from, to)
}

// CanTransitionOrder проверяет допустимость перехода статуса ордера
func CanTransitionOrder(from, to string) bool {
	return canTransition(OrderTransitions, from, to)
}

func canTransition(table map[string][]string, from, to string) bool {
	allowed, ok := table[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}
