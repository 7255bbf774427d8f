package engine

import "riskengine/internal/models"

// exitReason проверяет условия выхода позиции при указанной цене
//
// Стоп-лосс проверяется ПЕРВЫМ: при проскоке цены через оба уровня
// (гэп) позиция закрывается как stop_loss, защита капитала важнее
// фиксации прибыли.
//
// Long:  price <= SL → stop_loss;  price >= TP → take_profit
// Short: price >= SL → stop_loss;  price <= TP → take_profit
func exitReason(p *models.Position, price float64) (string, bool) {
	if p.Side == models.SideShort {
		if p.StopLoss > 0 && price >= p.StopLoss {
			return models.ExitReasonStopLoss, true
		}
		if p.TakeProfit > 0 && price <= p.TakeProfit {
			return models.ExitReasonTakeProfit, true
		}
		return "", false
	}

	if p.StopLoss > 0 && price <= p.StopLoss {
		return models.ExitReasonStopLoss, true
	}
	if p.TakeProfit > 0 && price >= p.TakeProfit {
		return models.ExitReasonTakeProfit, true
	}
	return "", false
}
