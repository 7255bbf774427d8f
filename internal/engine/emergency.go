package engine

import (
	"fmt"
	"math"
	"time"

	"riskengine/internal/models"
)

// Причины срабатывания аварийного стопа
const (
	emergencyCauseDaily     = "daily"
	emergencyCauseWeekly    = "weekly"
	emergencyCauseMonthly   = "monthly"
	emergencyCauseTotalLoss = "total_loss"
)

// ============================================================
// Аварийный стоп: агрегатные лимиты потерь и принудительное
// закрытие портфеля. Все методы вызываются под e.mu.
// ============================================================

// checkEmergencyLocked проверяет агрегатные лимиты после закрытия позиции
//
// Порядок: дневной лимит, скользящая неделя, скользящий месяц,
// потеря капитала от старта. Дневной/недельный/месячный лимиты
// сравниваются с |PNL%|: аномальный выигрышный день так же
// останавливает торговлю, как и убыточный. Лимит потери капитала
// направленный - рост капитала стоп не активирует.
// Первый нарушенный лимит активирует аварийный стоп; состояние
// терминально до ручного ResumeTrading.
func (e *Engine) checkEmergencyLocked(now time.Time) []*models.Notification {
	// Защита от повторного входа во время принудительного закрытия:
	// каждое закрытие внутри triggerEmergencyLocked не должно
	// запускать проверку заново
	if e.closingAll || e.emergencyStop {
		return nil
	}

	var pending []*models.Notification

	dailyMove := math.Abs(e.dailyPnlPercentLocked(now))
	if dailyMove >= e.policy.MaxDailyLossPercent {
		pending = append(pending, e.newNotificationLocked(
			models.NotificationTypeDailyLimit, models.SeverityWarn, "",
			fmt.Sprintf("daily loss limit reached: %.2f%% (limit %.2f%%)",
				dailyMove, e.policy.MaxDailyLossPercent),
			map[string]interface{}{"loss_percent": dailyMove},
			now,
		))
		pending = append(pending, e.triggerEmergencyLocked(emergencyCauseDaily, dailyMove, now)...)
		return pending
	}

	weeklyMove := math.Abs(e.windowLossPercentLocked(now, 7))
	if weeklyMove >= e.policy.MaxWeeklyLossPercent {
		return e.triggerEmergencyLocked(emergencyCauseWeekly, weeklyMove, now)
	}

	monthlyMove := math.Abs(e.windowLossPercentLocked(now, 30))
	if monthlyMove >= e.policy.MaxMonthlyLossPercent {
		return e.triggerEmergencyLocked(emergencyCauseMonthly, monthlyMove, now)
	}

	if e.initialCapital > 0 {
		totalLoss := (e.initialCapital - e.currentCapital) / e.initialCapital * 100
		if totalLoss >= e.policy.EmergencyStopLossPercent {
			return e.triggerEmergencyLocked(emergencyCauseTotalLoss, totalLoss, now)
		}
	}

	return nil
}

// triggerEmergencyLocked активирует аварийный стоп
//
// 1. Выставляет флаги (торговля запрещена до ручного вмешательства)
// 2. Принудительно закрывает все активные позиции по текущей цене
// 3. Отменяет все pending-ордера выхода
func (e *Engine) triggerEmergencyLocked(cause string, lossPercent float64, now time.Time) []*models.Notification {
	e.emergencyStop = true
	e.tradingEnabled = false
	e.closingAll = true
	defer func() { e.closingAll = false }()

	EmergencyStops.WithLabelValues(cause).Inc()

	pending := []*models.Notification{
		e.newNotificationLocked(
			models.NotificationTypeEmergencyStop, models.SeverityError, "",
			fmt.Sprintf("EMERGENCY STOP: %s loss %.2f%%, closing all positions", cause, lossPercent),
			map[string]interface{}{
				"cause":        cause,
				"loss_percent": lossPercent,
				"positions":    len(e.active),
			},
			now,
		),
	}

	// Копия списка: закрытие мутирует e.active
	positions := make([]*models.Position, 0, len(e.active))
	for _, p := range e.active {
		positions = append(positions, p)
	}

	for _, p := range positions {
		if n := e.closePositionLocked(p, p.CurrentPrice, models.ExitReasonEmergencyStop, now); n != nil {
			pending = append(pending, n)
		}
	}

	for _, o := range e.pairs.Orders() {
		if o.Status == models.OrderStatusPending {
			_ = e.pairs.Cancel(o.ID)
		}
	}

	return pending
}
