package engine

import (
	"errors"
	"fmt"
	"time"

	"riskengine/internal/models"
	"riskengine/pkg/utils"
)

var ErrPositionNotFound = errors.New("position not found")

// Хвост истории закрытых позиций, попадающий в снапшот
const snapshotHistoryTail = 100

// ============================================================
// Леджер: внутренние операции над позициями и дневными метриками.
// Все методы *Locked вызываются только под e.mu.
// ============================================================

// dayMetricsLocked возвращает метрики текущего UTC-дня, создавая их лениво
//
// Стартовый баланс дня фиксируется при первом обращении; записи
// прошлых дней никогда не удаляются - они нужны скользящим
// недельным/месячным лимитам.
func (e *Engine) dayMetricsLocked(now time.Time) *models.DailyMetrics {
	key := utils.DayKey(now)
	if m, ok := e.daily[key]; ok {
		return m
	}

	m := &models.DailyMetrics{
		Date:            key,
		StartingBalance: e.currentCapital,
		CurrentBalance:  e.currentCapital,
		RiskLevel:       models.RiskLevelLow,
	}
	e.daily[key] = m
	return m
}

// openPositionLocked создаёт позицию из прошедшего валидацию предложения
func (e *Engine) openPositionLocked(tp *models.TradeProposal, now time.Time) *models.Position {
	e.posSeq++

	p := &models.Position{
		ID:              fmt.Sprintf("%s_%s_%d", tp.Venue, tp.Symbol, e.posSeq),
		Symbol:          tp.Symbol,
		Venue:           tp.Venue,
		Side:            tp.Side,
		EntryPrice:      tp.EntryPrice,
		Quantity:        tp.Quantity,
		StopLoss:        tp.StopLoss,
		TakeProfit:      tp.TakeProfit,
		RiskAmount:      tp.RiskAmount(),
		RewardAmount:    tp.RewardAmount(),
		RiskRewardRatio: tp.RiskRewardRatio(),
		Status:          models.PositionStatusActive,
		CurrentPrice:    tp.EntryPrice,
		OpenedAt:        now,
	}

	e.active[p.ID] = p
	e.dayMetricsLocked(now).TradesCount++

	ActivePositions.Set(float64(len(e.active)))

	return p
}

// applyPriceLocked обновляет позицию новой ценой
//
// Кроме текущего PNL ведутся максимальная благоприятная и
// неблагоприятная экскурсии - они попадают в историю при закрытии.
func (e *Engine) applyPriceLocked(p *models.Position, price float64) {
	p.CurrentPrice = price
	p.UnrealizedPnl = p.PnlAt(price)

	if p.UnrealizedPnl > p.MaxFavorableExcursion {
		p.MaxFavorableExcursion = p.UnrealizedPnl
	}
	if p.UnrealizedPnl < p.MaxAdverseExcursion {
		p.MaxAdverseExcursion = p.UnrealizedPnl
	}
}

// closePositionLocked закрывает позицию по указанной цене
//
// Закрытие атомарно: статус, капитал и дневные метрики меняются
// одним шагом. Возвращает уведомление TRADE_CLOSED для отправки
// после освобождения мьютекса.
func (e *Engine) closePositionLocked(p *models.Position, price float64, reason string, now time.Time) *models.Notification {
	if !CanTransitionPosition(p.Status, models.PositionStatusClosed) {
		return nil
	}

	pnl := p.PnlAt(price)

	p.Status = models.PositionStatusClosed
	p.CurrentPrice = price
	p.UnrealizedPnl = 0
	p.ExitPrice = price
	p.ExitReason = reason
	p.RealizedPnl = pnl
	closedAt := now
	p.ClosedAt = &closedAt

	delete(e.active, p.ID)
	e.closed = append(e.closed, *p)

	e.currentCapital += pnl

	m := e.dayMetricsLocked(now)
	m.RecordClose(pnl)
	m.CurrentBalance = e.currentCapital

	ActivePositions.Set(float64(len(e.active)))
	CurrentCapital.Set(e.currentCapital)
	DailyPnlPercent.Set(m.RealizedPnlPercent)
	RecordClose(p.Symbol, reason, pnl)

	severity := models.SeverityInfo
	if pnl < 0 {
		severity = models.SeverityWarn
	}

	return e.newNotificationLocked(
		models.NotificationTypeTradeClosed, severity, p.ID,
		fmt.Sprintf("position %s closed (%s): pnl %.2f", p.ID, reason, pnl),
		map[string]interface{}{
			"symbol":     p.Symbol,
			"venue":      p.Venue,
			"exit_price": price,
			"reason":     reason,
			"pnl":        pnl,
		},
		now,
	)
}

// updateDrawdownLocked обновляет максимальную просадку текущего дня
//
// Просадка считается от стартового баланса дня по equity
// (капитал + суммарный нереализованный PNL) и только растёт.
func (e *Engine) updateDrawdownLocked(now time.Time) {
	m := e.dayMetricsLocked(now)
	if m.StartingBalance == 0 {
		return
	}

	equity := e.currentCapital
	for _, p := range e.active {
		equity += p.UnrealizedPnl
	}

	drawdown := (m.StartingBalance - equity) / m.StartingBalance * 100
	if drawdown > m.MaxDrawdownPercent {
		m.MaxDrawdownPercent = drawdown
	}
}

// dailyPnlPercentLocked возвращает реализованный PNL текущего дня в процентах
func (e *Engine) dailyPnlPercentLocked(now time.Time) float64 {
	if m, ok := e.daily[utils.DayKey(now)]; ok {
		return m.RealizedPnlPercent
	}
	return 0
}

// windowLossPercentLocked возвращает убыток скользящего окна в процентах
// от начального капитала (положительное значение = убыток)
func (e *Engine) windowLossPercentLocked(now time.Time, days int) float64 {
	if e.initialCapital == 0 {
		return 0
	}

	sum := 0.0
	for key, m := range e.daily {
		if utils.InWindow(key, now, days) {
			sum += m.RealizedPnl
		}
	}

	return -sum / e.initialCapital * 100
}

// newNotificationLocked формирует уведомление со сквозным номером
func (e *Engine) newNotificationLocked(typ, severity, positionID, message string, meta map[string]interface{}, now time.Time) *models.Notification {
	e.notifSeq++
	return &models.Notification{
		ID:         e.notifSeq,
		Timestamp:  now,
		Type:       typ,
		Severity:   severity,
		PositionID: positionID,
		Message:    message,
		Meta:       meta,
	}
}
