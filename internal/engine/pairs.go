package engine

import (
	"errors"
	"fmt"
	"time"

	"riskengine/internal/models"
)

var ErrOrderNotFound = errors.New("order not found")

// PairBook - координатор ордеров выхода: OCO-пары и трейлинг-стопы
//
// НЕ синхронизируется самостоятельно: все методы вызываются движком
// под его мьютексом. Пара живёт, пока хотя бы один из её ордеров
// не терминален; после этого запись пары удаляется, сами ордера
// остаются в истории книги.
type PairBook struct {
	orders   map[string]*models.ExitOrder
	pairs    map[string][]string                  // parentID → IDs дочерних ордеров
	trailing map[string]*models.TrailingStopOrder // orderID → состояние трейлинга

	pairSeq  int64
	trailSeq int64
}

// NewPairBook создаёт пустую книгу ордеров
func NewPairBook() *PairBook {
	return &PairBook{
		orders:   make(map[string]*models.ExitOrder),
		pairs:    make(map[string][]string),
		trailing: make(map[string]*models.TrailingStopOrder),
	}
}

// CreatePair создаёт OCO-пару take-profit + stop-loss
//
// side - сторона ЗАКРЫВАЕМОЙ позиции (long/short); сторона ордеров
// противоположна: long закрывается продажей, short - покупкой.
func (b *PairBook) CreatePair(symbol, side string, quantity, takeProfit, stopLoss float64, now time.Time) (string, *models.ExitOrder, *models.ExitOrder) {
	b.pairSeq++
	parentID := fmt.Sprintf("OCO_%d", b.pairSeq)

	orderSide := models.OrderSideSell
	if side == models.SideShort {
		orderSide = models.OrderSideBuy
	}

	tp := &models.ExitOrder{
		ID:           parentID + "_TP",
		ParentID:     parentID,
		Symbol:       symbol,
		Side:         orderSide,
		Kind:         models.OrderKindTakeProfit,
		Quantity:     quantity,
		TriggerPrice: takeProfit,
		Status:       models.OrderStatusPending,
		CreatedAt:    now,
	}
	sl := &models.ExitOrder{
		ID:           parentID + "_SL",
		ParentID:     parentID,
		Symbol:       symbol,
		Side:         orderSide,
		Kind:         models.OrderKindStopLoss,
		Quantity:     quantity,
		TriggerPrice: stopLoss,
		Status:       models.OrderStatusPending,
		CreatedAt:    now,
	}

	b.orders[tp.ID] = tp
	b.orders[sl.ID] = sl
	b.pairs[parentID] = []string{tp.ID, sl.ID}

	return parentID, tp, sl
}

// CreateTrailingStop создаёт трейлинг-стоп от текущей цены
//
// Long:  stop = watermark × (1 − trail/100), watermark только растёт
// Short: stop = watermark × (1 + trail/100), watermark только падает
func (b *PairBook) CreateTrailingStop(symbol, side string, quantity, trailPercent, currentPrice float64, now time.Time) *models.ExitOrder {
	b.trailSeq++
	id := fmt.Sprintf("TRAIL_%d", b.trailSeq)

	orderSide := models.OrderSideSell
	stopPrice := currentPrice * (1 - trailPercent/100)
	if side == models.SideShort {
		orderSide = models.OrderSideBuy
		stopPrice = currentPrice * (1 + trailPercent/100)
	}

	order := &models.ExitOrder{
		ID:           id,
		Symbol:       symbol,
		Side:         orderSide,
		Kind:         models.OrderKindTrailingStop,
		Quantity:     quantity,
		TriggerPrice: stopPrice,
		Status:       models.OrderStatusPending,
		CreatedAt:    now,
	}

	b.orders[id] = order
	b.trailing[id] = &models.TrailingStopOrder{
		OrderID:      id,
		Symbol:       symbol,
		Side:         side,
		Quantity:     quantity,
		TrailPercent: trailPercent,
		Watermark:    currentPrice,
		StopPrice:    stopPrice,
	}

	return order
}

// Fill исполняет ордер по указанной цене и отменяет pending-сиблинга
func (b *PairBook) Fill(orderID string, price float64, now time.Time) error {
	order, ok := b.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if !CanTransitionOrder(order.Status, models.OrderStatusFilled) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, order.Status, models.OrderStatusFilled)
	}

	order.Status = models.OrderStatusFilled
	order.FillPrice = price
	filledAt := now
	order.FilledAt = &filledAt

	OrdersFilled.WithLabelValues(order.Kind).Inc()

	delete(b.trailing, orderID)

	if order.ParentID != "" {
		b.cancelSiblings(order)
		b.gcPair(order.ParentID)
	}

	return nil
}

// Cancel отменяет pending-ордер
func (b *PairBook) Cancel(orderID string) error {
	order, ok := b.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	if !CanTransitionOrder(order.Status, models.OrderStatusCancelled) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, order.Status, models.OrderStatusCancelled)
	}

	order.Status = models.OrderStatusCancelled
	OrdersCancelled.Inc()

	delete(b.trailing, orderID)

	if order.ParentID != "" {
		b.gcPair(order.ParentID)
	}

	return nil
}

// cancelSiblings отменяет pending-ордера той же OCO-пары
func (b *PairBook) cancelSiblings(filled *models.ExitOrder) {
	for _, id := range b.pairs[filled.ParentID] {
		if id == filled.ID {
			continue
		}
		sibling, ok := b.orders[id]
		if !ok || sibling.Status != models.OrderStatusPending {
			continue
		}
		sibling.Status = models.OrderStatusCancelled
		OrdersCancelled.Inc()
	}
}

// gcPair удаляет запись пары, когда все её ордера терминальны
func (b *PairBook) gcPair(parentID string) {
	ids, ok := b.pairs[parentID]
	if !ok {
		return
	}
	for _, id := range ids {
		if o, ok := b.orders[id]; ok && !o.IsTerminal() {
			return
		}
	}
	delete(b.pairs, parentID)
}

// CheckTriggers возвращает pending-ордера, сработавшие при данной цене
//
// Stop-loss ордера идут первыми: при гэпе через оба уровня OCO-пары
// исполняется защитный ордер, take-profit отменяется как сиблинг.
func (b *PairBook) CheckTriggers(symbol string, price float64) []*models.ExitOrder {
	var stops, takes []*models.ExitOrder

	for _, o := range b.orders {
		if o.Symbol != symbol || o.Status != models.OrderStatusPending {
			continue
		}
		if o.Kind == models.OrderKindTrailingStop {
			continue // трейлинг обрабатывается в UpdateTrailingStops
		}
		if !orderTriggered(o, price) {
			continue
		}
		if o.Kind == models.OrderKindStopLoss {
			stops = append(stops, o)
		} else {
			takes = append(takes, o)
		}
	}

	return append(stops, takes...)
}

// orderTriggered проверяет срабатывание триггера с учётом стороны ордера
//
// Sell take-profit срабатывает сверху, sell stop-loss - снизу;
// для buy-ордеров (выход из short) условия зеркальны.
func orderTriggered(o *models.ExitOrder, price float64) bool {
	if o.Side == models.OrderSideBuy {
		if o.Kind == models.OrderKindStopLoss {
			return price >= o.TriggerPrice
		}
		return price <= o.TriggerPrice
	}

	if o.Kind == models.OrderKindStopLoss {
		return price <= o.TriggerPrice
	}
	return price >= o.TriggerPrice
}

// UpdateTrailingStops подтягивает watermark трейлинг-стопов символа
// и возвращает сработавшие ордера
//
// Стоп пересчитывается только при улучшении watermark, поэтому
// движется строго в защитную сторону.
func (b *PairBook) UpdateTrailingStops(symbol string, price float64) []*models.ExitOrder {
	var triggered []*models.ExitOrder

	for id, ts := range b.trailing {
		if ts.Symbol != symbol {
			continue
		}
		order, ok := b.orders[id]
		if !ok || order.Status != models.OrderStatusPending {
			continue
		}

		if ts.Side == models.SideShort {
			if price < ts.Watermark {
				ts.Watermark = price
				ts.StopPrice = price * (1 + ts.TrailPercent/100)
				order.TriggerPrice = ts.StopPrice
			}
			if price >= ts.StopPrice {
				triggered = append(triggered, order)
			}
			continue
		}

		if price > ts.Watermark {
			ts.Watermark = price
			ts.StopPrice = price * (1 - ts.TrailPercent/100)
			order.TriggerPrice = ts.StopPrice
		}
		if price <= ts.StopPrice {
			triggered = append(triggered, order)
		}
	}

	return triggered
}

// Order возвращает ордер по ID
func (b *PairBook) Order(orderID string) (*models.ExitOrder, bool) {
	o, ok := b.orders[orderID]
	return o, ok
}

// Orders возвращает копии всех ордеров книги
func (b *PairBook) Orders() []models.ExitOrder {
	out := make([]models.ExitOrder, 0, len(b.orders))
	for _, o := range b.orders {
		out = append(out, *o)
	}
	return out
}

// PendingCount возвращает количество pending-ордеров
func (b *PairBook) PendingCount() int {
	n := 0
	for _, o := range b.orders {
		if o.Status == models.OrderStatusPending {
			n++
		}
	}
	return n
}

// TrailingState возвращает копию состояния трейлинг-стопа
func (b *PairBook) TrailingState(orderID string) (models.TrailingStopOrder, bool) {
	ts, ok := b.trailing[orderID]
	if !ok {
		return models.TrailingStopOrder{}, false
	}
	return *ts, true
}
