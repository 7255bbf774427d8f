package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"riskengine/internal/models"
)

// Persister сохраняет снапшоты состояния движка
//
// Реализуется коллаборатором персистентности (internal/repository
// плюс обёртка-воркер в cmd/server). Вызывается ПОСЛЕ освобождения
// мьютекса движка и обязан быть быстрым: долгие операции выносятся
// в фоновый воркер на стороне реализации.
type Persister interface {
	SaveSnapshot(ctx context.Context, snap *models.EngineSnapshot) error
}

// Dependencies - внешние коллабораторы движка
//
// Все поля опциональны: nil-зависимость просто отключает
// соответствующий побочный эффект (удобно в тестах).
type Dependencies struct {
	Notifications chan *models.Notification
	Persister     Persister
	Logger        *zap.Logger
	Now           func() time.Time // переопределяется в тестах
}

// Engine - ядро риск-движка: валидация сделок, леджер позиций,
// мониторинг выходов, книга ордеров и аварийный стоп
//
// Один агрегат под одним мьютексом: валидация и открытие позиции
// атомарны, гонка двух предложений за последний слот исключена.
// Под мьютексом не выполняется никакого I/O - уведомления и
// снапшоты уходят коллабораторам после разблокировки.
type Engine struct {
	mu sync.Mutex

	policy         models.RiskPolicy
	initialCapital float64
	currentCapital float64

	tradingEnabled bool
	emergencyStop  bool
	closingAll     bool

	active map[string]*models.Position
	closed []models.Position
	daily  map[string]*models.DailyMetrics

	pairs *PairBook

	posSeq   int64
	notifSeq int

	notifications chan *models.Notification
	persister     Persister
	logger        *zap.Logger
	now           func() time.Time
}

// NewEngine создаёт движок с чистым состоянием
func NewEngine(policy models.RiskPolicy, initialCapital float64, deps Dependencies) *Engine {
	e := &Engine{
		policy:         policy,
		initialCapital: initialCapital,
		currentCapital: initialCapital,
		tradingEnabled: true,
		active:         make(map[string]*models.Position),
		daily:          make(map[string]*models.DailyMetrics),
		pairs:          NewPairBook(),
		notifications:  deps.Notifications,
		persister:      deps.Persister,
		logger:         deps.Logger,
		now:            deps.Now,
	}

	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}

	CurrentCapital.Set(e.currentCapital)

	return e
}

// NewEngineFromSnapshot создаёт движок и восстанавливает состояние
// из снапшота (рестарт процесса)
func NewEngineFromSnapshot(policy models.RiskPolicy, snap *models.EngineSnapshot, deps Dependencies) *Engine {
	e := NewEngine(policy, snap.InitialCapital, deps)
	e.restoreSnapshot(snap)
	return e
}

// ============================================================
// Жизненный цикл сделки
// ============================================================

// ProposeTrade валидирует предложение и при успехе атомарно открывает позицию
//
// Отклонение - ожидаемый результат, а не ошибка: вызывающий код
// ветвится по TradeResult.Accepted.
func (e *Engine) ProposeTrade(tp *models.TradeProposal) models.TradeResult {
	e.mu.Lock()
	now := e.now()

	verdict := validateProposal(e.policy, e.viewLocked(now), tp)
	if !verdict.Accepted {
		e.mu.Unlock()

		RecordRejection(verdict.Code)
		e.logger.Info("trade rejected",
			zap.String("symbol", tp.Symbol),
			zap.String("reason", verdict.Reason))

		return models.TradeResult{Accepted: false, Reason: verdict.Reason}
	}

	p := e.openPositionLocked(tp, now)
	position := *p

	notif := e.newNotificationLocked(
		models.NotificationTypeTradeOpened, models.SeverityInfo, p.ID,
		fmt.Sprintf("position %s opened: %s %s %.8g @ %.8g", p.ID, p.Side, p.Symbol, p.Quantity, p.EntryPrice),
		map[string]interface{}{
			"symbol":      p.Symbol,
			"venue":       p.Venue,
			"side":        p.Side,
			"entry_price": p.EntryPrice,
			"quantity":    p.Quantity,
			"risk_amount": p.RiskAmount,
		},
		now,
	)
	snap := e.buildSnapshotLocked(now)
	e.mu.Unlock()

	TradesAccepted.WithLabelValues(tp.Symbol).Inc()
	e.logger.Info("trade accepted",
		zap.String("position_id", position.ID),
		zap.String("symbol", position.Symbol),
		zap.Float64("risk_amount", position.RiskAmount))

	e.flush([]*models.Notification{notif}, snap)

	return models.TradeResult{Accepted: true, Reason: verdict.Reason, Position: &position}
}

// viewLocked снимает срез состояния для чистой валидации
func (e *Engine) viewLocked(now time.Time) ledgerView {
	open := make([]openPosition, 0, len(e.active))
	for _, p := range e.active {
		open = append(open, openPosition{Symbol: p.Symbol, Venue: p.Venue})
	}

	return ledgerView{
		TradingEnabled:  e.tradingEnabled,
		EmergencyStop:   e.emergencyStop,
		CurrentCapital:  e.currentCapital,
		DailyPnlPercent: e.dailyPnlPercentLocked(now),
		Open:            open,
	}
}

// OnPriceUpdate обрабатывает обновление цены символа
//
// Один проход: обновление позиций, проверка выходов (стоп-лосс
// раньше тейк-профита), трейлинг-стопы и OCO-триггеры книги ордеров,
// затем агрегатные лимиты, если были закрытия.
func (e *Engine) OnPriceUpdate(symbol string, price float64) {
	start := time.Now()

	e.mu.Lock()
	now := e.now()

	var pending []*models.Notification
	closedAny := false

	// Позиции символа: собираем заранее, закрытие мутирует e.active
	var matched []*models.Position
	for _, p := range e.active {
		if p.Symbol == symbol {
			matched = append(matched, p)
		}
	}

	for _, p := range matched {
		e.applyPriceLocked(p, price)

		if reason, ok := exitReason(p, price); ok {
			if n := e.closePositionLocked(p, price, reason, now); n != nil {
				pending = append(pending, n)
				closedAny = true
			}
		}
	}

	// Книга ордеров: трейлинг двигается первым, затем OCO-триггеры
	for _, o := range e.pairs.UpdateTrailingStops(symbol, price) {
		if err := e.pairs.Fill(o.ID, price, now); err == nil {
			pending = append(pending, e.orderFilledNotificationLocked(o, price, now))
		}
	}
	for _, o := range e.pairs.CheckTriggers(symbol, price) {
		if err := e.pairs.Fill(o.ID, price, now); err == nil {
			pending = append(pending, e.orderFilledNotificationLocked(o, price, now))
		}
	}

	e.updateDrawdownLocked(now)

	if closedAny {
		pending = append(pending, e.checkEmergencyLocked(now)...)
	}

	var snap *models.EngineSnapshot
	if len(matched) > 0 || len(pending) > 0 {
		snap = e.buildSnapshotLocked(now)
	}
	e.mu.Unlock()

	PriceUpdateLatency.WithLabelValues(symbol).Observe(float64(time.Since(start).Microseconds()) / 1000)

	e.flush(pending, snap)
}

// ClosePosition закрывает позицию вручную по указанной цене
func (e *Engine) ClosePosition(positionID string, price float64) (*models.Position, error) {
	e.mu.Lock()
	now := e.now()

	p, ok := e.active[positionID]
	if !ok {
		e.mu.Unlock()
		return nil, ErrPositionNotFound
	}

	var pending []*models.Notification
	if n := e.closePositionLocked(p, price, models.ExitReasonManual, now); n != nil {
		pending = append(pending, n)
	}
	pending = append(pending, e.checkEmergencyLocked(now)...)

	closed := *p
	snap := e.buildSnapshotLocked(now)
	e.mu.Unlock()

	e.logger.Info("position closed manually",
		zap.String("position_id", closed.ID),
		zap.Float64("exit_price", price),
		zap.Float64("pnl", closed.RealizedPnl))

	e.flush(pending, snap)

	return &closed, nil
}

// ============================================================
// Книга ордеров
// ============================================================

// CreateOrderPair создаёт OCO-пару take-profit + stop-loss
func (e *Engine) CreateOrderPair(symbol, side string, quantity, takeProfit, stopLoss float64) (string, error) {
	if side != models.SideLong && side != models.SideShort {
		return "", fmt.Errorf("invalid side %q", side)
	}
	if quantity <= 0 || takeProfit <= 0 || stopLoss <= 0 {
		return "", fmt.Errorf("quantity and trigger prices must be positive")
	}

	e.mu.Lock()
	now := e.now()
	parentID, _, _ := e.pairs.CreatePair(symbol, side, quantity, takeProfit, stopLoss, now)
	snap := e.buildSnapshotLocked(now)
	e.mu.Unlock()

	e.logger.Info("order pair created",
		zap.String("parent_id", parentID),
		zap.String("symbol", symbol))

	e.flush(nil, snap)

	return parentID, nil
}

// CreateTrailingStop создаёт трейлинг-стоп от текущей цены
func (e *Engine) CreateTrailingStop(symbol, side string, quantity, trailPercent, currentPrice float64) (string, error) {
	if side != models.SideLong && side != models.SideShort {
		return "", fmt.Errorf("invalid side %q", side)
	}
	if quantity <= 0 || currentPrice <= 0 {
		return "", fmt.Errorf("quantity and price must be positive")
	}
	if trailPercent <= 0 || trailPercent >= 100 {
		return "", fmt.Errorf("trail percent must be in (0, 100)")
	}

	e.mu.Lock()
	now := e.now()
	order := e.pairs.CreateTrailingStop(symbol, side, quantity, trailPercent, currentPrice, now)
	snap := e.buildSnapshotLocked(now)
	e.mu.Unlock()

	e.logger.Info("trailing stop created",
		zap.String("order_id", order.ID),
		zap.String("symbol", symbol),
		zap.Float64("trail_percent", trailPercent))

	e.flush(nil, snap)

	return order.ID, nil
}

// CancelOrder отменяет pending-ордер выхода
func (e *Engine) CancelOrder(orderID string) error {
	e.mu.Lock()
	err := e.pairs.Cancel(orderID)
	e.mu.Unlock()
	return err
}

// Orders возвращает копии всех ордеров книги
func (e *Engine) Orders() []models.ExitOrder {
	e.mu.Lock()
	defer e.mu.Unlock()

	orders := e.pairs.Orders()
	sort.Slice(orders, func(i, j int) bool { return orders[i].ID < orders[j].ID })
	return orders
}

// orderFilledNotificationLocked формирует уведомление об исполнении ордера
func (e *Engine) orderFilledNotificationLocked(o *models.ExitOrder, price float64, now time.Time) *models.Notification {
	return e.newNotificationLocked(
		models.NotificationTypeOrderFilled, models.SeverityInfo, "",
		fmt.Sprintf("order %s (%s) filled at %.8g", o.ID, o.Kind, price),
		map[string]interface{}{
			"order_id":   o.ID,
			"parent_id":  o.ParentID,
			"symbol":     o.Symbol,
			"kind":       o.Kind,
			"fill_price": price,
		},
		now,
	)
}

// ============================================================
// Управление торговлей
// ============================================================

// ResumeTrading снимает аварийный стоп и разрешает торговлю
//
// Единственный способ выйти из аварийного состояния - явное
// действие оператора.
func (e *Engine) ResumeTrading() {
	e.mu.Lock()
	now := e.now()
	e.tradingEnabled = true
	e.emergencyStop = false
	snap := e.buildSnapshotLocked(now)
	e.mu.Unlock()

	e.logger.Warn("trading resumed by operator")

	e.flush(nil, snap)
}

// PauseTrading запрещает новые сделки, не трогая открытые позиции
func (e *Engine) PauseTrading() {
	e.mu.Lock()
	now := e.now()
	e.tradingEnabled = false
	snap := e.buildSnapshotLocked(now)
	e.mu.Unlock()

	e.logger.Warn("trading paused by operator")

	e.flush(nil, snap)
}

// ============================================================
// Чтение состояния
// ============================================================

// Summary возвращает сводку состояния риск-движка
func (e *Engine) Summary() models.RiskSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	m := e.dayMetricsLocked(now)

	wins, total := 0, len(e.closed)
	sumRatio := 0.0
	for i := range e.closed {
		if e.closed[i].RealizedPnl > 0 {
			wins++
		}
		sumRatio += e.closed[i].RiskRewardRatio
	}

	winRate, avgRatio := 0.0, 0.0
	if total > 0 {
		winRate = float64(wins) / float64(total) * 100
		avgRatio = sumRatio / float64(total)
	}

	totalReturn := 0.0
	if e.initialCapital > 0 {
		totalReturn = (e.currentCapital - e.initialCapital) / e.initialCapital * 100
	}

	return models.RiskSummary{
		CurrentCapital:     e.currentCapital,
		InitialCapital:     e.initialCapital,
		TotalReturnPercent: totalReturn,
		ActivePositions:    len(e.active),
		MaxPositions:       e.policy.MaxOpenPositions,
		DailyPnl:           m.RealizedPnl,
		DailyPnlPercent:    m.RealizedPnlPercent,
		MaxDailyLossLimit:  e.policy.MaxDailyLossPercent,
		WeeklyLossPercent:  e.windowLossPercentLocked(now, 7),
		MonthlyLossPercent: e.windowLossPercentLocked(now, 30),
		RiskLevel:          models.RiskLevelFor(m.RealizedPnlPercent),
		TradingEnabled:     e.tradingEnabled,
		EmergencyStop:      e.emergencyStop,
		WinRatePercent:     winRate,
		AvgRiskRewardRatio: avgRatio,
	}
}

// ActivePositionList возвращает копии активных позиций
func (e *Engine) ActivePositionList() []models.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.Position, 0, len(e.active))
	for _, p := range e.active {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ClosedPositionList возвращает копию истории закрытых позиций
func (e *Engine) ClosedPositionList() []models.Position {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]models.Position(nil), e.closed...)
}

// Position возвращает копию позиции по ID (активной или закрытой)
func (e *Engine) Position(positionID string) (models.Position, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if p, ok := e.active[positionID]; ok {
		return *p, true
	}
	for i := range e.closed {
		if e.closed[i].ID == positionID {
			return e.closed[i], true
		}
	}
	return models.Position{}, false
}

// DailyMetricsList возвращает копии дневных метрик, отсортированные по дате
func (e *Engine) DailyMetricsList() []models.DailyMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.DailyMetrics, 0, len(e.daily))
	for _, m := range e.daily {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Snapshot возвращает сериализуемый срез состояния движка
func (e *Engine) Snapshot() *models.EngineSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.buildSnapshotLocked(e.now())
}

// ============================================================
// Побочные эффекты после разблокировки
// ============================================================

// flush отправляет накопленные уведомления и снапшот коллабораторам
//
// Вызывается строго ПОСЛЕ e.mu.Unlock().
func (e *Engine) flush(pending []*models.Notification, snap *models.EngineSnapshot) {
	for _, n := range pending {
		if !offerNotification(e.notifications, n) && e.notifications != nil {
			e.logger.Warn("notification dropped: buffer full",
				zap.String("type", n.Type))
		}
	}

	if snap != nil && e.persister != nil {
		if err := e.persister.SaveSnapshot(context.Background(), snap); err != nil {
			e.logger.Error("snapshot save failed", zap.Error(err))
		}
	}
}
