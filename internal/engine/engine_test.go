package engine

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"riskengine/internal/models"
)

var engineNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestEngine(policy models.RiskPolicy, capital float64) *Engine {
	return NewEngine(policy, capital, Dependencies{
		Now: func() time.Time { return engineNow },
	})
}

func looseRiskPolicy() models.RiskPolicy {
	// Лимит риска на сделку ослаблен, чтобы тесты могли открывать
	// позиции с заметным убытком при закрытии
	p := testPolicy()
	p.MaxRiskPerTradePercent = 10
	p.MaxDailyLossPercent = 10
	return p
}

func mustOpen(t *testing.T, e *Engine, tp *models.TradeProposal) *models.Position {
	t.Helper()
	res := e.ProposeTrade(tp)
	if !res.Accepted {
		t.Fatalf("proposal rejected: %s", res.Reason)
	}
	return res.Position
}

func TestProposeTradeOpensPosition(t *testing.T) {
	e := newTestEngine(testPolicy(), 50000)

	p := mustOpen(t, e, validProposal())

	if p.ID == "" {
		t.Fatal("position id is empty")
	}
	if p.Status != models.PositionStatusActive {
		t.Errorf("status = %q, want active", p.Status)
	}
	if math.Abs(p.RiskAmount-30) > 1e-9 {
		t.Errorf("risk amount = %v, want 30", p.RiskAmount)
	}
	if math.Abs(p.RiskRewardRatio-1.5) > 1e-9 {
		t.Errorf("risk/reward = %v, want 1.5", p.RiskRewardRatio)
	}

	active := e.ActivePositionList()
	if len(active) != 1 || active[0].ID != p.ID {
		t.Fatalf("active = %v", active)
	}
}

func TestProposeTradeRejectionLeavesNoTrace(t *testing.T) {
	e := newTestEngine(testPolicy(), 50000)

	tp := validProposal()
	tp.TakeProfit = 47000 // ratio 1.33 < 1.5
	res := e.ProposeTrade(tp)

	if res.Accepted {
		t.Fatal("expected rejection")
	}
	if res.Position != nil {
		t.Error("rejected proposal must not carry a position")
	}
	if len(e.ActivePositionList()) != 0 {
		t.Error("rejected proposal must not open a position")
	}

	summary := e.Summary()
	if summary.CurrentCapital != 50000 {
		t.Errorf("capital changed on rejection: %v", summary.CurrentCapital)
	}
}

func TestStopLossClosesPosition(t *testing.T) {
	e := newTestEngine(testPolicy(), 50000)
	p := mustOpen(t, e, validProposal())

	e.OnPriceUpdate("BTCUSDT", 43500)

	if len(e.ActivePositionList()) != 0 {
		t.Fatal("position still active after stop hit")
	}

	closed := e.ClosedPositionList()
	if len(closed) != 1 {
		t.Fatalf("closed = %d, want 1", len(closed))
	}
	got := closed[0]
	if got.ID != p.ID {
		t.Errorf("closed id = %q, want %q", got.ID, p.ID)
	}
	if got.ExitReason != models.ExitReasonStopLoss {
		t.Errorf("exit reason = %q, want stop_loss", got.ExitReason)
	}
	if math.Abs(got.RealizedPnl-(-30)) > 1e-9 {
		t.Errorf("pnl = %v, want -30", got.RealizedPnl)
	}
	if got.ClosedAt == nil {
		t.Error("closed position must have ClosedAt")
	}

	summary := e.Summary()
	if math.Abs(summary.CurrentCapital-49970) > 1e-9 {
		t.Errorf("capital = %v, want 49970", summary.CurrentCapital)
	}
	if math.Abs(summary.DailyPnl-(-30)) > 1e-9 {
		t.Errorf("daily pnl = %v, want -30", summary.DailyPnl)
	}
}

func TestGapThroughBothLevelsClosesAsStopLoss(t *testing.T) {
	e := newTestEngine(testPolicy(), 50000)
	mustOpen(t, e, validProposal())

	// Гэп сквозь стоп: цена сразу глубоко под уровнем
	e.OnPriceUpdate("BTCUSDT", 40000)

	closed := e.ClosedPositionList()
	if len(closed) != 1 {
		t.Fatalf("closed = %d, want 1", len(closed))
	}
	if closed[0].ExitReason != models.ExitReasonStopLoss {
		t.Errorf("exit reason = %q, want stop_loss", closed[0].ExitReason)
	}
	// Закрытие по фактической цене, не по уровню стопа
	if closed[0].ExitPrice != 40000 {
		t.Errorf("exit price = %v, want 40000", closed[0].ExitPrice)
	}
}

func TestTakeProfitClosesShort(t *testing.T) {
	e := newTestEngine(testPolicy(), 50000)
	mustOpen(t, e, &models.TradeProposal{
		Symbol:     "ETHUSDT",
		Venue:      "okx",
		Side:       models.SideShort,
		EntryPrice: 3000,
		Quantity:   0.5,
		StopLoss:   3100,
		TakeProfit: 2800,
	})

	e.OnPriceUpdate("ETHUSDT", 2800)

	closed := e.ClosedPositionList()
	if len(closed) != 1 {
		t.Fatalf("closed = %d, want 1", len(closed))
	}
	if closed[0].ExitReason != models.ExitReasonTakeProfit {
		t.Errorf("exit reason = %q, want take_profit", closed[0].ExitReason)
	}
	if math.Abs(closed[0].RealizedPnl-100) > 1e-9 {
		t.Errorf("pnl = %v, want 100", closed[0].RealizedPnl)
	}
}

func TestPriceUpdateTracksExcursions(t *testing.T) {
	e := newTestEngine(testPolicy(), 50000)
	p := mustOpen(t, e, validProposal())

	e.OnPriceUpdate("BTCUSDT", 46000) // +20
	e.OnPriceUpdate("BTCUSDT", 44000) // -20
	e.OnPriceUpdate("BTCUSDT", 45500) // +10

	got, ok := e.Position(p.ID)
	if !ok {
		t.Fatal("position not found")
	}
	if math.Abs(got.MaxFavorableExcursion-20) > 1e-9 {
		t.Errorf("MFE = %v, want 20", got.MaxFavorableExcursion)
	}
	if math.Abs(got.MaxAdverseExcursion-(-20)) > 1e-9 {
		t.Errorf("MAE = %v, want -20", got.MaxAdverseExcursion)
	}
	if math.Abs(got.UnrealizedPnl-10) > 1e-9 {
		t.Errorf("unrealized = %v, want 10", got.UnrealizedPnl)
	}
}

func TestPriceUpdateIgnoresOtherSymbols(t *testing.T) {
	e := newTestEngine(testPolicy(), 50000)
	p := mustOpen(t, e, validProposal())

	e.OnPriceUpdate("ETHUSDT", 1) // чужой символ, гэп в пол

	got, ok := e.Position(p.ID)
	if !ok || got.Status != models.PositionStatusActive {
		t.Fatal("position must remain active")
	}
	if got.CurrentPrice != 45000 {
		t.Errorf("price = %v, want untouched 45000", got.CurrentPrice)
	}
}

func TestManualClose(t *testing.T) {
	e := newTestEngine(testPolicy(), 50000)
	p := mustOpen(t, e, validProposal())

	closed, err := e.ClosePosition(p.ID, 46000)
	if err != nil {
		t.Fatalf("ClosePosition() error: %v", err)
	}
	if closed.ExitReason != models.ExitReasonManual {
		t.Errorf("exit reason = %q, want manual", closed.ExitReason)
	}
	if math.Abs(closed.RealizedPnl-20) > 1e-9 {
		t.Errorf("pnl = %v, want 20", closed.RealizedPnl)
	}

	if _, err := e.ClosePosition(p.ID, 46000); !errors.Is(err, ErrPositionNotFound) {
		t.Errorf("second close: err = %v, want ErrPositionNotFound", err)
	}
}

func TestEmergencyStopOnDailyLoss(t *testing.T) {
	e := newTestEngine(looseRiskPolicy(), 10000)

	// Две независимые позиции (разные символы и площадки - нулевая корреляция)
	big := mustOpen(t, e, &models.TradeProposal{
		Symbol: "BTCUSDT", Venue: "binance", Side: models.SideLong,
		EntryPrice: 100, Quantity: 40, StopLoss: 90, TakeProfit: 120,
	})
	other := mustOpen(t, e, &models.TradeProposal{
		Symbol: "SOLUSDT", Venue: "okx", Side: models.SideLong,
		EntryPrice: 50, Quantity: 10, StopLoss: 45, TakeProfit: 60,
	})

	// Ручное закрытие с убытком -2000 (20% дня) пробивает дневной лимит
	if _, err := e.ClosePosition(big.ID, 50); err != nil {
		t.Fatalf("ClosePosition() error: %v", err)
	}

	summary := e.Summary()
	if !summary.EmergencyStop {
		t.Fatal("emergency stop must be active")
	}
	if summary.TradingEnabled {
		t.Error("trading must be disabled")
	}
	if summary.ActivePositions != 0 {
		t.Errorf("active = %d, want 0 (force-closed)", summary.ActivePositions)
	}

	// Вторая позиция закрыта принудительно по текущей цене
	got, _ := e.Position(other.ID)
	if got.ExitReason != models.ExitReasonEmergencyStop {
		t.Errorf("forced exit reason = %q, want emergency_stop", got.ExitReason)
	}

	// Новые предложения отклоняются статусной проверкой
	res := e.ProposeTrade(validProposal())
	if res.Accepted {
		t.Fatal("proposal accepted during emergency stop")
	}
	if res.Reason != "trading is currently disabled" {
		t.Errorf("reason = %q", res.Reason)
	}
}

func TestEmergencyStopOnDailyGain(t *testing.T) {
	// Дневной лимит сравнивается с |PNL%|: аномально прибыльный день
	// останавливает торговлю так же, как убыточный
	e := newTestEngine(looseRiskPolicy(), 10000)

	p := mustOpen(t, e, &models.TradeProposal{
		Symbol: "BTCUSDT", Venue: "binance", Side: models.SideLong,
		EntryPrice: 100, Quantity: 40, StopLoss: 90, TakeProfit: 120,
	})

	// +2000 (20% дня) при лимите 10%
	if _, err := e.ClosePosition(p.ID, 150); err != nil {
		t.Fatalf("ClosePosition() error: %v", err)
	}

	summary := e.Summary()
	if !summary.EmergencyStop {
		t.Fatal("emergency stop must trigger on a gain day too")
	}
	if summary.TradingEnabled {
		t.Error("trading must be disabled")
	}
}

func TestEmergencyStopCancelsPendingOrders(t *testing.T) {
	e := newTestEngine(looseRiskPolicy(), 10000)

	big := mustOpen(t, e, &models.TradeProposal{
		Symbol: "BTCUSDT", Venue: "binance", Side: models.SideLong,
		EntryPrice: 100, Quantity: 40, StopLoss: 90, TakeProfit: 120,
	})
	if _, err := e.CreateOrderPair("ETHUSDT", models.SideLong, 1, 120, 90); err != nil {
		t.Fatalf("CreateOrderPair() error: %v", err)
	}

	if _, err := e.ClosePosition(big.ID, 50); err != nil {
		t.Fatalf("ClosePosition() error: %v", err)
	}

	for _, o := range e.Orders() {
		if o.Status == models.OrderStatusPending {
			t.Errorf("order %s still pending after emergency stop", o.ID)
		}
	}
}

func TestResumeTradingAfterEmergency(t *testing.T) {
	e := newTestEngine(looseRiskPolicy(), 10000)

	big := mustOpen(t, e, &models.TradeProposal{
		Symbol: "BTCUSDT", Venue: "binance", Side: models.SideLong,
		EntryPrice: 100, Quantity: 40, StopLoss: 90, TakeProfit: 120,
	})
	if _, err := e.ClosePosition(big.ID, 50); err != nil {
		t.Fatalf("ClosePosition() error: %v", err)
	}
	if !e.Summary().EmergencyStop {
		t.Fatal("precondition: emergency stop active")
	}

	e.ResumeTrading()

	summary := e.Summary()
	if summary.EmergencyStop || !summary.TradingEnabled {
		t.Fatal("resume must clear emergency state and enable trading")
	}

	// Дневной убыток уже велик: прогноз дневного лимита всё ещё режет сделки
	res := e.ProposeTrade(&models.TradeProposal{
		Symbol: "ADAUSDT", Venue: "kraken", Side: models.SideLong,
		EntryPrice: 1, Quantity: 100, StopLoss: 0.9, TakeProfit: 1.2,
	})
	if res.Accepted {
		t.Error("deep daily loss must still reject via daily projection")
	}
}

func TestPauseTrading(t *testing.T) {
	e := newTestEngine(testPolicy(), 50000)

	e.PauseTrading()
	res := e.ProposeTrade(validProposal())
	if res.Accepted || res.Reason != "trading is currently disabled" {
		t.Fatalf("got %v %q", res.Accepted, res.Reason)
	}

	e.ResumeTrading()
	if res := e.ProposeTrade(validProposal()); !res.Accepted {
		t.Fatalf("after resume: %s", res.Reason)
	}
}

func TestWeeklyLimitFromRestoredHistory(t *testing.T) {
	// История прошлых дней с накопленным недельным убытком
	snap := &models.EngineSnapshot{
		Timestamp:      engineNow.AddDate(0, 0, -1),
		InitialCapital: 10000,
		CurrentCapital: 8500,
		TradingEnabled: true,
		DailyMetrics: map[string]*models.DailyMetrics{
			"2026-03-08": {Date: "2026-03-08", StartingBalance: 10000, RealizedPnl: -800},
			"2026-03-09": {Date: "2026-03-09", StartingBalance: 9200, RealizedPnl: -700},
		},
	}

	e := NewEngineFromSnapshot(looseRiskPolicy(), snap, Dependencies{
		Now: func() time.Time { return engineNow },
	})

	p := mustOpen(t, e, &models.TradeProposal{
		Symbol: "BTCUSDT", Venue: "binance", Side: models.SideLong,
		EntryPrice: 100, Quantity: 10, StopLoss: 95, TakeProfit: 110,
	})

	// Небольшой убыток дотягивает скользящую неделю до 15%
	if _, err := e.ClosePosition(p.ID, 99); err != nil {
		t.Fatalf("ClosePosition() error: %v", err)
	}

	if !e.Summary().EmergencyStop {
		t.Error("weekly trailing loss must trigger emergency stop")
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	e := newTestEngine(testPolicy(), 50000)
	p := mustOpen(t, e, validProposal())
	e.OnPriceUpdate("BTCUSDT", 46000)

	snap := e.Snapshot()
	if snap.CurrentCapital != 50000 {
		t.Errorf("snapshot capital = %v, want 50000", snap.CurrentCapital)
	}
	if len(snap.ActivePositions) != 1 {
		t.Fatalf("snapshot active = %d, want 1", len(snap.ActivePositions))
	}

	restored := NewEngineFromSnapshot(testPolicy(), snap, Dependencies{
		Now: func() time.Time { return engineNow },
	})

	got, ok := restored.Position(p.ID)
	if !ok {
		t.Fatal("restored engine lost the position")
	}
	if got.CurrentPrice != 46000 {
		t.Errorf("restored price = %v, want 46000", got.CurrentPrice)
	}

	// Нумерация позиций продолжается, ID не повторяются
	tp := validProposal()
	tp.Symbol = "LTCUSDT"
	tp.Venue = "kraken"
	tp.EntryPrice = 45000
	next := mustOpen(t, restored, tp)
	if next.ID == p.ID {
		t.Errorf("position id reused after restore: %q", next.ID)
	}
}

func TestNotificationsEmitted(t *testing.T) {
	ch := make(chan *models.Notification, 16)
	e := NewEngine(testPolicy(), 50000, Dependencies{
		Notifications: ch,
		Now:           func() time.Time { return engineNow },
	})

	mustOpen(t, e, validProposal())
	e.OnPriceUpdate("BTCUSDT", 43500)

	var types []string
	for len(ch) > 0 {
		types = append(types, (<-ch).Type)
	}

	if len(types) != 2 {
		t.Fatalf("notifications = %v, want opened + closed", types)
	}
	if types[0] != models.NotificationTypeTradeOpened || types[1] != models.NotificationTypeTradeClosed {
		t.Errorf("types = %v", types)
	}
}

type recordingPersister struct {
	mu    sync.Mutex
	saves []*models.EngineSnapshot
}

func (r *recordingPersister) SaveSnapshot(_ context.Context, snap *models.EngineSnapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, snap)
	return nil
}

func TestPersisterCalledAfterStateChanges(t *testing.T) {
	rp := &recordingPersister{}
	e := NewEngine(testPolicy(), 50000, Dependencies{
		Persister: rp,
		Now:       func() time.Time { return engineNow },
	})

	mustOpen(t, e, validProposal())
	e.OnPriceUpdate("BTCUSDT", 43500)

	rp.mu.Lock()
	defer rp.mu.Unlock()
	if len(rp.saves) < 2 {
		t.Fatalf("saves = %d, want at least open + close", len(rp.saves))
	}
	last := rp.saves[len(rp.saves)-1]
	if len(last.ActivePositions) != 0 || len(last.ClosedPositions) != 1 {
		t.Errorf("final snapshot: active=%d closed=%d", len(last.ActivePositions), len(last.ClosedPositions))
	}
}

func TestOrderPairIntegration(t *testing.T) {
	e := newTestEngine(testPolicy(), 50000)

	parentID, err := e.CreateOrderPair("BTCUSDT", models.SideLong, 1, 120, 90)
	if err != nil {
		t.Fatalf("CreateOrderPair() error: %v", err)
	}

	e.OnPriceUpdate("BTCUSDT", 121)

	var filled, cancelled int
	for _, o := range e.Orders() {
		if o.ParentID != parentID {
			continue
		}
		switch o.Status {
		case models.OrderStatusFilled:
			filled++
		case models.OrderStatusCancelled:
			cancelled++
		}
	}
	if filled != 1 || cancelled != 1 {
		t.Errorf("filled=%d cancelled=%d, want 1/1", filled, cancelled)
	}
}

func TestTrailingStopIntegration(t *testing.T) {
	e := newTestEngine(testPolicy(), 50000)

	orderID, err := e.CreateTrailingStop("BTCUSDT", models.SideLong, 1, 5, 100)
	if err != nil {
		t.Fatalf("CreateTrailingStop() error: %v", err)
	}

	e.OnPriceUpdate("BTCUSDT", 110)
	e.OnPriceUpdate("BTCUSDT", 104)

	var got models.ExitOrder
	for _, o := range e.Orders() {
		if o.ID == orderID {
			got = o
		}
	}
	if got.Status != models.OrderStatusFilled {
		t.Fatalf("status = %q, want filled", got.Status)
	}
	if got.FillPrice != 104 {
		t.Errorf("fill price = %v, want current price 104", got.FillPrice)
	}
}

func TestSummaryWinRate(t *testing.T) {
	e := newTestEngine(looseRiskPolicy(), 100000)

	winner := mustOpen(t, e, &models.TradeProposal{
		Symbol: "BTCUSDT", Venue: "binance", Side: models.SideLong,
		EntryPrice: 100, Quantity: 1, StopLoss: 90, TakeProfit: 120,
	})
	loser := mustOpen(t, e, &models.TradeProposal{
		Symbol: "ETHUSDT", Venue: "okx", Side: models.SideLong,
		EntryPrice: 50, Quantity: 1, StopLoss: 45, TakeProfit: 60,
	})

	if _, err := e.ClosePosition(winner.ID, 110); err != nil {
		t.Fatal(err)
	}
	if _, err := e.ClosePosition(loser.ID, 49); err != nil {
		t.Fatal(err)
	}

	summary := e.Summary()
	if math.Abs(summary.WinRatePercent-50) > 1e-9 {
		t.Errorf("win rate = %v, want 50", summary.WinRatePercent)
	}
	if math.Abs(summary.AvgRiskRewardRatio-2) > 1e-9 {
		t.Errorf("avg ratio = %v, want 2", summary.AvgRiskRewardRatio)
	}
	if math.Abs(summary.TotalReturnPercent-0.009) > 1e-9 {
		t.Errorf("total return = %v, want 0.009", summary.TotalReturnPercent)
	}
}

func TestDailyMetricsRecorded(t *testing.T) {
	e := newTestEngine(testPolicy(), 50000)
	mustOpen(t, e, validProposal())
	e.OnPriceUpdate("BTCUSDT", 43500)

	days := e.DailyMetricsList()
	if len(days) != 1 {
		t.Fatalf("days = %d, want 1", len(days))
	}
	m := days[0]
	if m.Date != "2026-03-10" {
		t.Errorf("date = %q, want 2026-03-10", m.Date)
	}
	if m.TradesCount != 1 || m.LosingTrades != 1 || m.WinningTrades != 0 {
		t.Errorf("trades=%d losing=%d winning=%d", m.TradesCount, m.LosingTrades, m.WinningTrades)
	}
	if math.Abs(m.LargestLoss-(-30)) > 1e-9 {
		t.Errorf("largest loss = %v, want -30", m.LargestLoss)
	}
	if m.RiskLevel != models.RiskLevelLow {
		t.Errorf("risk level = %q, want low (0.06%% loss)", m.RiskLevel)
	}
}

func TestConcurrentProposalsRespectPositionLimit(t *testing.T) {
	e := newTestEngine(testPolicy(), 50000)

	symbols := []string{"AAAUSDT", "BBBUSDT", "CCCUSDT", "DDDUSDT", "EEEUSDT", "FFFUSDT"}
	venues := []string{"v1", "v2", "v3", "v4", "v5", "v6"}

	var wg sync.WaitGroup
	for i := range symbols {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tp := validProposal()
			tp.Symbol = symbols[i]
			tp.Venue = venues[i]
			e.ProposeTrade(tp)
		}(i)
	}
	wg.Wait()

	if got := len(e.ActivePositionList()); got != 3 {
		t.Errorf("active = %d, want exactly the limit (3)", got)
	}
}
