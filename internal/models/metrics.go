package models

// DailyMetrics представляет метрики риска за один календарный день
//
// Создаётся лениво при первом обращении за дату (ключ "2006-01-02" UTC),
// обновляется при каждом закрытии позиции и никогда не удаляется:
// история используется для скользящих недельных/месячных лимитов.
type DailyMetrics struct {
	Date               string  `json:"date" db:"date"`
	StartingBalance    float64 `json:"starting_balance" db:"starting_balance"`
	CurrentBalance     float64 `json:"current_balance" db:"current_balance"`
	RealizedPnl        float64 `json:"realized_pnl" db:"realized_pnl"`
	RealizedPnlPercent float64 `json:"realized_pnl_percent" db:"realized_pnl_percent"`
	MaxDrawdownPercent float64 `json:"max_drawdown_percent" db:"max_drawdown_percent"`
	TradesCount        int     `json:"trades_count" db:"trades_count"`
	WinningTrades      int     `json:"winning_trades" db:"winning_trades"`
	LosingTrades       int     `json:"losing_trades" db:"losing_trades"`
	LargestWin         float64 `json:"largest_win" db:"largest_win"`
	LargestLoss        float64 `json:"largest_loss" db:"largest_loss"`
	RiskLevel          string  `json:"risk_level" db:"risk_level"`
}

// Уровни риска по дневному PNL
const (
	RiskLevelLow      = "low"
	RiskLevelMedium   = "medium"
	RiskLevelHigh     = "high"
	RiskLevelCritical = "critical"
)

// RiskLevelFor возвращает уровень риска для дневного PNL в процентах
//
// Пороги по модулю: <1% low, <3% medium, <5% high, иначе critical.
func RiskLevelFor(pnlPercent float64) string {
	abs := pnlPercent
	if abs < 0 {
		abs = -abs
	}

	switch {
	case abs < 1.0:
		return RiskLevelLow
	case abs < 3.0:
		return RiskLevelMedium
	case abs < 5.0:
		return RiskLevelHigh
	default:
		return RiskLevelCritical
	}
}

// RecordClose учитывает закрытую сделку в дневных метриках
func (m *DailyMetrics) RecordClose(pnl float64) {
	m.RealizedPnl += pnl
	if m.StartingBalance != 0 {
		m.RealizedPnlPercent = m.RealizedPnl / m.StartingBalance * 100
	}

	if pnl > 0 {
		m.WinningTrades++
		if pnl > m.LargestWin {
			m.LargestWin = pnl
		}
	} else {
		m.LosingTrades++
		if pnl < m.LargestLoss {
			m.LargestLoss = pnl
		}
	}

	m.RiskLevel = RiskLevelFor(m.RealizedPnlPercent)
}

// RiskSummary представляет сводку состояния риск-движка
type RiskSummary struct {
	CurrentCapital      float64 `json:"current_capital"`
	InitialCapital      float64 `json:"initial_capital"`
	TotalReturnPercent  float64 `json:"total_return_percent"`
	ActivePositions     int     `json:"active_positions"`
	MaxPositions        int     `json:"max_positions"`
	DailyPnl            float64 `json:"daily_pnl"`
	DailyPnlPercent     float64 `json:"daily_pnl_percent"`
	MaxDailyLossLimit   float64 `json:"max_daily_loss_limit"`
	WeeklyLossPercent   float64 `json:"weekly_loss_percent"`
	MonthlyLossPercent  float64 `json:"monthly_loss_percent"`
	RiskLevel           string  `json:"risk_level"`
	TradingEnabled      bool    `json:"trading_enabled"`
	EmergencyStop       bool    `json:"emergency_stop"`
	WinRatePercent      float64 `json:"win_rate_percent"`
	AvgRiskRewardRatio  float64 `json:"avg_risk_reward_ratio"`
}
