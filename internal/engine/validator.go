package engine

import (
	"fmt"
	"math"

	"riskengine/internal/models"
	"riskengine/pkg/utils"
)

// Коды отклонений для метрик (человекочитаемая причина - в Verdict.Reason)
const (
	rejectTradingDisabled = "trading_disabled"
	rejectEmergencyStop   = "emergency_stop"
	rejectRiskPerTrade    = "risk_per_trade"
	rejectMaxPositions    = "max_positions"
	rejectRiskReward      = "risk_reward"
	rejectDailyLoss       = "daily_loss"
	rejectCorrelation     = "correlation"
)

// Verdict - результат валидации предложения сделки
type Verdict struct {
	Accepted bool
	Code     string // код причины отклонения, пустой при успехе
	Reason   string
}

// ledgerView - срез состояния леджера, достаточный для валидации
//
// Снимается под мьютексом движка; сама валидация - чистая функция
// без обращений к общему состоянию.
type ledgerView struct {
	TradingEnabled  bool
	EmergencyStop   bool
	CurrentCapital  float64
	DailyPnlPercent float64 // реализованный PNL текущего дня, %
	Open            []openPosition
}

// openPosition - минимум данных об открытой позиции для оценки корреляции
type openPosition struct {
	Symbol string
	Venue  string
}

// validateProposal прогоняет предложение через упорядоченную цепочку проверок
//
// Порядок фиксирован: статусные проверки, затем лимиты по возрастанию
// стоимости вычисления. Первая непройденная проверка формирует вердикт,
// остальные не выполняются.
func validateProposal(policy models.RiskPolicy, view ledgerView, tp *models.TradeProposal) Verdict {
	// 1. Торговля включена?
	if !view.TradingEnabled {
		return reject(rejectTradingDisabled, "trading is currently disabled")
	}

	// 2. Аварийный стоп не активен?
	if view.EmergencyStop {
		return reject(rejectEmergencyStop, "emergency stop is active")
	}

	// 3. Риск на сделку в пределах лимита?
	riskAmount := tp.RiskAmount()
	riskPercent := 0.0
	if view.CurrentCapital > 0 {
		riskPercent = riskAmount / view.CurrentCapital * 100
	}
	if riskPercent > policy.MaxRiskPerTradePercent {
		return reject(rejectRiskPerTrade,
			fmt.Sprintf("risk per trade (%.2f%%) exceeds limit (%.2f%%)",
				riskPercent, policy.MaxRiskPerTradePercent))
	}

	// 4. Лимит открытых позиций
	if len(view.Open) >= policy.MaxOpenPositions {
		return reject(rejectMaxPositions,
			fmt.Sprintf("maximum open positions (%d) reached", policy.MaxOpenPositions))
	}

	// 5. Соотношение риск/прибыль (нулевой риск даёт ratio=0 и отклоняется)
	ratio := tp.RiskRewardRatio()
	if ratio < policy.MinRiskRewardRatio {
		return reject(rejectRiskReward,
			fmt.Sprintf("risk/reward ratio (%.2f) below minimum (%.2f)",
				ratio, policy.MinRiskRewardRatio))
	}

	// 6. Прогноз дневного убытка: текущий дневной PNL по модулю плюс риск сделки
	potentialDailyLoss := math.Abs(view.DailyPnlPercent) + riskPercent
	if potentialDailyLoss > policy.MaxDailyLossPercent {
		return reject(rejectDailyLoss,
			fmt.Sprintf("potential daily loss (%.2f%%) exceeds limit (%.2f%%)",
				potentialDailyLoss, policy.MaxDailyLossPercent))
	}

	// 7. Корреляция с открытыми позициями
	correlation := correlationScore(view.Open, tp.Symbol, tp.Venue)
	if correlation > policy.MaxCorrelationThreshold {
		return reject(rejectCorrelation,
			fmt.Sprintf("position correlation (%.2f) exceeds threshold (%.2f)",
				correlation, policy.MaxCorrelationThreshold))
	}

	return Verdict{Accepted: true, Reason: "trade validated successfully"}
}

func reject(code, reason string) Verdict {
	return Verdict{Accepted: false, Code: code, Reason: reason}
}

// correlationScore оценивает концентрацию портфеля эвристикой:
// совпадение площадки даёт вес 0.3, совпадение символа - 0.7,
// сумма нормируется на количество открытых позиций и ограничивается [0, 1]
func correlationScore(open []openPosition, symbol, venue string) float64 {
	if len(open) == 0 {
		return 0
	}

	score := 0.0
	for _, p := range open {
		if p.Venue == venue {
			score += 0.3
		}
		if p.Symbol == symbol {
			score += 0.7
		}
	}

	return utils.Clamp(score/float64(len(open)), 0, 1)
}
