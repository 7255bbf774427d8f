package models

// RiskPolicy представляет неизменяемые лимиты риск-менеджмента
//
// Загружается один раз при старте процесса (internal/config) и далее
// передаётся по значению. Все проценты должны быть > 0. Соотношение
// maxDaily <= maxWeekly <= maxMonthly предполагается конфигурацией,
// но кодом не проверяется.
type RiskPolicy struct {
	MaxRiskPerTradePercent   float64 `json:"max_risk_per_trade_percent"`
	MaxDailyLossPercent      float64 `json:"max_daily_loss_percent"`
	MaxWeeklyLossPercent     float64 `json:"max_weekly_loss_percent"`
	MaxMonthlyLossPercent    float64 `json:"max_monthly_loss_percent"`
	MaxOpenPositions         int     `json:"max_open_positions"`
	MinRiskRewardRatio       float64 `json:"min_risk_reward_ratio"`
	MaxCorrelationThreshold  float64 `json:"max_correlation_threshold"`
	EmergencyStopLossPercent float64 `json:"emergency_stop_loss_percent"`
}

// DefaultRiskPolicy возвращает лимиты по умолчанию
func DefaultRiskPolicy() RiskPolicy {
	return RiskPolicy{
		MaxRiskPerTradePercent:   1.5,  // максимум 1.5% риска на сделку
		MaxDailyLossPercent:      5.0,  // максимум 5% убытка в день
		MaxWeeklyLossPercent:     15.0, // максимум 15% убытка в неделю
		MaxMonthlyLossPercent:    20.0, // максимум 20% убытка в месяц
		MaxOpenPositions:         3,    // максимум 3 открытые позиции
		MinRiskRewardRatio:       1.5,  // минимум 1:1.5 риск/прибыль
		MaxCorrelationThreshold:  0.7,  // максимальная корреляция позиций
		EmergencyStopLossPercent: 25.0, // аварийный стоп при 25% потери капитала
	}
}
