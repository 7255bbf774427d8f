package models

import "time"

// EngineSnapshot представляет сериализуемый срез состояния движка
//
// Формируется после каждой изменяющей операции для коллаборатора
// персистентности; тот же формат принимается конструктором движка
// при восстановлении после рестарта.
type EngineSnapshot struct {
	Timestamp       time.Time                `json:"timestamp"`
	InitialCapital  float64                  `json:"initial_capital"`
	CurrentCapital  float64                  `json:"current_capital"`
	TradingEnabled  bool                     `json:"trading_enabled"`
	EmergencyStop   bool                     `json:"emergency_stop"`
	ActivePositions []Position               `json:"active_positions"`
	ClosedPositions []Position               `json:"closed_positions"` // хвост истории (последние 100)
	DailyMetrics    map[string]*DailyMetrics `json:"daily_metrics"`
}
