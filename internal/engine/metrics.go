package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики риск-движка
// ============================================================
//
// Использование:
// - Grafana дашборды для визуализации
// - Alertmanager для уведомлений о приближении к лимитам
// - Анализ отклонённых сделок по причинам

// ============ Метрики валидации ============

// TradesAccepted - количество принятых сделок
var TradesAccepted = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "validation",
		Name:      "trades_accepted_total",
		Help:      "Total number of accepted trade proposals",
	},
	[]string{"symbol"},
)

// TradesRejected - количество отклонённых сделок по причинам
var TradesRejected = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "validation",
		Name:      "trades_rejected_total",
		Help:      "Total number of rejected trade proposals by reason",
	},
	[]string{"reason"}, // trading_disabled, emergency_stop, risk_per_trade, max_positions, risk_reward, daily_loss, correlation
)

// ============ Метрики позиций ============

// ActivePositions - текущее количество открытых позиций
var ActivePositions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "riskengine",
		Subsystem: "positions",
		Name:      "active",
		Help:      "Current number of open positions",
	},
)

// PositionsClosed - закрытые позиции по причинам выхода
var PositionsClosed = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "positions",
		Name:      "closed_total",
		Help:      "Total number of closed positions by exit reason",
	},
	[]string{"reason"}, // stop_loss, take_profit, trailing_stop, manual, emergency_stop
)

// StopLossTriggered - срабатывания стоп-лосса
var StopLossTriggered = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "risk",
		Name:      "stop_loss_triggered_total",
		Help:      "Number of stop loss triggers",
	},
	[]string{"symbol"},
)

// ============ Метрики капитала ============

// CurrentCapital - текущий капитал
var CurrentCapital = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "riskengine",
		Subsystem: "capital",
		Name:      "current",
		Help:      "Current capital",
	},
)

// RealizedPnlTotal - суммарный реализованный PNL
// Gauge, а не Counter: убыточные сделки уменьшают значение
var RealizedPnlTotal = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "riskengine",
		Subsystem: "capital",
		Name:      "realized_pnl_total",
		Help:      "Total realized PnL since start",
	},
)

// DailyPnlPercent - дневной PNL в процентах от стартового баланса дня
var DailyPnlPercent = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "riskengine",
		Subsystem: "capital",
		Name:      "daily_pnl_percent",
		Help:      "Realized PnL of the current UTC day in percent",
	},
)

// ============ Метрики ордеров ============

// OrdersFilled - исполненные ордера по типам
var OrdersFilled = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "orders",
		Name:      "filled_total",
		Help:      "Total number of filled exit orders by kind",
	},
	[]string{"kind"}, // take_profit, stop_loss, trailing_stop
)

// OrdersCancelled - отменённые ордера (OCO-сиблинги)
var OrdersCancelled = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "orders",
		Name:      "cancelled_total",
		Help:      "Total number of cancelled exit orders",
	},
)

// ============ Метрики аварийного стопа ============

// EmergencyStops - срабатывания аварийного стопа
var EmergencyStops = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "risk",
		Name:      "emergency_stops_total",
		Help:      "Number of emergency stop triggers by cause",
	},
	[]string{"cause"}, // daily, weekly, monthly, total_loss
)

// ============ Метрики производительности ============

// PriceUpdateLatency - время обработки ценового обновления
var PriceUpdateLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "riskengine",
		Subsystem: "engine",
		Name:      "price_update_latency_ms",
		Help:      "Time to process a price update in milliseconds",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 25},
	},
	[]string{"symbol"},
)

// BufferOverflows - переполнения буферов каналов
var BufferOverflows = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "riskengine",
		Subsystem: "engine",
		Name:      "buffer_overflows_total",
		Help:      "Number of channel buffer overflows (events dropped)",
	},
	[]string{"buffer"}, // notification, snapshot
)

// BufferBacklog - заполненность буферов каналов
var BufferBacklog = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: "riskengine",
		Subsystem: "engine",
		Name:      "buffer_backlog",
		Help:      "Current channel buffer usage",
	},
	[]string{"buffer"},
)

// ============ Вспомогательные функции ============

// RecordRejection записывает отклонение сделки
func RecordRejection(reasonCode string) {
	TradesRejected.WithLabelValues(reasonCode).Inc()
}

// RecordClose записывает закрытие позиции
func RecordClose(symbol, reason string, pnl float64) {
	PositionsClosed.WithLabelValues(reason).Inc()
	RealizedPnlTotal.Add(pnl)
	if reason == "stop_loss" {
		StopLossTriggered.WithLabelValues(symbol).Inc()
	}
}

// RecordBufferOverflow записывает переполнение буфера
func RecordBufferOverflow(bufferName string) {
	BufferOverflows.WithLabelValues(bufferName).Inc()
}

// RecordBufferBacklog записывает заполненность буфера
func RecordBufferBacklog(bufferName string, capacity, used int) {
	_ = capacity
	BufferBacklog.WithLabelValues(bufferName).Set(float64(used))
}
