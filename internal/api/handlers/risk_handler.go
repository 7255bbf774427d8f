package handlers

import (
	"net/http"

	"riskengine/internal/engine"
)

// RiskHandler отвечает за сводку риска и управление торговлей
//
// Endpoints:
// - GET /api/v1/summary - сводка состояния риск-движка
// - GET /api/v1/metrics/daily - дневные метрики
// - POST /api/v1/trading/pause - запретить новые сделки
// - POST /api/v1/trading/resume - возобновить торговлю / снять аварийный стоп
type RiskHandler struct {
	engine *engine.Engine
}

// NewRiskHandler создает новый RiskHandler
func NewRiskHandler(eng *engine.Engine) *RiskHandler {
	return &RiskHandler{engine: eng}
}

// GetSummary возвращает сводку состояния риск-движка
//
// GET /api/v1/summary
func (h *RiskHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Summary())
}

// GetDailyMetrics возвращает дневные метрики, отсортированные по дате
//
// GET /api/v1/metrics/daily
func (h *RiskHandler) GetDailyMetrics(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.DailyMetricsList())
}

// PauseTrading запрещает новые сделки, не трогая открытые позиции
//
// POST /api/v1/trading/pause
func (h *RiskHandler) PauseTrading(w http.ResponseWriter, r *http.Request) {
	h.engine.PauseTrading()
	respondJSON(w, http.StatusOK, SuccessResponse{Message: "trading paused"})
}

// ResumeTrading возобновляет торговлю и снимает аварийный стоп
//
// Единственный способ выйти из аварийного состояния - явный
// вызов оператором этого endpoint'а.
//
// POST /api/v1/trading/resume
func (h *RiskHandler) ResumeTrading(w http.ResponseWriter, r *http.Request) {
	h.engine.ResumeTrading()
	respondJSON(w, http.StatusOK, SuccessResponse{Message: "trading resumed"})
}
