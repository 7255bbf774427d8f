package handlers

import (
	"net/http"

	"riskengine/internal/engine"
	"riskengine/pkg/utils"
)

// PriceHandler отвечает за приём ценовых тиков
//
// Endpoints:
// - POST /api/v1/prices - обновление цены символа
//
// Назначение:
// Горячий путь системы: каждый тик прогоняется через мониторинг
// выходов, книгу ордеров и агрегатные лимиты. Endpoint защищён
// rate limiter'ом на уровне маршрутизации.
type PriceHandler struct {
	engine *engine.Engine
}

// NewPriceHandler создает новый PriceHandler
func NewPriceHandler(eng *engine.Engine) *PriceHandler {
	return &PriceHandler{engine: eng}
}

// PriceUpdateRequest тело запроса обновления цены
type PriceUpdateRequest struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// UpdatePrice обрабатывает ценовой тик
//
// POST /api/v1/prices
//
// Тело запроса: {"symbol": "BTCUSDT", "price": 45120.5}
//
// HTTP коды:
// - 202 Accepted: тик обработан
// - 400 Bad Request: некорректный символ или цена
// - 429 Too Many Requests: превышен rate limit (middleware)
func (h *PriceHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	var req PriceUpdateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateSymbol(req.Symbol); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Price <= 0 {
		respondError(w, http.StatusBadRequest, "price must be positive")
		return
	}

	h.engine.OnPriceUpdate(req.Symbol, req.Price)

	respondJSON(w, http.StatusAccepted, SuccessResponse{Message: "price update processed"})
}
