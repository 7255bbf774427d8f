package handlers

import (
	"net/http"

	"riskengine/internal/engine"
	"riskengine/internal/models"
	"riskengine/pkg/utils"
)

// TradeHandler отвечает за приём предложений сделок
//
// Endpoints:
// - POST /api/v1/trades - предложить сделку риск-движку
//
// Назначение:
// Структурно валидирует предложение (форма данных - HTTP 400),
// затем передаёт его движку. Отклонение движком - не ошибка,
// а бизнес-результат: клиент получает 422 с причиной.
type TradeHandler struct {
	engine *engine.Engine
}

// NewTradeHandler создает новый TradeHandler
func NewTradeHandler(eng *engine.Engine) *TradeHandler {
	return &TradeHandler{engine: eng}
}

// ProposeTrade принимает предложение сделки
//
// POST /api/v1/trades
//
// Тело запроса:
//
//	{
//	  "symbol": "BTCUSDT",
//	  "venue": "binance",
//	  "side": "long",
//	  "entry_price": 45000,
//	  "quantity": 0.02,
//	  "stop_loss": 43500,
//	  "take_profit": 47250
//	}
//
// HTTP коды:
// - 201 Created: сделка принята, позиция открыта
// - 400 Bad Request: некорректная форма запроса
// - 422 Unprocessable Entity: отклонено риск-правилами (причина в ответе)
func (h *TradeHandler) ProposeTrade(w http.ResponseWriter, r *http.Request) {
	var proposal models.TradeProposal
	if err := decodeBody(r, &proposal); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := utils.ValidateProposal(proposal); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := h.engine.ProposeTrade(&proposal)
	if !result.Accepted {
		respondJSON(w, http.StatusUnprocessableEntity, result)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}
