package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"riskengine/internal/engine"
)

// PositionHandler отвечает за просмотр и закрытие позиций
//
// Endpoints:
// - GET /api/v1/positions - активные позиции
// - GET /api/v1/positions/closed - история закрытых позиций
// - GET /api/v1/positions/{id} - позиция по ID
// - POST /api/v1/positions/{id}/close - ручное закрытие по указанной цене
type PositionHandler struct {
	engine *engine.Engine
}

// NewPositionHandler создает новый PositionHandler
func NewPositionHandler(eng *engine.Engine) *PositionHandler {
	return &PositionHandler{engine: eng}
}

// GetActivePositions возвращает список активных позиций
//
// GET /api/v1/positions
func (h *PositionHandler) GetActivePositions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.ActivePositionList())
}

// GetClosedPositions возвращает историю закрытых позиций
//
// GET /api/v1/positions/closed?limit=50
//
// limit обрезает историю до N последних закрытий
func (h *PositionHandler) GetClosedPositions(w http.ResponseWriter, r *http.Request) {
	closed := h.engine.ClosedPositionList()

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if limit < len(closed) {
			closed = closed[len(closed)-limit:]
		}
	}

	respondJSON(w, http.StatusOK, closed)
}

// GetPosition возвращает позицию по ID (активную или закрытую)
//
// GET /api/v1/positions/{id}
//
// HTTP коды:
// - 200 OK: позиция найдена
// - 404 Not Found: позиция не существует
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	p, ok := h.engine.Position(id)
	if !ok {
		respondError(w, http.StatusNotFound, "position not found")
		return
	}

	respondJSON(w, http.StatusOK, p)
}

// ClosePositionRequest тело запроса ручного закрытия
type ClosePositionRequest struct {
	Price float64 `json:"price"`
}

// ClosePosition закрывает активную позицию вручную
//
// POST /api/v1/positions/{id}/close
//
// Тело запроса: {"price": 44100}
//
// HTTP коды:
// - 200 OK: позиция закрыта, возвращается её финальное состояние
// - 400 Bad Request: некорректная цена
// - 404 Not Found: активной позиции с таким ID нет
func (h *PositionHandler) ClosePosition(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req ClosePositionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Price <= 0 {
		respondError(w, http.StatusBadRequest, "price must be positive")
		return
	}

	p, err := h.engine.ClosePosition(id, req.Price)
	if err != nil {
		if errors.Is(err, engine.ErrPositionNotFound) {
			respondError(w, http.StatusNotFound, "position not found")
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, p)
}
