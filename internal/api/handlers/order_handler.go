package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"riskengine/internal/engine"
)

// OrderHandler отвечает за книгу ордеров выхода
//
// Endpoints:
// - GET /api/v1/orders - все ордера книги
// - POST /api/v1/orders - создать OCO-пару take-profit + stop-loss
// - POST /api/v1/orders/trailing - создать трейлинг-стоп
// - DELETE /api/v1/orders/{id} - отменить pending-ордер
type OrderHandler struct {
	engine *engine.Engine
}

// NewOrderHandler создает новый OrderHandler
func NewOrderHandler(eng *engine.Engine) *OrderHandler {
	return &OrderHandler{engine: eng}
}

// GetOrders возвращает все ордера книги
//
// GET /api/v1/orders
func (h *OrderHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.engine.Orders())
}

// CreateOrderPairRequest тело запроса создания OCO-пары
type CreateOrderPairRequest struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"` // сторона ПОЗИЦИИ (long/short)
	Quantity   float64 `json:"quantity"`
	TakeProfit float64 `json:"take_profit"`
	StopLoss   float64 `json:"stop_loss"`
}

// CreateOrderPairResponse ответ с ID созданной пары
type CreateOrderPairResponse struct {
	ParentID string `json:"parent_id"`
}

// CreateOrderPair создаёт OCO-пару: исполнение одного ордера
// атомарно отменяет второй
//
// POST /api/v1/orders
//
// HTTP коды:
// - 201 Created: пара создана, возвращается parent_id
// - 400 Bad Request: некорректные параметры
func (h *OrderHandler) CreateOrderPair(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderPairRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	parentID, err := h.engine.CreateOrderPair(req.Symbol, req.Side, req.Quantity, req.TakeProfit, req.StopLoss)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, CreateOrderPairResponse{ParentID: parentID})
}

// CreateTrailingStopRequest тело запроса создания трейлинг-стопа
type CreateTrailingStopRequest struct {
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"` // сторона ПОЗИЦИИ (long/short)
	Quantity     float64 `json:"quantity"`
	TrailPercent float64 `json:"trail_percent"`
	CurrentPrice float64 `json:"current_price"`
}

// CreateTrailingStopResponse ответ с ID созданного ордера
type CreateTrailingStopResponse struct {
	OrderID string `json:"order_id"`
}

// CreateTrailingStop создаёт трейлинг-стоп от текущей цены
//
// POST /api/v1/orders/trailing
//
// HTTP коды:
// - 201 Created: ордер создан
// - 400 Bad Request: некорректные параметры (trail_percent вне (0, 100) и т.д.)
func (h *OrderHandler) CreateTrailingStop(w http.ResponseWriter, r *http.Request) {
	var req CreateTrailingStopRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	orderID, err := h.engine.CreateTrailingStop(req.Symbol, req.Side, req.Quantity, req.TrailPercent, req.CurrentPrice)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, CreateTrailingStopResponse{OrderID: orderID})
}

// CancelOrder отменяет pending-ордер выхода
//
// DELETE /api/v1/orders/{id}
//
// HTTP коды:
// - 200 OK: ордер отменён
// - 404 Not Found: ордер не существует
// - 409 Conflict: ордер уже в терминальном статусе
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.engine.CancelOrder(id); err != nil {
		switch {
		case errors.Is(err, engine.ErrOrderNotFound):
			respondError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, engine.ErrInvalidTransition):
			respondError(w, http.StatusConflict, "order is not pending")
		default:
			respondError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, SuccessResponse{Message: "order cancelled"})
}
