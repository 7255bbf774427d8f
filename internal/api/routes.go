package api

import (
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"riskengine/internal/api/handlers"
	"riskengine/internal/api/middleware"
	"riskengine/internal/engine"
	"riskengine/internal/websocket"
	"riskengine/pkg/ratelimit"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	Engine        *engine.Engine
	Notifications handlers.NotificationStore
	Hub           *websocket.Hub
	PriceLimiter  *ratelimit.RateLimiter
	Logger        *zap.Logger
}

// SetupRoutes настраивает все HTTP маршруты приложения
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── POST /trades - предложить сделку риск-движку
//	├── /positions/
//	│   ├── GET / - активные позиции
//	│   ├── GET /closed - история закрытых позиций
//	│   ├── GET /{id} - позиция по ID
//	│   └── POST /{id}/close - ручное закрытие
//	├── POST /prices - ценовой тик (rate limited)
//	├── /orders/
//	│   ├── GET / - книга ордеров выхода
//	│   ├── POST / - создать OCO-пару
//	│   ├── POST /trailing - создать трейлинг-стоп
//	│   └── DELETE /{id} - отменить ордер
//	├── GET /summary - сводка риска
//	├── GET /metrics/daily - дневные метрики
//	├── /trading/
//	│   ├── POST /pause - запретить новые сделки
//	│   └── POST /resume - возобновить / снять аварийный стоп
//	└── /notifications/
//	    ├── GET / - журнал событий
//	    └── DELETE / - очистка старых записей
//
// /ws/stream - WebSocket для real-time обновлений
// /metrics - Prometheus метрики
// /health - health check
// /debug/pprof/* - профилирование (за DebugAuth)
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. RateLimit (только приём ценовых тиков)
func SetupRoutes(deps *Dependencies) *mux.Router {
	logger := zap.NewNop()
	if deps != nil && deps.Logger != nil {
		logger = deps.Logger
	}

	router := mux.NewRouter()

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.CORS)

	// Создание handlers с внедрением зависимостей
	var tradeHandler *handlers.TradeHandler
	var positionHandler *handlers.PositionHandler
	var priceHandler *handlers.PriceHandler
	var orderHandler *handlers.OrderHandler
	var riskHandler *handlers.RiskHandler
	if deps != nil && deps.Engine != nil {
		tradeHandler = handlers.NewTradeHandler(deps.Engine)
		positionHandler = handlers.NewPositionHandler(deps.Engine)
		priceHandler = handlers.NewPriceHandler(deps.Engine)
		orderHandler = handlers.NewOrderHandler(deps.Engine)
		riskHandler = handlers.NewRiskHandler(deps.Engine)
	}

	var notificationHandler *handlers.NotificationHandler
	if deps != nil && deps.Notifications != nil {
		notificationHandler = handlers.NewNotificationHandler(deps.Notifications)
	}

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	// Trade routes
	if tradeHandler != nil {
		api.HandleFunc("/trades", tradeHandler.ProposeTrade).Methods("POST")
	}

	// Position routes
	if positionHandler != nil {
		api.HandleFunc("/positions", positionHandler.GetActivePositions).Methods("GET")
		api.HandleFunc("/positions/closed", positionHandler.GetClosedPositions).Methods("GET")
		api.HandleFunc("/positions/{id}", positionHandler.GetPosition).Methods("GET")
		api.HandleFunc("/positions/{id}/close", positionHandler.ClosePosition).Methods("POST")
	}

	// Price routes: горячий путь, отдельный subrouter с rate limiter
	if priceHandler != nil {
		prices := api.PathPrefix("/prices").Subrouter()
		if deps.PriceLimiter != nil {
			prices.Use(middleware.RateLimit(deps.PriceLimiter))
		}
		prices.HandleFunc("", priceHandler.UpdatePrice).Methods("POST")
	}

	// Order routes
	if orderHandler != nil {
		api.HandleFunc("/orders", orderHandler.GetOrders).Methods("GET")
		api.HandleFunc("/orders", orderHandler.CreateOrderPair).Methods("POST")
		api.HandleFunc("/orders/trailing", orderHandler.CreateTrailingStop).Methods("POST")
		api.HandleFunc("/orders/{id}", orderHandler.CancelOrder).Methods("DELETE")
	}

	// Risk summary и управление торговлей
	if riskHandler != nil {
		api.HandleFunc("/summary", riskHandler.GetSummary).Methods("GET")
		api.HandleFunc("/metrics/daily", riskHandler.GetDailyMetrics).Methods("GET")
		api.HandleFunc("/trading/pause", riskHandler.PauseTrading).Methods("POST")
		api.HandleFunc("/trading/resume", riskHandler.ResumeTrading).Methods("POST")
	}

	// Notification routes
	if notificationHandler != nil {
		api.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods("GET")
		api.HandleFunc("/notifications", notificationHandler.PurgeNotifications).Methods("DELETE")
	}

	// WebSocket route
	if deps != nil && deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Debug endpoints за Basic auth
	debug := router.PathPrefix("/debug/pprof").Subrouter()
	debug.Use(middleware.DebugAuth)
	debug.HandleFunc("/", pprof.Index)
	debug.HandleFunc("/cmdline", pprof.Cmdline)
	debug.HandleFunc("/profile", pprof.Profile)
	debug.HandleFunc("/symbol", pprof.Symbol)
	debug.HandleFunc("/trace", pprof.Trace)
	debug.PathPrefix("/").Handler(http.HandlerFunc(pprof.Index))

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	return router
}
