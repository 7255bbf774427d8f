package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"riskengine/internal/api"
	"riskengine/internal/config"
	"riskengine/internal/engine"
	"riskengine/internal/models"
	"riskengine/internal/repository"
	"riskengine/internal/websocket"
	"riskengine/pkg/ratelimit"
	"riskengine/pkg/retry"
	"riskengine/pkg/utils"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Логирование
	logger, err := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Инициализация базы данных
	db, err := initDatabase(cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	logger.Info("connected to database",
		zap.String("dsn", cfg.Database.DSNWithoutPassword()))

	// Репозитории
	positionRepo := repository.NewPositionRepository(db)
	metricsRepo := repository.NewMetricsRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	snapshotRepo := repository.NewSnapshotRepository(db)

	// Канал уведомлений движка: переполнение не блокирует торговый путь
	notifications := make(chan *models.Notification, cfg.Engine.NotificationBuffer)

	// Фоновый воркер сохранения снапшотов с retry
	saver := newSnapshotSaver(snapshotRepo, logger, retryConfig(cfg))
	go saver.run()

	// Восстановление движка из последнего снапшота
	eng := buildEngine(cfg, snapshotRepo, engine.Dependencies{
		Notifications: notifications,
		Persister:     saver,
		Logger:        logger,
	})

	// WebSocket hub
	hub := websocket.NewHub(logger)
	go hub.Run()

	// Потребитель уведомлений: журнал в БД, broadcast, персистентность позиций
	go consumeNotifications(eng, notifications, notificationRepo, positionRepo, metricsRepo, hub, logger)

	// Периодическая рассылка сводки риска
	stopSummary := make(chan struct{})
	go broadcastSummary(eng, hub, cfg.Engine.SummaryBroadcastFreq, stopSummary)

	// Настройка HTTP роутера
	router := api.SetupRoutes(&api.Dependencies{
		Engine:        eng,
		Notifications: notificationRepo,
		Hub:           hub,
		PriceLimiter:  ratelimit.NewRateLimiter(cfg.Engine.PriceUpdateRate, float64(cfg.Engine.PriceUpdateBurst)),
		Logger:        logger,
	})

	// HTTP сервер
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск сервера в отдельной горутине
	go func() {
		logger.Info("starting server", zap.String("addr", server.Addr))
		if cfg.Server.UseHTTPS {
			if err := server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server failed", zap.Error(err))
			}
		} else {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server failed", zap.Error(err))
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	close(stopSummary)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	// Финальный снапшот напрямую, минуя воркер: процесс завершается
	if err := snapshotRepo.SaveSnapshot(ctx, eng.Snapshot()); err != nil {
		logger.Error("final snapshot save failed", zap.Error(err))
	}

	saver.stop()

	logger.Info("server stopped")
}

// initDatabase открывает соединение с PostgreSQL и проверяет его
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// buildEngine создаёт движок, восстанавливая состояние из последнего
// снапшота, если он есть
func buildEngine(cfg *config.Config, snapshots *repository.SnapshotRepository, deps engine.Dependencies) *engine.Engine {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	policy := cfg.Risk.Policy()

	snap, err := snapshots.LoadSnapshot(ctx)
	if err != nil {
		if !errors.Is(err, repository.ErrSnapshotNotFound) {
			deps.Logger.Warn("snapshot load failed, starting fresh", zap.Error(err))
		}
		return engine.NewEngine(policy, cfg.Risk.InitialCapital, deps)
	}

	deps.Logger.Info("restoring engine from snapshot",
		zap.Time("taken_at", snap.Timestamp),
		zap.Int("active_positions", len(snap.ActivePositions)))

	return engine.NewEngineFromSnapshot(policy, snap, deps)
}

func retryConfig(cfg *config.Config) retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxAttempts = cfg.Engine.MaxRetries
	rc.InitialDelay = cfg.Engine.RetryBackoff
	return rc
}

// snapshotSaver - асинхронный Persister с семантикой latest-wins
//
// Движок зовёт SaveSnapshot после каждой изменяющей операции; канал
// ёмкости 1 держит только последний снапшот, устаревшие молча
// заменяются. Запись в БД идёт в фоновом воркере с retry.
type snapshotSaver struct {
	repo   *repository.SnapshotRepository
	logger *zap.Logger
	cfg    retry.Config
	ch     chan *models.EngineSnapshot
	done   chan struct{}
}

func newSnapshotSaver(repo *repository.SnapshotRepository, logger *zap.Logger, cfg retry.Config) *snapshotSaver {
	return &snapshotSaver{
		repo:   repo,
		logger: logger,
		cfg:    cfg,
		ch:     make(chan *models.EngineSnapshot, 1),
		done:   make(chan struct{}),
	}
}

// SaveSnapshot реализует engine.Persister; никогда не блокирует
func (s *snapshotSaver) SaveSnapshot(_ context.Context, snap *models.EngineSnapshot) error {
	for {
		select {
		case s.ch <- snap:
			return nil
		default:
			// Вытесняем устаревший снапшот
			select {
			case <-s.ch:
			default:
			}
		}
	}
}

func (s *snapshotSaver) run() {
	for snap := range s.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := retry.Do(ctx, func() error {
			return s.repo.SaveSnapshot(ctx, snap)
		}, s.cfg)
		cancel()

		if err != nil {
			s.logger.Error("snapshot persist failed", zap.Error(err))
		}
	}
	close(s.done)
}

func (s *snapshotSaver) stop() {
	close(s.ch)
	<-s.done
}

// consumeNotifications обрабатывает события движка: журнал в БД,
// broadcast в WebSocket и персистентность затронутых позиций/метрик
func consumeNotifications(
	eng *engine.Engine,
	notifications <-chan *models.Notification,
	notifRepo *repository.NotificationRepository,
	positionRepo *repository.PositionRepository,
	metricsRepo *repository.MetricsRepository,
	hub *websocket.Hub,
	logger *zap.Logger,
) {
	for n := range notifications {
		logEvent(logger, n)

		if err := notifRepo.Create(n); err != nil {
			logger.Error("notification persist failed", zap.Error(err))
		}

		hub.BroadcastNotification(n)

		if n.PositionID != "" {
			if p, ok := eng.Position(n.PositionID); ok {
				if err := positionRepo.Upsert(&p); err != nil {
					logger.Error("position persist failed",
						zap.String("position_id", p.ID), zap.Error(err))
				}
				hub.BroadcastPositionUpdate(p)
			}
		}

		// Закрытия меняют метрики дня события
		if n.Type == models.NotificationTypeTradeClosed || n.Type == models.NotificationTypeEmergencyStop {
			day := utils.DayKey(n.Timestamp)
			for _, m := range eng.DailyMetricsList() {
				if m.Date == day {
					if err := metricsRepo.Upsert(&m); err != nil {
						logger.Error("daily metrics persist failed",
							zap.String("date", m.Date), zap.Error(err))
					}
					break
				}
			}
		}
	}
}

func logEvent(logger *zap.Logger, n *models.Notification) {
	fields := []zap.Field{
		zap.String("type", n.Type),
		zap.String("position_id", n.PositionID),
		zap.String("message", n.Message),
	}

	switch n.Severity {
	case models.SeverityError:
		logger.Error("engine event", fields...)
	case models.SeverityWarn:
		logger.Warn("engine event", fields...)
	default:
		logger.Info("engine event", fields...)
	}
}

// broadcastSummary периодически рассылает сводку риска в WebSocket
func broadcastSummary(eng *engine.Engine, hub *websocket.Hub, freq time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if hub.ClientCount() > 0 {
				hub.BroadcastSummary(eng.Summary())
			}
		case <-stop:
			return
		}
	}
}
