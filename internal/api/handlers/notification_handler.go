package handlers

import (
	"net/http"
	"strconv"
	"time"

	"riskengine/internal/models"
)

// NotificationStore - хранилище журнала событий движка
//
// Реализуется repository.NotificationRepository.
type NotificationStore interface {
	GetRecent(limit int) ([]*models.Notification, error)
	GetBySeverity(severity string, limit int) ([]*models.Notification, error)
	DeleteOlderThan(timestamp time.Time) (int64, error)
}

// NotificationHandler отвечает за журнал событий движка
//
// Endpoints:
// - GET /api/v1/notifications - последние события
// - GET /api/v1/notifications?severity=warn - фильтр по важности
// - GET /api/v1/notifications?limit=50 - ограничение количества
// - DELETE /api/v1/notifications?older_than=720h - очистка старых записей
//
// Типы событий:
// - TRADE_OPENED: позиция открыта
// - TRADE_CLOSED: позиция закрыта
// - ORDER_FILLED: исполнен ордер выхода
// - DAILY_LIMIT: достигнут дневной лимит потерь
// - EMERGENCY_STOP: сработал аварийный стоп
type NotificationHandler struct {
	store NotificationStore
}

// NewNotificationHandler создает новый NotificationHandler
func NewNotificationHandler(store NotificationStore) *NotificationHandler {
	return &NotificationHandler{store: store}
}

// GetNotificationsResponse представляет ответ списка уведомлений
type GetNotificationsResponse struct {
	Notifications []*models.Notification `json:"notifications"`
	Total         int                    `json:"total"`
}

const (
	defaultNotificationLimit = 100
	maxNotificationLimit     = 500
)

// GetNotifications возвращает события журнала, новые первыми
//
// GET /api/v1/notifications
//
// Query параметры:
// - severity (string): info, warn или error
// - limit (int): количество записей (по умолчанию 100, максимум 500)
//
// HTTP коды:
// - 200 OK: успешно
// - 500 Internal Server Error: ошибка хранилища
func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	severity := r.URL.Query().Get("severity")

	limit := defaultNotificationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}

	var (
		notifications []*models.Notification
		err           error
	)
	if severity != "" {
		notifications, err = h.store.GetBySeverity(severity, limit)
	} else {
		notifications, err = h.store.GetRecent(limit)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get notifications: "+err.Error())
		return
	}

	if notifications == nil {
		notifications = []*models.Notification{}
	}

	respondJSON(w, http.StatusOK, GetNotificationsResponse{
		Notifications: notifications,
		Total:         len(notifications),
	})
}

// PurgeNotificationsResponse представляет ответ очистки журнала
type PurgeNotificationsResponse struct {
	Deleted int64 `json:"deleted"`
}

// PurgeNotifications удаляет события старше указанного возраста
//
// DELETE /api/v1/notifications?older_than=720h
//
// Query параметры:
// - older_than (duration): возраст записей для удаления (по умолчанию 720h)
//
// HTTP коды:
// - 200 OK: возвращает количество удалённых записей
// - 400 Bad Request: некорректный duration
// - 500 Internal Server Error: ошибка хранилища
func (h *NotificationHandler) PurgeNotifications(w http.ResponseWriter, r *http.Request) {
	age := 720 * time.Hour
	if raw := r.URL.Query().Get("older_than"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "older_than must be a positive duration")
			return
		}
		age = parsed
	}

	deleted, err := h.store.DeleteOlderThan(time.Now().Add(-age))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to purge notifications: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, PurgeNotificationsResponse{Deleted: deleted})
}
