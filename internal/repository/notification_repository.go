package repository

import (
	"database/sql"
	"time"

	jsoniter "github.com/json-iterator/go"

	"riskengine/internal/models"
)

var notifJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// NotificationRepository - работа с таблицей notifications
//
// Журнал событий движка для истории в UI; Meta хранится как JSONB.
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository создает новый экземпляр репозитория
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create записывает уведомление и присваивает ему ID из БД
func (r *NotificationRepository) Create(n *models.Notification) error {
	meta, err := notifJSON.Marshal(n.Meta)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (timestamp, type, severity, position_id, message, meta)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	return r.db.QueryRow(
		query,
		n.Timestamp,
		n.Type,
		n.Severity,
		n.PositionID,
		n.Message,
		meta,
	).Scan(&n.ID)
}

// GetRecent возвращает последние N уведомлений
func (r *NotificationRepository) GetRecent(limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, position_id, message, meta
		FROM notifications
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.Query(query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// GetBySeverity возвращает последние уведомления указанного уровня
func (r *NotificationRepository) GetBySeverity(severity string, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, timestamp, type, severity, position_id, message, meta
		FROM notifications
		WHERE severity = $1
		ORDER BY timestamp DESC
		LIMIT $2`

	rows, err := r.db.Query(query, severity, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanNotifications(rows)
}

// DeleteOlderThan удаляет уведомления старше указанного времени
func (r *NotificationRepository) DeleteOlderThan(timestamp time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM notifications WHERE timestamp < $1`, timestamp)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanNotifications(rows *sql.Rows) ([]*models.Notification, error) {
	var notifications []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		var meta []byte
		err := rows.Scan(
			&n.ID,
			&n.Timestamp,
			&n.Type,
			&n.Severity,
			&n.PositionID,
			&n.Message,
			&meta,
		)
		if err != nil {
			return nil, err
		}

		if len(meta) > 0 {
			if err := notifJSON.Unmarshal(meta, &n.Meta); err != nil {
				return nil, err
			}
		}

		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}
