package engine

import "riskengine/internal/models"

// offerNotification кладёт уведомление в канал без блокировки.
// Возвращает true, если уведомление поставлено в очередь.
//
// Торговый путь важнее журнала: при заполненном буфере уведомление
// отбрасывается, потеря учитывается в метриках переполнения.
func offerNotification(ch chan *models.Notification, n *models.Notification) bool {
	if ch == nil || n == nil {
		return false
	}

	select {
	case ch <- n:
		return true
	default:
		RecordBufferOverflow("notification")
		RecordBufferBacklog("notification", cap(ch), len(ch))
		return false
	}
}
