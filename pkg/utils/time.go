package utils

import (
	"time"
)

// time.go - утилиты для работы со временем
//
// Назначение:
// Вспомогательные функции для временных операций, используемые
// для дневных метрик и скользящих недельных/месячных окон потерь.
//
// Функции:
// - DayKey: ключ календарного дня ("2006-01-02" UTC)
// - ParseDayKey: обратный разбор ключа
// - GetDayStartFrom: начало дня (00:00:00 UTC)
// - WindowStart: начало скользящего окна в N дней
//
// Использование:
// - Ключи карты дневных метрик
// - Скользящие 7/30-дневные лимиты потерь

// DayKeyLayout - формат ключа календарного дня
const DayKeyLayout = "2006-01-02"

// DayKey возвращает ключ календарного дня для указанного времени в UTC
//
// Пример:
//
//	// t: 2024-01-15 14:30:45 UTC
//	key := DayKey(t)
//	// key: "2024-01-15"
func DayKey(t time.Time) string {
	return t.UTC().Format(DayKeyLayout)
}

// ParseDayKey разбирает ключ календарного дня в time.Time (00:00:00 UTC)
//
// Возвращает ошибку если ключ не соответствует формату "2006-01-02".
func ParseDayKey(key string) (time.Time, error) {
	return time.ParseInLocation(DayKeyLayout, key, time.UTC)
}

// GetDayStartFrom возвращает начало дня для указанного времени в UTC
//
// Параметры:
//   - t: исходное время
//
// Возвращает: начало дня (00:00:00 UTC) для указанной даты
func GetDayStartFrom(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WindowStart возвращает начало скользящего окна в days дней от t
//
// Пример:
//
//	// t: 2024-01-15 14:30:45 UTC, days: 7
//	start := WindowStart(t, 7)
//	// start: 2024-01-08 14:30:45 UTC
func WindowStart(t time.Time, days int) time.Time {
	return t.UTC().AddDate(0, 0, -days)
}

// InWindow возвращает true если день с ключом key попадает в скользящее
// окно [WindowStart(now, days), now]
//
// Некорректные ключи считаются вне окна.
func InWindow(key string, now time.Time, days int) bool {
	day, err := ParseDayKey(key)
	if err != nil {
		return false
	}
	return !day.Before(WindowStart(now, days))
}
