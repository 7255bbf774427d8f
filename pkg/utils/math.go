package utils

import (
	"math"
)

// math.go - математические утилиты риск-движка
//
// Назначение:
// Вспомогательные математические функции для расчёта риска и PNL.
// Все функции являются чистыми (pure functions) без побочных эффектов.
//
// Функции:
// - Clamp: ограничение значения диапазоном
// - RoundTo: округление до N знаков
// - PercentOf: доля в процентах
// - SafeDiv: деление с защитой от нуля

// Clamp ограничивает значение диапазоном [min, max].
//
// Используется для нормализации эвристики корреляции к [0, 1].
//
// Параметры:
//   - value: исходное значение
//   - min, max: границы диапазона
//
// Примеры:
//   - Clamp(1.3, 0, 1) = 1.0
//   - Clamp(-0.2, 0, 1) = 0.0
//   - Clamp(0.5, 0, 1) = 0.5
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// RoundTo округляет значение до указанного количества знаков после запятой.
//
// Параметры:
//   - value: исходное значение
//   - decimals: количество знаков (>= 0)
//
// Примеры:
//   - RoundTo(1.23456, 2) = 1.23
//   - RoundTo(1.995, 2) = 2.0
func RoundTo(value float64, decimals int) float64 {
	if decimals < 0 {
		return value
	}
	factor := math.Pow(10, float64(decimals))
	return math.Round(value*factor) / factor
}

// PercentOf возвращает долю part от whole в процентах.
//
// Если whole == 0, возвращает 0 (деление на ноль недопустимо
// для капитала и балансов).
//
// Примеры:
//   - PercentOf(30, 50000) = 0.06
//   - PercentOf(-2500, 50000) = -5.0
func PercentOf(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}

// SafeDiv делит a на b, возвращая fallback при b == 0.
//
// Используется для risk/reward ratio: нулевой риск трактуется как 0.
func SafeDiv(a, b, fallback float64) float64 {
	if b == 0 {
		return fallback
	}
	return a / b
}
