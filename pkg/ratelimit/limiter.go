package ratelimit

import (
	"context"
	"sync"
	"time"
)

// RateLimiter - Token Bucket rate limiter для защиты входных HTTP endpoints
// (приём ценовых тиков, предложений сделок)
//
// Алгоритм Token Bucket:
// - Ведро наполняется токенами с постоянной скоростью (rate токенов/сек)
// - Максимальная ёмкость ведра = burst (позволяет короткие всплески)
// - Каждый запрос потребляет 1 токен
// - Если токенов нет, запрос ждёт или отклоняется
//
// Использование:
//
//	limiter := NewRateLimiter(100, 200) // 100 req/sec, burst 200
//	if limiter.Allow() { ... }          // неблокирующая проверка
//	err := limiter.Wait(ctx)            // блокирующее ожидание
type RateLimiter struct {
	rate       float64   // токенов в секунду
	burst      float64   // максимальная ёмкость ведра
	tokens     float64   // текущее количество токенов
	lastRefill time.Time // время последнего пополнения
	mu         sync.Mutex
}

// NewRateLimiter создаёт новый rate limiter
//
// Параметры:
//   - rate: количество запросов в секунду
//   - burst: максимальный всплеск (обычно 1.5-2x от rate)
//
// Некорректные параметры заменяются безопасными значениями по умолчанию.
func NewRateLimiter(rate, burst float64) *RateLimiter {
	if rate <= 0 {
		rate = 10
	}
	if burst < rate {
		burst = rate * 2
	}

	return &RateLimiter{
		rate:       rate,
		burst:      burst,
		tokens:     burst, // начинаем с полным ведром
		lastRefill: time.Now(),
	}
}

// refill пополняет токены на основе прошедшего времени.
// Вызывается только под lock'ом.
func (rl *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(rl.lastRefill).Seconds()

	rl.tokens += elapsed * rl.rate
	if rl.tokens > rl.burst {
		rl.tokens = rl.burst
	}

	rl.lastRefill = now
}

// Allow проверяет доступность токена без блокировки
//
// Возвращает true если токен получен и запрос можно обработать.
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()

	if rl.tokens >= 1 {
		rl.tokens--
		return true
	}
	return false
}

// Wait блокирует до получения токена или отмены контекста
//
// Возвращает:
//   - nil: токен получен
//   - ctx.Err(): контекст отменён (timeout или cancel)
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		rl.mu.Lock()
		rl.refill()

		if rl.tokens >= 1 {
			rl.tokens--
			rl.mu.Unlock()
			return nil
		}

		// Время до появления следующего токена
		waitTime := time.Duration((1 - rl.tokens) / rl.rate * float64(time.Second))
		rl.mu.Unlock()

		select {
		case <-time.After(waitTime):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Tokens возвращает текущее количество доступных токенов (для мониторинга)
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	return rl.tokens
}
