package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// Config конфигурация для retry логики
//
// Экспоненциальный backoff с jitter:
// delay = min(InitialDelay * Multiplier^attempt + jitter, MaxDelay)
//
// Jitter добавляет случайность чтобы избежать одновременных
// повторов от многих клиентов ("thundering herd").
type Config struct {
	// MaxAttempts - максимальное количество попыток (включая первую)
	// 0 или отрицательное = бесконечные повторы (не рекомендуется)
	MaxAttempts int

	// InitialDelay - начальная задержка между попытками
	InitialDelay time.Duration

	// MaxDelay - максимальная задержка между попытками
	MaxDelay time.Duration

	// Multiplier - множитель экспоненциального роста задержки
	Multiplier float64

	// JitterFactor - фактор случайности (0.0 - 1.0)
	JitterFactor float64

	// RetryIf - фильтр ошибок; nil = повторять все ошибки
	RetryIf func(error) bool

	// OnRetry - callback перед каждым повтором (для логирования)
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig возвращает конфигурацию по умолчанию
//
// - 4 попытки
// - Задержки: 100ms, 200ms, 400ms (+ jitter)
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  4,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// AggressiveConfig для критичных операций (например, сохранение снапшота
// после аварийного стопа)
//
// - 6 попыток
// - Задержки: 50ms, 100ms, 200ms, 400ms, 800ms
func AggressiveConfig() Config {
	return Config{
		MaxAttempts:  6,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// ConservativeConfig для некритичных операций (например, запись уведомлений)
//
// - 3 попытки
// - Задержки: 500ms, 1s
func ConservativeConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.2,
	}
}

// validate проверяет и устанавливает значения по умолчанию
func (c *Config) validate() {
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.JitterFactor < 0 {
		c.JitterFactor = 0
	}
	if c.JitterFactor > 1 {
		c.JitterFactor = 1
	}
}

// delayFor вычисляет задержку перед попыткой attempt+1
func (c *Config) delayFor(attempt int) time.Duration {
	delay := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt))

	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}

	if c.JitterFactor > 0 {
		// вариация от -JitterFactor до +JitterFactor
		delay += delay * c.JitterFactor * (rand.Float64()*2 - 1)
	}

	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

// Do выполняет операцию с повторными попытками
//
// Возвращает nil при успехе; иначе последнюю ошибку после исчерпания
// попыток или отмены контекста.
//
// Пример:
//
//	err := retry.Do(ctx, func() error {
//	    return repo.SaveSnapshot(ctx, snap)
//	}, retry.DefaultConfig())
func Do(ctx context.Context, operation func() error, cfg Config) error {
	_, err := DoWithResult(ctx, func() (struct{}, error) {
		return struct{}{}, operation()
	}, cfg)
	return err
}

// DoWithResult выполняет операцию с результатом и повторными попытками
//
//	snap, err := retry.DoWithResult(ctx, func() (*models.EngineSnapshot, error) {
//	    return repo.LoadSnapshot(ctx)
//	}, retry.DefaultConfig())
func DoWithResult[T any](ctx context.Context, operation func() (T, error), cfg Config) (T, error) {
	cfg.validate()

	var lastErr error
	var zero T

	for attempt := 0; cfg.MaxAttempts <= 0 || attempt < cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return zero, lastErr
			}
			return zero, ctx.Err()
		default:
		}

		result, err := operation()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if cfg.RetryIf != nil && !cfg.RetryIf(err) {
			return zero, err
		}

		// Последняя попытка - не ждём
		if cfg.MaxAttempts > 0 && attempt >= cfg.MaxAttempts-1 {
			break
		}

		delay := cfg.delayFor(attempt)
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, delay)
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, lastErr
		}
	}

	return zero, lastErr
}

// ============================================================
// Классификация ошибок
// ============================================================

// RetryableError интерфейс для ошибок с явным признаком повторяемости
type RetryableError interface {
	error
	Retryable() bool
}

// IsRetryable возвращает true если ошибку имеет смысл повторять
//
// Порядок проверки: RetryableError, затем Temporary(), иначе true.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var retryable RetryableError
	if errors.As(err, &retryable) {
		return retryable.Retryable()
	}

	type temporary interface {
		Temporary() bool
	}
	var temp temporary
	if errors.As(err, &temp) {
		return temp.Temporary()
	}

	return true
}

// RetryIfNotContext не повторяет ошибки контекста (cancel, timeout)
func RetryIfNotContext(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

// PermanentError оборачивает ошибку которую не нужно повторять
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }

func (e *PermanentError) Unwrap() error { return e.Err }

func (e *PermanentError) Retryable() bool { return false }

// Permanent помечает ошибку как неповторяемую
//
//	if errors.Is(err, sql.ErrNoRows) {
//	    return retry.Permanent(err)
//	}
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}
