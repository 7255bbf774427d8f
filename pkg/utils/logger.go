package utils

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logger.go - настройка логирования
//
// Назначение:
// Инициализация структурированного логирования (zap) по конфигурации.
// Движок не форматирует и не хранит логи - он только пишет
// структурированные события через полученный logger.
//
// Функции:
// - InitLogger: создать и настроить logger
//   * Выбор формата (json, console)
//   * Уровни: debug, info, warn, error

// InitLogger создаёт zap.Logger с указанным уровнем и форматом
//
// Параметры:
//   - level: debug, info, warn, error
//   - format: json или console
//
// Возвращает ошибку при неизвестном уровне или формате.
func InitLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info", "":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		return nil, fmt.Errorf("unknown log level: %q", level)
	}

	var cfg zap.Config
	switch format {
	case "json", "":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format: %q", format)
	}

	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
