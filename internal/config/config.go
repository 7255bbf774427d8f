package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"riskengine/internal/models"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Risk     RiskConfig
	Engine   EngineConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// RiskConfig - лимиты риск-менеджмента
//
// Значения по умолчанию совпадают с models.DefaultRiskPolicy.
type RiskConfig struct {
	InitialCapital           float64
	MaxRiskPerTradePercent   float64
	MaxDailyLossPercent      float64
	MaxWeeklyLossPercent     float64
	MaxMonthlyLossPercent    float64
	MaxOpenPositions         int
	MinRiskRewardRatio       float64
	MaxCorrelationThreshold  float64
	EmergencyStopLossPercent float64
}

// EngineConfig - настройки движка
type EngineConfig struct {
	// Буфер канала уведомлений; переполнение не блокирует торговый путь
	NotificationBuffer int

	// Периодическая рассылка сводки в WebSocket
	SummaryBroadcastFreq time.Duration

	// Rate limit на эндпоинт обновления цен (запросов в секунду / burst)
	PriceUpdateRate  float64
	PriceUpdateBurst int

	// Retry для сохранения снапшотов
	MaxRetries   int
	RetryBackoff time.Duration
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "riskengine"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Risk: RiskConfig{
			InitialCapital:           getEnvAsFloat("INITIAL_CAPITAL", 10000),
			MaxRiskPerTradePercent:   getEnvAsFloat("MAX_RISK_PER_TRADE_PERCENT", 1.5),
			MaxDailyLossPercent:      getEnvAsFloat("MAX_DAILY_LOSS_PERCENT", 5.0),
			MaxWeeklyLossPercent:     getEnvAsFloat("MAX_WEEKLY_LOSS_PERCENT", 15.0),
			MaxMonthlyLossPercent:    getEnvAsFloat("MAX_MONTHLY_LOSS_PERCENT", 20.0),
			MaxOpenPositions:         getEnvAsInt("MAX_OPEN_POSITIONS", 3),
			MinRiskRewardRatio:       getEnvAsFloat("MIN_RISK_REWARD_RATIO", 1.5),
			MaxCorrelationThreshold:  getEnvAsFloat("MAX_CORRELATION_THRESHOLD", 0.7),
			EmergencyStopLossPercent: getEnvAsFloat("EMERGENCY_STOP_LOSS_PERCENT", 25.0),
		},
		Engine: EngineConfig{
			NotificationBuffer:   getEnvAsInt("NOTIFICATION_BUFFER", 256),
			SummaryBroadcastFreq: getEnvAsDuration("SUMMARY_BROADCAST_FREQ", 5*time.Second),
			PriceUpdateRate:      getEnvAsFloat("PRICE_UPDATE_RATE", 100),
			PriceUpdateBurst:     getEnvAsInt("PRICE_UPDATE_BURST", 200),
			MaxRetries:           getEnvAsInt("MAX_RETRIES", 4),
			RetryBackoff:         getEnvAsDuration("RETRY_BACKOFF", 500*time.Millisecond),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Policy собирает models.RiskPolicy из конфигурации
func (r RiskConfig) Policy() models.RiskPolicy {
	return models.RiskPolicy{
		MaxRiskPerTradePercent:   r.MaxRiskPerTradePercent,
		MaxDailyLossPercent:      r.MaxDailyLossPercent,
		MaxWeeklyLossPercent:     r.MaxWeeklyLossPercent,
		MaxMonthlyLossPercent:    r.MaxMonthlyLossPercent,
		MaxOpenPositions:         r.MaxOpenPositions,
		MinRiskRewardRatio:       r.MinRiskRewardRatio,
		MaxCorrelationThreshold:  r.MaxCorrelationThreshold,
		EmergencyStopLossPercent: r.EmergencyStopLossPercent,
	}
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	if c.Risk.InitialCapital <= 0 {
		return fmt.Errorf("INITIAL_CAPITAL must be positive, got %v", c.Risk.InitialCapital)
	}

	// Все процентные лимиты должны быть > 0; согласованность
	// daily <= weekly <= monthly остаётся на усмотрение оператора
	percents := map[string]float64{
		"MAX_RISK_PER_TRADE_PERCENT":  c.Risk.MaxRiskPerTradePercent,
		"MAX_DAILY_LOSS_PERCENT":      c.Risk.MaxDailyLossPercent,
		"MAX_WEEKLY_LOSS_PERCENT":     c.Risk.MaxWeeklyLossPercent,
		"MAX_MONTHLY_LOSS_PERCENT":    c.Risk.MaxMonthlyLossPercent,
		"EMERGENCY_STOP_LOSS_PERCENT": c.Risk.EmergencyStopLossPercent,
	}
	for name, v := range percents {
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, v)
		}
	}

	if c.Risk.MaxOpenPositions < 1 {
		return fmt.Errorf("MAX_OPEN_POSITIONS must be at least 1, got %d", c.Risk.MaxOpenPositions)
	}

	if c.Risk.MinRiskRewardRatio <= 0 {
		return fmt.Errorf("MIN_RISK_REWARD_RATIO must be positive, got %v", c.Risk.MinRiskRewardRatio)
	}

	if c.Risk.MaxCorrelationThreshold <= 0 || c.Risk.MaxCorrelationThreshold > 1 {
		return fmt.Errorf("MAX_CORRELATION_THRESHOLD must be in (0, 1], got %v", c.Risk.MaxCorrelationThreshold)
	}

	if c.Engine.NotificationBuffer < 1 {
		return fmt.Errorf("NOTIFICATION_BUFFER must be at least 1, got %d", c.Engine.NotificationBuffer)
	}

	if c.Engine.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES cannot be negative, got %d", c.Engine.MaxRetries)
	}

	if c.Engine.MaxRetries > 10 {
		return fmt.Errorf("MAX_RETRIES should not exceed 10, got %d", c.Engine.MaxRetries)
	}

	if c.Engine.PriceUpdateRate <= 0 {
		return fmt.Errorf("PRICE_UPDATE_RATE must be positive, got %v", c.Engine.PriceUpdateRate)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
