// Пакет config — загрузка и валидация конфигурации Inspection Module
// из переменных окружения (с необязательным .env файлом).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// ServiceName — имя сервиса в health-ответах и метриках зависимостей.
const ServiceName = "inspection-module"

// Config содержит все параметры конфигурации Inspection Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (диапазон 8040-8049)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 60s)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown (по умолчанию 5s)
	ShutdownTimeout time.Duration

	// --- Удалённый источник ---

	// Read endpoint (пустой или шаблон — локальный режим)
	RemoteReadURL string
	// Write endpoint (пусто — локальный режим сохранения)
	RemoteWriteURL string
	// Таймаут одного запроса к источнику (по умолчанию 15s)
	RemoteTimeout time.Duration
	// Путь к CA-сертификату для HTTPS (пустой — системные CA)
	RemoteCACert string
	// Таймаут фоновой отправки записи (по умолчанию 30s)
	PersistTimeout time.Duration

	// --- Данные и уведомления ---

	// Путь к YAML с резервным набором (пустой — встроенный набор)
	SeedFile string
	// Время жизни уведомления (по умолчанию 3s)
	NotifyTTL time.Duration
	// Максимум одновременно живых уведомлений (по умолчанию 100)
	NotifyMax int

	// --- API ---

	// Проверка запросов по OpenAPI документу (по умолчанию true)
	OpenAPIValidation bool

	// --- Мониторинг зависимостей (topologymetrics) ---

	// Включён ли мониторинг remote webhook (по умолчанию true)
	DephealthEnabled bool
	// Имя группы в метриках (по умолчанию inspection-module)
	DephealthGroup string
	// Интервал проверки (по умолчанию 15s)
	DephealthCheckInterval time.Duration
}

// LoadEnvFile загружает переменные из .env файла, не перезаписывая
// уже заданные. path == "" — ".env" в текущем каталоге, если он есть.
func LoadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf(".env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// IM_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("IM_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("IM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("IM_PORT: порт вне диапазона: %d", cfg.Port)
	}

	// IM_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("IM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("IM_LOG_LEVEL: %w", err)
	}

	// IM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("IM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("IM_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	if cfg.HTTPReadTimeout, err = getEnvPositiveDuration("IM_HTTP_READ_TIMEOUT", 30*time.Second); err != nil {
		return nil, fmt.Errorf("IM_HTTP_READ_TIMEOUT: %w", err)
	}
	if cfg.HTTPWriteTimeout, err = getEnvPositiveDuration("IM_HTTP_WRITE_TIMEOUT", 60*time.Second); err != nil {
		return nil, fmt.Errorf("IM_HTTP_WRITE_TIMEOUT: %w", err)
	}
	if cfg.HTTPIdleTimeout, err = getEnvPositiveDuration("IM_HTTP_IDLE_TIMEOUT", 120*time.Second); err != nil {
		return nil, fmt.Errorf("IM_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- Graceful shutdown ---

	if cfg.ShutdownTimeout, err = getEnvPositiveDuration("IM_SHUTDOWN_TIMEOUT", 5*time.Second); err != nil {
		return nil, fmt.Errorf("IM_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- Удалённый источник ---

	cfg.RemoteReadURL = strings.TrimSpace(os.Getenv("IM_REMOTE_READ_URL"))
	// IM_REMOTE_WRITE_URL — отдельный webhook сохранения, без значения по умолчанию
	cfg.RemoteWriteURL = strings.TrimSpace(os.Getenv("IM_REMOTE_WRITE_URL"))
	if cfg.RemoteTimeout, err = getEnvPositiveDuration("IM_REMOTE_TIMEOUT", 15*time.Second); err != nil {
		return nil, fmt.Errorf("IM_REMOTE_TIMEOUT: %w", err)
	}
	cfg.RemoteCACert = os.Getenv("IM_REMOTE_CA_CERT")
	if cfg.PersistTimeout, err = getEnvPositiveDuration("IM_PERSIST_TIMEOUT", 30*time.Second); err != nil {
		return nil, fmt.Errorf("IM_PERSIST_TIMEOUT: %w", err)
	}

	// --- Данные и уведомления ---

	cfg.SeedFile = os.Getenv("IM_SEED_FILE")
	if cfg.NotifyTTL, err = getEnvPositiveDuration("IM_NOTIFY_TTL", 3*time.Second); err != nil {
		return nil, fmt.Errorf("IM_NOTIFY_TTL: %w", err)
	}
	cfg.NotifyMax, err = getEnvInt("IM_NOTIFY_MAX", 100)
	if err != nil {
		return nil, fmt.Errorf("IM_NOTIFY_MAX: %w", err)
	}
	if cfg.NotifyMax < 1 {
		return nil, fmt.Errorf("IM_NOTIFY_MAX: значение должно быть > 0")
	}

	// --- API ---

	if cfg.OpenAPIValidation, err = getEnvBool("IM_OPENAPI_VALIDATION", true); err != nil {
		return nil, fmt.Errorf("IM_OPENAPI_VALIDATION: %w", err)
	}

	// --- Мониторинг зависимостей ---

	if cfg.DephealthEnabled, err = getEnvBool("IM_DEPHEALTH_ENABLED", true); err != nil {
		return nil, fmt.Errorf("IM_DEPHEALTH_ENABLED: %w", err)
	}
	cfg.DephealthGroup = getEnvDefault("IM_DEPHEALTH_GROUP", ServiceName)
	if cfg.DephealthCheckInterval, err = getEnvPositiveDuration("IM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second); err != nil {
		return nil, fmt.Errorf("IM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvPositiveDuration возвращает time.Duration из переменной окружения
// или значение по умолчанию. Заданное значение должно быть > 0.
func getEnvPositiveDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	if d <= 0 {
		return 0, fmt.Errorf("значение должно быть > 0")
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
