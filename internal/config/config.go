// Пакет config — загрузка и валидация конфигурации Share Module
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Share Module.
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

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// --- Share-ссылки ---

	// TTL ссылки по умолчанию, если не задан при создании (24h)
	DefaultLinkTTL time.Duration

	// --- Кэш контента ---

	// Максимальное количество payload в LRU-кэше
	CacheSize int
	// TTL записи кэша
	CacheTTL time.Duration

	// --- JWT / Keycloak ---

	// URL JWKS endpoint Keycloak. Пустой — JWT-аутентификация ОТКЛЮЧЕНА
	// (все management endpoints открыты; допустимо только в dev).
	JWKSURL string
	// Путь к CA-сертификату для TLS к Keycloak (опционально)
	JWKSCACertPath string
	// Ожидаемый issuer JWT (пустой — не проверяется)
	JWTIssuer string
	// Группы IdP, маппящиеся в роль admin
	JWTAdminGroups []string
	// Группы IdP, маппящиеся в роль readonly
	JWTReadonlyGroups []string
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration

	// --- Dephealth ---

	// Имя группы в метриках dephealth
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration
	// Добавлять лейбл isentry=yes ко всем зависимостям
	DephealthIsEntry bool
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// SM_PORT — порт HTTP-сервера (по умолчанию 8040)
	cfg.Port, err = getEnvInt("SM_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("SM_PORT: %w", err)
	}

	// SM_LOG_LEVEL — уровень логирования (по умолчанию info)
	logLevel := getEnvDefault("SM_LOG_LEVEL", "info")
	cfg.LogLevel, err = parseLogLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("SM_LOG_LEVEL: %w", err)
	}

	// SM_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("SM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SM_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("SM_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_HTTP_READ_TIMEOUT: %w", err)
	}

	cfg.HTTPWriteTimeout, err = getEnvDuration("SM_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_HTTP_WRITE_TIMEOUT: %w", err)
	}

	cfg.HTTPIdleTimeout, err = getEnvDuration("SM_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_HTTP_IDLE_TIMEOUT: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("SM_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	// SM_DB_HOST — обязательный
	cfg.DBHost, err = getEnvRequired("SM_DB_HOST")
	if err != nil {
		return nil, err
	}

	// SM_DB_PORT — порт PostgreSQL (по умолчанию 5432)
	cfg.DBPort, err = getEnvInt("SM_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("SM_DB_PORT: %w", err)
	}

	// SM_DB_NAME — обязательный
	cfg.DBName, err = getEnvRequired("SM_DB_NAME")
	if err != nil {
		return nil, err
	}

	// SM_DB_USER — обязательный
	cfg.DBUser, err = getEnvRequired("SM_DB_USER")
	if err != nil {
		return nil, err
	}

	// SM_DB_PASSWORD — обязательный
	cfg.DBPassword, err = getEnvRequired("SM_DB_PASSWORD")
	if err != nil {
		return nil, err
	}

	// SM_DB_SSL_MODE — режим SSL (по умолчанию disable)
	cfg.DBSSLMode = getEnvDefault("SM_DB_SSL_MODE", "disable")
	validSSLModes := map[string]bool{
		"disable": true, "require": true, "verify-ca": true, "verify-full": true,
	}
	if !validSSLModes[cfg.DBSSLMode] {
		return nil, fmt.Errorf("SM_DB_SSL_MODE: недопустимое значение %q, допустимые: disable, require, verify-ca, verify-full", cfg.DBSSLMode)
	}

	// --- Share-ссылки ---

	// SM_DEFAULT_LINK_TTL — TTL ссылки по умолчанию (24h)
	cfg.DefaultLinkTTL, err = getEnvDuration("SM_DEFAULT_LINK_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("SM_DEFAULT_LINK_TTL: %w", err)
	}
	if cfg.DefaultLinkTTL <= 0 {
		return nil, fmt.Errorf("SM_DEFAULT_LINK_TTL: значение должно быть > 0")
	}

	// --- Кэш контента ---

	// SM_CACHE_SIZE — размер LRU-кэша (по умолчанию 1000)
	cfg.CacheSize, err = getEnvInt("SM_CACHE_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("SM_CACHE_SIZE: %w", err)
	}
	if cfg.CacheSize < 1 {
		return nil, fmt.Errorf("SM_CACHE_SIZE: значение должно быть >= 1")
	}

	// SM_CACHE_TTL — TTL записи кэша (по умолчанию 5m)
	cfg.CacheTTL, err = getEnvDuration("SM_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SM_CACHE_TTL: %w", err)
	}

	// --- JWT / Keycloak ---

	// SM_JWKS_URL — пустой означает отключённый JWT (только dev)
	cfg.JWKSURL = getEnvDefault("SM_JWKS_URL", "")
	cfg.JWKSCACertPath = getEnvDefault("SM_JWKS_CA_CERT", "")
	cfg.JWTIssuer = getEnvDefault("SM_JWT_ISSUER", "")

	cfg.JWTAdminGroups = getEnvList("SM_JWT_ADMIN_GROUPS", []string{"/artstore-admins"})
	cfg.JWTReadonlyGroups = getEnvList("SM_JWT_READONLY_GROUPS", []string{"/artstore-readonly"})

	cfg.JWKSClientTimeout, err = getEnvDuration("SM_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_JWKS_CLIENT_TIMEOUT: %w", err)
	}

	cfg.JWKSRefreshInterval, err = getEnvDuration("SM_JWKS_REFRESH_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("SM_JWKS_REFRESH_INTERVAL: %w", err)
	}

	cfg.JWTLeeway, err = getEnvDuration("SM_JWT_LEEWAY", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_JWT_LEEWAY: %w", err)
	}

	// --- Dephealth ---

	cfg.DephealthGroup = getEnvDefault("SM_DEPHEALTH_GROUP", "artstore")

	cfg.DephealthCheckInterval, err = getEnvDuration("SM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("SM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL PostgreSQL без credentials
// (для лейблов dephealth-метрик).
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
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

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvList возвращает список значений, разделённых запятыми.
func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
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

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
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
