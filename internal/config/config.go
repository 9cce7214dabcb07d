package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	ServerPort       string
	BaseURL          string
	FrontendURL      string
	EnableHSTS       bool
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	WorkerDebugMode  bool
	ServerDebugMode  bool
	LogFormat        string
	OTELEnabled      bool
	OTELEndpoint     string

	// Token verification
	AuthIssuer  string
	AuthJWKSURL string

	// Reminder evaluation
	ReminderInterval    time.Duration
	ReminderDedupe      bool
	ReminderInline      bool
	MonitoredUserWindow time.Duration

	NotificationQueueSize int
	InsightCacheSize      int
	InsightCacheTTL       time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		ServerPort:            getEnv("SERVER_PORT", "8080"),
		BaseURL:               getEnv("BASE_URL", "http://localhost:8080"),
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:            getEnvBool("ENABLE_HSTS", false),
		RedisURL:              getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:           getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch:      getEnvInt("RABBITMQ_PREFETCH", 1),
		WorkerDebugMode:       getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:       getEnvBool("SERVER_DEBUG_MODE", false),
		LogFormat:             getEnv("LOG_FORMAT", "json"),
		OTELEnabled:           getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:          getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		AuthIssuer:            getEnv("AUTH_ISSUER", ""),
		AuthJWKSURL:           getEnv("AUTH_JWKS_URL", ""),
		ReminderInterval:      getEnvDuration("REMINDER_INTERVAL", time.Minute),
		ReminderDedupe:        getEnvBool("REMINDER_DEDUPE", true),
		ReminderInline:        getEnvBool("REMINDER_INLINE", false),
		MonitoredUserWindow:   getEnvDuration("MONITORED_USER_WINDOW", 72*time.Hour),
		NotificationQueueSize: getEnvInt("NOTIFICATION_QUEUE_SIZE", 256),
		InsightCacheSize:      getEnvInt("INSIGHT_CACHE_SIZE", 1024),
		InsightCacheTTL:       getEnvDuration("INSIGHT_CACHE_TTL", 5*time.Minute),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for job queueing (reminders and notification delivery)")
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return nil, fmt.Errorf("LOG_FORMAT must be json or console, got %q", cfg.LogFormat)
	}

	if cfg.AuthJWKSURL == "" && cfg.AuthIssuer != "" {
		cfg.AuthJWKSURL = cfg.AuthIssuer + "/.well-known/jwks.json"
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("90s", "5m") or plain seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
