package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderWhatsApp = "whatsapp"
	ProviderTelegram = "telegram"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL string
	DBMigrate   bool
	LogLevel    string
	Environment string

	CronTimezone     *time.Location
	CronSpecReminder string
	RunOnStart       bool
	MessageDelay     time.Duration // Pause between two messages to the same recipient
	SendTimeout      time.Duration
	TickTimeout      time.Duration

	MessagingProvider string
	GreenAPIURL       string // Green-API credentials; any of them empty means sends are logged as pending
	GreenAPIInstance  string
	GreenAPIToken     string

	TelegramToken   string // Optional unless MessagingProvider is telegram
	AdminTelegramID int64  // Operator allowed to use bot commands; 0 disables them

	RedisAddr     string // Optional tick lease shared between replicas
	RedisPassword string
	RedisDB       int

	RabbitMQURL          string // Optional outcome fan-out
	RabbitMQOutcomeQueue string

	MetricsAddr string // Empty disables the /metrics endpoint
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}
	if cfg.DBMigrate, err = boolEnv("DB_MIGRATE", true); err != nil {
		return nil, err
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	tz := stringEnv("CRON_TIMEZONE", "UTC")
	cfg.CronTimezone, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid CRON_TIMEZONE %q: %w", tz, err)
	}

	cfg.CronSpecReminder = stringEnv("CRON_SPEC_REMINDER", "* * * * *") // Default: every minute
	if cfg.RunOnStart, err = boolEnv("RUN_ON_START", true); err != nil {
		return nil, err
	}
	if cfg.MessageDelay, err = durationEnv("MESSAGE_DELAY", time.Second); err != nil {
		return nil, err
	}
	if cfg.SendTimeout, err = durationEnv("SEND_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.TickTimeout, err = durationEnv("TICK_TIMEOUT", 55*time.Second); err != nil {
		return nil, err
	}

	cfg.MessagingProvider = strings.ToLower(stringEnv("MESSAGING_PROVIDER", ProviderWhatsApp))
	if cfg.MessagingProvider != ProviderWhatsApp && cfg.MessagingProvider != ProviderTelegram {
		return nil, fmt.Errorf("invalid MESSAGING_PROVIDER %q: expected %s or %s", cfg.MessagingProvider, ProviderWhatsApp, ProviderTelegram)
	}
	cfg.GreenAPIURL = strings.TrimRight(os.Getenv("GREEN_API_URL"), "/")
	cfg.GreenAPIInstance = os.Getenv("GREEN_API_ID_INSTANCE")
	cfg.GreenAPIToken = os.Getenv("GREEN_API_TOKEN_INSTANCE")

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.MessagingProvider == ProviderTelegram && cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	if adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID"); adminIDStr != "" {
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if redisDBStr := os.Getenv("REDIS_DB"); redisDBStr != "" {
		cfg.RedisDB, err = strconv.Atoi(redisDBStr)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
		}
	}

	cfg.RabbitMQURL = os.Getenv("RABBITMQ_URL")
	cfg.RabbitMQOutcomeQueue = stringEnv("RABBITMQ_OUTCOME_QUEUE", "medication.reminder.outcomes")

	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	return cfg, nil
}

// GreenAPIConfigured reports whether all Green-API credentials are present.
func (c *AppConfig) GreenAPIConfigured() bool {
	return c.GreenAPIURL != "" && c.GreenAPIInstance != "" && c.GreenAPIToken != ""
}

func stringEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func boolEnv(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: negative duration %s", key, v)
	}
	return d, nil
}
