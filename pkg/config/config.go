package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	HTTPAddr       string
	MigrationsPath string
	LogLevel       string

	// Supabase/hosted Postgres convenience:
	// - DATABASE_URL: runtime connection (often PgBouncer/pooler)
	// - DIRECT_URL: direct connection for migrations
	DatabaseURL string
	DirectURL   string

	DB DBConfig

	Session  SessionConfig
	Postmark PostmarkConfig
	Storage  StorageConfig

	// AppURL is the dashboard link placed in staff notification emails.
	AppURL string

	// NotifyAllowedOrigins is the allowlist for the public booking-notification endpoint.
	// Example:
	//   https://lastrada-eg.com,https://www.lastrada-eg.com
	NotifyAllowedOrigins []string

	// BusinessTimezone decides what "today" means when validating event dates.
	BusinessTimezone string

	// Optional infrastructure. Empty disables it.
	RedisAddr    string
	RabbitURL    string
	OTLPEndpoint string
}

type DBConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
}

type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

type PostmarkConfig struct {
	ServerToken string
	From        string
	BaseURL     string
}

type StorageConfig struct {
	URL        string
	ServiceKey string
	Bucket     string
}

func Load() Config {
	// Convenience for local dev: load variables from .env if present.
	// In production, rely on real environment variables.
	_ = godotenv.Load()

	// Cloud Run sets PORT. Prefer it when HTTP_ADDR isn't explicitly set.
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			httpAddr = ":" + port
		} else {
			httpAddr = ":8081"
		}
	}

	return Config{
		AppEnv:         env("APP_ENV", "dev"),
		HTTPAddr:       httpAddr,
		MigrationsPath: os.Getenv("MIGRATIONS_PATH"),
		LogLevel:       env("LOG_LEVEL", "info"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DirectURL:      os.Getenv("DIRECT_URL"),
		DB: DBConfig{
			Host:     env("DB_HOST", "localhost"),
			Port:     env("DB_PORT", "5432"),
			Name:     env("DB_NAME", "bookingdesk"),
			User:     env("DB_USER", "bookingdesk"),
			Password: env("DB_PASSWORD", "bookingdesk"),
			SSLMode:  env("DB_SSLMODE", "disable"),
		},
		Session: SessionConfig{
			Secret: os.Getenv("SESSION_SECRET"),
			TTL:    envDuration("SESSION_TTL", 7*24*time.Hour),
		},
		Postmark: PostmarkConfig{
			ServerToken: os.Getenv("POSTMARK_SERVER_TOKEN"),
			From:        env("POSTMARK_FROM", "info@lastrada-eg.com"),
			BaseURL:     env("POSTMARK_BASE_URL", "https://api.postmarkapp.com"),
		},
		Storage: StorageConfig{
			URL:        os.Getenv("STORAGE_URL"),
			ServiceKey: os.Getenv("STORAGE_SERVICE_KEY"),
			Bucket:     env("STORAGE_BUCKET", "downpayment_screenshots"),
		},
		AppURL: env("APP_URL", "https://internal.lastrada-eg.com"),
		NotifyAllowedOrigins: envList("NOTIFY_ALLOWED_ORIGINS",
			"https://lastrada-eg.com,https://www.lastrada-eg.com,https://internal.lastrada-eg.com,http://localhost:3000,http://localhost:3001"),
		BusinessTimezone: env("BUSINESS_TIMEZONE", "Africa/Cairo"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RabbitURL:        os.Getenv("RABBIT_URL"),
		OTLPEndpoint:     os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

// IsProd reports whether cookies should be marked Secure and dev fallbacks disabled.
func (c Config) IsProd() bool {
	return c.AppEnv == "prod"
}

// Location returns the business timezone, falling back to UTC when the name is unknown.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func env(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func envList(key, fallbackCSV string) []string {
	v := os.Getenv(key)
	if v == "" {
		v = fallbackCSV
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
