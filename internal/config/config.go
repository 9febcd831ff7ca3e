package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/wokeornotsite/wokeornot-sub000/pkg/config"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/database"
	"github.com/wokeornotsite/wokeornot-sub000/pkg/tracing"
)

// Rate limit backends.
const (
	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

// Config holds all configuration for the review service.
type Config struct {
	Environment    string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"dev"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"wokeornot"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"wokeornot_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"wokeornot"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Redis (shared rate-limit store)
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Rate limiting
	RateLimitBackend       string `env:"RATE_LIMIT_BACKEND" envDefault:"memory"`
	RateLimitShadow        bool   `env:"RATE_LIMIT_SHADOW" envDefault:"false"`
	RateLimitWindowSeconds int    `env:"RATE_LIMIT_WINDOW_SECONDS" envDefault:"60"`
	ReviewRateLimit        int    `env:"REVIEW_RATE_LIMIT" envDefault:"10"`
	ReactionRateLimit      int    `env:"REACTION_RATE_LIMIT" envDefault:"60"`

	// Global per-IP throttle. THROTTLE_RPS=0 turns it off.
	ThrottleRPS   int `env:"THROTTLE_RPS" envDefault:"50"`
	ThrottleBurst int `env:"THROTTLE_BURST" envDefault:"100"`

	// Auth
	JWTSecret string `env:"JWT_SECRET" envDefault:""`
	JWTIssuer string `env:"JWT_ISSUER" envDefault:""`

	// Reviews
	AllowGuestReviews bool `env:"ALLOW_GUEST_REVIEWS" envDefault:"false"`

	// Catalog
	TMDBBaseURL        string `env:"TMDB_BASE_URL" envDefault:"https://api.themoviedb.org/3"`
	TMDBAPIKey         string `env:"TMDB_API_KEY" envDefault:""`
	TMDBTimeoutSeconds int    `env:"TMDB_TIMEOUT_SECONDS" envDefault:"10"`

	// Kafka
	KafkaEnabled bool     `env:"KAFKA_ENABLED" envDefault:"false"`
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// Maintenance scanner
	MaintenanceBatchSize  int `env:"MAINTENANCE_BATCH_SIZE" envDefault:"500"`
	MaintenanceSampleSize int `env:"MAINTENANCE_SAMPLE_SIZE" envDefault:"20"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load service config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("POSTGRES_HOST is required")
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("POSTGRES_USER is required")
	}
	switch c.RateLimitBackend {
	case RateLimitBackendMemory:
	case RateLimitBackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when RATE_LIMIT_BACKEND=redis")
		}
	default:
		return fmt.Errorf("RATE_LIMIT_BACKEND must be memory or redis, got %q", c.RateLimitBackend)
	}
	if c.RateLimitWindowSeconds < 1 {
		return fmt.Errorf("RATE_LIMIT_WINDOW_SECONDS must be positive, got %d", c.RateLimitWindowSeconds)
	}
	if c.ReviewRateLimit < 1 || c.ReactionRateLimit < 1 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.ThrottleRPS < 0 {
		return fmt.Errorf("THROTTLE_RPS must not be negative, got %d", c.ThrottleRPS)
	}
	if c.ThrottleRPS > 0 && c.ThrottleBurst < 1 {
		return fmt.Errorf("THROTTLE_BURST must be positive when throttling is enabled")
	}
	if c.JWTSecret == "" && c.Environment == "production" {
		return fmt.Errorf("JWT_SECRET is required in production")
	}
	if c.KafkaEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	if c.MaintenanceBatchSize < 1 || c.MaintenanceSampleSize < 0 {
		return fmt.Errorf("invalid maintenance batch/sample size: %d/%d", c.MaintenanceBatchSize, c.MaintenanceSampleSize)
	}
	return nil
}

// Postgres returns the pool configuration.
func (c *Config) Postgres() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// Redis returns the Redis client configuration.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Addr:     c.RedisAddr,
		Password: c.RedisPass,
		DB:       c.RedisDB,
	}
}

// Tracing returns the OpenTelemetry configuration.
func (c *Config) Tracing(serviceName string) tracing.Config {
	return tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: c.ServiceVersion,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTELEndpoint,
		Insecure:       c.Environment != "production",
		SampleRate:     c.OTELSampleRate,
		Enabled:        c.OTELEnabled,
	}
}

// RateLimitWindow returns the fixed-window length.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// SlowQueryThreshold returns the slow query logging threshold.
func (c *Config) SlowQueryThreshold() time.Duration {
	return time.Duration(c.SlowQueryThresholdMs) * time.Millisecond
}
