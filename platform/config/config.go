// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// SchedulerConfig provides settings for the asynq job scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// StatisticsConfig provides settings for the statistics production pipeline.
type StatisticsConfig interface {
	// GetAutomaticHandlingUnit is the sentinel owning unit reported for
	// automatically handled cases.
	GetAutomaticHandlingUnit() string
	// GetProduceMaxRetries caps how often a deferred record production is retried
	// before it is produced with a missing owning unit.
	GetProduceMaxRetries() int
	// GetProduceRetryDelay is the delay between deferred production retries.
	GetProduceRetryDelay() time.Duration
}

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	CORSAllowAll bool
	CORSOrigins  []string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	AutomaticHandlingUnit string
	ProduceMaxRetries     int
	ProduceRetryDelay     time.Duration
}

// Load reads configuration from the environment, with .env as a fallback
// for local development.
func Load() (*Config, error) {
	// Ignore error: .env is optional outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		CORSAllowAll: getBoolEnv("CORS_ALLOW_ALL", false),
		CORSOrigins:  splitEnv("CORS_ORIGINS"),

		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisTLSInsecure: getBoolEnv("REDIS_TLS_INSECURE", false),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "statistics"),
		AsynqConcurrency: getIntEnv("ASYNQ_CONCURRENCY", 10),

		AutomaticHandlingUnit: getEnv("STATISTICS_AUTOMATIC_UNIT", "9999"),
		ProduceMaxRetries:     getIntEnv("STATISTICS_PRODUCE_MAX_RETRIES", 5),
		ProduceRetryDelay:     getDurationEnv("STATISTICS_PRODUCE_RETRY_DELAY", 15*time.Minute),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

// GetDatabaseURL returns the database connection URL.
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// GetHTTPAddr returns the HTTP listen address.
func (c *Config) GetHTTPAddr() string { return c.HTTPAddr }

// GetCORSAllowAll reports whether any origin is allowed.
func (c *Config) GetCORSAllowAll() bool { return c.CORSAllowAll }

// GetCORSOrigins returns the allowed CORS origins.
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// GetRedisURL returns the redis connection URL for asynq.
func (c *Config) GetRedisURL() string { return c.RedisURL }

// GetRedisTLSInsecure reports whether redis TLS verification is skipped.
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }

// GetAsynqQueueName returns the asynq queue this service uses.
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }

// GetAsynqConcurrency returns the worker concurrency.
func (c *Config) GetAsynqConcurrency() int { return c.AsynqConcurrency }

// GetAutomaticHandlingUnit returns the sentinel unit for automatic handling.
func (c *Config) GetAutomaticHandlingUnit() string { return c.AutomaticHandlingUnit }

// GetProduceMaxRetries returns the deferred-production retry cap.
func (c *Config) GetProduceMaxRetries() int { return c.ProduceMaxRetries }

// GetProduceRetryDelay returns the deferred-production retry delay.
func (c *Config) GetProduceRetryDelay() time.Duration { return c.ProduceRetryDelay }

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getIntEnv(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitEnv(key string) []string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
