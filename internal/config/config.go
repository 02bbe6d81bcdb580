package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Redis    RedisConfig
	Batch    BatchConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port           int
	Env            string
	LogLevel       string
	Timezone       string
	AllowedOrigins []string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// BatchConfig controls the scheduled attendance jobs and their lease lock.
type BatchConfig struct {
	Enabled            bool
	LockDriver         string // "postgres" or "redis"
	LockAtMostFor      time.Duration
	LockAtLeastFor     time.Duration
	CloseBeforeAbsent  bool
	AccrualConcurrency int
}

const (
	LockDriverPostgres = "postgres"
	LockDriverRedis    = "redis"
)

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, using process environment")
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "hris-attendance"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Redis configuration
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	config.Redis = RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       redisDB,
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	allowedOrigins := getEnvSlice("CORS_ALLOWED_ORIGINS")
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}

	config.App = AppConfig{
		Port:           appPort,
		Env:            getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Timezone:       getEnv("APP_TIMEZONE", "Asia/Seoul"),
		AllowedOrigins: allowedOrigins,
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// Batch configuration
	atMost, err := time.ParseDuration(getEnv("BATCH_LOCK_AT_MOST", "30m"))
	if err != nil {
		return nil, fmt.Errorf("invalid BATCH_LOCK_AT_MOST: %w", err)
	}
	atLeast, err := time.ParseDuration(getEnv("BATCH_LOCK_AT_LEAST", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid BATCH_LOCK_AT_LEAST: %w", err)
	}
	concurrency, err := strconv.Atoi(getEnv("BATCH_ACCRUAL_CONCURRENCY", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid BATCH_ACCRUAL_CONCURRENCY: %w", err)
	}

	config.Batch = BatchConfig{
		Enabled:            getEnvBool("BATCH_ENABLED", true),
		LockDriver:         getEnv("BATCH_LOCK_DRIVER", LockDriverPostgres),
		LockAtMostFor:      atMost,
		LockAtLeastFor:     atLeast,
		CloseBeforeAbsent:  getEnvBool("BATCH_CLOSE_BEFORE_ABSENT", false),
		AccrualConcurrency: concurrency,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("invalid APP_TIMEZONE %q: %w", c.App.Timezone, err)
	}
	switch c.Batch.LockDriver {
	case LockDriverPostgres:
	case LockDriverRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when BATCH_LOCK_DRIVER=redis")
		}
	default:
		return fmt.Errorf("unsupported BATCH_LOCK_DRIVER %q", c.Batch.LockDriver)
	}
	if c.Batch.LockAtLeastFor > c.Batch.LockAtMostFor {
		return fmt.Errorf("BATCH_LOCK_AT_LEAST must not exceed BATCH_LOCK_AT_MOST")
	}
	if c.Batch.AccrualConcurrency < 1 {
		return fmt.Errorf("BATCH_ACCRUAL_CONCURRENCY must be at least 1")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Location returns the configured application timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getEnvSlice(env string) []string {
	value := getEnv(env, "")
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			result = append(result, p)
		}
	}
	return result
}
