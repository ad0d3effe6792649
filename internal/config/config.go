// Package config loads the engine's runtime configuration from a .env
// file (if present) and the process environment: a typed struct, a
// Load/Get singleton, and plain os.Getenv-backed helpers rather than a
// reflection-based binder.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the engine process.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Engine   EngineConfig
	Logger   LoggerConfig
	Redis    RedisConfig
	Database DatabaseConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// StorageConfig holds disk-layout and page-cache configuration.
type StorageConfig struct {
	DataDir           string
	PageCacheEnabled  bool
	PageCacheCapacity int
	MetadataFlushEvery int
}

// EngineConfig holds matching-engine configuration.
type EngineConfig struct {
	AdminUserID string
}

// LoggerConfig holds logger configuration.
type LoggerConfig struct {
	Level string // DEBUG, INFO, WARN, ERROR
}

// RedisConfig holds optional Redis mirror configuration.
type RedisConfig struct {
	Enabled      bool
	Host         string
	Port         int
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
	OrderTTL     time.Duration
}

// DatabaseConfig holds optional Postgres trade-blotter configuration.
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
	MaxConns int32
}

var instance *Config

// Load loads configuration from a .env file (optional) and the
// environment, validates it, and sets the package singleton.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Storage: StorageConfig{
			DataDir:            getEnv("DATA_DIR", "data"),
			PageCacheEnabled:   getEnvBool("PAGE_CACHE_ENABLED", true),
			PageCacheCapacity:  getEnvInt("PAGE_CACHE_CAPACITY", 1024),
			MetadataFlushEvery: getEnvInt("METADATA_FLUSH_EVERY", 50),
		},
		Engine: EngineConfig{
			AdminUserID: getEnv("ADMIN_USER_ID", "admin123"),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "INFO"),
		},
		Redis: RedisConfig{
			Enabled:      getEnvBool("REDIS_ENABLED", false),
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			MaxRetries:   getEnvInt("REDIS_MAX_RETRIES", 3),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			OrderTTL:     getEnvDuration("REDIS_ORDER_TTL", 24*time.Hour),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvBool("DATABASE_ENABLED", false),
			Host:     getEnv("DATABASE_HOST", "localhost"),
			Port:     getEnvInt("DATABASE_PORT", 5432),
			Name:     getEnv("DATABASE_NAME", "matchengine"),
			User:     getEnv("DATABASE_USER", "postgres"),
			Password: getEnv("DATABASE_PASSWORD", ""),
			SSLMode:  getEnv("DATABASE_SSL_MODE", "disable"),
			MaxConns: int32(getEnvInt("DATABASE_MAX_CONNECTIONS", 10)),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	instance = cfg
	return cfg, nil
}

// Get returns the singleton config instance. Panics if Load hasn't run.
func Get() *Config {
	if instance == nil {
		panic("config not loaded - call config.Load() first")
	}
	return instance
}

// Validate checks the loaded configuration for obviously broken values.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("DATA_DIR cannot be empty")
	}
	if c.Storage.PageCacheCapacity < 1 {
		return fmt.Errorf("PAGE_CACHE_CAPACITY must be > 0")
	}
	if c.Engine.AdminUserID == "" {
		return fmt.Errorf("ADMIN_USER_ID cannot be empty")
	}

	validLevels := map[string]bool{"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true}
	if !validLevels[c.Logger.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: DEBUG, INFO, WARN, ERROR")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
