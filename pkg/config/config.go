package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Price sources
const (
	PriceSourcePostgres = "postgres"
	PriceSourceCSV      = "csv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	Database DatabaseConfig
	Redis    RedisConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Price data
	PriceSource string // postgres | csv
	CSVDir      string // csv source: one <SYMBOL>.csv per instrument

	// Optimisation
	ProfilePath      string        // YAML profile, empty = built-in default
	Workers          int           // parallel frontier points
	FrontierCacheTTL time.Duration // redis TTL of computed frontiers
	RefreshSchedule  string        // cron spec of the frontier_refresh job
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Option overrides a value after the environment is read and before
// validation; used for CLI flags
type Option func(*Config)

// WithPriceSource overrides PRICE_SOURCE when s is not empty
func WithPriceSource(s string) Option {
	return func(c *Config) {
		if s != "" {
			c.PriceSource = s
		}
	}
}

// WithCSVDir overrides CSV_DIR when dir is not empty
func WithCSVDir(dir string) Option {
	return func(c *Config) {
		if dir != "" {
			c.CSVDir = dir
		}
	}
}

// WithProfilePath overrides PROFILE_PATH when path is not empty
func WithProfilePath(path string) Option {
	return func(c *Config) {
		if path != "" {
			c.ProfilePath = path
		}
	}
}

// WithLogLevel overrides LOG_LEVEL when level is not empty
func WithLogLevel(level string) Option {
	return func(c *Config) {
		if level != "" {
			c.LogLevel = level
		}
	}
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load(opts ...Option) (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		PriceSource: getEnv("PRICE_SOURCE", PriceSourcePostgres),
		CSVDir:      getEnv("CSV_DIR", "data/prices"),

		ProfilePath:      getEnv("PROFILE_PATH", ""),
		Workers:          getEnvAsInt("FRONTIER_WORKERS", runtime.GOMAXPROCS(0)),
		FrontierCacheTTL: getEnvAsDuration("FRONTIER_CACHE_TTL", "6h"),
		RefreshSchedule:  getEnv("REFRESH_SCHEDULE", "0 30 18 * * 1-5"),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	switch c.PriceSource {
	case PriceSourcePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when PRICE_SOURCE=%s", PriceSourcePostgres)
		}
	case PriceSourceCSV:
		if c.CSVDir == "" {
			return fmt.Errorf("CSV_DIR is required when PRICE_SOURCE=%s", PriceSourceCSV)
		}
	default:
		return fmt.Errorf("PRICE_SOURCE must be one of: %s, %s", PriceSourcePostgres, PriceSourceCSV)
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Workers < 1 {
		return fmt.Errorf("FRONTIER_WORKERS must be at least 1")
	}

	return nil
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
