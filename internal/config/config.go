package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Cache backends accepted by CACHE_BACKEND
const (
	CacheBackendPostgres = "postgres"
	CacheBackendRedis    = "redis"
	CacheBackendMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Upstream stats API
	SportsAPIBaseURL        string        `envconfig:"SPORTS_API_BASE_URL" default:"https://stats.nba.com/stats"`
	SportsAPITimeout        time.Duration `envconfig:"SPORTS_API_TIMEOUT" default:"30s"`
	SportsAPIMaxConcurrency int           `envconfig:"SPORTS_API_MAX_CONCURRENCY" default:"8"`

	// Season defaults used when a caller does not pass one
	Season     string `envconfig:"NBA_SEASON" default:"2025-26"`
	SeasonType string `envconfig:"NBA_SEASON_TYPE" default:"Regular Season"`

	// Database
	DatabaseHost     string `envconfig:"DATABASE_HOST" default:"localhost"`
	DatabasePort     int    `envconfig:"DATABASE_PORT" default:"5432"`
	DatabaseName     string `envconfig:"DATABASE_NAME" default:"nbastats"`
	DatabaseUser     string `envconfig:"DATABASE_USER" default:"nbastats"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD" required:"true"`
	DatabaseSSLMode  string `envconfig:"DATABASE_SSL_MODE" default:"disable"`

	// Redis (only used when CACHE_BACKEND=redis)
	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Response cache
	CacheBackend       string        `envconfig:"CACHE_BACKEND" default:"postgres"`
	CacheTTLPlayerIdx  time.Duration `envconfig:"CACHE_TTL_PLAYER_INDEX" default:"6h"`
	CacheTTLGameLogs   time.Duration `envconfig:"CACHE_TTL_GAME_LOGS" default:"15m"`
	CacheStaleGameLogs time.Duration `envconfig:"CACHE_STALE_GAME_LOGS" default:"1h"`
	CachePruneCron     string        `envconfig:"CACHE_PRUNE_CRON" default:"@hourly"`

	PoolStatsInterval time.Duration `envconfig:"DB_POOL_STATS_INTERVAL" default:"30s"`

	// Coalesce concurrent cold-cache fetches of the same key
	IngestSingleFlight bool `envconfig:"INGEST_SINGLE_FLIGHT" default:"false"`

	// Application
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8080"`

	// Monitoring
	EnableMetrics bool `envconfig:"ENABLE_METRICS" default:"true"`
}

// Load loads configuration from environment variables
// It first attempts to load from .env file if present
func Load() (*Config, error) {
	// Try to load .env file (ignore error if doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.CacheBackend {
	case CacheBackendPostgres, CacheBackendRedis, CacheBackendMemory:
	default:
		return fmt.Errorf("CACHE_BACKEND must be one of postgres, redis, memory (got %q)", c.CacheBackend)
	}

	if c.DatabasePassword == "" {
		return fmt.Errorf("DATABASE_PASSWORD is required")
	}

	if c.CacheTTLPlayerIdx <= 0 || c.CacheTTLGameLogs <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}

	if c.CacheStaleGameLogs != 0 && c.CacheStaleGameLogs < c.CacheTTLGameLogs {
		return fmt.Errorf("CACHE_STALE_GAME_LOGS (%s) must not be shorter than CACHE_TTL_GAME_LOGS (%s)",
			c.CacheStaleGameLogs, c.CacheTTLGameLogs)
	}

	if c.SportsAPIMaxConcurrency < 1 {
		return fmt.Errorf("SPORTS_API_MAX_CONCURRENCY must be at least 1")
	}

	if strings.TrimSpace(c.CachePruneCron) == "" {
		return fmt.Errorf("CACHE_PRUNE_CRON is required")
	}

	if strings.TrimSpace(c.Season) == "" {
		return fmt.Errorf("NBA_SEASON is required")
	}

	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DatabaseHost,
		c.DatabasePort,
		c.DatabaseUser,
		c.DatabasePassword,
		c.DatabaseName,
		c.DatabaseSSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// MustLoad loads configuration or exits on error
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	return cfg
}
