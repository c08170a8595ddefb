// Package config loads all runtime settings from environment variables.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds every tunable of the engine.
type Config struct {
	// --- HTTP ---
	HTTPAddr        string `envconfig:"HTTP_ADDR" default:":8080"`
	ShutdownSeconds int    `envconfig:"SHUTDOWN_SECONDS" default:"10"`

	// --- Storage ---
	// "memory" for local development and tests, "postgres" for real runs.
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"memory"`

	DBHost     string `envconfig:"DB_HOST" default:"postgres"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"engine"`
	DBPassword string `envconfig:"DB_PASSWORD" default:""`
	DBName     string `envconfig:"DB_NAME" default:"moneynplay"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`
	DBMaxConns int32  `envconfig:"DB_MAX_CONNS" default:"25"`
	DBMinConns int32  `envconfig:"DB_MIN_CONNS" default:"5"`

	// --- Cache ---
	RedisAddr       string `envconfig:"REDIS_ADDR" default:""`
	RedisPassword   string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB         int    `envconfig:"REDIS_DB" default:"0"`
	CacheTTLSeconds int    `envconfig:"CACHE_TTL_SECONDS" default:"30"`

	// --- Application ---
	AppEnv      string `envconfig:"APP_ENV" default:"development"`
	AppLogLevel string `envconfig:"APP_LOG_LEVEL" default:"info"`

	// --- Engine tuning ---
	// How long an operation waits for a busy owner before giving up.
	OwnerLockTimeoutMS int `envconfig:"OWNER_LOCK_TIMEOUT_MS" default:"2000"`
	// Cap on total invested capital per owner; 0 disables.
	MaxInvestedCents int64 `envconfig:"MAX_INVESTED_CENTS" default:"0"`
	PriceSeed        int64 `envconfig:"PRICE_SEED" default:"0"`

	// --- Schedules (cron expressions) ---
	AllowanceSchedule string `envconfig:"ALLOWANCE_SCHEDULE" default:"*/5 * * * *"`
	PriceTickSchedule string `envconfig:"PRICE_TICK_SCHEDULE" default:"*/15 * * * *"`
	MissionSweepCron  string `envconfig:"MISSION_SWEEP_SCHEDULE" default:"*/10 * * * *"`
}

// DatabaseDSN builds the PostgreSQL connection string.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)
}

func (c *Config) Validate() error {
	switch c.StorageBackend {
	case "memory", "postgres":
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.StorageBackend == "postgres" && c.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD required for postgres backend")
	}
	if c.OwnerLockTimeoutMS <= 0 {
		return fmt.Errorf("OWNER_LOCK_TIMEOUT_MS must be > 0")
	}
	if c.MaxInvestedCents < 0 {
		return fmt.Errorf("MAX_INVESTED_CENTS must be >= 0")
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("bad DB_MIN_CONNS/DB_MAX_CONNS")
	}
	return nil
}

// Load reads the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
