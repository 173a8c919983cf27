package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all configuration for insert-services.
// Configuration can come from a YAML file (config.yaml) or environment
// variables. Environment variables always override YAML values. Secrets
// (the database password) must only come from environment variables.
type Config struct {
	// Env names the runtime environment, used for log formatting.
	Env string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`

	// LogLevel controls the minimum level of emitted log records.
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	// Database configuration (PostgreSQL with PostGIS)
	Database DatabaseConfig `yaml:"database"`

	// Loader configuration shared by all load sessions
	Loader LoaderConfig `yaml:"loader"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"DB_ADDR" env-default:"localhost"`
	Port           int    `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User           string `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password       string `yaml:"-" env:"DB_PASS"` // Secret - not in YAML
	Database       string `yaml:"database" env:"DB_NAME" env-default:"city_db"`
	SSLMode        string `yaml:"ssl_mode" env:"DB_SSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"DB_MAX_CONNECTIONS" env-default:"10"`
}

// LoaderConfig holds default knobs for the service loading pipeline.
type LoaderConfig struct {
	// NewAddressPrefix is prepended to an address after a recognised
	// prefix has been stripped off.
	NewAddressPrefix string `yaml:"new_address_prefix" env:"LOADER_NEW_ADDRESS_PREFIX" env-default:""`

	// AddressPrefixesStr is a comma-separated list of accepted address
	// prefixes. An empty list rejects every address; register an empty
	// prefix explicitly (via the CLI flag) to accept any address as-is.
	AddressPrefixesStr string `yaml:"address_prefixes" env:"LOADER_ADDRESS_PREFIXES" env-default:""`

	// AddressPrefixes is the parsed form of AddressPrefixesStr.
	AddressPrefixes []string `yaml:"-"`

	// OverlapThreshold is the minimal share of a territory intersection
	// needed to assign a location when centroid containment fails.
	OverlapThreshold float64 `yaml:"overlap_threshold" env:"LOADER_OVERLAP_THRESHOLD" env-default:"0.5"`

	// LogEvery controls how often row progress is logged (every N rows).
	LogEvery int `yaml:"log_every" env:"LOADER_LOG_EVERY" env-default:"1000"`

	// ExcludedViewsStr is a comma-separated list of materialized views
	// that the refresh step must skip.
	ExcludedViewsStr string `yaml:"excluded_views" env:"LOADER_EXCLUDED_VIEWS" env-default:""`

	// ExcludedViews is the parsed form of ExcludedViewsStr.
	ExcludedViews []string `yaml:"-"`
}

// Load reads configuration from an optional .env file and config.yaml with
// environment variable overrides. A missing config.yaml is not an error:
// defaults and the environment are enough to run.
func Load() (*Config, error) {
	// Best effort: a .env file is a developer convenience, not a requirement.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config.yaml: %w", err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	cfg.parseComplexFields()
	return cfg, nil
}

// parseComplexFields handles fields that need post-processing after loading.
func (c *Config) parseComplexFields() {
	c.Loader.AddressPrefixes = splitList(c.Loader.AddressPrefixesStr)
	c.Loader.ExcludedViews = splitList(c.Loader.ExcludedViewsStr)
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
