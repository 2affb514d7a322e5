package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// EnvPrefix is prepended to every environment override, e.g. PRICECOMPARE_CACHE_TTL=1h.
const EnvPrefix = "PRICECOMPARE_"

type Config struct {
	EbayBaseURL     string `yaml:"ebay_base_url" env:"EBAY_BASE_URL" validate:"required,url"`
	PoshmarkBaseURL string `yaml:"poshmark_base_url" env:"POSHMARK_BASE_URL" validate:"required,url"`

	// FetchMode selects the page fetcher: plain HTTP or a headless browser.
	FetchMode      string        `yaml:"fetch_mode" env:"FETCH_MODE" validate:"oneof=http browser"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"REQUEST_TIMEOUT" validate:"min=0"`
	MinDelay       time.Duration `yaml:"min_delay" env:"MIN_DELAY" validate:"min=0"`
	MaxDelay       time.Duration `yaml:"max_delay" env:"MAX_DELAY" validate:"min=0,gtefield=MinDelay"`
	MaxRetries     int           `yaml:"max_retries" env:"MAX_RETRIES" validate:"min=1"`
	RetryBackoff   time.Duration `yaml:"retry_backoff" env:"RETRY_BACKOFF" validate:"min=0"`
	MaxWorkers     int           `yaml:"max_workers" env:"MAX_WORKERS" validate:"min=1"`
	Headless       bool          `yaml:"headless" env:"HEADLESS"`

	CacheDir string `yaml:"cache_dir" env:"CACHE_DIR" validate:"required"`
	// CacheTTL <= 0 keeps entries until they are explicitly invalidated.
	CacheTTL time.Duration `yaml:"cache_ttl" env:"CACHE_TTL"`

	DefaultQuery        string `yaml:"default_query" env:"DEFAULT_QUERY" validate:"required"`
	PlaceholderImageURL string `yaml:"placeholder_image_url" env:"PLACEHOLDER_IMAGE_URL" validate:"required,url"`

	EbayPricePolicy     string `yaml:"ebay_price_policy" env:"EBAY_PRICE_POLICY" validate:"oneof=skip abort"`
	PoshmarkPricePolicy string `yaml:"poshmark_price_policy" env:"POSHMARK_PRICE_POLICY" validate:"oneof=skip abort"`

	// FailFast turns any single source failure into a failed query.
	FailFast bool `yaml:"fail_fast" env:"FAIL_FAST"`
	Debug    bool `yaml:"debug" env:"DEBUG"`

	Archive ArchiveConfig `yaml:"archive" envPrefix:"ARCHIVE_"`
}

// ArchiveConfig points at the optional PostgreSQL price history.
type ArchiveConfig struct {
	Enabled    bool   `yaml:"enabled" env:"ENABLED"`
	DBHost     string `yaml:"db_host" env:"DB_HOST" validate:"required_if=Enabled true"`
	DBPort     int    `yaml:"db_port" env:"DB_PORT" validate:"min=0,max=65535"`
	DBUser     string `yaml:"db_user" env:"DB_USER"`
	DBPassword string `yaml:"db_password" env:"DB_PASSWORD"`
	DBName     string `yaml:"db_name" env:"DB_NAME" validate:"required_if=Enabled true"`
	DBSSLMode  string `yaml:"db_sslmode" env:"DB_SSLMODE"`
}

func DefaultConfig() *Config {
	return &Config{
		EbayBaseURL:         "https://www.ebay.com",
		PoshmarkBaseURL:     "https://poshmark.com",
		FetchMode:           "http",
		RequestTimeout:      0,
		MinDelay:            0,
		MaxDelay:            0,
		MaxRetries:          1,
		RetryBackoff:        2 * time.Second,
		MaxWorkers:          2,
		Headless:            true,
		CacheDir:            "cache",
		CacheTTL:            24 * time.Hour,
		DefaultQuery:        "shirt",
		PlaceholderImageURL: "https://placehold.co/200x200?text=No+Image",
		EbayPricePolicy:     "abort",
		PoshmarkPricePolicy: "skip",
		FailFast:            false,
		Debug:               false,
		Archive: ArchiveConfig{
			Enabled:    false,
			DBHost:     "localhost",
			DBPort:     5433,
			DBUser:     "postgres",
			DBPassword: "postgres",
			DBName:     "pricecompare",
			DBSSLMode:  "disable",
		},
	}
}

// Load builds the configuration in layers: defaults, then the YAML file at
// path (skipped when path is empty), then .env, then PRICECOMPARE_* variables.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.UnmarshalStrict(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	// Runtime environment wins over .env.
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
