package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Server struct {
		Port            int           `env:"PORT" envDefault:"5250"`
		LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
		RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"8s"`
		ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
		AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

		// Per-client token bucket; a rate of 0 disables limiting
		RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
		RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`
	}

	Database struct {
		// Either "sqlite" or "postgres"
		Driver string `env:"DB_DRIVER" envDefault:"sqlite"`
		Path   string `env:"DB_PATH" envDefault:"database/properties.db"`
		URL    string `env:"DATABASE_URL"`
	}

	Comparables struct {
		DefaultLimit int `env:"COMPARABLES_DEFAULT_LIMIT" envDefault:"6"`
		MaxLimit     int `env:"COMPARABLES_MAX_LIMIT" envDefault:"50"`

		// When false the CMA candidate query only considers active listings
		CMAIncludeSold bool `env:"CMA_INCLUDE_SOLD" envDefault:"true"`

		// Whole dollars per square foot used by the valuation estimator
		BaseRatePerSqft int64 `env:"BASE_RATE_PER_SQFT" envDefault:"250"`

		// Optional YAML or TOML file with market assumptions, reloaded on change
		MarketAssumptionsFile string `env:"MARKET_ASSUMPTIONS_FILE"`
	}

	Geocoding struct {
		Enabled   bool   `env:"GEOCODING_ENABLED" envDefault:"false"`
		BaseURL   string `env:"GEOCODING_BASE_URL" envDefault:"https://nominatim.openstreetmap.org"`
		UserAgent string `env:"GEOCODING_USER_AGENT" envDefault:"homescope-comparables/1.0"`
	}

	// BatchProcessing configuration
	BatchProcessing struct {
		// Maximum number of properties per import batch
		MaxBatchSize int `env:"BATCH_MAX_SIZE" envDefault:"100"`

		// Number of batches the import queue holds before rejecting work
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"64"`

		// Number of concurrent batch processors
		ProcessorCount int `env:"BATCH_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch {
	case c.Database.Driver != "sqlite" && c.Database.Driver != "postgres":
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.Database.Driver)
	case c.Database.Driver == "postgres" && c.Database.URL == "":
		return fmt.Errorf("DATABASE_URL is required when DB_DRIVER=postgres")
	case c.Comparables.DefaultLimit <= 0:
		return fmt.Errorf("COMPARABLES_DEFAULT_LIMIT must be positive")
	case c.Comparables.MaxLimit < c.Comparables.DefaultLimit:
		return fmt.Errorf("COMPARABLES_MAX_LIMIT must be at least COMPARABLES_DEFAULT_LIMIT")
	case c.Comparables.BaseRatePerSqft <= 0:
		return fmt.Errorf("BASE_RATE_PER_SQFT must be positive")
	case c.BatchProcessing.MaxBatchSize <= 0:
		return fmt.Errorf("BATCH_MAX_SIZE must be positive")
	case c.BatchProcessing.QueueSize <= 0:
		return fmt.Errorf("BATCH_QUEUE_SIZE must be positive")
	case c.BatchProcessing.ProcessorCount <= 0:
		return fmt.Errorf("BATCH_PROCESSOR_COUNT must be positive")
	}
	return nil
}

// ClampLimit applies the configured default and upper bound to a requested
// result count. Zero means "not supplied".
func (c *Config) ClampLimit(requested int) int {
	if requested == 0 {
		return c.Comparables.DefaultLimit
	}
	if requested > c.Comparables.MaxLimit {
		return c.Comparables.MaxLimit
	}
	return requested
}
