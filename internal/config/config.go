// Package config handles YAML configuration loading with environment variable
// substitution. Files support ${VAR} syntax; every setting can also be
// overridden by a command line flag.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the import tools.
type Config struct {
	Exchange string         `yaml:"exchange"`
	Storage  StorageConfig  `yaml:"storage"`
	Import   ImportConfig   `yaml:"import"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Timezone TimezoneConfig `yaml:"timezone"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	// Backend is one of "clickhouse", "postgres" or "memory".
	Backend       string `yaml:"backend"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	PostgresDSN   string `yaml:"postgres_dsn"`
}

// ImportConfig holds batching and idempotency settings. SkipExisting is a
// pointer so an explicit "false" in the file survives defaulting.
type ImportConfig struct {
	BatchSize    int   `yaml:"batch_size"`
	SkipExisting *bool `yaml:"skip_existing"`
}

// MetricsConfig holds Prometheus metrics settings. An empty Addr disables
// the metrics endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
	Path string `yaml:"path"`
}

// TimezoneConfig names the IANA location vendor timestamps are read in.
type TimezoneConfig struct {
	Location string `yaml:"location"`
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	return &cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills in zero-valued settings.
func (c *Config) ApplyDefaults() {
	if c.Exchange == "" {
		c.Exchange = "CFFEX"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "memory"
	}
	if c.Import.BatchSize == 0 {
		c.Import.BatchSize = 10000
	}
	if c.Import.SkipExisting == nil {
		skip := true
		c.Import.SkipExisting = &skip
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Timezone.Location == "" {
		c.Timezone.Location = "UTC"
	}
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "clickhouse":
		if c.Storage.ClickhouseDSN == "" {
			return fmt.Errorf("storage.clickhouse_dsn is required for the clickhouse backend")
		}
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for the postgres backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}

	if c.Import.BatchSize < 0 {
		return fmt.Errorf("import.batch_size must not be negative")
	}
	return nil
}
