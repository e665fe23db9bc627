// Package config provides configuration management for assetgraph.
//
// The config file describes where the graph lives and how the engine
// behaves; the schema itself lives in the database and in schema files.
//
// Config file locations (priority order):
//  1. --config flag
//  2. $ASSETGRAPH_CONFIG
//  3. ./assetgraph.yaml
//  4. $XDG_CONFIG_HOME/assetgraph/config.yaml
//  5. ~/.config/assetgraph/config.yaml
//  6. /etc/assetgraph/config.yaml
//
// Every key can be overridden by an ASSETGRAPH_ environment variable, with
// dots replaced by underscores (ASSETGRAPH_DATABASE_PATH).
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes environment overrides
const EnvPrefix = "ASSETGRAPH"

// Load finds and loads the config file. explicitPath wins over the search
// path; with no file found the defaults and environment apply.
func Load(explicitPath string) (*Config, string, error) {
	path := explicitPath
	if path == "" {
		path = FindConfigPath()
	}
	return LoadFromPath(path)
}

// LoadFromPath loads config from a specific path. An empty path loads
// defaults and environment overrides only.
func LoadFromPath(path string) (*Config, string, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, path, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, path, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, path, err
	}

	return &cfg, path, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("version", defaults.Version)
	v.SetDefault("database.path", defaults.Database.Path)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("schema.seed_file", defaults.Schema.SeedFile)
	v.SetDefault("schema.watch", defaults.Schema.Watch)
	v.SetDefault("schema.debounce", defaults.Schema.Debounce)
	v.SetDefault("validation.scan_concurrency", defaults.Validation.ScanConcurrency)
	v.SetDefault("validation.max_scan_retries", defaults.Validation.MaxScanRetries)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Save writes config to the specified path
func (c *Config) Save(path string) error {
	if err := EnsureConfigDir(path); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns sensible defaults for a new installation
func DefaultConfig() *Config {
	return &Config{
		Version:  1,
		Database: DatabaseConfig{Path: "./assetgraph.db"},
		Log:      LogConfig{Level: "info", Format: "console"},
		Schema:   SchemaConfig{Debounce: 500 * time.Millisecond},
		Validation: ValidationConfig{
			ScanConcurrency: 4,
			MaxScanRetries:  3,
		},
	}
}

// Validate rejects settings the engine can not run with
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format must be console or json, got %q", c.Log.Format)
	}
	if c.Validation.ScanConcurrency < 1 {
		return fmt.Errorf("validation.scan_concurrency must be at least 1, got %d", c.Validation.ScanConcurrency)
	}
	if c.Validation.MaxScanRetries < 0 {
		return fmt.Errorf("validation.max_scan_retries can not be negative, got %d", c.Validation.MaxScanRetries)
	}
	if c.Schema.Debounce < 0 {
		return fmt.Errorf("schema.debounce can not be negative, got %s", c.Schema.Debounce)
	}
	return nil
}

// Summary returns a human-readable config summary
func (c *Config) Summary() string {
	summary := fmt.Sprintf("Database: %s\n", c.Database.Path)
	summary += fmt.Sprintf("Log: %s (%s)\n", c.Log.Level, c.Log.Format)
	if c.Schema.SeedFile != "" {
		summary += fmt.Sprintf("Schema: %s (watch: %t)\n", c.Schema.SeedFile, c.Schema.Watch)
	}
	summary += fmt.Sprintf("Validation: %d concurrent scans, %d retries",
		c.Validation.ScanConcurrency, c.Validation.MaxScanRetries)
	return summary
}
