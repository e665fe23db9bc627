package config

import "time"

// Config is the root configuration structure
type Config struct {
	Version    int              `mapstructure:"version" yaml:"version"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Log        LogConfig        `mapstructure:"log" yaml:"log"`
	Schema     SchemaConfig     `mapstructure:"schema" yaml:"schema"`
	Validation ValidationConfig `mapstructure:"validation" yaml:"validation"`
}

// DatabaseConfig holds database settings
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// LogConfig selects the logger level and encoding
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // console, json
}

// SchemaConfig points at the schema file applied at startup
type SchemaConfig struct {
	SeedFile string        `mapstructure:"seed_file" yaml:"seed_file,omitempty"`
	Watch    bool          `mapstructure:"watch" yaml:"watch"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// ValidationConfig tunes mandatory-attribute scans
type ValidationConfig struct {
	ScanConcurrency int `mapstructure:"scan_concurrency" yaml:"scan_concurrency"`
	MaxScanRetries  int `mapstructure:"max_scan_retries" yaml:"max_scan_retries"`
}
