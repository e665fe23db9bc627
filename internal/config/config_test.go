package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Database.Path != "./assetgraph.db" {
		t.Errorf("Database.Path = %s, want ./assetgraph.db", cfg.Database.Path)
	}
	if cfg.Schema.Debounce != 500*time.Millisecond {
		t.Errorf("Schema.Debounce = %s, want 500ms", cfg.Schema.Debounce)
	}
	if cfg.Validation.ScanConcurrency != 4 {
		t.Errorf("Validation.ScanConcurrency = %d, want 4", cfg.Validation.ScanConcurrency)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, path, err := LoadFromPath("")
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty", path)
	}
	if cfg.Validation.MaxScanRetries != DefaultConfig().Validation.MaxScanRetries {
		t.Errorf("MaxScanRetries = %d, want default", cfg.Validation.MaxScanRetries)
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Database.Path = "/var/lib/assetgraph/graph.db"
	cfg.Log.Format = "json"
	cfg.Schema.SeedFile = "/etc/assetgraph/core.yaml"
	cfg.Schema.Watch = true
	cfg.Schema.Debounce = 2 * time.Second
	cfg.Validation.MaxScanRetries = 0

	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, path, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if path != configPath {
		t.Errorf("path = %s, want %s", path, configPath)
	}
	if *loaded != *cfg {
		t.Errorf("loaded = %+v, want %+v", *loaded, *cfg)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	content := "database:\n  path: /tmp/graph.db\nschema:\n  debounce: 1s\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, _, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.Database.Path != "/tmp/graph.db" {
		t.Errorf("Database.Path = %s, want /tmp/graph.db", cfg.Database.Path)
	}
	if cfg.Schema.Debounce != time.Second {
		t.Errorf("Schema.Debounce = %s, want 1s", cfg.Schema.Debounce)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %s, want info", cfg.Log.Level)
	}
	if cfg.Validation.ScanConcurrency != 4 {
		t.Errorf("Validation.ScanConcurrency = %d, want 4", cfg.Validation.ScanConcurrency)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("ASSETGRAPH_DATABASE_PATH", "/srv/graph.db")
	t.Setenv("ASSETGRAPH_LOG_LEVEL", "debug")
	t.Setenv("ASSETGRAPH_VALIDATION_SCAN_CONCURRENCY", "8")

	cfg, _, err := LoadFromPath("")
	if err != nil {
		t.Fatalf("LoadFromPath() error: %v", err)
	}
	if cfg.Database.Path != "/srv/graph.db" {
		t.Errorf("Database.Path = %s, want /srv/graph.db", cfg.Database.Path)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %s, want debug", cfg.Log.Level)
	}
	if cfg.Validation.ScanConcurrency != 8 {
		t.Errorf("Validation.ScanConcurrency = %d, want 8", cfg.Validation.ScanConcurrency)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := LoadFromPath(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("LoadFromPath() should fail for a missing explicit file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"zero concurrency", func(c *Config) { c.Validation.ScanConcurrency = 0 }, "scan_concurrency"},
		{"negative retries", func(c *Config) { c.Validation.MaxScanRetries = -1 }, "max_scan_retries"},
		{"negative debounce", func(c *Config) { c.Schema.Debounce = -time.Second }, "debounce"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() should fail")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %s", err, tt.want)
			}
		})
	}
}

func TestFindConfigPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, ConfigFileName)

	cfg := DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	oldWd, _ := os.Getwd()
	os.Chdir(tmpDir)
	defer os.Chdir(oldWd)

	// Should find config in working directory
	found := FindConfigPath()
	if found == "" {
		t.Error("FindConfigPath() should find config in working directory")
	}

	// A nonexistent explicit path falls through to the working directory
	t.Setenv(EnvConfigPath, "/nonexistent/path.yaml")
	found = FindConfigPath()
	if found == "" {
		t.Error("FindConfigPath() should fall back when env path doesn't exist")
	}

	explicit := filepath.Join(tmpDir, "explicit.yaml")
	if err := cfg.Save(explicit); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	t.Setenv(EnvConfigPath, explicit)
	if found = FindConfigPath(); found != explicit {
		t.Errorf("FindConfigPath() = %s, want %s", found, explicit)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	want := filepath.Join("/tmp/xdg", ConfigDirName, "config.yaml")
	if got := DefaultConfigPath(); got != want {
		t.Errorf("DefaultConfigPath() = %s, want %s", got, want)
	}
}

func TestSearchPathsOrder(t *testing.T) {
	t.Setenv(EnvConfigPath, "/explicit/config.yaml")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	t.Setenv("HOME", "/home/ops")

	paths := SearchPaths()
	if len(paths) != 5 {
		t.Fatalf("SearchPaths() = %v, want 5 entries", paths)
	}
	if paths[0] != "/explicit/config.yaml" {
		t.Errorf("first path = %s, want the explicit path", paths[0])
	}
	if filepath.Base(paths[1]) != ConfigFileName {
		t.Errorf("second path = %s, want the working directory file", paths[1])
	}
	if paths[4] != "/etc/assetgraph/config.yaml" {
		t.Errorf("last path = %s, want /etc/assetgraph/config.yaml", paths[4])
	}
}
