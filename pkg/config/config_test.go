package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "info"

repository:
  algorithm: "blake3"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected normalized level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stderr" {
		t.Errorf("Expected default output 'stderr', got %q", cfg.Logging.Output)
	}
	if cfg.Repository.ShardDepth != 4 {
		t.Errorf("Expected default shard_depth 4, got %d", cfg.Repository.ShardDepth)
	}
	if cfg.Repository.Algorithm != "blake3" {
		t.Errorf("Expected algorithm 'blake3', got %q", cfg.Repository.Algorithm)
	}
	if cfg.Watch.Quiet != 500*time.Millisecond {
		t.Errorf("Expected default quiet 500ms, got %v", cfg.Watch.Quiet)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	tmpDir := t.TempDir()

	_, err := Load(filepath.Join(tmpDir, "nonexistent.yaml"))
	if err == nil {
		t.Fatal("Expected error for an explicitly requested file that does not exist")
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Point the default location at an empty directory so the user's own
	// ~/.config/syncust is never read
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Status.Format != "text" {
		t.Errorf("Expected default status format 'text', got %q", cfg.Status.Format)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
logging:
  level: INFO
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_TOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[logging]
level = "WARN"
format = "json"

[ingest]
workers = 3
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
	if cfg.Ingest.Workers != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.Ingest.Workers)
	}
}

func TestLoad_EnvironmentOverride(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("SYNCUST_LOGGING_LEVEL", "debug")
	t.Setenv("SYNCUST_INGEST_WORKERS", "7")
	t.Setenv("SYNCUST_WATCH_QUIET", "2s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level 'DEBUG' from environment, got %q", cfg.Logging.Level)
	}
	if cfg.Ingest.Workers != 7 {
		t.Errorf("Expected 7 workers from environment, got %d", cfg.Ingest.Workers)
	}
	if cfg.Watch.Quiet != 2*time.Second {
		t.Errorf("Expected quiet 2s from environment, got %v", cfg.Watch.Quiet)
	}
}

func TestLoad_IndexOptions(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
index:
  block_cache_size_mb: 128
  sync_writes: true
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	opts, err := IndexOptions(cfg)
	if err != nil {
		t.Fatalf("IndexOptions failed: %v", err)
	}
	if opts.BlockCacheSizeMB != 128 {
		t.Errorf("Expected block cache 128, got %d", opts.BlockCacheSizeMB)
	}
	if opts.IndexCacheSizeMB != 32 {
		t.Errorf("Expected default index cache 32, got %d", opts.IndexCacheSizeMB)
	}
	if !opts.SyncWrites {
		t.Error("Expected sync_writes to be true")
	}
}

func TestLoad_UnknownIndexOption(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
index:
  block_cache_mb: 128
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for misspelled index option")
	}
}

func TestRepositoryOptions(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Repository.ShardDepth = 2
	cfg.Ingest.Workers = 5

	opts, err := RepositoryOptions(cfg)
	if err != nil {
		t.Fatalf("RepositoryOptions failed: %v", err)
	}
	if opts.Sublayers != 2 {
		t.Errorf("Expected sublayers 2, got %d", opts.Sublayers)
	}
	if opts.Workers != 5 {
		t.Errorf("Expected 5 workers, got %d", opts.Workers)
	}
	if opts.Algorithm != "sha256" {
		t.Errorf("Expected sha256, got %q", opts.Algorithm)
	}
	if opts.Index.BlockCacheSizeMB != 64 {
		t.Errorf("Expected default block cache 64, got %d", opts.Index.BlockCacheSizeMB)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	want := filepath.Join(xdg, "syncust", "config.yaml")
	if got := GetDefaultConfigPath(); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if ConfigExists() {
		t.Error("Expected no config to exist in a fresh directory")
	}
}
