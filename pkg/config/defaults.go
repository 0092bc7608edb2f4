package config

import (
	"strings"
	"time"

	"github.com/marmos91/syncust/pkg/ingest"
	"github.com/marmos91/syncust/pkg/repository"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Index engine defaults are handled by the index package
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyIngestDefaults(&cfg.Ingest)
	applyRepositoryDefaults(&cfg.Repository)
	applyIndexDefaults(cfg)
	applyStatusDefaults(&cfg.Status)
	applyWatchDefaults(&cfg.Watch)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		// stdout carries status output
		cfg.Output = "stderr"
	}
}

// applyIngestDefaults sets ingestion defaults.
func applyIngestDefaults(cfg *IngestConfig) {
	// Workers defaults to 0, resolved against the CPU count at run time
	if cfg.QueueSize == 0 {
		cfg.QueueSize = ingest.DefaultQueueSize
	}
}

// applyRepositoryDefaults sets new-repository defaults.
func applyRepositoryDefaults(cfg *RepositoryConfig) {
	if cfg.ShardDepth == 0 {
		cfg.ShardDepth = repository.DefaultSublayers
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = "sha256"
	}
	cfg.Algorithm = strings.ToLower(cfg.Algorithm)
}

// applyIndexDefaults initializes the engine option map.
func applyIndexDefaults(cfg *Config) {
	if cfg.Index == nil {
		cfg.Index = make(map[string]any)
	}
	if _, ok := cfg.Index["block_cache_size_mb"]; !ok {
		cfg.Index["block_cache_size_mb"] = 64
	}
	if _, ok := cfg.Index["index_cache_size_mb"]; !ok {
		cfg.Index["index_cache_size_mb"] = 32
	}
	if _, ok := cfg.Index["sync_writes"]; !ok {
		cfg.Index["sync_writes"] = false
	}
}

// applyStatusDefaults sets status defaults.
func applyStatusDefaults(cfg *StatusConfig) {
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	cfg.Format = strings.ToLower(cfg.Format)
}

// applyWatchDefaults sets watch defaults.
func applyWatchDefaults(cfg *WatchConfig) {
	if cfg.Quiet == 0 {
		cfg.Quiet = 500 * time.Millisecond
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
