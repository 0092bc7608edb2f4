package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete syncust user configuration.
//
// This structure captures all configurable aspects of the syncust CLI:
//   - Logging configuration
//   - Ingestion worker pool sizing
//   - Settings applied to newly initialized repositories
//   - Index engine tuning (engine-specific)
//   - Status rendering
//   - Watch mode batching
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (SYNCUST_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
//
// Repository-specific settings (shard depth, digest) are persisted inside
// each repository at init time; the values here only seed new repositories.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Ingest sizes the add pipeline
	Ingest IngestConfig `mapstructure:"ingest" yaml:"ingest"`

	// Repository holds defaults for new repositories
	Repository RepositoryConfig `mapstructure:"repository" yaml:"repository"`

	// Index contains engine-specific options, decoded by IndexOptions
	Index map[string]any `mapstructure:"index" yaml:"index"`

	// Status controls status output
	Status StatusConfig `mapstructure:"status" yaml:"status"`

	// Watch controls watch mode
	Watch WatchConfig `mapstructure:"watch" yaml:"watch"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// IngestConfig sizes the ingestion pipeline.
type IngestConfig struct {
	// Workers is the number of hashing goroutines
	// 0 means one less than the number of CPUs (at least one)
	Workers int `mapstructure:"workers" yaml:"workers" validate:"gte=0,lte=1024"`

	// QueueSize bounds the queue between the directory walker and the workers
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size" validate:"gte=1"`
}

// RepositoryConfig holds settings written into new repositories.
type RepositoryConfig struct {
	// ShardDepth is the number of 2-character directory levels under objects/
	ShardDepth uint `mapstructure:"shard_depth" yaml:"shard_depth" validate:"gte=1,lte=32"`

	// Algorithm is the content digest
	// Valid values: sha256, blake3
	Algorithm string `mapstructure:"algorithm" yaml:"algorithm" validate:"required,oneof=sha256 blake3"`
}

// StatusConfig controls status rendering.
type StatusConfig struct {
	// Format is the default output format
	// Valid values: text, yaml, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text yaml json"`
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	// Quiet is how long the tree must stay idle before a batch is added
	Quiet time.Duration `mapstructure:"quiet" yaml:"quiet" validate:"gt=0"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (SYNCUST_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v, configPath); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// envKeys lists every scalar key so AutomaticEnv can override values that
// are absent from the config file; viper only consults the environment for
// keys it already knows about when unmarshaling.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"ingest.workers",
	"ingest.queue_size",
	"repository.shard_depth",
	"repository.algorithm",
	"status.format",
	"watch.quiet",
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use SYNCUST_ prefix and underscores
	// Example: SYNCUST_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("SYNCUST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/syncust/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper, configPath string) error {
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "syncust")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "syncust")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
