package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// InitConfig writes a default configuration file to the default location.
//
// Parameters:
//   - force: Overwrite an existing file
//
// Returns:
//   - string: Path of the written file
//   - error: An error if the file exists and force is false, or on I/O failure
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path.
func InitConfigToPath(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateYAMLWithComments renders cfg as YAML preceded by a header and a
// comment above each section.
func generateYAMLWithComments(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# syncust Configuration File\n")
	buf.WriteString("#\n")
	buf.WriteString("# Every value can be overridden with an environment variable:\n")
	buf.WriteString("# SYNCUST_<SECTION>_<KEY>, e.g. SYNCUST_LOGGING_LEVEL=DEBUG\n")

	sections := []struct {
		comment string
		key     string
		value   any
	}{
		{"Logging: level (DEBUG, INFO, WARN, ERROR), format (text, json), output (stdout, stderr, path)", "logging", cfg.Logging},
		{"Ingestion: workers (0 = CPUs - 1), queue_size bounds walker lookahead", "ingest", cfg.Ingest},
		{"Defaults for repositories created by init and clone", "repository", cfg.Repository},
		{"Index engine (BadgerDB) tuning", "index", cfg.Index},
		{"Status output format (text, yaml, json)", "status", cfg.Status},
		{"Watch mode batching", "watch", watchYAML{Quiet: cfg.Watch.Quiet.String()}},
	}

	for _, s := range sections {
		node := map[string]any{s.key: s.value}
		data, err := yaml.Marshal(node)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s section: %w", s.key, err)
		}
		fmt.Fprintf(&buf, "\n# %s\n", s.comment)
		buf.Write(data)
	}

	// Guard against a section rendering into something that does not parse back
	var check Config
	if err := yaml.Unmarshal(buf.Bytes(), &check); err != nil {
		return nil, fmt.Errorf("generated config is not valid YAML: %w", err)
	}

	return buf.Bytes(), nil
}

// watchYAML renders durations in their string form ("500ms") rather than
// as nanosecond integers.
type watchYAML struct {
	Quiet string `yaml:"quiet"`
}
