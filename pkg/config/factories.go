package config

import (
	"fmt"

	"github.com/marmos91/syncust/pkg/metadata"
	"github.com/marmos91/syncust/pkg/repository"
	"github.com/marmos91/syncust/pkg/status"
	"github.com/marmos91/syncust/pkg/store/index"
	"github.com/mitchellh/mapstructure"
)

// IndexOptions decodes the engine-specific index section.
//
// Unknown keys are rejected so a misspelled option does not silently fall
// back to its default. Values are weakly typed: environment variables and
// YAML scalars arrive as strings or floats.
//
// Parameters:
//   - cfg: Loaded configuration
//
// Returns:
//   - index.Options: Decoded options
//   - error: Decoding error
func IndexOptions(cfg *Config) (index.Options, error) {
	var opts index.Options

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           &opts,
	})
	if err != nil {
		return opts, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(cfg.Index); err != nil {
		return opts, fmt.Errorf("failed to decode index options: %w", err)
	}

	return opts, nil
}

// RepositoryOptions builds the options every repository handle is opened
// with.
func RepositoryOptions(cfg *Config) (repository.Options, error) {
	idx, err := IndexOptions(cfg)
	if err != nil {
		return repository.Options{}, err
	}

	algo := metadata.Algorithm(cfg.Repository.Algorithm)
	if err := algo.Validate(); err != nil {
		return repository.Options{}, err
	}

	return repository.Options{
		Sublayers: cfg.Repository.ShardDepth,
		Algorithm: algo,
		Index:     idx,
		Workers:   cfg.Ingest.Workers,
		QueueSize: cfg.Ingest.QueueSize,
	}, nil
}

// StatusFormat returns the configured default status format.
func StatusFormat(cfg *Config) (status.Format, error) {
	return status.ParseFormat(cfg.Status.Format)
}
