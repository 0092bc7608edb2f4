package repository

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/renameio"
	"github.com/marmos91/syncust/pkg/metadata"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	// DefaultSublayers is the shard depth of new repositories.
	DefaultSublayers = 4

	// FormatVersion is the on-disk layout version written by Init.
	FormatVersion = 1
)

// Settings is the per-repository configuration persisted in settings.json.
// It is written once by Init and read on every Open.
type Settings struct {
	// Sublayers is the number of 2-character shard levels under objects/
	Sublayers uint `json:"sublayers" mapstructure:"sublayers" validate:"min=1,max=32"`

	// Version is the layout version
	Version uint `json:"version" mapstructure:"version" validate:"eq=1"`

	// Algorithm is the content digest used for every record
	Algorithm metadata.Algorithm `json:"algorithm" mapstructure:"algorithm" validate:"oneof=sha256 blake3"`
}

// DefaultSettings returns the settings of a freshly initialized repository.
func DefaultSettings() *Settings {
	return &Settings{
		Sublayers: DefaultSublayers,
		Version:   FormatVersion,
		Algorithm: metadata.DefaultAlgorithm,
	}
}

// LoadSettings reads and validates a settings file. A file written before
// the algorithm field existed loads as sha256.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("algorithm", string(metadata.DefaultAlgorithm))

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "can not read settings %s", path)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrapf(err, "can not decode settings %s", path)
	}

	if err := s.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid settings %s", path)
	}

	return &s, nil
}

// Write stores the settings atomically: readers see the old file or the new
// one, never a partial write.
func (s *Settings) Write(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.Wrap(err, "can not encode settings")
	}
	data = append(data, '\n')

	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "can not write settings %s", path)
	}
	return nil
}

// Validate checks field ranges.
func (s *Settings) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", strings.ToLower(fe.Field()), fe.Tag(), fe.Value()))
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}
	return nil
}
