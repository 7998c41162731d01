// Package config holds the runtime configuration of nwwm and its validation.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
)

// Config holds the application configuration, filled from flags and NWWM_* environment variables.
type Config struct {
	// Secret sources
	Key Key `mapstructure:",squash" validate:"-" yaml:",inline"`

	// Ciphertext read size in bytes
	ChunkSize int `label:"--chunk-size" mapstructure:"chunk-size" validate:"gt=0,blockmultiple" yaml:"chunk-size"`

	// Keep the source container after a verified decryption
	Keep bool `yaml:"keep"`

	// Copy the source modification time onto the output
	PreserveTimestamps bool `mapstructure:"preserve-timestamps" yaml:"preserve-timestamps"`

	// Output control
	Quiet   bool `yaml:"quiet"`
	Verbose bool `yaml:"verbose"`
	NoColor bool `mapstructure:"no-color" yaml:"no-color"`
	Stats   bool `yaml:"stats"`
	Show    bool `yaml:"-"`

	// Single container mode
	Single Single `mapstructure:",squash" validate:"-" yaml:"single,omitempty"`

	// Batch mode
	Batch Batch `mapstructure:",squash" validate:"-" yaml:"batch,omitempty"`

	// Whether the batch command is running
	BatchMode bool `mapstructure:"-" yaml:"-"`
}

// Key selects where the 48-character secret comes from.
// When neither is set the secret is read from the terminal.
type Key struct {
	String string `label:"--key"      mapstructure:"key"      validate:"exclusive=File" yaml:"key,omitempty"`
	File   string `label:"--key-file" mapstructure:"key-file" yaml:"key-file,omitempty"`
}

// Single configures decryption of one container.
type Single struct {
	Input  string `label:"--input"  mapstructure:"input"  validate:"required" yaml:"input"`
	Output string `label:"--output" mapstructure:"output" validate:"required,nefield=Input" yaml:"output"`
}

// Batch configures decryption of many containers.
type Batch struct {
	// Files or directories given as positional arguments
	Paths []string `label:"paths" mapstructure:"-" validate:"required_without=Manifest" yaml:"paths,omitempty"`

	// JSONC file listing input/output pairs
	Manifest string `label:"--manifest" mapstructure:"manifest" yaml:"manifest,omitempty"`

	// Glob patterns a walked file must match
	Include []string `mapstructure:"include" yaml:"include,omitempty"`

	// Directory for outputs, defaults to next to each input
	OutputDir string `mapstructure:"output-dir" yaml:"output-dir,omitempty"`

	// Extension given to outputs
	Suffix string `label:"--suffix" mapstructure:"suffix" validate:"required" yaml:"suffix"`

	// Number of containers decrypted concurrently
	Parallel int `label:"--parallel" mapstructure:"parallel" validate:"gte=1" yaml:"parallel"`
}

// ErrUsage marks a configuration that was rejected by validation.
var ErrUsage = errors.New("usage error")

// Validate validates config, which must be a *Config, against the struct tags of its active mode.
func (c *Config) Validate(config any) error {
	cfg, ok := config.(*Config)
	if !ok {
		return fmt.Errorf("%w: unexpected configuration type %T", ErrUsage, config)
	}

	validate, err := newValidator()
	if err != nil {
		return err
	}

	// An empty argument list counts as no paths.
	if len(cfg.Batch.Paths) == 0 {
		cfg.Batch.Paths = nil
	}

	targets := []any{cfg, &cfg.Key}
	if cfg.BatchMode {
		targets = append(targets, &cfg.Batch)
	} else {
		targets = append(targets, &cfg.Single)
	}

	var errs []error

	for _, target := range targets {
		errs = append(errs, validate.Validate(target)...)
	}

	if len(errs) != 0 {
		return fmt.Errorf("%w: %w", ErrUsage, errors.Join(errs...))
	}

	return nil
}

// Display returns the configuration as YAML with the secret masked.
func (c Config) Display() (string, error) {
	if c.Key.String != "" {
		c.Key.String = strings.Repeat("*", len(c.Key.String))
	}

	if c.BatchMode {
		c.Single = Single{}
	} else {
		c.Batch = Batch{}
	}

	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding configuration: %w", err)
	}

	return string(out), nil
}
