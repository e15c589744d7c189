// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"decisionkit/internal/errors"
	"decisionkit/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version" yaml:"version"`

	// Solver contains MEP solver settings
	Solver SolverConfig `json:"solver" yaml:"solver"`

	// Conversion contains influence diagram conversion settings
	Conversion ConversionConfig `json:"conversion" yaml:"conversion"`

	// Output contains output configuration
	Output OutputConfig `json:"output" yaml:"output"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging" yaml:"logging"`
}

// SolverConfig contains MEP solver settings
type SolverConfig struct {
	// MaxOuterIterations caps multiplier updates
	MaxOuterIterations int `json:"max_outer_iterations" yaml:"max_outer_iterations" validate:"gt=0"`

	// MaxInnerIterations caps projected-gradient steps per outer iteration
	MaxInnerIterations int `json:"max_inner_iterations" yaml:"max_inner_iterations" validate:"gt=0"`

	// Tolerance is the stationarity tolerance of the inner problem
	Tolerance float64 `json:"tolerance" yaml:"tolerance" validate:"gt=0"`

	// FeasibilityTolerance is the largest constraint violation accepted as success
	FeasibilityTolerance float64 `json:"feasibility_tolerance" yaml:"feasibility_tolerance" validate:"gt=0"`

	// InitialPenalty is the starting augmented-Lagrangian penalty
	InitialPenalty float64 `json:"initial_penalty" yaml:"initial_penalty" validate:"gt=0"`
}

// ConversionConfig contains influence diagram conversion settings
type ConversionConfig struct {
	// PartialOrderMode is view or copy
	PartialOrderMode string `json:"partial_order_mode" yaml:"partial_order_mode" validate:"oneof=view copy"`

	// ReversePush pushes branches in reverse so they pop in label order
	ReversePush bool `json:"reverse_push" yaml:"reverse_push"`

	// LeafDescription describes utility leaves when the diagram has no utility node
	LeafDescription string `json:"leaf_description" yaml:"leaf_description" validate:"required"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// DefaultFormat is the default output format
	DefaultFormat string `json:"default_format" yaml:"default_format" validate:"oneof=json table"`

	// Precision is the number of decimal places printed for probabilities
	Precision int32 `json:"precision" yaml:"precision" validate:"gte=0,lte=16"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Version: "1.0",
		Solver: SolverConfig{
			MaxOuterIterations:   100,
			MaxInnerIterations:   5000,
			Tolerance:            1e-10,
			FeasibilityTolerance: 1e-8,
			InitialPenalty:       10,
		},
		Conversion: ConversionConfig{
			PartialOrderMode: "view",
			ReversePush:      true,
			LeafDescription:  "Utility",
		},
		Output: OutputConfig{
			DefaultFormat: "table",
			Precision:     6,
		},
		Logging: logging.DefaultConfig(),
	}
}

var validate = validator.New()

// Validate checks field ranges
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.TypeConfig, "invalid configuration", err)
	}
	return nil
}

// Load loads configuration from a JSON or YAML file.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	config := Default()
	if isYAML(path) {
		err = yaml.Unmarshal(data, config)
	} else {
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, errors.Parsing("failed to decode "+path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
