// Package config loads and validates run configuration from YAML.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rebar-ml/rebar/internal/estimator"
	"github.com/rebar-ml/rebar/internal/tensor"
)

// Estimator variants.
const (
	// VariantDirect applies the objective directly to relaxed inputs.
	VariantDirect = "direct"
	// VariantSurrogate routes relaxed evaluations through a trained network.
	VariantSurrogate = "surrogate"
)

// Config is the YAML-facing run configuration. Exactly one of Dim and
// LogAlpha must be set; everything else has a default.
type Config struct {
	// Dim is the number of latent coordinates, starting from log_alpha = 0.
	Dim int `yaml:"dim,omitempty" validate:"omitempty,min=1"`

	// LogAlpha is an explicit [batch][vars] initial natural parameter,
	// mutually exclusive with Dim. Rows must have equal length.
	LogAlpha [][]float64 `yaml:"log_alpha,omitempty"`

	// Variant selects the relaxed-evaluation strategy.
	Variant string `yaml:"variant,omitempty" validate:"omitempty,oneof=direct surrogate"`

	// NSamples is the number of Monte-Carlo draws per step.
	NSamples int `yaml:"n_samples,omitempty" validate:"omitempty,min=1"`

	// Seed makes runs reproducible.
	Seed int64 `yaml:"seed,omitempty"`

	// Steps is the number of optimization steps to run.
	Steps int `yaml:"steps,omitempty" validate:"omitempty,min=1"`

	// LearningRate drives the outer update on log_alpha.
	LearningRate float64 `yaml:"learning_rate,omitempty" validate:"omitempty,gt=0"`

	// VarianceLearningRate drives the eta/temperature updates.
	// Defaults to LearningRate.
	VarianceLearningRate float64 `yaml:"variance_learning_rate,omitempty" validate:"omitempty,gt=0"`

	// SurrogateLearningRate drives the surrogate update.
	// Defaults to LearningRate.
	SurrogateLearningRate float64 `yaml:"surrogate_learning_rate,omitempty" validate:"omitempty,gt=0"`

	// InitialTemperature is the starting relaxation temperature.
	InitialTemperature float64 `yaml:"initial_temperature,omitempty" validate:"omitempty,gt=0"`

	// InitialEta is the starting control-variate weight.
	InitialEta float64 `yaml:"initial_eta,omitempty"`

	// SurrogateHidden is the surrogate's hidden-layer width.
	SurrogateHidden int `yaml:"surrogate_hidden,omitempty" validate:"omitempty,min=1"`

	// LogInterval controls how often steps are logged.
	LogInterval int `yaml:"log_interval,omitempty" validate:"omitempty,min=1"`

	// TelemetryPath optionally appends per-step JSON lines to a file.
	TelemetryPath string `yaml:"telemetry_path,omitempty"`
}

// Default returns the configuration used when a field is left unset.
func Default() Config {
	return Config{
		Variant:            VariantDirect,
		NSamples:           1,
		Steps:              2000,
		LearningRate:       0.01,
		InitialTemperature: 0.5,
		InitialEta:         1,
		SurrogateHidden:    32,
		LogInterval:        100,
	}
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML configuration bytes. Unset fields take
// their defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and the cross-field rules the struct
// tags cannot express.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if (c.Dim == 0) == (len(c.LogAlpha) == 0) {
		return fmt.Errorf("config: exactly one of dim and log_alpha must be set")
	}
	if len(c.LogAlpha) > 0 {
		width := len(c.LogAlpha[0])
		if width == 0 {
			return fmt.Errorf("config: log_alpha rows must not be empty")
		}
		for i, row := range c.LogAlpha {
			if len(row) != width {
				return fmt.Errorf("config: log_alpha row %d has %d entries, want %d", i, len(row), width)
			}
		}
	}
	return nil
}

// Vars returns the number of coordinates per batch row.
func (c *Config) Vars() int {
	if len(c.LogAlpha) > 0 {
		return len(c.LogAlpha[0])
	}
	return c.Dim
}

// EstimatorConfig converts the run configuration into an estimator
// configuration.
func (c *Config) EstimatorConfig() (estimator.Config, error) {
	out := estimator.Config{
		NSamples:           c.NSamples,
		Seed:               c.Seed,
		InitialTemperature: c.InitialTemperature,
		InitialEta:         c.InitialEta,
	}
	if len(c.LogAlpha) == 0 {
		out.Dim = c.Dim
		return out, nil
	}

	batch := len(c.LogAlpha)
	width := len(c.LogAlpha[0])
	flat := make([]float64, 0, batch*width)
	for _, row := range c.LogAlpha {
		flat = append(flat, row...)
	}
	la, err := tensor.FromSlice(flat, tensor.Shape{batch, width})
	if err != nil {
		return estimator.Config{}, fmt.Errorf("config: %w", err)
	}
	out.LogAlpha = la
	return out, nil
}
