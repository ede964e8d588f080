// Package config loads registration settings from YAML files.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/warp-ml/warp/internal/registration"
	"github.com/warp-ml/warp/internal/spatial"
)

// Config is the top-level configuration of a registration run.
type Config struct {
	// Transform selects the transform model and its settings.
	Transform spatial.Config `yaml:"transform"`

	// Registration holds the optimization settings.
	Registration registration.Options `yaml:"registration"`
}

// Default returns the configuration used when no file is given: an affine
// transform with mean squared error similarity.
func Default() *Config {
	return &Config{
		Transform: spatial.Config{Transform: "Affine"},
		Registration: registration.Options{
			Iterations:   100,
			LearningRate: 0.01,
			Similarity:   registration.SimilarityMSE,
		},
	}
}

// Load reads a configuration file. Unknown fields are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes configuration bytes.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if !spatial.ValidTransformModel(c.Transform.Transform, 1, 1) {
		return fmt.Errorf("%w: %q", spatial.ErrInvalidModel, c.Transform.Transform)
	}
	switch c.Registration.Similarity {
	case "", registration.SimilarityMSE, registration.SimilaritySSD, registration.SimilarityNCC:
	default:
		return fmt.Errorf("unknown similarity term %q", c.Registration.Similarity)
	}
	if c.Registration.Iterations < 0 {
		return fmt.Errorf("iterations must not be negative, got %d", c.Registration.Iterations)
	}
	return nil
}
