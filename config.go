package lfas

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultFieldWeight is applied to any field not named explicitly in
// FieldWeights.
const defaultFieldWeight = 1.0

// defaultFieldB is the length-normalization parameter applied to every
// field unless overridden.
const defaultFieldB = 0.75

// Config holds every tunable of an Engine, defaulted the way the rest of
// this codebase's ecosystem defaults layered YAML configuration: a plain
// struct with yaml tags, loaded via gopkg.in/yaml.v3, with a
// programmatic default constructor for callers that don't want a file.
type Config struct {
	StoragePath string `yaml:"storage_path"`

	FieldWeights map[string]float64 `yaml:"field_weights"`
	FieldB       map[string]float64 `yaml:"field_b"`

	K1        float64 `yaml:"k1"`
	BatchSize int     `yaml:"batch_size"`
	MapSize   int64   `yaml:"map_size"`
	LogLevel  string  `yaml:"log_level"`
}

// DefaultConfig builds a Config with every default applied, for callers
// that configure the engine programmatically instead of via YAML.
func DefaultConfig(storagePath string) *Config {
	return &Config{
		StoragePath: storagePath,
		FieldWeights: map[string]float64{
			"cep":       5.0,
			"numero":    4.0,
			"rua":       2.0,
			"bairro":    1.5,
			"municipio": 1.0,
			"estado":    1.0,
		},
		FieldB:    map[string]float64{},
		K1:        1.2,
		BatchSize: 100_000,
		MapSize:   10 * 1024 * 1024 * 1024,
		LogLevel:  "info",
	}
}

// LoadConfig reads a Config from a YAML file, applying defaults to any
// field left unset.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("reading config %s: %v", path, err)}
	}

	cfg := DefaultConfig("")
	cfg.FieldWeights = nil
	cfg.FieldB = nil

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("parsing config %s: %v", path, err)}
	}

	defaults := DefaultConfig(cfg.StoragePath)
	if cfg.FieldWeights == nil {
		cfg.FieldWeights = defaults.FieldWeights
	}
	if cfg.FieldB == nil {
		cfg.FieldB = map[string]float64{}
	}
	if cfg.K1 == 0 {
		cfg.K1 = defaults.K1
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.MapSize == 0 {
		cfg.MapSize = defaults.MapSize
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaults.LogLevel
	}

	return cfg, cfg.Validate()
}

// Validate checks the configuration for the errors the engine cannot
// recover from at Open time.
func (c *Config) Validate() error {
	if c.StoragePath == "" {
		return &ConfigError{Message: "storage_path is required"}
	}
	return c.validateCore()
}

// validateCore validates every field except StoragePath, which
// OpenInMemory has no use for.
func (c *Config) validateCore() error {
	if c.K1 <= 0 {
		return &ConfigError{Message: "k1 must be positive"}
	}
	if c.BatchSize <= 0 {
		return &ConfigError{Message: "batch_size must be positive"}
	}
	if c.MapSize <= 0 {
		return &ConfigError{Message: "map_size must be positive"}
	}
	for name, w := range c.FieldWeights {
		if _, err := ParseFieldTag(name); err != nil {
			return &ConfigError{Message: fmt.Sprintf("field_weights: %v", err)}
		}
		if w <= 0 {
			return &ConfigError{Message: fmt.Sprintf("field_weights[%s] must be positive, got %v", name, w)}
		}
	}
	for name, b := range c.FieldB {
		if _, err := ParseFieldTag(name); err != nil {
			return &ConfigError{Message: fmt.Sprintf("field_b: %v", err)}
		}
		if b < 0 || b > 1 {
			return &ConfigError{Message: fmt.Sprintf("field_b[%s] must be in [0,1], got %v", name, b)}
		}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigError{Message: fmt.Sprintf("log_level %q is not one of debug|info|warn|error", c.LogLevel)}
	}
	return nil
}

// weightFor returns the configured weight for tag, falling back to
// defaultFieldWeight.
func (c *Config) weightFor(tag FieldTag) float64 {
	if w, ok := c.FieldWeights[tag.String()]; ok {
		return w
	}
	return defaultFieldWeight
}

// bFor returns the configured length-normalization parameter for tag,
// falling back to defaultFieldB.
func (c *Config) bFor(tag FieldTag) float64 {
	if b, ok := c.FieldB[tag.String()]; ok {
		return b
	}
	return defaultFieldB
}
