package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/kakari/pkg/kakari/internalerr"
	"github.com/cognicore/kakari/pkg/kakari/pattern"
	"github.com/cognicore/kakari/pkg/kakari/selector"
)

//go:embed patterns.yaml
var defaultPatterns []byte

// Config represents the selector configuration file
type Config struct {
	Charset                 string `yaml:"charset"`
	PosSet                  string `yaml:"posset"`
	Patterns                string `yaml:"patterns"`
	MaxFeatureBytes         int    `yaml:"max_feature_bytes"`
	MaxFeatures             int    `yaml:"max_features"`
	EmitFunctionConjugation bool   `yaml:"emit_function_conjugation"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Charset:         "utf-8",
		PosSet:          "ipa",
		MaxFeatureBytes: selector.DefaultMaxFeatureBytes,
		MaxFeatures:     selector.DefaultMaxFeatures,
	}
}

// LoadConfig loads a configuration from a YAML file.
// Fields missing from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.MaxFeatureBytes < 0 || cfg.MaxFeatures < 0 {
		return nil, fmt.Errorf("negative feature capacity: %w", internalerr.ErrInvalidConfig)
	}

	return &cfg, nil
}

// ParsePatternTable decodes a pattern table
func ParsePatternTable(data []byte) (*pattern.Table, error) {
	var tab pattern.Table
	if err := yaml.Unmarshal(data, &tab); err != nil {
		return nil, err
	}
	return &tab, nil
}

// LoadPatternTable loads a pattern table from a YAML file
func LoadPatternTable(path string) (*pattern.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePatternTable(data)
}

// DefaultPatternTable returns the built-in pattern table
func DefaultPatternTable() *pattern.Table {
	tab, err := ParsePatternTable(defaultPatterns)
	if err != nil {
		panic(fmt.Sprintf("embedded patterns.yaml: %v", err))
	}
	return tab
}
