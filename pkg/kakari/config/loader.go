package config

import (
	"fmt"
	"path/filepath"

	"github.com/cognicore/kakari/pkg/kakari/charset"
	"github.com/cognicore/kakari/pkg/kakari/pattern"
	"github.com/cognicore/kakari/pkg/kakari/selector"
	"github.com/cognicore/kakari/pkg/kakari/tree"
)

// Loader loads configuration files and constructs components
type Loader struct {
	ConfigPath   string
	PatternsPath string // overrides the patterns entry of the config file
}

// Components holds all loaded configuration components
type Components struct {
	Config   Config
	Charset  charset.Charset
	PosSet   tree.PosSet
	Patterns *pattern.Table
	Selector *selector.Selector
}

// Load reads all configuration files and returns an opened selector
func (l *Loader) Load() (*Components, error) {
	comp := &Components{Config: Default()}

	// Load config
	if l.ConfigPath != "" {
		cfg, err := LoadConfig(l.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		comp.Config = *cfg
	}

	cs, err := charset.Parse(comp.Config.Charset)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	comp.Charset = cs

	ps, err := tree.ParsePosSet(comp.Config.PosSet)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	comp.PosSet = ps

	// Load patterns
	patternsPath := l.PatternsPath
	if patternsPath == "" && comp.Config.Patterns != "" {
		patternsPath = comp.Config.Patterns
		if !filepath.IsAbs(patternsPath) && l.ConfigPath != "" {
			patternsPath = filepath.Join(filepath.Dir(l.ConfigPath), patternsPath)
		}
	}
	if patternsPath != "" {
		tab, err := LoadPatternTable(patternsPath)
		if err != nil {
			return nil, fmt.Errorf("load patterns: %w", err)
		}
		comp.Patterns = tab
	} else {
		comp.Patterns = DefaultPatternTable()
	}

	sel, err := selector.Open(selector.Options{
		Charset:                 comp.Charset,
		Patterns:                comp.Patterns,
		MaxFeatureBytes:         comp.Config.MaxFeatureBytes,
		MaxFeatures:             comp.Config.MaxFeatures,
		EmitFunctionConjugation: comp.Config.EmitFunctionConjugation,
	})
	if err != nil {
		return nil, err
	}
	comp.Selector = sel

	return comp, nil
}
