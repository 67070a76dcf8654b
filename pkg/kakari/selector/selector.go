// Package selector chooses the head and function token of every chunk in a
// sentence and emits the NAME:VALUE features the dependency classifier
// consumes.
//
// A Selector is read-only after Open, so one instance may parse different
// sentences from several goroutines.
package selector

import (
	"fmt"
	"sort"

	"github.com/cognicore/kakari/pkg/kakari/charset"
	"github.com/cognicore/kakari/pkg/kakari/internalerr"
	"github.com/cognicore/kakari/pkg/kakari/pattern"
	"github.com/cognicore/kakari/pkg/kakari/tree"
)

// Default per-chunk feature capacities
const (
	DefaultMaxFeatureBytes = 2048
	DefaultMaxFeatures     = 256
)

// Options configures a Selector
type Options struct {
	Charset  charset.Charset
	Patterns *pattern.Table

	// Capacity of the feature text and feature list of one chunk.
	// Zero selects the defaults.
	MaxFeatureBytes int
	MaxFeatures     int

	// EmitFunctionConjugation adds F_F5/F_F6 for the function token.
	EmitFunctionConjugation bool
}

// Selector holds the compiled patterns
type Selector struct {
	punctuation  *pattern.Matcher
	openBracket  *pattern.Matcher
	closeBracket *pattern.Matcher
	dynamicA     *pattern.Matcher
	caseMarker   *pattern.Matcher
	rules        map[tree.PosSet]headRule

	maxFeatureBytes int
	maxFeatures     int
	emitFuncConj    bool
}

// Open compiles every pattern of opts.Patterns into the configured charset.
// Any compilation failure is a configuration error.
func Open(opts Options) (*Selector, error) {
	if opts.Patterns == nil {
		return nil, fmt.Errorf("open selector: no pattern table: %w", internalerr.ErrInvalidConfig)
	}
	if opts.MaxFeatureBytes < 0 || opts.MaxFeatures < 0 {
		return nil, fmt.Errorf("open selector: negative capacity: %w", internalerr.ErrInvalidConfig)
	}

	s := &Selector{
		rules:           make(map[tree.PosSet]headRule),
		maxFeatureBytes: opts.MaxFeatureBytes,
		maxFeatures:     opts.MaxFeatures,
		emitFuncConj:    opts.EmitFunctionConjugation,
	}
	if s.maxFeatureBytes == 0 {
		s.maxFeatureBytes = DefaultMaxFeatureBytes
	}
	if s.maxFeatures == 0 {
		s.maxFeatures = DefaultMaxFeatures
	}

	norm := charset.NewNormalizer(opts.Charset)
	compile := func(name, spec string) (*pattern.Matcher, error) {
		m, err := pattern.Compile(spec, norm)
		if err != nil {
			return nil, fmt.Errorf("open selector: pattern %s: %w", name, err)
		}
		return m, nil
	}

	tab := opts.Patterns
	shared := []struct {
		name string
		spec string
		dst  **pattern.Matcher
	}{
		{"punctuation", tab.Punctuation, &s.punctuation},
		{"open_bracket", tab.OpenBracket, &s.openBracket},
		{"close_bracket", tab.CloseBracket, &s.closeBracket},
		{"dynamic_a", tab.DynamicA, &s.dynamicA},
		{"case", tab.Case, &s.caseMarker},
	}
	for _, p := range shared {
		m, err := compile(p.name, p.spec)
		if err != nil {
			return nil, err
		}
		*p.dst = m
	}

	names := make([]string, 0, len(tab.PosSets))
	for name := range tab.PosSets {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ps, err := tree.ParsePosSet(name)
		if err != nil {
			return nil, fmt.Errorf("open selector: %w: %w", err, internalerr.ErrInvalidConfig)
		}
		markers := tab.PosSets[name]
		fn, err := compile(name+".function", markers.Function)
		if err != nil {
			return nil, err
		}
		head, err := compile(name+".head", markers.Head)
		if err != nil {
			return nil, err
		}

		switch ps {
		case tree.IPA:
			s.rules[ps] = inclusionRule{function: fn, head: head}
		case tree.Juman:
			s.rules[ps] = exclusionRule{function: fn, head: head}
		default:
			return nil, fmt.Errorf("open selector: no head rule for %v: %w: %w",
				ps, internalerr.ErrUnsupportedPosSet, internalerr.ErrInvalidConfig)
		}
	}

	for _, ps := range []tree.PosSet{tree.IPA, tree.Juman} {
		if _, ok := s.rules[ps]; !ok {
			return nil, fmt.Errorf("open selector: no patterns for %v: %w", ps, internalerr.ErrInvalidConfig)
		}
	}

	return s, nil
}

// MustOpen is like Open but panics on a configuration error
func MustOpen(opts Options) *Selector {
	s, err := Open(opts)
	if err != nil {
		panic(err)
	}
	return s
}

// Close releases the selector. It holds no external resources.
func (s *Selector) Close() error { return nil }

// Supports reports whether sentences using p can be parsed
func (s *Selector) Supports(p tree.PosSet) bool {
	_, ok := s.rules[p]
	return ok
}

// Parse selects heads and emits features for every chunk of t. On error
// t is left unchanged.
func (s *Selector) Parse(t *tree.Tree) error {
	if t == nil {
		return fmt.Errorf("parse: nil tree: %w", internalerr.ErrInvalidInput)
	}
	rule, ok := s.rules[t.PosSet()]
	if !ok {
		return fmt.Errorf("parse: %v: %w", t.PosSet(), internalerr.ErrUnsupportedPosSet)
	}
	if err := t.Validate(); err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	size := t.ChunkSize()
	results := make([]chunkResult, size)
	for i := 0; i < size; i++ {
		r, err := s.selectChunk(t, rule, i)
		if err != nil {
			return fmt.Errorf("parse: chunk %d: %w", i, err)
		}
		results[i] = r
	}

	for i, r := range results {
		c := t.Chunk(i)
		c.HeadPos = r.head - c.TokenPos
		c.FuncPos = r.fn - c.TokenPos
		c.FeatureList = r.features
	}
	t.SetOutputLayer(tree.OutputSelection)

	return nil
}
