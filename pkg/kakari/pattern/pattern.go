// Package pattern implements the small literal-alternation language used to
// describe POS markers and punctuation: either a single literal, or a
// parenthesized list of literals separated by '|', e.g. "(助詞|助動詞)".
package pattern

import (
	"fmt"
	"log"
	"strings"

	"github.com/cognicore/kakari/pkg/kakari/charset"
	"github.com/cognicore/kakari/pkg/kakari/internalerr"
)

// Limits on pattern sources. Patterns are build-time assets, so exceeding
// these is a configuration error rather than bad input.
const (
	MaxSpecBytes    = 8192
	MaxAlternatives = 1024
)

// Matcher is a compiled set of literal alternatives kept in declaration order.
// A compiled Matcher is never mutated by queries and is safe for concurrent reads.
type Matcher struct {
	alts []string
}

// Compile returns a new Matcher compiled from spec
func Compile(spec string, n charset.Normalizer) (*Matcher, error) {
	m := &Matcher{}
	if err := m.Compile(spec, n); err != nil {
		return nil, err
	}
	return m, nil
}

// Compile replaces the alternatives of m with those described by spec.
// The raw text is passed through n first; a conversion failure is logged
// and the unconverted text is used instead.
func (m *Matcher) Compile(spec string, n charset.Normalizer) error {
	m.alts = m.alts[:0]

	text := spec
	if n != nil {
		converted, err := n.Normalize(spec)
		if err != nil {
			log.Printf("cannot convert pattern %q: %v", spec, err)
		} else {
			text = converted
		}
	}

	if len(text) >= MaxSpecBytes {
		return fmt.Errorf("pattern %q: %d bytes exceeds limit %d: %w",
			spec, len(text), MaxSpecBytes, internalerr.ErrInvalidConfig)
	}

	parts := []string{text}
	if len(text) >= 2 && text[0] == '(' && text[len(text)-1] == ')' {
		parts = strings.Split(text[1:len(text)-1], "|")
	}
	if len(parts) > MaxAlternatives {
		return fmt.Errorf("pattern %q: %d alternatives exceeds limit %d: %w",
			spec, len(parts), MaxAlternatives, internalerr.ErrInvalidConfig)
	}

	for _, p := range parts {
		if p == "" {
			continue
		}
		m.alts = append(m.alts, p)
	}

	if len(m.alts) == 0 {
		return fmt.Errorf("pattern %q has no alternatives: %w", spec, internalerr.ErrInvalidConfig)
	}
	return nil
}

// Match returns the first alternative equal to s
func (m *Matcher) Match(s string) (string, bool) {
	for _, a := range m.alts {
		if a == s {
			return a, true
		}
	}
	return "", false
}

// PrefixMatch returns the first alternative that is a byte prefix of s
func (m *Matcher) PrefixMatch(s string) (string, bool) {
	for _, a := range m.alts {
		if strings.HasPrefix(s, a) {
			return a, true
		}
	}
	return "", false
}

// Alternatives returns a copy of the compiled alternatives
func (m *Matcher) Alternatives() []string {
	out := make([]string, len(m.alts))
	copy(out, m.alts)
	return out
}

// Len returns the number of compiled alternatives
func (m *Matcher) Len() int { return len(m.alts) }
