// Package charset names the internal text encodings the pipeline can run in
// and converts built-in UTF-8 literals into them.
package charset

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/width"

	"github.com/cognicore/kakari/pkg/kakari/internalerr"
)

// Charset identifies the internal encoding of token strings
type Charset int

const (
	UTF8 Charset = iota
	EUCJP
	ShiftJIS
)

// Parse resolves a charset name. Matching is case-insensitive.
func Parse(name string) (Charset, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "utf8", "utf-8":
		return UTF8, nil
	case "euc-jp", "eucjp", "euc_jp":
		return EUCJP, nil
	case "shift_jis", "shift-jis", "sjis", "shiftjis":
		return ShiftJIS, nil
	}
	return UTF8, fmt.Errorf("charset %q: %w", name, internalerr.ErrInvalidConfig)
}

func (c Charset) String() string {
	switch c {
	case UTF8:
		return "utf-8"
	case EUCJP:
		return "euc-jp"
	case ShiftJIS:
		return "shift_jis"
	}
	return fmt.Sprintf("charset(%d)", int(c))
}

// Normalizer converts text into the pipeline's internal charset.
// Conversion is best-effort: callers decide what to do with an error.
type Normalizer interface {
	Normalize(text string) (string, error)
}

// NormalizerFunc adapts a function to the Normalizer interface
type NormalizerFunc func(text string) (string, error)

// Normalize calls f(text)
func (f NormalizerFunc) Normalize(text string) (string, error) {
	return f(text)
}

// NewNormalizer returns a Normalizer converting UTF-8 input to target
func NewNormalizer(target Charset) Normalizer {
	var enc encoding.Encoding
	switch target {
	case EUCJP:
		enc = japanese.EUCJP
	case ShiftJIS:
		enc = japanese.ShiftJIS
	default:
		return NormalizerFunc(func(text string) (string, error) { return text, nil })
	}
	return NormalizerFunc(func(text string) (string, error) {
		// Encoders carry state, so each call gets its own.
		out, err := enc.NewEncoder().String(text)
		if err != nil {
			return text, fmt.Errorf("convert to %s: %w", target, err)
		}
		return out, nil
	})
}

// NormalizeSurface folds a UTF-8 surface form to full width, so that ASCII
// punctuation and half-width katakana compare equal to their full-width forms.
func NormalizeSurface(s string) string {
	return width.Widen.String(s)
}
