// Package corpus reads chunked, POS-tagged sentences into trees.
package corpus

import (
	"github.com/cognicore/kakari/pkg/kakari/charset"
	"github.com/cognicore/kakari/pkg/kakari/tree"
)

// Options controls how sentences are turned into trees
type Options struct {
	PosSet tree.PosSet // used when a sentence does not name one

	// Charset is the internal encoding of the selector. UTF-8 sources are
	// converted into it; lattice input is assumed to be in it already.
	Charset charset.Charset

	// NormalizeSurface fills missing normalized surfaces with the
	// full-width folded surface instead of the surface itself.
	NormalizeSurface bool
}

// encoder converts UTF-8 token text into the internal charset
type encoder struct {
	opts Options
	norm charset.Normalizer
}

func (o Options) encoder() *encoder {
	return &encoder{opts: o, norm: charset.NewNormalizer(o.Charset)}
}

// token builds a token from UTF-8 text. Width folding happens before
// conversion.
func (e *encoder) token(surface, feature, normalized string) (tree.Token, error) {
	if normalized == "" {
		normalized = surface
		if e.opts.NormalizeSurface {
			normalized = charset.NormalizeSurface(surface)
		}
	}

	s, err := e.norm.Normalize(surface)
	if err != nil {
		return tree.Token{}, err
	}
	f, err := e.norm.Normalize(feature)
	if err != nil {
		return tree.Token{}, err
	}
	n, err := e.norm.Normalize(normalized)
	if err != nil {
		return tree.Token{}, err
	}

	tok := tree.NewToken(s, f)
	tok.NormalizedSurface = n
	return tok, nil
}

// rawToken builds a token from text already in the internal charset.
// Width folding only applies to UTF-8 text.
func (o Options) rawToken(surface, feature string) tree.Token {
	tok := tree.NewToken(surface, feature)
	if o.NormalizeSurface && o.Charset == charset.UTF8 {
		tok.NormalizedSurface = charset.NormalizeSurface(surface)
	}
	return tok
}
