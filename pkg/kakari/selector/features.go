package selector

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cognicore/kakari/pkg/kakari/internalerr"
	"github.com/cognicore/kakari/pkg/kakari/tree"
)

// posDelimiter joins basic POS fields in the A and B features
const posDelimiter = "-"

type chunkResult struct {
	head     int
	fn       int
	features []string
}

// featureBuffer accumulates " NAME:VALUE" pairs up to a fixed byte capacity.
// The first overflow is kept in err and later writes are dropped.
type featureBuffer struct {
	b     strings.Builder
	limit int
	err   error
}

func (f *featureBuffer) add(name, value string) {
	if f.err != nil {
		return
	}
	if n := f.b.Len() + len(name) + len(value) + 2; n > f.limit {
		f.err = fmt.Errorf("feature text needs %d bytes, capacity %d: %w", n, f.limit, internalerr.ErrCapacity)
		return
	}
	f.b.WriteByte(' ')
	f.b.WriteString(name)
	f.b.WriteByte(':')
	f.b.WriteString(value)
}

// addFields emits prefix1..prefixN for the basic POS fields of tok
func (f *featureBuffer) addFields(prefix string, tok *tree.Token, n int) {
	for k, v := range tok.BasicFields(n) {
		f.add(prefix+strconv.Itoa(k+1), v)
	}
}

func (s *Selector) selectChunk(t *tree.Tree, rule headRule, i int) (chunkResult, error) {
	c := t.Chunk(i)
	basic := t.PosSet().BasicFieldCount()
	buf := &featureBuffer{limit: s.maxFeatureBytes}

	for j := c.TokenPos; j < c.TokenPos+c.TokenSize; j++ {
		surface := t.Token(j).NormalizedSurface
		if p, ok := s.punctuation.Match(surface); ok {
			buf.add("G_PUNC", p)
			buf.add("F_PUNC", p)
		}
		if p, ok := s.openBracket.Match(surface); ok {
			buf.add("G_OB", p)
			buf.add("F_OB", p)
		}
		if p, ok := s.closeBracket.Match(surface); ok {
			buf.add("G_CB", p)
			buf.add("F_CB", p)
		}
	}

	head, fn := rule.findHead(t, c)
	htok := t.Token(head)
	ftok := t.Token(fn)

	buf.add("F_H0", htok.NormalizedSurface)
	buf.addFields("F_H", htok, basic)
	if v, ok := htok.Field(basic); ok {
		buf.add("F_H5", v)
	}
	if v, ok := htok.Field(basic + 1); ok {
		buf.add("F_H6", v)
	}

	buf.add("F_F0", ftok.NormalizedSurface)
	buf.addFields("F_F", ftok, basic)
	fcform, hasFCForm := ftok.Field(basic + 1)
	if s.emitFuncConj {
		if v, ok := ftok.Field(basic); ok {
			buf.add("F_F5", v)
		}
		if hasFCForm {
			buf.add("F_F6", fcform)
		}
	}

	_, dyn := s.dynamicA.PrefixMatch(ftok.Feature)
	switch {
	case dyn:
		buf.add("A", ftok.NormalizedSurface)
	case hasFCForm:
		buf.add("A", fcform)
	default:
		buf.add("A", strings.Join(ftok.BasicFields(basic), posDelimiter))
	}

	buf.add("B", strings.Join(htok.BasicFields(basic), posDelimiter))

	if _, ok := s.caseMarker.PrefixMatch(ftok.Feature); ok {
		buf.add("G_CASE", ftok.NormalizedSurface)
	}

	if i == 0 {
		buf.add("F_BOS", "1")
	}
	if i == t.ChunkSize()-1 {
		buf.add("F_EOS", "1")
	}

	if buf.err != nil {
		return chunkResult{}, buf.err
	}

	// split on ASCII space only; multibyte charsets never produce 0x20
	// inside a character
	features := strings.FieldsFunc(buf.b.String(), func(r rune) bool { return r == ' ' })
	if len(features) > s.maxFeatures {
		return chunkResult{}, fmt.Errorf("%d features, capacity %d: %w",
			len(features), s.maxFeatures, internalerr.ErrCapacity)
	}

	return chunkResult{head: head, fn: fn, features: features}, nil
}
