// Package tree holds a sentence as ordered tokens grouped into chunks.
// Upstream stages fill in tokens and chunk ranges; the selector reads token
// fields and writes head/function offsets and feature lists onto chunks.
package tree

import (
	"fmt"
	"strings"

	"github.com/cognicore/kakari/pkg/kakari/internalerr"
)

// Unset marks a POS subfield with no value. Reads stop at the first Unset.
const Unset = "*"

// PosSet selects the POS subfield layout of a sentence
type PosSet int

const (
	IPA PosSet = iota
	Juman
	// UniDic is recognized so it can be rejected explicitly; no selection
	// rule exists for it.
	UniDic
)

// ParsePosSet resolves a POS set name
func ParsePosSet(name string) (PosSet, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ipa", "ipadic":
		return IPA, nil
	case "juman", "jumandic":
		return Juman, nil
	case "unidic":
		return UniDic, nil
	}
	return IPA, fmt.Errorf("POS set %q: %w", name, internalerr.ErrUnsupportedPosSet)
}

func (p PosSet) String() string {
	switch p {
	case IPA:
		return "ipa"
	case Juman:
		return "juman"
	case UniDic:
		return "unidic"
	}
	return fmt.Sprintf("posset(%d)", int(p))
}

// BasicFieldCount returns how many leading subfields are basic POS fields.
// Conjugation type and form follow immediately after them.
func (p PosSet) BasicFieldCount() int {
	switch p {
	case IPA:
		return 4
	case Juman:
		return 2
	}
	return 0
}

// OutputLayer records the last pipeline stage a tree has completed
type OutputLayer int

const (
	OutputRaw OutputLayer = iota
	OutputPOS
	OutputChunk
	OutputSelection
	OutputDep
)

func (l OutputLayer) String() string {
	switch l {
	case OutputRaw:
		return "raw"
	case OutputPOS:
		return "pos"
	case OutputChunk:
		return "chunk"
	case OutputSelection:
		return "selection"
	case OutputDep:
		return "dep"
	}
	return fmt.Sprintf("layer(%d)", int(l))
}

// Token is one morpheme
type Token struct {
	Surface           string
	NormalizedSurface string
	Feature           string   // raw comma-joined POS description
	FeatureList       []string // Feature split into subfields
}

// NewToken builds a token from a surface and a raw feature string.
// The normalized surface defaults to the surface.
func NewToken(surface, feature string) Token {
	var fl []string
	if feature != "" {
		fl = strings.Split(feature, ",")
	}
	return Token{
		Surface:           surface,
		NormalizedSurface: surface,
		Feature:           feature,
		FeatureList:       fl,
	}
}

// Field returns subfield i, or false if it is out of range or Unset
func (t *Token) Field(i int) (string, bool) {
	if i < 0 || i >= len(t.FeatureList) {
		return "", false
	}
	if t.FeatureList[i] == Unset {
		return "", false
	}
	return t.FeatureList[i], true
}

// BasicFields returns the first n subfields, stopping at the first Unset
func (t *Token) BasicFields(n int) []string {
	if n > len(t.FeatureList) {
		n = len(t.FeatureList)
	}
	out := make([]string, 0, n)
	for _, f := range t.FeatureList[:n] {
		if f == Unset {
			break
		}
		out = append(out, f)
	}
	return out
}

// Chunk is a contiguous token span. HeadPos and FuncPos are offsets from
// TokenPos; they and FeatureList are set by selection.
type Chunk struct {
	TokenPos    int
	TokenSize   int
	Link        int
	HeadPos     int
	FuncPos     int
	FeatureList []string
}

// Tree is one sentence
type Tree struct {
	posSet PosSet
	layer  OutputLayer
	tokens []Token
	chunks []Chunk
}

// New creates an empty tree using the given POS set
func New(posSet PosSet) *Tree {
	return &Tree{posSet: posSet}
}

// PosSet returns the POS set of the sentence
func (t *Tree) PosSet() PosSet { return t.posSet }

// SetPosSet changes the POS set of the sentence
func (t *Tree) SetPosSet(p PosSet) { t.posSet = p }

// OutputLayer returns the last completed stage
func (t *Tree) OutputLayer() OutputLayer { return t.layer }

// SetOutputLayer marks a stage as completed
func (t *Tree) SetOutputLayer(l OutputLayer) { t.layer = l }

// AddToken appends a token and returns its index
func (t *Tree) AddToken(tok Token) int {
	t.tokens = append(t.tokens, tok)
	return len(t.tokens) - 1
}

// AddChunk appends a chunk covering size tokens from pos
func (t *Tree) AddChunk(pos, size, link int) error {
	if pos < 0 || size <= 0 || pos+size > len(t.tokens) {
		return fmt.Errorf("chunk [%d,+%d) outside %d tokens: %w",
			pos, size, len(t.tokens), internalerr.ErrInvalidInput)
	}
	if n := len(t.chunks); n > 0 {
		prev := t.chunks[n-1]
		if pos < prev.TokenPos+prev.TokenSize {
			return fmt.Errorf("chunk at %d overlaps previous chunk: %w", pos, internalerr.ErrInvalidInput)
		}
	}
	t.chunks = append(t.chunks, Chunk{TokenPos: pos, TokenSize: size, Link: link})
	return nil
}

// TokenSize returns the number of tokens
func (t *Tree) TokenSize() int { return len(t.tokens) }

// ChunkSize returns the number of chunks
func (t *Tree) ChunkSize() int { return len(t.chunks) }

// Token returns token i
func (t *Tree) Token(i int) *Token { return &t.tokens[i] }

// Chunk returns chunk i. Callers may write result fields through it.
func (t *Tree) Chunk(i int) *Chunk { return &t.chunks[i] }

// ChunkTokens returns the tokens of chunk i
func (t *Tree) ChunkTokens(i int) []Token {
	c := t.chunks[i]
	return t.tokens[c.TokenPos : c.TokenPos+c.TokenSize]
}

// Validate checks that every chunk covers a non-empty range of existing tokens
func (t *Tree) Validate() error {
	for i, c := range t.chunks {
		if c.TokenPos < 0 || c.TokenSize <= 0 || c.TokenPos+c.TokenSize > len(t.tokens) {
			return fmt.Errorf("chunk %d [%d,+%d) outside %d tokens: %w",
				i, c.TokenPos, c.TokenSize, len(t.tokens), internalerr.ErrInvalidInput)
		}
	}
	return nil
}
