package corpus

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cognicore/kakari/pkg/kakari/tree"
)

// Sentence is one JSONL line
type Sentence struct {
	PosSet string  `json:"posset"`
	Chunks []Chunk `json:"chunks"`
}

// Chunk is a token span with an optional dependency link
type Chunk struct {
	Link   *int    `json:"link,omitempty"`
	Tokens []Token `json:"tokens"`
}

// Token is a morpheme with its raw feature string
type Token struct {
	Surface    string `json:"surface"`
	Feature    string `json:"feature"`
	Normalized string `json:"normalized,omitempty"`
}

// LoadFromJSONL loads sentences from a JSONL file with proper error handling
func LoadFromJSONL(path string, opts Options) ([]*tree.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}

	var trees []*tree.Tree
	lines := strings.Split(string(data), "\n")

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var s Sentence
		if err := json.Unmarshal([]byte(line), &s); err != nil {
			log.Printf("Warning: skipping malformed JSON at line %d in %s: %v", i+1, path, err)
			continue
		}
		t, err := s.Tree(opts)
		if err != nil {
			log.Printf("Warning: skipping sentence at line %d in %s: %v", i+1, path, err)
			continue
		}
		trees = append(trees, t)
	}

	if len(trees) == 0 {
		return nil, fmt.Errorf("no valid sentences found in %s", path)
	}

	return trees, nil
}

// Tree builds a tree from the sentence, converting its UTF-8 text into
// opts.Charset
func (s Sentence) Tree(opts Options) (*tree.Tree, error) {
	ps := opts.PosSet
	if s.PosSet != "" {
		p, err := tree.ParsePosSet(s.PosSet)
		if err != nil {
			return nil, err
		}
		ps = p
	}

	enc := opts.encoder()
	t := tree.New(ps)
	for _, c := range s.Chunks {
		pos := t.TokenSize()
		for _, tok := range c.Tokens {
			tt, err := enc.token(tok.Surface, tok.Feature, tok.Normalized)
			if err != nil {
				return nil, fmt.Errorf("token %q: %w", tok.Surface, err)
			}
			t.AddToken(tt)
		}
		link := -1
		if c.Link != nil {
			link = *c.Link
		}
		if err := t.AddChunk(pos, len(c.Tokens), link); err != nil {
			return nil, err
		}
	}
	t.SetOutputLayer(tree.OutputChunk)
	return t, nil
}
