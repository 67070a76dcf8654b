package selector

import (
	"github.com/cognicore/kakari/pkg/kakari/pattern"
	"github.com/cognicore/kakari/pkg/kakari/tree"
)

// headRule picks the head and function token of a chunk.
// Both results are absolute token indices inside the chunk's range.
type headRule interface {
	findHead(t *tree.Tree, c *tree.Chunk) (head, fn int)
}

// inclusionRule is the IPA rule. A token matching function is a function
// word; any other token not matching head can be the head. The last
// qualifying token wins each role, and the head never follows the function
// token.
type inclusionRule struct {
	function *pattern.Matcher
	head     *pattern.Matcher
}

func (r inclusionRule) findHead(t *tree.Tree, c *tree.Chunk) (head, fn int) {
	head, fn = c.TokenPos, c.TokenPos
	for j := c.TokenPos; j < c.TokenPos+c.TokenSize; j++ {
		feature := t.Token(j).Feature
		if _, ok := r.function.PrefixMatch(feature); ok {
			fn = j
		} else if _, ok := r.head.PrefixMatch(feature); !ok {
			head = j
		}
	}
	if head > fn {
		fn = head
	}
	return head, fn
}

// exclusionRule is the JUMAN rule. Each marker lists tokens excluded from
// its role; the last token not excluded wins, independently per role.
type exclusionRule struct {
	function *pattern.Matcher
	head     *pattern.Matcher
}

func (r exclusionRule) findHead(t *tree.Tree, c *tree.Chunk) (head, fn int) {
	head, fn = c.TokenPos, c.TokenPos
	for j := c.TokenPos; j < c.TokenPos+c.TokenSize; j++ {
		feature := t.Token(j).Feature
		if _, ok := r.function.PrefixMatch(feature); !ok {
			fn = j
		}
		if _, ok := r.head.PrefixMatch(feature); !ok {
			head = j
		}
	}
	return head, fn
}
