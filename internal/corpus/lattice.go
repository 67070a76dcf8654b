package corpus

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/cognicore/kakari/pkg/kakari/tree"
)

const eos = "EOS"

// ReadLattice reads sentences in the chunked lattice format:
//
//	* 0 1D
//	猫	名詞,一般,*,*,*,*,猫,ネコ,ネコ
//	が	助詞,格助詞,一般,*,*,*,が,ガ,ガ
//	* 1 -1D
//	鳴い	動詞,自立,*,*,五段・カ行イ音便,連用タ接続,鳴く,ナイ,ナイ
//	EOS
//
// Tokens before the first chunk header form one implicit chunk. The text
// must already be in opts.Charset.
func ReadLattice(r io.Reader, opts Options) ([]*tree.Tree, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var (
		trees   []*tree.Tree
		cur     = tree.New(opts.PosSet)
		start   = 0
		link    = -1
		open    = false
		lineNum = 0
		broken  = false
	)

	closeChunk := func() error {
		if !open && cur.TokenSize() == start {
			return nil
		}
		size := cur.TokenSize() - start
		open = false
		if size == 0 {
			return nil
		}
		if err := cur.AddChunk(start, size, link); err != nil {
			return err
		}
		start = cur.TokenSize()
		return nil
	}

	flush := func() {
		if err := closeChunk(); err != nil {
			log.Printf("Warning: skipping sentence ending at line %d: %v", lineNum, err)
			broken = true
		}
		if !broken && cur.ChunkSize() > 0 {
			cur.SetOutputLayer(tree.OutputChunk)
			trees = append(trees, cur)
		}
		cur = tree.New(opts.PosSet)
		start, link, open, broken = 0, -1, false, false
	}

	for sc.Scan() {
		lineNum++
		line := strings.TrimRight(sc.Text(), "\r")

		switch {
		case line == "":
			continue
		case line == eos:
			flush()
		case strings.HasPrefix(line, "* "):
			if err := closeChunk(); err != nil {
				log.Printf("Warning: line %d: %v", lineNum, err)
				broken = true
			}
			l, err := parseHeader(line)
			if err != nil {
				log.Printf("Warning: line %d: %v", lineNum, err)
				broken = true
			}
			link, open = l, true
		default:
			surface, feature, ok := strings.Cut(line, "\t")
			if !ok {
				log.Printf("Warning: line %d: token without feature: %q", lineNum, line)
				broken = true
				continue
			}
			cur.AddToken(opts.rawToken(surface, feature))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read lattice: %w", err)
	}
	if cur.TokenSize() > 0 {
		flush()
	}

	return trees, nil
}

// parseHeader returns the link of a "* <id> <link>D ..." chunk header
func parseHeader(line string) (int, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 || !strings.HasSuffix(fields[2], "D") {
		return -1, fmt.Errorf("malformed chunk header %q", line)
	}
	link, err := strconv.Atoi(strings.TrimSuffix(fields[2], "D"))
	if err != nil {
		return -1, fmt.Errorf("malformed chunk link %q: %w", fields[2], err)
	}
	return link, nil
}
