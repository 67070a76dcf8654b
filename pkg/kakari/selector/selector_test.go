package selector

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/cognicore/kakari/pkg/kakari/charset"
	"github.com/cognicore/kakari/pkg/kakari/internalerr"
	"github.com/cognicore/kakari/pkg/kakari/pattern"
	"github.com/cognicore/kakari/pkg/kakari/tree"
)

func testTable() *pattern.Table {
	return &pattern.Table{
		Punctuation:  "(、|，|。|．)",
		OpenBracket:  "(（|「|『)",
		CloseBracket: "(）|」|』)",
		DynamicA:     "(助詞|記号|特殊)",
		Case:         "助詞,格助詞",
		PosSets: map[string]pattern.PosSetTable{
			"ipa": {
				Function: "(助詞|助動詞|動詞,非自立|動詞,接尾|形容詞,非自立|形容詞,接尾)",
				Head:     "(名詞,非自立|名詞,接尾|記号|助詞|助動詞|動詞,非自立|動詞,接尾|形容詞,非自立|形容詞,接尾)",
			},
			"juman": {
				Function: "特殊",
				Head:     "(特殊|助詞|助動詞|判定詞|接尾辞)",
			},
		},
	}
}

func openTest(t *testing.T, opts Options) *Selector {
	t.Helper()
	if opts.Patterns == nil {
		opts.Patterns = testTable()
	}
	s, err := Open(opts)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return s
}

func buildTree(t *testing.T, ps tree.PosSet, chunks ...[]tree.Token) *tree.Tree {
	t.Helper()
	tr := tree.New(ps)
	for _, toks := range chunks {
		pos := tr.TokenSize()
		for _, tok := range toks {
			tr.AddToken(tok)
		}
		if err := tr.AddChunk(pos, len(toks), -1); err != nil {
			t.Fatal(err)
		}
	}
	return tr
}

func tok(surface, feature string) tree.Token {
	return tree.NewToken(surface, feature)
}

func TestOpenNilPatterns(t *testing.T) {
	_, err := Open(Options{})
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestMustOpenPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustOpen should panic on a configuration error")
		}
	}()
	MustOpen(Options{})
}

func TestOpenEmptyPatternFails(t *testing.T) {
	tab := testTable()
	tab.Case = "()"
	_, err := Open(Options{Patterns: tab})
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestOpenRejectsUniDic(t *testing.T) {
	tab := testTable()
	tab.PosSets["unidic"] = pattern.PosSetTable{Function: "助詞", Head: "記号"}

	_, err := Open(Options{Patterns: tab})
	if !errors.Is(err, internalerr.ErrUnsupportedPosSet) {
		t.Errorf("Expected ErrUnsupportedPosSet, got %v", err)
	}
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestOpenMissingPosSet(t *testing.T) {
	tab := testTable()
	delete(tab.PosSets, "juman")
	if _, err := Open(Options{Patterns: tab}); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestOpenNegativeCapacity(t *testing.T) {
	_, err := Open(Options{Patterns: testTable(), MaxFeatures: -1})
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestParseNil(t *testing.T) {
	s := openTest(t, Options{})
	if err := s.Parse(nil); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestParseUnsupportedPosSet(t *testing.T) {
	s := openTest(t, Options{})
	tr := buildTree(t, tree.UniDic, []tree.Token{tok("私", "代名詞,*,*,*")})

	if err := s.Parse(tr); !errors.Is(err, internalerr.ErrUnsupportedPosSet) {
		t.Errorf("Expected ErrUnsupportedPosSet, got %v", err)
	}
	if tr.OutputLayer() != tree.OutputRaw || tr.Chunk(0).FeatureList != nil {
		t.Error("Rejected tree must be left untouched")
	}
}

func TestParseInvalidChunkRange(t *testing.T) {
	s := openTest(t, Options{})
	tr := buildTree(t, tree.IPA, []tree.Token{tok("私", "名詞,代名詞,一般,*")})
	tr.Chunk(0).TokenSize = 3

	if err := s.Parse(tr); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestParseEmptySentence(t *testing.T) {
	s := openTest(t, Options{})
	tr := tree.New(tree.IPA)
	if err := s.Parse(tr); err != nil {
		t.Fatalf("Empty sentence should parse: %v", err)
	}
	if tr.OutputLayer() != tree.OutputSelection {
		t.Error("Output layer should be selection")
	}
}

func TestSingleTokenAllUnset(t *testing.T) {
	s := openTest(t, Options{})
	tr := buildTree(t, tree.IPA, []tree.Token{tok("私", "*,*,*,*")})

	if err := s.Parse(tr); err != nil {
		t.Fatal(err)
	}

	c := tr.Chunk(0)
	if c.HeadPos != 0 || c.FuncPos != 0 {
		t.Errorf("Expected head=func=0, got %d,%d", c.HeadPos, c.FuncPos)
	}
	want := []string{"F_H0:私", "F_F0:私", "A:", "B:", "F_BOS:1", "F_EOS:1"}
	if !reflect.DeepEqual(c.FeatureList, want) {
		t.Errorf("Expected %v, got %v", want, c.FeatureList)
	}
	if tr.OutputLayer() != tree.OutputSelection {
		t.Error("Output layer should be selection")
	}
}

func TestIPANounParticle(t *testing.T) {
	s := openTest(t, Options{})
	tr := buildTree(t, tree.IPA, []tree.Token{
		tok("私", "名詞,代名詞,一般,*,*,*,私,ワタシ,ワタシ"),
		tok("は", "助詞,係助詞,*,*,*,*,は,ハ,ワ"),
	})

	if err := s.Parse(tr); err != nil {
		t.Fatal(err)
	}

	c := tr.Chunk(0)
	if c.HeadPos != 0 || c.FuncPos != 1 {
		t.Errorf("Expected head=0 func=1, got %d,%d", c.HeadPos, c.FuncPos)
	}
	want := []string{
		"F_H0:私", "F_H1:名詞", "F_H2:代名詞", "F_H3:一般",
		"F_F0:は", "F_F1:助詞", "F_F2:係助詞",
		"A:は", "B:名詞-代名詞-一般",
		"F_BOS:1", "F_EOS:1",
	}
	if !reflect.DeepEqual(c.FeatureList, want) {
		t.Errorf("Expected %v, got %v", want, c.FeatureList)
	}
}

func TestIPAConjugation(t *testing.T) {
	chunk := []tree.Token{
		tok("食べ", "動詞,自立,*,*,一段,連用形,食べる,タベ,タベ"),
		tok("た", "助動詞,*,*,*,特殊・タ,基本形,た,タ,タ"),
	}

	s := openTest(t, Options{})
	tr := buildTree(t, tree.IPA, chunk)
	if err := s.Parse(tr); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"F_H0:食べ", "F_H1:動詞", "F_H2:自立", "F_H5:一段", "F_H6:連用形",
		"F_F0:た", "F_F1:助動詞",
		"A:基本形", "B:動詞-自立",
		"F_BOS:1", "F_EOS:1",
	}
	if got := tr.Chunk(0).FeatureList; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	s = openTest(t, Options{EmitFunctionConjugation: true})
	tr = buildTree(t, tree.IPA, chunk)
	if err := s.Parse(tr); err != nil {
		t.Fatal(err)
	}
	want = []string{
		"F_H0:食べ", "F_H1:動詞", "F_H2:自立", "F_H5:一段", "F_H6:連用形",
		"F_F0:た", "F_F1:助動詞", "F_F5:特殊・タ", "F_F6:基本形",
		"A:基本形", "B:動詞-自立",
		"F_BOS:1", "F_EOS:1",
	}
	if got := tr.Chunk(0).FeatureList; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestIPAClampsFunctionToHead(t *testing.T) {
	s := openTest(t, Options{})
	tr := buildTree(t, tree.IPA, []tree.Token{
		tok("は", "助詞,係助詞,*,*,*,*,は,ハ,ワ"),
		tok("猫", "名詞,一般,*,*,*,*,猫,ネコ,ネコ"),
	})

	if err := s.Parse(tr); err != nil {
		t.Fatal(err)
	}
	c := tr.Chunk(0)
	if c.HeadPos != 1 || c.FuncPos != 1 {
		t.Errorf("Expected clamped head=func=1, got %d,%d", c.HeadPos, c.FuncPos)
	}
}

func TestIPAHeadNeverAfterFunction(t *testing.T) {
	s := openTest(t, Options{})
	words := []tree.Token{
		tok("猫", "名詞,一般,*,*"),
		tok("が", "助詞,格助詞,一般,*"),
		tok("。", "記号,句点,*,*"),
		tok("走る", "動詞,自立,*,*,五段・ラ行,基本形"),
		tok("た", "助動詞,*,*,*,特殊・タ,基本形"),
		tok("さん", "名詞,接尾,人名,*"),
	}

	// every ordered pair and triple of words as one chunk
	var chunks [][]tree.Token
	for _, a := range words {
		for _, b := range words {
			chunks = append(chunks, []tree.Token{a, b})
			for _, c := range words {
				chunks = append(chunks, []tree.Token{a, b, c})
			}
		}
	}

	tr := buildTree(t, tree.IPA, chunks...)
	if err := s.Parse(tr); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < tr.ChunkSize(); i++ {
		c := tr.Chunk(i)
		if c.HeadPos > c.FuncPos {
			t.Errorf("Chunk %d: head %d after func %d", i, c.HeadPos, c.FuncPos)
		}
		if c.FuncPos >= c.TokenSize || c.HeadPos < 0 {
			t.Errorf("Chunk %d: offsets %d,%d outside %d tokens", i, c.HeadPos, c.FuncPos, c.TokenSize)
		}
	}
}

func TestCaseMarker(t *testing.T) {
	s := openTest(t, Options{})
	tr := buildTree(t, tree.IPA, []tree.Token{
		tok("猫", "名詞,一般,*,*,*,*,猫,ネコ,ネコ"),
		tok("が", "助詞,格助詞,一般,*,*,*,が,ガ,ガ"),
	})

	if err := s.Parse(tr); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, f := range tr.Chunk(0).FeatureList {
		if f == "G_CASE:が" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected G_CASE:が in %v", tr.Chunk(0).FeatureList)
	}
}

func TestPunctuationFlags(t *testing.T) {
	s := openTest(t, Options{})
	tr := buildTree(t, tree.IPA, []tree.Token{
		tok("走る", "動詞,自立,*,*,五段・ラ行,基本形"),
		tok("。", "記号,句点,*,*,*,*,。,。,。"),
	})

	if err := s.Parse(tr); err != nil {
		t.Fatal(err)
	}
	got := tr.Chunk(0).FeatureList
	if len(got) < 2 || got[0] != "G_PUNC:。" || got[1] != "F_PUNC:。" {
		t.Errorf("Expected leading G_PUNC:。 F_PUNC:。, got %v", got)
	}
}

func TestPunctuationIgnoresPOS(t *testing.T) {
	s := openTest(t, Options{})
	tr := buildTree(t, tree.IPA, []tree.Token{tok("。", "*")})

	if err := s.Parse(tr); err != nil {
		t.Fatal(err)
	}
	got := tr.Chunk(0).FeatureList
	if got[0] != "G_PUNC:。" || got[1] != "F_PUNC:。" {
		t.Errorf("Expected punctuation flags regardless of POS, got %v", got)
	}
}

func TestBracketFlagsInTokenOrder(t *testing.T) {
	s := openTest(t, Options{})
	tr := buildTree(t, tree.IPA, []tree.Token{
		tok("「", "記号,括弧開,*,*"),
		tok("猫", "名詞,一般,*,*"),
		tok("」", "記号,括弧閉,*,*"),
	})

	if err := s.Parse(tr); err != nil {
		t.Fatal(err)
	}
	got := tr.Chunk(0).FeatureList[:4]
	want := []string{"G_OB:「", "F_OB:「", "G_CB:」", "F_CB:」"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestFlagsUseNormalizedSurface(t *testing.T) {
	s := openTest(t, Options{})
	comma := tok(",", "記号,読点,*,*")
	comma.NormalizedSurface = charset.NormalizeSurface(comma.Surface)
	tr := buildTree(t, tree.IPA, []tree.Token{comma})

	if err := s.Parse(tr); err != nil {
		t.Fatal(err)
	}
	if got := tr.Chunk(0).FeatureList[0]; got != "G_PUNC:，" {
		t.Errorf("Expected G_PUNC:，, got %q", got)
	}
}

func TestBoundaryFlags(t *testing.T) {
	s := openTest(t, Options{})
	tr := buildTree(t, tree.IPA,
		[]tree.Token{tok("私", "名詞,代名詞,一般,*"), tok("は", "助詞,係助詞,*,*")},
		[]tree.Token{tok("猫", "名詞,一般,*,*"), tok("が", "助詞,格助詞,一般,*")},
		[]tree.Token{tok("好き", "名詞,形容動詞語幹,*,*"), tok("だ", "助動詞,*,*,*,特殊・ダ,基本形")},
	)

	if err := s.Parse(tr); err != nil {
		t.Fatal(err)
	}

	has := func(i int, f string) bool {
		for _, g := range tr.Chunk(i).FeatureList {
			if g == f {
				return true
			}
		}
		return false
	}

	if !has(0, "F_BOS:1") || has(0, "F_EOS:1") {
		t.Errorf("Chunk 0 boundary flags wrong: %v", tr.Chunk(0).FeatureList)
	}
	if has(1, "F_BOS:1") || has(1, "F_EOS:1") {
		t.Errorf("Chunk 1 should have no boundary flags: %v", tr.Chunk(1).FeatureList)
	}
	if has(2, "F_BOS:1") || !has(2, "F_EOS:1") {
		t.Errorf("Chunk 2 boundary flags wrong: %v", tr.Chunk(2).FeatureList)
	}

	// offsets are relative to the chunk start
	c := tr.Chunk(1)
	if c.HeadPos != 0 || c.FuncPos != 1 {
		t.Errorf("Chunk 1: expected head=0 func=1, got %d,%d", c.HeadPos, c.FuncPos)
	}
}

func TestJumanFunctionExclusion(t *testing.T) {
	s := openTest(t, Options{})
	tr := buildTree(t, tree.Juman, []tree.Token{
		tok("猫", "名詞,普通名詞,*,*"),
		tok("。", "特殊,句点,*,*"),
	})

	if err := s.Parse(tr); err != nil {
		t.Fatal(err)
	}
	c := tr.Chunk(0)
	if c.HeadPos != 0 || c.FuncPos != 0 {
		t.Errorf("Expected head=func=0, got %d,%d", c.HeadPos, c.FuncPos)
	}
	want := []string{
		"G_PUNC:。", "F_PUNC:。",
		"F_H0:猫", "F_H1:名詞", "F_H2:普通名詞",
		"F_F0:猫", "F_F1:名詞", "F_F2:普通名詞",
		"A:名詞-普通名詞", "B:名詞-普通名詞",
		"F_BOS:1", "F_EOS:1",
	}
	if !reflect.DeepEqual(c.FeatureList, want) {
		t.Errorf("Expected %v, got %v", want, c.FeatureList)
	}
}

func TestJumanConjugationOffsets(t *testing.T) {
	s := openTest(t, Options{})
	tr := buildTree(t, tree.Juman, []tree.Token{
		tok("食べた", "動詞,*,母音動詞,タ形"),
	})

	if err := s.Parse(tr); err != nil {
		t.Fatal(err)
	}
	want := []string{
		"F_H0:食べた", "F_H1:動詞", "F_H5:母音動詞", "F_H6:タ形",
		"F_F0:食べた", "F_F1:動詞",
		"A:タ形", "B:動詞",
		"F_BOS:1", "F_EOS:1",
	}
	if got := tr.Chunk(0).FeatureList; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestJumanNoClamp(t *testing.T) {
	tab := testTable()
	tab.PosSets["juman"] = pattern.PosSetTable{Function: "名詞", Head: "助詞"}
	s := openTest(t, Options{Patterns: tab})

	// first token passes the function test, second is excluded from it
	tr := buildTree(t, tree.Juman, []tree.Token{
		tok("は", "助詞,副助詞,*,*"),
		tok("猫", "名詞,普通名詞,*,*"),
	})

	if err := s.Parse(tr); err != nil {
		t.Fatal(err)
	}
	c := tr.Chunk(0)
	if c.FuncPos != 0 {
		t.Errorf("Expected func=0, got %d", c.FuncPos)
	}
	if c.HeadPos != 1 {
		t.Errorf("Expected head=1 with no clamp, got %d", c.HeadPos)
	}
}

func TestParseIsDeterministic(t *testing.T) {
	s := openTest(t, Options{})
	tr := buildTree(t, tree.IPA,
		[]tree.Token{tok("「", "記号,括弧開,*,*"), tok("私", "名詞,代名詞,一般,*"), tok("は", "助詞,係助詞,*,*")},
		[]tree.Token{tok("走っ", "動詞,自立,*,*,五段・ラ行,連用タ接続"), tok("た", "助動詞,*,*,*,特殊・タ,基本形"), tok("。", "記号,句点,*,*")},
	)

	if err := s.Parse(tr); err != nil {
		t.Fatal(err)
	}
	first := [][]string{tr.Chunk(0).FeatureList, tr.Chunk(1).FeatureList}
	heads := []int{tr.Chunk(0).HeadPos, tr.Chunk(0).FuncPos, tr.Chunk(1).HeadPos, tr.Chunk(1).FuncPos}

	if err := s.Parse(tr); err != nil {
		t.Fatal(err)
	}
	second := [][]string{tr.Chunk(0).FeatureList, tr.Chunk(1).FeatureList}
	heads2 := []int{tr.Chunk(0).HeadPos, tr.Chunk(0).FuncPos, tr.Chunk(1).HeadPos, tr.Chunk(1).FuncPos}

	if !reflect.DeepEqual(first, second) || !reflect.DeepEqual(heads, heads2) {
		t.Errorf("Reparse changed results: %v %v vs %v %v", first, heads, second, heads2)
	}
}

func TestFeatureTextCapacity(t *testing.T) {
	s := openTest(t, Options{MaxFeatureBytes: 16})
	tr := buildTree(t, tree.IPA,
		[]tree.Token{tok("私", "*")},
		[]tree.Token{tok("私", "名詞,代名詞,一般,*,*,*,私,ワタシ,ワタシ")},
	)

	err := s.Parse(tr)
	if !errors.Is(err, internalerr.ErrCapacity) {
		t.Fatalf("Expected ErrCapacity, got %v", err)
	}
	if tr.OutputLayer() != tree.OutputRaw {
		t.Error("Failed parse must not mark the selection stage")
	}
	for i := 0; i < tr.ChunkSize(); i++ {
		if tr.Chunk(i).FeatureList != nil {
			t.Errorf("Chunk %d written despite failure", i)
		}
	}
}

func TestFeatureCountCapacity(t *testing.T) {
	s := openTest(t, Options{MaxFeatures: 3})
	tr := buildTree(t, tree.IPA, []tree.Token{tok("私", "名詞,代名詞,一般,*")})

	if err := s.Parse(tr); !errors.Is(err, internalerr.ErrCapacity) {
		t.Errorf("Expected ErrCapacity, got %v", err)
	}
}

func TestEUCJPPatterns(t *testing.T) {
	s := openTest(t, Options{Charset: charset.EUCJP})
	enc := charset.NewNormalizer(charset.EUCJP)
	conv := func(s string) string {
		out, err := enc.Normalize(s)
		if err != nil {
			t.Fatal(err)
		}
		return out
	}

	tr := buildTree(t, tree.IPA, []tree.Token{
		tok(conv("猫"), conv("名詞,一般,*,*")),
		tok(conv("が"), conv("助詞,格助詞,一般,*")),
		tok(conv("。"), conv("記号,句点,*,*")),
	})
	if err := s.Parse(tr); err != nil {
		t.Fatal(err)
	}

	got := tr.Chunk(0).FeatureList
	if got[0] != "G_PUNC:"+conv("。") {
		t.Errorf("Expected EUC-JP punctuation flag, got %q", got[0])
	}
	// 。 is a symbol: not a function word, excluded from heads
	c := tr.Chunk(0)
	if c.HeadPos != 0 || c.FuncPos != 1 {
		t.Errorf("Expected head=0 func=1, got %d,%d", c.HeadPos, c.FuncPos)
	}
	found := false
	for _, f := range got {
		if f == "G_CASE:"+conv("が") {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected EUC-JP case marker in %q", got)
	}
}

func TestConcurrentParse(t *testing.T) {
	s := openTest(t, Options{})
	build := func() *tree.Tree {
		return buildTree(t, tree.IPA,
			[]tree.Token{tok("私", "名詞,代名詞,一般,*"), tok("は", "助詞,係助詞,*,*")},
			[]tree.Token{tok("走る", "動詞,自立,*,*,五段・ラ行,基本形"), tok("。", "記号,句点,*,*")},
		)
	}

	want := build()
	if err := s.Parse(want); err != nil {
		t.Fatal(err)
	}

	trees := make([]*tree.Tree, 16)
	for i := range trees {
		trees[i] = build()
	}

	var wg sync.WaitGroup
	errs := make([]error, len(trees))
	for i := range trees {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.Parse(trees[i])
		}(i)
	}
	wg.Wait()

	for i, tr := range trees {
		if errs[i] != nil {
			t.Fatalf("tree %d: %v", i, errs[i])
		}
		for j := 0; j < tr.ChunkSize(); j++ {
			if !reflect.DeepEqual(tr.Chunk(j).FeatureList, want.Chunk(j).FeatureList) {
				t.Errorf("tree %d chunk %d differs: %v", i, j, tr.Chunk(j).FeatureList)
			}
		}
	}
}

func TestClose(t *testing.T) {
	s := openTest(t, Options{})
	if err := s.Close(); err != nil {
		t.Errorf("Close should not fail: %v", err)
	}
}
