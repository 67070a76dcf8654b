package pattern

// Table holds the source text of every named pattern the selector compiles.
// Shared patterns apply to all POS sets; head/function markers differ per
// POS set and are keyed by POS set name.
type Table struct {
	Punctuation  string                 `yaml:"punctuation"`
	OpenBracket  string                 `yaml:"open_bracket"`
	CloseBracket string                 `yaml:"close_bracket"`
	DynamicA     string                 `yaml:"dynamic_a"`
	Case         string                 `yaml:"case"`
	PosSets      map[string]PosSetTable `yaml:"possets"`
}

// PosSetTable holds the head and function marker patterns of one POS set.
// Whether a marker includes or excludes tokens depends on the head rule
// of that POS set.
type PosSetTable struct {
	Function string `yaml:"function"`
	Head     string `yaml:"head"`
}
