package warehouse

import "strings"

// RawToken is the accessor surface a tokenizer exposes for each token.
//
// Implementations are untrusted: they may come from extension code with
// buggy or hostile accessors. Each accessor is called at most once per token,
// under recover, while the warehouse is built. Nothing calls back into a
// RawToken afterwards.
type RawToken interface {
	Type() string
	Nesting() int
	Tag() string
	// Map returns [start, end) source lines, or nil.
	Map() []int
	Content() string
	Attr(name string) (string, bool)
}

// Attribute names copied from raw tokens. Anything else is dropped.
var AttrNames = []string{
	"href", "src", "title", "alt", "id", "class",
	"start", "align", "info", "markup", "checked",
}

// LineRange is a half-open range of zero-based source lines.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Token is the canonical, primitive-only view of a raw token.
// Collectors receive pointers into the warehouse's token arena and must
// treat them as read-only.
type Token struct {
	Type    string            `json:"type"`
	Nesting int               `json:"nesting"`
	Tag     string            `json:"tag,omitempty"`
	Lines   *LineRange        `json:"lines,omitempty"`
	Content string            `json:"content,omitempty"`
	Attrs   map[string]string `json:"attrs,omitempty"`
}

// Attr returns the named attribute and whether it was present.
func (t *Token) Attr(name string) (string, bool) {
	v, ok := t.Attrs[name]
	return v, ok
}

// Line returns the first source line of the token, or -1.
func (t *Token) Line() int {
	if t.Lines == nil {
		return -1
	}
	return t.Lines.Start
}

// Base returns the type without its _open/_close suffix, so that
// "blockquote_open" and "blockquote_close" both name "blockquote".
func (t *Token) Base() string {
	return baseType(t.Type)
}

func baseType(typ string) string {
	if s, ok := strings.CutSuffix(typ, "_open"); ok {
		return s
	}
	if s, ok := strings.CutSuffix(typ, "_close"); ok {
		return s
	}
	return typ
}

// HeadingLevel returns 1..6 for an h1..h6 tag and 0 otherwise.
func (t *Token) HeadingLevel() int {
	if len(t.Tag) == 2 && (t.Tag[0] == 'h' || t.Tag[0] == 'H') && t.Tag[1] >= '1' && t.Tag[1] <= '6' {
		return int(t.Tag[1] - '0')
	}
	return 0
}

// Canonicalize converts raw tokens into canonical views. A failing accessor
// yields the zero value for that field instead of an error.
func Canonicalize[T RawToken](raw []T) []Token {
	out := make([]Token, len(raw))
	for i := range raw {
		out[i] = canonicalize(raw[i])
	}
	return out
}

func canonicalize(raw RawToken) Token {
	if raw == nil {
		return Token{}
	}
	t := Token{
		Type:    safeString(raw.Type),
		Nesting: clampNesting(safeInt(raw.Nesting)),
		Tag:     safeString(raw.Tag),
		Lines:   safeLines(raw.Map),
		Content: safeString(raw.Content),
	}
	for _, name := range AttrNames {
		if v, ok := safeAttr(raw.Attr, name); ok {
			if t.Attrs == nil {
				t.Attrs = make(map[string]string, 2)
			}
			t.Attrs[name] = v
		}
	}
	return t
}

func safeString(fn func() string) (s string) {
	defer func() {
		if recover() != nil {
			s = ""
		}
	}()
	return fn()
}

func safeInt(fn func() int) (n int) {
	defer func() {
		if recover() != nil {
			n = 0
		}
	}()
	return fn()
}

func safeLines(fn func() []int) (lr *LineRange) {
	defer func() {
		if recover() != nil {
			lr = nil
		}
	}()
	m := fn()
	if len(m) < 2 || m[0] < 0 || m[1] < m[0] {
		return nil
	}
	return &LineRange{Start: m[0], End: m[1]}
}

func safeAttr(fn func(string) (string, bool), name string) (v string, ok bool) {
	defer func() {
		if recover() != nil {
			v, ok = "", false
		}
	}()
	return fn(name)
}

func clampNesting(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
