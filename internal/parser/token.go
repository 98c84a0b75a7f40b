package parser

import (
	"slices"
	"strings"
)

// Token is one flat token produced by a tokenizer. It satisfies
// warehouse.RawToken; the warehouse canonicalizes it before use.
type Token struct {
	typ     string
	nesting int
	tag     string
	lines   []int
	content string
	attrs   map[string]string
}

func (t Token) Type() string    { return t.typ }
func (t Token) Nesting() int    { return t.nesting }
func (t Token) Tag() string     { return t.tag }
func (t Token) Map() []int      { return t.lines }
func (t Token) Content() string { return t.content }

func (t Token) Attr(name string) (string, bool) {
	v, ok := t.attrs[name]
	return v, ok
}

// pairs turns alternating key/value strings into an attribute map,
// skipping empty values.
func pairs(kv []string) map[string]string {
	if len(kv) < 2 {
		return nil
	}
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			m[kv[i]] = kv[i+1]
		}
	}
	if len(m) == 0 {
		return nil
	}
	return m
}

func span(start, end int) []int {
	if start < 0 || end < start {
		return nil
	}
	return []int{start, end}
}

// stream accumulates tokens. Open tokens are patched with their end line
// when the matching close is emitted.
type stream struct {
	toks []Token
}

func (s *stream) open(base, tag string, lines []int, attrs ...string) int {
	// Cloned because close may patch the end line.
	lines = slices.Clone(lines)
	s.toks = append(s.toks, Token{typ: base + "_open", nesting: 1, tag: tag, lines: lines, attrs: pairs(attrs)})
	return len(s.toks) - 1
}

// close emits the close token for the open token at idx. A non-negative
// end replaces the open token's end line.
func (s *stream) close(idx, end int) {
	open := &s.toks[idx]
	if end >= 0 && open.lines != nil && end >= open.lines[0] {
		open.lines[1] = end
	}
	base := strings.TrimSuffix(open.typ, "_open")
	s.toks = append(s.toks, Token{typ: base + "_close", nesting: -1, tag: open.tag})
}

func (s *stream) leaf(typ, tag, content string, lines []int, attrs ...string) {
	s.toks = append(s.toks, Token{typ: typ, tag: tag, content: content, lines: lines, attrs: pairs(attrs)})
}

// builder renders a document as plain text line by line while emitting
// tokens whose line ranges point into the rendered text. Tokenizers for
// formats without a line-oriented source (HTML, DOCX, PDF, CSV) use it.
type builder struct {
	stream
	text strings.Builder
	line int
}

// write appends s as one or more lines and returns their range.
func (b *builder) write(s string) []int {
	s = strings.TrimRight(s, "\n")
	start := b.line
	b.text.WriteString(s)
	b.text.WriteByte('\n')
	b.line += strings.Count(s, "\n") + 1
	return span(start, b.line)
}

// blank separates blocks with an empty line.
func (b *builder) blank() {
	if b.line > 0 {
		b.write("")
	}
}

func (b *builder) heading(level int, title string) {
	level = min(max(level, 1), 6)
	tag := "h" + string(rune('0'+level))
	b.blank()
	lines := b.write(title)
	idx := b.open("heading", tag, lines, "markup", strings.Repeat("#", level))
	b.leaf("inline", "", title, lines)
	b.leaf("text", "", title, lines)
	b.close(idx, -1)
}

// paragraph writes text and emits paragraph tokens; extra inline child
// tokens are appended after the inline token.
func (b *builder) paragraph(text string, children ...Token) {
	if strings.TrimSpace(text) == "" {
		return
	}
	b.blank()
	lines := b.write(text)
	idx := b.open("paragraph", "p", lines)
	b.leaf("inline", "", text, lines)
	if len(children) == 0 {
		b.leaf("text", "", text, lines)
	}
	for _, c := range children {
		if c.lines == nil && c.nesting >= 0 {
			c.lines = lines
		}
		b.toks = append(b.toks, c)
	}
	b.close(idx, -1)
}

// table writes rows as pipe-separated lines. The first row is the header.
func (b *builder) table(rows [][]string) {
	if len(rows) == 0 {
		return
	}
	b.blank()
	tIdx := b.open("table", "table", span(b.line, b.line))

	row := func(cells []string, cellTag string) {
		lines := b.write("| " + strings.Join(cells, " | ") + " |")
		rIdx := b.open("tr", "tr", lines)
		for _, c := range cells {
			cIdx := b.open(cellTag, cellTag, lines)
			b.leaf("inline", "", c, lines)
			b.leaf("text", "", c, lines)
			b.close(cIdx, -1)
		}
		b.close(rIdx, -1)
	}

	hIdx := b.open("thead", "thead", span(b.line, b.line))
	row(rows[0], "th")
	b.close(hIdx, b.line)
	if len(rows) > 1 {
		bIdx := b.open("tbody", "tbody", span(b.line, b.line))
		for _, r := range rows[1:] {
			row(r, "td")
		}
		b.close(bIdx, b.line)
	}
	b.close(tIdx, b.line)
}

func (b *builder) document(title, format string) *Document {
	return &Document{
		Title:  title,
		Format: format,
		Text:   b.text.String(),
		Tokens: b.toks,
	}
}
