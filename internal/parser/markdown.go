package parser

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	gmparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

// MarkdownTokenizer handles Markdown files using goldmark with the GFM
// table, strikethrough and task list extensions. The goldmark AST is
// flattened into open/close token pairs; inline children follow their
// "inline" token in document order.
type MarkdownTokenizer struct {
	md goldmark.Markdown
}

func NewMarkdownTokenizer() *MarkdownTokenizer {
	return &MarkdownTokenizer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.TaskList),
			goldmark.WithParserOptions(gmparser.WithAutoHeadingID()),
		),
	}
}

func (p *MarkdownTokenizer) Tokenize(r io.Reader, filename string) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read markdown: %w", err)
	}
	src := Normalize(raw)
	return &Document{
		Title:  titleFromFilename(filename),
		Format: "markdown",
		Text:   src,
		Tokens: p.TokenizeString(src),
	}, nil
}

// TokenizeString tokenizes already normalized Markdown.
func (p *MarkdownTokenizer) TokenizeString(src string) []Token {
	b := []byte(src)
	doc := p.md.Parser().Parse(text.NewReader(b))

	w := &mdWalker{src: b, lines: lineStarts(b), spans: make(map[ast.Node][]int)}
	w.measure(doc)
	for c := doc.FirstChild(); c != nil; c = c.NextSibling() {
		w.block(c)
	}
	return w.toks
}

// lineStarts returns the byte offset of every line start.
func lineStarts(src []byte) []int {
	starts := []int{0}
	for i, c := range src {
		if c == '\n' && i+1 < len(src) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

type mdWalker struct {
	stream
	src   []byte
	lines []int

	// spans holds the [start, end) line range of every block node, filled
	// by measure before any token is emitted.
	spans  map[ast.Node][]int
	cursor int
}

func (w *mdWalker) lineOf(off int) int {
	return sort.Search(len(w.lines), func(i int) bool { return w.lines[i] > off }) - 1
}

func (w *mdWalker) lineText(l int) string {
	if l < 0 || l >= len(w.lines) {
		return ""
	}
	end := len(w.src)
	if l+1 < len(w.lines) {
		end = w.lines[l+1] - 1
	}
	return string(w.src[w.lines[l]:end])
}

func (w *mdWalker) segSpan(seg text.Segment) []int {
	start := w.lineOf(seg.Start)
	stop := seg.Stop
	if stop > seg.Start {
		stop--
	}
	return span(start, w.lineOf(stop)+1)
}

func union(a, b []int) []int {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return []int{min(a[0], b[0]), max(a[1], b[1])}
}

// nextLine claims the next non-blank line at or after the cursor. Nodes
// without source segments (thematic breaks, empty headings or items) are
// placed this way.
func (w *mdWalker) nextLine() []int {
	l := w.cursor
	for l < len(w.lines) && strings.TrimSpace(w.lineText(l)) == "" {
		l++
	}
	if l >= len(w.lines) {
		return nil
	}
	return span(l, l+1)
}

// measure assigns line spans to blocks in document order.
func (w *mdWalker) measure(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		var s []int
		switch c := c.(type) {
		case *ast.Heading:
			s = w.headingSpan(c)
		case *ast.FencedCodeBlock:
			s = w.fenceSpan(c)
		case *ast.HTMLBlock:
			s = w.linesSpan(c)
			if c.HasClosure() {
				s = union(s, w.segSpan(c.ClosureLine))
			}
		case *ast.Paragraph, *ast.TextBlock, *ast.CodeBlock:
			s = w.linesSpan(c)
		case *ast.ThematicBreak:
			s = w.nextLine()
		case *east.TableHeader, *east.TableRow:
			s = w.inlineSpan(c)
			if s == nil {
				s = w.nextLine()
			}
		default:
			w.measure(c)
			for gc := c.FirstChild(); gc != nil; gc = gc.NextSibling() {
				s = union(s, w.spans[gc])
			}
			if s == nil && c.Type() == ast.TypeBlock {
				s = w.nextLine()
			}
		}
		if s != nil {
			w.spans[c] = s
			w.cursor = max(w.cursor, s[1])
		}
	}
}

func (w *mdWalker) linesSpan(n ast.Node) []int {
	lines := n.Lines()
	if lines.Len() == 0 {
		return w.nextLine()
	}
	return union(w.segSpan(lines.At(0)), w.segSpan(lines.At(lines.Len()-1)))
}

// inlineSpan covers the text segments of n's inline descendants.
func (w *mdWalker) inlineSpan(n ast.Node) []int {
	var s []int
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if t, ok := c.(*ast.Text); ok {
			s = union(s, w.segSpan(t.Segment))
		}
		return ast.WalkContinue, nil
	})
	return s
}

func (w *mdWalker) headingSpan(h *ast.Heading) []int {
	lines := h.Lines()
	if lines.Len() == 0 {
		return w.nextLine()
	}
	first := lines.At(0)
	s := union(w.segSpan(first), w.segSpan(lines.At(lines.Len()-1)))
	prefix := w.src[w.lines[s[0]]:first.Start]
	if !strings.Contains(string(prefix), "#") {
		// Setext: the underline follows the content.
		s[1] = min(s[1]+1, len(w.lines))
	}
	return s
}

// fenceSpan includes the opening and closing delimiter lines, which the
// goldmark AST does not record.
func (w *mdWalker) fenceSpan(f *ast.FencedCodeBlock) []int {
	lines := f.Lines()
	limit := len(w.lines)
	if lines.Len() > 0 {
		limit = w.segSpan(lines.At(0))[0]
	}

	open := -1
	marker := "```"
	for l := w.cursor; l < limit; l++ {
		t := w.lineText(l)
		if strings.Contains(t, "```") {
			open = l
			break
		}
		if strings.Contains(t, "~~~") {
			open, marker = l, "~~~"
			break
		}
	}
	if open < 0 {
		if lines.Len() == 0 {
			return w.nextLine()
		}
		open = max(limit-1, 0)
	}

	end := open + 1
	if lines.Len() > 0 {
		end = w.segSpan(lines.At(lines.Len() - 1))[1]
	}
	if end < len(w.lines) && strings.Contains(w.lineText(end), marker) {
		end++
	}
	return span(open, end)
}

func (w *mdWalker) segmentsText(segs *text.Segments) string {
	var sb strings.Builder
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		sb.Write(seg.Value(w.src))
	}
	return sb.String()
}

// blockContent joins a leaf block's lines without trailing newlines.
func (w *mdWalker) blockContent(n ast.Node) string {
	return strings.TrimSpace(w.segmentsText(n.Lines()))
}

func (w *mdWalker) block(n ast.Node) {
	lines := w.spans[n]
	switch n := n.(type) {
	case *ast.Heading:
		tag := "h" + strconv.Itoa(n.Level)
		var id string
		if v, ok := n.AttributeString("id"); ok {
			if b, ok := v.([]byte); ok {
				id = string(b)
			}
		}
		idx := w.open("heading", tag, lines, "markup", strings.Repeat("#", n.Level), "id", id)
		w.leaf("inline", "", w.blockContent(n), lines)
		w.inlines(n)
		w.close(idx, -1)

	case *ast.Paragraph, *ast.TextBlock:
		idx := w.open("paragraph", "p", lines)
		w.leaf("inline", "", w.blockContent(n), lines)
		w.inlines(n)
		w.close(idx, -1)

	case *ast.Blockquote:
		idx := w.open("blockquote", "blockquote", lines, "markup", ">")
		w.children(n)
		w.close(idx, -1)

	case *ast.List:
		marker := string(n.Marker)
		var idx int
		if n.IsOrdered() {
			start := ""
			if n.Start != 1 {
				start = strconv.Itoa(n.Start)
			}
			idx = w.open("ordered_list", "ol", lines, "markup", marker, "start", start)
		} else {
			idx = w.open("bullet_list", "ul", lines, "markup", marker)
		}
		w.children(n)
		w.close(idx, -1)

	case *ast.ListItem:
		idx := w.open("list_item", "li", lines)
		w.children(n)
		w.close(idx, -1)

	case *ast.FencedCodeBlock:
		info := ""
		if n.Info != nil {
			info = strings.TrimSpace(string(n.Info.Segment.Value(w.src)))
		}
		w.leaf("fence", "code", w.segmentsText(n.Lines()), lines, "info", info, "markup", "```")

	case *ast.CodeBlock:
		w.leaf("code_block", "code", w.segmentsText(n.Lines()), lines)

	case *ast.HTMLBlock:
		content := w.segmentsText(n.Lines())
		if n.HasClosure() {
			content += string(n.ClosureLine.Value(w.src))
		}
		w.leaf("html_block", "", content, lines)

	case *ast.ThematicBreak:
		w.leaf("hr", "hr", "", lines, "markup", "---")

	case *east.Table:
		w.table(n, lines)

	default:
		w.children(n)
	}
}

func (w *mdWalker) children(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		w.block(c)
	}
}

func (w *mdWalker) table(t *east.Table, lines []int) {
	tIdx := w.open("table", "table", lines)
	inBody := -1
	for row := t.FirstChild(); row != nil; row = row.NextSibling() {
		rowLines := w.spans[row]
		cellTag := "td"
		if _, ok := row.(*east.TableHeader); ok {
			cellTag = "th"
			hIdx := w.open("thead", "thead", rowLines)
			w.tableRow(row, rowLines, cellTag)
			w.close(hIdx, -1)
			continue
		}
		if inBody < 0 {
			inBody = w.open("tbody", "tbody", rowLines)
		}
		w.tableRow(row, rowLines, cellTag)
	}
	if inBody >= 0 {
		end := -1
		if lines != nil {
			end = lines[1]
		}
		w.close(inBody, end)
	}
	w.close(tIdx, -1)
}

func (w *mdWalker) tableRow(row ast.Node, lines []int, cellTag string) {
	rIdx := w.open("tr", "tr", lines)
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		align := ""
		if cell, ok := c.(*east.TableCell); ok && cell.Alignment != east.AlignNone {
			align = cell.Alignment.String()
		}
		cIdx := w.open(cellTag, cellTag, lines, "align", align)
		w.leaf("inline", "", strings.TrimSpace(plainText(c, w.src)), lines)
		w.inlines(c)
		w.close(cIdx, -1)
	}
	w.close(rIdx, -1)
}

// inlines flattens the inline children of n.
func (w *mdWalker) inlines(n ast.Node) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		w.inline(c)
	}
}

func (w *mdWalker) inline(n ast.Node) {
	switch n := n.(type) {
	case *ast.Text:
		lines := w.segSpan(n.Segment)
		w.leaf("text", "", string(n.Segment.Value(w.src)), lines)
		switch {
		case n.HardLineBreak():
			w.leaf("hardbreak", "br", "", lines)
		case n.SoftLineBreak():
			w.leaf("softbreak", "br", "", lines)
		}

	case *ast.String:
		w.leaf("text", "", string(n.Value), nil)

	case *ast.CodeSpan:
		w.leaf("code_inline", "code", plainText(n, w.src), w.inlineSpan(n), "markup", "`")

	case *ast.Emphasis:
		base, tag := "em", "em"
		if n.Level >= 2 {
			base, tag = "strong", "strong"
		}
		idx := w.open(base, tag, w.inlineSpan(n), "markup", strings.Repeat("*", n.Level))
		w.inlines(n)
		w.close(idx, -1)

	case *ast.Link:
		idx := w.open("link", "a", w.inlineSpan(n), "href", string(n.Destination), "title", string(n.Title))
		w.inlines(n)
		w.close(idx, -1)

	case *ast.AutoLink:
		label := string(n.Label(w.src))
		idx := w.open("link", "a", nil, "href", string(n.URL(w.src)), "markup", "autolink")
		w.leaf("text", "", label, nil)
		w.close(idx, -1)

	case *ast.Image:
		alt := plainText(n, w.src)
		w.leaf("image", "img", alt, w.inlineSpan(n),
			"src", string(n.Destination), "alt", alt, "title", string(n.Title))

	case *ast.RawHTML:
		w.leaf("html_inline", "", w.segmentsText(n.Segments), nil)

	case *east.Strikethrough:
		idx := w.open("s", "s", w.inlineSpan(n), "markup", "~~")
		w.inlines(n)
		w.close(idx, -1)

	case *east.TaskCheckBox:
		w.leaf("task_checkbox", "input", "", nil, "checked", strconv.FormatBool(n.IsChecked))

	default:
		w.inlines(n)
	}
}

// plainText concatenates the text of n's inline descendants.
func plainText(n ast.Node, src []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch c := c.(type) {
		case *ast.Text:
			sb.Write(c.Segment.Value(src))
			if c.SoftLineBreak() || c.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(c.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}
