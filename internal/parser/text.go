package parser

import (
	"fmt"
	"io"
	"strings"
)

// TextTokenizer handles plain text files. Blank lines separate paragraphs;
// the source text is kept as is, so line ranges point at the original lines.
type TextTokenizer struct{}

func (p *TextTokenizer) Tokenize(r io.Reader, filename string) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	src := Normalize(raw)

	var s stream
	var para []string
	start := 0
	flush := func(end int) {
		if len(para) == 0 {
			return
		}
		content := strings.Join(para, "\n")
		lines := span(start, end)
		idx := s.open("paragraph", "p", lines)
		s.leaf("inline", "", content, lines)
		s.leaf("text", "", content, lines)
		s.close(idx, -1)
		para = para[:0]
	}

	lines := strings.Split(strings.TrimSuffix(src, "\n"), "\n")
	if src == "" {
		lines = nil
	}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			flush(i)
			continue
		}
		if len(para) == 0 {
			start = i
		}
		para = append(para, line)
	}
	flush(len(lines))

	return &Document{
		Title:  titleFromFilename(filename),
		Format: "text",
		Text:   src,
		Tokens: s.toks,
	}, nil
}
