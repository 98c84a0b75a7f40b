package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/fumiama/go-docx"
)

// DOCXTokenizer handles .docx files. Heading styles become headings,
// list styles become bullet list items and everything else becomes
// paragraphs.
type DOCXTokenizer struct{}

func (p *DOCXTokenizer) Tokenize(r io.Reader, filename string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	b := &builder{}
	list := -1
	endList := func() {
		if list >= 0 {
			b.close(list, b.line)
			list = -1
		}
	}

	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := Normalize([]byte(docxParagraphText(para)))
		if text == "" {
			continue
		}

		style := docxStyle(para)
		if level := docxHeadingLevel(style); level > 0 {
			endList()
			b.heading(level, text)
			continue
		}
		if isListStyle(style) {
			if list < 0 {
				b.blank()
				list = b.open("bullet_list", "ul", span(b.line, b.line))
			}
			item := b.open("list_item", "li", span(b.line, b.line))
			b.paragraph(text)
			b.close(item, b.line)
			continue
		}
		endList()
		b.paragraph(text)
	}
	endList()

	return b.document(titleFromFilename(filename), "docx"), nil
}

func docxStyle(para *docx.Paragraph) string {
	if para.Properties == nil || para.Properties.Style == nil {
		return ""
	}
	return para.Properties.Style.Val
}

func docxHeadingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	if s == "title" {
		return 1
	}
	if rest, ok := strings.CutPrefix(s, "heading"); ok && len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
		return int(rest[0] - '0')
	}
	return 0
}

func isListStyle(style string) bool {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	return strings.HasPrefix(s, "listparagraph") || strings.HasPrefix(s, "listbullet") || strings.HasPrefix(s, "listnumber")
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
