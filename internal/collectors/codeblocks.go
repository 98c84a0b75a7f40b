package collectors

import (
	"context"
	"strings"

	"github.com/poutila/doxstrux-sub002/internal/warehouse"
)

// CodeBlock is one fenced or indented code block.
type CodeBlock struct {
	Fenced    bool   `json:"fenced"`
	Lang      string `json:"lang,omitempty"`
	Info      string `json:"info,omitempty"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Lines     int    `json:"lines"`
	Body      string `json:"body"`
	Section   string `json:"section,omitempty"`
}

// CodeBlocks collects code blocks. Blocks shorter than MinLines are
// filtered out before OnToken runs.
type CodeBlocks struct {
	MinLines int
	items    []CodeBlock
}

func NewCodeBlocks(minLines int) *CodeBlocks {
	return &CodeBlocks{MinLines: minLines}
}

func (c *CodeBlocks) Name() string { return "codeblocks" }

func (c *CodeBlocks) Interest() warehouse.Interest {
	return warehouse.Interest{Types: []string{"fence", "code_block"}}
}

func (c *CodeBlocks) ShouldProcess(tc warehouse.TokenContext) bool {
	return c.MinLines <= 0 || countLines(tc.Token.Content) >= c.MinLines
}

func countLines(s string) int {
	s = strings.TrimSuffix(s, "\n")
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}

func (c *CodeBlocks) OnToken(_ context.Context, tc warehouse.TokenContext, wh *warehouse.Warehouse) error {
	tok := tc.Token
	block := CodeBlock{
		Fenced:    tok.Type == "fence",
		StartLine: lineOf(wh, tc.Index),
		EndLine:   -1,
		Body:      strings.TrimSuffix(tok.Content, "\n"),
	}
	if tok.Lines != nil {
		block.EndLine = tok.Lines.End
	}

	if block.Fenced {
		if f, ok := wh.FenceAt(tc.Index); ok {
			block.Lang, block.Info = f.Lang, f.Info
			if body := wh.FenceBody(f); body != "" {
				block.Body = body
			}
		} else {
			info, _ := tok.Attr("info")
			block.Info = strings.TrimSpace(info)
			block.Lang, _, _ = strings.Cut(block.Info, " ")
		}
	}
	block.Lines = countLines(block.Body)
	_, block.Section = sectionOf(wh, block.StartLine)
	c.items = append(c.items, block)
	return nil
}

func (c *CodeBlocks) Reset() { c.items = nil }

func (c *CodeBlocks) Finalize(*warehouse.Warehouse) (any, error) {
	if c.items == nil {
		return []CodeBlock{}, nil
	}
	return c.items, nil
}
