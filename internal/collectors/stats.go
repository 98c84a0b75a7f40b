package collectors

import (
	"context"
	"strings"

	"github.com/poutila/doxstrux-sub002/internal/warehouse"
)

// DocStats holds document-level counts.
type DocStats struct {
	Tokens          int `json:"tokens"`
	Lines           int `json:"lines"`
	Words           int `json:"words"`
	EstimatedTokens int `json:"estimated_tokens"`
	Sections        int `json:"sections"`
	Headings        int `json:"headings"`
	Paragraphs      int `json:"paragraphs"`
	ListItems       int `json:"list_items"`
	Blockquotes     int `json:"blockquotes"`
	CodeBlocks      int `json:"code_blocks"`
	Tables          int `json:"tables"`
	Links           int `json:"links"`
	Images          int `json:"images"`
}

// Stats counts structural elements and words.
type Stats struct {
	s DocStats
}

func NewStats() *Stats { return &Stats{} }

func (s *Stats) Name() string { return "stats" }

func (s *Stats) Interest() warehouse.Interest {
	return warehouse.Interest{Types: []string{
		"inline", "heading_open", "paragraph_open", "list_item_open", "blockquote_open",
		"fence", "code_block", "table_open", "link_open", "image",
	}}
}

func (s *Stats) OnToken(_ context.Context, tc warehouse.TokenContext, _ *warehouse.Warehouse) error {
	switch tc.Token.Type {
	case "inline":
		s.s.Words += len(strings.Fields(tc.Token.Content))
	case "heading_open":
		s.s.Headings++
	case "paragraph_open":
		s.s.Paragraphs++
	case "list_item_open":
		s.s.ListItems++
	case "blockquote_open":
		s.s.Blockquotes++
	case "fence", "code_block":
		s.s.CodeBlocks++
		s.s.Words += len(strings.Fields(tc.Token.Content))
	case "table_open":
		s.s.Tables++
	case "link_open":
		s.s.Links++
	case "image":
		s.s.Images++
	}
	return nil
}

func (s *Stats) Reset() { s.s = DocStats{} }

func (s *Stats) Finalize(wh *warehouse.Warehouse) (any, error) {
	s.s.Tokens = wh.Len()
	s.s.Lines = wh.LineCount()
	s.s.Sections = len(wh.Sections())
	s.s.EstimatedTokens = EstimateTokens(wh.Text())
	return s.s, nil
}
