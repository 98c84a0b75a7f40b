package collectors

import (
	"context"
	"strings"

	"github.com/poutila/doxstrux-sub002/internal/warehouse"
)

// ChunkConfig controls chunking behavior.
type ChunkConfig struct {
	Size     int // Target chunk size in tokens.
	Overlap  int // Overlap between consecutive chunks in tokens.
	MinChunk int // Minimum chunk size to emit.
}

// DefaultChunkConfig returns sensible defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{Size: 1500, Overlap: 200, MinChunk: 100}
}

func (c ChunkConfig) withDefaults() ChunkConfig {
	d := DefaultChunkConfig()
	if c.Size <= 0 {
		c.Size = d.Size
	}
	if c.Overlap <= 0 {
		c.Overlap = d.Overlap
	}
	if c.MinChunk <= 0 {
		c.MinChunk = d.MinChunk
	}
	return c
}

// Chunk is a sized text segment with its section breadcrumb.
type Chunk struct {
	Text       string   `json:"text"`
	Index      int      `json:"index"`
	Breadcrumb []string `json:"breadcrumb"`
	Section    int      `json:"section"`
	StartLine  int      `json:"start_line"`
	EndLine    int      `json:"end_line"`
	Tokens     int      `json:"tokens"`
}

// bucket gathers the prose of one section.
type bucket struct {
	section    int
	parts      []string
	start, end int
}

// Chunks splits section prose into retrieval-sized chunks. Paragraphs and
// code blocks are gathered per section; tables are left to the tables
// collector.
type Chunks struct {
	cfg     ChunkConfig
	buckets []*bucket
}

func NewChunks(cfg ChunkConfig) *Chunks {
	return &Chunks{cfg: cfg.withDefaults()}
}

func (c *Chunks) Name() string { return "chunks" }

func (c *Chunks) Interest() warehouse.Interest {
	return warehouse.Interest{
		Types:        []string{"inline", "fence", "code_block"},
		IgnoreInside: []string{"table"},
	}
}

func (c *Chunks) Reset() { c.buckets = nil }

func (c *Chunks) OnToken(_ context.Context, tc warehouse.TokenContext, wh *warehouse.Warehouse) error {
	tok := tc.Token
	if tok.Type == "inline" {
		// Heading text lives in the breadcrumb.
		p := wh.TokenAt(tc.Parent)
		if p == nil || p.Type != "paragraph_open" {
			return nil
		}
	}
	text := strings.TrimSpace(tok.Content)
	if text == "" {
		return nil
	}

	line := lineOf(wh, tc.Index)
	end := line + 1
	if tok.Lines != nil {
		end = tok.Lines.End
	}
	sec, _ := sectionOf(wh, line)

	var b *bucket
	if n := len(c.buckets); n > 0 && c.buckets[n-1].section == sec {
		b = c.buckets[n-1]
	} else {
		b = &bucket{section: sec, start: line}
		c.buckets = append(c.buckets, b)
	}
	b.parts = append(b.parts, text)
	b.end = max(b.end, end)
	return nil
}

func (c *Chunks) Finalize(wh *warehouse.Warehouse) (any, error) {
	sp := splitter{target: c.cfg.Size, overlap: c.cfg.Overlap}
	chunks := []Chunk{}
	for _, b := range c.buckets {
		text := strings.Join(b.parts, "\n\n")
		pieces := []string{text}
		if EstimateTokens(text) > c.cfg.Size {
			pieces = sp.split(text)
		}
		crumb := wh.SectionPath(b.section)
		for _, piece := range pieces {
			n := EstimateTokens(piece)
			if n < c.cfg.MinChunk {
				continue
			}
			chunks = append(chunks, Chunk{
				Text:       piece,
				Index:      len(chunks),
				Breadcrumb: crumb,
				Section:    b.section,
				StartLine:  b.start,
				EndLine:    b.end,
				Tokens:     n,
			})
		}
	}
	return chunks, nil
}
