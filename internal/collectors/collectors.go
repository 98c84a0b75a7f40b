// Package collectors implements the standard warehouse collectors. Each
// collector is single-use: build a fresh set per document.
package collectors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/poutila/doxstrux-sub002/internal/warehouse"
)

// ErrUnknownCollector is returned by ByName for names outside Names().
var ErrUnknownCollector = errors.New("unknown collector")

// Config controls the tunable collectors.
type Config struct {
	Chunk ChunkConfig
	// CodeMinLines drops code blocks with fewer body lines. Zero keeps all.
	CodeMinLines int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{Chunk: DefaultChunkConfig()}
}

var constructors = []struct {
	name string
	make func(Config) warehouse.Collector
}{
	{"headings", func(Config) warehouse.Collector { return NewHeadings() }},
	{"links", func(Config) warehouse.Collector { return NewLinks() }},
	{"images", func(Config) warehouse.Collector { return NewImages() }},
	{"codeblocks", func(c Config) warehouse.Collector { return NewCodeBlocks(c.CodeMinLines) }},
	{"tables", func(Config) warehouse.Collector { return NewTables() }},
	{"html", func(Config) warehouse.Collector { return NewHTML() }},
	{"stats", func(Config) warehouse.Collector { return NewStats() }},
	{"chunks", func(c Config) warehouse.Collector { return NewChunks(c.Chunk) }},
}

// Names lists the standard collectors in registration order.
func Names() []string {
	out := make([]string, len(constructors))
	for i, c := range constructors {
		out[i] = c.name
	}
	return out
}

// Default returns a fresh instance of every standard collector.
func Default(cfg Config) []warehouse.Collector {
	out := make([]warehouse.Collector, len(constructors))
	for i, c := range constructors {
		out[i] = c.make(cfg)
	}
	return out
}

// ByName returns fresh collectors for the given names, in the order given.
// An empty list selects the default set.
func ByName(names []string, cfg Config) ([]warehouse.Collector, error) {
	if len(names) == 0 {
		return Default(cfg), nil
	}
	out := make([]warehouse.Collector, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(strings.ToLower(name))
		found := false
		for _, c := range constructors {
			if c.name == name {
				out = append(out, c.make(cfg))
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCollector, name)
		}
	}
	return out, nil
}

// Register adds every collector to wh.
func Register(wh *warehouse.Warehouse, cs []warehouse.Collector) error {
	for _, c := range cs {
		if err := wh.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// lineOf returns the first source line of token i, falling back to the
// nearest ancestor with line data.
func lineOf(wh *warehouse.Warehouse, i int) int {
	for i >= 0 {
		tok := wh.TokenAt(i)
		if tok == nil {
			return -1
		}
		if l := tok.Line(); l >= 0 {
			return l
		}
		p, ok := wh.ParentOf(i)
		if !ok {
			return -1
		}
		i = p
	}
	return -1
}

// sectionOf returns the index and title of the section holding line, or
// -1 and "".
func sectionOf(wh *warehouse.Warehouse, line int) (int, string) {
	s, ok := wh.SectionOf(line)
	if !ok {
		return -1, ""
	}
	return s.Index, s.Title
}

// innerText joins the text of the tokens between open token i and its
// matching close.
func innerText(wh *warehouse.Warehouse, i int) string {
	end, ok := wh.MatchingClose(i)
	if !ok {
		return ""
	}
	var sb strings.Builder
	for j := i + 1; j < end; j++ {
		tok := wh.TokenAt(j)
		switch tok.Type {
		case "text", "code_inline":
			sb.WriteString(tok.Content)
		case "softbreak", "hardbreak":
			sb.WriteByte(' ')
		case "image":
			sb.WriteString(tok.Content)
		}
	}
	return strings.TrimSpace(sb.String())
}
