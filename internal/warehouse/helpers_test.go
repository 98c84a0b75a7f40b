package warehouse

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// rawTok is a well-behaved RawToken used to assemble test streams.
type rawTok struct {
	typ     string
	nesting int
	tag     string
	lines   []int
	content string
	attrs   map[string]string
}

func (t rawTok) Type() string    { return t.typ }
func (t rawTok) Nesting() int    { return t.nesting }
func (t rawTok) Tag() string     { return t.tag }
func (t rawTok) Map() []int      { return t.lines }
func (t rawTok) Content() string { return t.content }
func (t rawTok) Attr(name string) (string, bool) {
	v, ok := t.attrs[name]
	return v, ok
}

func openTok(base, tag string, start, end int) rawTok {
	return rawTok{typ: base + "_open", nesting: 1, tag: tag, lines: []int{start, end}}
}

func closeTok(base, tag string) rawTok {
	return rawTok{typ: base + "_close", nesting: -1, tag: tag}
}

func inlineTok(content string, start, end int) rawTok {
	return rawTok{typ: "inline", content: content, lines: []int{start, end}}
}

// heading emits heading_open, inline, heading_close on one line.
func heading(level, line int, title string) []rawTok {
	tag := fmt.Sprintf("h%d", level)
	return []rawTok{
		openTok("heading", tag, line, line+1),
		inlineTok(title, line, line+1),
		closeTok("heading", tag),
	}
}

func paragraph(line int, text string) []rawTok {
	return []rawTok{
		openTok("paragraph", "p", line, line+1),
		inlineTok(text, line, line+1),
		closeTok("paragraph", "p"),
	}
}

func concat(parts ...[]rawTok) []rawTok {
	var out []rawTok
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func build(t *testing.T, toks []rawTok, text string, cfg Config) *Warehouse {
	t.Helper()
	wh, err := New(toks, text, cfg)
	require.NoError(t, err)
	return wh
}

// recorder is a collector that logs every token it sees.
type recorder struct {
	name   string
	types  []string
	ignore []string

	mu   sync.Mutex
	seen []int

	onToken func(ctx context.Context, tc TokenContext, wh *Warehouse) error
	final   func(wh *Warehouse) (any, error)
}

func (r *recorder) Name() string { return r.name }

func (r *recorder) Interest() Interest {
	return Interest{Types: r.types, IgnoreInside: r.ignore}
}

func (r *recorder) OnToken(ctx context.Context, tc TokenContext, wh *Warehouse) error {
	r.mu.Lock()
	r.seen = append(r.seen, tc.Index)
	r.mu.Unlock()
	if r.onToken != nil {
		return r.onToken(ctx, tc, wh)
	}
	return nil
}

func (r *recorder) Finalize(wh *Warehouse) (any, error) {
	if r.final != nil {
		return r.final(wh)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen), nil
}

func (r *recorder) Reset() {
	r.mu.Lock()
	r.seen = nil
	r.mu.Unlock()
}

func (r *recorder) indices() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.seen...)
}
