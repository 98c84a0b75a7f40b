package warehouse

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Warehouse owns the canonical tokens of one document, the indices built
// over them, and the collectors that consume them. It is single-use per
// document and not safe for concurrent dispatch.
type Warehouse struct {
	cfg Config
	log *slog.Logger

	text   string
	lines  []string
	tokens []Token
	ix     index

	childrenOnce sync.Once
	children     map[int][]int

	// Dispatch state. See dispatch.go.
	collectors  []*registered
	routes      map[string][]int
	bits        map[string]uint
	dispatching atomic.Bool
	reentered   atomic.Bool
	failures    []*CollectorError
	results     map[string]any
	trace       []TraceEntry
}

// New admits, canonicalizes and indexes one document. text must be the
// normalized source the tokens' line ranges were computed against.
func New[T RawToken](raw []T, text string, cfg Config) (*Warehouse, error) {
	cfg = cfg.withDefaults()

	if cfg.MaxTokens > 0 && len(raw) > cfg.MaxTokens {
		err := &AdmissionError{Limit: "tokens", Actual: int64(len(raw)), Max: int64(cfg.MaxTokens)}
		cfg.Logger.Info("document rejected", "error", err)
		return nil, err
	}
	if cfg.MaxBytes > 0 && int64(len(text)) > cfg.MaxBytes {
		err := &AdmissionError{Limit: "bytes", Actual: int64(len(text)), Max: cfg.MaxBytes}
		cfg.Logger.Info("document rejected", "error", err)
		return nil, err
	}

	start := time.Now()
	w := &Warehouse{
		cfg:    cfg,
		log:    cfg.Logger,
		text:   text,
		lines:  splitLines(text),
		tokens: Canonicalize(raw),
		routes: make(map[string][]int),
		bits:   make(map[string]uint),
	}
	w.ix = buildIndex(w.tokens, w.lines)

	w.log.Debug("warehouse built",
		"tokens", len(w.tokens),
		"lines", len(w.lines),
		"sections", len(w.ix.sections),
		"fences", len(w.ix.fences),
		"duration_us", time.Since(start).Microseconds(),
	)
	return w, nil
}

// splitLines splits on "\n" without producing a trailing empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Len returns the number of tokens.
func (w *Warehouse) Len() int { return len(w.tokens) }

// TokenAt returns the canonical token at i, or nil if i is out of range.
func (w *Warehouse) TokenAt(i int) *Token {
	if i < 0 || i >= len(w.tokens) {
		return nil
	}
	return &w.tokens[i]
}

// Text returns the normalized source text.
func (w *Warehouse) Text() string { return w.text }

// Lines returns the source lines. The slice must not be modified.
func (w *Warehouse) Lines() []string { return slices.Clip(w.lines) }

// LineCount returns the number of source lines.
func (w *Warehouse) LineCount() int { return len(w.lines) }

// LastLine returns the last line known from the text or any token range.
func (w *Warehouse) LastLine() int { return w.ix.lastLine }

// TokensOfType returns the indices of all tokens of type typ in document
// order. The slice must not be modified.
func (w *Warehouse) TokensOfType(typ string) []int {
	return slices.Clip(w.ix.byType[typ])
}

// MatchingClose returns the close token paired with the open token at i.
func (w *Warehouse) MatchingClose(i int) (int, bool) {
	return lookup(w.ix.pairs, i)
}

// MatchingOpen returns the open token paired with the close token at i.
func (w *Warehouse) MatchingOpen(i int) (int, bool) {
	return lookup(w.ix.pairsRev, i)
}

// ParentOf returns the enclosing container of token i. The parent of a
// close token is always its own matching open token.
func (w *Warehouse) ParentOf(i int) (int, bool) {
	return lookup(w.ix.parent, i)
}

func lookup(s []int, i int) (int, bool) {
	if i < 0 || i >= len(s) || s[i] < 0 {
		return -1, false
	}
	return s[i], true
}

// ChildrenOf returns the tokens whose parent is i, in document order.
// The children map is derived from the parent map on first use.
func (w *Warehouse) ChildrenOf(i int) []int {
	w.childrenOnce.Do(func() {
		children := make(map[int][]int)
		for c, p := range w.ix.parent {
			if p >= 0 {
				children[p] = append(children[p], c)
			}
		}
		w.children = children
	})
	return slices.Clip(w.children[i])
}

// Sections returns a copy of the section table, ordered by start line.
func (w *Warehouse) Sections() []Section {
	return slices.Clone(w.ix.sections)
}

// SectionOf returns the section containing line. It never fails: documents
// without headings and lines outside every section report false.
func (w *Warehouse) SectionOf(line int) (Section, bool) {
	i := sectionAt(w.ix.sections, w.ix.sectionStarts, line)
	if i < 0 {
		return Section{}, false
	}
	return w.ix.sections[i], true
}

// SectionPath returns the titles from the outermost ancestor down to the
// section at idx.
func (w *Warehouse) SectionPath(idx int) []string {
	var path []string
	for idx >= 0 && idx < len(w.ix.sections) {
		s := w.ix.sections[idx]
		path = append(path, s.Title)
		idx = s.Parent
	}
	slices.Reverse(path)
	return path
}

// Fences returns the fenced block inventory in document order.
func (w *Warehouse) Fences() []Fence {
	return slices.Clone(w.ix.fences)
}

// FenceAt returns the fence recorded for the token at index i.
func (w *Warehouse) FenceAt(i int) (Fence, bool) {
	pos, ok := w.ix.fenceByToken[i]
	if !ok {
		return Fence{}, false
	}
	return w.ix.fences[pos], true
}

// FenceBody returns the lines between the fence delimiters. An unclosed
// fence keeps its last line.
func (w *Warehouse) FenceBody(f Fence) string {
	end := f.EndLine
	if f.Closed {
		end--
	}
	return w.TextBetween(f.StartLine+1, end)
}

// TextBetween joins source lines [start, end). Out-of-range bounds are
// clamped.
func (w *Warehouse) TextBetween(start, end int) string {
	start = max(start, 0)
	end = min(end, len(w.lines))
	if start >= end {
		return ""
	}
	return strings.Join(w.lines[start:end], "\n")
}
