package collectors

import (
	"context"
	"strconv"
	"strings"
	"unicode"

	"github.com/poutila/doxstrux-sub002/internal/warehouse"
)

// Heading is one entry of the table of contents.
type Heading struct {
	Level   int      `json:"level"`
	Title   string   `json:"title"`
	Slug    string   `json:"slug"`
	Line    int      `json:"line"`
	Section int      `json:"section"`
	Path    []string `json:"path"`
}

// Headings builds the table of contents.
type Headings struct {
	items []Heading
	slugs map[string]int
}

func NewHeadings() *Headings {
	return &Headings{slugs: make(map[string]int)}
}

func (h *Headings) Name() string { return "headings" }

func (h *Headings) Interest() warehouse.Interest {
	return warehouse.Interest{Types: []string{"heading_open"}}
}

func (h *Headings) OnToken(_ context.Context, tc warehouse.TokenContext, wh *warehouse.Warehouse) error {
	tok := tc.Token
	level := tok.HeadingLevel()
	if level == 0 {
		level = 1
	}
	title := ""
	if next := wh.TokenAt(tc.Index + 1); next != nil && next.Type == "inline" {
		title = strings.TrimSpace(next.Content)
	}
	line := lineOf(wh, tc.Index)
	sec, _ := sectionOf(wh, line)

	base, ok := tok.Attr("id")
	if !ok || base == "" {
		base = slugify(title)
	}
	h.items = append(h.items, Heading{
		Level:   level,
		Title:   title,
		Slug:    h.unique(base),
		Line:    line,
		Section: sec,
		Path:    wh.SectionPath(sec),
	})
	return nil
}

// unique appends -1, -2, ... to repeated slugs.
func (h *Headings) unique(slug string) string {
	n, seen := h.slugs[slug]
	h.slugs[slug] = n + 1
	if !seen {
		return slug
	}
	return slug + "-" + strconv.Itoa(n)
}

func (h *Headings) Reset() {
	h.items = nil
	h.slugs = make(map[string]int)
}

func (h *Headings) Finalize(*warehouse.Warehouse) (any, error) {
	if h.items == nil {
		return []Heading{}, nil
	}
	return h.items, nil
}

// slugify lowercases s, keeps letters, digits, '-' and '_', and turns
// spaces into '-'.
func slugify(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			sb.WriteByte('-')
		}
	}
	if sb.Len() == 0 {
		return "heading"
	}
	return sb.String()
}
