package warehouse

import "sort"

// Section is the line span anchored to a heading. Sections never overlap:
// each runs from its heading to the line before the next heading of any
// level, or to the last line of the document. EndLine is inclusive.
type Section struct {
	Index       int    `json:"index"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	AnchorIndex int    `json:"anchor_token"`
	Level       int    `json:"level"`
	Title       string `json:"title"`
	// Parent is the index of the nearest preceding section with a lower
	// level, or -1.
	Parent int `json:"parent"`
}

// Contains reports whether line falls inside the section.
func (s Section) Contains(line int) bool {
	return line >= s.StartLine && line <= s.EndLine
}

// sectionBuilder resolves sections in one pass over the heading tokens.
// Only the most recently opened section is ever unterminated.
type sectionBuilder struct {
	sections []Section
	open     bool
	// levels holds indices of sections whose level is still "in scope"
	// for parent resolution, strictly increasing in level.
	levels   []int
	byAnchor map[int]int
}

func newSectionBuilder() *sectionBuilder {
	return &sectionBuilder{byAnchor: make(map[int]int)}
}

// heading opens a new section at start and closes the previous one.
func (b *sectionBuilder) heading(anchor, level, start int) {
	if n := len(b.sections); n > 0 {
		prev := &b.sections[n-1]
		if start <= prev.StartLine {
			// Out-of-order or shared line data would break the ordering.
			return
		}
		if b.open {
			prev.EndLine = max(start-1, prev.StartLine)
			b.open = false
		}
	}

	for len(b.levels) > 0 && b.sections[b.levels[len(b.levels)-1]].Level >= level {
		b.levels = b.levels[:len(b.levels)-1]
	}
	parent := -1
	if len(b.levels) > 0 {
		parent = b.levels[len(b.levels)-1]
	}

	idx := len(b.sections)
	b.sections = append(b.sections, Section{
		Index:       idx,
		StartLine:   start,
		EndLine:     -1,
		AnchorIndex: anchor,
		Level:       level,
		Parent:      parent,
	})
	b.levels = append(b.levels, idx)
	b.byAnchor[anchor] = idx
	b.open = true
}

// title sets the title of the section anchored at heading token anchor.
// Only the first inline child of a heading counts.
func (b *sectionBuilder) title(anchor int, text string) {
	idx, ok := b.byAnchor[anchor]
	if !ok || b.sections[idx].Title != "" {
		return
	}
	b.sections[idx].Title = text
}

// finish closes the trailing section at lastLine and returns the table
// together with its ascending start lines.
func (b *sectionBuilder) finish(lastLine int) ([]Section, []int) {
	if n := len(b.sections); n > 0 && b.open {
		last := &b.sections[n-1]
		last.EndLine = max(lastLine, last.StartLine)
		b.open = false
	}
	starts := make([]int, len(b.sections))
	for i, s := range b.sections {
		starts[i] = s.StartLine
	}
	return b.sections, starts
}

// sectionAt finds the section containing line by binary search over the
// start lines. It returns -1 when no section contains line.
func sectionAt(sections []Section, starts []int, line int) int {
	if len(starts) == 0 || line < 0 {
		return -1
	}
	i := sort.SearchInts(starts, line+1) - 1
	if i < 0 || !sections[i].Contains(line) {
		return -1
	}
	return i
}
