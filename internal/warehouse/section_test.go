package warehouse

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nestedDoc has headings of levels 1, 2, 2, 1 on lines 0, 3, 6, 9 and
// twelve lines in total.
func nestedDoc() ([]rawTok, string) {
	var lines []string
	for i := 0; i < 12; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	toks := concat(
		heading(1, 0, "Intro"),
		paragraph(1, "a"),
		heading(2, 3, "Setup"),
		paragraph(4, "b"),
		heading(2, 6, "Usage"),
		paragraph(7, "c"),
		heading(1, 9, "Appendix"),
		paragraph(10, "d"),
	)
	return toks, strings.Join(lines, "\n") + "\n"
}

func TestSections_NestedLevels(t *testing.T) {
	toks, text := nestedDoc()
	wh := build(t, toks, text, Config{})

	secs := wh.Sections()
	require.Len(t, secs, 4)

	want := []struct {
		start, end, level, parent int
		title                     string
	}{
		{0, 2, 1, -1, "Intro"},
		{3, 5, 2, 0, "Setup"},
		{6, 8, 2, 0, "Usage"},
		{9, 11, 1, -1, "Appendix"},
	}
	for i, w := range want {
		s := secs[i]
		assert.Equal(t, i, s.Index)
		assert.Equal(t, w.start, s.StartLine, "section %d start", i)
		assert.Equal(t, w.end, s.EndLine, "section %d end", i)
		assert.Equal(t, w.level, s.Level)
		assert.Equal(t, w.parent, s.Parent)
		assert.Equal(t, w.title, s.Title)
	}

	assert.Equal(t, secs[3].StartLine-1, secs[2].EndLine)
	assert.Equal(t, wh.LastLine(), secs[3].EndLine)
	assert.Equal(t, []string{"Intro", "Usage"}, wh.SectionPath(2))
}

func TestSections_DoNotOverlap(t *testing.T) {
	toks, text := nestedDoc()
	wh := build(t, toks, text, Config{})
	secs := wh.Sections()

	for i := 1; i < len(secs); i++ {
		assert.Greater(t, secs[i].StartLine, secs[i-1].EndLine)
		assert.LessOrEqual(t, secs[i-1].StartLine, secs[i-1].EndLine)
	}
	for line := 0; line <= wh.LastLine(); line++ {
		n := 0
		for _, s := range secs {
			if s.Contains(line) {
				n++
			}
		}
		assert.Equal(t, 1, n, "line %d", line)
	}
}

func TestSectionOf(t *testing.T) {
	toks, text := nestedDoc()
	wh := build(t, toks, text, Config{})

	tests := []struct {
		line  int
		title string
		ok    bool
	}{
		{0, "Intro", true},
		{2, "Intro", true},
		{3, "Setup", true},
		{8, "Usage", true},
		{11, "Appendix", true},
		{12, "", false},
		{-1, "", false},
	}
	for _, tt := range tests {
		s, ok := wh.SectionOf(tt.line)
		assert.Equal(t, tt.ok, ok, "line %d", tt.line)
		assert.Equal(t, tt.title, s.Title, "line %d", tt.line)
	}
}

func TestSectionOf_NoHeadings(t *testing.T) {
	wh := build(t, concat(paragraph(0, "a"), paragraph(1, "b")), "a\nb\n", Config{})

	assert.Empty(t, wh.Sections())
	for _, line := range []int{-5, 0, 1, 100} {
		_, ok := wh.SectionOf(line)
		assert.False(t, ok)
	}
}

func TestSectionOf_LinesBeforeFirstHeading(t *testing.T) {
	toks := concat(paragraph(0, "preamble"), heading(1, 2, "Title"))
	wh := build(t, toks, "preamble\n\n# Title\n", Config{})

	_, ok := wh.SectionOf(0)
	assert.False(t, ok)
	s, ok := wh.SectionOf(2)
	require.True(t, ok)
	assert.Equal(t, "Title", s.Title)
}

func TestSections_TitleFromDirectChildOnly(t *testing.T) {
	toks := []rawTok{
		openTok("heading", "h1", 0, 1),
		openTok("span", "span", 0, 1),
		inlineTok("nested", 0, 1),
		closeTok("span", "span"),
		inlineTok("direct", 0, 1),
		inlineTok("second", 0, 1),
		closeTok("heading", "h1"),
	}
	wh := build(t, toks, "# direct\n", Config{})

	secs := wh.Sections()
	require.Len(t, secs, 1)
	assert.Equal(t, "direct", secs[0].Title)
}

func TestSections_LastEndsAtTokenRangeBeyondText(t *testing.T) {
	toks := concat(heading(1, 0, "Only"), []rawTok{openTok("paragraph", "p", 1, 20), closeTok("paragraph", "p")})
	wh := build(t, toks, "# Only\n", Config{})

	secs := wh.Sections()
	require.Len(t, secs, 1)
	assert.Equal(t, 19, secs[0].EndLine)
}

func TestSections_SkipsHeadingsWithoutForwardProgress(t *testing.T) {
	toks := concat(
		heading(1, 4, "First"),
		heading(2, 4, "Same line"),
		heading(2, 2, "Backwards"),
		heading(2, 6, "Next"),
	)
	wh := build(t, toks, strings.Repeat("x\n", 8), Config{})

	secs := wh.Sections()
	require.Len(t, secs, 2)
	assert.Equal(t, "First", secs[0].Title)
	assert.Equal(t, 5, secs[0].EndLine)
	assert.Equal(t, "Next", secs[1].Title)
	assert.Equal(t, 0, secs[1].Parent)
}

func TestHeadingLevel_MarkupFallback(t *testing.T) {
	toks := []rawTok{
		{typ: "heading_open", nesting: 1, lines: []int{0, 1}, attrs: map[string]string{"markup": "###"}},
		inlineTok("t", 0, 1),
		{typ: "heading_close", nesting: -1},
	}
	wh := build(t, toks, "### t\n", Config{})
	require.Len(t, wh.Sections(), 1)
	assert.Equal(t, 3, wh.Sections()[0].Level)
}

func BenchmarkSectionOf(b *testing.B) {
	for _, n := range []int{10, 1_000, 100_000} {
		b.Run(fmt.Sprintf("sections=%d", n), func(b *testing.B) {
			var toks []rawTok
			for i := 0; i < n; i++ {
				toks = append(toks, heading(1+i%3, i*4, "h")...)
			}
			wh, err := New(toks, "", Config{})
			if err != nil {
				b.Fatal(err)
			}
			last := wh.LastLine()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				wh.SectionOf(i % (last + 1))
			}
		})
	}
}
