package collectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadings_TOC(t *testing.T) {
	md := "# Guide\n\nintro\n\n## Install\n\n### From source\n\n## Install\n\n# Appendix\n"
	res := run(t, md, NewHeadings())

	hs := res["headings"].([]Heading)
	require.Len(t, hs, 5)

	assert.Equal(t, 1, hs[0].Level)
	assert.Equal(t, "Guide", hs[0].Title)
	assert.Equal(t, 0, hs[0].Line)
	assert.Equal(t, []string{"Guide"}, hs[0].Path)

	assert.Equal(t, []string{"Guide", "Install", "From source"}, hs[2].Path)
	assert.Equal(t, 3, hs[2].Level)

	assert.Equal(t, "install", hs[1].Slug)
	assert.NotEqual(t, hs[1].Slug, hs[3].Slug, "repeated titles get distinct slugs")
	assert.Equal(t, []string{"Appendix"}, hs[4].Path)
}

func TestHeadings_Empty(t *testing.T) {
	res := run(t, "no headings here\n", NewHeadings())
	assert.Equal(t, []Heading{}, res["headings"])
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello World":     "hello-world",
		"  API v2.0!  ":   "api-v20",
		"snake_case-name": "snake_case-name",
		"Ünïcödé":         "ünïcödé",
		"???":             "heading",
	}
	for in, want := range tests {
		assert.Equal(t, want, slugify(in), in)
	}
}

func TestHeadings_UniqueSuffixes(t *testing.T) {
	h := NewHeadings()
	assert.Equal(t, "a", h.unique("a"))
	assert.Equal(t, "a-1", h.unique("a"))
	assert.Equal(t, "a-2", h.unique("a"))
	assert.Equal(t, "b", h.unique("b"))
}
