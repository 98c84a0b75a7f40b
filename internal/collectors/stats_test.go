package collectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStats(t *testing.T) {
	md := "# Title here\n\nOne two three.\n\n- a\n- b\n\n> quote\n\n```\ncode line\n```\n\n| h |\n|---|\n| v |\n\n[l](x) ![i](y)\n"
	res := run(t, md, NewStats())

	s := res["stats"].(DocStats)
	assert.Equal(t, 1, s.Headings)
	assert.Equal(t, 1, s.Sections)
	assert.Equal(t, 5, s.Paragraphs, "body, two tight items, quote, links")
	assert.Equal(t, 2, s.ListItems)
	assert.Equal(t, 1, s.Blockquotes)
	assert.Equal(t, 1, s.CodeBlocks)
	assert.Equal(t, 1, s.Tables)
	assert.Equal(t, 1, s.Links)
	assert.Equal(t, 1, s.Images)
	assert.Equal(t, 18, s.Lines)
	assert.Positive(t, s.Tokens)
	assert.Positive(t, s.Words)
	assert.Positive(t, s.EstimatedTokens)
}
