package collectors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunksOf(t *testing.T, md string, cfg ChunkConfig) []Chunk {
	t.Helper()
	res := run(t, md, NewChunks(cfg))
	return res["chunks"].([]Chunk)
}

func TestChunks_SmallSectionFitsOneChunk(t *testing.T) {
	md := "# Section\n\n" + strings.Repeat("word ", 200) + "\n"
	chunks := chunksOf(t, md, ChunkConfig{Size: 1500, Overlap: 200, MinChunk: 50})

	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Contains(t, chunks[0].Text, "word")
	assert.Equal(t, []string{"Section"}, chunks[0].Breadcrumb)
	assert.Equal(t, 2, chunks[0].StartLine)
}

func TestChunks_LargeSectionRequiresSplitting(t *testing.T) {
	// ~2700 words, about 3600 tokens at 1.33 tokens/word.
	para := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 50)
	md := "# Big Section\n\n" + strings.Repeat(para+"\n\n", 6)
	cfg := ChunkConfig{Size: 500, Overlap: 50, MinChunk: 10}
	chunks := chunksOf(t, md, cfg)

	require.GreaterOrEqual(t, len(chunks), 2)
	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
		// Paragraph and sentence boundaries allow slight overflows.
		assert.LessOrEqual(t, EstimateTokens(c.Text), cfg.Size*2, "chunk %d", i)
		assert.Equal(t, []string{"Big Section"}, c.Breadcrumb)
	}
}

func TestChunks_BreadcrumbPropagation(t *testing.T) {
	md := "# Chapter 1\n\n## Section 1.1\n\n" + strings.Repeat("content ", 200) + "\n"
	chunks := chunksOf(t, md, ChunkConfig{Size: 2000, Overlap: 100, MinChunk: 10})

	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"Chapter 1", "Section 1.1"}, chunks[0].Breadcrumb)
	assert.Equal(t, 1, chunks[0].Section)
}

func TestChunks_BreadcrumbIsolation(t *testing.T) {
	md := "# A\n\n" + strings.Repeat("alpha ", 200) + "\n\n# B\n\n" + strings.Repeat("beta ", 200) + "\n"
	chunks := chunksOf(t, md, ChunkConfig{Size: 2000, Overlap: 100, MinChunk: 10})

	require.Len(t, chunks, 2)
	assert.Equal(t, []string{"A"}, chunks[0].Breadcrumb)
	assert.Equal(t, []string{"B"}, chunks[1].Breadcrumb)
	assert.NotContains(t, chunks[0].Text, "beta")
}

func TestChunks_MinChunkFiltering(t *testing.T) {
	chunks := chunksOf(t, "# Short\n\nHi\n", ChunkConfig{Size: 1500, Overlap: 200, MinChunk: 100})
	assert.Empty(t, chunks)
}

func TestChunks_DefaultConfigFallback(t *testing.T) {
	chunks := chunksOf(t, strings.Repeat("word ", 200)+"\n", ChunkConfig{})
	require.Len(t, chunks, 1)
	assert.Nil(t, chunks[0].Breadcrumb, "preamble has no breadcrumb")
	assert.Equal(t, -1, chunks[0].Section)
}

func TestChunks_SkipsTablesAndHeadings(t *testing.T) {
	md := "# Heading words\n\n| cell |\n|---|\n| tabular |\n\nprose here\n"
	chunks := chunksOf(t, md, ChunkConfig{MinChunk: 1})
	require.Len(t, chunks, 1)
	assert.Equal(t, "prose here", chunks[0].Text)
}

func TestChunks_IncludesCode(t *testing.T) {
	md := "# Code\n\nintro\n\n```sh\nmake build\n```\n"
	chunks := chunksOf(t, md, ChunkConfig{MinChunk: 1})
	require.Len(t, chunks, 1)
	assert.Equal(t, "intro\n\nmake build", chunks[0].Text)
	assert.Equal(t, 7, chunks[0].EndLine)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("   "))
	assert.Equal(t, 1, EstimateTokens("one"))
	assert.Equal(t, 133, EstimateTokens(strings.Repeat("w ", 100)))
}

func TestSplitter_Overlap(t *testing.T) {
	sp := splitter{target: 20, overlap: 4}
	text := strings.Repeat("alpha beta gamma delta. ", 10)
	parts := sp.split(text)
	require.Greater(t, len(parts), 1)

	// Each piece after the first starts with the tail of the previous one.
	for i := 1; i < len(parts); i++ {
		prev := strings.Fields(parts[i-1])
		tail := strings.Join(prev[len(prev)-3:], " ")
		assert.True(t, strings.HasPrefix(parts[i], tail), "piece %d: %q", i, parts[i])
	}
}

func TestSentences(t *testing.T) {
	got := sentences("One. Two! Three? Four")
	assert.Equal(t, []string{"One.", "Two!", "Three?", "Four"}, got)
	assert.Empty(t, sentences(""))
}
