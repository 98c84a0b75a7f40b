package collectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const codeDoc = "# Code\n\n```go title=main\npackage main\n\nfunc main() {}\n```\n\n    indented\n\n~~~\none\n~~~\n"

func TestCodeBlocks(t *testing.T) {
	res := run(t, codeDoc, NewCodeBlocks(0))

	blocks := res["codeblocks"].([]CodeBlock)
	require.Len(t, blocks, 3)

	b := blocks[0]
	assert.True(t, b.Fenced)
	assert.Equal(t, "go", b.Lang)
	assert.Equal(t, "go title=main", b.Info)
	assert.Equal(t, 2, b.StartLine)
	assert.Equal(t, 7, b.EndLine)
	assert.Equal(t, "package main\n\nfunc main() {}", b.Body)
	assert.Equal(t, 3, b.Lines)
	assert.Equal(t, "Code", b.Section)

	assert.False(t, blocks[1].Fenced)
	assert.Equal(t, "indented", blocks[1].Body)

	assert.True(t, blocks[2].Fenced)
	assert.Equal(t, "", blocks[2].Lang)
	assert.Equal(t, "one", blocks[2].Body)
}

func TestCodeBlocks_UnclosedFenceRunsToEnd(t *testing.T) {
	res := run(t, "```go\na := 1\nb := 2\n", NewCodeBlocks(0))

	blocks := res["codeblocks"].([]CodeBlock)
	require.Len(t, blocks, 1)
	assert.Equal(t, "go", blocks[0].Lang)
	assert.Equal(t, "a := 1\nb := 2", blocks[0].Body)
	assert.Equal(t, 2, blocks[0].Lines)
	assert.Equal(t, 3, blocks[0].EndLine)
}

func TestCodeBlocks_MinLinesFilter(t *testing.T) {
	res := run(t, codeDoc, NewCodeBlocks(2))
	blocks := res["codeblocks"].([]CodeBlock)
	require.Len(t, blocks, 1)
	assert.Equal(t, "go", blocks[0].Lang)
}

func TestCountLines(t *testing.T) {
	assert.Equal(t, 0, countLines(""))
	assert.Equal(t, 1, countLines("a\n"))
	assert.Equal(t, 3, countLines("a\n\nb"))
}
