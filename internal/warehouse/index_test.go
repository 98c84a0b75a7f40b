package warehouse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleDoc is:
//
//	0 # Title
//	1 > quote
//	2 - item
//	3 ```go
//	4 fmt.Println()
//	5 ```
func sampleDoc() ([]rawTok, string) {
	text := "# Title\n> quote\n- item\n```go\nfmt.Println()\n```\n"
	toks := concat(
		heading(1, 0, "Title"), // 0,1,2
		[]rawTok{
			openTok("blockquote", "blockquote", 1, 2), // 3
			openTok("paragraph", "p", 1, 2),           // 4
			inlineTok("quote", 1, 2),                  // 5
			closeTok("paragraph", "p"),                // 6
			closeTok("blockquote", "blockquote"),      // 7
			openTok("bullet_list", "ul", 2, 3),        // 8
			openTok("list_item", "li", 2, 3),          // 9
			openTok("paragraph", "p", 2, 3),           // 10
			inlineTok("item", 2, 3),                   // 11
			closeTok("paragraph", "p"),                // 12
			closeTok("list_item", "li"),               // 13
			closeTok("bullet_list", "ul"),             // 14
			{typ: "fence", tag: "code", lines: []int{3, 6}, content: "fmt.Println()\n",
				attrs: map[string]string{"info": "go title=x"}}, // 15
		},
	)
	return toks, text
}

func TestBuild_PairsAndParents(t *testing.T) {
	toks, text := sampleDoc()
	wh := build(t, toks, text, Config{})

	pairs := map[int]int{0: 2, 3: 7, 4: 6, 8: 14, 9: 13, 10: 12}
	for open, cl := range pairs {
		c, ok := wh.MatchingClose(open)
		require.True(t, ok, "open %d", open)
		assert.Equal(t, cl, c)

		o, ok := wh.MatchingOpen(cl)
		require.True(t, ok)
		assert.Equal(t, open, o)

		p, ok := wh.ParentOf(cl)
		require.True(t, ok)
		assert.Equal(t, open, p, "close token's parent is its own open")
	}

	parent := func(i int) int {
		p, _ := wh.ParentOf(i)
		return p
	}
	assert.Equal(t, 0, parent(1))
	assert.Equal(t, 3, parent(4))
	assert.Equal(t, 4, parent(5))
	assert.Equal(t, 8, parent(9))
	assert.Equal(t, 10, parent(11))

	_, ok := wh.ParentOf(0)
	assert.False(t, ok, "top-level token has no parent")
	_, ok = wh.ParentOf(15)
	assert.False(t, ok)
	_, ok = wh.MatchingClose(1)
	assert.False(t, ok, "inline tokens are never paired")
}

func TestBuild_PairInvariantsHold(t *testing.T) {
	toks, text := sampleDoc()
	wh := build(t, toks, text, Config{})

	for i := 0; i < wh.Len(); i++ {
		c, ok := wh.MatchingClose(i)
		if !ok {
			continue
		}
		assert.Less(t, i, c)
		assert.Equal(t, 1, wh.TokenAt(i).Nesting)
		assert.Equal(t, -1, wh.TokenAt(c).Nesting)
		p, _ := wh.ParentOf(c)
		assert.Equal(t, i, p)
	}
}

func TestBuild_TokensOfTypeInOrder(t *testing.T) {
	toks, text := sampleDoc()
	wh := build(t, toks, text, Config{})

	assert.Equal(t, []int{1, 5, 11}, wh.TokensOfType("inline"))
	assert.Equal(t, []int{4, 10}, wh.TokensOfType("paragraph_open"))
	assert.Empty(t, wh.TokensOfType("table_open"))
}

func TestBuild_ChildrenDerivedFromParents(t *testing.T) {
	toks, text := sampleDoc()
	wh := build(t, toks, text, Config{})

	assert.Equal(t, []int{1, 2}, wh.ChildrenOf(0))
	assert.Equal(t, []int{4, 7}, wh.ChildrenOf(3))
	assert.Equal(t, []int{10, 13}, wh.ChildrenOf(9))
	assert.Empty(t, wh.ChildrenOf(15))
	// Cached: same answer on the second call.
	assert.Equal(t, []int{1, 2}, wh.ChildrenOf(0))
}

func TestBuild_FenceInventory(t *testing.T) {
	toks, text := sampleDoc()
	wh := build(t, toks, text, Config{})

	fences := wh.Fences()
	require.Len(t, fences, 1)
	f := fences[0]
	assert.Equal(t, 15, f.TokenIndex)
	assert.Equal(t, 3, f.StartLine)
	assert.Equal(t, 6, f.EndLine)
	assert.Equal(t, "go", f.Lang)
	assert.Equal(t, "go title=x", f.Info)
	assert.True(t, f.Closed)
	assert.Equal(t, "fmt.Println()", wh.FenceBody(f))
}

func TestBuild_UnclosedFenceKeepsLastLine(t *testing.T) {
	text := "```go\na := 1\nb := 2\n"
	toks := []rawTok{{
		typ: "fence", content: "a := 1\nb := 2\n", lines: []int{0, 3},
		attrs: map[string]string{"info": "go"},
	}}
	wh := build(t, toks, text, Config{})

	f, ok := wh.FenceAt(0)
	require.True(t, ok)
	assert.False(t, f.Closed)
	assert.Equal(t, 3, f.EndLine)
	assert.Equal(t, "a := 1\nb := 2", wh.FenceBody(f))
}

func TestBuild_FenceClosingRunMustMatchOpening(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		closed bool
	}{
		{"backticks", "```\nx\n```\n", true},
		{"tildes", "~~~~\nx\n~~~~~  \n", true},
		{"short closing run", "````\nx\n```\n", false},
		{"other marker", "```\nx\n~~~\n", false},
		{"info on closing line", "```\nx\n```go\n", false},
		{"opening line only", "```\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := len(splitLines(tt.text))
			toks := []rawTok{{typ: "fence", content: "x\n", lines: []int{0, n}}}
			wh := build(t, toks, tt.text, Config{})
			f, ok := wh.FenceAt(0)
			require.True(t, ok)
			assert.Equal(t, tt.closed, f.Closed)
		})
	}
}

func TestFenceAt_ByTokenIndex(t *testing.T) {
	toks, text := sampleDoc()
	wh := build(t, toks, text, Config{})

	f, ok := wh.FenceAt(15)
	require.True(t, ok)
	assert.Equal(t, wh.Fences()[0], f)

	_, ok = wh.FenceAt(14)
	assert.False(t, ok)
	_, ok = wh.FenceAt(-1)
	assert.False(t, ok)
}

func TestBuild_FenceWithoutLinesIsSkipped(t *testing.T) {
	toks := []rawTok{{typ: "fence", content: "x"}}
	wh := build(t, toks, "x\n", Config{})
	assert.Empty(t, wh.Fences())
}

func TestBuild_SelfClosingAdjacentOpenClose(t *testing.T) {
	// An empty container opens and closes on adjacent iterations.
	toks := []rawTok{
		openTok("bullet_list", "ul", 0, 2),
		openTok("list_item", "li", 0, 1),
		closeTok("list_item", "li"),
		openTok("list_item", "li", 1, 2),
		closeTok("list_item", "li"),
		closeTok("bullet_list", "ul"),
	}
	wh := build(t, toks, "-\n-\n", Config{})

	for _, tc := range []struct{ open, close int }{{1, 2}, {3, 4}, {0, 5}} {
		c, ok := wh.MatchingClose(tc.open)
		require.True(t, ok)
		assert.Equal(t, tc.close, c)
	}
	p, _ := wh.ParentOf(3)
	assert.Equal(t, 0, p, "second item's parent is the list, not the closed first item")
}

func TestBuild_MalformedNesting(t *testing.T) {
	toks := []rawTok{
		closeTok("paragraph", "p"),              // 0: stray close at top level
		openTok("blockquote", "blockquote", 0, 3), // 1
		openTok("paragraph", "p", 0, 1),         // 2: never closed
		inlineTok("text", 0, 1),                 // 3
		closeTok("blockquote", "blockquote"),    // 4: also ends the paragraph
		closeTok("list_item", "li"),             // 5: stray close
	}
	wh := build(t, toks, "a\nb\nc\n", Config{})

	_, ok := wh.ParentOf(0)
	assert.False(t, ok)
	_, ok = wh.MatchingOpen(0)
	assert.False(t, ok)

	c, ok := wh.MatchingClose(1)
	require.True(t, ok)
	assert.Equal(t, 4, c)
	p, _ := wh.ParentOf(4)
	assert.Equal(t, 1, p)

	_, ok = wh.MatchingClose(2)
	assert.False(t, ok, "unclosed open stays unpaired")
	_, ok = wh.MatchingOpen(5)
	assert.False(t, ok)
}

func TestBuild_TextAccessors(t *testing.T) {
	toks, text := sampleDoc()
	wh := build(t, toks, text, Config{})

	assert.Equal(t, 6, wh.LineCount())
	assert.Equal(t, 5, wh.LastLine())
	assert.Equal(t, "> quote\n- item", wh.TextBetween(1, 3))
	assert.Equal(t, "", wh.TextBetween(4, 2))
	assert.Equal(t, "```", wh.TextBetween(5, 100))
	assert.Nil(t, wh.TokenAt(-1))
	assert.Nil(t, wh.TokenAt(wh.Len()))
}

func TestNew_AdmissionLimits(t *testing.T) {
	toks, text := sampleDoc()

	_, err := New(toks, text, Config{MaxTokens: 3})
	require.ErrorIs(t, err, ErrAdmission)
	var ae *AdmissionError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "tokens", ae.Limit)
	assert.Equal(t, int64(len(toks)), ae.Actual)

	_, err = New(toks, text, Config{MaxBytes: 10})
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "bytes", ae.Limit)

	_, err = New(toks, text, Config{MaxTokens: len(toks), MaxBytes: int64(len(text))})
	assert.NoError(t, err, "limits are inclusive")
}

func TestNew_AdmissionRejectsBeforeCanonicalizing(t *testing.T) {
	h := &hostileTok{boom: map[string]bool{"type": true}}
	calls := 0
	counting := &countingTok{hostileTok: h, calls: &calls}

	_, err := New([]*countingTok{counting, counting}, "x", Config{MaxTokens: 1})
	require.ErrorIs(t, err, ErrAdmission)
	assert.Zero(t, calls, "no accessor runs on a rejected document")
}

type countingTok struct {
	*hostileTok
	calls *int
}

func (c *countingTok) Type() string { *c.calls++; return "" }
