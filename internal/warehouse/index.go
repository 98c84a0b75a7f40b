package warehouse

import "strings"

// Fence is one fenced code block. EndLine is exclusive and includes the
// closing delimiter line when Closed is set. An unclosed fence runs to the
// end of its container.
type Fence struct {
	TokenIndex int    `json:"token"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	Lang       string `json:"lang,omitempty"`
	Info       string `json:"info,omitempty"`
	Closed     bool   `json:"closed"`
}

// index holds the lookup structures produced by the build pass.
// Arena-style slices are keyed by token position, -1 meaning "none".
type index struct {
	byType        map[string][]int
	pairs         []int // open -> close
	pairsRev      []int // close -> open
	parent        []int
	sections      []Section
	sectionStarts []int
	fences        []Fence
	fenceByToken  map[int]int
	lastLine      int
}

func filled(n, v int) []int {
	s := make([]int, n)
	for i := range s {
		s[i] = v
	}
	return s
}

// buildIndex makes a single forward pass over tokens. lines is the
// normalized source text split into lines.
func buildIndex(tokens []Token, lines []string) index {
	n := len(tokens)
	ix := index{
		byType:   make(map[string][]int),
		pairs:    filled(n, -1),
		pairsRev: filled(n, -1),
		parent:   filled(n, -1),
	}

	stack := make([]int, 0, 32)
	sb := newSectionBuilder()
	maxEnd := len(lines)

	for i := range tokens {
		tok := &tokens[i]
		ix.byType[tok.Type] = append(ix.byType[tok.Type], i)
		if tok.Lines != nil && tok.Lines.End > maxEnd {
			maxEnd = tok.Lines.End
		}

		switch tok.Nesting {
		case 1:
			// Parent before push: the open token belongs to the enclosing container.
			if len(stack) > 0 {
				ix.parent[i] = stack[len(stack)-1]
			}
			stack = append(stack, i)

		case -1:
			match := -1
			base := tok.Base()
			for j := len(stack) - 1; j >= 0; j-- {
				if tokens[stack[j]].Base() == base {
					match = j
					break
				}
			}
			if match >= 0 {
				open := stack[match]
				// Unclosed opens above the match end here, unpaired.
				stack = stack[:match]
				ix.pairs[open] = i
				ix.pairsRev[i] = open
				ix.parent[i] = open
			} else if len(stack) > 0 {
				// Stray close: treat like any other token in its container.
				ix.parent[i] = stack[len(stack)-1]
			}

		default:
			if len(stack) > 0 {
				ix.parent[i] = stack[len(stack)-1]
			}
		}

		switch tok.Type {
		case "heading_open":
			if tok.Nesting == 1 && tok.Lines != nil {
				sb.heading(i, headingLevel(tok), tok.Lines.Start)
			}
		case "inline":
			// Only a direct child may title a heading.
			if p := ix.parent[i]; p >= 0 && tokens[p].Type == "heading_open" {
				sb.title(p, strings.TrimSpace(tok.Content))
			}
		case "fence":
			if tok.Lines != nil {
				info, _ := tok.Attr("info")
				info = strings.TrimSpace(info)
				lang, _, _ := strings.Cut(info, " ")
				f := Fence{
					TokenIndex: i,
					StartLine:  tok.Lines.Start,
					EndLine:    tok.Lines.End,
					Lang:       lang,
					Info:       info,
				}
				f.Closed = fenceClosed(lines, f)
				if ix.fenceByToken == nil {
					ix.fenceByToken = make(map[int]int)
				}
				ix.fenceByToken[i] = len(ix.fences)
				ix.fences = append(ix.fences, f)
			}
		}
	}

	ix.lastLine = max(maxEnd-1, 0)
	ix.sections, ix.sectionStarts = sb.finish(ix.lastLine)
	return ix
}

// fenceClosed reports whether the last line of f is a closing delimiter:
// a run of the opening marker character at least as long as the opening
// run, with nothing after it but spaces.
func fenceClosed(lines []string, f Fence) bool {
	if f.EndLine-f.StartLine < 2 || f.StartLine < 0 || f.EndLine > len(lines) {
		return false
	}
	open := strings.TrimLeft(lines[f.StartLine], " \t>")
	if open == "" || (open[0] != '`' && open[0] != '~') {
		return false
	}
	marker := open[0]
	width := len(open) - len(strings.TrimLeft(open, string(marker)))
	if width < 3 {
		return false
	}
	last := strings.TrimLeft(lines[f.EndLine-1], " \t>")
	run := len(last) - len(strings.TrimLeft(last, string(marker)))
	return run >= width && strings.TrimSpace(last[run:]) == ""
}

// headingLevel prefers the hN tag and falls back to an ATX markup run.
func headingLevel(tok *Token) int {
	if l := tok.HeadingLevel(); l > 0 {
		return l
	}
	if m, ok := tok.Attr("markup"); ok && m != "" && strings.Count(m, "#") == len(m) {
		return min(len(m), 6)
	}
	return 1
}
