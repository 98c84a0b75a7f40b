package parser

import (
	"fmt"
	"strings"
	"testing"
)

func tokenTypes(toks []Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Type()
	}
	return out
}

func ofType(toks []Token, typ string) []Token {
	var out []Token
	for _, t := range toks {
		if t.Type() == typ {
			out = append(out, t)
		}
	}
	return out
}

// assertBalanced checks that opens and closes nest properly.
func assertBalanced(t *testing.T, toks []Token) {
	t.Helper()
	var stack []string
	for i, tok := range toks {
		switch tok.Nesting() {
		case 1:
			stack = append(stack, strings.TrimSuffix(tok.Type(), "_open"))
		case -1:
			base := strings.TrimSuffix(tok.Type(), "_close")
			if len(stack) == 0 || stack[len(stack)-1] != base {
				t.Fatalf("token %d: unbalanced %s (stack %v)", i, tok.Type(), stack)
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) != 0 {
		t.Fatalf("unclosed containers: %v", stack)
	}
}

// assertLinesInText checks every line range lies within the text.
func assertLinesInText(t *testing.T, doc *Document) {
	t.Helper()
	n := strings.Count(doc.Text, "\n")
	if doc.Text != "" && !strings.HasSuffix(doc.Text, "\n") {
		n++
	}
	for i, tok := range doc.Tokens {
		m := tok.Map()
		if m == nil {
			continue
		}
		if m[0] < 0 || m[1] < m[0] || m[1] > n {
			t.Errorf("token %d (%s): range %v outside %d lines", i, tok.Type(), m, n)
		}
	}
}

func typeName(v any) string { return fmt.Sprintf("%T", v) }
