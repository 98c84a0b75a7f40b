package parser

import (
	"bytes"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Normalize prepares source bytes for tokenizing: it drops a leading UTF-8
// byte order mark, unifies line endings to "\n", replaces invalid UTF-8 and
// converts to Unicode NFC. Token line ranges are computed against the
// returned text, so it must run before any tokenizer sees the input.
func Normalize(src []byte) string {
	src = bytes.TrimPrefix(src, bom)
	s := strings.ReplaceAll(string(src), "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ToValidUTF8(s, "\uFFFD")
	return norm.NFC.String(s)
}
