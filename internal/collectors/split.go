package collectors

import "strings"

// EstimateTokens approximates a model token count at 1.33 tokens per
// whitespace-separated word. Non-empty text counts at least one token.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		if text == "" {
			return 0
		}
		return 1
	}
	return max(int(float64(words)*1.33), 1)
}

// splitter packs paragraphs, then sentences, into pieces of about target
// tokens, carrying overlap tokens from the end of each piece into the next.
type splitter struct {
	target  int
	overlap int
}

// split breaks text on blank lines and packs the paragraphs.
func (s splitter) split(text string) []string {
	var out []string
	var cur strings.Builder
	curTokens := 0

	emit := func() {
		out = append(out, cur.String())
		tail := s.tail(cur.String())
		cur.Reset()
		curTokens = 0
		if tail != "" {
			cur.WriteString(tail)
			curTokens = EstimateTokens(tail)
		}
	}

	for _, para := range paragraphs(text) {
		n := EstimateTokens(para)
		if n > s.target {
			// Oversized paragraphs are split by sentence on their own.
			if curTokens > 0 {
				out = append(out, cur.String())
				cur.Reset()
				curTokens = 0
			}
			out = append(out, s.sentences(para)...)
			continue
		}
		if curTokens > 0 && curTokens+n > s.target {
			emit()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(para)
		curTokens += n
	}
	if curTokens > 0 {
		out = append(out, cur.String())
	}
	return out
}

func (s splitter) sentences(text string) []string {
	var out []string
	var cur strings.Builder
	curTokens := 0
	for _, sent := range sentences(text) {
		n := EstimateTokens(sent)
		if curTokens > 0 && curTokens+n > s.target {
			out = append(out, cur.String())
			tail := s.tail(cur.String())
			cur.Reset()
			curTokens = 0
			if tail != "" {
				cur.WriteString(tail)
				curTokens = EstimateTokens(tail)
			}
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(sent)
		curTokens += n
	}
	if curTokens > 0 {
		out = append(out, cur.String())
	}
	return out
}

// tail returns the last overlap tokens' worth of words, or "" when the
// text is no longer than that.
func (s splitter) tail(text string) string {
	words := strings.Fields(text)
	n := int(float64(s.overlap) / 1.33)
	if n <= 0 || len(words) <= n {
		return ""
	}
	return strings.Join(words[len(words)-n:], " ")
}

func paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// sentences splits after '.', '!' or '?' followed by a space.
func sentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i+1 < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' {
				if s := strings.TrimSpace(text[start : i+1]); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}
