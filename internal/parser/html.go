package parser

import (
	"bytes"
	"cmp"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// HTMLTokenizer handles HTML files. The body is rendered to plain text,
// one block per line group, and tokens are emitted against that text.
type HTMLTokenizer struct{}

func (p *HTMLTokenizer) Tokenize(r io.Reader, filename string) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read html: %w", err)
	}
	doc, err := html.Parse(strings.NewReader(Normalize(raw)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := titleFromFilename(filename)
	if t := findTitle(doc); t != "" {
		title = t
	}

	hw := &htmlWalker{}
	if body := findBody(doc); body != nil {
		hw.walk(body)
	} else {
		hw.walk(doc)
	}
	hw.flush()
	return hw.document(title, "html"), nil
}

type htmlWalker struct {
	builder
	loose []string
}

// flush emits text collected directly inside non-paragraph containers.
func (hw *htmlWalker) flush() {
	if t := collapse(strings.Join(hw.loose, " ")); t != "" {
		hw.paragraph(t)
	}
	hw.loose = hw.loose[:0]
}

func (hw *htmlWalker) walk(n *html.Node) {
	if n.Type == html.TextNode {
		if strings.TrimSpace(n.Data) != "" {
			hw.loose = append(hw.loose, n.Data)
		}
		return
	}
	if n.Type == html.ElementNode {
		if level := headingLevel(n.Data); level > 0 {
			hw.flush()
			if t := textContent(n); t != "" {
				hw.heading(level, t)
			}
			return
		}

		switch n.Data {
		case "script", "style", "nav", "footer", "header", "noscript", "template":
			return
		case "p":
			hw.flush()
			hw.inlineBlock(n)
			return
		case "img":
			hw.flush()
			hw.inlineBlock(n)
			return
		case "ul", "ol":
			hw.flush()
			hw.list(n)
			return
		case "blockquote":
			hw.flush()
			hw.blank()
			idx := hw.open("blockquote", "blockquote", span(hw.line, hw.line))
			hw.children(n)
			hw.flush()
			hw.close(idx, hw.line)
			return
		case "pre":
			hw.flush()
			hw.pre(n)
			return
		case "table":
			hw.flush()
			hw.table(tableRows(n))
			return
		case "hr":
			hw.flush()
			hw.blank()
			hw.leaf("hr", "hr", "", hw.write("---"), "markup", "---")
			return
		case "div", "section", "article", "main", "aside", "body", "figure":
			hw.flush()
			hw.children(n)
			hw.flush()
			return
		}
	}
	hw.children(n)
}

func (hw *htmlWalker) children(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		hw.walk(c)
	}
}

// inlineBlock emits n as a paragraph with link, image and emphasis
// children.
func (hw *htmlWalker) inlineBlock(n *html.Node) {
	var kids []Token
	if n.Data == "img" {
		inlineToken(n, &kids)
	} else {
		inlineTokens(n, &kids)
	}
	text := collapse(textContent(n))
	if text == "" {
		// An image-only paragraph renders its alt text or source.
		for _, k := range kids {
			if k.typ == "image" {
				text = cmp.Or(k.content, k.attrs["src"])
				break
			}
		}
	}
	hw.paragraph(text, kids...)
}

func inlineTokens(n *html.Node, out *[]Token) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		inlineToken(c, out)
	}
}

func inlineToken(n *html.Node, out *[]Token) {
	if n.Type == html.TextNode {
		if t := collapse(n.Data); t != "" {
			*out = append(*out, Token{typ: "text", content: t})
		}
		return
	}
	if n.Type != html.ElementNode {
		return
	}
	wrap := func(base, tag string, attrs ...string) {
		*out = append(*out, Token{typ: base + "_open", nesting: 1, tag: tag, attrs: pairs(attrs)})
		inlineTokens(n, out)
		*out = append(*out, Token{typ: base + "_close", nesting: -1, tag: tag})
	}
	switch n.Data {
	case "a":
		wrap("link", "a", "href", attr(n, "href"), "title", attr(n, "title"))
	case "img":
		alt := attr(n, "alt")
		*out = append(*out, Token{typ: "image", tag: "img", content: alt,
			attrs: pairs([]string{"src", attr(n, "src"), "alt", alt, "title", attr(n, "title")})})
	case "code":
		*out = append(*out, Token{typ: "code_inline", tag: "code", content: textContent(n)})
	case "em", "i":
		wrap("em", "em")
	case "strong", "b":
		wrap("strong", "strong")
	case "s", "del":
		wrap("s", "s")
	case "br":
		*out = append(*out, Token{typ: "softbreak", tag: "br"})
	case "script", "style":
	default:
		inlineTokens(n, out)
	}
}

func (hw *htmlWalker) list(n *html.Node) {
	hw.blank()
	var idx int
	if n.Data == "ol" {
		idx = hw.open("ordered_list", "ol", span(hw.line, hw.line), "start", attr(n, "start"))
	} else {
		idx = hw.open("bullet_list", "ul", span(hw.line, hw.line))
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.Data != "li" {
			continue
		}
		item := hw.open("list_item", "li", span(hw.line, hw.line))
		// Nested lists render after the item's own text.
		var nested []*html.Node
		own := &html.Node{Type: html.ElementNode, Data: "li"}
		for gc := c.FirstChild; gc != nil; gc = gc.NextSibling {
			if gc.Type == html.ElementNode && (gc.Data == "ul" || gc.Data == "ol") {
				nested = append(nested, gc)
				continue
			}
			own.AppendChild(cloneNode(gc))
		}
		hw.inlineBlock(own)
		for _, l := range nested {
			hw.list(l)
		}
		hw.close(item, hw.line)
	}
	hw.close(idx, hw.line)
}

func cloneNode(n *html.Node) *html.Node {
	c := &html.Node{Type: n.Type, DataAtom: n.DataAtom, Data: n.Data, Namespace: n.Namespace, Attr: n.Attr}
	for gc := n.FirstChild; gc != nil; gc = gc.NextSibling {
		c.AppendChild(cloneNode(gc))
	}
	return c
}

func (hw *htmlWalker) pre(n *html.Node) {
	var body bytes.Buffer
	lang := ""
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			body.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.Data == "code" && lang == "" {
			for _, cls := range strings.Fields(attr(n, "class")) {
				if l, ok := strings.CutPrefix(cls, "language-"); ok {
					lang = l
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)

	code := strings.Trim(body.String(), "\n")
	hw.blank()
	lines := hw.write("```" + lang + "\n" + code + "\n```")
	hw.leaf("fence", "code", code+"\n", lines, "info", lang, "markup", "```")
}

func tableRows(n *html.Node) [][]string {
	var rows [][]string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			var cells []string
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
					cells = append(cells, collapse(textContent(c)))
				}
			}
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return rows
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// collapse folds whitespace runs into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func headingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
