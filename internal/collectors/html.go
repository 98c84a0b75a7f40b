package collectors

import (
	"context"
	"io"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/poutila/doxstrux-sub002/internal/warehouse"
)

// TagCount is the number of start tags seen for one element name.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// HTMLInventory summarizes raw HTML embedded in the document.
type HTMLInventory struct {
	Blocks int        `json:"blocks"`
	Inline int        `json:"inline"`
	Tags   []TagCount `json:"tags"`
	// Risky counts script, iframe, object and embed tags and on* handlers.
	Risky int `json:"risky"`
}

var riskyTags = map[string]bool{"script": true, "iframe": true, "object": true, "embed": true}

// HTML inventories raw HTML blocks and inline fragments. Content is only
// tokenized, never rendered or sanitized.
type HTML struct {
	inv  HTMLInventory
	tags map[string]int
}

func NewHTML() *HTML { return &HTML{tags: make(map[string]int)} }

func (h *HTML) Name() string { return "html" }

func (h *HTML) Interest() warehouse.Interest {
	return warehouse.Interest{Types: []string{"html_block", "html_inline"}}
}

func (h *HTML) OnToken(_ context.Context, tc warehouse.TokenContext, _ *warehouse.Warehouse) error {
	if tc.Token.Type == "html_block" {
		h.inv.Blocks++
	} else {
		h.inv.Inline++
	}

	z := html.NewTokenizer(strings.NewReader(tc.Token.Content))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if err := z.Err(); err != io.EOF {
				return err
			}
			return nil
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := z.TagName()
		tag := string(name)
		h.tags[tag]++
		if riskyTags[tag] {
			h.inv.Risky++
		}
		for hasAttr {
			var key []byte
			key, _, hasAttr = z.TagAttr()
			if strings.HasPrefix(strings.ToLower(string(key)), "on") {
				h.inv.Risky++
			}
		}
	}
}

func (h *HTML) Reset() {
	h.inv = HTMLInventory{}
	h.tags = make(map[string]int)
}

func (h *HTML) Finalize(*warehouse.Warehouse) (any, error) {
	h.inv.Tags = make([]TagCount, 0, len(h.tags))
	for tag, n := range h.tags {
		h.inv.Tags = append(h.inv.Tags, TagCount{Tag: tag, Count: n})
	}
	slices.SortFunc(h.inv.Tags, func(a, b TagCount) int { return strings.Compare(a.Tag, b.Tag) })
	return h.inv, nil
}
