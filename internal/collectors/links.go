package collectors

import (
	"context"
	"net/url"
	"strings"

	"github.com/poutila/doxstrux-sub002/internal/warehouse"
)

// Link kinds. Links are classified, never resolved or fetched.
const (
	KindAnchor   = "anchor"
	KindRelative = "relative"
	KindAbsolute = "absolute"
	KindMailto   = "mailto"
	KindOther    = "other"
)

// Link is one hyperlink.
type Link struct {
	Href    string `json:"href"`
	Text    string `json:"text"`
	Title   string `json:"title,omitempty"`
	Kind    string `json:"kind"`
	Line    int    `json:"line"`
	Section string `json:"section,omitempty"`
}

// Image is one image reference.
type Image struct {
	Src     string `json:"src"`
	Alt     string `json:"alt"`
	Title   string `json:"title,omitempty"`
	Kind    string `json:"kind"`
	Line    int    `json:"line"`
	Section string `json:"section,omitempty"`
}

// classify sorts a link target into one of the Kind constants.
func classify(target string) string {
	target = strings.TrimSpace(target)
	if strings.HasPrefix(target, "#") {
		return KindAnchor
	}
	u, err := url.Parse(target)
	if err != nil {
		return KindOther
	}
	switch strings.ToLower(u.Scheme) {
	case "":
		if u.Host != "" {
			// Protocol-relative: //host/path
			return KindAbsolute
		}
		return KindRelative
	case "http", "https", "ftp", "ftps":
		return KindAbsolute
	case "mailto":
		return KindMailto
	default:
		return KindOther
	}
}

// Links collects hyperlinks with their visible text.
type Links struct {
	items []Link
}

func NewLinks() *Links { return &Links{} }

func (l *Links) Name() string { return "links" }

func (l *Links) Interest() warehouse.Interest {
	return warehouse.Interest{Types: []string{"link_open"}}
}

func (l *Links) OnToken(_ context.Context, tc warehouse.TokenContext, wh *warehouse.Warehouse) error {
	href, _ := tc.Token.Attr("href")
	title, _ := tc.Token.Attr("title")
	line := lineOf(wh, tc.Index)
	_, sec := sectionOf(wh, line)
	l.items = append(l.items, Link{
		Href:    href,
		Text:    innerText(wh, tc.Index),
		Title:   title,
		Kind:    classify(href),
		Line:    line,
		Section: sec,
	})
	return nil
}

func (l *Links) Reset() { l.items = nil }

func (l *Links) Finalize(*warehouse.Warehouse) (any, error) {
	if l.items == nil {
		return []Link{}, nil
	}
	return l.items, nil
}

// Images collects image references.
type Images struct {
	items []Image
}

func NewImages() *Images { return &Images{} }

func (im *Images) Name() string { return "images" }

func (im *Images) Interest() warehouse.Interest {
	return warehouse.Interest{Types: []string{"image"}}
}

func (im *Images) OnToken(_ context.Context, tc warehouse.TokenContext, wh *warehouse.Warehouse) error {
	src, _ := tc.Token.Attr("src")
	alt, ok := tc.Token.Attr("alt")
	if !ok {
		alt = tc.Token.Content
	}
	title, _ := tc.Token.Attr("title")
	line := lineOf(wh, tc.Index)
	_, sec := sectionOf(wh, line)
	im.items = append(im.items, Image{
		Src:     src,
		Alt:     alt,
		Title:   title,
		Kind:    classify(src),
		Line:    line,
		Section: sec,
	})
	return nil
}

func (im *Images) Reset() { im.items = nil }

func (im *Images) Finalize(*warehouse.Warehouse) (any, error) {
	if im.items == nil {
		return []Image{}, nil
	}
	return im.items, nil
}
