package hostbridge

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	whatwg "github.com/nlnwa/whatwg-url/url"
	"golang.org/x/net/html/charset"
)

// Snapshot is a read-only capture of one page. Extractors work on it
// after capture and never touch the live page.
type Snapshot struct {
	URL   string `json:"url"`
	Title string `json:"title"`

	// HTML is the serialized document element.
	HTML string `json:"html"`

	// Scripts are the resolved src of every <script src>.
	Scripts []string `json:"scripts"`

	// InlineScripts are the bodies of <script> elements without src.
	InlineScripts []string `json:"inlineScripts"`

	// Links are the resolved href of every <link href>.
	Links []string `json:"links"`

	// Metas is the outer HTML of every <meta>.
	Metas []string `json:"metas"`

	Headers http.Header `json:"headers,omitempty"`
}

// HeaderLines renders Headers as "name: value" lines in canonical form.
func (s *Snapshot) HeaderLines() []string {
	lines := make([]string, 0, len(s.Headers))
	for name, values := range s.Headers {
		for _, v := range values {
			lines = append(lines, strings.ToLower(name)+": "+v)
		}
	}
	return lines
}

// Document parses HTML into a goquery document.
func (s *Snapshot) Document() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(s.HTML))
}

// ParseSnapshot builds a snapshot from page markup. Relative script and
// link URLs resolve against pageURL the way a browser's .src and .href do.
func ParseSnapshot(pageURL, markup string, headers http.Header) (*Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	snap := &Snapshot{
		URL:           pageURL,
		Title:         strings.TrimSpace(doc.Find("title").First().Text()),
		Scripts:       []string{},
		InlineScripts: []string{},
		Links:         []string{},
		Metas:         []string{},
		Headers:       headers,
	}
	base := baseURL(doc, pageURL)

	snap.HTML, err = goquery.OuterHtml(doc.Find("html").First())
	if err != nil || snap.HTML == "" {
		snap.HTML = markup
	}

	doc.Find("script").Each(func(_ int, sel *goquery.Selection) {
		if src, ok := sel.Attr("src"); ok {
			snap.Scripts = append(snap.Scripts, ResolveURL(base, src))
			return
		}
		snap.InlineScripts = append(snap.InlineScripts, sel.Text())
	})
	doc.Find("link[href]").Each(func(_ int, sel *goquery.Selection) {
		snap.Links = append(snap.Links, ResolveURL(base, sel.AttrOr("href", "")))
	})
	doc.Find("meta").Each(func(_ int, sel *goquery.Selection) {
		if outer, err := goquery.OuterHtml(sel); err == nil {
			snap.Metas = append(snap.Metas, outer)
		}
	})
	return snap, nil
}

// baseURL honours <base href>.
func baseURL(doc *goquery.Document, pageURL string) string {
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		return ResolveURL(pageURL, href)
	}
	return pageURL
}

// ResolveURL resolves ref against base with WHATWG URL rules. When either
// cannot be parsed, ref is returned trimmed and unchanged.
func ResolveURL(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if base == "" {
		if u, err := whatwg.Parse(ref); err == nil {
			return u.Href(false)
		}
		return ref
	}
	u, err := whatwg.ParseRef(base, ref)
	if err != nil {
		return ref
	}
	return u.Href(false)
}

// DecodeBody converts a response body to UTF-8 using the Content-Type
// charset, a <meta charset> sniff, or the HTML5 default.
func DecodeBody(body []byte, contentType string) (string, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return string(body), nil
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("decode body: %w", err)
	}
	return string(out), nil
}
