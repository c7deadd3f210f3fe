package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	whatwg "github.com/nlnwa/whatwg-url/url"

	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/hostbridge"
	"github.com/thecyberx/cyberx/pkg/strutil"
)

// LinkType classifies an anchor.
type LinkType string

const (
	LinkInternal LinkType = "internal"
	LinkExternal LinkType = "external"
	LinkJS       LinkType = "js"
	LinkMailto   LinkType = "mailto"
	LinkTel      LinkType = "tel"
	LinkAnchor   LinkType = "anchor"
)

// Link is one <a href> on the page.
type Link struct {
	Href string   `json:"href"`
	Text string   `json:"text"`
	Type LinkType `json:"type"`
}

// Links returns every anchor with its resolved href, unique by href in
// document order.
func Links(snap *hostbridge.Snapshot) []Link {
	out := []Link{}
	doc, err := snap.Document()
	if err != nil {
		return out
	}
	base := snap.URL
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		base = hostbridge.ResolveURL(snap.URL, href)
	}
	pageHost := hostname(snap.URL)

	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		raw := sel.AttrOr("href", "")
		href := hostbridge.ResolveURL(base, raw)
		if seen[href] {
			return
		}
		seen[href] = true
		out = append(out, Link{
			Href: href,
			Text: strutil.Truncate(strings.TrimSpace(sel.Text()), defaults.LinkTextMaxLen),
			Type: classifyLink(raw, href, pageHost),
		})
	})
	return out
}

// classifyLink uses the resolved href for schemes and hosts, and the
// attribute as written for fragment-only links, which resolve to the page.
func classifyLink(raw, href, pageHost string) LinkType {
	lower := strings.ToLower(href)
	switch {
	case strings.HasPrefix(lower, "javascript:"):
		return LinkJS
	case strings.HasPrefix(lower, "mailto:"):
		return LinkMailto
	case strings.HasPrefix(lower, "tel:"):
		return LinkTel
	case strings.HasPrefix(strings.TrimSpace(raw), "#"):
		return LinkAnchor
	}
	if h := hostname(href); h != "" && h != pageHost {
		return LinkExternal
	}
	return LinkInternal
}

func hostname(raw string) string {
	u, err := whatwg.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
