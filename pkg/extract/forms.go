package extract

import (
	"strings"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/thecyberx/cyberx/pkg/hostbridge"
	"github.com/thecyberx/cyberx/pkg/strutil"
)

// HiddenInput is an <input type="hidden"> and the form it belongs to.
type HiddenInput struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Type      string `json:"type"`
	Form      string `json:"form"`
	Sensitive bool   `json:"sensitive"`
}

// HiddenInputs returns every hidden input in document order. The form is
// named by its id, then its action URL, which defaults to the page URL as a
// browser's form.action does.
func HiddenInputs(snap *hostbridge.Snapshot) []HiddenInput {
	out := []HiddenInput{}
	doc, err := htmlquery.Parse(strings.NewReader(snap.HTML))
	if err != nil {
		return out
	}
	base := snap.URL
	if b := htmlquery.FindOne(doc, "//base[@href]"); b != nil {
		base = hostbridge.ResolveURL(snap.URL, htmlquery.SelectAttr(b, "href"))
	}

	for _, n := range hiddenInputNodes(doc) {
		in := HiddenInput{
			Name:  strutil.FirstNonEmpty(htmlquery.SelectAttr(n, "name"), htmlquery.SelectAttr(n, "id"), "(unnamed)"),
			Value: htmlquery.SelectAttr(n, "value"),
			Type:  "hidden",
			Form:  formName(closestForm(n), snap.URL, base),
		}
		in.Sensitive = SensitiveInput(in.Name, in.Value)
		out = append(out, in)
	}
	return out
}

// hiddenInputNodes walks the tree depth first so inputs come back in
// document order. HTML attribute values for type are ASCII case-insensitive.
func hiddenInputNodes(doc *html.Node) []*html.Node {
	var nodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "input" &&
			strings.EqualFold(strings.TrimSpace(htmlquery.SelectAttr(n, "type")), "hidden") {
			nodes = append(nodes, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return nodes
}

func closestForm(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "form" {
			return p
		}
	}
	return nil
}

func formName(form *html.Node, pageURL, base string) string {
	if form == nil {
		return "(unnamed form)"
	}
	if id := htmlquery.SelectAttr(form, "id"); id != "" {
		return id
	}
	action := strings.TrimSpace(htmlquery.SelectAttr(form, "action"))
	if action == "" {
		return strutil.FirstNonEmpty(pageURL, "(unnamed form)")
	}
	return hostbridge.ResolveURL(base, action)
}
