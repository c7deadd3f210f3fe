package extract

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/hostbridge"
	"github.com/thecyberx/cyberx/pkg/regexcache"
	"github.com/thecyberx/cyberx/pkg/strutil"
)

// Comment kinds.
const (
	CommentHTML = "html"
	CommentJS   = "js"
)

// ContextInlineScript is the context of every JS comment.
const ContextInlineScript = "inline script"

// Comment is an HTML or JavaScript comment left in the page.
type Comment struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	Context   string `json:"context"`
	Sensitive bool   `json:"sensitive"`
}

var (
	lineComment  = regexcache.MustGet(`//[^\n]+`)
	blockComment = regexcache.MustGet(`/\*[\s\S]*?\*/`)
)

// Comments returns HTML comments inside the document element, then the JS
// comments of each inline script. Nothing is deduplicated.
func Comments(snap *hostbridge.Snapshot) []Comment {
	out := htmlComments(snap.HTML)
	for _, script := range snap.InlineScripts {
		out = append(out, scriptComments(script)...)
	}
	return out
}

func htmlComments(markup string) []Comment {
	out := []Comment{}
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return out
	}
	root := documentElement(doc)
	if root == nil {
		return out
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.CommentNode {
				if text := strings.TrimSpace(c.Data); utf8.RuneCountInString(text) > 2 {
					ctx := "root"
					if n.Type == html.ElementNode {
						ctx = strings.ToUpper(n.Data)
					}
					out = append(out, newComment(CommentHTML, strutil.Truncate(text, defaults.HTMLCommentMaxLen), ctx))
				}
			}
			walk(c)
		}
	}
	walk(root)
	return out
}

func documentElement(doc *html.Node) *html.Node {
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Html {
			return c
		}
	}
	return nil
}

func scriptComments(script string) []Comment {
	var out []Comment
	for _, c := range lineComment.FindAllString(script, -1) {
		if utf8.RuneCountInString(c) > 3 {
			out = append(out, newComment(CommentJS, strutil.Truncate(c, defaults.ScriptCommentMaxLen), ContextInlineScript))
		}
	}
	for _, c := range blockComment.FindAllString(script, -1) {
		if utf8.RuneCountInString(c) > 4 && !strings.HasPrefix(c, "/*!") {
			out = append(out, newComment(CommentJS, strutil.Truncate(c, defaults.ScriptCommentMaxLen), ContextInlineScript))
		}
	}
	return out
}

func newComment(kind, content, ctx string) Comment {
	return Comment{Type: kind, Content: content, Context: ctx, Sensitive: SensitiveComment(content)}
}
