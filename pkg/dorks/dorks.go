// Package dorks fills Google dork operator templates and serves the
// prebuilt exposure queries.
package dorks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/encoding"
	"github.com/thecyberx/cyberx/pkg/ruleset"
)

// ErrUnknownTemplate is returned for a template ID not in the table.
var ErrUnknownTemplate = errors.New("dorks: unknown template")

// SearchBase is the Google search endpoint.
const SearchBase = "https://www.google.com/search?q="

// Options are the user inputs. Empty fields fall back to defaults.
type Options struct {
	Domain  string
	Keyword string
}

// Dork is a rendered query.
type Dork struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Dork string `json:"dork"`
	URL  string `json:"url"`
}

// Generator renders templates from a rule set.
type Generator struct {
	templates []ruleset.DorkTemplate
	prebuilt  []ruleset.PrebuiltDork
}

// New returns a generator. A nil set uses the bundled tables.
func New(set *ruleset.Set) *Generator {
	if set == nil {
		set = ruleset.Default()
	}
	return &Generator{templates: set.Dorks, prebuilt: set.Prebuilt}
}

// Templates returns the operator templates in declared order.
func (g *Generator) Templates() []ruleset.DorkTemplate {
	return g.templates
}

// Fill substitutes the first occurrence of each placeholder. {ext} takes
// the keyword when one is given.
func Fill(template string, opts Options) string {
	domain := orDefault(opts.Domain, defaults.DorkDomain)
	dork := strings.Replace(template, "{domain}", domain, 1)
	dork = strings.Replace(dork, "{keyword}", orDefault(opts.Keyword, defaults.DorkKeyword), 1)
	dork = strings.Replace(dork, "{ext}", orDefault(opts.Keyword, defaults.DorkExt), 1)
	return strings.Replace(dork, "{url}", domain, 1)
}

// Generate renders the template with the given ID.
func (g *Generator) Generate(id string, opts Options) (Dork, error) {
	for _, t := range g.templates {
		if strings.EqualFold(t.ID, id) {
			d := Fill(t.Template, opts)
			return Dork{ID: t.ID, Name: t.Name, Dork: d, URL: SearchURL(d)}, nil
		}
	}
	return Dork{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, id)
}

// GenerateAll renders every template.
func (g *Generator) GenerateAll(opts Options) []Dork {
	out := make([]Dork, 0, len(g.templates))
	for _, t := range g.templates {
		d := Fill(t.Template, opts)
		out = append(out, Dork{ID: t.ID, Name: t.Name, Dork: d, URL: SearchURL(d)})
	}
	return out
}

// Prebuilt returns the ready-made queries, scoped with "site:<domain> "
// when domain is set.
func (g *Generator) Prebuilt(domain string) []Dork {
	domain = strings.TrimSpace(domain)
	out := make([]Dork, 0, len(g.prebuilt))
	for _, p := range g.prebuilt {
		d := p.Dork
		if domain != "" {
			d = "site:" + domain + " " + d
		}
		out = append(out, Dork{Name: p.Name, Dork: d, URL: SearchURL(d)})
	}
	return out
}

var queryEncoder = &encoding.URLEncoder{}

// SearchURL returns the Google search URL for dork.
func SearchURL(dork string) string {
	q, _ := queryEncoder.Encode(dork)
	return SearchBase + q
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}
