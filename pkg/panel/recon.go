package panel

import (
	"context"
	"fmt"
	"strconv"

	"github.com/thecyberx/cyberx/pkg/extract"
	"github.com/thecyberx/cyberx/pkg/finding"
	"github.com/thecyberx/cyberx/pkg/hostbridge"
)

var urlParam = Param{Name: "url", Type: TypeString, Description: "Navigate here before scanning (default: active tab)"}

func (r *Registry) registerRecon() {
	r.add(Info{
		ID:          "jsextract",
		Label:       "JS Extract",
		Category:    Recon,
		Description: "List external scripts and API endpoints referenced by inline scripts.",
		Params:      []Param{urlParam},
	}, r.runJSExtract)

	r.add(Info{
		ID:          "links",
		Label:       "Links",
		Category:    Recon,
		Description: "List the page's anchors, classified by type.",
		Params: []Param{
			urlParam,
			{Name: "type", Type: TypeString, Description: "Only links of this type", Enum: []string{
				string(extract.LinkInternal), string(extract.LinkExternal), string(extract.LinkJS),
				string(extract.LinkMailto), string(extract.LinkTel), string(extract.LinkAnchor),
			}},
		},
	}, r.runLinks)

	r.add(Info{
		ID:          "forms",
		Label:       "Forms",
		Category:    Recon,
		Description: "List hidden form inputs and flag likely secrets.",
		Params:      []Param{urlParam},
	}, r.runForms)

	r.add(Info{
		ID:          "comments",
		Label:       "Comments",
		Category:    Recon,
		Description: "List HTML and inline script comments and flag sensitive ones.",
		Params:      []Param{urlParam},
	}, r.runComments)

	r.add(Info{
		ID:          "tech",
		Label:       "Tech",
		Category:    Recon,
		Description: "Fingerprint frameworks, servers and libraries.",
		Params:      []Param{urlParam},
	}, r.runTech)
}

// navigate moves the active tab to the url argument, if one is given.
func (r *Registry) navigate(ctx context.Context, a Args) error {
	u := a.StringOr("url", "")
	if u == "" {
		return nil
	}
	nav, ok := r.env.Host.(hostbridge.Navigator)
	if !ok {
		return fmt.Errorf("navigate %s: %w", u, hostbridge.ErrUnsupported)
	}
	_, err := nav.Navigate(ctx, u)
	return err
}

// scan navigates if asked, then applies fn to one snapshot of the page.
func scan[T any](ctx context.Context, r *Registry, a Args, fn func(*hostbridge.Snapshot) []T) ([]T, error) {
	if err := r.navigate(ctx, a); err != nil {
		return nil, err
	}
	return extract.Scan(ctx, r.env.Host, r.logger, fn), nil
}

type jsResult struct {
	Scripts   []string           `json:"scripts"`
	Endpoints []extract.Endpoint `json:"endpoints"`
}

func (r *Registry) runJSExtract(ctx context.Context, a Args) (*Result, error) {
	out := jsResult{Scripts: []string{}}
	endpoints, err := scan(ctx, r, a, func(s *hostbridge.Snapshot) []extract.Endpoint {
		if s.Scripts != nil {
			out.Scripts = s.Scripts
		}
		return extract.Endpoints(s)
	})
	if err != nil {
		return nil, err
	}
	out.Endpoints = endpoints

	t := newTable("Kind", "Value", "Method", "Source")
	for _, s := range out.Scripts {
		t.add("script", s, "", "")
	}
	for _, e := range out.Endpoints {
		t.add("endpoint", e.Path, e.Method, e.Source)
	}
	return &Result{Data: out, Table: t.Table}, nil
}

func (r *Registry) runLinks(ctx context.Context, a Args) (*Result, error) {
	links, err := scan(ctx, r, a, extract.Links)
	if err != nil {
		return nil, err
	}
	if kind := extract.LinkType(a.StringOr("type", "")); kind != "" {
		kept := links[:0]
		for _, l := range links {
			if l.Type == kind {
				kept = append(kept, l)
			}
		}
		links = kept
	}

	t := newTable("Type", "Href", "Text")
	for _, l := range links {
		t.add(string(l.Type), l.Href, l.Text)
	}
	return &Result{Data: links, Table: t.Table}, nil
}

func (r *Registry) runForms(ctx context.Context, a Args) (*Result, error) {
	inputs, err := scan(ctx, r, a, extract.HiddenInputs)
	if err != nil {
		return nil, err
	}

	t := newTable("Form", "Name", "Value", "Sensitive")
	var sev finding.Severity
	for _, in := range inputs {
		t.add(in.Form, in.Name, in.Value, strconv.FormatBool(in.Sensitive))
		if in.Sensitive {
			sev = finding.Low
		}
	}
	return &Result{Data: inputs, Table: t.Table, Severity: sev}, nil
}

func (r *Registry) runComments(ctx context.Context, a Args) (*Result, error) {
	comments, err := scan(ctx, r, a, extract.Comments)
	if err != nil {
		return nil, err
	}

	t := newTable("Type", "Context", "Content", "Sensitive")
	var sev finding.Severity
	for _, c := range comments {
		t.add(c.Type, c.Context, c.Content, strconv.FormatBool(c.Sensitive))
		if c.Sensitive {
			sev = finding.Low
		}
	}
	return &Result{Data: comments, Table: t.Table, Severity: sev}, nil
}

func (r *Registry) runTech(ctx context.Context, a Args) (*Result, error) {
	det, err := r.Detector()
	if err != nil {
		return nil, err
	}
	techs, err := scan(ctx, r, a, det.Detect)
	if err != nil {
		return nil, err
	}

	t := newTable("Technology", "Category", "Confidence", "Version")
	for _, tech := range techs {
		t.add(tech.Name, tech.Category, string(tech.Confidence), tech.Version)
	}
	return &Result{Data: techs, Table: t.Table}, nil
}
