package panel

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/thecyberx/cyberx/pkg/cookies"
	"github.com/thecyberx/cyberx/pkg/cors"
	"github.com/thecyberx/cyberx/pkg/finding"
	"github.com/thecyberx/cyberx/pkg/headers"
	"github.com/thecyberx/cyberx/pkg/revshell"
)

func (r *Registry) registerSecurity() {
	r.add(Info{
		ID:          "revshell",
		Label:       "RevShell",
		Category:    Security,
		Description: "Generate reverse shell one-liners for a listener.",
		Params: []Param{
			{Name: "ip", Type: TypeString, Description: "Listener address or host name"},
			{Name: "port", Type: TypeString, Description: "Listener port"},
			{Name: "shell", Type: TypeString, Description: "Shell id (default all): " + strings.Join(r.shells.IDs(), ", ")},
		},
	}, r.runRevShell)

	r.add(Info{
		ID:          "cors",
		Label:       "CORS",
		Category:    Security,
		Description: "Send a CORS preflight with a hostile Origin, or probe a set of derived origins.",
		Params: []Param{
			{Name: "url", Type: TypeString, Description: "Target URL (default: active tab)"},
			{Name: "origin", Type: TypeString, Description: "Origin to test"},
			{Name: "scan", Type: TypeBoolean, Description: "Probe every derived origin"},
		},
	}, r.runCORS)

	r.add(Info{
		ID:          "headers",
		Label:       "Headers",
		Category:    Security,
		Description: "Grade the security headers of a response.",
		Params: []Param{
			{Name: "url", Type: TypeString, Description: "Target URL (default: active tab)"},
			{Name: "urls", Type: TypeArray, Description: "Check several URLs, rate limited"},
		},
	}, r.runHeaders)

	r.add(Info{
		ID:          "cookies",
		Label:       "Cookies",
		Category:    Security,
		Description: "List, add, delete or export the active tab's cookies.",
		Params: []Param{
			{Name: "action", Type: TypeString, Description: "Action", Default: "list", Enum: []string{"list", "add", "delete", "export"}},
			{Name: "name", Type: TypeString, Description: "Cookie name for add and delete"},
			{Name: "value", Type: TypeString, Description: "Cookie value for add"},
			{Name: "filter", Type: TypeString, Description: "Glob over cookie names, e.g. sess* or {_ga,_gid}"},
		},
	}, r.runCookies)
}

func (r *Registry) runRevShell(_ context.Context, a Args) (*Result, error) {
	l := revshell.Listener{IP: a.StringOr("ip", r.env.ShellIP), Port: a.StringOr("port", r.env.ShellPort)}

	var shells []revshell.Shell
	if id := a.StringOr("shell", ""); id != "" {
		s, err := r.shells.Generate(id, l)
		if err != nil {
			return nil, err
		}
		shells = []revshell.Shell{s}
	} else {
		all, err := r.shells.GenerateAll(l)
		if err != nil {
			return nil, err
		}
		shells = all
	}

	t := newTable("Shell", "Command")
	for _, s := range shells {
		t.add(s.Name, s.Command)
	}
	res := &Result{Data: shells, Table: t.Table}
	if len(shells) == 1 {
		res.Text = shells[0].Command
	}
	return res, nil
}

// targetURL returns the url argument, or the active tab's URL.
func (r *Registry) targetURL(ctx context.Context, a Args) (string, error) {
	if u := a.StringOr("url", ""); u != "" {
		return u, nil
	}
	tab, err := r.env.Host.ActiveTab(ctx)
	if err != nil {
		return "", err
	}
	return tab.URL, nil
}

func (r *Registry) runCORS(ctx context.Context, a Args) (*Result, error) {
	target, err := r.targetURL(ctx, a)
	if err != nil {
		return nil, err
	}

	if a.Bool("scan") {
		scan, err := r.cors.Scan(ctx, target)
		if err != nil {
			return nil, err
		}
		t := newTable("Type", "Severity", "Tested origin", "Allow origin", "Credentials")
		for _, v := range scan.Vulnerabilities {
			t.add(string(v.Type), string(v.Severity), v.TestedOrigin, v.AllowOrigin, strconv.FormatBool(v.Credentials))
		}
		return &Result{Data: scan, Table: t.Table, Severity: scan.Severity}, nil
	}

	check, err := r.cors.Check(ctx, target, a.StringOr("origin", ""))
	if err != nil {
		return nil, err
	}
	t := newTable("Field", "Value")
	t.add("URL", check.URL)
	t.add("Test origin", check.TestOrigin)
	t.add("Access-Control-Allow-Origin", check.Origin)
	t.add("Allow-Credentials", strconv.FormatBool(check.Credentials))
	t.add("Allow-Methods", check.Methods)
	t.add("Allow-Headers", check.Headers)
	t.add("Status", string(check.Status))
	if check.Error != "" {
		t.add("Error", check.Error)
	}
	return &Result{Data: check, Table: t.Table, Severity: corsSeverity(check)}, nil
}

// corsSeverity grades a single preflight. A reflected origin that also
// allows credentials is critical.
func corsSeverity(c *cors.Check) finding.Severity {
	if c.Error != "" {
		return ""
	}
	sev := c.Status.Severity()
	if c.Status == cors.StatusReflected && c.Credentials {
		sev = finding.Critical
	}
	return sev
}

func (r *Registry) runHeaders(ctx context.Context, a Args) (*Result, error) {
	if urls := a.Strings("urls"); len(urls) > 0 {
		reports, err := r.headers.CheckAll(ctx, urls)
		if err != nil {
			return nil, err
		}
		t := newTable("URL", "Header", "Status", "Value")
		var sev finding.Severity
		for _, rep := range reports {
			if rep.Error != "" {
				t.add(rep.URL, "", "error", rep.Error)
				continue
			}
			for _, res := range rep.Results {
				t.add(rep.URL, res.Name, string(res.Status), res.Value)
			}
			sev = finding.Max(sev, headerSeverity(rep))
		}
		return &Result{Data: reports, Table: t.Table, Severity: sev}, nil
	}

	var (
		rep *headers.Report
		err error
	)
	if u := a.StringOr("url", ""); u != "" {
		rep, err = r.headers.Check(ctx, u)
	} else {
		rep, err = r.headers.CheckActive(ctx)
	}
	if err != nil {
		return nil, err
	}

	t := newTable("Header", "Status", "Value", "Description")
	for _, res := range rep.Results {
		t.add(res.Name, string(res.Status), res.Value, res.Description)
	}
	return &Result{
		Data:     rep,
		Table:    t.Table,
		Severity: headerSeverity(rep),
		Text:     fmt.Sprintf("%d%%", rep.Score),
	}, nil
}

// headerSeverity maps the worst header verdict: a bad value is medium, a
// missing or weak header low.
func headerSeverity(rep *headers.Report) finding.Severity {
	sev := finding.Info
	for _, res := range rep.Results {
		switch res.Status {
		case headers.Bad:
			sev = finding.Max(sev, finding.Medium)
		case headers.Missing, headers.Warning:
			sev = finding.Max(sev, finding.Low)
		}
	}
	return sev
}

type cookieResult struct {
	Action  string           `json:"action"`
	Removed int              `json:"removed,omitempty"`
	Header  string           `json:"header,omitempty"`
	Listing *cookies.Listing `json:"listing"`
}

func (r *Registry) runCookies(ctx context.Context, a Args) (*Result, error) {
	action := strings.ToLower(a.StringOr("action", "list"))
	out := cookieResult{Action: action}

	switch action {
	case "add":
		if err := r.cookies.Add(ctx, a.StringOr("name", ""), a.String("value")); err != nil {
			return nil, err
		}
	case "delete":
		n, err := r.cookies.Delete(ctx, a.StringOr("name", ""))
		if err != nil {
			return nil, err
		}
		out.Removed = n
	}

	listing, err := r.cookies.List(ctx, a.StringOr("filter", ""))
	if err != nil {
		return nil, err
	}
	out.Listing = listing
	if action == "export" {
		out.Header = cookies.Export(listing.Records())
	}

	t := newTable("Name", "Value", "Domain", "Path", "Secure", "HttpOnly", "SameSite", "Expires")
	for _, c := range listing.Cookies {
		t.add(c.Name, c.Value, c.Domain, c.Path,
			strconv.FormatBool(c.Secure), strconv.FormatBool(c.HTTPOnly),
			c.SameSite, r.cookieExpiry(c))
	}
	return &Result{Data: out, Table: t.Table, Text: out.Header}, nil
}

func (r *Registry) cookieExpiry(c cookies.Cookie) string {
	if c.Session() {
		return c.Expiry
	}
	return c.Expires.In(r.env.Location).Format(time.DateTime) + " (" + c.Expiry + ")"
}
