package panel

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/thecyberx/cyberx/pkg/dorks"
	"github.com/thecyberx/cyberx/pkg/encoding"
	"github.com/thecyberx/cyberx/pkg/hasher"
	"github.com/thecyberx/cyberx/pkg/hostbridge"
	"github.com/thecyberx/cyberx/pkg/jsonutil"
	"github.com/thecyberx/cyberx/pkg/jwt"
	"github.com/thecyberx/cyberx/pkg/output/events"
	"github.com/thecyberx/cyberx/pkg/ruleset"
)

func (r *Registry) registerCore() {
	r.add(Info{
		ID:          "encoder",
		Label:       "Encode/Decode",
		Category:    Core,
		Description: "Encode or decode text. Encoders chain with '+', e.g. base64+url.",
		Params: []Param{
			{Name: "text", Type: TypeString, Description: "Input text"},
			{Name: "encoding", Type: TypeString, Description: "Encoder name or '+' chain: " + strings.Join(encoding.List(), ", "), Default: "base64"},
			{Name: "direction", Type: TypeString, Description: "encode or decode", Default: string(encoding.DirEncode), Enum: []string{string(encoding.DirEncode), string(encoding.DirDecode)}},
			{Name: "all", Type: TypeBoolean, Description: "Encode with every encoder"},
		},
	}, r.runEncoder)

	r.add(Info{
		ID:          "hasher",
		Label:       "Hash",
		Category:    Core,
		Description: "Hash text, or compute the Shodan favicon hash of a URL.",
		Params: []Param{
			{Name: "text", Type: TypeString, Description: "Input text"},
			{Name: "algorithm", Type: TypeString, Description: "One algorithm (default all)", Enum: hasher.Algorithms},
			{Name: "favicon", Type: TypeString, Description: "Favicon URL to fetch and hash with mmh3"},
		},
	}, r.runHasher)

	r.add(Info{
		ID:          "jwt",
		Label:       "JWT",
		Category:    Core,
		Description: "Decode a JSON Web Token and flag weak algorithms and claims. The signature is not verified.",
		Params: []Param{
			{Name: "token", Type: TypeString, Description: "Encoded token", Required: true},
		},
	}, r.runJWT)

	r.add(Info{
		ID:          "payloads",
		Label:       "Payloads",
		Category:    Core,
		Description: "Browse the payload library by category or search text.",
		Params: []Param{
			{Name: "category", Type: TypeArray, Description: "Category ids: " + strings.Join(r.payloads.IDs(), ", ")},
			{Name: "query", Type: TypeString, Description: "Case-insensitive search over title and payload"},
			{Name: "handlers", Type: TypeBoolean, Description: "List DOM event handler names instead"},
		},
	}, r.runPayloads)

	r.add(Info{
		ID:          "dorks",
		Label:       "Dorks",
		Category:    Core,
		Description: "Build Google dorks for a domain from operator templates or the prebuilt list.",
		Params: []Param{
			{Name: "domain", Type: TypeString, Description: "Target domain"},
			{Name: "keyword", Type: TypeString, Description: "Keyword or file extension"},
			{Name: "template", Type: TypeString, Description: "Template id (default all)"},
			{Name: "prebuilt", Type: TypeBoolean, Description: "Use the prebuilt dork list"},
		},
	}, r.runDorks)
}

type encodeResult struct {
	Encoding  string             `json:"encoding"`
	Direction encoding.Direction `json:"direction"`
	Output    string             `json:"output"`
}

func (r *Registry) runEncoder(_ context.Context, a Args) (*Result, error) {
	text := a.String("text")
	if a.Bool("all") {
		all := encoding.EncodeWithAll(text)
		t := newTable("Encoding", "Output")
		for _, name := range encoding.List() {
			if out, ok := all[name]; ok {
				t.add(name, out)
			}
		}
		return &Result{Data: all, Table: t.Table}, nil
	}

	name := a.StringOr("encoding", "base64")
	dir := encoding.Direction(strings.ToLower(a.StringOr("direction", string(encoding.DirEncode))))
	out, err := encoding.Transform(text, name, dir)
	if err != nil {
		return nil, err
	}
	t := newTable("Encoding", "Direction", "Output")
	t.add(name, string(dir), out)
	return &Result{
		Data:  encodeResult{Encoding: name, Direction: dir, Output: out},
		Table: t.Table,
		Text:  out,
	}, nil
}

type faviconResult struct {
	URL   string `json:"url"`
	Hash  int32  `json:"hash"`
	Query string `json:"query"`
}

func (r *Registry) runHasher(ctx context.Context, a Args) (*Result, error) {
	if u := a.StringOr("favicon", ""); u != "" {
		resp, err := hostbridge.Fetch(ctx, r.env.Host, r.env.Client, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("fetch favicon: %w", err)
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("fetch favicon: %s returned %d", u, resp.StatusCode)
		}
		h := hasher.FaviconHash(resp.Body)
		res := faviconResult{URL: u, Hash: h, Query: "http.favicon.hash:" + strconv.Itoa(int(h))}
		t := newTable("URL", "mmh3", "Shodan query")
		t.add(u, strconv.Itoa(int(h)), res.Query)
		return &Result{Data: res, Table: t.Table, Text: strconv.Itoa(int(h))}, nil
	}

	text := a.String("text")
	var digests []hasher.Digest
	if alg := a.StringOr("algorithm", ""); alg != "" {
		v, err := hasher.Sum(alg, text)
		if err != nil {
			return nil, err
		}
		digests = []hasher.Digest{{Algorithm: strings.ToLower(alg), Value: v}}
	} else {
		digests = hasher.SumAll(text)
	}

	t := newTable("Algorithm", "Digest")
	for _, d := range digests {
		t.add(strings.ToUpper(d.Algorithm), d.Value)
	}
	res := &Result{Data: digests, Table: t.Table}
	if len(digests) == 1 {
		res.Text = digests[0].Value
	}
	return res, nil
}

func (r *Registry) runJWT(_ context.Context, a Args) (*Result, error) {
	in, err := jwt.Inspect(strings.TrimSpace(a.String("token")), r.env.Now(), r.env.Location)
	if err != nil {
		return nil, err
	}

	t := newTable("Section", "Field", "Value")
	for _, k := range sortedKeys(in.Header) {
		t.add("header", k, claimString(in.Header[k]))
	}
	for _, k := range sortedKeys(in.Payload) {
		v := claimString(in.Payload[k])
		if tc, ok := in.TimeClaims[k]; ok {
			v = tc
		}
		t.add("payload", k, v)
	}
	t.add("signature", "value", in.Signature)
	t.add("signature", "verified", in.Verified)
	t.add("status", "valid", strconv.FormatBool(in.Valid))
	t.add("status", "message", in.Status)
	for _, issue := range in.Analysis.Issues {
		t.add("issue", string(issue.Severity), issue.Message)
	}

	payload, err := jsonutil.MarshalIndent(in.Payload, "", "  ")
	if err != nil {
		payload = nil
	}
	return &Result{
		Data:     in,
		Table:    t.Table,
		Severity: in.Analysis.Risk,
		Text:     string(payload),
	}, nil
}

type payloadResult struct {
	Categories    []ruleset.PayloadCategory `json:"categories,omitempty"`
	EventHandlers []string                  `json:"event_handlers,omitempty"`
	Count         int                       `json:"count"`
}

func (r *Registry) runPayloads(_ context.Context, a Args) (*Result, error) {
	if a.Bool("handlers") {
		handlers := r.payloads.EventHandlers()
		t := newTable("Handler")
		for _, h := range handlers {
			t.add(h)
		}
		return &Result{
			Data:  payloadResult{EventHandlers: handlers, Count: len(handlers)},
			Table: t.Table,
		}, nil
	}

	ids := a.Strings("category")
	for _, id := range ids {
		if _, err := r.payloads.Category(id); err != nil {
			return nil, err
		}
	}
	cats := r.payloads.Filter(a.String("query"), ids...)

	t := newTable("Category", "Title", "Payload")
	n := 0
	for _, c := range cats {
		for _, p := range c.Payloads {
			t.add(c.Name, p.Title, p.Payload)
			n++
		}
	}
	res := &Result{Data: payloadResult{Categories: cats, Count: n}, Table: t.Table}
	if n == 1 {
		res.Text = t.Rows[0][2]
	}
	return res, nil
}

func (r *Registry) runDorks(_ context.Context, a Args) (*Result, error) {
	opts := dorks.Options{
		Domain:  a.StringOr("domain", ""),
		Keyword: a.StringOr("keyword", ""),
	}

	var list []dorks.Dork
	switch id := a.StringOr("template", ""); {
	case a.Bool("prebuilt"):
		list = r.dorks.Prebuilt(opts.Domain)
	case id != "":
		d, err := r.dorks.Generate(id, opts)
		if err != nil {
			return nil, err
		}
		list = []dorks.Dork{d}
	default:
		list = r.dorks.GenerateAll(opts)
	}

	t := newTable("Name", "Dork", "Search URL")
	for _, d := range list {
		t.add(d.Name, d.Dork, d.URL)
	}
	res := &Result{Data: list, Table: t.Table}
	if len(list) == 1 {
		res.Text = list[0].Dork
	}
	return res, nil
}

// table wraps events.Table with a row builder.
type table struct {
	*events.Table
}

func newTable(columns ...string) table {
	return table{&events.Table{Columns: columns, Rows: [][]string{}}}
}

func (t table) add(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// claimString renders a decoded JSON value for a table cell.
func claimString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case nil:
		return "null"
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	b, err := jsonutil.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
