package panel

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/thecyberx/cyberx/pkg/beautify"
	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/netcalc"
	"github.com/thecyberx/cyberx/pkg/regextest"
	"github.com/thecyberx/cyberx/pkg/timestamp"
	"github.com/thecyberx/cyberx/pkg/uuidgen"
)

func (r *Registry) registerUtils() {
	quick := make([]string, 0, 4)
	for _, qp := range regextest.QuickPatterns() {
		quick = append(quick, strings.ToLower(qp.Label))
	}
	r.add(Info{
		ID:          "regex",
		Label:       "Regex",
		Category:    Utils,
		Description: "Test a regular expression against text and list the matches.",
		Params: []Param{
			{Name: "pattern", Type: TypeString, Description: "Regular expression"},
			{Name: "flags", Type: TypeString, Description: "Any of g, i, m, s", Default: "g"},
			{Name: "input", Type: TypeString, Description: "Text to search"},
			{Name: "quick", Type: TypeString, Description: "Use a built-in pattern", Enum: quick},
		},
	}, r.runRegex)

	r.add(Info{
		ID:          "timestamp",
		Label:       "Time",
		Category:    Utils,
		Description: "Convert between Unix timestamps and dates.",
		Params: []Param{
			{Name: "value", Type: TypeString, Description: "Unix seconds or milliseconds, or a date (default now)"},
			{Name: "layout", Type: TypeString, Description: "strftime layout to parse value with"},
			{Name: "format", Type: TypeString, Description: "strftime layout for an extra rendering"},
			{Name: "tz", Type: TypeString, Description: "IANA time zone for local renderings"},
		},
	}, r.runTimestamp)

	versions := make([]string, len(uuidgen.Versions))
	for i, v := range uuidgen.Versions {
		versions[i] = string(v)
	}
	r.add(Info{
		ID:          "uuid",
		Label:       "UUID",
		Category:    Utils,
		Description: "Generate UUIDs.",
		Params: []Param{
			{Name: "version", Type: TypeString, Description: "UUID version", Default: string(uuidgen.V4), Enum: versions},
			{Name: "count", Type: TypeInteger, Description: fmt.Sprintf("How many, 1 to %d", defaults.UUIDMaxCount), Default: 1},
			{Name: "uppercase", Type: TypeBoolean, Description: "Upper-case hex digits"},
			{Name: "nodashes", Type: TypeBoolean, Description: "Drop the dashes"},
		},
	}, r.runUUID)

	r.add(Info{
		ID:          "ip",
		Label:       "IP Calc",
		Category:    Utils,
		Description: "Compute IPv4 subnet boundaries and address renderings.",
		Params: []Param{
			{Name: "ip", Type: TypeString, Description: "Address, optionally with /prefix", Default: defaults.SubnetIP},
			{Name: "prefix", Type: TypeInteger, Description: "Prefix length when ip has none", Default: defaults.SubnetPrefix},
		},
	}, r.runIP)

	formats := make([]string, len(beautify.Formats))
	for i, f := range beautify.Formats {
		formats[i] = string(f)
	}
	r.add(Info{
		ID:          "beautify",
		Label:       "Beautify",
		Category:    Utils,
		Description: "Pretty-print or minify JSON, JavaScript, CSS, HTML or XML.",
		Params: []Param{
			{Name: "input", Type: TypeString, Description: "Source text"},
			{Name: "format", Type: TypeString, Description: "Source language", Default: string(beautify.JSON), Enum: formats},
			{Name: "minify", Type: TypeBoolean, Description: "Minify instead of beautify"},
			{Name: "indent", Type: TypeInteger, Description: fmt.Sprintf("Indent width, 0 to %d", beautify.MaxIndent), Default: defaults.IndentSize},
		},
	}, r.runBeautify)
}

type regexResult struct {
	regextest.Result
	Literal   string `json:"literal"`
	Highlight string `json:"highlight"`
}

func (r *Registry) runRegex(_ context.Context, a Args) (*Result, error) {
	pattern := a.String("pattern")
	if label := a.StringOr("quick", ""); label != "" {
		p, ok := regextest.LookupQuickPattern(label)
		if !ok {
			return nil, fmt.Errorf("%w: unknown quick pattern %q", ErrInvalidArg, label)
		}
		pattern = p
	}
	if pattern == "" {
		return nil, fmt.Errorf("%w: pattern", ErrMissingArg)
	}
	flags := a.StringOr("flags", "g")
	input := a.String("input")

	res := regextest.Test(pattern, flags, input)
	if res.Error != "" {
		return nil, fmt.Errorf("invalid regex: %s", res.Error)
	}

	t := newTable("#", "Index", "Match", "Groups")
	for i, m := range res.Matches {
		groups := ""
		if len(m.Groups) > 0 {
			groups = claimString(m.Groups)
		}
		t.add(strconv.Itoa(i+1), strconv.Itoa(m.Index), m.Match, groups)
	}
	literal := regextest.Literal(pattern, flags)
	return &Result{
		Data: regexResult{
			Result:    res,
			Literal:   literal,
			Highlight: regextest.Highlight(pattern, flags, input, "[[", "]]"),
		},
		Table: t.Table,
		Text:  literal,
	}, nil
}

type timeResult struct {
	Input string `json:"input,omitempty"`
	timestamp.Formats
}

func (r *Registry) runTimestamp(_ context.Context, a Args) (*Result, error) {
	loc := r.env.Location
	if tz := a.StringOr("tz", ""); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("%w: tz: %v", ErrInvalidArg, err)
		}
		loc = l
	}
	now := r.env.Now()
	opts := timestamp.Options{Location: loc, Strftime: a.StringOr("format", ""), Now: now}

	value := a.StringOr("value", "")
	t := now
	if value != "" {
		var err error
		t, err = parseTime(value, a.StringOr("layout", ""), loc)
		if err != nil {
			return nil, err
		}
	}

	f := timestamp.Format(t, opts)
	tbl := newTable("Format", "Value")
	tbl.add("Unix", strconv.FormatInt(f.Unix, 10))
	tbl.add("Milliseconds", strconv.FormatInt(f.Millis, 10))
	tbl.add("ISO 8601", f.ISO)
	tbl.add("Local", f.Local)
	tbl.add("UTC", f.UTC)
	tbl.add("Relative", f.Relative)
	if f.Custom != "" {
		tbl.add("Custom", f.Custom)
	}
	return &Result{
		Data:  timeResult{Input: value, Formats: f},
		Table: tbl.Table,
		Text:  strconv.FormatInt(f.Unix, 10),
	}, nil
}

// parseTime reads a date, or failing that a Unix timestamp.
func parseTime(value, layout string, loc *time.Location) (time.Time, error) {
	t, err := timestamp.ParseHuman(value, layout, loc)
	if err == nil {
		return t, nil
	}
	if layout != "" {
		return time.Time{}, err
	}
	if u, uerr := timestamp.ParseUnix(value); uerr == nil {
		return u, nil
	}
	return time.Time{}, err
}

func (r *Registry) runUUID(_ context.Context, a Args) (*Result, error) {
	count, err := a.Int("count", 1)
	if err != nil {
		return nil, err
	}
	ids, err := uuidgen.Generate(uuidgen.Options{
		Version:   uuidgen.Version(a.StringOr("version", string(uuidgen.V4))),
		Count:     count,
		Uppercase: a.Bool("uppercase"),
		NoDashes:  a.Bool("nodashes"),
	})
	if err != nil {
		return nil, err
	}

	t := newTable("#", "UUID")
	values := make([]string, len(ids))
	for i, id := range ids {
		t.add(strconv.Itoa(i+1), id.Value)
		values[i] = id.Value
	}
	return &Result{Data: ids, Table: t.Table, Text: strings.Join(values, "\n")}, nil
}

func (r *Registry) runIP(_ context.Context, a Args) (*Result, error) {
	prefix, err := a.Int("prefix", defaults.SubnetPrefix)
	if err != nil {
		return nil, err
	}
	ip, prefix, err := netcalc.ParseCIDR(a.StringOr("ip", defaults.SubnetIP), prefix)
	if err != nil {
		return nil, err
	}
	s, err := netcalc.Calculate(ip, prefix)
	if err != nil {
		return nil, err
	}

	t := newTable("Field", "Value")
	t.add("Address", s.Address.IP)
	t.add("CIDR", "/"+strconv.Itoa(s.Prefix))
	t.add("Netmask", s.Mask)
	t.add("Wildcard", s.Wildcard)
	t.add("Network", s.Network)
	t.add("Broadcast", s.Broadcast)
	t.add("First host", s.FirstHost)
	t.add("Last host", s.LastHost)
	t.add("Hosts", strconv.FormatUint(s.Hosts, 10))
	t.add("Binary", s.Address.Binary)
	t.add("Decimal", strconv.FormatUint(uint64(s.Address.Decimal), 10))
	t.add("Hex", s.Address.Hex)
	t.add("Octal", s.Address.Octal)
	return &Result{Data: s, Table: t.Table, Text: s.Network + "/" + strconv.Itoa(s.Prefix)}, nil
}

type beautifyResult struct {
	Format beautify.Format `json:"format"`
	Minify bool            `json:"minify,omitempty"`
	Output string          `json:"output"`
}

// String lets the console writer print the output as is.
func (b beautifyResult) String() string { return b.Output }

func (r *Registry) runBeautify(_ context.Context, a Args) (*Result, error) {
	format, err := beautify.ParseFormat(a.StringOr("format", string(beautify.JSON)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArg, err)
	}
	indent, err := a.Int("indent", defaults.IndentSize)
	if err != nil {
		return nil, err
	}

	src := a.String("input")
	var out string
	if a.Bool("minify") {
		out, err = beautify.Minify(src, format)
	} else {
		out, err = beautify.Beautify(src, format, indent)
	}
	if err != nil {
		return nil, err
	}
	return &Result{
		Data: beautifyResult{Format: format, Minify: a.Bool("minify"), Output: out},
		Text: out,
	}, nil
}
