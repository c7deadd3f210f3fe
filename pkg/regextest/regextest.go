// Package regextest runs a user pattern with JavaScript-style flags against
// a test string and reports matches with their offsets and named groups.
package regextest

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/thecyberx/cyberx/pkg/bufpool"
	"github.com/thecyberx/cyberx/pkg/regexcache"
)

// Flags holds the parsed flag set.
type Flags struct {
	Global     bool
	IgnoreCase bool
	Multiline  bool
	DotAll     bool
}

// ParseFlags accepts any of g, i, m, s at most once each. u is accepted and
// ignored since matching is always Unicode-aware.
func ParseFlags(s string) (Flags, error) {
	var f Flags
	seen := make(map[rune]bool, len(s))
	for _, c := range s {
		if seen[c] {
			return f, fmt.Errorf("duplicate flag %q", c)
		}
		seen[c] = true
		switch c {
		case 'g':
			f.Global = true
		case 'i':
			f.IgnoreCase = true
		case 'm':
			f.Multiline = true
		case 's':
			f.DotAll = true
		case 'u':
		default:
			return f, fmt.Errorf("invalid flag %q", c)
		}
	}
	return f, nil
}

func (f Flags) inline() string {
	var out string
	if f.IgnoreCase {
		out += "i"
	}
	if f.Multiline {
		out += "m"
	}
	if f.DotAll {
		out += "s"
	}
	return out
}

// Match is one match. Index is a rune offset into the test string.
type Match struct {
	Match  string            `json:"match"`
	Index  int               `json:"index"`
	Groups map[string]string `json:"groups,omitempty"`
}

// Result is the panel output. Error is set instead of returning a Go error
// so callers can render it inline.
type Result struct {
	Pattern string  `json:"pattern"`
	Flags   string  `json:"flags"`
	Matches []Match `json:"matches"`
	Error   string  `json:"error,omitempty"`
}

// Compile parses flags and compiles pattern.
func Compile(pattern, flags string) (*regexp.Regexp, Flags, error) {
	f, err := ParseFlags(flags)
	if err != nil {
		return nil, f, err
	}
	re, err := regexcache.GetWithFlags(pattern, f.inline())
	if err != nil {
		return nil, f, err
	}
	return re, f, nil
}

// Test runs pattern against input. In global mode every non-overlapping
// match is returned left to right, otherwise at most one. A bad pattern or
// flag yields an empty match list and Error.
//
// Global matching follows Go's FindAll rules, not JavaScript's lastIndex
// loop: an empty match directly after the end of a previous match is
// dropped. So a* with g on "baaa" reports "" at 0 and "aaa" at 1, where a
// browser also reports "" at 4.
func Test(pattern, flags, input string) Result {
	res := Result{Pattern: pattern, Flags: flags, Matches: []Match{}}
	if pattern == "" || input == "" {
		return res
	}
	re, f, err := Compile(pattern, flags)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	limit := 1
	if f.Global {
		limit = -1
	}
	names := re.SubexpNames()
	for _, loc := range re.FindAllStringSubmatchIndex(input, limit) {
		m := Match{
			Match: input[loc[0]:loc[1]],
			Index: utf8.RuneCountInString(input[:loc[0]]),
		}
		for i, name := range names {
			if name == "" || loc[2*i] < 0 {
				continue
			}
			if m.Groups == nil {
				m.Groups = make(map[string]string)
			}
			m.Groups[name] = input[loc[2*i]:loc[2*i+1]]
		}
		res.Matches = append(res.Matches, m)
	}
	return res
}

// Highlight wraps each match (only the first without g) in before/after.
// A bad pattern returns input unchanged.
func Highlight(pattern, flags, input, before, after string) string {
	if pattern == "" || input == "" {
		return input
	}
	re, f, err := Compile(pattern, flags)
	if err != nil {
		return input
	}
	limit := 1
	if f.Global {
		limit = -1
	}

	sb := bufpool.GetStringSized(len(input) + 16)
	defer bufpool.PutString(sb)
	last := 0
	for _, loc := range re.FindAllStringIndex(input, limit) {
		sb.WriteString(input[last:loc[0]])
		sb.WriteString(before)
		sb.WriteString(input[loc[0]:loc[1]])
		sb.WriteString(after)
		last = loc[1]
	}
	sb.WriteString(input[last:])
	return sb.String()
}

// Literal renders the pattern in /pattern/flags form for copying.
func Literal(pattern, flags string) string {
	return "/" + pattern + "/" + flags
}

// QuickPattern is a ready-made pattern.
type QuickPattern struct {
	Label   string `json:"label"`
	Pattern string `json:"pattern"`
}

// QuickPatterns returns the built-in patterns.
func QuickPatterns() []QuickPattern {
	return []QuickPattern{
		{Label: "Email", Pattern: `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`},
		{Label: "IP", Pattern: `\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`},
		{Label: "URL", Pattern: `https?://[\w.-]+(?:/[\w./-]*)?`},
		{Label: "Phone", Pattern: `\+?\d{1,4}[-.\s]?\(?\d{1,3}\)?[-.\s]?\d{1,4}[-.\s]?\d{1,4}`},
	}
}

// LookupQuickPattern looks up a built-in pattern by label, case-insensitively.
func LookupQuickPattern(label string) (string, bool) {
	for _, qp := range QuickPatterns() {
		if strings.EqualFold(qp.Label, label) {
			return qp.Pattern, true
		}
	}
	return "", false
}
