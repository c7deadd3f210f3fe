// Package beautify reformats JSON, JavaScript, CSS, HTML and XML source.
// Only JSON is parsed; the other formats use line-splitting heuristics and
// never fail.
package beautify

import (
	"fmt"
	"strings"

	"github.com/thecyberx/cyberx/pkg/jsonutil"
	"github.com/thecyberx/cyberx/pkg/regexcache"
)

// Format is a source language.
type Format string

const (
	JSON Format = "json"
	JS   Format = "js"
	CSS  Format = "css"
	HTML Format = "html"
	XML  Format = "xml"
)

// Formats in display order.
var Formats = []Format{JSON, JS, HTML, CSS, XML}

// MaxIndent matches the JSON.stringify limit.
const MaxIndent = 10

var (
	jsOpen      = regexcache.MustGet(`([{;])\s*`)
	jsClose     = regexcache.MustGet(`}\s*`)
	jsComma     = regexcache.MustGet(`,\s*`)
	cssOpen     = regexcache.MustGet(`\s*{\s*`)
	cssClose    = regexcache.MustGet(`\s*}\s*`)
	cssSemi     = regexcache.MustGet(`;\s*`)
	tagBoundary = regexcache.MustGet(`><`)
	closingTag  = regexcache.MustGet(`^</\w`)
	openingTag  = regexcache.MustGet(`^<\w[^>]*[^/]>$`)
	whitespace  = regexcache.MustGet(`\s+`)
	punctSpace  = regexcache.MustGet(`\s*([{};:,])\s*`)
	interTag    = regexcache.MustGet(`>\s+<`)
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Beautify pretty-prints src. indent is clamped to 0..MaxIndent. Only JSON
// input can produce an error.
func Beautify(src string, format Format, indent int) (string, error) {
	indent = max(0, min(MaxIndent, indent))
	switch format {
	case JSON:
		if indent == 0 {
			return minifyJSON(src)
		}
		out, err := jsonutil.Indent([]byte(src), strings.Repeat(" ", indent))
		if err != nil {
			return "", fmt.Errorf("invalid JSON: %w", err)
		}
		return string(out), nil
	case JS:
		return beautifyJS(src), nil
	case CSS:
		return beautifyCSS(src, indent), nil
	case HTML, XML:
		return formatMarkup(src, indent), nil
	}
	return "", fmt.Errorf("unknown format %q", format)
}

// Minify strips insignificant whitespace.
func Minify(src string, format Format) (string, error) {
	switch format {
	case JSON:
		return minifyJSON(src)
	case JS, CSS:
		s := whitespace.ReplaceAllString(src, " ")
		return strings.TrimSpace(punctSpace.ReplaceAllString(s, "$1")), nil
	case HTML, XML:
		s := interTag.ReplaceAllString(src, "><")
		return strings.TrimSpace(whitespace.ReplaceAllString(s, " ")), nil
	}
	return "", fmt.Errorf("unknown format %q", format)
}

func minifyJSON(src string) (string, error) {
	out, err := jsonutil.Compact([]byte(src))
	if err != nil {
		return "", fmt.Errorf("invalid JSON: %w", err)
	}
	return string(out), nil
}

// beautifyJS breaks after braces, semicolons and commas. It does not
// understand strings or comments.
func beautifyJS(src string) string {
	s := jsOpen.ReplaceAllString(src, "$1\n")
	s = jsClose.ReplaceAllString(s, "\n}\n")
	s = jsComma.ReplaceAllString(s, ",\n")
	return joinNonEmpty(strings.Split(s, "\n"), func(line string) string {
		return strings.TrimSpace(line)
	})
}

// beautifyCSS puts each declaration on its own indented line.
func beautifyCSS(src string, indent int) string {
	s := cssOpen.ReplaceAllString(src, " {\n")
	s = cssClose.ReplaceAllString(s, "\n}\n")
	s = cssSemi.ReplaceAllString(s, ";\n")
	pad := strings.Repeat(" ", indent)
	return joinNonEmpty(strings.Split(s, "\n"), func(line string) string {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.ContainsAny(line, "{}") {
			return trimmed
		}
		return pad + trimmed
	})
}

// formatMarkup puts each tag on its own line, indenting after an opening
// tag and outdenting before a closing one. Void elements without a
// trailing slash also indent.
func formatMarkup(src string, indent int) string {
	nodes := strings.Split(tagBoundary.ReplaceAllString(src, ">\n<"), "\n")
	var sb strings.Builder
	pad := 0
	for _, node := range nodes {
		if closingTag.MatchString(node) {
			pad = max(0, pad-indent)
		}
		sb.WriteString(strings.Repeat(" ", pad))
		sb.WriteString(strings.TrimSpace(node))
		sb.WriteByte('\n')
		if openingTag.MatchString(node) {
			pad += indent
		}
	}
	return strings.TrimSpace(sb.String())
}

func joinNonEmpty(lines []string, fn func(string) string) string {
	out := lines[:0]
	for _, line := range lines {
		if l := fn(line); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
