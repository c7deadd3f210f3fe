package extract

import (
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/hostbridge"
	"github.com/thecyberx/cyberx/pkg/regexcache"
)

// Endpoint is an API path found in an inline script.
type Endpoint struct {
	Path   string `json:"path"`
	Method string `json:"method"`
	Source string `json:"source"`
}

// SourceInline marks endpoints found in inline script bodies.
const SourceInline = "inline"

const q = "['\"`]"

// endpointSources is ordered; it decides which pattern claims a path first.
var endpointSources = []string{
	q + `(/api/[^'"` + "`" + `\s]+)` + q,
	q + `(/v\d+/[^'"` + "`" + `\s]+)` + q,
	`fetch\s*\(\s*` + q + `([^'"` + "`" + `]+)` + q,
	`axios\.[a-z]+\s*\(\s*` + q + `([^'"` + "`" + `]+)` + q,
	`\.get\s*\(\s*` + q + `([^'"` + "`" + `]+)` + q,
	`\.post\s*\(\s*` + q + `([^'"` + "`" + `]+)` + q,
	`\.put\s*\(\s*` + q + `([^'"` + "`" + `]+)` + q,
	`\.delete\s*\(\s*` + q + `([^'"` + "`" + `]+)` + q,
	`url:\s*` + q + `([^'"` + "`" + `]+)` + q,
	`endpoint:\s*` + q + `([^'"` + "`" + `]+)` + q,
}

type endpointPattern struct {
	re     *regexp.Regexp
	method string
}

var endpointPatterns = func() []endpointPattern {
	out := make([]endpointPattern, len(endpointSources))
	for i, src := range endpointSources {
		out[i] = endpointPattern{re: regexcache.MustGet(src), method: methodForPattern(src)}
	}
	return out
}()

// methodForPattern guesses the HTTP method from the words in a pattern.
func methodForPattern(src string) string {
	switch {
	case strings.Contains(src, "post"):
		return http.MethodPost
	case strings.Contains(src, "put"):
		return http.MethodPut
	case strings.Contains(src, "delete"):
		return http.MethodDelete
	}
	return http.MethodGet
}

// Endpoints scans every inline script with every pattern. Template literals
// and captures of EndpointMaxLen or more characters are skipped. Paths are
// unique; the first occurrence wins.
func Endpoints(snap *hostbridge.Snapshot) []Endpoint {
	seen := make(map[string]bool)
	out := []Endpoint{}
	for _, script := range snap.InlineScripts {
		for _, p := range endpointPatterns {
			for _, m := range p.re.FindAllStringSubmatch(script, -1) {
				path := m[1]
				if path == "" || strings.Contains(path, "${") || utf8.RuneCountInString(path) >= defaults.EndpointMaxLen {
					continue
				}
				if seen[path] {
					continue
				}
				seen[path] = true
				out = append(out, Endpoint{Path: path, Method: p.method, Source: SourceInline})
			}
		}
	}
	return out
}
