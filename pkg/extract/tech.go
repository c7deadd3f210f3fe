package extract

import (
	"fmt"
	"regexp"

	"github.com/thecyberx/cyberx/pkg/finding"
	"github.com/thecyberx/cyberx/pkg/hostbridge"
	"github.com/thecyberx/cyberx/pkg/regexcache"
	"github.com/thecyberx/cyberx/pkg/ruleset"
)

// Technology is one detected product.
type Technology struct {
	Name       string             `json:"name"`
	Category   string             `json:"category"`
	Confidence finding.Confidence `json:"confidence"`
	Version    string             `json:"version,omitempty"`
}

type techRule struct {
	field   string
	re      *regexp.Regexp
	version *regexp.Regexp
}

type techEntry struct {
	name     string
	category string
	rules    []techRule
}

// Detector fingerprints technologies from a compiled rule table.
type Detector struct {
	techs []techEntry
}

// NewDetector compiles the technology table of set. A nil set uses the
// bundled rules.
func NewDetector(set *ruleset.Set) (*Detector, error) {
	if set == nil {
		set = ruleset.Default()
	}
	d := &Detector{techs: make([]techEntry, 0, len(set.Technologies))}
	for _, t := range set.Technologies {
		entry := techEntry{name: t.Name, category: t.Category}
		for _, p := range t.Patterns {
			re, err := regexcache.Get(p.Regex)
			if err != nil {
				return nil, fmt.Errorf("technology %s: %w", t.Name, err)
			}
			rule := techRule{field: p.Field, re: re}
			if p.Version != "" {
				if rule.version, err = regexcache.Get(p.Version); err != nil {
					return nil, fmt.Errorf("technology %s version: %w", t.Name, err)
				}
			}
			entry.rules = append(entry.rules, rule)
		}
		d.techs = append(d.techs, entry)
	}
	return d, nil
}

// FieldConfidence is the tier a match in field earns.
func FieldConfidence(field string) finding.Confidence {
	switch field {
	case ruleset.FieldScript, ruleset.FieldLink, ruleset.FieldMeta, ruleset.FieldHeader:
		return finding.ConfidenceHigh
	case ruleset.FieldHTML, ruleset.FieldInline:
		return finding.ConfidenceMedium
	}
	return finding.ConfidenceLow
}

// Detect returns one entry per matching technology in table order. For each
// technology the first pattern that matches decides the confidence.
func (d *Detector) Detect(snap *hostbridge.Snapshot) []Technology {
	fields := map[string][]string{
		ruleset.FieldScript: snap.Scripts,
		ruleset.FieldInline: snap.InlineScripts,
		ruleset.FieldLink:   snap.Links,
		ruleset.FieldHTML:   {snap.HTML},
		ruleset.FieldMeta:   snap.Metas,
		ruleset.FieldHeader: snap.HeaderLines(),
	}

	found := []Technology{}
	for _, t := range d.techs {
		for _, r := range t.rules {
			value, ok := firstMatch(r.re, fields[r.field])
			if !ok {
				continue
			}
			tech := Technology{Name: t.name, Category: t.category, Confidence: FieldConfidence(r.field)}
			if r.version != nil {
				if m := r.version.FindStringSubmatch(value); len(m) > 1 {
					tech.Version = m[1]
				}
			}
			found = append(found, tech)
			break
		}
	}
	return found
}

func firstMatch(re *regexp.Regexp, values []string) (string, bool) {
	for _, v := range values {
		if re.MatchString(v) {
			return v, true
		}
	}
	return "", false
}
