// Package ruleset parses the YAML data tables behind the pattern-driven
// panels. The bundled tables come from the rules package; a directory on disk
// can replace any of them file by file.
package ruleset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/thecyberx/cyberx/pkg/regexcache"
	"github.com/thecyberx/cyberx/rules"
)

// ErrInvalidRules is returned when a table fails to parse or validate.
var ErrInvalidRules = errors.New("ruleset: invalid rules")

// Table file names.
const (
	TechFile     = "tech.yaml"
	HeadersFile  = "headers.yaml"
	PayloadsFile = "payloads.yaml"
	DorksFile    = "dorks.yaml"
	ShellsFile   = "shells.yaml"
)

// Snapshot fields a technology pattern can target.
const (
	FieldScript = "script" // external script URLs
	FieldInline = "inline" // inline script bodies
	FieldLink   = "link"   // <link href> values
	FieldHTML   = "html"   // full page markup
	FieldMeta   = "meta"   // <meta> tag markup
	FieldHeader = "header" // response headers as "name: value" lines
)

var validFields = map[string]bool{
	FieldScript: true, FieldInline: true, FieldLink: true,
	FieldHTML: true, FieldMeta: true, FieldHeader: true,
}

// TechPattern is one fingerprint rule.
type TechPattern struct {
	Field   string `yaml:"field"`
	Regex   string `yaml:"regex"`
	Version string `yaml:"version,omitempty"`
}

// Technology groups the patterns for one product.
type Technology struct {
	Name     string        `yaml:"name"`
	Category string        `yaml:"category"`
	Patterns []TechPattern `yaml:"patterns"`
}

// HeaderRule is one branch of a header check. Conditions are ANDed; a rule
// with none always applies.
type HeaderRule struct {
	Missing     bool     `yaml:"missing,omitempty"`
	ContainsAny []string `yaml:"contains_any,omitempty"`
	EqualsAny   []string `yaml:"equals_any,omitempty"`
	Equals      *string  `yaml:"equals,omitempty"`
	MinMaxAge   int      `yaml:"min_max_age,omitempty"`
	HasMaxAge   bool     `yaml:"has_max_age,omitempty"`
	Status      string   `yaml:"status"`
	Description string   `yaml:"description"`
}

// HeaderCheck is the ordered rule list for one response header.
type HeaderCheck struct {
	Name  string       `yaml:"name"`
	Rules []HeaderRule `yaml:"rules"`
}

// Payload is a titled attack string.
type Payload struct {
	Title   string `yaml:"title" json:"title"`
	Payload string `yaml:"payload" json:"payload"`
}

// PayloadCategory groups payloads by attack class.
type PayloadCategory struct {
	ID       string    `yaml:"id" json:"id"`
	Name     string    `yaml:"name" json:"name"`
	Payloads []Payload `yaml:"payloads" json:"payloads"`
}

// DorkTemplate is a search operator with a placeholder.
type DorkTemplate struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Template    string `yaml:"template" json:"template"`
	Description string `yaml:"description" json:"description"`
}

// PrebuiltDork is a ready-made query.
type PrebuiltDork struct {
	Name string `yaml:"name" json:"name"`
	Dork string `yaml:"dork" json:"dork"`
}

// Shell is a reverse shell template with {IP} and {PORT} placeholders.
type Shell struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Template string `yaml:"template" json:"template"`
}

// Set is every table, parsed.
type Set struct {
	Technologies  []Technology
	Headers       []HeaderCheck
	Payloads      []PayloadCategory
	EventHandlers []string
	Dorks         []DorkTemplate
	Prebuilt      []PrebuiltDork
	Shells        []Shell
}

var (
	defaultOnce sync.Once
	defaultSet  *Set
	defaultErr  error
)

// Default returns the bundled tables. It panics if they are broken, which
// the package tests rule out.
func Default() *Set {
	defaultOnce.Do(func() {
		defaultSet, defaultErr = Load(rules.FS)
	})
	if defaultErr != nil {
		panic(defaultErr)
	}
	return defaultSet
}

// LoadDir loads tables from dir, falling back to the bundled copy for each
// file dir does not contain.
func LoadDir(dir string) (*Set, error) {
	if dir == "" {
		return Default(), nil
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("rules dir: %w", err)
	}
	return Load(overlay{upper: os.DirFS(dir), lower: rules.FS})
}

// Load parses all tables from fsys.
func Load(fsys fs.FS) (*Set, error) {
	var tech struct {
		Technologies []Technology `yaml:"technologies"`
	}
	var headers struct {
		Headers []HeaderCheck `yaml:"headers"`
	}
	var payloads struct {
		Categories    []PayloadCategory `yaml:"categories"`
		EventHandlers []string          `yaml:"event_handlers"`
	}
	var dorks struct {
		Templates []DorkTemplate `yaml:"templates"`
		Prebuilt  []PrebuiltDork `yaml:"prebuilt"`
	}
	var shells struct {
		Shells []Shell `yaml:"shells"`
	}

	tables := []struct {
		name string
		dst  any
	}{
		{TechFile, &tech},
		{HeadersFile, &headers},
		{PayloadsFile, &payloads},
		{DorksFile, &dorks},
		{ShellsFile, &shells},
	}
	for _, t := range tables {
		data, err := fs.ReadFile(fsys, t.name)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrInvalidRules, t.name, err)
		}
		if err := yaml.Unmarshal(data, t.dst); err != nil {
			return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidRules, t.name, err)
		}
	}

	set := &Set{
		Technologies:  tech.Technologies,
		Headers:       headers.Headers,
		Payloads:      payloads.Categories,
		EventHandlers: payloads.EventHandlers,
		Dorks:         dorks.Templates,
		Prebuilt:      dorks.Prebuilt,
		Shells:        shells.Shells,
	}
	if err := set.validate(); err != nil {
		return nil, err
	}
	return set, nil
}

func (s *Set) validate() error {
	for _, tech := range s.Technologies {
		if tech.Name == "" || len(tech.Patterns) == 0 {
			return fmt.Errorf("%w: technology %q has no name or patterns", ErrInvalidRules, tech.Name)
		}
		for _, p := range tech.Patterns {
			if !validFields[p.Field] {
				return fmt.Errorf("%w: technology %q: unknown field %q", ErrInvalidRules, tech.Name, p.Field)
			}
			if _, err := regexcache.Get(p.Regex); err != nil {
				return fmt.Errorf("%w: technology %q: %v", ErrInvalidRules, tech.Name, err)
			}
			if p.Version != "" {
				if _, err := regexcache.Get(p.Version); err != nil {
					return fmt.Errorf("%w: technology %q version: %v", ErrInvalidRules, tech.Name, err)
				}
			}
		}
	}
	for _, h := range s.Headers {
		if len(h.Rules) == 0 {
			return fmt.Errorf("%w: header %q has no rules", ErrInvalidRules, h.Name)
		}
	}
	for _, sh := range s.Shells {
		if sh.ID == "" || sh.Template == "" {
			return fmt.Errorf("%w: shell %q is incomplete", ErrInvalidRules, sh.ID)
		}
	}
	return nil
}

// overlay serves files from upper when present, else from lower.
type overlay struct {
	upper, lower fs.FS
}

func (o overlay) Open(name string) (fs.File, error) {
	f, err := o.upper.Open(name)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return o.lower.Open(name)
}
