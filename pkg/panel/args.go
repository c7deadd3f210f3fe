package panel

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// Args are the named inputs of one invocation. Values may be strings from
// CLI flags or JSON-decoded values from MCP and REST; the accessors
// convert either.
type Args map[string]any

// String returns the argument as a string, or "" when absent.
func (a Args) String(name string) string {
	v, ok := a[name]
	if !ok || v == nil {
		return ""
	}
	return cast.ToString(v)
}

// StringOr returns the trimmed argument, or def when it is blank.
func (a Args) StringOr(name, def string) string {
	if s := strings.TrimSpace(a.String(name)); s != "" {
		return s
	}
	return def
}

// Int returns the argument as an int, or def when it is absent or blank.
func (a Args) Int(name string, def int) (int, error) {
	v, ok := a[name]
	if !ok || v == nil {
		return def, nil
	}
	if s, isStr := v.(string); isStr {
		s = strings.TrimSpace(s)
		if s == "" {
			return def, nil
		}
		v = s
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidArg, name, v)
	}
	return n, nil
}

// Bool reports whether the argument is set to a true value.
func (a Args) Bool(name string) bool {
	v, ok := a[name]
	if !ok || v == nil {
		return false
	}
	return cast.ToBool(v)
}

// Strings returns a list argument. A string value is split on commas.
func (a Args) Strings(name string) []string {
	v, ok := a[name]
	if !ok || v == nil {
		return nil
	}
	var raw []string
	if s, isStr := v.(string); isStr {
		raw = strings.Split(s, ",")
	} else {
		raw = cast.ToStringSlice(v)
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (a Args) blank(name string) bool {
	v, ok := a[name]
	if !ok || v == nil {
		return true
	}
	switch v := v.(type) {
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case []string:
		return len(v) == 0
	}
	return false
}

// validate checks required params and enum values.
func (a Args) validate(params []Param) error {
	for _, p := range params {
		if a.blank(p.Name) {
			if p.Required {
				return fmt.Errorf("%w: %s", ErrMissingArg, p.Name)
			}
			continue
		}
		if len(p.Enum) == 0 || p.Type != TypeString {
			continue
		}
		s := strings.ToLower(strings.TrimSpace(a.String(p.Name)))
		found := false
		for _, e := range p.Enum {
			if s == e {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s must be one of %s", ErrInvalidArg, p.Name, strings.Join(p.Enum, ", "))
		}
	}
	return nil
}
