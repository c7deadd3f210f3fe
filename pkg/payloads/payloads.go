// Package payloads serves the attack payload library: titled payload
// strings grouped by attack class, plus the XSS event handler list.
package payloads

import (
	"fmt"
	"strings"

	"github.com/thecyberx/cyberx/pkg/ruleset"
)

// Library is a read-only view over the payload tables.
type Library struct {
	categories    []ruleset.PayloadCategory
	eventHandlers []string
}

// New returns a library over set. A nil set uses the bundled tables.
func New(set *ruleset.Set) *Library {
	if set == nil {
		set = ruleset.Default()
	}
	return &Library{categories: set.Payloads, eventHandlers: set.EventHandlers}
}

// Categories returns every category in declared order.
func (l *Library) Categories() []ruleset.PayloadCategory {
	return l.categories
}

// IDs returns the category identifiers in declared order.
func (l *Library) IDs() []string {
	ids := make([]string, len(l.categories))
	for i, c := range l.categories {
		ids[i] = c.ID
	}
	return ids
}

// Category looks up one category by ID, case-insensitively.
func (l *Library) Category(id string) (ruleset.PayloadCategory, error) {
	for _, c := range l.categories {
		if strings.EqualFold(c.ID, id) {
			return c, nil
		}
	}
	return ruleset.PayloadCategory{}, fmt.Errorf("%w: %q", ErrCategoryNotFound, id)
}

// Search keeps payloads whose title or payload contains query,
// case-insensitively. Categories left empty are dropped. An empty query
// returns everything.
func (l *Library) Search(query string) []ruleset.PayloadCategory {
	q := strings.ToLower(query)
	out := make([]ruleset.PayloadCategory, 0, len(l.categories))
	for _, c := range l.categories {
		var hits []ruleset.Payload
		for _, p := range c.Payloads {
			if strings.Contains(strings.ToLower(p.Title), q) || strings.Contains(strings.ToLower(p.Payload), q) {
				hits = append(hits, p)
			}
		}
		if len(hits) > 0 {
			out = append(out, ruleset.PayloadCategory{ID: c.ID, Name: c.Name, Payloads: hits})
		}
	}
	return out
}

// Filter narrows Search to the given category IDs. No IDs means all.
func (l *Library) Filter(query string, ids ...string) []ruleset.PayloadCategory {
	results := l.Search(query)
	if len(ids) == 0 {
		return results
	}
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[strings.ToLower(id)] = true
	}
	out := results[:0]
	for _, c := range results {
		if keep[strings.ToLower(c.ID)] {
			out = append(out, c)
		}
	}
	return out
}

// EventHandlers returns the XSS event handler payloads.
func (l *Library) EventHandlers() []string {
	return l.eventHandlers
}

// Count returns the number of payloads across categories.
func (l *Library) Count() int {
	n := 0
	for _, c := range l.categories {
		n += len(c.Payloads)
	}
	return n
}
