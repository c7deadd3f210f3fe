package hostbridge

import (
	"strings"
	"sync"
	"time"
)

// cookieStore keeps cookie records keyed by name, domain and path.
type cookieStore struct {
	mu      sync.Mutex
	records []CookieRecord
}

// visible returns unexpired records whose domain matches host.
func (s *cookieStore) visible(host string, now time.Time) []CookieRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []CookieRecord
	for _, c := range s.records {
		if !c.Expires.IsZero() && c.Expires.Before(now) {
			continue
		}
		if domainMatch(host, c.Domain) {
			out = append(out, c)
		}
	}
	return out
}

func (s *cookieStore) upsert(c CookieRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.records {
		if existing.Name == c.Name && strings.EqualFold(existing.Domain, c.Domain) && existing.Path == c.Path {
			s.records[i] = c
			return
		}
	}
	s.records = append(s.records, c)
}

// remove drops every record named name that a request to host+path would
// carry, and returns them.
func (s *cookieStore) remove(host, path, name string) []CookieRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []CookieRecord
	kept := s.records[:0]
	for _, c := range s.records {
		if c.Name == name && domainMatch(host, c.Domain) && strings.HasPrefix(path, c.Path) {
			removed = append(removed, c)
			continue
		}
		kept = append(kept, c)
	}
	s.records = kept
	return removed
}

// domainMatch reports whether a cookie for cookieDomain is visible on host.
func domainMatch(host, cookieDomain string) bool {
	host = strings.ToLower(strings.TrimPrefix(host, "."))
	d := strings.ToLower(strings.TrimPrefix(cookieDomain, "."))
	return host == d || strings.HasSuffix(host, "."+d)
}

// requestPath returns p, or "/" when empty.
func requestPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
