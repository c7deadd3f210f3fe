// Package cookies lists and edits the cookies visible to the active tab.
package cookies

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gobwas/glob"

	"github.com/thecyberx/cyberx/pkg/hostbridge"
)

var (
	// ErrEmptyCookie is returned by Add when name or value is blank.
	ErrEmptyCookie = errors.New("cookies: name and value are required")

	// ErrNotFound is returned by Delete when no listed cookie has the name.
	ErrNotFound = errors.New("cookies: no such cookie")
)

// SameSiteUnspecified stands in for an absent SameSite attribute.
const SameSiteUnspecified = "unspecified"

// Cookie is a listed cookie with its expiry rendered for display.
type Cookie struct {
	hostbridge.CookieRecord
	Expiry string `json:"expiry"`
}

// Listing is the cookie table for one tab.
type Listing struct {
	URL     string   `json:"url"`
	Domain  string   `json:"domain"`
	Cookies []Cookie `json:"cookies"`
}

// Records returns the listed cookies without display fields.
func (l *Listing) Records() []hostbridge.CookieRecord {
	out := make([]hostbridge.CookieRecord, len(l.Cookies))
	for i, c := range l.Cookies {
		out[i] = c.CookieRecord
	}
	return out
}

// Editor reads and writes cookies through a host.
type Editor struct {
	host   hostbridge.Host
	logger *slog.Logger
	now    func() time.Time
}

// New creates an editor. A nil logger uses slog.Default().
func New(host hostbridge.Host, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Editor{host: host, logger: logger, now: time.Now}
}

// activeURL returns the active tab URL and its hostname.
func (e *Editor) activeURL(ctx context.Context) (string, string, error) {
	tab, err := e.host.ActiveTab(ctx)
	if err != nil {
		return "", "", err
	}
	u, err := url.Parse(tab.URL)
	if err != nil || u.Hostname() == "" {
		return "", "", fmt.Errorf("cookies: active tab has no host: %q", tab.URL)
	}
	return tab.URL, u.Hostname(), nil
}

// List returns the cookies visible to the active tab's hostname. A
// non-empty pattern keeps only names matching the glob (for example
// "sess*" or "{_ga,_gid}").
func (e *Editor) List(ctx context.Context, pattern string) (*Listing, error) {
	var match glob.Glob
	if pattern != "" {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("cookies: bad filter %q: %w", pattern, err)
		}
		match = g
	}

	tabURL, hostname, err := e.activeURL(ctx)
	if err != nil {
		return nil, err
	}
	records, err := e.host.Cookies(ctx, hostname)
	if err != nil {
		return nil, fmt.Errorf("cookies: list %s: %w", hostname, err)
	}

	now := e.now()
	listing := &Listing{URL: tabURL, Domain: hostname, Cookies: make([]Cookie, 0, len(records))}
	for _, r := range records {
		if match != nil && !match.Match(r.Name) {
			continue
		}
		if r.SameSite == "" {
			r.SameSite = SameSiteUnspecified
		}
		listing.Cookies = append(listing.Cookies, Cookie{CookieRecord: r, Expiry: expiry(r, now)})
	}
	return listing, nil
}

func expiry(r hostbridge.CookieRecord, now time.Time) string {
	if r.Session() {
		return "Session"
	}
	return humanize.RelTime(r.Expires, now, "ago", "from now")
}

// Remove deletes c using the URL it is scoped to.
func (e *Editor) Remove(ctx context.Context, c hostbridge.CookieRecord) error {
	if err := e.host.RemoveCookie(ctx, hostbridge.CookieURL(c), c.Name); err != nil {
		return fmt.Errorf("cookies: remove %s: %w", c.Name, err)
	}
	e.logger.Debug("cookie removed", slog.String("name", c.Name), slog.String("domain", c.Domain))
	return nil
}

// Delete removes every listed cookie called name and reports how many
// were removed.
func (e *Editor) Delete(ctx context.Context, name string) (int, error) {
	listing, err := e.List(ctx, "")
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range listing.Cookies {
		if c.Name != name {
			continue
		}
		if err := e.Remove(ctx, c.CookieRecord); err != nil {
			return n, err
		}
		n++
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return n, nil
}

// Add sets name=value on the active tab's hostname with path "/".
func (e *Editor) Add(ctx context.Context, name, value string) error {
	if name == "" || value == "" {
		return ErrEmptyCookie
	}
	tabURL, hostname, err := e.activeURL(ctx)
	if err != nil {
		return err
	}
	rec := hostbridge.CookieRecord{Name: name, Value: value, Domain: hostname, Path: "/"}
	if err := e.host.SetCookie(ctx, tabURL, rec); err != nil {
		return fmt.Errorf("cookies: set %s: %w", name, err)
	}
	return nil
}

// Export renders cookies as a Cookie header value: "a=1; b=2".
func Export(records []hostbridge.CookieRecord) string {
	var b strings.Builder
	for i, c := range records {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(c.Name)
		b.WriteByte('=')
		b.WriteString(c.Value)
	}
	return b.String()
}
