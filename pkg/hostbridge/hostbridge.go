// Package hostbridge is the boundary between the panels and whatever hosts
// the page under test: a Chrome instance driven over the DevTools protocol,
// a plain HTTP fetcher, or static fixtures.
//
// Every call is one-shot with no retries. Callers that scan treat a failed
// call as an empty result.
package hostbridge

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sentinel errors for host bridge failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrNoActiveTab indicates there is no foreground page to act on.
	ErrNoActiveTab = errors.New("hostbridge: no active tab")

	// ErrUnsupported indicates the backend lacks the capability.
	ErrUnsupported = errors.New("hostbridge: operation not supported by backend")

	// ErrUnknownBackend is returned by Open for an unrecognised backend name.
	ErrUnknownBackend = errors.New("hostbridge: unknown backend")
)

// Backend names.
const (
	BackendChrome = "chrome"
	BackendHTTP   = "http"
	BackendMemory = "memory"
)

// Tab is the foreground page.
type Tab struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Hostname returns the tab URL's host without port.
func (t Tab) Hostname() string {
	u, err := url.Parse(t.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// CookieRecord mirrors a cookie store entry. Expires is zero for session
// cookies.
type CookieRecord struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Secure   bool      `json:"secure"`
	HTTPOnly bool      `json:"httpOnly"`
	SameSite string    `json:"sameSite,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
}

// Session reports whether the cookie has no expiry.
func (c CookieRecord) Session() bool { return c.Expires.IsZero() }

// Response is the part of an HTTP response a panel can see.
type Response struct {
	URL        string      `json:"url"`
	StatusCode int         `json:"status"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"-"`
}

// Host is the capability surface every backend provides.
type Host interface {
	// ActiveTab returns the foreground page or ErrNoActiveTab.
	ActiveTab(ctx context.Context) (Tab, error)

	// Snapshot captures the active page's content once.
	Snapshot(ctx context.Context) (*Snapshot, error)

	// Cookies returns every cookie visible for domain.
	Cookies(ctx context.Context, domain string) ([]CookieRecord, error)

	// SetCookie stores c as if set by rawURL.
	SetCookie(ctx context.Context, rawURL string, c CookieRecord) error

	// RemoveCookie deletes the named cookie scoped to rawURL.
	RemoveCookie(ctx context.Context, rawURL, name string) error

	// Close releases the backend.
	Close() error
}

// Fetcher is implemented by backends that can issue requests on behalf of
// the page. The CORS and header panels use it.
type Fetcher interface {
	Fetch(ctx context.Context, method, rawURL string, headers http.Header) (*Response, error)
}

// Navigator is implemented by backends whose active tab can be changed.
type Navigator interface {
	Navigate(ctx context.Context, rawURL string) (Tab, error)
}

// Fetch issues a request through h when it can, else through client.
func Fetch(ctx context.Context, h Host, client *http.Client, method, rawURL string, headers http.Header) (*Response, error) {
	if f, ok := h.(Fetcher); ok {
		return f.Fetch(ctx, method, rawURL, headers)
	}
	return doRequest(ctx, client, method, rawURL, headers)
}

// CookieURL builds the URL a cookie is scoped to, as used when deleting:
// http[s]://<domain><path>. A leading dot on domain is dropped.
func CookieURL(c CookieRecord) string {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	path := c.Path
	if path == "" {
		path = "/"
	}
	return scheme + "://" + strings.TrimPrefix(c.Domain, ".") + path
}
