package hostbridge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// Memory is a fixture host. It serves one page and keeps cookies in a
// slice. Responses registered with SetResponse are returned by Fetch.
type Memory struct {
	mu        sync.Mutex
	tab       *Tab
	html      string
	headers   http.Header
	cookies   cookieStore
	responses map[string]*Response
	fetchErr  error
}

// NewMemory returns an empty memory host with no active tab.
func NewMemory() *Memory {
	return &Memory{responses: make(map[string]*Response)}
}

// SetPage makes pageURL the active tab with the given markup.
func (m *Memory) SetPage(pageURL, markup string, headers http.Header) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tab = &Tab{ID: "memory-1", URL: pageURL}
	m.html = markup
	m.headers = headers
}

// SetResponse registers the response Fetch returns for method and rawURL.
func (m *Memory) SetResponse(method, rawURL string, resp *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[strings.ToUpper(method)+" "+rawURL] = resp
}

// FailFetch makes every Fetch return err.
func (m *Memory) FailFetch(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchErr = err
}

func (m *Memory) ActiveTab(ctx context.Context) (Tab, error) {
	if err := ctx.Err(); err != nil {
		return Tab{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tab == nil {
		return Tab{}, ErrNoActiveTab
	}
	return *m.tab, nil
}

func (m *Memory) Navigate(ctx context.Context, rawURL string) (Tab, error) {
	m.SetPage(rawURL, "", nil)
	return m.ActiveTab(ctx)
}

func (m *Memory) Snapshot(ctx context.Context) (*Snapshot, error) {
	tab, err := m.ActiveTab(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	markup, headers := m.html, m.headers
	m.mu.Unlock()

	snap, err := ParseSnapshot(tab.URL, markup, headers)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.tab.Title = snap.Title
	m.mu.Unlock()
	return snap, nil
}

func (m *Memory) Cookies(ctx context.Context, domain string) ([]CookieRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.cookies.visible(domain, time.Now()), nil
}

func (m *Memory) SetCookie(ctx context.Context, rawURL string, c CookieRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("set cookie: %w", err)
	}
	if c.Domain == "" {
		c.Domain = u.Hostname()
	}
	c.Path = requestPath(c.Path)
	m.cookies.upsert(c)
	return nil
}

func (m *Memory) RemoveCookie(ctx context.Context, rawURL, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("remove cookie: %w", err)
	}
	m.cookies.remove(u.Hostname(), requestPath(u.Path), name)
	return nil
}

func (m *Memory) Fetch(ctx context.Context, method, rawURL string, _ http.Header) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fetchErr != nil {
		return nil, m.fetchErr
	}
	resp, ok := m.responses[strings.ToUpper(method)+" "+rawURL]
	if !ok {
		return nil, fmt.Errorf("memory: no response for %s %s", method, rawURL)
	}
	return resp, nil
}

func (m *Memory) Close() error { return nil }
