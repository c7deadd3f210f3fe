package hostbridge

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/httpclient"
	"github.com/thecyberx/cyberx/pkg/iohelper"
)

// HTTP is a browserless host. The active tab is the last page fetched with
// Navigate; cookies live in a jar that also records their attributes.
type HTTP struct {
	client *http.Client
	jar    *recordingJar
	logger *slog.Logger

	mu      sync.Mutex
	tab     *Tab
	markup  string
	headers http.Header
}

// NewHTTP builds an HTTP host from cfg. cfg.Jar is replaced.
func NewHTTP(cfg httpclient.Config, logger *slog.Logger) (*HTTP, error) {
	if logger == nil {
		logger = slog.Default()
	}
	jar := &recordingJar{inner: httpclient.NewJar()}
	cfg.Jar = jar
	cfg.FollowRedirects = true
	client, err := httpclient.New(cfg)
	if err != nil {
		return nil, err
	}
	return &HTTP{client: client, jar: jar, logger: logger}, nil
}

// Client returns the cookie-carrying client the host fetches with.
func (h *HTTP) Client() *http.Client { return h.client }

func (h *HTTP) ActiveTab(ctx context.Context) (Tab, error) {
	if err := ctx.Err(); err != nil {
		return Tab{}, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tab == nil {
		return Tab{}, ErrNoActiveTab
	}
	return *h.tab, nil
}

// Navigate fetches rawURL and makes the final response the active tab.
func (h *HTTP) Navigate(ctx context.Context, rawURL string) (Tab, error) {
	hdr := http.Header{}
	hdr.Set("Accept", defaults.AcceptHTML)
	resp, err := doRequest(ctx, h.client, http.MethodGet, rawURL, hdr)
	if err != nil {
		return Tab{}, fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	markup, err := DecodeBody(resp.Body, resp.Headers.Get("Content-Type"))
	if err != nil {
		return Tab{}, err
	}
	h.logger.Debug("navigated",
		slog.String("url", resp.URL),
		slog.Int("status", resp.StatusCode),
		slog.Int("bytes", len(resp.Body)),
	)

	snap, err := ParseSnapshot(resp.URL, markup, resp.Headers)
	title := ""
	if err == nil {
		title = snap.Title
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.tab = &Tab{ID: "http-1", URL: resp.URL, Title: title}
	h.markup = markup
	h.headers = resp.Headers
	return *h.tab, nil
}

// Snapshot parses the page fetched by the last Navigate.
func (h *HTTP) Snapshot(ctx context.Context) (*Snapshot, error) {
	tab, err := h.ActiveTab(ctx)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	markup, headers := h.markup, h.headers
	h.mu.Unlock()
	return ParseSnapshot(tab.URL, markup, headers)
}

func (h *HTTP) Cookies(ctx context.Context, domain string) ([]CookieRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.jar.store.visible(domain, time.Now()), nil
}

func (h *HTTP) SetCookie(ctx context.Context, rawURL string, c CookieRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("set cookie: %w", err)
	}
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     requestPath(c.Path),
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
		Expires:  c.Expires,
		SameSite: parseSameSite(c.SameSite),
	}
	h.jar.SetCookies(u, []*http.Cookie{hc})
	return nil
}

func (h *HTTP) RemoveCookie(ctx context.Context, rawURL, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("remove cookie: %w", err)
	}
	for _, c := range h.jar.store.remove(u.Hostname(), requestPath(u.Path), name) {
		expired := &http.Cookie{Name: c.Name, Path: c.Path, MaxAge: -1}
		if c.Domain != u.Hostname() {
			expired.Domain = c.Domain
		}
		h.jar.inner.SetCookies(u, []*http.Cookie{expired})
	}
	return nil
}

func (h *HTTP) Fetch(ctx context.Context, method, rawURL string, headers http.Header) (*Response, error) {
	return doRequest(ctx, h.client, method, rawURL, headers)
}

func (h *HTTP) Close() error {
	h.client.CloseIdleConnections()
	return nil
}

// recordingJar forwards to a cookiejar and mirrors every cookie's
// attributes so they can be listed later.
type recordingJar struct {
	inner http.CookieJar
	store cookieStore
}

func (j *recordingJar) Cookies(u *url.URL) []*http.Cookie { return j.inner.Cookies(u) }

func (j *recordingJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.inner.SetCookies(u, cookies)
	now := time.Now()
	for _, c := range cookies {
		rec := CookieRecord{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
			SameSite: sameSiteName(c.SameSite),
		}
		if rec.Domain == "" {
			rec.Domain = u.Hostname()
		}
		if rec.Path == "" {
			rec.Path = defaultCookiePath(u.Path)
		}
		switch {
		case c.MaxAge < 0:
			j.store.remove(rec.Domain, rec.Path, rec.Name)
			continue
		case c.MaxAge > 0:
			rec.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		case !c.Expires.IsZero():
			if c.Expires.Before(now) {
				j.store.remove(rec.Domain, rec.Path, rec.Name)
				continue
			}
			rec.Expires = c.Expires
		}
		j.store.upsert(rec)
	}
}

// defaultCookiePath is the RFC 6265 default-path of a request path.
func defaultCookiePath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := len(p) - 1
	for i > 0 && p[i] != '/' {
		i--
	}
	if i == 0 {
		return "/"
	}
	return p[:i]
}

func parseSameSite(s string) http.SameSite {
	switch s {
	case "Strict", "strict":
		return http.SameSiteStrictMode
	case "Lax", "lax":
		return http.SameSiteLaxMode
	case "None", "none", "no_restriction":
		return http.SameSiteNoneMode
	}
	return http.SameSiteDefaultMode
}

func sameSiteName(s http.SameSite) string {
	switch s {
	case http.SameSiteStrictMode:
		return "Strict"
	case http.SameSiteLaxMode:
		return "Lax"
	case http.SameSiteNoneMode:
		return "None"
	}
	return ""
}

// doRequest sends one request and reads the body under the page cap. A nil
// client gets a probe client.
func doRequest(ctx context.Context, client *http.Client, method, rawURL string, headers http.Header) (*Response, error) {
	if client == nil {
		c, err := httpclient.New(httpclient.ProbeConfig())
		if err != nil {
			return nil, err
		}
		client = c
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for name, values := range headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer iohelper.DrainAndClose(resp.Body)

	body, err := iohelper.ReadPage(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
	}, nil
}
