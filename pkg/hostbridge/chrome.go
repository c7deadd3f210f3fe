package hostbridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/thecyberx/cyberx/pkg/duration"
)

// ChromeOptions configures the chrome backend.
type ChromeOptions struct {
	// RemoteURL is the DevTools endpoint of a running browser. Empty
	// launches a new one.
	RemoteURL string

	// Headless applies to launched browsers only.
	Headless bool

	// Proxy and UserAgent apply to launched browsers only.
	Proxy     string
	UserAgent string

	// Client sends Fetch requests. Nil uses a probe client.
	Client *http.Client
}

// Chrome drives a browser over the DevTools protocol. The active tab is
// the one last navigated through this host, else the visible page.
type Chrome struct {
	logger        *slog.Logger
	client        *http.Client
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc

	mu      sync.Mutex
	tabs    map[target.ID]*chromeTab
	current target.ID
}

type chromeTab struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	headers map[string]http.Header // document response headers by URL
}

// NewChrome attaches to or launches a browser and waits until it answers.
func NewChrome(ctx context.Context, opts ChromeOptions, logger *slog.Logger) (*Chrome, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
	} else {
		execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", opts.Headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
		if opts.UserAgent != "" {
			execOpts = append(execOpts, chromedp.UserAgent(opts.UserAgent))
		}
		if opts.Proxy != "" {
			execOpts = append(execOpts, chromedp.ProxyServer(opts.Proxy))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, execOpts...)
	}
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	c := &Chrome{
		logger:        logger,
		client:        opts.Client,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		tabs:          make(map[target.ID]*chromeTab),
	}

	// The first Run owns the browser's lifetime, so it cannot carry a
	// timeout of its own.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(browserCtx) }()
	select {
	case err := <-started:
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("start browser: %w", err)
		}
	case <-time.After(duration.BrowserStartup):
		c.Close()
		return nil, fmt.Errorf("start browser: no answer within %s", duration.BrowserStartup)
	}
	logger.Debug("browser ready", slog.String("remote", opts.RemoteURL), slog.Bool("headless", opts.Headless))
	return c, nil
}

// activeTarget returns the tab panels act on.
func (c *Chrome) activeTarget() (*target.Info, error) {
	infos, err := chromedp.Targets(c.browserCtx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	c.mu.Lock()
	current := c.current
	c.mu.Unlock()
	return pickActive(infos, current, c.visible)
}

// pickActive chooses among page targets: the tab this host last navigated,
// else the first one whose document is visible, else the first one listed.
func pickActive(infos []*target.Info, current target.ID, visible func(*target.Info) bool) (*target.Info, error) {
	var pages []*target.Info
	for _, info := range infos {
		if info.Type != "page" || strings.HasPrefix(info.URL, "devtools://") {
			continue
		}
		if current != "" && info.TargetID == current {
			return info, nil
		}
		pages = append(pages, info)
	}
	switch len(pages) {
	case 0:
		return nil, ErrNoActiveTab
	case 1:
		return pages[0], nil
	}
	if visible != nil {
		for _, info := range pages {
			if visible(info) {
				return info, nil
			}
		}
	}
	return pages[0], nil
}

// visible reports whether the tab is the selected one in its window.
func (c *Chrome) visible(info *target.Info) bool {
	t, err := c.attach(info)
	if err != nil {
		return false
	}
	var state string
	if err := c.run(context.Background(), t, chromedp.Evaluate(`document.visibilityState`, &state)); err != nil {
		c.logger.Debug("visibility check failed", slog.String("target", string(info.TargetID)), slog.String("error", err.Error()))
		return false
	}
	return state == "visible"
}

// tab returns the attached context for the active target.
func (c *Chrome) tab() (*target.Info, *chromeTab, error) {
	info, err := c.activeTarget()
	if err != nil {
		return nil, nil, err
	}
	t, err := c.attach(info)
	if err != nil {
		return nil, nil, err
	}
	return info, t, nil
}

// attach returns the context for info, attaching on first use.
func (c *Chrome) attach(info *target.Info) (*chromeTab, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tabs[info.TargetID]; ok {
		return t, nil
	}

	ctx, cancel := chromedp.NewContext(c.browserCtx, chromedp.WithTargetID(info.TargetID))
	t := &chromeTab{ctx: ctx, cancel: cancel, headers: make(map[string]http.Header)}
	chromedp.ListenTarget(ctx, func(ev any) {
		e, ok := ev.(*network.EventResponseReceived)
		if !ok || e.Type != network.ResourceTypeDocument || e.Response == nil {
			return
		}
		t.mu.Lock()
		t.headers[e.Response.URL] = convertHeaders(e.Response.Headers)
		t.mu.Unlock()
	})
	if err := chromedp.Run(ctx, network.Enable()); err != nil {
		cancel()
		return nil, fmt.Errorf("attach tab: %w", err)
	}
	c.tabs[info.TargetID] = t
	return t, nil
}

// run executes actions on the active tab within the host call timeout.
func (c *Chrome) run(ctx context.Context, t *chromeTab, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(t.ctx, duration.HostCall)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (c *Chrome) ActiveTab(ctx context.Context) (Tab, error) {
	if err := ctx.Err(); err != nil {
		return Tab{}, err
	}
	info, err := c.activeTarget()
	if err != nil {
		return Tab{}, err
	}
	return Tab{ID: string(info.TargetID), URL: info.URL, Title: info.Title}, nil
}

// Navigate loads rawURL in the active tab.
func (c *Chrome) Navigate(ctx context.Context, rawURL string) (Tab, error) {
	info, t, err := c.tab()
	if err != nil {
		return Tab{}, err
	}
	c.mu.Lock()
	c.current = info.TargetID
	c.mu.Unlock()
	if err := c.run(ctx, t, chromedp.Navigate(rawURL), chromedp.Sleep(duration.PageSettle)); err != nil {
		return Tab{}, fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	return c.ActiveTab(ctx)
}

const snapshotJS = `({url: location.href, title: document.title, html: document.documentElement ? document.documentElement.outerHTML : ""})`

type pageCapture struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	HTML  string `json:"html"`
}

// Snapshot captures the live DOM. Headers are those of the document
// response seen since the tab was attached, if any.
func (c *Chrome) Snapshot(ctx context.Context) (*Snapshot, error) {
	_, t, err := c.tab()
	if err != nil {
		return nil, err
	}
	var page pageCapture
	if err := c.run(ctx, t, chromedp.Evaluate(snapshotJS, &page)); err != nil {
		return nil, fmt.Errorf("capture page: %w", err)
	}

	t.mu.Lock()
	headers := t.headers[page.URL]
	t.mu.Unlock()
	if headers == nil {
		c.logger.Debug("no document headers captured", slog.String("url", page.URL))
	}

	snap, err := ParseSnapshot(page.URL, page.HTML, headers)
	if err != nil {
		return nil, err
	}
	snap.Title = page.Title
	return snap, nil
}

func (c *Chrome) Cookies(ctx context.Context, domain string) ([]CookieRecord, error) {
	_, t, err := c.tab()
	if err != nil {
		return nil, err
	}
	var all []*network.Cookie
	err = c.run(ctx, t, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		all, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}
	var out []CookieRecord
	for _, nc := range all {
		if domainMatch(domain, nc.Domain) {
			out = append(out, fromNetworkCookie(nc))
		}
	}
	return out, nil
}

func (c *Chrome) SetCookie(ctx context.Context, rawURL string, rec CookieRecord) error {
	_, t, err := c.tab()
	if err != nil {
		return err
	}
	params := network.SetCookie(rec.Name, rec.Value).
		WithURL(rawURL).
		WithPath(requestPath(rec.Path)).
		WithSecure(rec.Secure).
		WithHTTPOnly(rec.HTTPOnly)
	if rec.Domain != "" {
		params = params.WithDomain(rec.Domain)
	}
	if rec.SameSite != "" {
		params = params.WithSameSite(network.CookieSameSite(sameSiteName(parseSameSite(rec.SameSite))))
	}
	if !rec.Expires.IsZero() {
		exp := cdp.TimeSinceEpoch(rec.Expires)
		params = params.WithExpires(&exp)
	}
	if err := c.run(ctx, t, params); err != nil {
		return fmt.Errorf("set cookie %s: %w", rec.Name, err)
	}
	return nil
}

func (c *Chrome) RemoveCookie(ctx context.Context, rawURL, name string) error {
	_, t, err := c.tab()
	if err != nil {
		return err
	}
	if err := c.run(ctx, t, network.DeleteCookies(name).WithURL(rawURL)); err != nil {
		return fmt.Errorf("remove cookie %s: %w", name, err)
	}
	return nil
}

// Fetch sends the request from Go with the browser's cookies for rawURL
// attached, so responses match what the logged-in page would see.
func (c *Chrome) Fetch(ctx context.Context, method, rawURL string, headers http.Header) (*Response, error) {
	hdr := headers.Clone()
	if hdr == nil {
		hdr = http.Header{}
	}
	if _, t, err := c.tab(); err == nil {
		var cookies []*network.Cookie
		err := c.run(ctx, t, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			cookies, err = network.GetCookies().WithURLs([]string{rawURL}).Do(ctx)
			return err
		}))
		if err != nil {
			c.logger.Debug("fetch without browser cookies", slog.String("error", err.Error()))
		}
		if len(cookies) > 0 && hdr.Get("Cookie") == "" {
			pairs := make([]string, 0, len(cookies))
			for _, nc := range cookies {
				pairs = append(pairs, nc.Name+"="+nc.Value)
			}
			hdr.Set("Cookie", strings.Join(pairs, "; "))
		}
	}
	return doRequest(ctx, c.client, method, rawURL, hdr)
}

// Close detaches from every tab and shuts the browser down. A launched
// browser that does not exit within five seconds is killed.
func (c *Chrome) Close() error {
	var proc *os.Process
	if cc := chromedp.FromContext(c.browserCtx); cc != nil && cc.Browser != nil {
		proc = cc.Browser.Process()
	}

	c.mu.Lock()
	for id, t := range c.tabs {
		t.cancel()
		delete(c.tabs, id)
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.browserCancel()
		c.allocCancel()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(5 * time.Second):
		if proc != nil {
			_ = proc.Kill()
		}
		return errors.New("hostbridge: browser shutdown timed out, process killed")
	}
}

func fromNetworkCookie(nc *network.Cookie) CookieRecord {
	rec := CookieRecord{
		Name:     nc.Name,
		Value:    nc.Value,
		Domain:   nc.Domain,
		Path:     nc.Path,
		Secure:   nc.Secure,
		HTTPOnly: nc.HTTPOnly,
		SameSite: string(nc.SameSite),
	}
	if !nc.Session && nc.Expires > 0 {
		sec, frac := math.Modf(nc.Expires)
		rec.Expires = time.Unix(int64(sec), int64(frac*1e9))
	}
	return rec
}

func convertHeaders(h network.Headers) http.Header {
	out := make(http.Header, len(h))
	for name, v := range h {
		// Chrome joins repeated headers with newlines.
		for _, line := range strings.Split(fmt.Sprint(v), "\n") {
			out.Add(name, line)
		}
	}
	return out
}
