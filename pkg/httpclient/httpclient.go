// Package httpclient builds the HTTP clients used by the host bridge and
// the network panels.
package httpclient

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/duration"
	cxtls "github.com/thecyberx/cyberx/pkg/tls"
)

// MaxRedirects matches the browser limit.
const MaxRedirects = 20

// Config holds HTTP client configuration options.
type Config struct {
	// Timeout is the total request timeout (default: duration.HTTPPage)
	Timeout time.Duration

	// InsecureSkipVerify skips TLS certificate verification
	InsecureSkipVerify bool

	// Proxy is an http, https, socks5 or socks5h proxy URL (optional)
	Proxy string

	// FollowRedirects follows up to MaxRedirects. Probes leave it off so
	// they see the redirect response itself.
	FollowRedirects bool

	// Jar stores cookies across requests (optional)
	Jar http.CookieJar

	// UserAgent is sent when the request has none. Ignored when a TLS
	// profile supplies its own.
	UserAgent string

	// TLSProfile selects a browser ClientHello (see pkg/tls). Empty uses
	// crypto/tls.
	TLSProfile string
}

// DefaultConfig returns the page-fetch defaults.
func DefaultConfig() Config {
	return Config{
		Timeout:         duration.HTTPPage,
		FollowRedirects: true,
		UserAgent:       defaults.UAChrome,
	}
}

// ProbeConfig returns the defaults for single-request probes: short
// timeout, no redirects.
func ProbeConfig() Config {
	return Config{
		Timeout:   duration.HTTPProbing,
		UserAgent: defaults.UAChrome,
	}
}

// NewJar returns a cookie jar scoped by the public suffix list.
func NewJar() http.CookieJar {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return jar
}

// New creates a client from cfg. It fails only on a bad proxy URL or TLS
// profile name.
func New(cfg Config) (*http.Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = duration.HTTPPage
	}

	proxyURL, err := ParseProxyURL(cfg.Proxy)
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{Timeout: duration.DialTimeout, KeepAlive: 30 * time.Second}
	dial := dialer.DialContext
	if isSOCKS(proxyURL) {
		if dial, err = socksDialer(proxyURL, duration.DialTimeout); err != nil {
			return nil, err
		}
	}

	var rt http.RoundTripper
	if cfg.TLSProfile != "" {
		profile, err := cxtls.LookupProfile(cfg.TLSProfile)
		if err != nil {
			return nil, err
		}
		if proxyURL != nil && !isSOCKS(proxyURL) {
			return nil, fmt.Errorf("%w: TLS profiles need a direct or SOCKS connection", ErrInvalidProxy)
		}
		rt = cxtls.NewTransport(profile, dial, duration.DialTimeout, cfg.InsecureSkipVerify)
	} else {
		transport := &http.Transport{
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       duration.IdleConn,
			ForceAttemptHTTP2:     true,
			ExpectContinueTimeout: 1 * time.Second,
			TLSHandshakeTimeout:   duration.TLSHandshake,
			DialContext:           dial,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify,
			},
		}
		if proxyURL != nil && !isSOCKS(proxyURL) {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
		rt = transport
		if cfg.UserAgent != "" {
			rt = &userAgentTransport{base: transport, userAgent: cfg.UserAgent}
		}
	}

	client := &http.Client{
		Transport: rt,
		Timeout:   cfg.Timeout,
		Jar:       cfg.Jar,
	}
	if cfg.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= MaxRedirects {
				return fmt.Errorf("stopped after %d redirects", MaxRedirects)
			}
			return nil
		}
	} else {
		client.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	return client, nil
}

// userAgentTransport sets a User-Agent on requests that have none.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.base.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}

func (t *userAgentTransport) CloseIdleConnections() {
	if c, ok := t.base.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}
