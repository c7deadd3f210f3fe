package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

var supportedProxySchemes = map[string]bool{
	"http":    true,
	"https":   true,
	"socks5":  true,
	"socks5h": true, // hostnames resolved by the proxy
}

// ParseProxyURL validates a proxy URL. An empty string means no proxy and
// returns nil, nil. A missing scheme defaults to http.
func ParseProxyURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if !supportedProxySchemes[u.Scheme] {
		return nil, fmt.Errorf("%w: unsupported scheme %q, supported: http, https, socks5, socks5h", ErrInvalidProxy, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidProxy)
	}
	return u, nil
}

func isSOCKS(u *url.URL) bool {
	return u != nil && strings.HasPrefix(u.Scheme, "socks5")
}

// socksDialer returns a context dialer tunnelling through a SOCKS5 proxy.
func socksDialer(u *url.URL, timeout time.Duration) (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	fwd := &url.URL{Scheme: "socks5", Host: u.Host, User: u.User}
	d, err := proxy.FromURL(fwd, &net.Dialer{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxy, err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("%w: dialer does not support contexts", ErrInvalidProxy)
	}
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := cd.DialContext(ctx, network, addr)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProxyConnect, err)
		}
		return conn, nil
	}, nil
}
