// Package tls makes outbound HTTPS requests present a browser's TLS
// ClientHello, so fingerprinting front ends answer the header and CORS
// checks the way they would answer the browser itself.
package tls

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	utls "github.com/refraction-networking/utls"
	"golang.org/x/net/http2"

	"github.com/thecyberx/cyberx/pkg/defaults"
)

// ErrUnknownProfile is returned for a profile name not in Profiles.
var ErrUnknownProfile = errors.New("tls: unknown profile")

// Profile pairs a ClientHello with the User-Agent of the same browser.
type Profile struct {
	Name        string `json:"name"`
	UserAgent   string `json:"user_agent"`
	Description string `json:"description"`
	ClientHello *utls.ClientHelloID
}

var profiles = map[string]*Profile{
	"chrome": {
		Name:        "chrome",
		UserAgent:   defaults.UAChrome,
		Description: "Current Chrome on Windows",
		ClientHello: &utls.HelloChrome_Auto,
	},
	"firefox": {
		Name:        "firefox",
		UserAgent:   defaults.UAFirefox,
		Description: "Current Firefox on Windows",
		ClientHello: &utls.HelloFirefox_Auto,
	},
	"safari": {
		Name:        "safari",
		UserAgent:   "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
		Description: "Safari on macOS",
		ClientHello: &utls.HelloSafari_Auto,
	},
	"edge": {
		Name:        "edge",
		UserAgent:   defaults.UAChrome + " Edg/120.0.0.0",
		Description: "Microsoft Edge on Windows",
		ClientHello: &utls.HelloEdge_Auto,
	},
	"ios": {
		Name:        "ios",
		UserAgent:   "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
		Description: "Safari on iOS",
		ClientHello: &utls.HelloIOS_Auto,
	},
	"randomized": {
		Name:        "randomized",
		UserAgent:   defaults.UAChrome,
		Description: "Randomized ClientHello per connection",
		ClientHello: &utls.HelloRandomized,
	},
}

// ProfileNames lists the available profiles, sorted.
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupProfile returns a profile by case-insensitive name.
func LookupProfile(name string) (*Profile, error) {
	if p, ok := profiles[strings.ToLower(strings.TrimSpace(name))]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %q (have %s)", ErrUnknownProfile, name, strings.Join(ProfileNames(), ", "))
}

// DialFunc dials the TCP connection the handshake runs over. Proxy
// dialers plug in here.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Transport sends https requests with the profile's ClientHello and plain
// http requests through Plain. Connections are not reused.
type Transport struct {
	Profile    *Profile
	Dial       DialFunc
	SkipVerify bool

	// Plain serves http:// requests. Defaults to a keep-alive-free
	// http.Transport using Dial.
	Plain http.RoundTripper

	plainOnce sync.Once
}

// NewTransport returns a transport for profile. A nil dial uses a
// net.Dialer with the given timeout.
func NewTransport(profile *Profile, dial DialFunc, timeout time.Duration, skipVerify bool) *Transport {
	if dial == nil {
		d := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
		dial = d.DialContext
	}
	return &Transport{Profile: profile, Dial: dial, SkipVerify: skipVerify}
}

// RoundTrip implements http.RoundTripper. The User-Agent is set from the
// profile unless the request already has one.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Profile.UserAgent != "" && req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.Profile.UserAgent)
	}
	if req.URL.Scheme != "https" {
		t.plainOnce.Do(func() {
			if t.Plain == nil {
				t.Plain = &http.Transport{DialContext: t.Dial, DisableKeepAlives: true}
			}
		})
		return t.Plain.RoundTrip(req)
	}

	conn, err := t.dialTLS(req.Context(), canonicalAddr(req))
	if err != nil {
		return nil, err
	}

	// Browser hellos offer h2, so the server may pick it.
	if conn.ConnectionState().NegotiatedProtocol == http2.NextProtoTLS {
		cc, err := (&http2.Transport{}).NewClientConn(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("h2 client conn: %w", err)
		}
		resp, err := cc.RoundTrip(req)
		if err != nil {
			cc.Close()
			return nil, err
		}
		resp.Body = &closeWith{ReadCloser: resp.Body, closer: cc}
		return resp, nil
	}

	if err := req.Write(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write request: %w", err)
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read response: %w", err)
	}
	resp.Body = &closeWith{ReadCloser: resp.Body, closer: conn}
	return resp, nil
}

func (t *Transport) dialTLS(ctx context.Context, addr string) (*utls.UConn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	raw, err := t.Dial(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	conn := utls.UClient(raw, &utls.Config{
		ServerName:         host,
		InsecureSkipVerify: t.SkipVerify,
	}, *t.Profile.ClientHello)
	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, fmt.Errorf("TLS handshake failed: %w", err)
	}
	return conn, nil
}

func canonicalAddr(req *http.Request) string {
	if port := req.URL.Port(); port != "" {
		return req.URL.Host
	}
	return net.JoinHostPort(req.URL.Hostname(), "443")
}

// closeWith closes the connection when the body is closed.
type closeWith struct {
	io.ReadCloser
	closer io.Closer
}

func (c *closeWith) Close() error {
	err := c.ReadCloser.Close()
	if cerr := c.closer.Close(); err == nil {
		err = cerr
	}
	return err
}
