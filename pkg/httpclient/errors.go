package httpclient

import "errors"

// Sentinel errors for HTTP client failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrProxyConnect indicates the client failed to connect through
	// the configured proxy (SOCKS4/5, HTTP).
	ErrProxyConnect = errors.New("httpclient: proxy connection failed")

	// ErrInvalidProxy indicates a malformed or unsupported proxy URL.
	ErrInvalidProxy = errors.New("httpclient: invalid proxy URL")
)
