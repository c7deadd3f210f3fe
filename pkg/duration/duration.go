// Package duration holds the time constants used across CyberX.
//
//	ctx, cancel := context.WithTimeout(ctx, duration.HostCall)
package duration

import "time"

// ============================================================================
// HTTP CLIENT TIMEOUTS
// ============================================================================

const (
	// HTTPProbing bounds CORS preflights, header checks and favicon fetches (10s).
	HTTPProbing = 10 * time.Second

	// HTTPPage bounds a full page fetch for the HTTP host backend (30s).
	HTTPPage = 30 * time.Second

	// DialTimeout bounds TCP connection setup (5s).
	DialTimeout = 5 * time.Second

	// TLSHandshake bounds the TLS handshake (5s).
	TLSHandshake = 5 * time.Second

	// IdleConn is how long idle pooled connections are kept (90s).
	IdleConn = 90 * time.Second
)

// ============================================================================
// HOST BRIDGE
// ============================================================================

const (
	// HostCall bounds one host bridge request (tab query, snapshot, cookies) (30s).
	HostCall = 30 * time.Second

	// BrowserStartup bounds launching or attaching to Chrome (20s).
	BrowserStartup = 20 * time.Second

	// PageSettle is how long a launched browser waits after load before
	// capturing (500ms).
	PageSettle = 500 * time.Millisecond
)

// ============================================================================
// SERVERS
// ============================================================================

const (
	ReadHeaderTimeout = 10 * time.Second
	ReadTimeout       = 30 * time.Second
	IdleTimeout       = 30 * time.Second

	// WriteTimeout is left long for streamed MCP responses (5min).
	WriteTimeout = 5 * time.Minute

	// ShutdownGrace is how long servers drain on SIGINT (15s).
	ShutdownGrace = 15 * time.Second

	// TracerShutdown bounds the OTel flush at exit (5s).
	TracerShutdown = 5 * time.Second
)
