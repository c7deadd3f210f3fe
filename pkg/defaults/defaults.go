// Package defaults holds the runtime defaults shared by the panels, the host
// bridge and the CLI.
//
//	shell := revshell.Generate(id, defaults.ShellIP, defaults.ShellPort)
//	req.Header.Set("User-Agent", defaults.UAChrome)
package defaults

// Version is the current CyberX version.
const Version = "1.0.0"

// ToolName is the product name used in banners, MCP metadata and logs.
const ToolName = "TheCyberX"

// ============================================================================
// PANEL DEFAULTS
// ============================================================================

const (
	// CORSOrigin is the probe Origin the CORS checker sends.
	CORSOrigin = "https://evil.com"

	// ShellIP and ShellPort pre-fill the reverse shell generator.
	ShellIP   = "10.10.10.10"
	ShellPort = "4444"

	// DorkDomain, DorkKeyword and DorkExt fill empty dork placeholders.
	DorkDomain  = "example.com"
	DorkKeyword = "admin"
	DorkExt     = "pdf"

	// IndentSize is the beautifier indent width.
	IndentSize = 2

	// UUIDMaxCount caps a single UUID batch.
	UUIDMaxCount = 100

	// SubnetIP and SubnetPrefix pre-fill the IP calculator.
	SubnetIP     = "192.168.1.1"
	SubnetPrefix = 24
)

// ============================================================================
// EXTRACTION LIMITS
// ============================================================================

const (
	// EndpointMaxLen drops captured endpoint paths at or above this length.
	EndpointMaxLen = 200

	// HTMLCommentMaxLen and ScriptCommentMaxLen truncate captured comments.
	HTMLCommentMaxLen   = 500
	ScriptCommentMaxLen = 200

	// LinkTextMaxLen truncates anchor text.
	LinkTextMaxLen = 50

	// SensitiveValueLen flags hidden input values longer than this.
	SensitiveValueLen = 32
)

// ============================================================================
// HTTP
// ============================================================================

const (
	ContentTypeJSON  = "application/json"
	ContentTypePlain = "text/plain"

	AcceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

	// UAChrome is sent by the HTTP host backend so pages render their
	// browser variant.
	UAChrome = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	// UAFirefox pairs with the Firefox TLS profile.
	UAFirefox = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0"

	UAMinimal = "CyberX/" + Version
)

// ============================================================================
// RATE LIMITS
// ============================================================================

const (
	// ProbesPerSecond bounds multi-origin CORS scans and batch header checks.
	ProbesPerSecond = 5

	// ProbeBurst is the limiter burst size.
	ProbeBurst = 2
)
