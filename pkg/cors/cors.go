// Package cors checks how a URL answers cross-origin requests. Check sends
// the single preflight the CORS panel shows; Scan probes a set of hostile
// origins and reports misconfigurations with severity and remediation.
package cors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/finding"
	"github.com/thecyberx/cyberx/pkg/hostbridge"
)

// ErrEmptyURL is returned when no target URL is given.
var ErrEmptyURL = errors.New("cors: URL is required")

// Values shown in place of absent headers.
const (
	NotSet = "Not set"
	NA     = "N/A"

	// BlockedMessage is the error text of a check whose request failed.
	BlockedMessage = "CORS request blocked or network error"
)

// Status is the verdict of a single check.
type Status string

const (
	StatusWildcard      Status = "Wildcard (*) - Permissive"
	StatusReflected     Status = "Origin Reflected - Vulnerable!"
	StatusNullAllowed   Status = "Null Origin Allowed"
	StatusSpecific      Status = "Specific Origin Allowed"
	StatusNotConfigured Status = "CORS Not Configured"
)

// Severity maps a status to a finding severity.
func (s Status) Severity() finding.Severity {
	switch s {
	case StatusReflected:
		return finding.High
	case StatusNullAllowed:
		return finding.Medium
	case StatusWildcard:
		return finding.Low
	}
	return finding.Info
}

// Classify derives the status from the Access-Control-Allow-Origin value
// (empty when absent) and the origin that was sent.
func Classify(allowOrigin, origin string) Status {
	switch {
	case allowOrigin == "*":
		return StatusWildcard
	case allowOrigin != "" && allowOrigin == origin:
		return StatusReflected
	case allowOrigin == "null":
		return StatusNullAllowed
	case allowOrigin != "":
		return StatusSpecific
	}
	return StatusNotConfigured
}

// Check is the result of one preflight.
type Check struct {
	URL         string `json:"url"`
	TestOrigin  string `json:"test_origin"`
	Origin      string `json:"origin"` // Access-Control-Allow-Origin
	Allowed     bool   `json:"allowed"`
	Credentials bool   `json:"credentials"`
	Methods     string `json:"methods"`
	Headers     string `json:"headers"`
	Status      Status `json:"status"`
	Error       string `json:"error,omitempty"`
}

// Options configures a Checker.
type Options struct {
	// Host sends requests when it implements hostbridge.Fetcher.
	Host hostbridge.Host

	// Client sends requests otherwise. Nil uses a probe client.
	Client *http.Client

	// Origin is the default test origin (defaults.CORSOrigin).
	Origin string

	// RatePerSecond and Burst bound Scan probes.
	RatePerSecond float64
	Burst         int

	Logger *slog.Logger
}

// Checker runs CORS checks.
type Checker struct {
	host    hostbridge.Host
	client  *http.Client
	origin  string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a checker from opts.
func New(opts Options) *Checker {
	if opts.Origin == "" {
		opts.Origin = defaults.CORSOrigin
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = defaults.ProbesPerSecond
	}
	if opts.Burst <= 0 {
		opts.Burst = defaults.ProbeBurst
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Checker{
		host:    opts.Host,
		client:  opts.Client,
		origin:  opts.Origin,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		logger:  opts.Logger,
	}
}

func (c *Checker) fetch(ctx context.Context, method, targetURL string, hdr http.Header) (*hostbridge.Response, error) {
	hdr.Set("User-Agent", defaults.UAChrome)
	return hostbridge.Fetch(ctx, c.host, c.client, method, targetURL, hdr)
}

// Check sends OPTIONS with Origin and Access-Control-Request-Method: GET.
// An empty origin uses the checker default. A failed request is reported
// in the result, not as an error.
func (c *Checker) Check(ctx context.Context, targetURL, origin string) (*Check, error) {
	targetURL = strings.TrimSpace(targetURL)
	if targetURL == "" {
		return nil, ErrEmptyURL
	}
	if origin == "" {
		origin = c.origin
	}

	hdr := http.Header{}
	hdr.Set("Origin", origin)
	hdr.Set("Access-Control-Request-Method", http.MethodGet)
	resp, err := c.fetch(ctx, http.MethodOptions, targetURL, hdr)
	if err != nil {
		c.logger.Debug("cors preflight failed", slog.String("url", targetURL), slog.String("error", err.Error()))
		return &Check{
			URL:        targetURL,
			TestOrigin: origin,
			Origin:     NA,
			Methods:    NA,
			Headers:    NA,
			Status:     StatusNotConfigured,
			Error:      BlockedMessage,
		}, nil
	}

	acao := resp.Headers.Get("Access-Control-Allow-Origin")
	return &Check{
		URL:         targetURL,
		TestOrigin:  origin,
		Origin:      orNotSet(acao),
		Allowed:     acao != "",
		Credentials: resp.Headers.Get("Access-Control-Allow-Credentials") == "true",
		Methods:     orNotSet(resp.Headers.Get("Access-Control-Allow-Methods")),
		Headers:     orNotSet(resp.Headers.Get("Access-Control-Allow-Headers")),
		Status:      Classify(acao, origin),
	}, nil
}

func orNotSet(v string) string {
	if v == "" {
		return NotSet
	}
	return v
}

// VulnerabilityType represents different CORS vulnerability types
type VulnerabilityType string

const (
	VulnOriginReflection    VulnerabilityType = "origin_reflection"
	VulnNullOrigin          VulnerabilityType = "null_origin"
	VulnWildcardCredentials VulnerabilityType = "wildcard_credentials"
	VulnSubdomainTrust      VulnerabilityType = "subdomain_trust"
	VulnWeakRegex           VulnerabilityType = "weak_regex"
	VulnPreflight           VulnerabilityType = "preflight_bypass"
)

// ProbeOrigin is an Origin value sent during a scan.
type ProbeOrigin struct {
	Origin      string            `json:"origin"`
	Type        VulnerabilityType `json:"type"`
	Description string            `json:"description"`
}

// Vulnerability is a confirmed misconfiguration.
type Vulnerability struct {
	Type         VulnerabilityType `json:"type"`
	Description  string            `json:"description"`
	Severity     finding.Severity  `json:"severity"`
	TestedOrigin string            `json:"tested_origin"`
	AllowOrigin  string            `json:"allow_origin"`
	Credentials  bool              `json:"credentials"`
	Evidence     string            `json:"evidence"`
	Remediation  string            `json:"remediation"`
}

// ProbeOrigins derives hostile origins from the target's scheme and
// registrable domain. IP targets only get the fixed origins.
func ProbeOrigins(targetURL, evil string) []ProbeOrigin {
	if evil == "" {
		evil = defaults.CORSOrigin
	}
	origins := []ProbeOrigin{
		{Origin: evil, Type: VulnOriginReflection, Description: "arbitrary origin"},
		{Origin: "null", Type: VulnNullOrigin, Description: "null origin"},
	}

	u, err := url.Parse(targetURL)
	if err != nil || u.Hostname() == "" || net.ParseIP(u.Hostname()) != nil {
		return origins
	}
	scheme := u.Scheme
	base := baseDomain(u.Hostname())
	origins = append(origins,
		ProbeOrigin{Origin: fmt.Sprintf("%s://evil.%s", scheme, base), Type: VulnSubdomainTrust, Description: "attacker-controlled subdomain"},
		ProbeOrigin{Origin: fmt.Sprintf("%s://%sevil.com", scheme, base), Type: VulnWeakRegex, Description: "suffix match bypass"},
		ProbeOrigin{Origin: fmt.Sprintf("%s://%s.evil.com", scheme, base), Type: VulnWeakRegex, Description: "prefix match bypass"},
	)
	if scheme == "https" {
		origins = append(origins, ProbeOrigin{
			Origin:      "http://" + u.Host,
			Type:        VulnWeakRegex,
			Description: "plain HTTP origin trusted by HTTPS site",
		})
	}
	return origins
}

// baseDomain returns the registrable domain, or host when there is none
// (IP addresses, single labels).
func baseDomain(host string) string {
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}

// ScanResult is the outcome of Scan.
type ScanResult struct {
	URL             string           `json:"url"`
	Vulnerabilities []Vulnerability  `json:"vulnerabilities"`
	TestedOrigins   int              `json:"tested_origins"`
	Errors          int              `json:"errors"`
	VaryOrigin      bool             `json:"vary_origin"`
	Severity        finding.Severity `json:"severity,omitempty"`
	Duration        time.Duration    `json:"duration"`
}

// Scan probes every origin from ProbeOrigins with GET, then sends a
// preflight asking for PUT. Probes are rate limited; failed probes are
// counted and skipped.
func (c *Checker) Scan(ctx context.Context, targetURL string) (*ScanResult, error) {
	targetURL = strings.TrimSpace(targetURL)
	if targetURL == "" {
		return nil, ErrEmptyURL
	}
	start := time.Now()
	origins := ProbeOrigins(targetURL, c.origin)
	result := &ScanResult{URL: targetURL, TestedOrigins: len(origins), Vulnerabilities: []Vulnerability{}}

	for _, o := range origins {
		if err := c.limiter.Wait(ctx); err != nil {
			return result, err
		}
		hdr := http.Header{}
		hdr.Set("Origin", o.Origin)
		resp, err := c.fetch(ctx, http.MethodGet, targetURL, hdr)
		if err != nil {
			result.Errors++
			c.logger.Debug("cors probe failed", slog.String("origin", o.Origin), slog.String("error", err.Error()))
			continue
		}
		if strings.Contains(strings.ToLower(resp.Headers.Get("Vary")), "origin") {
			result.VaryOrigin = true
		}
		if v := analyzeProbe(o, resp.Headers); v != nil {
			result.Vulnerabilities = append(result.Vulnerabilities, *v)
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return result, err
	}
	if v, err := c.preflight(ctx, targetURL, c.origin); err != nil {
		result.Errors++
	} else if v != nil {
		result.Vulnerabilities = append(result.Vulnerabilities, *v)
	}

	for _, v := range result.Vulnerabilities {
		result.Severity = finding.Max(result.Severity, v.Severity)
	}
	result.Duration = time.Since(start)
	return result, nil
}

func (c *Checker) preflight(ctx context.Context, targetURL, origin string) (*Vulnerability, error) {
	hdr := http.Header{}
	hdr.Set("Origin", origin)
	hdr.Set("Access-Control-Request-Method", http.MethodPut)
	hdr.Set("Access-Control-Request-Headers", "X-Custom-Header")
	resp, err := c.fetch(ctx, http.MethodOptions, targetURL, hdr)
	if err != nil {
		return nil, err
	}

	allowOrigin := resp.Headers.Get("Access-Control-Allow-Origin")
	methods := strings.ToLower(resp.Headers.Get("Access-Control-Allow-Methods"))
	creds := resp.Headers.Get("Access-Control-Allow-Credentials") == "true"
	if allowOrigin != "*" && allowOrigin != origin {
		return nil, nil
	}
	if !strings.Contains(methods, "put") && !strings.Contains(methods, "delete") && !strings.Contains(methods, "*") {
		return nil, nil
	}
	sev := finding.Medium
	if creds {
		sev = finding.High
	}
	evidence := fmt.Sprintf("Methods: %s, Headers: %s",
		resp.Headers.Get("Access-Control-Allow-Methods"), resp.Headers.Get("Access-Control-Allow-Headers"))
	return &Vulnerability{
		Type:         VulnPreflight,
		Description:  "Preflight allows dangerous methods from untrusted origin",
		Severity:     sev,
		TestedOrigin: origin,
		AllowOrigin:  allowOrigin,
		Credentials:  creds,
		Evidence:     evidence,
		Remediation:  remediation(VulnPreflight),
	}, nil
}

func analyzeProbe(o ProbeOrigin, h http.Header) *Vulnerability {
	allowOrigin := h.Get("Access-Control-Allow-Origin")
	creds := h.Get("Access-Control-Allow-Credentials") == "true"

	switch {
	case allowOrigin == "":
		return nil
	case allowOrigin == "*" && creds:
		return &Vulnerability{
			Type:         VulnWildcardCredentials,
			Description:  "Wildcard origin with credentials enabled",
			Severity:     finding.Critical,
			TestedOrigin: o.Origin,
			AllowOrigin:  allowOrigin,
			Credentials:  true,
			Evidence:     "Access-Control-Allow-Origin: * with Access-Control-Allow-Credentials: true",
			Remediation:  remediation(VulnWildcardCredentials),
		}
	case allowOrigin == o.Origin:
		sev := finding.High
		if creds {
			sev = finding.Critical
		}
		return &Vulnerability{
			Type:         o.Type,
			Description:  "Origin accepted: " + o.Description,
			Severity:     sev,
			TestedOrigin: o.Origin,
			AllowOrigin:  allowOrigin,
			Credentials:  creds,
			Evidence:     fmt.Sprintf("Access-Control-Allow-Origin: %s", allowOrigin),
			Remediation:  remediation(o.Type),
		}
	}
	return nil
}

var remediations = map[VulnerabilityType]string{
	VulnOriginReflection:    "Check the Origin header against a strict allowlist instead of reflecting it.",
	VulnNullOrigin:          "Remove null from the allowed origins. Sandboxed iframes and local files send it.",
	VulnWildcardCredentials: "Name specific origins when credentials are allowed.",
	VulnSubdomainTrust:      "Match origins exactly rather than trusting every subdomain.",
	VulnWeakRegex:           "Compare full origins as strings; anchored regexes still miss scheme downgrades.",
	VulnPreflight:           "Validate the origin in preflight responses and allow only the methods in use.",
}

func remediation(t VulnerabilityType) string {
	if r, ok := remediations[t]; ok {
		return r
	}
	return "Validate origins against a strict allowlist."
}
