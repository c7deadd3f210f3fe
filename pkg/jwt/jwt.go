// Package jwt decodes compact JSON Web Tokens for inspection and reports
// common security weaknesses. Signatures are never verified.
package jwt

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/thecyberx/cyberx/pkg/finding"
	"github.com/thecyberx/cyberx/pkg/jsonutil"
)

// Messages are shown to the user verbatim.
var (
	ErrInvalidFormat = errors.New("Invalid JWT format. Expected 3 parts separated by dots.")
	ErrDecode        = errors.New("Failed to decode JWT. Make sure it's a valid token.")
	ErrExpired       = errors.New("Token is expired")
	ErrNotYetValid   = errors.New("Token is not yet valid")
)

// Unverified labels every validity result.
const Unverified = "not cryptographically verified"

// Algorithm represents JWT signing algorithms
type Algorithm string

const (
	AlgNone  Algorithm = "none"
	AlgHS256 Algorithm = "HS256"
	AlgHS384 Algorithm = "HS384"
	AlgHS512 Algorithm = "HS512"
)

// TimeClaims are rendered as dates.
var TimeClaims = []string{"exp", "iat", "nbf"}

// Token is a decoded compact token.
type Token struct {
	Raw       string           `json:"-"`
	Header    map[string]any   `json:"header"`
	Payload   jwtlib.MapClaims `json:"payload"`
	Signature string           `json:"signature"`
}

// Segments are base64url with or without padding.
var segmentParser = jwtlib.NewParser(jwtlib.WithPaddingAllowed())

// Decode splits a compact token and decodes its header and payload as JSON
// objects. The signature segment is kept as written.
func Decode(tokenString string) (*Token, error) {
	parts := strings.Split(strings.TrimSpace(tokenString), ".")
	if len(parts) != 3 {
		return nil, ErrInvalidFormat
	}

	token := &Token{Raw: tokenString, Signature: parts[2]}
	var payload map[string]any
	if decodeSegment(parts[0], &token.Header) != nil || decodeSegment(parts[1], &payload) != nil {
		return nil, ErrDecode
	}
	token.Payload = jwtlib.MapClaims(payload)
	return token, nil
}

func decodeSegment(seg string, out *map[string]any) error {
	data, err := segmentParser.DecodeSegment(seg)
	if err != nil {
		return err
	}
	if err := jsonutil.Unmarshal(data, out); err != nil {
		return err
	}
	if *out == nil {
		return errors.New("not a JSON object")
	}
	return nil
}

// Alg returns the header alg, or "".
func (t *Token) Alg() string { return t.headerString("alg") }

func (t *Token) headerString(key string) string {
	s, _ := t.Header[key].(string)
	return s
}

// ClaimTime returns exp, nbf or iat as a time. Absent, zero and
// non-numeric claims report false.
func (t *Token) ClaimTime(name string) (time.Time, bool) {
	var (
		date *jwtlib.NumericDate
		err  error
	)
	switch name {
	case "exp":
		date, err = t.Payload.GetExpirationTime()
	case "nbf":
		date, err = t.Payload.GetNotBefore()
	case "iat":
		date, err = t.Payload.GetIssuedAt()
	default:
		return time.Time{}, false
	}
	if err != nil || date == nil {
		return time.Time{}, false
	}
	return date.Time, true
}

// Validate checks exp and then nbf against now.
func (t *Token) Validate(now time.Time) error {
	if exp, ok := t.ClaimTime("exp"); ok && exp.Before(now) {
		return ErrExpired
	}
	if nbf, ok := t.ClaimTime("nbf"); ok && nbf.After(now) {
		return ErrNotYetValid
	}
	return nil
}

// FormatTimeClaims renders exp, iat and nbf as "value (date)" in loc.
func (t *Token) FormatTimeClaims(loc *time.Location) map[string]string {
	if loc == nil {
		loc = time.Local
	}
	out := make(map[string]string)
	for _, name := range TimeClaims {
		ts, ok := t.ClaimTime(name)
		if !ok {
			continue
		}
		out[name] = fmt.Sprintf("%s (%s)", formatNumber(t.Payload[name]), ts.In(loc).Format(time.DateTime+" MST"))
	}
	return out
}

func formatNumber(v any) string {
	f, ok := v.(float64)
	if !ok {
		return fmt.Sprint(v)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// Inspection is the JWT panel result.
type Inspection struct {
	Header     map[string]any    `json:"header"`
	Payload    jwtlib.MapClaims  `json:"payload"`
	Signature  string            `json:"signature"`
	Valid      bool              `json:"valid"`
	Status     string            `json:"status"`
	Verified   string            `json:"verified"`
	TimeClaims map[string]string `json:"time_claims,omitempty"`
	Analysis   *TokenAnalysis    `json:"analysis"`
}

// Inspect decodes a token and evaluates its time validity at now. Format and
// decode failures are returned as errors; an expired or not-yet-valid token
// is still returned with Valid false.
func Inspect(tokenString string, now time.Time, loc *time.Location) (*Inspection, error) {
	token, err := Decode(tokenString)
	if err != nil {
		return nil, err
	}
	in := &Inspection{
		Header:     token.Header,
		Payload:    token.Payload,
		Signature:  token.Signature,
		Valid:      true,
		Status:     "Token is valid",
		Verified:   Unverified,
		TimeClaims: token.FormatTimeClaims(loc),
		Analysis:   analyzeToken(token, now),
	}
	if err := token.Validate(now); err != nil {
		in.Valid = false
		in.Status = err.Error()
	}
	return in, nil
}

// Issue is one analysis finding.
type Issue struct {
	Severity finding.Severity `json:"severity"`
	Message  string           `json:"message"`
}

// TokenAnalysis represents the security analysis of a JWT
type TokenAnalysis struct {
	Algorithm string           `json:"algorithm"`
	Issues    []Issue          `json:"issues"`
	Risk      finding.Severity `json:"risk"` // highest issue severity, at least low
}

func (a *TokenAnalysis) add(sev finding.Severity, format string, args ...any) {
	a.Issues = append(a.Issues, Issue{Severity: sev, Message: fmt.Sprintf(format, args...)})
	a.Risk = finding.Max(a.Risk, sev)
}

// Analyze performs security analysis on a JWT
func Analyze(tokenString string) (*TokenAnalysis, error) {
	token, err := Decode(tokenString)
	if err != nil {
		return nil, err
	}
	return analyzeToken(token, time.Now()), nil
}

var privilegedRoles = map[string]bool{"admin": true, "superuser": true, "root": true}

func analyzeToken(token *Token, now time.Time) *TokenAnalysis {
	alg := token.Alg()
	analysis := &TokenAnalysis{
		Algorithm: alg,
		Issues:    []Issue{},
		Risk:      finding.Low,
	}

	// Null bytes and case variants of "none" are accepted by some libraries.
	if strings.EqualFold(strings.TrimRight(alg, "\x00"), string(AlgNone)) {
		analysis.add(finding.Critical, "Algorithm is 'none' - token is not signed")
	}
	switch Algorithm(alg) {
	case AlgHS256, AlgHS384, AlgHS512:
		analysis.add(finding.Medium, "HMAC algorithm used - vulnerable to weak secret brute force")
	}

	if token.headerString("jku") != "" {
		analysis.add(finding.High, "JKU header present - potential for JWKS URL spoofing")
	}
	if token.headerString("x5u") != "" {
		analysis.add(finding.High, "X5U header present - potential for certificate URL spoofing")
	}
	if token.headerString("kid") != "" {
		analysis.add(finding.Low, "Kid header present - check for injection vulnerabilities")
	}

	exp, hasExp := token.ClaimTime("exp")
	switch {
	case !hasExp || exp.Unix() == 0:
		analysis.add(finding.Medium, "No expiration set - token never expires")
	case exp.Before(now):
		analysis.add(finding.Info, "Token has expired")
	case exp.Sub(now) > 30*24*time.Hour:
		analysis.add(finding.Low, "Token has very long expiration (>30 days)")
	}

	if admin, _ := token.Payload["admin"].(bool); admin {
		analysis.add(finding.Info, "Admin claim is set to true")
	}
	if role, _ := token.Payload["role"].(string); privilegedRoles[strings.ToLower(role)] {
		analysis.add(finding.Info, "Privileged role: %s", role)
	}
	if roles, ok := token.Payload["roles"].([]any); ok {
		for _, r := range roles {
			if s, _ := r.(string); privilegedRoles[strings.ToLower(s)] {
				analysis.add(finding.Info, "Privileged role: %s", s)
			}
		}
	}

	return analysis
}

// Encode builds an unsigned compact token from header and payload. It is
// intended for fixtures and for crafting alg=none variants.
func Encode(header, payload map[string]any, signature string) (string, error) {
	h, err := jsonutil.Marshal(header)
	if err != nil {
		return "", fmt.Errorf("marshal header: %w", err)
	}
	p, err := jsonutil.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return base64URLEncode(h) + "." + base64URLEncode(p) + "." + signature, nil
}

func base64URLEncode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

