package cors

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thecyberx/cyberx/pkg/finding"
	"github.com/thecyberx/cyberx/pkg/hostbridge"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		acao, origin string
		want         Status
	}{
		{"*", "https://evil.com", StatusWildcard},
		{"https://evil.com", "https://evil.com", StatusReflected},
		{"null", "https://evil.com", StatusNullAllowed},
		{"null", "null", StatusReflected},
		{"https://app.example.com", "https://evil.com", StatusSpecific},
		{"", "https://evil.com", StatusNotConfigured},
	}
	for _, tt := range tests {
		t.Run(tt.acao+"|"+tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.acao, tt.origin))
		})
	}
}

func TestCheck_Reflected(t *testing.T) {
	var gotMethod, gotACRM string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotACRM = r.Header.Get("Access-Control-Request-Method")
		w.Header().Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(Options{})
	res, err := c.Check(context.Background(), srv.URL, "")
	require.NoError(t, err)

	assert.Equal(t, http.MethodOptions, gotMethod)
	assert.Equal(t, "GET", gotACRM)
	assert.Equal(t, "https://evil.com", res.Origin)
	assert.True(t, res.Allowed)
	assert.True(t, res.Credentials)
	assert.Equal(t, "GET, POST", res.Methods)
	assert.Equal(t, NotSet, res.Headers)
	assert.Equal(t, StatusReflected, res.Status)
	assert.Equal(t, finding.High, res.Status.Severity())
}

func TestCheck_NotConfigured(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	res, err := New(Options{}).Check(context.Background(), srv.URL, "https://other.test")
	require.NoError(t, err)
	assert.Equal(t, NotSet, res.Origin)
	assert.False(t, res.Allowed)
	assert.Equal(t, StatusNotConfigured, res.Status)
}

func TestCheck_NetworkError(t *testing.T) {
	host := hostbridge.NewMemory()
	host.FailFetch(errors.New("connection refused"))

	res, err := New(Options{Host: host}).Check(context.Background(), "https://api.example.com", "")
	require.NoError(t, err)
	assert.Equal(t, BlockedMessage, res.Error)
	assert.Equal(t, NA, res.Origin)
	assert.Equal(t, NA, res.Methods)
	assert.Equal(t, NA, res.Headers)
	assert.False(t, res.Allowed)
}

func TestCheck_EmptyURL(t *testing.T) {
	_, err := New(Options{}).Check(context.Background(), "  ", "")
	assert.ErrorIs(t, err, ErrEmptyURL)
}

func TestCheck_ThroughHost(t *testing.T) {
	host := hostbridge.NewMemory()
	host.SetResponse(http.MethodOptions, "https://api.example.com/", &hostbridge.Response{
		StatusCode: 204,
		Headers:    http.Header{"Access-Control-Allow-Origin": {"*"}},
	})
	res, err := New(Options{Host: host}).Check(context.Background(), "https://api.example.com/", "")
	require.NoError(t, err)
	assert.Equal(t, StatusWildcard, res.Status)
}

func TestProbeOrigins(t *testing.T) {
	origins := ProbeOrigins("https://shop.example.co.uk/api", "")
	var got []string
	for _, o := range origins {
		got = append(got, o.Origin)
	}
	assert.Equal(t, []string{
		"https://evil.com",
		"null",
		"https://evil.example.co.uk",
		"https://example.co.ukevil.com",
		"https://example.co.uk.evil.com",
		"http://shop.example.co.uk",
	}, got)

	assert.Len(t, ProbeOrigins("::bad", ""), 2)
}

func TestScan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		w.Header().Set("Vary", "Origin")
		if origin == "null" {
			w.Header().Set("Access-Control-Allow-Origin", "null")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, DELETE")
		}
	}))
	defer srv.Close()

	c := New(Options{RatePerSecond: 1000, Burst: 10})
	res, err := c.Scan(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, 2, res.TestedOrigins) // IP host: no domain-derived origins
	assert.True(t, res.VaryOrigin)
	require.Len(t, res.Vulnerabilities, 2)
	assert.Equal(t, VulnNullOrigin, res.Vulnerabilities[0].Type)
	assert.Equal(t, finding.Critical, res.Vulnerabilities[0].Severity)
	assert.Equal(t, VulnPreflight, res.Vulnerabilities[1].Type)
	assert.Equal(t, finding.Medium, res.Vulnerabilities[1].Severity)
	assert.Equal(t, finding.Critical, res.Severity)
}

func TestScan_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}).Scan(ctx, "https://example.com")
	assert.Error(t, err)
}
