package server

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thecyberx/cyberx/pkg/jsonutil"
	"github.com/thecyberx/cyberx/pkg/mcpserver"
	"github.com/thecyberx/cyberx/pkg/output/hooks"
	"github.com/thecyberx/cyberx/pkg/panel"
)

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()
	cfg := Config{Registry: panel.New(panel.Env{Logger: quiet()}), Logger: quiet()}
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string, hdr ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewRequiresRegistry(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	rec := do(t, newServer(t, nil).Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get("X-Content-Type-Options"))
}

func TestListAndDescribe(t *testing.T) {
	h := newServer(t, nil).Handler()

	rec := do(t, h, http.MethodGet, "/api/panels", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []panel.Info
	require.NoError(t, jsonutil.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 19)
	assert.Equal(t, "encoder", list[0].ID)

	rec = do(t, h, http.MethodGet, "/api/panels/CORS", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"cors"`)

	rec = do(t, h, http.MethodGet, "/api/panels/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunPanel(t *testing.T) {
	h := newServer(t, nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/panels/hasher", `{"text":"hello","algorithm":"md5"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Panel string `json:"panel"`
		Text  string `json:"text"`
		Table struct {
			Columns []string `json:"columns"`
		} `json:"table"`
	}
	require.NoError(t, jsonutil.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "hasher", resp.Panel)
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", resp.Text)
	assert.NotEmpty(t, resp.Table.Columns)
}

func TestRunEmptyBodyUsesDefaults(t *testing.T) {
	rec := do(t, newServer(t, nil).Handler(), http.MethodPost, "/api/panels/ip", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"text":"192.168.1.0/24"`)
}

func TestRunErrors(t *testing.T) {
	h := newServer(t, nil).Handler()
	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"unknown panel", "/api/panels/nope", `{}`, http.StatusNotFound},
		{"bad json", "/api/panels/encoder", `[1,2`, http.StatusBadRequest},
		{"not an object", "/api/panels/encoder", `"text"`, http.StatusBadRequest},
		{"missing arg", "/api/panels/jwt", `{}`, http.StatusBadRequest},
		{"bad enum", "/api/panels/encoder", `{"text":"a","direction":"up"}`, http.StatusBadRequest},
		{"panel failure", "/api/panels/jwt", `{"token":"not-a-token"}`, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestRunBodyTooLarge(t *testing.T) {
	body := `{"text":"` + strings.Repeat("a", maxBody) + `"}`
	rec := do(t, newServer(t, nil).Handler(), http.MethodPost, "/api/panels/encoder", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestMetricsRoute(t *testing.T) {
	m, err := hooks.NewPrometheusHook(hooks.PrometheusOptions{})
	require.NoError(t, err)
	h := newServer(t, func(c *Config) { c.Metrics = m.Handler() }).Handler()
	rec := do(t, h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, newServer(t, nil).Handler(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTokenAuth(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	h := newServer(t, func(c *Config) { c.Secret = secret }).Handler()

	rec := do(t, h, http.MethodGet, "/api/panels", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	token, err := IssueToken(secret, "tester", time.Hour)
	require.NoError(t, err)
	rec = do(t, h, http.MethodGet, "/api/panels", "", "Authorization", "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)

	other, err := IssueToken([]byte("another-secret-another-secret!!"), "tester", time.Hour)
	require.NoError(t, err)
	rec = do(t, h, http.MethodGet, "/api/panels", "", "Authorization", "Bearer "+other)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code, "health stays open")
}

func TestValidateToken(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString(secret)
	require.NoError(t, err)
	_, err = ValidateToken(secret, expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Issuer: tokenIssuer}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ValidateToken(secret, none)
	assert.Error(t, err, "alg none is refused")

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Issuer: "someone"}).SignedString(secret)
	require.NoError(t, err)
	_, err = ValidateToken(secret, foreign)
	assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	_, err = IssueToken(nil, "x", 0)
	assert.Error(t, err)
}

func TestMCPMounted(t *testing.T) {
	mcp := mcpserver.New(&mcpserver.Config{Logger: quiet()})
	h := newServer(t, func(c *Config) { c.MCP = mcp }).Handler()

	rec := do(t, h, http.MethodGet, "/health", "")
	assert.Contains(t, rec.Body.String(), `"status":"starting"`)
	mcp.MarkReady()
	rec = do(t, h, http.MethodGet, "/health", "")
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	init := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"t","version":"0"}}}`
	rec = do(t, h, http.MethodPost, "/mcp", init,
		"Content-Type", "application/json",
		"Accept", "application/json, text/event-stream")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Mcp-Session-Id"))
}

func TestServeShutdown(t *testing.T) {
	s := newServer(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
