package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync/atomic"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/jsonutil"
	"github.com/thecyberx/cyberx/pkg/panel"
)

// The SDK types LoggingLevel as a plain string without constants.
const (
	logDebug   mcp.LoggingLevel = "debug"
	logInfo    mcp.LoggingLevel = "info"
	logWarning mcp.LoggingLevel = "warning"
	logError   mcp.LoggingLevel = "error"
)

const serverInstructions = `CyberX is a web security toolkit. Each tool is one panel:
encoders, hashes and JWT inspection (core), reverse shells, CORS, security
headers and cookies (security), page recon over the active browser tab (recon),
and regex, time, UUID, subnet and beautifier utilities (utils).

Recon tools read the page open in the connected browser. Pass "url" to
navigate first. Results carry a severity when a finding was made.`

// Config holds MCP server configuration.
type Config struct {
	// Registry runs the tools. A registry over an in-memory host is used
	// when nil.
	Registry *panel.Registry

	Logger *slog.Logger
}

// Server wraps the MCP server around a panel registry.
type Server struct {
	mcp      *mcp.Server
	registry *panel.Registry
	logger   *slog.Logger
	ready    atomic.Bool
}

// New creates a server with every panel registered as a tool, plus the
// catalog resources and workflow prompts.
func New(cfg *Config) *Server {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = panel.New(panel.Env{Logger: logger})
	}

	s := &Server{registry: reg, logger: logger.With("component", "mcp")}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "cyberx",
			Title:   defaults.ToolName + " MCP Server",
			Version: defaults.Version,
		},
		&mcp.ServerOptions{
			Instructions: serverInstructions,
			Logger:       s.logger,
		},
	)

	s.registerTools()
	s.registerResources()
	s.registerPrompts()
	return s
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server { return s.mcp }

// Registry returns the registry tools run through.
func (s *Server) Registry() *panel.Registry { return s.registry }

// MarkReady flips /health from 503 to 200.
func (s *Server) MarkReady() { s.ready.Store(true) }

func (s *Server) IsReady() bool { return s.ready.Load() }

// RunStdio serves a single client over stdin and stdout until ctx ends or
// the client disconnects.
func (s *Server) RunStdio(ctx context.Context) error {
	s.logger.Info("serving MCP over stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the bare streamable HTTP transport, for mounting under
// another router.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return s.mcp },
		&mcp.StreamableHTTPOptions{},
	)
}

// HTTPHandler returns a standalone handler:
//   - /health  readiness probe
//   - /mcp     streamable HTTP transport
//   - /        streamable HTTP transport
//
// CORS, panic recovery and security headers wrap every route.
func (s *Server) HTTPHandler() http.Handler {
	streamable := s.Handler()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/mcp", streamable)
	mux.Handle("/", streamable)

	return CORS(Recover(s.logger, SecurityHeaders(mux)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if !s.IsReady() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"starting","service":"cyberx-mcp"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok","service":"cyberx-mcp"}`))
}

// CORS echoes the request Origin so browser-based MCP clients can connect.
// Requests without an Origin pass through untouched.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")
		origin := r.Header.Get("Origin")
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", strings.Join([]string{
			"Content-Type",
			"Authorization",
			"Mcp-Session-Id",
			"MCP-Protocol-Version",
			"Last-Event-ID",
			"Accept",
		}, ", "))
		w.Header().Set("Access-Control-Expose-Headers", "Mcp-Session-Id, MCP-Protocol-Version")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Recover turns a handler panic into a 500 JSON response.
func Recover(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("panic in HTTP handler",
					slog.Any("panic", err),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())))
				// A no-op once a stream has started.
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"internal server error"}`))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// SecurityHeaders sets nosniff and frame denial on every response.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Result builders
// ---------------------------------------------------------------------------

func boolPtr(b bool) *bool { return &b }

// parseArgs decodes the raw tool arguments into dst.
func parseArgs(req *mcp.CallToolRequest, dst any) error {
	if len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := jsonutil.Unmarshal(req.Params.Arguments, dst); err != nil {
		return fmt.Errorf("parsing tool arguments: %w", err)
	}
	return nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// jsonResult returns v as indented JSON text and as structured content.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := jsonutil.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling result: %w", err)
	}
	res := textResult(string(data))
	res.StructuredContent = v
	return res, nil
}

// errorResult reports a failure inside the result so the model can read it
// and correct the call.
func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

// enrichedError is an error result with recovery steps.
func enrichedError(msg string, steps []string) *mcp.CallToolResult {
	type errResponse struct {
		Error         string   `json:"error"`
		RecoverySteps []string `json:"recovery_steps"`
	}
	data, err := jsonutil.MarshalIndent(errResponse{Error: msg, RecoverySteps: steps}, "", "  ")
	if err != nil {
		return errorResult(msg)
	}
	return errorResult(string(data))
}
