// Package server serves the panel registry over HTTP: a JSON API for
// running panels, the MCP streamable transport, health and metrics.
//
//	GET  /health
//	GET  /metrics
//	GET  /api/panels
//	GET  /api/panels/{id}
//	POST /api/panels/{id}     body: JSON object of panel arguments
//	*    /mcp
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/finding"
	"github.com/thecyberx/cyberx/pkg/jsonutil"
	"github.com/thecyberx/cyberx/pkg/mcpserver"
	"github.com/thecyberx/cyberx/pkg/output/events"
	"github.com/thecyberx/cyberx/pkg/panel"
)

// maxBody caps a panel request body.
const maxBody = 1 << 20

// Config wires the server's collaborators. Only Registry is required.
type Config struct {
	Registry *panel.Registry

	// MCP is mounted at /mcp when set.
	MCP *mcpserver.Server

	// Metrics is served at /metrics when set.
	Metrics http.Handler

	// Secret, when set, requires an HS256 bearer token on /api and /mcp.
	Secret []byte

	// RunTimeout bounds a single panel run. Zero means no bound beyond
	// the client connection.
	RunTimeout time.Duration

	Logger *slog.Logger
}

// Server is the HTTP front end.
type Server struct {
	cfg    Config
	logger *slog.Logger
	router chi.Router
}

// New builds the router.
func New(cfg Config) (*Server, error) {
	if cfg.Registry == nil {
		return nil, errors.New("server: registry is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{cfg: cfg, logger: logger.With("component", "server")}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(func(next http.Handler) http.Handler { return mcpserver.Recover(s.logger, next) })
	r.Use(mcpserver.SecurityHeaders)

	r.Get("/health", s.handleHealth)
	if s.cfg.Metrics != nil {
		r.Handle("/metrics", s.cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		if len(s.cfg.Secret) > 0 {
			r.Use(RequireToken(s.cfg.Secret))
		}
		r.Route("/api/panels", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Get("/{id}", s.handleDescribe)
			r.Post("/{id}", s.handleRun)
		})
		if s.cfg.MCP != nil {
			mcpHandler := mcpserver.CORS(s.cfg.MCP.Handler())
			r.Handle("/mcp", mcpHandler)
			r.Handle("/mcp/*", mcpHandler)
		}
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	s.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "ok"
	if s.cfg.MCP != nil && !s.cfg.MCP.IsReady() {
		status = "starting"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"service": "cyberx",
		"version": defaults.Version,
	})
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Registry.List())
}

func (s *Server) handleDescribe(w http.ResponseWriter, r *http.Request) {
	info, ok := s.cfg.Registry.Lookup(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown panel %q", chi.URLParam(r, "id")))
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// RunResponse is the body of a successful POST /api/panels/{id}.
type RunResponse struct {
	Panel      string           `json:"panel"`
	Severity   finding.Severity `json:"severity,omitempty"`
	DurationMs float64          `json:"duration_ms"`
	Data       any              `json:"data"`
	Text       string           `json:"text,omitempty"`
	Table      *events.Table    `json:"table,omitempty"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, ok := s.cfg.Registry.Lookup(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown panel %q", id))
		return
	}

	args := panel.Args{}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	if len(body) > 0 {
		if err := jsonutil.Unmarshal(body, &args); err != nil {
			writeError(w, http.StatusBadRequest, "body must be a JSON object: "+err.Error())
			return
		}
	}

	ctx := r.Context()
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.cfg.Registry.Run(ctx, info.ID, args)
	if err != nil {
		s.writeRunError(w, info, err)
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{
		Panel:      info.ID,
		Severity:   res.Severity,
		DurationMs: float64(time.Since(start).Microseconds()) / 1000,
		Data:       res.Data,
		Text:       res.Text,
		Table:      res.Table,
	})
}

func (s *Server) writeRunError(w http.ResponseWriter, info panel.Info, err error) {
	var pe *panel.PanelError
	switch {
	case errors.As(err, &pe):
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": pe.Error(),
			"panel": info.ID,
			"panic": true,
		})
	case errors.Is(err, panel.ErrMissingArg), errors.Is(err, panel.ErrInvalidArg):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.Is(err, context.Canceled):
		// The client is gone.
		s.logger.Debug("run cancelled", "panel", info.ID)
	default:
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

// logRequests logs one line per request once it completes.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Int("bytes", ww.BytesWritten()),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := jsonutil.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"encoding response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
