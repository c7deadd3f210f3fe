package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/thecyberx/cyberx/pkg/config"
	"github.com/thecyberx/cyberx/pkg/hostbridge"
	"github.com/thecyberx/cyberx/pkg/mcpserver"
	"github.com/thecyberx/cyberx/pkg/output"
	"github.com/thecyberx/cyberx/pkg/output/dispatcher"
	"github.com/thecyberx/cyberx/pkg/output/hooks"
	"github.com/thecyberx/cyberx/pkg/panel"
)

// service is the long-lived registry behind the mcp and serve commands:
// one host and one dispatcher shared by every request.
type service struct {
	host       hostbridge.Host
	dispatcher *dispatcher.Dispatcher
	registry   *panel.Registry
	mcp        *mcpserver.Server
}

func newService(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *hooks.PrometheusHook) (*service, error) {
	host, err := openHost(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s host: %w", cfg.ResolvedBackend(), err)
	}
	d, err := output.BuildDispatcher(output.Config{
		Format:       output.FormatNone,
		Logger:       logger,
		Metrics:      metrics,
		OTelEndpoint: cfg.Telemetry.OTelEndpoint,
		OTelInsecure: cfg.Telemetry.OTelInsecure,
	})
	if err != nil {
		host.Close()
		return nil, err
	}
	reg, err := newRegistry(cfg, host, logger, d)
	if err != nil {
		d.Close()
		host.Close()
		return nil, err
	}
	srv := mcpserver.New(&mcpserver.Config{Registry: reg, Logger: logger})
	d.RegisterHook(srv.EventHook())
	return &service{host: host, dispatcher: d, registry: reg, mcp: srv}, nil
}

func (s *service) Close() error {
	return errors.Join(s.dispatcher.Close(), s.host.Close())
}

// runMCP starts the MCP server.
// Supports two transport modes:
//   - --stdio (default): for IDE integrations
//   - --http <addr>:     streamable HTTP for remote or container deployments
func runMCP(ctx context.Context, argv []string) error {
	cfg, err := loadConfig(argv, os.Getenv)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	var g globalFlags
	g.register(fs)
	cfg.RegisterFlags(fs)
	stdio := fs.Bool("stdio", true, "Use stdio transport (default, for IDE integration)")
	httpAddr := fs.String("http", "", "HTTP address to listen on (e.g. :8080). Disables stdio.")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: cyberx mcp [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Serve every panel as an MCP tool.\n\n")
		fmt.Fprintf(os.Stderr, "Transports:\n")
		fmt.Fprintf(os.Stderr, "  --stdio          Stdio transport for IDE integration (default)\n")
		fmt.Fprintf(os.Stderr, "  --http <addr>    Streamable HTTP transport at /mcp, health at /health\n\n")
		fmt.Fprintf(os.Stderr, "Environment variables:\n")
		fmt.Fprintf(os.Stderr, "  CYBERX_HTTP_ADDR     HTTP listen address (same as --http)\n")
		fmt.Fprintf(os.Stderr, "  CYBERX_CHROME_URL    DevTools URL of the browser to drive\n\n")
		fmt.Fprintf(os.Stderr, "Examples:\n")
		fmt.Fprintf(os.Stderr, "  cyberx mcp --stdio\n")
		fmt.Fprintf(os.Stderr, "  cyberx mcp --http :8080 --chrome http://127.0.0.1:9222\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(argv); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if *httpAddr == "" {
		*httpAddr = os.Getenv("CYBERX_HTTP_ADDR")
	}

	logger, err := newLogger(os.Stderr, cfg.LogLevel, g.Verbose, false)
	if err != nil {
		return err
	}
	recordLifecycle(logger)

	svc, err := newService(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer svc.Close()
	svc.mcp.MarkReady()

	if *httpAddr != "" {
		httpSrv := &http.Server{
			Addr:              *httpAddr,
			Handler:           svc.mcp.HTTPHandler(),
			ReadHeaderTimeout: 10 * time.Second,
			// No WriteTimeout: streamable responses are long-lived.
			IdleTimeout:    30 * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			logger.Info("shutting down")
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown", slog.String("error", err.Error()))
			}
		}()

		logger.Info("MCP server listening", slog.String("addr", *httpAddr), slog.String("transport", "http"))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	if !*stdio {
		return errors.New("no transport selected, use --stdio or --http <addr>")
	}
	logger.Info("MCP server ready", slog.String("transport", "stdio"))
	if err := svc.mcp.RunStdio(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
