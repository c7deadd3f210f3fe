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

	"github.com/thecyberx/cyberx/pkg/output/hooks"
	"github.com/thecyberx/cyberx/pkg/server"
	"github.com/thecyberx/cyberx/pkg/ui"
)

// minSecretLen is the shortest -secret accepted for HS256.
const minSecretLen = 32

// runServe starts the HTTP API with MCP mounted at /mcp.
func runServe(ctx context.Context, argv []string) error {
	cfg, err := loadConfig(argv, os.Getenv)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var g globalFlags
	g.register(fs)
	cfg.RegisterFlags(fs)
	addr := fs.String("addr", ":8080", "HTTP listen address")
	secret := fs.String("secret", os.Getenv("CYBERX_API_SECRET"), "Require bearer tokens signed with this secret (see cyberx token)")
	runTimeout := fs.Duration("run-timeout", 2*time.Minute, "Bound on a single panel run (0 = none)")
	noMCP := fs.Bool("no-mcp", false, "Do not mount the MCP transport")
	metricsAddr := fs.String("metrics-addr", cfg.Telemetry.MetricsAddr, "Serve /metrics on a separate address instead of the API port")
	silent := fs.Bool("silent", false, "No banner")
	if err := fs.Parse(argv); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if *secret != "" && len(*secret) < minSecretLen {
		return fmt.Errorf("-secret must be at least %d bytes", minSecretLen)
	}
	ui.SetSilent(*silent)

	logger, err := newLogger(os.Stderr, cfg.LogLevel, g.Verbose, false)
	if err != nil {
		return err
	}
	recordLifecycle(logger)

	metrics, err := hooks.NewPrometheusHook(hooks.PrometheusOptions{})
	if err != nil {
		return err
	}
	svc, err := newService(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer svc.Close()

	scfg := server.Config{
		Registry:   svc.registry,
		Secret:     []byte(*secret),
		RunTimeout: *runTimeout,
		Logger:     logger,
	}
	if !*noMCP {
		scfg.MCP = svc.mcp
	}
	if *metricsAddr == "" {
		scfg.Metrics = metrics.Handler()
	} else {
		go serveMetrics(ctx, *metricsAddr, metrics.Handler(), logger)
	}
	srv, err := server.New(scfg)
	if err != nil {
		return err
	}

	ui.PrintBanner()
	auth := "off"
	if *secret != "" {
		auth = "bearer (HS256)"
	}
	ui.PrintConfigBanner(map[string]string{
		"Backend": cfg.ResolvedBackend(),
		"Chrome":  cfg.Host.ChromeURL,
		"Proxy":   cfg.HTTP.Proxy,
		"Listen":  *addr,
		"Auth":    auth,
		"Metrics": *metricsAddr,
	})

	svc.mcp.MarkReady()
	return srv.ListenAndServe(ctx, *addr)
}

func serveMetrics(ctx context.Context, addr string, h http.Handler, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	logger.Info("metrics listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server", slog.String("error", err.Error()))
	}
}
