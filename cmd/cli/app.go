package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/thecyberx/cyberx/pkg/config"
	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/encoding"
	"github.com/thecyberx/cyberx/pkg/hostbridge"
	"github.com/thecyberx/cyberx/pkg/httpclient"
	"github.com/thecyberx/cyberx/pkg/output/dispatcher"
	"github.com/thecyberx/cyberx/pkg/panel"
	"github.com/thecyberx/cyberx/pkg/ruleset"
	"github.com/thecyberx/cyberx/pkg/ui"
)

// streams are the standard files, swapped out by tests.
type streams struct {
	in  io.Reader
	out io.Writer
	err io.Writer
}

func stdStreams() streams {
	return streams{in: os.Stdin, out: os.Stdout, err: os.Stderr}
}

// globalFlags are accepted by every command.
type globalFlags struct {
	ConfigPath string
	Verbose    bool
}

func (g *globalFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.ConfigPath, "config", "", "Config file, YAML, JSON or TOML (default "+config.DefaultPath()+")")
	fs.BoolVar(&g.Verbose, "verbose", false, "Debug logging")
	fs.BoolVar(&g.Verbose, "v", false, "Debug logging (alias)")
}

// loadConfig reads the file named by -config in argv, or CYBERX_CONFIG,
// or the default path, then overlays CYBERX_* variables. Flags bound with
// cfg.RegisterFlags afterwards take precedence over both.
func loadConfig(argv []string, getenv func(string) string) (*config.Config, error) {
	path := flagValue(argv, "config")
	if path == "" {
		path = getenv("CYBERX_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// flagValue returns the value of -name or --name in argv, in either the
// "-name v" or "-name=v" form. Scanning stops at "--".
func flagValue(argv []string, name string) string {
	for i := 0; i < len(argv); i++ {
		a := argv[i]
		if a == "--" {
			break
		}
		if !strings.HasPrefix(a, "-") {
			continue
		}
		a = strings.TrimLeft(a, "-")
		if v, ok := strings.CutPrefix(a, name+"="); ok {
			return v
		}
		if a == name && i+1 < len(argv) {
			return argv[i+1]
		}
	}
	return ""
}

// newLogger builds the stderr text logger. One-shot commands pass quiet so
// routine panel lifecycle lines stay hidden unless -v is given.
func newLogger(w io.Writer, level string, verbose, quiet bool) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	switch {
	case verbose:
		lvl = slog.LevelDebug
	case quiet && lvl < slog.LevelWarn:
		lvl = slog.LevelWarn
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger, nil
}

// recordLifecycle logs the first run of this install and version changes.
func recordLifecycle(logger *slog.Logger) {
	dir, err := config.Dir()
	if err != nil {
		return
	}
	event, err := config.RecordVersion(dir, defaults.Version)
	if err != nil {
		logger.Debug("version marker", slog.String("error", err.Error()))
		return
	}
	if event == "" {
		return
	}
	logger.Info(defaults.ToolName+" "+event, slog.String("version", defaults.Version), slog.String("config_dir", dir))
	ui.PrintInfo(fmt.Sprintf("%s %s %s", defaults.ToolName, defaults.Version, event))
}

func httpConfig(cfg *config.Config) httpclient.Config {
	return httpclient.Config{
		Timeout:            cfg.HTTP.Timeout,
		InsecureSkipVerify: cfg.HTTP.Insecure,
		Proxy:              cfg.HTTP.Proxy,
		FollowRedirects:    true,
		UserAgent:          cfg.HTTP.UserAgent,
		TLSProfile:         cfg.HTTP.TLSProfile,
	}
}

// openHost connects the configured backend.
func openHost(ctx context.Context, cfg *config.Config, logger *slog.Logger) (hostbridge.Host, error) {
	return hostbridge.Open(ctx, hostbridge.Options{
		Backend:   cfg.ResolvedBackend(),
		ChromeURL: cfg.Host.ChromeURL,
		Headless:  true,
		URL:       cfg.Host.URL,
		HTTP:      httpConfig(cfg),
		Logger:    logger,
	})
}

// needsHost reports whether info reads pages, cookies or the network.
// Other panels run against an empty in-memory host so no browser is
// started for them.
func needsHost(info panel.Info) bool {
	if info.Category == panel.Recon || info.ID == "cookies" {
		return true
	}
	for _, p := range info.Params {
		switch p.Name {
		case "url", "urls", "favicon":
			return true
		}
	}
	return false
}

// newRegistry builds the panel registry from cfg. Encoder scripts are
// registered once per process.
func newRegistry(cfg *config.Config, host hostbridge.Host, logger *slog.Logger, d *dispatcher.Dispatcher) (*panel.Registry, error) {
	rules, err := ruleset.LoadDir(cfg.RulesDir)
	if err != nil {
		return nil, err
	}
	if len(cfg.EncoderScripts) > 0 {
		encoding.RegisterScripts(cfg.EncoderScripts, logger)
	}

	pc := httpConfig(cfg)
	pc.FollowRedirects = false
	client, err := httpclient.New(pc)
	if err != nil {
		return nil, err
	}

	env := panel.Env{
		Host:          host,
		Rules:         rules,
		Client:        client,
		Logger:        logger,
		CORSOrigin:    cfg.CORS.Origin,
		ShellIP:       cfg.Shell.IP,
		ShellPort:     cfg.Shell.Port,
		RatePerSecond: defaults.ProbesPerSecond,
		Burst:         defaults.ProbeBurst,
	}
	var opts []panel.Option
	if d != nil {
		opts = append(opts, panel.WithDispatcher(d))
	}
	return panel.New(env, opts...), nil
}
