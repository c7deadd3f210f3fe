package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/thecyberx/cyberx/pkg/cli"
	"github.com/thecyberx/cyberx/pkg/hostbridge"
	"github.com/thecyberx/cyberx/pkg/output"
	"github.com/thecyberx/cyberx/pkg/panel"
	"github.com/thecyberx/cyberx/pkg/ui"
)

// runPanel runs one panel from its subcommand line.
func runPanel(ctx context.Context, info panel.Info, argv []string, s streams) error {
	cfg, err := loadConfig(argv, os.Getenv)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet(info.ID, flag.ContinueOnError)
	fs.SetOutput(s.err)
	var g globalFlags
	g.register(fs)
	cfg.RegisterFlags(fs)
	out := newOutputFlags(cfg)
	out.RegisterFlags(fs)
	binding := cli.BindPanel(fs, info)
	fs.Usage = func() { printPanelUsage(fs, info, binding) }

	rest, err := cli.ParseInterleaved(fs, argv)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := out.Validate(); err != nil {
		return err
	}
	out.ApplyUISettings()

	logger, err := newLogger(s.err, cfg.LogLevel, g.Verbose, true)
	if err != nil {
		return err
	}
	recordLifecycle(logger)

	args, err := binding.Args(rest, s.in)
	if err != nil {
		return err
	}

	if !out.ShouldSuppressBanner() {
		ui.PrintConfigBanner(map[string]string{
			"Panel":       info.Label,
			"Backend":     backendLabel(info, cfg.ResolvedBackend()),
			"Target":      args.StringOr("url", cfg.Host.URL),
			"Chrome":      cfg.Host.ChromeURL,
			"Proxy":       cfg.HTTP.Proxy,
			"TLS Profile": cfg.HTTP.TLSProfile,
			"Output":      strings.Join(out.exports(), ", "),
		})
	}

	var host hostbridge.Host = hostbridge.NewMemory()
	if needsHost(info) {
		host, err = openHost(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("open %s host: %w", cfg.ResolvedBackend(), err)
		}
	}
	defer host.Close()

	console := s.out
	if out.OutputFile != "" {
		f, err := os.Create(out.OutputFile)
		if err != nil {
			return fmt.Errorf("cannot create output file: %w", err)
		}
		defer f.Close()
		console = f
	}

	d, err := output.BuildDispatcher(out.ToConfig(console, logger, nil))
	if err != nil {
		return err
	}
	reg, err := newRegistry(cfg, host, logger, d)
	if err != nil {
		d.Close()
		return err
	}

	ind := ui.StartIndicator(info.Label)
	res, runErr := reg.Run(ctx, info.ID, args)
	ind.Stop()

	if err := d.Close(); err != nil && runErr == nil {
		return fmt.Errorf("writing output: %w", err)
	}
	if runErr != nil {
		var pe *panel.PanelError
		if errors.As(runErr, &pe) {
			return fmt.Errorf("%s crashed: %v (rerun to retry)", info.Label, pe)
		}
		return runErr
	}

	if out.OutputFile != "" {
		ui.PrintSuccess("Results written to " + out.OutputFile)
	}
	for _, p := range out.exports() {
		if p != out.OutputFile {
			ui.PrintSuccess("Exported " + p)
		}
	}
	if out.Copy {
		copyResult(s, res.Text)
	}
	return out.failOn(info.ID, res.Severity)
}

func copyResult(s streams, text string) {
	if text == "" {
		ui.PrintWarning("Nothing to copy")
		return
	}
	if err := hostbridge.NewClipboard(s.err).Copy(text); err != nil {
		ui.PrintWarning("Copy failed: " + err.Error())
		return
	}
	ui.PrintSuccess("Copied to clipboard")
}

func backendLabel(info panel.Info, backend string) string {
	if !needsHost(info) {
		return ""
	}
	return backend
}

// printPanelUsage lists the panel's own flags before the shared ones.
func printPanelUsage(fs *flag.FlagSet, info panel.Info, b *cli.Binding) {
	w := fs.Output()
	usage := "cyberx " + info.ID + " [flags]"
	if p := b.Primary(); p != "" {
		usage = fmt.Sprintf("cyberx %s [flags] [%s | -]", info.ID, p)
	}
	fmt.Fprintf(w, "Usage: %s\n\n%s\n\n", usage, info.Description)

	own := make(map[string]bool, len(info.Params))
	if len(info.Params) > 0 {
		fmt.Fprintln(w, "Panel flags:")
		for _, p := range info.Params {
			own[p.Name] = true
			fmt.Fprintf(w, "  -%-12s %s\n", p.Name, cli.Usage(p))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Common flags:")
	fs.VisitAll(func(f *flag.Flag) {
		if own[f.Name] {
			return
		}
		def := ""
		if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" {
			def = fmt.Sprintf(" (default %s)", f.DefValue)
		}
		fmt.Fprintf(w, "  -%-16s %s%s\n", f.Name, f.Usage, def)
	})
}
