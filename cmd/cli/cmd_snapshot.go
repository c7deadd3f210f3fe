package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/thecyberx/cyberx/pkg/cli"
	"github.com/thecyberx/cyberx/pkg/jsonutil"
	"github.com/thecyberx/cyberx/pkg/ui"
)

// runSnapshot prints the active page, or the URL given, as Markdown by
// default.
func runSnapshot(ctx context.Context, argv []string, s streams) error {
	cfg, err := loadConfig(argv, os.Getenv)
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	fs.SetOutput(s.err)
	var g globalFlags
	g.register(fs)
	cfg.RegisterFlags(fs)
	markdown := fs.Bool("markdown", true, "Render the page as Markdown")
	html := fs.Bool("html", false, "Print the captured HTML")
	jsonMode := fs.Bool("json", false, "Print the whole capture as JSON")
	rest, err := cli.ParseInterleaved(fs, argv)
	if err != nil {
		return err
	}
	if len(rest) > 1 {
		return fmt.Errorf("snapshot: expected at most one URL, got %d arguments", len(rest))
	}
	if len(rest) == 1 {
		cfg.Host.URL = rest[0]
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(s.err, cfg.LogLevel, g.Verbose, true)
	if err != nil {
		return err
	}
	host, err := openHost(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s host: %w", cfg.ResolvedBackend(), err)
	}
	defer host.Close()

	ind := ui.StartIndicator("Capturing")
	snap, err := host.Snapshot(ctx)
	ind.Stop()
	if err != nil {
		return err
	}

	switch {
	case *jsonMode:
		data, err := jsonutil.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(s.out, string(data))
		return err
	case *html:
		_, err = fmt.Fprintln(s.out, snap.HTML)
		return err
	case *markdown:
		md, err := snap.Markdown(ctx)
		if err != nil {
			return err
		}
		if snap.Title != "" && !strings.HasPrefix(md, "# ") {
			md = "# " + snap.Title + "\n\n" + md
		}
		_, err = fmt.Fprintln(s.out, md)
		return err
	}
	return nil
}
