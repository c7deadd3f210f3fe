// Package output wires writers and hooks into a dispatcher from CLI and
// config settings.
package output

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/output/dispatcher"
	"github.com/thecyberx/cyberx/pkg/output/hooks"
	"github.com/thecyberx/cyberx/pkg/output/writers"
)

// Console formats accepted by Config.Format.
const (
	FormatTable       = "table"
	FormatJSON        = "json"
	FormatJSONL       = "jsonl"
	FormatCSV         = "csv"
	FormatMarkdown    = "markdown"
	FormatTextSummary = "text-summary"
	FormatNone        = "none"
)

// ErrUnknownFormat is returned for an unsupported console format.
var ErrUnknownFormat = errors.New("output: unknown format")

// Formats lists the console formats in help order.
func Formats() []string {
	return []string{FormatTable, FormatJSON, FormatJSONL, FormatCSV, FormatMarkdown, FormatTextSummary, FormatNone}
}

// Config configures the output dispatcher based on CLI flags.
type Config struct {
	// Console output
	Format   string
	Stdout   io.Writer
	NoColor  bool
	MaxRows  int
	DataOnly bool

	// TemplatePath renders a custom template to the console instead of
	// Format.
	TemplatePath string

	// File outputs
	JSONExport  string
	JSONLExport string
	CSVExport   string
	MDExport    string
	PDFExport   string
	ReportTitle string

	// Hooks
	Logger       *slog.Logger
	Metrics      *hooks.PrometheusHook
	OTelEndpoint string
	OTelInsecure bool
}

// BuildDispatcher creates a dispatcher with the configured writers and
// hooks. The caller closes it, which flushes the file exports.
func BuildDispatcher(cfg Config) (*dispatcher.Dispatcher, error) {
	d := dispatcher.New(dispatcher.Config{Logger: cfg.Logger})

	var openedFiles []*os.File
	cleanup := func() {
		for _, f := range openedFiles {
			f.Close()
		}
	}
	openFile := func(path string) (*os.File, error) {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
		}
		openedFiles = append(openedFiles, f)
		return f, nil
	}

	// === CONSOLE ===

	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	console, err := consoleWriter(cfg, stdout)
	if err != nil {
		return nil, err
	}
	if console != nil {
		d.RegisterWriter(console)
	}

	// === FILE WRITERS ===

	if cfg.JSONExport != "" {
		f, err := openFile(cfg.JSONExport)
		if err != nil {
			cleanup()
			return nil, err
		}
		d.RegisterWriter(writers.NewJSONWriter(f, writers.JSONOptions{Pretty: true, AlwaysArray: true}))
	}

	if cfg.JSONLExport != "" {
		f, err := openFile(cfg.JSONLExport)
		if err != nil {
			cleanup()
			return nil, err
		}
		d.RegisterWriter(writers.NewJSONLWriter(f, writers.JSONLOptions{}))
	}

	for _, export := range []struct{ path, builtin string }{
		{cfg.CSVExport, FormatCSV},
		{cfg.MDExport, FormatMarkdown},
	} {
		if export.path == "" {
			continue
		}
		f, err := openFile(export.path)
		if err != nil {
			cleanup()
			return nil, err
		}
		w, err := writers.NewTemplateWriter(f, writers.TemplateConfig{BuiltIn: export.builtin})
		if err != nil {
			cleanup()
			return nil, err
		}
		d.RegisterWriter(w)
	}

	if cfg.PDFExport != "" {
		f, err := openFile(cfg.PDFExport)
		if err != nil {
			cleanup()
			return nil, err
		}
		d.RegisterWriter(writers.NewPDFWriter(f, writers.PDFConfig{
			Title:  cfg.ReportTitle,
			Author: defaults.ToolName,
		}))
	}

	// === HOOKS ===

	d.RegisterHook(hooks.NewLogHook(cfg.Logger))

	if cfg.Metrics != nil {
		d.RegisterHook(cfg.Metrics)
	}

	if cfg.OTelEndpoint != "" {
		hook, err := hooks.NewOTelHook(hooks.OTelOptions{
			Endpoint:    cfg.OTelEndpoint,
			ServiceName: defaults.ToolName,
			Insecure:    cfg.OTelInsecure,
		})
		if err != nil {
			cleanup()
			return nil, fmt.Errorf("failed to create OpenTelemetry hook: %w", err)
		}
		d.RegisterHook(hook)
	}

	return d, nil
}

// consoleWriter picks the stdout writer. It returns nil for FormatNone.
func consoleWriter(cfg Config, stdout io.Writer) (dispatcher.Writer, error) {
	if cfg.TemplatePath != "" {
		return writers.NewTemplateWriter(stdout, writers.TemplateConfig{TemplatePath: cfg.TemplatePath})
	}

	switch strings.ToLower(cfg.Format) {
	case "", FormatTable:
		return writers.NewTableWriter(stdout, writers.TableConfig{
			ColorEnabled: !cfg.NoColor,
			MaxRows:      cfg.MaxRows,
		}), nil
	case FormatJSON:
		return writers.NewJSONWriter(stdout, writers.JSONOptions{Pretty: true, DataOnly: cfg.DataOnly}), nil
	case FormatJSONL:
		return writers.NewJSONLWriter(stdout, writers.JSONLOptions{OmitStart: true}), nil
	case FormatCSV, FormatMarkdown, FormatTextSummary:
		return writers.NewTemplateWriter(stdout, writers.TemplateConfig{BuiltIn: strings.ToLower(cfg.Format)})
	case FormatNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownFormat, cfg.Format, strings.Join(Formats(), ", "))
	}
}

// ParseCSV splits a comma-separated flag value, trimming blanks.
func ParseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
