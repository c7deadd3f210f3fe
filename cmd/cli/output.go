package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/thecyberx/cyberx/pkg/config"
	"github.com/thecyberx/cyberx/pkg/finding"
	"github.com/thecyberx/cyberx/pkg/output"
	"github.com/thecyberx/cyberx/pkg/output/hooks"
	"github.com/thecyberx/cyberx/pkg/ui"
)

// OutputFlags defines the output flags shared by the panel commands.
// Names avoid panel parameters such as format and template.
type OutputFlags struct {
	// Console
	OutputFile   string
	Format       string
	JSONMode     bool
	DataOnly     bool
	TemplatePath string
	MaxRows      int

	// File exports
	JSONExport  string
	JSONLExport string
	CSVExport   string
	MDExport    string
	PDFExport   string
	ReportTitle string

	// OpenTelemetry
	OTelEndpoint string
	OTelInsecure bool

	Copy    bool
	FailOn  string
	Silent  bool
	NoColor bool
}

// newOutputFlags takes telemetry defaults from cfg.
func newOutputFlags(cfg *config.Config) *OutputFlags {
	return &OutputFlags{
		Format:       output.FormatTable,
		OTelEndpoint: cfg.Telemetry.OTelEndpoint,
		OTelInsecure: cfg.Telemetry.OTelInsecure,
	}
}

// registerFileExportFlags registers the file export flags.
func (o *OutputFlags) registerFileExportFlags(fs *flag.FlagSet) {
	fs.StringVar(&o.JSONExport, "json-export", "", "Export results to JSON file")
	fs.StringVar(&o.JSONLExport, "jsonl-export", "", "Export results to JSONL file (streaming)")
	fs.StringVar(&o.CSVExport, "csv-export", "", "Export results to CSV file")
	fs.StringVar(&o.MDExport, "md-export", "", "Export results to Markdown file")
	fs.StringVar(&o.PDFExport, "pdf-export", "", "Export results to PDF file")
	fs.StringVar(&o.ReportTitle, "report-title", "", "Title of the PDF report")
}

// RegisterFlags registers all output flags on fs.
func (o *OutputFlags) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&o.OutputFile, "o", "", "Write console output to this file")
	fs.StringVar(&o.OutputFile, "output", "", "Write console output to this file (alias)")
	fs.StringVar(&o.Format, "output-format", o.Format, "Console format: "+strings.Join(output.Formats(), ","))
	fs.BoolVar(&o.JSONMode, "json", false, "Output JSON to stdout")
	fs.BoolVar(&o.JSONMode, "j", false, "Output JSON to stdout (alias)")
	fs.BoolVar(&o.DataOnly, "data-only", false, "JSON output without the event envelope")
	fs.StringVar(&o.TemplatePath, "output-template", "", "Render results with this Go template file")
	fs.IntVar(&o.MaxRows, "max-rows", 0, "Truncate console tables (0 = unlimited)")
	o.registerFileExportFlags(fs)

	fs.StringVar(&o.OTelEndpoint, "otel-endpoint", o.OTelEndpoint, "OTLP gRPC endpoint for traces")
	fs.BoolVar(&o.OTelInsecure, "otel-insecure", o.OTelInsecure, "Plaintext OTLP connection")

	fs.BoolVar(&o.Copy, "copy", false, "Copy the primary result to the clipboard (OSC52)")
	fs.StringVar(&o.FailOn, "fail-on", "", "Exit 2 when the result severity is at least this (info..critical)")
	fs.BoolVar(&o.Silent, "silent", false, "Silent mode - no banner or progress output")
	fs.BoolVar(&o.Silent, "s", false, "Silent mode (alias)")
	fs.BoolVar(&o.NoColor, "no-color", false, "Disable colored output")
	fs.BoolVar(&o.NoColor, "nc", false, "No color (alias)")
}

// Validate checks the values flag parsing cannot.
func (o *OutputFlags) Validate() error {
	if o.FailOn != "" && !finding.Severity(strings.ToLower(o.FailOn)).IsValid() {
		return fmt.Errorf("invalid -fail-on %q", o.FailOn)
	}
	format := o.Format
	if o.JSONMode {
		format = output.FormatJSON
	}
	for _, f := range output.Formats() {
		if strings.EqualFold(f, format) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (available: %s)", output.ErrUnknownFormat, format, strings.Join(output.Formats(), ", "))
}

// ToConfig converts OutputFlags to output.Config writing the console
// rendering to stdout.
func (o *OutputFlags) ToConfig(stdout io.Writer, logger *slog.Logger, metrics *hooks.PrometheusHook) output.Config {
	format := o.Format
	if o.JSONMode {
		format = output.FormatJSON
	}
	return output.Config{
		Format:       format,
		Stdout:       stdout,
		NoColor:      o.NoColor || ui.IsNoColor(),
		MaxRows:      o.MaxRows,
		DataOnly:     o.DataOnly,
		TemplatePath: o.TemplatePath,
		JSONExport:   o.JSONExport,
		JSONLExport:  o.JSONLExport,
		CSVExport:    o.CSVExport,
		MDExport:     o.MDExport,
		PDFExport:    o.PDFExport,
		ReportTitle:  o.ReportTitle,
		Logger:       logger,
		Metrics:      metrics,
		OTelEndpoint: o.OTelEndpoint,
		OTelInsecure: o.OTelInsecure,
	}
}

// ApplyUISettings applies silent and color settings to the UI.
func (o *OutputFlags) ApplyUISettings() {
	if o.Silent {
		ui.SetSilent(true)
	}
	if o.NoColor {
		ui.SetNoColor(true)
	}
}

// ShouldSuppressBanner returns true if banner output should be suppressed.
func (o *OutputFlags) ShouldSuppressBanner() bool {
	return o.Silent || o.JSONMode || !strings.EqualFold(o.Format, output.FormatTable) || o.TemplatePath != ""
}

// exports lists the configured file exports for the config banner.
func (o *OutputFlags) exports() []string {
	var out []string
	for _, p := range []string{o.OutputFile, o.JSONExport, o.JSONLExport, o.CSVExport, o.MDExport, o.PDFExport} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// failOn returns a failOnError when sev meets the -fail-on threshold.
func (o *OutputFlags) failOn(panelID string, sev finding.Severity) error {
	if o.FailOn == "" || sev == "" {
		return nil
	}
	threshold := finding.Severity(strings.ToLower(o.FailOn))
	if sev.Score() < threshold.Score() {
		return nil
	}
	return &failOnError{panel: panelID, severity: sev, threshold: threshold}
}
