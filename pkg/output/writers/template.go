package writers

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"

	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/finding"
	"github.com/thecyberx/cyberx/pkg/jsonutil"
	"github.com/thecyberx/cyberx/pkg/output/dispatcher"
	"github.com/thecyberx/cyberx/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*TemplateWriter)(nil)

// TemplateConfig configures the template writer.
type TemplateConfig struct {
	// TemplatePath is the path to a custom template file.
	TemplatePath string

	// TemplateString is an inline template string (alternative to TemplatePath).
	TemplateString string

	// BuiltIn is the name of a built-in template: "csv", "markdown", "text-summary".
	BuiltIn string
}

// builtInTemplates contains pre-defined templates for common output formats.
var builtInTemplates = map[string]string{
	"csv": `{{- range .Results }}{{ if .Table }}
{{- join "," (.Table.Columns | csvRow) }}
{{ range .Table.Rows }}{{ join "," (csvRow .) }}
{{ end }}{{ end }}{{ end }}`,

	"markdown": `# {{ .Tool }} Report

Generated {{ .Timestamp }}
{{ range .Results }}
## {{ .Panel.Label }}{{ if .Severity }} {{ severityIcon (toString .Severity) }} {{ upper (toString .Severity) }}{{ end }}

_{{ .Panel.Category }}, {{ printf "%.1f" .DurationMs }}ms_
{{ if and .Table (gt (len .Table.Rows) 0) }}
| {{ join " | " (mdRow .Table.Columns) }} |
|{{ range .Table.Columns }} --- |{{ end }}
{{- range .Table.Rows }}
| {{ join " | " (mdRow .) }} |
{{- end }}
{{ else }}
No results.
{{ end }}
{{- end }}
{{- if .Errors }}
## Errors
{{ range .Errors }}
- **{{ .Panel.Label }}** ({{ .ErrorType }}): {{ .Message }}
{{- end }}
{{ end }}`,

	"text-summary": `{{ .Tool }} Summary
{{ repeat (len (printf "%s Summary" .Tool)) "=" }}
Generated: {{ .Timestamp }}

Panels run: {{ len .Results }}
Failures:   {{ len .Errors }}
{{- if .HighestSeverity }}
Worst:      {{ severityIcon .HighestSeverity }} {{ .HighestSeverity | title }}
{{- end }}
{{ range .Results }}
  {{ .Panel.Label | printf "%-12s" }} {{ if .Table }}{{ len .Table.Rows }} rows{{ else }}done{{ end }}{{ if .Severity }} [{{ .Severity }}]{{ end }}
{{- end }}
{{- range .Errors }}
  {{ .Panel.Label | printf "%-12s" }} failed: {{ .Message }}
{{- end }}
`,
}

// BuiltInTemplates lists the names accepted by TemplateConfig.BuiltIn.
func BuiltInTemplates() []string {
	names := make([]string, 0, len(builtInTemplates))
	for name := range builtInTemplates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TemplateWriter renders events using Go templates with sprig functions.
// It buffers events and renders once on Close.
type TemplateWriter struct {
	w       io.Writer
	mu      sync.Mutex
	config  TemplateConfig
	tmpl    *template.Template
	results []*events.ResultEvent
	errors  []*events.ErrorEvent
}

// NewTemplateWriter parses the template immediately and returns an error
// if it is invalid.
func NewTemplateWriter(w io.Writer, config TemplateConfig) (*TemplateWriter, error) {
	tw := &TemplateWriter{w: w, config: config}
	if err := tw.parseTemplate(); err != nil {
		return nil, fmt.Errorf("template parse error: %w", err)
	}
	return tw, nil
}

// parseTemplate parses the template from config (path, string, or built-in).
func (tw *TemplateWriter) parseTemplate() error {
	var content string

	switch {
	case tw.config.TemplatePath != "":
		raw, err := os.ReadFile(tw.config.TemplatePath)
		if err != nil {
			return fmt.Errorf("failed to read template file: %w", err)
		}
		content = string(raw)

	case tw.config.TemplateString != "":
		content = tw.config.TemplateString

	case tw.config.BuiltIn != "":
		builtin, ok := builtInTemplates[tw.config.BuiltIn]
		if !ok {
			return fmt.Errorf("unknown built-in template: %s (available: %s)", tw.config.BuiltIn, strings.Join(BuiltInTemplates(), ", "))
		}
		content = builtin

	default:
		return fmt.Errorf("no template specified: set TemplatePath, TemplateString, or BuiltIn")
	}

	funcMap := sprig.TxtFuncMap()
	funcMap["csvRow"] = tmplCSVRow
	funcMap["mdRow"] = tmplMarkdownRow
	funcMap["escapeCSV"] = tmplEscapeCSV
	funcMap["severityIcon"] = tmplSeverityIcon
	funcMap["json"] = tmplToJSON
	funcMap["prettyJSON"] = tmplPrettyJSON

	tmpl, err := template.New("cyberx").Funcs(funcMap).Parse(content)
	if err != nil {
		return fmt.Errorf("parse output template: %w", err)
	}
	tw.tmpl = tmpl
	return nil
}

// Write buffers an event for later template rendering.
func (tw *TemplateWriter) Write(event events.Event) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	switch e := event.(type) {
	case *events.ResultEvent:
		tw.results = append(tw.results, e)
	case *events.ErrorEvent:
		tw.errors = append(tw.errors, e)
	}
	return nil
}

// Flush is a no-op; the document is rendered on Close.
func (tw *TemplateWriter) Flush() error {
	return nil
}

// Close renders the template with all buffered events and writes it out.
func (tw *TemplateWriter) Close() error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	var buf bytes.Buffer
	if err := tw.tmpl.Execute(&buf, tw.buildTemplateData()); err != nil {
		return fmt.Errorf("template execution error: %w", err)
	}
	if _, err := tw.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write error: %w", err)
	}

	if tw.w == os.Stdout || tw.w == os.Stderr {
		return nil
	}
	if closer, ok := tw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SupportsEvent returns true for result and error events.
func (tw *TemplateWriter) SupportsEvent(eventType events.EventType) bool {
	return eventType == events.EventTypeResult || eventType == events.EventTypeError
}

// tmplData holds all data available to templates.
type tmplData struct {
	Tool      string
	Version   string
	Timestamp string

	Results []*events.ResultEvent
	Errors  []*events.ErrorEvent

	// HighestSeverity is the worst severity across results, or "".
	HighestSeverity string
}

func (tw *TemplateWriter) buildTemplateData() *tmplData {
	data := &tmplData{
		Tool:      defaults.ToolName,
		Version:   defaults.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Results:   tw.results,
		Errors:    tw.errors,
	}
	levels := make([]finding.Severity, 0, len(tw.results))
	for _, r := range tw.results {
		if r.Severity != "" {
			levels = append(levels, r.Severity)
		}
	}
	data.HighestSeverity = string(finding.Max(levels...))
	return data
}

// Template helper functions

// tmplEscapeCSV quotes a value containing commas, quotes or newlines.
func tmplEscapeCSV(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return "\"" + strings.ReplaceAll(s, "\"", "\"\"") + "\""
}

// tmplCSVRow escapes every cell of a row.
func tmplCSVRow(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = tmplEscapeCSV(c)
	}
	return out
}

// tmplMarkdownRow escapes pipes and flattens newlines for table cells.
func tmplMarkdownRow(cells []string) []string {
	r := strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = r.Replace(c)
	}
	return out
}

// tmplSeverityIcon returns an emoji icon for a severity level.
func tmplSeverityIcon(severity string) string {
	switch strings.ToLower(severity) {
	case "critical":
		return "🔴"
	case "high":
		return "🟠"
	case "medium":
		return "🟡"
	case "low":
		return "🟢"
	case "info":
		return "🔵"
	default:
		return "⚪"
	}
}

// tmplToJSON converts a value to a JSON string.
func tmplToJSON(v any) string {
	b, err := jsonutil.Marshal(v)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(b)
}

// tmplPrettyJSON converts a value to a formatted JSON string.
func tmplPrettyJSON(v any) string {
	b, err := jsonutil.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return string(b)
}
