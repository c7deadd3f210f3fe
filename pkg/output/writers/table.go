package writers

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/thecyberx/cyberx/pkg/output/dispatcher"
	"github.com/thecyberx/cyberx/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*TableWriter)(nil)

// severityColors maps finding severities to terminal colours.
var severityColors = map[events.Severity]lipgloss.Color{
	"critical": lipgloss.Color("#FF0000"),
	"high":     lipgloss.Color("#FF6B6B"),
	"medium":   lipgloss.Color("#FFD93D"),
	"low":      lipgloss.Color("#6BCB77"),
	"info":     lipgloss.Color("#4D96FF"),
}

// statusColors colours well-known status cells (headers, CORS verdicts).
var statusColors = map[string]lipgloss.Color{
	"good":       lipgloss.Color("#00D26A"),
	"safe":       lipgloss.Color("#00D26A"),
	"warning":    lipgloss.Color("#FFB800"),
	"bad":        lipgloss.Color("#FF3838"),
	"vulnerable": lipgloss.Color("#FF3838"),
	"missing":    lipgloss.Color("#FF3838"),
	"blocked":    lipgloss.Color("#6B7280"),
	"error":      lipgloss.Color("#6B7280"),
}

// TableConfig configures the table writer behavior.
type TableConfig struct {
	// ColorEnabled enables ANSI colour output. Colour is also dropped when
	// the destination is not a terminal.
	ColorEnabled bool

	// DisableUnicode forces ASCII borders.
	DisableUnicode bool

	// MaxWidth caps the table width (0 = terminal width, or no cap when
	// the destination is not a terminal).
	MaxWidth int

	// MaxRows truncates long tables (0 = unlimited).
	MaxRows int
}

// TableWriter prints each result as soon as it arrives: a heading line
// with the panel and timing, then the result's table.
// The writer is safe for concurrent use.
type TableWriter struct {
	w        io.Writer
	mu       sync.Mutex
	config   TableConfig
	renderer *lipgloss.Renderer
	border   lipgloss.Border
	width    int
}

// NewTableWriter creates a table writer that writes to w.
func NewTableWriter(w io.Writer, config TableConfig) *TableWriter {
	r := lipgloss.NewRenderer(w)
	if !config.ColorEnabled {
		r.SetColorProfile(termenv.Ascii)
	}

	border := lipgloss.RoundedBorder()
	if config.DisableUnicode || !unicodeSupported(w) {
		border = lipgloss.ASCIIBorder()
	}

	return &TableWriter{
		w:        w,
		config:   config,
		renderer: r,
		border:   border,
		width:    tableWidth(w, config.MaxWidth),
	}
}

// tableWidth resolves the width cap from config or the terminal.
func tableWidth(w io.Writer, max int) int {
	if max > 0 {
		return max
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
			return cols
		}
	}
	return 0
}

// Write renders result and error events immediately.
func (tw *TableWriter) Write(event events.Event) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	var out string
	switch e := event.(type) {
	case *events.ResultEvent:
		out = tw.renderResult(e)
	case *events.ErrorEvent:
		out = tw.renderError(e)
	default:
		return nil
	}
	_, err := io.WriteString(tw.w, out)
	return err
}

func (tw *TableWriter) renderResult(e *events.ResultEvent) string {
	var b strings.Builder
	b.WriteString(tw.heading(e.Panel, e.DurationMs))
	if e.Severity != "" {
		b.WriteString(" ")
		b.WriteString(tw.severityBadge(e.Severity))
	}
	b.WriteString("\n")

	if e.Table.Len() == 0 {
		if e.Table != nil {
			b.WriteString(tw.renderer.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true).Render("  (no results)"))
			b.WriteString("\n")
		} else if e.Data != nil {
			b.WriteString(fmt.Sprintf("%v\n", e.Data))
		}
		return b.String()
	}

	b.WriteString(tw.renderTable(e.Table))
	b.WriteString("\n")
	return b.String()
}

func (tw *TableWriter) renderError(e *events.ErrorEvent) string {
	label := tw.renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF3838")).Render("[X]")
	return fmt.Sprintf("%s %s (%s): %s\n", label, e.Panel.Label, e.ErrorType, e.Message)
}

func (tw *TableWriter) heading(p events.PanelInfo, ms float64) string {
	title := tw.renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Render(p.Label)
	meta := tw.renderer.NewStyle().Foreground(lipgloss.Color("#6B7280")).Render(fmt.Sprintf("[%s] %.1fms", p.Category, ms))
	return title + " " + meta
}

func (tw *TableWriter) severityBadge(sev events.Severity) string {
	style := tw.renderer.NewStyle().Bold(true)
	if c, ok := severityColors[sev]; ok {
		style = style.Foreground(c)
	}
	return style.Render(strings.ToUpper(string(sev)))
}

func (tw *TableWriter) renderTable(t *events.Table) string {
	rows := t.Rows
	hidden := 0
	if tw.config.MaxRows > 0 && len(rows) > tw.config.MaxRows {
		hidden = len(rows) - tw.config.MaxRows
		rows = rows[:tw.config.MaxRows]
	}

	header := tw.renderer.NewStyle().Bold(true).Padding(0, 1)
	cell := tw.renderer.NewStyle().Padding(0, 1)
	tbl := table.New().
		Border(tw.border).
		BorderStyle(tw.renderer.NewStyle().Foreground(lipgloss.Color("#3B3B4F"))).
		Headers(t.Columns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if row < len(rows) && col < len(rows[row]) {
				if c, ok := statusColors[strings.ToLower(rows[row][col])]; ok {
					return cell.Foreground(c)
				}
			}
			return cell
		})

	out := tbl.String()
	if tw.width > 0 && lipgloss.Width(out) > tw.width {
		out = tbl.Width(tw.width).String()
	}
	if hidden > 0 {
		out += fmt.Sprintf("\n  ... %d more", hidden)
	}
	return out
}

// Flush is a no-op; results are written as they arrive.
func (tw *TableWriter) Flush() error { return nil }

// Close closes the destination when it is an io.Closer other than a
// standard stream.
func (tw *TableWriter) Close() error {
	if tw.w == os.Stdout || tw.w == os.Stderr {
		return nil
	}
	if closer, ok := tw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// SupportsEvent returns true for result and error events.
func (tw *TableWriter) SupportsEvent(eventType events.EventType) bool {
	return eventType == events.EventTypeResult || eventType == events.EventTypeError
}
