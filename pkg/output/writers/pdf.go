package writers

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	gofpdf "github.com/go-pdf/fpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/finding"
	"github.com/thecyberx/cyberx/pkg/output/dispatcher"
	"github.com/thecyberx/cyberx/pkg/output/events"
)

// Compile-time interface check.
var _ dispatcher.Writer = (*PDFWriter)(nil)

// pdfSeverityColors maps severity to RGB text colour.
var pdfSeverityColors = map[string][]int{
	"critical": {185, 28, 28},
	"high":     {234, 88, 12},
	"medium":   {202, 138, 4},
	"low":      {22, 163, 74},
	"info":     {37, 99, 235},
}

// PDFConfig configures the PDF report.
type PDFConfig struct {
	// Title is printed on the cover (default "<tool> Report").
	Title string

	// Author is recorded in the document metadata.
	Author string
}

// PDFWriter buffers results and renders a report on Close: a cover with
// totals, one section per result and a closing section for failures.
type PDFWriter struct {
	w       io.Writer
	mu      sync.Mutex
	config  PDFConfig
	results []*events.ResultEvent
	errors  []*events.ErrorEvent

	// noCompress leaves content streams readable; tests search them.
	noCompress bool
	now        func() time.Time
}

// NewPDFWriter creates a PDF writer that writes to w on Close.
func NewPDFWriter(w io.Writer, config PDFConfig) *PDFWriter {
	if config.Title == "" {
		config.Title = defaults.ToolName + " Report"
	}
	return &PDFWriter{w: w, config: config, now: time.Now}
}

// Write buffers result and error events.
func (pw *PDFWriter) Write(event events.Event) error {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	switch e := event.(type) {
	case *events.ResultEvent:
		pw.results = append(pw.results, e)
	case *events.ErrorEvent:
		pw.errors = append(pw.errors, e)
	}
	return nil
}

// Flush is a no-op; the report is rendered on Close.
func (pw *PDFWriter) Flush() error { return nil }

// SupportsEvent returns true for result and error events.
func (pw *PDFWriter) SupportsEvent(eventType events.EventType) bool {
	return eventType == events.EventTypeResult || eventType == events.EventTypeError
}

// Close renders the report and closes the destination.
func (pw *PDFWriter) Close() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(!pw.noCompress)
	pdf.SetTitle(pw.config.Title, true)
	pdf.SetAuthor(pw.config.Author, true)
	pdf.SetCreator(defaults.ToolName+" "+defaults.Version, true)
	pdf.SetCreationDate(pw.now())
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(140, 140, 140)
		pdf.CellFormat(0, 6, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pw.addCover(pdf, tr)
	for _, r := range pw.results {
		pw.addResult(pdf, tr, r)
	}
	if len(pw.errors) > 0 {
		pw.addFailures(pdf, tr)
	}

	if err := pdf.Output(pw.w); err != nil {
		return fmt.Errorf("pdf: render: %w", err)
	}
	if pw.w == os.Stdout || pw.w == os.Stderr {
		return nil
	}
	if closer, ok := pw.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (pw *PDFWriter) addSectionHeader(pdf *gofpdf.Fpdf, tr func(string) string, title string) {
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(30, 41, 59)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	pdf.SetDrawColor(125, 86, 244)
	x, y := pdf.GetXY()
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	pdf.Line(x, y, pageW-right, y)
	pdf.SetX(left)
	pdf.Ln(4)
}

func (pw *PDFWriter) addCover(pdf *gofpdf.Fpdf, tr func(string) string) {
	pdf.AddPage()
	pdf.Ln(30)
	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetTextColor(125, 86, 244)
	pdf.MultiCell(0, 12, tr(pw.config.Title), "", "C", false)
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(80, 80, 80)
	pdf.CellFormat(0, 7, "Generated "+pw.now().UTC().Format(time.RFC1123), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 7, defaults.ToolName+" "+defaults.Version, "", 1, "C", false, 0, "")
	pdf.Ln(16)

	pw.addSectionHeader(pdf, tr, "Summary")
	titleCase := cases.Title(language.English)

	levels := make([]finding.Severity, 0, len(pw.results))
	for _, r := range pw.results {
		if r.Severity != "" {
			levels = append(levels, r.Severity)
		}
	}
	worst := finding.Max(levels...)

	rows := [][2]string{
		{"Panels run", fmt.Sprintf("%d", len(pw.results))},
		{"Failures", fmt.Sprintf("%d", len(pw.errors))},
	}
	if worst != "" {
		rows = append(rows, [2]string{"Worst severity", titleCase.String(string(worst))})
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(45, 7, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		if c, ok := pdfSeverityColors[string(worst)]; ok && row[0] == "Worst severity" {
			pdf.SetTextColor(c[0], c[1], c[2])
		}
		pdf.CellFormat(0, 7, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	if len(pw.results) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.CellFormat(50, 7, "Panel", "1", 0, "L", true, 0, "")
	pdf.CellFormat(35, 7, "Category", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "Rows", "1", 0, "R", true, 0, "")
	pdf.CellFormat(30, 7, "Severity", "1", 1, "L", true, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, r := range pw.results {
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(50, 7, tr(r.Panel.Label), "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 7, titleCase.String(r.Panel.Category), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%d", r.Table.Len()), "1", 0, "R", false, 0, "")
		sev := "-"
		if r.Severity != "" {
			sev = titleCase.String(string(r.Severity))
			if c, ok := pdfSeverityColors[string(r.Severity)]; ok {
				pdf.SetTextColor(c[0], c[1], c[2])
			}
		}
		pdf.CellFormat(30, 7, sev, "1", 1, "L", false, 0, "")
	}
}

func (pw *PDFWriter) addResult(pdf *gofpdf.Fpdf, tr func(string) string, r *events.ResultEvent) {
	pdf.AddPage()
	pw.addSectionHeader(pdf, tr, r.Panel.Label)

	titleCase := cases.Title(language.English)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 100, 100)
	meta := fmt.Sprintf("%s panel, %.1fms", titleCase.String(r.Panel.Category), r.DurationMs)
	pdf.CellFormat(0, 6, meta, "", 1, "L", false, 0, "")
	if r.Severity != "" {
		if c, ok := pdfSeverityColors[string(r.Severity)]; ok {
			pdf.SetTextColor(c[0], c[1], c[2])
		}
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(0, 7, "Severity: "+titleCase.String(string(r.Severity)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	if r.Table.Len() == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.SetTextColor(140, 140, 140)
		pdf.CellFormat(0, 7, "No results.", "", 1, "L", false, 0, "")
		return
	}
	pw.addTable(pdf, tr, r.Table)
}

// addTable draws a bordered table. Column widths follow content, scaled
// down to the printable width; overlong cells are truncated.
func (pw *PDFWriter) addTable(pdf *gofpdf.Fpdf, tr func(string) string, t *events.Table) {
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	avail := pageW - left - right

	pdf.SetFont("Helvetica", "", 8)
	ncol := len(t.Columns)
	for _, row := range t.Rows {
		if len(row) > ncol {
			ncol = len(row)
		}
	}
	widths := make([]float64, ncol)
	measure := func(col int, s string) {
		if w := pdf.GetStringWidth(tr(s)) + 4; w > widths[col] {
			widths[col] = w
		}
	}
	for i, c := range t.Columns {
		measure(i, c)
	}
	for _, row := range t.Rows {
		for i, c := range row {
			measure(i, c)
		}
	}
	total := 0.0
	for i := range widths {
		if widths[i] > avail*0.6 {
			widths[i] = avail * 0.6
		}
		total += widths[i]
	}
	if total > avail {
		for i := range widths {
			widths[i] *= avail / total
		}
	}

	header := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(30, 41, 59)
		pdf.SetTextColor(255, 255, 255)
		for i := 0; i < ncol; i++ {
			label := ""
			if i < len(t.Columns) {
				label = t.Columns[i]
			}
			pdf.CellFormat(widths[i], 7, fitText(pdf, tr(label), widths[i]), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 8)
	}

	_, pageH := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	header()
	for n, row := range t.Rows {
		if pdf.GetY()+6 > pageH-bottom {
			pdf.AddPage()
			header()
		}
		fill := n%2 == 1
		pdf.SetFillColor(245, 245, 250)
		pdf.SetTextColor(50, 50, 50)
		for i := 0; i < ncol; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			pdf.CellFormat(widths[i], 6, fitText(pdf, tr(cell), widths[i]), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(-1)
	}
}

func (pw *PDFWriter) addFailures(pdf *gofpdf.Fpdf, tr func(string) string) {
	pdf.AddPage()
	pw.addSectionHeader(pdf, tr, "Failures")
	for _, e := range pw.errors {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(185, 28, 28)
		pdf.CellFormat(0, 7, tr(fmt.Sprintf("%s (%s)", e.Panel.Label, e.ErrorType)), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(80, 80, 80)
		pdf.MultiCell(0, 5, tr(e.Message), "", "L", false)
		pdf.Ln(2)
	}
}

// fitText truncates s with an ellipsis to fit a cell of width w. s is
// already translated to the single-byte core-font encoding.
func fitText(pdf *gofpdf.Fpdf, s string, w float64) string {
	const pad = 2
	if pdf.GetStringWidth(s)+pad <= w {
		return s
	}
	n := len(s)
	for n > 0 && pdf.GetStringWidth(s[:n]+"...")+pad > w {
		n--
	}
	return s[:n] + "..."
}
