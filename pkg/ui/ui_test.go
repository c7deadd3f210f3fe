package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/thecyberx/cyberx/pkg/defaults"
	"github.com/thecyberx/cyberx/pkg/finding"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := SetOutput(&buf)
	t.Cleanup(func() { SetOutput(prev) })
	return &buf
}

func TestVersion(t *testing.T) {
	if Version != defaults.Version {
		t.Errorf("Version = %q, want %q", Version, defaults.Version)
	}
}

func TestPrintBanner(t *testing.T) {
	buf := capture(t)
	PrintBanner()
	assert.Contains(t, buf.String(), defaults.ToolName)
	assert.Contains(t, buf.String(), Version)

	buf.Reset()
	SetSilent(true)
	defer SetSilent(false)
	PrintBanner()
	assert.Empty(t, buf.String())
}

func TestPrintConfigBanner(t *testing.T) {
	buf := capture(t)
	PrintConfigBanner(map[string]string{
		"Zeta":    "last",
		"Backend": "http",
		"Panel":   "cors",
		"Alpha":   "first",
		"Proxy":   "",
	})
	out := buf.String()

	order := []string{"Panel", "Backend", "Alpha", "Zeta"}
	last := -1
	for _, key := range order {
		i := strings.Index(out, key)
		if i < 0 {
			t.Fatalf("%q missing from banner:\n%s", key, out)
		}
		if i < last {
			t.Errorf("%q printed out of order", key)
		}
		last = i
	}
	assert.NotContains(t, out, "Proxy", "empty values are skipped")
}

func TestPrintMessages(t *testing.T) {
	buf := capture(t)
	PrintSuccess("saved")
	PrintError("failed")
	PrintWarning("careful")
	PrintInfo("note")
	PrintHelp("try --help")
	out := buf.String()
	for _, want := range []string{"[+] saved", "[X] failed", "[!] careful", "note", "[i] try --help"} {
		assert.Contains(t, out, want)
	}

	buf.Reset()
	SetSilent(true)
	defer SetSilent(false)
	PrintSuccess("hidden")
	PrintInfo("hidden")
	PrintError("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestPrintSection(t *testing.T) {
	buf := capture(t)
	PrintSection("Security")
	assert.Contains(t, buf.String(), "> Security")
	assert.Contains(t, buf.String(), strings.Repeat("-", 75))
}

func TestPrintCatalogEntry(t *testing.T) {
	buf := capture(t)
	PrintCatalogEntry("cors", "CORS", "Check a URL's CORS policy.")
	out := buf.String()
	assert.Contains(t, out, "cors")
	assert.Contains(t, out, "CORS")
	assert.Contains(t, out, "Check a URL's CORS policy.")
}

func TestSeverityStyle(t *testing.T) {
	for _, sev := range []finding.Severity{finding.Critical, finding.High, finding.Medium, finding.Low, finding.Info, ""} {
		if SeverityStyle(sev).Render(string(sev)+"x") == "" {
			t.Errorf("SeverityStyle(%q) rendered nothing", sev)
		}
	}
	assert.Equal(t, Critical, SeverityColor(finding.Critical))
	assert.Equal(t, Muted, SeverityColor("bogus"))
}

func TestStatusCodeStyle(t *testing.T) {
	tests := []struct {
		code int
		want lipgloss.TerminalColor
	}{
		{200, Success},
		{301, Info},
		{404, Medium},
		{503, Error},
		{0, Muted},
	}
	for _, tt := range tests {
		if got := StatusCodeStyle(tt.code).GetForeground(); got != tt.want {
			t.Errorf("StatusCodeStyle(%d) foreground = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestIndicator(t *testing.T) {
	var buf syncBuffer
	in := NewIndicator(&buf, "running cors", Spinner{Frames: []string{"-"}, Interval: 5 * time.Millisecond})
	in.Start()
	time.Sleep(20 * time.Millisecond)
	in.Stop()
	in.Stop()

	out := buf.String()
	assert.Contains(t, out, "running cors")
	assert.True(t, strings.HasSuffix(out, "\r\033[K"), "line is cleared on stop")
}

func TestStartIndicatorPiped(t *testing.T) {
	if StderrIsTerminal() {
		t.Skip("stderr is a real terminal")
	}
	buf := capture(t)
	in := StartIndicator("quiet")
	in.Stop()
	assert.Empty(t, buf.String(), "no escape codes when piped")
}
