// Package ui renders the CyberX console chrome: the banner, status lines,
// the panel catalog and a run indicator. Panel results themselves are
// rendered by the output writers.
package ui

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/thecyberx/cyberx/pkg/defaults"
)

// Build information, overridable at link time:
// go build -ldflags "-X github.com/thecyberx/cyberx/pkg/ui.Commit=abc123"
var (
	Version   = defaults.Version
	BuildDate = "unknown"
	Commit    = "dev"
)

const Website = "https://github.com/thecyberx/cyberx"

var (
	silentMode  bool
	noColorMode bool
	out         io.Writer = os.Stderr
	uiMu        sync.RWMutex
)

// SetSilent suppresses banners and informational lines.
func SetSilent(silent bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	silentMode = silent
}

func IsSilent() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return silentMode
}

// SetNoColor disables colored output.
func SetNoColor(noColor bool) {
	uiMu.Lock()
	defer uiMu.Unlock()
	noColorMode = noColor
	if noColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

func IsNoColor() bool {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return noColorMode
}

// SetOutput redirects console chrome, which goes to stderr by default.
// It returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	uiMu.Lock()
	defer uiMu.Unlock()
	prev := out
	out = w
	return prev
}

func writer() io.Writer {
	uiMu.RLock()
	defer uiMu.RUnlock()
	return out
}

const bannerArt = `
   ______      __              _  __
  / ____/_  __/ /_  ___  _____| |/ /
 / /   / / / / __ \/ _ \/ ___/|   / 
/ /___/ /_/ / /_/ /  __/ /   /   |  
\____/\__, /_.___/\___/_/   /_/|_|  
     /____/                         
`

const bannerSeparator = "____________________________________________"

// PrintBanner prints the logo and version line.
func PrintBanner() {
	if IsSilent() {
		return
	}
	w := writer()
	for _, line := range strings.Split(bannerArt, "\n") {
		if line != "" {
			fmt.Fprintln(w, BannerStyle.Render(line))
		}
	}
	fmt.Fprintf(w, "              %s v%s\n\n", defaults.ToolName, VersionStyle.Render(Version))
}

func printOption(name, value string) {
	fmt.Fprintf(writer(), " :: %-20s : %s\n", ConfigLabelStyle.Render(name), ConfigValueStyle.Render(value))
}

// PrintConfigBanner prints the effective settings before a run. Known keys
// come first in a fixed order, the rest follow sorted.
func PrintConfigBanner(options map[string]string) {
	if IsSilent() {
		return
	}
	order := []string{
		"Panel", "Backend", "Target", "Chrome", "Proxy",
		"Timeout", "TLS Profile", "Output", "Format",
	}
	printed := make(map[string]bool, len(options))
	for _, name := range order {
		if value := options[name]; value != "" {
			printOption(name, value)
			printed[name] = true
		}
	}
	rest := make([]string, 0, len(options))
	for name, value := range options {
		if !printed[name] && value != "" {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	for _, name := range rest {
		printOption(name, options[name])
	}
	fmt.Fprintf(writer(), "%s\n\n", DividerStyle.Render(bannerSeparator))
}

// PrintDivider prints a horizontal rule.
func PrintDivider() {
	fmt.Fprintln(writer(), DividerStyle.Render(strings.Repeat("-", 75)))
}

// PrintSection prints a section header followed by a divider.
func PrintSection(title string) {
	w := writer()
	fmt.Fprintln(w)
	fmt.Fprintln(w, SectionStyle.Render("> "+title))
	PrintDivider()
}

// PrintCatalogEntry prints one panel line of the catalog.
func PrintCatalogEntry(id, label, description string) {
	fmt.Fprintf(writer(), "  %s %s %s\n",
		PanelIDStyle.Render(id),
		PanelLabelStyle.Render(label),
		HelpStyle.Render(description),
	)
}

func PrintHelp(text string) {
	fmt.Fprintln(writer(), HelpStyle.Render("  [i] "+text))
}

func PrintSuccess(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintln(writer(), SuccessStyle.Render("  [+] "+message))
}

// PrintError is never silenced.
func PrintError(message string) {
	fmt.Fprintln(writer(), FailStyle.Render("  [X] "+message))
}

func PrintWarning(message string) {
	fmt.Fprintln(writer(), WarningStyle.Render("  [!] "+message))
}

func PrintInfo(message string) {
	if IsSilent() {
		return
	}
	fmt.Fprintf(writer(), "  %s %s\n", SpinnerStyle.Render("*"), SanitizeString(message))
}
