package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/thecyberx/cyberx/pkg/finding"
)

// Palette
var (
	Primary   = lipgloss.Color("#00D4AA") // teal, brand
	Secondary = lipgloss.Color("#7D56F4")

	Critical = lipgloss.Color("#FF0000")
	High     = lipgloss.Color("#FF6B6B")
	Medium   = lipgloss.Color("#FFD93D")
	Low      = lipgloss.Color("#6BCB77")
	Info     = lipgloss.Color("#4D96FF")

	Success = lipgloss.Color("#00D26A")
	Warning = lipgloss.Color("#FFB800")
	Error   = lipgloss.Color("#FF3838")
	Muted   = lipgloss.Color("#6B7280")
	Text    = lipgloss.Color("#FAFAFA")
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Text).
			Background(Secondary).
			Padding(0, 1)

	BannerStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	VersionStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)

	SectionStyle = lipgloss.NewStyle().
			Foreground(Text).
			Bold(true).
			MarginTop(1)

	ConfigLabelStyle = lipgloss.NewStyle().
				Foreground(Muted).
				Width(15)

	ConfigValueStyle = lipgloss.NewStyle().
				Foreground(Text)

	// Panel catalog
	PanelIDStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true).
			Width(12)

	PanelLabelStyle = lipgloss.NewStyle().
			Foreground(Text).
			Width(16)

	BracketStyle = lipgloss.NewStyle().
			Foreground(Muted)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(Success).
			Bold(true)

	FailStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning).
			Bold(true)

	DividerStyle = lipgloss.NewStyle().
			Foreground(Muted)

	HelpStyle = lipgloss.NewStyle().
			Foreground(Muted).
			Italic(true)

	URLStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Underline(true)

	CategoryStyle = lipgloss.NewStyle().
			Foreground(Text).
			Background(lipgloss.Color("#3B3B4F")).
			Padding(0, 1)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(Primary)
)

// SeverityColor maps a finding severity to its palette color.
func SeverityColor(sev finding.Severity) lipgloss.Color {
	switch sev {
	case finding.Critical:
		return Critical
	case finding.High:
		return High
	case finding.Medium:
		return Medium
	case finding.Low:
		return Low
	case finding.Info:
		return Info
	default:
		return Muted
	}
}

// SeverityStyle returns a badge style for a severity level.
func SeverityStyle(sev finding.Severity) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	switch sev {
	case finding.Critical, finding.High, finding.Info:
		return base.Foreground(lipgloss.Color("#FFFFFF")).Background(SeverityColor(sev))
	case finding.Medium, finding.Low:
		return base.Foreground(lipgloss.Color("#000000")).Background(SeverityColor(sev))
	default:
		return base.Foreground(Muted)
	}
}

// StatusCodeStyle colors an HTTP status code by class.
func StatusCodeStyle(code int) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch {
	case code >= 200 && code < 300:
		return base.Foreground(Success)
	case code >= 300 && code < 400:
		return base.Foreground(Info)
	case code >= 400 && code < 500:
		return base.Foreground(Medium)
	case code >= 500:
		return base.Foreground(Error)
	default:
		return base.Foreground(Muted)
	}
}
