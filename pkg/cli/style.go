package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme defines the color scheme for terminal output.
type Theme struct {
	Primary lipgloss.Color // Main accent color
	Dim     lipgloss.Color // Dimmed/help text color
	Warn    lipgloss.Color
	Fail    lipgloss.Color
}

// DefaultTheme is the default bright green theme.
var DefaultTheme = Theme{
	Primary: lipgloss.Color("#00ff9f"),
	Dim:     lipgloss.Color("#6e7681"),
	Warn:    lipgloss.Color("#e3b341"),
	Fail:    lipgloss.Color("#f85149"),
}

// Styles holds all styles derived from a theme.
type Styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Help  lipgloss.Style
	OK    lipgloss.Style
	Warn  lipgloss.Style
	Fail  lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(t Theme) Styles {
	return Styles{
		Title: lipgloss.NewStyle().Bold(true).Foreground(t.Primary),
		Label: lipgloss.NewStyle().Bold(true),
		Help:  lipgloss.NewStyle().Foreground(t.Dim),
		OK:    lipgloss.NewStyle().Foreground(t.Primary),
		Warn:  lipgloss.NewStyle().Foreground(t.Warn),
		Fail:  lipgloss.NewStyle().Bold(true).Foreground(t.Fail),
	}
}

// CheckStatus is the outcome of a Check.
type CheckStatus int

const (
	CheckOK CheckStatus = iota
	CheckWarn
	CheckFail
)

// Check is one line of a diagnostic report.
type Check struct {
	Name   string
	Status CheckStatus
	Detail string
}

// Report is a titled list of checks.
type Report struct {
	Title  string
	Checks []Check
}

// Failed reports whether any check failed.
func (r Report) Failed() bool {
	for _, c := range r.Checks {
		if c.Status == CheckFail {
			return true
		}
	}
	return false
}

// Render renders the report, one check per line with aligned names.
func (r Report) Render(s Styles) string {
	width := 0
	for _, c := range r.Checks {
		width = max(width, lipgloss.Width(c.Name))
	}

	var b strings.Builder
	b.WriteString(s.Title.Render(r.Title))
	b.WriteByte('\n')
	for _, c := range r.Checks {
		var mark string
		switch c.Status {
		case CheckOK:
			mark = s.OK.Render("✓")
		case CheckWarn:
			mark = s.Warn.Render("!")
		default:
			mark = s.Fail.Render("✗")
		}
		name := c.Name + strings.Repeat(" ", width-lipgloss.Width(c.Name))
		b.WriteString("  " + mark + " " + s.Label.Render(name))
		if c.Detail != "" {
			b.WriteString("  " + s.Help.Render(c.Detail))
		}
		b.WriteByte('\n')
	}
	return b.String()
}
