package ui

import "github.com/charmbracelet/lipgloss"

// Palette shared with the components package, which repeats the hex values
// to avoid an import cycle.
const (
	accent  = lipgloss.Color("#7C3AED")
	healthy = lipgloss.Color("#10B981")
	failing = lipgloss.Color("#EF4444")
	pending = lipgloss.Color("#F59E0B")
	dim     = lipgloss.Color("#6B7280")
	edge    = lipgloss.Color("#374151")
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(edge).
			Padding(0, 1)

	bannerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(accent).
			Padding(0, 2)

	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	logoStyle    = sectionStyle

	liveStyle    = lipgloss.NewStyle().Foreground(healthy).Bold(true)
	downStyle    = lipgloss.NewStyle().Foreground(failing).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(pending).Bold(true)

	okText     = lipgloss.NewStyle().Foreground(healthy)
	rejectText = lipgloss.NewStyle().Foreground(failing)
	dimText    = lipgloss.NewStyle().Foreground(dim)
	helpText   = lipgloss.NewStyle().Foreground(dim).Padding(0, 1)
)
