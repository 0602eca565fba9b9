package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// Palette
	accentCyan    = lipgloss.Color("#00D7D7")
	accentMagenta = lipgloss.Color("#D75FD7")
	accentGreen   = lipgloss.Color("#5FD75F")
	accentYellow  = lipgloss.Color("#FFD75F")
	accentOrange  = lipgloss.Color("#FF8700")
	errorRed      = lipgloss.Color("#FF5F5F")
	darkBg        = lipgloss.Color("#1C1C1C")
	dimWhite      = lipgloss.Color("#B0B0B0")

	// Logo style
	logoStyle = lipgloss.NewStyle().
			Foreground(accentCyan).
			Bold(true).
			Padding(1, 0, 0, 1)

	// Panel styles
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentMagenta).
			Padding(0, 1)

	// Stats styles
	statsLabelStyle = lipgloss.NewStyle().
			Foreground(accentCyan).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(accentYellow)

	// Status styles
	successStyle = lipgloss.NewStyle().
			Foreground(accentGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorRed).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(accentOrange).
			Bold(true)

	linkStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Underline(true)

	// Log styles
	logTimestampStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666"))

	logMessageStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	// Help style
	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 0, 0, 1)

	// Title styles for panels
	titleStyle = lipgloss.NewStyle().
			Background(accentMagenta).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1)

	// Download speed styles
	speedStyle = lipgloss.NewStyle().
			Foreground(accentCyan)
)

// StatusStyle returns the style for a download status label
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "saved":
		return successStyle
	case "not_pdf", "html_page":
		return warningStyle
	default:
		return errorStyle
	}
}
