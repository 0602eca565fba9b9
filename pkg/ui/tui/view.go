package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const logo = `█▀▀ █▄▄ █▀█ █▀█ █▄▀ █▀▄ █░░
██▄ █▄█ █▄█ █▄█ █░█ █▄▀ █▄▄`

// View renders the screen
func (m Model) View() string {
	width := m.width
	if width == 0 {
		width = 80
	}
	panelWidth := clamp(width-2, 40, 100)

	sections := []string{
		logoStyle.Render(logo),
		m.renderDownloadPanel(panelWidth),
	}

	if m.outcome != nil {
		sections = append(sections, m.renderResultPanel(panelWidth))
	}
	sections = append(sections, m.renderLogsPanel(panelWidth))

	if m.showHelp {
		sections = append(sections, m.renderHelp(panelWidth))
	} else if !m.Finished() {
		sections = append(sections, helpStyle.Render("q: cancel • ?: help"))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

// renderDownloadPanel shows the URL, the status line and the progress bar
func (m Model) renderDownloadPanel(width int) string {
	title := titleStyle.Render(" DOWNLOAD ")

	lines := []string{
		fmt.Sprintf("%s %s", statsLabelStyle.Render("URL:"), truncate(m.url, width-10)),
	}

	status := m.status
	if !m.Finished() {
		status = m.spinner.View() + " " + status
	}
	lines = append(lines, fmt.Sprintf("%s %s", statsLabelStyle.Render("Status:"), status))

	if m.state != DownloadPending {
		if pct := m.Percent(); pct >= 0 {
			lines = append(lines, m.progress.ViewAs(pct))
		}

		transferred := humanize.IBytes(uint64(m.downloaded))
		if m.total > 0 {
			transferred += " / " + humanize.IBytes(uint64(m.total))
		}
		elapsed := time.Duration(0)
		if !m.startTime.IsZero() {
			elapsed = time.Since(m.startTime)
		}
		lines = append(lines, fmt.Sprintf("%s %s  %s %s  %s %s",
			statsLabelStyle.Render("Received:"), statsValueStyle.Render(transferred),
			statsLabelStyle.Render("Speed:"), speedStyle.Render(FormatSpeed(m.speed)),
			statsLabelStyle.Render("Elapsed:"), statsValueStyle.Render(formatDuration(elapsed)),
		))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n")),
	)
}

// renderResultPanel shows where the file went or why it did not
func (m Model) renderResultPanel(width int) string {
	o := m.outcome
	title := titleStyle.Render(" RESULT ")

	var lines []string
	if o.Err != nil {
		lines = append(lines, errorStyle.Render("✗ "+o.Err.Error()))
	} else {
		lines = append(lines,
			fmt.Sprintf("%s %s", statsLabelStyle.Render("Status:"), StatusStyle(o.Status).Render(o.Status)),
			fmt.Sprintf("%s %s", statsLabelStyle.Render("Saved to:"), o.Path),
			fmt.Sprintf("%s %s", statsLabelStyle.Render("Size:"), humanize.IBytes(uint64(o.Size))),
		)
		if o.Title != "" {
			lines = append(lines, fmt.Sprintf("%s %s", statsLabelStyle.Render("Title:"), o.Title))
		}
		if o.Pages > 0 {
			lines = append(lines, fmt.Sprintf("%s %d", statsLabelStyle.Render("Pages:"), o.Pages))
		}
	}

	if len(o.Candidates) > 0 {
		lines = append(lines, "", warningStyle.Render(fmt.Sprintf("%d possible download link(s) on the page:", len(o.Candidates))))
		for i, c := range o.Candidates {
			if i == 5 {
				lines = append(lines, logMessageStyle.Render(fmt.Sprintf("  ... and %d more", len(o.Candidates)-5)))
				break
			}
			lines = append(lines, fmt.Sprintf("  %d. %s", i+1, linkStyle.Render(truncate(c, width-10))))
		}
	}

	if o.Hint != "" {
		lines = append(lines, "", helpStyle.Render(o.Hint))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(lines, "\n")),
	)
}

// renderLogsPanel renders the most recent log lines
func (m Model) renderLogsPanel(width int) string {
	title := titleStyle.Render(" LOG ")

	start := len(m.logMessages) - 6
	if start < 0 {
		start = 0
	}

	var logs []string
	for i := start; i < len(m.logMessages); i++ {
		log := m.logMessages[i]
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		message := logMessageStyle.Render(truncate(log.Message, width-25))

		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, message))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No logs yet...")
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

// renderHelp renders the help panel
func (m Model) renderHelp(width int) string {
	help := `  q/Esc    - Cancel the download and quit
  ?        - Toggle this help
  ctrl+l   - Clear the log

  ` + successStyle.Render("Green") + `  saved
  ` + warningStyle.Render("Orange") + ` not a PDF or a web page
  ` + errorStyle.Render("Red") + `    failed`

	return panelStyle.Width(width).Render(help)
}

// truncate shortens s to max runes with an ellipsis
func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 3 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
