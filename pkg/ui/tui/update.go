package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// Message types for the TUI

// StatusMsg replaces the status line
type StatusMsg struct {
	Text string
}

// ProgressMsg is sent to update download progress
type ProgressMsg struct {
	Downloaded int64
	Total      int64
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// DoneMsg is sent once the download has finished
type DoneMsg struct {
	Outcome Outcome
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = clamp(msg.Width-20, 20, 80)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.Finished() {
			return m, nil
		}
		return m, tickCmd()

	case StatusMsg:
		m.SetStatus(msg.Text)
		return m, nil

	case ProgressMsg:
		m.UpdateProgress(msg.Downloaded, msg.Total)
		return m, nil

	case LogMsg:
		m.AddLogMessage(strings.ToUpper(msg.Level), msg.Message)
		return m, nil

	case DoneMsg:
		m.Complete(msg.Outcome)
		// The final frame stays on screen after the program exits
		return m, tea.Quit
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c", "esc":
		if !m.Finished() && m.cancel != nil {
			m.cancel()
			m.AddLogMessage("WARN", "Download cancelled by user")
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = []LogMessage{}
		return m, nil
	}

	return m, nil
}

// Commands

// tickCmd returns a command that sends a tick message
func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*200, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
