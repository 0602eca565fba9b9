package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// DownloadState represents the state of the download
type DownloadState int

const (
	DownloadPending DownloadState = iota
	DownloadActive
	DownloadCompleted
	DownloadFailed
)

// Outcome summarizes a finished download for the result panel
type Outcome struct {
	Path       string
	Filename   string
	Status     string
	Size       int64
	Title      string
	Pages      int
	Candidates []string
	Err        error
	Hint       string
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the single-download screen
type Model struct {
	// UI components
	spinner  spinner.Model
	progress progress.Model

	// Download state
	url        string
	status     string
	state      DownloadState
	downloaded int64
	total      int64
	startTime  time.Time
	speed      float64
	outcome    *Outcome

	// UI state
	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	cancel func()
}

// NewModel creates the screen for one URL. cancel is called when the user
// quits before the download has finished.
func NewModel(url string, cancel func()) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(accentCyan)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	return Model{
		spinner:        s,
		progress:       p,
		url:            url,
		status:         "Waiting...",
		state:          DownloadPending,
		logMessages:    []LogMessage{},
		maxLogMessages: 50,
		cancel:         cancel,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// SetStatus updates the status line and marks the download as started
func (m *Model) SetStatus(text string) {
	m.status = text
	if m.state == DownloadPending {
		m.state = DownloadActive
		m.startTime = time.Now()
	}
}

// UpdateProgress records transferred bytes and recomputes the speed
func (m *Model) UpdateProgress(downloaded, total int64) {
	if m.state == DownloadPending {
		m.state = DownloadActive
		m.startTime = time.Now()
	}
	m.downloaded = downloaded
	m.total = total

	if elapsed := time.Since(m.startTime).Seconds(); elapsed > 0 {
		m.speed = float64(downloaded) / elapsed
	}
}

// Complete stores the outcome of the download
func (m *Model) Complete(o Outcome) {
	m.outcome = &o
	if o.Err != nil {
		m.state = DownloadFailed
		m.status = "Download failed"
		return
	}
	m.state = DownloadCompleted
	m.status = "Download finished"
	if o.Size > 0 {
		m.downloaded = o.Size
	}
}

// Percent returns the completed fraction, or -1 when the size is unknown
func (m *Model) Percent() float64 {
	if m.total <= 0 {
		return -1
	}
	p := float64(m.downloaded) / float64(m.total)
	if p > 1.0 {
		p = 1.0
	}
	return p
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	color := dimWhite
	switch level {
	case "ERROR":
		color = errorRed
	case "WARN":
		color = accentOrange
	case "SUCCESS":
		color = accentGreen
	case "INFO":
		color = accentCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	// Keep only the last N messages
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// Finished reports whether the download has ended
func (m *Model) Finished() bool {
	return m.state == DownloadCompleted || m.state == DownloadFailed
}

// FormatSpeed formats speed in bytes per second
func FormatSpeed(bytesPerSecond float64) string {
	if bytesPerSecond < 0 {
		bytesPerSecond = 0
	}
	return humanize.IBytes(uint64(bytesPerSecond)) + "/s"
}
