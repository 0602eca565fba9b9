package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// progressInterval limits how often byte counts are pushed to the screen
const progressInterval = 50 * time.Millisecond

// TUI runs the download screen. It receives download events through the
// Status, Progress and Log methods, which are safe to call from the
// goroutine running the download.
type TUI struct {
	program *tea.Program
	model   *Model

	mu           sync.Mutex
	lastProgress time.Time
}

// NewTUI creates the screen for url. cancel stops the download when the
// user quits early.
func NewTUI(url string, cancel func(), opts ...tea.ProgramOption) *TUI {
	model := NewModel(url, cancel)
	program := tea.NewProgram(&model, opts...)

	return &TUI{
		program: program,
		model:   &model,
	}
}

// Start runs the screen until the download finishes or the user quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// Status updates the status line
func (t *TUI) Status(msg string) {
	t.Send(StatusMsg{Text: msg})
}

// Progress forwards byte counts, dropping updates that arrive faster than
// the screen refreshes. The final count is always delivered.
func (t *TUI) Progress(downloaded, total int64) {
	t.mu.Lock()
	now := time.Now()
	skip := now.Sub(t.lastProgress) < progressInterval && (total <= 0 || downloaded < total)
	if !skip {
		t.lastProgress = now
	}
	t.mu.Unlock()

	if skip {
		return
	}
	t.Send(ProgressMsg{Downloaded: downloaded, Total: total})
}

// Log adds a line to the log panel
func (t *TUI) Log(level, msg string) {
	t.Send(LogMsg{Level: level, Message: msg})
}

// Finish shows the outcome and ends the program
func (t *TUI) Finish(o Outcome) {
	t.Send(DoneMsg{Outcome: o})
}
