package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestModel(t *testing.T) {
	model := NewModel("https://repository.upi.edu/1/skripsi.pdf", nil)

	if model.state != DownloadPending {
		t.Errorf("Expected pending state, got %d", model.state)
	}

	model.SetStatus("Connecting to server...")
	if model.state != DownloadActive {
		t.Errorf("Expected active state, got %d", model.state)
	}

	model.UpdateProgress(512*1024, 1024*1024)
	if model.downloaded != 512*1024 {
		t.Errorf("Expected downloaded to be %d, got %d", 512*1024, model.downloaded)
	}
	if p := model.Percent(); p != 0.5 {
		t.Errorf("Expected 0.5 percent, got %f", p)
	}

	model.AddLogMessage("INFO", "Test message")
	if len(model.logMessages) != 1 {
		t.Errorf("Expected 1 log message, got %d", len(model.logMessages))
	}

	model.Complete(Outcome{Path: "/tmp/skripsi.pdf", Filename: "skripsi.pdf", Status: "saved", Size: 1024 * 1024})
	if model.state != DownloadCompleted {
		t.Errorf("Expected completed state, got %d", model.state)
	}
	if !model.Finished() {
		t.Error("Expected model to be finished")
	}
}

func TestPercentUnknownTotal(t *testing.T) {
	model := NewModel("https://example.com/a.pdf", nil)
	model.UpdateProgress(4096, 0)
	if p := model.Percent(); p != -1 {
		t.Errorf("Expected -1 for unknown size, got %f", p)
	}

	model.UpdateProgress(4096, 1024)
	if p := model.Percent(); p != 1 {
		t.Errorf("Expected percent to be capped at 1, got %f", p)
	}
}

func TestLogMessagesAreCapped(t *testing.T) {
	model := NewModel("https://example.com/a.pdf", nil)
	for i := 0; i < 60; i++ {
		model.AddLogMessage("INFO", "line")
	}
	if len(model.logMessages) != model.maxLogMessages {
		t.Errorf("Expected %d log messages, got %d", model.maxLogMessages, len(model.logMessages))
	}
}

func TestUpdateHandlesDownloadMessages(t *testing.T) {
	model := NewModel("https://example.com/a.pdf", nil)

	model.Update(StatusMsg{Text: "Downloading a.pdf"})
	model.Update(ProgressMsg{Downloaded: 100, Total: 200})
	model.Update(LogMsg{Level: "warn", Message: "slow server"})

	if model.status != "Downloading a.pdf" {
		t.Errorf("Unexpected status %q", model.status)
	}
	if model.total != 200 {
		t.Errorf("Expected total 200, got %d", model.total)
	}
	if model.logMessages[0].Level != "WARN" {
		t.Errorf("Expected level to be upper-cased, got %s", model.logMessages[0].Level)
	}

	_, cmd := model.Update(DoneMsg{Outcome: Outcome{Err: errors.New("http error (code 404)")}})
	if cmd == nil {
		t.Fatal("Expected quit command after DoneMsg")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected tea.QuitMsg")
	}
	if model.state != DownloadFailed {
		t.Errorf("Expected failed state, got %d", model.state)
	}
}

func TestQuitCancelsRunningDownload(t *testing.T) {
	cancelled := false
	model := NewModel("https://example.com/a.pdf", func() { cancelled = true })
	model.SetStatus("Downloading")

	model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !cancelled {
		t.Error("Expected cancel to be called")
	}

	cancelled = false
	done := NewModel("https://example.com/a.pdf", func() { cancelled = true })
	done.Complete(Outcome{Status: "saved"})
	done.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cancelled {
		t.Error("Expected no cancel after the download finished")
	}
}

func TestViewShowsResult(t *testing.T) {
	model := NewModel("https://repository.upi.edu/12/", nil)
	model.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	model.Complete(Outcome{
		Err:        errors.New("html_page error: server returned an HTML page instead of a file"),
		Candidates: []string{"https://repository.upi.edu/12/1/skripsi.pdf"},
		Hint:       "Try: ebookdl download <link>",
	})

	view := model.View()
	for _, want := range []string{"RESULT", "skripsi.pdf", "Try: ebookdl download"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q", want)
		}
	}
}

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		speed    float64
		expected string
	}{
		{1024, "1.0 KiB/s"},
		{1024 * 1024, "1.0 MiB/s"},
		{-5, "0 B/s"},
	}

	for _, test := range tests {
		result := FormatSpeed(test.speed)
		if result != test.expected {
			t.Errorf("FormatSpeed(%f) = %s, expected %s", test.speed, result, test.expected)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 6); got != "abc" {
		t.Errorf("truncate = %q", got)
	}
}
