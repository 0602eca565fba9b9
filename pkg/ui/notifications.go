package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"ebookdl/pkg/config"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	cmd := exec.Command("notify-send", "--app-name="+config.AppName, title, message)
	return cmd.Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, appleScriptQuote(message), appleScriptQuote(title))
	cmd := exec.Command("osascript", "-e", script)
	return cmd.Run()
}

func appleScriptQuote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

// toastScript never contains the notification text. Title and message come
// from the environment and are XML-escaped inside PowerShell, so a file name
// like "$(...)" is shown literally.
const toastScript = `
[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
$title = [Security.SecurityElement]::Escape($env:EBOOKDL_TOAST_TITLE)
$message = [Security.SecurityElement]::Escape($env:EBOOKDL_TOAST_MESSAGE)
$xml = '<toast><visual><binding template="ToastText02"><text id="1">' + $title + '</text><text id="2">' + $message + '</text></binding></visual></toast>'
$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
$doc.LoadXml($xml)
$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier('` + config.AppName + `').Show($toast)
`

func (w *WindowsNotificationSender) Send(title, message string) error {
	return windowsToastCommand(title, message).Run()
}

func windowsToastCommand(title, message string) *exec.Cmd {
	cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", toastScript)
	cmd.Env = append(os.Environ(),
		"EBOOKDL_TOAST_TITLE="+title,
		"EBOOKDL_TOAST_MESSAGE="+message,
	)
	return cmd
}

// Notifier announces finished downloads on the console and, when the
// notification type is "desktop", through the platform notifier.
type Notifier struct {
	sender NotificationSender
	cfg    config.NotificationConfig
	out    io.Writer
}

// NewNotifier creates a Notifier for the current platform
func NewNotifier(cfg *config.NotificationConfig) *Notifier {
	var sender NotificationSender

	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}

	return NewNotifierWithSender(cfg, sender, os.Stdout)
}

// NewNotifierWithSender creates a Notifier with an explicit sender and console
func NewNotifierWithSender(cfg *config.NotificationConfig, sender NotificationSender, out io.Writer) *Notifier {
	return &Notifier{sender: sender, cfg: *cfg, out: out}
}

// SendError sends an error notification
func (n *Notifier) SendError(title, message string) {
	if !n.cfg.OnError {
		return
	}
	n.send(Red(title), Red(message), title, message)
}

// SendSuccess sends a success notification
func (n *Notifier) SendSuccess(title, message string) {
	if !n.cfg.OnComplete {
		return
	}
	n.send(Green(title), Green(message), title, message)
}

func (n *Notifier) send(styledTitle, styledMessage, title, message string) {
	kind := strings.ToLower(n.cfg.NotificationType)
	if !n.cfg.Enabled || kind == "none" {
		return
	}

	fmt.Fprintf(n.out, "\n%s: %s\n", styledTitle, styledMessage)

	if kind == "desktop" && n.sender != nil {
		// Notifications are not critical
		_ = n.sender.Send(title, message)
	}
}
