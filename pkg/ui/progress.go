package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
)

// ProgressObserver renders download events on a console. In interactive
// mode a byte progress bar is drawn; otherwise each event is a plain line,
// with progress reported every 25%.
type ProgressObserver struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	verbose     bool

	bar         *progressbar.ProgressBar
	lastQuarter int64
}

// NewProgressObserver creates an observer writing to out
func NewProgressObserver(out io.Writer, interactive, verbose bool) *ProgressObserver {
	return &ProgressObserver{out: out, interactive: interactive, verbose: verbose, lastQuarter: -1}
}

// Status prints a status line
func (p *ProgressObserver) Status(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil {
		p.bar.Describe(msg)
		return
	}
	fmt.Fprintln(p.out, Cyan("[*] ")+msg)
}

// Progress updates the bar, creating it on the first report
func (p *ProgressObserver) Progress(downloaded, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.interactive {
		p.plainProgress(downloaded, total)
		return
	}

	if p.bar == nil {
		max := total
		if max <= 0 {
			max = -1
		}
		p.bar = progressbar.NewOptions64(max,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("Downloading"),
			progressbar.OptionShowBytes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionEnableColorCodes(colorEnabled),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerPadding: "░",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
	}
	_ = p.bar.Set64(downloaded)
}

func (p *ProgressObserver) plainProgress(downloaded, total int64) {
	if total <= 0 {
		return
	}
	quarter := downloaded * 4 / total
	if quarter == p.lastQuarter {
		return
	}
	p.lastQuarter = quarter
	fmt.Fprintf(p.out, "%s %d%% (%s / %s)\n", Dim("[progress]"), quarter*25, humanize.IBytes(uint64(downloaded)), humanize.IBytes(uint64(total)))
}

// Log prints a message, finishing the bar first so output does not interleave
func (p *ProgressObserver) Log(level, msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.finishBar()

	switch level {
	case "error":
		fmt.Fprintln(p.out, Red("[x] "+msg))
	case "warn":
		fmt.Fprintln(p.out, Yellow("[!] "+msg))
	case "success":
		fmt.Fprintln(p.out, Green("[+] "+msg))
	case "debug":
		if p.verbose {
			fmt.Fprintln(p.out, Dim(msg))
		}
	default:
		fmt.Fprintln(p.out, msg)
	}
}

// Finish completes the bar if one is active
func (p *ProgressObserver) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishBar()
}

func (p *ProgressObserver) finishBar() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	fmt.Fprintln(p.out)
	p.bar = nil
}
