package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"ebookdl/internal/downloader"
	"ebookdl/pkg/errors"
	"ebookdl/pkg/landing"
	"ebookdl/pkg/ui"
	"ebookdl/pkg/ui/tui"
)

var (
	// Download command flags
	outputDir       string
	downloadTimeout time.Duration
	fileName        string
	overwrite       bool
	inspectPDF      bool
	useTUI          bool
	openInBrowser   bool
)

// downloadCmd represents the download command
var downloadCmd = &cobra.Command{
	Use:   "download <url>",
	Short: "Download an ebook or PDF from a direct link",
	Long: `Download a file from a direct link into the download folder.

The filename is taken from the Content-Disposition header, else from the URL you
gave, else from the URL a redirect ended on. After the transfer the file is
checked for the PDF signature; a .pdf download that turns out to be a web page
is renamed to .html so it can be opened in a browser.

--timeout limits connecting and waiting for data. A transfer that keeps
receiving bytes is never cut off, however long it takes.

When the server answers with a web page (a repository landing page or a login
form) nothing is saved. The page is scanned for download links instead, and
they are listed so you can try them directly.`,
	Example: `  # Download a thesis PDF into the default folder
  ebookdl download http://repository.upi.edu/12345/1/S_PEND_0901234_Chapter1.pdf

  # Choose the folder and a longer timeout
  ebookdl download https://eprints.uny.ac.id/1/1/skripsi.pdf -o ./buku --timeout 2m

  # Use the interactive progress screen
  ebookdl download https://example.ac.id/file.pdf --tui`,
	Args: cobra.ExactArgs(1),
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)

	downloadCmd.Flags().StringVarP(&outputDir, "output", "o", "", "download folder (default: ./downloads)")
	downloadCmd.Flags().DurationVar(&downloadTimeout, "timeout", 0, "connect and stall timeout, e.g. 60s or 2m; slow transfers are not cut off")
	downloadCmd.Flags().StringVarP(&fileName, "name", "n", "", "save under this filename instead of the server's")
	downloadCmd.Flags().BoolVar(&overwrite, "overwrite", true, "overwrite existing files instead of adding a (n) suffix")
	downloadCmd.Flags().BoolVar(&inspectPDF, "inspect-pdf", true, "read title and page count of downloaded PDFs")
	downloadCmd.Flags().BoolVar(&useTUI, "tui", false, "use interactive terminal UI with real-time progress")
	downloadCmd.Flags().BoolVar(&openInBrowser, "open", false, "open search pages and web pages in the browser")
}

// downloadFlags collects the download flags the user set
func downloadFlags(cmd *cobra.Command) map[string]interface{} {
	flags := globalFlags(cmd)
	if outputDir != "" {
		flags["output"] = outputDir
	}
	if downloadTimeout > 0 {
		flags["timeout"] = downloadTimeout
	}
	if cmd.Flags().Changed("overwrite") {
		flags["overwrite"] = overwrite
	}
	if cmd.Flags().Changed("inspect-pdf") {
		flags["inspect-pdf"] = inspectPDF
	}
	return flags
}

func runDownload(cmd *cobra.Command, args []string) error {
	a, err := newApp(downloadFlags(cmd))
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := interruptible(cmd.Context())
	defer stop()

	req := downloader.Request{URL: strings.TrimSpace(args[0]), Filename: fileName}

	var res *downloader.Result
	if useTUI {
		res, err = downloadWithTUI(ctx, a, req)
	} else {
		res, err = downloadWithProgress(ctx, a, req)
		printResult(res, err)
	}

	if err != nil {
		offerBrowser(req.URL, err)
		return errSilent
	}
	if res.Status == downloader.StatusNotPDF && openInBrowser {
		if err := browser.OpenFile(res.Path); err != nil {
			ui.PrintWarning("Could not open the browser", err)
		}
	}
	return nil
}

// interruptible returns a context that Ctrl-C cancels, so the downloader can
// remove its partial file instead of the process dying mid-transfer.
func interruptible(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt)
}

func downloadWithProgress(ctx context.Context, a *app, req downloader.Request) (*downloader.Result, error) {
	if !quiet {
		ui.PrintInfo("URL", req.URL)
		ui.PrintInfo("Folder", a.cfg.Download.Folder)
	}

	var obs downloader.Observer = downloader.NopObserver{}
	if !quiet {
		p := ui.NewProgressObserver(os.Stdout, stdoutIsTerminal(), verbose)
		defer p.Finish()
		obs = p
	}

	return a.downloader.Download(ctx, req, obs)
}

func downloadWithTUI(ctx context.Context, a *app, req downloader.Request) (*downloader.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	screen := tui.NewTUI(req.URL, cancel)
	job := a.downloader.Start(ctx, req, screen)

	go func() {
		res, err := job.Wait(context.Background())
		screen.Finish(outcomeOf(res, err))
	}()

	if err := screen.Start(); err != nil {
		a.log.WithError(err).Error("terminal UI failed")
		cancel()
	}
	return job.Wait(context.Background())
}

// outcomeOf converts a download result for the result panel
func outcomeOf(res *downloader.Result, err error) tui.Outcome {
	o := tui.Outcome{Err: err, Hint: hintFor(err)}
	if res == nil {
		return o
	}
	o.Path = res.Path
	o.Filename = res.Filename
	o.Status = string(res.Status)
	o.Size = res.Size
	if res.PDF != nil {
		o.Title = res.PDF.Title
		o.Pages = res.PDF.Pages
	}
	for _, c := range res.Candidates {
		o.Candidates = append(o.Candidates, c.URL)
	}
	if res.Status == downloader.StatusNotPDF {
		o.Hint = "The file is not a real PDF. Open the .html file to see what the server sent."
	}
	return o
}

// printResult reports a finished download on the console
func printResult(res *downloader.Result, err error) {
	if err != nil {
		ui.PrintError("Download failed", err)
		if res != nil && len(res.Candidates) > 0 {
			printCandidates(res.Candidates)
		}
		if hint := hintFor(err); hint != "" {
			fmt.Println(ui.Dim(hint))
		}
		return
	}
	if quiet {
		fmt.Println(res.Path)
		return
	}

	switch res.Status {
	case downloader.StatusNotPDF:
		ui.PrintWarning("File is not a valid PDF (possibly an HTML page)")
		ui.PrintInfo("Saved for inspection", res.Path)
	default:
		ui.PrintSuccess("Download complete")
		ui.PrintInfo("Saved to", res.Path)
	}
	ui.PrintInfo("Size", humanize.IBytes(uint64(res.Size)))
	if res.PDF != nil {
		if res.PDF.Title != "" {
			ui.PrintInfo("Title", res.PDF.Title)
		}
		if res.PDF.Pages > 0 {
			ui.PrintInfo("Pages", fmt.Sprint(res.PDF.Pages))
		}
	}
	ui.PrintInfo("Time", res.Duration.Round(time.Millisecond).String())
}

func printCandidates(links []landing.Link) {
	fmt.Println()
	ui.PrintHighlight(fmt.Sprintf("Found %d possible download link(s) on the page:", len(links)))
	for i, l := range links {
		title := l.Text
		if title == "" {
			title = l.Source
		}
		ui.PrintLink(i+1, title, l.URL)
	}
	fmt.Println()
}

// hintFor suggests what the user can do about a failed download
func hintFor(err error) string {
	if err == nil {
		return ""
	}
	switch errors.TypeOf(err) {
	case errors.ErrorTypeInvalidURL:
		return "Use a full link that starts with http:// or https://"
	case errors.ErrorTypeSearchURL:
		return "This is a search page. Open it with --open, pick a result and copy the direct PDF link."
	case errors.ErrorTypeHTMLPage:
		return "Try one of the links found on the page with 'ebookdl download <link>'. If the site needs a login, store your session with 'ebookdl auth set <host>'."
	case errors.ErrorTypeTimeout:
		return "The server did not answer in time. Try again with a longer --timeout."
	case errors.ErrorTypeNetwork:
		return "Check your internet connection and that the address is correct."
	case errors.ErrorTypeFilesystem:
		return "Check that the download folder exists and is writable."
	case errors.ErrorTypeHTTP:
		switch code := errors.StatusCode(err); {
		case code == 401 || code == 403:
			return "The file may require login. Store your session with 'ebookdl auth set <host>'."
		case code == 404 || code == 410:
			return "The file is no longer at this address. Search for it again with 'ebookdl search'."
		case code >= 500:
			return "The repository server has a problem. Try again later."
		}
	}
	return ""
}

// offerBrowser opens a search page or web page the downloader could not
// handle, or tells the user how to.
func offerBrowser(target string, err error) {
	if !errorIsPage(err) {
		return
	}
	if u, perr := url.Parse(target); perr != nil || u.Host == "" {
		return
	}

	if !openInBrowser {
		if !quiet {
			fmt.Println(ui.Dim("Re-run with --open to view it in your browser."))
		}
		return
	}
	if e := browser.OpenURL(target); e != nil {
		ui.PrintWarning("Could not open the browser", e)
	}
}

// errorIsPage reports whether err means the URL is a page for a browser
func errorIsPage(err error) bool {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeSearchURL, errors.ErrorTypeHTMLPage:
		return true
	}
	return false
}
