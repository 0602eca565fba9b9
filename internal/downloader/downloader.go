package downloader

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"ebookdl/pkg/config"
	"ebookdl/pkg/errors"
	"ebookdl/pkg/fetch"
	"ebookdl/pkg/history"
	"ebookdl/pkg/landing"
	"ebookdl/pkg/logger"
	"ebookdl/pkg/pdf"
	"ebookdl/pkg/search"
	"ebookdl/pkg/storage"
)

const (
	// ChunkSize is the read size used while streaming a response to disk
	ChunkSize = 8192
	// MaxPageScan bounds how much of an HTML response is searched for links
	MaxPageScan = 2 << 20
)

// Status is the outcome of a download that reached the server
type Status string

const (
	// StatusSaved means the file was kept under its resolved name
	StatusSaved Status = "saved"
	// StatusNotPDF means a .pdf download was not a PDF and was renamed to .html
	StatusNotPDF Status = "not_pdf"
	// StatusHTMLPage means the server answered with a web page; nothing was written
	StatusHTMLPage Status = "html_page"
	// StatusFailed means the download did not complete
	StatusFailed Status = "failed"
)

// Request describes one download. Filename overrides the name taken from
// the response when set.
type Request struct {
	URL      string
	Filename string
}

// Result describes what happened to a Request
type Result struct {
	ID          string
	URL         string
	FinalURL    string
	Path        string
	Filename    string
	ContentType string
	Size        int64
	Total       int64
	Status      Status
	PDF         *pdf.Info
	Candidates  []landing.Link
	Duration    time.Duration
}

// Observer receives progress while a download runs. Calls come from the
// goroutine running Download.
type Observer interface {
	Status(msg string)
	Progress(downloaded, total int64)
	Log(level, msg string)
}

// NopObserver ignores all events
type NopObserver struct{}

func (NopObserver) Status(string)         {}
func (NopObserver) Progress(int64, int64) {}
func (NopObserver) Log(string, string)    {}

// Recorder stores finished downloads. *history.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, e *history.Entry) error
}

// Notifier announces finished downloads. *ui.Notifier satisfies it.
type Notifier interface {
	SendSuccess(title, message string)
	SendError(title, message string)
}

// Downloader fetches one URL at a time into the download folder
type Downloader struct {
	cfg      config.DownloadConfig
	client   *fetch.Client
	storage  *storage.Manager
	history  Recorder
	notifier Notifier
	logger   logger.Logger
}

// Option configures optional collaborators
type Option func(*Downloader)

// WithHistory records every attempt in r
func WithHistory(r Recorder) Option {
	return func(d *Downloader) { d.history = r }
}

// WithNotifier announces results through n
func WithNotifier(n Notifier) Option {
	return func(d *Downloader) { d.notifier = n }
}

// New creates a Downloader
func New(cfg *config.DownloadConfig, client *fetch.Client, store *storage.Manager, log logger.Logger, opts ...Option) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	d := &Downloader{
		cfg:     *cfg,
		client:  client,
		storage: store,
		logger:  log,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ValidateURL checks that rawURL is an absolute http(s) URL
func ValidateURL(rawURL string) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return errors.New(errors.ErrorTypeInvalidURL, "URL is empty")
	}
	lower := strings.ToLower(rawURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return errors.New(errors.ErrorTypeInvalidURL, "URL must start with http:// or https://")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeInvalidURL, "URL cannot be parsed", err)
	}
	if u.Host == "" {
		return errors.New(errors.ErrorTypeInvalidURL, "URL has no host")
	}
	return nil
}

// Download fetches req.URL, saves it in the download folder and validates
// the result. A failed or cancelled transfer leaves no file behind, and an
// HTML response is never written.
func (d *Downloader) Download(ctx context.Context, req Request, obs Observer) (res *Result, err error) {
	if obs == nil {
		obs = NopObserver{}
	}

	start := time.Now()
	res = &Result{ID: uuid.NewString(), URL: strings.TrimSpace(req.URL)}
	defer func() {
		res.Duration = time.Since(start)
		if err != nil && res.Status == "" {
			res.Status = StatusFailed
		}
		d.finish(ctx, res, err, obs)
	}()

	if err = ValidateURL(res.URL); err != nil {
		return res, err
	}
	if search.IsSearchURL(res.URL) {
		err = errors.New(errors.ErrorTypeSearchURL, "this is a search results page, not a file; open it in a browser and copy a direct PDF link")
		return res, err
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	obs.Status("Connecting to server...")
	resp, err := d.client.Get(reqCtx, res.URL)
	if err != nil {
		return res, err
	}
	defer resp.Body.Close()

	var body io.Reader = resp.Body
	if d.cfg.Timeout > 0 {
		idle := newIdleReader(resp.Body, d.cfg.Timeout, cancel)
		defer idle.Stop()
		body = idle
	}

	finalURL := resp.Request.URL
	res.FinalURL = finalURL.String()
	res.ContentType = strings.ToLower(resp.Header.Get("Content-Type"))
	if resp.ContentLength > 0 {
		res.Total = resp.ContentLength
	}

	if strings.Contains(res.ContentType, "text/html") {
		res.Status = StatusHTMLPage
		obs.Log("warn", "Server returned a web page instead of a file; it may require login")
		err = d.scanPage(body, finalURL, res, obs)
		return res, err
	}

	name := strings.TrimSpace(req.Filename)
	if name == "" {
		requested, _ := url.Parse(res.URL)
		name = ResolveFilename(resp.Header.Get("Content-Disposition"), requested, finalURL, res.ContentType)
	}
	name = SanitizeFilename(name, d.cfg.MaxFilenameLength)
	if name == "" || name == "." || name == ".." {
		name = DefaultFilename(res.ContentType)
	}
	res.Filename = name

	pending, err := d.storage.Create(name)
	if err != nil {
		err = errors.Wrap(errors.ErrorTypeFilesystem, "cannot create file", err)
		return res, err
	}

	obs.Status("Downloading " + name)
	res.Size, err = d.stream(reqCtx, body, pending, res.Total, obs)
	if err != nil {
		if abortErr := pending.Abort(); abortErr != nil {
			d.logger.WithError(abortErr).Warn("failed to remove partial download")
		}
		return res, err
	}

	res.Path, err = pending.Commit()
	if err != nil {
		err = errors.Wrap(errors.ErrorTypeFilesystem, "cannot save file", err)
		return res, err
	}
	res.Filename = filepath.Base(res.Path)

	obs.Status("Validating file...")
	err = d.validate(res, obs)
	return res, err
}

// scanPage looks for download links on an HTML response and always returns
// an html_page error.
func (d *Downloader) scanPage(body io.Reader, base *url.URL, res *Result, obs Observer) error {
	links, err := landing.Extract(io.LimitReader(body, MaxPageScan), base)
	if err != nil {
		d.logger.WithError(err).Debug("failed to scan HTML response")
	}
	res.Candidates = links

	if len(links) > 0 {
		obs.Log("info", fmt.Sprintf("Found %d candidate download link(s) on the page", len(links)))
		return errors.New(errors.ErrorTypeHTMLPage,
			fmt.Sprintf("server returned an HTML page instead of a file; %d candidate link(s) found", len(links)))
	}
	return errors.New(errors.ErrorTypeHTMLPage, "server returned an HTML page instead of a file; the file may require login")
}

// stream copies body to w in ChunkSize reads, reporting progress after each.
// ctx is the request context; an idle cancel surfaces as a timeout.
func (d *Downloader) stream(ctx context.Context, body io.Reader, w io.Writer, total int64, obs Observer) (int64, error) {
	buf := make([]byte, ChunkSize)
	var written int64

	obs.Progress(0, total)
	for {
		if err := ctx.Err(); err != nil {
			return written, interrupted(ctx, err, "download cancelled", d.cfg.Timeout)
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return written, errors.Wrap(errors.ErrorTypeFilesystem, "cannot write file", err)
			}
			written += int64(n)
			obs.Progress(written, total)
		}

		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, interrupted(ctx, readErr, "transfer interrupted", d.cfg.Timeout)
		}
	}
}

// validate checks the PDF signature of a saved file. A file named .pdf that
// is not a PDF is renamed to .html so it can be opened in a browser.
func (d *Downloader) validate(res *Result, obs Observer) error {
	if pdf.IsValidFile(res.Path) {
		res.Status = StatusSaved
		if d.cfg.InspectPDF {
			info, err := pdf.InspectFile(res.Path)
			if err != nil {
				d.logger.WithError(err).Debug("could not read PDF information")
			} else {
				res.PDF = info
			}
		}
		return nil
	}

	if !strings.HasSuffix(strings.ToLower(res.Filename), ".pdf") {
		res.Status = StatusSaved
		obs.Log("info", "File is not a PDF; kept as "+res.Filename)
		return nil
	}

	renamed, err := d.storage.RenameForInspection(res.Path)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeFilesystem, "cannot rename invalid PDF", err)
	}
	res.Path = renamed
	res.Filename = filepath.Base(renamed)
	res.Status = StatusNotPDF
	obs.Log("warn", "File is not a valid PDF (possibly an HTML page); saved as "+res.Filename+" for inspection")
	return nil
}

// finish logs, records and announces the outcome
func (d *Downloader) finish(ctx context.Context, res *Result, err error, obs Observer) {
	logger.LogDownload(d.logger, res.URL, res.Path, string(res.Status), res.Size, err)

	if err != nil {
		obs.Log("error", err.Error())
	} else {
		obs.Log("success", fmt.Sprintf("Saved %s (%s)", res.Filename, humanize.IBytes(uint64(res.Size))))
	}

	if d.history != nil {
		entry := &history.Entry{
			ID:          res.ID,
			URL:         res.URL,
			FinalURL:    res.FinalURL,
			Path:        res.Path,
			Filename:    res.Filename,
			Status:      string(res.Status),
			ContentType: res.ContentType,
			Size:        res.Size,
			Duration:    res.Duration,
		}
		if res.PDF != nil {
			entry.Title = res.PDF.Title
			entry.Pages = res.PDF.Pages
		}
		if err != nil {
			entry.Error = err.Error()
		}
		if recErr := d.history.Record(context.WithoutCancel(ctx), entry); recErr != nil {
			d.logger.WithError(recErr).Warn("failed to record download history")
		}
	}

	if d.notifier == nil {
		return
	}
	switch {
	case err != nil:
		d.notifier.SendError("Download failed", err.Error())
	case res.Status == StatusNotPDF:
		d.notifier.SendError("Not a PDF", "Saved as "+res.Filename+" for inspection")
	default:
		d.notifier.SendSuccess("Download complete", res.Filename)
	}
}
