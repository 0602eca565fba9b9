package downloader

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	model "github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebookdl/pkg/config"
	"ebookdl/pkg/errors"
	"ebookdl/pkg/fetch"
	"ebookdl/pkg/history"
	"ebookdl/pkg/logger"
	"ebookdl/pkg/storage"
)

const samplePDF = "%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n%%EOF\n"

type recordingObserver struct {
	mu       sync.Mutex
	statuses []string
	progress [][2]int64
	logs     map[string][]string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{logs: make(map[string][]string)}
}

func (o *recordingObserver) Status(msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.statuses = append(o.statuses, msg)
}

func (o *recordingObserver) Progress(downloaded, total int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = append(o.progress, [2]int64{downloaded, total})
}

func (o *recordingObserver) Log(level, msg string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.logs[level] = append(o.logs[level], msg)
}

type recordingNotifier struct {
	successes []string
	failures  []string
}

func (n *recordingNotifier) SendSuccess(title, message string) {
	n.successes = append(n.successes, title+": "+message)
}

func (n *recordingNotifier) SendError(title, message string) {
	n.failures = append(n.failures, title+": "+message)
}

type testEnv struct {
	dir        string
	downloader *Downloader
	history    *history.Store
	notifier   *recordingNotifier
	log        *logger.TestLogger
}

func newTestEnv(t *testing.T, mutate func(cfg *config.DownloadConfig)) *testEnv {
	t.Helper()

	cfg := config.DefaultConfig().Download
	cfg.Folder = t.TempDir()
	cfg.Timeout = 5 * time.Second
	cfg.InspectPDF = false
	if mutate != nil {
		mutate(&cfg)
	}

	store, err := storage.NewManager(cfg.Folder, cfg.OverwriteExisting)
	require.NoError(t, err)

	hist, err := history.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })

	log := logger.NewTestLogger()
	notifier := &recordingNotifier{}
	d := New(&cfg, fetch.NewClient(&cfg, log), store, log,
		WithHistory(hist), WithNotifier(notifier))

	return &testEnv{
		dir:        cfg.Folder,
		downloader: d,
		history:    hist,
		notifier:   notifier,
		log:        log,
	}
}

func (e *testEnv) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.dir)
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestDownloadValidPDF(t *testing.T) {
	env := newTestEnv(t, nil)
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte(samplePDF))
	})

	obs := newRecordingObserver()
	res, err := env.downloader.Download(context.Background(), Request{URL: server.URL + "/files/skripsi.pdf"}, obs)
	require.NoError(t, err)

	assert.Equal(t, StatusSaved, res.Status)
	assert.Equal(t, "skripsi.pdf", res.Filename)
	assert.Equal(t, filepath.Join(env.dir, "skripsi.pdf"), res.Path)
	assert.Equal(t, int64(len(samplePDF)), res.Size)
	assert.Equal(t, "application/pdf", res.ContentType)
	assert.NotEmpty(t, res.ID)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, samplePDF, string(data))
	assert.Equal(t, []string{"skripsi.pdf"}, env.files(t))

	require.NotEmpty(t, obs.progress)
	last := obs.progress[len(obs.progress)-1]
	assert.Equal(t, int64(len(samplePDF)), last[0])
	assert.Equal(t, int64(len(samplePDF)), last[1])
	assert.Len(t, obs.logs["success"], 1)

	assert.Len(t, env.notifier.successes, 1)
	assert.True(t, env.log.HasMessage("Download finished"))
}

func TestDownloadStreamsInChunks(t *testing.T) {
	env := newTestEnv(t, nil)
	body := samplePDF + strings.Repeat("x", 3*ChunkSize)
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte(body))
	})

	obs := newRecordingObserver()
	res, err := env.downloader.Download(context.Background(), Request{URL: server.URL + "/big.pdf"}, obs)
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), res.Size)

	// one initial report, then at least one per chunk
	assert.GreaterOrEqual(t, len(obs.progress), 4)
	for i := 1; i < len(obs.progress); i++ {
		assert.GreaterOrEqual(t, obs.progress[i][0], obs.progress[i-1][0])
		assert.LessOrEqual(t, obs.progress[i][0]-obs.progress[i-1][0], int64(ChunkSize))
	}
}

func TestDownloadNotPDFRenamedToHTML(t *testing.T) {
	env := newTestEnv(t, nil)
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Write([]byte("<html><body>Silakan login</body></html>"))
	})

	obs := newRecordingObserver()
	res, err := env.downloader.Download(context.Background(), Request{URL: server.URL + "/docs/Thesis.PDF"}, obs)
	require.NoError(t, err)

	assert.Equal(t, StatusNotPDF, res.Status)
	assert.Equal(t, "Thesis.html", res.Filename)
	assert.Equal(t, []string{"Thesis.html"}, env.files(t))
	assert.Len(t, obs.logs["warn"], 1)
	assert.Len(t, env.notifier.failures, 1)
}

func TestDownloadHTMLResponseWritesNothing(t *testing.T) {
	env := newTestEnv(t, nil)
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=UTF-8")
		w.Write([]byte(`<html><head>
<meta name="citation_pdf_url" content="/12/1/skripsi.pdf">
</head><body><a href="/12/2/lampiran.pdf">Lampiran</a></body></html>`))
	})

	res, err := env.downloader.Download(context.Background(), Request{URL: server.URL + "/12/"}, nil)
	require.Error(t, err)

	assert.Equal(t, errors.ErrorTypeHTMLPage, errors.TypeOf(err))
	assert.Equal(t, StatusHTMLPage, res.Status)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, server.URL+"/12/1/skripsi.pdf", res.Candidates[0].URL)
	assert.Empty(t, env.files(t))
}

func TestDownloadContentDisposition(t *testing.T) {
	env := newTestEnv(t, nil)
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="Bab 1: Pendahuluan?.pdf"`)
		w.Write([]byte(samplePDF))
	})

	res, err := env.downloader.Download(context.Background(), Request{URL: server.URL + "/download.php?id=7"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Bab 1_ Pendahuluan_.pdf", res.Filename)
}

func TestDownloadFilenameOverride(t *testing.T) {
	env := newTestEnv(t, nil)
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte(samplePDF))
	})

	res, err := env.downloader.Download(context.Background(), Request{URL: server.URL + "/a.pdf", Filename: "mine.pdf"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "mine.pdf", res.Filename)
}

func TestDownloadDefaultNames(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        string
	}{
		{"pdf", "application/pdf", DefaultPDFName},
		{"epub", "application/epub+zip", DefaultEPUBName},
		{"unknown", "application/octet-stream", DefaultPDFName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			server := serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.Write([]byte(samplePDF))
			})

			res, err := env.downloader.Download(context.Background(), Request{URL: server.URL + "/"}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Filename)
		})
	}
}

func TestDownloadEPUBKept(t *testing.T) {
	env := newTestEnv(t, nil)
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/epub+zip")
		w.Write([]byte("PK\x03\x04epub"))
	})

	res, err := env.downloader.Download(context.Background(), Request{URL: server.URL + "/buku.epub"}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSaved, res.Status)
	assert.Equal(t, "buku.epub", res.Filename)
}

func TestDownloadOverwrite(t *testing.T) {
	tests := []struct {
		name      string
		overwrite bool
		want      []string
	}{
		{"overwrite", true, []string{"a.pdf"}},
		{"unique names", false, []string{"a (1).pdf", "a.pdf"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(cfg *config.DownloadConfig) {
				cfg.OverwriteExisting = tt.overwrite
			})
			server := serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/pdf")
				w.Write([]byte(samplePDF))
			})

			for i := 0; i < 2; i++ {
				_, err := env.downloader.Download(context.Background(), Request{URL: server.URL + "/a.pdf"}, nil)
				require.NoError(t, err)
			}
			assert.ElementsMatch(t, tt.want, env.files(t))
		})
	}
}

func TestDownloadHTTPError(t *testing.T) {
	env := newTestEnv(t, nil)
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	res, err := env.downloader.Download(context.Background(), Request{URL: server.URL + "/missing.pdf"}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeHTTP, errors.TypeOf(err))
	assert.Equal(t, http.StatusNotFound, errors.StatusCode(err))
	assert.Equal(t, StatusFailed, res.Status)
	assert.Empty(t, env.files(t))
	assert.Len(t, env.notifier.failures, 1)
}

func TestDownloadTimeout(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.DownloadConfig) {
		cfg.Timeout = 100 * time.Millisecond
	})
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})

	_, err := env.downloader.Download(context.Background(), Request{URL: server.URL + "/slow.pdf"}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeTimeout, errors.TypeOf(err))
	assert.Empty(t, env.files(t))
}

func TestDownloadSlowSteadyBodyOutlivesTimeout(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.DownloadConfig) {
		cfg.Timeout = 500 * time.Millisecond
	})
	chunk := bytes.Repeat([]byte("x"), 1024)
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		flusher := w.(http.Flusher)
		w.Write([]byte("%PDF-1.4\n"))
		flusher.Flush()
		for i := 0; i < 10; i++ {
			time.Sleep(100 * time.Millisecond)
			w.Write(chunk)
			flusher.Flush()
		}
	})

	res, err := env.downloader.Download(context.Background(), Request{URL: server.URL + "/slow.pdf"}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSaved, res.Status)
	assert.Equal(t, int64(9+10*1024), res.Size)
	assert.Greater(t, res.Duration, 500*time.Millisecond)
	assert.Equal(t, []string{"slow.pdf"}, env.files(t))
}

func TestDownloadStalledBodyTimesOut(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.DownloadConfig) {
		cfg.Timeout = 200 * time.Millisecond
	})
	release := make(chan struct{})
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Length", "100000")
		w.Write([]byte(samplePDF))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	res, err := env.downloader.Download(context.Background(), Request{URL: server.URL + "/stalled.pdf"}, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeTimeout, errors.TypeOf(err))
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, int64(len(samplePDF)), res.Size)
	assert.Empty(t, env.files(t))
}

func TestDownloadCancelledMidTransfer(t *testing.T) {
	env := newTestEnv(t, nil)
	release := make(chan struct{})
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Length", "100000")
		w.Write([]byte(samplePDF))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	obs := &cancelOnProgress{recordingObserver: newRecordingObserver(), cancel: cancel}

	res, err := env.downloader.Download(ctx, Request{URL: server.URL + "/partial.pdf"}, obs)
	require.Error(t, err)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Empty(t, env.files(t))
}

type cancelOnProgress struct {
	*recordingObserver
	cancel context.CancelFunc
}

func (o *cancelOnProgress) Progress(downloaded, total int64) {
	o.recordingObserver.Progress(downloaded, total)
	if downloaded > 0 {
		o.cancel()
	}
}

func TestDownloadRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want errors.ErrorType
	}{
		{"empty", "   ", errors.ErrorTypeInvalidURL},
		{"no scheme", "repository.upi.edu/1/a.pdf", errors.ErrorTypeInvalidURL},
		{"ftp", "ftp://example.com/a.pdf", errors.ErrorTypeInvalidURL},
		{"no host", "http:///a.pdf", errors.ErrorTypeInvalidURL},
		{"google search", "https://www.google.com/search?q=skripsi+filetype:pdf", errors.ErrorTypeSearchURL},
		{"scholar", "https://scholar.google.com/scholar?q=pendidikan", errors.ErrorTypeSearchURL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			res, err := env.downloader.Download(context.Background(), Request{URL: tt.url}, nil)
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.TypeOf(err))
			assert.Equal(t, StatusFailed, res.Status)
		})
	}
}

func TestDownloadRecordsHistory(t *testing.T) {
	env := newTestEnv(t, nil)
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "missing.pdf") {
			http.Error(w, "gone", http.StatusGone)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte(samplePDF))
	})

	ctx := context.Background()
	ok, err := env.downloader.Download(ctx, Request{URL: server.URL + "/ok.pdf"}, nil)
	require.NoError(t, err)
	_, err = env.downloader.Download(ctx, Request{URL: server.URL + "/missing.pdf"}, nil)
	require.Error(t, err)

	entries, err := env.history.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byURL := map[string]history.Entry{}
	for _, e := range entries {
		byURL[e.URL] = e
	}
	saved := byURL[server.URL+"/ok.pdf"]
	assert.Equal(t, ok.ID, saved.ID)
	assert.Equal(t, string(StatusSaved), saved.Status)
	assert.Equal(t, ok.Path, saved.Path)

	failed := byURL[server.URL+"/missing.pdf"]
	assert.Equal(t, string(StatusFailed), failed.Status)
	assert.Contains(t, failed.Error, "410")
}

func TestDownloadFollowsRedirects(t *testing.T) {
	env := newTestEnv(t, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/bitstream/handle/1", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/files/final.pdf", http.StatusFound)
	})
	mux.HandleFunc("/files/final.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte(samplePDF))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	res, err := env.downloader.Download(context.Background(), Request{URL: server.URL + "/bitstream/handle/1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "final.pdf", res.Filename)
	assert.Equal(t, server.URL+"/files/final.pdf", res.FinalURL)
}

func TestDownloadPrefersRequestedName(t *testing.T) {
	env := newTestEnv(t, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("/files/skripsi.pdf", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/cdn/abc123.pdf", http.StatusFound)
	})
	mux.HandleFunc("/cdn/abc123.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte(samplePDF))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	res, err := env.downloader.Download(context.Background(), Request{URL: server.URL + "/files/skripsi.pdf"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "skripsi.pdf", res.Filename)
	assert.Equal(t, server.URL+"/cdn/abc123.pdf", res.FinalURL)
}

func TestDownloadStaysInsideFolder(t *testing.T) {
	root := t.TempDir()
	env := newTestEnv(t, func(cfg *config.DownloadConfig) {
		cfg.Folder = filepath.Join(root, "downloads")
	})

	tests := []struct {
		name        string
		disposition string
		want        string
	}{
		{"parent traversal", `attachment; filename="../../evil.pdf"`, ".._.._evil.pdf"},
		{"dot dot", `attachment; filename=".."`, DefaultPDFName},
		{"backslashes", `attachment; filename="..\\..\\evil.pdf"`, ".._.._evil.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/pdf")
				w.Header().Set("Content-Disposition", tt.disposition)
				w.Write([]byte(samplePDF))
			})

			res, err := env.downloader.Download(context.Background(), Request{URL: server.URL + "/get"}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Filename)
			assert.Equal(t, env.dir, filepath.Dir(res.Path))
			assert.True(t, strings.HasPrefix(res.Path, env.dir+string(filepath.Separator)))
		})
	}

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "downloads", entries[0].Name())
}

func TestDownloadInspectsPDF(t *testing.T) {
	env := newTestEnv(t, func(cfg *config.DownloadConfig) {
		cfg.InspectPDF = true
	})
	page := model.Page{MediaBox: model.RectForFormat("A4"), Fm: model.FontMap{}, Buf: new(bytes.Buffer)}
	model.CreateTestPageContent(page)
	xRefTable, err := model.CreateDemoXRef(page)
	require.NoError(t, err)
	var doc bytes.Buffer
	require.NoError(t, api.WriteContext(model.CreateContext(xRefTable, nil), &doc))

	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(doc.Bytes())
	})

	res, err := env.downloader.Download(context.Background(), Request{URL: server.URL + "/demo.pdf"}, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSaved, res.Status)
	require.NotNil(t, res.PDF)
	assert.Equal(t, 1, res.PDF.Pages)

	entries, err := env.history.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Pages)
}

func TestStartRunsInBackground(t *testing.T) {
	env := newTestEnv(t, nil)
	server := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte(samplePDF))
	})

	job := env.downloader.Start(context.Background(), Request{URL: server.URL + "/bg.pdf"}, nil)

	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("download did not finish")
	}

	res, err := job.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StatusSaved, res.Status)
}
