package fetch

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebookdl/pkg/auth"
	"ebookdl/pkg/config"
	"ebookdl/pkg/errors"
	"ebookdl/pkg/logger"
)

// mockRoundTripper allows us to intercept HTTP requests
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func newTestClient(t *testing.T, log logger.Logger) *Client {
	t.Helper()
	cfg := config.DefaultConfig().Download
	cfg.Timeout = 5 * time.Second
	return NewClient(&cfg, log)
}

func TestNewClientHeaders(t *testing.T) {
	client := newTestClient(t, logger.NewTestLogger())

	assert.Contains(t, client.headers["User-Agent"], "Chrome/120")
	assert.Equal(t, "id-ID,id;q=0.9,en-US;q=0.8,en;q=0.7", client.headers["Accept-Language"])
	assert.Zero(t, client.httpClient.Timeout)
	assert.Equal(t, 5*time.Second, client.timeout)
	transport, ok := client.httpClient.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, transport.ResponseHeaderTimeout)
	assert.Equal(t, 5*time.Second, transport.TLSHandshakeTimeout)

	client.SetHeader("X-Custom", "1")
	client.SetHeaders(map[string]string{"X-A": "a", "X-B": "b"})
	assert.Equal(t, "1", client.headers["X-Custom"])
	assert.Equal(t, "b", client.headers["X-B"])
}

func TestGetSendsBrowserHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla/5.0")
		assert.Contains(t, r.Header.Get("Accept"), "text/html")
		assert.Equal(t, "id-ID,id;q=0.9,en-US;q=0.8,en;q=0.7", r.Header.Get("Accept-Language"))
		assert.Empty(t, r.Header.Get("Cookie"))
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client := newTestClient(t, logger.NewTestLogger())
	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
}

func TestGetAttachesStoredCookie(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "PHPSESSID=abc", r.Header.Get("Cookie"))
		assert.Equal(t, "SessionAgent/1.0", r.Header.Get("User-Agent"))
	}))
	defer server.Close()

	manager, _ := auth.NewMockManager()
	require.NoError(t, manager.Store(&auth.SiteCredential{
		Host:      "127.0.0.1",
		Cookie:    "PHPSESSID=abc",
		UserAgent: "SessionAgent/1.0",
	}))

	log := logger.NewTestLogger()
	client := newTestClient(t, log)
	client.SetCredentials(manager)

	resp, err := client.Get(context.Background(), server.URL+"/file.pdf")
	require.NoError(t, err)
	resp.Body.Close()
	assert.True(t, log.HasMessage("attached stored session"))
}

func TestGetFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/download/1", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/files/paper.pdf", http.StatusFound)
	})
	mux.HandleFunc("/files/paper.pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("%PDF-1.4"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient(t, logger.NewTestLogger())
	resp, err := client.Get(context.Background(), server.URL+"/download/1")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "/files/paper.pdf", resp.Request.URL.Path)
}

func TestCheckResponseStatus(t *testing.T) {
	client := newTestClient(t, logger.NewTestLogger())

	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
		wantLogin  bool
	}{
		{"200 OK", http.StatusOK, false, false},
		{"206 Partial Content", http.StatusPartialContent, false, false},
		{"302 Found", http.StatusFound, false, false},
		{"400 Bad Request", http.StatusBadRequest, true, false},
		{"401 Unauthorized", http.StatusUnauthorized, true, true},
		{"403 Forbidden", http.StatusForbidden, true, true},
		{"404 Not Found", http.StatusNotFound, true, false},
		{"500 Internal Server Error", http.StatusInternalServerError, true, false},
		{"503 Service Unavailable", http.StatusServiceUnavailable, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodGet, "http://example.com/a.pdf", nil)
			resp := &http.Response{StatusCode: tt.statusCode, Request: req}

			err := client.checkResponseStatus(resp)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var typed *errors.Error
			require.ErrorAs(t, err, &typed)
			assert.Equal(t, errors.ErrorTypeHTTP, typed.Type)
			assert.Equal(t, tt.statusCode, typed.Code)
			assert.Equal(t, tt.wantLogin, strings.Contains(typed.Message, "require login"))
		})
	}
}

func TestGetHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := newTestClient(t, logger.NewTestLogger())
	resp, err := client.Get(context.Background(), server.URL+"/missing.pdf")
	assert.Nil(t, resp)
	assert.Equal(t, errors.ErrorTypeHTTP, errors.TypeOf(err))
	assert.Equal(t, 404, errors.StatusCode(err))
	assert.Contains(t, err.Error(), "404 Not Found")
}

func TestGetTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	cfg := config.DefaultConfig().Download
	cfg.Timeout = 50 * time.Millisecond
	client := NewClient(&cfg, logger.NewTestLogger())

	_, err := client.Get(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeTimeout, errors.TypeOf(err))
}

func TestGetBodyOutlivesTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 5; i++ {
			w.Write([]byte("chunk"))
			flusher.Flush()
			time.Sleep(40 * time.Millisecond)
		}
	}))
	defer server.Close()

	cfg := config.DefaultConfig().Download
	cfg.Timeout = 100 * time.Millisecond
	client := NewClient(&cfg, logger.NewTestLogger())

	resp, err := client.Get(context.Background(), server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("chunk", 5), string(body))
}

func TestGetNetworkError(t *testing.T) {
	client := newTestClient(t, logger.NewTestLogger())
	client.httpClient.Transport = &mockRoundTripper{handler: func(*http.Request) (*http.Response, error) {
		return nil, stderrors.New("connection refused")
	}}

	_, err := client.Get(context.Background(), "http://repository.upi.edu/1/a.pdf")
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeNetwork, errors.TypeOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGetInvalidURL(t *testing.T) {
	client := newTestClient(t, logger.NewTestLogger())
	_, err := client.Get(context.Background(), "://invalid-url")
	assert.Equal(t, errors.ErrorTypeInvalidURL, errors.TypeOf(err))
}

func TestFetchPageIsBounded(t *testing.T) {
	client := newTestClient(t, logger.NewTestLogger())
	client.httpClient.Transport = &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
		header := make(http.Header)
		header.Set("Content-Type", "text/HTML; charset=utf-8")
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     header,
			Body:       io.NopCloser(bytes.NewBufferString(strings.Repeat("x", 1000))),
			Request:    req,
		}, nil
	}}

	page, err := client.FetchPage(context.Background(), "https://eprints.uny.ac.id/1/", 100)
	require.NoError(t, err)
	assert.Len(t, page.Body, 100)
	assert.Equal(t, "text/html; charset=utf-8", page.ContentType)
	assert.Equal(t, "eprints.uny.ac.id", page.URL.Host)
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil, "x"))
	assert.Equal(t, errors.ErrorTypeTimeout, errors.TypeOf(Classify(context.DeadlineExceeded, "read")))
	assert.Equal(t, errors.ErrorTypeNetwork, errors.TypeOf(Classify(io.ErrUnexpectedEOF, "read")))

	typed := errors.New(errors.ErrorTypeFilesystem, "disk full")
	assert.Same(t, typed, Classify(typed, "read"))
}
