package fetch

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ebookdl/pkg/auth"
	"ebookdl/pkg/config"
	"ebookdl/pkg/errors"
	"ebookdl/pkg/logger"
)

// CredentialLookup finds the stored session for a URL. *auth.Manager satisfies it.
type CredentialLookup interface {
	ForURL(rawURL string) (*auth.SiteCredential, error)
}

// Client performs GET requests the way a desktop browser would
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	headers    map[string]string
	creds      CredentialLookup
	logger     logger.Logger
}

// NewClient creates a client with the headers and timeout from cfg.
// The timeout bounds connecting and waiting for response headers; it does
// not limit how long a body may take to arrive.
func NewClient(cfg *config.DownloadConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	return &Client{
		httpClient: &http.Client{
			Transport: newTransport(cfg.Timeout),
		},
		timeout: cfg.Timeout,
		headers: map[string]string{
			"User-Agent":      cfg.UserAgent,
			"Accept":          cfg.Accept,
			"Accept-Language": cfg.AcceptLanguage,
		},
		logger: log,
	}
}

func newTransport(timeout time.Duration) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if timeout > 0 {
		transport.DialContext = (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext
		transport.TLSHandshakeTimeout = timeout
		transport.ResponseHeaderTimeout = timeout
	}
	return transport
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHeaders sets multiple headers at once
func (c *Client) SetHeaders(headers map[string]string) {
	for key, value := range headers {
		c.headers[key] = value
	}
}

// SetCredentials attaches stored site cookies to matching requests
func (c *Client) SetCredentials(creds CredentialLookup) {
	c.creds = creds
}

// Get issues a GET for rawURL. Any status >= 400 is returned as an
// errors.ErrorTypeHTTP error with the body already closed.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeInvalidURL, "failed to create request", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return nil, err
	}

	if err := c.checkResponseStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// Page is a bounded, fully read response body
type Page struct {
	URL         *url.URL
	ContentType string
	Body        []byte
}

// FetchPage GETs rawURL and reads at most maxBytes of the body. The whole
// exchange is bounded by the client timeout.
func (c *Client) FetchPage(ctx context.Context, rawURL string, maxBytes int64) (*Page, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, Classify(err, "failed to read response body")
	}

	return &Page{
		URL:         resp.Request.URL,
		ContentType: strings.ToLower(resp.Header.Get("Content-Type")),
		Body:        body,
	}, nil
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		if value != "" {
			req.Header.Set(key, value)
		}
	}
	c.applyCredentials(req)

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, Classify(err, "request failed")
	}

	logger.LogRequest(c.logger, req.Method, req.URL.String(), resp.StatusCode, float64(duration.Microseconds())/1000)
	if final := resp.Request.URL.String(); final != req.URL.String() {
		c.logger.DebugWithFields("followed redirect", map[string]interface{}{
			"from": req.URL.String(),
			"to":   final,
		})
	}

	return resp, nil
}

// applyCredentials adds the stored cookie (and user agent) for the request host
func (c *Client) applyCredentials(req *http.Request) {
	if c.creds == nil {
		return
	}
	cred, err := c.creds.ForURL(req.URL.String())
	if err != nil || cred == nil {
		return
	}

	req.Header.Set("Cookie", cred.Cookie)
	if cred.UserAgent != "" {
		req.Header.Set("User-Agent", cred.UserAgent)
	}
	c.logger.DebugWithFields("attached stored session", map[string]interface{}{
		"host": cred.Host,
	})
}

// checkResponseStatus maps status codes >= 400 to typed errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
	}
	message := fmt.Sprintf("server returned %s", resp.Status)
	if resp.Status == "" {
		message = fmt.Sprintf("server returned %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.WarnWithFields("file may require login", fields)
		message += " (file may require login; store a session with 'ebookdl auth set')"
	case http.StatusNotFound:
		c.logger.WarnWithFields("file not found", fields)
	default:
		c.logger.ErrorWithFields("unexpected HTTP status", fields)
	}

	return &errors.Error{
		Type:    errors.ErrorTypeHTTP,
		Message: message,
		Code:    resp.StatusCode,
	}
}

// Classify turns a transport error into a timeout or network error
func Classify(err error, message string) error {
	if err == nil {
		return nil
	}
	var typed *errors.Error
	if stderrors.As(err, &typed) {
		return err
	}
	if IsTimeout(err) {
		return errors.Wrap(errors.ErrorTypeTimeout, message, err)
	}
	return errors.Wrap(errors.ErrorTypeNetwork, message, err)
}

// IsTimeout reports whether err is a deadline or timeout failure
func IsTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}
