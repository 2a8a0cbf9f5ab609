// Package client talks to the quote site: it loads the filter page and
// submits filter requests, keeping the session cookies the site's CSRF
// protection depends on.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"

	"github.com/jask/quotefilter/internal/filter"
)

const (
	// CSRFHeader carries the token read from the page's csrf meta tag.
	CSRFHeader = "X-CSRF-Token"
	// RequestIDHeader tags each filter request for server-side correlation.
	RequestIDHeader = "X-Request-ID"

	maxErrorBody = 512
)

// Options configures a Client. Paths are resolved against BaseURL.
type Options struct {
	BaseURL    string
	PagePath   string
	FilterPath string
	PingPath   string
	Timeout    time.Duration
	Logger     *slog.Logger
	// Transport overrides the HTTP transport, for tests.
	Transport http.RoundTripper
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method string
	URL    string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.Code)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

type Client struct {
	http       *http.Client
	pageURL    string
	filterURL  string
	pingURL    string
	logger     *slog.Logger
	newRequest func() string
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("client: base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("client: base url %q is not absolute", opts.BaseURL)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("client: cookie jar: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	resolve := func(p, fallback string) string {
		if p == "" {
			p = fallback
		}
		return base.ResolveReference(&url.URL{Path: p}).String()
	}
	return &Client{
		http: &http.Client{
			Jar:       jar,
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		pageURL:    resolve(opts.PagePath, "/"),
		filterURL:  resolve(opts.FilterPath, "/filtered-quotes"),
		pingURL:    resolve(opts.PingPath, "/ping"),
		logger:     logger,
		newRequest: func() string { return uuid.NewString() },
	}, nil
}

// PageURL is the address FetchPage loads.
func (c *Client) PageURL() string { return c.pageURL }

// FetchPage loads the server-rendered filter page. Cookies set by the
// response are kept for later filter requests.
func (c *Client) FetchPage(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("client: build page request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	return c.do(req)
}

// FilterQuotes submits payload and returns the server's markup fragment
// exactly as received.
func (c *Client) FilterQuotes(ctx context.Context, payload filter.Payload, token string) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("client: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.filterURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("client: build filter request: %w", err)
	}
	reqID := c.newRequest()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(CSRFHeader, token)
	req.Header.Set(RequestIDHeader, reqID)

	start := time.Now()
	out, err := c.do(req)
	if err != nil {
		c.logger.Warn("filter request failed", "request_id", reqID, "err", err)
		return "", err
	}
	c.logger.Info("filter request done", "request_id", reqID, "groups", len(payload), "bytes", len(out), "duration", time.Since(start))
	return string(out), nil
}

// Ping checks the site's liveness route, which answers "OK".
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pingURL, nil)
	if err != nil {
		return fmt.Errorf("client: build ping request: %w", err)
	}
	body, err := c.do(req)
	if err != nil {
		return err
	}
	if got := strings.TrimSpace(string(body)); got != "OK" {
		return fmt.Errorf("client: ping: unexpected body %q", got)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("client: %s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("client: read %s %s: %w", req.Method, req.URL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{Method: req.Method, URL: req.URL.String(), Code: resp.StatusCode, Body: snippet}
	}
	return body, nil
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}
