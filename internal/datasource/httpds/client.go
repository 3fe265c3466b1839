// Package httpds fetches test-record text over HTTP. A Client wraps
// net/http with optional TLS verification skipping; Remote adapts one URL
// into a datasource.
//
// Every fetch is a single blocking GET. A failed fetch is not retried; a
// fresh ingestion is the retry. A non-2xx status is reported by Remote as a
// *StatusError.
package httpds

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"
)

// DefaultTimeout applies when Config.Timeout is not positive.
const DefaultTimeout = 30 * time.Second

// Config configures the HTTP client.
type Config struct {
	// Timeout is the per-request timeout applied at the http.Client level.
	Timeout time.Duration

	// InsecureSkipVerify disables TLS certificate verification.
	InsecureSkipVerify bool

	// Header is added to every request.
	Header http.Header

	// Transport is an optional custom RoundTripper. When nil, a default
	// *http.Transport is built from the TLS setting.
	Transport http.RoundTripper
}

// Client issues single GET requests.
type Client struct {
	httpClient *http.Client
	header     http.Header
}

// NewClient constructs a Client from Config, applying defaults for zero values.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // explicitly configurable
			},
		}
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		header: cfg.Header.Clone(),
	}
}

// Get issues one GET for url. The returned response has a non-nil Body which
// the caller must close. Every status, including 4xx and 5xx, is returned as
// a response without error.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	if url == "" {
		return nil, fmt.Errorf("httpds: url must not be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpds: build request: %w", err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpds: GET %s: %w", url, err)
	}
	return resp, nil
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpds: GET %s: status %d %s", e.URL, e.Code, http.StatusText(e.Code))
}
