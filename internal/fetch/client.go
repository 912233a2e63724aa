// Package fetch performs the plain HTTP GETs used for page scraping and
// direct file downloads.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// DefaultUserAgent is sent when the caller does not configure one.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const maxPageBytes = 8 << 20

var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	DialContext: (&net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	TLSHandshakeTimeout:   10 * time.Second,
	ResponseHeaderTimeout: 15 * time.Second,
	IdleConnTimeout:       90 * time.Second,
}

// CloseIdleConnections drops pooled connections of the shared transport.
func CloseIdleConnections() {
	sharedTransport.CloseIdleConnections()
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// Options configures a Client.
type Options struct {
	UserAgent string
	// Timeout bounds whole page fetches. Streams are bounded by ctx only.
	Timeout time.Duration
	Retry   RetryConfig
	// Transport replaces the shared transport, e.g. in tests.
	Transport http.RoundTripper
}

// Client fetches pages and streams files.
type Client struct {
	http    *http.Client
	timeout time.Duration
}

// New builds a client with browser-like default headers and retries.
func New(opts Options) *Client {
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	base := opts.Transport
	if base == nil {
		base = sharedTransport
	}
	retry := opts.Retry
	if retry == (RetryConfig{}) {
		retry = DefaultRetryConfig
	}

	var transport http.RoundTripper = &consistentTransport{base: base, userAgent: ua}
	transport = newRetryTransport(transport, retry)

	jar, _ := cookiejar.New(nil)
	return &Client{
		http:    &http.Client{Transport: transport, Jar: jar},
		timeout: opts.Timeout,
	}
}

// HTTP exposes the underlying client for libraries that take one.
func (c *Client) HTTP() *http.Client {
	return c.http
}

// Page returns the body of rawURL as a string.
func (c *Client) Page(ctx context.Context, rawURL string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	body, _, err := c.Stream(ctx, rawURL)
	if err != nil {
		return "", err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rawURL, err)
	}
	return string(data), nil
}

// Stream opens rawURL for reading. The caller closes the body. The size
// is -1 when the server does not send a length.
func (c *Client) Stream(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, 0, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	return resp.Body, resp.ContentLength, nil
}

type consistentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *consistentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if req.Header.Get("Accept-Language") == "" {
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "*/*")
	}
	return t.base.RoundTrip(req)
}
