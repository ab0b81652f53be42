// Package fetch retrieves playlist and segment payloads over HTTP or from local files.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/agleyzer/hlshealth/internal/metrics"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-retryablehttp"
)

// Options configures a Client.
type Options struct {
	// Timeout bounds each individual attempt.
	Timeout   time.Duration
	Policy    Policy
	UserAgent string
	// Logger receives retryablehttp attempt logs; nil discards them.
	Logger  hclog.Logger
	Metrics *metrics.Metrics
}

// Client fetches whole payloads. HTTP(S) requests are retried according to
// the configured Policy; file paths and file:// URLs are read from disk.
type Client struct {
	http      *retryablehttp.Client
	userAgent string
	metrics   *metrics.Metrics
}

// New creates a new Client. Call Close when done to release idle connections.
func New(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = newNoOpLogger()
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Timeout: opts.Timeout}
	rc.RetryMax = opts.Policy.MaxRetries
	rc.RetryWaitMin = opts.Policy.BackoffMin
	rc.RetryWaitMax = opts.Policy.BackoffMax
	rc.CheckRetry = opts.Policy.checkRetry
	rc.Backoff = retryablehttp.DefaultBackoff
	// Hand the last response back so the status code can be reported.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = logger
	rc.RequestLogHook = func(_ retryablehttp.Logger, _ *http.Request, attempt int) {
		if attempt > 0 {
			opts.Metrics.ObserveRetry()
		}
	}

	return &Client{
		http:      rc,
		userAgent: opts.UserAgent,
		metrics:   opts.Metrics,
	}
}

// Fetch returns the full payload at location.
func (c *Client) Fetch(ctx context.Context, location string) ([]byte, error) {
	start := time.Now()
	data, err := c.fetch(ctx, location)
	c.metrics.ObserveFetch(err == nil, len(data), time.Since(start))
	return data, err
}

func (c *Client) fetch(ctx context.Context, location string) ([]byte, error) {
	if !IsURL(location) {
		return readFile(location, location)
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, &FetchError{URL: location, Err: err}
	}

	switch u.Scheme {
	case "http", "https":
		return c.fetchHTTP(ctx, location)
	case "file":
		return readFile(location, u.Path)
	default:
		return nil, &FetchError{URL: location, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}
}

func readFile(location, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FetchError{URL: location, Err: err}
	}
	return data, nil
}

// IsURL reports whether location starts with a URL scheme such as "https:".
// Anything else, including Windows drive paths, is a filesystem path and is
// never URL-decoded.
func IsURL(location string) bool {
	i := strings.IndexByte(location, ':')
	if i < 2 {
		return false
	}
	for j, r := range location[:i] {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		case j > 0 && ('0' <= r && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return true
}

func (c *Client) fetchHTTP(ctx context.Context, location string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, &FetchError{URL: location, Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return nil, &FetchError{URL: location, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			URL:        location,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("HTTP %d", resp.StatusCode),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: location, Err: fmt.Errorf("read body: %w", err)}
	}
	return data, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.http.HTTPClient.CloseIdleConnections()
}
