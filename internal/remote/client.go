package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// maxErrorBody caps how much of an error response is kept in StatusError.
const maxErrorBody = 512

// Client implements Service over HTTP with retries on transient failures.
type Client struct {
	baseURL string
	http    *retryablehttp.Client
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	timeout   time.Duration
	retries   int
	waitMin   time.Duration
	waitMax   time.Duration
	logger    *slog.Logger
	userAgent string
}

// WithTimeout sets the per-attempt timeout. Default 10s.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.timeout = d }
}

// WithRetries sets how many times a transient failure is retried. Default 2.
func WithRetries(n int) ClientOption {
	return func(c *clientConfig) { c.retries = n }
}

// WithRetryWait sets the backoff bounds between retries.
func WithRetryWait(waitMin, waitMax time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.waitMin = waitMin
		c.waitMax = waitMax
	}
}

// WithClientLogger sets the logger for request diagnostics.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *clientConfig) { c.logger = l }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *clientConfig) { c.userAgent = ua }
}

// NewClient creates a Client rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	cfg := clientConfig{
		timeout:   10 * time.Second,
		retries:   2,
		waitMin:   200 * time.Millisecond,
		waitMax:   2 * time.Second,
		logger:    slog.Default(),
		userAgent: "fluxstate",
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	base := cleanhttp.DefaultPooledClient()
	base.Timeout = cfg.timeout
	base.Transport = &userAgentRoundTripper{userAgent: cfg.userAgent, inner: base.Transport}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = base
	rc.RetryMax = cfg.retries
	rc.RetryWaitMin = cfg.waitMin
	rc.RetryWaitMax = cfg.waitMax
	rc.Logger = cfg.logger
	rc.RequestLogHook = requestLogHook
	// Hand the final response back so non-2xx maps to StatusError.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    rc,
		logger:  cfg.logger,
	}
}

// Get fetches path.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post sends body to path.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// Put replaces the resource id under path with body.
func (c *Client) Put(ctx context.Context, path, id string, body any) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPut, path+"/"+url.PathEscape(id), body)
}

func (c *Client) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s %s: encode body: %w", method, path, err)
		}
		payload = b
	}

	var reqBody any
	if payload != nil {
		reqBody = payload
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read body: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := bytes.TrimSpace(data)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   string(snippet),
		}
	}

	c.logger.Debug("request complete", "method", method, "path", path, "status", resp.StatusCode)

	if len(bytes.TrimSpace(data)) == 0 {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(data), nil
}

func requestLogHook(logger retryablehttp.Logger, req *http.Request, attempt int) {
	if attempt > 0 && logger != nil {
		logger.Printf("[INFO] retrying request to %s (attempt %d)", req.URL.Redacted(), attempt+1)
	}
}

type userAgentRoundTripper struct {
	userAgent string
	inner     http.RoundTripper
}

func (rt *userAgentRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if _, ok := req.Header["User-Agent"]; !ok {
		req.Header.Set("User-Agent", rt.userAgent)
	}
	return rt.inner.RoundTrip(req)
}
