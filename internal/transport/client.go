// Package transport provides the default Transport implementation used by
// the vendor bindings. It wraps retryablehttp with retries disabled, so one
// RoundTrip call performs exactly one round trip unless a caller opts into a
// retry budget via WithRetryConfig.
package transport

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/teatime-io/teatime/internal/constants"
	"github.com/teatime-io/teatime/pkg/teatime"
)

// Client executes HTTP round trips for the framework core. It satisfies
// teatime.Transport and is exclusively owned by one framework client.
type Client struct {
	http   *retryablehttp.Client
	logger teatime.Logger
	debug  bool
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-round-trip deadline. A hung server fails the call
// after this long even when the caller's context has no deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.http.HTTPClient.Timeout = timeout
	}
}

// WithRetryConfig opts into retrying transient failures: connection errors,
// 429, and 5xx except 501. Plain 4xx responses are never retried. The
// framework core treats each RoundTrip as atomic either way.
func WithRetryConfig(retryMax int, waitMin, waitMax time.Duration) Option {
	return func(c *Client) {
		c.http.RetryMax = retryMax
		c.http.RetryWaitMin = waitMin
		c.http.RetryWaitMax = waitMax
	}
}

// WithLogger routes transport debug output to a structured logger.
func WithLogger(logger teatime.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithDebug enables per-attempt request logging.
func WithDebug(debug bool) Option {
	return func(c *Client) {
		c.debug = debug
	}
}

// WithTLSConfig sets the TLS configuration for the underlying connections.
// Callers are responsible for gating insecure configurations to development
// environments.
func WithTLSConfig(tlsConfig *tls.Config) Option {
	return func(c *Client) {
		if base, ok := c.http.HTTPClient.Transport.(*http.Transport); ok {
			base.TLSClientConfig = tlsConfig
		}
	}
}

// New creates a transport with retries disabled and the default timeout.
func New(opts ...Option) *Client {
	inner := retryablehttp.NewClient()
	inner.RetryMax = constants.DefaultRetryMax
	inner.RetryWaitMin = constants.DefaultRetryWaitMin
	inner.RetryWaitMax = constants.DefaultRetryWaitMax
	inner.CheckRetry = retryPolicy
	inner.ErrorHandler = lastResponseHandler
	inner.Logger = nil

	inner.HTTPClient = &http.Client{
		Timeout: constants.DefaultHTTPTimeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			IdleConnTimeout:     constants.IdleConnTimeout,
			MaxIdleConnsPerHost: 10,
		},
	}

	client := &Client{
		http:   inner,
		logger: teatime.NoopLogger{},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// RoundTrip performs one HTTP round trip and reads the full response body.
// Non-2xx statuses are returned as responses, not errors; error returns mean
// the round trip itself failed.
func (c *Client) RoundTrip(ctx context.Context, method string, uri *url.URL, headers http.Header, body []byte) (*teatime.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, uri.String(), body)
	if err != nil {
		return nil, err
	}

	if headers != nil {
		req.Header = headers.Clone()
	}

	if c.debug {
		c.logger.Debug("HTTP round trip", map[string]interface{}{
			"method":    method,
			"url":       uri.String(),
			"body_size": len(body),
		})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	finalURL := uri.String()
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return &teatime.Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		URL:        finalURL,
		Headers:    resp.Header,
		Body:       data,
	}, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.HTTPClient.CloseIdleConnections()
}

// lastResponseHandler runs when the retry budget is exhausted. A response in
// hand is handed back as a normal response, keeping the "statuses are data,
// not errors" contract; only a round trip that never produced one fails.
func lastResponseHandler(resp *http.Response, err error, _ int) (*http.Response, error) {
	if resp != nil {
		return resp, nil
	}

	return nil, err
}

// retryPolicy decides whether an attempt should be retried when a retry
// budget is configured. Context cancellation always wins.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		return true, nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return true, nil
	}

	if resp.StatusCode >= http.StatusInternalServerError && resp.StatusCode != http.StatusNotImplemented {
		return true, nil
	}

	return false, nil
}
