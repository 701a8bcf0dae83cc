package teatime

import (
	"context"
	"net/http"
	"net/url"
)

// Transport performs exactly one HTTP round trip per call. The call blocks
// until a response or error is available, or until the transport's own
// deadline or the context elapses. Anything beyond one round trip, such as
// retries, connection pooling, or TLS setup, is the transport's concern; the
// core never retries on its own.
//
// A Transport instance is exclusively owned by one client. Close releases its
// resources, typically idle connections.
type Transport interface {
	RoundTrip(ctx context.Context, method string, uri *url.URL, headers http.Header, body []byte) (*Response, error)
	Close()
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NoopLogger discards all log output. It is the default when no logger is
// configured.
type NoopLogger struct{}

// Debug implements Logger.
func (NoopLogger) Debug(msg string, fields map[string]interface{}) {}

// Info implements Logger.
func (NoopLogger) Info(msg string, fields map[string]interface{}) {}

// Warn implements Logger.
func (NoopLogger) Warn(msg string, fields map[string]interface{}) {}

// Error implements Logger.
func (NoopLogger) Error(msg string, fields map[string]interface{}) {}
