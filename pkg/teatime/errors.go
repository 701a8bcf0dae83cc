package teatime

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ConfigurationError reports a caller bug: a malformed base URI or an invalid
// target composition. It is never retryable.
type ConfigurationError struct {
	Reason string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// InvalidTargetError reports a relative target that resolves to nothing, such
// as an empty path after leading-separator stripping.
type InvalidTargetError struct {
	Target string
}

// Error implements the error interface.
func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid request target %q", e.Target)
}

// TransportError wraps a network, TLS, or connection failure raised while
// executing a round trip. The cause is propagated verbatim; retry policy
// belongs to the caller or the transport, never to the core.
type TransportError struct {
	Op  string
	URL string
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %s %s: %v", e.Op, e.URL, e.Err)
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// ParseError reports input that does not conform to a wire grammar, currently
// only the Link pagination header. The offending text and the byte offset at
// which matching stopped are attached for diagnosability.
type ParseError struct {
	Input  string
	Offset int
	Reason string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s in %q", e.Offset, e.Reason, e.Input)
}

// AuthError reports a login that completed at the transport level but did not
// produce a usable token: the designated token field was absent, or the server
// rejected the credentials. Distinct from TransportError so callers can tell
// "wrong credentials" from "server unreachable".
type AuthError struct {
	Vendor string
	Status int
	Reason string
	Body   []byte
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Vendor == "" {
		return "auth error: " + e.Reason
	}

	return fmt.Sprintf("auth error (%s): %s", e.Vendor, e.Reason)
}

// DecodeError reports a response body that is present but not decodable as
// JSON, or not valid UTF-8. The raw bytes are attached because malformed
// bodies are often meaningful, e.g. an HTML error page.
type DecodeError struct {
	Body []byte
	Err  error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if !utf8.Valid(e.Body) {
		return "decode error: response body is not valid UTF-8"
	}

	return fmt.Sprintf("decode error: %v: %s", e.Err, truncateBody(e.Body))
}

// Unwrap returns the underlying cause.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-2xx HTTP status surfaced by a binding. The core
// request operation returns non-2xx responses as-is; bindings promote them to
// StatusError where their API contract calls for it.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
	Body       []byte
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %s for %s: %s", e.Status, e.URL, truncateBody(e.Body))
}

// PaginationError wraps a failure partway through an autopaginated fetch.
// PageIndex is the zero-based index of the page that failed; Pages holds the
// pages decoded before the fault for callers who opt in via errors.As.
type PaginationError struct {
	PageIndex int
	Pages     []any
	Err       error
}

// Error implements the error interface.
func (e *PaginationError) Error() string {
	return fmt.Sprintf("pagination failed on page %d: %v", e.PageIndex+1, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PaginationError) Unwrap() error {
	return e.Err
}

// Common static errors that can be wrapped with context.
var (
	ErrUnsupportedCredentials = errors.New("credentials variant not supported by this client")
	ErrRelativeBase           = errors.New("base URI must be absolute")
	ErrAbsoluteJoin           = errors.New("cannot join two absolute URLs")
	ErrNoNextPage             = errors.New("no next page")
	ErrCircuitBreakerOpen     = errors.New("circuit breaker is open")
	ErrClientClosed           = errors.New("client is closed")
)

// IsConfigurationError checks if the error is a caller-side configuration bug.
func IsConfigurationError(err error) bool {
	var confErr *ConfigurationError

	return errors.As(err, &confErr) || errors.Is(err, ErrRelativeBase) || errors.Is(err, ErrAbsoluteJoin)
}

// IsAuthError checks if the error came from a failed login.
func IsAuthError(err error) bool {
	var authErr *AuthError

	return errors.As(err, &authErr)
}

// IsDecodeError checks if the error came from an undecodable response body.
func IsDecodeError(err error) bool {
	var decErr *DecodeError

	return errors.As(err, &decErr)
}

// IsTransportError checks if the error came from the network layer.
func IsTransportError(err error) bool {
	var trErr *TransportError

	return errors.As(err, &trErr)
}

// IsNotFound checks if the error is a 404 status error.
func IsNotFound(err error) bool {
	return IsStatus(err, 404)
}

// IsUnauthorized checks if the error is a 401 status error.
func IsUnauthorized(err error) bool {
	return IsStatus(err, 401)
}

// IsForbidden checks if the error is a 403 status error.
func IsForbidden(err error) bool {
	return IsStatus(err, 403)
}

// IsStatus checks if the error is a StatusError with the given status code.
func IsStatus(err error, code int) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == code
	}

	return false
}

const maxBodyInError = 512

func truncateBody(body []byte) string {
	if len(body) > maxBodyInError {
		return string(body[:maxBodyInError]) + "..."
	}

	return string(body)
}
