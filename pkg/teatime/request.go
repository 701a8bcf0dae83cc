package teatime

import (
	"net/http"
)

// Request describes one API call before target resolution. Params serialize
// to a JSON object body; Body, when set, is sent verbatim and wins over
// Params. Metadata is scratch space for interceptors and is never sent.
type Request struct {
	Method   string
	Target   Target
	Params   Params
	Headers  http.Header
	Body     []byte
	Metadata map[string]any
}

// NewRequest builds a request for a method and target.
func NewRequest(method string, target Target) *Request {
	return &Request{
		Method:  method,
		Target:  target,
		Headers: make(http.Header),
	}
}

// WithParams attaches JSON parameters and returns the request for chaining.
func (r *Request) WithParams(params Params) *Request {
	r.Params = params

	return r
}

// WithHeader sets one header and returns the request for chaining.
func (r *Request) WithHeader(name, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(http.Header)
	}

	r.Headers.Set(name, value)

	return r
}

// SetMetadata stores an interceptor-visible value on the request.
func (r *Request) SetMetadata(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}

	r.Metadata[key] = value
}

// GetMetadata reads an interceptor-visible value from the request.
func (r *Request) GetMetadata(key string) (any, bool) {
	value, ok := r.Metadata[key]

	return value, ok
}

// body returns the wire body: an explicit Body verbatim, otherwise the
// encoded Params, otherwise nil.
func (r *Request) body() ([]byte, error) {
	if r.Body != nil {
		return r.Body, nil
	}

	return r.Params.Encode()
}

// Response is one HTTP response as seen by the framework: status, headers,
// and the fully-read body. URL is the resolved absolute URL the request was
// dispatched to.
type Response struct {
	StatusCode int
	Status     string
	URL        string
	Headers    http.Header
	Body       []byte
}

// IsSuccess reports whether the status code is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Links parses the pagination relations from the response. A missing Link
// header reports ok=false with no error; a malformed one is a ParseError.
func (r *Response) Links() (Links, bool, error) {
	return LinksFromHeader(r.Headers)
}

// JSON unmarshals the response body into v. An empty body leaves v untouched.
// A body that is not valid JSON is a DecodeError carrying the raw bytes.
func (r *Response) JSON(v any) error {
	if len(r.Body) == 0 {
		return nil
	}

	return decodeJSON(r.Body, v)
}

// Err returns nil for 2xx responses and a StatusError otherwise. The core
// request operation never calls this; bindings promote statuses to errors
// where their API contract demands it.
func (r *Response) Err() error {
	if r.IsSuccess() {
		return nil
	}

	return &StatusError{
		StatusCode: r.StatusCode,
		Status:     r.Status,
		URL:        r.URL,
		Body:       r.Body,
	}
}
