package cache

import (
	"context"
	"net/http"
	"net/url"

	"github.com/teatime-io/teatime/pkg/teatime"
)

// Transport decorates another transport with response caching. Successful
// GET responses are stored and replayed until they expire; every other
// method passes through and invalidates the cached entry for its URL.
type Transport struct {
	next    teatime.Transport
	manager *Manager
}

var _ teatime.Transport = (*Transport)(nil)

// NewTransport wraps next with caching backed by manager.
func NewTransport(next teatime.Transport, manager *Manager) *Transport {
	return &Transport{next: next, manager: manager}
}

// RoundTrip serves cacheable requests from the manager when possible.
func (t *Transport) RoundTrip(ctx context.Context, method string, uri *url.URL, headers http.Header, body []byte) (*teatime.Response, error) {
	if method != http.MethodGet {
		// Writes race the cache; drop what we hold for this URL.
		_ = t.manager.Invalidate(ctx, t.manager.Key(http.MethodGet, uri.String(), nil))

		return t.next.RoundTrip(ctx, method, uri, headers, body)
	}

	key := t.manager.Key(method, uri.String(), nil)

	if resp, ok := t.manager.GetResponse(ctx, key); ok {
		return resp, nil
	}

	resp, err := t.next.RoundTrip(ctx, method, uri, headers, body)
	if err == nil && resp.IsSuccess() {
		_ = t.manager.PutResponse(ctx, key, resp)
	}

	return resp, err
}

// Close releases the wrapped transport.
func (t *Transport) Close() {
	t.next.Close()
}
