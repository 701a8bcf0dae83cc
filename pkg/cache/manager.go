package cache

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/teatime-io/teatime/internal/constants"
	"github.com/teatime-io/teatime/pkg/teatime"
)

// Manager builds cache keys and moves whole API responses in and out of a
// backend.
type Manager struct {
	cache Cache
	ttl   time.Duration
}

// NewManager creates a manager over a backend. A zero ttl uses the default
// response lifetime.
func NewManager(cache Cache, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = constants.DefaultCacheTTL
	}

	return &Manager{cache: cache, ttl: ttl}
}

// Key derives the cache key for a request: method and URL, plus any extra
// discriminators in sorted order so equal inputs produce equal keys.
func (m *Manager) Key(method, url string, params map[string]string) string {
	if len(params) == 0 {
		return method + ":" + url
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}

	sort.Strings(names)

	var b strings.Builder

	b.WriteString(method)
	b.WriteString(":")
	b.WriteString(url)

	for _, name := range names {
		b.WriteString(":")
		b.WriteString(name)
		b.WriteString("=")
		b.WriteString(params[name])
	}

	return b.String()
}

// responseEnvelope is the serialized form of a cached response.
type responseEnvelope struct {
	StatusCode int         `json:"status_code"`
	Status     string      `json:"status"`
	URL        string      `json:"url"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
}

// GetResponse retrieves a cached response. A miss of any kind, including an
// undecodable entry, reports ok=false rather than an error; the caller falls
// through to the network.
func (m *Manager) GetResponse(ctx context.Context, key string) (*teatime.Response, bool) {
	entry, err := m.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}

	var envelope responseEnvelope

	err = json.Unmarshal(entry.Data, &envelope)
	if err != nil {
		_ = m.cache.Delete(ctx, key)

		return nil, false
	}

	return &teatime.Response{
		StatusCode: envelope.StatusCode,
		Status:     envelope.Status,
		URL:        envelope.URL,
		Headers:    envelope.Headers,
		Body:       envelope.Body,
	}, true
}

// PutResponse stores a response under the manager's lifetime. Oversized
// bodies are skipped silently; caching is an optimization, never a
// correctness requirement.
func (m *Manager) PutResponse(ctx context.Context, key string, resp *teatime.Response) error {
	if len(resp.Body) > constants.MaxCacheValueSize {
		return nil
	}

	data, err := json.Marshal(responseEnvelope{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		URL:        resp.URL,
		Headers:    resp.Headers,
		Body:       resp.Body,
	})
	if err != nil {
		return err
	}

	return m.cache.Set(ctx, key, &Entry{
		Data:      data,
		ExpiresAt: time.Now().Add(m.ttl),
		ETag:      resp.Headers.Get("ETag"),
	})
}

// Invalidate drops one cached response.
func (m *Manager) Invalidate(ctx context.Context, key string) error {
	return m.cache.Delete(ctx, key)
}

// Reset drops every cached response.
func (m *Manager) Reset(ctx context.Context) error {
	return m.cache.Clear(ctx)
}
