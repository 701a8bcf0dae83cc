package cache_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teatime-io/teatime/pkg/cache"
	"github.com/teatime-io/teatime/pkg/teatime"
)

func TestFactory_MemoryCache(t *testing.T) {
	config := &cache.Config{
		Type: cache.TypeMemory,
		Memory: &cache.MemoryConfig{
			MaxSize:         100,
			CleanupInterval: "1m",
		},
	}

	backend, err := cache.NewFromConfig(config)
	require.NoError(t, err)
	require.NotNil(t, backend)

	// Test basic operations
	ctx := context.Background()
	entry := &cache.Entry{
		Data:      []byte("test data"),
		ExpiresAt: time.Now().Add(1 * time.Hour),
		ETag:      "test-etag",
	}

	err = backend.Set(ctx, "test-key", entry)
	assert.NoError(t, err)

	retrieved, err := backend.Get(ctx, "test-key")
	require.NoError(t, err)
	assert.Equal(t, entry.Data, retrieved.Data)
	assert.Equal(t, entry.ETag, retrieved.ETag)

	assert.True(t, backend.Has(ctx, "test-key"))

	err = backend.Delete(ctx, "test-key")
	assert.NoError(t, err)
	assert.False(t, backend.Has(ctx, "test-key"))
}

func TestFactory_NoOpCache(t *testing.T) {
	config := &cache.Config{
		Type: cache.TypeNone,
	}

	backend, err := cache.NewFromConfig(config)
	require.NoError(t, err)
	require.NotNil(t, backend)

	ctx := context.Background()
	entry := &cache.Entry{
		Data:      []byte("test data"),
		ExpiresAt: time.Now().Add(1 * time.Hour),
	}

	// Set should succeed but do nothing
	err = backend.Set(ctx, "test-key", entry)
	assert.NoError(t, err)

	// Get should always fail
	_, err = backend.Get(ctx, "test-key")
	assert.Error(t, err)

	assert.False(t, backend.Has(ctx, "test-key"))
}

func TestFactory_NilConfigDefaultsToMemory(t *testing.T) {
	backend, err := cache.NewFromConfig(nil)
	require.NoError(t, err)
	require.NotNil(t, backend)

	ctx := context.Background()
	err = backend.Set(ctx, "test-key", &cache.Entry{Data: []byte("x")})
	require.NoError(t, err)
	assert.True(t, backend.Has(ctx, "test-key"))
}

func TestFactory_NATSRequiresConfig(t *testing.T) {
	_, err := cache.NewFromConfig(&cache.Config{Type: cache.TypeNATS})
	require.ErrorIs(t, err, cache.ErrNATSConfigRequired)
}

func TestFactory_UnsupportedType(t *testing.T) {
	_, err := cache.NewFromConfig(&cache.Config{Type: cache.Type("redis")})
	require.ErrorIs(t, err, cache.ErrUnsupportedCacheType)
	assert.Contains(t, err.Error(), "redis")
}

func TestFactory_BadCleanupInterval(t *testing.T) {
	_, err := cache.NewMemoryFromConfig(&cache.MemoryConfig{
		MaxSize:         10,
		CleanupInterval: "soonish",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing cleanup interval")
}

func TestNATSKV_ConfigValidation(t *testing.T) {
	_, err := cache.NewNATSKV(nil)
	require.ErrorIs(t, err, cache.ErrNATSConfigRequired)

	_, err = cache.NewNATSKV(&cache.NATSConfig{Bucket: "responses"})
	require.ErrorIs(t, err, cache.ErrNATSConfigRequired)

	_, err = cache.NewNATSKV(&cache.NATSConfig{URL: "nats://127.0.0.1:4222"})
	require.ErrorIs(t, err, cache.ErrNATSConfigRequired)
}

func TestBuilder(t *testing.T) {
	builder := cache.NewBuilder()
	backend, err := builder.
		WithType(cache.TypeMemory).
		WithMemoryConfig(50, "30s").
		WithTTL(10 * time.Minute).
		Build()

	require.NoError(t, err)
	require.NotNil(t, backend)

	// Test that the cache works
	ctx := context.Background()
	entry := &cache.Entry{
		Data:      []byte("builder test"),
		ExpiresAt: time.Now().Add(1 * time.Hour),
	}

	err = backend.Set(ctx, "builder-key", entry)
	assert.NoError(t, err)

	retrieved, err := backend.Get(ctx, "builder-key")
	require.NoError(t, err)
	assert.Equal(t, entry.Data, retrieved.Data)
}

func TestBuilder_BuildManager(t *testing.T) {
	manager, err := cache.NewBuilder().
		WithType(cache.TypeMemory).
		WithMemoryConfig(10, "").
		WithTTL(time.Hour).
		BuildManager()
	require.NoError(t, err)

	ctx := context.Background()
	resp := &teatime.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		URL:        "https://api.example.com/v4/projects",
		Headers:    http.Header{},
		Body:       []byte(`[]`),
	}

	key := manager.Key("GET", resp.URL, nil)
	require.NoError(t, manager.PutResponse(ctx, key, resp))

	cached, ok := manager.GetResponse(ctx, key)
	require.True(t, ok)
	assert.Equal(t, resp.Body, cached.Body)
}

func TestNewManagerFromConfig_NoneDisablesCaching(t *testing.T) {
	manager, err := cache.NewManagerFromConfig(&cache.Config{Type: cache.TypeNone})
	require.NoError(t, err)

	ctx := context.Background()
	resp := &teatime.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		URL:        "https://api.example.com/v4/projects",
		Headers:    http.Header{},
		Body:       []byte(`[]`),
	}

	require.NoError(t, manager.PutResponse(ctx, "key", resp))

	_, ok := manager.GetResponse(ctx, "key")
	assert.False(t, ok)
}
