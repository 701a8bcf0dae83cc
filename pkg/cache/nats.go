package cache

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/teatime-io/teatime/internal/constants"
)

// NATSConfig configures the NATS JetStream key-value backend.
type NATSConfig struct {
	// URL is the NATS server URL, e.g. "nats://cache.internal:4222".
	// Multiple servers may be given comma-separated.
	URL string

	// Bucket is the KV bucket holding cached entries. It is created with
	// the configured TTL when it does not exist yet.
	Bucket string

	// CredsFile optionally points at a NATS credentials file.
	CredsFile string

	// TTL bounds entry lifetime inside the bucket, on top of the per-entry
	// expiry carried in the value.
	TTL time.Duration
}

// NATSKV is a cache backend on a NATS JetStream key-value bucket, for
// sharing cached responses between processes.
type NATSKV struct {
	conn *nats.Conn
	kv   nats.KeyValue
}

var _ Cache = (*NATSKV)(nil)

// NewNATSKV connects to NATS and opens (or creates) the configured bucket.
func NewNATSKV(config *NATSConfig) (*NATSKV, error) {
	if config == nil || config.URL == "" || config.Bucket == "" {
		return nil, ErrNATSConfigRequired
	}

	opts := []nats.Option{nats.Name(constants.ClientName)}
	if config.CredsFile != "" {
		opts = append(opts, nats.UserCredentials(config.CredsFile))
	}

	conn, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("opening JetStream context: %w", err)
	}

	kv, err := js.KeyValue(config.Bucket)
	if errors.Is(err, nats.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket: config.Bucket,
			TTL:    config.TTL,
		})
	}

	if err != nil {
		conn.Close()

		return nil, fmt.Errorf("opening KV bucket %q: %w", config.Bucket, err)
	}

	return &NATSKV{conn: conn, kv: kv}, nil
}

// encodeKey maps arbitrary cache keys onto the restricted NATS KV key
// alphabet.
func encodeKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

// Get retrieves an entry from the bucket.
func (n *NATSKV) Get(ctx context.Context, key string) (*Entry, error) {
	kvEntry, err := n.kv.Get(encodeKey(key))
	if errors.Is(err, nats.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("reading cache key: %w", err)
	}

	var entry Entry

	err = json.Unmarshal(kvEntry.Value(), &entry)
	if err != nil {
		return nil, fmt.Errorf("decoding cache entry: %w", err)
	}

	if entry.Expired() {
		_ = n.kv.Delete(encodeKey(key))

		return nil, ErrEntryExpired
	}

	return &entry, nil
}

// Set stores an entry in the bucket.
func (n *NATSKV) Set(ctx context.Context, key string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	_, err = n.kv.Put(encodeKey(key), data)
	if err != nil {
		return fmt.Errorf("writing cache key: %w", err)
	}

	return nil
}

// Delete removes an entry from the bucket.
func (n *NATSKV) Delete(ctx context.Context, key string) error {
	err := n.kv.Delete(encodeKey(key))
	if err != nil && !errors.Is(err, nats.ErrKeyNotFound) {
		return fmt.Errorf("deleting cache key: %w", err)
	}

	return nil
}

// Clear purges every key in the bucket.
func (n *NATSKV) Clear(ctx context.Context) error {
	keys, err := n.kv.Keys()
	if errors.Is(err, nats.ErrNoKeysFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("listing cache keys: %w", err)
	}

	for _, key := range keys {
		err = n.kv.Purge(key)
		if err != nil {
			return fmt.Errorf("purging cache key: %w", err)
		}
	}

	return nil
}

// Has reports whether a live entry exists for the key.
func (n *NATSKV) Has(ctx context.Context, key string) bool {
	_, err := n.Get(ctx, key)

	return err == nil
}

// Close drains and closes the NATS connection.
func (n *NATSKV) Close() error {
	return n.conn.Drain()
}
