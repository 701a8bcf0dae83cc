package cache

import (
	"fmt"
	"time"

	"github.com/teatime-io/teatime/internal/constants"
)

// Type selects a cache backend.
type Type string

const (
	// TypeMemory is the in-process cache.
	TypeMemory Type = "memory"

	// TypeNATS is the NATS JetStream KV cache.
	TypeNATS Type = "nats"

	// TypeNone disables caching.
	TypeNone Type = "none"
)

// Config selects and configures a cache backend.
type Config struct {
	// Type is the cache backend type.
	Type Type

	// Memory cache configuration.
	Memory *MemoryConfig

	// NATS KV cache configuration.
	NATS *NATSConfig

	// TTL applied to stored responses by the Manager.
	TTL time.Duration
}

// MemoryConfig configures the in-process cache.
type MemoryConfig struct {
	// MaxSize is the maximum number of entries held at once.
	MaxSize int

	// CleanupInterval is a duration string like "1m". Expired entries are
	// dropped on access and by Cleanup; the value is validated here so bad
	// configuration fails at construction.
	CleanupInterval string
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() *Config {
	return &Config{
		Type: TypeMemory,
		Memory: &MemoryConfig{
			MaxSize:         constants.DefaultCacheSize,
			CleanupInterval: constants.CacheCleanupInterval.String(),
		},
		TTL: constants.DefaultCacheTTL,
	}
}

// NewFromConfig creates a cache backend from configuration.
func NewFromConfig(config *Config) (Cache, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Type {
	case TypeMemory:
		return NewMemoryFromConfig(config.Memory)

	case TypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKV(config.NATS)

	case TypeNone:
		return NewNoOpCache(), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// NewMemoryFromConfig creates a memory cache from configuration.
func NewMemoryFromConfig(config *MemoryConfig) (Cache, error) {
	if config == nil {
		config = &MemoryConfig{
			MaxSize:         constants.DefaultCacheSize,
			CleanupInterval: constants.CacheCleanupInterval.String(),
		}
	}

	if config.CleanupInterval != "" {
		_, err := time.ParseDuration(config.CleanupInterval)
		if err != nil {
			return nil, fmt.Errorf("parsing cleanup interval: %w", err)
		}
	}

	return NewMemoryCache(config.MaxSize), nil
}

// NewManagerFromConfig builds the configured backend and wraps it in a
// Manager using the configured TTL.
func NewManagerFromConfig(config *Config) (*Manager, error) {
	backend, err := NewFromConfig(config)
	if err != nil {
		return nil, err
	}

	var ttl time.Duration
	if config != nil {
		ttl = config.TTL
	}

	return NewManager(backend, ttl), nil
}

// Builder helps build cache configurations.
type Builder struct {
	config *Config
}

// NewBuilder creates a new cache builder.
func NewBuilder() *Builder {
	return &Builder{
		config: &Config{
			Type: TypeMemory,
			TTL:  constants.DefaultCacheTTL,
		},
	}
}

// WithType sets the cache type.
func (b *Builder) WithType(cacheType Type) *Builder {
	b.config.Type = cacheType

	return b
}

// WithMemoryConfig sets memory cache configuration.
func (b *Builder) WithMemoryConfig(maxSize int, cleanupInterval string) *Builder {
	b.config.Memory = &MemoryConfig{
		MaxSize:         maxSize,
		CleanupInterval: cleanupInterval,
	}

	return b
}

// WithNATSConfig sets NATS cache configuration.
func (b *Builder) WithNATSConfig(config *NATSConfig) *Builder {
	b.config.NATS = config

	return b
}

// WithTTL sets the response TTL used by the Manager.
func (b *Builder) WithTTL(ttl time.Duration) *Builder {
	b.config.TTL = ttl

	return b
}

// Build creates the cache from the configuration.
func (b *Builder) Build() (Cache, error) {
	return NewFromConfig(b.config)
}

// BuildManager creates the cache and wraps it in a Manager.
func (b *Builder) BuildManager() (*Manager, error) {
	return NewManagerFromConfig(b.config)
}
