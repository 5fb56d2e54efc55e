package cache

import (
	"context"
	"time"
)

// Cache is a small key/value store with per-key expiry. The memory
// implementation serves single-process setups; Redis lets an external
// observer share state with the notifier.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value. A zero TTL keeps the value until deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// CacheError is a cache lookup error.
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)
