// Package cache holds JSON-encoded API responses for a bounded time so that
// every widget on a page reads the same copy of the rate table.
package cache

import (
	"context"
	"time"
)

// Cache stores raw values under string keys with a TTL.
// Implementations must be concurrency-safe.
type Cache interface {
	// Get returns the value and true on a live hit
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for ttl
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeletePrefix drops every key starting with prefix
	DeletePrefix(ctx context.Context, prefix string) error
}
