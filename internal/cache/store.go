// Package cache provides short-TTL storage for upstream API responses.
// Values are stored as JSON blobs with expiration timestamps; an expired entry
// is treated as absent on read (lazy eviction), so readers never see stale
// data even though removal may happen later.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Store is the cache port. Implementations must make Get/Set atomic per key;
// keys are independent, so no cross-key ordering is required.
type Store interface {
	// Get returns the value for key if it exists and has not expired.
	// Expired or missing entries return (nil, false, nil).
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)

	// Set stores value under key with expiration now+ttl, overwriting any
	// previous entry wholesale.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes a key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteExpired removes entries past their expiration and returns the
	// number removed. Stores that expire natively (Redis) may return 0.
	DeleteExpired(ctx context.Context) (int, error)

	// Len returns the number of live entries.
	Len(ctx context.Context) (int, error)

	// Close releases store resources.
	Close() error
}
