package cache

import (
	"context"
	"strings"
	"time"
)

// DefaultTTL is applied when a Set call passes a non-positive TTL and the
// backend was built without an explicit default.
const DefaultTTL = 600 * time.Second

// Cache is a key/value store with time-based expiry. A miss is reported via
// the bool, never as an error; callers treat it as "recompute".
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Clear(ctx context.Context) error
}

// New selects a backend from a URI: empty disables caching entirely,
// "memory://" keeps entries in-process, "redis://..." uses Redis, and
// anything else is treated as a directory path for the disk cache.
func New(uri string, defaultTTL time.Duration) (Cache, error) {
	switch {
	case uri == "":
		return Nop{}, nil
	case uri == "memory://":
		return NewMemory(defaultTTL), nil
	case strings.HasPrefix(uri, "redis://"), strings.HasPrefix(uri, "rediss://"):
		return NewRedis(uri, defaultTTL)
	default:
		return NewDisk(uri, defaultTTL)
	}
}

// Nop is the disabled cache: every read is a miss, every write is dropped.
// The rest of the system degrades to always-recompute.
type Nop struct{}

func (Nop) Get(ctx context.Context, key string) ([]byte, bool, error) { return nil, false, nil }

func (Nop) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error { return nil }

func (Nop) Clear(ctx context.Context) error { return nil }
