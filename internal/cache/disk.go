package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DiskCache stores one JSON envelope file per key under a directory.
// Expiry is lazy: an expired entry is treated as a miss at read time and the
// backing file is removed opportunistically.
type DiskCache struct {
	dir        string
	defaultTTL time.Duration
}

type diskEnvelope struct {
	ExpiresAt time.Time       `json:"expires_at"`
	Value     json.RawMessage `json:"value"`
}

// NewDisk creates the cache directory if needed and returns a DiskCache.
func NewDisk(dir string, defaultTTL time.Duration) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if defaultTTL <= 0 {
		defaultTTL = DefaultTTL
	}
	return &DiskCache{dir: dir, defaultTTL: defaultTTL}, nil
}

func (d *DiskCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	path := d.path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var env diskEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		// Corrupt entry; drop it and report a miss.
		os.Remove(path)
		return nil, false, nil
	}

	if time.Now().After(env.ExpiresAt) {
		os.Remove(path)
		return nil, false, nil
	}

	return env.Value, true, nil
}

func (d *DiskCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = d.defaultTTL
	}

	env := diskEnvelope{
		ExpiresAt: time.Now().Add(ttl),
		Value:     json.RawMessage(value),
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	// Write-then-rename keeps partially written entries invisible to
	// concurrent readers; last write wins on the same key.
	tmp, err := os.CreateTemp(d.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close cache temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), d.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

func (d *DiskCache) Clear(ctx context.Context) error {
	matches, err := filepath.Glob(filepath.Join(d.dir, "*.json"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
	}
	return nil
}

func (d *DiskCache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(d.dir, hex.EncodeToString(sum[:])+".json")
}
