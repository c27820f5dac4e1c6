// Package cache provides the key/value layer that pointfit persists run
// results and checkpoints through.
//
// Every backend implements [Cache]: a byte-oriented Get/Set/Delete with an
// optional TTL. Higher layers (checkpoint, pipeline) never see which
// backend is in use.
//
// # Backends
//
//   - [FileCache]: one file per key under a local directory (CLI default)
//   - [NullCache]: stores nothing, used with --no-cache
//   - [MemoryCache]: process-local map, used by the API server and tests
//   - [RedisCache]: a shared Redis instance
//   - [MongoCache]: a MongoDB collection
//   - [ObjectCache]: an S3-compatible bucket via MinIO
//
// # Keys
//
// Keys are produced by a [Keyer] so that every caller agrees on layout.
// [ScopedKeyer] adds a prefix for per-tenant isolation.
package cache

import (
	"context"
	"time"
)

// TTLs for the kinds of entries pointfit stores. Zero means no expiry.
const (
	// TTLResult bounds how long a finished estimate is reused for an
	// identical constraint set and option combination.
	TTLResult = 7 * 24 * time.Hour

	// TTLCheckpoint keeps checkpoints until deleted explicitly.
	TTLCheckpoint time.Duration = 0
)

// Cache is a byte-oriented key/value store.
//
// Get returns (nil, false, nil) on a miss; an error is reserved for backend
// failures. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
