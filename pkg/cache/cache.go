// Package cache provides byte caches for fetched blocks and rendered frames.
//
// Three implementations share the [Cache] interface:
//   - FileCache: JSON entry files under a directory, used by the CLI
//   - RedisCache: shared cache for the board server
//   - NullCache: disables caching
//
// Keys are built by a [Keyer] so that every component agrees on the layout
// and tenants can be separated with a [ScopedKeyer].
package cache

import (
	"context"
	"time"
)

// TTLs for the two kinds of cached data.
const (
	TTLBlocks = 10 * time.Minute
	TTLFrame  = time.Hour
)

// Cache stores opaque byte values with an optional expiry.
type Cache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// Keyer derives cache keys.
type Keyer interface {
	// BlocksKey is the key for the blocks of one track in one collection
	// as of the given dataset generation.
	BlocksKey(collection, generation, track string, region RegionKey) string

	// FrameKey is the key for an encoded frame.
	FrameKey(opts FrameKeyOpts) string

	// GenerationKey is the key holding the current generation of a
	// collection. See [BumpGeneration].
	GenerationKey(collection string) string
}

// RegionKey is the fetch window included in BlocksKey.
type RegionKey struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// FrameKeyOpts lists everything that changes the pixels of a frame.
type FrameKeyOpts struct {
	Collection string    `json:"collection"`
	Generation string    `json:"generation,omitempty"`
	Tracks     []string  `json:"tracks"` // name:height:color per track, in order
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	From       float64   `json:"from"`
	To         float64   `json:"to"`
	Background string    `json:"background,omitempty"`
	Region     RegionKey `json:"region"`
}
