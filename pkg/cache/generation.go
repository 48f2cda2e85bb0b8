package cache

import (
	"context"

	"github.com/google/uuid"
)

// Generations version the cached data of a collection. Whoever replaces a
// collection calls BumpGeneration; readers fold the value returned by
// Generation into their keys, so entries cached before the replacement are
// never read again and expire with their TTL.

// Generation returns the current generation stored under key, or "" if the
// collection was never bumped.
func Generation(ctx context.Context, c Cache, key string) (string, error) {
	data, hit, err := c.Get(ctx, key)
	if err != nil || !hit {
		return "", err
	}
	return string(data), nil
}

// BumpGeneration stores a fresh generation under key without expiry and
// returns it.
func BumpGeneration(ctx context.Context, c Cache, key string) (string, error) {
	gen := uuid.NewString()
	if err := c.Set(ctx, key, []byte(gen), 0); err != nil {
		return "", err
	}
	return gen, nil
}
