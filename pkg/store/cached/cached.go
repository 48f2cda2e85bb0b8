// Package cached wraps a store.BlockSource with a cache.Cache.
package cached

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/trackview/pkg/cache"
	"github.com/matzehuels/trackview/pkg/interval"
	"github.com/matzehuels/trackview/pkg/observability"
	"github.com/matzehuels/trackview/pkg/store"
)

const keyType = "blocks"

// Source serves FetchBlocks from the cache and falls through to the inner
// source on a miss. Cache failures are logged and never fail a fetch.
type Source struct {
	inner      store.BlockSource
	cache      cache.Cache
	keyer      cache.Keyer
	collection string
	region     interval.Region
	logger     *log.Logger
}

// New creates a caching source. collection and region only contribute to
// the cache key; the inner source must already be scoped to them.
func New(inner store.BlockSource, c cache.Cache, keyer cache.Keyer, collection string, region interval.Region, logger *log.Logger) *Source {
	if c == nil {
		c = cache.NewNullCache()
	}
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Source{
		inner:      inner,
		cache:      c,
		keyer:      keyer,
		collection: collection,
		region:     region,
		logger:     logger,
	}
}

// FetchBlocks returns cached blocks for track, or fetches and caches them.
// Entries are keyed by the collection's current generation, so a bump after
// a reseed makes every older entry unreachable. If the generation cannot be
// read the cache is bypassed.
func (s *Source) FetchBlocks(ctx context.Context, track string) ([]interval.Block, error) {
	gen, err := cache.Generation(ctx, s.cache, s.keyer.GenerationKey(s.collection))
	if err != nil {
		s.logger.Warn("block cache generation read failed, bypassing cache", "collection", s.collection, "err", err)
		return s.inner.FetchBlocks(ctx, track)
	}
	key := s.keyer.BlocksKey(s.collection, gen, track, cache.RegionKey{From: s.region.From, To: s.region.To})

	data, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("block cache read failed", "track", track, "err", err)
	}
	if hit {
		var blocks []interval.Block
		if err := json.Unmarshal(data, &blocks); err == nil {
			observability.Cache().OnCacheHit(ctx, keyType)
			return blocks, nil
		}
		s.logger.Warn("discarding corrupt block cache entry", "track", track)
	}
	observability.Cache().OnCacheMiss(ctx, keyType)

	blocks, err := s.inner.FetchBlocks(ctx, track)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(blocks); err == nil {
		if err := s.cache.Set(ctx, key, data, cache.TTLBlocks); err != nil {
			s.logger.Warn("block cache write failed", "track", track, "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, keyType, len(data))
		}
	}
	return blocks, nil
}

var _ store.BlockSource = (*Source)(nil)
