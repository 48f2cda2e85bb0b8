// Package store defines the collaborators trackview uses to persist and read
// interval blocks.
//
// A [Store] is the write side used by the generator: it can clear a named
// collection and bulk-insert blocks into it. A [BlockSource] is the read side
// used by the renderer: it returns the blocks of one track.
//
// Implementations:
//   - memory: in-process store for tests and dry runs
//   - mongostore: MongoDB-backed store (transactions on replica sets)
//   - cached: BlockSource decorator backed by a cache.Cache
package store

import (
	"context"
	"time"

	"github.com/matzehuels/trackview/pkg/errors"
	"github.com/matzehuels/trackview/pkg/interval"
	"github.com/matzehuels/trackview/pkg/observability"
)

// Store is a document store holding named collections of blocks.
type Store interface {
	// ClearCollection removes every document from the named collection.
	ClearCollection(ctx context.Context, name string) error

	// BulkInsert appends blocks to the named collection.
	BulkInsert(ctx context.Context, name string, blocks []interval.Block) error

	// Close releases the store connection.
	Close(ctx context.Context) error
}

// Transactor is implemented by stores that can run several writes atomically.
// If fn returns an error, none of its writes become visible.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// BlockSource returns the blocks belonging to a track.
type BlockSource interface {
	FetchBlocks(ctx context.Context, track string) ([]interval.Block, error)
}

// SourceFunc adapts a function to a BlockSource.
type SourceFunc func(ctx context.Context, track string) ([]interval.Block, error)

// FetchBlocks calls f.
func (f SourceFunc) FetchBlocks(ctx context.Context, track string) ([]interval.Block, error) {
	return f(ctx, track)
}

// Replace clears collection name and inserts blocks. When s implements
// Transactor both steps run in a single transaction; otherwise a failed
// insert leaves the collection in an unspecified state.
func Replace(ctx context.Context, s Store, name string, blocks []interval.Block) error {
	replace := func(ctx context.Context) error {
		if err := s.ClearCollection(ctx, name); err != nil {
			return err
		}
		return s.BulkInsert(ctx, name, blocks)
	}

	start := time.Now()
	var err error
	if tx, ok := s.(Transactor); ok {
		err = tx.WithTransaction(ctx, replace)
	} else {
		err = replace(ctx)
	}
	observability.Store().OnReplace(ctx, name, len(blocks), time.Since(start), err)

	if err != nil {
		if errors.GetCode(err) != "" {
			return err
		}
		return errors.Wrap(errors.ErrCodeStoreWrite, err, "replace collection %s", name)
	}
	return nil
}
