// Package memory provides an in-process implementation of the store
// interfaces. It is used by tests and by dry runs of the CLI.
package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/matzehuels/trackview/pkg/errors"
	"github.com/matzehuels/trackview/pkg/interval"
	"github.com/matzehuels/trackview/pkg/store"
)

// Store keeps collections in maps guarded by a mutex. Transactions run
// against a private copy that is published only when the callback succeeds.
type Store struct {
	txMu        sync.Mutex
	mu          sync.RWMutex
	collections map[string][]interval.Block

	// FailInsert, when non-nil, is returned by BulkInsert. Tests use it to
	// simulate write failures.
	FailInsert error
}

// New creates an empty store.
func New() *Store {
	return &Store{collections: make(map[string][]interval.Block)}
}

// txKey marks a context running inside WithTransaction.
type txKey struct{}

type txState struct {
	collections map[string][]interval.Block
}

func (s *Store) target(ctx context.Context) map[string][]interval.Block {
	if tx, ok := ctx.Value(txKey{}).(*txState); ok {
		return tx.collections
	}
	return s.collections
}

// ClearCollection removes all blocks of a collection.
func (s *Store) ClearCollection(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.target(ctx), name)
	return nil
}

// BulkInsert appends blocks to a collection after validating each of them.
// Inserting no blocks leaves the collection absent.
func (s *Store) BulkInsert(ctx context.Context, name string, blocks []interval.Block) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailInsert != nil {
		return errors.Wrap(errors.ErrCodeStoreWrite, s.FailInsert, "insert into %s", name)
	}
	for _, b := range blocks {
		if err := b.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeStoreWrite, err, "insert into %s", name)
		}
	}
	if len(blocks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.target(ctx)
	coll[name] = append(coll[name], blocks...)
	return nil
}

// WithTransaction runs fn against a snapshot and publishes it if fn succeeds.
// Transactions are serialized.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := make(map[string][]interval.Block, len(s.collections))
	for k, v := range s.collections {
		snapshot[k] = slices.Clone(v)
	}
	s.mu.RUnlock()

	tx := &txState{collections: snapshot}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	s.mu.Lock()
	s.collections = tx.collections
	s.mu.Unlock()
	return nil
}

// Close does nothing.
func (s *Store) Close(ctx context.Context) error { return nil }

// Collection returns a copy of the named collection.
func (s *Store) Collection(name string) []interval.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.collections[name])
}

// Collections returns the sorted names of all non-empty collections.
func (s *Store) Collections() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.collections))
}

// Source returns a BlockSource over collection, restricted to region.
func (s *Store) Source(collection string, region interval.Region) store.BlockSource {
	return store.SourceFunc(func(ctx context.Context, track string) ([]interval.Block, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.mu.RLock()
		defer s.mu.RUnlock()
		var out []interval.Block
		for _, b := range s.collections[collection] {
			if b.Name == track && region.Contains(b) {
				out = append(out, b)
			}
		}
		slices.SortStableFunc(out, func(a, b interval.Block) int { return cmp.Compare(a.Start, b.Start) })
		return out, nil
	})
}

var (
	_ store.Store      = (*Store)(nil)
	_ store.Transactor = (*Store)(nil)
)
