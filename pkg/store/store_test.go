package store_test

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/matzehuels/trackview/pkg/errors"
	"github.com/matzehuels/trackview/pkg/interval"
	"github.com/matzehuels/trackview/pkg/store"
	"github.com/matzehuels/trackview/pkg/store/memory"
)

// plainStore implements Store without transactions.
type plainStore struct {
	cleared  []string
	inserted int
	failWith error
}

func (p *plainStore) ClearCollection(ctx context.Context, name string) error {
	p.cleared = append(p.cleared, name)
	return nil
}

func (p *plainStore) BulkInsert(ctx context.Context, name string, blocks []interval.Block) error {
	if p.failWith != nil {
		return p.failWith
	}
	p.inserted += len(blocks)
	return nil
}

func (p *plainStore) Close(ctx context.Context) error { return nil }

func TestReplaceWithoutTransaction(t *testing.T) {
	ctx := context.Background()
	blocks := []interval.Block{{Name: "t", Start: 1, End: 2}, {Name: "t", Start: 3, End: 4}}

	s := &plainStore{}
	if err := store.Replace(ctx, s, "testData", blocks); err != nil {
		t.Fatalf("Replace() error: %v", err)
	}
	if len(s.cleared) != 1 || s.cleared[0] != "testData" {
		t.Errorf("cleared = %v, want [testData]", s.cleared)
	}
	if s.inserted != 2 {
		t.Errorf("inserted = %d, want 2", s.inserted)
	}
}

func TestReplaceWrapsPlainErrors(t *testing.T) {
	s := &plainStore{failWith: stderrors.New("disk full")}
	err := store.Replace(context.Background(), s, "testData", []interval.Block{{Name: "t", Start: 1, End: 2}})
	if !errors.Is(err, errors.ErrCodeStoreWrite) {
		t.Fatalf("Replace() error = %v, want %s", err, errors.ErrCodeStoreWrite)
	}
}

func TestReplaceTransactionalRollback(t *testing.T) {
	ctx := context.Background()
	m := memory.New()

	old := []interval.Block{{Name: "track_0", Start: 10, End: 11}}
	if err := store.Replace(ctx, m, "testData", old); err != nil {
		t.Fatalf("seed: %v", err)
	}

	m.FailInsert = stderrors.New("insert rejected")
	err := store.Replace(ctx, m, "testData", []interval.Block{{Name: "track_9", Start: 1, End: 5}})
	if !errors.Is(err, errors.ErrCodeStoreWrite) {
		t.Fatalf("Replace() error = %v, want %s", err, errors.ErrCodeStoreWrite)
	}

	got := m.Collection("testData")
	if len(got) != 1 || got[0] != old[0] {
		t.Errorf("collection after failed replace = %v, want %v", got, old)
	}
}

func TestSourceFunc(t *testing.T) {
	var asked string
	src := store.SourceFunc(func(ctx context.Context, track string) ([]interval.Block, error) {
		asked = track
		return []interval.Block{{Name: track, Start: 0, End: 1}}, nil
	})

	got, err := src.FetchBlocks(context.Background(), "track_3")
	if err != nil {
		t.Fatal(err)
	}
	if asked != "track_3" || len(got) != 1 {
		t.Errorf("FetchBlocks() asked %q, got %v", asked, got)
	}
}
