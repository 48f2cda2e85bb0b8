package cached

import (
	"context"
	stderrors "errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/trackview/pkg/cache"
	"github.com/matzehuels/trackview/pkg/interval"
	"github.com/matzehuels/trackview/pkg/observability"
	"github.com/matzehuels/trackview/pkg/store"
	"github.com/matzehuels/trackview/pkg/store/memory"
)

type countingHooks struct {
	observability.NoopCacheHooks
	hits, misses, sets int
}

func (h *countingHooks) OnCacheHit(context.Context, string)      { h.hits++ }
func (h *countingHooks) OnCacheMiss(context.Context, string)     { h.misses++ }
func (h *countingHooks) OnCacheSet(context.Context, string, int) { h.sets++ }

func TestSourceCachesFetches(t *testing.T) {
	hooks := &countingHooks{}
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	calls := 0
	inner := store.SourceFunc(func(ctx context.Context, track string) ([]interval.Block, error) {
		calls++
		return []interval.Block{{Name: track, Start: 10, End: 20}}, nil
	})

	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	src := New(inner, c, nil, "testData", interval.Region{}, log.New(io.Discard))

	ctx := context.Background()
	first, err := src.FetchBlocks(ctx, "track_0")
	if err != nil {
		t.Fatal(err)
	}
	second, err := src.FetchBlocks(ctx, "track_0")
	if err != nil {
		t.Fatal(err)
	}

	if calls != 1 {
		t.Errorf("inner source called %d times, want 1", calls)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("cached result mismatch (-first +second):\n%s", diff)
	}
	if hooks.hits != 1 || hooks.misses != 1 || hooks.sets != 1 {
		t.Errorf("hooks hits=%d misses=%d sets=%d, want 1/1/1", hooks.hits, hooks.misses, hooks.sets)
	}

	if _, err := src.FetchBlocks(ctx, "track_1"); err != nil {
		t.Fatal(err)
	}
	if calls != 2 {
		t.Errorf("different track should miss, calls = %d", calls)
	}
}

func TestSourcePropagatesErrors(t *testing.T) {
	boom := stderrors.New("boom")
	inner := store.SourceFunc(func(ctx context.Context, track string) ([]interval.Block, error) {
		return nil, boom
	})
	src := New(inner, nil, nil, "testData", interval.Region{}, log.New(io.Discard))

	if _, err := src.FetchBlocks(context.Background(), "t"); !stderrors.Is(err, boom) {
		t.Errorf("FetchBlocks() error = %v, want %v", err, boom)
	}
}

func seedMemory(t *testing.T, s *memory.Store, blocks ...interval.Block) {
	t.Helper()
	if err := store.Replace(context.Background(), s, "testData", blocks); err != nil {
		t.Fatalf("Replace: %v", err)
	}
}

func TestSourceScopesByDatabase(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	dbA, dbB := memory.New(), memory.New()
	seedMemory(t, dbA, interval.Block{Name: "track_0", Start: 10, End: 11})
	seedMemory(t, dbB, interval.Block{Name: "track_0", Start: 500, End: 900})

	keyerA := cache.NewScopedKeyer(nil, "trackview:mongodb://a:27017:mytestdb:")
	keyerB := cache.NewScopedKeyer(nil, "trackview:mongodb://b:27017:mytestdb:")
	srcA := New(dbA.Source("testData", interval.Region{}), c, keyerA, "testData", interval.Region{}, log.New(io.Discard))
	srcB := New(dbB.Source("testData", interval.Region{}), c, keyerB, "testData", interval.Region{}, log.New(io.Discard))

	if _, err := srcA.FetchBlocks(ctx, "track_0"); err != nil {
		t.Fatal(err)
	}
	got, err := srcB.FetchBlocks(ctx, "track_0")
	if err != nil {
		t.Fatal(err)
	}
	want := []interval.Block{{Name: "track_0", Start: 500, End: 900}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("second database blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestSourceGenerationBumpAfterReseed(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	keyer := cache.NewScopedKeyer(nil, "trackview:mongodb://a:27017:mytestdb:")

	db := memory.New()
	seedMemory(t, db, interval.Block{Name: "track_0", Start: 10, End: 11})
	src := New(db.Source("testData", interval.Region{}), c, keyer, "testData", interval.Region{}, log.New(io.Discard))
	if _, err := src.FetchBlocks(ctx, "track_0"); err != nil {
		t.Fatal(err)
	}

	seedMemory(t, db, interval.Block{Name: "track_0", Start: 20, End: 40})
	if _, err := cache.BumpGeneration(ctx, c, keyer.GenerationKey("testData")); err != nil {
		t.Fatalf("BumpGeneration: %v", err)
	}

	got, err := src.FetchBlocks(ctx, "track_0")
	if err != nil {
		t.Fatal(err)
	}
	want := []interval.Block{{Name: "track_0", Start: 20, End: 40}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("blocks after reseed mismatch (-want +got):\n%s", diff)
	}
}

// brokenCache fails every read.
type brokenCache struct{ cache.NullCache }

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, stderrors.New("connection reset")
}

func TestSourceBypassesUnreadableCache(t *testing.T) {
	calls := 0
	inner := store.SourceFunc(func(ctx context.Context, track string) ([]interval.Block, error) {
		calls++
		return []interval.Block{{Name: track, Start: 1, End: 2}}, nil
	})
	src := New(inner, brokenCache{}, nil, "testData", interval.Region{}, log.New(io.Discard))

	for i := 0; i < 2; i++ {
		if _, err := src.FetchBlocks(context.Background(), "track_0"); err != nil {
			t.Fatalf("FetchBlocks: %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("inner source called %d times, want 2", calls)
	}
}
