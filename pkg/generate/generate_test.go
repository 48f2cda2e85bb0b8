package generate

import (
	"context"
	stderrors "errors"
	"math"
	"strconv"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/matzehuels/trackview/pkg/errors"
	"github.com/matzehuels/trackview/pkg/interval"
	"github.com/matzehuels/trackview/pkg/store/memory"
)

func TestGenerateSmall(t *testing.T) {
	got, err := Generate(Params{Tracks: 2, Elements: 3, Span: 1, Sep: 10})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	want := []interval.Block{
		{Name: "track_0", Start: 10, End: 11},
		{Name: "track_0", Start: 20, End: 21},
		{Name: "track_0", Start: 30, End: 31},
		{Name: "track_1", Start: 10, End: 11},
		{Name: "track_1", Start: 20, End: 21},
		{Name: "track_1", Start: 30, End: 31},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Generate() mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateProperties(t *testing.T) {
	for _, p := range []Params{
		{Tracks: 1, Elements: 1, Span: 1, Sep: 1},
		{Tracks: 1, Elements: 10, Span: 1, Sep: 10},
		{Tracks: 4, Elements: 25, Span: 7, Sep: 7},
		{Tracks: 13, Elements: 3, Span: 2, Sep: 100},
		{Tracks: 3, Elements: 5, Span: 20, Sep: 5}, // span > sep: blocks overlap
	} {
		blocks, err := Generate(p)
		if err != nil {
			t.Fatalf("Generate(%+v) error: %v", p, err)
		}
		if len(blocks) != p.Tracks*p.Elements {
			t.Errorf("Generate(%+v) len = %d, want %d", p, len(blocks), p.Tracks*p.Elements)
		}

		names := map[string]bool{}
		byTrack := map[string][]interval.Block{}
		for _, b := range blocks {
			names[b.Name] = true
			byTrack[b.Name] = append(byTrack[b.Name], b)
			if b.End-b.Start != int64(p.Span) {
				t.Errorf("%+v: block %v has width %d, want %d", p, b, b.Len(), p.Span)
			}
			if err := b.Validate(); err != nil {
				t.Errorf("%+v: invalid block: %v", p, err)
			}
		}
		if len(names) != p.Tracks {
			t.Errorf("%+v: %d distinct track names, want %d", p, len(names), p.Tracks)
		}

		for name, bs := range byTrack {
			for j := 1; j < len(bs); j++ {
				if bs[j-1].Start >= bs[j].Start {
					t.Errorf("%+v: %s not increasing at %d", p, name, j)
				}
				if p.Span <= p.Sep && bs[j-1].End > bs[j].Start {
					t.Errorf("%+v: %s overlaps at %d: %v %v", p, name, j, bs[j-1], bs[j])
				}
			}
		}
	}
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr bool
	}{
		{"defaults", Params{Tracks: 1, Elements: 10, Span: 1, Sep: 10}, false},
		{"zero tracks", Params{Tracks: 0, Elements: 10, Span: 1, Sep: 10}, true},
		{"zero elements", Params{Tracks: 1, Elements: 0, Span: 1, Sep: 10}, true},
		{"zero span", Params{Tracks: 1, Elements: 10, Span: 0, Sep: 10}, true},
		{"negative sep", Params{Tracks: 1, Elements: 10, Span: 1, Sep: -10}, true},
		{"too many blocks", Params{Tracks: 100_000, Elements: 100_000, Span: 1, Sep: 1}, true},
		{"start overflows", Params{Tracks: 1, Elements: 2, Span: 1, Sep: math.MaxInt64}, true},
		{"end overflows", Params{Tracks: 1, Elements: 1, Span: 2, Sep: math.MaxInt64 - 1}, true},
		{"largest extent", Params{Tracks: 1, Elements: 1, Span: 1, Sep: math.MaxInt64 - 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("Validate() code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidInput)
			}
		})
	}
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    Params
		wantErr bool
	}{
		{"valid", []string{"3", "10", "2", "15"}, Params{Tracks: 3, Elements: 10, Span: 2, Sep: 15}, false},
		{"too few", []string{"3", "10"}, Params{}, true},
		{"too many", []string{"1", "2", "3", "4", "5"}, Params{}, true},
		{"not a number", []string{"3", "ten", "2", "15"}, Params{}, true},
		{"zero", []string{"3", "10", "0", "15"}, Params{}, true},
		{"overflowing sep", []string{"1", "2", "1", strconv.FormatInt(math.MaxInt64, 10)}, Params{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseArgs(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseArgs(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseArgs(%v) = %+v, want %+v", tt.args, got, tt.want)
			}
		})
	}
}

func TestGenerateAtCoordinateLimit(t *testing.T) {
	p := Params{Tracks: 1, Elements: 1, Span: 1, Sep: math.MaxInt64 - 1}
	blocks, err := Generate(p)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	want := []interval.Block{{Name: "track_0", Start: math.MaxInt64 - 1, End: math.MaxInt64}}
	if diff := cmp.Diff(want, blocks); diff != "" {
		t.Errorf("Generate() mismatch (-want +got):\n%s", diff)
	}
	if err := blocks[0].Validate(); err != nil {
		t.Errorf("block at the limit is invalid: %v", err)
	}
	if got := Extent(p); got != math.MaxInt64 {
		t.Errorf("Extent() = %d, want %d", got, int64(math.MaxInt64))
	}
}

func TestTracksAndExtent(t *testing.T) {
	p := Params{Tracks: 3, Elements: 4, Span: 5, Sep: 10}
	ts := Tracks(p, 20)
	if len(ts) != 3 {
		t.Fatalf("Tracks() len = %d, want 3", len(ts))
	}
	for i, tr := range ts {
		if tr.Name != TrackName(i) || tr.Height != 20 {
			t.Errorf("Tracks()[%d] = %+v", i, tr)
		}
	}
	if got := Extent(p); got != 45 {
		t.Errorf("Extent() = %d, want 45", got)
	}
}

func TestSeedReplacesCollection(t *testing.T) {
	ctx := context.Background()
	m := memory.New()
	_ = m.BulkInsert(ctx, "testData", []interval.Block{{Name: "stale", Start: 1, End: 2}})

	res, err := Seed(ctx, m, "testData", Params{Tracks: 2, Elements: 5, Span: 1, Sep: 10}, nil)
	if err != nil {
		t.Fatalf("Seed() error: %v", err)
	}
	if res.Blocks != 10 || res.Tracks != 2 || res.Collection != "testData" {
		t.Errorf("Seed() result = %+v", res)
	}

	got := m.Collection("testData")
	if len(got) != 10 {
		t.Fatalf("collection has %d blocks, want 10", len(got))
	}
	for _, b := range got {
		if b.Name == "stale" {
			t.Fatal("stale block survived Seed")
		}
	}
}

func TestSeedFailureKeepsPreviousData(t *testing.T) {
	ctx := context.Background()
	m := memory.New()
	_ = m.BulkInsert(ctx, "testData", []interval.Block{{Name: "old", Start: 1, End: 2}})
	m.FailInsert = stderrors.New("connection reset")

	_, err := Seed(ctx, m, "testData", Params{Tracks: 1, Elements: 1, Span: 1, Sep: 1}, nil)
	if !errors.Is(err, errors.ErrCodeStoreWrite) {
		t.Fatalf("Seed() error = %v, want %s", err, errors.ErrCodeStoreWrite)
	}
	if got := m.Collection("testData"); len(got) != 1 || got[0].Name != "old" {
		t.Errorf("collection after failed seed = %v", got)
	}
}

func TestSeedRejectsBadCollection(t *testing.T) {
	_, err := Seed(context.Background(), memory.New(), "system.bad", Params{Tracks: 1, Elements: 1, Span: 1, Sep: 1}, nil)
	if !errors.Is(err, errors.ErrCodeInvalidName) {
		t.Fatalf("Seed() error = %v, want %s", err, errors.ErrCodeInvalidName)
	}
}
