package track_test

import (
	"context"
	"fmt"

	"github.com/matzehuels/trackview/pkg/generate"
	"github.com/matzehuels/trackview/pkg/interval"
	"github.com/matzehuels/trackview/pkg/render/track"
	"github.com/matzehuels/trackview/pkg/store/memory"
)

func ExampleRenderer() {
	ctx := context.Background()
	s := memory.New()
	p := generate.Params{Tracks: 2, Elements: 4, Span: 5, Sep: 10}
	if _, err := generate.Seed(ctx, s, "testData", p, nil); err != nil {
		panic(err)
	}

	r := track.New(s.Source("testData", interval.Region{})).
		SetWidth(60).
		SetHeight(20).
		SetTracks(generate.Tracks(p, 10))
	if err := r.Render(ctx, 0, 60); err != nil {
		panic(err)
	}

	f := r.Frame()
	fmt.Println(f.Width, f.Height, f.Blocks)
	// Output: 60 20 8
}
