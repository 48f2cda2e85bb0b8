// Package track paints interval blocks of vertically stacked tracks onto a
// raster canvas.
//
// A [Renderer] holds the canvas size and an ordered list of tracks. Each call
// to [Renderer.Render] fetches the blocks of every track from a
// [store.BlockSource], maps block coordinates horizontally through a linear
// scale and fills one rectangle per block. Track i occupies the rows
// starting at the sum of the heights of tracks 0..i-1.
//
//	r := track.New(source).
//	    SetWidth(800).
//	    SetHeight(120).
//	    SetTracks([]interval.Track{{Name: "track_0", Height: 40}})
//	if err := r.Render(ctx, 0, 800); err != nil {
//	    return err
//	}
//	uri, err := r.DataURI()
//
// The scale of a render maps the canvas domain [0, width] onto the caller's
// range [from, to]; Render(0, width) draws block coordinates 1:1 as pixels.
//
// A Renderer is not safe for concurrent use.
//
// [store.BlockSource]: github.com/matzehuels/trackview/pkg/store.BlockSource
package track
