// Package pkg provides the libraries behind trackview.
//
// # Overview
//
// Trackview works with interval "tracks": named lanes of blocks, each block
// covering [start, end) in an integer coordinate space. The pkg directory is
// organized into:
//
//  1. [interval] - Block, Track and Region data types
//  2. [generate] - Deterministic synthetic datasets and seeding
//  3. [store] - Write (Store) and read (BlockSource) collaborators, with
//     memory, MongoDB and cached implementations
//  4. [scale] - Linear domain to range mapping
//  5. [render/track] - Raster renderer producing PNG frames and data URIs
//  6. [cache], [observability], [errors], [buildinfo] - shared infrastructure
//
// # Architecture
//
// The typical data flow:
//
//	generate.Seed ──► store.Store (mongo) ──► store.BlockSource
//	                                               │
//	                                    store/cached (file or redis)
//	                                               │
//	                                    render/track.Renderer ──► PNG / data URI
//
// # Quick Start
//
// Seed an in-memory store and render it:
//
//	s := memory.New()
//	p := generate.Params{Tracks: 3, Elements: 100, Span: 8, Sep: 10}
//	if _, err := generate.Seed(ctx, s, "testData", p, logger); err != nil {
//	    return err
//	}
//
//	r := track.New(s.Source("testData", interval.Region{})).
//	    SetWidth(1000).
//	    SetHeight(60).
//	    SetTracks(generate.Tracks(p, 20))
//	if err := r.Render(ctx, 0, 1000); err != nil {
//	    return err
//	}
//	uri, err := r.DataURI()
//
// [interval]: github.com/matzehuels/trackview/pkg/interval
// [generate]: github.com/matzehuels/trackview/pkg/generate
// [store]: github.com/matzehuels/trackview/pkg/store
// [scale]: github.com/matzehuels/trackview/pkg/scale
// [render/track]: github.com/matzehuels/trackview/pkg/render/track
// [cache]: github.com/matzehuels/trackview/pkg/cache
// [observability]: github.com/matzehuels/trackview/pkg/observability
// [errors]: github.com/matzehuels/trackview/pkg/errors
// [buildinfo]: github.com/matzehuels/trackview/pkg/buildinfo
package pkg
