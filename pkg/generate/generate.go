// Package generate produces deterministic synthetic interval-track datasets
// and seeds them into a store.
//
// For parameters (tracks, elements, span, sep) the dataset holds
// tracks*elements blocks. Track i is named "track_<i>"; its j-th block covers
// [(j+1)*sep, (j+1)*sep+span). With span <= sep the blocks of a track are
// evenly spaced and never overlap.
package generate

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/trackview/pkg/errors"
	"github.com/matzehuels/trackview/pkg/interval"
	"github.com/matzehuels/trackview/pkg/observability"
	"github.com/matzehuels/trackview/pkg/store"
)

// TrackPrefix prefixes every generated track name.
const TrackPrefix = "track_"

// maxBlocks bounds a single dataset so a typo cannot exhaust memory.
const maxBlocks = 50_000_000

// Params are the four generator inputs. All are required and must be >= 1.
type Params struct {
	Tracks   int `json:"tracks"`
	Elements int `json:"elements"`
	Span     int `json:"span"`
	Sep      int `json:"sep"`
}

// Validate checks that every parameter is >= 1, the dataset size is sane and
// every block coordinate fits in an int64.
func (p Params) Validate() error {
	for _, f := range []struct {
		name string
		v    int
	}{
		{"tracks", p.Tracks},
		{"elements", p.Elements},
		{"span", p.Span},
		{"sep", p.Sep},
	} {
		if f.v < 1 {
			return errors.New(errors.ErrCodeInvalidInput, "%s must be >= 1, got %d", f.name, f.v)
		}
	}
	if p.Tracks > maxBlocks/p.Elements {
		return errors.New(errors.ErrCodeInvalidInput, "dataset too large: %d tracks x %d elements (max %d blocks)",
			p.Tracks, p.Elements, maxBlocks)
	}
	if int64(p.Sep) > (math.MaxInt64-int64(p.Span))/int64(p.Elements) {
		return errors.New(errors.ErrCodeInvalidInput, "coordinates overflow: %d elements x sep %d + span %d exceeds %d",
			p.Elements, p.Sep, p.Span, int64(math.MaxInt64))
	}
	return nil
}

// Count returns the number of blocks Generate produces.
func (p Params) Count() int { return p.Tracks * p.Elements }

// ParseArgs parses the positional arguments "tracks elements span sep".
func ParseArgs(args []string) (Params, error) {
	if len(args) != 4 {
		return Params{}, errors.New(errors.ErrCodeInvalidInput,
			"expected 4 arguments (tracks elements span sep), got %d", len(args))
	}
	names := [4]string{"tracks", "elements", "span", "sep"}
	var vals [4]int
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return Params{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "%s: not an integer: %q", names[i], a)
		}
		vals[i] = v
	}
	p := Params{Tracks: vals[0], Elements: vals[1], Span: vals[2], Sep: vals[3]}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// TrackName returns the name of the i-th generated track.
func TrackName(i int) string {
	return TrackPrefix + strconv.Itoa(i)
}

// Generate builds the dataset described by p, ordered by track then element.
func Generate(p Params) ([]interval.Block, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	blocks := make([]interval.Block, 0, p.Count())
	sep, span := int64(p.Sep), int64(p.Span)
	for i := 0; i < p.Tracks; i++ {
		name := TrackName(i)
		for j := 0; j < p.Elements; j++ {
			start := int64(j+1) * sep
			blocks = append(blocks, interval.Block{Name: name, Start: start, End: start + span})
		}
	}
	return blocks, nil
}

// Tracks returns one track per generated track name, each height pixels tall.
func Tracks(p Params, height int) []interval.Track {
	ts := make([]interval.Track, p.Tracks)
	for i := range ts {
		ts[i] = interval.Track{Name: TrackName(i), Height: height}
	}
	return ts
}

// Extent returns the domain end of the last block of any track.
func Extent(p Params) int64 {
	return int64(p.Elements)*int64(p.Sep) + int64(p.Span)
}

// Result summarizes a completed seed run.
type Result struct {
	Collection string
	Blocks     int
	Tracks     int
	Duration   time.Duration
}

// Seed generates the dataset for p and replaces the contents of collection
// with it. The replacement is atomic when s supports transactions.
func Seed(ctx context.Context, s store.Store, collection string, p Params, logger *log.Logger) (Result, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := errors.ValidateCollectionName(collection); err != nil {
		return Result{}, err
	}

	start := time.Now()
	observability.Store().OnSeedStart(ctx, collection, p.Count())

	blocks, err := Generate(p)
	if err != nil {
		observability.Store().OnSeedComplete(ctx, collection, 0, time.Since(start), err)
		return Result{}, err
	}
	logger.Debug("generated blocks", "tracks", p.Tracks, "elements", p.Elements, "span", p.Span, "sep", p.Sep)

	err = store.Replace(ctx, s, collection, blocks)
	elapsed := time.Since(start)
	observability.Store().OnSeedComplete(ctx, collection, len(blocks), elapsed, err)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Collection: collection,
		Blocks:     len(blocks),
		Tracks:     p.Tracks,
		Duration:   elapsed,
	}, nil
}
