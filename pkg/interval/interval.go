// Package interval defines the interval blocks and tracks that trackview
// generates, stores and renders.
//
// A [Block] is a half-open range [Start, End) labelled with the name of the
// track it belongs to. A [Track] is a horizontal lane in a rendered frame: it
// owns a vertical pixel allotment and is filled with the blocks whose name
// matches its own.
package interval

import (
	"fmt"

	"github.com/matzehuels/trackview/pkg/errors"
)

// Block is one interval feature. Blocks are immutable once created.
type Block struct {
	Name  string `bson:"name" json:"name"`
	Start int64  `bson:"start" json:"start"`
	End   int64  `bson:"end" json:"end"`
}

// Len returns the width of the block in domain units.
func (b Block) Len() int64 { return b.End - b.Start }

// Validate reports whether the block satisfies 0 <= Start < End.
func (b Block) Validate() error {
	if b.Start < 0 {
		return errors.New(errors.ErrCodeInvalidBlock, "block %s: start must be >= 0, got %d", b.Name, b.Start)
	}
	if b.End <= b.Start {
		return errors.New(errors.ErrCodeInvalidBlock, "block %s: end (%d) must be greater than start (%d)", b.Name, b.End, b.Start)
	}
	return nil
}

// Overlaps reports whether b and o share any point.
func (b Block) Overlaps(o Block) bool {
	return b.Start < o.End && o.Start < b.End
}

func (b Block) String() string {
	return fmt.Sprintf("%s(%d:%d)", b.Name, b.Start, b.End)
}

// Track is a named lane with a fixed pixel height.
type Track struct {
	Name   string `json:"name" toml:"name"`
	Height int    `json:"height" toml:"height"`
	// Color is an optional #rrggbb fill; empty selects a palette color.
	Color string `json:"color,omitempty" toml:"color"`
}

// Validate checks the track name, height and color.
func (t Track) Validate() error {
	if err := errors.ValidateTrackName(t.Name); err != nil {
		return err
	}
	if t.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidDimensions, "track %s: height must be > 0, got %d", t.Name, t.Height)
	}
	return errors.ValidateColor(t.Color)
}

// Region restricts a fetch to blocks that start or end inside [From, To].
// The zero Region matches everything.
type Region struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// IsZero reports whether r is the unrestricted region.
func (r Region) IsZero() bool { return r.From == 0 && r.To == 0 }

// Contains reports whether b starts or ends inside r.
func (r Region) Contains(b Block) bool {
	if r.IsZero() {
		return true
	}
	return (b.Start >= r.From && b.Start <= r.To) || (b.End >= r.From && b.End <= r.To)
}

// Validate checks that the region bounds are ordered.
func (r Region) Validate() error {
	if r.To < r.From {
		return errors.New(errors.ErrCodeInvalidInput, "region end (%d) before start (%d)", r.To, r.From)
	}
	return nil
}

// Filter returns the blocks of bs that fall into r, preserving order.
func (r Region) Filter(bs []Block) []Block {
	if r.IsZero() {
		return bs
	}
	out := make([]Block, 0, len(bs))
	for _, b := range bs {
		if r.Contains(b) {
			out = append(out, b)
		}
	}
	return out
}
