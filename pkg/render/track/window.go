package track

import (
	"github.com/matzehuels/trackview/pkg/errors"
	"github.com/matzehuels/trackview/pkg/interval"
)

// WindowRange returns the Render arguments that stretch the data window
// [w.From, w.To] across a canvas of the given width, so that a block
// starting at w.From lands on x=0 and one ending at w.To lands on x=width.
//
// Render maps [0, width] onto [from, to]. For a window [a, b] the slope must
// be width/(b-a), which gives from = -a*width/(b-a) and to = from + width*slope.
func WindowRange(width int, w interval.Region) (from, to float64, err error) {
	if w.To <= w.From {
		return 0, 0, errors.New(errors.ErrCodeInvalidInput, "window must satisfy from < to, got [%d, %d]", w.From, w.To)
	}
	if width == 0 {
		return 0, 0, nil
	}
	fw := float64(width)
	slope := fw / float64(w.To-w.From)
	from = -float64(w.From) * slope
	return from, from + fw*slope, nil
}
