package track

import (
	"bytes"
	"encoding/base64"
	"image"
	"io"

	"github.com/fogleman/gg"

	"github.com/matzehuels/trackview/pkg/errors"
)

// DataURIPrefix starts every PNG data URI.
const DataURIPrefix = "data:image/png;base64,"

// Frame is one completed render.
type Frame struct {
	ID     string
	Width  int
	Height int
	Image  *image.RGBA
	Blocks int // number of painted blocks
}

func newFrame(id string, w, h int) *Frame {
	return &Frame{
		ID:     id,
		Width:  w,
		Height: h,
		Image:  image.NewRGBA(image.Rect(0, 0, w, h)),
	}
}

// Empty reports whether the frame has zero area.
func (f *Frame) Empty() bool { return f.Width == 0 || f.Height == 0 }

// WritePNG encodes the frame as PNG. A zero-area frame writes nothing, so the
// output is not a decodable image.
func (f *Frame) WritePNG(w io.Writer) error {
	if f.Empty() {
		return nil
	}
	if err := gg.NewContextForRGBA(f.Image).EncodePNG(w); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode frame %s", f.ID)
	}
	return nil
}

// PNG returns the PNG encoding of the last frame. A zero-area frame yields
// an empty slice: PNG cannot encode zero dimensions, so the result of an
// empty frame is not decodable and must not be passed to png.Decode. Check
// Frame().Empty() first.
func (r *Renderer) PNG() ([]byte, error) {
	if r.frame == nil {
		return nil, errNotRendered()
	}
	var buf bytes.Buffer
	if err := r.frame.WritePNG(&buf); err != nil {
		return nil, err
	}
	if buf.Len() == 0 {
		return []byte{}, nil
	}
	return buf.Bytes(), nil
}

// DataURI returns the last frame as a "data:image/png;base64," URI. For a
// zero-area frame it is the bare prefix with no payload.
func (r *Renderer) DataURI() (string, error) {
	data, err := r.PNG()
	if err != nil {
		return "", err
	}
	return DataURIPrefix + base64.StdEncoding.EncodeToString(data), nil
}

// WritePNG writes the PNG encoding of the last frame to w.
func (r *Renderer) WritePNG(w io.Writer) error {
	if r.frame == nil {
		return errNotRendered()
	}
	return r.frame.WritePNG(w)
}

func errNotRendered() error {
	return errors.New(errors.ErrCodeNotRendered, "no frame rendered yet")
}
