package track

import (
	"context"
	"image/color"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fogleman/gg"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/trackview/pkg/errors"
	"github.com/matzehuels/trackview/pkg/interval"
	"github.com/matzehuels/trackview/pkg/observability"
	"github.com/matzehuels/trackview/pkg/scale"
	"github.com/matzehuels/trackview/pkg/store"
)

// maxFetches bounds the number of concurrent FetchBlocks calls of a render.
const maxFetches = 8

// maxSide caps either canvas dimension.
const maxSide = 1 << 14

// DefaultPalette colors tracks that carry no color of their own.
var DefaultPalette = []color.Color{
	color.RGBA{0x1f, 0x77, 0xb4, 0xff},
	color.RGBA{0xff, 0x7f, 0x0e, 0xff},
	color.RGBA{0x2c, 0xa0, 0x2c, 0xff},
	color.RGBA{0xd6, 0x27, 0x28, 0xff},
	color.RGBA{0x94, 0x67, 0xbd, 0xff},
	color.RGBA{0x8c, 0x56, 0x4b, 0xff},
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithBackground fills the canvas with a #rgb or #rrggbb color before
// painting. The default background is transparent.
func WithBackground(hex string) Option { return func(r *Renderer) { r.background = hex } }

// WithPalette replaces DefaultPalette.
func WithPalette(p []color.Color) Option {
	return func(r *Renderer) {
		if len(p) > 0 {
			r.palette = append([]color.Color(nil), p...)
		}
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(l *log.Logger) Option { return func(r *Renderer) { r.logger = l } }

// Renderer paints tracks of blocks onto a canvas.
type Renderer struct {
	source     store.BlockSource
	width      int
	height     int
	tracks     []interval.Track
	background string
	palette    []color.Color
	logger     *log.Logger

	frame *Frame
}

// New creates a Renderer reading blocks from source. The canvas starts at
// 0x0 with no tracks.
func New(source store.BlockSource, opts ...Option) *Renderer {
	r := &Renderer{
		source:  source,
		palette: DefaultPalette,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Width returns the canvas width in pixels.
func (r *Renderer) Width() int { return r.width }

// SetWidth sets the canvas width. Invalid values are reported by Render.
func (r *Renderer) SetWidth(w int) *Renderer {
	r.width = w
	return r
}

// Height returns the canvas height in pixels.
func (r *Renderer) Height() int { return r.height }

// SetHeight sets the canvas height. Invalid values are reported by Render.
func (r *Renderer) SetHeight(h int) *Renderer {
	r.height = h
	return r
}

// Tracks returns a copy of the configured tracks.
func (r *Renderer) Tracks() []interval.Track {
	return append([]interval.Track(nil), r.tracks...)
}

// SetTracks replaces the track list with a copy of ts.
func (r *Renderer) SetTracks(ts []interval.Track) *Renderer {
	r.tracks = append([]interval.Track(nil), ts...)
	return r
}

// Frame returns the last successfully rendered frame, or nil.
func (r *Renderer) Frame() *Frame { return r.frame }

// Render fetches the blocks of every track and paints a new frame. The scale
// maps [0, width] to [from, to]. On error the previous frame is kept.
func (r *Renderer) Render(ctx context.Context, from, to float64) error {
	start := time.Now()
	hooks := observability.Render()
	hooks.OnRenderStart(ctx, len(r.tracks), r.width, r.height)

	f, err := r.render(ctx, from, to)
	blocks := 0
	if f != nil {
		blocks = f.Blocks
	}
	hooks.OnRenderComplete(ctx, blocks, time.Since(start), err)
	if err != nil {
		return err
	}

	r.frame = f
	r.logger.Debug("rendered frame", "id", f.ID, "width", f.Width, "height", f.Height,
		"tracks", len(r.tracks), "blocks", f.Blocks, "elapsed", time.Since(start))
	return nil
}

func (r *Renderer) render(ctx context.Context, from, to float64) (*Frame, error) {
	if err := r.validate(from, to); err != nil {
		return nil, err
	}

	f := newFrame(uuid.NewString(), r.width, r.height)
	if f.Empty() {
		return f, nil
	}

	x, err := scale.New().
		SetDomain([2]float64{0, float64(r.width)}).
		SetRange([2]float64{from, to}).
		Func()
	if err != nil {
		return nil, err
	}

	blocks, err := r.fetch(ctx)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContextForRGBA(f.Image)
	if r.background != "" {
		dc.SetHexColor(r.background)
		dc.Clear()
	}

	y := 0.0
	for i, t := range r.tracks {
		r.setTrackColor(dc, i, t)
		h := float64(t.Height)
		for _, b := range blocks[i] {
			x0, x1 := x(float64(b.Start)), x(float64(b.End))
			if x1 < x0 {
				x0, x1 = x1, x0
			}
			dc.DrawRectangle(x0, y, x1-x0, h)
			f.Blocks++
		}
		dc.Fill()
		y += h
	}
	return f, nil
}

func (r *Renderer) validate(from, to float64) error {
	if r.width < 0 || r.height < 0 {
		return errors.New(errors.ErrCodeInvalidDimensions, "canvas size must be >= 0, got %dx%d", r.width, r.height)
	}
	if r.width > maxSide || r.height > maxSide {
		return errors.New(errors.ErrCodeInvalidDimensions, "canvas size %dx%d exceeds %d pixels per side",
			r.width, r.height, maxSide)
	}
	if math.IsNaN(from) || math.IsInf(from, 0) || math.IsNaN(to) || math.IsInf(to, 0) {
		return errors.New(errors.ErrCodeInvalidInput, "render range must be finite, got [%v, %v]", from, to)
	}
	if err := errors.ValidateColor(r.background); err != nil {
		return err
	}
	for _, t := range r.tracks {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// fetch loads the blocks of every track concurrently. Result i belongs to
// track i.
func (r *Renderer) fetch(ctx context.Context) ([][]interval.Block, error) {
	if r.source == nil && len(r.tracks) > 0 {
		return nil, errors.New(errors.ErrCodeFetch, "renderer has no block source")
	}

	results := make([][]interval.Block, len(r.tracks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFetches)

	for i, t := range r.tracks {
		g.Go(func() error {
			start := time.Now()
			blocks, err := r.source.FetchBlocks(gctx, t.Name)
			observability.Render().OnFetchComplete(ctx, t.Name, len(blocks), time.Since(start), err)
			if err != nil {
				return errors.Wrap(errors.ErrCodeFetch, err, "fetch blocks of track %q", t.Name)
			}
			results[i] = blocks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Renderer) setTrackColor(dc *gg.Context, i int, t interval.Track) {
	if t.Color != "" {
		dc.SetHexColor(t.Color)
		return
	}
	dc.SetColor(r.palette[i%len(r.palette)])
}
