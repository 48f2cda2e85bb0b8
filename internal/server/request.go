package server

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/matzehuels/trackview/pkg/errors"
	"github.com/matzehuels/trackview/pkg/interval"
)

// BoardRequest is the body of POST /board.
//
//	{
//	  "loc":    {"from": 22, "to": 50},
//	  "tracks": [{"name": "track_1", "height": 40, "fgColor": {"r": 214, "g": 39, "b": 40}}],
//	  "conf":   {"width": 800, "height": 120, "bgColor": {"r": 255, "g": 255, "b": 255}}
//	}
type BoardRequest struct {
	Loc    Loc          `json:"loc"`
	Tracks []BoardTrack `json:"tracks"`
	Conf   Conf         `json:"conf"`
}

// Loc is the data window to draw. The zero Loc draws all blocks with the
// canvas mapped 1:1 onto block coordinates.
type Loc struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// BoardTrack is a track of the request. The color may be given as a hex
// string or as an {r,g,b} object.
type BoardTrack struct {
	Name    string `json:"name"`
	Height  int    `json:"height"`
	Color   string `json:"color,omitempty"`
	FgColor *RGB   `json:"fgColor,omitempty"`
}

// Conf is the canvas of the request. A zero height sums the track heights.
type Conf struct {
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	BgColor *RGB   `json:"bgColor,omitempty"`
	Bg      string `json:"background,omitempty"`
}

// RGB is an opaque color as sent by browser clients.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex formats c as #rrggbb.
func (c RGB) Hex() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

// Region returns the fetch window of the request.
func (l Loc) Region() interval.Region { return interval.Region{From: l.From, To: l.To} }

// tracks converts the request tracks, applying defaultHeight to tracks
// without a height.
func (req BoardRequest) tracks(defaultHeight int) ([]interval.Track, error) {
	if len(req.Tracks) > maxTracks {
		return nil, errors.New(errors.ErrCodeInvalidInput, "too many tracks: %d (max %d)", len(req.Tracks), maxTracks)
	}
	out := make([]interval.Track, len(req.Tracks))
	for i, bt := range req.Tracks {
		t := interval.Track{Name: bt.Name, Height: bt.Height, Color: bt.Color}
		if t.Height == 0 {
			t.Height = defaultHeight
		}
		if t.Color == "" && bt.FgColor != nil {
			t.Color = bt.FgColor.Hex()
		}
		if err := t.Validate(); err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// background returns the requested background, preferring the hex form.
func (c Conf) background(fallback string) string {
	switch {
	case c.Bg != "":
		return c.Bg
	case c.BgColor != nil:
		return c.BgColor.Hex()
	default:
		return fallback
	}
}

// parseQuery builds a BoardRequest from the query string of GET /board.png:
//
//	/board.png?tracks=track_0,track_1:40:%23d62728&width=800&from=22&to=50&bg=%23fff
func parseQuery(q url.Values) (BoardRequest, error) {
	var req BoardRequest
	var err error

	intParam := func(name string, dst *int) {
		if v := q.Get(name); v != "" && err == nil {
			var n int
			if n, err = strconv.Atoi(v); err != nil {
				err = errors.Wrap(errors.ErrCodeInvalidInput, err, "%s: not an integer: %q", name, v)
				return
			}
			*dst = n
		}
	}
	int64Param := func(name string, dst *int64) {
		if v := q.Get(name); v != "" && err == nil {
			var n int64
			if n, err = strconv.ParseInt(v, 10, 64); err != nil {
				err = errors.Wrap(errors.ErrCodeInvalidInput, err, "%s: not an integer: %q", name, v)
				return
			}
			*dst = n
		}
	}

	intParam("width", &req.Conf.Width)
	intParam("height", &req.Conf.Height)
	int64Param("from", &req.Loc.From)
	int64Param("to", &req.Loc.To)
	if err != nil {
		return BoardRequest{}, err
	}
	req.Conf.Bg = q.Get("bg")

	if v := q.Get("tracks"); v != "" {
		for _, arg := range strings.Split(v, ",") {
			parts := strings.SplitN(arg, ":", 3)
			bt := BoardTrack{Name: parts[0]}
			if len(parts) > 1 && parts[1] != "" {
				h, err := strconv.Atoi(parts[1])
				if err != nil {
					return BoardRequest{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "track %q: invalid height", arg)
				}
				bt.Height = h
			}
			if len(parts) > 2 {
				bt.Color = parts[2]
			}
			req.Tracks = append(req.Tracks, bt)
		}
	}
	return req, nil
}
