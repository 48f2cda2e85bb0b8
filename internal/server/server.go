// Package server serves rendered track boards over HTTP.
//
// Routes:
//
//	POST /board      JSON BoardRequest, answered with a PNG data URI
//	GET  /board.png  query variant, answered with image/png
//	GET  /healthz    store reachability
//	GET  /*          optional static files (the browser client)
//
// Every request builds its own Renderer. Encoded frames are cached under a
// key derived from everything that influences their pixels, including the
// collection generation bumped by each reseed; the frame UUID is returned in
// the X-Frame-ID header.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/trackview/pkg/cache"
	"github.com/matzehuels/trackview/pkg/errors"
	"github.com/matzehuels/trackview/pkg/interval"
	"github.com/matzehuels/trackview/pkg/observability"
	"github.com/matzehuels/trackview/pkg/render/track"
	"github.com/matzehuels/trackview/pkg/store"
)

const (
	// HeaderFrameID carries the UUID of the served frame.
	HeaderFrameID = "X-Frame-ID"

	maxBodyBytes = 1 << 20
	maxTracks    = 256
	keyType      = "frame"
)

// SourceFunc returns the block source for one request window.
type SourceFunc func(region interval.Region) store.BlockSource

// Options configure New.
type Options struct {
	Sources     SourceFunc
	Frames      cache.Cache // nil disables frame caching
	Keyer       cache.Keyer
	Collection  string // only part of the frame cache key
	Background  string
	TrackHeight int // height of tracks sent without one
	Width       int // canvas width of requests without one
	Ping        func(ctx context.Context) error
	Static      string // directory served at /, optional
	Timeout     time.Duration
	Logger      *log.Logger
}

// Server renders boards for HTTP clients.
type Server struct {
	opts Options
}

// New creates a Server with defaults applied.
func New(opts Options) *Server {
	if opts.Frames == nil {
		opts.Frames = cache.NewNullCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.TrackHeight <= 0 {
		opts.TrackHeight = 20
	}
	if opts.Width <= 0 {
		opts.Width = 800
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Server{opts: opts}
}

// Handler returns the chi router serving all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.opts.Timeout))
		r.Post("/board", s.handleBoard)
		r.Get("/board.png", s.handleBoardPNG)
	})

	if s.opts.Static != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.opts.Static)))
	}
	return r
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	var req BoardRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode board request"))
		return
	}

	f, err := s.frame(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set(HeaderFrameID, f.ID)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(track.DataURIPrefix + base64.StdEncoding.EncodeToString(f.PNG)))
}

func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	req, err := parseQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	f, err := s.frame(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set(HeaderFrameID, f.ID)
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(f.PNG)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ping != nil {
		if err := s.opts.Ping(r.Context()); err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// encodedFrame is the cached form of a served frame.
type encodedFrame struct {
	ID  string `json:"id"`
	PNG []byte `json:"png"`
}

// frame renders req or returns its cached encoding.
func (s *Server) frame(ctx context.Context, req BoardRequest) (*encodedFrame, error) {
	tracks, err := req.tracks(s.opts.TrackHeight)
	if err != nil {
		return nil, err
	}
	region := req.Loc.Region()
	if err := region.Validate(); err != nil {
		return nil, err
	}

	width := req.Conf.Width
	if width == 0 {
		width = s.opts.Width
	}
	height := req.Conf.Height
	if height == 0 {
		for _, t := range tracks {
			height += t.Height
		}
	}
	from, to := 0.0, float64(width)
	if !region.IsZero() {
		if from, to, err = track.WindowRange(width, region); err != nil {
			return nil, err
		}
	}
	bg := req.Conf.background(s.opts.Background)

	// Frames are keyed by the collection generation so a reseed retires them.
	key := ""
	gen, err := cache.Generation(ctx, s.opts.Frames, s.opts.Keyer.GenerationKey(s.opts.Collection))
	if err != nil {
		s.opts.Logger.Warn("frame cache generation read failed, bypassing cache", "err", err)
	} else {
		key = s.opts.Keyer.FrameKey(frameKeyOpts(s.opts.Collection, gen, tracks, width, height, from, to, bg, region))
		if f, ok := s.cachedFrame(ctx, key); ok {
			return f, nil
		}
	}

	r := track.New(s.opts.Sources(region), track.WithBackground(bg), track.WithLogger(s.opts.Logger)).
		SetWidth(width).
		SetHeight(height).
		SetTracks(tracks)
	if err := r.Render(ctx, from, to); err != nil {
		return nil, err
	}
	data, err := r.PNG()
	if err != nil {
		return nil, err
	}

	f := &encodedFrame{ID: r.Frame().ID, PNG: data}
	if key != "" {
		s.storeFrame(ctx, key, f)
	}
	return f, nil
}

func (s *Server) cachedFrame(ctx context.Context, key string) (*encodedFrame, bool) {
	data, hit, err := s.opts.Frames.Get(ctx, key)
	if err != nil {
		s.opts.Logger.Warn("frame cache read failed", "err", err)
	}
	if !hit {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return nil, false
	}
	var f encodedFrame
	if err := json.Unmarshal(data, &f); err != nil {
		s.opts.Logger.Warn("discarding corrupt frame cache entry", "err", err)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return &f, true
}

func (s *Server) storeFrame(ctx context.Context, key string, f *encodedFrame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	if err := s.opts.Frames.Set(ctx, key, data, cache.TTLFrame); err != nil {
		s.opts.Logger.Warn("frame cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
}

func frameKeyOpts(collection, generation string, tracks []interval.Track, width, height int, from, to float64, bg string, region interval.Region) cache.FrameKeyOpts {
	names := make([]string, len(tracks))
	for i, t := range tracks {
		names[i] = t.Name + ":" + strconv.Itoa(t.Height) + ":" + t.Color
	}
	return cache.FrameKeyOpts{
		Collection: collection,
		Generation: generation,
		Tracks:     names,
		Width:      width,
		Height:     height,
		From:       from,
		To:         to,
		Background: bg,
		Region:     cache.RegionKey{From: region.From, To: region.To},
	}
}

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.opts.Logger.Error("request failed", "path", r.URL.Path, "id", middleware.GetReqID(r.Context()), "err", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errors.UserMessage(err),
		Code:  errors.GetCode(err),
	})
}

// requestLogger logs one debug line per request with its status and latency.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.opts.Logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"id", middleware.GetReqID(r.Context()))
	})
}
