package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/trackview/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Rendered 3 tracks (12ms)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// ctxKey is the type for context keys used in this package.
type ctxKey int

// loggerKey is the context key for storing a logger.
const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx.
// If no logger is attached, it returns log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// =============================================================================
// Observability Hooks
// =============================================================================

// logHooks reports renderer, store and cache events at debug level.
type logHooks struct {
	logger *log.Logger
}

// installLogHooks routes every observability hook to logger.
func installLogHooks(l *log.Logger) {
	h := logHooks{logger: l.WithPrefix("hooks")}
	observability.SetRenderHooks(h)
	observability.SetStoreHooks(h)
	observability.SetCacheHooks(h)
}

func (h logHooks) OnRenderStart(_ context.Context, tracks, width, height int) {
	h.logger.Debug("render start", "tracks", tracks, "width", width, "height", height)
}

func (h logHooks) OnFetchComplete(_ context.Context, track string, blocks int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("fetch failed", "track", track, "elapsed", d, "err", err)
		return
	}
	h.logger.Debug("fetched", "track", track, "blocks", blocks, "elapsed", d)
}

func (h logHooks) OnRenderComplete(_ context.Context, blocks int, d time.Duration, err error) {
	h.logger.Debug("render complete", "blocks", blocks, "elapsed", d, "err", err)
}

func (h logHooks) OnSeedStart(_ context.Context, collection string, blocks int) {
	h.logger.Debug("seed start", "collection", collection, "blocks", blocks)
}

func (h logHooks) OnSeedComplete(_ context.Context, collection string, blocks int, d time.Duration, err error) {
	h.logger.Debug("seed complete", "collection", collection, "blocks", blocks, "elapsed", d, "err", err)
}

func (h logHooks) OnReplace(_ context.Context, collection string, blocks int, d time.Duration, err error) {
	h.logger.Debug("replace", "collection", collection, "blocks", blocks, "elapsed", d, "err", err)
}

func (h logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

var (
	_ observability.RenderHooks = logHooks{}
	_ observability.StoreHooks  = logHooks{}
	_ observability.CacheHooks  = logHooks{}
)
