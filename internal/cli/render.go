package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/trackview/pkg/errors"
	"github.com/matzehuels/trackview/pkg/generate"
	"github.com/matzehuels/trackview/pkg/interval"
	"github.com/matzehuels/trackview/pkg/render/track"
	"github.com/matzehuels/trackview/pkg/store"
	"github.com/matzehuels/trackview/pkg/store/cached"
	"github.com/matzehuels/trackview/pkg/store/memory"
)

const defaultOutput = "tracks.png"

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	mongoURI    string
	database    string
	collection  string
	generate    string // "tracks,elements,span,sep": render a generated dataset instead of mongo
	output      string
	dataURI     bool // print a data URI to stdout instead of writing a file
	width       int
	height      int // 0 sums the track heights
	trackHeight int // height of tracks given without one
	from        float64
	to          float64
	regionFrom  int64
	regionTo    int64
	background  string
	noCache     bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	defaults := defaultConfig()
	opts := renderOpts{
		mongoURI:    defaults.Mongo.URI,
		database:    defaults.Mongo.Database,
		collection:  defaults.Mongo.Collection,
		output:      defaultOutput,
		width:       defaults.Render.Width,
		trackHeight: defaults.Render.TrackHeight,
	}

	cmd := &cobra.Command{
		Use:   "render [track[:height[:color]]...]",
		Short: "Render stacked tracks to a PNG file or data URI",
		Long: `Render fetches the blocks of each named track and paints them as filled
rectangles, stacking tracks top to bottom. Without track arguments every track
of the collection is rendered.

The horizontal scale maps the canvas [0, width] onto [--from, --to], which
default to [0, width]. With --region-from/--region-to only blocks that start
or end inside the region are fetched and, unless --from/--to are given, the
region is stretched across the canvas.`,
		Example: `  trackview render track_0 track_1:40:#d62728 -o board.png
  trackview render --generate 3,10,8,10 --width 200 --data-uri`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyMongoDefaults(cmd, &opts.mongoURI, &opts.database, &opts.collection)
			c.applyRenderDefaults(cmd, &opts)
			tracks, err := parseTrackArgs(args, opts.trackHeight)
			if err != nil {
				return err
			}
			return c.runRender(cmd.Context(), tracks, cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.mongoURI, "mongo-uri", opts.mongoURI, "mongo connection string (env "+envMongoURI+")")
	cmd.Flags().StringVar(&opts.database, "database", opts.database, "database name")
	cmd.Flags().StringVar(&opts.collection, "collection", opts.collection, "collection to read")
	cmd.Flags().StringVar(&opts.generate, "generate", "", "render a generated dataset: tracks,elements,span,sep")
	cmd.Flags().StringVarP(&opts.output, "output", "o", opts.output, "output PNG file")
	cmd.Flags().BoolVar(&opts.dataURI, "data-uri", false, "print a data:image/png;base64 URI to stdout")
	cmd.Flags().IntVar(&opts.width, "width", opts.width, "canvas width in pixels")
	cmd.Flags().IntVar(&opts.height, "height", 0, "canvas height in pixels (default: sum of track heights)")
	cmd.Flags().IntVar(&opts.trackHeight, "track-height", opts.trackHeight, "height of tracks given without one")
	cmd.Flags().Float64Var(&opts.from, "from", 0, "range start the canvas left edge maps to")
	cmd.Flags().Float64Var(&opts.to, "to", 0, "range end the canvas right edge maps to (default: width)")
	cmd.Flags().Int64Var(&opts.regionFrom, "region-from", 0, "only fetch blocks starting or ending at or after this position")
	cmd.Flags().Int64Var(&opts.regionTo, "region-to", 0, "only fetch blocks starting or ending at or before this position")
	cmd.Flags().StringVar(&opts.background, "background", "", "background color (#rgb or #rrggbb, default transparent)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the local block cache")

	return cmd
}

// applyRenderDefaults fills canvas flags the user did not set from the config.
func (c *CLI) applyRenderDefaults(cmd *cobra.Command, opts *renderOpts) {
	cfg := c.Config.Render
	if !cmd.Flags().Changed("width") {
		opts.width = cfg.Width
	}
	if !cmd.Flags().Changed("height") {
		opts.height = cfg.Height
	}
	if !cmd.Flags().Changed("track-height") {
		opts.trackHeight = cfg.TrackHeight
	}
	if !cmd.Flags().Changed("background") {
		opts.background = cfg.Background
	}
}

func (c *CLI) runRender(ctx context.Context, tracks []interval.Track, cmd *cobra.Command, opts renderOpts) (err error) {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	region := interval.Region{From: opts.regionFrom, To: opts.regionTo}
	if err := region.Validate(); err != nil {
		return err
	}

	var (
		source  store.BlockSource
		closers []closeFunc
	)
	defer func() {
		if cerr := closeAll(context.WithoutCancel(ctx), closers...); err == nil {
			err = cerr
		}
	}()

	if opts.generate != "" {
		p, err := generate.ParseArgs(strings.Split(opts.generate, ","))
		if err != nil {
			return err
		}
		mem := memory.New()
		if _, err := generate.Seed(ctx, mem, opts.collection, p, logger); err != nil {
			return err
		}
		if len(tracks) == 0 {
			tracks = generate.Tracks(p, opts.trackHeight)
		}
		source = mem.Source(opts.collection, region)
	} else {
		ms, err := c.connectMongo(ctx, opts.mongoURI, opts.database)
		if err != nil {
			return err
		}
		closers = append(closers, ms.Close)

		if len(tracks) == 0 {
			names, err := ms.TrackNames(ctx, opts.collection)
			if err != nil {
				return err
			}
			for _, n := range names {
				tracks = append(tracks, interval.Track{Name: n, Height: opts.trackHeight})
			}
			logger.Debug("rendering all tracks", "collection", opts.collection, "tracks", len(tracks))
		}

		blockCache, err := newCache(opts.noCache)
		if err != nil {
			return err
		}
		closers = append(closers, ignoreCtx(blockCache.Close))
		source = cached.New(ms.Source(opts.collection, region), blockCache, cacheKeyer(opts.mongoURI, opts.database),
			opts.collection, region, logger)
	}

	height := opts.height
	if height == 0 {
		for _, t := range tracks {
			height += t.Height
		}
	}

	from, to, err := renderRange(cmd, opts, region)
	if err != nil {
		return err
	}

	r := track.New(source, track.WithBackground(opts.background), track.WithLogger(logger)).
		SetWidth(opts.width).
		SetHeight(height).
		SetTracks(tracks)
	if err := r.Render(ctx, from, to); err != nil {
		return err
	}
	f := r.Frame()
	prog.done(fmt.Sprintf("Rendered %d tracks", len(tracks)))

	if opts.dataURI {
		uri, err := r.DataURI()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), uri)
		return nil
	}

	out, err := os.Create(opts.output)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "create %s", opts.output)
	}
	if err := r.WritePNG(out); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	printSuccess("Rendered %dx%d frame", f.Width, f.Height)
	printStats(stat{len(tracks), "tracks"}, stat{f.Blocks, "blocks"})
	printFile(opts.output)
	return nil
}

// renderRange resolves the Render arguments. Explicit --from/--to win; a
// region alone is stretched across the canvas; otherwise [0, width].
func renderRange(cmd *cobra.Command, opts renderOpts, region interval.Region) (float64, float64, error) {
	explicit := cmd.Flags().Changed("from") || cmd.Flags().Changed("to")
	if !explicit && !region.IsZero() {
		return track.WindowRange(opts.width, region)
	}
	to := opts.to
	if !cmd.Flags().Changed("to") {
		to = float64(opts.width)
	}
	return opts.from, to, nil
}

// parseTrackArgs parses "name[:height[:color]]" track arguments.
func parseTrackArgs(args []string, defaultHeight int) ([]interval.Track, error) {
	tracks := make([]interval.Track, 0, len(args))
	for _, a := range args {
		t, err := parseTrackArg(a, defaultHeight)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

func parseTrackArg(arg string, defaultHeight int) (interval.Track, error) {
	parts := strings.SplitN(arg, ":", 3)
	t := interval.Track{Name: parts[0], Height: defaultHeight}
	if len(parts) > 1 && parts[1] != "" {
		h, err := strconv.Atoi(parts[1])
		if err != nil {
			return interval.Track{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "track %q: invalid height %q", arg, parts[1])
		}
		t.Height = h
	}
	if len(parts) > 2 {
		t.Color = parts[2]
	}
	if err := t.Validate(); err != nil {
		return interval.Track{}, err
	}
	return t, nil
}
