package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/trackview/internal/server"
	"github.com/matzehuels/trackview/pkg/cache"
	"github.com/matzehuels/trackview/pkg/interval"
	"github.com/matzehuels/trackview/pkg/store"
	"github.com/matzehuels/trackview/pkg/store/cached"
)

const shutdownTimeout = 10 * time.Second

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr       string
	static     string
	mongoURI   string
	database   string
	collection string
	redisAddr  string
	noCache    bool
}

// serveCommand creates the serve command running the board HTTP server.
func (c *CLI) serveCommand() *cobra.Command {
	defaults := defaultConfig()
	opts := serveOpts{
		addr:       defaults.Server.Addr,
		mongoURI:   defaults.Mongo.URI,
		database:   defaults.Mongo.Database,
		collection: defaults.Mongo.Collection,
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rendered boards over HTTP",
		Long: `Serve answers POST /board with a PNG data URI of the requested tracks and
GET /board.png with the PNG itself. Blocks and frames are cached in redis when
--redis-addr is set and in the local file cache otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c.applyMongoDefaults(cmd, &opts.mongoURI, &opts.database, &opts.collection)
			if !cmd.Flags().Changed("addr") && c.Config.Server.Addr != "" {
				opts.addr = c.Config.Server.Addr
			}
			if !cmd.Flags().Changed("static") {
				opts.static = c.Config.Server.Static
			}
			if !cmd.Flags().Changed("redis-addr") {
				opts.redisAddr = c.Config.Redis.Addr
			}
			return c.runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().StringVar(&opts.static, "static", "", "directory served at /")
	cmd.Flags().StringVar(&opts.mongoURI, "mongo-uri", opts.mongoURI, "mongo connection string (env "+envMongoURI+")")
	cmd.Flags().StringVar(&opts.database, "database", opts.database, "database name")
	cmd.Flags().StringVar(&opts.collection, "collection", opts.collection, "collection to read")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "redis address for the shared cache (host:port)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable block and frame caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts serveOpts) (err error) {
	logger := loggerFromContext(ctx)

	ms, err := c.connectMongo(ctx, opts.mongoURI, opts.database)
	if err != nil {
		return err
	}
	sharedCache, keyer, err := c.openServeCache(ctx, opts)
	if err != nil {
		_ = ms.Close(context.WithoutCancel(ctx))
		return err
	}
	defer func() {
		if cerr := closeAll(context.WithoutCancel(ctx), ms.Close, ignoreCtx(sharedCache.Close)); err == nil {
			err = cerr
		}
	}()

	srv := server.New(server.Options{
		Sources: func(region interval.Region) store.BlockSource {
			return cached.New(ms.Source(opts.collection, region), sharedCache, keyer, opts.collection, region, logger)
		},
		Frames:      sharedCache,
		Keyer:       keyer,
		Collection:  opts.collection,
		Background:  c.Config.Render.Background,
		TrackHeight: c.Config.Render.TrackHeight,
		Width:       c.Config.Render.Width,
		Ping:        ms.Ping,
		Static:      opts.static,
		Logger:      logger,
	})

	httpSrv := &http.Server{
		Addr:              opts.addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- httpSrv.ListenAndServe() }()

	printSuccess("Serving %s.%s on %s", opts.database, opts.collection, opts.addr)
	if opts.static != "" {
		printDetail("Static files: %s", opts.static)
	}

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// openServeCache picks the cache shared by block and frame lookups: redis
// when configured, the local file cache otherwise.
func (c *CLI) openServeCache(ctx context.Context, opts serveOpts) (cache.Cache, cache.Keyer, error) {
	keyer := cacheKeyer(opts.mongoURI, opts.database)
	if opts.noCache || opts.redisAddr == "" {
		fc, err := newCache(opts.noCache)
		return fc, keyer, err
	}

	var rc *cache.RedisCache
	err := cache.RetryWithBackoff(ctx, 3, 500*time.Millisecond, func() error {
		var err error
		rc, err = cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     opts.redisAddr,
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		if err != nil {
			c.Logger.Debug("redis not ready", "addr", opts.redisAddr, "err", err)
		}
		return cache.Retryable(err)
	})
	if err != nil {
		return nil, nil, err
	}
	c.Logger.Debug("using redis cache", "addr", opts.redisAddr)
	return rc, keyer, nil
}
