package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/matzehuels/trackview/pkg/cache"
	"github.com/matzehuels/trackview/pkg/generate"
	"github.com/matzehuels/trackview/pkg/store"
	"github.com/matzehuels/trackview/pkg/store/memory"
	"github.com/matzehuels/trackview/pkg/store/mongostore"
)

// seedOpts holds the command-line flags for the seed command.
type seedOpts struct {
	mongoURI   string
	database   string
	collection string
	redisAddr  string
	dryRun     bool // write to an in-memory store instead of mongo
	noIndex    bool // skip creating the {name, start} index
}

// seedCommand creates the seed command that fills a collection with a
// generated dataset.
func (c *CLI) seedCommand() *cobra.Command {
	defaults := defaultConfig().Mongo
	var opts seedOpts

	cmd := &cobra.Command{
		Use:   "seed <tracks> <elements> <span> <sep>",
		Short: "Replace a collection with a generated interval-track dataset",
		Long: `Seed generates tracks x elements blocks and replaces the contents of the
target collection with them. Track i is named track_<i>; its j-th block starts
at (j+1)*sep and ends span later.

On a replica set the clear and the insert run in one transaction. After a
successful seed the cached blocks and frames of the collection are retired in
the local file cache and, when configured, in redis.`,
		Example: `  trackview seed 10 1000 40 50
  trackview seed 3 5 8 10 --dry-run`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := generate.ParseArgs(args)
			if err != nil {
				return err
			}
			c.applyMongoDefaults(cmd, &opts.mongoURI, &opts.database, &opts.collection)
			if !cmd.Flags().Changed("redis-addr") {
				opts.redisAddr = c.Config.Redis.Addr
			}
			return c.runSeed(cmd.Context(), p, opts)
		},
	}

	cmd.Flags().StringVar(&opts.mongoURI, "mongo-uri", defaults.URI, "mongo connection string (env "+envMongoURI+")")
	cmd.Flags().StringVar(&opts.database, "database", defaults.Database, "database name")
	cmd.Flags().StringVar(&opts.collection, "collection", defaults.Collection, "collection to replace")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "redis cache to invalidate after seeding (host:port)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "generate into memory without touching mongo")
	cmd.Flags().BoolVar(&opts.noIndex, "no-index", false, "skip creating the {name, start} index")

	return cmd
}

// applyMongoDefaults fills mongo flags the user did not set from the config.
func (c *CLI) applyMongoDefaults(cmd *cobra.Command, uri, database, collection *string) {
	if !cmd.Flags().Changed("mongo-uri") {
		*uri = c.Config.Mongo.URI
	}
	if !cmd.Flags().Changed("database") {
		*database = c.Config.Mongo.Database
	}
	if collection != nil && !cmd.Flags().Changed("collection") {
		*collection = c.Config.Mongo.Collection
	}
}

func (c *CLI) runSeed(ctx context.Context, p generate.Params, opts seedOpts) (err error) {
	logger := loggerFromContext(ctx)

	var s store.Store
	if opts.dryRun {
		s = memory.New()
		printWarning("Dry run: writing to memory only")
	} else {
		ms, err := c.connectMongo(ctx, opts.mongoURI, opts.database)
		if err != nil {
			return err
		}
		if !ms.SupportsTransactions() {
			printWarning("Server is standalone: clear and insert are not atomic")
		}
		if err := ms.CheckReplaceSize(p.Count()); err != nil {
			_ = ms.Close(context.WithoutCancel(ctx))
			return err
		}
		s = ms
	}
	defer func() {
		if cerr := closeAll(context.WithoutCancel(ctx), s.Close); err == nil {
			err = cerr
		}
	}()

	printInfo("Seeding %s.%s", opts.database, opts.collection)
	printStats(
		stat{p.Tracks, "tracks"},
		stat{p.Elements, "elements"},
		stat{p.Count(), "blocks"},
	)

	sp := newSpinner(ctx, os.Stderr, fmt.Sprintf("Writing %d blocks...", p.Count()))
	sp.Start()
	res, err := generate.Seed(ctx, s, opts.collection, p, logger)
	if err != nil {
		sp.StopWithError("Seeding failed")
		return err
	}
	sp.StopWithSuccess(fmt.Sprintf("Seeded %d blocks into %s", res.Blocks, res.Collection))

	if ms, ok := s.(*mongostore.Store); ok && !opts.noIndex {
		if err := ms.EnsureIndexes(ctx, opts.collection); err != nil {
			return err
		}
		logger.Debug("ensured index", "collection", opts.collection)
	}

	if !opts.dryRun {
		if err := c.retireCachedData(ctx, opts); err != nil {
			printWarning("Could not invalidate cached renders, they may be stale until they expire: %v", err)
		}
	}

	printKeyValue("Collection", res.Collection)
	printKeyValue("Duration", res.Duration.Round(time.Millisecond).String())
	printKeyValue("Extent", fmt.Sprintf("0..%d", generate.Extent(p)))

	if !opts.dryRun {
		names := make([]string, 0, min(p.Tracks, 3))
		for i := 0; i < cap(names); i++ {
			names = append(names, generate.TrackName(i))
		}
		printNextStep("Render it", fmt.Sprintf("trackview render --collection %s %s", opts.collection, strings.Join(names, " ")))
	}
	return nil
}

// retireCachedData bumps the collection generation in every cache a render
// or serve command may read, so entries of the previous dataset are no
// longer used.
func (c *CLI) retireCachedData(ctx context.Context, opts seedOpts) error {
	key := cacheKeyer(opts.mongoURI, opts.database).GenerationKey(opts.collection)

	var (
		caches  []cache.Cache
		closers []closeFunc
		result  *multierror.Error
	)
	fc, err := newCache(false)
	if err != nil {
		result = multierror.Append(result, err)
	} else {
		caches = append(caches, fc)
		closers = append(closers, ignoreCtx(fc.Close))
	}
	if opts.redisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisOptions{
			Addr:     opts.redisAddr,
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		if err != nil {
			result = multierror.Append(result, err)
		} else {
			caches = append(caches, rc)
			closers = append(closers, ignoreCtx(rc.Close))
		}
	}

	for _, cc := range caches {
		gen, err := cache.BumpGeneration(ctx, cc, key)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		c.Logger.Debug("retired cached data", "key", key, "generation", gen)
	}
	if err := closeAll(context.WithoutCancel(ctx), closers...); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
