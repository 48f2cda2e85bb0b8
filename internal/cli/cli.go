// Package cli implements the trackview command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/matzehuels/trackview/pkg/buildinfo"
	"github.com/matzehuels/trackview/pkg/cache"
	"github.com/matzehuels/trackview/pkg/store/mongostore"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "trackview"

	// envMongoURI overrides the configured mongo connection string.
	envMongoURI = "TRACKVIEW_MONGO_URI"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config Config

	configPath string
}

// New creates a new CLI instance with a default logger and configuration.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: defaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Trackview seeds and renders interval tracks",
		Long:         `Trackview generates synthetic interval-track datasets into MongoDB and renders stacked tracks of blocks as PNG images or data URIs.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			explicit := cmd.Flags().Changed("config")
			cfg, err := loadConfig(c.configPath, explicit, c.Logger)
			if err != nil {
				return err
			}
			c.Config = cfg

			if c.Logger.GetLevel() <= log.DebugLevel {
				installLogHooks(c.Logger)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/trackview/config.toml)")

	// Register all subcommands
	root.AddCommand(c.seedCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Backends
// =============================================================================

// connectMongo opens the configured mongo database.
func (c *CLI) connectMongo(ctx context.Context, uri, database string) (*mongostore.Store, error) {
	return mongostore.Connect(ctx, mongostore.Options{
		URI:            uri,
		Database:       database,
		ConnectTimeout: c.Config.Mongo.ConnectTimeout,
		Logger:         c.Logger,
	})
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// cacheKeyer scopes cache keys to one mongo server and database so that
// datasets sharing a collection name never see each other's entries.
func cacheKeyer(uri, database string) cache.Keyer {
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), appName+":"+mongostore.Redact(uri)+":"+database+":")
}

// closeFunc releases one backend.
type closeFunc func(ctx context.Context) error

// ignoreCtx adapts a plain Close method.
func ignoreCtx(fn func() error) closeFunc {
	return func(context.Context) error { return fn() }
}

// closeAll closes every backend and reports all failures together.
func closeAll(ctx context.Context, fns ...closeFunc) error {
	var result *multierror.Error
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		if err := fn(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/trackview/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// configPath returns the default config file (~/.config/trackview/config.toml).
func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}
