package cli

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/trackview/pkg/errors"
	"github.com/matzehuels/trackview/pkg/store/mongostore"
)

// Config is the optional TOML configuration file. Command-line flags take
// precedence over file values; TRACKVIEW_MONGO_URI takes precedence over
// mongo.uri.
//
//	[mongo]
//	uri = "mongodb://localhost:27017"
//	database = "mytestdb"
//	collection = "testData"
//	connect_timeout = "10s"
//
//	[redis]
//	addr = "localhost:6379"
//
//	[render]
//	width = 800
//	track_height = 20
//	background = "#ffffff"
//
//	[server]
//	addr = ":1338"
//	static = "./theme"
type Config struct {
	Mongo  MongoConfig  `toml:"mongo"`
	Redis  RedisConfig  `toml:"redis"`
	Render RenderConfig `toml:"render"`
	Server ServerConfig `toml:"server"`
}

// MongoConfig selects the database seeded and read by all commands.
type MongoConfig struct {
	URI            string        `toml:"uri"`
	Database       string        `toml:"database"`
	Collection     string        `toml:"collection"`
	ConnectTimeout time.Duration `toml:"connect_timeout"`
}

// RedisConfig enables the shared frame cache of the board server.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// RenderConfig holds canvas defaults.
type RenderConfig struct {
	Width       int    `toml:"width"`
	Height      int    `toml:"height"` // 0 sums the track heights
	TrackHeight int    `toml:"track_height"`
	Background  string `toml:"background"`
}

// ServerConfig configures the board server.
type ServerConfig struct {
	Addr   string `toml:"addr"`
	Static string `toml:"static"`
}

func defaultConfig() Config {
	return Config{
		Mongo: MongoConfig{
			URI:            mongostore.DefaultURI,
			Database:       "mytestdb",
			Collection:     "testData",
			ConnectTimeout: 10 * time.Second,
		},
		Render: RenderConfig{
			Width:       800,
			TrackHeight: 20,
		},
		Server: ServerConfig{
			Addr: ":1338",
		},
	}
}

// loadConfig reads the file at path over the defaults. An empty path selects
// the default location. A missing file is only an error when the user named
// it explicitly.
func loadConfig(path string, explicit bool, logger *log.Logger) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		p, err := configPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	md, err := toml.DecodeFile(path, &cfg)
	switch {
	case os.IsNotExist(err) && !explicit:
		logger.Debug("no config file", "path", path)
	case err != nil:
		return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "load config %s", path)
	default:
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			logger.Warn("unknown config keys", "path", path, "keys", strings.Join(keys, ","))
		}
		logger.Debug("loaded config", "path", path)
	}

	if uri := os.Getenv(envMongoURI); uri != "" {
		cfg.Mongo.URI = uri
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if err := errors.ValidateCollectionName(c.Mongo.Database); err != nil {
		return err
	}
	if err := errors.ValidateCollectionName(c.Mongo.Collection); err != nil {
		return err
	}
	if c.Render.Width < 0 || c.Render.Height < 0 || c.Render.TrackHeight < 0 {
		return errors.New(errors.ErrCodeInvalidDimensions, "render sizes must be >= 0")
	}
	return errors.ValidateColor(c.Render.Background)
}
