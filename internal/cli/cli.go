// Package cli implements the netviz command-line interface.
//
// This package provides commands for rendering model configuration files,
// checking their config references, exploring nested models interactively,
// serving the HTTP API, and inspecting bundled presets. The CLI is built
// using cobra and supports verbose logging via the charmbracelet/log
// library.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/liuji1031/visualize-architecture/examples"
	"github.com/liuji1031/visualize-architecture/pkg/buildinfo"
	"github.com/liuji1031/visualize-architecture/pkg/cache"
	"github.com/liuji1031/visualize-architecture/pkg/pipeline"
	"github.com/liuji1031/visualize-architecture/pkg/preset"
	"github.com/liuji1031/visualize-architecture/pkg/settings"
	"github.com/liuji1031/visualize-architecture/pkg/store"
)

// appName is the application name used for directories and display.
const appName = "netviz"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is the settings file, bound to the --config flag.
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05.00",
			Level:           level,
		}),
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
		Short:        "Netviz visualizes neural network configurations as module graphs",
		Long:         `Netviz is a CLI tool for visualizing neural network model configuration files as dataflow graphs, resolving variable interpolations and nested config references along the way.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "settings file (TOML)")

	// Register all subcommands
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.refsCommand())
	root.AddCommand(c.exploreCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.presetsCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// settings loads the settings file named by --config, or the defaults.
func (c *CLI) settings() (settings.Settings, error) {
	return settings.Load(c.configPath)
}

// newRunner creates a pipeline runner for CLI use. The fetcher decides
// where sources are read from; the cache backend comes from settings
// unless noCache forces it off.
func (c *CLI) newRunner(ctx context.Context, fetcher store.Fetcher, noCache bool) (*pipeline.Runner, error) {
	s, err := c.settings()
	if err != nil {
		return nil, err
	}
	if noCache {
		return pipeline.NewRunner(fetcher, cache.NewNullCache(), nil, c.Logger), nil
	}
	backend, err := newCache(ctx, s)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(fetcher, backend, nil, c.Logger), nil
}

// newCache builds the cache backend selected by settings.
func newCache(ctx context.Context, s settings.Settings) (cache.Cache, error) {
	switch s.Cache.Backend {
	case "none":
		return cache.NewNullCache(), nil
	case "redis":
		return cache.NewRedisCache(ctx, s.Cache.RedisURL)
	default:
		c, err := cache.NewFileCache(s.CacheDir())
		if err != nil {
			// A read-only home is not worth failing a render over.
			return cache.NewNullCache(), nil
		}
		return c, nil
	}
}

// presetStores assembles the preset stores: the examples bundled into the
// binary, plus the shared mongo store when settings configure one. The
// returned closer releases the mongo connection and may be nil.
func (c *CLI) presetStores(ctx context.Context) (preset.Store, func(context.Context) error, error) {
	stores := preset.Multi{preset.NewFSStore(examples.FS())}
	s, err := c.settings()
	if err != nil {
		return nil, nil, err
	}
	if s.Preset.MongoURL == "" {
		return stores, nil, nil
	}
	mongo, err := preset.NewMongoStore(ctx, s.Preset.MongoURL, s.Preset.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect preset store: %w", err)
	}
	return append(stores, mongo), mongo.Close, nil
}

// layoutOptions turns the settings defaults into pipeline options,
// leaving zero values for anything the caller overrides with flags.
func layoutOptions(s settings.Settings) pipeline.Options {
	return pipeline.Options{
		Orientation: s.Layout.Orientation,
		NodeWidth:   s.Layout.NodeWidth,
		NodeHeight:  s.Layout.NodeHeight,
		RankGap:     s.Layout.RankGap,
		NodeGap:     s.Layout.NodeGap,
	}
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{formatSVG}
	}
	return strings.Split(s, ",")
}
