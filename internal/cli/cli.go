// Package cli implements the relgraph command-line interface.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/relgraph/pkg/buildinfo"
	"github.com/matzehuels/relgraph/pkg/cache"
	"github.com/matzehuels/relgraph/pkg/config"
	"github.com/matzehuels/relgraph/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "relgraph"

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

	// ConfigPath is the relgraph.toml the commands load.
	ConfigPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger:     newLogger(w, level),
		ConfigPath: config.DefaultFile,
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
		Short:        "relgraph queries relation graphs over configured data sources",
		Long:         `relgraph loads a root relation together with the relations attached to it, over memory, SQL and MongoDB gateways, and returns the nested result.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVarP(&c.ConfigPath, "config", "c", c.ConfigPath, "path to "+config.DefaultFile)

	root.AddCommand(c.queryCommand())
	root.AddCommand(c.relationsCommand())
	root.AddCommand(c.describeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// session is a loaded config together with the registry and runner built
// from it.
type session struct {
	cfg    *config.Config
	reg    *config.Registry
	runner *pipeline.Runner
}

func (s *session) Close() error {
	return errors.Join(s.runner.Close(), s.reg.Close())
}

// open loads the config, opens its gateways and builds a runner.
func (c *CLI) open(ctx context.Context, noCache bool) (*session, error) {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.CacheTTL()
	if err != nil {
		return nil, err
	}
	reg, err := cfg.Open(ctx)
	if err != nil {
		return nil, err
	}
	cc, err := newCache(ctx, cfg.Cache, noCache)
	if err != nil {
		reg.Close()
		return nil, err
	}

	runner := pipeline.NewRunner(reg, cc, newKeyer(cfg.Cache), c.Logger)
	runner.Concurrency = cfg.Server.Concurrency
	runner.TTL = ttl
	c.Logger.Debug("loaded config",
		"path", c.ConfigPath,
		"relations", len(reg.Names()),
		"cache", cfg.Cache.Backend)
	return &session{cfg: cfg, reg: reg, runner: runner}, nil
}

// newCache selects the backend named in the config. Every backend reports to
// the observability cache hooks.
func newCache(ctx context.Context, cc config.Cache, noCache bool) (cache.Cache, error) {
	if noCache || cc.Backend == config.CacheNone {
		return cache.NewNullCache(), nil
	}
	if cc.Backend == config.CacheRedis {
		rc, err := cache.NewRedisCache(ctx, cc.URL, cc.Prefix)
		if err != nil {
			return nil, err
		}
		return cache.Instrument(rc), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, err
	}
	return cache.Instrument(fc), nil
}

// newKeyer scopes file cache keys with the configured prefix. Redis applies
// the prefix itself.
func newKeyer(cc config.Cache) cache.Keyer {
	if cc.Backend == config.CacheRedis {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(cache.NewDefaultKeyer(), cc.Prefix)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/relgraph/).
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
