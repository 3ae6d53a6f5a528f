package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/relgraph/pkg/cache"
	"github.com/matzehuels/relgraph/pkg/config"
	errs "github.com/matzehuels/relgraph/pkg/errors"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the query result cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheConfig returns the cache section of the config, or the file backend
// when there is no config file.
func (c *CLI) cacheConfig() (config.Cache, error) {
	cfg, err := config.Load(c.ConfigPath)
	if errs.Is(err, errs.ErrCodeNotFound) {
		return config.Cache{Backend: config.CacheFile}, nil
	}
	if err != nil {
		return config.Cache{}, err
	}
	return cfg.Cache, nil
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached query results and diagrams",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := c.cacheConfig()
			if err != nil {
				return err
			}
			if cc.Backend == config.CacheFile {
				dir, err := cacheDir()
				if err != nil {
					return fmt.Errorf("get cache dir: %w", err)
				}
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					printInfo("Cache is empty")
					return nil
				}
			}

			store, err := newCache(cmd.Context(), cc, false)
			if err != nil {
				return err
			}
			defer store.Close()
			clearer, ok := store.(cache.Clearer)
			if !ok {
				printInfo("Cache is disabled")
				return nil
			}
			count, err := clearer.Clear(cmd.Context())
			if err != nil {
				return err
			}

			printSuccess("Cleared %d cached entries", count)
			if cc.Backend == config.CacheRedis {
				printDetail("Prefix: %s", cc.Prefix)
			} else if dir, err := cacheDir(); err == nil {
				printDetail("Directory: %s", dir)
			}
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}
