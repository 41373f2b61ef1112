// Copyright 2025 The zb Authors
// SPDX-License-Identifier: MIT

// Package lupincli implements the lupin command-line interface.
package lupincli

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"zb.256lights.llc/lupin/internal/parsecache"
	"zombiezen.com/go/log"
)

// NewCommand returns the root lupin command.
// Configuration is read from the environment and the user's configuration files
// when NewCommand is called.
func NewCommand() *cobra.Command {
	rootCommand := &cobra.Command{
		Use:           "lupin",
		Short:         "Lua 5.4 parser",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	g := defaultGlobalConfig()
	configErr := g.mergeEnvironment()
	if configErr == nil {
		configErr = g.mergeFiles(configFiles())
	}

	rootCommand.PersistentFlags().BoolVar(&g.Debug, "debug", g.Debug, "show debugging output")
	rootCommand.PersistentFlags().Var(&configFileFlag{g: g}, "config", "`path` to configuration file (can be passed multiple times)")
	rootCommand.PersistentFlags().StringVar(&g.CacheDB, "cache", g.CacheDB, "`path` to parse cache database (empty to disable)")
	rootCommand.PersistentFlags().IntVar(&g.MaxDepth, "max-depth", g.MaxDepth, "maximum syntax nesting `depth` (0 for default)")

	rootCommand.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if configErr != nil {
			return configErr
		}
		if err := g.validate(); err != nil {
			return err
		}
		InitLogging(g.Debug)
		return nil
	}

	rootCommand.AddCommand(
		newParseCommand(g),
		newCheckCommand(g),
		newTokensCommand(g),
		newServeCommand(g),
	)
	return rootCommand
}

// openCache opens the configured parse cache.
// It returns nil if the cache is disabled or cannot be created.
func (g *globalConfig) openCache(ctx context.Context) *parsecache.Cache {
	if g.CacheDB == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(g.CacheDB), 0o777); err != nil {
		log.Warnf(ctx, "Parse cache disabled: %v", err)
		return nil
	}
	return parsecache.Open(g.CacheDB)
}

// closeCache prunes c to the configured size and closes it.
// c may be nil.
func (g *globalConfig) closeCache(ctx context.Context, c *parsecache.Cache) {
	if c == nil {
		return
	}
	if _, err := c.Prune(ctx, g.CacheSize); err != nil {
		log.Warnf(ctx, "%v", err)
	}
	if err := c.Close(); err != nil {
		log.Warnf(ctx, "%v", err)
	}
}

var initLogOnce sync.Once

// InitLogging installs the process-wide logger.
// Only the first call has any effect.
func InitLogging(showDebug bool) {
	initLogOnce.Do(func() {
		minLogLevel := log.Info
		if showDebug {
			minLogLevel = log.Debug
		}
		log.SetDefault(&log.LevelFilter{
			Min:    minLogLevel,
			Output: log.New(os.Stderr, "lupin: ", log.StdFlags, nil),
		})
	})
}
