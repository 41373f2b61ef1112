// Copyright 2025 The zb Authors
// SPDX-License-Identifier: MIT

package lupincli

import (
	"context"
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"zb.256lights.llc/lupin/luaparse"
	"zombiezen.com/go/log"
)

type checkOptions struct {
	jobs  int
	files []string
}

func newCheckCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "check [options] FILE [...]",
		Short:                 "check Lua source files for syntax errors",
		DisableFlagsInUseLine: true,
		Args:                  cobra.MinimumNArgs(1),
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	opts := new(checkOptions)
	c.Flags().IntVarP(&opts.jobs, "jobs", "j", runtime.NumCPU(), "maximum `number` of files to parse concurrently")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		opts.files = args
		return runCheck(cmd.Context(), g, opts, cmd.InOrStdin(), cmd.OutOrStdout())
	}
	return c
}

func runCheck(ctx context.Context, g *globalConfig, opts *checkOptions, stdin io.Reader, stdout io.Writer) error {
	if opts.jobs < 1 {
		return fmt.Errorf("--jobs must be positive (got %d)", opts.jobs)
	}
	stdinArgs := 0
	for _, path := range opts.files {
		if path == "-" {
			stdinArgs++
		}
	}
	if stdinArgs > 1 {
		return fmt.Errorf("stdin (-) given %d times", stdinArgs)
	}

	// Each file's error is stored at the file's index
	// so that they can be reported in argument order.
	results := make([]error, len(opts.files))
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(opts.jobs)
	for i, path := range opts.files {
		if grpCtx.Err() != nil {
			break
		}
		grp.Go(func() error {
			source, name, err := readSource(path, stdin)
			if err != nil {
				return err
			}
			log.Debugf(grpCtx, "Checking %s", name)
			_, results[i] = luaparse.Parse(source, &luaparse.Options{
				Name:     name,
				MaxDepth: g.MaxDepth,
			})
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	failed := 0
	for _, err := range results {
		if err == nil {
			continue
		}
		failed++
		if _, err := fmt.Fprintln(stdout, err); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files have errors", failed, len(opts.files))
	}
	return nil
}
