// Copyright 2025 The zb Authors
// SPDX-License-Identifier: MIT

package lupincli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"zb.256lights.llc/lupin/luaparse"
)

type parseOptions struct {
	rule   luaparse.Rule
	format outputFormat
	pretty bool
	files  []string
}

func newParseCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "parse [options] FILE [...]",
		Short:                 "print the syntax tree of Lua source files",
		DisableFlagsInUseLine: true,
		Args:                  cobra.MinimumNArgs(1),
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	opts := &parseOptions{
		rule:   luaparse.ChunkRule,
		format: formatJSON,
	}
	c.Flags().VarP((*ruleFlag)(&opts.rule), "rule", "r", "grammar `rule` to parse (chunk, block, statement, or expression)")
	c.Flags().VarP((*formatFlag)(&opts.format), "format", "f", "output `format` (json or lua)")
	c.Flags().BoolVar(&opts.pretty, "pretty", false, "indent JSON output (default true if stdout is a terminal)")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		opts.files = args
		if !cmd.Flags().Changed("pretty") {
			opts.pretty = isTerminal(cmd.OutOrStdout())
		}
		return runParse(cmd.Context(), g, opts, cmd.InOrStdin(), cmd.OutOrStdout())
	}
	return c
}

func runParse(ctx context.Context, g *globalConfig, opts *parseOptions, stdin io.Reader, stdout io.Writer) error {
	cache := g.openCache(ctx)
	defer g.closeCache(ctx, cache)
	r := &renderer{cache: cache}

	for _, path := range opts.files {
		source, name, err := readSource(path, stdin)
		if err != nil {
			return err
		}
		output, err := r.render(ctx, source, &renderOptions{
			name:     name,
			rule:     opts.rule,
			format:   opts.format,
			maxDepth: g.MaxDepth,
			pretty:   opts.pretty,
		})
		if err != nil {
			return err
		}
		if _, err := stdout.Write(output); err != nil {
			return err
		}
	}
	return nil
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
