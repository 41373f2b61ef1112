// Copyright 2025 The zb Authors
// SPDX-License-Identifier: MIT

package lupincli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"zb.256lights.llc/lupin/internal/lualex"
)

type tokensOptions struct {
	comments bool
	file     string
}

func newTokensCommand(g *globalConfig) *cobra.Command {
	c := &cobra.Command{
		Use:                   "tokens [options] FILE",
		Short:                 "print the tokens of a Lua source file",
		DisableFlagsInUseLine: true,
		Args:                  cobra.ExactArgs(1),
		SilenceErrors:         true,
		SilenceUsage:          true,
	}
	opts := new(tokensOptions)
	c.Flags().BoolVar(&opts.comments, "comments", false, "include comments")
	c.RunE = func(cmd *cobra.Command, args []string) error {
		opts.file = args[0]
		return runTokens(cmd.Context(), opts, cmd.InOrStdin(), cmd.OutOrStdout())
	}
	return c
}

func runTokens(ctx context.Context, opts *tokensOptions, stdin io.Reader, stdout io.Writer) error {
	source, name, err := readSource(opts.file, stdin)
	if err != nil {
		return err
	}
	s := lualex.NewScanner(strings.NewReader(source))
	if opts.comments {
		s.KeepComments()
	}
	out := bufio.NewWriter(stdout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		tok, err := s.Scan()
		if err == io.EOF {
			break
		}
		if err != nil {
			out.Flush()
			return fmt.Errorf("%s:%v", name, err)
		}
		writeToken(out, tok)
	}
	return out.Flush()
}

// writeToken writes a line describing tok to w.
// The line has the token's position and kind,
// followed by its text for tokens that carry a value.
func writeToken(w *bufio.Writer, tok lualex.Token) {
	w.WriteString(tok.Position.String())
	w.WriteString("\t")
	w.WriteString(tok.Kind.String())
	switch tok.Kind {
	case lualex.IdentifierToken, lualex.StringToken, lualex.NumeralToken, lualex.CommentToken:
		w.WriteString("\t")
		w.WriteString(tok.String())
	}
	w.WriteString("\n")
}
