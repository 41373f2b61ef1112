// Copyright 2025 The zb Authors
// SPDX-License-Identifier: MIT

package lupincli

import (
	"context"
	"fmt"
	"io"
	"os"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"zb.256lights.llc/lupin/internal/parsecache"
	"zb.256lights.llc/lupin/luaast"
	"zb.256lights.llc/lupin/luafmt"
	"zb.256lights.llc/lupin/luaparse"
	"zombiezen.com/go/log"
)

type renderOptions struct {
	name     string
	rule     luaparse.Rule
	format   outputFormat
	maxDepth int
	// pretty enables multi-line JSON output.
	pretty bool
}

// variant returns a string that identifies the options
// that affect rendered output.
func (opts *renderOptions) variant() string {
	return fmt.Sprintf("%v;maxDepth=%d;pretty=%t", opts.format, opts.maxDepth, opts.pretty)
}

// renderer parses Lua source and renders the resulting syntax tree.
// Successful results are stored in cache if it is not nil.
type renderer struct {
	cache *parsecache.Cache
}

func (r *renderer) render(ctx context.Context, source string, opts *renderOptions) ([]byte, error) {
	var key parsecache.Key
	if r.cache != nil {
		key = parsecache.NewKey(source, opts.rule.String(), opts.variant())
		output, found, err := r.cache.Get(ctx, key)
		if err != nil {
			log.Warnf(ctx, "%v", err)
		} else if found {
			return output, nil
		}
	}

	n, err := luaparse.ParseRule(source, opts.rule, &luaparse.Options{
		Name:     opts.name,
		MaxDepth: opts.maxDepth,
	})
	if err != nil {
		return nil, err
	}
	output, err := renderNode(n, opts)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Put(ctx, key, output); err != nil {
			log.Warnf(ctx, "%v", err)
		}
	}
	return output, nil
}

// renderNode renders n in the requested format.
// The output always ends in a newline.
func renderNode(n luaast.Node, opts *renderOptions) ([]byte, error) {
	switch opts.format {
	case formatJSON:
		var jsonOpts []jsonv2.Options
		if opts.pretty {
			jsonOpts = append(jsonOpts, jsontext.WithIndent("  "))
		}
		output, err := luaast.MarshalJSON(n, jsonOpts...)
		if err != nil {
			return nil, err
		}
		return append(output, '\n'), nil
	case formatLua:
		src, err := luafmt.Source(n)
		if err != nil {
			return nil, err
		}
		if _, isExpr := n.(luaast.Expr); isExpr {
			src += "\n"
		}
		return []byte(src), nil
	default:
		return nil, fmt.Errorf("render: unknown format %v", opts.format)
	}
}

// readSource reads the Lua source named by path
// and returns it along with the name to use in error messages.
// The path "-" reads from stdin.
func readSource(path string, stdin io.Reader) (source, name string, err error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %v", err)
		}
		return string(data), "stdin", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", err
	}
	return string(data), path, nil
}
