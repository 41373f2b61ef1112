// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

// Package luaparse parses Lua 5.4 source into [luaast] syntax trees.
//
// The whole input is tokenized up front,
// matched against a packrat grammar,
// and then converted into a tree in which every name
// is resolved to a local variable, an upvalue, or a global.
package luaparse

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"zb.256lights.llc/lupin/internal/lualex"
	"zb.256lights.llc/lupin/internal/peg"
	"zb.256lights.llc/lupin/luaast"
)

// DefaultMaxDepth is the nesting limit used when [Options.MaxDepth] is zero.
const DefaultMaxDepth = peg.DefaultMaxDepth

// Options is the set of optional parameters to the parse functions.
// A nil *Options is equivalent to the zero value.
type Options struct {
	// Name is the name of the source used in error messages,
	// typically a file name.
	Name string
	// MaxDepth is the maximum number of nested statements and expressions.
	// Zero means [DefaultMaxDepth].
	MaxDepth int
	// If OnStatement is not nil,
	// then [Parse] calls it with each top-level statement in source order
	// instead of retaining the statements in the returned chunk.
	// If OnStatement returns an error, Parse stops and returns it.
	OnStatement func(luaast.Stmt) error
}

func (opts *Options) name() string {
	if opts == nil || opts.Name == "" {
		return "?"
	}
	return opts.Name
}

// Rule is a grammar start symbol accepted by [ParseRule].
type Rule int

// [Rule] values.
const (
	// ChunkRule parses a whole source file into a [*luaast.Chunk].
	ChunkRule Rule = iota // chunk
	// BlockRule parses a sequence of statements into a [*luaast.Block].
	BlockRule // block
	// StatementRule parses a single statement (optionally surrounded by semicolons)
	// into a [luaast.Stmt].
	StatementRule // statement
	// ExpressionRule parses a single expression into a [luaast.Expr].
	ExpressionRule // expression
)

// String returns the rule's name as accepted by [ParseRuleName].
func (r Rule) String() string {
	switch r {
	case ChunkRule:
		return "chunk"
	case BlockRule:
		return "block"
	case StatementRule:
		return "statement"
	case ExpressionRule:
		return "expression"
	default:
		return fmt.Sprintf("Rule(%d)", int(r))
	}
}

// ParseRuleName returns the [Rule] with the given name.
func ParseRuleName(s string) (Rule, error) {
	for r := ChunkRule; r <= ExpressionRule; r++ {
		if strings.EqualFold(s, r.String()) {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown rule %q", s)
}

// Parse parses a complete Lua source file.
// Any error returned will be of type [*Error],
// or the error returned by [Options.OnStatement].
func Parse(source string, opts *Options) (*luaast.Chunk, error) {
	n, err := ParseRule(source, ChunkRule, opts)
	if err != nil {
		return nil, err
	}
	return n.(*luaast.Chunk), nil
}

// ParseExpression parses source as a single Lua expression.
// Any error returned will be of type [*Error].
func ParseExpression(source string, opts *Options) (luaast.Expr, error) {
	n, err := ParseRule(source, ExpressionRule, opts)
	if err != nil {
		return nil, err
	}
	return n.(luaast.Expr), nil
}

// ParseRule parses source as the given grammar rule.
// The rule must match the entire input.
// The returned node is a [*luaast.Chunk] for [ChunkRule],
// a [*luaast.Block] for [BlockRule],
// a [luaast.Stmt] for [StatementRule],
// or a [luaast.Expr] for [ExpressionRule].
// [Options.OnStatement] only applies to [ChunkRule].
func ParseRule(source string, rule Rule, opts *Options) (luaast.Node, error) {
	g := luaGrammar()
	var start *peg.Named
	switch rule {
	case ChunkRule:
		start = g.chunk
	case BlockRule:
		start = g.block
	case StatementRule:
		start = g.singleStatement
	case ExpressionRule:
		start = g.expression
	default:
		return nil, fmt.Errorf("parse %s: unknown %v", opts.name(), rule)
	}

	tokens, lexErr := tokenize(source)
	if lexErr != nil {
		return nil, &Error{
			Kind:     LexicalError,
			Name:     opts.name(),
			Position: lexErr.Position,
			Rule:     rule.String(),
			Msg:      lexErr.Msg,
		}
	}

	pegOpts := new(peg.Options)
	if opts != nil {
		pegOpts.MaxDepth = opts.MaxDepth
	}
	m, err := peg.Parse(start, tokens, pegOpts)
	if err != nil {
		return nil, newMatchError(opts.name(), tokens, err)
	}

	b := &builder{
		g:      g,
		tokens: tokens,
	}
	switch rule {
	case ChunkRule:
		if opts != nil {
			b.onStatement = opts.OnStatement
		}
		c, err := b.chunk(m)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", opts.name(), err)
		}
		return c, nil
	case BlockRule:
		return b.block(m), nil
	case StatementRule:
		return b.singleStatement(m), nil
	default:
		return b.expression(m), nil
	}
}

// tokenize scans the whole of source, dropping comments.
// The returned slice always ends with an [lualex.EOFToken].
func tokenize(source string) ([]lualex.Token, *lualex.Error) {
	s := lualex.NewScanner(strings.NewReader(source))
	var tokens []lualex.Token
	for {
		tok, err := s.Scan()
		if err == io.EOF {
			eof := s.Offset()
			return append(tokens, lualex.Token{Kind: lualex.EOFToken, Position: eof, End: eof}), nil
		}
		if err != nil {
			var lexErr *lualex.Error
			if !errors.As(err, &lexErr) {
				pos := tok.Position
				if !pos.IsValid() {
					pos = s.Offset()
				}
				lexErr = &lualex.Error{Position: pos, Msg: err.Error()}
			}
			return nil, lexErr
		}
		tokens = append(tokens, tok)
	}
}
