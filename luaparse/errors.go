// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package luaparse

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"zb.256lights.llc/lupin/internal/lualex"
	"zb.256lights.llc/lupin/internal/peg"
)

// ErrorKind is an enumeration of the reasons a parse can fail.
type ErrorKind int

// [ErrorKind] values.
const (
	// LexicalError indicates malformed tokens,
	// like an unfinished string or an invalid escape sequence.
	LexicalError ErrorKind = 1 + iota
	// SyntaxError indicates tokens that do not form a valid program.
	SyntaxError
	// DepthError indicates that the source nests too deeply.
	DepthError
)

func (k ErrorKind) String() string {
	switch k {
	case LexicalError:
		return "lexical error"
	case SyntaxError:
		return "syntax error"
	case DepthError:
		return "depth error"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is the error type returned by the parse functions
// for invalid source.
type Error struct {
	Kind ErrorKind
	// Name is the source name from [Options.Name].
	Name string
	// Position is the location of the error.
	// For a [SyntaxError], it is the start of the first token that could not be matched.
	Position lualex.Position
	// Rule is the name of the innermost grammar rule
	// that had matched at least one token when the error occurred.
	// It is empty if the error occurred at the start of the input.
	// For a [LexicalError], it is the name of the requested [Rule].
	Rule string
	// Context is the keyword or bracket that opened the construct
	// whose closing token was expected, like "if" or "(".
	// ContextPosition is the location of that token.
	Context         string
	ContextPosition lualex.Position
	// Expected lists the tokens and constructs
	// that would have allowed parsing to continue.
	Expected []string
	// Found describes the token at Position.
	Found string
	// Msg is the human-readable description of the error.
	Msg string
}

func (e *Error) Error() string {
	sb := new(strings.Builder)
	sb.WriteString(e.Name)
	if e.Position.IsValid() {
		sb.WriteString(":")
		sb.WriteString(e.Position.String())
	}
	sb.WriteString(": ")
	sb.WriteString(e.Msg)
	return sb.String()
}

// closers maps tokens that open a construct to the token that closes it.
var closers = map[lualex.TokenKind]lualex.TokenKind{
	lualex.IfToken:       lualex.EndToken,
	lualex.WhileToken:    lualex.EndToken,
	lualex.ForToken:      lualex.EndToken,
	lualex.FunctionToken: lualex.EndToken,
	lualex.DoToken:       lualex.EndToken,
	lualex.RepeatToken:   lualex.UntilToken,
	lualex.LParenToken:   lualex.RParenToken,
	lualex.LBracketToken: lualex.RBracketToken,
	lualex.LBraceToken:   lualex.RBraceToken,
}

// newMatchError converts an error from [peg.Parse] into an [*Error].
func newMatchError(name string, tokens []lualex.Token, err error) error {
	var depthErr *peg.DepthError
	if errors.As(err, &depthErr) {
		tok := tokens[depthErr.Pos]
		return &Error{
			Kind:     DepthError,
			Name:     name,
			Position: tok.Position,
			Found:    describeToken(tok),
			Msg:      fmt.Sprintf("too many nested syntax levels (limit is %d) near %s", depthErr.Max, describeToken(tok)),
		}
	}
	var f *peg.Failure
	if !errors.As(err, &f) {
		return fmt.Errorf("parse %s: %w", name, err)
	}

	tok := tokens[f.Pos]
	e := &Error{
		Kind:     SyntaxError,
		Name:     name,
		Position: tok.Position,
		Expected: f.Expected,
		Found:    describeToken(tok),
	}
	if f.Rule != nil {
		e.Rule = f.Rule.Name()
	}

	for _, frame := range f.Frames {
		start := frame.Start
		if tokens[start].Kind == lualex.LocalToken && start+1 < len(tokens) && tokens[start+1].Kind == lualex.FunctionToken {
			// The function keyword opens a local function.
			start++
		}
		open := tokens[start]
		closer, ok := closers[open.Kind]
		if !ok || !slices.Contains(f.Expected, peg.Describe(closer)) {
			continue
		}
		e.Context = open.Kind.String()
		e.ContextPosition = open.Position
		if tok.Position.Line == open.Position.Line {
			e.Msg = fmt.Sprintf("'%v' expected near %s", closer, e.Found)
		} else {
			e.Msg = fmt.Sprintf("'%v' expected (to close '%v' at %v) near %s", closer, open.Kind, open.Position, e.Found)
		}
		return e
	}

	switch len(f.Expected) {
	case 0:
		e.Msg = "syntax error near " + e.Found
	case 1:
		e.Msg = f.Expected[0] + " expected near " + e.Found
	default:
		e.Msg = "syntax error near " + e.Found + " (expected " + strings.Join(f.Expected, ", ") + ")"
	}
	return e
}

// describeToken formats a token for an error message.
func describeToken(tok lualex.Token) string {
	if tok.Kind == lualex.EOFToken {
		return "<eof>"
	}
	return "'" + tok.String() + "'"
}
