// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

// Package luafmt prints [luaast] syntax trees as Lua source.
//
// The output is canonical:
// one statement per line, tab indentation,
// single spaces around binary operators,
// and double-quoted strings.
// Comments and the original layout are not preserved.
// Parsing the output of [Format] with [luaparse]
// produces a tree equal to the input except for spans.
//
// [luaparse]: https://pkg.go.dev/zb.256lights.llc/lupin/luaparse
package luafmt

import (
	"fmt"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"zb.256lights.llc/lupin/internal/lualex"
	"zb.256lights.llc/lupin/internal/luaop"
	"zb.256lights.llc/lupin/luaast"
)

// Format writes the Lua source for n to w.
// n may be a [*luaast.Chunk], a [*luaast.Block],
// a [luaast.Stmt], or a [luaast.Expr].
func Format(w io.Writer, n luaast.Node) error {
	src, err := Source(n)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, src); err != nil {
		return fmt.Errorf("format lua: %w", err)
	}
	return nil
}

// Source returns the Lua source for n as a string.
// Chunks, blocks, and statements end with a newline.
// Expressions do not.
func Source(n luaast.Node) (string, error) {
	p := new(printer)
	switch n := n.(type) {
	case *luaast.Chunk:
		p.block(n.Block)
	case *luaast.Block:
		p.block(n)
	case luaast.Stmt:
		p.stmt(n)
		p.newline()
	case luaast.Expr:
		p.expr(n, 0, false)
	default:
		return "", fmt.Errorf("format lua: unsupported node %T", n)
	}
	if p.err != nil {
		return "", fmt.Errorf("format lua: %w", p.err)
	}
	return string(p.buf), nil
}

// printer accumulates source text.
// The first error encountered is stored in err
// and later output is still produced but discarded by [Source].
type printer struct {
	buf    []byte
	indent int
	err    error
}

func (p *printer) fail(format string, args ...any) {
	if p.err == nil {
		p.err = fmt.Errorf(format, args...)
	}
}

func (p *printer) write(s string) {
	p.buf = append(p.buf, s...)
}

func (p *printer) newline() {
	p.buf = append(p.buf, '\n')
}

func (p *printer) writeIndent() {
	for range p.indent {
		p.buf = append(p.buf, '\t')
	}
}

func (p *printer) block(b *luaast.Block) {
	if b == nil {
		p.fail("nil block")
		return
	}
	for i, stmt := range b.Stmts {
		p.writeIndent()
		start := len(p.buf)
		p.stmt(stmt)
		if i > 0 && start < len(p.buf) && p.buf[start] == '(' {
			// A leading parenthesis would continue the previous statement.
			p.buf = slices.Insert(p.buf, start, ';')
		}
		p.newline()
	}
}

// body prints an indented block followed by the closing keyword.
func (p *printer) body(b *luaast.Block, closer string) {
	p.newline()
	p.indent++
	p.block(b)
	p.indent--
	p.writeIndent()
	p.write(closer)
}

func (p *printer) stmt(stmt luaast.Stmt) {
	switch stmt := stmt.(type) {
	case *luaast.Assign:
		p.exprList(stmt.Targets)
		p.write(" = ")
		p.exprList(stmt.Values)
	case *luaast.LocalDecl:
		p.write("local ")
		for i, ln := range stmt.Names {
			if i > 0 {
				p.write(", ")
			}
			p.name(ln.Name)
			if ln.Attrib != "" {
				p.write(" <" + ln.Attrib + ">")
			}
		}
		if len(stmt.Values) > 0 {
			p.write(" = ")
			p.exprList(stmt.Values)
		}
	case *luaast.If:
		if len(stmt.Clauses) == 0 {
			p.fail("if statement without clauses")
			return
		}
		for i, c := range stmt.Clauses {
			if i == 0 {
				p.write("if ")
			} else {
				p.writeIndent()
				p.write("elseif ")
			}
			p.expr(c.Cond, 0, false)
			p.write(" then")
			p.newline()
			p.indent++
			p.block(c.Body)
			p.indent--
		}
		if stmt.Else != nil {
			p.writeIndent()
			p.write("else")
			p.newline()
			p.indent++
			p.block(stmt.Else)
			p.indent--
		}
		p.writeIndent()
		p.write("end")
	case *luaast.While:
		p.write("while ")
		p.expr(stmt.Cond, 0, false)
		p.write(" do")
		p.body(stmt.Body, "end")
	case *luaast.Repeat:
		p.write("repeat")
		p.body(stmt.Body, "until ")
		p.expr(stmt.Cond, 0, false)
	case *luaast.NumericFor:
		p.write("for ")
		p.name(stmt.Var)
		p.write(" = ")
		p.expr(stmt.Start, 0, false)
		p.write(", ")
		p.expr(stmt.Limit, 0, false)
		if stmt.Step != nil {
			p.write(", ")
			p.expr(stmt.Step, 0, false)
		}
		p.write(" do")
		p.body(stmt.Body, "end")
	case *luaast.GenericFor:
		p.write("for ")
		for i, name := range stmt.Names {
			if i > 0 {
				p.write(", ")
			}
			p.name(name)
		}
		p.write(" in ")
		p.exprList(stmt.Values)
		p.write(" do")
		p.body(stmt.Body, "end")
	case *luaast.FunctionDecl:
		if stmt.Local {
			p.write("local ")
		}
		p.write("function ")
		p.funcName(stmt.Target, stmt.Func != nil && stmt.Func.IsMethod)
		p.funcBody(stmt.Func)
	case *luaast.Return:
		p.write("return")
		if len(stmt.Values) > 0 {
			p.write(" ")
			p.exprList(stmt.Values)
		}
	case *luaast.Break:
		p.write("break")
	case *luaast.Do:
		p.write("do")
		p.body(stmt.Body, "end")
	case *luaast.Goto:
		p.write("goto " + stmt.Label)
	case *luaast.Label:
		p.write("::" + stmt.Name + "::")
	case *luaast.ExprStatement:
		switch stmt.Call.(type) {
		case *luaast.Call, *luaast.MethodCall:
			p.expr(stmt.Call, 0, false)
		default:
			p.fail("expression statement with %T", stmt.Call)
		}
	default:
		p.fail("unknown statement %T", stmt)
	}
}

// funcName prints the target of a function declaration.
// For methods, the last key is written after a colon.
func (p *printer) funcName(target luaast.Expr, isMethod bool) {
	switch target := target.(type) {
	case *luaast.Name:
		if isMethod {
			p.fail("method declaration without a table")
		}
		p.name(target)
	case *luaast.Index:
		key, ok := target.Key.(*luaast.Literal)
		if !ok || key.Kind != luaast.StringLiteral || !lualex.IsName(key.String) {
			p.fail("function name key must be an identifier")
			return
		}
		p.funcName(target.Object, false)
		if isMethod {
			p.write(":")
		} else {
			p.write(".")
		}
		p.write(key.String)
	default:
		p.fail("invalid function name %T", target)
	}
}

func (p *printer) funcBody(f *luaast.FunctionExpr) {
	if f == nil || f.Body == nil {
		p.fail("incomplete function")
		return
	}
	p.write("(")
	for i, param := range f.Params {
		if i > 0 {
			p.write(", ")
		}
		p.name(param)
	}
	if f.IsVararg {
		if len(f.Params) > 0 {
			p.write(", ")
		}
		p.write("...")
	}
	p.write(")")
	if len(f.Body.Stmts) == 0 {
		p.write(" end")
		return
	}
	p.body(f.Body, "end")
}

func (p *printer) name(n *luaast.Name) {
	if n == nil || !lualex.IsName(n.Value) {
		p.fail("invalid name")
		return
	}
	p.write(n.Value)
}

func (p *printer) exprList(list []luaast.Expr) {
	for i, e := range list {
		if i > 0 {
			p.write(", ")
		}
		p.expr(e, 0, false)
	}
}

// expr prints e in a context that binds with the given precedence.
// e is parenthesized if it binds more loosely than prec.
// isRight is true when e is the right operand of a binary operator,
// where a unary operator may always appear unparenthesized.
func (p *printer) expr(e luaast.Expr, prec int, isRight bool) {
	switch e := e.(type) {
	case *luaast.BinaryOp:
		d, ok := luaop.Lookup(e.Op)
		if !ok || d.Arity != luaop.Binary {
			p.fail("%v is not a binary operator", e.Op)
			return
		}
		paren := d.Precedence < prec
		if paren {
			p.write("(")
		}
		leftPrec, rightPrec := d.Precedence, d.Precedence+1
		if d.Assoc == luaop.Right {
			leftPrec, rightPrec = d.Precedence+1, d.Precedence
		}
		p.expr(e.Left, leftPrec, false)
		p.write(" " + e.Op.String() + " ")
		p.expr(e.Right, rightPrec, true)
		if paren {
			p.write(")")
		}
	case *luaast.UnaryOp:
		if !e.Op.IsUnary() {
			p.fail("%v is not a unary operator", e.Op)
			return
		}
		paren := prec > luaop.UnaryPrecedence && !isRight
		if paren {
			p.write("(")
		}
		p.write(e.Op.String())
		if e.Op == luaast.OpNot {
			p.write(" ")
		}
		start := len(p.buf)
		p.expr(e.Operand, luaop.UnaryPrecedence, false)
		if e.Op == luaast.OpNeg && start < len(p.buf) && p.buf[start] == '-' {
			// "--" starts a comment.
			p.buf = slices.Insert(p.buf, start, ' ')
		}
		if paren {
			p.write(")")
		}
	case *luaast.Literal:
		start := len(p.buf)
		p.literal(e)
		if prec > luaop.UnaryPrecedence && !isRight && start < len(p.buf) && p.buf[start] == '-' {
			// A leading minus sign parses as a negation.
			p.buf = slices.Insert(p.buf, start, '(')
			p.write(")")
		}
	case *luaast.Varargs:
		p.write("...")
	case *luaast.FunctionExpr:
		p.write("function")
		p.funcBody(e)
	case *luaast.TableConstructor:
		p.table(e)
	case *luaast.Name, *luaast.Index, *luaast.Call, *luaast.MethodCall, *luaast.Paren:
		p.prefixExpr(e)
	case nil:
		p.fail("nil expression")
	default:
		p.fail("unknown expression %T", e)
	}
}

// prefixExpr prints an expression that can be indexed or called.
// Other expressions are wrapped in parentheses.
func (p *printer) prefixExpr(e luaast.Expr) {
	switch e := e.(type) {
	case *luaast.Name:
		p.name(e)
	case *luaast.Paren:
		p.write("(")
		p.expr(e.Inner, 0, false)
		p.write(")")
	case *luaast.Index:
		p.prefixExpr(e.Object)
		if key, ok := e.Key.(*luaast.Literal); ok && key.Kind == luaast.StringLiteral && lualex.IsName(key.String) {
			p.write("." + key.String)
		} else {
			p.write("[")
			p.expr(e.Key, 0, false)
			p.write("]")
		}
	case *luaast.Call:
		p.prefixExpr(e.Func)
		p.args(e.Args)
	case *luaast.MethodCall:
		p.prefixExpr(e.Receiver)
		if e.Method == nil || e.Method.Kind != luaast.StringLiteral || !lualex.IsName(e.Method.String) {
			p.fail("method name must be an identifier")
			return
		}
		p.write(":" + e.Method.String)
		p.args(e.Args)
	default:
		p.write("(")
		p.expr(e, 0, false)
		p.write(")")
	}
}

func (p *printer) args(args []luaast.Expr) {
	p.write("(")
	p.exprList(args)
	p.write(")")
}

func (p *printer) table(t *luaast.TableConstructor) {
	p.write("{")
	for i, f := range t.Fields {
		if i > 0 {
			p.write(", ")
		}
		switch f.Kind {
		case luaast.ListField:
			p.expr(f.Value, 0, false)
			continue
		case luaast.NamedField:
			if key, ok := f.Key.(*luaast.Literal); ok && key.Kind == luaast.StringLiteral && lualex.IsName(key.String) {
				p.write(key.String)
				break
			}
			fallthrough
		case luaast.IndexedField:
			p.write("[")
			p.expr(f.Key, 0, false)
			p.write("]")
		default:
			p.fail("unknown field kind %v", f.Kind)
		}
		p.write(" = ")
		p.expr(f.Value, 0, false)
	}
	p.write("}")
}

func (p *printer) literal(lit *luaast.Literal) {
	switch lit.Kind {
	case luaast.NilLiteral:
		p.write("nil")
	case luaast.TrueLiteral:
		p.write("true")
	case luaast.FalseLiteral:
		p.write("false")
	case luaast.StringLiteral:
		p.write(lualex.Quote(lit.String))
	case luaast.IntegerLiteral:
		switch {
		case lit.Raw != "":
			p.write(lit.Raw)
		case lit.Int < 0:
			// Wraps around to the same integer.
			p.write("0x" + strconv.FormatUint(uint64(lit.Int), 16))
		default:
			p.write(strconv.FormatInt(lit.Int, 10))
		}
	case luaast.FloatLiteral:
		if lit.Raw != "" {
			p.write(lit.Raw)
		} else {
			p.write(formatFloat(lit.Float))
		}
	default:
		p.fail("unknown literal kind %v", lit.Kind)
	}
}

// formatFloat returns a numeral that scans as a float with the value f.
// Negative values are written with a leading minus sign,
// which Lua parses as a negation,
// so callers must parenthesize them where a negation would bind differently.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "(0/0)"
	case math.IsInf(f, 1):
		return "1e9999"
	case math.IsInf(f, -1):
		return "-1e9999"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
