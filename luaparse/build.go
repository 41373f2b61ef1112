// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package luaparse

import (
	"github.com/cockroachdb/errors"
	"zb.256lights.llc/lupin/internal/lualex"
	"zb.256lights.llc/lupin/internal/luaop"
	"zb.256lights.llc/lupin/internal/peg"
	"zb.256lights.llc/lupin/luaast"
)

// builder converts grammar matches into syntax tree nodes
// and resolves each name to a local, an upvalue, or a global.
type builder struct {
	g      *grammar
	tokens []lualex.Token

	// vars is the stack of local variables in scope, innermost last.
	vars []localVar
	// fnDepth is the number of function bodies enclosing the current position.
	fnDepth int

	onStatement func(luaast.Stmt) error
}

type localVar struct {
	name    string
	fnDepth int
}

// fail panics with an internal consistency error.
func (b *builder) fail(err error) {
	panic(err)
}

// tokenSpan returns the span of tokens[start:end].
// An empty range is placed at the end of the preceding token
// so that it lies within the construct that contains it.
func (b *builder) tokenSpan(start, end int) luaast.Span {
	if start >= end {
		pos := b.tokens[start].Position
		if start > 0 {
			pos = b.tokens[start-1].End
		}
		return luaast.Span{Start: pos, End: pos}
	}
	return luaast.Span{
		Start: b.tokens[start].Position,
		End:   b.tokens[end-1].End,
	}
}

func (b *builder) span(m *peg.Match) luaast.Span {
	return b.tokenSpan(m.Start, m.End)
}

func tokSpan(tok lualex.Token) luaast.Span {
	return luaast.Span{Start: tok.Position, End: tok.End}
}

// declare brings a new local variable into scope.
func (b *builder) declare(n *luaast.Name) {
	n.Binding = luaast.Local
	b.vars = append(b.vars, localVar{name: n.Value, fnDepth: b.fnDepth})
}

// resolve sets the binding of a name reference
// according to the variables currently in scope.
func (b *builder) resolve(n *luaast.Name) {
	for i := len(b.vars) - 1; i >= 0; i-- {
		v := b.vars[i]
		if v.name != n.Value {
			continue
		}
		if v.fnDepth == b.fnDepth {
			n.Binding = luaast.Local
		} else {
			n.Binding = luaast.Upvalue
		}
		return
	}
	n.Binding = luaast.Global
}

func newName(tok lualex.Token) *luaast.Name {
	return &luaast.Name{Span: tokSpan(tok), Value: tok.Value}
}

// nameRef returns a reference to the variable named by tok.
func (b *builder) nameRef(tok lualex.Token) *luaast.Name {
	n := newName(tok)
	b.resolve(n)
	return n
}

func stringLiteral(tok lualex.Token) *luaast.Literal {
	return &luaast.Literal{
		Span:   tokSpan(tok),
		Kind:   luaast.StringLiteral,
		String: tok.Value,
	}
}

// chunk builds a [*luaast.Chunk] from a Chunk match.
// If the builder has a statement hook,
// top-level statements are passed to it instead of being kept in the tree.
func (b *builder) chunk(m *peg.Match) (*luaast.Chunk, error) {
	eof := b.tokens[len(b.tokens)-1].Position
	c := &luaast.Chunk{
		Span: luaast.Span{
			Start: lualex.Position{Offset: 0, Line: 1, Column: 1},
			End:   eof,
		},
		Block: &luaast.Block{Span: b.span(m)},
	}
	var hookErr error
	b.eachStatement(m, func(stmt luaast.Stmt) bool {
		if b.onStatement == nil {
			c.Block.Stmts = append(c.Block.Stmts, stmt)
			return true
		}
		hookErr = b.onStatement(stmt)
		return hookErr == nil
	})
	if hookErr != nil {
		return nil, hookErr
	}
	return c, nil
}

// block builds a block in a new scope.
func (b *builder) block(m *peg.Match) *luaast.Block {
	mark := len(b.vars)
	blk := b.blockInScope(m)
	b.vars = b.vars[:mark]
	return blk
}

// blockInScope builds a block without closing its scope,
// leaving its local variables visible to the caller.
func (b *builder) blockInScope(m *peg.Match) *luaast.Block {
	blk := &luaast.Block{Span: b.span(m)}
	b.eachStatement(m, func(stmt luaast.Stmt) bool {
		blk.Stmts = append(blk.Stmts, stmt)
		return true
	})
	return blk
}

// eachStatement builds the statements of a Block match in order,
// stopping early if yield returns false.
func (b *builder) eachStatement(m *peg.Match, yield func(luaast.Stmt) bool) {
	for _, sm := range m.Children[0].Children {
		stmt := b.statement(sm)
		if stmt == nil {
			continue
		}
		if !yield(stmt) {
			return
		}
	}
	if ret := m.Children[1]; len(ret.Children) > 0 {
		yield(b.returnStat(ret.Children[0]))
	}
}

// singleStatement builds the statement in a SingleStatement match.
func (b *builder) singleStatement(m *peg.Match) luaast.Stmt {
	c := m.Children[1].Chosen()
	if c.Is(b.g.returnStat) {
		return b.returnStat(c)
	}
	return b.statement(c)
}

// statement builds a Statement match.
// It returns nil for an empty statement.
func (b *builder) statement(m *peg.Match) luaast.Stmt {
	c := m.Chosen()
	span := b.span(c)
	switch c.Rule {
	case b.g.emptyStat:
		return nil
	case b.g.localFunction:
		n := newName(c.Children[2].Token)
		b.declare(n)
		return &luaast.FunctionDecl{
			Span:   span,
			Local:  true,
			Target: n,
			Func:   b.funcBody(c.Children[3], false),
		}
	case b.g.localDecl:
		return b.localDecl(c)
	case b.g.functionDecl:
		return b.functionDecl(c)
	case b.g.ifStat:
		return b.ifStat(c)
	case b.g.whileStat:
		return &luaast.While{
			Span: span,
			Cond: b.expression(c.Children[1]),
			Body: b.block(c.Children[3]),
		}
	case b.g.numericFor:
		stmt := &luaast.NumericFor{
			Span:  span,
			Var:   newName(c.Children[1].Token),
			Start: b.expression(c.Children[3]),
			Limit: b.expression(c.Children[5]),
		}
		if step := c.Children[6]; len(step.Children) > 0 {
			stmt.Step = b.expression(step.Children[0].Children[1])
		}
		mark := len(b.vars)
		b.declare(stmt.Var)
		stmt.Body = b.block(c.Children[8])
		b.vars = b.vars[:mark]
		return stmt
	case b.g.genericFor:
		stmt := &luaast.GenericFor{
			Span:   span,
			Values: b.exprList(c.Children[3]),
		}
		mark := len(b.vars)
		stmt.Names = b.nameList(c.Children[1])
		for _, n := range stmt.Names {
			b.declare(n)
		}
		stmt.Body = b.block(c.Children[5])
		b.vars = b.vars[:mark]
		return stmt
	case b.g.repeatStat:
		mark := len(b.vars)
		stmt := &luaast.Repeat{
			Span: span,
			Body: b.blockInScope(c.Children[1]),
		}
		stmt.Cond = b.expression(c.Children[3])
		b.vars = b.vars[:mark]
		return stmt
	case b.g.doStat:
		return &luaast.Do{
			Span: span,
			Body: b.block(c.Children[1]),
		}
	case b.g.breakStat:
		return &luaast.Break{Span: span}
	case b.g.gotoStat:
		return &luaast.Goto{
			Span:  span,
			Label: c.Children[1].Token.Value,
		}
	case b.g.labelStat:
		return &luaast.Label{
			Span: span,
			Name: c.Children[1].Token.Value,
		}
	case b.g.assignStat:
		stmt := &luaast.Assign{
			Span:    span,
			Targets: []luaast.Expr{b.suffixedExpr(c.Children[0].Chosen())},
		}
		for _, rest := range c.Children[1].Children {
			stmt.Targets = append(stmt.Targets, b.suffixedExpr(rest.Children[1].Chosen()))
		}
		stmt.Values = b.exprList(c.Children[3])
		return stmt
	case b.g.callStat:
		return &luaast.ExprStatement{
			Span: span,
			Call: b.suffixedExpr(c.Chosen()),
		}
	default:
		b.fail(errors.AssertionFailedf("build statement: unhandled rule %v", c.Rule))
		return nil
	}
}

func (b *builder) localDecl(m *peg.Match) *luaast.LocalDecl {
	stmt := &luaast.LocalDecl{
		Span:  b.span(m),
		Names: []*luaast.LocalName{b.attribName(m.Children[1])},
	}
	for _, rest := range m.Children[2].Children {
		stmt.Names = append(stmt.Names, b.attribName(rest.Children[1]))
	}
	// Initializers are evaluated before the new names come into scope.
	if init := m.Children[3]; len(init.Children) > 0 {
		stmt.Values = b.exprList(init.Children[0].Children[1])
	}
	for _, ln := range stmt.Names {
		b.declare(ln.Name)
	}
	return stmt
}

func (b *builder) attribName(m *peg.Match) *luaast.LocalName {
	ln := &luaast.LocalName{
		Span: b.span(m),
		Name: newName(m.Children[0].Token),
	}
	if attrib := m.Children[1]; len(attrib.Children) > 0 {
		ln.Attrib = attrib.Children[0].Children[1].Chosen().Token.Value
	}
	return ln
}

func (b *builder) functionDecl(m *peg.Match) *luaast.FunctionDecl {
	fn := m.Children[1]
	var target luaast.Expr = b.nameRef(fn.Children[0].Token)
	index := func(keyToken lualex.Token) {
		key := stringLiteral(keyToken)
		target = &luaast.Index{
			Span:   luaast.Span{Start: luaast.SpanOf(target).Start, End: key.Span.End},
			Object: target,
			Key:    key,
		}
	}
	for _, field := range fn.Children[1].Children {
		index(field.Children[1].Token)
	}
	isMethod := false
	if method := fn.Children[2]; len(method.Children) > 0 {
		index(method.Children[0].Children[1].Token)
		isMethod = true
	}
	return &luaast.FunctionDecl{
		Span:   b.span(m),
		Target: target,
		Func:   b.funcBody(m.Children[2], isMethod),
	}
}

func (b *builder) ifStat(m *peg.Match) *luaast.If {
	elseIfs := m.Children[4]
	stmt := &luaast.If{
		Span: b.span(m),
		Clauses: []*luaast.IfClause{{
			Span: b.tokenSpan(m.Start, elseIfs.Start),
			Cond: b.expression(m.Children[1]),
			Body: b.block(m.Children[3]),
		}},
	}
	for _, c := range elseIfs.Children {
		stmt.Clauses = append(stmt.Clauses, &luaast.IfClause{
			Span: b.span(c),
			Cond: b.expression(c.Children[1]),
			Body: b.block(c.Children[3]),
		})
	}
	if elseClause := m.Children[5]; len(elseClause.Children) > 0 {
		stmt.Else = b.block(elseClause.Children[0].Children[1])
	}
	return stmt
}

func (b *builder) returnStat(m *peg.Match) *luaast.Return {
	stmt := &luaast.Return{Span: b.span(m)}
	if values := m.Children[1]; len(values.Children) > 0 {
		stmt.Values = b.exprList(values.Children[0])
	}
	return stmt
}

// funcBody builds a FuncBody match
// in a new function scope containing its parameters.
func (b *builder) funcBody(m *peg.Match, isMethod bool) *luaast.FunctionExpr {
	mark := len(b.vars)
	b.fnDepth++
	defer func() {
		b.fnDepth--
		b.vars = b.vars[:mark]
	}()

	fn := &luaast.FunctionExpr{
		Span:     b.span(m),
		IsMethod: isMethod,
	}
	if isMethod {
		b.vars = append(b.vars, localVar{name: "self", fnDepth: b.fnDepth})
	}
	if params := m.Children[1]; len(params.Children) > 0 {
		list := params.Children[0]
		if list.Alt == 0 {
			named := list.Chosen()
			fn.Params = append(fn.Params, newName(named.Children[0].Token))
			for _, rest := range named.Children[1].Children {
				fn.Params = append(fn.Params, newName(rest.Children[1].Token))
			}
			fn.IsVararg = len(named.Children[2].Children) > 0
		} else {
			fn.IsVararg = true
		}
	}
	for _, p := range fn.Params {
		b.declare(p)
	}
	fn.Body = b.block(m.Children[3])
	return fn
}

func (b *builder) exprList(m *peg.Match) []luaast.Expr {
	list := []luaast.Expr{b.expression(m.Children[0])}
	for _, rest := range m.Children[1].Children {
		list = append(list, b.expression(rest.Children[1]))
	}
	return list
}

func (b *builder) nameList(m *peg.Match) []*luaast.Name {
	list := []*luaast.Name{newName(m.Children[0].Token)}
	for _, rest := range m.Children[1].Children {
		list = append(list, newName(rest.Children[1].Token))
	}
	return list
}

// expression builds an Expression match,
// applying operator precedence to its flat list of operands.
func (b *builder) expression(m *peg.Match) luaast.Expr {
	first := b.operand(m.Children[0])
	rest := m.Children[1].Children
	if len(rest) == 0 && len(first.Prefix) == 0 {
		return first.Expr
	}
	operands := make([]luaop.Operand, 0, len(rest)+1)
	operators := make([]lualex.Token, 0, len(rest))
	operands = append(operands, first)
	for _, pair := range rest {
		operators = append(operators, pair.Children[0].Chosen().Token)
		operands = append(operands, b.operand(pair.Children[1]))
	}
	e, err := luaop.Resolve(operands, operators)
	if err != nil {
		b.fail(err)
	}
	return e
}

func (b *builder) operand(m *peg.Match) luaop.Operand {
	var op luaop.Operand
	for _, u := range m.Children[0].Children {
		op.Prefix = append(op.Prefix, u.Chosen().Token)
	}
	op.Expr = b.simpleExpr(m.Children[1])
	return op
}

func (b *builder) simpleExpr(m *peg.Match) luaast.Expr {
	c := m.Chosen()
	switch c.Rule {
	case b.g.functionExpr:
		fn := b.funcBody(c.Children[1], false)
		fn.Span = b.span(c)
		return fn
	case b.g.tableConstructor:
		return b.tableConstructor(c)
	case b.g.suffixedExpr:
		return b.suffixedExpr(c)
	}

	tok := c.Token
	span := tokSpan(tok)
	switch tok.Kind {
	case lualex.NumeralToken:
		return b.number(tok)
	case lualex.StringToken:
		return stringLiteral(tok)
	case lualex.NilToken:
		return &luaast.Literal{Span: span, Kind: luaast.NilLiteral}
	case lualex.TrueToken:
		return &luaast.Literal{Span: span, Kind: luaast.TrueLiteral}
	case lualex.FalseToken:
		return &luaast.Literal{Span: span, Kind: luaast.FalseLiteral}
	case lualex.VarargToken:
		return &luaast.Varargs{Span: span}
	default:
		b.fail(errors.AssertionFailedf("build expression: unhandled token %v", tok.Kind))
		return nil
	}
}

// number builds a numeric literal.
func (b *builder) number(tok lualex.Token) *luaast.Literal {
	lit := &luaast.Literal{
		Span: tokSpan(tok),
		Raw:  tok.Value,
	}
	n, err := lualex.ParseNumeral(tok.Value)
	if err != nil {
		b.fail(errors.WithAssertionFailure(errors.Wrapf(err, "build numeral at %v", tok.Position)))
	}
	if n.IsFloat {
		lit.Kind = luaast.FloatLiteral
		lit.Float = n.Float
	} else {
		lit.Kind = luaast.IntegerLiteral
		lit.Int = n.Int
	}
	return lit
}

func (b *builder) suffixedExpr(m *peg.Match) luaast.Expr {
	var e luaast.Expr
	primary := m.Children[0]
	switch primary.Alt {
	case primaryName:
		e = b.nameRef(primary.Chosen().Token)
	case primaryParen:
		e = &luaast.Paren{
			Span:  b.span(primary),
			Inner: b.expression(primary.Chosen().Children[1]),
		}
	}

	for _, s := range m.Children[1].Children {
		span := luaast.Span{
			Start: luaast.SpanOf(e).Start,
			End:   b.tokens[s.End-1].End,
		}
		c := s.Chosen()
		switch s.Alt {
		case suffixField:
			e = &luaast.Index{
				Span:   span,
				Object: e,
				Key:    stringLiteral(c.Children[1].Token),
			}
		case suffixIndex:
			e = &luaast.Index{
				Span:   span,
				Object: e,
				Key:    b.expression(c.Children[1]),
			}
		case suffixMethod:
			e = &luaast.MethodCall{
				Span:     span,
				Receiver: e,
				Method:   stringLiteral(c.Children[1].Token),
				Args:     b.callArgs(c.Children[2]),
			}
		case suffixCall:
			e = &luaast.Call{
				Span: span,
				Func: e,
				Args: b.callArgs(c),
			}
		}
	}
	return e
}

func (b *builder) callArgs(m *peg.Match) []luaast.Expr {
	c := m.Chosen()
	switch {
	case c.Is(b.g.tableConstructor):
		return []luaast.Expr{b.tableConstructor(c)}
	case c.Kind == peg.TokenMatch:
		return []luaast.Expr{stringLiteral(c.Token)}
	default:
		if args := c.Children[1]; len(args.Children) > 0 {
			return b.exprList(args.Children[0])
		}
		return nil
	}
}

func (b *builder) tableConstructor(m *peg.Match) *luaast.TableConstructor {
	t := &luaast.TableConstructor{Span: b.span(m)}
	body := m.Children[1]
	if len(body.Children) == 0 {
		return t
	}
	list := body.Children[0]
	t.Fields = append(t.Fields, b.field(list.Children[0]))
	for _, rest := range list.Children[1].Children {
		t.Fields = append(t.Fields, b.field(rest.Children[1]))
	}
	return t
}

func (b *builder) field(m *peg.Match) *luaast.Field {
	f := &luaast.Field{Span: b.span(m)}
	c := m.Chosen()
	switch m.Alt {
	case 0:
		f.Kind = luaast.IndexedField
		f.Key = b.expression(c.Children[1])
		f.Value = b.expression(c.Children[4])
	case 1:
		f.Kind = luaast.NamedField
		f.Key = stringLiteral(c.Children[0].Token)
		f.Value = b.expression(c.Children[2])
	default:
		f.Kind = luaast.ListField
		f.Value = b.expression(c)
	}
	return f
}
