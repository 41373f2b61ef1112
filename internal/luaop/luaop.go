// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

// Package luaop describes Lua's operators
// and builds correctly nested expression trees
// from flat sequences of operands and operators.
package luaop

import (
	"github.com/cockroachdb/errors"
	"zb.256lights.llc/lupin/internal/lualex"
	"zb.256lights.llc/lupin/luaast"
)

// Assoc is an operator's associativity.
type Assoc int

// [Assoc] values.
const (
	Left Assoc = iota
	Right
)

// Arity is the number of operands an operator takes.
type Arity int

// [Arity] values.
const (
	Unary  Arity = 1
	Binary Arity = 2
)

// UnaryPrecedence is the precedence of every unary operator.
// Only exponentiation binds more tightly.
const UnaryPrecedence = 11

// Descriptor describes a single operator.
type Descriptor struct {
	Op    luaast.Operator
	Token lualex.TokenKind
	// Precedence is the operator's binding strength, from 1 ("or") to 12 ("^").
	Precedence int
	Assoc      Assoc
	Arity      Arity
}

var descriptors = [...]Descriptor{
	{luaast.OpOr, lualex.OrToken, 1, Left, Binary},
	{luaast.OpAnd, lualex.AndToken, 2, Left, Binary},
	{luaast.OpLess, lualex.LessToken, 3, Left, Binary},
	{luaast.OpGreater, lualex.GreaterToken, 3, Left, Binary},
	{luaast.OpLessEqual, lualex.LessEqualToken, 3, Left, Binary},
	{luaast.OpGreaterEqual, lualex.GreaterEqualToken, 3, Left, Binary},
	{luaast.OpNotEqual, lualex.NotEqualToken, 3, Left, Binary},
	{luaast.OpEqual, lualex.EqualToken, 3, Left, Binary},
	{luaast.OpBitOr, lualex.BitOrToken, 4, Left, Binary},
	{luaast.OpBitXor, lualex.BitXorToken, 5, Left, Binary},
	{luaast.OpBitAnd, lualex.BitAndToken, 6, Left, Binary},
	{luaast.OpShiftLeft, lualex.LShiftToken, 7, Left, Binary},
	{luaast.OpShiftRight, lualex.RShiftToken, 7, Left, Binary},
	{luaast.OpConcat, lualex.ConcatToken, 8, Right, Binary},
	{luaast.OpAdd, lualex.AddToken, 9, Left, Binary},
	{luaast.OpSub, lualex.SubToken, 9, Left, Binary},
	{luaast.OpMul, lualex.MulToken, 10, Left, Binary},
	{luaast.OpDiv, lualex.DivToken, 10, Left, Binary},
	{luaast.OpIntDiv, lualex.IntDivToken, 10, Left, Binary},
	{luaast.OpMod, lualex.ModToken, 10, Left, Binary},
	{luaast.OpPow, lualex.PowToken, 12, Right, Binary},

	{luaast.OpNot, lualex.NotToken, UnaryPrecedence, Right, Unary},
	{luaast.OpLen, lualex.LenToken, UnaryPrecedence, Right, Unary},
	{luaast.OpNeg, lualex.SubToken, UnaryPrecedence, Right, Unary},
	{luaast.OpBitNot, lualex.BitXorToken, UnaryPrecedence, Right, Unary},
}

var (
	binaryByToken = make(map[lualex.TokenKind]*Descriptor)
	unaryByToken  = make(map[lualex.TokenKind]*Descriptor)
	byOperator    = make(map[luaast.Operator]*Descriptor)
)

func init() {
	for i := range descriptors {
		d := &descriptors[i]
		if d.Arity == Unary {
			unaryByToken[d.Token] = d
		} else {
			binaryByToken[d.Token] = d
		}
		byOperator[d.Op] = d
	}
}

// BinaryToken returns the descriptor of the binary operator
// spelled by the given token kind.
func BinaryToken(kind lualex.TokenKind) (Descriptor, bool) {
	d, ok := binaryByToken[kind]
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

// UnaryToken returns the descriptor of the unary operator
// spelled by the given token kind.
func UnaryToken(kind lualex.TokenKind) (Descriptor, bool) {
	d, ok := unaryByToken[kind]
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

// Lookup returns the descriptor for op.
func Lookup(op luaast.Operator) (Descriptor, bool) {
	d, ok := byOperator[op]
	if !ok {
		return Descriptor{}, false
	}
	return *d, true
}

// BinaryTokens returns the token kinds of every binary operator.
func BinaryTokens() []lualex.TokenKind {
	var kinds []lualex.TokenKind
	for _, d := range descriptors {
		if d.Arity == Binary {
			kinds = append(kinds, d.Token)
		}
	}
	return kinds
}

// UnaryTokens returns the token kinds of every unary operator.
func UnaryTokens() []lualex.TokenKind {
	var kinds []lualex.TokenKind
	for _, d := range descriptors {
		if d.Arity == Unary {
			kinds = append(kinds, d.Token)
		}
	}
	return kinds
}

// Operand is a single operand of an expression
// along with the unary operators written before it.
type Operand struct {
	// Prefix is the sequence of unary operator tokens in source order.
	Prefix []lualex.Token
	Expr   luaast.Expr
}

// Resolve builds the expression tree for
//
//	operands[0] operators[0] operands[1] ... operators[n-1] operands[n]
//
// using Lua's precedence and associativity rules.
// Unary prefixes bind more tightly than every binary operator except "^":
// "-x^2" is "-(x^2)".
//
// Resolve returns an assertion failure (see [errors.HasAssertionFailure])
// if the input is malformed:
// if len(operators) != len(operands)-1,
// if an operand is nil,
// or if a token is not an operator of the expected arity.
func Resolve(operands []Operand, operators []lualex.Token) (luaast.Expr, error) {
	if len(operands) == 0 {
		return nil, errors.AssertionFailedf("resolve expression: no operands")
	}
	if len(operators) != len(operands)-1 {
		return nil, errors.AssertionFailedf("resolve expression: %d operators for %d operands", len(operators), len(operands))
	}
	r := &resolver{
		operands:  operands,
		operators: operators,
	}
	e, err := r.subexpr(0)
	if err != nil {
		return nil, err
	}
	if r.next != len(operands) {
		return nil, errors.AssertionFailedf("resolve expression: %d operands left over", len(operands)-r.next)
	}
	return e, nil
}

type resolver struct {
	operands  []Operand
	operators []lualex.Token

	next   int // index of the operand being consumed
	prefix int // number of prefix operators of operands[next] consumed
}

// subexpr consumes an operand and every following binary operator
// that binds more tightly than limit.
func (r *resolver) subexpr(limit int) (luaast.Expr, error) {
	operand := r.operands[r.next]
	var left luaast.Expr
	if r.prefix < len(operand.Prefix) {
		tok := operand.Prefix[r.prefix]
		d, ok := unaryByToken[tok.Kind]
		if !ok {
			return nil, errors.AssertionFailedf("resolve expression: %v at %v is not a unary operator", tok.Kind, tok.Position)
		}
		r.prefix++
		inner, err := r.subexpr(UnaryPrecedence)
		if err != nil {
			return nil, err
		}
		left = &luaast.UnaryOp{
			Span:    luaast.Span{Start: tok.Position, End: luaast.SpanOf(inner).End},
			Op:      d.Op,
			Operand: inner,
		}
	} else {
		if operand.Expr == nil {
			return nil, errors.AssertionFailedf("resolve expression: operand %d is nil", r.next)
		}
		left = operand.Expr
		r.next++
		r.prefix = 0
	}

	// Operator i sits between operands i and i+1.
	for r.next > 0 && r.next-1 < len(r.operators) && r.prefix == 0 {
		tok := r.operators[r.next-1]
		d, ok := binaryByToken[tok.Kind]
		if !ok {
			return nil, errors.AssertionFailedf("resolve expression: %v at %v is not a binary operator", tok.Kind, tok.Position)
		}
		if d.Precedence <= limit {
			break
		}
		rightLimit := d.Precedence
		if d.Assoc == Right {
			rightLimit--
		}
		right, err := r.subexpr(rightLimit)
		if err != nil {
			return nil, err
		}
		left = &luaast.BinaryOp{
			Span:  luaast.Span{Start: luaast.SpanOf(left).Start, End: luaast.SpanOf(right).End},
			Op:    d.Op,
			Left:  left,
			Right: right,
		}
	}
	return left, nil
}
