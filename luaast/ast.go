// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

// Package luaast declares the types used to represent syntax trees for Lua 5.4 source.
//
// Every node records the source range it was parsed from in its Span field.
// A node's span contains the spans of all its children,
// and the spans of sibling nodes are ordered and do not overlap.
package luaast

import (
	"zb.256lights.llc/lupin/internal/lualex"
)

// Position is a location in Lua source.
type Position = lualex.Position

// Span is a half-open range of source positions [Start, End).
type Span struct {
	Start Position
	End   Position
}

// Contains reports whether inner lies entirely within span.
func (span Span) Contains(inner Span) bool {
	return span.Start.Offset <= inner.Start.Offset && inner.End.Offset <= span.End.Offset
}

func (span Span) String() string {
	return span.Start.String() + "-" + span.End.String()
}

// Node is the interface implemented by all syntax tree nodes.
// The set of node types is closed: only types in this package implement Node.
type Node interface {
	span() Span
}

// SpanOf returns the source range of n.
func SpanOf(n Node) Span {
	return n.span()
}

// Stmt is the interface implemented by all statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// Expr is the interface implemented by all expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Chunk is a complete unit of Lua source.
type Chunk struct {
	Span  Span
	Block *Block
}

// Block is a sequence of statements sharing a lexical scope.
// Empty statements (";") do not appear in Stmts.
type Block struct {
	Span  Span
	Stmts []Stmt
}

// Statements.
type (
	// Assign is a multiple assignment "Targets = Values".
	// Each target is a [*Name], an [*Index], or a [*Paren] around one of those.
	Assign struct {
		Span    Span
		Targets []Expr
		Values  []Expr
	}

	// LocalDecl is a "local" variable declaration.
	// Values is empty if the declaration has no initializer.
	LocalDecl struct {
		Span   Span
		Names  []*LocalName
		Values []Expr
	}

	// If is an "if" statement.
	// Clauses holds the "if" clause followed by any "elseif" clauses.
	// Else is nil if the statement has no "else" clause.
	If struct {
		Span    Span
		Clauses []*IfClause
		Else    *Block
	}

	// While is a "while" loop.
	While struct {
		Span Span
		Cond Expr
		Body *Block
	}

	// Repeat is a "repeat ... until" loop.
	// Cond is evaluated in the scope of Body.
	Repeat struct {
		Span Span
		Body *Block
		Cond Expr
	}

	// NumericFor is a "for v = start, limit, step" loop.
	// Step is nil if omitted.
	NumericFor struct {
		Span  Span
		Var   *Name
		Start Expr
		Limit Expr
		Step  Expr
		Body  *Block
	}

	// GenericFor is a "for names in values" loop.
	GenericFor struct {
		Span   Span
		Names  []*Name
		Values []Expr
		Body   *Block
	}

	// FunctionDecl is a "function" or "local function" statement.
	// Target is a [*Name] or a chain of [*Index] nodes
	// ("function a.b.c() end" has Target a.b.c).
	// For "function a.b:c() end", Func.IsMethod is true.
	FunctionDecl struct {
		Span   Span
		Local  bool
		Target Expr
		Func   *FunctionExpr
	}

	// Return is a "return" statement.
	Return struct {
		Span   Span
		Values []Expr
	}

	// Break is a "break" statement.
	Break struct {
		Span Span
	}

	// Do is a "do ... end" block.
	Do struct {
		Span Span
		Body *Block
	}

	// Goto is a "goto" statement.
	Goto struct {
		Span  Span
		Label string
	}

	// Label is a "::name::" label statement.
	Label struct {
		Span Span
		Name string
	}

	// ExprStatement is a function call used as a statement.
	// Call is a [*Call] or a [*MethodCall].
	ExprStatement struct {
		Span Span
		Call Expr
	}
)

// Expressions.
type (
	// BinaryOp is a binary operator expression.
	BinaryOp struct {
		Span  Span
		Op    Operator
		Left  Expr
		Right Expr
	}

	// UnaryOp is a unary operator expression.
	UnaryOp struct {
		Span    Span
		Op      Operator
		Operand Expr
	}

	// Literal is a constant: nil, a boolean, a number, or a string.
	Literal struct {
		Span Span
		Kind LiteralKind
		// Raw is the numeral as written for numbers.
		Raw string
		// Int is the value of an [IntegerLiteral].
		Int int64
		// Float is the value of a [FloatLiteral].
		Float float64
		// String is the decoded value of a [StringLiteral].
		String string
	}

	// TableConstructor is a "{ ... }" expression.
	TableConstructor struct {
		Span   Span
		Fields []*Field
	}

	// FunctionExpr is a function body, either anonymous
	// or as part of a [FunctionDecl].
	// If IsMethod is true, the function has an implicit first parameter "self"
	// that does not appear in Params.
	FunctionExpr struct {
		Span     Span
		Params   []*Name
		IsVararg bool
		IsMethod bool
		Body     *Block
	}

	// Index is a table access "Object[Key]".
	// "a.b" is represented with a string [*Literal] Key.
	Index struct {
		Span   Span
		Object Expr
		Key    Expr
	}

	// Call is a function call.
	Call struct {
		Span Span
		Func Expr
		Args []Expr
	}

	// MethodCall is a method call "Receiver:Method(Args)".
	MethodCall struct {
		Span     Span
		Receiver Expr
		// Method is a string literal naming the method.
		Method *Literal
		Args   []Expr
	}

	// Varargs is the "..." expression.
	Varargs struct {
		Span Span
	}

	// Name is a variable reference or declaration.
	Name struct {
		Span    Span
		Value   string
		Binding Binding
	}

	// Paren is a parenthesized expression.
	// Parentheses truncate multiple results to one
	// and make an expression unassignable.
	Paren struct {
		Span  Span
		Inner Expr
	}
)

// Other nodes.
type (
	// LocalName is a name in a [LocalDecl] with its optional attribute
	// ("const" or "close").
	LocalName struct {
		Span   Span
		Name   *Name
		Attrib string
	}

	// IfClause is the "if" or an "elseif" part of an [If] statement.
	IfClause struct {
		Span Span
		Cond Expr
		Body *Block
	}

	// Field is an entry in a [TableConstructor].
	// Key is nil for a [ListField].
	// For a [NamedField], Key is a string [*Literal].
	Field struct {
		Span  Span
		Kind  FieldKind
		Key   Expr
		Value Expr
	}
)

// Desugar returns the plain function call equivalent to the method call:
// "Receiver.Method(Receiver, Args...)".
// The receiver expression appears twice in the result,
// so the result shares nodes with mc and is not a tree.
func (mc *MethodCall) Desugar() *Call {
	args := make([]Expr, 0, len(mc.Args)+1)
	args = append(args, mc.Receiver)
	args = append(args, mc.Args...)
	return &Call{
		Span: mc.Span,
		Func: &Index{
			Span:   Span{Start: SpanOf(mc.Receiver).Start, End: mc.Method.Span.End},
			Object: mc.Receiver,
			Key:    mc.Method,
		},
		Args: args,
	}
}

// LiteralKind is an enumeration of [Literal] types.
type LiteralKind int

// [LiteralKind] values.
const (
	NilLiteral     LiteralKind = iota // nil
	TrueLiteral                       // true
	FalseLiteral                      // false
	IntegerLiteral                    // integer
	FloatLiteral                      // float
	StringLiteral                     // string
)

// FieldKind is an enumeration of [Field] types.
type FieldKind int

// [FieldKind] values.
const (
	// ListField is a positional field "value".
	ListField FieldKind = iota // list
	// NamedField is a field "name = value".
	NamedField // named
	// IndexedField is a field "[key] = value".
	IndexedField // indexed
)

// Binding describes how a [Name] resolves.
type Binding int

// [Binding] values.
const (
	// Global names are looked up in the environment table.
	Global Binding = iota // global
	// Local names refer to a local variable of the enclosing function.
	Local // local
	// Upvalue names refer to a local variable of an outer function.
	Upvalue // upvalue
)

func (c *Chunk) span() Span            { return c.Span }
func (b *Block) span() Span            { return b.Span }
func (s *Assign) span() Span           { return s.Span }
func (s *LocalDecl) span() Span        { return s.Span }
func (s *If) span() Span               { return s.Span }
func (s *While) span() Span            { return s.Span }
func (s *Repeat) span() Span           { return s.Span }
func (s *NumericFor) span() Span       { return s.Span }
func (s *GenericFor) span() Span       { return s.Span }
func (s *FunctionDecl) span() Span     { return s.Span }
func (s *Return) span() Span           { return s.Span }
func (s *Break) span() Span            { return s.Span }
func (s *Do) span() Span               { return s.Span }
func (s *Goto) span() Span             { return s.Span }
func (s *Label) span() Span            { return s.Span }
func (s *ExprStatement) span() Span    { return s.Span }
func (e *BinaryOp) span() Span         { return e.Span }
func (e *UnaryOp) span() Span          { return e.Span }
func (e *Literal) span() Span          { return e.Span }
func (e *TableConstructor) span() Span { return e.Span }
func (e *FunctionExpr) span() Span     { return e.Span }
func (e *Index) span() Span            { return e.Span }
func (e *Call) span() Span             { return e.Span }
func (e *MethodCall) span() Span       { return e.Span }
func (e *Varargs) span() Span          { return e.Span }
func (e *Name) span() Span             { return e.Span }
func (e *Paren) span() Span            { return e.Span }
func (n *LocalName) span() Span        { return n.Span }
func (c *IfClause) span() Span         { return c.Span }
func (f *Field) span() Span            { return f.Span }

func (*Assign) stmtNode()        {}
func (*LocalDecl) stmtNode()     {}
func (*If) stmtNode()            {}
func (*While) stmtNode()         {}
func (*Repeat) stmtNode()        {}
func (*NumericFor) stmtNode()    {}
func (*GenericFor) stmtNode()    {}
func (*FunctionDecl) stmtNode()  {}
func (*Return) stmtNode()        {}
func (*Break) stmtNode()         {}
func (*Do) stmtNode()            {}
func (*Goto) stmtNode()          {}
func (*Label) stmtNode()         {}
func (*ExprStatement) stmtNode() {}

func (*BinaryOp) exprNode()         {}
func (*UnaryOp) exprNode()          {}
func (*Literal) exprNode()          {}
func (*TableConstructor) exprNode() {}
func (*FunctionExpr) exprNode()     {}
func (*Index) exprNode()            {}
func (*Call) exprNode()             {}
func (*MethodCall) exprNode()       {}
func (*Varargs) exprNode()          {}
func (*Name) exprNode()             {}
func (*Paren) exprNode()            {}
