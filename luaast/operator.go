// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

//go:generate go tool stringer -type=Operator -linecomment
//go:generate go tool stringer -type=LiteralKind,FieldKind,Binding -linecomment -output=kinds_string.go

package luaast

// Operator is an enumeration of Lua operators.
type Operator int

// Binary operators.
const (
	OpOr           Operator = iota // or
	OpAnd                          // and
	OpLess                         // <
	OpGreater                      // >
	OpLessEqual                    // <=
	OpGreaterEqual                 // >=
	OpNotEqual                     // ~=
	OpEqual                        // ==
	OpBitOr                        // |
	OpBitXor                       // ~
	OpBitAnd                       // &
	OpShiftLeft                    // <<
	OpShiftRight                   // >>
	OpConcat                       // ..
	OpAdd                          // +
	OpSub                          // -
	OpMul                          // *
	OpDiv                          // /
	OpIntDiv                       // //
	OpMod                          // %
	OpPow                          // ^
)

// Unary operators.
const (
	OpNot    Operator = iota + OpPow + 1 // not
	OpLen                                // #
	OpNeg                                // -
	OpBitNot                             // ~
)

// IsUnary reports whether op is a unary operator.
func (op Operator) IsUnary() bool {
	return OpNot <= op && op <= OpBitNot
}

// IsBinary reports whether op is a binary operator.
func (op Operator) IsBinary() bool {
	return OpOr <= op && op <= OpPow
}
