// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package luaparse

import (
	"fmt"
	"strconv"
	"strings"

	"zb.256lights.llc/lupin/internal/lualex"
	"zb.256lights.llc/lupin/luaast"
)

// sexpr formats a syntax tree as a compact s-expression for comparison in tests.
func sexpr(n luaast.Node) string {
	sb := new(strings.Builder)
	writeSexpr(sb, n)
	return sb.String()
}

func writeSexpr(sb *strings.Builder, n luaast.Node) {
	list := func(head string, nodes ...luaast.Node) {
		sb.WriteString("(")
		sb.WriteString(head)
		for _, c := range nodes {
			sb.WriteString(" ")
			writeSexpr(sb, c)
		}
		sb.WriteString(")")
	}
	exprs := func(es []luaast.Expr) []luaast.Node {
		nodes := make([]luaast.Node, 0, len(es))
		for _, e := range es {
			nodes = append(nodes, e)
		}
		return nodes
	}

	switch n := n.(type) {
	case *luaast.Chunk:
		list("chunk", blockNodes(n.Block)...)
	case *luaast.Block:
		list("block", blockNodes(n)...)
	case *luaast.Assign:
		nodes := exprs(n.Targets)
		sb.WriteString("(set")
		for _, t := range nodes {
			sb.WriteString(" ")
			writeSexpr(sb, t)
		}
		sb.WriteString(" =")
		for _, v := range n.Values {
			sb.WriteString(" ")
			writeSexpr(sb, v)
		}
		sb.WriteString(")")
	case *luaast.LocalDecl:
		sb.WriteString("(local")
		for _, ln := range n.Names {
			sb.WriteString(" ")
			sb.WriteString(ln.Name.Value)
			if ln.Attrib != "" {
				sb.WriteString("<" + ln.Attrib + ">")
			}
		}
		if len(n.Values) > 0 {
			sb.WriteString(" =")
			for _, v := range n.Values {
				sb.WriteString(" ")
				writeSexpr(sb, v)
			}
		}
		sb.WriteString(")")
	case *luaast.If:
		sb.WriteString("(if")
		for i, c := range n.Clauses {
			if i == 0 {
				sb.WriteString(" ")
				writeSexpr(sb, c.Cond)
				sb.WriteString(" ")
				writeSexpr(sb, c.Body)
			} else {
				sb.WriteString(" ")
				list("elseif", c.Cond, c.Body)
			}
		}
		if n.Else != nil {
			sb.WriteString(" ")
			list("else", n.Else)
		}
		sb.WriteString(")")
	case *luaast.While:
		list("while", n.Cond, n.Body)
	case *luaast.Repeat:
		list("repeat", n.Body, n.Cond)
	case *luaast.NumericFor:
		if n.Step != nil {
			list("for", n.Var, n.Start, n.Limit, n.Step, n.Body)
		} else {
			list("for", n.Var, n.Start, n.Limit, n.Body)
		}
	case *luaast.GenericFor:
		sb.WriteString("(forin (")
		for i, name := range n.Names {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(name.Value)
		}
		sb.WriteString(") ")
		list("in", exprs(n.Values)...)
		sb.WriteString(" ")
		writeSexpr(sb, n.Body)
		sb.WriteString(")")
	case *luaast.FunctionDecl:
		head := "function"
		if n.Local {
			head = "local-function"
		}
		list(head, n.Target, n.Func)
	case *luaast.Return:
		list("return", exprs(n.Values)...)
	case *luaast.Break:
		sb.WriteString("(break)")
	case *luaast.Do:
		list("do", n.Body)
	case *luaast.Goto:
		sb.WriteString("(goto " + n.Label + ")")
	case *luaast.Label:
		sb.WriteString("(label " + n.Name + ")")
	case *luaast.ExprStatement:
		writeSexpr(sb, n.Call)
	case *luaast.BinaryOp:
		list(n.Op.String(), n.Left, n.Right)
	case *luaast.UnaryOp:
		list(n.Op.String(), n.Operand)
	case *luaast.Literal:
		sb.WriteString(formatLiteral(n))
	case *luaast.TableConstructor:
		sb.WriteString("{")
		for i, f := range n.Fields {
			if i > 0 {
				sb.WriteString(", ")
			}
			switch f.Kind {
			case luaast.NamedField:
				sb.WriteString(f.Key.(*luaast.Literal).String)
				sb.WriteString("=")
			case luaast.IndexedField:
				sb.WriteString("[")
				writeSexpr(sb, f.Key)
				sb.WriteString("]=")
			}
			writeSexpr(sb, f.Value)
		}
		sb.WriteString("}")
	case *luaast.FunctionExpr:
		head := "fn"
		if n.IsMethod {
			head = "method"
		}
		sb.WriteString("(" + head + " (")
		for i, p := range n.Params {
			if i > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString(p.Value)
		}
		if n.IsVararg {
			if len(n.Params) > 0 {
				sb.WriteString(" ")
			}
			sb.WriteString("...")
		}
		sb.WriteString(") ")
		writeSexpr(sb, n.Body)
		sb.WriteString(")")
	case *luaast.Index:
		list("index", n.Object, n.Key)
	case *luaast.Call:
		list("call", append([]luaast.Node{n.Func}, exprs(n.Args)...)...)
	case *luaast.MethodCall:
		list("invoke", append([]luaast.Node{n.Receiver, n.Method}, exprs(n.Args)...)...)
	case *luaast.Varargs:
		sb.WriteString("...")
	case *luaast.Name:
		sb.WriteString(n.Value)
	case *luaast.Paren:
		list("paren", n.Inner)
	default:
		fmt.Fprintf(sb, "<%T>", n)
	}
}

func blockNodes(b *luaast.Block) []luaast.Node {
	nodes := make([]luaast.Node, 0, len(b.Stmts))
	for _, s := range b.Stmts {
		nodes = append(nodes, s)
	}
	return nodes
}

func formatLiteral(lit *luaast.Literal) string {
	switch lit.Kind {
	case luaast.NilLiteral:
		return "nil"
	case luaast.TrueLiteral:
		return "true"
	case luaast.FalseLiteral:
		return "false"
	case luaast.IntegerLiteral:
		return strconv.FormatInt(lit.Int, 10)
	case luaast.FloatLiteral:
		return strconv.FormatFloat(lit.Float, 'g', -1, 64) + "f"
	case luaast.StringLiteral:
		return lualex.Quote(lit.String)
	default:
		return fmt.Sprintf("<%v>", lit.Kind)
	}
}
