// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package luaast

import "fmt"

// Children returns the direct children of n in source order.
// Nil child nodes are omitted.
func Children(n Node) []Node {
	var c children
	switch n := n.(type) {
	case *Chunk:
		c.add(n.Block)
	case *Block:
		for _, stmt := range n.Stmts {
			c.add(stmt)
		}
	case *Assign:
		c.exprs(n.Targets)
		c.exprs(n.Values)
	case *LocalDecl:
		for _, name := range n.Names {
			c.add(name)
		}
		c.exprs(n.Values)
	case *If:
		for _, clause := range n.Clauses {
			c.add(clause)
		}
		c.add(n.Else)
	case *IfClause:
		c.add(n.Cond)
		c.add(n.Body)
	case *While:
		c.add(n.Cond)
		c.add(n.Body)
	case *Repeat:
		c.add(n.Body)
		c.add(n.Cond)
	case *NumericFor:
		c.add(n.Var)
		c.add(n.Start)
		c.add(n.Limit)
		c.add(n.Step)
		c.add(n.Body)
	case *GenericFor:
		for _, name := range n.Names {
			c.add(name)
		}
		c.exprs(n.Values)
		c.add(n.Body)
	case *FunctionDecl:
		c.add(n.Target)
		c.add(n.Func)
	case *Return:
		c.exprs(n.Values)
	case *Do:
		c.add(n.Body)
	case *ExprStatement:
		c.add(n.Call)
	case *LocalName:
		c.add(n.Name)
	case *BinaryOp:
		c.add(n.Left)
		c.add(n.Right)
	case *UnaryOp:
		c.add(n.Operand)
	case *TableConstructor:
		for _, f := range n.Fields {
			c.add(f)
		}
	case *Field:
		c.add(n.Key)
		c.add(n.Value)
	case *FunctionExpr:
		for _, p := range n.Params {
			c.add(p)
		}
		c.add(n.Body)
	case *Index:
		c.add(n.Object)
		c.add(n.Key)
	case *Call:
		c.add(n.Func)
		c.exprs(n.Args)
	case *MethodCall:
		c.add(n.Receiver)
		c.add(n.Method)
		c.exprs(n.Args)
	case *Paren:
		c.add(n.Inner)
	case *Break, *Goto, *Label, *Literal, *Varargs, *Name:
		// Leaves.
	default:
		panic(fmt.Sprintf("luaast.Children: unexpected node type %T", n))
	}
	return c
}

type children []Node

func (c *children) add(n Node) {
	if isNil(n) {
		return
	}
	*c = append(*c, n)
}

func (c *children) exprs(list []Expr) {
	for _, e := range list {
		c.add(e)
	}
}

// isNil reports whether n is nil or a typed nil pointer
// such as the nil *Block of an If without an else clause.
func isNil(n Node) bool {
	switch n := n.(type) {
	case nil:
		return true
	case *Block:
		return n == nil
	case *Literal:
		return n == nil
	case *Name:
		return n == nil
	case *FunctionExpr:
		return n == nil
	default:
		return false
	}
}

// Inspect traverses the tree rooted at n in depth-first order.
// It calls f(n) for each node;
// if f returns true, Inspect visits the children of n
// and then calls f(nil).
func Inspect(n Node, f func(Node) bool) {
	if !f(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, f)
	}
	f(nil)
}
