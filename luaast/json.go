// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package luaast

import (
	"encoding/base64"
	"fmt"
	"math"
	"unicode/utf8"

	jsonv2 "github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// MarshalJSON encodes the tree rooted at n as JSON.
//
// Each node is an object with a "type" member naming its Go type
// (for example "BinaryOp"), a "span" member,
// and one member per field of the node.
// String literals that are not valid UTF-8
// are written with a "base64" member instead of a "value" member.
func MarshalJSON(n Node, opts ...jsonv2.Options) ([]byte, error) {
	return jsonv2.Marshal(jsonNode{n}, opts...)
}

// EncodeJSON writes the tree rooted at n to enc
// in the format described in [MarshalJSON].
func EncodeJSON(enc *jsontext.Encoder, n Node) error {
	e := &nodeEncoder{enc: enc}
	e.node(n)
	if e.err != nil {
		return fmt.Errorf("marshal lua syntax tree: %w", e.err)
	}
	return nil
}

type jsonNode struct {
	n Node
}

func (jn jsonNode) MarshalJSONTo(enc *jsontext.Encoder) error {
	return EncodeJSON(enc, jn.n)
}

// nodeEncoder writes nodes to a JSON encoder,
// stopping at the first error.
type nodeEncoder struct {
	enc *jsontext.Encoder
	err error
}

func (e *nodeEncoder) token(tok jsontext.Token) {
	if e.err != nil {
		return
	}
	e.err = e.enc.WriteToken(tok)
}

func (e *nodeEncoder) field(name string) {
	e.token(jsontext.String(name))
}

func (e *nodeEncoder) stringField(name, value string) {
	e.field(name)
	e.token(jsontext.String(value))
}

func (e *nodeEncoder) boolField(name string, value bool) {
	e.field(name)
	e.token(jsontext.Bool(value))
}

func (e *nodeEncoder) nodeField(name string, n Node) {
	e.field(name)
	e.node(n)
}

func encodeList[T Node](e *nodeEncoder, name string, list []T) {
	e.field(name)
	e.token(jsontext.BeginArray)
	for _, n := range list {
		e.node(n)
	}
	e.token(jsontext.EndArray)
}

func (e *nodeEncoder) position(pos Position) {
	e.token(jsontext.BeginObject)
	e.field("line")
	e.token(jsontext.Int(int64(pos.Line)))
	e.field("column")
	e.token(jsontext.Int(int64(pos.Column)))
	e.field("offset")
	e.token(jsontext.Int(int64(pos.Offset)))
	e.token(jsontext.EndObject)
}

func (e *nodeEncoder) node(n Node) {
	if isNil(n) {
		e.token(jsontext.Null)
		return
	}
	e.token(jsontext.BeginObject)
	e.stringField("type", typeName(n))
	e.field("span")
	e.token(jsontext.BeginObject)
	span := SpanOf(n)
	e.field("start")
	e.position(span.Start)
	e.field("end")
	e.position(span.End)
	e.token(jsontext.EndObject)

	switch n := n.(type) {
	case *Chunk:
		e.nodeField("block", n.Block)
	case *Block:
		encodeList(e, "stmts", n.Stmts)
	case *Assign:
		encodeList(e, "targets", n.Targets)
		encodeList(e, "values", n.Values)
	case *LocalDecl:
		encodeList(e, "names", n.Names)
		encodeList(e, "values", n.Values)
	case *If:
		encodeList(e, "clauses", n.Clauses)
		e.nodeField("else", n.Else)
	case *IfClause:
		e.nodeField("cond", n.Cond)
		e.nodeField("body", n.Body)
	case *While:
		e.nodeField("cond", n.Cond)
		e.nodeField("body", n.Body)
	case *Repeat:
		e.nodeField("body", n.Body)
		e.nodeField("cond", n.Cond)
	case *NumericFor:
		e.nodeField("var", n.Var)
		e.nodeField("start", n.Start)
		e.nodeField("limit", n.Limit)
		e.nodeField("step", n.Step)
		e.nodeField("body", n.Body)
	case *GenericFor:
		encodeList(e, "names", n.Names)
		encodeList(e, "values", n.Values)
		e.nodeField("body", n.Body)
	case *FunctionDecl:
		e.boolField("local", n.Local)
		e.nodeField("target", n.Target)
		e.nodeField("func", n.Func)
	case *Return:
		encodeList(e, "values", n.Values)
	case *Break, *Varargs:
	case *Do:
		e.nodeField("body", n.Body)
	case *Goto:
		e.stringField("label", n.Label)
	case *Label:
		e.stringField("name", n.Name)
	case *ExprStatement:
		e.nodeField("call", n.Call)
	case *LocalName:
		e.nodeField("name", n.Name)
		if n.Attrib != "" {
			e.stringField("attrib", n.Attrib)
		}
	case *BinaryOp:
		e.stringField("op", n.Op.String())
		e.nodeField("left", n.Left)
		e.nodeField("right", n.Right)
	case *UnaryOp:
		e.stringField("op", n.Op.String())
		e.nodeField("operand", n.Operand)
	case *Literal:
		e.literal(n)
	case *TableConstructor:
		encodeList(e, "fields", n.Fields)
	case *Field:
		e.stringField("kind", n.Kind.String())
		e.nodeField("key", n.Key)
		e.nodeField("value", n.Value)
	case *FunctionExpr:
		encodeList(e, "params", n.Params)
		e.boolField("vararg", n.IsVararg)
		e.boolField("method", n.IsMethod)
		e.nodeField("body", n.Body)
	case *Index:
		e.nodeField("object", n.Object)
		e.nodeField("key", n.Key)
	case *Call:
		e.nodeField("func", n.Func)
		encodeList(e, "args", n.Args)
	case *MethodCall:
		e.nodeField("receiver", n.Receiver)
		e.nodeField("method", n.Method)
		encodeList(e, "args", n.Args)
	case *Name:
		e.stringField("value", n.Value)
		e.stringField("binding", n.Binding.String())
	case *Paren:
		e.nodeField("inner", n.Inner)
	}
	e.token(jsontext.EndObject)
}

func (e *nodeEncoder) literal(lit *Literal) {
	e.stringField("kind", lit.Kind.String())
	switch lit.Kind {
	case IntegerLiteral:
		e.stringField("raw", lit.Raw)
		e.field("value")
		e.token(jsontext.Int(lit.Int))
	case FloatLiteral:
		e.stringField("raw", lit.Raw)
		if !math.IsInf(lit.Float, 0) && !math.IsNaN(lit.Float) {
			e.field("value")
			e.token(jsontext.Float(lit.Float))
		}
	case StringLiteral:
		if utf8.ValidString(lit.String) {
			e.stringField("value", lit.String)
		} else {
			e.stringField("base64", base64.StdEncoding.EncodeToString([]byte(lit.String)))
		}
	}
}

func typeName(n Node) string {
	switch n.(type) {
	case *Chunk:
		return "Chunk"
	case *Block:
		return "Block"
	case *Assign:
		return "Assign"
	case *LocalDecl:
		return "LocalDecl"
	case *If:
		return "If"
	case *IfClause:
		return "IfClause"
	case *While:
		return "While"
	case *Repeat:
		return "Repeat"
	case *NumericFor:
		return "NumericFor"
	case *GenericFor:
		return "GenericFor"
	case *FunctionDecl:
		return "FunctionDecl"
	case *Return:
		return "Return"
	case *Break:
		return "Break"
	case *Do:
		return "Do"
	case *Goto:
		return "Goto"
	case *Label:
		return "Label"
	case *ExprStatement:
		return "ExprStatement"
	case *LocalName:
		return "LocalName"
	case *BinaryOp:
		return "BinaryOp"
	case *UnaryOp:
		return "UnaryOp"
	case *Literal:
		return "Literal"
	case *TableConstructor:
		return "TableConstructor"
	case *Field:
		return "Field"
	case *FunctionExpr:
		return "FunctionExpr"
	case *Index:
		return "Index"
	case *Call:
		return "Call"
	case *MethodCall:
		return "MethodCall"
	case *Varargs:
		return "Varargs"
	case *Name:
		return "Name"
	case *Paren:
		return "Paren"
	default:
		panic(fmt.Sprintf("luaast: unexpected node type %T", n))
	}
}

// MarshalJSONTo writes the chunk to enc in the format described in [MarshalJSON].
func (c *Chunk) MarshalJSONTo(enc *jsontext.Encoder) error {
	return EncodeJSON(enc, c)
}

// MarshalJSONTo writes the block to enc in the format described in [MarshalJSON].
func (b *Block) MarshalJSONTo(enc *jsontext.Encoder) error {
	return EncodeJSON(enc, b)
}
