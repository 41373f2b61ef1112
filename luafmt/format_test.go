// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package luafmt

import (
	"math"
	"strings"
	"testing"

	"github.com/cockroachdb/datadriven"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"zb.256lights.llc/lupin/luaast"
	"zb.256lights.llc/lupin/luaparse"
)

func name(s string) *luaast.Name {
	return &luaast.Name{Value: s}
}

func integer(i int64) *luaast.Literal {
	return &luaast.Literal{Kind: luaast.IntegerLiteral, Int: i}
}

func float(f float64) *luaast.Literal {
	return &luaast.Literal{Kind: luaast.FloatLiteral, Float: f}
}

func str(s string) *luaast.Literal {
	return &luaast.Literal{Kind: luaast.StringLiteral, String: s}
}

func binary(op luaast.Operator, left, right luaast.Expr) *luaast.BinaryOp {
	return &luaast.BinaryOp{Op: op, Left: left, Right: right}
}

func unary(op luaast.Operator, operand luaast.Expr) *luaast.UnaryOp {
	return &luaast.UnaryOp{Op: op, Operand: operand}
}

func TestSourceExpr(t *testing.T) {
	tests := []struct {
		name string
		expr luaast.Expr
		want string
		// reparses is true if parsing want produces expr.
		reparses bool
	}{
		{
			name:     "LowerPrecedenceLeft",
			expr:     binary(luaast.OpMul, binary(luaast.OpAdd, name("a"), name("b")), name("c")),
			want:     "(a + b) * c",
			reparses: false,
		},
		{
			name:     "LeftAssociative",
			expr:     binary(luaast.OpSub, binary(luaast.OpSub, name("a"), name("b")), name("c")),
			want:     "a - b - c",
			reparses: true,
		},
		{
			name:     "LeftAssociativeRightNested",
			expr:     binary(luaast.OpSub, name("a"), binary(luaast.OpSub, name("b"), name("c"))),
			want:     "a - (b - c)",
			reparses: false,
		},
		{
			name:     "RightAssociative",
			expr:     binary(luaast.OpPow, name("a"), binary(luaast.OpPow, name("b"), name("c"))),
			want:     "a ^ b ^ c",
			reparses: true,
		},
		{
			name:     "RightAssociativeLeftNested",
			expr:     binary(luaast.OpConcat, binary(luaast.OpConcat, name("a"), name("b")), name("c")),
			want:     "(a .. b) .. c",
			reparses: false,
		},
		{
			name:     "NestedNegation",
			expr:     unary(luaast.OpNeg, unary(luaast.OpNeg, name("x"))),
			want:     "- -x",
			reparses: true,
		},
		{
			name:     "NegatedPower",
			expr:     unary(luaast.OpNeg, binary(luaast.OpPow, name("x"), integer(2))),
			want:     "-x ^ 2",
			reparses: true,
		},
		{
			name:     "PowerOfNegation",
			expr:     binary(luaast.OpPow, unary(luaast.OpNeg, name("x")), integer(2)),
			want:     "(-x) ^ 2",
			reparses: false,
		},
		{
			name:     "NegativeExponent",
			expr:     binary(luaast.OpPow, integer(2), unary(luaast.OpNeg, name("x"))),
			want:     "2 ^ -x",
			reparses: true,
		},
		{
			name:     "NegativeExponentThenAdd",
			expr:     binary(luaast.OpAdd, binary(luaast.OpPow, integer(2), unary(luaast.OpNeg, name("x"))), integer(1)),
			want:     "2 ^ -x + 1",
			reparses: true,
		},
		{
			name:     "NotEqual",
			expr:     unary(luaast.OpNot, binary(luaast.OpEqual, name("a"), name("b"))),
			want:     "not (a == b)",
			reparses: false,
		},
		{
			name:     "NotThenEqual",
			expr:     binary(luaast.OpEqual, unary(luaast.OpNot, name("a")), name("b")),
			want:     "not a == b",
			reparses: true,
		},
		{
			name:     "AndOr",
			expr:     binary(luaast.OpOr, name("a"), binary(luaast.OpAnd, name("b"), name("c"))),
			want:     "a or b and c",
			reparses: true,
		},
		{
			name: "MethodOnString",
			expr: &luaast.MethodCall{
				Receiver: str("s"),
				Method:   str("upper"),
			},
			want:     `("s"):upper()`,
			reparses: false,
		},
		{
			name:     "WrappedInteger",
			expr:     integer(-1),
			want:     "0xffffffffffffffff",
			reparses: true,
		},
		{
			name:     "WholeFloat",
			expr:     &luaast.Literal{Kind: luaast.FloatLiteral, Float: 3},
			want:     "3.0",
			reparses: true,
		},
		{
			name:     "NegatedNegativeFloat",
			expr:     unary(luaast.OpNeg, &luaast.Literal{Kind: luaast.FloatLiteral, Float: -2}),
			want:     "- -2.0",
			reparses: false,
		},
		{
			name:     "NegativeFloatBase",
			expr:     binary(luaast.OpPow, float(-1.5), name("a")),
			want:     "(-1.5) ^ a",
			reparses: false,
		},
		{
			name:     "NegativeInfinityBase",
			expr:     binary(luaast.OpPow, float(math.Inf(-1)), name("a")),
			want:     "(-1e9999) ^ a",
			reparses: false,
		},
		{
			name:     "NegativeZeroBase",
			expr:     binary(luaast.OpPow, float(math.Copysign(0, -1)), integer(2)),
			want:     "(-0.0) ^ 2",
			reparses: false,
		},
		{
			name:     "NegativeFloatExponent",
			expr:     binary(luaast.OpPow, name("a"), float(-1.5)),
			want:     "a ^ -1.5",
			reparses: false,
		},
		{
			name:     "NegativeFloatSum",
			expr:     binary(luaast.OpAdd, float(-1.5), name("a")),
			want:     "-1.5 + a",
			reparses: false,
		},
		{
			name:     "RawNumeral",
			expr:     &luaast.Literal{Kind: luaast.IntegerLiteral, Raw: "0x10", Int: 16},
			want:     "0x10",
			reparses: true,
		},
		{
			name:     "KeywordKey",
			expr:     &luaast.Index{Object: name("t"), Key: str("end")},
			want:     `t["end"]`,
			reparses: true,
		},
		{
			name:     "IdentifierKey",
			expr:     &luaast.Index{Object: name("t"), Key: str("x")},
			want:     "t.x",
			reparses: true,
		},
		{
			name: "Table",
			expr: &luaast.TableConstructor{Fields: []*luaast.Field{
				{Kind: luaast.ListField, Value: integer(1)},
				{Kind: luaast.NamedField, Key: str("x"), Value: integer(2)},
				{Kind: luaast.IndexedField, Key: str("a b"), Value: &luaast.Literal{Kind: luaast.TrueLiteral}},
			}},
			want:     `{1, x = 2, ["a b"] = true}`,
			reparses: true,
		},
		{
			name: "CallFunction",
			expr: &luaast.Call{
				Func: &luaast.FunctionExpr{Body: &luaast.Block{}},
				Args: []luaast.Expr{&luaast.Varargs{}},
			},
			want:     "(function() end)(...)",
			reparses: false,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := Source(test.expr)
			if err != nil {
				t.Fatal(err)
			}
			if got != test.want {
				t.Errorf("Source(...) = %q; want %q", got, test.want)
			}
			if !test.reparses {
				return
			}
			e, err := luaparse.ParseExpression(got, nil)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(test.expr, e, ignorePositions(), cmpopts.IgnoreFields(luaast.Literal{}, "Raw")); diff != "" {
				t.Errorf("ParseExpression(%q) (-want +got):\n%s", got, diff)
			}
		})
	}
}

func TestSourceErrors(t *testing.T) {
	tests := []struct {
		name string
		n    luaast.Node
	}{
		{"BadName", name("end")},
		{"UnaryAsBinary", binary(luaast.OpNot, name("a"), name("b"))},
		{"BinaryAsUnary", unary(luaast.OpAdd, name("a"))},
		{"NilBlock", &luaast.Do{}},
		{"EmptyIf", &luaast.If{}},
		{"NonCallStatement", &luaast.ExprStatement{Call: name("x")}},
		{"MethodOnName", &luaast.FunctionDecl{
			Target: name("f"),
			Func:   &luaast.FunctionExpr{IsMethod: true, Body: &luaast.Block{}},
		}},
		{"Field", &luaast.Field{}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got, err := Source(test.n); err == nil {
				t.Errorf("Source(...) = %q, <nil>; want error", got)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	chunk, err := luaparse.Parse("local x=1 print(x)", nil)
	if err != nil {
		t.Fatal(err)
	}
	sb := new(strings.Builder)
	if err := Format(sb, chunk); err != nil {
		t.Fatal(err)
	}
	const want = "local x = 1\nprint(x)\n"
	if got := sb.String(); got != want {
		t.Errorf("Format(...) = %q; want %q", got, want)
	}
}

// TestDataDriven runs the scripts in testdata.
//
// Commands:
//
//	format
//	  Parse the input as a chunk and print its canonical source.
//	  The test fails if the canonical source does not parse to the same tree
//	  or does not format to itself.
func TestDataDriven(t *testing.T) {
	datadriven.Walk(t, "testdata", func(t *testing.T, path string) {
		datadriven.RunTest(t, path, func(t *testing.T, td *datadriven.TestData) string {
			switch td.Cmd {
			case "format":
				chunk, err := luaparse.Parse(td.Input, nil)
				if err != nil {
					td.Fatalf(t, "%v", err)
				}
				return checkRoundTrip(t, td.Input, chunk)
			default:
				td.Fatalf(t, "unknown command %q", td.Cmd)
				return ""
			}
		})
	})
}

// checkRoundTrip formats chunk,
// verifies that the result parses back to an equivalent tree,
// and returns the formatted source.
func checkRoundTrip(tb testing.TB, source string, chunk *luaast.Chunk) string {
	tb.Helper()
	formatted, err := Source(chunk)
	if err != nil {
		tb.Fatalf("Source(Parse(%q)): %v", source, err)
	}
	reparsed, err := luaparse.Parse(formatted, nil)
	if err != nil {
		tb.Fatalf("Parse(Source(Parse(%q))) = _, %v\nsource:\n%s", source, err, formatted)
	}
	if diff := cmp.Diff(chunk, reparsed, ignorePositions()); diff != "" {
		tb.Errorf("Parse(Source(Parse(%q))) (-want +got):\n%s", source, diff)
	}
	again, err := Source(reparsed)
	if err != nil {
		tb.Fatal(err)
	}
	if again != formatted {
		tb.Errorf("formatting %q is not stable:\nfirst:\n%s\nsecond:\n%s", source, formatted, again)
	}
	return formatted
}

var roundTripCorpus = []string{
	"local x = 1\nx = x + 1\nprint(x)",
	"if a then elseif b then c() else end",
	"for i = 1, 10, 2 do local y = i * 2 end",
	"for k, v in pairs(t) do print(k, v) end",
	"local function f(a, b, ...) return a + b, ... end",
	"function a.b.c:d() return self end",
	"local t = { 1, 2; x = 3, [4] = 5, ['y'] = 6 }",
	"obj:method(1)(2)[3].four = -#s ^ 2",
	"do ::top:: goto top end",
	"return (f())",
	"x = function() end",
	"local a <const>, b <close> = 1",
	"print [[\nlong\n]] 'short' {}",
	"x = not not a or b and c .. d .. e",
	"x = - -y; z = 2 ^ -3 ^ 2",
	"f()\n;(g or h)()",
	"(f or g).x = 1",
	"repeat local n = 1 until n",
	"while true do break end",
	"x = 0x10 + 1e2 + .5 + 3. + 9223372036854775808",
	"s = '\\0\\255\\u{10FFFF}'",
	"a, b.c, d[e] = ...",
	"x = a < b == c < d",
	"x = (a)",
	"return",
}

func TestRoundTrip(t *testing.T) {
	for _, source := range roundTripCorpus {
		chunk, err := luaparse.Parse(source, nil)
		if err != nil {
			t.Errorf("Parse(%q): %v", source, err)
			continue
		}
		checkRoundTrip(t, source, chunk)
	}
}

func FuzzRoundTrip(f *testing.F) {
	for _, source := range roundTripCorpus {
		f.Add(source)
	}
	f.Fuzz(func(t *testing.T, source string) {
		chunk, err := luaparse.Parse(source, nil)
		if err != nil {
			t.Skip(err)
		}
		checkRoundTrip(t, source, chunk)
	})
}

// ignorePositions ignores span and name binding fields.
func ignorePositions() cmp.Option {
	return cmp.FilterPath(func(p cmp.Path) bool {
		sf, ok := p.Last().(cmp.StructField)
		return ok && (sf.Name() == "Span" || sf.Name() == "Binding")
	}, cmp.Ignore())
}
