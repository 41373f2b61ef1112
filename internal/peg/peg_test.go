// Copyright 2024 The zb Authors
// SPDX-License-Identifier: MIT

package peg

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"zb.256lights.llc/lupin/internal/lualex"
)

func scan(tb testing.TB, src string) []lualex.Token {
	tb.Helper()
	s := lualex.NewScanner(strings.NewReader(src))
	var toks []lualex.Token
	for {
		tok, err := s.Scan()
		if err == io.EOF {
			return append(toks, lualex.Token{Kind: lualex.EOFToken, Position: s.Offset(), End: s.Offset()})
		}
		if err != nil {
			tb.Fatal(err)
		}
		toks = append(toks, tok)
	}
}

// testGrammar is a small grammar of nested calls and assignments:
//
//	Stmt  := Call | Name '=' Value
//	Call  := Name '(' [Value {',' Value}] ')'
//	Value := Name | Number | '(' Value ')'
type testGrammar struct {
	stmt, call, value, list *Named
}

func newTestGrammar() *testGrammar {
	g := new(Grammar)
	tg := &testGrammar{
		stmt:  g.Rule("Stmt"),
		call:  g.Rule("Call"),
		value: g.Rule("Value").Label("value").Nested(),
		list:  g.Rule("List"),
	}
	name := Token(lualex.IdentifierToken)
	tg.stmt.Define(Choice(
		tg.call,
		Seq(name, Token(lualex.AssignToken), tg.value),
	))
	tg.call.Define(Seq(name, Token(lualex.LParenToken), Optional(tg.list), Token(lualex.RParenToken)))
	tg.list.Define(Seq(tg.value, ZeroOrMore(Seq(Token(lualex.CommaToken), tg.value))))
	tg.value.Define(Choice(
		name,
		Token(lualex.NumeralToken),
		Seq(Token(lualex.LParenToken), tg.value, Token(lualex.RParenToken)),
	))
	return tg
}

func TestParse(t *testing.T) {
	tg := newTestGrammar()
	tests := []struct {
		src  string
		want string
		alt  int
	}{
		{src: "f()", want: "(Stmt (Call f ( )))", alt: 0},
		{src: "f(1, x, (2))", want: "(Stmt (Call f ( (List (Value 1) , (Value x) , (Value ( (Value 2) ))) )))", alt: 0},
		{src: "x = y", want: "(Stmt x = (Value y))", alt: 1},
	}
	for _, test := range tests {
		m, err := Parse(tg.stmt, scan(t, test.src), nil)
		if err != nil {
			t.Errorf("Parse(%q): %v", test.src, err)
			continue
		}
		if got := m.String(); got != test.want {
			t.Errorf("Parse(%q) = %s; want %s", test.src, got, test.want)
		}
		if !m.Is(tg.stmt) || m.Kind != ChoiceMatch || m.Alt != test.alt {
			t.Errorf("Parse(%q) = {Rule: %v, Kind: %v, Alt: %d}; want {Rule: Stmt, Kind: %v, Alt: %d}",
				test.src, m.Rule, m.Kind, m.Alt, ChoiceMatch, test.alt)
		}
		if m.Start != 0 || m.End != len(scan(t, test.src))-1 {
			t.Errorf("Parse(%q) range = [%d, %d)", test.src, m.Start, m.End)
		}
	}
}

func TestFailure(t *testing.T) {
	tg := newTestGrammar()
	tests := []struct {
		src       string
		want      *Failure
		ruleName  string
		ruleStart int
	}{
		{
			// f ( 1 , ) <eof>
			src:       "f(1, )",
			want:      &Failure{Pos: 4, Expected: []string{"value"}},
			ruleName:  "List",
			ruleStart: 2,
		},
		{
			// f ( ( 1 <eof>
			src:       "f((1",
			want:      &Failure{Pos: 4, Expected: []string{"')'"}},
			ruleName:  "Value",
			ruleStart: 2,
		},
		{
			// x = y z <eof>
			src:       "x = y z",
			want:      &Failure{Pos: 3, Expected: []string{"<eof>"}},
			ruleName:  "",
			ruleStart: 0,
		},
		{
			src:  "= 1",
			want: &Failure{Pos: 0, Expected: []string{"<name>"}},
		},
		{
			// x <eof>
			src:       "x",
			want:      &Failure{Pos: 1, Expected: []string{"'('", "'='"}},
			ruleName:  "Call",
			ruleStart: 0,
		},
	}
	for _, test := range tests {
		_, err := Parse(tg.stmt, scan(t, test.src), nil)
		var got *Failure
		if !errors.As(err, &got) {
			t.Errorf("Parse(%q) error = %v; want *Failure", test.src, err)
			continue
		}
		if diff := cmp.Diff(test.want, got, cmpopts.IgnoreFields(Failure{}, "Rule", "RuleStart", "Frames")); diff != "" {
			t.Errorf("Parse(%q) failure (-want +got):\n%s", test.src, diff)
		}
		gotName := ""
		if got.Rule != nil {
			gotName = got.Rule.Name()
		}
		if gotName != test.ruleName || (test.ruleName != "" && got.RuleStart != test.ruleStart) {
			t.Errorf("Parse(%q) failure rule = %q@%d; want %q@%d",
				test.src, gotName, got.RuleStart, test.ruleName, test.ruleStart)
		}
	}
}

func TestQuiet(t *testing.T) {
	g := new(Grammar)
	suffix := g.Rule("Suffix").Quiet()
	expr := g.Rule("Expr")
	suffix.Define(Seq(Token(lualex.DotToken), Token(lualex.IdentifierToken)))
	expr.Define(Seq(Token(lualex.IdentifierToken), ZeroOrMore(suffix)))

	_, err := Parse(expr, scan(t, "a.b c"), nil)
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("Parse error = %v; want *Failure", err)
	}
	if want := []string{"<eof>"}; !cmp.Equal(f.Expected, want) {
		t.Errorf("Expected = %q; want %q", f.Expected, want)
	}

	// A quiet rule that fails after consuming input still reports.
	_, err = Parse(expr, scan(t, "a.b."), nil)
	if !errors.As(err, &f) {
		t.Fatalf("Parse error = %v; want *Failure", err)
	}
	if want := []string{"<name>"}; f.Pos != 4 || !cmp.Equal(f.Expected, want) {
		t.Errorf("failure = %d %q; want 4 %q", f.Pos, f.Expected, want)
	}
}

func TestCheck(t *testing.T) {
	g := new(Grammar)
	calls := 0
	upper := g.Rule("Upper").Define(Check(Token(lualex.IdentifierToken), "upper-case name", func(m *Match) bool {
		calls++
		s := m.Token.Value
		return s != "" && strings.ToUpper(s) == s
	}))
	top := g.Rule("Top").Define(Choice(
		Seq(upper, Token(lualex.AssignToken)),
		Seq(upper, Token(lualex.LParenToken), Token(lualex.RParenToken)),
	))

	if _, err := Parse(top, scan(t, "X()"), nil); err != nil {
		t.Error(err)
	}
	if calls != 1 {
		t.Errorf("predicate called %d times; want 1 (memoized)", calls)
	}

	_, err := Parse(top, scan(t, "x = 1"), nil)
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("Parse error = %v; want *Failure", err)
	}
	if want := []string{"upper-case name"}; f.Pos != 0 || !cmp.Equal(f.Expected, want) {
		t.Errorf("failure = %d %q; want 0 %q", f.Pos, f.Expected, want)
	}
}

func TestDepthLimit(t *testing.T) {
	tg := newTestGrammar()
	opts := &Options{MaxDepth: 3}
	if _, err := Parse(tg.stmt, scan(t, "x = ((y))"), opts); err != nil {
		t.Errorf("at limit: %v", err)
	}
	_, err := Parse(tg.stmt, scan(t, "x = (((y)))"), opts)
	var depthErr *DepthError
	if !errors.As(err, &depthErr) {
		t.Fatalf("beyond limit: error = %v; want *DepthError", err)
	}
	if depthErr.Max != 3 || depthErr.Pos != 5 {
		t.Errorf("DepthError = %+v; want {Pos: 5, Max: 3}", depthErr)
	}

	deep := "x = " + strings.Repeat("(", DefaultMaxDepth) + "y" + strings.Repeat(")", DefaultMaxDepth)
	if _, err := Parse(tg.stmt, scan(t, deep), nil); !errors.As(err, &depthErr) {
		t.Errorf("default limit: error = %v; want *DepthError", err)
	}
}

func TestRepeat(t *testing.T) {
	g := new(Grammar)
	names := g.Rule("Names").Define(OneOrMore(Token(lualex.IdentifierToken)))
	if _, err := Parse(names, scan(t, ""), nil); err == nil {
		t.Error("OneOrMore matched empty input")
	}
	m, err := Parse(names, scan(t, "a b c"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.Kind != RepeatMatch || len(m.Children) != 3 {
		t.Errorf("match = %v kind %v; want 3 repetitions", m, m.Kind)
	}

	// Repetition of an empty match terminates.
	empty := g.Rule("Empty").Define(ZeroOrMore(Optional(Token(lualex.CommaToken))))
	if _, err := Parse(empty, scan(t, ""), nil); err != nil {
		t.Error(err)
	}
}

func TestParseRequiresEOF(t *testing.T) {
	tg := newTestGrammar()
	if _, err := Parse(tg.stmt, nil, nil); err == nil {
		t.Error("Parse(nil) did not return an error")
	}
}

func TestFailureFrames(t *testing.T) {
	tg := newTestGrammar()
	// f ( ( 1 <eof>
	_, err := Parse(tg.stmt, scan(t, "f((1"), nil)
	var f *Failure
	if !errors.As(err, &f) {
		t.Fatalf("Parse error = %v; want *Failure", err)
	}
	var got []string
	for _, frame := range f.Frames {
		got = append(got, fmt.Sprintf("%s@%d", frame.Rule.Name(), frame.Start))
	}
	want := []string{"Value@2", "List@2", "Call@0", "Stmt@0"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Frames (-want +got):\n%s", diff)
	}
}
